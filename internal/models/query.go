package models

// QueryRequest is the question payload submitted by the browser.
type QueryRequest struct {
	Question string `json:"question"`
}

// Source is a document reference attached to an answer.
type Source struct {
	Title string `json:"title,omitempty"`
	URL   string `json:"url,omitempty"`
}

// QueryResult is the backend's answer to a submitted question.
type QueryResult struct {
	Answer  string   `json:"answer,omitempty"`
	Sources []Source `json:"sources,omitempty"`
	Error   string   `json:"error,omitempty"`
}
