package models

// FileMeta represents metadata about a file known to the document backend.
type FileMeta struct {
	ID         string `json:"id"`
	Filename   string `json:"filename"`
	Size       int64  `json:"size,omitempty"`
	UploadedAt string `json:"uploaded_at,omitempty"` // ISO-8601
	Status     string `json:"status,omitempty"`      // "queued", "processing", "indexed", "done", "failed"
}

// FileList is the envelope the backend returns from its files listing.
type FileList struct {
	Items []FileMeta `json:"items"`
}
