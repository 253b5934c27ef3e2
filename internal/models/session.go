package models

import "time"

// CandidateFile is a file selected by the user but not yet uploaded.
type CandidateFile struct {
	Name      string
	MediaType string
	Size      int64
	Data      []byte
}

// UploadSession is the full client-side state for one upload-through-processing
// attempt. It is owned and mutated exclusively by the uploader; the view layer
// only ever sees copies.
type UploadSession struct {
	ID         string           `json:"id"`
	File       *CandidateFile   `json:"-"`
	FileName   string           `json:"fileName,omitempty"`
	State      UploadState      `json:"state"`
	Processing ProcessingStatus `json:"processing"`
	Progress   int              `json:"progress"` // 0-100
	UploadedID string           `json:"uploadedId,omitempty"`
	Message    string           `json:"message,omitempty"`
	Simulated  bool             `json:"simulated,omitempty"`
	StartedAt  time.Time        `json:"startedAt"`
}
