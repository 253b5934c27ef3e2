package models

// UploadState represents the state of one upload attempt.
type UploadState string

const (
	UploadStateIdle      UploadState = "idle"
	UploadStateUploading UploadState = "uploading"
	UploadStateSuccess   UploadState = "success"
	UploadStateError     UploadState = "error"
)

// ProcessingStatus represents the backend-side processing state of an
// uploaded document. It only starts moving once the upload has succeeded.
type ProcessingStatus string

const (
	ProcessingIdle   ProcessingStatus = "idle"
	ProcessingQueued ProcessingStatus = "queued"
	ProcessingActive ProcessingStatus = "processing"
	ProcessingDone   ProcessingStatus = "done"
	ProcessingFailed ProcessingStatus = "failed"
)

// Terminal reports whether no further status transition can occur.
func (s ProcessingStatus) Terminal() bool {
	return s == ProcessingDone || s == ProcessingFailed
}

// ParseProcessingStatus maps a backend status string onto the enum.
// Unknown values collapse to "processing" so a backend that reports
// intermediate stages ("indexed", "extracting") keeps the UI moving.
func ParseProcessingStatus(s string) ProcessingStatus {
	switch s {
	case "queued":
		return ProcessingQueued
	case "done", "indexed":
		return ProcessingDone
	case "failed", "error":
		return ProcessingFailed
	case "":
		return ProcessingIdle
	default:
		return ProcessingActive
	}
}
