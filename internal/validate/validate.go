// Package validate implements the local acceptance check a candidate file
// must pass before any network call is made.
package validate

import "fmt"

// MaxSizeMB is the default upload size ceiling.
const MaxSizeMB = 50

const megabyte = 1024 * 1024

// allowedTypes is the fixed allow-list of document media types.
var allowedTypes = map[string]bool{
	"application/pdf": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
}

// RejectError describes why a candidate file was refused. It never reaches
// the network; picking a different file always recovers.
type RejectError struct {
	Reason string
}

func (e *RejectError) Error() string {
	return e.Reason
}

// Check decides whether a candidate file may be uploaded. It is a pure
// function of the declared media type and byte size.
func Check(mediaType string, size int64) error {
	return CheckLimit(mediaType, size, MaxSizeMB)
}

// CheckLimit is Check with a caller-supplied size ceiling in megabytes.
func CheckLimit(mediaType string, size int64, maxMB int) error {
	if !allowedTypes[mediaType] {
		if mediaType == "" {
			mediaType = "unknown"
		}
		return &RejectError{Reason: fmt.Sprintf("Unsupported type: %s (PDF/DOCX only).", mediaType)}
	}
	if float64(size)/megabyte >= float64(maxMB) {
		return &RejectError{Reason: fmt.Sprintf("File too large (%.2f MB, max %d MB).", float64(size)/megabyte, maxMB)}
	}
	return nil
}
