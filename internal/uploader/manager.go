// Package uploader coordinates the upload-and-track lifecycle: local
// validation, the upload itself, and the processing-status polling that
// follows. It owns exactly one upload session and is the only writer of
// session state.
package uploader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"

	"github.com/docuwise/gateway/internal/models"
	"github.com/docuwise/gateway/internal/transport"
	"github.com/docuwise/gateway/internal/validate"
)

// Transport is the slice of the network client the lifecycle needs.
type Transport interface {
	Upload(ctx context.Context, file models.CandidateFile, onProgress func(int)) transport.UploadResult
	CheckStatus(ctx context.Context, id string) (models.ProcessingStatus, error)
}

// Options configures a Manager.
type Options struct {
	// MaxSizeMB is the local validation size ceiling. Zero means the
	// default 50 MB cap.
	MaxSizeMB int

	// SimulatedProcessing enables the degraded path taken when an upload
	// succeeds without an assigned identifier: processing completion is
	// simulated after SimulatedDelay instead of polling. Meant for
	// environments without a real backend; with the flag off an id-less
	// success marks processing as failed.
	SimulatedProcessing bool
	SimulatedDelay      time.Duration

	// PollMaxAttempts and PollInterval bound the status polling loop:
	// exponential backoff starting at PollInterval, at most
	// PollMaxAttempts re-polls after the initial check.
	PollMaxAttempts uint64
	PollInterval    time.Duration

	Logger zerolog.Logger

	// OnChange, when set, receives a snapshot after every session mutation.
	OnChange func(models.UploadSession)
}

// ErrUploadInProgress is returned for operations that are disallowed while
// an upload is in flight.
var ErrUploadInProgress = errors.New("upload in progress")

// ErrNoFile is returned by Upload when no validated candidate file is set.
var ErrNoFile = errors.New("no file selected")

// Manager is the upload-session state machine. All mutation goes through it;
// views read copies via Snapshot.
type Manager struct {
	mu   sync.Mutex
	tr   Transport
	opts Options
	log  zerolog.Logger
	sess models.UploadSession
}

// NewManager creates a lifecycle manager around a transport.
func NewManager(tr Transport, opts Options) *Manager {
	if opts.MaxSizeMB <= 0 {
		opts.MaxSizeMB = validate.MaxSizeMB
	}
	if opts.SimulatedDelay <= 0 {
		opts.SimulatedDelay = 1200 * time.Millisecond
	}
	if opts.PollMaxAttempts == 0 {
		opts.PollMaxAttempts = 8
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	return &Manager{
		tr:   tr,
		opts: opts,
		log:  opts.Logger,
		sess: models.UploadSession{State: models.UploadStateIdle, Processing: models.ProcessingIdle},
	}
}

// Snapshot returns a copy of the current session for the view layer.
func (m *Manager) Snapshot() models.UploadSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sess
}

// SetFile validates a candidate file and, on acceptance, resets the whole
// session around it: progress to 0, processing to idle, identifier and error
// text cleared. A rejected file leaves no candidate selected. Replacing the
// file is disallowed while an upload is in flight.
func (m *Manager) SetFile(f models.CandidateFile) error {
	m.mu.Lock()
	if m.sess.State == models.UploadStateUploading {
		m.mu.Unlock()
		return ErrUploadInProgress
	}

	if err := validate.CheckLimit(f.MediaType, f.Size, m.opts.MaxSizeMB); err != nil {
		m.sess.File = nil
		m.sess.FileName = ""
		m.sess.State = models.UploadStateError
		m.sess.Message = err.Error()
		m.mu.Unlock()
		m.notify()
		return err
	}

	m.sess = models.UploadSession{
		ID:         uuid.New().String(),
		File:       &f,
		FileName:   f.Name,
		State:      models.UploadStateIdle,
		Processing: models.ProcessingIdle,
	}
	m.mu.Unlock()
	m.notify()
	return nil
}

// RemoveFile clears the selected candidate file. Disallowed while uploading.
func (m *Manager) RemoveFile() error {
	m.mu.Lock()
	if m.sess.State == models.UploadStateUploading {
		m.mu.Unlock()
		return ErrUploadInProgress
	}
	m.sess = models.UploadSession{State: models.UploadStateIdle, Processing: models.ProcessingIdle}
	m.mu.Unlock()
	m.notify()
	return nil
}

// Upload runs the full lifecycle for the selected file: upload, then either
// status polling or simulated completion. It blocks until a terminal
// processing state is reached, polling gives up, or ctx is canceled.
//
// Calling Upload while an upload is already in flight is a no-op, so a
// double-triggered view issues exactly one network request. A canceled
// context never mutates the session.
func (m *Manager) Upload(ctx context.Context) error {
	m.mu.Lock()
	if m.sess.State == models.UploadStateUploading {
		m.mu.Unlock()
		m.log.Debug().Str("session", m.sess.ID).Msg("upload already in flight, ignoring trigger")
		return nil
	}
	if m.sess.File == nil {
		m.mu.Unlock()
		return ErrNoFile
	}
	file := *m.sess.File
	m.sess.State = models.UploadStateUploading
	m.sess.Progress = 0
	m.sess.Message = ""
	m.sess.StartedAt = time.Now()
	sessionID := m.sess.ID
	m.mu.Unlock()
	m.notify()

	m.log.Info().Str("session", sessionID).Str("file", file.Name).Int64("size", file.Size).Msg("upload started")

	result := m.tr.Upload(ctx, file, m.setProgress)

	if result.Canceled {
		// An abort is not a failure; roll back to idle without recording
		// a result.
		m.mu.Lock()
		m.sess.State = models.UploadStateIdle
		m.sess.Progress = 0
		m.mu.Unlock()
		m.notify()
		m.log.Info().Str("session", sessionID).Msg("upload aborted")
		return ctx.Err()
	}

	if !result.OK {
		m.mu.Lock()
		m.sess.State = models.UploadStateError
		m.sess.Message = result.Err
		m.mu.Unlock()
		m.notify()
		m.log.Warn().Str("session", sessionID).Str("error", result.Err).Msg("upload failed")
		return nil
	}

	m.mu.Lock()
	m.sess.State = models.UploadStateSuccess
	m.sess.UploadedID = result.ID
	m.mu.Unlock()
	m.notify()

	if result.ID == "" {
		return m.completeWithoutID(ctx, sessionID)
	}

	m.log.Info().Str("session", sessionID).Str("id", result.ID).Msg("upload succeeded, tracking processing")
	m.setProcessing(models.ProcessingQueued)
	m.setProcessing(models.ProcessingActive)
	return m.pollUntilTerminal(ctx, result.ID)
}

// Refresh issues a single manual status check for the uploaded file.
func (m *Manager) Refresh(ctx context.Context) error {
	m.mu.Lock()
	id := m.sess.UploadedID
	state := m.sess.State
	m.mu.Unlock()

	if state != models.UploadStateSuccess || id == "" {
		return errors.New("nothing to refresh")
	}

	status, err := m.tr.CheckStatus(ctx, id)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err() // aborted, leave session untouched
		}
		return err
	}
	m.setProcessing(status)
	return nil
}

// completeWithoutID handles a success response that carried no identifier.
func (m *Manager) completeWithoutID(ctx context.Context, sessionID string) error {
	if !m.opts.SimulatedProcessing {
		m.mu.Lock()
		m.sess.Processing = models.ProcessingFailed
		m.sess.Message = "backend returned no file id"
		m.mu.Unlock()
		m.notify()
		m.log.Warn().Str("session", sessionID).Msg("upload succeeded without an id; marking processing failed")
		return nil
	}

	m.mu.Lock()
	m.sess.Simulated = true
	m.sess.Processing = models.ProcessingActive
	m.mu.Unlock()
	m.notify()
	m.log.Info().Str("session", sessionID).Str("mode", "simulated").Msg("no id from backend, simulating processing")

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(m.opts.SimulatedDelay):
	}

	m.setProcessing(models.ProcessingDone)
	m.log.Info().Str("session", sessionID).Str("mode", "simulated").Msg("simulated processing complete")
	return nil
}

// pollUntilTerminal re-checks the processing status with bounded exponential
// backoff until a terminal state is reached or the attempts run out.
// Checks are strictly sequential; a second check is never issued while one
// is outstanding.
func (m *Manager) pollUntilTerminal(ctx context.Context, id string) error {
	var errStillProcessing = errors.New("still processing")

	backoff := retry.WithMaxRetries(m.opts.PollMaxAttempts, retry.NewExponential(m.opts.PollInterval))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		status, err := m.tr.CheckStatus(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return err // context gone, stop without touching the session
			}
			m.log.Warn().Str("id", id).Err(err).Msg("status check failed, will retry")
			return retry.RetryableError(err)
		}
		m.setProcessing(status)
		if !status.Terminal() {
			return retry.RetryableError(errStillProcessing)
		}
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// Attempts exhausted: stay in processing rather than inventing a
		// terminal state, but record that polling stopped.
		m.mu.Lock()
		m.sess.Message = fmt.Sprintf("status polling gave up after %d attempts", m.opts.PollMaxAttempts+1)
		m.mu.Unlock()
		m.notify()
		m.log.Warn().Str("id", id).Err(err).Msg("status polling exhausted")
		return nil
	}
	return nil
}

// setProgress records upload progress. Only meaningful while uploading, and
// never allowed to move backwards.
func (m *Manager) setProgress(p int) {
	m.mu.Lock()
	if m.sess.State != models.UploadStateUploading || p <= m.sess.Progress {
		m.mu.Unlock()
		return
	}
	m.sess.Progress = p
	m.mu.Unlock()
	m.notify()
}

func (m *Manager) setProcessing(status models.ProcessingStatus) {
	m.mu.Lock()
	m.sess.Processing = status
	m.mu.Unlock()
	m.notify()
}

func (m *Manager) notify() {
	if m.opts.OnChange == nil {
		return
	}
	m.opts.OnChange(m.Snapshot())
}
