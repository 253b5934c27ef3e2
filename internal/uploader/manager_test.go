package uploader

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuwise/gateway/internal/models"
	"github.com/docuwise/gateway/internal/transport"
)

// fakeTransport scripts upload results and status sequences, counting calls.
type fakeTransport struct {
	mu          sync.Mutex
	uploads     int
	statusCalls int

	result   transport.UploadResult
	progress []int
	statuses []models.ProcessingStatus

	// hold, when set, keeps Upload in flight until released or ctx ends.
	hold chan struct{}
}

func (f *fakeTransport) Upload(ctx context.Context, _ models.CandidateFile, onProgress func(int)) transport.UploadResult {
	f.mu.Lock()
	f.uploads++
	f.mu.Unlock()

	if f.hold != nil {
		select {
		case <-f.hold:
		case <-ctx.Done():
			return transport.UploadResult{Err: "upload canceled", Canceled: true}
		}
	}
	if onProgress != nil {
		for _, p := range f.progress {
			onProgress(p)
		}
	}
	return f.result
}

func (f *fakeTransport) CheckStatus(ctx context.Context, id string) (models.ProcessingStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls++
	if len(f.statuses) == 0 {
		return models.ProcessingActive, nil
	}
	s := f.statuses[0]
	if len(f.statuses) > 1 {
		f.statuses = f.statuses[1:]
	}
	return s, nil
}

func (f *fakeTransport) uploadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uploads
}

func fastOptions() Options {
	return Options{
		SimulatedDelay:  5 * time.Millisecond,
		PollMaxAttempts: 4,
		PollInterval:    time.Millisecond,
	}
}

func pdf(size int64) models.CandidateFile {
	return models.CandidateFile{Name: "doc.pdf", MediaType: "application/pdf", Size: size, Data: []byte("x")}
}

func TestUpload_FullLifecycle(t *testing.T) {
	tr := &fakeTransport{
		result:   transport.UploadResult{OK: true, ID: "doc-1"},
		progress: []int{12, 55, 100},
		statuses: []models.ProcessingStatus{models.ProcessingQueued, models.ProcessingActive, models.ProcessingDone},
	}
	m := NewManager(tr, fastOptions())

	require.NoError(t, m.SetFile(pdf(1024)))
	require.NoError(t, m.Upload(context.Background()))

	sess := m.Snapshot()
	assert.Equal(t, models.UploadStateSuccess, sess.State)
	assert.Equal(t, models.ProcessingDone, sess.Processing)
	assert.Equal(t, "doc-1", sess.UploadedID)
	assert.Equal(t, 100, sess.Progress)
	assert.False(t, sess.Simulated)
}

func TestUpload_ProgressMonotonicAndPrecedesTerminal(t *testing.T) {
	var seen []models.UploadSession
	tr := &fakeTransport{
		result:   transport.UploadResult{OK: true, ID: "doc-1"},
		progress: []int{10, 40, 40, 30, 100}, // transport misbehaving: repeats and regressions
		statuses: []models.ProcessingStatus{models.ProcessingDone},
	}
	opts := fastOptions()
	opts.OnChange = func(s models.UploadSession) { seen = append(seen, s) }
	m := NewManager(tr, opts)

	require.NoError(t, m.SetFile(pdf(1024)))
	require.NoError(t, m.Upload(context.Background()))

	last := -1
	sawTerminal := false
	for _, s := range seen {
		if s.State == models.UploadStateUploading {
			assert.False(t, sawTerminal, "progress after terminal state")
			assert.GreaterOrEqual(t, s.Progress, last, "progress went backwards")
			last = s.Progress
		}
		if s.State == models.UploadStateSuccess {
			sawTerminal = true
		}
	}
	assert.Equal(t, 100, last)
	assert.True(t, sawTerminal)
}

func TestUpload_DoubleTriggerIssuesOneRequest(t *testing.T) {
	tr := &fakeTransport{
		hold:     make(chan struct{}),
		result:   transport.UploadResult{OK: true, ID: "doc-1"},
		statuses: []models.ProcessingStatus{models.ProcessingDone},
	}
	m := NewManager(tr, fastOptions())
	require.NoError(t, m.SetFile(pdf(1024)))

	done := make(chan error, 1)
	go func() { done <- m.Upload(context.Background()) }()

	// Wait for the first trigger to take the uploading state.
	require.Eventually(t, func() bool {
		return m.Snapshot().State == models.UploadStateUploading
	}, time.Second, time.Millisecond)

	// Second trigger while in flight: no-op, no second request.
	require.NoError(t, m.Upload(context.Background()))

	close(tr.hold)
	require.NoError(t, <-done)
	assert.Equal(t, 1, tr.uploadCount())
}

func TestUpload_FailureSurfacesErrorTextVerbatim(t *testing.T) {
	tr := &fakeTransport{result: transport.UploadResult{Err: "backend said no"}}
	m := NewManager(tr, fastOptions())

	require.NoError(t, m.SetFile(pdf(1024)))
	require.NoError(t, m.Upload(context.Background()))

	sess := m.Snapshot()
	assert.Equal(t, models.UploadStateError, sess.State)
	assert.Equal(t, "backend said no", sess.Message)
	assert.Empty(t, sess.UploadedID)
}

func TestUpload_NoIDSimulatedMode(t *testing.T) {
	tr := &fakeTransport{result: transport.UploadResult{OK: true}}
	opts := fastOptions()
	opts.SimulatedProcessing = true
	m := NewManager(tr, opts)

	require.NoError(t, m.SetFile(pdf(1024)))
	require.NoError(t, m.Upload(context.Background()))

	sess := m.Snapshot()
	assert.Equal(t, models.UploadStateSuccess, sess.State)
	assert.Equal(t, models.ProcessingDone, sess.Processing)
	assert.True(t, sess.Simulated, "degraded path must be marked as simulated")
	assert.Zero(t, tr.statusCalls, "degraded path must not issue status checks")
}

func TestUpload_NoIDWithoutSimulationFails(t *testing.T) {
	tr := &fakeTransport{result: transport.UploadResult{OK: true}}
	m := NewManager(tr, fastOptions())

	require.NoError(t, m.SetFile(pdf(1024)))
	require.NoError(t, m.Upload(context.Background()))

	sess := m.Snapshot()
	assert.Equal(t, models.ProcessingFailed, sess.Processing)
	assert.Contains(t, sess.Message, "no file id")
	assert.Zero(t, tr.statusCalls)
}

func TestUpload_CancellationDoesNotRecordFailure(t *testing.T) {
	tr := &fakeTransport{hold: make(chan struct{})}
	m := NewManager(tr, fastOptions())
	require.NoError(t, m.SetFile(pdf(1024)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Upload(ctx) }()

	require.Eventually(t, func() bool {
		return m.Snapshot().State == models.UploadStateUploading
	}, time.Second, time.Millisecond)
	cancel()

	err := <-done
	assert.ErrorIs(t, err, context.Canceled)

	sess := m.Snapshot()
	assert.Equal(t, models.UploadStateIdle, sess.State)
	assert.Empty(t, sess.Message)
	assert.Zero(t, sess.Progress)
}

func TestUpload_PollingGivesUpAfterBudget(t *testing.T) {
	tr := &fakeTransport{
		result:   transport.UploadResult{OK: true, ID: "doc-1"},
		statuses: []models.ProcessingStatus{models.ProcessingActive},
	}
	opts := fastOptions()
	opts.PollMaxAttempts = 2
	m := NewManager(tr, opts)

	require.NoError(t, m.SetFile(pdf(1024)))
	require.NoError(t, m.Upload(context.Background()))

	sess := m.Snapshot()
	assert.Equal(t, models.ProcessingActive, sess.Processing, "no invented terminal state")
	assert.Contains(t, sess.Message, "gave up")
	assert.Equal(t, 3, tr.statusCalls, "initial check plus two re-polls")
}

func TestSetFile_ResetsSessionAfterTerminalState(t *testing.T) {
	tr := &fakeTransport{
		result:   transport.UploadResult{OK: true, ID: "doc-1"},
		progress: []int{100},
		statuses: []models.ProcessingStatus{models.ProcessingDone},
	}
	m := NewManager(tr, fastOptions())

	require.NoError(t, m.SetFile(pdf(1024)))
	require.NoError(t, m.Upload(context.Background()))
	require.Equal(t, "doc-1", m.Snapshot().UploadedID)

	// Picking a new file resets everything.
	require.NoError(t, m.SetFile(pdf(2048)))
	sess := m.Snapshot()
	assert.Equal(t, models.UploadStateIdle, sess.State)
	assert.Equal(t, models.ProcessingIdle, sess.Processing)
	assert.Zero(t, sess.Progress)
	assert.Empty(t, sess.UploadedID)
	assert.Empty(t, sess.Message)
}

func TestSetFile_RejectsInvalidCandidates(t *testing.T) {
	m := NewManager(&fakeTransport{}, fastOptions())

	err := m.SetFile(models.CandidateFile{Name: "notes.txt", MediaType: "text/plain", Size: 10})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "text/plain")

	sess := m.Snapshot()
	assert.Equal(t, models.UploadStateError, sess.State)
	assert.Nil(t, sess.File)

	// Upload with no accepted file is refused.
	assert.ErrorIs(t, m.Upload(context.Background()), ErrNoFile)
}

func TestSetFile_RejectsOversizedFile(t *testing.T) {
	m := NewManager(&fakeTransport{}, fastOptions())

	err := m.SetFile(pdf(51 * 1024 * 1024))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "51.00 MB")
}

func TestRemoveFile_DisallowedWhileUploading(t *testing.T) {
	tr := &fakeTransport{hold: make(chan struct{})}
	m := NewManager(tr, fastOptions())
	require.NoError(t, m.SetFile(pdf(1024)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- m.Upload(ctx) }()

	require.Eventually(t, func() bool {
		return m.Snapshot().State == models.UploadStateUploading
	}, time.Second, time.Millisecond)

	assert.ErrorIs(t, m.RemoveFile(), ErrUploadInProgress)
	assert.ErrorIs(t, m.SetFile(pdf(10)), ErrUploadInProgress)

	cancel()
	<-done
}

func TestRefresh_SingleManualCheck(t *testing.T) {
	tr := &fakeTransport{
		result:   transport.UploadResult{OK: true, ID: "doc-1"},
		statuses: []models.ProcessingStatus{models.ProcessingDone},
	}
	m := NewManager(tr, fastOptions())
	require.NoError(t, m.SetFile(pdf(1024)))
	require.NoError(t, m.Upload(context.Background()))

	calls := tr.statusCalls
	tr.statuses = []models.ProcessingStatus{models.ProcessingDone}
	require.NoError(t, m.Refresh(context.Background()))
	assert.Equal(t, calls+1, tr.statusCalls)
}

func TestRefresh_NothingToRefresh(t *testing.T) {
	m := NewManager(&fakeTransport{}, fastOptions())
	assert.Error(t, m.Refresh(context.Background()))
}
