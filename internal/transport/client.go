// Package transport performs the actual network operations of the upload
// client: the multipart upload with progress feedback, single status checks,
// and question submission. It mirrors what the browser layer did over XHR:
// upload failures never escape as faults, they resolve to a result value.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/docuwise/gateway/internal/models"
)

// maxErrorBody caps how much of an upstream error body is kept as error text.
const maxErrorBody = 4096

// UploadResult is the outcome of one upload attempt.
type UploadResult struct {
	OK bool
	// ID is the identifier assigned by the backend. May be empty even on
	// success when the backend returned a non-JSON or id-less body.
	ID  string
	Err string
	// Canceled marks results caused by context cancellation so the caller
	// can tell an abort from a genuine failure.
	Canceled bool
}

// Client issues upload, status and query requests against a gateway (or the
// backend directly, the surface is the same).
type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request ceiling for uploads and status checks.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithHTTPClient replaces the underlying HTTP client (tests).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithLogger sets the client logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// NewClient creates a client bound to baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 60 * time.Second},
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Upload sends the candidate file as a single multipart request. Progress
// callbacks are delivered in non-decreasing order and reach 100 before the
// result is returned; if the total size cannot be computed no progress fires
// but completion is still reported. Upload never panics and never returns an
// error: every failure mode resolves to a result with OK=false.
func (c *Client) Upload(ctx context.Context, file models.CandidateFile, onProgress func(int)) UploadResult {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	part, err := w.CreateFormFile("file", file.Name)
	if err != nil {
		return UploadResult{Err: fmt.Sprintf("failed to build upload body: %v", err)}
	}
	if _, err := part.Write(file.Data); err != nil {
		return UploadResult{Err: fmt.Sprintf("failed to build upload body: %v", err)}
	}
	if err := w.Close(); err != nil {
		return UploadResult{Err: fmt.Sprintf("failed to build upload body: %v", err)}
	}

	total := int64(body.Len())
	reader := newProgressReader(&body, total, onProgress)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/upload", reader)
	if err != nil {
		return UploadResult{Err: fmt.Sprintf("invalid upload request: %v", err)}
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.ContentLength = total

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return UploadResult{Err: "upload canceled", Canceled: true}
		}
		c.log.Warn().Err(err).Str("file", file.Name).Msg("upload network error")
		return UploadResult{Err: "Network error during upload."}
	}
	defer resp.Body.Close()

	text, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errText := strings.TrimSpace(string(text))
		if errText == "" {
			errText = fmt.Sprintf("Upload failed (%d)", resp.StatusCode)
		}
		return UploadResult{Err: errText}
	}

	// HTTP success with an unparseable body still counts as success, just
	// without an assigned identifier.
	var parsed struct {
		ID     string `json:"id"`
		FileID string `json:"file_id"`
	}
	if err := json.Unmarshal(text, &parsed); err != nil {
		c.log.Warn().Str("file", file.Name).Msg("upload response was not JSON; treating as id-less success")
		return UploadResult{OK: true}
	}
	id := parsed.ID
	if id == "" {
		id = parsed.FileID
	}
	return UploadResult{OK: true, ID: id}
}

// CheckStatus issues exactly one status request for an uploaded file. It does
// not loop; repeated invocation is the caller's policy.
func (c *Client) CheckStatus(ctx context.Context, id string) (models.ProcessingStatus, error) {
	u := c.baseURL + "/api/files/" + url.PathEscape(id) + "/status"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return models.ProcessingIdle, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return models.ProcessingIdle, fmt.Errorf("status check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.ProcessingIdle, fmt.Errorf("status check returned %d", resp.StatusCode)
	}

	var payload struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return models.ProcessingIdle, fmt.Errorf("malformed status response: %w", err)
	}
	return models.ParseProcessingStatus(payload.Status), nil
}

// Query submits a natural-language question. The context doubles as the
// abort handle: canceling it invalidates the in-flight request.
func (c *Client) Query(ctx context.Context, question string) (models.QueryResult, error) {
	payload, err := json.Marshal(models.QueryRequest{Question: question})
	if err != nil {
		return models.QueryResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/query", bytes.NewReader(payload))
	if err != nil {
		return models.QueryResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return models.QueryResult{}, fmt.Errorf("query failed: %w", err)
	}
	defer resp.Body.Close()

	text, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(text))
		if msg == "" {
			msg = fmt.Sprintf("HTTP %d", resp.StatusCode)
		}
		return models.QueryResult{}, errors.New(msg)
	}

	var result models.QueryResult
	if err := json.Unmarshal(text, &result); err != nil {
		return models.QueryResult{}, fmt.Errorf("unexpected response from server")
	}
	if result.Error != "" {
		return models.QueryResult{}, errors.New(result.Error)
	}
	return result, nil
}

// RecentFiles fetches the recent uploads listing. Both the bare-array and
// the {items: [...]} envelope forms are accepted.
func (c *Client) RecentFiles(ctx context.Context, limit int) ([]models.FileMeta, error) {
	u := c.baseURL + "/api/files"
	if limit > 0 {
		u += fmt.Sprintf("?limit=%d", limit)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch uploads: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	text, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	var items []models.FileMeta
	if err := json.Unmarshal(text, &items); err == nil {
		return items, nil
	}
	var list models.FileList
	if err := json.Unmarshal(text, &list); err != nil {
		return nil, fmt.Errorf("unexpected response from server")
	}
	return list.Items, nil
}
