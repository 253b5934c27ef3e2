// Package api implements the proxy boundary between the browser and the
// document backend: it relays uploads, listings, status checks and queries,
// and sanitizes whatever the backend sends back so the client UI only ever
// sees structured JSON.
package api

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/docuwise/gateway/internal/config"
	"github.com/docuwise/gateway/internal/models"
)

// maxRelayBody caps how much of an upstream response is buffered for relay.
const maxRelayBody = 4 << 20

// Handler relays client requests to the configured backend.
type Handler struct {
	backend config.BackendConfig
	client  *http.Client
	log     zerolog.Logger
}

// NewHandler creates a proxy handler.
func NewHandler(backend config.BackendConfig, log zerolog.Logger) *Handler {
	timeout := time.Duration(backend.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Handler{
		backend: backend,
		client:  &http.Client{Timeout: timeout},
		log:     log,
	}
}

// HandleHealth reports gateway liveness.
func (h *Handler) HandleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// HandleListFiles relays the recent-files listing. Without a reachable
// backend it either degrades to a demo payload (mock fallback) or reports
// the failure.
func (h *Handler) HandleListFiles(c echo.Context) error {
	limit := c.QueryParam("limit")
	if limit == "" {
		limit = "10"
	}

	if !h.backend.HasBackend() {
		if h.backend.MockFallback {
			h.log.Warn().Msg("no backend configured, serving mock file listing")
			return c.JSON(http.StatusOK, mockFileList())
		}
		return NewConfigError("backend base URL not configured")
	}

	req, err := http.NewRequestWithContext(c.Request().Context(), http.MethodGet, h.backend.FilesURL(limit), nil)
	if err != nil {
		return NewBadRequestError("invalid listing request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		if h.backend.MockFallback {
			h.log.Warn().Err(err).Msg("backend unreachable, serving mock file listing")
			return c.JSON(http.StatusOK, mockFileList())
		}
		h.log.Error().Err(err).Msg("files proxy failed to reach backend")
		return NewGatewayError("failed to reach backend")
	}
	defer resp.Body.Close()

	return h.relayJSON(c, resp)
}

// HandleUpload relays a file upload. The request body is forwarded
// byte-for-byte; nothing is decoded or re-encoded on the way through.
func (h *Handler) HandleUpload(c echo.Context) error {
	if !h.backend.HasBackend() {
		return NewConfigError("backend base URL not configured")
	}

	src := c.Request()
	req, err := http.NewRequestWithContext(src.Context(), http.MethodPost, h.backend.UploadURL(), src.Body)
	if err != nil {
		return NewBadRequestError("invalid upload request")
	}
	req.Header.Set("Content-Type", src.Header.Get("Content-Type"))
	req.ContentLength = src.ContentLength

	resp, err := h.client.Do(req)
	if err != nil {
		h.log.Error().Err(err).Msg("upload proxy failed to reach backend")
		return NewGatewayError("upload proxy failed to reach backend")
	}
	defer resp.Body.Close()

	return h.relayJSON(c, resp)
}

// HandleStatus relays a processing-status check for one file.
func (h *Handler) HandleStatus(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewBadRequestError("missing file id")
	}

	if !h.backend.HasBackend() {
		if h.backend.MockFallback {
			return c.JSON(http.StatusOK, map[string]string{"status": "processing"})
		}
		return NewConfigError("backend base URL not configured")
	}

	url := h.backend.StatusURL(id)
	h.log.Debug().Str("url", url).Msg("status proxy")

	req, err := http.NewRequestWithContext(c.Request().Context(), http.MethodGet, url, nil)
	if err != nil {
		return NewBadRequestError("invalid status request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		if h.backend.MockFallback {
			// Degraded default keeps the status strip alive until the
			// backend endpoint exists.
			h.log.Warn().Err(err).Str("id", id).Msg("status backend unreachable, defaulting to processing")
			return c.JSON(http.StatusOK, map[string]string{"status": "processing"})
		}
		h.log.Error().Err(err).Str("id", id).Msg("status proxy failed to reach backend")
		return NewGatewayError("status proxy failed to reach backend")
	}
	defer resp.Body.Close()

	return h.relayJSON(c, resp)
}

// HandleQuery relays a submitted question.
func (h *Handler) HandleQuery(c echo.Context) error {
	if !h.backend.HasBackend() {
		return NewConfigError("backend base URL not configured")
	}

	src := c.Request()
	req, err := http.NewRequestWithContext(src.Context(), http.MethodPost, h.backend.QueryURL(), src.Body)
	if err != nil {
		return NewBadRequestError("invalid query request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		h.log.Error().Err(err).Msg("query proxy failed to reach backend")
		return NewGatewayError("query proxy failed to reach backend")
	}
	defer resp.Body.Close()

	return h.relayJSON(c, resp)
}

// relayJSON forwards an upstream response when it is structured data, and
// sanitizes it otherwise: non-JSON bodies (typically HTML error pages) are
// replaced by {error, body} with the upstream status and a snippet.
func (h *Handler) relayJSON(c echo.Context, resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRelayBody))
	if err != nil {
		return NewGatewayError("failed to read backend response")
	}

	ct := resp.Header.Get("Content-Type")
	if !strings.Contains(ct, "application/json") {
		h.log.Warn().
			Int("status", resp.StatusCode).
			Str("content_type", ct).
			Msg("sanitizing upstream response")
		return NewUpstreamError(resp.StatusCode, string(body))
	}

	return c.Blob(resp.StatusCode, "application/json", body)
}

// mockFileList is the demo payload served when no backend is available, so
// the UI keeps rendering.
func mockFileList() models.FileList {
	return models.FileList{
		Items: []models.FileMeta{
			{
				ID:         "demo1",
				Filename:   "sample.pdf",
				Size:       2 * 1024 * 1024,
				UploadedAt: time.Now().UTC().Format(time.RFC3339),
				Status:     "done",
			},
		},
	}
}
