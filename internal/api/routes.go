// routes.go - Route registration
package api

import "github.com/labstack/echo/v4"

// RegisterRoutes registers all proxy routes with the Echo instance. Each
// operation is bound only to its allowed method; anything else gets a 405
// from the router before any backend call is attempted.
func RegisterRoutes(e *echo.Echo, h *Handler) {
	e.HTTPErrorHandler = ErrorHandler

	apiGroup := e.Group("/api")

	apiGroup.GET("/health", h.HandleHealth)

	apiGroup.GET("/files", h.HandleListFiles)
	apiGroup.GET("/files/:id/status", h.HandleStatus)

	apiGroup.POST("/upload", h.HandleUpload)
	apiGroup.POST("/query", h.HandleQuery)
}
