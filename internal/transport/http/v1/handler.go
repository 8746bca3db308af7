// Package v1 provides the HTTP handlers of the pairtalk API.
package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/pairtalk/internal/service"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// RegisterRoutes registers the teacher, student and internal routes.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Teacher API
	e.POST("/v1/roster", h.UploadRoster)
	e.GET("/v1/roster", h.GetRoster)

	e.POST("/v1/pairings", h.GeneratePairing)
	e.GET("/v1/pairings", h.GetPairing)
	e.DELETE("/v1/pairings", h.DeletePairings)
	e.PATCH("/v1/pairings/:pair_id", h.UpdateTopic)
	e.POST("/v1/pairings/:pair_id/export", h.ExportPair)
	e.DELETE("/v1/pairings/:pair_id/transcript", h.DeleteTranscript)
	e.GET("/v1/transcripts", h.ListTranscripts)

	e.GET("/v1/settings", h.GetSettings)
	e.PUT("/v1/settings", h.UpdateSettings)

	e.GET("/v1/exports", h.ListExports)
	e.GET("/v1/exports/:name", h.DownloadExport)
	e.POST("/v1/exports/bundle", h.BundleExports)
	e.POST("/v1/exports/archive", h.ArchiveExports)

	// Student API
	e.POST("/v1/sessions", h.OpenSession)
	e.DELETE("/v1/sessions/:session_id", h.CloseSession)
	e.GET("/v1/sessions/:session_id/transcript", h.GetTranscript)
	e.POST("/v1/sessions/:session_id/messages", h.SendMessage)
	e.POST("/v1/sessions/:session_id/export", h.ExportSession)

	// Internal API
	e.POST("/internal/transcripts/:key/changed", h.NotifyTranscriptChanged)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":   "healthy",
		"version":  Version,
		"sessions": h.service.SessionCount(),
		"followed": h.service.Hub().TopicCount(),
	})
}

// bindAndValidate binds the request body into req and validates it.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return err
	}
	return c.Validate(req)
}
