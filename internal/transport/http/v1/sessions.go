package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/pairtalk/internal/domain"
)

// OpenSession joins the chat of the named participant.
// POST /v1/sessions
func (h *Handler) OpenSession(c echo.Context) error {
	var req domain.OpenSessionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	session, err := h.service.OpenSession(c.Request().Context(), req.Name)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"session":             session,
		"refresh_interval_ms": h.service.RefreshInterval().Milliseconds(),
	})
}

// CloseSession ends a chat session.
// DELETE /v1/sessions/:session_id
func (h *Handler) CloseSession(c echo.Context) error {
	if err := h.service.CloseSession(c.Param("session_id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// GetTranscript renders the transcript for the session's participant. With
// wait=true the request blocks until there are more than `after` lines or the
// refresh interval has passed.
// GET /v1/sessions/:session_id/transcript
func (h *Handler) GetTranscript(c echo.Context) error {
	sessionID := c.Param("session_id")
	ctx := c.Request().Context()

	var (
		view *domain.TranscriptView
		err  error
	)
	if wait, _ := strconv.ParseBool(c.QueryParam("wait")); wait {
		after := 0
		if a := c.QueryParam("after"); a != "" {
			if after, err = strconv.Atoi(a); err != nil || after < 0 {
				return echo.NewHTTPError(http.StatusBadRequest, "after must be a non-negative integer")
			}
		}
		view, err = h.service.WaitForUpdate(ctx, sessionID, after)
	} else {
		view, err = h.service.Render(ctx, sessionID)
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, view)
}

// SendMessage appends a message to the session's transcript.
// POST /v1/sessions/:session_id/messages
func (h *Handler) SendMessage(c echo.Context) error {
	var req domain.SendMessageRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	resp, err := h.service.SendMessage(c.Request().Context(), c.Param("session_id"), req.Text)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, resp)
}

// ExportSession renders the session's transcript and returns the PDF.
// POST /v1/sessions/:session_id/export
func (h *Handler) ExportSession(c echo.Context) error {
	doc, err := h.service.ExportSession(c.Request().Context(), c.Param("session_id"))
	if err != nil {
		return err
	}
	return c.Attachment(doc.Path, doc.Name)
}
