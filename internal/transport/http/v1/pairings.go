package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/pairtalk/internal/domain"
)

// GeneratePairing regenerates the pairing from the stored roster.
// POST /v1/pairings
func (h *Handler) GeneratePairing(c echo.Context) error {
	var req domain.GeneratePairingRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	resp, err := h.service.GeneratePairing(c.Request().Context(), &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, resp)
}

// GetPairing returns the visible pairing.
// GET /v1/pairings
func (h *Handler) GetPairing(c echo.Context) error {
	pairing, err := h.service.GetPairing(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pairing)
}

// DeletePairings removes all pairs.
// DELETE /v1/pairings
func (h *Handler) DeletePairings(c echo.Context) error {
	if err := h.service.DeleteAllPairs(c.Request().Context()); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// UpdateTopic changes the topic of one pair.
// PATCH /v1/pairings/:pair_id
func (h *Handler) UpdateTopic(c echo.Context) error {
	var req domain.UpdateTopicRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	pair, err := h.service.UpdateTopic(c.Request().Context(), c.Param("pair_id"), req.Topic)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pair)
}

// ExportPair renders a pair's transcript and returns the PDF.
// POST /v1/pairings/:pair_id/export
func (h *Handler) ExportPair(c echo.Context) error {
	doc, err := h.service.ExportPair(c.Request().Context(), c.Param("pair_id"))
	if err != nil {
		return err
	}
	return c.Attachment(doc.Path, doc.Name)
}

// DeleteTranscript clears a pair's conversation.
// DELETE /v1/pairings/:pair_id/transcript
func (h *Handler) DeleteTranscript(c echo.Context) error {
	if err := h.service.DeleteTranscript(c.Request().Context(), c.Param("pair_id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ListTranscripts lists the keys of all stored conversations.
// GET /v1/transcripts
func (h *Handler) ListTranscripts(c echo.Context) error {
	keys, err := h.service.ListTranscripts()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"transcripts": keys})
}
