package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// NotifyResponse is returned by POST /internal/transcripts/:key/changed.
type NotifyResponse struct {
	OK        bool `json:"ok"`
	Delivered bool `json:"delivered"`
}

// NotifyTranscriptChanged lets writers outside this process announce that a
// transcript file has changed.
// POST /internal/transcripts/:key/changed
func (h *Handler) NotifyTranscriptChanged(c echo.Context) error {
	key := c.Param("key")
	delivered, err := h.service.AnnounceTranscriptChange(key)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	c.Logger().Debugf("transcript %s changed, delivered=%v", key, delivered)
	return c.JSON(http.StatusOK, NotifyResponse{OK: true, Delivered: delivered})
}
