package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/pairtalk/internal/domain"
)

// GetSettings returns the current settings.
// GET /v1/settings
func (h *Handler) GetSettings(c echo.Context) error {
	settings, err := h.service.Settings(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, settings)
}

// UpdateSettings replaces the settings.
// PUT /v1/settings
func (h *Handler) UpdateSettings(c echo.Context) error {
	var req domain.UpdateSettingsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	settings, err := h.service.UpdateSettings(c.Request().Context(), &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, settings)
}
