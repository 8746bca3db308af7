package v1

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/xiaot623/pairtalk/internal/domain"
	"github.com/xiaot623/pairtalk/internal/roster"
)

// UploadRoster replaces the roster from an xlsx upload or a JSON name list.
// POST /v1/roster
func (h *Handler) UploadRoster(c echo.Context) error {
	var (
		names       []string
		generate    = true
		sharedTopic string
	)

	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		fh, err := c.FormFile("file")
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "file is required")
		}
		f, err := fh.Open()
		if err != nil {
			return errors.Wrap(err, "open upload")
		}
		defer f.Close()

		names, err = roster.ParseXLSX(f)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		if v := c.FormValue("generate"); v != "" {
			if generate, err = strconv.ParseBool(v); err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "generate must be a boolean")
			}
		}
		sharedTopic = c.FormValue("shared_topic")
	} else {
		var req domain.UploadRosterRequest
		if err := bindAndValidate(c, &req); err != nil {
			return err
		}
		names = req.Names
		if req.Generate != nil {
			generate = *req.Generate
		}
		sharedTopic = req.SharedTopic
	}

	resp, err := h.service.UploadRoster(c.Request().Context(), names, generate, sharedTopic)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, resp)
}

// GetRoster returns the stored roster.
// GET /v1/roster
func (h *Handler) GetRoster(c echo.Context) error {
	names, err := h.service.GetRoster(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"names": names,
		"count": len(names),
	})
}
