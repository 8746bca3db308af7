package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ListExports lists exported PDFs and zip bundles.
// GET /v1/exports
func (h *Handler) ListExports(c echo.Context) error {
	names, err := h.service.ListExports()
	if err != nil {
		return err
	}
	bundles, err := h.service.ListBundles()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"exports": names, "bundles": bundles})
}

// DownloadExport serves an exported PDF or bundle.
// GET /v1/exports/:name
func (h *Handler) DownloadExport(c echo.Context) error {
	name := c.Param("name")
	path, err := h.service.OpenExport(name)
	if err != nil {
		return err
	}
	return c.Attachment(path, name)
}

// BundleExports zips all exported PDFs.
// POST /v1/exports/bundle
func (h *Handler) BundleExports(c echo.Context) error {
	result, err := h.service.BundleExports()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, result)
}

// ArchiveExports moves all exported PDFs to the archive directory.
// POST /v1/exports/archive
func (h *Handler) ArchiveExports(c echo.Context) error {
	result, err := h.service.ArchiveExports()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}
