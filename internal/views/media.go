package views

import (
	"errors"
	"net/http"

	"github.com/anonto42/concordance/backend/internal/media"
	"github.com/labstack/echo/v4"
)

// ServeMedia streams an uploaded image
func (h *Handler) ServeMedia(c echo.Context) error {
	name := c.Param("name")
	if !media.ValidName(name) {
		return echo.NewHTTPError(http.StatusNotFound, "File not found")
	}
	rc, contentType, err := h.Media.Open(c.Request().Context(), name)
	if err != nil {
		if errors.Is(err, media.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "File not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
	}
	defer rc.Close()

	c.Response().Header().Set("Cache-Control", "public, max-age=86400")
	return c.Stream(http.StatusOK, contentType, rc)
}
