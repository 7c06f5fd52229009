package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// GetEngine handles GET /api/v1/engine.
// Returns the full control-plane state.
func (c *Controller) GetEngine(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, c.Service.State())
}
