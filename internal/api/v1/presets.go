package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/audiofx/internal/engine"
	"github.com/tphakala/audiofx/internal/logger"
)

// PresetApplied is the response of POST /presets/:name/apply.
type PresetApplied struct {
	Preset string       `json:"preset"`
	State  engine.State `json:"state"`
}

// GetPresets handles GET /api/v1/presets.
func (c *Controller) GetPresets(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, c.Service.Presets())
}

// ApplyPreset handles POST /api/v1/presets/:name/apply.
func (c *Controller) ApplyPreset(ctx echo.Context) error {
	name := ctx.Param("name")
	state, err := c.Service.ApplyPreset(name)
	if err != nil {
		return c.handleServiceError(ctx, err, "Failed to apply preset")
	}
	c.log.Debug("preset applied via API", logger.String("preset", name), logger.String("ip", ctx.RealIP()))
	return ctx.JSON(http.StatusOK, PresetApplied{Preset: name, State: state})
}
