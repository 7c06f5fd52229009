package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ReverbRequest is the body of PUT /reverb. Omitted fields keep their
// current value.
type ReverbRequest struct {
	Mix       *float64 `json:"mix"`
	RoomSize  *float64 `json:"room_size"`
	DecayTime *float64 `json:"decay_time"`
	Enabled   *bool    `json:"enabled,omitempty"`
}

// GetReverb handles GET /api/v1/reverb.
func (c *Controller) GetReverb(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, c.Service.State().Reverb)
}

// SetReverb handles PUT /api/v1/reverb.
func (c *Controller) SetReverb(ctx echo.Context) error {
	var req ReverbRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}

	p := c.Service.State().Reverb.Parameters
	if req.Mix != nil {
		p.Mix = *req.Mix
	}
	if req.RoomSize != nil {
		p.RoomSize = *req.RoomSize
	}
	if req.DecayTime != nil {
		p.DecayTime = *req.DecayTime
	}

	state, err := c.Service.SetReverbParameters(p.Mix, p.RoomSize, p.DecayTime)
	if err != nil {
		return c.handleServiceError(ctx, err, "Failed to set reverb parameters")
	}
	if req.Enabled != nil {
		state = c.Service.SetReverbEnabled(*req.Enabled)
	}
	return ctx.JSON(http.StatusOK, state.Reverb)
}

// EnableReverb handles POST /api/v1/reverb/enable.
func (c *Controller) EnableReverb(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, c.Service.SetReverbEnabled(true).Reverb)
}

// DisableReverb handles POST /api/v1/reverb/disable.
func (c *Controller) DisableReverb(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, c.Service.SetReverbEnabled(false).Reverb)
}

// ResetReverb handles POST /api/v1/reverb/reset.
func (c *Controller) ResetReverb(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, c.Service.ResetReverb().Reverb)
}
