package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/audiofx/internal/equalizer"
)

// BandGainRequest is the body of PUT /equalizer/bands/:index.
type BandGainRequest struct {
	GainDB *float64 `json:"gain_db"`
}

// BandGainsRequest is the body of PUT /equalizer/bands.
type BandGainsRequest struct {
	Gains []float64 `json:"gains"`
}

// GetEqualizer handles GET /api/v1/equalizer.
func (c *Controller) GetEqualizer(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, c.Service.State().Equalizer)
}

// SetBandGain handles PUT /api/v1/equalizer/bands/:index.
func (c *Controller) SetBandGain(ctx echo.Context) error {
	index, err := strconv.Atoi(ctx.Param("index"))
	if err != nil {
		return c.HandleError(ctx, err, "Band index must be an integer", http.StatusBadRequest)
	}

	var req BandGainRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}
	if req.GainDB == nil {
		return c.HandleError(ctx, nil, "gain_db is required", http.StatusBadRequest)
	}

	state, err := c.Service.SetBandGain(index, *req.GainDB)
	if err != nil {
		return c.handleServiceError(ctx, err, "Failed to set band gain")
	}
	return ctx.JSON(http.StatusOK, state.Equalizer)
}

// SetBandGains handles PUT /api/v1/equalizer/bands.
func (c *Controller) SetBandGains(ctx echo.Context) error {
	var req BandGainsRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}
	if len(req.Gains) != equalizer.NumBands {
		return c.HandleError(ctx, nil,
			fmt.Sprintf("gains must hold exactly %d values", equalizer.NumBands), http.StatusBadRequest)
	}

	var gains [equalizer.NumBands]float64
	copy(gains[:], req.Gains)
	state, err := c.Service.SetBandGains(gains)
	if err != nil {
		return c.handleServiceError(ctx, err, "Failed to set band gains")
	}
	return ctx.JSON(http.StatusOK, state.Equalizer)
}

// EnableEqualizer handles POST /api/v1/equalizer/enable.
func (c *Controller) EnableEqualizer(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, c.Service.SetEqualizerEnabled(true).Equalizer)
}

// DisableEqualizer handles POST /api/v1/equalizer/disable.
func (c *Controller) DisableEqualizer(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, c.Service.SetEqualizerEnabled(false).Equalizer)
}

// ResetEqualizer handles POST /api/v1/equalizer/reset.
func (c *Controller) ResetEqualizer(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, c.Service.ResetEqualizer().Equalizer)
}
