// Package api implements the /api/v1 control endpoints.
package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/tphakala/audiofx/internal/conf"
	"github.com/tphakala/audiofx/internal/engine"
	"github.com/tphakala/audiofx/internal/equalizer"
	"github.com/tphakala/audiofx/internal/errors"
	"github.com/tphakala/audiofx/internal/logger"
)

// EffectsService is what the controller needs from the control layer.
type EffectsService interface {
	State() engine.State
	SetBandGain(index int, gainDB float64) (engine.State, error)
	SetBandGains(gains [equalizer.NumBands]float64) (engine.State, error)
	SetEqualizerEnabled(enabled bool) engine.State
	ResetEqualizer() engine.State
	SetReverbParameters(mix, roomSize, decayTime float64) (engine.State, error)
	SetReverbEnabled(enabled bool) engine.State
	ResetReverb() engine.State
	Presets() []conf.Preset
	ApplyPreset(name string) (engine.State, error)
}

// Controller manages the API routes and handlers.
type Controller struct {
	Group     *echo.Group
	Service   EffectsService
	log       logger.Logger
	startTime time.Time
}

// Option is a functional option for configuring the Controller.
type Option func(*Controller)

// WithLogger sets the controller logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// New registers every route on g and returns the controller.
func New(g *echo.Group, svc EffectsService, opts ...Option) *Controller {
	c := &Controller{
		Group:     g,
		Service:   svc,
		log:       logger.Global().Module("api"),
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.initRoutes()
	return c
}

func (c *Controller) initRoutes() {
	c.Group.GET("/engine", c.GetEngine)

	eq := c.Group.Group("/equalizer")
	eq.GET("", c.GetEqualizer)
	eq.PUT("/bands", c.SetBandGains)
	eq.PUT("/bands/:index", c.SetBandGain)
	eq.POST("/enable", c.EnableEqualizer)
	eq.POST("/disable", c.DisableEqualizer)
	eq.POST("/reset", c.ResetEqualizer)

	rv := c.Group.Group("/reverb")
	rv.GET("", c.GetReverb)
	rv.PUT("", c.SetReverb)
	rv.POST("/enable", c.EnableReverb)
	rv.POST("/disable", c.DisableReverb)
	rv.POST("/reset", c.ResetReverb)

	c.Group.GET("/presets", c.GetPresets)
	c.Group.POST("/presets/:name/apply", c.ApplyPreset)
}

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"` // identifies the log line for this error
}

// NewErrorResponse creates a new API error response.
func NewErrorResponse(err error, message string, code int) *ErrorResponse {
	errorStr := message
	if err != nil {
		errorStr = err.Error()
	}
	return &ErrorResponse{
		Error:         errorStr,
		Message:       message,
		Code:          code,
		CorrelationID: uuid.NewString()[:8],
	}
}

// statusFor maps an error category onto an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.IsCategory(err, errors.CategoryValidation):
		return http.StatusBadRequest
	case errors.IsCategory(err, errors.CategoryNotFound):
		return http.StatusNotFound
	case errors.IsCategory(err, errors.CategoryConflict):
		return http.StatusConflict
	case errors.IsCategory(err, errors.CategoryUnsupported):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// HandleError logs err and writes an ErrorResponse with code.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	resp := NewErrorResponse(err, message, code)
	fields := []logger.Field{
		logger.String("correlation_id", resp.CorrelationID),
		logger.String("message", message),
		logger.Int("code", code),
		logger.String("path", ctx.Request().URL.Path),
		logger.String("method", ctx.Request().Method),
		logger.String("ip", ctx.RealIP()),
	}
	if err != nil {
		fields = append(fields, logger.Error(err))
	}
	if code >= http.StatusInternalServerError {
		c.log.Error("API error", fields...)
	} else {
		c.log.Warn("API request rejected", fields...)
	}
	return ctx.JSON(code, resp)
}

// handleServiceError picks the status from the error category.
func (c *Controller) handleServiceError(ctx echo.Context, err error, message string) error {
	return c.HandleError(ctx, err, message, statusFor(err))
}
