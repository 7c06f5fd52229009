// Package app assembles the effects engine, its control service and its
// metrics from settings. Every command starts from an App.
package app

import (
	"fmt"

	"github.com/tphakala/audiofx/internal/conf"
	"github.com/tphakala/audiofx/internal/control"
	"github.com/tphakala/audiofx/internal/engine"
	"github.com/tphakala/audiofx/internal/logger"
	"github.com/tphakala/audiofx/internal/observability"
)

// App is a configured engine with its control surface.
type App struct {
	Settings *conf.Settings
	Engine   *engine.Engine
	Control  *control.Service
	Metrics  *observability.Metrics
	Log      logger.Logger
}

// New builds an App. The engine is configured for the settings sample
// rate and starts with the configured equalizer and reverb.
func New(settings *conf.Settings) (*App, error) {
	log := logger.Global().Module("app")

	eng := engine.New(
		engine.WithLogger(logger.Global().Module("engine")),
		engine.WithCeilings(engine.Ceilings{
			Int16: settings.Limiter.Int16Ceiling,
			Float: settings.Limiter.FloatCeiling,
		}),
	)
	if err := eng.Configure(float64(settings.Engine.SampleRate)); err != nil {
		return nil, fmt.Errorf("configure engine: %w", err)
	}

	m, err := observability.NewMetrics(eng)
	if err != nil {
		return nil, err
	}

	presets, err := conf.LoadPresets(settings.Presets.File)
	if err != nil {
		return nil, fmt.Errorf("load presets: %w", err)
	}

	svc := control.New(eng,
		control.WithLogger(logger.Global().Module("control")),
		control.WithRecorder(m.Engine),
		control.WithPresets(presets))
	if err := svc.ApplySettings(settings); err != nil {
		return nil, fmt.Errorf("apply startup settings: %w", err)
	}

	log.Debug("effects engine ready",
		logger.String("session_id", eng.SessionID()),
		logger.Int("presets", len(presets)))

	return &App{
		Settings: settings,
		Engine:   eng,
		Control:  svc,
		Metrics:  m,
		Log:      log,
	}, nil
}
