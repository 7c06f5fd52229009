package serve

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/tphakala/audiofx/internal/api"
	"github.com/tphakala/audiofx/internal/app"
	"github.com/tphakala/audiofx/internal/buildinfo"
	"github.com/tphakala/audiofx/internal/conf"
	"github.com/tphakala/audiofx/internal/host"
	"github.com/tphakala/audiofx/internal/logger"
	"github.com/tphakala/audiofx/internal/remote"
)

// Command creates the serve command that exposes the control surfaces.
func Command(settings *conf.Settings, build *buildinfo.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and MQTT control surfaces",
		Long:  "Serve the control API, optionally with the MQTT remote and a live duplex stream sharing one engine.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return Run(cmd.Context(), settings, build)
		},
	}

	if err := setupFlags(cmd, settings); err != nil {
		cmd.RunE = func(*cobra.Command, []string) error { return err }
	}
	return cmd
}

// setupFlags configures flags specific to the serve command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().StringVar(&settings.Server.Listen, "listen", viper.GetString("server.listen"), "Listen address of the control API")
	cmd.Flags().BoolVar(&settings.MQTT.Enabled, "mqtt", viper.GetBool("mqtt.enabled"), "Enable the MQTT remote")
	cmd.Flags().StringVar(&settings.MQTT.Broker, "broker", viper.GetString("mqtt.broker"), "MQTT broker URL")
	cmd.Flags().StringVar(&settings.MQTT.TopicPrefix, "topic-prefix", viper.GetString("mqtt.topicprefix"), "MQTT topic prefix")
	cmd.Flags().BoolVar(&settings.Live.Enabled, "live", viper.GetBool("live.enabled"), "Also run the live duplex stream")
	cmd.Flags().StringVar(&settings.Live.Device, "device", viper.GetString("live.device"), "Audio device for the live stream")

	// Bind flags to the viper settings
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	return nil
}

// Run serves every enabled surface until ctx is cancelled or one fails.
func Run(ctx context.Context, settings *conf.Settings, build *buildinfo.Context) error {
	if !settings.Server.Enabled && !settings.MQTT.Enabled && !settings.Live.Enabled {
		return fmt.Errorf("nothing to serve: enable the server, MQTT or live stream")
	}

	a, err := app.New(settings)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	if settings.Server.Enabled {
		server, err := api.New(settings, a.Control,
			api.WithLogger(logger.Global().Module("api")),
			api.WithMetrics(a.Metrics),
			api.WithVersion(build.GetVersion()))
		if err != nil {
			return err
		}
		g.Go(func() error { return server.Run(gctx) })
	}

	if settings.MQTT.Enabled {
		rc := remote.New(remote.ConfigFromSettings(&settings.MQTT), a.Control,
			remote.WithLogger(logger.Global().Module("remote")),
			remote.WithMetrics(a.Metrics.MQTT))
		g.Go(func() error { return rc.Run(gctx) })
	}

	if settings.Live.Enabled {
		duplex := host.New(host.ConfigFromSettings(&settings.Live), a.Engine,
			host.WithLogger(logger.Global().Module("host")),
			host.WithRecorder(a.Metrics.Engine))
		g.Go(func() error { return duplex.Run(gctx) })
	}

	a.Log.Info("Serving",
		logger.Bool("api", settings.Server.Enabled),
		logger.Bool("mqtt", settings.MQTT.Enabled),
		logger.Bool("live", settings.Live.Enabled))
	return g.Wait()
}
