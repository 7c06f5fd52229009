package live

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/tphakala/audiofx/internal/app"
	"github.com/tphakala/audiofx/internal/conf"
	"github.com/tphakala/audiofx/internal/host"
	"github.com/tphakala/audiofx/internal/logger"
	"github.com/tphakala/audiofx/internal/observability"
)

// Command creates the live command that runs the effects on a sound card.
func Command(settings *conf.Settings) *cobra.Command {
	var listDevices bool
	cmd := &cobra.Command{
		Use:   "live",
		Short: "Process a live duplex audio stream",
		Long:  "Capture from an audio device, run the effects chain and play the result back in real time.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if listDevices {
				return printDevices(cmd)
			}
			return Run(cmd.Context(), settings)
		},
	}

	cmd.Flags().BoolVar(&listDevices, "list-devices", false, "List capture devices and exit")
	if err := setupFlags(cmd, settings); err != nil {
		cmd.RunE = func(*cobra.Command, []string) error { return err }
	}
	return cmd
}

// setupFlags configures flags specific to the live command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().StringVar(&settings.Live.Device, "device", viper.GetString("live.device"), "Audio device name, ID or substring (\"default\" for the system default)")
	cmd.Flags().IntVar(&settings.Live.SampleRate, "sample-rate", viper.GetInt("live.samplerate"), "Requested device sample rate")
	cmd.Flags().IntVar(&settings.Live.Channels, "channels", viper.GetInt("live.channels"), "Channel count")
	cmd.Flags().IntVar(&settings.Live.PeriodFrames, "period-frames", viper.GetInt("live.periodframes"), "Frames per device period")
	cmd.Flags().BoolVar(&settings.Live.Float, "float", viper.GetBool("live.float"), "Use 32-bit float samples instead of 16-bit")
	cmd.Flags().BoolVar(&settings.Metrics.Enabled, "metrics", viper.GetBool("metrics.enabled"), "Serve Prometheus metrics")
	cmd.Flags().StringVar(&settings.Metrics.Listen, "metrics-listen", viper.GetString("metrics.listen"), "Listen address of the metrics endpoint")

	// Bind flags to the viper settings
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	return nil
}

// Run streams the configured device through the effects until ctx is
// cancelled. The metrics endpoint runs alongside when enabled.
func Run(ctx context.Context, settings *conf.Settings) error {
	a, err := app.New(settings)
	if err != nil {
		return err
	}

	duplex := host.New(host.ConfigFromSettings(&settings.Live), a.Engine,
		host.WithLogger(logger.Global().Module("host")),
		host.WithRecorder(a.Metrics.Engine))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return duplex.Run(gctx) })

	if settings.Metrics.Enabled {
		endpoint, err := observability.NewEndpoint(settings, a.Metrics)
		if err != nil {
			return err
		}
		g.Go(func() error { return endpoint.Run(gctx) })
	}

	return g.Wait()
}

func printDevices(cmd *cobra.Command) error {
	devices, err := host.ListDevices()
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No capture devices found")
		return nil
	}
	for _, d := range devices {
		marker := " "
		if d.Default {
			marker = "*"
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %2d  %s  (%s)\n", marker, d.Index, d.Name, d.ID)
	}
	return nil
}
