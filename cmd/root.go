package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/audiofx/cmd/live"
	"github.com/tphakala/audiofx/cmd/presets"
	"github.com/tphakala/audiofx/cmd/render"
	"github.com/tphakala/audiofx/cmd/serve"
	"github.com/tphakala/audiofx/internal/buildinfo"
	"github.com/tphakala/audiofx/internal/conf"
	"github.com/tphakala/audiofx/internal/cpuspec"
	"github.com/tphakala/audiofx/internal/errors"
	"github.com/tphakala/audiofx/internal/logger"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings, build *buildinfo.Context) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "audiofx",
		Short:         "Real-time equalizer and reverb engine",
		Version:       build.GetVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Set up the global flags for the root command.
	if err := setupFlags(rootCmd, settings); err != nil {
		rootCmd.RunE = func(*cobra.Command, []string) error { return err }
		return rootCmd
	}

	rootCmd.AddCommand(
		render.Command(settings),
		live.Command(settings),
		serve.Command(settings, build),
		presets.Command(settings),
		versionCommand(build),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		return initialize(settings, build)
	}

	return rootCmd
}

// initialize sets up logging and telemetry before any subcommand runs.
func initialize(settings *conf.Settings, build *buildinfo.Context) error {
	if settings.Debug {
		settings.Logging.DefaultLevel = "debug"
		if settings.Logging.Console != nil {
			settings.Logging.Console.Level = "debug"
		}
	}

	central, err := logger.NewCentralLogger(&settings.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger.SetGlobal(central)
	log := central.Module("main")

	if settings.Sentry.Enabled {
		if err := errors.InitSentry(settings.Sentry.DSN, build.Release()); err != nil {
			log.Warn("Sentry initialization failed, continuing without telemetry", logger.Error(err))
		}
	}

	spec := cpuspec.GetCPUSpec()
	log.Info("Starting audiofx",
		logger.String("version", build.GetVersion()),
		logger.String("commit", build.GetCommit()),
		logger.String("cpu", spec.BrandName),
		logger.String("simd", spec.SIMDLevel()))
	return nil
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) error {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	rootCmd.PersistentFlags().StringVar(&settings.Logging.DefaultLevel, "log-level", viper.GetString("logging.default_level"), "Default log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&settings.Presets.File, "presets-file", viper.GetString("presets.file"), "Path to the user presets file")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	return nil
}

func versionCommand(build *buildinfo.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), build.String())
		},
	}
}
