package render

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/audiofx/internal/app"
	"github.com/tphakala/audiofx/internal/audiofile"
	"github.com/tphakala/audiofx/internal/conf"
	"github.com/tphakala/audiofx/internal/logger"
	renderpkg "github.com/tphakala/audiofx/internal/render"
)

// options holds render flags that have no settings counterpart.
type options struct {
	preset      string
	bands       []string
	gains       []float64
	reverb      bool
	noReverb    bool
	reverbMix   float64
	roomSize    float64
	decayTime   float64
	noEQ        bool
	inputGain   float64
	tail        time.Duration
	metricsFile string
}

// Command creates the render command for offline file processing.
func Command(settings *conf.Settings) *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "render <input> <output.wav>",
		Short: "Process an audio file through the effects chain",
		Long:  "Read a WAV or FLAC file, run it through the equalizer and reverb, and write the result as WAV.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, settings, opts, args[0], args[1])
		},
	}

	if err := setupFlags(cmd, settings, opts); err != nil {
		cmd.RunE = func(*cobra.Command, []string) error { return err }
	}
	return cmd
}

// setupFlags configures flags specific to the render command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings, opts *options) error {
	cmd.Flags().StringVarP(&opts.preset, "preset", "p", "", "Apply a named preset before other overrides")
	cmd.Flags().StringArrayVar(&opts.bands, "band", nil, "Set one band gain as index=dB, repeatable")
	cmd.Flags().Float64SliceVar(&opts.gains, "gains", nil, "Set all six band gains in dB")
	cmd.Flags().BoolVar(&opts.noEQ, "no-eq", false, "Disable the equalizer")
	cmd.Flags().BoolVar(&opts.reverb, "reverb", false, "Enable the reverb")
	cmd.Flags().BoolVar(&opts.noReverb, "no-reverb", false, "Disable the reverb")
	cmd.Flags().Float64Var(&opts.reverbMix, "reverb-mix", viper.GetFloat64("reverb.mix"), "Reverb wet/dry mix, 0-100")
	cmd.Flags().Float64Var(&opts.roomSize, "room-size", viper.GetFloat64("reverb.roomsize"), "Reverb room size, 0-1")
	cmd.Flags().Float64Var(&opts.decayTime, "decay-time", viper.GetFloat64("reverb.decaytime"), "Reverb decay time in seconds, 0.1-10")
	cmd.Flags().Float64Var(&opts.inputGain, "input-gain", 0, "Input trim in dB applied before the effects")
	cmd.Flags().DurationVar(&opts.tail, "tail", 0, "Render this much silence after the input so the reverb can ring out")
	cmd.Flags().StringVar(&opts.metricsFile, "metrics-file", "", "Write Prometheus metrics in text format to this file")
	cmd.Flags().IntVar(&settings.Render.BlockFrames, "block-frames", viper.GetInt("render.blockframes"), "Frames per processing block")
	cmd.Flags().IntVar(&settings.Render.BitDepth, "bit-depth", viper.GetInt("render.bitdepth"), "Output bit depth: 16, 24 or 32 (float)")

	cmd.MarkFlagsMutuallyExclusive("reverb", "no-reverb")

	// Bind flags to the viper settings
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	return nil
}

func run(cmd *cobra.Command, settings *conf.Settings, opts *options, input, output string) error {
	a, err := app.New(settings)
	if err != nil {
		return err
	}
	if err := applyOverrides(cmd, a, opts); err != nil {
		return err
	}

	src, err := audiofile.Open(input)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	info := src.Info()
	dst, err := audiofile.Create(output, info.SampleRate, info.Channels, settings.Render.BitDepth)
	if err != nil {
		return err
	}

	r, err := renderpkg.New(a.Engine,
		renderpkg.WithBlockFrames(settings.Render.BlockFrames),
		renderpkg.WithTail(opts.tail),
		renderpkg.WithInputGainDB(opts.inputGain),
		renderpkg.WithRecorder(a.Metrics.Engine),
		renderpkg.WithLogger(a.Log.Module("render")))
	if err != nil {
		_ = dst.Close()
		return err
	}

	a.Log.Info("Rendering",
		logger.String("input", input),
		logger.String("output", output),
		logger.String("container", info.Container),
		logger.Int("sample_rate", info.SampleRate),
		logger.Int("channels", info.Channels),
		logger.Duration("duration", info.Duration()))

	sum, err := r.Render(cmd.Context(), src, dst)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Rendered %s in %s (%.1fx real time)\n",
		sum.AudioLength.Round(time.Millisecond), sum.Elapsed.Round(time.Millisecond), sum.Speed())

	if opts.metricsFile != "" {
		if err := prometheus.WriteToTextfile(opts.metricsFile, a.Metrics.Registry()); err != nil {
			return fmt.Errorf("write metrics file: %w", err)
		}
	}
	return nil
}

// applyOverrides applies the preset, then explicit gains, then per-band
// gains, then the enable switches.
func applyOverrides(cmd *cobra.Command, a *app.App, opts *options) error {
	svc := a.Control
	if opts.preset != "" {
		if _, err := svc.ApplyPreset(opts.preset); err != nil {
			return err
		}
	}

	if len(opts.gains) > 0 {
		gains, err := fullGains(opts.gains)
		if err != nil {
			return err
		}
		if _, err := svc.SetBandGains(gains); err != nil {
			return err
		}
	}

	for _, arg := range opts.bands {
		index, gain, err := parseBand(arg)
		if err != nil {
			return err
		}
		if _, err := svc.SetBandGain(index, gain); err != nil {
			return err
		}
	}

	if opts.noEQ {
		svc.SetEqualizerEnabled(false)
	}

	flags := cmd.Flags()
	if flags.Changed("reverb-mix") || flags.Changed("room-size") || flags.Changed("decay-time") {
		if _, err := svc.SetReverbParameters(opts.reverbMix, opts.roomSize, opts.decayTime); err != nil {
			return err
		}
		if !opts.noReverb {
			svc.SetReverbEnabled(true)
		}
	}
	switch {
	case opts.reverb:
		svc.SetReverbEnabled(true)
	case opts.noReverb:
		svc.SetReverbEnabled(false)
	}
	return nil
}

// parseBand parses an index=dB pair.
func parseBand(arg string) (int, float64, error) {
	idx, gain, ok := strings.Cut(arg, "=")
	if !ok {
		return 0, 0, fmt.Errorf("invalid band %q: expected index=dB", arg)
	}
	index, err := strconv.Atoi(strings.TrimSpace(idx))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid band index in %q: %w", arg, err)
	}
	db, err := strconv.ParseFloat(strings.TrimSpace(gain), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid band gain in %q: %w", arg, err)
	}
	return index, db, nil
}

func fullGains(values []float64) ([conf.NumBands]float64, error) {
	var gains [conf.NumBands]float64
	if len(values) != conf.NumBands {
		return gains, fmt.Errorf("--gains needs %d values, got %d", conf.NumBands, len(values))
	}
	copy(gains[:], values)
	return gains, nil
}
