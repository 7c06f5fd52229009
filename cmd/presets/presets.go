package presets

import (
	"fmt"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/audiofx/internal/conf"
)

// Command creates the presets command group.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "presets",
		Short: "List, show and manage effect presets",
	}
	cmd.AddCommand(listCommand(settings), showCommand(settings), saveCommand(settings), deleteCommand(settings))
	return cmd
}

func listCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the available presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			presets, err := conf.LoadPresets(settings.Presets.File)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "NAME\tSOURCE\tREVERB\tDESCRIPTION")
			for _, name := range conf.PresetNames(presets) {
				p, _ := conf.FindPreset(presets, name)
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.Name, source(p), onOff(p.Reverb.Enabled), p.Description)
			}
			return w.Flush()
		},
	}
}

func showCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Print a preset as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			presets, err := conf.LoadPresets(settings.Presets.File)
			if err != nil {
				return err
			}
			p, ok := conf.FindPreset(presets, args[0])
			if !ok {
				return fmt.Errorf("preset %q not found", args[0])
			}
			out, err := yaml.Marshal(&p)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

func saveCommand(settings *conf.Settings) *cobra.Command {
	var p conf.Preset
	cmd := &cobra.Command{
		Use:   "save <name>",
		Short: "Add or replace a preset in the presets file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p.Name = args[0]
			if len(p.Gains) == 0 {
				p.Gains = make([]float64, conf.NumBands)
			}
			if err := p.Validate(); err != nil {
				return err
			}
			return update(cmd, settings, func(presets []conf.Preset) ([]conf.Preset, error) {
				i := slices.IndexFunc(presets, func(e conf.Preset) bool { return strings.EqualFold(e.Name, p.Name) })
				if i < 0 {
					return append(presets, p), nil
				}
				presets[i] = p
				return presets, nil
			})
		},
	}

	cmd.Flags().StringVar(&p.Description, "description", "", "Preset description")
	cmd.Flags().Float64SliceVar(&p.Gains, "gains", nil, "Band gains in dB, one per band")
	cmd.Flags().BoolVar(&p.Reverb.Enabled, "reverb", false, "Enable the reverb in this preset")
	cmd.Flags().Float64Var(&p.Reverb.Mix, "reverb-mix", 0, "Reverb wet/dry mix, 0-100")
	cmd.Flags().Float64Var(&p.Reverb.RoomSize, "room-size", 0.5, "Reverb room size, 0-1")
	cmd.Flags().Float64Var(&p.Reverb.DecayTime, "decay-time", 2.5, "Reverb decay time in seconds, 0.1-10")
	return cmd
}

func deleteCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Remove a preset from the presets file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return update(cmd, settings, func(presets []conf.Preset) ([]conf.Preset, error) {
				p, ok := conf.FindPreset(presets, args[0])
				if !ok {
					return nil, fmt.Errorf("preset %q not found", args[0])
				}
				if p.Builtin {
					return nil, fmt.Errorf("preset %q is built in and cannot be deleted", p.Name)
				}
				return slices.DeleteFunc(presets, func(e conf.Preset) bool { return strings.EqualFold(e.Name, p.Name) }), nil
			})
		},
	}
}

// update loads the presets, applies fn and writes the user presets back.
func update(cmd *cobra.Command, settings *conf.Settings, fn func([]conf.Preset) ([]conf.Preset, error)) error {
	path := settings.Presets.File
	if path == "" {
		return fmt.Errorf("no presets file configured, set presets.file or --presets-file")
	}
	presets, err := conf.LoadPresets(path)
	if err != nil {
		return err
	}
	presets, err = fn(presets)
	if err != nil {
		return err
	}
	if err := conf.SavePresets(path, presets); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", path)
	return nil
}

func source(p conf.Preset) string {
	if p.Builtin {
		return "builtin"
	}
	return "file"
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
