// SPDX-License-Identifier: MIT
//
// Package cmd is the hearsim command line.
package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"hearsim/internal/config"
	applog "hearsim/internal/log"
	"hearsim/internal/observe"
	"hearsim/internal/pipeline"
	"hearsim/internal/presets"
	"hearsim/pkg/build"
)

// ErrNoInput is returned when no input file is given and no default sample
// exists.
var ErrNoInput = errors.New("no input file given and no default sample found")

// app carries state shared by every subcommand.
type app struct {
	configPath string
	verbose    bool

	cfg *config.Config
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}
	info := build.GetBuildInfo()

	rootCmd := &cobra.Command{
		Use:           info.Name,
		Short:         info.Description,
		Version:       info.String(),
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "",
		"Path to a YAML config file (default: hearsim.yaml or config.yaml if present)")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false,
		"Show verbose output")

	rootCmd.AddCommand(
		a.processCommand(),
		a.spectrogramCommand(),
		a.presetsCommand(),
		a.listCommand(),
		a.pickCommand(),
		a.serveCommand(),
	)
	return rootCmd
}

// Execute runs the command line against os.Args.
func Execute() error {
	rootCmd := NewRootCommand()
	rootCmd.SetArgs(os.Args[1:])
	return rootCmd.Execute()
}

func (a *app) load() error {
	cfg, err := config.LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level, _ := applog.ParseLevel(cfg.LogLevel)
	if a.verbose {
		level = applog.LevelDebug
	}
	applog.SetLevel(level)
	return nil
}

func (a *app) newPipeline(m *observe.Metrics) *pipeline.Pipeline {
	opts := []pipeline.Option{pipeline.WithMaxEntries(a.cfg.Pipeline.CacheMaxEntries)}
	if m != nil {
		opts = append(opts, pipeline.WithMetrics(m))
	}
	return pipeline.New(opts...)
}

// inputPath returns args[0] or the first default sample that exists.
func (a *app) inputPath(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	path, ok := presets.DefaultAsset(a.cfg.Assets.DefaultSamplePaths)
	if !ok {
		return "", ErrNoInput
	}
	applog.Infof("Using default sample %s", path)
	return path, nil
}

// presetFlags are the --preset/--cutoff pair shared by process and
// spectrogram.
type presetFlags struct {
	name   string
	cutoff float64
}

func (p *presetFlags) register(cmd *cobra.Command, defaultPreset string) {
	cmd.Flags().StringVarP(&p.name, "preset", "p", defaultPreset,
		fmt.Sprintf("Age preset (key or label): %s", presetKeys()))
	cmd.Flags().Float64Var(&p.cutoff, "cutoff", presets.DefaultCustomCutoff,
		fmt.Sprintf("Custom cutoff in Hz [%.0f, %.0f]; overrides --preset", presets.MinCustomCutoff, presets.MaxCustomCutoff))
	cmd.MarkFlagsMutuallyExclusive("preset", "cutoff")
}

// resolve returns the chosen preset. ok is false when neither flag was given
// and there is no default.
func (p *presetFlags) resolve(cmd *cobra.Command) (presets.Preset, bool, error) {
	if cmd.Flags().Changed("cutoff") {
		pr, err := presets.Custom(p.cutoff)
		return pr, err == nil, err
	}
	if p.name == "" {
		return presets.Preset{}, false, nil
	}
	pr, err := presets.Resolve(p.name)
	return pr, err == nil, err
}

func presetKeys() string {
	all := presets.All()
	ks := make([]string, len(all))
	for i, p := range all {
		ks[i] = p.Key
	}
	return strings.Join(ks, ", ")
}

func out(cmd *cobra.Command) io.Writer { return cmd.OutOrStdout() }
