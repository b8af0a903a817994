// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"hearsim/internal/analysis"
	"hearsim/internal/audio"
	"hearsim/internal/dsp"
	applog "hearsim/internal/log"
	"hearsim/internal/pipeline"
	"hearsim/internal/presets"
	"hearsim/internal/tui"
)

type processOptions struct {
	preset presetFlags
	output string
	play   bool
	report bool
}

func (a *app) processCommand() *cobra.Command {
	opts := &processOptions{}
	cmd := &cobra.Command{
		Use:   "process [input.wav]",
		Short: "Write a WAV file as heard with age-related hearing loss",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, _, err := opts.preset.resolve(cmd)
			if err != nil {
				return err
			}
			return a.process(cmd, args, p, opts)
		},
	}
	opts.preset.register(cmd, presets.All()[0].Key)
	a.processFlags(cmd, opts)
	return cmd
}

func (a *app) pickCommand() *cobra.Command {
	opts := &processOptions{}
	cmd := &cobra.Command{
		Use:   "pick [input.wav]",
		Short: "Choose a preset interactively, then process",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := tui.Pick()
			if err != nil {
				return err
			}
			return a.process(cmd, args, p, opts)
		},
	}
	a.processFlags(cmd, opts)
	return cmd
}

func (a *app) processFlags(cmd *cobra.Command, opts *processOptions) {
	cmd.Flags().StringVarP(&opts.output, "output", "o", "",
		"Output WAV file (default from config, simulated_hearing.wav)")
	cmd.Flags().BoolVar(&opts.play, "play", false, "Play the result on the configured output device")
	cmd.Flags().BoolVar(&opts.report, "report", false, "Print per-band energy before and after")
}

func (a *app) process(cmd *cobra.Command, args []string, p presets.Preset, opts *processOptions) error {
	input, err := a.inputPath(args)
	if err != nil {
		return err
	}
	buf, rate, err := audio.ReadFile(input)
	if err != nil {
		return err
	}

	res, err := a.newPipeline(nil).Run(buf, rate, p.Cutoff)
	if err != nil {
		return err
	}
	if err := dsp.CheckFinite(res.Samples); err != nil {
		return fmt.Errorf("processing %s: %w", input, err)
	}
	if res.Clamped {
		applog.Warnf("Cutoff %.0f Hz is at or above Nyquist (%d Hz); the filter was clamped", p.Cutoff, rate/2)
	}

	output := opts.output
	if output == "" {
		output = a.cfg.Assets.OutputFile
	}
	if err := audio.WriteFile(output, res.Samples, res.SampleRate); err != nil {
		return err
	}
	fmt.Fprintf(out(cmd), "%s -> %s (%s, cutoff %.0f Hz)\n", input, output, p.Label, p.Cutoff)

	if opts.report {
		if err := writeReport(cmd, buf, res, p); err != nil {
			return err
		}
	}
	if opts.play {
		return a.play(res)
	}
	return nil
}

func writeReport(cmd *cobra.Command, orig []float64, res *pipeline.Result, p presets.Preset) error {
	before, err := analysis.BandEnergies(orig, res.SampleRate, analysis.DefaultBands)
	if err != nil {
		return err
	}
	after, err := analysis.BandEnergies(res.Samples, res.SampleRate, analysis.DefaultBands)
	if err != nil {
		return err
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("band", "range (Hz)", "change (dB)")
	for i, b := range analysis.DefaultBands {
		t.Row(b.Name, bandRange(b), formatDB(before[i], after[i]))
	}

	above, err := analysis.AttenuationDB(orig, res.Samples, res.SampleRate, p.Cutoff)
	if err != nil {
		return err
	}
	fmt.Fprintln(out(cmd), t.Render())
	fmt.Fprintf(out(cmd), "energy above %.0f Hz: %+.1f dB\n", p.Cutoff, above)
	return nil
}

func bandRange(b analysis.FrequencyBand) string {
	if math.IsInf(b.HighHz, 1) {
		return fmt.Sprintf("> %.0f", b.LowHz)
	}
	return fmt.Sprintf("%.0f-%.0f", b.LowHz, b.HighHz)
}

func formatDB(before, after float64) string {
	if before == 0 {
		return "-"
	}
	if after == 0 {
		return "silent"
	}
	return fmt.Sprintf("%+.1f", 10*math.Log10(after/before))
}

func (a *app) play(res *pipeline.Result) error {
	if err := audio.Initialize(); err != nil {
		return err
	}
	defer audio.Terminate()

	player, err := audio.NewPlayer(a.cfg.Playback)
	if err != nil {
		return err
	}
	defer player.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := player.Play(res.Samples, res.SampleRate); err != nil {
		return err
	}
	if err := player.Wait(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
