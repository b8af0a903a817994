// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"hearsim/internal/analysis"
	"hearsim/internal/audio"
	"hearsim/internal/display"
	"hearsim/internal/transport/udp"
)

type spectrogramOptions struct {
	preset presetFlags
	show   bool
	width  int
	height int
	udp    bool
	output string
}

func (a *app) spectrogramCommand() *cobra.Command {
	opts := &spectrogramOptions{}
	cmd := &cobra.Command{
		Use:   "spectrogram [input.wav]",
		Short: "Analyze a WAV file (optionally after simulation) as a dB spectrogram",
		Long: `Computes the STFT spectrogram in dB relative to its loudest bin, clamped to
the configured display range and frequency ceiling. By default the frame is
written as JSON; --show draws it in the terminal and --udp streams it one
time column per packet to the configured UDP target.

With --preset or --cutoff the simulated audio is analyzed instead of the input.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.spectrogram(cmd, args, opts)
		},
	}
	opts.preset.register(cmd, "")
	cmd.Flags().BoolVar(&opts.show, "show", false, "Draw the spectrogram in the terminal")
	cmd.Flags().IntVar(&opts.width, "width", 100, "Heatmap width in columns (--show)")
	cmd.Flags().IntVar(&opts.height, "height", 24, "Heatmap height in rows (--show)")
	cmd.Flags().BoolVar(&opts.udp, "udp", false, "Stream frames to the configured UDP target")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Write JSON to this file instead of stdout")
	return cmd
}

func (a *app) spectrogram(cmd *cobra.Command, args []string, opts *spectrogramOptions) error {
	p, simulate, err := opts.preset.resolve(cmd)
	if err != nil {
		return err
	}
	input, err := a.inputPath(args)
	if err != nil {
		return err
	}
	buf, rate, err := audio.ReadFile(input)
	if err != nil {
		return err
	}

	if simulate {
		res, err := a.newPipeline(nil).Run(buf, rate, p.Cutoff)
		if err != nil {
			return err
		}
		buf = res.Samples
	}

	spec, err := analysis.Analyze(buf, rate)
	if err != nil {
		return err
	}
	d := a.cfg.Display
	frame := display.Prepare(spec, display.Range{MinDB: d.MinDB, MaxDB: d.MaxDB}, d.MaxFrequency)

	switch {
	case opts.show:
		fmt.Fprintln(out(cmd), display.RenderASCII(frame, opts.width, opts.height))
	case opts.output != "":
		if err := writeJSONFile(opts.output, frame); err != nil {
			return err
		}
	case !opts.udp:
		enc := json.NewEncoder(out(cmd))
		if err := enc.Encode(frame); err != nil {
			return err
		}
	}

	if opts.udp {
		return a.stream(frame)
	}
	return nil
}

func writeJSONFile(path string, v any) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return json.NewEncoder(f).Encode(v)
}

// stream sends frame over UDP and waits until every column is out or the
// user interrupts.
func (a *app) stream(frame *display.Frame) error {
	t := a.cfg.Transport
	sender, err := udp.NewSender(t.UDPTargetAddress)
	if err != nil {
		return err
	}
	defer sender.Close()

	pub, err := udp.NewPublisher(t.UDPSendInterval, sender)
	if err != nil {
		return err
	}
	if err := pub.Send(frame); err != nil {
		return err
	}
	pub.Start()
	defer pub.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := pub.Flush(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
