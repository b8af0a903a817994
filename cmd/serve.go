// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"hearsim/internal/audio"
	applog "hearsim/internal/log"
	"hearsim/internal/observe"
	"hearsim/internal/presets"
	"hearsim/internal/server"
	"hearsim/internal/transport"
	"hearsim/internal/transport/udp"
	"hearsim/pkg/build"
)

func (a *app) serveCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				a.cfg.Server.Addr = addr
			}
			return a.serve()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config, :8080)")
	return cmd
}

func (a *app) serve() error {
	info := build.GetBuildInfo()
	metrics, shutdown, err := observe.InitProvider(observe.ProviderConfig{
		ServiceName:    info.Name,
		ServiceVersion: info.Version,
	})
	if err != nil {
		return fmt.Errorf("metrics provider: %w", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			applog.Warnf("Metrics shutdown: %v", err)
		}
	}()

	ws := transport.NewWebSocketTransport()
	sinks := transport.Multi{transport.NewLoggingTransport(), ws}

	if t := a.cfg.Transport; t.UDPEnabled {
		sender, err := udp.NewSender(t.UDPTargetAddress)
		if err != nil {
			return err
		}
		defer sender.Close()
		pub, err := udp.NewPublisher(t.UDPSendInterval, sender)
		if err != nil {
			return err
		}
		pub.Start()
		sinks = append(sinks, pub)
	}
	defer sinks.Close()

	srv := server.New(a.cfg, a.newPipeline(metrics),
		server.WithMetrics(metrics),
		server.WithSink(sinks),
		server.WithWebSocket(ws),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.ListenAndServe(ctx)
}

func (a *app) presetsCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "presets",
		Short: "List the age presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if asJSON {
				return json.NewEncoder(out(cmd)).Encode(presets.All())
			}
			t := table.New().
				Border(lipgloss.NormalBorder()).
				Headers("key", "cutoff (Hz)", "description")
			for _, p := range presets.All() {
				t.Row(p.Key, fmt.Sprintf("%.0f", p.Cutoff), p.Description)
			}
			t.Row(presets.CustomKey, fmt.Sprintf("%.0f-%.0f", presets.MinCustomCutoff, presets.MaxCustomCutoff),
				"--cutoff <Hz>")
			fmt.Fprintln(out(cmd), t.Render())
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}

func (a *app) listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available audio output devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := audio.Initialize(); err != nil {
				return err
			}
			defer audio.Terminate()
			return audio.ListDevices(out(cmd))
		},
	}
}
