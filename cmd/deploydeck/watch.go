package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/waabox/deploydeck/internal/api"
	"github.com/waabox/deploydeck/internal/channel"
	"github.com/waabox/deploydeck/internal/domain"
	"github.com/waabox/deploydeck/internal/event"
	"github.com/waabox/deploydeck/internal/logging"
	"github.com/waabox/deploydeck/internal/store"
)

func watchCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stream pipeline events as text lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := logging.Configure(g.logLevel(), os.Stderr); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return watch(ctx, g, cmd.OutOrStdout())
		},
	}
}

// watch renders the dashboard state as one line per change until ctx ends.
func watch(ctx context.Context, g *globals, out io.Writer) error {
	socketURL, err := g.cfg.SocketURL()
	if err != nil {
		return err
	}

	ctrl := store.NewController(store.NewDashboard())
	changes, cancel := ctrl.Subscribe()
	defer cancel()

	client := api.NewClient(g.cfg.ServerOrDefault())
	if steps, err := client.FetchSteps(ctx); err != nil {
		slog.Warn("initial step fetch failed", "err", err)
	} else {
		state := ctrl.Update(func(d store.Dashboard) store.Dashboard {
			d.Steps = d.Steps.Replace(steps)
			return d
		})
		for _, s := range state.Steps.List() {
			printStep(out, s)
		}
	}

	opts := append(g.channelOptions(),
		channel.OnEvent(func(ev event.Event) { ctrl.Apply(ev) }),
		channel.OnState(func(connected bool) {
			ctrl.Update(func(d store.Dashboard) store.Dashboard {
				d.Connected = connected
				return d
			})
		}),
	)
	mgr := channel.NewManager(socketURL, opts...)
	done := make(chan error, 1)
	go func() { done <- mgr.Run(ctx) }()

	connected, running := false, ctrl.Snapshot().Steps.Running()
	for {
		select {
		case change := <-changes:
			if change.State.Connected != connected {
				connected = change.State.Connected
				fmt.Fprintf(out, "-- channel %s\n", connectionWord(connected))
			}
			printChange(out, change)
			if r := change.State.Steps.Running(); r != running {
				running = r
				fmt.Fprintf(out, "-- pipeline running=%t\n", running)
			}
		case err := <-done:
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
	}
}

func printChange(out io.Writer, change store.Change) {
	switch ev := change.Event.(type) {
	case event.StepUpdate:
		printStep(out, ev.Step)
	case event.LogMessage:
		fmt.Fprintf(out, "log    %s [%s] %s\n", ev.Entry.Timestamp, ev.Entry.Level, ev.Entry.Message)
	case event.ChatMessage:
		fmt.Fprintf(out, "chat   %s: %s\n", ev.Message.Type, ev.Message.Content)
	case event.ChatHistory:
		fmt.Fprintf(out, "chat   history replaced, %d messages\n", len(ev.Messages))
	case event.Pong:
		slog.Debug("pong", "at", change.State.LastPong)
	}
}

func printStep(out io.Writer, s domain.PipelineStep) {
	fmt.Fprintf(out, "step   %-12s %-10s %s\n", s.ID, s.Status, s.Name)
}

func connectionWord(connected bool) string {
	if connected {
		return "connected"
	}
	return "disconnected"
}
