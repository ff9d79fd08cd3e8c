package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/waabox/deploydeck/internal/api"
	"github.com/waabox/deploydeck/internal/channel"
	"github.com/waabox/deploydeck/internal/config"
	"github.com/waabox/deploydeck/internal/domain"
	"github.com/waabox/deploydeck/internal/git"
	"github.com/waabox/deploydeck/internal/logging"
	"github.com/waabox/deploydeck/internal/tui"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
var version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "deploydeck: %v\n", err)
		os.Exit(1)
	}
}

// globals holds the persistent flags and the config they resolve to.
type globals struct {
	configPath string
	server     string
	debug      bool
	cfg        config.Config
}

func rootCmd() *cobra.Command {
	g := &globals{}

	cmd := &cobra.Command{
		Use:           "deploydeck",
		Short:         "Terminal dashboard for a deployment pipeline server",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return g.load()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runDashboard(ctx, g)
		},
	}

	cmd.PersistentFlags().StringVar(&g.configPath, "config", config.DefaultConfigPath(), "Config file path")
	cmd.PersistentFlags().StringVar(&g.server, "server", "", "Pipeline server base URL (overrides config)")
	cmd.PersistentFlags().BoolVar(&g.debug, "debug", false, "Enable debug logging")
	cmd.AddCommand(watchCmd(g), terminalCmd(g))
	return cmd
}

func (g *globals) load() error {
	cfg, err := config.LoadFrom(g.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if g.server != "" {
		cfg.Server = g.server
	}
	g.cfg = cfg
	return nil
}

func (g *globals) logLevel() string {
	if g.debug {
		return logging.LevelDebug
	}
	return logging.LevelInfo
}

func (g *globals) channelOptions() []channel.Option {
	return []channel.Option{
		channel.WithReconnectDelay(g.cfg.ReconnectDelayOrDefault()),
		channel.WithPingInterval(g.cfg.PingInterval()),
		channel.WithOrigin(g.cfg.ServerOrDefault()),
	}
}

// runDashboard logs to a file because the dashboard owns the terminal.
func runDashboard(ctx context.Context, g *globals) error {
	logFile, err := logging.OpenFile(g.cfg.LogFileOrDefault())
	if err != nil {
		return err
	}
	defer logFile.Close()
	if err := logging.Configure(g.logLevel(), logFile); err != nil {
		return err
	}

	socketURL, err := g.cfg.SocketURL()
	if err != nil {
		return err
	}
	slog.Info("starting dashboard", "server", g.cfg.ServerOrDefault(), "socket", socketURL, "version", version)

	err = tui.Run(ctx, tui.Options{
		API:               api.NewClient(g.cfg.ServerOrDefault()),
		SocketURL:         socketURL,
		ChannelOptions:    g.channelOptions(),
		RepoURL:           initialRepoURL(g.cfg),
		OnPipelineStarted: g.rememberRepo,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// initialRepoURL prefers the origin remote of the working directory and
// falls back to the last repository a pipeline was started for.
func initialRepoURL(cfg config.Config) string {
	cwd, err := os.Getwd()
	if err == nil {
		if repo, err := git.DetectRepository(cwd); err == nil && repo.Valid() {
			return repo.RemoteURL
		}
	}
	return cfg.LastRepoURL
}

func (g *globals) rememberRepo(repo domain.Repository) {
	if err := config.SaveLastRepo(g.configPath, repo.RemoteURL); err != nil {
		slog.Warn("could not save last repository", "path", g.configPath, "err", err)
	}
}
