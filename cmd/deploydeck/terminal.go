package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/waabox/deploydeck/internal/config"
	"github.com/waabox/deploydeck/internal/logging"
	"github.com/waabox/deploydeck/internal/terminal"
)

func terminalCmd(g *globals) *cobra.Command {
	var host, username, keyFile string

	cmd := &cobra.Command{
		Use:   "terminal",
		Short: "Open an interactive shell on the deployment VM",
		Long: "Open an interactive shell on the deployment VM.\n\n" +
			"The local terminal is put in raw mode, so ctrl+c reaches the VM. Type " +
			terminal.EscapeSequence + " at the start of a line to close the session locally.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := logging.Configure(g.logLevel(), os.Stderr); err != nil {
				return err
			}
			tc := g.cfg.Terminal
			if host != "" {
				tc.Host = host
			}
			if username != "" {
				tc.Username = username
			}
			if keyFile != "" {
				tc.KeyFile = keyFile
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM)
			defer stop()
			return runTerminal(ctx, g.cfg, tc)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "VM host for the credential handshake")
	cmd.Flags().StringVar(&username, "user", "", "VM username for the credential handshake")
	cmd.Flags().StringVar(&keyFile, "key", "", "Private key file for the credential handshake")
	return cmd
}

// runTerminal bridges stdin/stdout to the VM. When a host is configured the
// server is asked to open the SSH session with the given credentials. The
// local terminal is in raw mode for the duration, so ctrl+c reaches the VM
// and the bridge escape sequence is the local way out.
func runTerminal(ctx context.Context, cfg config.Config, tc config.TerminalConfig) error {
	url, err := cfg.TerminalURL()
	if err != nil {
		return err
	}

	var opts []terminal.Option
	if tc.Host != "" {
		key, err := os.ReadFile(tc.KeyFile)
		if err != nil {
			return fmt.Errorf("reading private key: %w", err)
		}
		opts = append(opts, terminal.WithCredentials(terminal.Credentials{
			Host:       tc.Host,
			Username:   tc.Username,
			PrivateKey: key,
		}))
	}

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		state, err := term.MakeRaw(fd)
		if err != nil {
			return fmt.Errorf("entering raw mode: %w", err)
		}
		defer term.Restore(fd, state)
	}

	fmt.Fprintf(os.Stdout, "[type %s at the start of a line to disconnect]\r\n", terminal.EscapeSequence)
	err = terminal.NewBridge(url, opts...).Run(ctx, os.Stdin, os.Stdout)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
