// Package terminal bridges a local terminal to a remote VM shell over a
// websocket carrying raw bytes.
package terminal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"golang.org/x/crypto/ssh"
	"golang.org/x/net/websocket"
)

const defaultOrigin = "http://localhost/"

// Credentials are sent once, as the first frame, when the server must open
// the SSH session on the client's behalf.
type Credentials struct {
	Host       string
	Username   string
	PrivateKey []byte // PEM encoded, unencrypted
}

// Validate checks that every field is present and that PrivateKey parses.
func (c Credentials) Validate() error {
	if c.Host == "" {
		return errors.New("terminal host is required")
	}
	if c.Username == "" {
		return errors.New("terminal username is required")
	}
	if len(c.PrivateKey) == 0 {
		return errors.New("private key is required")
	}
	if _, err := ssh.ParsePrivateKey(c.PrivateKey); err != nil {
		var missing *ssh.PassphraseMissingError
		if errors.As(err, &missing) {
			return errors.New("passphrase-protected private keys are not supported")
		}
		return fmt.Errorf("parsing private key: %w", err)
	}
	return nil
}

// handshake is the JSON shape of the credential frame.
type handshake struct {
	SSHKey   string `json:"ssh_key"`
	Host     string `json:"host"`
	Username string `json:"username"`
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithCredentials makes the bridge send a handshake frame before any byte traffic.
func WithCredentials(c Credentials) Option {
	return func(b *Bridge) { b.creds = &c }
}

// WithLogger sets the logger; the default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) { b.logger = logger }
}

// Bridge is one terminal session. It does not reconnect.
type Bridge struct {
	url    string
	creds  *Credentials
	logger *slog.Logger

	mu    sync.Mutex
	conn  *websocket.Conn
	ready bool
}

// NewBridge creates a bridge to the given ws:// or wss:// URL.
func NewBridge(url string, opts ...Option) *Bridge {
	b := &Bridge{url: url, logger: slog.Default()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run connects, performs the handshake if credentials are set, then copies
// remote output to out and local input from in until either side closes or
// ctx is cancelled. Typing EscapeSequence ends the session with a nil error.
// Failures are reported to out as a plain-text line.
func (b *Bridge) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	if b.creds != nil {
		if err := b.creds.Validate(); err != nil {
			fmt.Fprintf(out, "[terminal credentials rejected: %v]\r\n", err)
			return err
		}
	}

	session, quit := context.WithCancel(ctx)
	defer quit()

	// Input is pumped from the start so keystrokes typed before the channel
	// is ready are consumed and dropped instead of queued, and the escape
	// sequence works while dialing.
	go b.pump(in, quit)

	cfg, err := websocket.NewConfig(b.url, defaultOrigin)
	if err != nil {
		return fmt.Errorf("configuring terminal channel: %w", err)
	}
	conn, err := cfg.DialContext(session)
	if err != nil {
		if ctx.Err() == nil && session.Err() != nil {
			return nil
		}
		fmt.Fprint(out, "\r\n[WebSocket error: connection failed or refused]\r\n")
		return fmt.Errorf("dialing %s: %w", b.url, err)
	}
	stop := context.AfterFunc(session, func() { conn.Close() })
	defer stop()
	defer b.close(conn)

	if b.creds != nil {
		frame := handshake{
			SSHKey:   string(b.creds.PrivateKey),
			Host:     b.creds.Host,
			Username: b.creds.Username,
		}
		if err := websocket.JSON.Send(conn, frame); err != nil {
			fmt.Fprint(out, "\r\n[WebSocket error: handshake failed]\r\n")
			return fmt.Errorf("sending handshake: %w", err)
		}
	}
	b.open(conn)
	b.logger.Info("terminal connected", "url", b.url, "handshake", b.creds != nil)
	fmt.Fprint(out, "Connected to VM terminal.\r\n")

	for {
		var chunk []byte
		if err := websocket.Message.Receive(conn, &chunk); err != nil {
			fmt.Fprint(out, "\r\n[Connection closed.]\r\n")
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if session.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("reading terminal output: %w", err)
		}
		if _, err := out.Write(chunk); err != nil {
			return fmt.Errorf("writing terminal output: %w", err)
		}
	}
}

// Ready reports whether keystrokes are currently forwarded.
func (b *Bridge) Ready() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ready
}

// Forward sends p verbatim to the remote session. It reports false, dropping
// p, while the channel is not open or the handshake has not been sent.
func (b *Bridge) Forward(p []byte) bool {
	b.mu.Lock()
	conn, ready := b.conn, b.ready
	b.mu.Unlock()
	if !ready || len(p) == 0 {
		return false
	}
	if err := websocket.Message.Send(conn, string(p)); err != nil {
		b.logger.Debug("terminal input dropped", "err", err)
		return false
	}
	return true
}

// EscapeSequence, typed at the start of a line, closes the session locally.
// "~~" sends a single "~".
const EscapeSequence = "~."

func (b *Bridge) pump(in io.Reader, quit func()) {
	esc := escapeScanner{lineStart: true}
	buf := make([]byte, 1024)
	for {
		n, err := in.Read(buf)
		if n > 0 {
			p, stop := esc.scan(buf[:n])
			if len(p) > 0 {
				if b.Ready() {
					b.Forward(p)
				} else {
					b.logger.Debug("terminal input dropped before open", "bytes", len(p))
				}
			}
			if stop {
				b.logger.Info("terminal escape typed, closing session")
				quit()
				return
			}
		}
		if err != nil {
			return
		}
	}
}

// escapeScanner finds EscapeSequence in the input stream, which may be split
// across reads.
type escapeScanner struct {
	lineStart bool
	pending   bool
}

// scan returns the bytes to forward and whether the escape was typed. Bytes
// after the escape are discarded.
func (e *escapeScanner) scan(p []byte) ([]byte, bool) {
	out := make([]byte, 0, len(p)+1)
	for _, c := range p {
		if e.pending {
			e.pending = false
			switch c {
			case '.':
				return out, true
			case '~':
				out = append(out, '~')
				e.lineStart = false
				continue
			default:
				out = append(out, '~')
			}
		}
		if e.lineStart && c == '~' {
			e.pending = true
			continue
		}
		out = append(out, c)
		e.lineStart = c == '\r' || c == '\n'
	}
	return out, false
}

func (b *Bridge) open(conn *websocket.Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conn = conn
	b.ready = true
}

func (b *Bridge) close(conn *websocket.Conn) {
	b.mu.Lock()
	b.conn = nil
	b.ready = false
	b.mu.Unlock()
	conn.Close()
}
