// Package channel owns the primary real-time connection to the pipeline server.
package channel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/net/websocket"

	"github.com/waabox/deploydeck/internal/domain"
	"github.com/waabox/deploydeck/internal/event"
)

const (
	defaultOrigin         = "http://localhost/"
	defaultReconnectDelay = 3 * time.Second
)

var errClosedByPeer = errors.New("channel closed by server")

// Option configures a Manager.
type Option func(*Manager)

// WithReconnectDelay sets the fixed wait between a drop and the next dial.
func WithReconnectDelay(d time.Duration) Option {
	return func(m *Manager) { m.delay = d }
}

// WithPingInterval enables keepalive ping frames while connected.
func WithPingInterval(d time.Duration) Option {
	return func(m *Manager) { m.ping = d }
}

// WithOrigin sets the Origin header sent during the websocket handshake.
func WithOrigin(origin string) Option {
	return func(m *Manager) { m.origin = origin }
}

// WithLogger sets the logger; the default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// OnEvent registers the handler for decoded inbound events.
// It is called from the reader goroutine, one event at a time, in arrival order.
func OnEvent(fn func(event.Event)) Option {
	return func(m *Manager) { m.onEvent = fn }
}

// OnState registers the handler for connected/disconnected transitions.
func OnState(fn func(connected bool)) Option {
	return func(m *Manager) { m.onState = fn }
}

// Manager keeps one websocket channel to the server open, redialing after a
// fixed delay whenever it drops. The zero value is not usable; use NewManager.
type Manager struct {
	url     string
	origin  string
	delay   time.Duration
	ping    time.Duration
	logger  *slog.Logger
	onEvent func(event.Event)
	onState func(bool)

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewManager creates a Manager for the given ws:// or wss:// URL.
func NewManager(url string, opts ...Option) *Manager {
	m := &Manager{
		url:     url,
		origin:  defaultOrigin,
		delay:   defaultReconnectDelay,
		logger:  slog.Default(),
		onEvent: func(event.Event) {},
		onState: func(bool) {},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run dials the server and keeps the channel alive until ctx is cancelled.
// Every drop, clean or not, is followed by exactly one redial after the fixed
// delay. The pending wait ends with ctx, so no dial happens after Run returns.
func (m *Manager) Run(ctx context.Context) error {
	policy := backoff.WithContext(backoff.NewConstantBackOff(m.delay), ctx)
	err := backoff.RetryNotify(func() error {
		err := m.session(ctx)
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return err
	}, policy, func(err error, wait time.Duration) {
		m.logger.Warn("channel down, reconnecting", "url", m.url, "err", err, "in", wait)
	})
	return err
}

// Connected reports whether a channel is currently open.
func (m *Manager) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conn != nil
}

// Send writes one outbound frame. It returns domain.ErrNotConnected when no
// channel is open.
func (m *Manager) Send(ctx context.Context, out event.Outbound) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := out.Encode()
	if err != nil {
		return fmt.Errorf("encoding frame: %w", err)
	}
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return domain.ErrNotConnected
	}
	if err := websocket.Message.Send(conn, string(payload)); err != nil {
		return fmt.Errorf("sending frame: %w", err)
	}
	return nil
}

// session runs one connection from dial to drop. It always returns a non-nil error.
func (m *Manager) session(ctx context.Context) error {
	cfg, err := websocket.NewConfig(m.url, m.origin)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("configuring channel: %w", err))
	}
	conn, err := cfg.DialContext(ctx)
	if err != nil {
		return fmt.Errorf("dialing %s: %w", m.url, err)
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(sessionCtx, func() { conn.Close() })
	defer stop()

	m.setConn(conn)
	defer m.setConn(nil)
	m.logger.Info("channel open", "url", m.url)

	if m.ping > 0 {
		go m.keepalive(sessionCtx, conn)
	}

	for {
		var raw []byte
		if err := websocket.Message.Receive(conn, &raw); err != nil {
			conn.Close()
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w: %v", errClosedByPeer, err)
		}
		ev, err := event.Decode(raw)
		if err != nil {
			m.logger.Warn("dropping inbound frame", "err", err)
			continue
		}
		m.logger.Debug("inbound event", "type", ev.Type())
		m.onEvent(ev)
	}
}

func (m *Manager) keepalive(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(m.ping)
	defer ticker.Stop()
	frame, _ := event.Ping{}.Encode()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := websocket.Message.Send(conn, string(frame)); err != nil {
				m.logger.Debug("keepalive ping failed", "err", err)
				return
			}
		}
	}
}

func (m *Manager) setConn(conn *websocket.Conn) {
	m.mu.Lock()
	changed := (m.conn == nil) != (conn == nil)
	m.conn = conn
	m.mu.Unlock()
	if changed {
		m.onState(conn != nil)
	}
}
