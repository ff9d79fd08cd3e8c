package terminal_test

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"encoding/pem"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/net/websocket"

	"github.com/waabox/deploydeck/internal/terminal"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// syncBuffer is a bytes.Buffer safe for one writer and one reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func testKey(t *testing.T) []byte {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	block, err := ssh.MarshalPrivateKey(priv, "deploydeck-test")
	if err != nil {
		t.Fatal(err)
	}
	return pem.EncodeToMemory(block)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func recordingServer(frames chan<- string) *httptest.Server {
	return httptest.NewServer(websocket.Handler(func(ws *websocket.Conn) {
		websocket.Message.Send(ws, "ubuntu@vm:~$ ")
		for {
			var frame string
			if err := websocket.Message.Receive(ws, &frame); err != nil {
				return
			}
			frames <- frame
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func nextFrame(t *testing.T, frames <-chan string) string {
	t.Helper()
	select {
	case f := <-frames:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
		return ""
	}
}

func TestBridge_HandshakePrecedesKeystrokes(t *testing.T) {
	frames := make(chan string, 10)
	srv := recordingServer(frames)
	defer srv.Close()

	key := testKey(t)
	b := terminal.NewBridge(wsURL(srv),
		terminal.WithLogger(quietLogger),
		terminal.WithCredentials(terminal.Credentials{Host: "10.0.0.4", Username: "ubuntu", PrivateKey: key}),
	)
	if b.Forward([]byte("early")) {
		t.Error("expected keystroke before open to be dropped")
	}

	inR, inW := io.Pipe()
	defer inW.Close()
	out := &syncBuffer{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx, inR, out) }()

	var hs struct {
		SSHKey   string `json:"ssh_key"`
		Host     string `json:"host"`
		Username string `json:"username"`
	}
	first := nextFrame(t, frames)
	if err := json.Unmarshal([]byte(first), &hs); err != nil {
		t.Fatalf("expected first frame to be the JSON handshake, got %q", first)
	}
	if hs.Host != "10.0.0.4" || hs.Username != "ubuntu" || hs.SSHKey != string(key) {
		t.Errorf("unexpected handshake: host=%s user=%s", hs.Host, hs.Username)
	}

	waitFor(t, "bridge ready", b.Ready)
	if _, err := inW.Write([]byte("ls -la\r")); err != nil {
		t.Fatal(err)
	}
	if got := nextFrame(t, frames); got != "ls -la\r" {
		t.Errorf("expected keystrokes forwarded verbatim, got %q", got)
	}
	waitFor(t, "remote prompt", func() bool { return strings.Contains(out.String(), "ubuntu@vm:~$ ") })

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if b.Ready() {
		t.Error("expected bridge not ready after teardown")
	}
}

func TestBridge_WithoutCredentialsForwardsImmediately(t *testing.T) {
	frames := make(chan string, 10)
	srv := recordingServer(frames)
	defer srv.Close()

	b := terminal.NewBridge(wsURL(srv), terminal.WithLogger(quietLogger))
	inR, inW := io.Pipe()
	defer inW.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx, inR, &syncBuffer{})

	waitFor(t, "bridge ready", b.Ready)
	inW.Write([]byte("whoami\r"))
	if got := nextFrame(t, frames); got != "whoami\r" {
		t.Errorf("expected first frame to be raw input, got %q", got)
	}
}

func TestBridge_RejectsInvalidKeyWithoutDialing(t *testing.T) {
	var dials atomic.Int32
	srv := httptest.NewServer(websocket.Handler(func(ws *websocket.Conn) { dials.Add(1) }))
	defer srv.Close()

	b := terminal.NewBridge(wsURL(srv),
		terminal.WithLogger(quietLogger),
		terminal.WithCredentials(terminal.Credentials{Host: "vm", Username: "root", PrivateKey: []byte("not a key")}),
	)
	out := &syncBuffer{}
	if err := b.Run(context.Background(), strings.NewReader(""), out); err == nil {
		t.Fatal("expected error for invalid key, got nil")
	}
	if !strings.Contains(out.String(), "credentials rejected") {
		t.Errorf("expected error line in terminal output, got %q", out.String())
	}
	if dials.Load() != 0 {
		t.Errorf("expected no connection attempt, got %d", dials.Load())
	}
}

func TestBridge_ServerCloseEndsSession(t *testing.T) {
	srv := httptest.NewServer(websocket.Handler(func(ws *websocket.Conn) {
		websocket.Message.Send(ws, []byte("bye\r\n"))
	}))
	defer srv.Close()

	b := terminal.NewBridge(wsURL(srv), terminal.WithLogger(quietLogger))
	inR, inW := io.Pipe()
	defer inW.Close()
	out := &syncBuffer{}
	if err := b.Run(context.Background(), inR, out); err != nil {
		t.Fatalf("expected clean close, got %v", err)
	}
	if !strings.Contains(out.String(), "bye") || !strings.Contains(out.String(), "[Connection closed.]") {
		t.Errorf("unexpected terminal output %q", out.String())
	}
}

func TestBridge_DialFailureWritesErrorLine(t *testing.T) {
	srv := httptest.NewServer(websocket.Handler(func(ws *websocket.Conn) {}))
	url := wsURL(srv)
	srv.Close()

	out := &syncBuffer{}
	err := terminal.NewBridge(url, terminal.WithLogger(quietLogger)).Run(context.Background(), strings.NewReader(""), out)
	if err == nil {
		t.Fatal("expected dial error, got nil")
	}
	if !strings.Contains(out.String(), "connection failed") {
		t.Errorf("expected error line, got %q", out.String())
	}
}

func TestCredentials_Validate(t *testing.T) {
	key := testKey(t)
	if err := (terminal.Credentials{Host: "vm", Username: "root", PrivateKey: key}).Validate(); err != nil {
		t.Errorf("expected valid credentials, got %v", err)
	}
	if err := (terminal.Credentials{Username: "root", PrivateKey: key}).Validate(); err == nil {
		t.Error("expected error without host")
	}
	if err := (terminal.Credentials{Host: "vm", PrivateKey: key}).Validate(); err == nil {
		t.Error("expected error without username")
	}
	if err := (terminal.Credentials{Host: "vm", Username: "root"}).Validate(); err == nil {
		t.Error("expected error without key")
	}
}

func TestBridge_EscapeSequenceClosesSession(t *testing.T) {
	frames := make(chan string, 10)
	srv := recordingServer(frames)
	defer srv.Close()

	b := terminal.NewBridge(wsURL(srv), terminal.WithLogger(quietLogger))
	inR, inW := io.Pipe()
	defer inW.Close()
	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() { done <- b.Run(context.Background(), inR, out) }()

	waitFor(t, "bridge ready", b.Ready)
	inW.Write([]byte("~~home\r"))
	if got := nextFrame(t, frames); got != "~home\r" {
		t.Errorf("expected doubled tilde sent as one, got %q", got)
	}
	inW.Write([]byte("pwd\r" + terminal.EscapeSequence))
	if got := nextFrame(t, frames); got != "pwd\r" {
		t.Errorf("expected bytes before the escape forwarded, got %q", got)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected nil error after escape, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after escape")
	}
	if !strings.Contains(out.String(), "[Connection closed.]") {
		t.Errorf("expected closed line, got %q", out.String())
	}
}

func TestBridge_TildeMidLineIsForwarded(t *testing.T) {
	frames := make(chan string, 10)
	srv := recordingServer(frames)
	defer srv.Close()

	b := terminal.NewBridge(wsURL(srv), terminal.WithLogger(quietLogger))
	inR, inW := io.Pipe()
	defer inW.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx, inR, &syncBuffer{})

	waitFor(t, "bridge ready", b.Ready)
	inW.Write([]byte("cd ~."))
	if got := nextFrame(t, frames); got != "cd ~." {
		t.Errorf("expected mid-line tilde forwarded, got %q", got)
	}
}
