package chat_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/waabox/deploydeck/internal/chat"
	"github.com/waabox/deploydeck/internal/domain"
	"github.com/waabox/deploydeck/internal/event"
)

type fakeChannel struct {
	connected bool
	sendErr   error
	sent      []event.Outbound
}

func (f *fakeChannel) Connected() bool { return f.connected }
func (f *fakeChannel) Send(_ context.Context, out event.Outbound) error {
	f.sent = append(f.sent, out)
	return f.sendErr
}

type fakeFallback struct {
	calls    int
	response string
	err      error
	lastText string
}

func (f *fakeFallback) SendChatMessage(_ context.Context, message string, _ time.Time) (string, error) {
	f.calls++
	f.lastText = message
	return f.response, f.err
}

func TestSend_DisconnectedUsesFallbackOnce(t *testing.T) {
	ch := &fakeChannel{connected: false}
	fb := &fakeFallback{response: "Dockerfile created"}
	sender := chat.NewSender(ch, fb)

	result, err := sender.Send(context.Background(), "Accept")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fb.calls != 1 {
		t.Errorf("expected exactly one fallback call, got %d", fb.calls)
	}
	if len(ch.sent) != 0 {
		t.Errorf("expected nothing sent over the channel, got %d frames", len(ch.sent))
	}
	if result.ViaChannel {
		t.Error("expected ViaChannel false")
	}
	if result.Reply == nil || result.Reply.Type != domain.RoleAI || result.Reply.Content != "Dockerfile created" {
		t.Errorf("expected ai reply, got %+v", result.Reply)
	}
	if result.Reply.ID == "" {
		t.Error("expected reply to carry a local id")
	}
}

func TestSend_ConnectedUsesChannel(t *testing.T) {
	ch := &fakeChannel{connected: true}
	fb := &fakeFallback{}
	result, err := chat.NewSender(ch, fb).Send(context.Background(), "Status")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.ViaChannel || result.Reply != nil {
		t.Errorf("expected channel delivery without reply, got %+v", result)
	}
	if fb.calls != 0 {
		t.Errorf("expected no fallback call, got %d", fb.calls)
	}
	sent, ok := ch.sent[0].(event.SendChat)
	if !ok || sent.Message != "Status" {
		t.Errorf("expected SendChat frame with 'Status', got %#v", ch.sent[0])
	}
}

func TestSend_ChannelFailureFallsBack(t *testing.T) {
	ch := &fakeChannel{connected: true, sendErr: errors.New("broken pipe")}
	fb := &fakeFallback{response: "ok"}
	result, err := chat.NewSender(ch, fb).Send(context.Background(), "Reject")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fb.calls != 1 || fb.lastText != "Reject" {
		t.Errorf("expected one fallback call with 'Reject', got %d '%s'", fb.calls, fb.lastText)
	}
	if result.Reply == nil {
		t.Error("expected fallback reply")
	}
}

func TestSend_FallbackErrorIsReturned(t *testing.T) {
	fb := &fakeFallback{err: errors.New("connection refused")}
	_, err := chat.NewSender(nil, fb).Send(context.Background(), "hi")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if fb.calls != 1 {
		t.Errorf("expected one fallback attempt, got %d", fb.calls)
	}
}

func TestSend_NoPathAvailable(t *testing.T) {
	_, err := chat.NewSender(&fakeChannel{}, nil).Send(context.Background(), "hi")
	if !chat.IsDisconnected(err) {
		t.Errorf("expected disconnected error, got %v", err)
	}
}

func TestNewUserMessage(t *testing.T) {
	at := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	msg := chat.NewUserMessage("Accept", at)
	if msg.Type != domain.RoleUser || msg.Content != "Accept" || !msg.Timestamp.Equal(at) {
		t.Errorf("unexpected message: %+v", msg)
	}
	if msg.ID == chat.NewUserMessage("Accept", at).ID {
		t.Error("expected unique ids")
	}
}
