// Package chat sends deployment chat messages over the channel, falling back
// to the request/response endpoint when the channel is unavailable.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/waabox/deploydeck/internal/domain"
	"github.com/waabox/deploydeck/internal/event"
)

// Channel is the part of the connection manager the sender needs.
type Channel interface {
	Connected() bool
	Send(ctx context.Context, out event.Outbound) error
}

// Fallback answers a chat message over plain HTTP.
type Fallback interface {
	SendChatMessage(ctx context.Context, message string, at time.Time) (string, error)
}

// Result describes how a message was delivered.
type Result struct {
	// ViaChannel is true when the message went over the channel; the reply
	// will arrive later as a chat_message event.
	ViaChannel bool
	// Reply is the fallback answer, set only when ViaChannel is false.
	Reply *domain.ChatMessage
}

// Sender delivers chat messages.
type Sender struct {
	channel  Channel
	fallback Fallback
	now      func() time.Time
	logger   *slog.Logger
}

// NewSender creates a Sender. channel may be nil, in which case every message
// takes the fallback path.
func NewSender(channel Channel, fallback Fallback) *Sender {
	return &Sender{
		channel:  channel,
		fallback: fallback,
		now:      time.Now,
		logger:   slog.Default(),
	}
}

// NewUserMessage builds the local record of a message typed by the user.
func NewUserMessage(text string, at time.Time) domain.ChatMessage {
	return domain.ChatMessage{
		ID:        uuid.NewString(),
		Type:      domain.RoleUser,
		Content:   text,
		Timestamp: at,
	}
}

// Send delivers text. While the channel is connected the message is written
// to it; otherwise, or when that write fails, exactly one fallback request is
// made and its answer is returned as an ai message.
func (s *Sender) Send(ctx context.Context, text string) (Result, error) {
	at := s.now()
	if s.channel != nil && s.channel.Connected() {
		err := s.channel.Send(ctx, event.SendChat{Message: text, At: at})
		if err == nil {
			return Result{ViaChannel: true}, nil
		}
		if ctx.Err() != nil {
			return Result{}, err
		}
		s.logger.Warn("chat over channel failed, using HTTP fallback", "err", err)
	}
	if s.fallback == nil {
		return Result{}, fmt.Errorf("sending chat message: %w", domain.ErrNotConnected)
	}
	response, err := s.fallback.SendChatMessage(ctx, text, at)
	if err != nil {
		return Result{}, fmt.Errorf("chat fallback: %w", err)
	}
	reply := domain.ChatMessage{
		ID:        uuid.NewString(),
		Type:      domain.RoleAI,
		Content:   response,
		Timestamp: s.now(),
	}
	return Result{Reply: &reply}, nil
}

// IsDisconnected reports whether err means no delivery path was available.
func IsDisconnected(err error) bool {
	return errors.Is(err, domain.ErrNotConnected)
}
