// Package store holds the client-side state of a pipeline dashboard.
//
// All state values are immutable: reducers return a new value and leave the
// receiver untouched, so renderers may keep reading an old snapshot while the
// next one is built.
package store

import (
	"log/slog"
	"time"

	"github.com/waabox/deploydeck/internal/event"
)

// Dashboard aggregates everything the presentation layer renders.
type Dashboard struct {
	Steps     Steps
	Logs      Logs
	Chat      Chat
	Connected bool
	LastPong  time.Time
}

// NewDashboard returns an empty, disconnected dashboard.
func NewDashboard() Dashboard {
	return Dashboard{Logs: NewLogs(DefaultLogCapacity)}
}

// Apply folds one inbound event into the dashboard.
func (d Dashboard) Apply(ev event.Event) Dashboard {
	switch ev := ev.(type) {
	case event.StepUpdate:
		d.Steps = d.Steps.ApplyUpdate(ev.Step)
	case event.LogMessage:
		d.Logs = d.Logs.Append(ev.Entry)
	case event.ChatMessage:
		d.Chat = d.Chat.Append(ev.Message)
	case event.ChatHistory:
		d.Chat = d.Chat.Replace(ev.Messages)
	case event.Pong:
		d.LastPong = time.Now()
	default:
		slog.Warn("unhandled event", "type", ev.Type())
	}
	return d
}
