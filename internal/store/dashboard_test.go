package store_test

import (
	"testing"
	"time"

	"github.com/waabox/deploydeck/internal/domain"
	"github.com/waabox/deploydeck/internal/event"
	"github.com/waabox/deploydeck/internal/store"
)

func TestDashboard_ApplyRoutesEveryEventType(t *testing.T) {
	d := store.NewDashboard()
	d = d.Apply(event.StepUpdate{Step: domain.PipelineStep{ID: "init", Status: domain.StatusRunning}})
	d = d.Apply(event.LogMessage{Entry: domain.LogEntry{Level: domain.LevelInfo, Message: "cloning"}})
	d = d.Apply(event.ChatMessage{Message: domain.ChatMessage{ID: "1", Type: domain.RoleAI}})
	d = d.Apply(event.ChatMessage{Message: domain.ChatMessage{ID: "2", Type: domain.RoleAI}})
	before := time.Now()
	d = d.Apply(event.Pong{})

	if d.Steps.Len() != 1 || !d.Steps.Running() {
		t.Errorf("expected one running step, got %+v", d.Steps.List())
	}
	if d.Logs.Len() != 1 {
		t.Errorf("expected one log entry, got %d", d.Logs.Len())
	}
	if d.Chat.Len() != 2 {
		t.Errorf("expected two chat messages, got %d", d.Chat.Len())
	}
	if d.LastPong.Before(before) {
		t.Error("expected LastPong to be updated")
	}

	d = d.Apply(event.ChatHistory{Messages: []domain.ChatMessage{{ID: "h"}}})
	if d.Chat.Len() != 1 || d.Chat.Messages()[0].ID != "h" {
		t.Errorf("expected history to replace chat, got %+v", d.Chat.Messages())
	}
}
