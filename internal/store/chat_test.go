package store_test

import (
	"testing"

	"github.com/waabox/deploydeck/internal/domain"
	"github.com/waabox/deploydeck/internal/store"
)

func TestChat_AppendKeepsArrivalOrder(t *testing.T) {
	c := store.NewChat()
	c = c.Append(domain.ChatMessage{ID: "2", Content: "second"})
	c = c.Append(domain.ChatMessage{ID: "1", Content: "first"})
	if c.Len() != 2 {
		t.Fatalf("expected 2 messages, got %d", c.Len())
	}
	if c.Messages()[0].ID != "2" {
		t.Errorf("expected arrival order, got %+v", c.Messages())
	}
}

func TestChat_ReplaceSwapsWholeSession(t *testing.T) {
	c := store.NewChat(domain.ChatMessage{ID: "local"})
	history := []domain.ChatMessage{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	c = c.Replace(history)
	if c.Len() != 3 || c.Messages()[0].ID != "a" {
		t.Errorf("expected history to replace session, got %+v", c.Messages())
	}
	history[0].ID = "mutated"
	if c.Messages()[0].ID != "a" {
		t.Error("expected session to own a copy of history")
	}
}
