package store

import "github.com/waabox/deploydeck/internal/domain"

// Chat is the immutable, arrival-ordered chat session.
type Chat struct {
	messages []domain.ChatMessage
}

// NewChat creates a session seeded with messages.
func NewChat(messages ...domain.ChatMessage) Chat {
	return Chat{}.Replace(messages)
}

// Append adds msg at the end of the session.
func (c Chat) Append(msg domain.ChatMessage) Chat {
	messages := make([]domain.ChatMessage, 0, len(c.messages)+1)
	messages = append(messages, c.messages...)
	return Chat{messages: append(messages, msg)}
}

// Replace swaps the whole session for history, as sent to late joiners.
func (c Chat) Replace(history []domain.ChatMessage) Chat {
	messages := make([]domain.ChatMessage, len(history))
	copy(messages, history)
	return Chat{messages: messages}
}

// Messages returns the session in arrival order.
func (c Chat) Messages() []domain.ChatMessage {
	return c.messages
}

// Len returns the number of messages.
func (c Chat) Len() int {
	return len(c.messages)
}
