package event

import (
	"encoding/json"
	"time"
)

// Outbound is a frame the client sends over the primary channel.
type Outbound interface {
	Encode() ([]byte, error)
}

// SendChat asks the server to answer a chat message.
type SendChat struct {
	Message string
	At      time.Time
}

// Encode renders the frame as {"type":"chat_message","data":{"message":...,"timestamp":...}}.
func (c SendChat) Encode() ([]byte, error) {
	data, err := json.Marshal(struct {
		Message   string `json:"message"`
		Timestamp string `json:"timestamp"`
	}{
		Message:   c.Message,
		Timestamp: c.At.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, err
	}
	return json.Marshal(frame{Type: TypeChatMessage, Data: data})
}

// Ping is the keepalive frame; the server answers with a pong event.
type Ping struct{}

// Encode renders the frame as {"type":"ping"}.
func (Ping) Encode() ([]byte, error) {
	return json.Marshal(frame{Type: TypePing})
}
