// Package event defines the frames exchanged over the primary pipeline channel.
//
// Inbound frames are a closed set: every value returned by Decode is one of
// StepUpdate, LogMessage, ChatMessage, ChatHistory or Pong. Consumers switch
// over them exhaustively.
package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/waabox/deploydeck/internal/domain"
)

// Type is the tag carried in the "type" field of every frame.
type Type string

const (
	TypeStepUpdate  Type = "step_update"
	TypeLogMessage  Type = "log_message"
	TypeChatMessage Type = "chat_message"
	TypeChatHistory Type = "chat_history"
	TypePong        Type = "pong"
	TypePing        Type = "ping"
)

// Event is an inbound frame. The interface is sealed by an unexported method.
type Event interface {
	Type() Type
	isEvent()
}

// StepUpdate carries the full new state of one pipeline step.
type StepUpdate struct {
	Step domain.PipelineStep
}

// LogMessage carries one log line.
type LogMessage struct {
	Entry domain.LogEntry
}

// ChatMessage carries one chat message pushed by the server.
type ChatMessage struct {
	Message domain.ChatMessage
}

// ChatHistory carries the whole conversation so far, sent to late joiners.
type ChatHistory struct {
	Messages []domain.ChatMessage
}

// Pong answers a keepalive ping.
type Pong struct{}

func (StepUpdate) Type() Type  { return TypeStepUpdate }
func (LogMessage) Type() Type  { return TypeLogMessage }
func (ChatMessage) Type() Type { return TypeChatMessage }
func (ChatHistory) Type() Type { return TypeChatHistory }
func (Pong) Type() Type        { return TypePong }

func (StepUpdate) isEvent()  {}
func (LogMessage) isEvent()  {}
func (ChatMessage) isEvent() {}
func (ChatHistory) isEvent() {}
func (Pong) isEvent()        {}

// frame is the envelope shared by inbound and outbound messages.
type frame struct {
	Type Type            `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Decode parses one inbound text frame.
// Unknown tags wrap domain.ErrUnknownEvent; undecodable payloads wrap domain.ErrMalformedEvent.
func Decode(raw []byte) (Event, error) {
	var f frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedEvent, err)
	}
	switch f.Type {
	case TypeStepUpdate:
		var s wireStep
		if err := decodeData(f, &s); err != nil {
			return nil, err
		}
		if s.ID == "" {
			return nil, fmt.Errorf("%w: step_update without id", domain.ErrMalformedEvent)
		}
		return StepUpdate{Step: s.toStep()}, nil
	case TypeLogMessage:
		var l wireLog
		if err := decodeData(f, &l); err != nil {
			return nil, err
		}
		return LogMessage{Entry: l.toEntry()}, nil
	case TypeChatMessage:
		var c wireChat
		if err := decodeData(f, &c); err != nil {
			return nil, err
		}
		return ChatMessage{Message: c.toMessage()}, nil
	case TypeChatHistory:
		var history []wireChat
		if err := decodeData(f, &history); err != nil {
			return nil, err
		}
		messages := make([]domain.ChatMessage, len(history))
		for i, c := range history {
			messages[i] = c.toMessage()
		}
		return ChatHistory{Messages: messages}, nil
	case TypePong:
		return Pong{}, nil
	case "":
		return nil, fmt.Errorf("%w: missing type", domain.ErrMalformedEvent)
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownEvent, f.Type)
	}
}

func decodeData(f frame, target interface{}) error {
	if len(f.Data) == 0 {
		return fmt.Errorf("%w: %s without data", domain.ErrMalformedEvent, f.Type)
	}
	if err := json.Unmarshal(f.Data, target); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrMalformedEvent, f.Type, err)
	}
	return nil
}

// wireStep is the raw JSON shape of a pipeline step. The api package decodes
// the same shape from the steps endpoint through DecodeSteps.
type wireStep struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Status   string  `json:"status"`
	Output   string  `json:"output"`
	Duration float64 `json:"duration"`
	Color    string  `json:"color"`
}

func (s wireStep) toStep() domain.PipelineStep {
	return domain.PipelineStep{
		ID:       s.ID,
		Name:     s.Name,
		Status:   mapStatus(s.Status),
		Output:   s.Output,
		Duration: s.Duration,
		Color:    s.Color,
	}
}

func mapStatus(status string) domain.StepStatus {
	switch domain.StepStatus(status) {
	case domain.StatusRunning, domain.StatusCompleted, domain.StatusFailed:
		return domain.StepStatus(status)
	}
	return domain.StatusPending
}

type wireLog struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Message   string `json:"message"`
}

func (l wireLog) toEntry() domain.LogEntry {
	level := domain.LogLevel(l.Level)
	if level == "" {
		level = domain.LevelInfo
	}
	return domain.LogEntry{Timestamp: l.Timestamp, Level: level, Message: l.Message}
}

type wireChat struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

func (c wireChat) toMessage() domain.ChatMessage {
	role := domain.RoleAI
	if c.Type == string(domain.RoleUser) {
		role = domain.RoleUser
	}
	return domain.ChatMessage{
		ID:        c.ID,
		Type:      role,
		Content:   c.Content,
		Timestamp: ParseTimestamp(c.Timestamp),
	}
}

// timestampLayouts covers RFC 3339 as well as the zone-less ISO form
// produced by Python's datetime.isoformat.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses a server timestamp, returning the zero time when no layout matches.
func ParseTimestamp(s string) time.Time {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// DecodeSteps decodes a JSON array of steps in the wire shape.
func DecodeSteps(raw []byte) ([]domain.PipelineStep, error) {
	var list []wireStep
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("decoding steps: %w", err)
	}
	steps := make([]domain.PipelineStep, 0, len(list))
	for _, s := range list {
		steps = append(steps, s.toStep())
	}
	return steps, nil
}
