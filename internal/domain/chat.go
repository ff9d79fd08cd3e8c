package domain

import "time"

// ChatRole identifies who authored a chat message.
type ChatRole string

const (
	RoleUser ChatRole = "user"
	RoleAI   ChatRole = "ai"
)

// ChatMessage is one message of the deployment chat.
type ChatMessage struct {
	ID        string
	Type      ChatRole
	Content   string
	Timestamp time.Time
}
