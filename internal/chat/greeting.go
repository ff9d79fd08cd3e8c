package chat

import (
	"time"

	"github.com/google/uuid"

	"github.com/waabox/deploydeck/internal/domain"
)

// QuickReplies are the canned answers offered next to the chat input.
var QuickReplies = []string{"Accept", "Reject", "Status"}

var openingLines = []string{
	"Great! Now let's move to the first step of the deployment.",
	"I'll create a customized Docker file for your project. I need your permission to move on!",
}

// OpeningMessages returns the ai messages a new session starts with. A
// chat_history from the server replaces them.
func OpeningMessages(at time.Time) []domain.ChatMessage {
	messages := make([]domain.ChatMessage, 0, len(openingLines))
	for _, line := range openingLines {
		messages = append(messages, domain.ChatMessage{
			ID:        uuid.NewString(),
			Type:      domain.RoleAI,
			Content:   line,
			Timestamp: at,
		})
	}
	return messages
}
