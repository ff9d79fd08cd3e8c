package tui

import (
	"fmt"
	"strings"

	"github.com/waabox/deploydeck/internal/domain"
)

// renderLogs formats entries one per line as "timestamp [LEVEL] message".
func renderLogs(entries []domain.LogEntry, st styles) string {
	if len(entries) == 0 {
		return st.muted.Render("No logs yet.")
	}
	var sb strings.Builder
	for _, e := range entries {
		tag := levelStyle(e.Level).Render(fmt.Sprintf("[%s]", e.Level))
		sb.WriteString(fmt.Sprintf("%s %s %s\n", st.muted.Render(e.Timestamp), tag, e.Message))
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

// renderChat formats the session, oldest first, with a typing line at the end.
func renderChat(messages []domain.ChatMessage, typing bool, st styles) string {
	var sb strings.Builder
	if len(messages) == 0 {
		sb.WriteString(st.muted.Render("Ask about your deployment.") + "\n")
	}
	for _, msg := range messages {
		name := st.aiName.Render("ai")
		if msg.Type == domain.RoleUser {
			name = st.userName.Render("you")
		}
		sb.WriteString(fmt.Sprintf("%s %s: %s\n", st.muted.Render(msg.Timestamp.Format("15:04:05")), name, msg.Content))
	}
	if typing {
		sb.WriteString(st.muted.Render("ai is typing..."))
	}
	return strings.TrimSuffix(sb.String(), "\n")
}
