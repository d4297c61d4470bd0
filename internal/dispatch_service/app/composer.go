package app

import "fmt"

// Notification is a composed push title/body.
type Notification struct {
	Title string
	Body  string
}

const (
	maxBodyRunes = 120

	imageBody = "📷 Photo"
	audioBody = "🎤 Voice message"

	thinkingTitle = "💭 Thinking of you"
	reminderTitle = "⏰ Reminder"
)

// ComposeMessage builds the notification for a chat message push. The body
// is the message text truncated to 120 characters; media messages get a
// glyph placeholder instead, and two or more unread messages collapse into
// an aggregate body regardless of content.
func ComposeMessage(senderName, text, mediaType string, unreadCount int) Notification {
	body := truncate(text, maxBodyRunes)
	switch mediaType {
	case "image":
		body = imageBody
	case "audio":
		body = audioBody
	}
	if unreadCount > 1 {
		body = fmt.Sprintf("💬 %d new messages", unreadCount)
	}
	return Notification{Title: senderName, Body: body}
}

// ComposeThinking builds the notification for a "thinking of you" ping.
func ComposeThinking(fromName string) Notification {
	return Notification{
		Title: thinkingTitle,
		Body:  fmt.Sprintf("%s is thinking of you", fromName),
	}
}

// ComposeReminder builds the notification for a reminder.
func ComposeReminder(reminderTitleText string) Notification {
	return Notification{Title: reminderTitle, Body: reminderTitleText}
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
