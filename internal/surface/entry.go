package surface

import (
	"time"

	"github.com/gestionclinique/clinic-intray/internal/notification"
)

// Fallback display values for entries built from realtime frames.
const (
	UnknownSender       = "Quelqu'un"
	DefaultPreview      = "Nouveau message"
	NewConversationName = "Nouvelle conversation"
	JustNow             = "à l'instant"
	RendezVousTitle     = "Notification Rendez-vous"

	previewRunes = 100
)

// Entry is one row of the active set.
type Entry struct {
	Key string
	// ID is the server id; zero for temporary entries.
	ID             int64
	Type           notification.Type
	FrameType      string
	Temporary      bool
	SenderName     string
	Conversation   string
	ConversationID int64
	MessageID      int64
	Preview        string
	TimeAgo        string
	CreatedAt      time.Time
}

// Title is the heading shown above the entry.
func (e Entry) Title() string {
	if e.Type == notification.TypeMessage {
		return e.Conversation
	}
	return RendezVousTitle
}

func entryFromNotification(n notification.Notification) Entry {
	e := Entry{
		Key:          n.Key(),
		ID:           n.ID,
		Type:         n.Type,
		SenderName:   n.SenderName,
		Conversation: n.ConversationName,
		Preview:      n.Preview(),
		TimeAgo:      n.TimeAgo,
	}
	if n.ConversationID != nil {
		e.ConversationID = *n.ConversationID
	}
	if n.MessageID != nil {
		e.MessageID = *n.MessageID
	}
	if t, err := time.Parse("2006-01-02T15:04:05", n.DateCreation); err == nil {
		e.CreatedAt = t
	}
	return e
}

// transientEntry builds the temporary entry for a NEW_MESSAGE frame.
func transientEntry(key string, m *notification.Message, now time.Time) Entry {
	sender := m.SenderName()
	if sender == "" {
		sender = UnknownSender
	}
	preview := truncateRunes(m.Contenu, previewRunes)
	if preview == "" {
		preview = DefaultPreview
	}
	return Entry{
		Key:            key,
		Type:           notification.TypeMessage,
		FrameType:      notification.FrameNewMessage,
		Temporary:      true,
		SenderName:     sender,
		Conversation:   NewConversationName,
		ConversationID: m.ConversationID,
		MessageID:      m.ID,
		Preview:        preview,
		TimeAgo:        JustNow,
		CreatedAt:      now,
	}
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
