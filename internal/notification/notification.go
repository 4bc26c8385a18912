// Package notification defines the clinic backend's notification records
// and the realtime frames pushed over the WebSocket.
package notification

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Type tags a persisted notification.
type Type string

const (
	TypeMessage    Type = "MESSAGE"
	TypeRendezVous Type = "RENDEZVOUS"
)

// Displayable reports whether notifications of this type are shown by the
// notification surface. Other types are fetched but never rendered or counted.
func (t Type) Displayable() bool {
	return t == TypeMessage || t == TypeRendezVous
}

// String returns the string representation of the type.
func (t Type) String() string {
	return string(t)
}

// Notification is one persisted notification as returned by the REST API.
type Notification struct {
	ID            int64  `json:"id"`
	Type          Type   `json:"type"`
	Contenu       string `json:"contenu,omitempty"`
	Lu            bool   `json:"lu"`
	DateCreation  string `json:"dateCreation,omitempty"`
	UtilisateurID int64  `json:"utilisateurId,omitempty"`
	MessageID     *int64 `json:"messageId,omitempty"`
	RendezVousID  *int64 `json:"rendezVousId,omitempty"`

	SenderName       string `json:"senderName,omitempty"`
	ConversationName string `json:"conversationName,omitempty"`
	ConversationID   *int64 `json:"conversationId,omitempty"`
	MessagePreview   string `json:"messagePreview,omitempty"`
	TimeAgo          string `json:"timeAgo,omitempty"`
}

// Key returns the stable active-set key of a persisted notification.
func (n Notification) Key() string {
	return "n-" + strconv.FormatInt(n.ID, 10)
}

// Preview returns the text shown as the notification body.
func (n Notification) Preview() string {
	if n.MessagePreview != "" {
		return n.MessagePreview
	}
	return n.Contenu
}

// FilterDisplayable keeps only displayable notifications, preserving order.
func FilterDisplayable(in []Notification) []Notification {
	out := make([]Notification, 0, len(in))
	for _, n := range in {
		if n.Type.Displayable() {
			out = append(out, n)
		}
	}
	return out
}

// FrameNewMessage is the frame type the notification surface reacts to.
const FrameNewMessage = "NEW_MESSAGE"

// Frame is one inbound realtime message.
type Frame struct {
	Type    string   `json:"type"`
	Message *Message `json:"message,omitempty"`
	// Raw holds the undecoded frame for consumers interested in other types.
	Raw json.RawMessage `json:"-"`
}

// Message is the chat message carried by a NEW_MESSAGE frame.
type Message struct {
	ID             int64   `json:"id"`
	ConversationID int64   `json:"conversationId"`
	Contenu        string  `json:"contenu"`
	Expediteur     *Sender `json:"expediteur,omitempty"`
}

// Sender identifies the author of a chat message.
type Sender struct {
	ID  int64  `json:"id,omitempty"`
	Nom string `json:"nom"`
}

// SenderName returns the author's name or "" when unknown.
func (m *Message) SenderName() string {
	if m == nil || m.Expediteur == nil {
		return ""
	}
	return m.Expediteur.Nom
}

// IsNewMessage reports whether the frame carries a new chat message.
func (f Frame) IsNewMessage() bool {
	return f.Type == FrameNewMessage && f.Message != nil
}

// DecodeFrame parses a JSON frame.
func DecodeFrame(data []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	f.Raw = append(json.RawMessage(nil), data...)
	return f, nil
}
