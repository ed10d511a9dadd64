package entities

import (
	"fmt"
	"time"
)

// SenderRole represents who authored a message
type SenderRole string

const (
	RoleRecruiter SenderRole = "RECRUITER"
	RoleApplicant SenderRole = "APPLICANT"
	RoleSystem    SenderRole = "SYSTEM"
)

// MessageType represents the stream a message belongs to
type MessageType string

const (
	MessageTypeChat     MessageType = "CHAT"
	MessageTypeQuestion MessageType = "QUESTION"
	MessageTypeSystem   MessageType = "SYSTEM"
)

// Message is one append-only entry in a room's timeline. Messages are never
// edited or deleted.
type Message struct {
	// ID is the durable id assigned by the backend. Live-pushed events may
	// arrive before the backend assigns one, so it can be absent.
	ID         *int64      `json:"id,omitempty"`
	RoomCode   string      `json:"roomCode"`
	SenderID   int64       `json:"senderId"`
	SenderRole SenderRole  `json:"senderRole"`
	Type       MessageType `json:"type"`
	Content    string      `json:"content"`
	SentAt     time.Time   `json:"timestamp"`
}

// MessageKey is the canonical identity of a message, comparable and usable
// as a map key for set-based dedup.
type MessageKey string

// Key derives the identity of the message: the durable id when present,
// otherwise the (content, timestamp, sender, type) tuple. The fallback covers
// live events observed before the backend persisted them.
func (m Message) Key() MessageKey {
	if m.ID != nil {
		return MessageKey(fmt.Sprintf("id:%d", *m.ID))
	}
	return MessageKey(fmt.Sprintf("%s|%d|%d|%s", m.Content, m.SentAt.UnixMilli(), m.SenderID, m.Type))
}

// IsSystem checks if the message was generated by the backend rather than
// one of the two participants
func (m Message) IsSystem() bool {
	return m.Type == MessageTypeSystem || m.SenderRole == RoleSystem
}
