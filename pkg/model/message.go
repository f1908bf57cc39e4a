package model

import (
	"time"

	"github.com/google/uuid"
)

type MessageID string

// NewMessageID generates a new unique MessageID
func NewMessageID() MessageID {
	return MessageID(uuid.New().String())
}

// Role identifies the author of a message
type Role string

const (
	RoleUser Role = "user"
	RoleAI   Role = "ai"
)

// Message is one conversation turn entry. Messages are immutable once
// written; ordering is determined by the server-assigned CreatedAt.
type Message struct {
	ID        MessageID `firestore:"id"`
	Text      string    `firestore:"text"`
	Role      Role      `firestore:"role"`
	CreatedAt time.Time `firestore:"createdAt,serverTimestamp"`
}

// Transcript is the full ordered sequence of persisted messages for a user.
type Transcript []*Message
