package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/support-lab/kotae/pkg/domain/types"
)

// MessageID is a UUID-based identifier for Message
type MessageID string

// NewMessageID generates a new UUID v4 MessageID
func NewMessageID() MessageID {
	return MessageID(uuid.New().String())
}

// ConversationID groups messages exchanged with one customer about one topic
type ConversationID string

// NewConversationID generates a new UUID v4 ConversationID
func NewConversationID() ConversationID {
	return ConversationID(uuid.New().String())
}

// Message is one turn in a customer conversation. The message store is
// append-only; messages are never updated in place.
type Message struct {
	ID             MessageID
	CustomerID     string
	ConversationID ConversationID
	Direction      types.Direction
	Content        string
	CreatedAt      time.Time
}

// Conversation is a transcript handed to the extraction engine
type Conversation struct {
	ID         ConversationID
	CustomerID string
	Messages   []*Message
}
