package interfaces

import (
	"context"

	"github.com/support-lab/kotae/pkg/domain/model"
)

// MessageRepository defines the interface for the append-only message log
type MessageRepository interface {
	// Append stores a new message. Messages are never updated in place.
	Append(ctx context.Context, msg *model.Message) (*model.Message, error)

	// Get retrieves a message by ID
	Get(ctx context.Context, id model.MessageID) (*model.Message, error)

	// ListByCustomer retrieves the most recent messages for a customer,
	// newest first, up to limit.
	ListByCustomer(ctx context.Context, customerID string, limit int) ([]*model.Message, error)

	// ListByConversation retrieves all messages of a conversation in
	// chronological order.
	ListByConversation(ctx context.Context, conversationID model.ConversationID) ([]*model.Message, error)
}
