package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/support-lab/kotae/pkg/domain/model"
)

type messageRepository struct {
	mu       sync.RWMutex
	messages map[model.MessageID]*model.Message
	order    []model.MessageID
}

func newMessageRepository() *messageRepository {
	return &messageRepository{
		messages: make(map[model.MessageID]*model.Message),
	}
}

func copyMessage(m *model.Message) *model.Message {
	copied := *m
	return &copied
}

func (r *messageRepository) Append(ctx context.Context, msg *model.Message) (*model.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	created := copyMessage(msg)
	if created.ID == "" {
		created.ID = model.NewMessageID()
	}
	if created.ConversationID == "" {
		created.ConversationID = model.NewConversationID()
	}
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now().UTC()
	}

	if _, exists := r.messages[created.ID]; exists {
		return nil, goerr.New("message already exists", goerr.V("id", created.ID))
	}

	r.messages[created.ID] = created
	r.order = append(r.order, created.ID)
	return copyMessage(created), nil
}

func (r *messageRepository) Get(ctx context.Context, id model.MessageID) (*model.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	msg, exists := r.messages[id]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "message not found", goerr.V("id", id))
	}

	return copyMessage(msg), nil
}

func (r *messageRepository) ListByCustomer(ctx context.Context, customerID string, limit int) ([]*model.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*model.Message
	for _, id := range r.order {
		m := r.messages[id]
		if m.CustomerID == customerID {
			result = append(result, copyMessage(m))
		}
	}

	// Newest first
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

func (r *messageRepository) ListByConversation(ctx context.Context, conversationID model.ConversationID) ([]*model.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*model.Message
	for _, id := range r.order {
		m := r.messages[id]
		if m.ConversationID == conversationID {
			result = append(result, copyMessage(m))
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}
