package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/support-lab/kotae/pkg/domain/model"
	"github.com/support-lab/kotae/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type messageDoc struct {
	ID             model.MessageID `firestore:"ID"`
	CustomerID     string          `firestore:"CustomerID"`
	ConversationID string          `firestore:"ConversationID"`
	Direction      string          `firestore:"Direction"`
	Content        string          `firestore:"Content"`
	CreatedAt      time.Time       `firestore:"CreatedAt"`
}

func toMessageDoc(m *model.Message) *messageDoc {
	return &messageDoc{
		ID:             m.ID,
		CustomerID:     m.CustomerID,
		ConversationID: string(m.ConversationID),
		Direction:      string(m.Direction),
		Content:        m.Content,
		CreatedAt:      m.CreatedAt,
	}
}

func fromMessageDoc(d *messageDoc) *model.Message {
	return &model.Message{
		ID:             d.ID,
		CustomerID:     d.CustomerID,
		ConversationID: model.ConversationID(d.ConversationID),
		Direction:      types.Direction(d.Direction),
		Content:        d.Content,
		CreatedAt:      d.CreatedAt,
	}
}

type messageRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newMessageRepository(client *firestore.Client) *messageRepository {
	return &messageRepository{
		client: client,
	}
}

func (r *messageRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(r.collectionPrefix + "messages")
}

func (r *messageRepository) Append(ctx context.Context, msg *model.Message) (*model.Message, error) {
	if msg.CustomerID == "" {
		return nil, goerr.New("customer ID is required")
	}
	if err := msg.Direction.Validate(); err != nil {
		return nil, err
	}

	if msg.ID == "" {
		msg.ID = model.NewMessageID()
	}
	if msg.ConversationID == "" {
		msg.ConversationID = model.NewConversationID()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	docRef := r.collection().Doc(string(msg.ID))
	if _, err := docRef.Create(ctx, toMessageDoc(msg)); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return nil, goerr.Wrap(err, "message already exists", goerr.V("id", msg.ID))
		}
		return nil, goerr.Wrap(err, "failed to append message", goerr.V("id", msg.ID))
	}

	return msg, nil
}

func (r *messageRepository) Get(ctx context.Context, id model.MessageID) (*model.Message, error) {
	doc, err := r.collection().Doc(string(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "message not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get message", goerr.V("id", id))
	}

	var d messageDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal message", goerr.V("id", id))
	}

	return fromMessageDoc(&d), nil
}

// ListByCustomer returns the customer's messages newest first. Requires a
// composite index on (CustomerID, CreatedAt desc), see the migrate command.
func (r *messageRepository) ListByCustomer(ctx context.Context, customerID string, limit int) ([]*model.Message, error) {
	q := r.collection().
		Where("CustomerID", "==", customerID).
		OrderBy("CreatedAt", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}

	return r.listMessages(ctx, q)
}

func (r *messageRepository) ListByConversation(ctx context.Context, conversationID model.ConversationID) ([]*model.Message, error) {
	q := r.collection().
		Where("ConversationID", "==", string(conversationID)).
		OrderBy("CreatedAt", firestore.Asc)

	return r.listMessages(ctx, q)
}

func (r *messageRepository) listMessages(ctx context.Context, q firestore.Query) ([]*model.Message, error) {
	iter := q.Documents(ctx)
	defer iter.Stop()

	var result []*model.Message
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate messages")
		}

		var d messageDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal message")
		}
		result = append(result, fromMessageDoc(&d))
	}

	return result, nil
}
