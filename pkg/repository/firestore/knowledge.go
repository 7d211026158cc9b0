package firestore

import (
	"context"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/support-lab/kotae/pkg/domain/interfaces"
	"github.com/support-lab/kotae/pkg/domain/model"
	"github.com/support-lab/kotae/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// knowledgeDoc is the Firestore document representation of model.KnowledgeItem
type knowledgeDoc struct {
	ID          model.KnowledgeID `firestore:"ID"`
	Title       string            `firestore:"Title"`
	Content     string            `firestore:"Content"`
	Category    string            `firestore:"Category"`
	Tags        []string          `firestore:"Tags"`
	Source      string            `firestore:"Source"`
	IsPublished bool              `firestore:"IsPublished"`
	Relations   []relationDoc     `firestore:"Relations,omitempty"`
	Origin      *originDoc        `firestore:"Origin,omitempty"`
	CreatedAt   time.Time         `firestore:"CreatedAt"`
	UpdatedAt   time.Time         `firestore:"UpdatedAt"`
}

type relationDoc struct {
	SourceID string  `firestore:"SourceID"`
	TargetID string  `firestore:"TargetID"`
	Type     string  `firestore:"Type"`
	Strength float64 `firestore:"Strength"`
	Reason   string  `firestore:"Reason,omitempty"`
}

type originDoc struct {
	ConversationID string   `firestore:"ConversationID"`
	MessageIDs     []string `firestore:"MessageIDs,omitempty"`
}

func toKnowledgeDoc(k *model.KnowledgeItem) *knowledgeDoc {
	doc := &knowledgeDoc{
		ID:          k.ID,
		Title:       k.Title,
		Content:     k.Content,
		Category:    k.Category,
		Tags:        k.Tags,
		Source:      k.Source,
		IsPublished: k.IsPublished,
		CreatedAt:   k.CreatedAt,
		UpdatedAt:   k.UpdatedAt,
	}
	for _, rel := range k.Metadata.Relations {
		doc.Relations = append(doc.Relations, relationDoc{
			SourceID: rel.SourceID.String(),
			TargetID: rel.TargetID.String(),
			Type:     rel.Type.String(),
			Strength: rel.Strength,
			Reason:   rel.Reason,
		})
	}
	if k.Metadata.ExtractedFrom != nil {
		origin := &originDoc{
			ConversationID: string(k.Metadata.ExtractedFrom.ConversationID),
		}
		for _, id := range k.Metadata.ExtractedFrom.MessageIDs {
			origin.MessageIDs = append(origin.MessageIDs, string(id))
		}
		doc.Origin = origin
	}
	return doc
}

func fromKnowledgeDoc(d *knowledgeDoc) *model.KnowledgeItem {
	k := &model.KnowledgeItem{
		ID:          d.ID,
		Title:       d.Title,
		Content:     d.Content,
		Category:    d.Category,
		Tags:        d.Tags,
		Source:      d.Source,
		IsPublished: d.IsPublished,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	for _, rel := range d.Relations {
		k.Metadata.Relations = append(k.Metadata.Relations, model.Relation{
			SourceID: model.KnowledgeID(rel.SourceID),
			TargetID: model.KnowledgeID(rel.TargetID),
			Type:     types.RelationType(rel.Type),
			Strength: rel.Strength,
			Reason:   rel.Reason,
		})
	}
	if d.Origin != nil {
		origin := &model.ExtractionOrigin{
			ConversationID: model.ConversationID(d.Origin.ConversationID),
		}
		for _, id := range d.Origin.MessageIDs {
			origin.MessageIDs = append(origin.MessageIDs, model.MessageID(id))
		}
		k.Metadata.ExtractedFrom = origin
	}
	return k
}

func docToKnowledge(doc *firestore.DocumentSnapshot) (*model.KnowledgeItem, error) {
	var d knowledgeDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, err
	}
	return fromKnowledgeDoc(&d), nil
}

type knowledgeRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newKnowledgeRepository(client *firestore.Client) *knowledgeRepository {
	return &knowledgeRepository{
		client: client,
	}
}

func (r *knowledgeRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(r.collectionPrefix + "knowledge_items")
}

func (r *knowledgeRepository) Create(ctx context.Context, item *model.KnowledgeItem) (*model.KnowledgeItem, error) {
	now := time.Now().UTC()
	if item.ID == "" {
		item.ID = model.NewKnowledgeID()
	}
	item.NormalizeTags()
	item.CreatedAt = now
	item.UpdatedAt = now

	docRef := r.collection().Doc(item.ID.String())
	if _, err := docRef.Set(ctx, toKnowledgeDoc(item)); err != nil {
		return nil, goerr.Wrap(err, "failed to create knowledge item")
	}

	return item, nil
}

func (r *knowledgeRepository) Get(ctx context.Context, id model.KnowledgeID) (*model.KnowledgeItem, error) {
	doc, err := r.collection().Doc(id.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "knowledge item not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get knowledge item", goerr.V("id", id))
	}

	k, err := docToKnowledge(doc)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal knowledge item", goerr.V("id", id))
	}

	return k, nil
}

func (r *knowledgeRepository) Update(ctx context.Context, item *model.KnowledgeItem) (*model.KnowledgeItem, error) {
	existing, err := r.Get(ctx, item.ID)
	if err != nil {
		return nil, err
	}

	item.NormalizeTags()
	item.CreatedAt = existing.CreatedAt
	item.UpdatedAt = time.Now().UTC()

	docRef := r.collection().Doc(item.ID.String())
	if _, err := docRef.Set(ctx, toKnowledgeDoc(item)); err != nil {
		return nil, goerr.Wrap(err, "failed to update knowledge item", goerr.V("id", item.ID))
	}

	return item, nil
}

func (r *knowledgeRepository) Delete(ctx context.Context, id model.KnowledgeID) error {
	docRef := r.collection().Doc(id.String())
	if _, err := docRef.Get(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(ErrNotFound, "knowledge item not found", goerr.V("id", id))
		}
		return goerr.Wrap(err, "failed to get knowledge item", goerr.V("id", id))
	}

	if _, err := docRef.Delete(ctx); err != nil {
		return goerr.Wrap(err, "failed to delete knowledge item", goerr.V("id", id))
	}
	return nil
}

func (r *knowledgeRepository) Search(ctx context.Context, opts interfaces.KnowledgeSearchOptions) ([]*model.KnowledgeItem, error) {
	q := r.collection().Query
	if opts.PublishedOnly {
		q = q.Where("IsPublished", "==", true)
	}
	if opts.Source != "" {
		q = q.Where("Source", "==", opts.Source)
	}
	if len(opts.Categories) > 0 {
		q = q.Where("Category", "in", opts.Categories)
	}
	// Firestore allows a single array-contains clause; further tag filters
	// and the keyword match run client-side below.
	if len(opts.Tags) > 0 {
		q = q.Where("Tags", "array-contains", opts.Tags[0])
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	query := strings.ToLower(opts.Query)

	var result []*model.KnowledgeItem
	skipped := 0
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate knowledge search")
		}

		k, err := docToKnowledge(doc)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal knowledge item")
		}

		if !matchesClientSide(k, query, opts) {
			continue
		}

		if skipped < opts.Offset {
			skipped++
			continue
		}

		result = append(result, k)
		if opts.Limit > 0 && len(result) >= opts.Limit {
			break
		}
	}

	return result, nil
}

func matchesClientSide(k *model.KnowledgeItem, query string, opts interfaces.KnowledgeSearchOptions) bool {
	for _, tag := range opts.Tags {
		if !k.HasTag(tag) {
			return false
		}
	}
	if query != "" {
		if !strings.Contains(strings.ToLower(k.Title), query) &&
			!strings.Contains(strings.ToLower(k.Content), query) {
			return false
		}
	}
	return true
}

func (r *knowledgeRepository) ListWithPagination(ctx context.Context, limit, offset int) ([]*model.KnowledgeItem, int, error) {
	// Total count first
	countIter := r.collection().Documents(ctx)
	total := 0
	for {
		_, err := countIter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			countIter.Stop()
			return nil, 0, goerr.Wrap(err, "failed to count knowledge items")
		}
		total++
	}
	countIter.Stop()

	q := r.collection().OrderBy("CreatedAt", firestore.Desc).Offset(offset)
	if limit > 0 {
		q = q.Limit(limit)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	var result []*model.KnowledgeItem
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, 0, goerr.Wrap(err, "failed to list knowledge items")
		}

		k, err := docToKnowledge(doc)
		if err != nil {
			return nil, 0, goerr.Wrap(err, "failed to unmarshal knowledge item")
		}
		result = append(result, k)
	}

	return result, total, nil
}
