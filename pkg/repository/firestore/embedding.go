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

type embeddingDoc struct {
	ID             model.EmbeddingID  `firestore:"ID"`
	SourceID       string             `firestore:"SourceID"`
	SourceType     string             `firestore:"SourceType"`
	Vector         firestore.Vector32 `firestore:"Vector"`
	Dimensions     int                `firestore:"Dimensions"`
	Model          string             `firestore:"Model"`
	Metadata       map[string]string  `firestore:"Metadata,omitempty"`
	CreatedAt      time.Time          `firestore:"CreatedAt"`
	UpdatedAt      time.Time          `firestore:"UpdatedAt"`
	VectorDistance float64            `firestore:"vector_distance,omitempty"`
}

func toEmbeddingDoc(rec *model.EmbeddingRecord) *embeddingDoc {
	return &embeddingDoc{
		ID:         rec.ID,
		SourceID:   rec.SourceID,
		SourceType: string(rec.SourceType),
		Vector:     firestore.Vector32(rec.Vector),
		Dimensions: rec.Dimensions,
		Model:      rec.Model,
		Metadata:   rec.Metadata,
		CreatedAt:  rec.CreatedAt,
		UpdatedAt:  rec.UpdatedAt,
	}
}

func fromEmbeddingDoc(d *embeddingDoc) *model.EmbeddingRecord {
	return &model.EmbeddingRecord{
		ID:         d.ID,
		SourceID:   d.SourceID,
		SourceType: types.SourceType(d.SourceType),
		Vector:     []float32(d.Vector),
		Dimensions: d.Dimensions,
		Model:      d.Model,
		Metadata:   d.Metadata,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

type embeddingRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newEmbeddingRepository(client *firestore.Client) *embeddingRepository {
	return &embeddingRepository{
		client: client,
	}
}

func (r *embeddingRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(r.collectionPrefix + "embeddings")
}

// docID keys the collection by source so that Set gives create-or-replace
// semantics per (SourceID, SourceType)
func docID(sourceID string, sourceType types.SourceType) string {
	return string(sourceType) + ":" + sourceID
}

func (r *embeddingRepository) Upsert(ctx context.Context, rec *model.EmbeddingRecord) (*model.EmbeddingRecord, error) {
	if rec.SourceID == "" {
		return nil, goerr.New("source ID is required")
	}
	if err := rec.SourceType.Validate(); err != nil {
		return nil, err
	}
	if len(rec.Vector) == 0 {
		return nil, goerr.New("vector is required", goerr.V("sourceID", rec.SourceID))
	}

	now := time.Now().UTC()
	rec.Dimensions = len(rec.Vector)
	rec.UpdatedAt = now

	docRef := r.collection().Doc(docID(rec.SourceID, rec.SourceType))

	existing, err := docRef.Get(ctx)
	switch {
	case err == nil:
		var d embeddingDoc
		if err := existing.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal embedding", goerr.V("sourceID", rec.SourceID))
		}
		rec.ID = d.ID
		rec.CreatedAt = d.CreatedAt
	case status.Code(err) == codes.NotFound:
		rec.ID = model.NewEmbeddingID()
		rec.CreatedAt = now
	default:
		return nil, goerr.Wrap(err, "failed to get embedding", goerr.V("sourceID", rec.SourceID))
	}

	if _, err := docRef.Set(ctx, toEmbeddingDoc(rec)); err != nil {
		return nil, goerr.Wrap(err, "failed to upsert embedding", goerr.V("sourceID", rec.SourceID))
	}

	return rec, nil
}

func (r *embeddingRepository) GetBySource(ctx context.Context, sourceID string, sourceType types.SourceType) (*model.EmbeddingRecord, error) {
	doc, err := r.collection().Doc(docID(sourceID, sourceType)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "embedding not found",
				goerr.V("sourceID", sourceID), goerr.V("sourceType", sourceType))
		}
		return nil, goerr.Wrap(err, "failed to get embedding", goerr.V("sourceID", sourceID))
	}

	var d embeddingDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal embedding", goerr.V("sourceID", sourceID))
	}

	return fromEmbeddingDoc(&d), nil
}

// FindSimilar runs a nearest-neighbor query over the embedding collection.
// Firestore returns cosine distance; similarity is 1 - distance. Requires a
// vector index on Vector, see the migrate command.
func (r *embeddingRepository) FindSimilar(ctx context.Context, vector []float32, sourceType types.SourceType, limit int, threshold float64) ([]*model.SimilarityMatch, error) {
	if limit <= 0 {
		return nil, nil
	}

	maxDistance := 1 - threshold
	q := r.collection().
		Where("SourceType", "==", string(sourceType)).
		FindNearest("Vector", firestore.Vector32(vector), limit, firestore.DistanceMeasureCosine,
			&firestore.FindNearestOptions{
				DistanceResultField: "vector_distance",
				DistanceThreshold:   &maxDistance,
			})

	iter := q.Documents(ctx)
	defer iter.Stop()

	var matches []*model.SimilarityMatch
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate nearest embeddings")
		}

		var d embeddingDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal embedding")
		}

		matches = append(matches, &model.SimilarityMatch{
			Record:     fromEmbeddingDoc(&d),
			Similarity: 1 - d.VectorDistance,
		})
	}

	return matches, nil
}

func (r *embeddingRepository) DeleteBySource(ctx context.Context, sourceID string, sourceType types.SourceType) (bool, error) {
	docRef := r.collection().Doc(docID(sourceID, sourceType))

	if _, err := docRef.Get(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return false, nil
		}
		return false, goerr.Wrap(err, "failed to get embedding", goerr.V("sourceID", sourceID))
	}

	if _, err := docRef.Delete(ctx); err != nil {
		return false, goerr.Wrap(err, "failed to delete embedding", goerr.V("sourceID", sourceID))
	}

	return true, nil
}
