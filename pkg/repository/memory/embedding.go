package memory

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/support-lab/kotae/pkg/domain/model"
	"github.com/support-lab/kotae/pkg/domain/types"
)

// embedKey is the unique key of an embedding record
type embedKey struct {
	sourceID   string
	sourceType types.SourceType
}

type embeddingRepository struct {
	mu      sync.RWMutex
	records map[embedKey]*model.EmbeddingRecord
	order   []embedKey
}

func newEmbeddingRepository() *embeddingRepository {
	return &embeddingRepository{
		records: make(map[embedKey]*model.EmbeddingRecord),
	}
}

func copyEmbedding(e *model.EmbeddingRecord) *model.EmbeddingRecord {
	copied := &model.EmbeddingRecord{
		ID:         e.ID,
		SourceID:   e.SourceID,
		SourceType: e.SourceType,
		Dimensions: e.Dimensions,
		Model:      e.Model,
		CreatedAt:  e.CreatedAt,
		UpdatedAt:  e.UpdatedAt,
	}
	if e.Vector != nil {
		copied.Vector = make([]float32, len(e.Vector))
		copy(copied.Vector, e.Vector)
	}
	if e.Metadata != nil {
		copied.Metadata = make(map[string]string, len(e.Metadata))
		for k, v := range e.Metadata {
			copied.Metadata[k] = v
		}
	}
	return copied
}

func (r *embeddingRepository) Upsert(ctx context.Context, record *model.EmbeddingRecord) (*model.EmbeddingRecord, error) {
	if err := record.SourceType.Validate(); err != nil {
		return nil, err
	}
	if record.SourceID == "" {
		return nil, goerr.New("embedding source ID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	key := embedKey{sourceID: record.SourceID, sourceType: record.SourceType}

	stored := copyEmbedding(record)
	stored.Dimensions = len(stored.Vector)

	if prev, exists := r.records[key]; exists {
		// Replace keeps identity and insertion position
		stored.ID = prev.ID
		stored.CreatedAt = prev.CreatedAt
	} else {
		if stored.ID == "" {
			stored.ID = model.NewEmbeddingID()
		}
		stored.CreatedAt = now
		r.order = append(r.order, key)
	}
	stored.UpdatedAt = now

	r.records[key] = stored
	return copyEmbedding(stored), nil
}

func (r *embeddingRepository) GetBySource(ctx context.Context, sourceID string, sourceType types.SourceType) (*model.EmbeddingRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, exists := r.records[embedKey{sourceID: sourceID, sourceType: sourceType}]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "embedding not found",
			goerr.V("sourceID", sourceID), goerr.V("sourceType", sourceType))
	}

	return copyEmbedding(record), nil
}

func (r *embeddingRepository) FindSimilar(ctx context.Context, vector []float32, sourceType types.SourceType, limit int, threshold float64) ([]*model.SimilarityMatch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// Linear scan in insertion order so that equal scores keep the store's
	// natural order after the stable sort.
	var matches []*model.SimilarityMatch
	for _, key := range r.order {
		record := r.records[key]
		if record.SourceType != sourceType {
			continue
		}
		if len(record.Vector) != len(vector) {
			// Dimensionality mismatch excludes the record from this search
			continue
		}

		similarity := cosineSimilarity(vector, record.Vector)
		if similarity < threshold {
			continue
		}

		matches = append(matches, &model.SimilarityMatch{
			Record:     copyEmbedding(record),
			Similarity: similarity,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	return matches, nil
}

func (r *embeddingRepository) DeleteBySource(ctx context.Context, sourceID string, sourceType types.SourceType) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := embedKey{sourceID: sourceID, sourceType: sourceType}
	if _, exists := r.records[key]; !exists {
		return false, nil
	}

	delete(r.records, key)
	for i, k := range r.order {
		if k == key {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true, nil
}

// cosineSimilarity returns the cosine similarity of two vectors, or 0 when
// either vector has zero magnitude.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}

	return dot / denom
}
