package interfaces

import (
	"context"

	"github.com/support-lab/kotae/pkg/domain/model"
	"github.com/support-lab/kotae/pkg/domain/types"
)

// EmbeddingRepository is the vector store. It owns no business logic; it
// persists embedding records and computes similarity.
type EmbeddingRepository interface {
	// Upsert creates or replaces the record for (SourceID, SourceType).
	// At most one record exists per key.
	Upsert(ctx context.Context, record *model.EmbeddingRecord) (*model.EmbeddingRecord, error)

	// GetBySource retrieves the record for (sourceID, sourceType)
	GetBySource(ctx context.Context, sourceID string, sourceType types.SourceType) (*model.EmbeddingRecord, error)

	// FindSimilar returns records of the given source type whose cosine
	// similarity to the query vector is at least threshold, sorted
	// non-increasing by similarity and truncated to limit. Records whose
	// dimensionality differs from the query vector are skipped, not errors.
	// For equal similarity the store's insertion order is kept.
	FindSimilar(ctx context.Context, vector []float32, sourceType types.SourceType, limit int, threshold float64) ([]*model.SimilarityMatch, error)

	// DeleteBySource removes the record for (sourceID, sourceType).
	// Returns false when no record existed.
	DeleteBySource(ctx context.Context, sourceID string, sourceType types.SourceType) (bool, error)
}
