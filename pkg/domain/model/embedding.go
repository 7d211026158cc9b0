package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/support-lab/kotae/pkg/domain/types"
)

// DefaultEmbeddingDimension is the dimension of the embedding vector.
// Gemini text-embedding-004 uses 768 dimensions.
const DefaultEmbeddingDimension = 768

// EmbeddingID is a UUID-based identifier for EmbeddingRecord
type EmbeddingID string

// NewEmbeddingID generates a new UUID v4 EmbeddingID
func NewEmbeddingID() EmbeddingID {
	return EmbeddingID(uuid.New().String())
}

// EmbeddingRecord holds the vector representation of a source entity.
// At most one record exists per (SourceID, SourceType); writes are
// create-or-replace on that key.
type EmbeddingRecord struct {
	ID         EmbeddingID
	SourceID   string
	SourceType types.SourceType
	Vector     []float32
	Dimensions int
	Model      string
	Metadata   map[string]string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// SimilarityMatch pairs an embedding record with its similarity to a query
// vector. Results are sorted non-increasing by Similarity.
type SimilarityMatch struct {
	Record     *EmbeddingRecord
	Similarity float64
}
