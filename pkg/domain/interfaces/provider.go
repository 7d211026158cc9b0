package interfaces

import (
	"context"

	"github.com/support-lab/kotae/pkg/domain/model"
)

// EmbeddingProvider converts text into fixed-length vectors. The signature
// matches gollem.LLMClient so any gollem backend satisfies it directly.
// Callers must not assume a fixed dimensionality across providers.
type EmbeddingProvider interface {
	GenerateEmbedding(ctx context.Context, dimension int, input []string) ([][]float64, error)
}

// GenerationProvider is the single capability a generation backend must
// implement. Adding a backend means implementing this, not touching the
// router.
type GenerationProvider interface {
	// Generate produces text for the given prompt. Provider errors
	// propagate to the caller unmodified; there is no silent fallback.
	Generate(ctx context.Context, prompt string, params model.GenerationParams) (string, error)

	// Model returns the backing model name for result metadata
	Model() string
}
