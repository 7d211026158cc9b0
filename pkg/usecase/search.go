package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/support-lab/kotae/pkg/domain/model"
	"github.com/support-lab/kotae/pkg/service/retrieval"
)

// SearchUseCase exposes knowledge search to callers
type SearchUseCase struct {
	parent *UseCases
}

// SearchInput narrows a semantic knowledge search
type SearchInput struct {
	Query      string
	MaxResults int
	Categories []string
	Tags       []string
}

// SearchMatch pairs an item with its relevance to the query
type SearchMatch struct {
	Item       *model.KnowledgeItem `json:"item"`
	Similarity float64              `json:"similarity"`
}

// Search runs a vector search over published knowledge with optional
// category and tag filters
func (u *SearchUseCase) Search(ctx context.Context, input SearchInput) ([]*SearchMatch, error) {
	if input.Query == "" {
		return nil, goerr.Wrap(model.ErrValidation, "query is required")
	}

	limit := input.MaxResults
	if limit <= 0 {
		limit = u.parent.cfg.RetrievalLimit
	}

	candidates, err := u.parent.engine.Retrieve(ctx, input.Query, retrieval.Options{
		Limit:         limit,
		MinSimilarity: u.parent.cfg.MinSimilarity,
		Categories:    input.Categories,
		Tags:          input.Tags,
		PublishedOnly: true,
	})
	if err != nil {
		return nil, err
	}

	matches := make([]*SearchMatch, 0, len(candidates))
	for _, c := range candidates {
		matches = append(matches, &SearchMatch{
			Item:       c.Item,
			Similarity: c.Similarity,
		})
	}

	return matches, nil
}
