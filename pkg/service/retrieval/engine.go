package retrieval

import (
	"context"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/support-lab/kotae/pkg/domain/interfaces"
	"github.com/support-lab/kotae/pkg/domain/model"
	"github.com/support-lab/kotae/pkg/domain/types"
	"github.com/support-lab/kotae/pkg/service/embedding"
	"github.com/support-lab/kotae/pkg/utils/errutil"
)

// DefaultMinSimilarity is the similarity cutoff applied when the caller does
// not specify one
const DefaultMinSimilarity = 0.3

// DefaultLimit bounds the candidate list when the caller does not specify one
const DefaultLimit = 5

// Candidate is a knowledge item ranked by vector similarity to a query
type Candidate struct {
	Item       *model.KnowledgeItem
	Similarity float64
}

// Options narrows a retrieval beyond the similarity search itself. Category
// and tag filters are exact intersections applied after the vector search.
type Options struct {
	Limit         int
	MinSimilarity float64
	Categories    []string
	Tags          []string
	PublishedOnly bool
}

// Engine ranks knowledge items against a text query
type Engine interface {
	Retrieve(ctx context.Context, query string, opts Options) ([]*Candidate, error)
	SearchText(ctx context.Context, query string, limit int) ([]*model.KnowledgeItem, error)
}

type Client struct {
	repo    interfaces.Repository
	gateway embedding.Gateway
}

var _ Engine = &Client{}

func New(repo interfaces.Repository, gateway embedding.Gateway) *Client {
	return &Client{
		repo:    repo,
		gateway: gateway,
	}
}

// Retrieve embeds the query, finds similar knowledge embeddings, and resolves
// each to its knowledge item. A match whose item no longer exists is treated
// as orphaned: its embedding is deleted and the match is excluded rather than
// surfaced as a dangling reference. Ties keep the store's natural order.
func (c *Client) Retrieve(ctx context.Context, query string, opts Options) ([]*Candidate, error) {
	if query == "" {
		return nil, goerr.Wrap(model.ErrValidation, "query is required for retrieval")
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	if opts.MinSimilarity <= 0 {
		opts.MinSimilarity = DefaultMinSimilarity
	}

	vector, err := c.gateway.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	matches, err := c.repo.Embedding().FindSimilar(ctx, vector, types.SourceTypeKnowledgeItem, opts.Limit, opts.MinSimilarity)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to search similar embeddings")
	}

	var candidates []*Candidate
	for _, match := range matches {
		item, err := c.repo.Knowledge().Get(ctx, model.KnowledgeID(match.Record.SourceID))
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				c.removeOrphan(ctx, match.Record)
				continue
			}
			return nil, goerr.Wrap(err, "failed to resolve knowledge item",
				goerr.V("sourceID", match.Record.SourceID))
		}

		if !matchesFilter(item, opts) {
			continue
		}

		candidates = append(candidates, &Candidate{
			Item:       item,
			Similarity: match.Similarity,
		})
	}

	return candidates, nil
}

func (c *Client) removeOrphan(ctx context.Context, rec *model.EmbeddingRecord) {
	if _, err := c.repo.Embedding().DeleteBySource(ctx, rec.SourceID, rec.SourceType); err != nil {
		errutil.Handle(ctx, err, "failed to delete orphaned embedding")
	}
}

// matchesFilter is a pure intersection check, no fuzzy matching
func matchesFilter(item *model.KnowledgeItem, opts Options) bool {
	if opts.PublishedOnly && !item.IsPublished {
		return false
	}
	if len(opts.Categories) > 0 {
		found := false
		for _, cat := range opts.Categories {
			if item.Category == cat {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for _, tag := range opts.Tags {
		if !item.HasTag(tag) {
			return false
		}
	}
	return true
}

// SearchText runs a keyword search over the knowledge store. The
// organization path uses this to find neighbors without the embedding
// round-trip.
func (c *Client) SearchText(ctx context.Context, query string, limit int) ([]*model.KnowledgeItem, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	items, err := c.repo.Knowledge().Search(ctx, interfaces.KnowledgeSearchOptions{
		Query: query,
		Limit: limit,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to search knowledge by text")
	}
	return items, nil
}
