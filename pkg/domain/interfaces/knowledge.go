package interfaces

import (
	"context"

	"github.com/support-lab/kotae/pkg/domain/model"
)

// KnowledgeSearchOptions filters a knowledge search. All filters are pure
// intersections; there is no fuzzy matching at the store level.
type KnowledgeSearchOptions struct {
	// Query is matched case-insensitively against title and content
	Query string

	// Categories restricts results to items in any of the given categories
	Categories []string

	// Tags restricts results to items carrying all of the given tags
	Tags []string

	// Source restricts results to items from the given source
	Source string

	// PublishedOnly excludes unpublished (pending review) items
	PublishedOnly bool

	Limit  int
	Offset int
}

// KnowledgeRepository defines the interface for KnowledgeItem persistence
type KnowledgeRepository interface {
	// Create creates a new knowledge item
	Create(ctx context.Context, item *model.KnowledgeItem) (*model.KnowledgeItem, error)

	// Get retrieves a knowledge item by ID
	Get(ctx context.Context, id model.KnowledgeID) (*model.KnowledgeItem, error)

	// Update replaces a knowledge item. Last writer wins per item; there is
	// no cross-item transaction.
	Update(ctx context.Context, item *model.KnowledgeItem) (*model.KnowledgeItem, error)

	// Delete deletes a knowledge item by ID
	Delete(ctx context.Context, id model.KnowledgeID) error

	// Search returns items matching the filter options
	Search(ctx context.Context, opts KnowledgeSearchOptions) ([]*model.KnowledgeItem, error)

	// ListWithPagination retrieves knowledge items with pagination.
	// Returns items, total count, and error.
	ListWithPagination(ctx context.Context, limit, offset int) ([]*model.KnowledgeItem, int, error)
}
