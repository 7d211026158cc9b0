package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/support-lab/kotae/pkg/domain/interfaces"
	"github.com/support-lab/kotae/pkg/domain/model"
)

type knowledgeRepository struct {
	mu    sync.RWMutex
	items map[model.KnowledgeID]*model.KnowledgeItem
	order []model.KnowledgeID
}

func newKnowledgeRepository() *knowledgeRepository {
	return &knowledgeRepository{
		items: make(map[model.KnowledgeID]*model.KnowledgeItem),
	}
}

// copyKnowledgeItem creates a deep copy of a knowledge item
func copyKnowledgeItem(k *model.KnowledgeItem) *model.KnowledgeItem {
	copied := &model.KnowledgeItem{
		ID:          k.ID,
		Title:       k.Title,
		Content:     k.Content,
		Category:    k.Category,
		Source:      k.Source,
		IsPublished: k.IsPublished,
		CreatedAt:   k.CreatedAt,
		UpdatedAt:   k.UpdatedAt,
	}

	if k.Tags != nil {
		copied.Tags = make([]string, len(k.Tags))
		copy(copied.Tags, k.Tags)
	}

	if k.Metadata.Relations != nil {
		copied.Metadata.Relations = make([]model.Relation, len(k.Metadata.Relations))
		copy(copied.Metadata.Relations, k.Metadata.Relations)
	}
	if k.Metadata.ExtractedFrom != nil {
		origin := *k.Metadata.ExtractedFrom
		if k.Metadata.ExtractedFrom.MessageIDs != nil {
			origin.MessageIDs = make([]model.MessageID, len(k.Metadata.ExtractedFrom.MessageIDs))
			copy(origin.MessageIDs, k.Metadata.ExtractedFrom.MessageIDs)
		}
		copied.Metadata.ExtractedFrom = &origin
	}

	return copied
}

func (r *knowledgeRepository) Create(ctx context.Context, item *model.KnowledgeItem) (*model.KnowledgeItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	created := copyKnowledgeItem(item)
	if created.ID == "" {
		created.ID = model.NewKnowledgeID()
	}
	created.NormalizeTags()
	created.CreatedAt = now
	created.UpdatedAt = now

	if _, exists := r.items[created.ID]; !exists {
		r.order = append(r.order, created.ID)
	}
	r.items[created.ID] = created
	return copyKnowledgeItem(created), nil
}

func (r *knowledgeRepository) Get(ctx context.Context, id model.KnowledgeID) (*model.KnowledgeItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, exists := r.items[id]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "knowledge item not found", goerr.V("id", id))
	}

	return copyKnowledgeItem(item), nil
}

func (r *knowledgeRepository) Update(ctx context.Context, item *model.KnowledgeItem) (*model.KnowledgeItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, exists := r.items[item.ID]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "knowledge item not found", goerr.V("id", item.ID))
	}

	updated := copyKnowledgeItem(item)
	updated.NormalizeTags()
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = time.Now().UTC()

	r.items[updated.ID] = updated
	return copyKnowledgeItem(updated), nil
}

func (r *knowledgeRepository) Delete(ctx context.Context, id model.KnowledgeID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[id]; !exists {
		return goerr.Wrap(ErrNotFound, "knowledge item not found", goerr.V("id", id))
	}

	delete(r.items, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *knowledgeRepository) Search(ctx context.Context, opts interfaces.KnowledgeSearchOptions) ([]*model.KnowledgeItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := strings.ToLower(opts.Query)

	var result []*model.KnowledgeItem
	for _, id := range r.order {
		item := r.items[id]
		if !matchesSearch(item, query, opts) {
			continue
		}
		result = append(result, copyKnowledgeItem(item))
	}

	if opts.Offset > 0 {
		if opts.Offset >= len(result) {
			return []*model.KnowledgeItem{}, nil
		}
		result = result[opts.Offset:]
	}
	if opts.Limit > 0 && len(result) > opts.Limit {
		result = result[:opts.Limit]
	}

	return result, nil
}

func matchesSearch(item *model.KnowledgeItem, query string, opts interfaces.KnowledgeSearchOptions) bool {
	if opts.PublishedOnly && !item.IsPublished {
		return false
	}
	if opts.Source != "" && item.Source != opts.Source {
		return false
	}

	if len(opts.Categories) > 0 {
		found := false
		for _, c := range opts.Categories {
			if item.Category == c {
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

	if query != "" {
		title := strings.ToLower(item.Title)
		content := strings.ToLower(item.Content)
		if !strings.Contains(title, query) && !strings.Contains(content, query) {
			return false
		}
	}

	return true
}

func (r *knowledgeRepository) ListWithPagination(ctx context.Context, limit, offset int) ([]*model.KnowledgeItem, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*model.KnowledgeItem, 0, len(r.items))
	for _, id := range r.order {
		all = append(all, copyKnowledgeItem(r.items[id]))
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	totalCount := len(all)

	if offset >= len(all) {
		return []*model.KnowledgeItem{}, totalCount, nil
	}

	end := offset + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}

	return all[offset:end], totalCount, nil
}
