package usecase

import (
	"context"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/support-lab/kotae/pkg/domain/model"
	"github.com/support-lab/kotae/pkg/utils/errutil"
	"golang.org/x/sync/errgroup"
)

// OrganizeUseCase assigns taxonomy to knowledge items and applies the
// proposals back to the store
type OrganizeUseCase struct {
	parent *UseCases
}

// Organize produces category, tag, and relation suggestions for one item
func (u *OrganizeUseCase) Organize(ctx context.Context, id model.KnowledgeID) (*model.OrganizationResult, error) {
	if id == "" {
		return nil, goerr.Wrap(model.ErrValidation, "knowledge ID is required")
	}

	item, err := u.parent.repo.Knowledge().Get(ctx, id)
	if err != nil {
		return nil, err
	}

	return u.parent.organizer.Organize(ctx, item)
}

// ApplyInput selects which parts of an organization result get written
type ApplyInput struct {
	Result          *model.OrganizationResult
	ApplyCategories bool
	ApplyTags       bool
	ApplyRelations  bool
}

// Apply writes an organization result into the item: the highest-confidence
// category, the top tags by confidence, and the top relations by strength.
// The relation list is replaced wholesale, never merged; callers that need
// accumulation must re-derive from source data.
func (u *OrganizeUseCase) Apply(ctx context.Context, input ApplyInput) (bool, error) {
	if input.Result == nil || input.Result.KnowledgeID == "" {
		return false, goerr.Wrap(model.ErrValidation, "organization result with knowledge ID is required")
	}

	item, err := u.parent.repo.Knowledge().Get(ctx, input.Result.KnowledgeID)
	if err != nil {
		return false, err
	}

	changed := false

	if input.ApplyCategories && len(input.Result.Categories) > 0 {
		top := input.Result.Categories[0]
		if item.Category != top.Value {
			item.Category = top.Value
			changed = true
		}
	}

	if input.ApplyTags && len(input.Result.Tags) > 0 {
		tags := make([]string, 0, u.parent.cfg.MaxTags)
		for i, s := range input.Result.Tags {
			if i >= u.parent.cfg.MaxTags {
				break
			}
			tags = append(tags, s.Value)
		}
		item.Tags = tags
		changed = true
	}

	if input.ApplyRelations {
		relations := make([]model.Relation, 0, u.parent.cfg.MaxRelations)
		for i, rel := range input.Result.Relations {
			if i >= u.parent.cfg.MaxRelations {
				break
			}
			relations = append(relations, rel)
		}
		item.Metadata.Relations = relations
		changed = true
	}

	if !changed {
		return false, nil
	}

	if _, err := u.parent.repo.Knowledge().Update(ctx, item); err != nil {
		return false, goerr.Wrap(err, "failed to apply organization result",
			goerr.V("knowledgeID", item.ID))
	}

	return true, nil
}

// Batch organizes each item independently with bounded parallelism and
// applies every proposal in full. Per-item failures are captured in the
// result, not propagated.
func (u *OrganizeUseCase) Batch(ctx context.Context, ids []model.KnowledgeID) *BatchResult {
	result := &BatchResult{}
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(u.parent.cfg.BatchConcurrency)

	for _, id := range ids {
		g.Go(func() error {
			err := u.organizeAndApply(ctx, id)
			if err != nil {
				errutil.Handle(ctx, err, "batch organization item failed")
			}

			mu.Lock()
			result.record(id.String(), err)
			mu.Unlock()
			return nil
		})
	}

	// Workers never return errors; Wait only fences completion
	_ = g.Wait()

	return result
}

// BatchAll organizes every knowledge item in the store
func (u *OrganizeUseCase) BatchAll(ctx context.Context) (*BatchResult, error) {
	const pageSize = 100

	var ids []model.KnowledgeID
	for offset := 0; ; offset += pageSize {
		items, total, err := u.parent.repo.Knowledge().ListWithPagination(ctx, pageSize, offset)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list knowledge items")
		}
		for _, item := range items {
			ids = append(ids, item.ID)
		}
		if offset+len(items) >= total || len(items) == 0 {
			break
		}
	}

	return u.Batch(ctx, ids), nil
}

func (u *OrganizeUseCase) organizeAndApply(ctx context.Context, id model.KnowledgeID) error {
	orgResult, err := u.Organize(ctx, id)
	if err != nil {
		return err
	}

	_, err = u.Apply(ctx, ApplyInput{
		Result:          orgResult,
		ApplyCategories: true,
		ApplyTags:       true,
		ApplyRelations:  true,
	})
	return err
}
