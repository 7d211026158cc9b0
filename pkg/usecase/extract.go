package usecase

import (
	"context"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/support-lab/kotae/pkg/domain/model"
	"github.com/support-lab/kotae/pkg/domain/types"
	"github.com/support-lab/kotae/pkg/utils/errutil"
	"github.com/support-lab/kotae/pkg/utils/logging"
)

// ExtractUseCase mines knowledge from conversations and corrections and
// promotes high-confidence results into the knowledge store
type ExtractUseCase struct {
	parent *UseCases
}

// ExtractionOutcome reports what an extraction produced: every candidate the
// model returned plus the IDs of those that passed promotion.
type ExtractionOutcome struct {
	Extracted []*model.ExtractionResult `json:"extracted"`
	SavedIDs  []model.KnowledgeID       `json:"saved_ids"`
}

// FromConversation extracts knowledge from a stored conversation transcript
func (u *ExtractUseCase) FromConversation(ctx context.Context, conversationID model.ConversationID) (*ExtractionOutcome, error) {
	if conversationID == "" {
		return nil, goerr.Wrap(model.ErrValidation, "conversation ID is required")
	}

	messages, err := u.parent.repo.Message().ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load conversation", goerr.V("conversationID", conversationID))
	}
	if len(messages) == 0 {
		return nil, goerr.Wrap(model.ErrNotFound, "conversation has no messages",
			goerr.V("conversationID", conversationID))
	}

	conv := &model.Conversation{
		ID:         conversationID,
		CustomerID: messages[0].CustomerID,
		Messages:   messages,
	}

	results, err := u.parent.extractor.FromConversation(ctx, conv)
	if err != nil {
		return nil, err
	}

	saved, err := u.promote(ctx, results)
	if err != nil {
		return nil, err
	}

	return &ExtractionOutcome{Extracted: results, SavedIDs: saved}, nil
}

// promoteFromConversation is the async feedback entry: malformed model
// output degrades to an empty result instead of an error.
func (u *ExtractUseCase) promoteFromConversation(ctx context.Context, conv *model.Conversation) ([]model.KnowledgeID, error) {
	results, err := u.parent.extractor.FromConversation(ctx, conv)
	if err != nil {
		if errors.Is(err, model.ErrMalformedOutput) {
			errutil.Handle(ctx, err, "extraction output was malformed, skipping")
			return nil, nil
		}
		return nil, err
	}
	return u.promote(ctx, results)
}

// FromCorrection extracts knowledge from a human-corrected reply pair
func (u *ExtractUseCase) FromCorrection(ctx context.Context, original, corrected, background string, conversationID model.ConversationID) (*ExtractionOutcome, error) {
	if original == "" || corrected == "" {
		return nil, goerr.Wrap(model.ErrValidation, "original and corrected replies are required")
	}

	results, err := u.parent.extractor.FromCorrection(ctx, original, corrected, background, conversationID)
	if err != nil {
		return nil, err
	}

	saved, err := u.promote(ctx, results)
	if err != nil {
		return nil, err
	}

	return &ExtractionOutcome{Extracted: results, SavedIDs: saved}, nil
}

// promote persists results at or above the confidence threshold as
// unpublished knowledge items and indexes their embeddings. Sub-threshold
// results are discarded, not queued.
func (u *ExtractUseCase) promote(ctx context.Context, results []*model.ExtractionResult) ([]model.KnowledgeID, error) {
	var saved []model.KnowledgeID
	for _, r := range results {
		if r.Confidence < u.parent.cfg.ExtractionMinConfidence {
			continue
		}

		item, err := u.parent.repo.Knowledge().Create(ctx, r.ToKnowledgeItem())
		if err != nil {
			return saved, goerr.Wrap(err, "failed to save extracted knowledge", goerr.V("title", r.Title))
		}
		saved = append(saved, item.ID)

		if err := u.indexItem(ctx, item); err != nil {
			// The item is saved; a missing embedding only hurts recall until
			// the next re-index.
			errutil.Handle(ctx, err, "failed to index extracted knowledge")
		}
	}
	return saved, nil
}

func (u *ExtractUseCase) indexItem(ctx context.Context, item *model.KnowledgeItem) error {
	if u.parent.gateway == nil {
		return nil
	}

	vector, err := u.parent.gateway.Embed(ctx, item.Title+"\n"+item.Content)
	if err != nil {
		return err
	}

	_, err = u.parent.repo.Embedding().Upsert(ctx, &model.EmbeddingRecord{
		SourceID:   item.ID.String(),
		SourceType: types.SourceTypeKnowledgeItem,
		Vector:     vector,
		Model:      u.parent.gateway.Model(),
	})
	return err
}

// BatchFromConversations extracts from each conversation independently. One
// failure is recorded in its status and does not abort the batch.
func (u *ExtractUseCase) BatchFromConversations(ctx context.Context, ids []model.ConversationID) *BatchResult {
	result := &BatchResult{}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			result.record(string(id), err)
			continue
		}

		outcome, err := u.FromConversation(ctx, id)
		if err != nil {
			errutil.Handle(ctx, err, "batch extraction item failed")
			result.record(string(id), err)
			continue
		}

		logging.From(ctx).Debug("batch extraction item done",
			"conversationID", id, "saved", len(outcome.SavedIDs))
		result.record(string(id), nil)
	}
	return result
}
