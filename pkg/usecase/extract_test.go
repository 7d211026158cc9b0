package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/support-lab/kotae/pkg/domain/model"
	"github.com/support-lab/kotae/pkg/domain/types"
	"github.com/support-lab/kotae/pkg/usecase"
)

func seedConversation(t *testing.T, f *fixture, customerID string) model.ConversationID {
	t.Helper()
	ctx := context.Background()

	conv := model.NewConversationID()
	for i, content := range []string{"How long do refunds take?", "Refunds take 5 business days."} {
		dir := types.DirectionInbound
		if i%2 == 1 {
			dir = types.DirectionOutbound
		}
		_, err := f.repo.Message().Append(ctx, &model.Message{
			CustomerID:     customerID,
			ConversationID: conv,
			Direction:      dir,
			Content:        content,
		})
		gt.NoError(t, err).Required()
	}
	return conv
}

func TestExtractFromConversation(t *testing.T) {
	ctx := context.Background()

	t.Run("high-confidence results are promoted unpublished", func(t *testing.T) {
		f := newFixture()
		f.extractor.results = []*model.ExtractionResult{
			{Title: "Refund timeline", Content: "Refunds take 5 business days.", Category: "billing", Confidence: 0.9},
			{Title: "Vague guess", Content: "Maybe something about shipping.", Confidence: 0.5},
		}
		conv := seedConversation(t, f, "cust-1")

		outcome, err := f.uc.Extract.FromConversation(ctx, conv)
		gt.NoError(t, err).Required()

		gt.Array(t, outcome.Extracted).Length(2)
		gt.Array(t, outcome.SavedIDs).Length(1)

		item, err := f.repo.Knowledge().Get(ctx, outcome.SavedIDs[0])
		gt.NoError(t, err).Required()
		gt.String(t, item.Title).Equal("Refund timeline")
		gt.Bool(t, item.IsPublished).False()

		// The promoted item was indexed for retrieval
		rec, err := f.repo.Embedding().GetBySource(ctx, item.ID.String(), types.SourceTypeKnowledgeItem)
		gt.NoError(t, err).Required()
		gt.String(t, rec.Model).Equal("fake-embedding")
	})

	t.Run("threshold boundary is inclusive", func(t *testing.T) {
		f := newFixture()
		f.extractor.results = []*model.ExtractionResult{
			{Title: "Exactly at threshold", Content: "body", Confidence: 0.7},
		}
		conv := seedConversation(t, f, "cust-1")

		outcome, err := f.uc.Extract.FromConversation(ctx, conv)
		gt.NoError(t, err).Required()
		gt.Array(t, outcome.SavedIDs).Length(1)
	})

	t.Run("unknown conversation is not found", func(t *testing.T) {
		f := newFixture()
		_, err := f.uc.Extract.FromConversation(ctx, model.NewConversationID())
		gt.Bool(t, errors.Is(err, usecase.ErrNotFound)).True()
	})

	t.Run("missing conversation ID is a validation error", func(t *testing.T) {
		f := newFixture()
		_, err := f.uc.Extract.FromConversation(ctx, "")
		gt.Bool(t, errors.Is(err, usecase.ErrValidation)).True()
	})
}

func TestExtractFromCorrection(t *testing.T) {
	ctx := context.Background()

	t.Run("promotes corrected knowledge", func(t *testing.T) {
		f := newFixture()
		f.extractor.results = []*model.ExtractionResult{
			{Title: "Refund window", Content: "The refund window is 14 days.", Confidence: 0.95},
		}

		outcome, err := f.uc.Extract.FromCorrection(ctx,
			"Refunds are available within 30 days.",
			"Refunds are available within 14 days.",
			"", "conv-1")
		gt.NoError(t, err).Required()
		gt.Array(t, outcome.SavedIDs).Length(1)
	})

	t.Run("requires both replies", func(t *testing.T) {
		f := newFixture()
		_, err := f.uc.Extract.FromCorrection(ctx, "original", "", "", "")
		gt.Bool(t, errors.Is(err, usecase.ErrValidation)).True()
	})

	t.Run("extraction failure propagates", func(t *testing.T) {
		f := newFixture()
		f.extractor.err = errors.New("backend down")
		_, err := f.uc.Extract.FromCorrection(ctx, "a", "b", "", "")
		gt.Error(t, err)
	})
}

func TestBatchFromConversations(t *testing.T) {
	ctx := context.Background()

	f := newFixture()
	f.extractor.results = []*model.ExtractionResult{
		{Title: "Something useful", Content: "body", Confidence: 0.8},
	}

	good1 := seedConversation(t, f, "cust-1")
	good2 := seedConversation(t, f, "cust-2")
	missing := model.NewConversationID()

	result := f.uc.Extract.BatchFromConversations(ctx, []model.ConversationID{good1, missing, good2})

	gt.Number(t, result.Processed).Equal(3)
	gt.Number(t, result.Success).Equal(2)
	gt.Number(t, result.Failed).Equal(1)

	gt.Array(t, result.Items).Length(3)
	gt.Bool(t, result.Items[0].Success).True()
	gt.Bool(t, result.Items[1].Success).False()
	gt.String(t, result.Items[1].Error).NotEqual("")
	gt.Bool(t, result.Items[2].Success).True()
}
