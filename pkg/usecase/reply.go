package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/support-lab/kotae/pkg/domain/model"
	"github.com/support-lab/kotae/pkg/domain/types"
	"github.com/support-lab/kotae/pkg/service/generation"
	"github.com/support-lab/kotae/pkg/service/reply"
	"github.com/support-lab/kotae/pkg/service/retrieval"
	"github.com/support-lab/kotae/pkg/utils/async"
	"github.com/support-lab/kotae/pkg/utils/errutil"
	"github.com/support-lab/kotae/pkg/utils/logging"
)

// ReplyUseCase runs the full retrieval-augmented reply pipeline
type ReplyUseCase struct {
	parent *UseCases
}

// Generate turns a customer query into a reply: retrieve knowledge, route to
// a generation backend, assemble the prompt, generate, post-process, score
// confidence. The outbound message is appended to the conversation and the
// transcript is handed to extraction asynchronously; a slow extraction never
// delays the reply.
func (u *ReplyUseCase) Generate(ctx context.Context, req *model.GenerationRequest) (*model.GenerationResult, error) {
	if req == nil || req.CustomerID == "" || req.Query == "" {
		return nil, goerr.Wrap(model.ErrValidation, "customer ID and query are required")
	}

	uc := u.parent

	history, err := u.loadHistory(ctx, req)
	if err != nil {
		return nil, err
	}

	inbound, err := uc.repo.Message().Append(ctx, &model.Message{
		ID:         req.MessageID,
		CustomerID: req.CustomerID,
		Direction:  types.DirectionInbound,
		Content:    req.Query,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to record customer message")
	}

	limit := req.MaxResults
	if limit <= 0 {
		limit = uc.cfg.RetrievalLimit
	}

	candidates, err := uc.engine.Retrieve(ctx, req.Query, retrieval.Options{
		Limit:         limit,
		MinSimilarity: uc.cfg.MinSimilarity,
		PublishedOnly: true,
	})
	if err != nil {
		return nil, err
	}

	tier := uc.router.Route(req.Query, candidates)
	provider, err := uc.providers.For(tier)
	if err != nil {
		return nil, err
	}

	prompt := reply.AssemblePrompt(req.Query, candidates, history, uc.cfg.HistoryWindow)

	text, err := provider.Generate(ctx, prompt, req.Params)
	if err != nil {
		return nil, err
	}

	text = reply.PostProcess(text, req.Query)

	sources := make([]model.ReplySource, 0, len(candidates))
	for _, c := range candidates {
		sources = append(sources, model.ReplySource{
			KnowledgeID: c.Item.ID,
			Title:       c.Item.Title,
			Similarity:  c.Similarity,
		})
	}

	result := &model.GenerationResult{
		Reply:      text,
		Confidence: reply.Confidence(text, len(sources)),
		Sources:    sources,
		Metadata: model.GenerationMetadata{
			Tier:       tier,
			Model:      provider.Model(),
			Complexity: generation.Complexity(req.Query),
			Params:     req.Params,
		},
	}

	outbound, err := uc.repo.Message().Append(ctx, &model.Message{
		CustomerID:     req.CustomerID,
		ConversationID: inbound.ConversationID,
		Direction:      types.DirectionOutbound,
		Content:        text,
	})
	if err != nil {
		// The reply itself succeeded; losing the transcript entry is logged
		// but not surfaced to the customer.
		errutil.Handle(ctx, err, "failed to record outbound message")
		return result, nil
	}

	u.dispatchExtraction(ctx, inbound.ConversationID, req.CustomerID,
		append(append([]*model.Message{}, history...), inbound, outbound))

	return result, nil
}

func (u *ReplyUseCase) loadHistory(ctx context.Context, req *model.GenerationRequest) ([]*model.Message, error) {
	if len(req.History) > 0 {
		return req.History, nil
	}

	// ListByCustomer returns newest first; the prompt wants chronological
	recent, err := u.parent.repo.Message().ListByCustomer(ctx, req.CustomerID, u.parent.cfg.HistoryWindow)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load conversation history")
	}
	history := make([]*model.Message, len(recent))
	for i, msg := range recent {
		history[len(recent)-1-i] = msg
	}
	return history, nil
}

// dispatchExtraction feeds the finished exchange back into the knowledge
// loop without blocking the caller
func (u *ReplyUseCase) dispatchExtraction(ctx context.Context, conversationID model.ConversationID, customerID string, messages []*model.Message) {
	if u.parent.extractor == nil {
		return
	}

	conv := &model.Conversation{
		ID:         conversationID,
		CustomerID: customerID,
		Messages:   messages,
	}

	async.Dispatch(ctx, func(ctx context.Context) error {
		saved, err := u.parent.Extract.promoteFromConversation(ctx, conv)
		if err != nil {
			return err
		}
		if len(saved) > 0 {
			logging.From(ctx).Info("extracted knowledge from conversation",
				"conversationID", conversationID, "saved", len(saved))
		}
		return nil
	})
}
