package organization_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gt"
	"github.com/support-lab/kotae/pkg/domain/model"
	"github.com/support-lab/kotae/pkg/service/organization"
	"github.com/support-lab/kotae/pkg/service/retrieval"
)

// ----- mock LLM client -----

type mockLLMSession struct {
	response string
	err      error
}

func (s *mockLLMSession) GenerateContent(ctx context.Context, input ...gollem.Input) (*gollem.Response, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &gollem.Response{Texts: []string{s.response}}, nil
}

func (s *mockLLMSession) Generate(ctx context.Context, input []gollem.Input, options ...gollem.GenerateOption) (*gollem.Response, error) {
	return s.GenerateContent(ctx, input...)
}

func (s *mockLLMSession) GenerateStream(ctx context.Context, input ...gollem.Input) (<-chan *gollem.Response, error) {
	return nil, nil
}

func (s *mockLLMSession) Stream(ctx context.Context, input []gollem.Input, opts ...gollem.GenerateOption) (<-chan *gollem.Response, error) {
	return nil, nil
}

func (s *mockLLMSession) History() (*gollem.History, error) {
	return nil, nil
}

func (s *mockLLMSession) AppendHistory(*gollem.History) error {
	return nil
}

func (s *mockLLMSession) CountToken(ctx context.Context, input ...gollem.Input) (int, error) {
	return 0, nil
}

type mockLLMClient struct {
	response string
	err      error
}

func (c *mockLLMClient) NewSession(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
	return &mockLLMSession{response: c.response, err: c.err}, nil
}

func (c *mockLLMClient) GenerateEmbedding(ctx context.Context, dimension int, input []string) ([][]float64, error) {
	return nil, nil
}

// ----- fake retrieval engine -----

type fakeEngine struct {
	neighbors []*model.KnowledgeItem
	err       error
}

func (e *fakeEngine) Retrieve(ctx context.Context, query string, opts retrieval.Options) ([]*retrieval.Candidate, error) {
	return nil, nil
}

func (e *fakeEngine) SearchText(ctx context.Context, query string, limit int) ([]*model.KnowledgeItem, error) {
	if e.err != nil {
		return nil, e.err
	}
	if limit < len(e.neighbors) {
		return e.neighbors[:limit], nil
	}
	return e.neighbors, nil
}

func item(id, title string) *model.KnowledgeItem {
	return &model.KnowledgeItem{
		ID:      model.KnowledgeID(id),
		Title:   title,
		Content: "content of " + title,
	}
}

func TestOrganize(t *testing.T) {
	ctx := context.Background()

	t.Run("suggestions are parsed and sorted by confidence", func(t *testing.T) {
		engine := &fakeEngine{neighbors: []*model.KnowledgeItem{
			item("n-1", "Refund policy"),
			item("n-2", "Refund exceptions"),
		}}
		llm := &mockLLMClient{response: `{
			"categories": [
				{"value": "payments", "confidence": 0.4, "reason": "mentions charges"},
				{"value": "billing", "confidence": 0.9, "reason": "core topic"}
			],
			"tags": [
				{"value": "Refund", "confidence": 0.7},
				{"value": "chargeback", "confidence": 0.9},
				{"value": "policy", "confidence": 0.5}
			],
			"relations": [
				{"target_id": "n-2", "type": "related", "strength": 0.6, "reason": "same topic"},
				{"target_id": "n-1", "type": "parent", "strength": 0.9, "reason": "general form"}
			]
		}`}

		svc, err := organization.New(llm, engine, organization.WithCategories([]string{"billing", "shipping"}))
		gt.NoError(t, err).Required()

		target := item("k-1", "Refund chargebacks")
		result, err := svc.Organize(ctx, target)
		gt.NoError(t, err).Required()

		gt.Value(t, result.KnowledgeID).Equal(target.ID)

		gt.Array(t, result.Categories).Length(2)
		gt.String(t, result.Categories[0].Value).Equal("billing")

		gt.Array(t, result.Tags).Length(3)
		gt.String(t, result.Tags[0].Value).Equal("chargeback")
		// Tags come back lowercased
		gt.String(t, result.Tags[1].Value).Equal("refund")

		gt.Array(t, result.Relations).Length(2)
		gt.Value(t, result.Relations[0].TargetID).Equal(model.KnowledgeID("n-1"))
		gt.Value(t, result.Relations[0].SourceID).Equal(target.ID)
		gt.Number(t, result.Relations[0].Strength).Equal(0.9)
	})

	t.Run("relations to unknown targets are skipped", func(t *testing.T) {
		engine := &fakeEngine{neighbors: []*model.KnowledgeItem{item("n-1", "Known")}}
		llm := &mockLLMClient{response: `{
			"categories": [], "tags": [],
			"relations": [
				{"target_id": "ghost", "type": "related", "strength": 0.8},
				{"target_id": "n-1", "type": "similar", "strength": 0.7}
			]
		}`}

		svc, err := organization.New(llm, engine)
		gt.NoError(t, err).Required()

		result, err := svc.Organize(ctx, item("k-1", "Target"))
		gt.NoError(t, err).Required()
		gt.Array(t, result.Relations).Length(1)
		gt.Value(t, result.Relations[0].TargetID).Equal(model.KnowledgeID("n-1"))
	})

	t.Run("unknown relation type is malformed output", func(t *testing.T) {
		engine := &fakeEngine{neighbors: []*model.KnowledgeItem{item("n-1", "Known")}}
		llm := &mockLLMClient{response: `{
			"categories": [], "tags": [],
			"relations": [{"target_id": "n-1", "type": "friend", "strength": 0.8}]
		}`}

		svc, err := organization.New(llm, engine)
		gt.NoError(t, err).Required()

		_, err = svc.Organize(ctx, item("k-1", "Target"))
		gt.Bool(t, errors.Is(err, model.ErrMalformedOutput)).True()
	})

	t.Run("malformed JSON is malformed output", func(t *testing.T) {
		engine := &fakeEngine{}
		llm := &mockLLMClient{response: `not json`}

		svc, err := organization.New(llm, engine)
		gt.NoError(t, err).Required()

		_, err = svc.Organize(ctx, item("k-1", "Target"))
		gt.Bool(t, errors.Is(err, model.ErrMalformedOutput)).True()
	})

	t.Run("item without ID is rejected", func(t *testing.T) {
		svc, err := organization.New(&mockLLMClient{}, &fakeEngine{})
		gt.NoError(t, err).Required()

		_, err = svc.Organize(ctx, &model.KnowledgeItem{Title: "no id"})
		gt.Bool(t, errors.Is(err, model.ErrValidation)).True()
	})

	t.Run("provider failure surfaces as provider error", func(t *testing.T) {
		svc, err := organization.New(&mockLLMClient{err: errors.New("backend down")}, &fakeEngine{})
		gt.NoError(t, err).Required()

		_, err = svc.Organize(ctx, item("k-1", "Target"))
		gt.Bool(t, errors.Is(err, model.ErrProvider)).True()
	})

	t.Run("the item itself is excluded from neighbors", func(t *testing.T) {
		self := item("k-1", "Self")
		engine := &fakeEngine{neighbors: []*model.KnowledgeItem{self, item("n-1", "Other")}}
		llm := &mockLLMClient{response: `{
			"categories": [], "tags": [],
			"relations": [{"target_id": "k-1", "type": "similar", "strength": 0.9}]
		}`}

		svc, err := organization.New(llm, engine)
		gt.NoError(t, err).Required()

		result, err := svc.Organize(ctx, self)
		gt.NoError(t, err).Required()
		// A self-relation must not survive, k-1 is not a valid neighbor
		gt.Array(t, result.Relations).Length(0)
	})

	t.Run("neighbor limit bounds the context", func(t *testing.T) {
		var neighbors []*model.KnowledgeItem
		for i := 0; i < 20; i++ {
			neighbors = append(neighbors, item(fmt.Sprintf("n-%d", i), fmt.Sprintf("Item %d", i)))
		}
		engine := &fakeEngine{neighbors: neighbors}
		llm := &mockLLMClient{response: `{"categories": [], "tags": [], "relations": []}`}

		svc, err := organization.New(llm, engine, organization.WithNeighborLimit(3))
		gt.NoError(t, err).Required()

		_, err = svc.Organize(ctx, item("k-1", "Target"))
		gt.NoError(t, err)
	})
}
