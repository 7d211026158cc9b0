package usecase_test

import (
	"context"
	"sync"

	"github.com/support-lab/kotae/pkg/domain/model"
	"github.com/support-lab/kotae/pkg/domain/types"
	"github.com/support-lab/kotae/pkg/repository/memory"
	"github.com/support-lab/kotae/pkg/service/embedding"
	"github.com/support-lab/kotae/pkg/service/generation"
	"github.com/support-lab/kotae/pkg/service/retrieval"
	"github.com/support-lab/kotae/pkg/usecase"
)

// ----- fake embedding gateway -----

type fakeGateway struct {
	vectors map[string][]float32
	err     error
}

func (g *fakeGateway) Embed(_ context.Context, text string) ([]float32, error) {
	if g.err != nil {
		return nil, g.err
	}
	if v, ok := g.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 1}, nil
}

func (g *fakeGateway) EmbedBatch(ctx context.Context, texts []string) []embedding.BatchItem {
	items := make([]embedding.BatchItem, 0, len(texts))
	for _, text := range texts {
		v, err := g.Embed(ctx, text)
		items = append(items, embedding.BatchItem{Text: text, Vector: v, Err: err})
	}
	return items
}

func (g *fakeGateway) Model() string   { return "fake-embedding" }
func (g *fakeGateway) Dimensions() int { return 3 }

// ----- fake generation provider -----

type fakeGenerator struct {
	reply string
	err   error

	mu      sync.Mutex
	prompts []string
}

func (p *fakeGenerator) Generate(_ context.Context, prompt string, _ model.GenerationParams) (string, error) {
	p.mu.Lock()
	p.prompts = append(p.prompts, prompt)
	p.mu.Unlock()

	if p.err != nil {
		return "", p.err
	}
	return p.reply, nil
}

func (p *fakeGenerator) Model() string { return "fake-model" }

func (p *fakeGenerator) lastPrompt() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.prompts) == 0 {
		return ""
	}
	return p.prompts[len(p.prompts)-1]
}

// ----- fake extraction service -----

type fakeExtractor struct {
	results []*model.ExtractionResult
	err     error

	mu            sync.Mutex
	conversations []*model.Conversation
	done          chan struct{}
}

func (e *fakeExtractor) FromConversation(_ context.Context, conv *model.Conversation) ([]*model.ExtractionResult, error) {
	e.mu.Lock()
	e.conversations = append(e.conversations, conv)
	e.mu.Unlock()
	if e.done != nil {
		defer close(e.done)
	}
	if e.err != nil {
		return nil, e.err
	}
	return e.results, nil
}

func (e *fakeExtractor) FromCorrection(_ context.Context, original, corrected, background string, conversationID model.ConversationID) ([]*model.ExtractionResult, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.results, nil
}

// ----- fake organization service -----

type fakeOrganizer struct {
	result *model.OrganizationResult
	err    error
}

func (o *fakeOrganizer) Organize(_ context.Context, item *model.KnowledgeItem) (*model.OrganizationResult, error) {
	if o.err != nil {
		return nil, o.err
	}
	if o.result != nil {
		result := *o.result
		if result.KnowledgeID == "" {
			result.KnowledgeID = item.ID
		}
		return &result, nil
	}
	return &model.OrganizationResult{KnowledgeID: item.ID}, nil
}

// ----- shared setup -----

type fixture struct {
	repo      *memory.Memory
	gateway   *fakeGateway
	generator *fakeGenerator
	extractor *fakeExtractor
	organizer *fakeOrganizer
	uc        *usecase.UseCases
}

func newFixture(opts ...usecase.Option) *fixture {
	f := &fixture{
		repo:      memory.New(),
		gateway:   &fakeGateway{vectors: map[string][]float32{}},
		generator: &fakeGenerator{reply: "Here is the answer to your question."},
		extractor: &fakeExtractor{},
		organizer: &fakeOrganizer{},
	}

	engine := retrieval.New(f.repo, f.gateway)

	providers := generation.Providers{
		types.TierPremium:  f.generator,
		types.TierAdvanced: f.generator,
		types.TierStandard: f.generator,
		types.TierEconomy:  f.generator,
	}

	base := []usecase.Option{
		usecase.WithEmbeddingGateway(f.gateway),
		usecase.WithRetrievalEngine(engine),
		usecase.WithProviders(providers),
		usecase.WithExtractionService(f.extractor),
		usecase.WithOrganizationService(f.organizer),
	}

	f.uc = usecase.New(f.repo, append(base, opts...)...)
	return f
}

func (f *fixture) seedKnowledge(ctx context.Context, title string, vector []float32, published bool) *model.KnowledgeItem {
	item, err := f.repo.Knowledge().Create(ctx, &model.KnowledgeItem{
		Title:       title,
		Content:     "content of " + title,
		Category:    "general",
		Source:      "manual",
		IsPublished: published,
	})
	if err != nil {
		panic(err)
	}
	if _, err := f.repo.Embedding().Upsert(ctx, &model.EmbeddingRecord{
		SourceID:   item.ID.String(),
		SourceType: types.SourceTypeKnowledgeItem,
		Vector:     vector,
		Model:      "fake-embedding",
	}); err != nil {
		panic(err)
	}
	return item
}
