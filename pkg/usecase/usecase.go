package usecase

import (
	"github.com/support-lab/kotae/pkg/domain/interfaces"
	"github.com/support-lab/kotae/pkg/service/embedding"
	"github.com/support-lab/kotae/pkg/service/extraction"
	"github.com/support-lab/kotae/pkg/service/generation"
	"github.com/support-lab/kotae/pkg/service/organization"
	"github.com/support-lab/kotae/pkg/service/retrieval"
)

// Config carries the tunable thresholds of the engine. The defaults mirror
// the values the pipeline was tuned with; they are configuration, not
// constants, so deployments can adjust them without a rebuild.
type Config struct {
	// ExtractionMinConfidence gates promotion of extracted knowledge
	ExtractionMinConfidence float64

	// MaxTags bounds how many tag suggestions Apply writes
	MaxTags int

	// MaxRelations bounds how many relations Apply writes
	MaxRelations int

	// HistoryWindow bounds the conversation turns fed into the prompt
	HistoryWindow int

	// RetrievalLimit is the default candidate count for reply generation
	RetrievalLimit int

	// MinSimilarity is the default retrieval similarity cutoff
	MinSimilarity float64

	// BatchConcurrency bounds parallel items in batch organization
	BatchConcurrency int
}

func DefaultConfig() Config {
	return Config{
		ExtractionMinConfidence: 0.7,
		MaxTags:                 5,
		MaxRelations:            10,
		HistoryWindow:           5,
		RetrievalLimit:          5,
		MinSimilarity:           0.3,
		BatchConcurrency:        4,
	}
}

type UseCases struct {
	repo      interfaces.Repository
	cfg       Config
	gateway   embedding.Gateway
	engine    retrieval.Engine
	router    *generation.Router
	providers generation.Providers
	extractor extraction.Service
	organizer organization.Service

	Reply    *ReplyUseCase
	Search   *SearchUseCase
	Extract  *ExtractUseCase
	Organize *OrganizeUseCase
}

type Option func(*UseCases)

func WithConfig(cfg Config) Option {
	return func(uc *UseCases) {
		uc.cfg = cfg
	}
}

func WithEmbeddingGateway(gw embedding.Gateway) Option {
	return func(uc *UseCases) {
		uc.gateway = gw
	}
}

func WithRetrievalEngine(engine retrieval.Engine) Option {
	return func(uc *UseCases) {
		uc.engine = engine
	}
}

func WithRouter(router *generation.Router) Option {
	return func(uc *UseCases) {
		uc.router = router
	}
}

func WithProviders(providers generation.Providers) Option {
	return func(uc *UseCases) {
		uc.providers = providers
	}
}

func WithExtractionService(svc extraction.Service) Option {
	return func(uc *UseCases) {
		uc.extractor = svc
	}
}

func WithOrganizationService(svc organization.Service) Option {
	return func(uc *UseCases) {
		uc.organizer = svc
	}
}

func New(repo interfaces.Repository, opts ...Option) *UseCases {
	uc := &UseCases{
		repo:   repo,
		cfg:    DefaultConfig(),
		router: generation.NewRouter(),
	}

	for _, opt := range opts {
		opt(uc)
	}

	uc.Reply = &ReplyUseCase{parent: uc}
	uc.Search = &SearchUseCase{parent: uc}
	uc.Extract = &ExtractUseCase{parent: uc}
	uc.Organize = &OrganizeUseCase{parent: uc}

	return uc
}
