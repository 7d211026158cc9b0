package config

import (
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/support-lab/kotae/pkg/domain/types"
	"github.com/support-lab/kotae/pkg/service/generation"
	"github.com/support-lab/kotae/pkg/usecase"
)

// AppConfig is the TOML-backed application configuration: the knowledge
// taxonomy plus the engine thresholds.
type AppConfig struct {
	Categories []Category   `toml:"category"`
	Engine     EngineConfig `toml:"engine"`
}

// Category declares one entry of the knowledge taxonomy
type Category struct {
	ID          string `toml:"id"`
	Name        string `toml:"name"`
	Description string `toml:"description"`
}

// Validate checks if the Category is valid
func (c *Category) Validate() error {
	if err := types.CategoryID(c.ID).Validate(); err != nil {
		return goerr.Wrap(ErrInvalidConfig, "invalid category ID", goerr.V("id", c.ID))
	}
	if c.Name == "" {
		return goerr.Wrap(ErrInvalidConfig, "category name is required", goerr.V("id", c.ID))
	}
	return nil
}

// EngineConfig carries the tunable thresholds. Zero values fall back to the
// engine defaults.
type EngineConfig struct {
	ExtractionMinConfidence float64 `toml:"extraction_min_confidence"`
	MaxTags                 int     `toml:"max_tags"`
	MaxRelations            int     `toml:"max_relations"`
	HistoryWindow           int     `toml:"history_window"`
	RetrievalLimit          int     `toml:"retrieval_limit"`
	MinSimilarity           float64 `toml:"min_similarity"`
	BatchConcurrency        int     `toml:"batch_concurrency"`

	// StaticTier disables auto-routing and pins every reply to one tier
	// (premium, advanced, standard, or economy). Empty keeps auto-routing.
	StaticTier string `toml:"static_tier"`
}

// Validate checks if the EngineConfig is valid
func (e *EngineConfig) Validate() error {
	if e.StaticTier != "" {
		if err := types.ProviderTier(e.StaticTier).Validate(); err != nil {
			return goerr.Wrap(ErrInvalidConfig, "invalid static_tier",
				goerr.V("value", e.StaticTier))
		}
	}
	if e.ExtractionMinConfidence < 0 || e.ExtractionMinConfidence > 1 {
		return goerr.Wrap(ErrInvalidConfig, "extraction_min_confidence must be between 0 and 1",
			goerr.V("value", e.ExtractionMinConfidence))
	}
	if e.MinSimilarity < 0 || e.MinSimilarity > 1 {
		return goerr.Wrap(ErrInvalidConfig, "min_similarity must be between 0 and 1",
			goerr.V("value", e.MinSimilarity))
	}
	if e.MaxTags < 0 || e.MaxRelations < 0 || e.HistoryWindow < 0 ||
		e.RetrievalLimit < 0 || e.BatchConcurrency < 0 {
		return goerr.Wrap(ErrInvalidConfig, "engine limits must not be negative")
	}
	return nil
}

// Validate checks if the AppConfig is valid
func (a *AppConfig) Validate() error {
	categoryIDs := make(map[string]bool)
	for _, cat := range a.Categories {
		if err := cat.Validate(); err != nil {
			return goerr.Wrap(err, "invalid category")
		}
		if categoryIDs[cat.ID] {
			return goerr.Wrap(ErrDuplicateCategoryID, "duplicate category", goerr.V("id", cat.ID))
		}
		categoryIDs[cat.ID] = true
	}

	if err := a.Engine.Validate(); err != nil {
		return goerr.Wrap(err, "invalid engine configuration")
	}

	return nil
}

// CategoryNames returns the taxonomy entries fed to the extraction and
// organization prompts
func (a *AppConfig) CategoryNames() []string {
	names := make([]string, 0, len(a.Categories))
	for _, cat := range a.Categories {
		names = append(names, cat.Name)
	}
	return names
}

// ConfigureRouter builds the tier router: fixed tier when static_tier is
// set, auto-routing otherwise
func (a *AppConfig) ConfigureRouter() *generation.Router {
	if a.Engine.StaticTier == "" {
		return generation.NewRouter()
	}
	return generation.NewRouter(
		generation.WithStaticTier(types.ProviderTier(a.Engine.StaticTier)))
}

// ToEngineConfig merges the configured thresholds over the engine defaults
func (a *AppConfig) ToEngineConfig() usecase.Config {
	cfg := usecase.DefaultConfig()

	if a.Engine.ExtractionMinConfidence > 0 {
		cfg.ExtractionMinConfidence = a.Engine.ExtractionMinConfidence
	}
	if a.Engine.MaxTags > 0 {
		cfg.MaxTags = a.Engine.MaxTags
	}
	if a.Engine.MaxRelations > 0 {
		cfg.MaxRelations = a.Engine.MaxRelations
	}
	if a.Engine.HistoryWindow > 0 {
		cfg.HistoryWindow = a.Engine.HistoryWindow
	}
	if a.Engine.RetrievalLimit > 0 {
		cfg.RetrievalLimit = a.Engine.RetrievalLimit
	}
	if a.Engine.MinSimilarity > 0 {
		cfg.MinSimilarity = a.Engine.MinSimilarity
	}
	if a.Engine.BatchConcurrency > 0 {
		cfg.BatchConcurrency = a.Engine.BatchConcurrency
	}

	return cfg
}

// LoadAppConfiguration loads the application configuration from a TOML file
func LoadAppConfiguration(path string) (*AppConfig, error) {
	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(ErrConfigNotFound, "failed to read config file", goerr.V("path", path))
	}

	var config AppConfig
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, goerr.Wrap(err, "failed to parse TOML config", goerr.V("path", path))
	}

	if err := config.Validate(); err != nil {
		return nil, goerr.Wrap(err, "config validation failed", goerr.V("path", path))
	}

	return &config, nil
}
