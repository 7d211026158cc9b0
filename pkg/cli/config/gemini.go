package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gollem/llm/gemini"
	"github.com/support-lab/kotae/pkg/domain/types"
	"github.com/support-lab/kotae/pkg/service/embedding"
	"github.com/support-lab/kotae/pkg/service/generation"
	"github.com/urfave/cli/v3"
)

// Gemini holds configuration for the Gemini backends: one generation model
// per provider tier plus the embedding model.
type Gemini struct {
	projectID string
	location  string

	premiumModel   string
	advancedModel  string
	standardModel  string
	economyModel   string
	analysisModel  string
	embeddingModel string
	dimensions     int
}

// Flags returns CLI flags for Gemini configuration
func (g *Gemini) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini API",
			Sources:     cli.EnvVars("KOTAE_GEMINI_PROJECT"),
			Destination: &g.projectID,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini API",
			Value:       "us-central1",
			Sources:     cli.EnvVars("KOTAE_GEMINI_LOCATION"),
			Destination: &g.location,
		},
		&cli.StringFlag{
			Name:        "gemini-model-premium",
			Usage:       "Model for the premium tier",
			Value:       "gemini-2.5-pro",
			Sources:     cli.EnvVars("KOTAE_GEMINI_MODEL_PREMIUM"),
			Destination: &g.premiumModel,
		},
		&cli.StringFlag{
			Name:        "gemini-model-advanced",
			Usage:       "Model for the advanced tier",
			Value:       "gemini-2.5-flash",
			Sources:     cli.EnvVars("KOTAE_GEMINI_MODEL_ADVANCED"),
			Destination: &g.advancedModel,
		},
		&cli.StringFlag{
			Name:        "gemini-model-standard",
			Usage:       "Model for the standard tier",
			Value:       "gemini-2.0-flash",
			Sources:     cli.EnvVars("KOTAE_GEMINI_MODEL_STANDARD"),
			Destination: &g.standardModel,
		},
		&cli.StringFlag{
			Name:        "gemini-model-economy",
			Usage:       "Model for the economy tier",
			Value:       "gemini-2.0-flash-lite",
			Sources:     cli.EnvVars("KOTAE_GEMINI_MODEL_ECONOMY"),
			Destination: &g.economyModel,
		},
		&cli.StringFlag{
			Name:        "gemini-model-analysis",
			Usage:       "Model for knowledge extraction and organization",
			Value:       "gemini-2.5-flash",
			Sources:     cli.EnvVars("KOTAE_GEMINI_MODEL_ANALYSIS"),
			Destination: &g.analysisModel,
		},
		&cli.StringFlag{
			Name:        "gemini-embedding-model",
			Usage:       "Model for text embeddings",
			Value:       "text-embedding-004",
			Sources:     cli.EnvVars("KOTAE_GEMINI_EMBEDDING_MODEL"),
			Destination: &g.embeddingModel,
		},
		&cli.IntFlag{
			Name:        "gemini-embedding-dimensions",
			Usage:       "Dimension of embedding vectors",
			Value:       768,
			Sources:     cli.EnvVars("KOTAE_GEMINI_EMBEDDING_DIMENSIONS"),
			Destination: &g.dimensions,
		},
	}
}

// LogAttrs returns log attributes for the Gemini configuration
func (g *Gemini) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("project_id", g.projectID),
		slog.String("location", g.location),
		slog.String("embedding_model", g.embeddingModel),
	}
}

// IsConfigured reports whether a Gemini project was given
func (g *Gemini) IsConfigured() bool {
	return g.projectID != ""
}

// ConfigureProviders builds one generation provider per tier. Tiers sharing a
// model name share a client.
func (g *Gemini) ConfigureProviders(ctx context.Context) (generation.Providers, error) {
	if g.projectID == "" {
		return nil, goerr.New("gemini-project is required")
	}

	models := map[types.ProviderTier]string{
		types.TierPremium:  g.premiumModel,
		types.TierAdvanced: g.advancedModel,
		types.TierStandard: g.standardModel,
		types.TierEconomy:  g.economyModel,
	}

	providers := generation.Providers{}
	clients := map[string]*generation.Provider{}

	for tier, modelName := range models {
		if modelName == "" {
			continue
		}
		if p, ok := clients[modelName]; ok {
			providers[tier] = p
			continue
		}

		client, err := gemini.New(ctx, g.projectID, g.location, gemini.WithModel(modelName))
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create Gemini client",
				goerr.V("model", modelName))
		}

		p := generation.NewProvider(client, modelName)
		clients[modelName] = p
		providers[tier] = p
	}

	if len(providers) == 0 {
		return nil, goerr.New("no Gemini generation model configured")
	}

	return providers, nil
}

// ConfigureAnalysisClient builds the client used for knowledge extraction
// and organization
func (g *Gemini) ConfigureAnalysisClient(ctx context.Context) (gollem.LLMClient, error) {
	if g.projectID == "" {
		return nil, goerr.New("gemini-project is required")
	}

	client, err := gemini.New(ctx, g.projectID, g.location, gemini.WithModel(g.analysisModel))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create Gemini analysis client",
			goerr.V("model", g.analysisModel))
	}

	return client, nil
}

// ConfigureEmbedding builds the embedding gateway
func (g *Gemini) ConfigureEmbedding(ctx context.Context) (embedding.Gateway, error) {
	if g.projectID == "" {
		return nil, goerr.New("gemini-project is required")
	}

	client, err := gemini.New(ctx, g.projectID, g.location, gemini.WithModel(g.embeddingModel))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create Gemini embedding client")
	}

	return embedding.New(client, g.embeddingModel, embedding.WithDimensions(g.dimensions)), nil
}
