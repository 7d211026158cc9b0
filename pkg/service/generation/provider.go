package generation

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/support-lab/kotae/pkg/domain/interfaces"
	"github.com/support-lab/kotae/pkg/domain/model"
	"github.com/support-lab/kotae/pkg/domain/types"
	"github.com/support-lab/kotae/pkg/utils/retry"
)

// Provider adapts a gollem client to the generation capability. One Provider
// wraps one concrete model; the router decides which one handles a request.
type Provider struct {
	client      gollem.LLMClient
	model       string
	retryPolicy retry.Policy
}

var _ interfaces.GenerationProvider = &Provider{}

type ProviderOption func(*Provider)

// WithRetryPolicy enables retries around generation calls. Default is no
// retries.
func WithRetryPolicy(p retry.Policy) ProviderOption {
	return func(prov *Provider) {
		prov.retryPolicy = p
	}
}

func NewProvider(client gollem.LLMClient, modelName string, opts ...ProviderOption) *Provider {
	p := &Provider{
		client:      client,
		model:       modelName,
		retryPolicy: retry.None(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) Model() string {
	return p.model
}

func (p *Provider) Generate(ctx context.Context, prompt string, params model.GenerationParams) (string, error) {
	session, err := p.client.NewSession(ctx)
	if err != nil {
		return "", goerr.Wrap(model.ErrProvider, "failed to create generation session",
			goerr.V("model", p.model), goerr.V("cause", err.Error()))
	}

	var resp *gollem.Response
	err = p.retryPolicy.Do(ctx, func() error {
		var genErr error
		resp, genErr = session.GenerateContent(ctx, gollem.Text(prompt))
		return genErr
	})
	if err != nil {
		return "", goerr.Wrap(model.ErrProvider, "generation request failed",
			goerr.V("model", p.model), goerr.V("cause", err.Error()))
	}
	if resp == nil || len(resp.Texts) == 0 {
		return "", goerr.Wrap(model.ErrProvider, "generation returned no text",
			goerr.V("model", p.model))
	}

	return resp.Texts[0], nil
}

// Providers maps each tier to its backend. Not every tier needs a backend;
// For falls back to the next cheaper configured tier.
type Providers map[types.ProviderTier]interfaces.GenerationProvider

func (p Providers) For(tier types.ProviderTier) (interfaces.GenerationProvider, error) {
	if provider, ok := p[tier]; ok {
		return provider, nil
	}

	// Walk from the requested tier downward
	seen := false
	for _, t := range types.ProviderTiers() {
		if t == tier {
			seen = true
			continue
		}
		if !seen {
			continue
		}
		if provider, ok := p[t]; ok {
			return provider, nil
		}
	}

	return nil, goerr.New("no generation provider configured for tier", goerr.V("tier", tier))
}
