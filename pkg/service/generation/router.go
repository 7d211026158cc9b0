package generation

import (
	"github.com/support-lab/kotae/pkg/domain/types"
	"github.com/support-lab/kotae/pkg/service/retrieval"
)

// Router picks a provider tier per request. In auto mode the decision is a
// pure function of query complexity and retrieval quality; otherwise a fixed
// tier is always used.
type Router struct {
	auto   bool
	static types.ProviderTier
}

type RouterOption func(*Router)

// WithStaticTier disables auto-routing and pins every request to one tier
func WithStaticTier(tier types.ProviderTier) RouterOption {
	return func(r *Router) {
		r.auto = false
		r.static = tier
	}
}

func NewRouter(opts ...RouterOption) *Router {
	r := &Router{
		auto: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Route returns the tier for a query and its retrieval candidates
func (r *Router) Route(query string, candidates []*retrieval.Candidate) types.ProviderTier {
	if !r.auto {
		return r.static
	}

	similarities := make([]float64, 0, len(candidates))
	for _, c := range candidates {
		similarities = append(similarities, c.Similarity)
	}

	return SelectTier(Complexity(query), len(candidates), meanOf(similarities))
}

// SelectTier evaluates the routing decision table top to bottom, first match
// wins. Exactly one branch fires for every input.
func SelectTier(complexity float64, count int, avgRelevance float64) types.ProviderTier {
	switch {
	case complexity > 0.8 || (count > 3 && avgRelevance < 0.5):
		return types.TierPremium
	case complexity > 0.5 || count > 5:
		return types.TierAdvanced
	case complexity > 0.3 || (count > 0 && avgRelevance > 0.7):
		return types.TierStandard
	default:
		return types.TierEconomy
	}
}

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
