package types

import (
	"github.com/m-mizutani/goerr/v2"
)

// ProviderTier identifies a generation backend by capability class.
// The router picks a tier; the concrete model behind each tier is
// configuration.
type ProviderTier string

const (
	// TierPremium is the most capable backend, used for complex queries
	// or when retrieval gives many weakly relevant candidates.
	TierPremium ProviderTier = "premium"

	// TierAdvanced is the second-tier backend.
	TierAdvanced ProviderTier = "advanced"

	// TierStandard is the mid-tier backend.
	TierStandard ProviderTier = "standard"

	// TierEconomy is the cheapest backend, the default for simple queries.
	TierEconomy ProviderTier = "economy"
)

// ProviderTiers lists all tiers in descending capability order
func ProviderTiers() []ProviderTier {
	return []ProviderTier{TierPremium, TierAdvanced, TierStandard, TierEconomy}
}

// Validate checks if the ProviderTier is one of the known values
func (p ProviderTier) Validate() error {
	for _, t := range ProviderTiers() {
		if p == t {
			return nil
		}
	}
	return goerr.New("invalid provider tier", goerr.V("tier", p))
}

// String returns the string representation of ProviderTier
func (p ProviderTier) String() string {
	return string(p)
}
