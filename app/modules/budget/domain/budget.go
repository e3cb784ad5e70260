// Package budgetdomain defines a team's per-provider spending allowance.
package budgetdomain

import (
	"github.com/google/uuid"
	"github.com/spylab/llm-ctf/internal/sharedtypes"
)

// ProviderBudget is the spend and limit for one provider.
type ProviderBudget struct {
	Consumed float64 `json:"consumed"`
	Limit    float64 `json:"limit"`
}

// Remaining is limit minus consumed.
func (p ProviderBudget) Remaining() float64 {
	return p.Limit - p.Consumed
}

// TeamBudget holds a team's budgets keyed by provider.
type TeamBudget struct {
	TeamID    uuid.UUID                               `json:"team_id"`
	Providers map[sharedtypes.Provider]ProviderBudget `json:"providers"`
}

// Remaining is the provider's remaining allowance, 0 when the team has none.
func (b *TeamBudget) Remaining(provider sharedtypes.Provider) float64 {
	if b == nil {
		return 0
	}
	p, ok := b.Providers[provider]
	if !ok {
		return 0
	}
	return p.Remaining()
}

// CanAfford reports whether amount fits in the provider's remaining allowance.
func (b *TeamBudget) CanAfford(provider sharedtypes.Provider, amount float64) bool {
	return b.Remaining(provider) >= amount
}
