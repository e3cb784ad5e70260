// Package budgetevents defines the budget ledger topics and payloads.
package budgetevents

import (
	"github.com/google/uuid"
	"github.com/spylab/llm-ctf/internal/sharedtypes"
)

const (
	BudgetIncreaseRequestedV1 = "ctf.budget.increase.requested.v1"
	BudgetIncreasedV1         = "ctf.budget.increased.v1"
	BudgetIncreaseFailedV1    = "ctf.budget.increase.failed.v1"
)

type BudgetIncreaseRequestedPayloadV1 struct {
	TeamID uuid.UUID                        `json:"team_id"`
	Deltas map[sharedtypes.Provider]float64 `json:"deltas"`
}

// ProviderBalanceV1 is one provider's spend and limit after the increase.
type ProviderBalanceV1 struct {
	Consumed  float64 `json:"consumed"`
	Limit     float64 `json:"limit"`
	Remaining float64 `json:"remaining"`
}

type BudgetIncreasedPayloadV1 struct {
	TeamID    uuid.UUID                                  `json:"team_id"`
	Providers map[sharedtypes.Provider]ProviderBalanceV1 `json:"providers"`
}

type BudgetIncreaseFailedPayloadV1 struct {
	TeamID uuid.UUID `json:"team_id"`
	Reason string    `json:"reason"`
}
