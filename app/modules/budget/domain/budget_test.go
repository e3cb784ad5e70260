package budgetdomain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/spylab/llm-ctf/internal/sharedtypes"
)

func TestRemaining(t *testing.T) {
	b := &TeamBudget{
		TeamID: uuid.New(),
		Providers: map[sharedtypes.Provider]ProviderBudget{
			sharedtypes.ProviderOpenAI: {Consumed: 2.5, Limit: 10},
		},
	}

	if got := b.Remaining(sharedtypes.ProviderOpenAI); got != 7.5 {
		t.Errorf("Remaining(openai) = %v, want 7.5", got)
	}
	if got := b.Remaining(sharedtypes.ProviderTogether); got != 0 {
		t.Errorf("Remaining(together) = %v, want 0", got)
	}
	var none *TeamBudget
	if got := none.Remaining(sharedtypes.ProviderOpenAI); got != 0 {
		t.Errorf("nil budget Remaining = %v, want 0", got)
	}
	if !b.CanAfford(sharedtypes.ProviderOpenAI, 7.5) || b.CanAfford(sharedtypes.ProviderOpenAI, 7.6) {
		t.Error("CanAfford boundary is wrong")
	}
}
