package budgetdb

import (
	"context"

	"github.com/google/uuid"
	"github.com/spylab/llm-ctf/internal/sharedtypes"
	"github.com/uptrace/bun"
)

// Repository defines the data access for team budgets.
type Repository interface {
	CreateBudgets(ctx context.Context, db bun.IDB, rows []ProviderBudget) error
	GetTeamBudget(ctx context.Context, db bun.IDB, teamID uuid.UUID) ([]ProviderBudget, error)
	GetProviderBudget(ctx context.Context, db bun.IDB, teamID uuid.UUID, provider sharedtypes.Provider) (*ProviderBudget, error)
	// IncreaseLimit adds delta to the limit, creating the row when absent.
	IncreaseLimit(ctx context.Context, db bun.IDB, teamID uuid.UUID, provider sharedtypes.Provider, delta float64) (*ProviderBudget, error)
	// ConsumeIfAvailable adds amount to consumed only if the result stays within
	// the limit. It returns ErrNoRowsAffected otherwise.
	ConsumeIfAvailable(ctx context.Context, db bun.IDB, teamID uuid.UUID, provider sharedtypes.Provider, amount float64) (*ProviderBudget, error)
	// DrainRemaining raises consumed to the limit, never lowering it.
	DrainRemaining(ctx context.Context, db bun.IDB, teamID uuid.UUID, provider sharedtypes.Provider) (*ProviderBudget, error)
	// AddConsumed adds amount to consumed unconditionally.
	AddConsumed(ctx context.Context, db bun.IDB, teamID uuid.UUID, provider sharedtypes.Provider, amount float64) (*ProviderBudget, error)
}
