package budgetdb

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/spylab/llm-ctf/internal/sharedtypes"
	"github.com/uptrace/bun"
)

// ProviderBudget is one (team, provider) row of a team budget.
type ProviderBudget struct {
	bun.BaseModel `bun:"table:team_budgets,alias:tb"`

	TeamID    uuid.UUID            `bun:"team_id,pk,type:uuid"`
	Provider  sharedtypes.Provider `bun:"provider,pk"`
	Consumed  float64              `bun:"consumed,notnull"`
	Limit     float64              `bun:"budget_limit,notnull"`
	UpdatedAt time.Time            `bun:"updated_at,notnull,default:current_timestamp"`
}

var _ bun.BeforeAppendModelHook = (*ProviderBudget)(nil)

func (b *ProviderBudget) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	switch query.(type) {
	case *bun.InsertQuery, *bun.UpdateQuery:
		b.UpdatedAt = time.Now().UTC()
	}
	return nil
}
