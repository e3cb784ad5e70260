package budgetdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spylab/llm-ctf/internal/bundb"
	"github.com/spylab/llm-ctf/internal/sharedtypes"
	"github.com/uptrace/bun"
)

// Impl implements Repository on bun.
type Impl struct {
	db bun.IDB
}

var _ Repository = (*Impl)(nil)

// NewRepository creates a new budget repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

func (r *Impl) CreateBudgets(ctx context.Context, db bun.IDB, rows []ProviderBudget) error {
	if len(rows) == 0 {
		return nil
	}
	if db == nil {
		db = r.db
	}
	if _, err := db.NewInsert().Model(&rows).Exec(ctx); err != nil {
		if bundb.IsUniqueViolation(err) {
			return ErrBudgetExists
		}
		return fmt.Errorf("budgetdb.CreateBudgets: %w", err)
	}
	return nil
}

func (r *Impl) GetTeamBudget(ctx context.Context, db bun.IDB, teamID uuid.UUID) ([]ProviderBudget, error) {
	if db == nil {
		db = r.db
	}
	var rows []ProviderBudget
	err := db.NewSelect().
		Model(&rows).
		Where("tb.team_id = ?", teamID).
		Order("tb.provider ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("budgetdb.GetTeamBudget: %w", err)
	}
	return rows, nil
}

func (r *Impl) GetProviderBudget(ctx context.Context, db bun.IDB, teamID uuid.UUID, provider sharedtypes.Provider) (*ProviderBudget, error) {
	if db == nil {
		db = r.db
	}
	row := new(ProviderBudget)
	err := db.NewSelect().
		Model(row).
		Where("tb.team_id = ?", teamID).
		Where("tb.provider = ?", provider).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBudgetNotFound
		}
		return nil, fmt.Errorf("budgetdb.GetProviderBudget: %w", err)
	}
	return row, nil
}

func (r *Impl) IncreaseLimit(ctx context.Context, db bun.IDB, teamID uuid.UUID, provider sharedtypes.Provider, delta float64) (*ProviderBudget, error) {
	if db == nil {
		db = r.db
	}
	row := new(ProviderBudget)
	err := db.NewRaw(`
		INSERT INTO team_budgets (team_id, provider, consumed, budget_limit, updated_at)
		VALUES (?, ?, 0, ?, ?)
		ON CONFLICT (team_id, provider) DO UPDATE
		SET budget_limit = team_budgets.budget_limit + EXCLUDED.budget_limit,
			updated_at = EXCLUDED.updated_at
		RETURNING team_id, provider, consumed, budget_limit, updated_at`,
		teamID, provider, delta, time.Now().UTC(),
	).Scan(ctx, row)
	if err != nil {
		return nil, fmt.Errorf("budgetdb.IncreaseLimit: %w", err)
	}
	return row, nil
}

func (r *Impl) ConsumeIfAvailable(ctx context.Context, db bun.IDB, teamID uuid.UUID, provider sharedtypes.Provider, amount float64) (*ProviderBudget, error) {
	if db == nil {
		db = r.db
	}
	row := new(ProviderBudget)
	err := db.NewRaw(`
		UPDATE team_budgets
		SET consumed = consumed + ?, updated_at = ?
		WHERE team_id = ? AND provider = ? AND consumed + ? <= budget_limit
		RETURNING team_id, provider, consumed, budget_limit, updated_at`,
		amount, time.Now().UTC(), teamID, provider, amount,
	).Scan(ctx, row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoRowsAffected
		}
		return nil, fmt.Errorf("budgetdb.ConsumeIfAvailable: %w", err)
	}
	return row, nil
}

func (r *Impl) DrainRemaining(ctx context.Context, db bun.IDB, teamID uuid.UUID, provider sharedtypes.Provider) (*ProviderBudget, error) {
	if db == nil {
		db = r.db
	}
	row := new(ProviderBudget)
	err := db.NewRaw(`
		UPDATE team_budgets
		SET consumed = GREATEST(consumed, budget_limit), updated_at = ?
		WHERE team_id = ? AND provider = ?
		RETURNING team_id, provider, consumed, budget_limit, updated_at`,
		time.Now().UTC(), teamID, provider,
	).Scan(ctx, row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBudgetNotFound
		}
		return nil, fmt.Errorf("budgetdb.DrainRemaining: %w", err)
	}
	return row, nil
}

func (r *Impl) AddConsumed(ctx context.Context, db bun.IDB, teamID uuid.UUID, provider sharedtypes.Provider, amount float64) (*ProviderBudget, error) {
	if db == nil {
		db = r.db
	}
	row := new(ProviderBudget)
	err := db.NewRaw(`
		UPDATE team_budgets
		SET consumed = consumed + ?, updated_at = ?
		WHERE team_id = ? AND provider = ?
		RETURNING team_id, provider, consumed, budget_limit, updated_at`,
		amount, time.Now().UTC(), teamID, provider,
	).Scan(ctx, row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBudgetNotFound
		}
		return nil, fmt.Errorf("budgetdb.AddConsumed: %w", err)
	}
	return row, nil
}
