package budgetservice

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	budgetdomain "github.com/spylab/llm-ctf/app/modules/budget/domain"
	budgetdb "github.com/spylab/llm-ctf/app/modules/budget/infrastructure/repositories"
	"github.com/spylab/llm-ctf/config"
	"github.com/spylab/llm-ctf/internal/apperrors"
	"github.com/spylab/llm-ctf/internal/observability"
	"github.com/spylab/llm-ctf/internal/sharedtypes"
	"github.com/uptrace/bun"
)

var (
	// ErrInsufficientBudget carries the message shown to the chat user.
	ErrInsufficientBudget = apperrors.New(apperrors.ErrInsufficientBudget, "Insufficient budget, please provide your own API key.")
	ErrInvalidAmount      = fmt.Errorf("amount must not be negative: %w", apperrors.ErrInvalidArgument)
	ErrBudgetExists       = budgetdb.ErrBudgetExists
	ErrBudgetNotFound     = budgetdb.ErrBudgetNotFound
)

// Service is the budget ledger.
type Service struct {
	repo budgetdb.Repository
	in   observability.Instrumentation
	db   *bun.DB
	mode config.BudgetMode
}

// NewBudgetService creates a new Service. mode selects how Consume applies
// spend; an empty mode means atomic.
func NewBudgetService(repo budgetdb.Repository, in observability.Instrumentation, db *bun.DB, mode config.BudgetMode) *Service {
	if mode == "" {
		mode = config.BudgetModeAtomic
	}
	return &Service{repo: repo, in: in, db: db, mode: mode}
}

func runInTx[T any](s *Service, ctx context.Context, fn func(ctx context.Context, db bun.IDB) (T, error)) (T, error) {
	if s.db == nil {
		return fn(ctx, nil)
	}

	var result T
	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var txErr error
		result, txErr = fn(ctx, tx)
		return txErr
	})
	return result, err
}

func toTeamBudget(teamID uuid.UUID, rows []budgetdb.ProviderBudget) *budgetdomain.TeamBudget {
	b := &budgetdomain.TeamBudget{
		TeamID:    teamID,
		Providers: make(map[sharedtypes.Provider]budgetdomain.ProviderBudget, len(rows)),
	}
	for _, row := range rows {
		b.Providers[row.Provider] = budgetdomain.ProviderBudget{Consumed: row.Consumed, Limit: row.Limit}
	}
	return b
}

func validateAmounts(amounts map[sharedtypes.Provider]float64) error {
	for provider, amount := range amounts {
		if _, err := sharedtypes.ParseProvider(string(provider)); err != nil {
			return err
		}
		if amount < 0 {
			return fmt.Errorf("%s: %w", provider, ErrInvalidAmount)
		}
	}
	return nil
}
