package budgetservice

import (
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"
	budgetdomain "github.com/spylab/llm-ctf/app/modules/budget/domain"
	budgetdb "github.com/spylab/llm-ctf/app/modules/budget/infrastructure/repositories"
	"github.com/spylab/llm-ctf/config"
	"github.com/spylab/llm-ctf/internal/observability"
	"github.com/spylab/llm-ctf/internal/observability/attr"
	"github.com/spylab/llm-ctf/internal/sharedtypes"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"
)

// Create gives a team its initial per-provider limits.
func (s *Service) Create(ctx context.Context, teamID uuid.UUID, limits map[sharedtypes.Provider]float64) (*budgetdomain.TeamBudget, error) {
	attrs := []attribute.KeyValue{attribute.String("team_id", teamID.String())}
	return observability.Observe(ctx, s.in, "Create", attrs, func(ctx context.Context) (*budgetdomain.TeamBudget, error) {
		if err := validateAmounts(limits); err != nil {
			return nil, err
		}
		return runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (*budgetdomain.TeamBudget, error) {
			existing, err := s.repo.GetTeamBudget(ctx, db, teamID)
			if err != nil {
				return nil, err
			}
			if len(existing) > 0 {
				return nil, ErrBudgetExists
			}

			rows := make([]budgetdb.ProviderBudget, 0, len(limits))
			for _, provider := range sortedProviders(limits) {
				rows = append(rows, budgetdb.ProviderBudget{TeamID: teamID, Provider: provider, Limit: limits[provider]})
			}
			if err := s.repo.CreateBudgets(ctx, db, rows); err != nil {
				return nil, err
			}
			return toTeamBudget(teamID, rows), nil
		})
	})
}

// Increase adds deltas to the team's limits, creating missing providers.
func (s *Service) Increase(ctx context.Context, teamID uuid.UUID, deltas map[sharedtypes.Provider]float64) (*budgetdomain.TeamBudget, error) {
	attrs := []attribute.KeyValue{attribute.String("team_id", teamID.String())}
	return observability.Observe(ctx, s.in, "Increase", attrs, func(ctx context.Context) (*budgetdomain.TeamBudget, error) {
		if err := validateAmounts(deltas); err != nil {
			return nil, err
		}
		return runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (*budgetdomain.TeamBudget, error) {
			for _, provider := range sortedProviders(deltas) {
				if _, err := s.repo.IncreaseLimit(ctx, db, teamID, provider, deltas[provider]); err != nil {
					return nil, err
				}
			}
			rows, err := s.repo.GetTeamBudget(ctx, db, teamID)
			if err != nil {
				return nil, err
			}

			s.in.Logger.InfoContext(ctx, "Budget increased",
				attr.UUID("team_id", teamID),
				attr.Any("deltas", deltas),
			)
			return toTeamBudget(teamID, rows), nil
		})
	})
}

// Get returns the team's budget.
func (s *Service) Get(ctx context.Context, teamID uuid.UUID) (*budgetdomain.TeamBudget, error) {
	rows, err := s.repo.GetTeamBudget(ctx, nil, teamID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrBudgetNotFound
	}
	return toTeamBudget(teamID, rows), nil
}

// Remaining is limit minus consumed for the provider, 0 without a budget.
func (s *Service) Remaining(ctx context.Context, teamID uuid.UUID, provider sharedtypes.Provider) (float64, error) {
	row, err := s.repo.GetProviderBudget(ctx, nil, teamID, provider)
	if err != nil {
		if errors.Is(err, budgetdb.ErrBudgetNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return row.Limit - row.Consumed, nil
}

// Consume charges amount to the team's provider budget, failing with
// ErrInsufficientBudget when it does not fit.
func (s *Service) Consume(ctx context.Context, teamID uuid.UUID, provider sharedtypes.Provider, amount float64) (*budgetdomain.TeamBudget, error) {
	attrs := []attribute.KeyValue{
		attribute.String("team_id", teamID.String()),
		attribute.String("provider", provider.String()),
		attribute.Float64("amount", amount),
		attribute.String("mode", string(s.mode)),
	}
	return observability.Observe(ctx, s.in, "Consume", attrs, func(ctx context.Context) (*budgetdomain.TeamBudget, error) {
		if amount < 0 {
			return nil, ErrInvalidAmount
		}

		var err error
		switch s.mode {
		case config.BudgetModeLegacy:
			err = s.consumeCheckThenAdd(ctx, teamID, provider, amount)
		default:
			err = s.consumeAtomic(ctx, teamID, provider, amount)
		}
		if err != nil {
			if errors.Is(err, ErrInsufficientBudget) {
				s.in.Metrics.RecordBudgetRejected(ctx, provider.String())
			}
			return nil, err
		}

		s.in.Metrics.RecordBudgetConsumed(ctx, provider.String(), amount)
		rows, err := s.repo.GetTeamBudget(ctx, nil, teamID)
		if err != nil {
			return nil, err
		}
		return toTeamBudget(teamID, rows), nil
	})
}

// Drain charges whatever is left of the provider budget. It settles spend that
// was incurred but did not fit, leaving consumed equal to the limit.
func (s *Service) Drain(ctx context.Context, teamID uuid.UUID, provider sharedtypes.Provider) (*budgetdomain.TeamBudget, error) {
	attrs := []attribute.KeyValue{
		attribute.String("team_id", teamID.String()),
		attribute.String("provider", provider.String()),
	}
	return observability.Observe(ctx, s.in, "Drain", attrs, func(ctx context.Context) (*budgetdomain.TeamBudget, error) {
		before, err := s.Remaining(ctx, teamID, provider)
		if err != nil {
			return nil, err
		}
		if _, err := s.repo.DrainRemaining(ctx, nil, teamID, provider); err != nil {
			if !errors.Is(err, budgetdb.ErrBudgetNotFound) {
				return nil, err
			}
		}
		if before > 0 {
			s.in.Metrics.RecordBudgetConsumed(ctx, provider.String(), before)
		}

		s.in.Logger.WarnContext(ctx, "Budget drained after overrun",
			attr.UUID("team_id", teamID),
			attr.String("provider", provider.String()),
			attr.Float64("drained", before),
		)
		rows, err := s.repo.GetTeamBudget(ctx, nil, teamID)
		if err != nil {
			return nil, err
		}
		return toTeamBudget(teamID, rows), nil
	})
}

func (s *Service) consumeAtomic(ctx context.Context, teamID uuid.UUID, provider sharedtypes.Provider, amount float64) error {
	if _, err := s.repo.ConsumeIfAvailable(ctx, nil, teamID, provider, amount); err != nil {
		if errors.Is(err, budgetdb.ErrNoRowsAffected) {
			return ErrInsufficientBudget
		}
		return err
	}
	return nil
}

// consumeCheckThenAdd reads the remaining budget and then adds the spend in a
// second statement. Concurrent callers can both pass the check.
func (s *Service) consumeCheckThenAdd(ctx context.Context, teamID uuid.UUID, provider sharedtypes.Provider, amount float64) error {
	remaining, err := s.Remaining(ctx, teamID, provider)
	if err != nil {
		return err
	}
	if remaining < amount {
		return ErrInsufficientBudget
	}
	_, err = s.repo.AddConsumed(ctx, nil, teamID, provider, amount)
	return err
}

func sortedProviders(amounts map[sharedtypes.Provider]float64) []sharedtypes.Provider {
	providers := make([]sharedtypes.Provider, 0, len(amounts))
	for p := range amounts {
		providers = append(providers, p)
	}
	sort.Slice(providers, func(i, j int) bool { return providers[i] < providers[j] })
	return providers
}
