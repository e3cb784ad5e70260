package budgethandlers

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	budgetdomain "github.com/spylab/llm-ctf/app/modules/budget/domain"
	"github.com/spylab/llm-ctf/internal/apperrors"
	budgetevents "github.com/spylab/llm-ctf/internal/events/budget"
	"github.com/spylab/llm-ctf/internal/handlerwrapper"
	"github.com/spylab/llm-ctf/internal/observability/attr"
	"github.com/spylab/llm-ctf/internal/sharedtypes"
	"go.opentelemetry.io/otel/trace"
)

// Service is the part of the budget ledger the handlers drive.
type Service interface {
	Increase(ctx context.Context, teamID uuid.UUID, deltas map[sharedtypes.Provider]float64) (*budgetdomain.TeamBudget, error)
}

// Handlers defines the budget event handlers.
type Handlers interface {
	HandleBudgetIncreaseRequested(ctx context.Context, payload *budgetevents.BudgetIncreaseRequestedPayloadV1) ([]handlerwrapper.Result, error)
}

// BudgetHandlers implements Handlers.
type BudgetHandlers struct {
	service Service
	logger  *slog.Logger
	tracer  trace.Tracer
}

func NewBudgetHandlers(service Service, logger *slog.Logger, tracer trace.Tracer) *BudgetHandlers {
	return &BudgetHandlers{service: service, logger: logger, tracer: tracer}
}

// HandleBudgetIncreaseRequested raises a team's provider limits.
func (h *BudgetHandlers) HandleBudgetIncreaseRequested(ctx context.Context, payload *budgetevents.BudgetIncreaseRequestedPayloadV1) ([]handlerwrapper.Result, error) {
	if payload == nil {
		return nil, errors.New("payload cannot be nil")
	}

	ctx, span := h.tracer.Start(ctx, "BudgetHandlers.HandleBudgetIncreaseRequested")
	defer span.End()

	budget, err := h.service.Increase(ctx, payload.TeamID, payload.Deltas)
	if err != nil {
		if !apperrors.IsClientVisible(err) {
			return nil, err
		}
		h.logger.WarnContext(ctx, "Budget increase refused",
			attr.UUID("team_id", payload.TeamID),
			attr.Error(err),
		)
		return []handlerwrapper.Result{{
			Topic: budgetevents.BudgetIncreaseFailedV1,
			Payload: &budgetevents.BudgetIncreaseFailedPayloadV1{
				TeamID: payload.TeamID,
				Reason: apperrors.Message(err),
			},
		}}, nil
	}

	balances := make(map[sharedtypes.Provider]budgetevents.ProviderBalanceV1, len(budget.Providers))
	for provider, p := range budget.Providers {
		balances[provider] = budgetevents.ProviderBalanceV1{
			Consumed:  p.Consumed,
			Limit:     p.Limit,
			Remaining: p.Remaining(),
		}
	}

	return []handlerwrapper.Result{{
		Topic: budgetevents.BudgetIncreasedV1,
		Payload: &budgetevents.BudgetIncreasedPayloadV1{
			TeamID:    payload.TeamID,
			Providers: balances,
		},
	}}, nil
}
