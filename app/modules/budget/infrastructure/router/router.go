package budgetrouter

import (
	"context"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"
	budgethandlers "github.com/spylab/llm-ctf/app/modules/budget/infrastructure/handlers"
	"github.com/spylab/llm-ctf/internal/eventbus"
	budgetevents "github.com/spylab/llm-ctf/internal/events/budget"
	"github.com/spylab/llm-ctf/internal/handlerwrapper"
	"go.opentelemetry.io/otel/trace"
)

// BudgetRouter registers the budget ledger handlers on a watermill router.
type BudgetRouter struct {
	logger   *slog.Logger
	router   *message.Router
	eventBus eventbus.EventBus
	tracer   trace.Tracer
}

func NewBudgetRouter(logger *slog.Logger, router *message.Router, eventBus eventbus.EventBus, tracer trace.Tracer) *BudgetRouter {
	return &BudgetRouter{
		logger:   logger,
		router:   router,
		eventBus: eventBus,
		tracer:   tracer,
	}
}

// Configure registers the handlers.
func (r *BudgetRouter) Configure(_ context.Context, handlers budgethandlers.Handlers) error {
	r.logger.Info("Registering budget module handlers",
		slog.String("budget_increase_subject", budgetevents.BudgetIncreaseRequestedV1),
	)
	registerHandler(r, budgetevents.BudgetIncreaseRequestedV1, handlers.HandleBudgetIncreaseRequested)
	return nil
}

func registerHandler[T any](
	r *BudgetRouter,
	topic string,
	handler func(context.Context, *T) ([]handlerwrapper.Result, error),
) {
	handlerName := "budget." + topic

	r.router.AddHandler(
		handlerName,
		topic,
		r.eventBus,
		"",
		r.eventBus,
		handlerwrapper.WrapTransformingTyped(handlerName, r.logger, r.tracer, handler),
	)
}
