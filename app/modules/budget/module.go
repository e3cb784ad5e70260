package budget

import (
	"context"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	budgethandlers "github.com/spylab/llm-ctf/app/modules/budget/infrastructure/handlers"
	budgetrouter "github.com/spylab/llm-ctf/app/modules/budget/infrastructure/router"
	"github.com/spylab/llm-ctf/internal/eventbus"
	"github.com/spylab/llm-ctf/internal/observability"
)

// Module represents the budget module.
type Module struct {
	BudgetService budgethandlers.Service
	BudgetRouter  *budgetrouter.BudgetRouter
	obs           *observability.Observability
	stop          chan struct{}
	stopOnce      sync.Once
}

// NewBudgetModule registers the budget handlers for service on router.
func NewBudgetModule(
	ctx context.Context,
	obs *observability.Observability,
	service budgethandlers.Service,
	eventBus eventbus.EventBus,
	router *message.Router,
) (*Module, error) {
	obs.Logger.InfoContext(ctx, "budget.NewBudgetModule initializing")

	handlers := budgethandlers.NewBudgetHandlers(service, obs.Logger, obs.Tracer)
	budgetRouter := budgetrouter.NewBudgetRouter(obs.Logger, router, eventBus, obs.Tracer)
	if err := budgetRouter.Configure(ctx, handlers); err != nil {
		return nil, fmt.Errorf("failed to configure budget router: %w", err)
	}

	return &Module{
		BudgetService: service,
		BudgetRouter:  budgetRouter,
		obs:           obs,
		stop:          make(chan struct{}),
	}, nil
}

// Run blocks until ctx is done or the module is closed.
func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	if wg != nil {
		defer wg.Done()
	}

	m.obs.Logger.InfoContext(ctx, "Starting budget module")
	select {
	case <-ctx.Done():
	case <-m.stop:
	}
	m.obs.Logger.InfoContext(ctx, "Budget module goroutine stopped")
}

// Close stops the module. The shared router is closed by its owner.
func (m *Module) Close() error {
	m.stopOnce.Do(func() { close(m.stop) })
	m.obs.Logger.Info("Budget module stopped")
	return nil
}
