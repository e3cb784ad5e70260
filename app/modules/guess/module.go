package guess

import (
	"context"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	guesshandlers "github.com/spylab/llm-ctf/app/modules/guess/infrastructure/handlers"
	guessrouter "github.com/spylab/llm-ctf/app/modules/guess/infrastructure/router"
	"github.com/spylab/llm-ctf/internal/eventbus"
	"github.com/spylab/llm-ctf/internal/observability"
)

// Module represents the guess module.
type Module struct {
	GuessService guesshandlers.Service
	GuessRouter  *guessrouter.GuessRouter
	obs          *observability.Observability
	stop         chan struct{}
	stopOnce     sync.Once
}

// NewGuessModule registers the guess handlers for service on router.
func NewGuessModule(
	ctx context.Context,
	obs *observability.Observability,
	service guesshandlers.Service,
	eventBus eventbus.EventBus,
	router *message.Router,
) (*Module, error) {
	obs.Logger.InfoContext(ctx, "guess.NewGuessModule initializing")

	handlers := guesshandlers.NewGuessHandlers(service, obs.Logger, obs.Tracer)
	guessRouter := guessrouter.NewGuessRouter(obs.Logger, router, eventBus, obs.Tracer)
	if err := guessRouter.Configure(ctx, handlers); err != nil {
		return nil, fmt.Errorf("failed to configure guess router: %w", err)
	}

	return &Module{
		GuessService: service,
		GuessRouter:  guessRouter,
		obs:          obs,
		stop:         make(chan struct{}),
	}, nil
}

// Run blocks until ctx is done or the module is closed.
func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	if wg != nil {
		defer wg.Done()
	}

	m.obs.Logger.InfoContext(ctx, "Starting guess module")
	select {
	case <-ctx.Done():
	case <-m.stop:
	}
	m.obs.Logger.InfoContext(ctx, "Guess module goroutine stopped")
}

// Close stops the module. The shared router is closed by its owner.
func (m *Module) Close() error {
	m.stopOnce.Do(func() { close(m.stop) })
	m.obs.Logger.Info("Guess module stopped")
	return nil
}
