package scoring

import (
	"context"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	scoringhandlers "github.com/spylab/llm-ctf/app/modules/scoring/infrastructure/handlers"
	scoringqueue "github.com/spylab/llm-ctf/app/modules/scoring/infrastructure/queue"
	scoringrouter "github.com/spylab/llm-ctf/app/modules/scoring/infrastructure/router"
	"github.com/spylab/llm-ctf/internal/eventbus"
	"github.com/spylab/llm-ctf/internal/observability"
	"github.com/spylab/llm-ctf/internal/observability/attr"
)

// Module represents the scoring module.
type Module struct {
	ScoringService scoringhandlers.Service
	ScoringRouter  *scoringrouter.ScoringRouter
	// QueueService is nil when background jobs are disabled.
	QueueService   scoringqueue.QueueService
	obs            *observability.Observability
	stop           chan struct{}
	stopOnce       sync.Once
}

// NewScoringModule registers the scoring handlers for service on router.
// queue may be nil.
func NewScoringModule(
	ctx context.Context,
	obs *observability.Observability,
	service scoringhandlers.Service,
	queue scoringqueue.QueueService,
	eventBus eventbus.EventBus,
	router *message.Router,
) (*Module, error) {
	obs.Logger.InfoContext(ctx, "scoring.NewScoringModule initializing")

	handlers := scoringhandlers.NewScoringHandlers(service, obs.Logger, obs.Tracer)
	scoringRouter := scoringrouter.NewScoringRouter(obs.Logger, router, eventBus, obs.Tracer)
	if err := scoringRouter.Configure(ctx, handlers); err != nil {
		return nil, fmt.Errorf("failed to configure scoring router: %w", err)
	}

	return &Module{
		ScoringService: service,
		ScoringRouter:  scoringRouter,
		QueueService:   queue,
		obs:            obs,
		stop:           make(chan struct{}),
	}, nil
}

// Run starts the job queue, if any, and blocks until ctx is done or the
// module is closed.
func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	if wg != nil {
		defer wg.Done()
	}

	m.obs.Logger.InfoContext(ctx, "Starting scoring module")
	if m.QueueService != nil {
		if err := m.QueueService.Start(ctx); err != nil {
			m.obs.Logger.ErrorContext(ctx, "Failed to start scoring queue", attr.Error(err))
		}
	}

	select {
	case <-ctx.Done():
	case <-m.stop:
	}
	m.obs.Logger.InfoContext(ctx, "Scoring module goroutine stopped")
}

// Close stops the job queue.
func (m *Module) Close(ctx context.Context) error {
	m.stopOnce.Do(func() { close(m.stop) })

	if m.QueueService != nil {
		if err := m.QueueService.Stop(ctx); err != nil {
			return fmt.Errorf("error stopping scoring queue: %w", err)
		}
	}
	m.obs.Logger.Info("Scoring module stopped")
	return nil
}
