package guessrouter

import (
	"context"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"
	guesshandlers "github.com/spylab/llm-ctf/app/modules/guess/infrastructure/handlers"
	"github.com/spylab/llm-ctf/internal/eventbus"
	guessevents "github.com/spylab/llm-ctf/internal/events/guess"
	"github.com/spylab/llm-ctf/internal/handlerwrapper"
	"go.opentelemetry.io/otel/trace"
)

// GuessRouter registers the guess ledger handlers on a watermill router.
type GuessRouter struct {
	logger   *slog.Logger
	router   *message.Router
	eventBus eventbus.EventBus
	tracer   trace.Tracer
}

func NewGuessRouter(logger *slog.Logger, router *message.Router, eventBus eventbus.EventBus, tracer trace.Tracer) *GuessRouter {
	return &GuessRouter{
		logger:   logger,
		router:   router,
		eventBus: eventBus,
		tracer:   tracer,
	}
}

// Configure registers the handlers.
func (r *GuessRouter) Configure(_ context.Context, handlers guesshandlers.Handlers) error {
	r.logger.Info("Registering guess module handlers",
		slog.String("guess_submit_subject", guessevents.GuessSubmitRequestedV1),
	)
	registerHandler(r, guessevents.GuessSubmitRequestedV1, handlers.HandleGuessSubmitRequested)
	return nil
}

func registerHandler[T any](
	r *GuessRouter,
	topic string,
	handler func(context.Context, *T) ([]handlerwrapper.Result, error),
) {
	handlerName := "guess." + topic

	r.router.AddHandler(
		handlerName,
		topic,
		r.eventBus,
		"",
		r.eventBus,
		handlerwrapper.WrapTransformingTyped(handlerName, r.logger, r.tracer, handler),
	)
}
