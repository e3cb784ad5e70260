package scoringrouter

import (
	"context"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"
	scoringhandlers "github.com/spylab/llm-ctf/app/modules/scoring/infrastructure/handlers"
	"github.com/spylab/llm-ctf/internal/eventbus"
	guessevents "github.com/spylab/llm-ctf/internal/events/guess"
	leaderboardevents "github.com/spylab/llm-ctf/internal/events/leaderboard"
	"github.com/spylab/llm-ctf/internal/handlerwrapper"
	"go.opentelemetry.io/otel/trace"
)

// ScoringRouter registers the scoring engine handlers on a watermill router.
type ScoringRouter struct {
	logger   *slog.Logger
	router   *message.Router
	eventBus eventbus.EventBus
	tracer   trace.Tracer
}

func NewScoringRouter(logger *slog.Logger, router *message.Router, eventBus eventbus.EventBus, tracer trace.Tracer) *ScoringRouter {
	return &ScoringRouter{
		logger:   logger,
		router:   router,
		eventBus: eventBus,
		tracer:   tracer,
	}
}

// Configure registers the handlers.
func (r *ScoringRouter) Configure(_ context.Context, handlers scoringhandlers.Handlers) error {
	r.logger.Info("Registering scoring module handlers",
		slog.String("guess_recorded_subject", guessevents.GuessRecordedV1),
		slog.String("leaderboard_request_subject", leaderboardevents.LeaderboardRequestedV1),
	)
	registerHandler(r, guessevents.GuessRecordedV1, handlers.HandleGuessRecorded)
	registerHandler(r, leaderboardevents.LeaderboardRequestedV1, handlers.HandleLeaderboardRequested)
	return nil
}

func registerHandler[T any](
	r *ScoringRouter,
	topic string,
	handler func(context.Context, *T) ([]handlerwrapper.Result, error),
) {
	handlerName := "scoring." + topic

	r.router.AddHandler(
		handlerName,
		topic,
		r.eventBus,
		"",
		r.eventBus,
		handlerwrapper.WrapTransformingTyped(handlerName, r.logger, r.tracer, handler),
	)
}
