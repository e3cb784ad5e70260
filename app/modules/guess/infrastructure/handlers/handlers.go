package guesshandlers

import (
	"context"
	"errors"
	"log/slog"

	guessservice "github.com/spylab/llm-ctf/app/modules/guess/application"
	guessevents "github.com/spylab/llm-ctf/internal/events/guess"
	"github.com/spylab/llm-ctf/internal/handlerwrapper"
	"github.com/spylab/llm-ctf/internal/observability/attr"
	"go.opentelemetry.io/otel/trace"
)

// Service is the part of the guess ledger the handlers drive.
type Service interface {
	SubmitGuess(ctx context.Context, req guessservice.SubmitGuessRequest) (guessservice.SubmitGuessResult, error)
}

// Handlers defines the guess event handlers.
type Handlers interface {
	HandleGuessSubmitRequested(ctx context.Context, payload *guessevents.GuessSubmitRequestedPayloadV1) ([]handlerwrapper.Result, error)
}

// GuessHandlers implements Handlers.
type GuessHandlers struct {
	service Service
	logger  *slog.Logger
	tracer  trace.Tracer
}

func NewGuessHandlers(service Service, logger *slog.Logger, tracer trace.Tracer) *GuessHandlers {
	return &GuessHandlers{service: service, logger: logger, tracer: tracer}
}

// HandleGuessSubmitRequested records the guess and reports it as recorded or
// rejected.
func (h *GuessHandlers) HandleGuessSubmitRequested(ctx context.Context, payload *guessevents.GuessSubmitRequestedPayloadV1) ([]handlerwrapper.Result, error) {
	if payload == nil {
		return nil, errors.New("payload cannot be nil")
	}

	ctx, span := h.tracer.Start(ctx, "GuessHandlers.HandleGuessSubmitRequested")
	defer span.End()

	result, err := h.service.SubmitGuess(ctx, guessservice.SubmitGuessRequest{
		TeamID: payload.TeamID,
		ChatID: payload.ChatID,
		Value:  payload.Guess,
	})
	if err != nil {
		return nil, err
	}

	if result.IsFailure() {
		h.logger.InfoContext(ctx, "Guess rejected",
			attr.UUID("team_id", payload.TeamID),
			attr.UUID("chat_id", payload.ChatID),
			attr.String("reason", string(result.Failure.Reason)),
		)
		return []handlerwrapper.Result{{
			Topic: guessevents.GuessRejectedV1,
			Payload: &guessevents.GuessRejectedPayloadV1{
				TeamID:  payload.TeamID,
				ChatID:  payload.ChatID,
				Reason:  string(result.Failure.Reason),
				Message: result.Failure.Message,
			},
		}}, nil
	}

	g := result.Success.Guess
	return []handlerwrapper.Result{{
		Topic: guessevents.GuessRecordedV1,
		Payload: &guessevents.GuessRecordedPayloadV1{
			GuessID:          g.ID,
			TeamID:           g.GuesserTeamID,
			ChatID:           g.ChatID,
			SecretID:         g.SecretID,
			SubmissionID:     g.SubmissionID,
			Correct:          result.Success.Correct,
			IsEvaluation:     g.IsEvaluation,
			Ranking:          g.GuessRanking,
			GuessesRemaining: result.Success.GuessesRemaining,
			GuessedAt:        g.GuessedAt,
		},
	}}, nil
}
