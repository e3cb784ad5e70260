package scoringhandlers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	scoringservice "github.com/spylab/llm-ctf/app/modules/scoring/application"
	"github.com/spylab/llm-ctf/internal/apperrors"
	guessevents "github.com/spylab/llm-ctf/internal/events/guess"
	leaderboardevents "github.com/spylab/llm-ctf/internal/events/leaderboard"
	"github.com/spylab/llm-ctf/internal/handlerwrapper"
	"github.com/spylab/llm-ctf/internal/observability/attr"
	"go.opentelemetry.io/otel/trace"
)

// Service is the part of the scoring engine the handlers drive.
type Service interface {
	ScoreLeaderboard(ctx context.Context) (*scoringservice.Leaderboard, error)
	InvalidateCache(ctx context.Context) error
}

// Handlers defines the scoring event handlers.
type Handlers interface {
	HandleGuessRecorded(ctx context.Context, payload *guessevents.GuessRecordedPayloadV1) ([]handlerwrapper.Result, error)
	HandleLeaderboardRequested(ctx context.Context, payload *leaderboardevents.LeaderboardRequestedPayloadV1) ([]handlerwrapper.Result, error)
}

// ScoringHandlers implements Handlers.
type ScoringHandlers struct {
	service Service
	logger  *slog.Logger
	tracer  trace.Tracer
	now     func() time.Time
}

func NewScoringHandlers(service Service, logger *slog.Logger, tracer trace.Tracer) *ScoringHandlers {
	return &ScoringHandlers{
		service: service,
		logger:  logger,
		tracer:  tracer,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// HandleGuessRecorded drops the cached leaderboard when a correct evaluation
// guess changes a submission's score. Other guesses do not affect scoring.
func (h *ScoringHandlers) HandleGuessRecorded(ctx context.Context, payload *guessevents.GuessRecordedPayloadV1) ([]handlerwrapper.Result, error) {
	if payload == nil {
		return nil, errors.New("payload cannot be nil")
	}
	if !payload.Correct || !payload.IsEvaluation || payload.SubmissionID == nil {
		return nil, nil
	}

	ctx, span := h.tracer.Start(ctx, "ScoringHandlers.HandleGuessRecorded")
	defer span.End()

	if err := h.service.InvalidateCache(ctx); err != nil {
		return nil, err
	}

	h.logger.InfoContext(ctx, "Leaderboard invalidated by correct guess",
		attr.UUID("submission_id", *payload.SubmissionID),
		attr.UUID("guess_id", payload.GuessID),
		attr.Int("ranking", payload.Ranking),
	)
	return []handlerwrapper.Result{{
		Topic: leaderboardevents.LeaderboardInvalidatedV1,
		Payload: &leaderboardevents.LeaderboardInvalidatedPayloadV1{
			SubmissionID: *payload.SubmissionID,
			GuessID:      payload.GuessID,
			At:           h.now(),
		},
	}}, nil
}

// HandleLeaderboardRequested answers with the current leaderboard, or with a
// failure event when the phase hides it.
func (h *ScoringHandlers) HandleLeaderboardRequested(ctx context.Context, payload *leaderboardevents.LeaderboardRequestedPayloadV1) ([]handlerwrapper.Result, error) {
	if payload == nil {
		return nil, errors.New("payload cannot be nil")
	}

	ctx, span := h.tracer.Start(ctx, "ScoringHandlers.HandleLeaderboardRequested")
	defer span.End()

	board, err := h.service.ScoreLeaderboard(ctx)
	if err != nil {
		if !apperrors.IsClientVisible(err) {
			return nil, err
		}
		return []handlerwrapper.Result{{
			Topic: leaderboardevents.LeaderboardFailedV1,
			Payload: &leaderboardevents.LeaderboardFailedPayloadV1{
				RequestID: payload.RequestID,
				Reason:    string(apperrors.KindOf(err)),
				Message:   apperrors.Message(err),
			},
		}}, nil
	}

	return []handlerwrapper.Result{{
		Topic:   leaderboardevents.LeaderboardRetrievedV1,
		Payload: toRetrievedPayload(payload.RequestID, board),
	}}, nil
}

func toRetrievedPayload(requestID string, board *scoringservice.Leaderboard) *leaderboardevents.LeaderboardRetrievedPayloadV1 {
	out := &leaderboardevents.LeaderboardRetrievedPayloadV1{
		RequestID: requestID,
		Source:    string(board.Source),
		Scores:    make([]leaderboardevents.SubmissionScoreV1, 0, len(board.Scores)),
	}
	for _, s := range board.Scores {
		attackers := make([]leaderboardevents.AttackerScoreV1, 0, len(s.Attackers))
		for _, a := range s.Attackers {
			attackers = append(attackers, leaderboardevents.AttackerScoreV1{Name: a.Name, Points: a.Points})
		}
		out.Scores = append(out.Scores, leaderboardevents.SubmissionScoreV1{
			Name:      s.Name,
			Value:     s.Value,
			Attackers: attackers,
		})
	}
	for _, sk := range board.Skipped {
		out.Skipped = append(out.Skipped, leaderboardevents.SkippedSubmissionV1{
			SubmissionID: sk.SubmissionID,
			Name:         sk.Name,
			Reason:       sk.Reason,
		})
	}
	return out
}
