package scoringhandlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	scoringservice "github.com/spylab/llm-ctf/app/modules/scoring/application"
	scoringdomain "github.com/spylab/llm-ctf/app/modules/scoring/domain"
	guessevents "github.com/spylab/llm-ctf/internal/events/guess"
	leaderboardevents "github.com/spylab/llm-ctf/internal/events/leaderboard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

type fakeService struct {
	board         *scoringservice.Leaderboard
	scoreErr      error
	invalidateErr error
	invalidations int
}

func (f *fakeService) ScoreLeaderboard(context.Context) (*scoringservice.Leaderboard, error) {
	return f.board, f.scoreErr
}

func (f *fakeService) InvalidateCache(context.Context) error {
	f.invalidations++
	return f.invalidateErr
}

func newHandlers(svc *fakeService) *ScoringHandlers {
	return NewScoringHandlers(svc, slog.New(slog.NewTextHandler(io.Discard, nil)), noop.NewTracerProvider().Tracer("test"))
}

func TestHandleGuessRecorded(t *testing.T) {
	submissionID := uuid.New()

	tests := []struct {
		name              string
		payload           *guessevents.GuessRecordedPayloadV1
		invalidateErr     error
		wantInvalidations int
		wantResults       int
		wantErr           bool
	}{
		{
			name:              "correct evaluation guess invalidates",
			payload:           &guessevents.GuessRecordedPayloadV1{GuessID: uuid.New(), SubmissionID: &submissionID, Correct: true, IsEvaluation: true, Ranking: 1},
			wantInvalidations: 1,
			wantResults:       1,
		},
		{
			name:    "incorrect guess is ignored",
			payload: &guessevents.GuessRecordedPayloadV1{SubmissionID: &submissionID, IsEvaluation: true},
		},
		{
			name:    "correct attack guess is ignored",
			payload: &guessevents.GuessRecordedPayloadV1{SubmissionID: &submissionID, Correct: true},
		},
		{
			name:    "practice guess is ignored",
			payload: &guessevents.GuessRecordedPayloadV1{Correct: true, IsEvaluation: true},
		},
		{
			name:              "cache failure is retried",
			payload:           &guessevents.GuessRecordedPayloadV1{SubmissionID: &submissionID, Correct: true, IsEvaluation: true},
			invalidateErr:     errors.New("redis down"),
			wantInvalidations: 1,
			wantErr:           true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{invalidateErr: tt.invalidateErr}
			res, err := newHandlers(svc).HandleGuessRecorded(context.Background(), tt.payload)

			assert.Equal(t, tt.wantErr, err != nil, "error = %v", err)
			assert.Len(t, res, tt.wantResults)
			assert.Equal(t, tt.wantInvalidations, svc.invalidations)
			if tt.wantResults > 0 {
				assert.Equal(t, leaderboardevents.LeaderboardInvalidatedV1, res[0].Topic)
				p := res[0].Payload.(*leaderboardevents.LeaderboardInvalidatedPayloadV1)
				assert.Equal(t, submissionID, p.SubmissionID)
			}
		})
	}
}

func TestHandleLeaderboardRequested(t *testing.T) {
	ctx := context.Background()

	t.Run("retrieved", func(t *testing.T) {
		svc := &fakeService{board: &scoringservice.Leaderboard{
			Scores: []scoringdomain.SubmissionScore{{
				Name:      "blue/gpt-3.5-turbo-1106",
				Value:     0.85,
				Attackers: []scoringdomain.AttackerScore{{Name: "red", Points: 1020}},
			}},
			Source: scoringservice.SourceCache,
		}}

		res, err := newHandlers(svc).HandleLeaderboardRequested(ctx, &leaderboardevents.LeaderboardRequestedPayloadV1{RequestID: "r-1"})
		require.NoError(t, err)
		require.Len(t, res, 1)
		assert.Equal(t, leaderboardevents.LeaderboardRetrievedV1, res[0].Topic)

		want := &leaderboardevents.LeaderboardRetrievedPayloadV1{
			RequestID: "r-1",
			Source:    "cache",
			Scores: []leaderboardevents.SubmissionScoreV1{{
				Name:      "blue/gpt-3.5-turbo-1106",
				Value:     0.85,
				Attackers: []leaderboardevents.AttackerScoreV1{{Name: "red", Points: 1020}},
			}},
		}
		if diff := cmp.Diff(want, res[0].Payload); diff != "" {
			t.Fatalf("payload mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("defense phase refusal", func(t *testing.T) {
		svc := &fakeService{scoreErr: scoringservice.ErrScoresUnavailable}
		res, err := newHandlers(svc).HandleLeaderboardRequested(ctx, &leaderboardevents.LeaderboardRequestedPayloadV1{})
		require.NoError(t, err)
		require.Len(t, res, 1)
		assert.Equal(t, leaderboardevents.LeaderboardFailedV1, res[0].Topic)
		p := res[0].Payload.(*leaderboardevents.LeaderboardFailedPayloadV1)
		assert.Equal(t, "forbidden", p.Reason)
		assert.Equal(t, "Scores are not available during defense phase.", p.Message)
	})

	t.Run("internal error", func(t *testing.T) {
		svc := &fakeService{scoreErr: errors.New("database gone")}
		_, err := newHandlers(svc).HandleLeaderboardRequested(ctx, &leaderboardevents.LeaderboardRequestedPayloadV1{})
		require.Error(t, err)
	})
}
