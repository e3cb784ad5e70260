package scoring

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	scoringservice "github.com/spylab/llm-ctf/app/modules/scoring/application"
	"github.com/spylab/llm-ctf/internal/eventbus"
	guessevents "github.com/spylab/llm-ctf/internal/events/guess"
	leaderboardevents "github.com/spylab/llm-ctf/internal/events/leaderboard"
	"github.com/spylab/llm-ctf/internal/observability"
	"github.com/stretchr/testify/require"
)

type stubService struct {
	invalidated chan struct{}
}

func (s *stubService) ScoreLeaderboard(context.Context) (*scoringservice.Leaderboard, error) {
	return &scoringservice.Leaderboard{Source: scoringservice.SourceComputed}, nil
}

func (s *stubService) InvalidateCache(context.Context) error {
	s.invalidated <- struct{}{}
	return nil
}

func TestModuleRoutesCorrectEvaluationGuess(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	obs := observability.NewNoop()
	bus := eventbus.NewGoChannelEventBus(obs.Logger)
	defer bus.Close()

	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: 2 * time.Second}, watermill.NopLogger{})
	require.NoError(t, err)

	svc := &stubService{invalidated: make(chan struct{}, 1)}
	module, err := NewScoringModule(ctx, obs, svc, nil, bus, router)
	require.NoError(t, err)
	defer module.Close(ctx)

	out, err := bus.Subscribe(ctx, leaderboardevents.LeaderboardInvalidatedV1)
	require.NoError(t, err)

	go func() { _ = router.Run(ctx) }()
	defer router.Close()
	<-router.Running()

	submissionID := uuid.New()
	body, err := json.Marshal(guessevents.GuessRecordedPayloadV1{
		GuessID:      uuid.New(),
		SubmissionID: &submissionID,
		Correct:      true,
		IsEvaluation: true,
		Ranking:      1,
	})
	require.NoError(t, err)
	require.NoError(t, bus.Publish(guessevents.GuessRecordedV1, message.NewMessage(watermill.NewUUID(), body)))

	select {
	case <-svc.invalidated:
	case <-ctx.Done():
		t.Fatal("cache was not invalidated")
	}

	select {
	case msg := <-out:
		var payload leaderboardevents.LeaderboardInvalidatedPayloadV1
		require.NoError(t, json.Unmarshal(msg.Payload, &payload))
		require.Equal(t, submissionID, payload.SubmissionID)
		msg.Ack()
	case <-ctx.Done():
		t.Fatal("invalidation event was not published")
	}
}
