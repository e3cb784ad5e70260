package guessservice

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	chatdb "github.com/spylab/llm-ctf/app/modules/chat/infrastructure/repositories"
	guessdb "github.com/spylab/llm-ctf/app/modules/guess/infrastructure/repositories"
	secretdb "github.com/spylab/llm-ctf/app/modules/secret/infrastructure/repositories"
	submissiondb "github.com/spylab/llm-ctf/app/modules/submission/infrastructure/repositories"
	"github.com/spylab/llm-ctf/internal/apperrors"
	"github.com/spylab/llm-ctf/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secretValue = "AB12CD"

type fixture struct {
	svc        *Service
	repo       *FakeGuessRepository
	store      *FakeStore
	faker      *gofakeit.Faker
	defender   *submissiondb.Team
	submission *submissiondb.Submission
	secret     *secretdb.Secret
}

func newFixture(t *testing.T, evaluation bool) *fixture {
	t.Helper()
	f := &fixture{
		repo:  &FakeGuessRepository{},
		store: NewFakeStore(),
		faker: gofakeit.New(7),
	}
	f.defender = f.addTeam()
	f.submission = &submissiondb.Submission{ID: uuid.New(), TeamID: f.defender.ID, IsActive: true}
	f.store.Submissions[f.submission.ID] = f.submission

	f.secret = &secretdb.Secret{ID: uuid.New(), Value: secretValue, SubmissionID: &f.submission.ID, IsEvaluation: evaluation}
	if evaluation {
		idx := 0
		f.secret.EvaluationIndex = &idx
	}
	f.store.Secrets[f.secret.ID] = f.secret

	f.svc = NewGuessService(f.repo, f.store, f.store, f.store, f.store,
		observability.NewNoop().NewInstrumentation("guess"), nil, 10)
	return f
}

func (f *fixture) addTeam() *submissiondb.Team {
	team := &submissiondb.Team{ID: uuid.New(), Name: f.faker.Company()}
	f.store.Teams[team.ID] = team
	return team
}

func (f *fixture) attackChat(team *submissiondb.Team) *chatdb.Chat {
	chat := &chatdb.Chat{
		ID:           uuid.New(),
		TeamID:       team.ID,
		SubmissionID: &f.submission.ID,
		SecretID:     f.secret.ID,
		IsAttack:     true,
		IsEvaluation: f.secret.IsEvaluation,
	}
	f.store.Chats[chat.ID] = chat
	return chat
}

func TestRecordGuessConcurrentCorrectGuessesGetDenseRanks(t *testing.T) {
	const attackers = 25
	ctx := context.Background()
	f := newFixture(t, false)

	type attempt struct {
		team *submissiondb.Team
		chat *chatdb.Chat
	}
	attempts := make([]attempt, attackers)
	for i := range attempts {
		team := f.addTeam()
		attempts[i] = attempt{team: team, chat: f.attackChat(team)}
	}

	var wg sync.WaitGroup
	errs := make(chan error, attackers)
	for _, a := range attempts {
		wg.Add(1)
		go func(a attempt) {
			defer wg.Done()
			if _, err := f.svc.RecordGuess(ctx, f.secret.ID, a.team.ID, a.chat.ID, secretValue); err != nil {
				errs <- err
			}
		}(a)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("RecordGuess() error = %v", err)
	}

	var ranks []int
	for _, g := range f.repo.Guesses {
		ranks = append(ranks, g.GuessRanking)
	}
	sort.Ints(ranks)
	want := make([]int, attackers)
	for i := range want {
		want[i] = i + 1
	}
	if diff := cmp.Diff(want, ranks); diff != "" {
		t.Fatalf("rankings mismatch (-want +got):\n%s", diff)
	}
	assert.Zero(t, f.svc.locks.size(), "lock entries are released")
}

func TestRecordGuessRanksInProcessingOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	first, second := f.addTeam(), f.addTeam()
	t1 := time.Date(2024, 2, 10, 12, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return t1 }

	g1, err := f.svc.RecordGuess(ctx, f.secret.ID, first.ID, f.attackChat(first).ID, secretValue)
	require.NoError(t, err)

	f.svc.now = func() time.Time { return t1.Add(time.Minute) }
	g2, err := f.svc.RecordGuess(ctx, f.secret.ID, second.ID, f.attackChat(second).ID, secretValue)
	require.NoError(t, err)

	assert.Equal(t, 1, g1.GuessRanking)
	assert.Equal(t, 2, g2.GuessRanking)
	assert.True(t, g1.GuessedAt.Before(g2.GuessedAt))
}

func TestRecordGuessPreconditions(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		setup func(f *fixture) (secretID, teamID, chatID uuid.UUID)
		want  error
	}{
		{
			name: "unknown secret",
			setup: func(f *fixture) (uuid.UUID, uuid.UUID, uuid.UUID) {
				team := f.addTeam()
				return uuid.New(), team.ID, f.attackChat(team).ID
			},
			want: secretdb.ErrSecretNotFound,
		},
		{
			name: "unknown team",
			setup: func(f *fixture) (uuid.UUID, uuid.UUID, uuid.UUID) {
				return f.secret.ID, uuid.New(), f.attackChat(f.addTeam()).ID
			},
			want: submissiondb.ErrTeamNotFound,
		},
		{
			name: "unknown chat",
			setup: func(f *fixture) (uuid.UUID, uuid.UUID, uuid.UUID) {
				return f.secret.ID, f.addTeam().ID, uuid.New()
			},
			want: chatdb.ErrChatNotFound,
		},
		{
			name: "submission secret from a defense chat",
			setup: func(f *fixture) (uuid.UUID, uuid.UUID, uuid.UUID) {
				team := f.addTeam()
				chat := f.attackChat(team)
				chat.IsAttack = false
				return f.secret.ID, team.ID, chat.ID
			},
			want: ErrNotAttackChat,
		},
		{
			name: "evaluation flag mismatch",
			setup: func(f *fixture) (uuid.UUID, uuid.UUID, uuid.UUID) {
				team := f.addTeam()
				chat := f.attackChat(team)
				chat.IsEvaluation = true
				return f.secret.ID, team.ID, chat.ID
			},
			want: ErrEvaluationMismatch,
		},
		{
			name: "already guessed correctly",
			setup: func(f *fixture) (uuid.UUID, uuid.UUID, uuid.UUID) {
				team := f.addTeam()
				chat := f.attackChat(team)
				if _, err := f.svc.RecordGuess(context.Background(), f.secret.ID, team.ID, chat.ID, secretValue); err != nil {
					panic(err)
				}
				return f.secret.ID, team.ID, chat.ID
			},
			want: ErrAlreadyGuessedCorrectly,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, false)
			secretID, teamID, chatID := tt.setup(f)
			before := len(f.repo.Guesses)

			_, err := f.svc.RecordGuess(ctx, secretID, teamID, chatID, secretValue)
			require.ErrorIs(t, err, tt.want)
			assert.True(t, apperrors.IsClientVisible(err))
			assert.Len(t, f.repo.Guesses, before, "nothing recorded")
		})
	}
}

func TestRecordGuessIncorrectGuessRankedOne(t *testing.T) {
	f := newFixture(t, false)
	team := f.addTeam()
	g, err := f.svc.RecordGuess(context.Background(), f.secret.ID, team.ID, f.attackChat(team).ID, "zzzzzz")
	require.NoError(t, err)
	assert.False(t, g.IsCorrect)
	assert.Equal(t, 1, g.GuessRanking)
	require.NotNil(t, g.SubmissionID)
	assert.Equal(t, f.submission.ID, *g.SubmissionID)
}

func TestSubmitGuessExhaustsAllowance(t *testing.T) {
	for _, evaluation := range []bool{false, true} {
		t.Run(fmt.Sprintf("evaluation=%v", evaluation), func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t, evaluation)
			team := f.addTeam()
			chat := f.attackChat(team)
			req := SubmitGuessRequest{TeamID: team.ID, ChatID: chat.ID, Value: "wrong1"}

			for i := 1; i <= 10; i++ {
				res, err := f.svc.SubmitGuess(ctx, req)
				require.NoError(t, err)
				require.True(t, res.IsSuccess(), "guess %d rejected: %+v", i, res.Failure)
				assert.False(t, res.Success.Correct)
				assert.Equal(t, 10-i, res.Success.GuessesRemaining)
			}

			remaining, err := f.svc.GuessesRemaining(ctx, f.secret.ID, team.ID)
			require.NoError(t, err)
			assert.Equal(t, 0, remaining)

			res, err := f.svc.SubmitGuess(ctx, req)
			require.NoError(t, err)
			require.True(t, res.IsFailure())
			assert.Equal(t, apperrors.KindForbidden, res.Failure.Reason)
			if evaluation {
				assert.Equal(t, "You have no guesses left for this secret. You must move onto another submission.", res.Failure.Message)
			} else {
				assert.Equal(t, "You have no guesses left for this secret. Start a new chat with this submission to get a new secret.", res.Failure.Message)
			}
			assert.Len(t, f.repo.Guesses, 10)
		})
	}
}

func TestSubmitGuessRejections(t *testing.T) {
	ctx := context.Background()

	t.Run("own submission", func(t *testing.T) {
		f := newFixture(t, false)
		chat := f.attackChat(f.defender)
		res, err := f.svc.SubmitGuess(ctx, SubmitGuessRequest{TeamID: f.defender.ID, ChatID: chat.ID, Value: secretValue})
		require.NoError(t, err)
		require.True(t, res.IsFailure())
		assert.Equal(t, "You cannot guess the secret of your own submission.", res.Failure.Message)
		assert.Equal(t, apperrors.KindInvalidGuess, res.Failure.Reason)
	})

	t.Run("second correct guess", func(t *testing.T) {
		f := newFixture(t, false)
		team := f.addTeam()
		chat := f.attackChat(team)
		req := SubmitGuessRequest{TeamID: team.ID, ChatID: chat.ID, Value: secretValue}

		res, err := f.svc.SubmitGuess(ctx, req)
		require.NoError(t, err)
		require.True(t, res.IsSuccess())
		assert.True(t, res.Success.Correct)
		assert.Equal(t, 9, res.Success.GuessesRemaining)

		res, err = f.svc.SubmitGuess(ctx, req)
		require.NoError(t, err)
		require.True(t, res.IsFailure())
		assert.Equal(t, "You have already guessed this secret correctly.", res.Failure.Message)
	})

	t.Run("chat of another team", func(t *testing.T) {
		f := newFixture(t, false)
		chat := f.attackChat(f.addTeam())
		res, err := f.svc.SubmitGuess(ctx, SubmitGuessRequest{TeamID: f.addTeam().ID, ChatID: chat.ID, Value: secretValue})
		require.NoError(t, err)
		require.True(t, res.IsFailure())
		assert.Equal(t, apperrors.KindForbidden, res.Failure.Reason)
	})

	t.Run("store failure is an error, not a rejection", func(t *testing.T) {
		f := newFixture(t, false)
		team := f.addTeam()
		chat := f.attackChat(team)
		f.repo.InsertGuessFunc = func(context.Context, *guessdb.Guess) error { return fmt.Errorf("connection reset") }

		res, err := f.svc.SubmitGuess(ctx, SubmitGuessRequest{TeamID: team.ID, ChatID: chat.ID, Value: secretValue})
		require.Error(t, err)
		assert.False(t, res.IsFailure())
	})
}
