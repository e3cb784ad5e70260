package guessservice

import (
	"context"
	"runtime"
	"sort"
	"sync"

	"github.com/google/uuid"
	chatdb "github.com/spylab/llm-ctf/app/modules/chat/infrastructure/repositories"
	guessdb "github.com/spylab/llm-ctf/app/modules/guess/infrastructure/repositories"
	secretdb "github.com/spylab/llm-ctf/app/modules/secret/infrastructure/repositories"
	submissiondb "github.com/spylab/llm-ctf/app/modules/submission/infrastructure/repositories"
	"github.com/uptrace/bun"
)

// FakeGuessRepository is an in-memory guessdb.Repository. Each method is
// individually synchronized; nothing makes a count and an insert atomic.
type FakeGuessRepository struct {
	mu      sync.Mutex
	Guesses []guessdb.Guess

	InsertGuessFunc func(ctx context.Context, guess *guessdb.Guess) error
}

var _ guessdb.Repository = (*FakeGuessRepository)(nil)

func (f *FakeGuessRepository) LockSecret(context.Context, bun.IDB, uuid.UUID) error { return nil }

func (f *FakeGuessRepository) InsertGuess(ctx context.Context, _ bun.IDB, guess *guessdb.Guess) error {
	if f.InsertGuessFunc != nil {
		if err := f.InsertGuessFunc(ctx, guess); err != nil {
			return err
		}
	}
	// Widen the window between count and insert for racing callers.
	runtime.Gosched()

	f.mu.Lock()
	defer f.mu.Unlock()
	if guess.IsCorrect {
		for _, g := range f.Guesses {
			if g.IsCorrect && g.SecretID == guess.SecretID &&
				(g.GuesserTeamID == guess.GuesserTeamID || g.GuessRanking == guess.GuessRanking) {
				return guessdb.ErrDuplicateRanking
			}
		}
	}
	if guess.ID == uuid.Nil {
		guess.ID = uuid.New()
	}
	f.Guesses = append(f.Guesses, *guess)
	return nil
}

func (f *FakeGuessRepository) CountCorrectGuesses(_ context.Context, _ bun.IDB, secretID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, g := range f.Guesses {
		if g.SecretID == secretID && g.IsCorrect {
			n++
		}
	}
	return n, nil
}

func (f *FakeGuessRepository) CountGuesses(_ context.Context, _ bun.IDB, secretID, teamID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, g := range f.Guesses {
		if g.SecretID == secretID && g.GuesserTeamID == teamID {
			n++
		}
	}
	return n, nil
}

func (f *FakeGuessRepository) HasCorrectGuess(_ context.Context, _ bun.IDB, secretID, teamID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, g := range f.Guesses {
		if g.SecretID == secretID && g.GuesserTeamID == teamID && g.IsCorrect {
			return true, nil
		}
	}
	return false, nil
}

func (f *FakeGuessRepository) MostRecentGuess(_ context.Context, _ bun.IDB, teamID, submissionID uuid.UUID, isEvaluation bool) (*guessdb.Guess, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *guessdb.Guess
	for i := range f.Guesses {
		g := &f.Guesses[i]
		if g.GuesserTeamID != teamID || g.SubmissionID == nil || *g.SubmissionID != submissionID || g.IsEvaluation != isEvaluation {
			continue
		}
		if latest == nil || !g.GuessedAt.Before(latest.GuessedAt) {
			latest = g
		}
	}
	if latest == nil {
		return nil, nil
	}
	out := *latest
	return &out, nil
}

func (f *FakeGuessRepository) CorrectEvaluationGuesses(_ context.Context, _ bun.IDB, submissionID uuid.UUID) ([]guessdb.Guess, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []guessdb.Guess
	for _, g := range f.Guesses {
		if g.SubmissionID != nil && *g.SubmissionID == submissionID && g.IsEvaluation && g.IsCorrect {
			out = append(out, g)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].GuessedAt.Before(out[j].GuessedAt) })
	return out, nil
}

func (f *FakeGuessRepository) DeleteGuessesForSecrets(_ context.Context, _ bun.IDB, ids []uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	drop := map[uuid.UUID]bool{}
	for _, id := range ids {
		drop[id] = true
	}
	kept := f.Guesses[:0]
	for _, g := range f.Guesses {
		if !drop[g.SecretID] {
			kept = append(kept, g)
		}
	}
	n := len(f.Guesses) - len(kept)
	f.Guesses = kept
	return n, nil
}

// FakeStore resolves secrets, teams, submissions and chats from maps.
type FakeStore struct {
	Secrets     map[uuid.UUID]*secretdb.Secret
	Teams       map[uuid.UUID]*submissiondb.Team
	Submissions map[uuid.UUID]*submissiondb.Submission
	Chats       map[uuid.UUID]*chatdb.Chat
}

func NewFakeStore() *FakeStore {
	return &FakeStore{
		Secrets:     map[uuid.UUID]*secretdb.Secret{},
		Teams:       map[uuid.UUID]*submissiondb.Team{},
		Submissions: map[uuid.UUID]*submissiondb.Submission{},
		Chats:       map[uuid.UUID]*chatdb.Chat{},
	}
}

func (f *FakeStore) GetSecret(_ context.Context, _ bun.IDB, id uuid.UUID) (*secretdb.Secret, error) {
	if s, ok := f.Secrets[id]; ok {
		return s, nil
	}
	return nil, secretdb.ErrSecretNotFound
}

func (f *FakeStore) GetTeam(_ context.Context, _ bun.IDB, id uuid.UUID) (*submissiondb.Team, error) {
	if t, ok := f.Teams[id]; ok {
		return t, nil
	}
	return nil, submissiondb.ErrTeamNotFound
}

func (f *FakeStore) GetSubmission(_ context.Context, _ bun.IDB, id uuid.UUID) (*submissiondb.Submission, error) {
	if s, ok := f.Submissions[id]; ok {
		return s, nil
	}
	return nil, submissiondb.ErrSubmissionNotFound
}

func (f *FakeStore) GetChat(_ context.Context, _ bun.IDB, id uuid.UUID) (*chatdb.Chat, error) {
	if c, ok := f.Chats[id]; ok {
		return c, nil
	}
	return nil, chatdb.ErrChatNotFound
}
