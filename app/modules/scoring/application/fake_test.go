package scoringservice

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	guessdb "github.com/spylab/llm-ctf/app/modules/guess/infrastructure/repositories"
	scoringdomain "github.com/spylab/llm-ctf/app/modules/scoring/domain"
	submissiondb "github.com/spylab/llm-ctf/app/modules/submission/infrastructure/repositories"
	"github.com/uptrace/bun"
)

type FakeSubmissions struct {
	Teams       map[uuid.UUID]submissiondb.Team
	Submissions []submissiondb.Submission
}

func (f *FakeSubmissions) ListSubmissions(_ context.Context, _ bun.IDB, activeOnly bool) ([]submissiondb.Submission, error) {
	var out []submissiondb.Submission
	for _, s := range f.Submissions {
		if activeOnly && !s.IsActive {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (f *FakeSubmissions) GetTeamsByIDs(_ context.Context, _ bun.IDB, ids []uuid.UUID) (map[uuid.UUID]submissiondb.Team, error) {
	out := map[uuid.UUID]submissiondb.Team{}
	for _, id := range ids {
		if t, ok := f.Teams[id]; ok {
			out[id] = t
		}
	}
	return out, nil
}

type FakeGuesses struct {
	mu      sync.Mutex
	Correct map[uuid.UUID][]guessdb.Guess
	Errs    map[uuid.UUID]error
	Calls   int
}

func (f *FakeGuesses) CorrectEvaluationGuesses(ctx context.Context, _ bun.IDB, submissionID uuid.UUID) ([]guessdb.Guess, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := f.Errs[submissionID]; err != nil {
		return nil, err
	}
	return f.Correct[submissionID], nil
}

type FakeChats struct {
	Counts map[uuid.UUID]map[uuid.UUID]int
}

func (f *FakeChats) EvaluationChatCounts(_ context.Context, _ bun.IDB, submissionID uuid.UUID) (map[uuid.UUID]int, error) {
	return f.Counts[submissionID], nil
}

type FakeCache struct {
	Scores  []scoringdomain.SubmissionScore
	Present bool
	GetErr  error
	Sets    int
	TTL     time.Duration
}

func (f *FakeCache) Get(context.Context) ([]scoringdomain.SubmissionScore, bool, error) {
	if f.GetErr != nil {
		return nil, false, f.GetErr
	}
	return f.Scores, f.Present, nil
}

func (f *FakeCache) Set(_ context.Context, scores []scoringdomain.SubmissionScore, ttl time.Duration) error {
	f.Scores, f.Present, f.TTL = scores, true, ttl
	f.Sets++
	return nil
}

func (f *FakeCache) Delete(context.Context) error {
	f.Scores, f.Present = nil, false
	return nil
}

var errNoSnapshot = errors.New("no snapshot")

type FakeSnapshots struct {
	Scores []scoringdomain.SubmissionScore
	Saved  bool
}

func (f *FakeSnapshots) Load(context.Context) ([]scoringdomain.SubmissionScore, error) {
	if f.Scores == nil {
		return nil, errNoSnapshot
	}
	return f.Scores, nil
}

func (f *FakeSnapshots) Save(_ context.Context, scores []scoringdomain.SubmissionScore) error {
	f.Scores, f.Saved = scores, true
	return nil
}
