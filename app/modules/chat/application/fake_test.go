package chatservice

import (
	"context"
	"sync"

	"github.com/google/uuid"
	budgetservice "github.com/spylab/llm-ctf/app/modules/budget/application"
	budgetdomain "github.com/spylab/llm-ctf/app/modules/budget/domain"
	chatdb "github.com/spylab/llm-ctf/app/modules/chat/infrastructure/repositories"
	secretdb "github.com/spylab/llm-ctf/app/modules/secret/infrastructure/repositories"
	submissiondb "github.com/spylab/llm-ctf/app/modules/submission/infrastructure/repositories"
	"github.com/spylab/llm-ctf/internal/sharedtypes"
	"github.com/uptrace/bun"
)

// FakeChatRepository is an in-memory chatdb.Repository.
type FakeChatRepository struct {
	Chats map[uuid.UUID]*chatdb.Chat
}

var _ chatdb.Repository = (*FakeChatRepository)(nil)

func NewFakeChatRepository() *FakeChatRepository {
	return &FakeChatRepository{Chats: map[uuid.UUID]*chatdb.Chat{}}
}

func (f *FakeChatRepository) CreateChat(_ context.Context, _ bun.IDB, chat *chatdb.Chat) error {
	if chat.ID == uuid.Nil {
		chat.ID = uuid.New()
	}
	f.Chats[chat.ID] = chat
	return nil
}

func (f *FakeChatRepository) GetChat(_ context.Context, _ bun.IDB, id uuid.UUID) (*chatdb.Chat, error) {
	if c, ok := f.Chats[id]; ok {
		return c, nil
	}
	return nil, chatdb.ErrChatNotFound
}

func (f *FakeChatRepository) EvaluationChatCounts(_ context.Context, _ bun.IDB, submissionID uuid.UUID) (map[uuid.UUID]int, error) {
	out := map[uuid.UUID]int{}
	for _, c := range f.Chats {
		if c.IsEvaluation && c.SubmissionID != nil && *c.SubmissionID == submissionID {
			out[c.TeamID]++
		}
	}
	return out, nil
}

// FakeSecrets issues secrets from a map. Attack secrets are recorded per call.
type FakeSecrets struct {
	Secrets     map[uuid.UUID]*secretdb.Secret
	AttackCalls []bool
	AttackErr   error
}

func NewFakeSecrets() *FakeSecrets {
	return &FakeSecrets{Secrets: map[uuid.UUID]*secretdb.Secret{}}
}

func (f *FakeSecrets) add(value string, submissionID *uuid.UUID, evaluation bool) *secretdb.Secret {
	s := &secretdb.Secret{ID: uuid.New(), Value: value, SubmissionID: submissionID, IsEvaluation: evaluation}
	f.Secrets[s.ID] = s
	return s
}

func (f *FakeSecrets) GetSecret(_ context.Context, id uuid.UUID) (*secretdb.Secret, error) {
	if s, ok := f.Secrets[id]; ok {
		return s, nil
	}
	return nil, secretdb.ErrSecretNotFound
}

func (f *FakeSecrets) NewPracticeSecret(context.Context) (*secretdb.Secret, error) {
	return f.add("PRACT1", nil, false), nil
}

func (f *FakeSecrets) SecretForAttack(_ context.Context, _, submissionID uuid.UUID, evaluation, _ bool) (*secretdb.Secret, error) {
	f.AttackCalls = append(f.AttackCalls, evaluation)
	if f.AttackErr != nil {
		return nil, f.AttackErr
	}
	return f.add("ATTK01", &submissionID, evaluation), nil
}

type FakeSubmissions struct {
	Teams       map[uuid.UUID]*submissiondb.Team
	Submissions map[uuid.UUID]*submissiondb.Submission
}

func (f *FakeSubmissions) GetTeam(_ context.Context, _ bun.IDB, id uuid.UUID) (*submissiondb.Team, error) {
	if t, ok := f.Teams[id]; ok {
		return t, nil
	}
	return nil, submissiondb.ErrTeamNotFound
}

func (f *FakeSubmissions) GetSubmission(_ context.Context, _ bun.IDB, id uuid.UUID) (*submissiondb.Submission, error) {
	if s, ok := f.Submissions[id]; ok {
		return s, nil
	}
	return nil, submissiondb.ErrSubmissionNotFound
}

// FakeBudget is an atomic in-memory ledger for a single provider per team.
type FakeBudget struct {
	mu       sync.Mutex
	Limit    map[uuid.UUID]float64
	Consumed map[uuid.UUID]float64
	Charges  []float64
	Drains   int
}

func NewFakeBudget() *FakeBudget {
	return &FakeBudget{Limit: map[uuid.UUID]float64{}, Consumed: map[uuid.UUID]float64{}}
}

func (f *FakeBudget) Remaining(_ context.Context, teamID uuid.UUID, _ sharedtypes.Provider) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Limit[teamID] - f.Consumed[teamID], nil
}

func (f *FakeBudget) Consume(_ context.Context, teamID uuid.UUID, provider sharedtypes.Provider, amount float64) (*budgetdomain.TeamBudget, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Consumed[teamID]+amount > f.Limit[teamID] {
		return nil, budgetservice.ErrInsufficientBudget
	}
	f.Consumed[teamID] += amount
	f.Charges = append(f.Charges, amount)
	return &budgetdomain.TeamBudget{
		TeamID: teamID,
		Providers: map[sharedtypes.Provider]budgetdomain.ProviderBudget{
			provider: {Consumed: f.Consumed[teamID], Limit: f.Limit[teamID]},
		},
	}, nil
}

func (f *FakeBudget) Drain(_ context.Context, teamID uuid.UUID, provider sharedtypes.Provider) (*budgetdomain.TeamBudget, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Consumed[teamID] < f.Limit[teamID] {
		f.Consumed[teamID] = f.Limit[teamID]
	}
	f.Drains++
	return &budgetdomain.TeamBudget{
		TeamID: teamID,
		Providers: map[sharedtypes.Provider]budgetdomain.ProviderBudget{
			provider: {Consumed: f.Consumed[teamID], Limit: f.Limit[teamID]},
		},
	}, nil
}

type FakeGenerator struct {
	Output   string
	Cost     float64
	Err      error
	Requests []GenerationRequest
}

func (f *FakeGenerator) Generate(_ context.Context, req GenerationRequest) (string, float64, error) {
	f.Requests = append(f.Requests, req)
	if f.Err != nil {
		return "", 0, f.Err
	}
	return f.Output, f.Cost, nil
}

type fakeCompleter struct {
	reply string
	cost  float64
	keys  []string
}

func (c *fakeCompleter) Complete(_ context.Context, apiKey string, _ sharedtypes.ChatModel, _ string) (string, float64, error) {
	c.keys = append(c.keys, apiKey)
	return c.reply, c.cost, nil
}
