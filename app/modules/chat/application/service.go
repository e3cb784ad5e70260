package chatservice

import (
	"context"

	"github.com/google/uuid"
	budgetdomain "github.com/spylab/llm-ctf/app/modules/budget/domain"
	chatdb "github.com/spylab/llm-ctf/app/modules/chat/infrastructure/repositories"
	secretdb "github.com/spylab/llm-ctf/app/modules/secret/infrastructure/repositories"
	submissiondb "github.com/spylab/llm-ctf/app/modules/submission/infrastructure/repositories"
	"github.com/spylab/llm-ctf/internal/observability"
	"github.com/spylab/llm-ctf/internal/sharedtypes"
	"github.com/uptrace/bun"
)

// Generator produces the model reply for a chat turn.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (output string, cost float64, err error)
}

// GenerationRequest is one call to the chat model.
type GenerationRequest struct {
	Model   sharedtypes.ChatModel
	APIKey  string
	History []string
	Secret  string
}

type BudgetLedger interface {
	Remaining(ctx context.Context, teamID uuid.UUID, provider sharedtypes.Provider) (float64, error)
	Consume(ctx context.Context, teamID uuid.UUID, provider sharedtypes.Provider, amount float64) (*budgetdomain.TeamBudget, error)
	Drain(ctx context.Context, teamID uuid.UUID, provider sharedtypes.Provider) (*budgetdomain.TeamBudget, error)
}

type SecretIssuer interface {
	GetSecret(ctx context.Context, id uuid.UUID) (*secretdb.Secret, error)
	NewPracticeSecret(ctx context.Context) (*secretdb.Secret, error)
	SecretForAttack(ctx context.Context, teamID, submissionID uuid.UUID, evaluation, newSecret bool) (*secretdb.Secret, error)
}

type SubmissionReader interface {
	GetTeam(ctx context.Context, db bun.IDB, id uuid.UUID) (*submissiondb.Team, error)
	GetSubmission(ctx context.Context, db bun.IDB, id uuid.UUID) (*submissiondb.Submission, error)
}

// Settings configure the orchestrator.
type Settings struct {
	// PlatformKeys are the competition's own provider keys, used when a team
	// spends its budget.
	PlatformKeys            map[sharedtypes.Provider]string
	// GenerationRatePerMinute limits turns per team; zero disables limiting.
	GenerationRatePerMinute float64
}

// Service opens chats and drives generation turns.
type Service struct {
	chats       chatdb.Repository
	secrets     SecretIssuer
	submissions SubmissionReader
	budget      BudgetLedger
	generator   Generator
	limiter     *teamLimiter
	in          observability.Instrumentation
	settings    Settings
}

func NewChatService(
	chats chatdb.Repository,
	secrets SecretIssuer,
	submissions SubmissionReader,
	budget BudgetLedger,
	generator Generator,
	in observability.Instrumentation,
	settings Settings,
) *Service {
	return &Service{
		chats:       chats,
		secrets:     secrets,
		submissions: submissions,
		budget:      budget,
		generator:   generator,
		limiter:     newTeamLimiter(settings.GenerationRatePerMinute),
		in:          in,
		settings:    settings,
	}
}

func (s *Service) GetChat(ctx context.Context, id uuid.UUID) (*chatdb.Chat, error) {
	return s.chats.GetChat(ctx, nil, id)
}

// EvaluationChatCounts returns, per team, the evaluation chats opened
// against a submission.
func (s *Service) EvaluationChatCounts(ctx context.Context, submissionID uuid.UUID) (map[uuid.UUID]int, error) {
	return s.chats.EvaluationChatCounts(ctx, nil, submissionID)
}
