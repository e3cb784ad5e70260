// Package app assembles the competition modules for the binaries.
package app

import (
	"github.com/redis/go-redis/v9"
	budgetservice "github.com/spylab/llm-ctf/app/modules/budget/application"
	budgetdb "github.com/spylab/llm-ctf/app/modules/budget/infrastructure/repositories"
	chatservice "github.com/spylab/llm-ctf/app/modules/chat/application"
	chatdb "github.com/spylab/llm-ctf/app/modules/chat/infrastructure/repositories"
	guessservice "github.com/spylab/llm-ctf/app/modules/guess/application"
	guessdb "github.com/spylab/llm-ctf/app/modules/guess/infrastructure/repositories"
	scoringservice "github.com/spylab/llm-ctf/app/modules/scoring/application"
	scoringcache "github.com/spylab/llm-ctf/app/modules/scoring/infrastructure/cache"
	scoringsnapshot "github.com/spylab/llm-ctf/app/modules/scoring/infrastructure/snapshot"
	secretservice "github.com/spylab/llm-ctf/app/modules/secret/application"
	secretdb "github.com/spylab/llm-ctf/app/modules/secret/infrastructure/repositories"
	submissionservice "github.com/spylab/llm-ctf/app/modules/submission/application"
	submissiondb "github.com/spylab/llm-ctf/app/modules/submission/infrastructure/repositories"
	"github.com/spylab/llm-ctf/config"
	"github.com/spylab/llm-ctf/internal/observability"
	"github.com/spylab/llm-ctf/internal/observability/attr"
	"github.com/spylab/llm-ctf/internal/sharedtypes"
	"github.com/uptrace/bun"
)

// Services holds one instance of every application service.
type Services struct {
	Submissions *submissionservice.Service
	Secrets     *secretservice.Service
	Guesses     *guessservice.Service
	Budgets     *budgetservice.Service
	Scoring     *scoringservice.Service
	// Chat is nil unless a generator was supplied.
	Chat        *chatservice.Service
}

// ServiceDeps are the external collaborators of NewServices.
type ServiceDeps struct {
	DB           *bun.DB
	Redis        redis.UniversalClient
	Config       *config.Config
	Obs          *observability.Observability
	// Generator produces model replies for the chat orchestrator.
	Generator    chatservice.Generator
	PlatformKeys map[sharedtypes.Provider]string
}

// NewServices builds the repositories and services over deps.DB. A nil
// deps.Redis disables the leaderboard cache.
func NewServices(deps ServiceDeps) Services {
	comp := deps.Config.Competition

	submissionRepo := submissiondb.NewRepository(deps.DB)
	secretRepo := secretdb.NewRepository(deps.DB)
	guessRepo := guessdb.NewRepository(deps.DB)
	budgetRepo := budgetdb.NewRepository(deps.DB)
	chatRepo := chatdb.NewRepository(deps.DB)

	var cache scoringservice.Cache
	if deps.Redis != nil {
		cache = scoringcache.NewRedisCache(deps.Redis)
	}

	svc := Services{
		Submissions: submissionservice.NewSubmissionService(
			submissionRepo,
			deps.Obs.Logger.With(attr.String("module", "submission")),
			deps.Obs.Tracer,
			comp.ChatModels,
			comp.MaxSubmissionsPerTeam,
		),
		Secrets: secretservice.NewSecretService(
			secretRepo,
			submissionRepo,
			guessRepo,
			deps.Obs.NewInstrumentation("secret"),
			deps.DB,
			secretservice.Settings{
				SecretLength:             comp.SecretLength,
				MaxSecretGuesses:         comp.MaxSecretGuesses,
				EvalSecretsPerSubmission: comp.EvalSecretsPerSubmission,
			},
		),
		Guesses: guessservice.NewGuessService(
			guessRepo,
			secretRepo,
			submissionRepo,
			submissionRepo,
			chatRepo,
			deps.Obs.NewInstrumentation("guess"),
			deps.DB,
			comp.MaxSecretGuesses,
		),
		Budgets: budgetservice.NewBudgetService(
			budgetRepo,
			deps.Obs.NewInstrumentation("budget"),
			deps.DB,
			comp.BudgetMode,
		),
		Scoring: scoringservice.NewScoringService(
			submissionRepo,
			guessRepo,
			chatRepo,
			cache,
			scoringsnapshot.NewFileStore(comp.FinalScoresPath),
			deps.Obs.NewInstrumentation("scoring"),
			scoringservice.SettingsFromConfig(comp),
		),
	}

	if deps.Generator != nil {
		svc.Chat = chatservice.NewChatService(
			chatRepo,
			svc.Secrets,
			submissionRepo,
			svc.Budgets,
			deps.Generator,
			deps.Obs.NewInstrumentation("chat"),
			chatservice.Settings{
				PlatformKeys:            deps.PlatformKeys,
				GenerationRatePerMinute: comp.GenerationRatePerMinute,
			},
		)
	}
	return svc
}
