package scoringservice

import (
	"context"
	"time"

	"github.com/google/uuid"
	guessdb "github.com/spylab/llm-ctf/app/modules/guess/infrastructure/repositories"
	scoringdomain "github.com/spylab/llm-ctf/app/modules/scoring/domain"
	submissiondb "github.com/spylab/llm-ctf/app/modules/submission/infrastructure/repositories"
	"github.com/spylab/llm-ctf/config"
	"github.com/spylab/llm-ctf/internal/observability"
	"github.com/spylab/llm-ctf/internal/sharedtypes"
	"github.com/uptrace/bun"
)

type SubmissionReader interface {
	ListSubmissions(ctx context.Context, db bun.IDB, activeOnly bool) ([]submissiondb.Submission, error)
	GetTeamsByIDs(ctx context.Context, db bun.IDB, ids []uuid.UUID) (map[uuid.UUID]submissiondb.Team, error)
}

type GuessReader interface {
	CorrectEvaluationGuesses(ctx context.Context, db bun.IDB, submissionID uuid.UUID) ([]guessdb.Guess, error)
}

type ChatCounter interface {
	EvaluationChatCounts(ctx context.Context, db bun.IDB, submissionID uuid.UUID) (map[uuid.UUID]int, error)
}

// Cache stores the computed leaderboard.
type Cache interface {
	Get(ctx context.Context) ([]scoringdomain.SubmissionScore, bool, error)
	Set(ctx context.Context, scores []scoringdomain.SubmissionScore, ttl time.Duration) error
	Delete(ctx context.Context) error
}

// SnapshotStore holds the frozen leaderboard served once the competition ends.
type SnapshotStore interface {
	Load(ctx context.Context) ([]scoringdomain.SubmissionScore, error)
	Save(ctx context.Context, scores []scoringdomain.SubmissionScore) error
}

// Settings are the competition options scoring reads.
type Settings struct {
	Params                scoringdomain.Params
	Phase                 sharedtypes.CompetitionPhase
	CacheTTL              time.Duration
	MaxSubmissionsPerTeam int
	// Concurrency bounds the per-submission fan-out.
	Concurrency           int
}

// Service is the scoring engine.
type Service struct {
	submissions SubmissionReader
	guesses     GuessReader
	chats       ChatCounter
	cache       Cache
	snapshots   SnapshotStore
	in          observability.Instrumentation
	settings    Settings
}

// NewScoringService creates a new Service. cache may be nil to disable caching.
func NewScoringService(
	submissions SubmissionReader,
	guesses GuessReader,
	chats ChatCounter,
	cache Cache,
	snapshots SnapshotStore,
	in observability.Instrumentation,
	settings Settings,
) *Service {
	if settings.Concurrency <= 0 {
		settings.Concurrency = 8
	}
	return &Service{
		submissions: submissions,
		guesses:     guesses,
		chats:       chats,
		cache:       cache,
		snapshots:   snapshots,
		in:          in,
		settings:    settings,
	}
}

// SettingsFromConfig maps the competition rules onto scoring settings.
func SettingsFromConfig(cfg config.CompetitionConfig) Settings {
	return Settings{
		Params: scoringdomain.Params{
			PenalizationPerEvalChat: cfg.PenalizationPerEvalChat,
			RankingBonus:            cfg.DefenseRankingBreakingBonus,
			Gamma:                   cfg.DefenseGamma,
			AttackerBasePoints:      cfg.AttackerBasePoints,
			StartTimestamp:          cfg.StartTimestamp,
		},
		Phase:                 cfg.Phase,
		CacheTTL:              cfg.CacheTTL(),
		MaxSubmissionsPerTeam: cfg.MaxSubmissionsPerTeam,
	}
}
