package secretservice

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	guessdb "github.com/spylab/llm-ctf/app/modules/guess/infrastructure/repositories"
	secretdomain "github.com/spylab/llm-ctf/app/modules/secret/domain"
	secretdb "github.com/spylab/llm-ctf/app/modules/secret/infrastructure/repositories"
	submissiondb "github.com/spylab/llm-ctf/app/modules/submission/infrastructure/repositories"
	"github.com/spylab/llm-ctf/internal/observability"
	"github.com/uptrace/bun"
)

// SubmissionReader resolves submissions by key.
type SubmissionReader interface {
	GetSubmission(ctx context.Context, db bun.IDB, id uuid.UUID) (*submissiondb.Submission, error)
	ListSubmissions(ctx context.Context, db bun.IDB, activeOnly bool) ([]submissiondb.Submission, error)
}

// GuessLedger is the part of the guess ledger the rotation policy reads.
type GuessLedger interface {
	MostRecentGuess(ctx context.Context, db bun.IDB, teamID, submissionID uuid.UUID, isEvaluation bool) (*guessdb.Guess, error)
	CountGuesses(ctx context.Context, db bun.IDB, secretID, teamID uuid.UUID) (int, error)
	DeleteGuessesForSecrets(ctx context.Context, db bun.IDB, secretIDs []uuid.UUID) (int, error)
}

// Settings are the competition options the secret manager reads.
type Settings struct {
	SecretLength             int
	MaxSecretGuesses         int
	EvalSecretsPerSubmission int
}

// Service issues and rotates secrets.
type Service struct {
	repo        secretdb.Repository
	submissions SubmissionReader
	guesses     GuessLedger
	in          observability.Instrumentation
	db          *bun.DB
	settings    Settings
	randomValue func(length int) (string, error)
}

// NewSecretService creates a new Service. db may be nil, in which case
// operations run without a transaction.
func NewSecretService(
	repo secretdb.Repository,
	submissions SubmissionReader,
	guesses GuessLedger,
	in observability.Instrumentation,
	db *bun.DB,
	settings Settings,
) *Service {
	return &Service{
		repo:        repo,
		submissions: submissions,
		guesses:     guesses,
		in:          in,
		db:          db,
		settings:    settings,
		randomValue: secretdomain.RandomValue,
	}
}

func runInTx[T any](s *Service, ctx context.Context, fn func(ctx context.Context, db bun.IDB) (T, error)) (T, error) {
	if s.db == nil {
		return fn(ctx, nil)
	}

	var result T
	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var txErr error
		result, txErr = fn(ctx, tx)
		return txErr
	})
	return result, err
}
