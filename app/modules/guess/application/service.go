package guessservice

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	chatdb "github.com/spylab/llm-ctf/app/modules/chat/infrastructure/repositories"
	guessdb "github.com/spylab/llm-ctf/app/modules/guess/infrastructure/repositories"
	secretdb "github.com/spylab/llm-ctf/app/modules/secret/infrastructure/repositories"
	submissiondb "github.com/spylab/llm-ctf/app/modules/submission/infrastructure/repositories"
	"github.com/spylab/llm-ctf/internal/observability"
	"github.com/uptrace/bun"
)

type SecretReader interface {
	GetSecret(ctx context.Context, db bun.IDB, id uuid.UUID) (*secretdb.Secret, error)
}

type TeamReader interface {
	GetTeam(ctx context.Context, db bun.IDB, id uuid.UUID) (*submissiondb.Team, error)
}

type SubmissionReader interface {
	GetSubmission(ctx context.Context, db bun.IDB, id uuid.UUID) (*submissiondb.Submission, error)
}

type ChatReader interface {
	GetChat(ctx context.Context, db bun.IDB, id uuid.UUID) (*chatdb.Chat, error)
}

// Service is the guess ledger.
type Service struct {
	repo        guessdb.Repository
	secrets     SecretReader
	teams       TeamReader
	submissions SubmissionReader
	chats       ChatReader
	in          observability.Instrumentation
	db          *bun.DB
	maxGuesses  int
	locks       *secretLocks
	now         func() time.Time
}

// NewGuessService creates a new Service. maxGuesses is the number of guesses a
// team may make on one secret.
func NewGuessService(
	repo guessdb.Repository,
	secrets SecretReader,
	teams TeamReader,
	submissions SubmissionReader,
	chats ChatReader,
	in observability.Instrumentation,
	db *bun.DB,
	maxGuesses int,
) *Service {
	return &Service{
		repo:        repo,
		secrets:     secrets,
		teams:       teams,
		submissions: submissions,
		chats:       chats,
		in:          in,
		db:          db,
		maxGuesses:  maxGuesses,
		locks:       newSecretLocks(),
		now:         func() time.Time { return time.Now().UTC() },
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
