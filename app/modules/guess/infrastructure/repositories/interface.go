package guessdb

import (
	"context"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Repository defines the data access for the guess ledger.
type Repository interface {
	// LockSecret serializes ranking for one secret until the surrounding
	// transaction ends. It must be called with a transaction.
	LockSecret(ctx context.Context, db bun.IDB, secretID uuid.UUID) error
	InsertGuess(ctx context.Context, db bun.IDB, guess *Guess) error
	CountCorrectGuesses(ctx context.Context, db bun.IDB, secretID uuid.UUID) (int, error)
	CountGuesses(ctx context.Context, db bun.IDB, secretID, teamID uuid.UUID) (int, error)
	HasCorrectGuess(ctx context.Context, db bun.IDB, secretID, teamID uuid.UUID) (bool, error)
	MostRecentGuess(ctx context.Context, db bun.IDB, teamID, submissionID uuid.UUID, isEvaluation bool) (*Guess, error)
	CorrectEvaluationGuesses(ctx context.Context, db bun.IDB, submissionID uuid.UUID) ([]Guess, error)
	DeleteGuessesForSecrets(ctx context.Context, db bun.IDB, secretIDs []uuid.UUID) (int, error)
}
