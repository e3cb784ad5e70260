package guessdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spylab/llm-ctf/internal/bundb"
	"github.com/uptrace/bun"
)

// Impl implements Repository on bun.
type Impl struct {
	db bun.IDB
}

var _ Repository = (*Impl)(nil)

// NewRepository creates a new guess repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

func (r *Impl) LockSecret(ctx context.Context, db bun.IDB, secretID uuid.UUID) error {
	if db == nil {
		return fmt.Errorf("guessdb.LockSecret: transaction required")
	}
	if _, err := db.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", secretID.String()).Exec(ctx); err != nil {
		return fmt.Errorf("guessdb.LockSecret: %w", err)
	}
	return nil
}

func (r *Impl) InsertGuess(ctx context.Context, db bun.IDB, guess *Guess) error {
	if db == nil {
		db = r.db
	}
	if _, err := db.NewInsert().Model(guess).Exec(ctx); err != nil {
		if bundb.IsUniqueViolation(err) {
			return ErrDuplicateRanking
		}
		return fmt.Errorf("guessdb.InsertGuess: %w", err)
	}
	return nil
}

func (r *Impl) CountCorrectGuesses(ctx context.Context, db bun.IDB, secretID uuid.UUID) (int, error) {
	if db == nil {
		db = r.db
	}
	n, err := db.NewSelect().
		Model((*Guess)(nil)).
		Where("g.secret_id = ?", secretID).
		Where("g.is_correct = TRUE").
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("guessdb.CountCorrectGuesses: %w", err)
	}
	return n, nil
}

func (r *Impl) CountGuesses(ctx context.Context, db bun.IDB, secretID, teamID uuid.UUID) (int, error) {
	if db == nil {
		db = r.db
	}
	n, err := db.NewSelect().
		Model((*Guess)(nil)).
		Where("g.secret_id = ?", secretID).
		Where("g.guesser_team_id = ?", teamID).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("guessdb.CountGuesses: %w", err)
	}
	return n, nil
}

func (r *Impl) HasCorrectGuess(ctx context.Context, db bun.IDB, secretID, teamID uuid.UUID) (bool, error) {
	if db == nil {
		db = r.db
	}
	exists, err := db.NewSelect().
		Model((*Guess)(nil)).
		Where("g.secret_id = ?", secretID).
		Where("g.guesser_team_id = ?", teamID).
		Where("g.is_correct = TRUE").
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("guessdb.HasCorrectGuess: %w", err)
	}
	return exists, nil
}

// MostRecentGuess returns nil, nil when the team has not guessed on the submission.
func (r *Impl) MostRecentGuess(ctx context.Context, db bun.IDB, teamID, submissionID uuid.UUID, isEvaluation bool) (*Guess, error) {
	if db == nil {
		db = r.db
	}
	guess := new(Guess)
	err := db.NewSelect().
		Model(guess).
		Where("g.guesser_team_id = ?", teamID).
		Where("g.submission_id = ?", submissionID).
		Where("g.is_evaluation = ?", isEvaluation).
		OrderExpr("g.guessed_at DESC, g.id DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("guessdb.MostRecentGuess: %w", err)
	}
	return guess, nil
}

func (r *Impl) CorrectEvaluationGuesses(ctx context.Context, db bun.IDB, submissionID uuid.UUID) ([]Guess, error) {
	if db == nil {
		db = r.db
	}
	var guesses []Guess
	err := db.NewSelect().
		Model(&guesses).
		Where("g.submission_id = ?", submissionID).
		Where("g.is_evaluation = TRUE").
		Where("g.is_correct = TRUE").
		OrderExpr("g.guessed_at ASC, g.guess_ranking ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("guessdb.CorrectEvaluationGuesses: %w", err)
	}
	return guesses, nil
}

func (r *Impl) DeleteGuessesForSecrets(ctx context.Context, db bun.IDB, secretIDs []uuid.UUID) (int, error) {
	if len(secretIDs) == 0 {
		return 0, nil
	}
	if db == nil {
		db = r.db
	}
	res, err := db.NewDelete().Model((*Guess)(nil)).Where("secret_id IN (?)", bun.In(secretIDs)).Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("guessdb.DeleteGuessesForSecrets: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
