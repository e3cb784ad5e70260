package guessmigrations

import (
	"context"
	"fmt"

	guessdb "github.com/spylab/llm-ctf/app/modules/guess/infrastructure/repositories"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating guesses table...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.NewCreateTable().Model((*guessdb.Guess)(nil)).IfNotExists().Exec(ctx); err != nil {
				return fmt.Errorf("failed to create guesses table: %w", err)
			}

			for _, stmt := range []string{
				// A team holds at most one correct guess per secret.
				`CREATE UNIQUE INDEX IF NOT EXISTS idx_guesses_one_correct_per_team
				ON guesses (secret_id, guesser_team_id)
				WHERE is_correct`,
				// Rankings among correct guesses of a secret are distinct.
				`CREATE UNIQUE INDEX IF NOT EXISTS idx_guesses_correct_ranking
				ON guesses (secret_id, guess_ranking)
				WHERE is_correct`,
				`CREATE INDEX IF NOT EXISTS idx_guesses_secret_team
				ON guesses (secret_id, guesser_team_id)`,
				`CREATE INDEX IF NOT EXISTS idx_guesses_team_submission_recent
				ON guesses (guesser_team_id, submission_id, is_evaluation, guessed_at DESC)`,
				`CREATE INDEX IF NOT EXISTS idx_guesses_submission_correct_eval
				ON guesses (submission_id, guessed_at ASC)
				WHERE is_correct AND is_evaluation`,
			} {
				if _, err := tx.NewRaw(stmt).Exec(ctx); err != nil {
					return fmt.Errorf("failed to create guess index: %w", err)
				}
			}

			fmt.Println("Guesses table created successfully!")
			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping guesses table...")

		if _, err := db.NewDropTable().Model((*guessdb.Guess)(nil)).IfExists().Exec(ctx); err != nil {
			return err
		}

		fmt.Println("Guesses table dropped successfully!")
		return nil
	})
}
