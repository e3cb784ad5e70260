package submissionmigrations

import (
	"context"
	"fmt"

	submissiondb "github.com/spylab/llm-ctf/app/modules/submission/infrastructure/repositories"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating teams and submissions tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.NewCreateTable().Model((*submissiondb.Team)(nil)).IfNotExists().Exec(ctx); err != nil {
				return fmt.Errorf("failed to create teams table: %w", err)
			}
			if _, err := tx.NewCreateTable().Model((*submissiondb.Submission)(nil)).IfNotExists().Exec(ctx); err != nil {
				return fmt.Errorf("failed to create submissions table: %w", err)
			}
			for _, stmt := range []string{
				`CREATE UNIQUE INDEX IF NOT EXISTS idx_submissions_model_team ON submissions (model, team_id)`,
				`CREATE UNIQUE INDEX IF NOT EXISTS idx_submissions_model_defense ON submissions (model, defense_id)`,
				`CREATE INDEX IF NOT EXISTS idx_submissions_active ON submissions (is_active) WHERE is_active`,
			} {
				if _, err := tx.NewRaw(stmt).Exec(ctx); err != nil {
					return fmt.Errorf("failed to create submission index: %w", err)
				}
			}

			fmt.Println("Teams and submissions tables created successfully!")
			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping teams and submissions tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.NewDropTable().Model((*submissiondb.Submission)(nil)).IfExists().Exec(ctx); err != nil {
				return err
			}
			if _, err := tx.NewDropTable().Model((*submissiondb.Team)(nil)).IfExists().Exec(ctx); err != nil {
				return err
			}
			return nil
		})
	})
}
