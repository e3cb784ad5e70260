package secretmigrations

import (
	"context"
	"fmt"

	secretdb "github.com/spylab/llm-ctf/app/modules/secret/infrastructure/repositories"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating secrets table...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.NewCreateTable().Model((*secretdb.Secret)(nil)).IfNotExists().Exec(ctx); err != nil {
				return fmt.Errorf("failed to create secrets table: %w", err)
			}

			// One secret per evaluation slot of a submission.
			if _, err := tx.NewRaw(`
				CREATE UNIQUE INDEX IF NOT EXISTS idx_secrets_evaluation_slot
				ON secrets (submission_id, evaluation_index)
				WHERE is_evaluation
			`).Exec(ctx); err != nil {
				return fmt.Errorf("create idx_secrets_evaluation_slot: %w", err)
			}

			fmt.Println("Secrets table created successfully!")
			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping secrets table...")

		if _, err := db.NewDropTable().Model((*secretdb.Secret)(nil)).IfExists().Exec(ctx); err != nil {
			return err
		}

		fmt.Println("Secrets table dropped successfully!")
		return nil
	})
}
