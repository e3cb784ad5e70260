package budgetmigrations

import (
	"context"
	"fmt"

	budgetdb "github.com/spylab/llm-ctf/app/modules/budget/infrastructure/repositories"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating team_budgets table...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.NewCreateTable().Model((*budgetdb.ProviderBudget)(nil)).IfNotExists().Exec(ctx); err != nil {
				return fmt.Errorf("failed to create team_budgets table: %w", err)
			}
			if _, err := tx.NewRaw(`ALTER TABLE team_budgets
				ADD CONSTRAINT chk_team_budgets_consumed_non_negative CHECK (consumed >= 0)`).Exec(ctx); err != nil {
				return fmt.Errorf("failed to add team_budgets constraint: %w", err)
			}

			fmt.Println("Team budgets table created successfully!")
			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping team_budgets table...")

		if _, err := db.NewDropTable().Model((*budgetdb.ProviderBudget)(nil)).IfExists().Exec(ctx); err != nil {
			return err
		}

		fmt.Println("Team budgets table dropped successfully!")
		return nil
	})
}
