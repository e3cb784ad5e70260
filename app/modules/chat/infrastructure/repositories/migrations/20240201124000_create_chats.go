package chatmigrations

import (
	"context"
	"fmt"

	chatdb "github.com/spylab/llm-ctf/app/modules/chat/infrastructure/repositories"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating chats table...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.NewCreateTable().Model((*chatdb.Chat)(nil)).IfNotExists().Exec(ctx); err != nil {
				return fmt.Errorf("failed to create chats table: %w", err)
			}
			if _, err := tx.NewRaw(`CREATE INDEX IF NOT EXISTS idx_chats_submission_evaluation
				ON chats (submission_id, team_id)
				WHERE is_evaluation`).Exec(ctx); err != nil {
				return fmt.Errorf("failed to create chat index: %w", err)
			}

			fmt.Println("Chats table created successfully!")
			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping chats table...")

		if _, err := db.NewDropTable().Model((*chatdb.Chat)(nil)).IfExists().Exec(ctx); err != nil {
			return err
		}

		fmt.Println("Chats table dropped successfully!")
		return nil
	})
}
