// Package migrations lists the schema migrations of every module and the
// River job tables.
package migrations

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	budgetmigrations "github.com/spylab/llm-ctf/app/modules/budget/infrastructure/repositories/migrations"
	chatmigrations "github.com/spylab/llm-ctf/app/modules/chat/infrastructure/repositories/migrations"
	guessmigrations "github.com/spylab/llm-ctf/app/modules/guess/infrastructure/repositories/migrations"
	secretmigrations "github.com/spylab/llm-ctf/app/modules/secret/infrastructure/repositories/migrations"
	submissionmigrations "github.com/spylab/llm-ctf/app/modules/submission/infrastructure/repositories/migrations"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

// Module is one module's migration set.
type Module struct {
	Name       string
	Migrations *migrate.Migrations
}

// Modules returns the module migration sets in apply order.
func Modules() []Module {
	return []Module{
		{Name: "submission", Migrations: submissionmigrations.Migrations},
		{Name: "secret", Migrations: secretmigrations.Migrations},
		{Name: "guess", Migrations: guessmigrations.Migrations},
		{Name: "budget", Migrations: budgetmigrations.Migrations},
		{Name: "chat", Migrations: chatmigrations.Migrations},
	}
}

// NewMigrator returns a migrator that tracks m in its own bookkeeping tables
// so modules roll back independently.
func NewMigrator(db *bun.DB, m Module) *migrate.Migrator {
	return migrate.NewMigrator(db, m.Migrations,
		migrate.WithTableName(m.Name+"_bun_migrations"),
		migrate.WithLocksTableName(m.Name+"_bun_migration_locks"),
	)
}

// MigrateAll initializes and applies every module's migrations.
func MigrateAll(ctx context.Context, db *bun.DB) error {
	for _, m := range Modules() {
		migrator := NewMigrator(db, m)
		if err := migrator.Init(ctx); err != nil {
			return fmt.Errorf("init %s migrations: %w", m.Name, err)
		}
		if _, err := migrator.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate %s: %w", m.Name, err)
		}
	}
	return nil
}

// MigrateRiver applies River's job tables through pool.
func MigrateRiver(ctx context.Context, pool *pgxpool.Pool) (*rivermigrate.MigrateResult, error) {
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create river migrator: %w", err)
	}
	res, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate river: %w", err)
	}
	return res, nil
}
