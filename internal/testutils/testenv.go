// Package testutils starts the Postgres and NATS containers used by the
// integration tests.
package testutils

import (
	"context"
	"fmt"
	"testing"

	"github.com/spylab/llm-ctf/config"
	"github.com/spylab/llm-ctf/internal/bundb"
	"github.com/spylab/llm-ctf/internal/eventbus"
	"github.com/spylab/llm-ctf/internal/migrations"
	"github.com/spylab/llm-ctf/internal/observability"
	"github.com/testcontainers/testcontainers-go/modules/nats"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/uptrace/bun"
)

// resetTables lists every module table, children first.
var resetTables = []string{"guesses", "chats", "secrets", "team_budgets", "submissions", "teams"}

// TestEnvironment holds the resources of one integration test run.
type TestEnvironment struct {
	Ctx           context.Context
	CancelContext context.CancelFunc
	PgContainer   *postgres.PostgresContainer
	NatsContainer *nats.NATSContainer
	DB            *bun.DB
	Config        *config.Config
	Obs           *observability.Observability

	natsURL  string
	eventBus eventbus.EventBus
}

// NewTestEnvironment starts Postgres, applies every module migration and
// registers cleanup on t. NATS is started lazily by EventBus.
func NewTestEnvironment(t *testing.T) *TestEnvironment {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	pgContainer, dsn, err := SetupPostgresContainer(ctx)
	if err != nil {
		cancel()
		t.Fatalf("failed to setup postgres container: %v", err)
	}

	db, err := bundb.Open(ctx, dsn)
	if err != nil {
		pgContainer.Terminate(ctx)
		cancel()
		t.Fatalf("failed to open database: %v", err)
	}

	if err := migrations.MigrateAll(ctx, db); err != nil {
		db.Close()
		pgContainer.Terminate(ctx)
		cancel()
		t.Fatalf("failed to run migrations: %v", err)
	}

	cfg := &config.Config{
		Postgres:    config.PostgresConfig{DSN: dsn},
		Competition: config.DefaultCompetitionConfig(),
	}
	cfg.Competition.FinalScoresPath = t.TempDir() + "/final_scores.json"

	obs := observability.NewNoop()

	env := &TestEnvironment{
		Ctx:           ctx,
		CancelContext: cancel,
		PgContainer:   pgContainer,
		DB:            db,
		Config:        cfg,
		Obs:           obs,
	}
	t.Cleanup(env.Cleanup)
	return env
}

// EventBus starts NATS on first use and returns a JetStream-backed bus with
// stream already created.
func (env *TestEnvironment) EventBus(t *testing.T, stream string) eventbus.EventBus {
	t.Helper()
	if env.eventBus == nil {
		natsContainer, natsURL, err := SetupNatsContainer(env.Ctx)
		if err != nil {
			t.Fatalf("failed to setup nats container: %v", err)
		}
		env.NatsContainer = natsContainer
		env.natsURL = natsURL
		env.Config.NATS.URL = natsURL

		bus, err := eventbus.NewEventBus(env.Ctx, natsURL, env.Obs.Logger, "integration")
		if err != nil {
			t.Fatalf("failed to create event bus: %v", err)
		}
		env.eventBus = bus
	}
	if err := env.eventBus.CreateStream(env.Ctx, stream); err != nil {
		t.Fatalf("failed to create stream %s: %v", stream, err)
	}
	return env.eventBus
}

// Reset truncates every module table.
func (env *TestEnvironment) Reset(ctx context.Context) error {
	for _, table := range resetTables {
		if _, err := env.DB.NewTruncateTable().TableExpr(table).Cascade().Exec(ctx); err != nil {
			return fmt.Errorf("truncate %s: %w", table, err)
		}
	}
	return nil
}

// Cleanup closes connections and terminates the containers.
func (env *TestEnvironment) Cleanup() {
	ctx := context.Background()
	if env.eventBus != nil {
		env.eventBus.Close()
	}
	if env.DB != nil {
		env.DB.Close()
	}
	if env.NatsContainer != nil {
		env.NatsContainer.Terminate(ctx)
	}
	if env.PgContainer != nil {
		env.PgContainer.Terminate(ctx)
	}
	env.CancelContext()
}
