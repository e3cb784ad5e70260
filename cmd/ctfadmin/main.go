package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/spylab/llm-ctf/app"
	scoringcache "github.com/spylab/llm-ctf/app/modules/scoring/infrastructure/cache"
	scoringqueue "github.com/spylab/llm-ctf/app/modules/scoring/infrastructure/queue"
	"github.com/spylab/llm-ctf/config"
	"github.com/spylab/llm-ctf/internal/bundb"
	"github.com/spylab/llm-ctf/internal/observability"
	"github.com/uptrace/bun"
	"github.com/urfave/cli/v2"
)

const envKey = "env"

// env holds the connections shared by every command.
type env struct {
	cfg      *config.Config
	obs      *observability.Observability
	db       *bun.DB
	redis    *redis.Client
	services app.Services
}

func main() {
	cliApp := &cli.App{
		Name:  "ctfadmin",
		Usage: "administer the competition database",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: "config.yaml", Usage: "path to the configuration file"},
		},
		Before: setup,
		After:  teardown,
		Commands: []*cli.Command{
			teamCommand(),
			budgetCommand(),
			submissionCommand(),
			evalSecretsCommand(),
			leaderboardCommand(),
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func setup(c *cli.Context) error {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	obsCfg := config.ToObsConfig(cfg)
	obsCfg.ServiceName = "llm-ctf-admin"
	obsCfg.LogFormat = "text"
	obsCfg.OTLPEndpoint = ""
	obs, err := observability.Init(c.Context, obsCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}

	db, err := bundb.Open(c.Context, cfg.Postgres.DSN)
	if err != nil {
		return err
	}

	e := &env{cfg: cfg, obs: obs, db: db}
	var cacheClient redis.UniversalClient
	if cfg.Redis.URL != "" {
		rdb, err := scoringcache.NewClient(c.Context, cfg.Redis.URL)
		if err != nil {
			db.Close()
			return err
		}
		e.redis = rdb
		cacheClient = rdb
	}

	e.services = app.NewServices(app.ServiceDeps{
		DB:     db,
		Redis:  cacheClient,
		Config: cfg,
		Obs:    obs,
	})
	if c.App.Metadata == nil {
		c.App.Metadata = map[string]any{}
	}
	c.App.Metadata[envKey] = e
	return nil
}

func teardown(c *cli.Context) error {
	e, ok := c.App.Metadata[envKey].(*env)
	if !ok {
		return nil
	}
	if e.redis != nil {
		e.redis.Close()
	}
	if err := e.db.Close(); err != nil {
		return err
	}
	return e.obs.Shutdown(context.Background())
}

func withEnv(fn func(c *cli.Context, e *env) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		e, ok := c.App.Metadata[envKey].(*env)
		if !ok {
			return fmt.Errorf("environment not initialized")
		}
		return fn(c, e)
	}
}

// insertOnlyQueue builds a River client that only enqueues jobs; ctfd works them.
func (e *env) insertOnlyQueue(ctx context.Context) (*scoringqueue.Service, error) {
	return scoringqueue.NewService(ctx, e.db, e.obs.Logger, e.cfg.Postgres.DSN, e.obs.Metrics, nil, scoringqueue.Options{
		InsertOnly: true,
	})
}
