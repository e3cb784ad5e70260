package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/redis/go-redis/v9"
	"github.com/spylab/llm-ctf/app/modules/budget"
	"github.com/spylab/llm-ctf/app/modules/guess"
	"github.com/spylab/llm-ctf/app/modules/scoring"
	scoringcache "github.com/spylab/llm-ctf/app/modules/scoring/infrastructure/cache"
	scoringqueue "github.com/spylab/llm-ctf/app/modules/scoring/infrastructure/queue"
	"github.com/spylab/llm-ctf/config"
	"github.com/spylab/llm-ctf/internal/bundb"
	"github.com/spylab/llm-ctf/internal/eventbus"
	"github.com/spylab/llm-ctf/internal/observability"
	"github.com/spylab/llm-ctf/internal/observability/attr"
	"github.com/uptrace/bun"
)

// StreamName is the JetStream stream holding every ctf.* subject.
const StreamName = "ctf"

// App owns the connections and modules of the ctfd process.
type App struct {
	Config   *config.Config
	Obs      *observability.Observability
	DB       *bun.DB
	Redis    *redis.Client
	EventBus eventbus.EventBus
	Router   *message.Router
	Services Services

	GuessModule   *guess.Module
	BudgetModule  *budget.Module
	ScoringModule *scoring.Module

	queue   *scoringqueue.Service
	started bool
}

// New connects to Postgres, Redis and NATS and registers every module on a
// shared watermill router. Redis is skipped when no URL is configured and the
// job queue when cfg.Queue.Enabled is false.
func New(ctx context.Context, cfg *config.Config, obs *observability.Observability) (*App, error) {
	a := &App{Config: cfg, Obs: obs}

	db, err := bundb.Open(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, err
	}
	a.DB = db

	var cacheClient redis.UniversalClient
	if cfg.Redis.URL != "" {
		rdb, err := scoringcache.NewClient(ctx, cfg.Redis.URL)
		if err != nil {
			a.Close(ctx)
			return nil, err
		}
		a.Redis = rdb
		cacheClient = rdb
	} else {
		obs.Logger.WarnContext(ctx, "Redis URL not configured, leaderboard cache disabled")
	}

	a.Services = NewServices(ServiceDeps{
		DB:     db,
		Redis:  cacheClient,
		Config: cfg,
		Obs:    obs,
	})

	bus, err := eventbus.NewEventBus(ctx, cfg.NATS.URL, obs.Logger, "ctfd")
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	a.EventBus = bus
	if err := bus.CreateStream(ctx, StreamName); err != nil {
		a.Close(ctx)
		return nil, err
	}

	router, err := NewRouter(obs.Logger, obs.Registry)
	if err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("failed to create watermill router: %w", err)
	}
	a.Router = router

	var queue scoringqueue.QueueService
	if cfg.Queue.Enabled {
		q, err := scoringqueue.NewService(ctx, db, obs.Logger, cfg.Postgres.DSN, obs.Metrics, a.Services.Scoring, scoringqueue.Options{
			RefreshInterval: cfg.Competition.LeaderboardRefreshInterval,
			MaxWorkers:      cfg.Queue.MaxWorkers,
		})
		if err != nil {
			a.Close(ctx)
			return nil, err
		}
		a.queue = q
		queue = q
	}

	if err := a.registerModules(ctx, queue); err != nil {
		a.Close(ctx)
		return nil, err
	}
	return a, nil
}

func (a *App) registerModules(ctx context.Context, queue scoringqueue.QueueService) error {
	var err error
	if a.GuessModule, err = guess.NewGuessModule(ctx, a.Obs, a.Services.Guesses, a.EventBus, a.Router); err != nil {
		return err
	}
	if a.BudgetModule, err = budget.NewBudgetModule(ctx, a.Obs, a.Services.Budgets, a.EventBus, a.Router); err != nil {
		return err
	}
	if a.ScoringModule, err = scoring.NewScoringModule(ctx, a.Obs, a.Services.Scoring, queue, a.EventBus, a.Router); err != nil {
		return err
	}
	return nil
}

// Run starts the modules and blocks on the router until ctx is done.
func (a *App) Run(ctx context.Context) error {
	a.started = true
	wg := &sync.WaitGroup{}
	wg.Add(3)
	go a.GuessModule.Run(ctx, wg)
	go a.BudgetModule.Run(ctx, wg)
	go a.ScoringModule.Run(ctx, wg)

	a.Obs.Logger.InfoContext(ctx, "Starting watermill router")
	err := a.Router.Run(ctx)

	a.GuessModule.Close()
	a.BudgetModule.Close()
	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if cerr := a.ScoringModule.Close(stopCtx); cerr != nil {
		a.Obs.Logger.Error("Failed to close scoring module", attr.Error(cerr))
	}
	wg.Wait()
	return err
}

// Running is closed once the router handlers are subscribed.
func (a *App) Running() chan struct{} {
	return a.Router.Running()
}

// Ready reports whether the process can serve traffic.
func (a *App) Ready(ctx context.Context) error {
	if err := a.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if a.Redis != nil {
		if err := a.Redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	if a.queue != nil {
		if err := a.queue.HealthCheck(ctx); err != nil {
			return fmt.Errorf("queue: %w", err)
		}
	}
	if a.Router != nil && !a.Router.IsRunning() {
		return errors.New("router is not running")
	}
	return nil
}

// Close releases every connection. It is safe on a partially built App.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Router != nil {
		if err := a.Router.Close(); err != nil {
			errs = append(errs, fmt.Errorf("router: %w", err))
		}
	}
	if a.queue != nil && !a.started {
		a.queue.Close()
	}
	if a.EventBus != nil {
		if err := a.EventBus.Close(); err != nil {
			errs = append(errs, fmt.Errorf("event bus: %w", err))
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("database: %w", err))
		}
	}
	if len(errs) > 0 {
		a.Obs.Logger.ErrorContext(ctx, "Errors while closing app", attr.Error(errors.Join(errs...)))
	}
	return errors.Join(errs...)
}
