package scoringqueue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/spylab/llm-ctf/internal/observability"
	"github.com/spylab/llm-ctf/internal/observability/attr"
	"github.com/uptrace/bun"
)

const queueName = "scoring"

// minScheduleLead is how far ahead a snapshot must be scheduled.
const minScheduleLead = 5 * time.Second

// QueueService schedules and runs the leaderboard jobs.
type QueueService interface {
	// ScheduleSnapshot queues a leaderboard snapshot for at.
	ScheduleSnapshot(ctx context.Context, at time.Time) (int64, error)
	// CancelSnapshots cancels every pending snapshot job.
	CancelSnapshots(ctx context.Context) (int, error)
	// ScheduledJobs lists the leaderboard jobs (for debugging)
	ScheduledJobs(ctx context.Context) ([]JobInfo, error)
	HealthCheck(ctx context.Context) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

var _ QueueService = (*Service)(nil)

// Options configure the River client.
type Options struct {
	// RefreshInterval runs a periodic cache refresh; zero disables it.
	RefreshInterval time.Duration
	MaxWorkers      int
	// InsertOnly builds a client that can enqueue but never works jobs.
	InsertOnly      bool
}

// Service handles job scheduling for the scoring module using River
type Service struct {
	client  *river.Client[pgx.Tx]
	pool    *pgxpool.Pool
	logger  *slog.Logger
	db      *bun.DB
	metrics observability.Metrics
	now     func() time.Time
}

// NewService creates a new River-based queue service for leaderboard jobs.
// scorer may be nil when opts.InsertOnly is set.
func NewService(ctx context.Context, bunDB *bun.DB, logger *slog.Logger, dsn string, metrics observability.Metrics, scorer Scorer, opts Options) (*Service, error) {
	ctxLogger := logger.With(
		attr.String("operation", "new_scoring_queue_service"),
		attr.String("component", "river_queue"),
	)

	start := time.Now()
	metrics.RecordOperationAttempt(ctx, "initialize_service", "river")

	// River requires pgx, not database/sql
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		metrics.RecordOperationFailure(ctx, "initialize_service", "river")
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		metrics.RecordOperationFailure(ctx, "initialize_service", "river")
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		ctxLogger.Error("Failed to ping database for River", attr.Error(err))
		metrics.RecordOperationFailure(ctx, "initialize_service", "river")
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	riverConfig := &river.Config{}
	if !opts.InsertOnly {
		riverConfig = workerConfig(ctxLogger, scorer, opts)
	}

	riverClient, err := river.NewClient(riverpgxv5.New(pool), riverConfig)
	if err != nil {
		pool.Close()
		ctxLogger.Error("Failed to create River client", attr.Error(err))
		metrics.RecordOperationFailure(ctx, "initialize_service", "river")
		return nil, fmt.Errorf("failed to create River client: %w", err)
	}

	metrics.RecordOperationSuccess(ctx, "initialize_service", "river")
	metrics.RecordOperationDuration(ctx, "initialize_service", "river", time.Since(start))
	ctxLogger.Info("Scoring queue service initialized",
		attr.Bool("insert_only", opts.InsertOnly),
		attr.Duration("refresh_interval", opts.RefreshInterval),
	)

	return &Service{
		client:  riverClient,
		pool:    pool,
		logger:  ctxLogger,
		db:      bunDB,
		metrics: metrics,
		now:     time.Now,
	}, nil
}

func workerConfig(logger *slog.Logger, scorer Scorer, opts Options) *river.Config {
	maxWorkers := opts.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 1
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, NewRefreshLeaderboardWorker(logger, scorer))
	river.AddWorker(workers, NewCaptureSnapshotWorker(logger, scorer))

	var periodic []*river.PeriodicJob
	if opts.RefreshInterval > 0 {
		periodic = append(periodic, river.NewPeriodicJob(
			river.PeriodicInterval(opts.RefreshInterval),
			func() (river.JobArgs, *river.InsertOpts) {
				return RefreshLeaderboardJob{}, &river.InsertOpts{Queue: queueName}
			},
			&river.PeriodicJobOpts{RunOnStart: true},
		))
	}

	return &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: maxWorkers},
			queueName:          {MaxWorkers: maxWorkers},
		},
		Workers:      workers,
		PeriodicJobs: periodic,
	}
}

// Start starts the River queue service
func (s *Service) Start(ctx context.Context) error {
	s.metrics.RecordOperationAttempt(ctx, "start_service", "river")
	if err := s.client.Start(ctx); err != nil {
		s.logger.Error("Failed to start River client", attr.Error(err))
		s.metrics.RecordOperationFailure(ctx, "start_service", "river")
		return fmt.Errorf("failed to start River client: %w", err)
	}
	s.metrics.RecordOperationSuccess(ctx, "start_service", "river")
	s.logger.Info("Scoring queue service started")
	return nil
}

// Stop stops the River client, if it was started, and closes its pool.
func (s *Service) Stop(ctx context.Context) error {
	defer s.pool.Close()
	s.metrics.RecordOperationAttempt(ctx, "stop_service", "river")
	if err := s.client.Stop(ctx); err != nil {
		s.logger.Error("Failed to stop River client", attr.Error(err))
		s.metrics.RecordOperationFailure(ctx, "stop_service", "river")
		return fmt.Errorf("failed to stop River client: %w", err)
	}
	s.metrics.RecordOperationSuccess(ctx, "stop_service", "river")
	s.logger.Info("Scoring queue service stopped")
	return nil
}

// Close releases the pool of an insert-only service.
func (s *Service) Close() {
	s.pool.Close()
}

func (s *Service) ScheduleSnapshot(ctx context.Context, at time.Time) (int64, error) {
	start := time.Now()
	s.metrics.RecordOperationAttempt(ctx, "schedule_snapshot", "river")

	ctxLogger := s.logger.With(
		attr.Time("snapshot_time", at),
		attr.String("operation", "schedule_snapshot"),
	)

	now := s.now()
	if at.Before(now.Add(minScheduleLead)) {
		ctxLogger.Warn("Snapshot time is too close to current time",
			attr.Time("current_time", now),
			attr.Duration("buffer", at.Sub(now)))
		s.metrics.RecordOperationFailure(ctx, "schedule_snapshot", "river")
		return 0, fmt.Errorf("snapshot time must be at least %s in the future", minScheduleLead)
	}

	res, err := s.client.Insert(ctx, CaptureSnapshotJob{At: at.UTC()}, &river.InsertOpts{
		Queue:       queueName,
		ScheduledAt: at,
		UniqueOpts:  river.UniqueOpts{ByArgs: true},
	})
	if err != nil {
		ctxLogger.Error("Failed to schedule snapshot job", attr.Error(err))
		s.metrics.RecordOperationFailure(ctx, "schedule_snapshot", "river")
		return 0, fmt.Errorf("failed to schedule snapshot job: %w", err)
	}

	s.metrics.RecordOperationSuccess(ctx, "schedule_snapshot", "river")
	s.metrics.RecordOperationDuration(ctx, "schedule_snapshot", "river", time.Since(start))
	ctxLogger.Info("Snapshot job scheduled",
		attr.Duration("delay", at.Sub(now)),
		attr.Int64("job_id", res.Job.ID))
	return res.Job.ID, nil
}

type riverJobRow struct {
	ID          int64      `bun:"id"`
	Kind        string     `bun:"kind"`
	State       string     `bun:"state"`
	ScheduledAt *time.Time `bun:"scheduled_at"`
	CreatedAt   time.Time  `bun:"created_at"`
	Attempt     int16      `bun:"attempt"`
	MaxAttempts int16      `bun:"max_attempts"`
}

func (s *Service) CancelSnapshots(ctx context.Context) (int, error) {
	s.metrics.RecordOperationAttempt(ctx, "cancel_snapshots", "river")

	var jobs []riverJobRow
	err := s.db.NewSelect().
		Table("river_job").
		Column("id", "kind", "state").
		Where("kind = ?", CaptureSnapshotJob{}.Kind()).
		Where("state IN (?, ?)", "available", "scheduled").
		Scan(ctx, &jobs)
	if err != nil {
		s.metrics.RecordOperationFailure(ctx, "cancel_snapshots", "river")
		return 0, fmt.Errorf("failed to query jobs for cancellation: %w", err)
	}

	cancelled := 0
	for _, job := range jobs {
		if _, err := s.client.JobCancel(ctx, job.ID); err != nil {
			s.logger.Warn("Failed to cancel job",
				attr.Int64("job_id", job.ID),
				attr.Error(err))
			continue
		}
		cancelled++
	}

	if cancelled == len(jobs) {
		s.metrics.RecordOperationSuccess(ctx, "cancel_snapshots", "river")
	} else {
		s.metrics.RecordOperationFailure(ctx, "cancel_snapshots", "river")
	}
	s.logger.Info("Snapshot jobs cancelled",
		attr.Int("total_found", len(jobs)),
		attr.Int("cancelled_count", cancelled))
	return cancelled, nil
}

func (s *Service) ScheduledJobs(ctx context.Context) ([]JobInfo, error) {
	var jobs []riverJobRow
	err := s.db.NewSelect().
		Table("river_job").
		Column("id", "kind", "state", "scheduled_at", "created_at", "attempt", "max_attempts").
		Where("kind IN (?, ?)", RefreshLeaderboardJob{}.Kind(), CaptureSnapshotJob{}.Kind()).
		Where("state IN (?, ?, ?)", "available", "scheduled", "retryable").
		Order("scheduled_at ASC NULLS LAST", "created_at ASC").
		Scan(ctx, &jobs)
	if err != nil {
		return nil, fmt.Errorf("failed to query scheduled jobs: %w", err)
	}
	return toJobInfos(jobs), nil
}

func toJobInfos(jobs []riverJobRow) []JobInfo {
	result := make([]JobInfo, len(jobs))
	for i, job := range jobs {
		scheduledAt := ""
		if job.ScheduledAt != nil {
			scheduledAt = job.ScheduledAt.Format(time.RFC3339)
		}
		result[i] = JobInfo{
			ID:          job.ID,
			Kind:        job.Kind,
			State:       job.State,
			ScheduledAt: scheduledAt,
			CreatedAt:   job.CreatedAt.Format(time.RFC3339),
			Attempt:     int(job.Attempt),
			MaxAttempts: int(job.MaxAttempts),
		}
	}
	return result
}

// HealthCheck verifies the queue service is healthy
func (s *Service) HealthCheck(ctx context.Context) error {
	if s.client == nil {
		return fmt.Errorf("river client is nil")
	}
	var count int
	err := s.db.NewSelect().
		Table("river_job").
		ColumnExpr("COUNT(*)").
		Scan(ctx, &count)
	if err != nil {
		s.logger.Error("Queue service health check failed", attr.Error(err))
		return fmt.Errorf("queue service health check failed: %w", err)
	}
	s.logger.Debug("Queue service health check passed", attr.Int("total_jobs", count))
	return nil
}
