package scoringqueue

import (
	"context"
	"log/slog"

	"github.com/riverqueue/river"
	scoringservice "github.com/spylab/llm-ctf/app/modules/scoring/application"
	"github.com/spylab/llm-ctf/internal/observability/attr"
)

// Scorer is the part of the scoring service the jobs drive.
type Scorer interface {
	RefreshCache(ctx context.Context) (*scoringservice.Leaderboard, error)
	CaptureSnapshot(ctx context.Context) (*scoringservice.Leaderboard, error)
}

type RefreshLeaderboardWorker struct {
	river.WorkerDefaults[RefreshLeaderboardJob]
	logger *slog.Logger
	scorer Scorer
}

func NewRefreshLeaderboardWorker(logger *slog.Logger, scorer Scorer) *RefreshLeaderboardWorker {
	return &RefreshLeaderboardWorker{logger: logger, scorer: scorer}
}

func (w *RefreshLeaderboardWorker) Work(ctx context.Context, job *river.Job[RefreshLeaderboardJob]) error {
	board, err := w.scorer.RefreshCache(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "Leaderboard refresh failed",
			attr.Int64("job_id", job.ID),
			attr.Error(err),
		)
		return err
	}
	w.logger.DebugContext(ctx, "Leaderboard refreshed",
		attr.Int64("job_id", job.ID),
		attr.Int("submissions", len(board.Scores)),
		attr.Int("skipped", len(board.Skipped)),
	)
	return nil
}

type CaptureSnapshotWorker struct {
	river.WorkerDefaults[CaptureSnapshotJob]
	logger *slog.Logger
	scorer Scorer
}

func NewCaptureSnapshotWorker(logger *slog.Logger, scorer Scorer) *CaptureSnapshotWorker {
	return &CaptureSnapshotWorker{logger: logger, scorer: scorer}
}

func (w *CaptureSnapshotWorker) Work(ctx context.Context, job *river.Job[CaptureSnapshotJob]) error {
	board, err := w.scorer.CaptureSnapshot(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "Leaderboard snapshot failed",
			attr.Int64("job_id", job.ID),
			attr.Error(err),
		)
		return err
	}
	w.logger.InfoContext(ctx, "Leaderboard snapshot written",
		attr.Int64("job_id", job.ID),
		attr.Int("submissions", len(board.Scores)),
	)
	return nil
}
