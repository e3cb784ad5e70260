package scoringqueue

import "time"

// RefreshLeaderboardJob recomputes the cached leaderboard.
type RefreshLeaderboardJob struct{}

func (RefreshLeaderboardJob) Kind() string { return "leaderboard_refresh" }

// CaptureSnapshotJob freezes the leaderboard into the final scores file.
type CaptureSnapshotJob struct {
	// At is the requested capture time, used to dedupe schedules.
	At time.Time `json:"at"`
}

func (CaptureSnapshotJob) Kind() string { return "leaderboard_snapshot" }

// JobInfo represents information about a scheduled job (for debugging/monitoring)
type JobInfo struct {
	ID          int64  `json:"id"`
	Kind        string `json:"kind"`
	State       string `json:"state"`
	ScheduledAt string `json:"scheduled_at"`
	CreatedAt   string `json:"created_at"`
	Attempt     int    `json:"attempt"`
	MaxAttempts int    `json:"max_attempts"`
}
