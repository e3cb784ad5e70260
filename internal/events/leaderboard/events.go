// Package leaderboardevents defines the scoring engine topics and payloads.
package leaderboardevents

import (
	"time"

	"github.com/google/uuid"
)

const (
	// LeaderboardInvalidatedV1 is published after a correct evaluation guess
	// drops the cached leaderboard.
	LeaderboardInvalidatedV1 = "ctf.leaderboard.invalidated.v1"
	LeaderboardRequestedV1   = "ctf.leaderboard.requested.v1"
	LeaderboardRetrievedV1   = "ctf.leaderboard.retrieved.v1"
	LeaderboardFailedV1      = "ctf.leaderboard.failed.v1"
)

type LeaderboardInvalidatedPayloadV1 struct {
	SubmissionID uuid.UUID `json:"submission_id"`
	GuessID      uuid.UUID `json:"guess_id"`
	At           time.Time `json:"at"`
}

// LeaderboardRequestedPayloadV1 carries no fields; RequestID is echoed back.
type LeaderboardRequestedPayloadV1 struct {
	RequestID string `json:"request_id,omitempty"`
}

type AttackerScoreV1 struct {
	Name   string `json:"name"`
	Points int    `json:"points"`
}

type SubmissionScoreV1 struct {
	Name      string            `json:"name"`
	Value     float64           `json:"value"`
	Attackers []AttackerScoreV1 `json:"attackers"`
}

type SkippedSubmissionV1 struct {
	SubmissionID uuid.UUID `json:"submission_id"`
	Name         string    `json:"name"`
	Reason       string    `json:"reason"`
}

type LeaderboardRetrievedPayloadV1 struct {
	RequestID string                `json:"request_id,omitempty"`
	Source    string                `json:"source"`
	Scores    []SubmissionScoreV1   `json:"scores"`
	Skipped   []SkippedSubmissionV1 `json:"skipped,omitempty"`
}

type LeaderboardFailedPayloadV1 struct {
	RequestID string `json:"request_id,omitempty"`
	Reason    string `json:"reason"`
	Message   string `json:"message"`
}
