// Package guessevents defines the guess ledger topics and payloads.
package guessevents

import (
	"time"

	"github.com/google/uuid"
)

const (
	// GuessSubmitRequestedV1 asks the ledger to record an attacker's guess.
	GuessSubmitRequestedV1 = "ctf.guess.submit.requested.v1"
	// GuessRecordedV1 reports an accepted guess, correct or not.
	GuessRecordedV1 = "ctf.guess.recorded.v1"
	// GuessRejectedV1 reports a guess that was refused.
	GuessRejectedV1 = "ctf.guess.rejected.v1"
)

type GuessSubmitRequestedPayloadV1 struct {
	TeamID uuid.UUID `json:"team_id"`
	ChatID uuid.UUID `json:"chat_id"`
	Guess  string    `json:"guess"`
}

type GuessRecordedPayloadV1 struct {
	GuessID          uuid.UUID  `json:"guess_id"`
	TeamID           uuid.UUID  `json:"team_id"`
	ChatID           uuid.UUID  `json:"chat_id"`
	SecretID         uuid.UUID  `json:"secret_id"`
	SubmissionID     *uuid.UUID `json:"submission_id,omitempty"`
	Correct          bool       `json:"correct"`
	IsEvaluation     bool       `json:"is_evaluation"`
	Ranking          int        `json:"ranking"`
	GuessesRemaining int        `json:"guesses_remaining"`
	GuessedAt        time.Time  `json:"guessed_at"`
}

type GuessRejectedPayloadV1 struct {
	TeamID  uuid.UUID `json:"team_id"`
	ChatID  uuid.UUID `json:"chat_id"`
	Reason  string    `json:"reason"`
	Message string    `json:"message"`
}
