package guessdb

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Guess is an attacking team's claimed value for a secret. Rows are append-only.
type Guess struct {
	bun.BaseModel `bun:"table:guesses,alias:g"`

	ID                    uuid.UUID  `bun:"id,pk,type:uuid"`
	SecretID              uuid.UUID  `bun:"secret_id,type:uuid,notnull"`
	GuesserTeamID         uuid.UUID  `bun:"guesser_team_id,type:uuid,notnull"`
	ChatID                uuid.UUID  `bun:"chat_id,type:uuid,notnull"`
	SubmissionID          *uuid.UUID `bun:"submission_id,type:uuid"`
	Value                 string     `bun:"value,notnull"`
	IsCorrect             bool       `bun:"is_correct,notnull"`
	IsEvaluation          bool       `bun:"is_evaluation,notnull"`
	GuessRanking          int        `bun:"guess_ranking,notnull"`
	SecretEvaluationIndex *int       `bun:"secret_evaluation_index"`
	GuessedAt             time.Time  `bun:"guessed_at,notnull"`
}

var _ bun.BeforeAppendModelHook = (*Guess)(nil)

func (g *Guess) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); ok {
		if g.ID == uuid.Nil {
			g.ID = uuid.New()
		}
		if g.GuessedAt.IsZero() {
			g.GuessedAt = time.Now().UTC()
		}
	}
	return nil
}
