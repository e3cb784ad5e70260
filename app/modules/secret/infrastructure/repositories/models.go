package secretdb

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Secret is a value a defense must keep from attackers.
type Secret struct {
	bun.BaseModel `bun:"table:secrets,alias:sec"`

	ID              uuid.UUID  `bun:"id,pk,type:uuid"`
	Value           string     `bun:"value,notnull"`
	SubmissionID    *uuid.UUID `bun:"submission_id,type:uuid"`
	IsEvaluation    bool       `bun:"is_evaluation,notnull"`
	EvaluationIndex *int       `bun:"evaluation_index"`
	CreatedAt       time.Time  `bun:"created_at,notnull,default:current_timestamp"`
}

var _ bun.BeforeAppendModelHook = (*Secret)(nil)

func (s *Secret) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); ok {
		if s.ID == uuid.Nil {
			s.ID = uuid.New()
		}
		if s.CreatedAt.IsZero() {
			s.CreatedAt = time.Now().UTC()
		}
	}
	return nil
}
