package submissiondb

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/spylab/llm-ctf/internal/sharedtypes"
	"github.com/uptrace/bun"
)

// Team is the registered owner of submissions, guesses and budgets.
type Team struct {
	bun.BaseModel `bun:"table:teams,alias:t"`

	ID        uuid.UUID `bun:"id,pk,type:uuid"`
	Name      string    `bun:"name,notnull,unique"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

var _ bun.BeforeAppendModelHook = (*Team)(nil)

func (t *Team) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); ok {
		if t.ID == uuid.Nil {
			t.ID = uuid.New()
		}
		if t.CreatedAt.IsZero() {
			t.CreatedAt = time.Now().UTC()
		}
	}
	return nil
}

// Submission is a team's defense entered against one model.
type Submission struct {
	bun.BaseModel `bun:"table:submissions,alias:sub"`

	ID          uuid.UUID               `bun:"id,pk,type:uuid"`
	DefenseID   uuid.UUID               `bun:"defense_id,type:uuid,notnull"`
	TeamID      uuid.UUID               `bun:"team_id,type:uuid,notnull"`
	Model       sharedtypes.ChatModel   `bun:"model,notnull"`
	ModelFamily sharedtypes.ModelFamily `bun:"model_family,notnull"`
	Provider    sharedtypes.Provider    `bun:"provider,notnull"`
	IsActive    bool                    `bun:"is_active,notnull"`
	CreatedAt   time.Time               `bun:"created_at,notnull,default:current_timestamp"`
}

var _ bun.BeforeAppendModelHook = (*Submission)(nil)

func (s *Submission) BeforeAppendModel(ctx context.Context, query bun.Query) error {
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
