package chatdb

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/spylab/llm-ctf/internal/sharedtypes"
	"github.com/uptrace/bun"
)

// Chat is the metadata of a conversation. Transcripts are not stored here.
type Chat struct {
	bun.BaseModel `bun:"table:chats,alias:c"`

	ID           uuid.UUID             `bun:"id,pk,type:uuid"`
	TeamID       uuid.UUID             `bun:"team_id,type:uuid,notnull"`
	SubmissionID *uuid.UUID            `bun:"submission_id,type:uuid"`
	SecretID     uuid.UUID             `bun:"secret_id,type:uuid,notnull"`
	Model        sharedtypes.ChatModel `bun:"model,notnull"`
	IsAttack     bool                  `bun:"is_attack,notnull"`
	IsEvaluation bool                  `bun:"is_evaluation,notnull"`
	CreatedAt    time.Time             `bun:"created_at,notnull,default:current_timestamp"`
}

var _ bun.BeforeAppendModelHook = (*Chat)(nil)

func (c *Chat) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); ok {
		if c.ID == uuid.Nil {
			c.ID = uuid.New()
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = time.Now().UTC()
		}
	}
	return nil
}
