package chatdb

import (
	"context"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Repository defines the data access for chat metadata.
type Repository interface {
	CreateChat(ctx context.Context, db bun.IDB, chat *Chat) error
	GetChat(ctx context.Context, db bun.IDB, id uuid.UUID) (*Chat, error)
	// EvaluationChatCounts returns, per team, how many evaluation chats the
	// team opened against the submission.
	EvaluationChatCounts(ctx context.Context, db bun.IDB, submissionID uuid.UUID) (map[uuid.UUID]int, error)
}
