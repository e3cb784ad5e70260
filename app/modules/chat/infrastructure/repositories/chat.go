package chatdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Impl implements Repository on bun.
type Impl struct {
	db bun.IDB
}

var _ Repository = (*Impl)(nil)

// NewRepository creates a new chat repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

func (r *Impl) CreateChat(ctx context.Context, db bun.IDB, chat *Chat) error {
	if db == nil {
		db = r.db
	}
	if _, err := db.NewInsert().Model(chat).Exec(ctx); err != nil {
		return fmt.Errorf("chatdb.CreateChat: %w", err)
	}
	return nil
}

func (r *Impl) GetChat(ctx context.Context, db bun.IDB, id uuid.UUID) (*Chat, error) {
	if db == nil {
		db = r.db
	}
	chat := new(Chat)
	if err := db.NewSelect().Model(chat).Where("c.id = ?", id).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrChatNotFound
		}
		return nil, fmt.Errorf("chatdb.GetChat: %w", err)
	}
	return chat, nil
}

func (r *Impl) EvaluationChatCounts(ctx context.Context, db bun.IDB, submissionID uuid.UUID) (map[uuid.UUID]int, error) {
	if db == nil {
		db = r.db
	}
	var rows []struct {
		TeamID uuid.UUID `bun:"team_id"`
		Count  int       `bun:"count"`
	}
	err := db.NewSelect().
		Model((*Chat)(nil)).
		Column("c.team_id").
		ColumnExpr("COUNT(*) AS count").
		Where("c.submission_id = ?", submissionID).
		Where("c.is_evaluation = TRUE").
		Group("c.team_id").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("chatdb.EvaluationChatCounts: %w", err)
	}
	counts := make(map[uuid.UUID]int, len(rows))
	for _, row := range rows {
		counts[row.TeamID] = row.Count
	}
	return counts, nil
}
