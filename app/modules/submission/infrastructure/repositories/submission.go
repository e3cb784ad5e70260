package submissiondb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spylab/llm-ctf/internal/bundb"
	"github.com/uptrace/bun"
)

// Impl implements Repository on bun.
type Impl struct {
	db bun.IDB
}

var _ Repository = (*Impl)(nil)

// NewRepository creates a new submission repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

func (r *Impl) CreateTeam(ctx context.Context, db bun.IDB, team *Team) error {
	if db == nil {
		db = r.db
	}
	if _, err := db.NewInsert().Model(team).Exec(ctx); err != nil {
		if bundb.IsUniqueViolation(err) {
			return ErrDuplicateTeam
		}
		return fmt.Errorf("submissiondb.CreateTeam: %w", err)
	}
	return nil
}

func (r *Impl) GetTeam(ctx context.Context, db bun.IDB, id uuid.UUID) (*Team, error) {
	if db == nil {
		db = r.db
	}
	team := new(Team)
	err := db.NewSelect().Model(team).Where("t.id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("submissiondb.GetTeam: %w", err)
	}
	return team, nil
}

func (r *Impl) GetTeamByName(ctx context.Context, db bun.IDB, name string) (*Team, error) {
	if db == nil {
		db = r.db
	}
	team := new(Team)
	err := db.NewSelect().Model(team).Where("t.name = ?", name).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("submissiondb.GetTeamByName: %w", err)
	}
	return team, nil
}

func (r *Impl) GetTeamsByIDs(ctx context.Context, db bun.IDB, ids []uuid.UUID) (map[uuid.UUID]Team, error) {
	if db == nil {
		db = r.db
	}
	out := make(map[uuid.UUID]Team, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var teams []Team
	if err := db.NewSelect().Model(&teams).Where("t.id IN (?)", bun.In(ids)).Scan(ctx); err != nil {
		return nil, fmt.Errorf("submissiondb.GetTeamsByIDs: %w", err)
	}
	for _, t := range teams {
		out[t.ID] = t
	}
	return out, nil
}

func (r *Impl) CreateSubmission(ctx context.Context, db bun.IDB, submission *Submission) error {
	if db == nil {
		db = r.db
	}
	if _, err := db.NewInsert().Model(submission).Exec(ctx); err != nil {
		if bundb.IsUniqueViolation(err) {
			return ErrDuplicateSubmission
		}
		return fmt.Errorf("submissiondb.CreateSubmission: %w", err)
	}
	return nil
}

func (r *Impl) GetSubmission(ctx context.Context, db bun.IDB, id uuid.UUID) (*Submission, error) {
	if db == nil {
		db = r.db
	}
	submission := new(Submission)
	err := db.NewSelect().Model(submission).Where("sub.id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("submissiondb.GetSubmission: %w", err)
	}
	return submission, nil
}

func (r *Impl) ListSubmissions(ctx context.Context, db bun.IDB, activeOnly bool) ([]Submission, error) {
	if db == nil {
		db = r.db
	}
	var submissions []Submission
	q := db.NewSelect().Model(&submissions).OrderExpr("sub.created_at ASC, sub.id ASC")
	if activeOnly {
		q = q.Where("sub.is_active = TRUE")
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("submissiondb.ListSubmissions: %w", err)
	}
	return submissions, nil
}

func (r *Impl) SetSubmissionActive(ctx context.Context, db bun.IDB, id uuid.UUID, active bool) error {
	if db == nil {
		db = r.db
	}
	res, err := db.NewUpdate().
		Model((*Submission)(nil)).
		Set("is_active = ?", active).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("submissiondb.SetSubmissionActive: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSubmissionNotFound
	}
	return nil
}
