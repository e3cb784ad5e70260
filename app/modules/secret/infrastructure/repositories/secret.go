package secretdb

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

// NewRepository creates a new secret repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

func (r *Impl) CreateSecret(ctx context.Context, db bun.IDB, secret *Secret) error {
	if db == nil {
		db = r.db
	}
	if _, err := db.NewInsert().Model(secret).Exec(ctx); err != nil {
		return fmt.Errorf("secretdb.CreateSecret: %w", err)
	}
	return nil
}

func (r *Impl) CreateSecrets(ctx context.Context, db bun.IDB, secrets []Secret) error {
	if len(secrets) == 0 {
		return nil
	}
	if db == nil {
		db = r.db
	}
	if _, err := db.NewInsert().Model(&secrets).Exec(ctx); err != nil {
		return fmt.Errorf("secretdb.CreateSecrets: %w", err)
	}
	return nil
}

func (r *Impl) GetSecret(ctx context.Context, db bun.IDB, id uuid.UUID) (*Secret, error) {
	if db == nil {
		db = r.db
	}
	secret := new(Secret)
	if err := db.NewSelect().Model(secret).Where("sec.id = ?", id).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSecretNotFound
		}
		return nil, fmt.Errorf("secretdb.GetSecret: %w", err)
	}
	return secret, nil
}

func (r *Impl) GetEvaluationSecret(ctx context.Context, db bun.IDB, submissionID uuid.UUID, index int) (*Secret, error) {
	if db == nil {
		db = r.db
	}
	secret := new(Secret)
	err := db.NewSelect().
		Model(secret).
		Where("sec.submission_id = ?", submissionID).
		Where("sec.is_evaluation = TRUE").
		Where("sec.evaluation_index = ?", index).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSecretNotFound
		}
		return nil, fmt.Errorf("secretdb.GetEvaluationSecret: %w", err)
	}
	return secret, nil
}

func (r *Impl) CountEvaluationSecrets(ctx context.Context, db bun.IDB) (int, error) {
	if db == nil {
		db = r.db
	}
	n, err := db.NewSelect().Model((*Secret)(nil)).Where("sec.is_evaluation = TRUE").Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("secretdb.CountEvaluationSecrets: %w", err)
	}
	return n, nil
}

func (r *Impl) ListEvaluationSecretIDs(ctx context.Context, db bun.IDB) ([]uuid.UUID, error) {
	if db == nil {
		db = r.db
	}
	var ids []uuid.UUID
	err := db.NewSelect().
		Model((*Secret)(nil)).
		Column("sec.id").
		Where("sec.is_evaluation = TRUE").
		Scan(ctx, &ids)
	if err != nil {
		return nil, fmt.Errorf("secretdb.ListEvaluationSecretIDs: %w", err)
	}
	return ids, nil
}

func (r *Impl) DeleteSecrets(ctx context.Context, db bun.IDB, ids []uuid.UUID) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	if db == nil {
		db = r.db
	}
	res, err := db.NewDelete().Model((*Secret)(nil)).Where("id IN (?)", bun.In(ids)).Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("secretdb.DeleteSecrets: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
