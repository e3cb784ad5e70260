package secretdb

import (
	"context"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Repository defines the data access for secrets.
type Repository interface {
	CreateSecret(ctx context.Context, db bun.IDB, secret *Secret) error
	CreateSecrets(ctx context.Context, db bun.IDB, secrets []Secret) error
	GetSecret(ctx context.Context, db bun.IDB, id uuid.UUID) (*Secret, error)
	GetEvaluationSecret(ctx context.Context, db bun.IDB, submissionID uuid.UUID, index int) (*Secret, error)
	CountEvaluationSecrets(ctx context.Context, db bun.IDB) (int, error)
	ListEvaluationSecretIDs(ctx context.Context, db bun.IDB) ([]uuid.UUID, error)
	DeleteSecrets(ctx context.Context, db bun.IDB, ids []uuid.UUID) (int, error)
}
