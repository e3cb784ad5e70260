package submissiondb

import (
	"context"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Repository defines the data access for teams and submissions.
// Every method accepts an optional bun.IDB; nil uses the repository's own connection.
type Repository interface {
	CreateTeam(ctx context.Context, db bun.IDB, team *Team) error
	GetTeam(ctx context.Context, db bun.IDB, id uuid.UUID) (*Team, error)
	GetTeamByName(ctx context.Context, db bun.IDB, name string) (*Team, error)
	GetTeamsByIDs(ctx context.Context, db bun.IDB, ids []uuid.UUID) (map[uuid.UUID]Team, error)

	CreateSubmission(ctx context.Context, db bun.IDB, submission *Submission) error
	GetSubmission(ctx context.Context, db bun.IDB, id uuid.UUID) (*Submission, error)
	ListSubmissions(ctx context.Context, db bun.IDB, activeOnly bool) ([]Submission, error)
	SetSubmissionActive(ctx context.Context, db bun.IDB, id uuid.UUID, active bool) error
}
