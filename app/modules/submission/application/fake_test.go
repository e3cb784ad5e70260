package submissionservice

import (
	"context"

	"github.com/google/uuid"
	submissiondb "github.com/spylab/llm-ctf/app/modules/submission/infrastructure/repositories"
	"github.com/uptrace/bun"
)

// FakeRepository is an in-memory submissiondb.Repository.
type FakeRepository struct {
	Teams       map[uuid.UUID]*submissiondb.Team
	Submissions []*submissiondb.Submission

	CreateSubmissionFunc func(ctx context.Context, db bun.IDB, submission *submissiondb.Submission) error
}

var _ submissiondb.Repository = (*FakeRepository)(nil)

func NewFakeRepository() *FakeRepository {
	return &FakeRepository{Teams: map[uuid.UUID]*submissiondb.Team{}}
}

func (f *FakeRepository) CreateTeam(_ context.Context, _ bun.IDB, team *submissiondb.Team) error {
	for _, t := range f.Teams {
		if t.Name == team.Name {
			return submissiondb.ErrDuplicateTeam
		}
	}
	if team.ID == uuid.Nil {
		team.ID = uuid.New()
	}
	f.Teams[team.ID] = team
	return nil
}

func (f *FakeRepository) GetTeam(_ context.Context, _ bun.IDB, id uuid.UUID) (*submissiondb.Team, error) {
	if t, ok := f.Teams[id]; ok {
		return t, nil
	}
	return nil, submissiondb.ErrTeamNotFound
}

func (f *FakeRepository) GetTeamByName(_ context.Context, _ bun.IDB, name string) (*submissiondb.Team, error) {
	for _, t := range f.Teams {
		if t.Name == name {
			return t, nil
		}
	}
	return nil, submissiondb.ErrTeamNotFound
}

func (f *FakeRepository) GetTeamsByIDs(_ context.Context, _ bun.IDB, ids []uuid.UUID) (map[uuid.UUID]submissiondb.Team, error) {
	out := map[uuid.UUID]submissiondb.Team{}
	for _, id := range ids {
		if t, ok := f.Teams[id]; ok {
			out[id] = *t
		}
	}
	return out, nil
}

func (f *FakeRepository) CreateSubmission(ctx context.Context, db bun.IDB, submission *submissiondb.Submission) error {
	if f.CreateSubmissionFunc != nil {
		return f.CreateSubmissionFunc(ctx, db, submission)
	}
	for _, s := range f.Submissions {
		if s.Model == submission.Model && (s.TeamID == submission.TeamID || s.DefenseID == submission.DefenseID) {
			return submissiondb.ErrDuplicateSubmission
		}
	}
	if submission.ID == uuid.Nil {
		submission.ID = uuid.New()
	}
	f.Submissions = append(f.Submissions, submission)
	return nil
}

func (f *FakeRepository) GetSubmission(_ context.Context, _ bun.IDB, id uuid.UUID) (*submissiondb.Submission, error) {
	for _, s := range f.Submissions {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, submissiondb.ErrSubmissionNotFound
}

func (f *FakeRepository) ListSubmissions(_ context.Context, _ bun.IDB, activeOnly bool) ([]submissiondb.Submission, error) {
	var out []submissiondb.Submission
	for _, s := range f.Submissions {
		if activeOnly && !s.IsActive {
			continue
		}
		out = append(out, *s)
	}
	return out, nil
}

func (f *FakeRepository) SetSubmissionActive(_ context.Context, _ bun.IDB, id uuid.UUID, active bool) error {
	for _, s := range f.Submissions {
		if s.ID == id {
			s.IsActive = active
			return nil
		}
	}
	return submissiondb.ErrSubmissionNotFound
}
