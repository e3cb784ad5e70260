package secretservice

import (
	"context"
	"sort"

	"github.com/google/uuid"
	guessdb "github.com/spylab/llm-ctf/app/modules/guess/infrastructure/repositories"
	secretdb "github.com/spylab/llm-ctf/app/modules/secret/infrastructure/repositories"
	submissiondb "github.com/spylab/llm-ctf/app/modules/submission/infrastructure/repositories"
	"github.com/uptrace/bun"
)

type FakeSecretRepository struct {
	Secrets map[uuid.UUID]*secretdb.Secret
}

var _ secretdb.Repository = (*FakeSecretRepository)(nil)

func NewFakeSecretRepository() *FakeSecretRepository {
	return &FakeSecretRepository{Secrets: map[uuid.UUID]*secretdb.Secret{}}
}

func (f *FakeSecretRepository) CreateSecret(_ context.Context, _ bun.IDB, secret *secretdb.Secret) error {
	if secret.ID == uuid.Nil {
		secret.ID = uuid.New()
	}
	f.Secrets[secret.ID] = secret
	return nil
}

func (f *FakeSecretRepository) CreateSecrets(ctx context.Context, db bun.IDB, secrets []secretdb.Secret) error {
	for i := range secrets {
		s := secrets[i]
		if err := f.CreateSecret(ctx, db, &s); err != nil {
			return err
		}
	}
	return nil
}

func (f *FakeSecretRepository) GetSecret(_ context.Context, _ bun.IDB, id uuid.UUID) (*secretdb.Secret, error) {
	if s, ok := f.Secrets[id]; ok {
		return s, nil
	}
	return nil, secretdb.ErrSecretNotFound
}

func (f *FakeSecretRepository) GetEvaluationSecret(_ context.Context, _ bun.IDB, submissionID uuid.UUID, index int) (*secretdb.Secret, error) {
	for _, s := range f.Secrets {
		if s.IsEvaluation && s.SubmissionID != nil && *s.SubmissionID == submissionID &&
			s.EvaluationIndex != nil && *s.EvaluationIndex == index {
			return s, nil
		}
	}
	return nil, secretdb.ErrSecretNotFound
}

func (f *FakeSecretRepository) CountEvaluationSecrets(context.Context, bun.IDB) (int, error) {
	n := 0
	for _, s := range f.Secrets {
		if s.IsEvaluation {
			n++
		}
	}
	return n, nil
}

func (f *FakeSecretRepository) ListEvaluationSecretIDs(context.Context, bun.IDB) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for id, s := range f.Secrets {
		if s.IsEvaluation {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids, nil
}

func (f *FakeSecretRepository) DeleteSecrets(_ context.Context, _ bun.IDB, ids []uuid.UUID) (int, error) {
	n := 0
	for _, id := range ids {
		if _, ok := f.Secrets[id]; ok {
			delete(f.Secrets, id)
			n++
		}
	}
	return n, nil
}

type FakeSubmissions struct {
	Submissions []submissiondb.Submission
}

func (f *FakeSubmissions) GetSubmission(_ context.Context, _ bun.IDB, id uuid.UUID) (*submissiondb.Submission, error) {
	for i := range f.Submissions {
		if f.Submissions[i].ID == id {
			return &f.Submissions[i], nil
		}
	}
	return nil, submissiondb.ErrSubmissionNotFound
}

func (f *FakeSubmissions) ListSubmissions(_ context.Context, _ bun.IDB, activeOnly bool) ([]submissiondb.Submission, error) {
	var out []submissiondb.Submission
	for _, s := range f.Submissions {
		if activeOnly && !s.IsActive {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

type FakeGuessLedger struct {
	Recent  *guessdb.Guess
	Counts  map[uuid.UUID]int
	Deleted []uuid.UUID
}

func (f *FakeGuessLedger) MostRecentGuess(context.Context, bun.IDB, uuid.UUID, uuid.UUID, bool) (*guessdb.Guess, error) {
	return f.Recent, nil
}

func (f *FakeGuessLedger) CountGuesses(_ context.Context, _ bun.IDB, secretID, _ uuid.UUID) (int, error) {
	return f.Counts[secretID], nil
}

func (f *FakeGuessLedger) DeleteGuessesForSecrets(_ context.Context, _ bun.IDB, ids []uuid.UUID) (int, error) {
	f.Deleted = append(f.Deleted, ids...)
	return len(ids), nil
}
