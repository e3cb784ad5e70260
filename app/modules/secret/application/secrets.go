package secretservice

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	secretdomain "github.com/spylab/llm-ctf/app/modules/secret/domain"
	secretdb "github.com/spylab/llm-ctf/app/modules/secret/infrastructure/repositories"
	submissiondb "github.com/spylab/llm-ctf/app/modules/submission/infrastructure/repositories"
	"github.com/spylab/llm-ctf/internal/observability"
	"github.com/spylab/llm-ctf/internal/observability/attr"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"
)

// Create stores a secret. A non-nil submissionID must resolve.
func (s *Service) Create(ctx context.Context, value string, submissionID *uuid.UUID, isEvaluation bool, evaluationIndex *int) (*secretdb.Secret, error) {
	return observability.Observe(ctx, s.in, "Create", nil, func(ctx context.Context) (*secretdb.Secret, error) {
		return s.create(ctx, nil, value, submissionID, isEvaluation, evaluationIndex)
	})
}

func (s *Service) create(ctx context.Context, db bun.IDB, value string, submissionID *uuid.UUID, isEvaluation bool, evaluationIndex *int) (*secretdb.Secret, error) {
	if submissionID != nil {
		if _, err := s.submissions.GetSubmission(ctx, db, *submissionID); err != nil {
			if errors.Is(err, submissiondb.ErrSubmissionNotFound) {
				return nil, ErrSubmissionNotFound
			}
			return nil, fmt.Errorf("failed to resolve submission: %w", err)
		}
	}

	secret := &secretdb.Secret{
		Value:           value,
		SubmissionID:    submissionID,
		IsEvaluation:    isEvaluation,
		EvaluationIndex: evaluationIndex,
	}
	if err := s.repo.CreateSecret(ctx, db, secret); err != nil {
		return nil, err
	}
	return secret, nil
}

// GetSecret looks a secret up by id.
func (s *Service) GetSecret(ctx context.Context, id uuid.UUID) (*secretdb.Secret, error) {
	return s.repo.GetSecret(ctx, nil, id)
}

// NewPracticeSecret issues a random secret bound to no submission.
func (s *Service) NewPracticeSecret(ctx context.Context) (*secretdb.Secret, error) {
	return observability.Observe(ctx, s.in, "NewPracticeSecret", nil, func(ctx context.Context) (*secretdb.Secret, error) {
		value, err := s.randomValue(s.settings.SecretLength)
		if err != nil {
			return nil, err
		}
		return s.create(ctx, nil, value, nil, false, nil)
	})
}

// GetNewEvaluationSecret returns the evaluation secret following previous,
// or the first one when previous is nil.
func (s *Service) GetNewEvaluationSecret(ctx context.Context, submissionID uuid.UUID, previous *secretdb.Secret) (*secretdb.Secret, error) {
	attrs := []attribute.KeyValue{attribute.String("submission_id", submissionID.String())}
	return observability.Observe(ctx, s.in, "GetNewEvaluationSecret", attrs, func(ctx context.Context) (*secretdb.Secret, error) {
		return s.nextEvaluationSecret(ctx, nil, submissionID, previous)
	})
}

func (s *Service) nextEvaluationSecret(ctx context.Context, db bun.IDB, submissionID uuid.UUID, previous *secretdb.Secret) (*secretdb.Secret, error) {
	var prevIndex *int
	if previous != nil {
		prevIndex = previous.EvaluationIndex
	}
	index := secretdomain.NextEvaluationIndex(prevIndex)

	secret, err := s.repo.GetEvaluationSecret(ctx, db, submissionID, index)
	if err != nil {
		if errors.Is(err, secretdb.ErrSecretNotFound) {
			return nil, ErrAllSecretsExhausted
		}
		return nil, err
	}
	return secret, nil
}

// SecretForAttack picks the secret for a new attack chat. The team keeps the
// secret of its most recent guess on the submission unless that guess was
// correct, its guesses on it are used up, or a new secret is requested.
func (s *Service) SecretForAttack(ctx context.Context, teamID, submissionID uuid.UUID, evaluation, newSecret bool) (*secretdb.Secret, error) {
	attrs := []attribute.KeyValue{
		attribute.String("team_id", teamID.String()),
		attribute.String("submission_id", submissionID.String()),
		attribute.Bool("evaluation", evaluation),
	}
	return observability.Observe(ctx, s.in, "SecretForAttack", attrs, func(ctx context.Context) (*secretdb.Secret, error) {
		if evaluation && newSecret {
			return nil, ErrRotationNotAllowed
		}

		recent, err := s.guesses.MostRecentGuess(ctx, nil, teamID, submissionID, evaluation)
		if err != nil {
			return nil, fmt.Errorf("failed to load most recent guess: %w", err)
		}

		in := secretdomain.RotationInput{
			MaxGuesses: s.settings.MaxSecretGuesses,
			Requested:  newSecret,
		}
		var current *secretdb.Secret
		if recent != nil {
			current, err = s.repo.GetSecret(ctx, nil, recent.SecretID)
			if err != nil {
				return nil, err
			}
			count, err := s.guesses.CountGuesses(ctx, nil, recent.SecretID, teamID)
			if err != nil {
				return nil, fmt.Errorf("failed to count guesses: %w", err)
			}
			in.HasRecentGuess = true
			in.RecentGuessCorrect = recent.IsCorrect
			in.GuessesOnSecret = count
		}

		if !secretdomain.NeedsRotation(in) {
			return current, nil
		}

		s.in.Logger.InfoContext(ctx, "Rotating attack secret",
			attr.UUID("team_id", teamID),
			attr.UUID("submission_id", submissionID),
			attr.Bool("evaluation", evaluation),
			attr.Bool("requested", newSecret),
		)

		if evaluation {
			return s.nextEvaluationSecret(ctx, nil, submissionID, current)
		}
		value, err := s.randomValue(s.settings.SecretLength)
		if err != nil {
			return nil, err
		}
		return s.create(ctx, nil, value, &submissionID, false, nil)
	})
}

// CreateEvaluationSecrets generates the fixed evaluation set for every active
// submission. It refuses to run when any evaluation secret exists.
func (s *Service) CreateEvaluationSecrets(ctx context.Context) (int, error) {
	return observability.Observe(ctx, s.in, "CreateEvaluationSecrets", nil, func(ctx context.Context) (int, error) {
		return runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (int, error) {
			existing, err := s.repo.CountEvaluationSecrets(ctx, db)
			if err != nil {
				return 0, err
			}
			if existing > 0 {
				return 0, ErrEvaluationSecretsExist
			}

			submissions, err := s.submissions.ListSubmissions(ctx, db, true)
			if err != nil {
				return 0, fmt.Errorf("failed to list submissions: %w", err)
			}

			secrets := make([]secretdb.Secret, 0, len(submissions)*s.settings.EvalSecretsPerSubmission)
			for _, sub := range submissions {
				for i := 0; i < s.settings.EvalSecretsPerSubmission; i++ {
					value, err := s.randomValue(s.settings.SecretLength)
					if err != nil {
						return 0, err
					}
					submissionID, index := sub.ID, i
					secrets = append(secrets, secretdb.Secret{
						ID:              uuid.New(),
						Value:           value,
						SubmissionID:    &submissionID,
						IsEvaluation:    true,
						EvaluationIndex: &index,
					})
				}
			}
			if err := s.repo.CreateSecrets(ctx, db, secrets); err != nil {
				return 0, err
			}

			s.in.Logger.InfoContext(ctx, "Evaluation secrets created",
				attr.Int("submissions", len(submissions)),
				attr.Int("secrets", len(secrets)),
			)
			return len(secrets), nil
		})
	})
}

// RemoveEvaluationSecrets deletes every evaluation secret and the guesses made
// against them. confirmation must equal ConfirmRemoveEvaluationSecrets.
func (s *Service) RemoveEvaluationSecrets(ctx context.Context, confirmation string) (int, error) {
	if confirmation != ConfirmRemoveEvaluationSecrets {
		return 0, ErrConfirmationRequired
	}
	return observability.Observe(ctx, s.in, "RemoveEvaluationSecrets", nil, func(ctx context.Context) (int, error) {
		return runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (int, error) {
			ids, err := s.repo.ListEvaluationSecretIDs(ctx, db)
			if err != nil {
				return 0, err
			}
			guesses, err := s.guesses.DeleteGuessesForSecrets(ctx, db, ids)
			if err != nil {
				return 0, err
			}
			removed, err := s.repo.DeleteSecrets(ctx, db, ids)
			if err != nil {
				return 0, err
			}

			s.in.Logger.WarnContext(ctx, "Evaluation secrets removed",
				attr.Int("secrets", removed),
				attr.Int("guesses", guesses),
			)
			return removed, nil
		})
	})
}
