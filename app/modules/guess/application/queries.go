package guessservice

import (
	"context"

	"github.com/google/uuid"
	guessdomain "github.com/spylab/llm-ctf/app/modules/guess/domain"
	guessdb "github.com/spylab/llm-ctf/app/modules/guess/infrastructure/repositories"
)

// CountGuesses counts a team's guesses on a secret regardless of correctness.
func (s *Service) CountGuesses(ctx context.Context, secretID, teamID uuid.UUID) (int, error) {
	return s.repo.CountGuesses(ctx, nil, secretID, teamID)
}

// GuessesRemaining is the team's remaining allowance on a secret.
func (s *Service) GuessesRemaining(ctx context.Context, secretID, teamID uuid.UUID) (int, error) {
	used, err := s.repo.CountGuesses(ctx, nil, secretID, teamID)
	if err != nil {
		return 0, err
	}
	return guessdomain.GuessesRemaining(s.maxGuesses, used), nil
}

func (s *Service) HasCorrectGuess(ctx context.Context, secretID, teamID uuid.UUID) (bool, error) {
	return s.repo.HasCorrectGuess(ctx, nil, secretID, teamID)
}

// MostRecentGuess returns nil when the team has not guessed on the submission in that mode.
func (s *Service) MostRecentGuess(ctx context.Context, teamID, submissionID uuid.UUID, isEvaluation bool) (*guessdb.Guess, error) {
	return s.repo.MostRecentGuess(ctx, nil, teamID, submissionID, isEvaluation)
}

// CorrectEvaluationGuesses lists a submission's correct evaluation guesses in
// the order they were made.
func (s *Service) CorrectEvaluationGuesses(ctx context.Context, submissionID uuid.UUID) ([]guessdb.Guess, error) {
	return s.repo.CorrectEvaluationGuesses(ctx, nil, submissionID)
}
