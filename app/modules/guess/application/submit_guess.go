package guessservice

import (
	"context"

	"github.com/google/uuid"
	guessdb "github.com/spylab/llm-ctf/app/modules/guess/infrastructure/repositories"
	"github.com/spylab/llm-ctf/internal/apperrors"
	"github.com/spylab/llm-ctf/internal/results"
)

// SubmitGuessRequest is an attacker's guess made from one of its chats.
type SubmitGuessRequest struct {
	TeamID uuid.UUID
	ChatID uuid.UUID
	Value  string
}

// GuessOutcome is the result of an accepted guess.
type GuessOutcome struct {
	Guess            guessdb.Guess
	Correct          bool
	GuessesRemaining int
}

// GuessRejection explains why a guess was not recorded.
type GuessRejection struct {
	Reason  apperrors.Kind
	Message string
}

type SubmitGuessResult = results.OperationResult[GuessOutcome, GuessRejection]

// SubmitGuess is the attacker-facing guess flow. Business refusals come back
// as a failure result; the error return is reserved for infrastructure faults.
func (s *Service) SubmitGuess(ctx context.Context, req SubmitGuessRequest) (SubmitGuessResult, error) {
	chat, err := s.chats.GetChat(ctx, nil, req.ChatID)
	if err != nil {
		return rejectOrFail(err)
	}
	if chat.TeamID != req.TeamID {
		return rejectOrFail(ErrNotChatOwner)
	}
	if chat.SubmissionID != nil {
		sub, err := s.submissions.GetSubmission(ctx, nil, *chat.SubmissionID)
		if err != nil {
			return rejectOrFail(err)
		}
		if sub.TeamID == req.TeamID {
			return rejectOrFail(ErrOwnSubmission)
		}
	}

	rec, err := s.recordGuess(ctx, chat.SecretID, req.TeamID, chat.ID, req.Value, true)
	if err != nil {
		return rejectOrFail(err)
	}
	return results.SuccessResult[GuessOutcome, GuessRejection](GuessOutcome{
		Guess:            *rec.guess,
		Correct:          rec.guess.IsCorrect,
		GuessesRemaining: rec.remaining,
	}), nil
}

func rejectOrFail(err error) (SubmitGuessResult, error) {
	if !apperrors.IsClientVisible(err) {
		return SubmitGuessResult{}, err
	}
	return results.FailureResult[GuessOutcome, GuessRejection](GuessRejection{
		Reason:  apperrors.KindOf(err),
		Message: apperrors.Message(err),
	}), nil
}
