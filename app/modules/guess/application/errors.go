package guessservice

import (
	guessdomain "github.com/spylab/llm-ctf/app/modules/guess/domain"
	"github.com/spylab/llm-ctf/internal/apperrors"
)

var (
	ErrOwnSubmission           = apperrors.New(apperrors.ErrInvalidGuess, guessdomain.MsgOwnSubmission)
	ErrAlreadyGuessedCorrectly = apperrors.New(apperrors.ErrForbidden, guessdomain.MsgAlreadyCorrect)
	ErrNotAttackChat           = apperrors.New(apperrors.ErrInvalidGuess, "Secrets of a submission can only be guessed from an attack chat.")
	ErrEvaluationMismatch      = apperrors.New(apperrors.ErrInvalidGuess, "The chat and the secret must both be in evaluation mode or both outside it.")
	ErrNotChatOwner            = apperrors.New(apperrors.ErrForbidden, "You can only guess from your own chats.")
	ErrNoGuessesLeftEvaluation = apperrors.New(apperrors.ErrForbidden, guessdomain.ExhaustedMessage(true))
	ErrNoGuessesLeftAttack     = apperrors.New(apperrors.ErrForbidden, guessdomain.ExhaustedMessage(false))
)

func errNoGuessesLeft(evaluation bool) error {
	if evaluation {
		return ErrNoGuessesLeftEvaluation
	}
	return ErrNoGuessesLeftAttack
}
