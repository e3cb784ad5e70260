package secretservice

import (
	"fmt"

	"github.com/spylab/llm-ctf/internal/apperrors"
)

// ConfirmRemoveEvaluationSecrets must be passed to RemoveEvaluationSecrets.
const ConfirmRemoveEvaluationSecrets = "CONFIRM_REMOVE_EVALUATION_SECRETS"

var (
	ErrAllSecretsExhausted    = apperrors.New(apperrors.ErrAllSecretsExhausted, "All secrets have been guessed and/or exhausted for this submission.")
	ErrRotationNotAllowed     = apperrors.New(apperrors.ErrInvalidGuess, "You cannot request a new secret in evaluation mode.")
	ErrSubmissionNotFound     = fmt.Errorf("submission not found: %w", apperrors.ErrNotFound)
	ErrEvaluationSecretsExist = fmt.Errorf("evaluation secrets already exist: %w", apperrors.ErrForbidden)
	ErrConfirmationRequired   = fmt.Errorf("confirmation %q required: %w", ConfirmRemoveEvaluationSecrets, apperrors.ErrInvalidArgument)
)
