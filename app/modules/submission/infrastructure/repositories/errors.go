package submissiondb

import (
	"fmt"

	"github.com/spylab/llm-ctf/internal/apperrors"
)

var (
	ErrTeamNotFound        = fmt.Errorf("team not found: %w", apperrors.ErrNotFound)
	ErrSubmissionNotFound  = fmt.Errorf("submission not found: %w", apperrors.ErrNotFound)
	ErrDuplicateTeam       = fmt.Errorf("team name already registered: %w", apperrors.ErrInvalidArgument)
	ErrDuplicateSubmission = fmt.Errorf("submission already exists for this model and team or defense: %w", apperrors.ErrInvalidArgument)
)
