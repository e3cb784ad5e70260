package guessdb

import (
	"fmt"

	"github.com/spylab/llm-ctf/internal/apperrors"
)

// ErrDuplicateRanking is returned when an insert collides with the
// one-correct-guess-per-team or dense-ranking indexes.
var ErrDuplicateRanking = fmt.Errorf("correct guess already recorded for this secret: %w", apperrors.ErrForbidden)
