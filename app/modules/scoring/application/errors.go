package scoringservice

import "github.com/spylab/llm-ctf/internal/apperrors"

var ErrScoresUnavailable = apperrors.New(apperrors.ErrForbidden, "Scores are not available during defense phase.")
