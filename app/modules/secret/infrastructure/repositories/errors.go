package secretdb

import (
	"fmt"

	"github.com/spylab/llm-ctf/internal/apperrors"
)

var ErrSecretNotFound = fmt.Errorf("secret not found: %w", apperrors.ErrNotFound)
