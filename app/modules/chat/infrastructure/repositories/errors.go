package chatdb

import (
	"fmt"

	"github.com/spylab/llm-ctf/internal/apperrors"
)

var ErrChatNotFound = fmt.Errorf("chat not found: %w", apperrors.ErrNotFound)
