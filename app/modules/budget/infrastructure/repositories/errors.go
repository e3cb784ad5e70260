package budgetdb

import (
	"fmt"

	"github.com/spylab/llm-ctf/internal/apperrors"
)

var (
	ErrBudgetNotFound = fmt.Errorf("budget not found: %w", apperrors.ErrNotFound)
	ErrBudgetExists   = fmt.Errorf("budget already exists: %w", apperrors.ErrForbidden)
	// ErrNoRowsAffected is returned when a conditional consume matched no row.
	ErrNoRowsAffected = fmt.Errorf("no rows affected")
)
