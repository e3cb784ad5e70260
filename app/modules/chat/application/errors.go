package chatservice

import "github.com/spylab/llm-ctf/internal/apperrors"

var (
	ErrRateLimited           = apperrors.New(apperrors.ErrRateLimited, "Rate limit exceeded, please wait before sending a new message.")
	ErrNotChatOwner          = apperrors.New(apperrors.ErrForbidden, "You can only send messages in your own chats.")
	ErrAttackOwnSubmission   = apperrors.New(apperrors.ErrForbidden, "You cannot attack your own submission.")
	ErrSubmissionInactive    = apperrors.New(apperrors.ErrForbidden, "This submission is not active.")
	ErrNotOwnDefense         = apperrors.New(apperrors.ErrForbidden, "Outside attack mode you can only chat with your own submissions.")
	ErrAttackNeedsSubmission = apperrors.New(apperrors.ErrInvalidArgument, "Attack chats need a target submission.")
	ErrEvaluationNeedsAttack = apperrors.New(apperrors.ErrInvalidArgument, "Evaluation chats must be attack chats.")
	ErrGenerationFailed      = apperrors.New(apperrors.ErrUnavailable, "Model provider error. If you have a team budget, note that your team budget has NOT been consumed.")
	ErrFilterFailed          = apperrors.New(apperrors.ErrUnavailable, "Model provider error while filtering. Note that your budget has NOT been consumed for the filter.")
)
