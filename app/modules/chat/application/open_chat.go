package chatservice

import (
	"context"

	"github.com/google/uuid"
	chatdb "github.com/spylab/llm-ctf/app/modules/chat/infrastructure/repositories"
	secretdb "github.com/spylab/llm-ctf/app/modules/secret/infrastructure/repositories"
	"github.com/spylab/llm-ctf/internal/observability"
	"github.com/spylab/llm-ctf/internal/observability/attr"
	"github.com/spylab/llm-ctf/internal/sharedtypes"
	"go.opentelemetry.io/otel/attribute"
)

// OpenChatRequest describes a new chat. Attack chats target another team's
// submission; other chats test the team's own defense or a bare model with a
// throwaway secret.
type OpenChatRequest struct {
	TeamID       uuid.UUID
	SubmissionID *uuid.UUID
	// Model is used only when no submission is given.
	Model        sharedtypes.ChatModel
	IsAttack     bool
	IsEvaluation bool
	// NewSecret asks for a fresh secret instead of the current one.
	NewSecret    bool
}

func (s *Service) OpenChat(ctx context.Context, req OpenChatRequest) (*chatdb.Chat, error) {
	attrs := []attribute.KeyValue{
		attribute.String("team_id", req.TeamID.String()),
		attribute.Bool("attack", req.IsAttack),
		attribute.Bool("evaluation", req.IsEvaluation),
	}
	return observability.Observe(ctx, s.in, "OpenChat", attrs, func(ctx context.Context) (*chatdb.Chat, error) {
		if req.IsEvaluation && !req.IsAttack {
			return nil, ErrEvaluationNeedsAttack
		}
		if req.IsAttack && req.SubmissionID == nil {
			return nil, ErrAttackNeedsSubmission
		}
		if _, err := s.submissions.GetTeam(ctx, nil, req.TeamID); err != nil {
			return nil, err
		}

		model := req.Model
		var secret *secretdb.Secret
		if req.SubmissionID != nil {
			sub, err := s.submissions.GetSubmission(ctx, nil, *req.SubmissionID)
			if err != nil {
				return nil, err
			}
			model = sub.Model

			switch {
			case req.IsAttack && !sub.IsActive:
				return nil, ErrSubmissionInactive
			case req.IsAttack && sub.TeamID == req.TeamID:
				return nil, ErrAttackOwnSubmission
			case !req.IsAttack && sub.TeamID != req.TeamID:
				return nil, ErrNotOwnDefense
			}

			if req.IsAttack {
				secret, err = s.secrets.SecretForAttack(ctx, req.TeamID, sub.ID, req.IsEvaluation, req.NewSecret)
				if err != nil {
					return nil, err
				}
			}
		}
		if _, err := model.Provider(); err != nil {
			return nil, err
		}
		if secret == nil {
			var err error
			if secret, err = s.secrets.NewPracticeSecret(ctx); err != nil {
				return nil, err
			}
		}

		chat := &chatdb.Chat{
			TeamID:       req.TeamID,
			SubmissionID: req.SubmissionID,
			SecretID:     secret.ID,
			Model:        model,
			IsAttack:     req.IsAttack,
			IsEvaluation: req.IsEvaluation,
		}
		if err := s.chats.CreateChat(ctx, nil, chat); err != nil {
			return nil, err
		}

		s.in.Logger.InfoContext(ctx, "Chat opened",
			attr.ExtractCorrelationID(ctx),
			attr.UUID("chat_id", chat.ID),
			attr.UUID("team_id", chat.TeamID),
			attr.OptionalUUID("submission_id", chat.SubmissionID),
			attr.UUID("secret_id", chat.SecretID),
		)
		return chat, nil
	})
}
