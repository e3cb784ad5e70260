package chatservice

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	budgetservice "github.com/spylab/llm-ctf/app/modules/budget/application"
	chatdomain "github.com/spylab/llm-ctf/app/modules/chat/domain"
	"github.com/spylab/llm-ctf/internal/observability"
	"github.com/spylab/llm-ctf/internal/observability/attr"
	"github.com/spylab/llm-ctf/internal/sharedtypes"
	"go.opentelemetry.io/otel/attribute"
)

// TurnRequest is one user message in a chat.
type TurnRequest struct {
	TeamID  uuid.UUID
	ChatID  uuid.UUID
	// History holds the message contents so far, ending with the new user message.
	History []string
	// APIKey is the team's own key for the chat's provider. When empty the
	// turn is paid from the team budget.
	APIKey  string
	Filters []chatdomain.OutputFilter
}

// TurnResult is the filtered reply and what it cost.
type TurnResult struct {
	Output         string                  `json:"output"`
	Steps          []chatdomain.FilterStep `json:"filter_steps"`
	GenerationCost float64                 `json:"generation_cost"`
	FilterCost     float64                 `json:"filter_cost"`
	Billed         bool                    `json:"billed"`
}

// Turn generates and filters a reply. With no own key the team budget must
// be positive before generation and again before a billable filter, and each
// step is charged after it runs. A charge that does not fit drains the
// provider budget and withholds the reply.
func (s *Service) Turn(ctx context.Context, req TurnRequest) (*TurnResult, error) {
	attrs := []attribute.KeyValue{
		attribute.String("team_id", req.TeamID.String()),
		attribute.String("chat_id", req.ChatID.String()),
	}
	return observability.Observe(ctx, s.in, "Turn", attrs, func(ctx context.Context) (*TurnResult, error) {
		if !s.limiter.Allow(req.TeamID) {
			return nil, ErrRateLimited
		}
		if err := chatdomain.ValidateFilters(req.Filters); err != nil {
			return nil, err
		}

		chat, err := s.chats.GetChat(ctx, nil, req.ChatID)
		if err != nil {
			return nil, err
		}
		if chat.TeamID != req.TeamID {
			return nil, ErrNotChatOwner
		}
		provider, err := chat.Model.Provider()
		if err != nil {
			return nil, err
		}
		secret, err := s.secrets.GetSecret(ctx, chat.SecretID)
		if err != nil {
			return nil, err
		}

		result := &TurnResult{Billed: req.APIKey == ""}
		key := req.APIKey
		if result.Billed {
			if err := s.requireBudget(ctx, req.TeamID, provider); err != nil {
				return nil, err
			}
			key = s.settings.PlatformKeys[provider]
		}

		output, cost, err := s.generator.Generate(ctx, GenerationRequest{
			Model:   chat.Model,
			APIKey:  key,
			History: req.History,
			Secret:  secret.Value,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
		}
		result.GenerationCost = cost
		if result.Billed {
			if err := s.charge(ctx, req.TeamID, provider, cost); err != nil {
				return nil, err
			}
		}

		billFilters := result.Billed && chatdomain.UsesLLMFilter(req.Filters)
		if billFilters {
			if err := s.requireBudget(ctx, req.TeamID, provider); err != nil {
				return nil, err
			}
		}
		steps, filterCost, err := chatdomain.ApplyFilters(ctx, req.Filters, chatdomain.FilterInput{
			History: req.History,
			Output:  output,
			Secret:  secret.Value,
			Model:   chat.Model,
			APIKey:  key,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFilterFailed, err)
		}
		result.Steps = steps
		result.FilterCost = filterCost
		if billFilters {
			if err := s.charge(ctx, req.TeamID, provider, filterCost); err != nil {
				return nil, err
			}
		}

		result.Output = chatdomain.Final(steps)
		s.in.Logger.InfoContext(ctx, "Chat turn completed",
			attr.ExtractCorrelationID(ctx),
			attr.UUID("chat_id", chat.ID),
			attr.Bool("billed", result.Billed),
			attr.Float64("generation_cost", result.GenerationCost),
			attr.Float64("filter_cost", result.FilterCost),
			attr.Int("filters", len(req.Filters)),
		)
		return result, nil
	})
}

func (s *Service) requireBudget(ctx context.Context, teamID uuid.UUID, provider sharedtypes.Provider) error {
	remaining, err := s.budget.Remaining(ctx, teamID, provider)
	if err != nil {
		return err
	}
	if remaining <= 0 {
		return budgetservice.ErrInsufficientBudget
	}
	return nil
}

// charge bills spend already incurred on the platform key. The provider
// budget is emptied when the amount does not fit so the next turn is refused
// before it reaches the model.
func (s *Service) charge(ctx context.Context, teamID uuid.UUID, provider sharedtypes.Provider, amount float64) error {
	_, err := s.budget.Consume(ctx, teamID, provider, amount)
	if err == nil || !errors.Is(err, budgetservice.ErrInsufficientBudget) {
		return err
	}
	if _, drainErr := s.budget.Drain(ctx, teamID, provider); drainErr != nil {
		return errors.Join(err, drainErr)
	}
	return err
}
