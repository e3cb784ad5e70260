package submissionservice

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	submissiondb "github.com/spylab/llm-ctf/app/modules/submission/infrastructure/repositories"
	"github.com/spylab/llm-ctf/internal/apperrors"
	"github.com/spylab/llm-ctf/internal/observability/attr"
	"github.com/spylab/llm-ctf/internal/sharedtypes"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrModelNotAllowed = fmt.Errorf("model is not open for submissions: %w", apperrors.ErrInvalidArgument)
	ErrSubmissionLimit = fmt.Errorf("team has reached its submission limit: %w", apperrors.ErrForbidden)
)

// Service manages teams and submissions.
type Service struct {
	repo       submissiondb.Repository
	logger     *slog.Logger
	tracer     trace.Tracer
	chatModels []sharedtypes.ChatModel
	maxPerTeam int
}

// NewSubmissionService creates a new Service. chatModels lists the models a
// submission may target; maxPerTeam caps a team's submissions, zero meaning
// no cap.
func NewSubmissionService(repo submissiondb.Repository, logger *slog.Logger, tracer trace.Tracer, chatModels []sharedtypes.ChatModel, maxPerTeam int) *Service {
	return &Service{
		repo:       repo,
		logger:     logger,
		tracer:     tracer,
		chatModels: chatModels,
		maxPerTeam: maxPerTeam,
	}
}

// RegisterTeam creates a team with a unique name.
func (s *Service) RegisterTeam(ctx context.Context, name string) (*submissiondb.Team, error) {
	ctx, span := s.tracer.Start(ctx, "RegisterTeam")
	defer span.End()

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("team name must not be empty: %w", apperrors.ErrInvalidArgument)
	}

	team := &submissiondb.Team{Name: name}
	if err := s.repo.CreateTeam(ctx, nil, team); err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.logger.InfoContext(ctx, "Team registered",
		attr.UUID("team_id", team.ID),
		attr.String("team_name", team.Name),
	)
	return team, nil
}

// RegisterSubmission enters a team's defense against a model. The model
// family and billing provider are resolved here and stored on the row.
func (s *Service) RegisterSubmission(ctx context.Context, teamID, defenseID uuid.UUID, model sharedtypes.ChatModel) (*submissiondb.Submission, error) {
	ctx, span := s.tracer.Start(ctx, "RegisterSubmission", trace.WithAttributes(
		attribute.String("team_id", teamID.String()),
		attribute.String("model", model.String()),
	))
	defer span.End()

	if !s.isChatModel(model) {
		return nil, fmt.Errorf("%s: %w", model, ErrModelNotAllowed)
	}
	family, err := model.Family()
	if err != nil {
		return nil, err
	}
	provider, err := model.Provider()
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.GetTeam(ctx, nil, teamID); err != nil {
		return nil, err
	}
	if err := s.checkLimit(ctx, teamID); err != nil {
		return nil, err
	}

	submission := &submissiondb.Submission{
		DefenseID:   defenseID,
		TeamID:      teamID,
		Model:       model,
		ModelFamily: family,
		Provider:    provider,
		IsActive:    true,
	}
	if err := s.repo.CreateSubmission(ctx, nil, submission); err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.logger.InfoContext(ctx, "Submission registered",
		attr.UUID("submission_id", submission.ID),
		attr.UUID("team_id", teamID),
		attr.String("model", model.String()),
	)
	return submission, nil
}

// SetActive activates or deactivates a submission. Inactive submissions keep
// their secrets and guesses but are neither scored nor attackable.
func (s *Service) SetActive(ctx context.Context, submissionID uuid.UUID, active bool) error {
	if err := s.repo.SetSubmissionActive(ctx, nil, submissionID, active); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Submission activation changed",
		attr.UUID("submission_id", submissionID),
		attr.Bool("is_active", active),
	)
	return nil
}

func (s *Service) GetSubmission(ctx context.Context, id uuid.UUID) (*submissiondb.Submission, error) {
	return s.repo.GetSubmission(ctx, nil, id)
}

func (s *Service) GetTeam(ctx context.Context, id uuid.UUID) (*submissiondb.Team, error) {
	return s.repo.GetTeam(ctx, nil, id)
}

func (s *Service) GetTeamByName(ctx context.Context, name string) (*submissiondb.Team, error) {
	return s.repo.GetTeamByName(ctx, nil, name)
}

// ListSubmissions returns submissions ordered by creation time.
func (s *Service) ListSubmissions(ctx context.Context, activeOnly bool) ([]submissiondb.Submission, error) {
	return s.repo.ListSubmissions(ctx, nil, activeOnly)
}

// AttackTargets returns the active submissions the team may attack.
func (s *Service) AttackTargets(ctx context.Context, teamID uuid.UUID) ([]submissiondb.Submission, error) {
	submissions, err := s.repo.ListSubmissions(ctx, nil, true)
	if err != nil {
		return nil, err
	}
	targets := submissions[:0]
	for _, sub := range submissions {
		if sub.TeamID != teamID {
			targets = append(targets, sub)
		}
	}
	return targets, nil
}

func (s *Service) checkLimit(ctx context.Context, teamID uuid.UUID) error {
	if s.maxPerTeam == 0 {
		return nil
	}
	submissions, err := s.repo.ListSubmissions(ctx, nil, false)
	if err != nil {
		return err
	}
	count := 0
	for _, sub := range submissions {
		if sub.TeamID == teamID {
			count++
		}
	}
	if count >= s.maxPerTeam {
		return fmt.Errorf("%d submissions: %w", count, ErrSubmissionLimit)
	}
	return nil
}

func (s *Service) isChatModel(model sharedtypes.ChatModel) bool {
	for _, m := range s.chatModels {
		if m == model {
			return true
		}
	}
	return false
}
