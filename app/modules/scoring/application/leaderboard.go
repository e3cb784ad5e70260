package scoringservice

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	scoringdomain "github.com/spylab/llm-ctf/app/modules/scoring/domain"
	submissiondb "github.com/spylab/llm-ctf/app/modules/submission/infrastructure/repositories"
	"github.com/spylab/llm-ctf/internal/apperrors"
	"github.com/spylab/llm-ctf/internal/observability"
	"github.com/spylab/llm-ctf/internal/observability/attr"
	"github.com/spylab/llm-ctf/internal/sharedtypes"
	"golang.org/x/sync/errgroup"
)

// Source tells where a leaderboard came from.
type Source string

const (
	SourceComputed Source = "computed"
	SourceCache    Source = "cache"
	SourceSnapshot Source = "snapshot"
)

// SkippedSubmission is a submission left off the leaderboard because its
// score could not be computed.
type SkippedSubmission struct {
	SubmissionID uuid.UUID `json:"submission_id"`
	Name         string    `json:"name"`
	Reason       string    `json:"reason"`
}

// Leaderboard is the sorted list of submission scores.
type Leaderboard struct {
	Scores  []scoringdomain.SubmissionScore `json:"scores"`
	Skipped []SkippedSubmission             `json:"skipped,omitempty"`
	Source  Source                          `json:"source"`
}

// ScoreLeaderboard returns the leaderboard for the current phase: refused
// during defense, frozen once finished, otherwise cached or computed.
func (s *Service) ScoreLeaderboard(ctx context.Context) (*Leaderboard, error) {
	return observability.Observe(ctx, s.in, "ScoreLeaderboard", nil, func(ctx context.Context) (*Leaderboard, error) {
		switch s.settings.Phase {
		case sharedtypes.PhaseDefense:
			return nil, ErrScoresUnavailable
		case sharedtypes.PhaseFinished:
			scores, err := s.snapshots.Load(ctx)
			if err != nil {
				return nil, err
			}
			return s.served(ctx, &Leaderboard{Scores: scores, Source: SourceSnapshot}), nil
		}

		if scores, ok := s.cached(ctx); ok {
			return s.served(ctx, &Leaderboard{Scores: scores, Source: SourceCache}), nil
		}

		board, err := s.compute(ctx)
		if err != nil {
			return nil, err
		}
		s.store(ctx, board.Scores)
		return s.served(ctx, board), nil
	})
}

// RefreshCache recomputes the leaderboard and stores it regardless of what
// is cached.
func (s *Service) RefreshCache(ctx context.Context) (*Leaderboard, error) {
	return observability.Observe(ctx, s.in, "RefreshCache", nil, func(ctx context.Context) (*Leaderboard, error) {
		board, err := s.compute(ctx)
		if err != nil {
			return nil, err
		}
		s.store(ctx, board.Scores)
		return board, nil
	})
}

// InvalidateCache drops the cached leaderboard.
func (s *Service) InvalidateCache(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Delete(ctx); err != nil {
		return err
	}
	s.in.Logger.DebugContext(ctx, "Leaderboard cache invalidated", attr.ExtractCorrelationID(ctx))
	return nil
}

// CaptureSnapshot computes the leaderboard and writes it as the frozen
// snapshot used in the finished phase.
func (s *Service) CaptureSnapshot(ctx context.Context) (*Leaderboard, error) {
	return observability.Observe(ctx, s.in, "CaptureSnapshot", nil, func(ctx context.Context) (*Leaderboard, error) {
		board, err := s.compute(ctx)
		if err != nil {
			return nil, err
		}
		if err := s.snapshots.Save(ctx, board.Scores); err != nil {
			return nil, err
		}
		s.in.Logger.InfoContext(ctx, "Leaderboard snapshot captured",
			attr.Int("submissions", len(board.Scores)),
			attr.Int("skipped", len(board.Skipped)),
		)
		return board, nil
	})
}

func (s *Service) served(ctx context.Context, board *Leaderboard) *Leaderboard {
	s.in.Metrics.RecordLeaderboardSource(ctx, string(board.Source))
	return board
}

func (s *Service) cached(ctx context.Context) ([]scoringdomain.SubmissionScore, bool) {
	if s.cache == nil || s.settings.CacheTTL <= 0 {
		return nil, false
	}
	scores, ok, err := s.cache.Get(ctx)
	if err != nil {
		s.in.Logger.WarnContext(ctx, "Leaderboard cache read failed",
			attr.ExtractCorrelationID(ctx),
			attr.Error(err),
		)
		return nil, false
	}
	return scores, ok
}

func (s *Service) store(ctx context.Context, scores []scoringdomain.SubmissionScore) {
	if s.cache == nil || s.settings.CacheTTL <= 0 {
		return
	}
	if err := s.cache.Set(ctx, scores, s.settings.CacheTTL); err != nil {
		s.in.Logger.WarnContext(ctx, "Leaderboard cache write failed",
			attr.ExtractCorrelationID(ctx),
			attr.Error(err),
		)
	}
}

// compute scores every active submission concurrently. A submission whose
// score fails is reported in Skipped instead of failing the leaderboard.
func (s *Service) compute(ctx context.Context) (*Leaderboard, error) {
	submissions, err := s.submissions.ListSubmissions(ctx, nil, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}

	ownerIDs := make([]uuid.UUID, 0, len(submissions))
	for _, sub := range submissions {
		ownerIDs = append(ownerIDs, sub.TeamID)
	}
	owners, err := s.submissions.GetTeamsByIDs(ctx, nil, ownerIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load submission teams: %w", err)
	}

	var (
		mu      sync.Mutex
		scores  = make([]*scoringdomain.SubmissionScore, len(submissions))
		skipped []SkippedSubmission
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.settings.Concurrency)
	for i, sub := range submissions {
		g.Go(func() error {
			owner, ok := owners[sub.TeamID]
			name := scoringdomain.SubmissionName(owner.Name, sub.Model)
			var (
				score scoringdomain.SubmissionScore
				err   error
			)
			if ok {
				score, err = s.scoreSubmission(gctx, sub, name)
			} else {
				name = sub.ID.String()
				err = fmt.Errorf("owning team %s: %w", sub.TeamID, submissiondb.ErrTeamNotFound)
			}
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				s.in.Logger.ErrorContext(gctx, "Skipping submission in leaderboard",
					attr.ExtractCorrelationID(gctx),
					attr.UUID("submission_id", sub.ID),
					attr.String("submission", name),
					attr.Error(err),
				)
				s.in.Metrics.RecordSubmissionSkipped(gctx, string(apperrors.KindOf(err)))
				mu.Lock()
				skipped = append(skipped, SkippedSubmission{SubmissionID: sub.ID, Name: name, Reason: err.Error()})
				mu.Unlock()
				return nil
			}
			scores[i] = &score
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	board := &Leaderboard{Source: SourceComputed, Scores: make([]scoringdomain.SubmissionScore, 0, len(scores))}
	for _, score := range scores {
		if score != nil {
			board.Scores = append(board.Scores, *score)
		}
	}
	scoringdomain.SortLeaderboard(board.Scores)
	board.Skipped = skipped
	return board, nil
}

func (s *Service) scoreSubmission(ctx context.Context, sub submissiondb.Submission, name string) (scoringdomain.SubmissionScore, error) {
	guesses, err := s.guesses.CorrectEvaluationGuesses(ctx, nil, sub.ID)
	if err != nil {
		return scoringdomain.SubmissionScore{}, fmt.Errorf("failed to load correct guesses: %w", err)
	}
	evalChats, err := s.chats.EvaluationChatCounts(ctx, nil, sub.ID)
	if err != nil {
		return scoringdomain.SubmissionScore{}, fmt.Errorf("failed to count evaluation chats: %w", err)
	}

	guesserIDs := make([]uuid.UUID, 0, len(guesses))
	for _, g := range guesses {
		guesserIDs = append(guesserIDs, g.GuesserTeamID)
	}
	guessers, err := s.submissions.GetTeamsByIDs(ctx, nil, guesserIDs)
	if err != nil {
		return scoringdomain.SubmissionScore{}, fmt.Errorf("failed to load guessing teams: %w", err)
	}

	correct := make([]scoringdomain.CorrectGuess, 0, len(guesses))
	for _, g := range guesses {
		team, ok := guessers[g.GuesserTeamID]
		if !ok {
			return scoringdomain.SubmissionScore{}, fmt.Errorf("guessing team %s: %w", g.GuesserTeamID, submissiondb.ErrTeamNotFound)
		}
		correct = append(correct, scoringdomain.CorrectGuess{
			TeamName:  team.Name,
			Ranking:   g.GuessRanking,
			Timestamp: g.GuessedAt,
			EvalChats: evalChats[g.GuesserTeamID],
		})
	}

	return s.settings.Params.ScoreSubmission(name, sub.ModelFamily, correct)
}
