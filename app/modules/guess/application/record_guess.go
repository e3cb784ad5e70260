package guessservice

import (
	"context"

	"github.com/google/uuid"
	guessdomain "github.com/spylab/llm-ctf/app/modules/guess/domain"
	guessdb "github.com/spylab/llm-ctf/app/modules/guess/infrastructure/repositories"
	"github.com/spylab/llm-ctf/internal/observability"
	"github.com/spylab/llm-ctf/internal/observability/attr"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"
)

type recordedGuess struct {
	guess     *guessdb.Guess
	remaining int
}

// RecordGuess validates and stores a guess, assigning its ranking among the
// secret's correct guesses. Guesses on one secret are recorded one at a time.
func (s *Service) RecordGuess(ctx context.Context, secretID, teamID, chatID uuid.UUID, value string) (*guessdb.Guess, error) {
	rec, err := s.recordGuess(ctx, secretID, teamID, chatID, value, false)
	if err != nil {
		return nil, err
	}
	return rec.guess, nil
}

// recordGuess runs the ledger write. With enforceAllowance the team's guess
// count on the secret is checked under the same lock.
func (s *Service) recordGuess(ctx context.Context, secretID, teamID, chatID uuid.UUID, value string, enforceAllowance bool) (recordedGuess, error) {
	attrs := []attribute.KeyValue{
		attribute.String("secret_id", secretID.String()),
		attribute.String("team_id", teamID.String()),
		attribute.String("chat_id", chatID.String()),
	}
	return observability.Observe(ctx, s.in, "RecordGuess", attrs, func(ctx context.Context) (recordedGuess, error) {
		unlock := s.locks.Lock(secretID)
		defer unlock()

		rec, err := runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (recordedGuess, error) {
			secret, err := s.secrets.GetSecret(ctx, db, secretID)
			if err != nil {
				return recordedGuess{}, err
			}
			if _, err := s.teams.GetTeam(ctx, db, teamID); err != nil {
				return recordedGuess{}, err
			}
			chat, err := s.chats.GetChat(ctx, db, chatID)
			if err != nil {
				return recordedGuess{}, err
			}
			if secret.SubmissionID != nil && !chat.IsAttack {
				return recordedGuess{}, ErrNotAttackChat
			}
			if chat.IsEvaluation != secret.IsEvaluation {
				return recordedGuess{}, ErrEvaluationMismatch
			}

			if db != nil {
				if err := s.repo.LockSecret(ctx, db, secretID); err != nil {
					return recordedGuess{}, err
				}
			}

			hasCorrect, err := s.repo.HasCorrectGuess(ctx, db, secretID, teamID)
			if err != nil {
				return recordedGuess{}, err
			}
			if hasCorrect {
				return recordedGuess{}, ErrAlreadyGuessedCorrectly
			}

			remaining := 0
			if enforceAllowance {
				used, err := s.repo.CountGuesses(ctx, db, secretID, teamID)
				if err != nil {
					return recordedGuess{}, err
				}
				remaining = guessdomain.GuessesRemaining(s.maxGuesses, used)
				if remaining == 0 {
					return recordedGuess{}, errNoGuessesLeft(secret.IsEvaluation)
				}
			}

			existing, err := s.repo.CountCorrectGuesses(ctx, db, secretID)
			if err != nil {
				return recordedGuess{}, err
			}
			correct := value == secret.Value

			guess := &guessdb.Guess{
				SecretID:              secretID,
				GuesserTeamID:         teamID,
				ChatID:                chatID,
				SubmissionID:          secret.SubmissionID,
				Value:                 value,
				IsCorrect:             correct,
				IsEvaluation:          secret.IsEvaluation,
				GuessRanking:          guessdomain.Rank(correct, existing),
				SecretEvaluationIndex: secret.EvaluationIndex,
				GuessedAt:             s.now(),
			}
			if err := s.repo.InsertGuess(ctx, db, guess); err != nil {
				return recordedGuess{}, err
			}
			rec := recordedGuess{guess: guess}
			if enforceAllowance {
				rec.remaining = remaining - 1
			}
			return rec, nil
		})
		if err != nil {
			return recordedGuess{}, err
		}

		s.in.Metrics.RecordGuess(ctx, rec.guess.IsCorrect, rec.guess.IsEvaluation)
		s.in.Logger.InfoContext(ctx, "Guess recorded",
			attr.ExtractCorrelationID(ctx),
			attr.UUID("guess_id", rec.guess.ID),
			attr.UUID("secret_id", secretID),
			attr.UUID("team_id", teamID),
			attr.Bool("correct", rec.guess.IsCorrect),
			attr.Int("guess_ranking", rec.guess.GuessRanking),
		)
		return rec, nil
	})
}
