package scoringservice

import (
	"context"
	"io"

	scoringdomain "github.com/spylab/llm-ctf/app/modules/scoring/domain"
	scoringexport "github.com/spylab/llm-ctf/app/modules/scoring/infrastructure/export"
)

// Standings totals each attacker's best results on the current leaderboard.
func (s *Service) Standings(ctx context.Context) ([]scoringdomain.AttackerTotal, *Leaderboard, error) {
	board, err := s.ScoreLeaderboard(ctx)
	if err != nil {
		return nil, nil, err
	}
	return scoringdomain.AttackerStandings(board.Scores, s.settings.MaxSubmissionsPerTeam), board, nil
}

// ExportWorkbook writes the current leaderboard and attacker standings as xlsx.
func (s *Service) ExportWorkbook(ctx context.Context, w io.Writer) error {
	standings, board, err := s.Standings(ctx)
	if err != nil {
		return err
	}
	return scoringexport.WriteWorkbook(w, board.Scores, standings)
}

// RenderChart draws the attacker standings as a PNG.
func (s *Service) RenderChart(ctx context.Context) ([]byte, error) {
	standings, _, err := s.Standings(ctx)
	if err != nil {
		return nil, err
	}
	return scoringexport.RenderStandingsChart(standings, scoringexport.DefaultPalette)
}
