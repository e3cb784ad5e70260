// Package scoringexport renders the leaderboard as a spreadsheet and a chart.
package scoringexport

import (
	"fmt"
	"io"

	scoringdomain "github.com/spylab/llm-ctf/app/modules/scoring/domain"
	"github.com/xuri/excelize/v2"
)

const (
	SubmissionsSheet = "Submissions"
	AttackersSheet   = "Attackers"
)

// WriteWorkbook writes an xlsx workbook with one sheet of submission rows
// and one of attacker standings.
func WriteWorkbook(w io.Writer, scores []scoringdomain.SubmissionScore, standings []scoringdomain.AttackerTotal) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SubmissionsSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := writeRows(f, SubmissionsSheet, submissionRows(scores)); err != nil {
		return err
	}

	if _, err := f.NewSheet(AttackersSheet); err != nil {
		return fmt.Errorf("failed to add sheet: %w", err)
	}
	if err := writeRows(f, AttackersSheet, standingRows(standings)); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func submissionRows(scores []scoringdomain.SubmissionScore) [][]any {
	rows := [][]any{{"Rank", "Submission", "Value", "Attacker", "Points"}}
	for i, s := range scores {
		if len(s.Attackers) == 0 {
			rows = append(rows, []any{i + 1, s.Name, s.Value, "", ""})
			continue
		}
		for _, a := range s.Attackers {
			rows = append(rows, []any{i + 1, s.Name, s.Value, a.Name, a.Points})
		}
	}
	return rows
}

func standingRows(standings []scoringdomain.AttackerTotal) [][]any {
	rows := [][]any{{"Rank", "Attacker", "Points"}}
	for i, a := range standings {
		rows = append(rows, []any{i + 1, a.Name, a.Points})
	}
	return rows
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
