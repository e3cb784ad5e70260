package scoringexport

import (
	"bytes"
	"testing"

	scoringdomain "github.com/spylab/llm-ctf/app/modules/scoring/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func TestWriteWorkbook(t *testing.T) {
	scores := []scoringdomain.SubmissionScore{
		{Name: "blue/gpt-3.5-turbo-1106", Value: 0.72, Attackers: []scoringdomain.AttackerScore{
			{Name: "red", Points: 831},
			{Name: "green", Points: 867},
		}},
		{Name: "red/llama-2-70b-chat", Value: 1},
	}
	standings := scoringdomain.AttackerStandings(scores, 0)

	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, scores, standings))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SubmissionsSheet, AttackersSheet}, f.GetSheetList())

	rows, err := f.GetRows(SubmissionsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"Rank", "Submission", "Value", "Attacker", "Points"}, rows[0])
	assert.Equal(t, []string{"1", "blue/gpt-3.5-turbo-1106", "0.72", "red", "831"}, rows[1])
	assert.Equal(t, "red/llama-2-70b-chat", rows[3][1])

	rows, err = f.GetRows(AttackersSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"1", "green", "867"}, rows[1])
}

func TestRenderStandingsChart(t *testing.T) {
	png, err := RenderStandingsChart([]scoringdomain.AttackerTotal{
		{Name: "red", Points: 1200},
		{Name: "green", Points: 0},
	}, DefaultPalette)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, pngMagic))

	png, err = RenderStandingsChart(nil, DefaultPalette)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, pngMagic))
}
