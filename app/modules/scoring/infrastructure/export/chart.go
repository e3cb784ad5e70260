package scoringexport

import (
	"bytes"
	"fmt"

	scoringdomain "github.com/spylab/llm-ctf/app/modules/scoring/domain"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ChartPalette colors the standings chart.
type ChartPalette struct {
	Background drawing.Color
	Bar        drawing.Color
	Text       drawing.Color
}

var DefaultPalette = ChartPalette{
	Background: drawing.ColorWhite,
	Bar:        drawing.ColorFromHex("2b6cb0"),
	Text:       drawing.ColorFromHex("1a202c"),
}

// maxBars keeps labels legible.
const maxBars = 20

// RenderStandingsChart draws a PNG bar chart of the top attackers.
func RenderStandingsChart(standings []scoringdomain.AttackerTotal, palette ChartPalette) ([]byte, error) {
	if len(standings) == 0 {
		return renderNoDataPlaceholder(palette)
	}
	if len(standings) > maxBars {
		standings = standings[:maxBars]
	}

	bars := make([]chart.Value, len(standings))
	top := 1.0
	for i, a := range standings {
		bars[i] = chart.Value{
			Label: a.Name,
			Value: float64(a.Points),
			Style: chart.Style{
				FillColor:   palette.Bar,
				StrokeColor: palette.Bar,
			},
		}
		if float64(a.Points) > top {
			top = float64(a.Points)
		}
	}

	graph := chart.BarChart{
		Title:      "Attacker standings",
		TitleStyle: chart.Style{FontColor: palette.Text},
		Width:      80*len(bars) + 160,
		Height:     480,
		BarWidth:   50,
		BarSpacing: 30,
		Background: chart.Style{
			FillColor: palette.Background,
			Padding:   chart.Box{Top: 40},
		},
		Canvas: chart.Style{FillColor: palette.Background},
		XAxis:  chart.Style{FontColor: palette.Text},
		YAxis: chart.YAxis{
			Style: chart.Style{FontColor: palette.Text},
			Range: &chart.ContinuousRange{Min: 0, Max: top},
		},
		Bars: bars,
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, fmt.Errorf("failed to render standings chart: %w", err)
	}
	return buffer.Bytes(), nil
}

func renderNoDataPlaceholder(palette ChartPalette) ([]byte, error) {
	const (
		width  = 400
		height = 200
		msg    = "No attacker has scored yet"
	)

	graph := chart.Chart{
		Width:      width,
		Height:     height,
		Background: chart.Style{FillColor: palette.Background},
		Canvas:     chart.Style{FillColor: palette.Background},
		Elements: []chart.Renderable{
			func(r chart.Renderer, cb chart.Box, chartDefaults chart.Style) {
				r.SetFontColor(palette.Text)
				r.SetFontSize(12.0)
				tb := r.MeasureText(msg)
				x := (cb.Width() - tb.Width()) / 2
				y := (cb.Height() + tb.Height()) / 2
				r.Text(msg, x, y)
			},
		},
	}
	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}
