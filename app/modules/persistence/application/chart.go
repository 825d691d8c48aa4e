package persistenceservice

import (
	"bytes"
	"context"
	"fmt"

	"github.com/matchops/matchops/app/shared/results"
	"github.com/wcharczuk/go-chart/v2"
)

// maxChartBars caps the goals chart to the top scorers.
const maxChartBars = 12

// GoalsChart renders a PNG bar chart of goals per player for the filtered games.
func (s *Service) GoalsChart(ctx context.Context, filter StatsFilter) ([]byte, error) {
	return run(s, ctx, flagNone, "GoalsChart", filter.SeasonID+filter.TournamentID, func(ctx context.Context) (results.OperationResult[[]byte, error], error) {
		games, roster, err := s.loadGamesAndRoster(ctx)
		if err != nil {
			return results.OperationResult[[]byte, error]{}, err
		}
		png, err := renderGoalsChart(computeStats(games, roster, filter))
		if err != nil {
			return results.OperationResult[[]byte, error]{}, fmt.Errorf("failed to render chart: %w", err)
		}
		return results.SuccessResult[[]byte, error](png), nil
	})
}

func renderGoalsChart(stats []PlayerStat) ([]byte, error) {
	var bars []chart.Value
	maxGoals := 0
	for _, ps := range stats {
		if ps.Goals == 0 {
			continue
		}
		label := ps.Name
		if label == "" {
			label = ps.PlayerID
		}
		bars = append(bars, chart.Value{Label: label, Value: float64(ps.Goals)})
		if ps.Goals > maxGoals {
			maxGoals = ps.Goals
		}
		if len(bars) == maxChartBars {
			break
		}
	}
	if len(bars) == 0 {
		return renderNoGoalsPlaceholder()
	}

	graph := chart.BarChart{
		Title:    "Goals",
		Width:    160 + 80*len(bars),
		Height:   400,
		BarWidth: 50,
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: float64(maxGoals + 1)},
		},
		Bars: bars,
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

func renderNoGoalsPlaceholder() ([]byte, error) {
	graph := chart.BarChart{
		Title:    "No goals recorded",
		Width:    400,
		Height:   300,
		BarWidth: 50,
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: 1},
		},
		Bars: []chart.Value{{Label: "-", Value: 0}},
	}
	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}
