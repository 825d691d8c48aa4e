package persistenceservice

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/matchops/matchops/app/shared/results"
	"github.com/matchops/matchops/app/shared/types"
	"github.com/xuri/excelize/v2"
)

const (
	gamesSheet = "Games"
	statsSheet = "Player Stats"
)

var (
	gamesHeader = []any{"Game ID", "Date", "Time", "Team", "Opponent", "Home/Away", "Home", "Away", "Status", "Season", "Tournament", "Played"}
	statsHeader = []any{"Player", "Games", "Goals", "Assists", "Points"}
)

// ExportWorkbook writes an xlsx workbook with a Games sheet and a Player Stats sheet.
func (s *Service) ExportWorkbook(ctx context.Context, w io.Writer) error {
	_, err := run(s, ctx, flagNone, "ExportWorkbook", "", func(ctx context.Context) (results.OperationResult[struct{}, error], error) {
		games, roster, err := s.loadGamesAndRoster(ctx)
		if err != nil {
			return results.OperationResult[struct{}, error]{}, err
		}
		seasons, err := s.loadSeasons(ctx)
		if err != nil {
			return results.OperationResult[struct{}, error]{}, fmt.Errorf("failed to load seasons: %w", err)
		}
		tournaments, err := s.loadTournaments(ctx)
		if err != nil {
			return results.OperationResult[struct{}, error]{}, fmt.Errorf("failed to load tournaments: %w", err)
		}
		st := State{SavedGames: games, MasterRoster: roster, Seasons: seasons, Tournaments: tournaments}
		if err := writeWorkbook(w, st, computeStats(games, roster, StatsFilter{})); err != nil {
			return results.OperationResult[struct{}, error]{}, err
		}
		return results.SuccessResult[struct{}, error](struct{}{}), nil
	})
	return err
}

func writeWorkbook(w io.Writer, st State, stats []PlayerStat) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", gamesSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	if _, err := f.NewSheet(statsSheet); err != nil {
		return fmt.Errorf("failed to add sheet: %w", err)
	}

	seasonNames := make(map[string]string, len(st.Seasons))
	for _, season := range st.Seasons {
		seasonNames[season.ID] = season.Name
	}
	tournamentNames := make(map[string]string, len(st.Tournaments))
	for _, t := range st.Tournaments {
		tournamentNames[t.ID] = t.Name
	}

	games := make([]types.GameState, 0, len(st.SavedGames))
	for _, g := range st.SavedGames {
		games = append(games, g)
	}
	sort.Slice(games, func(i, j int) bool {
		if games[i].GameDate != games[j].GameDate {
			return games[i].GameDate > games[j].GameDate
		}
		return games[i].GameID < games[j].GameID
	})

	if err := setRow(f, gamesSheet, 1, gamesHeader); err != nil {
		return err
	}
	for i, g := range games {
		played := "yes"
		if !g.Played() {
			played = "no"
		}
		row := []any{
			g.GameID, g.GameDate, g.GameTime, g.TeamName, g.OpponentName, string(g.HomeOrAway),
			g.HomeScore, g.AwayScore, string(g.GameStatus),
			seasonNames[g.SeasonID], tournamentNames[g.TournamentID], played,
		}
		if err := setRow(f, gamesSheet, i+2, row); err != nil {
			return err
		}
	}

	if err := setRow(f, statsSheet, 1, statsHeader); err != nil {
		return err
	}
	for i, ps := range stats {
		name := ps.Name
		if name == "" {
			name = ps.PlayerID
		}
		if err := setRow(f, statsSheet, i+2, []any{name, ps.GamesPlayed, ps.Goals, ps.Assists, ps.Points}); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	return nil
}
