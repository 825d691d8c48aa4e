package persistenceservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	storageservice "github.com/matchops/matchops/app/modules/storage/application"
	"github.com/matchops/matchops/app/shared/eventbus"
	"github.com/matchops/matchops/app/shared/results"
	"github.com/matchops/matchops/app/shared/types"
)

// ImportMode selects how imported records combine with existing ones.
type ImportMode string

const (
	// ImportModeMerge upserts by id; imported records win.
	ImportModeMerge ImportMode = "merge"
	// ImportModeReplace deletes existing records of each imported type first.
	ImportModeReplace ImportMode = "replace"
)

// ParseImportMode validates a mode name. Empty selects merge.
func ParseImportMode(name string) (ImportMode, error) {
	switch ImportMode(name) {
	case "", ImportModeMerge:
		return ImportModeMerge, nil
	case ImportModeReplace:
		return ImportModeReplace, nil
	default:
		return "", fmt.Errorf("unknown import mode %q", name)
	}
}

// BackupShape is the detected backup format.
type BackupShape string

const (
	ShapeLegacy     BackupShape = "legacy"
	ShapeNormalized BackupShape = "normalized"
)

// Entity names used in ImportResult.
const (
	EntityPlayers     = "players"
	EntitySeasons     = "seasons"
	EntityTournaments = "tournaments"
	EntitySavedGames  = "savedGames"
	EntitySettings    = "settings"
	EntityUserData    = "userData"
)

// ImportResult reports per-entity outcomes of an import.
type ImportResult struct {
	Shape   BackupShape       `json:"shape"`
	Mode    ImportMode        `json:"mode"`
	Counts  map[string]int    `json:"counts"`
	// Skipped counts records dropped because they failed validation.
	Skipped map[string]int    `json:"skipped,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// Succeeded reports whether at least one entity type was imported.
func (r ImportResult) Succeeded() bool {
	return len(r.Counts) > 0
}

type parsedBackup struct {
	doc     types.BackupDocument
	shape   BackupShape
	present map[string]bool
}

// parseBackup detects the backup shape from its top-level keys.
func parseBackup(data []byte) (parsedBackup, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return parsedBackup{}, fmt.Errorf("%w: %w", ErrInvalidBackup, err)
	}

	if _, ok := top["localStorage"]; ok {
		var legacy types.LegacyBackup
		if err := json.Unmarshal(data, &legacy); err != nil {
			return parsedBackup{}, fmt.Errorf("%w: %w", ErrInvalidBackup, err)
		}
		ls := legacy.LocalStorage
		return parsedBackup{
			doc:   legacy.Normalize(),
			shape: ShapeLegacy,
			present: map[string]bool{
				EntityPlayers:     ls.MasterRoster != nil,
				EntitySeasons:     ls.SeasonsList != nil,
				EntityTournaments: ls.TournamentsList != nil,
				EntitySavedGames:  ls.SavedGames != nil,
				EntitySettings:    ls.AppSettings != nil,
			},
		}, nil
	}

	present := map[string]bool{}
	for _, key := range []string{EntityPlayers, EntitySeasons, EntityTournaments, EntitySavedGames, EntitySettings, EntityUserData} {
		if raw, ok := top[key]; ok && string(raw) != "null" {
			present[key] = true
		}
	}
	if len(present) == 0 {
		return parsedBackup{}, ErrUnknownBackupShape
	}

	var doc types.BackupDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return parsedBackup{}, fmt.Errorf("%w: %w", ErrInvalidBackup, err)
	}
	return parsedBackup{doc: doc, shape: ShapeNormalized, present: present}, nil
}

// ImportBackup imports a legacy or normalized backup. Entity types are
// imported independently; a failing type is reported in ImportResult.Errors
// and the others continue. An error is returned only when the document is
// unreadable or every present type failed.
func (s *Service) ImportBackup(ctx context.Context, data []byte, mode ImportMode) (ImportResult, error) {
	var out ImportResult
	_, err := run(s, ctx, flagSaving, "ImportBackup", string(mode), func(ctx context.Context) (results.OperationResult[struct{}, error], error) {
		parsed, err := parseBackup(data)
		if err != nil {
			return results.FailureResult[struct{}, error](err), nil
		}
		out = s.importDocument(ctx, parsed, mode)
		if !out.Succeeded() && len(out.Errors) > 0 {
			return results.FailureResult[struct{}, error](fmt.Errorf("%w: %v", storageservice.ErrAllOperationsFailed, out.Errors)), nil
		}
		return results.SuccessResult[struct{}, error](struct{}{}), nil
	})
	return out, err
}

// importDocument runs one transaction step per present entity type.
func (s *Service) importDocument(ctx context.Context, parsed parsedBackup, mode ImportMode) ImportResult {
	doc := parsed.doc
	out := ImportResult{
		Shape:   parsed.shape,
		Mode:    mode,
		Counts:  map[string]int{},
		Skipped: map[string]int{},
		Errors:  map[string]string{},
	}

	games, skipped := validGames(doc.SavedGames)
	if skipped > 0 {
		out.Skipped[EntitySavedGames] = skipped
	}

	var ops []storageservice.Operation
	var entities []string
	var counts []int
	add := func(entity string, count int, fn func(ctx context.Context) error) {
		if !parsed.present[entity] {
			return
		}
		entities = append(entities, entity)
		counts = append(counts, count)
		ops = append(ops, storageservice.Operation{Name: "import." + entity, Run: fn})
	}

	add(EntityPlayers, len(doc.Players), func(ctx context.Context) error {
		players := doc.Players
		if mode == ImportModeMerge {
			existing, err := s.entities.LoadPlayers(ctx)
			if err != nil {
				return err
			}
			players = mergeByID(existing, players, playerCollection.id)
		}
		return s.entities.ReplacePlayers(ctx, players)
	})
	add(EntitySeasons, len(doc.Seasons), func(ctx context.Context) error {
		seasons := doc.Seasons
		if mode == ImportModeMerge {
			existing, err := s.entities.LoadSeasons(ctx)
			if err != nil {
				return err
			}
			seasons = mergeByID(existing, seasons, seasonCollection.id)
		}
		return s.entities.ReplaceSeasons(ctx, seasons)
	})
	add(EntityTournaments, len(doc.Tournaments), func(ctx context.Context) error {
		tournaments := doc.Tournaments
		if mode == ImportModeMerge {
			existing, err := s.entities.LoadTournaments(ctx)
			if err != nil {
				return err
			}
			tournaments = mergeByID(existing, tournaments, tournamentCollection.id)
		}
		return s.entities.ReplaceTournaments(ctx, tournaments)
	})
	add(EntitySavedGames, len(games), func(ctx context.Context) error {
		merged := games
		if mode == ImportModeMerge {
			existing, err := s.entities.LoadGames(ctx)
			if err != nil {
				return err
			}
			merged = existing
			for id, g := range games {
				merged[id] = g
			}
		}
		return s.entities.ReplaceGames(ctx, merged)
	})
	if doc.Settings != nil {
		add(EntitySettings, 1, func(ctx context.Context) error {
			return s.storage.SetItem(ctx, types.KeyAppSettings, *doc.Settings)
		})
	}
	if doc.UserData != nil {
		add(EntityUserData, 1, func(ctx context.Context) error {
			return s.storage.SetItem(ctx, types.KeyUserData, *doc.UserData)
		})
	}

	tx := s.tx.Execute(ctx, ops, storageservice.Options{})
	for i, entity := range entities {
		if tx.Results[i] {
			out.Counts[entity] = counts[i]
			continue
		}
		err := tx.Errors[i]
		if err == nil {
			err = tx.Err
		}
		if err == nil {
			err = errors.New("not attempted")
		}
		out.Errors[entity] = err.Error()
		s.logger.WarnContext(ctx, "Import of entity type failed",
			slog.String("entity", entity),
			slog.String("error", err.Error()),
		)
	}

	s.refreshAfterImport(ctx)
	if out.Succeeded() {
		s.bumpUsage(ctx, func(u *types.UsageCounters) { u.ImportsCompleted++ })
		s.publish(ctx, eventbus.TopicDataImportedV1, eventbus.DataImportedPayloadV1{
			Shape:      string(out.Shape),
			Mode:       string(out.Mode),
			Counts:     out.Counts,
			ImportedAt: s.now().UTC(),
		})
	}
	return out
}

// refreshAfterImport reloads the caches. User data goes first so the
// managed-games counter lands on the imported profile.
func (s *Service) refreshAfterImport(ctx context.Context) {
	steps := []struct {
		entity  string
		refresh func(context.Context) error
	}{
		{EntityUserData, s.refreshUserData},
		{EntitySavedGames, s.afterGamesChanged},
		{EntityPlayers, s.refreshRoster},
		{EntitySeasons, s.refreshSeasons},
		{EntityTournaments, s.refreshTournaments},
		{EntitySettings, s.refreshSettings},
	}
	for _, step := range steps {
		if err := step.refresh(ctx); err != nil {
			s.logger.WarnContext(ctx, "Failed to refresh cache after import",
				slog.String("entity", step.entity),
				slog.String("error", err.Error()),
			)
		}
	}
}

// validGames drops games that violate write-time constraints.
func validGames(in map[string]types.GameState) (map[string]types.GameState, int) {
	out := make(map[string]types.GameState, len(in))
	skipped := 0
	for id, g := range in {
		if g.GameID == "" {
			g.GameID = id
		}
		if g.Validate() != nil {
			skipped++
			continue
		}
		out[g.GameID] = g
	}
	return out, skipped
}

// mergeByID overlays incoming onto existing by id, keeping existing order
// and appending new records.
func mergeByID[T any](existing, incoming []T, id func(T) string) []T {
	pos := make(map[string]int, len(existing))
	out := make([]T, len(existing), len(existing)+len(incoming))
	copy(out, existing)
	for i, item := range out {
		pos[id(item)] = i
	}
	for _, item := range incoming {
		if i, ok := pos[id(item)]; ok {
			out[i] = item
			continue
		}
		pos[id(item)] = len(out)
		out = append(out, item)
	}
	return out
}
