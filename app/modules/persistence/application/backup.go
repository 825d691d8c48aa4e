package persistenceservice

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/matchops/matchops/app/shared/eventbus"
	"github.com/matchops/matchops/app/shared/results"
	"github.com/matchops/matchops/app/shared/types"
)

// ExportAllData reads every collection from the backends into a normalized backup document.
func (s *Service) ExportAllData(ctx context.Context) (types.BackupDocument, error) {
	return run(s, ctx, flagLoading, "ExportAllData", "", func(ctx context.Context) (results.OperationResult[types.BackupDocument, error], error) {
		doc, err := s.exportLogic(ctx)
		if err != nil {
			return results.OperationResult[types.BackupDocument, error]{}, err
		}
		return results.SuccessResult[types.BackupDocument, error](doc), nil
	})
}

func (s *Service) exportLogic(ctx context.Context) (types.BackupDocument, error) {
	doc := types.BackupDocument{ExportedAt: s.now().UTC()}
	var (
		settings types.AppSettings
		user     types.UserData
		err      error
	)
	if doc.SavedGames, err = s.loadGames(ctx); err != nil {
		return types.BackupDocument{}, fmt.Errorf("failed to read %s: %w", EntitySavedGames, err)
	}
	if doc.Players, err = s.loadRoster(ctx); err != nil {
		return types.BackupDocument{}, fmt.Errorf("failed to read %s: %w", EntityPlayers, err)
	}
	if doc.Seasons, err = s.loadSeasons(ctx); err != nil {
		return types.BackupDocument{}, fmt.Errorf("failed to read %s: %w", EntitySeasons, err)
	}
	if doc.Tournaments, err = s.loadTournaments(ctx); err != nil {
		return types.BackupDocument{}, fmt.Errorf("failed to read %s: %w", EntityTournaments, err)
	}
	if settings, err = s.loadSettings(ctx); err != nil {
		return types.BackupDocument{}, fmt.Errorf("failed to read %s: %w", EntitySettings, err)
	}
	doc.Settings = &settings
	if user, err = s.loadUserData(ctx); err != nil {
		return types.BackupDocument{}, fmt.Errorf("failed to read %s: %w", EntityUserData, err)
	}
	// An anonymous profile carries nothing worth restoring.
	if user.UserID != "" {
		doc.UserData = &user
	}
	if doc.DataIntegrity, err = s.loadDataIntegrity(ctx); err != nil {
		return types.BackupDocument{}, fmt.Errorf("failed to read dataIntegrity: %w", err)
	}
	return doc, nil
}

// ImportAllData overwrites every collection present in doc. Entity types are
// written independently and failures are reported per type.
func (s *Service) ImportAllData(ctx context.Context, doc types.BackupDocument) (ImportResult, error) {
	var out ImportResult
	_, err := run(s, ctx, flagSaving, "ImportAllData", "", func(ctx context.Context) (results.OperationResult[struct{}, error], error) {
		parsed := parsedBackup{
			doc:   doc,
			shape: ShapeNormalized,
			present: map[string]bool{
				EntityPlayers:     true,
				EntitySeasons:     true,
				EntityTournaments: true,
				EntitySavedGames:  true,
				EntitySettings:    doc.Settings != nil,
				EntityUserData:    doc.UserData != nil,
			},
		}
		out = s.importDocument(ctx, parsed, ImportModeReplace)
		if !out.Succeeded() {
			return results.FailureResult[struct{}, error](fmt.Errorf("import failed: %v", out.Errors)), nil
		}
		return results.SuccessResult[struct{}, error](struct{}{}), nil
	})
	return out, err
}

// CreateBackup exports all data as indented JSON and stamps the backup date.
func (s *Service) CreateBackup(ctx context.Context) ([]byte, error) {
	return run(s, ctx, flagSaving, "CreateBackup", "", func(ctx context.Context) (results.OperationResult[[]byte, error], error) {
		doc, err := s.exportLogic(ctx)
		if err != nil {
			return results.OperationResult[[]byte, error]{}, err
		}

		now := s.now().UTC()
		integrity := doc.DataIntegrity.Clone()
		integrity.LastBackupDate = &now
		if integrity.Version == "" {
			integrity.Version = types.SchemaVersion
		}
		if err := s.storage.SetItem(ctx, types.KeyDataIntegrity, integrity); err != nil {
			return results.OperationResult[[]byte, error]{}, fmt.Errorf("failed to stamp backup date: %w", err)
		}
		s.mu.Lock()
		s.state.DataIntegrity = integrity.Clone()
		s.mu.Unlock()
		doc.DataIntegrity = integrity

		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return results.OperationResult[[]byte, error]{}, fmt.Errorf("failed to encode backup: %w", err)
		}

		s.bumpUsage(ctx, func(u *types.UsageCounters) { u.BackupsCreated++ })
		s.publish(ctx, eventbus.TopicBackupCreatedV1, eventbus.BackupCreatedPayloadV1{Bytes: len(data), CreatedAt: now})
		return results.SuccessResult[[]byte, error](data), nil
	})
}

// RestoreFromBackup replaces the stored data with a backup of either shape.
func (s *Service) RestoreFromBackup(ctx context.Context, data []byte) (ImportResult, error) {
	return s.ImportBackup(ctx, data, ImportModeReplace)
}
