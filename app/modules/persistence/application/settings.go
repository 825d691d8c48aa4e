package persistenceservice

import (
	"context"
	"fmt"

	"github.com/matchops/matchops/app/shared/results"
	"github.com/matchops/matchops/app/shared/types"
)

// Settings returns the cached settings.
func (s *Service) Settings() types.AppSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Settings.Clone()
}

// ReadSettings reads the settings of the caller, defaults when none are stored.
func (s *Service) ReadSettings(ctx context.Context) (types.AppSettings, error) {
	return readThrough(s, ctx, "ReadSettings", s.loadSettings)
}

// UpdateSettings merges patch into the stored settings.
func (s *Service) UpdateSettings(ctx context.Context, patch types.SettingsPatch) (types.AppSettings, error) {
	return run(s, ctx, flagSaving, "UpdateSettings", types.KeyAppSettings, func(ctx context.Context) (results.OperationResult[types.AppSettings, error], error) {
		current, err := s.loadSettings(ctx)
		if err != nil {
			return results.OperationResult[types.AppSettings, error]{}, fmt.Errorf("failed to read settings: %w", err)
		}
		return s.writeSettings(ctx, patch.Apply(current))
	})
}

// ResetSettings restores the factory settings. Settings are never deleted.
func (s *Service) ResetSettings(ctx context.Context) (types.AppSettings, error) {
	return run(s, ctx, flagSaving, "ResetSettings", types.KeyAppSettings, func(ctx context.Context) (results.OperationResult[types.AppSettings, error], error) {
		return s.writeSettings(ctx, types.DefaultSettings())
	})
}

func (s *Service) writeSettings(ctx context.Context, settings types.AppSettings) (results.OperationResult[types.AppSettings, error], error) {
	if err := s.storage.SetItem(ctx, types.KeyAppSettings, settings); err != nil {
		return results.OperationResult[types.AppSettings, error]{}, fmt.Errorf("failed to write settings: %w", err)
	}
	s.mu.Lock()
	s.state.Settings = settings.Clone()
	s.mu.Unlock()
	return results.SuccessResult[types.AppSettings, error](settings), nil
}
