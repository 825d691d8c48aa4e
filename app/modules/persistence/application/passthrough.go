package persistenceservice

import (
	"context"
	"encoding/json"
)

// GetStorageItem reads a keyed document through the unified storage API.
func (s *Service) GetStorageItem(ctx context.Context, key string) (json.RawMessage, bool, error) {
	return s.storage.GetItem(ctx, key)
}

// SetStorageItem writes a keyed document through the unified storage API.
func (s *Service) SetStorageItem(ctx context.Context, key string, value any) error {
	s.setFlag(flagSaving, 1)
	defer s.setFlag(flagSaving, -1)

	err := s.storage.SetItem(ctx, key, value)
	s.recordError(err)
	return err
}

// RemoveStorageItem deletes a keyed document through the unified storage API.
func (s *Service) RemoveStorageItem(ctx context.Context, key string) error {
	s.setFlag(flagSaving, 1)
	defer s.setFlag(flagSaving, -1)

	err := s.storage.RemoveItem(ctx, key)
	s.recordError(err)
	return err
}

// HasStorageItem reports whether a keyed document exists.
func (s *Service) HasStorageItem(ctx context.Context, key string) (bool, error) {
	return s.storage.HasItem(ctx, key)
}

// StorageKeys lists every stored key.
func (s *Service) StorageKeys(ctx context.Context) ([]string, error) {
	return s.storage.Keys(ctx)
}
