package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"fintrack/internal/core"
)

// SnapshotStore maps FinanceData onto one key of a Backend.
type SnapshotStore struct {
	backend Backend
	key     string
	logger  *slog.Logger
}

func NewSnapshotStore(backend Backend, key string, logger *slog.Logger) *SnapshotStore {
	if key == "" {
		key = DefaultKey
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SnapshotStore{backend: backend, key: key, logger: logger}
}

// Key returns the slot this store reads and writes.
func (s *SnapshotStore) Key() string { return s.key }

// Load returns the persisted data. An empty slot yields defaults. A slot
// that cannot be parsed is logged and also yields defaults; only backend
// failures are returned as errors.
func (s *SnapshotStore) Load(ctx context.Context) (core.FinanceData, error) {
	raw, err := s.backend.Load(ctx, s.key)
	if errors.Is(err, ErrNotFound) {
		return core.DefaultFinanceData(), nil
	}
	if err != nil {
		return core.FinanceData{}, fmt.Errorf("load snapshot %q: %w", s.key, err)
	}
	if len(raw) == 0 {
		return core.DefaultFinanceData(), nil
	}
	data, err := DecodeSnapshot(raw)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error parsing saved data, using defaults", "key", s.key, "error", err)
		return core.DefaultFinanceData(), nil
	}
	return data, nil
}

// Save overwrites the slot with data.
func (s *SnapshotStore) Save(ctx context.Context, data core.FinanceData) error {
	raw, err := EncodeSnapshot(data)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := s.backend.Save(ctx, s.key, raw); err != nil {
		return fmt.Errorf("save snapshot %q: %w", s.key, err)
	}
	return nil
}

// Clear removes the slot. Clearing an empty slot is not an error.
func (s *SnapshotStore) Clear(ctx context.Context) error {
	if err := s.backend.Delete(ctx, s.key); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("delete snapshot %q: %w", s.key, err)
	}
	return nil
}

// Ping checks the backend when it supports it.
func (s *SnapshotStore) Ping(ctx context.Context) error {
	if p, ok := s.backend.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
