// Package state persists pool state between runs.
package state

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"remediPair/internal/model"
	"remediPair/internal/storage/postgres"
)

// Store loads and saves a pool's full state.
type Store interface {
	Load(ctx context.Context) (model.PoolState, bool, error)
	Save(ctx context.Context, state model.PoolState) error
}

// FileStore stores state in a local JSON file.
type FileStore struct {
	Path string
}

func (s *FileStore) Load(ctx context.Context) (model.PoolState, bool, error) {
	if s == nil || s.Path == "" {
		return model.PoolState{}, false, nil
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.PoolState{}, false, nil
		}
		return model.PoolState{}, false, fmt.Errorf("read state: %w", err)
	}

	var rec model.PoolState
	if err := json.Unmarshal(data, &rec); err != nil {
		return model.PoolState{}, false, fmt.Errorf("parse state: %w", err)
	}
	return rec, true, nil
}

func (s *FileStore) Save(ctx context.Context, state model.PoolState) error {
	if s == nil || s.Path == "" {
		return nil
	}
	dir := filepath.Dir(s.Path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}
	}

	state.UpdatedAt = time.Now().UTC().Format(time.RFC3339Nano)
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write state tmp: %w", err)
	}
	if err := os.Rename(tmp, s.Path); err != nil {
		return fmt.Errorf("rename state: %w", err)
	}
	return nil
}

// DBStore stores state in the pair_state table.
type DBStore struct {
	Store *postgres.Store
	Name  string
}

func (s *DBStore) Load(ctx context.Context) (model.PoolState, bool, error) {
	if s == nil || s.Store == nil {
		return model.PoolState{}, false, nil
	}
	return s.Store.LoadPoolState(ctx, s.Name)
}

func (s *DBStore) Save(ctx context.Context, state model.PoolState) error {
	if s == nil || s.Store == nil {
		return nil
	}
	state.UpdatedAt = time.Now().UTC().Format(time.RFC3339Nano)
	return s.Store.SavePoolState(ctx, s.Name, state)
}
