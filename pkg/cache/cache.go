// Package cache is the device-resident snapshot store. It is the only
// mutable representation of jobs and workers on a given device; the remote
// store remains the cross-device source of truth.
package cache

import (
	"encoding/json"
	"os"

	"go.uber.org/zap"

	"github.com/crewtech/crewsync/pkg/core/model"
)

// State is the full local snapshot.
type State struct {
	Workers []model.Worker `json:"workers"`
	Jobs    []model.Job    `json:"jobs"`
}

// Store persists the snapshot as JSON at a fixed path.
type Store struct {
	path   string
	logger *zap.Logger
}

// NewStore creates a cache store backed by the given file path.
func NewStore(path string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{path: path, logger: logger}
}

// Load reads the snapshot from disk. It never fails: a missing or corrupt
// file yields an empty default state and a diagnostic log line, so callers
// always receive a well-shaped value.
func (s *Store) Load() State {
	empty := State{Workers: []model.Worker{}, Jobs: []model.Job{}}

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("Failed to read cache file, starting empty",
				zap.String("path", s.path), zap.Error(err))
		}
		return empty
	}

	var state State
	if err := json.Unmarshal(raw, &state); err != nil {
		s.logger.Warn("Cache file is corrupt, starting empty",
			zap.String("path", s.path), zap.Error(err))
		return empty
	}

	if state.Workers == nil {
		state.Workers = []model.Worker{}
	}
	if state.Jobs == nil {
		state.Jobs = []model.Job{}
	}
	return state
}

// Save writes the snapshot to disk. Fire-and-forget: failures are logged,
// never returned, and must not interrupt the caller's mutation.
func (s *Store) Save(state State) {
	raw, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		s.logger.Error("Failed to encode cache state", zap.Error(err))
		return
	}
	if err := os.WriteFile(s.path, raw, 0644); err != nil {
		s.logger.Error("Failed to write cache file",
			zap.String("path", s.path), zap.Error(err))
	}
}
