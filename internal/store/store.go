// Package store persists the destination snapshot to disk so registry edits
// and first-backfill markers survive restarts.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/Rierra/fblstner/internal/registry"
)

// Snapshot is the on-disk shape of the monitor's durable state.
type Snapshot struct {
	Destinations map[string]DestinationState `json:"destinations"`
	// Initialized lists "<destination>:<keyword>" pairs that have completed
	// their first backfill and are in delta mode.
	Initialized []string `json:"initialized"`
}

// DestinationState is one destination's persisted form.
type DestinationState struct {
	Name     string   `json:"name"`
	Keywords []string `json:"keywords"`
	Enabled  bool     `json:"enabled"`
}

// FileStore reads and writes snapshots at a fixed path.
type FileStore struct {
	path string
}

// NewFileStore creates a store writing to path. The parent directory is
// created on the first Save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the snapshot file path.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the snapshot from disk. A missing file yields an empty snapshot
// and no error.
func (s *FileStore) Load() (*Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return emptySnapshot(), nil
		}
		return nil, fmt.Errorf("failed to read snapshot %s: %w", s.path, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot %s: %w", s.path, err)
	}
	if snap.Destinations == nil {
		snap.Destinations = make(map[string]DestinationState)
	}
	return &snap, nil
}

// Save writes the snapshot atomically: a temp file in the same directory is
// renamed over the target so a crash never leaves a half-written snapshot.
func (s *FileStore) Save(snap *Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".snapshot-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp snapshot: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

// FromRegistry builds a snapshot from the registry contents plus the given
// initialized pairs.
func FromRegistry(reg *registry.Registry, initialized []string) *Snapshot {
	snap := emptySnapshot()
	for _, dest := range reg.List() {
		snap.Destinations[dest.ID] = DestinationState{
			Name:     dest.Name,
			Keywords: append([]string(nil), dest.Keywords...),
			Enabled:  dest.Enabled,
		}
	}
	snap.Initialized = append([]string(nil), initialized...)
	sort.Strings(snap.Initialized)
	return snap
}

// ApplyToRegistry replaces the registry contents with the snapshot's
// destinations.
func (snap *Snapshot) ApplyToRegistry(reg *registry.Registry) {
	destinations := make([]registry.Destination, 0, len(snap.Destinations))
	for id, state := range snap.Destinations {
		destinations = append(destinations, registry.Destination{
			ID:       id,
			Name:     state.Name,
			Keywords: append([]string(nil), state.Keywords...),
			Enabled:  state.Enabled,
		})
	}
	reg.Replace(destinations)
}

func emptySnapshot() *Snapshot {
	return &Snapshot{Destinations: make(map[string]DestinationState)}
}
