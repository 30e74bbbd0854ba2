// Package storage persists randomization results: the assignment of each
// run as JSON next to its datapack, and a SQLite history of past runs.
package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/OCharnyshevich/loot-randomizer/pkg/randomizer"
)

// Storage handles file-based persistence of run results.
type Storage struct {
	dir string
	log *slog.Logger
}

// New creates a new Storage rooted at dir, creating it as needed.
func New(dir string, log *slog.Logger) (*Storage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create directory %s: %w", dir, err)
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Storage{dir: dir, log: log}, nil
}

// AssignmentPath is where the assignment of seed is stored.
func (s *Storage) AssignmentPath(seed int64) string {
	return filepath.Join(s.dir, fmt.Sprintf("assignment_%d.json", seed))
}

// SaveAssignment writes the result of a run to assignment_<seed>.json atomically.
func (s *Storage) SaveAssignment(af *AssignmentFile) (string, error) {
	path := s.AssignmentPath(af.Seed)
	if err := s.atomicWriteJSON(path, af); err != nil {
		return "", err
	}
	s.log.Info("saved assignment", "path", path, "pairs", af.Assignment.Len())
	return path, nil
}

// LoadAssignment reads an assignment file written by SaveAssignment.
func (s *Storage) LoadAssignment(seed int64) (*AssignmentFile, error) {
	return ReadAssignment(s.AssignmentPath(seed))
}

// ReadAssignment reads an assignment file from path.
func ReadAssignment(path string) (*AssignmentFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read assignment: %w", err)
	}
	af := &AssignmentFile{Assignment: &randomizer.Table{}}
	if err := json.Unmarshal(data, af); err != nil {
		return nil, fmt.Errorf("parse assignment %s: %w", path, err)
	}
	return af, nil
}

// atomicWriteJSON marshals v to JSON and writes it atomically using a temp file + rename.
func (s *Storage) atomicWriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	data = append(data, '\n')

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
