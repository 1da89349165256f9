// Package runlog archives run outcomes as JSON files so operators can audit
// what each invocation did after the fact.
package runlog

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"netcompliance/internal/compliance"
)

const (
	// Directory permissions.
	archiveDirPerm = 0o750
	// File permissions.
	reportFilePerm = 0o600
)

// Store writes run outcomes under a single archive directory.
type Store struct {
	dir string
	now func() time.Time
}

// New creates the archive directory if needed and returns a store for it.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, archiveDirPerm); err != nil {
		return nil, fmt.Errorf("failed to create report directory: %w", err)
	}
	return &Store{dir: dir, now: time.Now}, nil
}

// entry is the persisted form of one run outcome.
type entry struct {
	RunID      string             `json:"run_id"`
	FinishedAt time.Time          `json:"finished_at"`
	Outcome    compliance.Outcome `json:"outcome"`
}

// Save persists one run outcome and returns the generated run id.
func (s *Store) Save(outcome compliance.Outcome) (string, error) {
	runID := uuid.NewString()
	finishedAt := s.now().UTC()

	record := entry{RunID: runID, FinishedAt: finishedAt, Outcome: outcome}
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal run outcome: %w", err)
	}

	name := fmt.Sprintf("run-%s-%s.json", finishedAt.Format("20060102T150405Z"), runID)
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, reportFilePerm); err != nil {
		return "", fmt.Errorf("failed to write run outcome: %w", err)
	}

	log.Printf("[DEBUG] Run %s archived to %s", runID, path)
	return runID, nil
}
