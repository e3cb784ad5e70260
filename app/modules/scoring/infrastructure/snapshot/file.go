// Package scoringsnapshot persists a frozen leaderboard as a JSON file.
package scoringsnapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	scoringdomain "github.com/spylab/llm-ctf/app/modules/scoring/domain"
)

// FileStore reads and writes the snapshot at a fixed path.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string { return s.path }

// Load reads the snapshot.
func (s *FileStore) Load(_ context.Context) ([]scoringdomain.SubmissionScore, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read final scores: %w", err)
	}
	var scores []scoringdomain.SubmissionScore
	if err := json.Unmarshal(raw, &scores); err != nil {
		return nil, fmt.Errorf("failed to decode final scores %s: %w", s.path, err)
	}
	return scores, nil
}

// Save replaces the snapshot atomically.
func (s *FileStore) Save(_ context.Context, scores []scoringdomain.SubmissionScore) error {
	if scores == nil {
		scores = []scoringdomain.SubmissionScore{}
	}
	raw, err := json.MarshalIndent(scores, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode final scores: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".final_scores-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write final scores: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write final scores: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to move final scores into place: %w", err)
	}
	return nil
}
