package index

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// Checkpoint records how far an ingestion run got. It is written after
// every successfully upserted batch and deleted on clean completion, so
// an aborted run resumes at the batch after the recorded chunk.
type Checkpoint struct {
	LastProcessedChunkID string    `json:"last_processed_chunk_id"`
	Timestamp            time.Time `json:"timestamp"`
}

// loadCheckpoint reads the checkpoint at path. A missing file is not an
// error; it returns (nil, nil).
func loadCheckpoint(path string) (*Checkpoint, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

func saveCheckpoint(path string, cp Checkpoint) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// deleteCheckpoint removes the checkpoint file. Absence is not an error.
func deleteCheckpoint(path string) error {
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
