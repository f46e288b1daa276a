package backfill

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"nemscan/internal/store"
)

const (
	checkpointFile = "checkpoint.json"
	sidecarFile    = "checkpoint.parquet"
)

// checkpoint records bulk-download progress so an interrupted run can
// resume. The accumulated rows live in a sidecar parquet next to it.
type checkpoint struct {
	CurrentDate string         `json:"current_date"`
	Counts      map[string]int `json:"counts"`
}

func saveCheckpoint[T store.Row](dir string, day time.Time, rows []T) error {
	if err := store.Write(filepath.Join(dir, sidecarFile), rows); err != nil {
		return err
	}

	cp := checkpoint{
		CurrentDate: day.Format("2006-01-02"),
		Counts:      map[string]int{"rows": len(rows)},
	}
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return err
	}

	tmp := filepath.Join(dir, checkpointFile+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, filepath.Join(dir, checkpointFile))
}

// loadCheckpoint restores a prior run's progress. No checkpoint means a
// clean start: nil rows and a zero resume date.
func loadCheckpoint[T store.Row](dir string) ([]T, time.Time, error) {
	data, err := os.ReadFile(filepath.Join(dir, checkpointFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, time.Time{}, nil
		}
		return nil, time.Time{}, err
	}

	var cp checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, time.Time{}, err
	}
	day, err := time.Parse("2006-01-02", cp.CurrentDate)
	if err != nil {
		return nil, time.Time{}, err
	}

	rows, err := store.Load[T](filepath.Join(dir, sidecarFile))
	if err != nil {
		return nil, time.Time{}, err
	}
	return rows, day, nil
}
