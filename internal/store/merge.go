// Package store is the canonical columnar store: one parquet file per
// dataset, rewritten whole on each merge and published by atomic rename.
package store

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
)

// ErrMergeFailed wraps write/rename failures. The target file is always
// left in its prior valid state when this is returned.
var ErrMergeFailed = errors.New("store: merge failed")

// Row is the contract every canonical dataset row satisfies. Key() is
// the primary key rendered so lexicographic order equals (settlement,
// dimension) order; Settlement() is the time component used for range
// partitioning and retention.
type Row interface {
	Key() string
	Settlement() time.Time
}

// Options tunes a single merge.
type Options struct {
	// RetainAfter, when non-zero, prunes rows whose settlement is
	// strictly before the cutoff (retention_days enforcement at save).
	RetainAfter time.Time
}

// Result summarizes a merge for the cycle report.
type Result struct {
	Rows  int // total rows in the post-merge file
	Added int // net row delta against the pre-merge file
}

// Load reads a whole dataset file. A missing file yields (nil, nil).
func Load[T Row](path string) ([]T, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Merge folds a normalized slice into the dataset at path, honouring the
// replace-range contract:
//
//   - keys inside the slice's [t_min, t_max] settlement range are owned
//     by the slice; pre-existing rows there survive only when the slice
//     has no row for their key,
//   - rows outside the range are untouched,
//   - the result is sorted by key and free of duplicates.
func Merge[T Row](path string, slice []T, opts Options) (Result, error) {
	if len(slice) == 0 {
		return Result{}, nil
	}

	existing, err := Load[T](path)
	if err != nil {
		// Unreadable file: treat as missing and rewrite from the slice.
		existing = nil
	}
	before := len(existing)

	tMin, tMax := sliceRange(slice)

	sliceKeys := make(map[string]bool, len(slice))
	for _, r := range slice {
		sliceKeys[r.Key()] = true
	}

	merged := make([]T, 0, len(existing)+len(slice))
	for _, r := range existing {
		ts := r.Settlement()
		inRange := !ts.Before(tMin) && !ts.After(tMax)
		if inRange && sliceKeys[r.Key()] {
			continue // conflicting overlap: the new slice wins
		}
		merged = append(merged, r)
	}
	merged = append(merged, slice...)

	// Dedup on primary key, keeping the later (new-slice) copy.
	byKey := make(map[string]int, len(merged))
	deduped := merged[:0:0]
	for _, r := range merged {
		k := r.Key()
		if i, ok := byKey[k]; ok {
			deduped[i] = r
			continue
		}
		byKey[k] = len(deduped)
		deduped = append(deduped, r)
	}

	if !opts.RetainAfter.IsZero() {
		kept := deduped[:0]
		for _, r := range deduped {
			if !r.Settlement().Before(opts.RetainAfter) {
				kept = append(kept, r)
			}
		}
		deduped = kept
	}

	sort.Slice(deduped, func(i, j int) bool { return deduped[i].Key() < deduped[j].Key() })

	if err := writeAtomic(path, deduped); err != nil {
		return Result{}, fmt.Errorf("%w: %s: %v", ErrMergeFailed, path, err)
	}
	return Result{Rows: len(deduped), Added: len(deduped) - before}, nil
}

// Write replaces the dataset file with exactly the given rows, sorted.
// Unlike Merge it does not enforce the replace-range contract. Used by
// backfill staging and the reaggregation tool.
func Write[T Row](path string, rows []T) error {
	sort.Slice(rows, func(i, j int) bool { return rows[i].Key() < rows[j].Key() })
	if err := writeAtomic(path, rows); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMergeFailed, path, err)
	}
	return nil
}

func sliceRange[T Row](slice []T) (time.Time, time.Time) {
	tMin, tMax := slice[0].Settlement(), slice[0].Settlement()
	for _, r := range slice[1:] {
		ts := r.Settlement()
		if ts.Before(tMin) {
			tMin = ts
		}
		if ts.After(tMax) {
			tMax = ts
		}
	}
	return tMin, tMax
}

// writeAtomic writes rows to a temporary sibling then renames over the
// target. Rename within one directory is atomic on POSIX filesystems, so
// concurrent readers observe either the old or the new file, never a
// partial write.
func writeAtomic[T Row](path string, rows []T) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	w := parquet.NewGenericWriter[T](f, parquet.Compression(&zstd.Codec{Level: zstd.SpeedDefault}))
	if len(rows) > 0 {
		if _, err := w.Write(rows); err != nil {
			f.Close()
			os.Remove(tmp)
			return err
		}
	}
	if err := w.Close(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// Watermark returns the latest settlement present in a dataset file, or
// the zero time when the file is missing or empty.
func Watermark[T Row](path string) (time.Time, error) {
	rows, err := Load[T](path)
	if err != nil {
		return time.Time{}, err
	}
	var w time.Time
	for _, r := range rows {
		if ts := r.Settlement(); ts.After(w) {
			w = ts
		}
	}
	return w, nil
}
