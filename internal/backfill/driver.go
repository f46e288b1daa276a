// Package backfill replays historical NEMWEB archives into the canonical
// store. The run is staged: probe one archive, bulk download with
// checkpoints, build a staging artifact, validate it completely, then
// back up production and merge. Any stage failure aborts with production
// untouched and the scratch directory preserved for inspection.
package backfill

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"nemscan/internal/nemweb"
	"nemscan/internal/store"
)

// ErrAborted wraps every stage failure so callers can exit non-zero.
var ErrAborted = errors.New("backfill: aborted")

// Config is one backfill invocation.
type Config struct {
	Dataset         string // prices|scada|transmission|rooftop|curtailment|demand|all
	Start, End      time.Time
	DataDir         string
	ScratchDir      string
	CheckpointEvery int  // days between checkpoints (default 10)
	TestOnly        bool // probe stage only, no download/merge
	Now             time.Time
}

// Driver executes backfill runs.
type Driver struct {
	client  *nemweb.Client
	cfg     Config
	listing map[string][]string // cached current-tree listings per source
}

func New(client *nemweb.Client, cfg Config) *Driver {
	if cfg.CheckpointEvery <= 0 {
		cfg.CheckpointEvery = 10
	}
	if cfg.Now.IsZero() {
		cfg.Now = time.Now()
	}
	if cfg.ScratchDir == "" {
		cfg.ScratchDir = filepath.Join(cfg.DataDir, "backfill_scratch")
	}
	return &Driver{client: client, cfg: cfg, listing: make(map[string][]string)}
}

// Run executes the staged backfill for the configured dataset(s).
func (d *Driver) Run(ctx context.Context) error {
	names := []string{d.cfg.Dataset}
	if d.cfg.Dataset == "all" {
		names = []string{"prices", "scada", "transmission", "rooftop", "curtailment", "demand"}
	}

	for _, name := range names {
		if err := d.runOne(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

func (d *Driver) runOne(ctx context.Context, name string) error {
	switch name {
	case "prices":
		return run(ctx, d, pricesSpec())
	case "scada":
		return run(ctx, d, scadaSpec())
	case "transmission":
		return run(ctx, d, transmissionSpec())
	case "rooftop":
		return run(ctx, d, rooftopSpec())
	case "curtailment":
		return run(ctx, d, curtailmentSpec())
	case "demand":
		return run(ctx, d, demandSpec())
	default:
		return fmt.Errorf("%w: unknown dataset %q", ErrAborted, name)
	}
}

// run is the five-stage pipeline for one dataset. Free function because
// Go methods cannot carry type parameters.
func run[T store.Row](ctx context.Context, d *Driver, sp spec[T]) error {
	tag := sp.dataset
	log.Printf("[backfill/%s] %s to %s", tag,
		d.cfg.Start.Format("2006-01-02"), d.cfg.End.Format("2006-01-02"))

	// Stage 1: probe one archive at the range start.
	probe, err := d.dayEntries(ctx, sp.source, sp.cadence, d.cfg.Start)
	if err != nil {
		return fmt.Errorf("%w: %s probe: %v", ErrAborted, tag, err)
	}
	probeRows := sp.normalize(probe)
	if err := validateRows(probeRows, sp); err != nil {
		return fmt.Errorf("%w: %s probe validation: %v", ErrAborted, tag, err)
	}
	log.Printf("[backfill/%s] probe ok: %d rows from %d file(s)", tag, len(probeRows), len(probe))
	if d.cfg.TestOnly {
		return nil
	}

	scratch := filepath.Join(d.cfg.ScratchDir, tag)
	if err := os.MkdirAll(scratch, 0o755); err != nil {
		return fmt.Errorf("%w: %s scratch: %v", ErrAborted, tag, err)
	}

	// Stage 2: bulk download, resuming from any prior checkpoint.
	rows, resumeFrom, err := loadCheckpoint[T](scratch)
	if err != nil {
		return fmt.Errorf("%w: %s checkpoint: %v", ErrAborted, tag, err)
	}
	start := d.cfg.Start
	if !resumeFrom.IsZero() {
		start = resumeFrom.AddDate(0, 0, 1)
		log.Printf("[backfill/%s] resuming after %s (%d rows staged)", tag, resumeFrom.Format("2006-01-02"), len(rows))
	}

	daysSinceCheckpoint := 0
	for day := start; !day.After(d.cfg.End); day = day.AddDate(0, 0, 1) {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %s: %v", ErrAborted, tag, ctx.Err())
		}
		entries, err := d.dayEntries(ctx, sp.source, sp.cadence, day)
		if err != nil {
			if errors.Is(err, nemweb.ErrNotFound) {
				log.Printf("[backfill/%s] %s unavailable upstream, skipping", tag, day.Format("2006-01-02"))
				continue
			}
			return fmt.Errorf("%w: %s %s: %v", ErrAborted, tag, day.Format("2006-01-02"), err)
		}
		rows = append(rows, sp.normalize(entries)...)

		daysSinceCheckpoint++
		if daysSinceCheckpoint >= d.cfg.CheckpointEvery {
			if err := saveCheckpoint(scratch, day, rows); err != nil {
				return fmt.Errorf("%w: %s checkpoint: %v", ErrAborted, tag, err)
			}
			daysSinceCheckpoint = 0
		}
	}

	// Stage 3: staging artifact. Dedup keep-last, sort, persist apart
	// from production.
	rows = dedupKeepLast(rows)
	stagingPath := filepath.Join(scratch, "staging.parquet")
	if err := store.Write(stagingPath, rows); err != nil {
		return fmt.Errorf("%w: %s staging write: %v", ErrAborted, tag, err)
	}

	// Stage 4: full validation of the staging artifact as written.
	staged, err := store.Load[T](stagingPath)
	if err != nil {
		return fmt.Errorf("%w: %s staging reload: %v", ErrAborted, tag, err)
	}
	if err := validateRows(staged, sp); err != nil {
		return fmt.Errorf("%w: %s staging validation: %v", ErrAborted, tag, err)
	}

	// Stage 5: back up production, merge, reload, re-validate.
	prodPath := store.Path(d.cfg.DataDir, sp.dataset)
	if err := backupFile(prodPath, filepath.Join(d.cfg.DataDir, "backups", d.cfg.Now.Format("20060102T150405"))); err != nil {
		return fmt.Errorf("%w: %s backup: %v", ErrAborted, tag, err)
	}
	if _, err := store.Merge(prodPath, staged, store.Options{}); err != nil {
		return fmt.Errorf("%w: %s merge: %v", ErrAborted, tag, err)
	}
	merged, err := store.Load[T](prodPath)
	if err != nil {
		return fmt.Errorf("%w: %s post-merge reload: %v", ErrAborted, tag, err)
	}
	if err := validateRows(merged, sp); err != nil {
		return fmt.Errorf("%w: %s post-merge validation: %v", ErrAborted, tag, err)
	}

	log.Printf("[backfill/%s] done: %d staged rows, %d in production", tag, len(staged), len(merged))
	os.RemoveAll(scratch)
	return nil
}

// dayEntries locates and extracts everything published for one day.
// Historical days (aged off the current tree) come from the archive tree
// as daily/weekly/monthly bundles; recent days are reassembled from the
// per-interval files still in the current tree.
func (d *Driver) dayEntries(ctx context.Context, src nemweb.Source, cad cadence, day time.Time) ([]nemweb.Entry, error) {
	if nemweb.IsHistorical(day, d.cfg.Now) {
		return d.archiveEntries(ctx, src, cad, day)
	}
	return d.currentEntries(ctx, src, day)
}

func (d *Driver) archiveEntries(ctx context.Context, src nemweb.Source, cad cadence, day time.Time) ([]nemweb.Entry, error) {
	anchor := day
	switch cad {
	case weekly:
		// Rooftop weekly archives are anchored to the enclosing Thursday.
		anchor = nemweb.EnclosingThursday(day)
	case monthly:
		anchor = time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
	}

	url := src.ArchiveURL(d.client.BaseURL()) + src.DailyArchiveName(anchor)
	data, err := d.client.GetLarge(ctx, url)
	if err != nil {
		return nil, err
	}
	entries, err := nemweb.ExtractCSV(data)
	if err != nil {
		return nil, err
	}
	return entriesForDay(entries, day, cad), nil
}

func (d *Driver) currentEntries(ctx context.Context, src nemweb.Source, day time.Time) ([]nemweb.Entry, error) {
	names, ok := d.listing[src.Name]
	if !ok {
		var err error
		names, err = d.client.List(ctx, src.CurrentURL(d.client.BaseURL()))
		if err != nil {
			return nil, err
		}
		sort.Strings(names)
		d.listing[src.Name] = names
	}

	next := day.AddDate(0, 0, 1)
	var out []nemweb.Entry
	for _, name := range names {
		ts, ok := nemweb.FileTimestamp(name)
		if !ok || ts.Before(day) || !ts.Before(next) {
			continue
		}
		data, err := d.client.Get(ctx, src.CurrentURL(d.client.BaseURL())+name)
		if err != nil {
			if errors.Is(err, nemweb.ErrNotFound) {
				continue
			}
			return nil, err
		}
		entries, err := nemweb.ExtractCSV(data)
		if err != nil {
			log.Printf("[backfill] bad archive %s: %v", name, err)
			continue
		}
		out = append(out, entries...)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no current-tree files for %s", nemweb.ErrNotFound, day.Format("2006-01-02"))
	}
	return out, nil
}

// entriesForDay filters multi-day bundle contents (weekly/monthly
// archives) down to one day using the filename timestamps; entries
// without a parseable stamp are kept and left to the normalizers.
func entriesForDay(entries []nemweb.Entry, day time.Time, cad cadence) []nemweb.Entry {
	if cad == daily {
		return entries
	}
	next := day.AddDate(0, 0, 1)
	var out []nemweb.Entry
	for _, e := range entries {
		ts, ok := nemweb.FileTimestamp(filepath.Base(e.Name))
		if ok && (ts.Before(day) || !ts.Before(next)) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// backupFile copies the production file into the timestamped backup dir.
// A missing production file (first-ever backfill) needs no backup.
func backupFile(path, backupDir string) error {
	src, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer src.Close()

	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		return err
	}
	dst, err := os.Create(filepath.Join(backupDir, filepath.Base(path)))
	if err != nil {
		return err
	}
	defer dst.Close()
	_, err = io.Copy(dst, src)
	return err
}

func dedupKeepLast[T store.Row](rows []T) []T {
	idx := make(map[string]int, len(rows))
	out := rows[:0:0]
	for _, r := range rows {
		k := r.Key()
		if i, ok := idx[k]; ok {
			out[i] = r
			continue
		}
		idx[k] = len(out)
		out = append(out, r)
	}
	return out
}
