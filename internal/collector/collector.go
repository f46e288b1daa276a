// Package collector drives the polling cycle: each collector watches
// one NEMWEB report family, downloads whatever it has not seen in this
// process lifetime, and merges the normalized slices into the canonical
// store.
package collector

import (
	"context"
	"errors"
	"log"
	"sort"
	"time"

	"nemscan/internal/alerting"
	"nemscan/internal/config"
	"nemscan/internal/duids"
	"nemscan/internal/eventbus"
	"nemscan/internal/nemweb"
	"nemscan/internal/store"
)

// Env is the shared wiring handed to every collector.
type Env struct {
	Client   *nemweb.Client
	Cfg      *config.Config
	Registry *duids.Registry
	Alerts   *alerting.Dispatcher
	Bus      *eventbus.Bus
}

// DatasetResult is one dataset's outcome within a cycle.
type DatasetResult struct {
	Dataset  string `json:"dataset"`
	OK       bool   `json:"ok"`
	RowDelta int    `json:"row_delta"`
	Rows     int    `json:"rows,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Collector is one report-family pipeline. Collect never returns an
// error: failures are scoped to (dataset, file) pairs and reported in
// the results so no single source can abort the cycle.
type Collector interface {
	Name() string
	Collect(ctx context.Context) []DatasetResult
}

// feed tracks one upstream directory: which filenames this process has
// already consumed, and how many new ones to take per cycle.
type feed struct {
	client   *nemweb.Client
	src      nemweb.Source
	maxFiles int
	seen     map[string]bool
}

func newFeed(client *nemweb.Client, src nemweb.Source, maxFiles int) *feed {
	return &feed{client: client, src: src, maxFiles: maxFiles, seen: make(map[string]bool)}
}

// poll lists the current directory, diffs against the seen set, and
// returns the sorted tail of new filenames. Filenames ahead of the tail
// are marked seen without download (startup catch-up stays bounded; the
// on-disk key dedup covers any replay).
func (f *feed) poll(ctx context.Context) ([]string, error) {
	names, err := f.client.List(ctx, f.src.CurrentURL(f.client.BaseURL()))
	if err != nil {
		return nil, err
	}

	var fresh []string
	for _, n := range names {
		if !matchesSource(n, f.src) || f.seen[n] {
			continue
		}
		fresh = append(fresh, n)
	}
	sort.Strings(fresh)

	if len(fresh) > f.maxFiles {
		for _, n := range fresh[:len(fresh)-f.maxFiles] {
			f.seen[n] = true
		}
		fresh = fresh[len(fresh)-f.maxFiles:]
	}
	return fresh, nil
}

// download fetches and extracts one archive, updating the seen set.
// Transient unavailability leaves the file unseen for the next cycle.
func (f *feed) download(ctx context.Context, name string) ([]nemweb.Entry, error) {
	data, err := f.client.Get(ctx, f.src.CurrentURL(f.client.BaseURL())+name)
	if err != nil {
		if !errors.Is(err, nemweb.ErrUnavailable) {
			f.seen[name] = true
		}
		return nil, err
	}
	f.seen[name] = true

	entries, err := nemweb.ExtractCSV(data)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func matchesSource(name string, src nemweb.Source) bool {
	return len(name) > len(src.Prefix) && name[:len(src.Prefix)] == src.Prefix
}

// mergeInto folds a store merge outcome into a DatasetResult, applying
// the dataset's retention policy.
func mergeInto[T store.Row](env *Env, dataset string, rows []T) DatasetResult {
	res := DatasetResult{Dataset: dataset}
	if len(rows) == 0 {
		res.OK = true
		return res
	}

	opts := store.Options{RetainAfter: env.Cfg.RetentionCutoff(dataset, time.Now())}
	out, err := store.Merge(store.Path(env.Cfg.DataPath, dataset), rows, opts)
	if err != nil {
		log.Printf("[%s] merge failed: %v", dataset, err)
		res.Error = err.Error()
		return res
	}
	res.OK = true
	res.RowDelta = out.Added
	res.Rows = out.Rows
	return res
}
