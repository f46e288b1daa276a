// Package derive builds the two derived series: 30-minute SCADA means
// from the 5-minute feed, and 5-minute rooftop solar interpolated from
// the 30-minute feed.
package derive

import (
	"fmt"
	"log"
	"sort"
	"time"

	"nemscan/internal/datasets"
	"nemscan/internal/store"
)

// ScadaThirtyMin averages 5-minute SCADA rows into 30-minute endpoint
// rows. Candidate endpoints are settlements past the watermark whose
// minute is 0 or 30; for each endpoint and DUID the mean is taken over
// whichever of the up-to-six samples exist in the (t-30min, t] window
// (end-of-interval convention). Negatives pass through untouched.
func ScadaThirtyMin(rows []datasets.ScadaRow, watermark time.Time) []datasets.ScadaRow {
	byDUID := make(map[string][]datasets.ScadaRow)
	endpoints := make(map[time.Time]bool)
	for _, r := range rows {
		byDUID[r.DUID] = append(byDUID[r.DUID], r)
		m := r.SettlementDate.Minute()
		if (m == 0 || m == 30) && r.SettlementDate.Second() == 0 && r.SettlementDate.After(watermark) {
			endpoints[r.SettlementDate] = true
		}
	}
	if len(endpoints) == 0 {
		return nil
	}

	var out []datasets.ScadaRow
	for t := range endpoints {
		windowStart := t.Add(-30 * time.Minute)
		for duid, samples := range byDUID {
			var sum float64
			var count int
			for _, s := range samples {
				if s.SettlementDate.After(windowStart) && !s.SettlementDate.After(t) {
					sum += s.ScadaValue
					count++
				}
			}
			if count == 0 {
				continue
			}
			out = append(out, datasets.ScadaRow{
				SettlementDate: t,
				DUID:           duid,
				ScadaValue:     sum / float64(count),
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// RunScadaThirtyMin reads the scada5 feed, aggregates every endpoint past
// the scada30 watermark, and merges the result. Must run after the same
// cycle's scada5 merge so it observes this cycle's samples.
func RunScadaThirtyMin(dataDir string) (store.Result, error) {
	path30 := store.Path(dataDir, store.Scada30)
	watermark, err := store.Watermark[datasets.ScadaRow](path30)
	if err != nil {
		return store.Result{}, fmt.Errorf("scada30 watermark: %w", err)
	}

	rows5, err := store.Load[datasets.ScadaRow](store.Path(dataDir, store.Scada5))
	if err != nil {
		return store.Result{}, fmt.Errorf("load scada5: %w", err)
	}

	agg := ScadaThirtyMin(rows5, watermark)
	if len(agg) == 0 {
		return store.Result{}, nil
	}
	log.Printf("[scada30] %d aggregated rows past %s", len(agg), watermark.Format("2006-01-02 15:04"))
	return store.Merge(path30, agg, store.Options{})
}
