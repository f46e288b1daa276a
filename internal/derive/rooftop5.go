package derive

import (
	"fmt"
	"log"
	"sort"
	"time"

	"nemscan/internal/datasets"
	"nemscan/internal/store"
)

// RooftopFiveMin linearly fans 30-minute rooftop samples into 5-minute
// ones. For consecutive anchors a at t and b at t+30min the six samples
// at t, t+5, ..., t+25 take the value ((6-j)*a + j*b)/6. The newest
// anchor has no successor yet, so its value is replicated for all six
// slots (nowcast) and corrected on a later cycle by the merge.
func RooftopFiveMin(rows30 []datasets.RooftopRow) []datasets.RooftopRow {
	byRegion := make(map[string][]datasets.RooftopRow)
	for _, r := range rows30 {
		byRegion[r.RegionID] = append(byRegion[r.RegionID], r)
	}

	var out []datasets.RooftopRow
	for region, anchors := range byRegion {
		sort.Slice(anchors, func(i, j int) bool {
			return anchors[i].SettlementDate.Before(anchors[j].SettlementDate)
		})
		for i, a := range anchors {
			var next *datasets.RooftopRow
			if i+1 < len(anchors) {
				n := anchors[i+1]
				if n.SettlementDate.Equal(a.SettlementDate.Add(30 * time.Minute)) {
					next = &n
				}
			}
			for j := 0; j < 6; j++ {
				v := a.Power
				if next != nil {
					v = (float64(6-j)*a.Power + float64(j)*next.Power) / 6
				}
				out = append(out, datasets.RooftopRow{
					SettlementDate:   a.SettlementDate.Add(time.Duration(j*5) * time.Minute),
					RegionID:         region,
					Power:            v,
					QualityIndicator: a.QualityIndicator,
					Type:             a.Type,
				})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// RunRooftopFiveMin interpolates the recent tail of rooftop30 and merges
// it into rooftop5. The tail reaches one anchor behind the rooftop5
// watermark so the previously nowcast block gets its real successor.
func RunRooftopFiveMin(dataDir string) (store.Result, error) {
	rows30, err := store.Load[datasets.RooftopRow](store.Path(dataDir, store.Rooftop30))
	if err != nil {
		return store.Result{}, fmt.Errorf("load rooftop30: %w", err)
	}
	if len(rows30) == 0 {
		return store.Result{}, nil
	}

	path5 := store.Path(dataDir, store.Rooftop5)
	watermark, err := store.Watermark[datasets.RooftopRow](path5)
	if err != nil {
		return store.Result{}, fmt.Errorf("rooftop5 watermark: %w", err)
	}

	var tail []datasets.RooftopRow
	if watermark.IsZero() {
		tail = rows30
	} else {
		cutoff := watermark.Add(-60 * time.Minute)
		for _, r := range rows30 {
			if r.SettlementDate.After(cutoff) {
				tail = append(tail, r)
			}
		}
	}

	interp := RooftopFiveMin(tail)
	if len(interp) == 0 {
		return store.Result{}, nil
	}
	log.Printf("[rooftop5] interpolating %d five-minute rows", len(interp))
	return store.Merge(path5, interp, store.Options{})
}
