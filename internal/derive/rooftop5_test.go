package derive

import (
	"testing"
	"time"

	"nemscan/internal/datasets"
	"nemscan/internal/store"
)

func rooftop(stamp time.Time, region string, power float64) datasets.RooftopRow {
	return datasets.RooftopRow{SettlementDate: stamp, RegionID: region, Power: power, QualityIndicator: "MEASUREMENT"}
}

func TestRooftopFiveMinInterpolation(t *testing.T) {
	t0 := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	rows := []datasets.RooftopRow{
		rooftop(t0, "NSW1", 600),
		rooftop(t0.Add(30*time.Minute), "NSW1", 720),
	}

	out := RooftopFiveMin(rows)
	if len(out) != 12 {
		t.Fatalf("expected 12 five-minute rows, got %d", len(out))
	}

	want := []float64{600, 620, 640, 660, 680, 700}
	for j, w := range want {
		r := out[j]
		if !r.SettlementDate.Equal(t0.Add(time.Duration(j*5) * time.Minute)) {
			t.Errorf("sample %d at %v, want %v", j, r.SettlementDate, t0.Add(time.Duration(j*5)*time.Minute))
		}
		if r.Power != w {
			t.Errorf("sample %d = %v, want %v", j, r.Power, w)
		}
	}

	// The trailing anchor has no successor: nowcast replication.
	for j := 6; j < 12; j++ {
		if out[j].Power != 720 {
			t.Errorf("nowcast sample %d = %v, want 720", j, out[j].Power)
		}
	}
}

func TestRooftopFiveMinGapBreaksInterpolation(t *testing.T) {
	t0 := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	rows := []datasets.RooftopRow{
		rooftop(t0, "SA1", 100),
		// Next anchor is 60 minutes away, not 30: not a successor.
		rooftop(t0.Add(60*time.Minute), "SA1", 200),
	}

	out := RooftopFiveMin(rows)
	if len(out) != 12 {
		t.Fatalf("expected 12 rows, got %d", len(out))
	}
	for j := 0; j < 6; j++ {
		if out[j].Power != 100 {
			t.Errorf("gap block sample %d = %v, want replicated 100", j, out[j].Power)
		}
	}
}

func TestRooftopFiveMinPerRegion(t *testing.T) {
	t0 := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	rows := []datasets.RooftopRow{
		rooftop(t0, "NSW1", 600),
		rooftop(t0, "VIC1", 300),
	}

	out := RooftopFiveMin(rows)
	if len(out) != 12 {
		t.Fatalf("expected 12 rows across two regions, got %d", len(out))
	}
	byRegion := make(map[string]int)
	for _, r := range out {
		byRegion[r.RegionID]++
	}
	if byRegion["NSW1"] != 6 || byRegion["VIC1"] != 6 {
		t.Errorf("per-region fan-out wrong: %v", byRegion)
	}
}

func TestRunRooftopFiveMinCorrectsNowcast(t *testing.T) {
	dir := t.TempDir()
	t0 := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)

	// First cycle: a single anchor, so rooftop5 holds six nowcast rows.
	if err := store.Write(store.Path(dir, store.Rooftop30), []datasets.RooftopRow{
		rooftop(t0, "NSW1", 600),
	}); err != nil {
		t.Fatalf("seed rooftop30: %v", err)
	}
	if _, err := RunRooftopFiveMin(dir); err != nil {
		t.Fatalf("first run: %v", err)
	}

	// Second cycle: the successor arrives and the nowcast block is
	// recomputed as a real interpolation.
	if err := store.Write(store.Path(dir, store.Rooftop30), []datasets.RooftopRow{
		rooftop(t0, "NSW1", 600),
		rooftop(t0.Add(30*time.Minute), "NSW1", 720),
	}); err != nil {
		t.Fatalf("reseed rooftop30: %v", err)
	}
	if _, err := RunRooftopFiveMin(dir); err != nil {
		t.Fatalf("second run: %v", err)
	}

	got, err := store.Load[datasets.RooftopRow](store.Path(dir, store.Rooftop5))
	if err != nil {
		t.Fatalf("load rooftop5: %v", err)
	}
	if len(got) != 12 {
		t.Fatalf("expected 12 rows, got %d", len(got))
	}
	if got[1].Power != 620 {
		t.Errorf("10:05 = %v, want corrected 620 (was nowcast 600)", got[1].Power)
	}
}
