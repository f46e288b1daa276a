package derive

import (
	"math"
	"testing"
	"time"

	"nemscan/internal/datasets"
	"nemscan/internal/store"
)

func scada(t *testing.T, stamp, duid string, val float64) datasets.ScadaRow {
	t.Helper()
	ts, err := time.Parse("2006-01-02 15:04:05", stamp)
	if err != nil {
		t.Fatalf("bad stamp %s: %v", stamp, err)
	}
	return datasets.ScadaRow{SettlementDate: ts, DUID: duid, ScadaValue: val}
}

func TestScadaThirtyMinMean(t *testing.T) {
	// Six 5-minute samples ending 00:30, including negatives (battery
	// charging). Mean = -51.5/6.
	vals := []float64{-2, -4, -6, -8, -10, -21.5}
	var rows []datasets.ScadaRow
	for i, v := range vals {
		stamp := time.Date(2025, 1, 1, 0, 5*(i+1), 0, 0, time.UTC)
		rows = append(rows, datasets.ScadaRow{SettlementDate: stamp, DUID: "HPRG1", ScadaValue: v})
	}

	out := ScadaThirtyMin(rows, time.Time{})
	if len(out) != 1 {
		t.Fatalf("expected 1 endpoint row, got %d", len(out))
	}
	want := -51.5 / 6
	if math.Abs(out[0].ScadaValue-want) > 1e-9 {
		t.Errorf("mean = %v, want %v", out[0].ScadaValue, want)
	}
	if out[0].SettlementDate.Minute() != 30 {
		t.Errorf("endpoint settlement = %v, want minute 30", out[0].SettlementDate)
	}
}

func TestScadaThirtyMinMeanOfAvailable(t *testing.T) {
	// Only three of six samples exist; the mean uses what is there.
	rows := []datasets.ScadaRow{
		scada(t, "2025-01-01 00:20:00", "BW01", 300),
		scada(t, "2025-01-01 00:25:00", "BW01", 310),
		scada(t, "2025-01-01 00:30:00", "BW01", 320),
	}

	out := ScadaThirtyMin(rows, time.Time{})
	if len(out) != 1 {
		t.Fatalf("expected 1 row, got %d", len(out))
	}
	if out[0].ScadaValue != 310 {
		t.Errorf("mean = %v, want 310", out[0].ScadaValue)
	}
}

func TestScadaThirtyMinWatermark(t *testing.T) {
	watermark, _ := time.Parse("2006-01-02 15:04:05", "2025-01-01 00:30:00")
	rows := []datasets.ScadaRow{
		scada(t, "2025-01-01 00:30:00", "BW01", 100), // at watermark: already aggregated
		scada(t, "2025-01-01 00:35:00", "BW01", 110),
		scada(t, "2025-01-01 01:00:00", "BW01", 130),
	}

	out := ScadaThirtyMin(rows, watermark)
	if len(out) != 1 {
		t.Fatalf("expected 1 new endpoint, got %d", len(out))
	}
	if out[0].SettlementDate.Hour() != 1 || out[0].SettlementDate.Minute() != 0 {
		t.Errorf("endpoint = %v, want 01:00", out[0].SettlementDate)
	}
	if out[0].ScadaValue != 120 {
		t.Errorf("mean = %v, want 120 (samples at 00:35 and 01:00)", out[0].ScadaValue)
	}
}

func TestScadaThirtyMinNoEndpointWithoutBoundary(t *testing.T) {
	rows := []datasets.ScadaRow{
		scada(t, "2025-01-01 00:05:00", "BW01", 100),
		scada(t, "2025-01-01 00:10:00", "BW01", 110),
	}
	if out := ScadaThirtyMin(rows, time.Time{}); out != nil {
		t.Fatalf("no 30-minute boundary sample, expected nil, got %d rows", len(out))
	}
}

func TestRunScadaThirtyMin(t *testing.T) {
	dir := t.TempDir()

	var rows []datasets.ScadaRow
	for i := 1; i <= 6; i++ {
		stamp := time.Date(2025, 1, 1, 0, 5*i, 0, 0, time.UTC)
		rows = append(rows, datasets.ScadaRow{SettlementDate: stamp, DUID: "BW01", ScadaValue: float64(100 + i)})
	}
	if err := store.Write(store.Path(dir, store.Scada5), rows); err != nil {
		t.Fatalf("seed scada5: %v", err)
	}

	res, err := RunScadaThirtyMin(dir)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Rows != 1 {
		t.Fatalf("expected 1 aggregated row, got %d", res.Rows)
	}

	// A second run sees nothing past the watermark.
	res, err = RunScadaThirtyMin(dir)
	if err != nil {
		t.Fatalf("rerun: %v", err)
	}
	if res.Rows != 0 || res.Added != 0 {
		t.Errorf("rerun should be a no-op, got %+v", res)
	}
}
