package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"nemscan/internal/datasets"
)

func price(t *testing.T, stamp, region string, rrp float64) datasets.PriceRow {
	t.Helper()
	ts, err := time.Parse("2006-01-02 15:04:05", stamp)
	require.NoError(t, err)
	return datasets.PriceRow{SettlementDate: ts, RegionID: region, RRP: rrp}
}

func TestMergeIntoMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices5.parquet")
	slice := []datasets.PriceRow{
		price(t, "2025-01-01 00:10:00", "NSW1", 20),
		price(t, "2025-01-01 00:05:00", "NSW1", 10),
	}

	res, err := Merge(path, slice, Options{})
	require.NoError(t, err)
	require.Equal(t, 2, res.Rows)
	require.Equal(t, 2, res.Added)

	got, err := Load[datasets.PriceRow](path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, float64(10), got[0].RRP, "rows must come back sorted by key")
}

func TestMergeEmptySliceIsNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices5.parquet")

	res, err := Merge(path, []datasets.PriceRow{}, Options{})
	require.NoError(t, err)
	require.Equal(t, Result{}, res)

	got, err := Load[datasets.PriceRow](path)
	require.NoError(t, err)
	require.Nil(t, got, "no file should be created for an empty slice")
}

func TestMergeReplaceRange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices5.parquet")

	_, err := Merge(path, []datasets.PriceRow{
		price(t, "2025-01-01 00:05:00", "NSW1", 10),
		price(t, "2025-01-01 00:05:00", "QLD1", 20),
		price(t, "2025-01-01 00:10:00", "NSW1", 30),
	}, Options{})
	require.NoError(t, err)

	// New slice spans only 00:05. NSW1@00:05 conflicts and is replaced;
	// QLD1@00:05 overlaps the range but has no replacement, so it
	// survives; 00:10 is outside the range and untouched.
	res, err := Merge(path, []datasets.PriceRow{
		price(t, "2025-01-01 00:05:00", "NSW1", 11),
	}, Options{})
	require.NoError(t, err)
	require.Equal(t, 3, res.Rows)
	require.Equal(t, 0, res.Added)

	got, err := Load[datasets.PriceRow](path)
	require.NoError(t, err)
	require.Len(t, got, 3)

	byKey := make(map[string]float64)
	for _, r := range got {
		byKey[r.Key()] = r.RRP
	}
	require.Equal(t, float64(11), byKey["2025-01-01 00:05:00|NSW1"])
	require.Equal(t, float64(20), byKey["2025-01-01 00:05:00|QLD1"])
	require.Equal(t, float64(30), byKey["2025-01-01 00:10:00|NSW1"])
}

func TestMergeIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices5.parquet")
	slice := []datasets.PriceRow{
		price(t, "2025-01-01 00:05:00", "NSW1", 10),
		price(t, "2025-01-01 00:10:00", "NSW1", 20),
	}

	_, err := Merge(path, slice, Options{})
	require.NoError(t, err)
	res, err := Merge(path, slice, Options{})
	require.NoError(t, err)
	require.Equal(t, 2, res.Rows)
	require.Equal(t, 0, res.Added, "replaying the same slice must not grow the file")
}

func TestMergeDedupWithinSlice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices5.parquet")

	res, err := Merge(path, []datasets.PriceRow{
		price(t, "2025-01-01 00:05:00", "NSW1", 10),
		price(t, "2025-01-01 00:05:00", "NSW1", 99),
	}, Options{})
	require.NoError(t, err)
	require.Equal(t, 1, res.Rows)

	got, err := Load[datasets.PriceRow](path)
	require.NoError(t, err)
	require.Equal(t, float64(99), got[0].RRP, "later duplicate wins")
}

func TestMergeRetention(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices5.parquet")

	_, err := Merge(path, []datasets.PriceRow{
		price(t, "2025-01-01 00:05:00", "NSW1", 10),
	}, Options{})
	require.NoError(t, err)

	cutoff, _ := time.Parse("2006-01-02 15:04:05", "2025-02-01 00:00:00")
	res, err := Merge(path, []datasets.PriceRow{
		price(t, "2025-03-01 00:05:00", "NSW1", 20),
	}, Options{RetainAfter: cutoff})
	require.NoError(t, err)
	require.Equal(t, 1, res.Rows, "rows before the cutoff are pruned at save")

	got, err := Load[datasets.PriceRow](path)
	require.NoError(t, err)
	require.Equal(t, float64(20), got[0].RRP)
}

func TestWriteReplacesWhole(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scada30.parquet")

	require.NoError(t, Write(path, []datasets.PriceRow{
		price(t, "2025-01-01 00:30:00", "NSW1", 1),
		price(t, "2025-01-01 00:30:00", "QLD1", 2),
	}))
	require.NoError(t, Write(path, []datasets.PriceRow{
		price(t, "2025-01-01 01:00:00", "NSW1", 3),
	}))

	got, err := Load[datasets.PriceRow](path)
	require.NoError(t, err)
	require.Len(t, got, 1, "Write replaces, never merges")
}

func TestMergeFailureLeavesNoTemp(t *testing.T) {
	// A directory squatting on the dataset path makes the final rename
	// fail; the temporary sibling must not be left behind.
	path := filepath.Join(t.TempDir(), "prices5.parquet")
	require.NoError(t, os.Mkdir(path, 0o755))

	_, err := Merge(path, []datasets.PriceRow{
		price(t, "2025-01-01 00:05:00", "NSW1", 10),
	}, Options{})
	require.ErrorIs(t, err, ErrMergeFailed)

	_, statErr := os.Stat(path + ".tmp")
	require.True(t, os.IsNotExist(statErr), "rename failure must remove the temp file")
}

func TestWatermark(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices5.parquet")

	w, err := Watermark[datasets.PriceRow](path)
	require.NoError(t, err)
	require.True(t, w.IsZero(), "missing file has a zero watermark")

	_, err = Merge(path, []datasets.PriceRow{
		price(t, "2025-01-01 00:10:00", "NSW1", 1),
		price(t, "2025-01-01 00:05:00", "NSW1", 2),
	}, Options{})
	require.NoError(t, err)

	w, err = Watermark[datasets.PriceRow](path)
	require.NoError(t, err)
	require.Equal(t, "2025-01-01 00:10:00", w.Format("2006-01-02 15:04:05"))
}

func TestPathLayout(t *testing.T) {
	require.Equal(t, filepath.Join("/data", "scada5.parquet"), Path("/data", Scada5))
}
