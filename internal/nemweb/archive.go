package nemweb

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"
)

// Entry is one CSV file recovered from a report archive.
type Entry struct {
	Name string
	Data []byte
}

// ExtractCSV unpacks a NEMWEB archive. Two shapes occur upstream:
// a plain ZIP of CSV files (current reports), and a daily/weekly ZIP of
// nested ZIPs each holding one interval's CSV. Nesting is descended
// exactly one level; entries that are neither ZIP nor CSV are ignored.
func ExtractCSV(data []byte) ([]Entry, error) {
	return extract(data, true)
}

func extract(data []byte, descend bool) ([]Entry, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}

	var out []Entry
	for _, f := range zr.File {
		lower := strings.ToLower(f.Name)
		switch {
		case strings.HasSuffix(lower, ".csv"):
			body, err := readZipFile(f)
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", f.Name, err)
			}
			out = append(out, Entry{Name: f.Name, Data: body})
		case strings.HasSuffix(lower, ".zip") && descend:
			body, err := readZipFile(f)
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", f.Name, err)
			}
			inner, err := extract(body, false)
			if err != nil {
				return nil, fmt.Errorf("nested %s: %w", f.Name, err)
			}
			out = append(out, inner...)
		}
	}
	return out, nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// FileTimestamp extracts the stamp a report filename carries as its
// first all-digit underscore field. The slot varies by report family:
// dispatch names put a 12-digit YYYYMMDDHHMM in field 3
// (PUBLIC_DISPATCHSCADA_202501011005_...), while rooftop, demand and
// next-day names push it further right and some carry 14-digit
// YYYYMMDDHHMMSS or 8-digit date-only stamps. Used for time-range
// selection before any decompression happens.
func FileTimestamp(name string) (time.Time, bool) {
	for _, p := range strings.Split(name, "_") {
		if i := strings.IndexByte(p, '.'); i >= 0 {
			p = p[:i]
		}
		if !allDigits(p) {
			continue
		}
		var ts time.Time
		var err error
		switch {
		case len(p) >= 12:
			ts, err = time.Parse("200601021504", p[:12])
		case len(p) == 8:
			ts, err = time.Parse("20060102", p)
		default:
			continue
		}
		if err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
