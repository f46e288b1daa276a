// Package mms parses AEMO's row-typed MMS CSV format. Each line opens
// with a marker: C (comment/metadata), I (column header for a table
// block), or D (data row for a table block). A single file usually
// carries several tables; callers ask for one by name.
package mms

import (
	"bytes"
	"encoding/csv"
	"io"
	"log"
	"strings"
)

// Table is the raw parse result for one MMS table: named columns and
// string cell values. Type coercion is the normalizers' job.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]string

	colIndex map[string]int
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.Rows) }

// Empty reports whether the table has no data rows.
func (t *Table) Empty() bool { return len(t.Rows) == 0 }

// Col returns the positional index of a column name (case-insensitive),
// or -1 when the column is absent.
func (t *Table) Col(name string) int {
	if t.colIndex == nil {
		t.colIndex = make(map[string]int, len(t.Columns))
		for i, c := range t.Columns {
			t.colIndex[strings.ToUpper(c)] = i
		}
	}
	if i, ok := t.colIndex[strings.ToUpper(name)]; ok {
		return i
	}
	return -1
}

// Get returns the cell at (row, col index), or "" when the row is short.
func (t *Table) Get(row, col int) string {
	if col < 0 || col >= len(t.Rows[row]) {
		return ""
	}
	return t.Rows[row][col]
}

// Field offsets within an I/D record. Values start at offset 4:
// marker, system, table, version, v1, v2, ...
const (
	fieldMarker  = 0
	fieldSystem  = 1
	fieldTable   = 2
	valuesOffset = 4
)

// Parse scans the file linearly for the requested table. The target may
// be a bare table name ("PRICE", matched against field 2) or a qualified
// "SYSTEM.TABLE" ("DISPATCH.UNIT_SOLUTION", matched against fields 1+2).
// The first matching I row defines the schema; matching D rows become
// data. Legacy archives omit the I row entirely, so D rows are kept even
// without a schema (Columns stays nil) and callers fall back to
// positional access. A missing table yields an empty Table, not an error.
func Parse(data []byte, table string) (*Table, error) {
	target := strings.ToUpper(strings.TrimSpace(table))
	out := &Table{Name: target}

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Malformed line: drop it and keep scanning.
			log.Printf("[mms] dropping malformed line: %v", err)
			continue
		}
		if len(rec) <= valuesOffset {
			continue
		}

		switch rec[fieldMarker] {
		case "I":
			if out.Columns != nil || !matches(rec, target) {
				continue
			}
			cols := make([]string, 0, len(rec)-valuesOffset)
			for _, c := range rec[valuesOffset:] {
				cols = append(cols, strings.ToUpper(strings.TrimSpace(c)))
			}
			out.Columns = cols
		case "D":
			if !matches(rec, target) {
				continue
			}
			row := make([]string, len(rec)-valuesOffset)
			copy(row, rec[valuesOffset:])
			out.Rows = append(out.Rows, row)
		default:
			// C rows and anything else are skipped.
		}
	}

	return out, nil
}

func matches(rec []string, target string) bool {
	tbl := strings.ToUpper(strings.TrimSpace(rec[fieldTable]))
	if i := strings.IndexByte(target, '.'); i >= 0 {
		sys := strings.ToUpper(strings.TrimSpace(rec[fieldSystem]))
		return sys == target[:i] && tbl == target[i+1:]
	}
	return tbl == target
}
