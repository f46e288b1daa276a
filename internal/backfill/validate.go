package backfill

import (
	"fmt"

	"nemscan/internal/store"
)

// validateRows checks a row set against the dataset's invariants: at
// least one row, unique non-degenerate keys, a plausible entity count,
// and whatever per-row semantics the spec carries. Every row is checked,
// not a sample.
func validateRows[T store.Row](rows []T, sp spec[T]) error {
	if len(rows) == 0 {
		return fmt.Errorf("no rows")
	}

	keys := make(map[string]bool, len(rows))
	entities := make(map[string]bool)
	for i, r := range rows {
		if r.Settlement().IsZero() {
			return fmt.Errorf("row %d: zero settlement time", i)
		}
		ent := sp.entity(r)
		if ent == "" {
			return fmt.Errorf("row %d: empty dimension", i)
		}
		entities[ent] = true

		k := r.Key()
		if keys[k] {
			return fmt.Errorf("row %d: duplicate key %q", i, k)
		}
		keys[k] = true

		if sp.check != nil {
			if err := sp.check(r); err != nil {
				return fmt.Errorf("row %d (%s): %w", i, k, err)
			}
		}
	}

	if sp.maxEntity > 0 && len(entities) > sp.maxEntity {
		return fmt.Errorf("%d distinct entities, expected at most %d", len(entities), sp.maxEntity)
	}
	return nil
}
