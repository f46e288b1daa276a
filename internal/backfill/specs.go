package backfill

import (
	"fmt"

	"nemscan/internal/datasets"
	"nemscan/internal/mms"
	"nemscan/internal/nemweb"
	"nemscan/internal/store"
)

// cadence is how the archive tree bundles a source: one zip per day,
// per Thursday-anchored week, or per calendar month.
type cadence int

const (
	daily cadence = iota
	weekly
	monthly
)

// spec binds one backfillable dataset to its source, bundle cadence,
// normalization and validation rules.
type spec[T store.Row] struct {
	dataset   string
	source    nemweb.Source
	cadence   cadence
	normalize func([]nemweb.Entry) []T
	entity    func(T) string // dimension value, for plausibility counts
	maxEntity int            // 0 = unbounded
	check     func(T) error  // per-row semantic check, nil = none
}

// tables extracts and concatenates one MMS table across a batch of
// extracted CSV files.
func tables[T any](entries []nemweb.Entry, table string, norm func(*mms.Table) []T) []T {
	var out []T
	for _, e := range entries {
		t, err := mms.Parse(e.Data, table)
		if err != nil {
			continue
		}
		out = append(out, norm(t)...)
	}
	return out
}

func pricesSpec() spec[datasets.PriceRow] {
	return spec[datasets.PriceRow]{
		dataset: store.Prices5,
		source:  nemweb.DispatchIS,
		cadence: daily,
		normalize: func(entries []nemweb.Entry) []datasets.PriceRow {
			return tables(entries, "DISPATCH.PRICE", datasets.Prices)
		},
		entity:    func(r datasets.PriceRow) string { return r.RegionID },
		maxEntity: len(datasets.MainRegions),
	}
}

func scadaSpec() spec[datasets.ScadaRow] {
	return spec[datasets.ScadaRow]{
		dataset: store.Scada5,
		source:  nemweb.DispatchSCADA,
		cadence: daily,
		normalize: func(entries []nemweb.Entry) []datasets.ScadaRow {
			return tables(entries, "DISPATCH.UNIT_SCADA", func(t *mms.Table) []datasets.ScadaRow {
				rows, _ := datasets.Scada(t)
				return rows
			})
		},
		entity: func(r datasets.ScadaRow) string { return r.DUID },
	}
}

func transmissionSpec() spec[datasets.TransRow] {
	return spec[datasets.TransRow]{
		dataset: store.Transmission5,
		source:  nemweb.DispatchIS,
		cadence: daily,
		normalize: func(entries []nemweb.Entry) []datasets.TransRow {
			return tables(entries, "DISPATCH.INTERCONNECTORRES", datasets.Transmission)
		},
		entity: func(r datasets.TransRow) string { return r.InterconnectorID },
	}
}

func rooftopSpec() spec[datasets.RooftopRow] {
	return spec[datasets.RooftopRow]{
		dataset: store.Rooftop30,
		source:  nemweb.RooftopPV,
		cadence: weekly,
		normalize: func(entries []nemweb.Entry) []datasets.RooftopRow {
			return tables(entries, "ROOFTOP.ACTUAL", datasets.Rooftop)
		},
		entity:    func(r datasets.RooftopRow) string { return r.RegionID },
		maxEntity: len(datasets.MainRegions),
		check: func(r datasets.RooftopRow) error {
			if r.Power < 0 {
				return fmt.Errorf("negative rooftop power %.3f", r.Power)
			}
			return nil
		},
	}
}

func curtailmentSpec() spec[datasets.CurtailRow] {
	return spec[datasets.CurtailRow]{
		dataset: store.Curtailment5,
		source:  nemweb.NextDayDispatch,
		cadence: monthly,
		normalize: func(entries []nemweb.Entry) []datasets.CurtailRow {
			return tables(entries, "DISPATCH.UNIT_SOLUTION", datasets.Curtailment)
		},
		entity: func(r datasets.CurtailRow) string { return r.DUID },
		check: func(r datasets.CurtailRow) error {
			if r.Curtailment < 0 {
				return fmt.Errorf("negative curtailment %.3f", r.Curtailment)
			}
			if r.SemiDispatchCap == 0 && r.Curtailment != 0 {
				return fmt.Errorf("curtailment %.3f with cap unset", r.Curtailment)
			}
			return nil
		},
	}
}

func demandSpec() spec[datasets.DemandRow] {
	return spec[datasets.DemandRow]{
		dataset: store.Demand30,
		source:  nemweb.OperationalDemand,
		cadence: daily,
		normalize: func(entries []nemweb.Entry) []datasets.DemandRow {
			return tables(entries, "OPERATIONAL_DEMAND.ACTUAL", datasets.Demand)
		},
		entity:    func(r datasets.DemandRow) string { return r.RegionID },
		maxEntity: len(datasets.MainRegions),
		check: func(r datasets.DemandRow) error {
			if r.SettlementDate.Minute()%30 != 0 {
				return fmt.Errorf("off-grid settlement %s", r.SettlementDate)
			}
			return nil
		},
	}
}
