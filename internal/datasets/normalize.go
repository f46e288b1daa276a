package datasets

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"nemscan/internal/mms"
)

// Normalizers are pure: raw parser table in, canonical rows out. Rows
// with unparseable keys are dropped; each batch is deduplicated on its
// primary key with the last occurrence winning (matches merge semantics).

// Prices normalizes a PRICE table to (settlement, region, rrp) rows,
// restricted to the five main regions.
func Prices(t *mms.Table) []PriceRow {
	iDate, iRegion, iRRP := t.Col("SETTLEMENTDATE"), t.Col("REGIONID"), t.Col("RRP")
	if iDate < 0 || iRegion < 0 || iRRP < 0 {
		return nil
	}

	out := make([]PriceRow, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		ts, ok := ParseTime(t.Get(i, iDate))
		if !ok {
			continue
		}
		region := strings.TrimSpace(t.Get(i, iRegion))
		if !MainRegions[region] {
			continue
		}
		rrp, err := strconv.ParseFloat(strings.TrimSpace(t.Get(i, iRRP)), 64)
		if err != nil {
			continue
		}
		out = append(out, PriceRow{SettlementDate: ts, RegionID: region, RRP: rrp})
	}
	return dedup(out)
}

// Scada normalizes a UNIT_SCADA table. Negative values are retained
// (batteries charge). The returned set holds every DUID observed in the
// batch so the registry can diff against known units.
func Scada(t *mms.Table) ([]ScadaRow, map[string]bool) {
	iDate, iDUID, iVal := t.Col("SETTLEMENTDATE"), t.Col("DUID"), t.Col("SCADAVALUE")
	if iDate < 0 || iDUID < 0 || iVal < 0 {
		return nil, nil
	}

	out := make([]ScadaRow, 0, t.Len())
	seen := make(map[string]bool)
	for i := 0; i < t.Len(); i++ {
		ts, ok := ParseTime(t.Get(i, iDate))
		if !ok {
			continue
		}
		duid := strings.TrimSpace(t.Get(i, iDUID))
		if duid == "" {
			continue
		}
		val, err := strconv.ParseFloat(strings.TrimSpace(t.Get(i, iVal)), 64)
		if err != nil {
			continue
		}
		seen[duid] = true
		out = append(out, ScadaRow{SettlementDate: ts, DUID: duid, ScadaValue: val})
	}
	return dedup(out), seen
}

// Transmission normalizes an INTERCONNECTORRES table. All seven canonical
// columns appear in every row; absent source fields become nulls.
func Transmission(t *mms.Table) []TransRow {
	iDate, iIC := t.Col("SETTLEMENTDATE"), t.Col("INTERCONNECTORID")
	if iDate < 0 || iIC < 0 {
		return nil
	}
	cols := []int{
		t.Col("METEREDMWFLOW"),
		t.Col("MWFLOW"),
		t.Col("MWLOSSES"),
		t.Col("EXPORTLIMIT"),
		t.Col("IMPORTLIMIT"),
	}

	out := make([]TransRow, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		ts, ok := ParseTime(t.Get(i, iDate))
		if !ok {
			continue
		}
		ic := strings.TrimSpace(t.Get(i, iIC))
		if ic == "" {
			continue
		}
		row := TransRow{SettlementDate: ts, InterconnectorID: ic}
		vals := []**float64{&row.MeteredMWFlow, &row.MWFlow, &row.MWLosses, &row.ExportLimit, &row.ImportLimit}
		for j, col := range cols {
			if col < 0 {
				continue
			}
			if v, err := strconv.ParseFloat(strings.TrimSpace(t.Get(i, col)), 64); err == nil {
				*vals[j] = &v
			}
		}
		out = append(out, row)
	}
	return dedup(out)
}

// Rooftop normalizes a ROOFTOP.ACTUAL table (30-minute source cadence).
// Missing or negative power readings are dropped.
func Rooftop(t *mms.Table) []RooftopRow {
	iDate, iRegion, iPower := t.Col("INTERVAL_DATETIME"), t.Col("REGIONID"), t.Col("POWER")
	if iDate < 0 || iRegion < 0 || iPower < 0 {
		return nil
	}
	iQI, iType := t.Col("QI"), t.Col("TYPE")
	if iQI < 0 {
		iQI = t.Col("QUALITY_INDICATOR")
	}

	out := make([]RooftopRow, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		ts, ok := ParseTime(t.Get(i, iDate))
		if !ok {
			continue
		}
		region := strings.TrimSpace(t.Get(i, iRegion))
		if !MainRegions[region] {
			continue
		}
		power, err := strconv.ParseFloat(strings.TrimSpace(t.Get(i, iPower)), 64)
		if err != nil || power < 0 {
			continue
		}
		row := RooftopRow{SettlementDate: ts, RegionID: region, Power: power}
		if iQI >= 0 {
			row.QualityIndicator = strings.TrimSpace(t.Get(i, iQI))
		}
		if iType >= 0 {
			row.Type = strings.TrimSpace(t.Get(i, iType))
		}
		out = append(out, row)
	}
	return dedup(out)
}

// Demand positional offsets for legacy archives whose I row is absent:
// after the 4-field MMS prelude the OPERATIONAL_DEMAND block carries
// REGIONID, INTERVAL_DATETIME, OPERATIONAL_DEMAND at offsets 0..2.
const (
	demandPosRegion = 0
	demandPosDate   = 1
	demandPosValue  = 2
)

// Demand normalizes an OPERATIONAL_DEMAND.ACTUAL table. Named lookup is
// preferred; the positional layout is the fallback for legacy archives.
// Rows off the 30-minute grid are rejected.
func Demand(t *mms.Table) []DemandRow {
	iRegion, iDate, iVal := t.Col("REGIONID"), t.Col("INTERVAL_DATETIME"), t.Col("OPERATIONAL_DEMAND")
	if iRegion < 0 || iDate < 0 || iVal < 0 {
		iRegion, iDate, iVal = demandPosRegion, demandPosDate, demandPosValue
	}

	out := make([]DemandRow, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		ts, ok := ParseTime(t.Get(i, iDate))
		if !ok || ts.Minute()%30 != 0 || ts.Second() != 0 {
			continue
		}
		region := strings.TrimSpace(t.Get(i, iRegion))
		if !MainRegions[region] {
			continue
		}
		demand, err := strconv.ParseFloat(strings.TrimSpace(t.Get(i, iVal)), 64)
		if err != nil {
			continue
		}
		out = append(out, DemandRow{SettlementDate: ts, RegionID: region, Demand: demand})
	}
	return dedup(out)
}

// renewableDUID matches the semi-scheduled wind/solar naming conventions.
var renewableDUID = regexp.MustCompile(`(?i)(WF|SF|SOLAR|WIND|PV)`)

// solarDUID identifies solar units for the night filter.
var solarDUID = regexp.MustCompile(`(?i)(SF|SOLAR)`)

// Curtailment normalizes a DISPATCH.UNIT_SOLUTION table to per-DUID
// curtailment for wind/solar units. The calculation only applies when
// the semi-dispatch cap is set; for solar units with availability at or
// below 1 MW (night) curtailment is forced to zero.
func Curtailment(t *mms.Table) []CurtailRow {
	iDate, iDUID := t.Col("SETTLEMENTDATE"), t.Col("DUID")
	iAvail, iCleared, iCap := t.Col("AVAILABILITY"), t.Col("TOTALCLEARED"), t.Col("SEMIDISPATCHCAP")
	if iDate < 0 || iDUID < 0 || iAvail < 0 || iCleared < 0 || iCap < 0 {
		return nil
	}

	out := make([]CurtailRow, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		duid := strings.TrimSpace(t.Get(i, iDUID))
		if !renewableDUID.MatchString(duid) {
			continue
		}
		ts, ok := ParseTime(t.Get(i, iDate))
		if !ok {
			continue
		}
		avail, err1 := strconv.ParseFloat(strings.TrimSpace(t.Get(i, iAvail)), 64)
		cleared, err2 := strconv.ParseFloat(strings.TrimSpace(t.Get(i, iCleared)), 64)
		if err1 != nil || err2 != nil {
			continue
		}
		cap64, _ := strconv.ParseFloat(strings.TrimSpace(t.Get(i, iCap)), 64)
		capFlag := int32(0)
		if cap64 != 0 {
			capFlag = 1
		}
		out = append(out, CurtailRow{
			SettlementDate:  ts,
			DUID:            duid,
			Availability:    avail,
			TotalCleared:    cleared,
			SemiDispatchCap: capFlag,
			Curtailment:     curtail(duid, avail, cleared, capFlag),
		})
	}
	return dedup(out)
}

func curtail(duid string, avail, cleared float64, capFlag int32) float64 {
	if capFlag == 0 {
		return 0
	}
	if solarDUID.MatchString(duid) && avail <= 1.0 {
		return 0 // night filter: tiny solar availability is noise
	}
	if c := avail - cleared; c > 0 {
		return c
	}
	return 0
}

// RegionalCurtailment derives per-region solar/wind curtailment from a
// REGIONSUM table. Missing UIGF/cleared fields default to zero.
func RegionalCurtailment(t *mms.Table) []RegionCurtailRow {
	iDate, iRegion := t.Col("SETTLEMENTDATE"), t.Col("REGIONID")
	if iDate < 0 || iRegion < 0 {
		return nil
	}
	iSolarUIGF := t.Col("SS_SOLAR_UIGF")
	iSolarClr := t.Col("SS_SOLAR_CLEAREDMW")
	iWindUIGF := t.Col("SS_WIND_UIGF")
	iWindClr := t.Col("SS_WIND_CLEAREDMW")

	out := make([]RegionCurtailRow, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		ts, ok := ParseTime(t.Get(i, iDate))
		if !ok {
			continue
		}
		region := strings.TrimSpace(t.Get(i, iRegion))
		if !MainRegions[region] {
			continue
		}
		solar := clampPos(floatOrZero(t, i, iSolarUIGF) - floatOrZero(t, i, iSolarClr))
		wind := clampPos(floatOrZero(t, i, iWindUIGF) - floatOrZero(t, i, iWindClr))
		out = append(out, RegionCurtailRow{
			SettlementDate:   ts,
			RegionID:         region,
			SolarCurtailment: solar,
			WindCurtailment:  wind,
			TotalCurtailment: solar + wind,
		})
	}
	return dedup(out)
}

func floatOrZero(t *mms.Table, row, col int) float64 {
	if col < 0 {
		return 0
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(t.Get(row, col)), 64)
	if err != nil {
		return 0
	}
	return v
}

func clampPos(v float64) float64 {
	if v > 0 {
		return v
	}
	return 0
}

// keyed is the subset of the row contract dedup needs.
type keyed interface {
	Key() string
	Settlement() time.Time
}

// dedup removes duplicate primary keys, keeping the last occurrence,
// and preserves first-seen order otherwise.
func dedup[T keyed](rows []T) []T {
	if len(rows) < 2 {
		return rows
	}
	idx := make(map[string]int, len(rows))
	out := rows[:0:0]
	for _, r := range rows {
		k := r.Key()
		if i, ok := idx[k]; ok {
			out[i] = r
			continue
		}
		idx[k] = len(out)
		out = append(out, r)
	}
	return out
}
