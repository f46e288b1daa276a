// Package datasets defines the canonical row types and the pure
// normalizers that project raw MMS tables onto them. Column names in the
// canonical store are lowercase snake_case regardless of source casing.
package datasets

import (
	"strings"
	"time"
)

// MMSTime is the timestamp layout used throughout the MMS CSV format.
// All upstream timestamps are naive AEMO market time; we parse them
// zone-less and never convert to UTC.
const MMSTime = "2006/01/02 15:04:05"

// keyTime is the fixed-width settlement rendering used inside primary
// keys, chosen so lexicographic key order is chronological.
const keyTime = "2006-01-02 15:04:05"

// MainRegions is the fixed set of NEM regions kept in region-keyed
// datasets; anything else (e.g. SNOWY1 legacy rows) is filtered out.
var MainRegions = map[string]bool{
	"NSW1": true,
	"QLD1": true,
	"SA1":  true,
	"TAS1": true,
	"VIC1": true,
}

// ParseTime parses an MMS timestamp. ok is false on malformed input.
func ParseTime(s string) (time.Time, bool) {
	t, err := time.Parse(MMSTime, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func key(settlement time.Time, dim string) string {
	return settlement.Format(keyTime) + "|" + dim
}

// PriceRow is one (settlement, region) spot price observation.
type PriceRow struct {
	SettlementDate time.Time `parquet:"settlementdate"`
	RegionID       string    `parquet:"regionid"`
	RRP            float64   `parquet:"rrp"`
}

func (r PriceRow) Key() string           { return key(r.SettlementDate, r.RegionID) }
func (r PriceRow) Settlement() time.Time { return r.SettlementDate }

// ScadaRow is one (settlement, duid) metered MW sample. Negative values
// are meaningful (storage charging) and must survive every stage.
type ScadaRow struct {
	SettlementDate time.Time `parquet:"settlementdate"`
	DUID           string    `parquet:"duid"`
	ScadaValue     float64   `parquet:"scadavalue"`
}

func (r ScadaRow) Key() string           { return key(r.SettlementDate, r.DUID) }
func (r ScadaRow) Settlement() time.Time { return r.SettlementDate }

// TransRow is one (settlement, interconnector) flow observation. All
// seven canonical columns are always present in the output; a source
// field absent upstream becomes a null in its optional column.
type TransRow struct {
	SettlementDate   time.Time `parquet:"settlementdate"`
	InterconnectorID string    `parquet:"interconnectorid"`
	MeteredMWFlow    *float64  `parquet:"meteredmwflow,optional"`
	MWFlow           *float64  `parquet:"mwflow,optional"`
	MWLosses         *float64  `parquet:"mwlosses,optional"`
	ExportLimit      *float64  `parquet:"exportlimit,optional"`
	ImportLimit      *float64  `parquet:"importlimit,optional"`
}

func (r TransRow) Key() string           { return key(r.SettlementDate, r.InterconnectorID) }
func (r TransRow) Settlement() time.Time { return r.SettlementDate }

// RooftopRow is one (settlement, region) rooftop-solar MW estimate.
type RooftopRow struct {
	SettlementDate   time.Time `parquet:"settlementdate"`
	RegionID         string    `parquet:"regionid"`
	Power            float64   `parquet:"power"`
	QualityIndicator string    `parquet:"quality_indicator,optional"`
	Type             string    `parquet:"type,optional"`
}

func (r RooftopRow) Key() string           { return key(r.SettlementDate, r.RegionID) }
func (r RooftopRow) Settlement() time.Time { return r.SettlementDate }

// DemandRow is one (settlement, region) operational demand observation.
type DemandRow struct {
	SettlementDate time.Time `parquet:"settlementdate"`
	RegionID       string    `parquet:"regionid"`
	Demand         float64   `parquet:"demand"`
}

func (r DemandRow) Key() string           { return key(r.SettlementDate, r.RegionID) }
func (r DemandRow) Settlement() time.Time { return r.SettlementDate }

// CurtailRow is one (settlement, duid) curtailment calculation for a
// semi-scheduled wind or solar unit.
type CurtailRow struct {
	SettlementDate  time.Time `parquet:"settlementdate"`
	DUID            string    `parquet:"duid"`
	Availability    float64   `parquet:"availability"`
	TotalCleared    float64   `parquet:"totalcleared"`
	SemiDispatchCap int32     `parquet:"semidispatchcap"`
	Curtailment     float64   `parquet:"curtailment"`
}

func (r CurtailRow) Key() string           { return key(r.SettlementDate, r.DUID) }
func (r CurtailRow) Settlement() time.Time { return r.SettlementDate }

// RegionCurtailRow is one (settlement, region) curtailment aggregate
// derived from REGIONSUM UIGF/cleared totals.
type RegionCurtailRow struct {
	SettlementDate   time.Time `parquet:"settlementdate"`
	RegionID         string    `parquet:"regionid"`
	SolarCurtailment float64   `parquet:"solar_curtailment"`
	WindCurtailment  float64   `parquet:"wind_curtailment"`
	TotalCurtailment float64   `parquet:"total_curtailment"`
}

func (r RegionCurtailRow) Key() string           { return key(r.SettlementDate, r.RegionID) }
func (r RegionCurtailRow) Settlement() time.Time { return r.SettlementDate }
