package store

import "path/filepath"

// Canonical dataset names. Each maps to {name}.parquet in the data dir.
const (
	Prices5             = "prices5"
	Prices30            = "prices30"
	Scada5              = "scada5"
	Scada30             = "scada30"
	Transmission5       = "transmission5"
	Transmission30      = "transmission30"
	Rooftop30           = "rooftop30"
	Rooftop5            = "rooftop5"
	Demand30            = "demand30"
	Curtailment5        = "curtailment5"
	CurtailmentRegional = "curtailment_regional5"
)

// Path returns the canonical file path for a dataset.
func Path(dataDir, dataset string) string {
	return filepath.Join(dataDir, dataset+".parquet")
}
