package nemweb

import (
	"fmt"
	"time"
)

// Source describes one upstream report family: where its current and
// archive trees live and how its filenames are prefixed.
type Source struct {
	Name       string
	CurrentDir string
	ArchiveDir string
	Prefix     string
}

// The report families this pipeline consumes. Paths are relative to the
// server root; note the mixed ARCHIVE/Archive casing upstream.
var (
	DispatchIS = Source{
		Name:       "dispatch_is",
		CurrentDir: "/Reports/Current/DispatchIS_Reports/",
		ArchiveDir: "/Reports/ARCHIVE/DispatchIS_Reports/",
		Prefix:     "PUBLIC_DISPATCHIS_",
	}
	DispatchSCADA = Source{
		Name:       "dispatch_scada",
		CurrentDir: "/Reports/Current/Dispatch_SCADA/",
		ArchiveDir: "/Reports/ARCHIVE/Dispatch_SCADA/",
		Prefix:     "PUBLIC_DISPATCHSCADA_",
	}
	TradingIS = Source{
		Name:       "trading_is",
		CurrentDir: "/Reports/Current/TradingIS_Reports/",
		ArchiveDir: "/Reports/ARCHIVE/TradingIS_Reports/",
		Prefix:     "PUBLIC_TRADINGIS_",
	}
	RooftopPV = Source{
		Name:       "rooftop_pv",
		CurrentDir: "/Reports/Current/ROOFTOP_PV/ACTUAL/",
		ArchiveDir: "/Reports/Archive/ROOFTOP_PV/ACTUAL/",
		Prefix:     "PUBLIC_ROOFTOP_PV_ACTUAL_MEASUREMENT_",
	}
	NextDayDispatch = Source{
		Name:       "next_day_dispatch",
		CurrentDir: "/Reports/Current/Next_Day_Dispatch/",
		ArchiveDir: "/Reports/Archive/Next_Day_Dispatch/",
		Prefix:     "PUBLIC_NEXT_DAY_DISPATCH_",
	}
	OperationalDemand = Source{
		Name:       "operational_demand",
		CurrentDir: "/Reports/Current/Operational_Demand/ACTUAL_HH/",
		ArchiveDir: "/Reports/Archive/Operational_Demand/ACTUAL_HH/",
		Prefix:     "PUBLIC_ACTUAL_OPERATIONAL_DEMAND_HH_",
	}
)

// CurrentURL returns the absolute current-directory URL for a source.
func (s Source) CurrentURL(base string) string { return base + s.CurrentDir }

// ArchiveURL returns the absolute archive-directory URL for a source.
func (s Source) ArchiveURL(base string) string { return base + s.ArchiveDir }

// DailyArchiveName builds the daily archive filename for a date, e.g.
// PUBLIC_DISPATCHSCADA_20250101.zip (contains 288 nested interval zips).
func (s Source) DailyArchiveName(day time.Time) string {
	return fmt.Sprintf("%s%s.zip", s.Prefix, day.Format("20060102"))
}

// EnclosingThursday maps a date to the Thursday anchoring its weekly
// archive (rooftop PV archives are published per Thursday-started week).
func EnclosingThursday(day time.Time) time.Time {
	day = day.Truncate(24 * time.Hour)
	offset := (int(day.Weekday()) - int(time.Thursday) + 7) % 7
	return day.AddDate(0, 0, -offset)
}

// IsHistorical reports whether a day has aged off the current tree into
// the archive tree (~30 days retention upstream).
func IsHistorical(day, now time.Time) bool {
	return now.Sub(day) > 30*24*time.Hour
}
