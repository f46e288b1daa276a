package collector

import (
	"context"
	"log"

	"nemscan/internal/datasets"
	"nemscan/internal/mms"
	"nemscan/internal/nemweb"
	"nemscan/internal/store"
)

// DemandCollector consumes Operational_Demand/ACTUAL_HH: 30-minute
// regional operational demand.
type DemandCollector struct {
	env  *Env
	feed *feed
}

func NewDemandCollector(env *Env) *DemandCollector {
	return &DemandCollector{
		env:  env,
		feed: newFeed(env.Client, nemweb.OperationalDemand, env.Cfg.MaxFilesPerCycle),
	}
}

func (c *DemandCollector) Name() string { return "demand" }

func (c *DemandCollector) Collect(ctx context.Context) []DatasetResult {
	fresh, err := c.feed.poll(ctx)
	if err != nil {
		log.Printf("[demand] list failed: %v", err)
		return failAll(err, store.Demand30)
	}

	var rows []datasets.DemandRow
	for _, name := range fresh {
		entries, err := c.feed.download(ctx, name)
		if err != nil {
			log.Printf("[demand] skip %s: %v", name, err)
			continue
		}
		for _, e := range entries {
			if t, err := mms.Parse(e.Data, "OPERATIONAL_DEMAND.ACTUAL"); err == nil {
				rows = append(rows, datasets.Demand(t)...)
			}
		}
	}

	return []DatasetResult{mergeInto(c.env, store.Demand30, rows)}
}
