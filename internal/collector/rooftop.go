package collector

import (
	"context"
	"log"

	"nemscan/internal/datasets"
	"nemscan/internal/mms"
	"nemscan/internal/nemweb"
	"nemscan/internal/store"
)

// RooftopCollector consumes ROOFTOP_PV/ACTUAL: 30-minute regional
// rooftop-solar estimates. The 5-minute series is derived, not fetched.
type RooftopCollector struct {
	env  *Env
	feed *feed
}

func NewRooftopCollector(env *Env) *RooftopCollector {
	return &RooftopCollector{
		env:  env,
		feed: newFeed(env.Client, nemweb.RooftopPV, env.Cfg.MaxFilesPerCycle),
	}
}

func (c *RooftopCollector) Name() string { return "rooftop" }

func (c *RooftopCollector) Collect(ctx context.Context) []DatasetResult {
	fresh, err := c.feed.poll(ctx)
	if err != nil {
		log.Printf("[rooftop] list failed: %v", err)
		return failAll(err, store.Rooftop30)
	}

	var rows []datasets.RooftopRow
	for _, name := range fresh {
		entries, err := c.feed.download(ctx, name)
		if err != nil {
			log.Printf("[rooftop] skip %s: %v", name, err)
			continue
		}
		for _, e := range entries {
			if t, err := mms.Parse(e.Data, "ROOFTOP.ACTUAL"); err == nil {
				rows = append(rows, datasets.Rooftop(t)...)
			}
		}
	}

	return []DatasetResult{mergeInto(c.env, store.Rooftop30, rows)}
}
