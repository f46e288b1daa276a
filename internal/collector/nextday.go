package collector

import (
	"context"
	"log"

	"nemscan/internal/datasets"
	"nemscan/internal/mms"
	"nemscan/internal/nemweb"
	"nemscan/internal/store"
)

// NextDayCollector consumes Next_Day_Dispatch: the day-after UNIT_SOLUTION
// publication that carries availability/cleared/semi-dispatch-cap per
// DUID, from which 5-minute curtailment is computed.
type NextDayCollector struct {
	env  *Env
	feed *feed
}

func NewNextDayCollector(env *Env) *NextDayCollector {
	return &NextDayCollector{
		env:  env,
		feed: newFeed(env.Client, nemweb.NextDayDispatch, env.Cfg.MaxFilesPerCycle),
	}
}

func (c *NextDayCollector) Name() string { return "next_day_dispatch" }

func (c *NextDayCollector) Collect(ctx context.Context) []DatasetResult {
	fresh, err := c.feed.poll(ctx)
	if err != nil {
		log.Printf("[next_day_dispatch] list failed: %v", err)
		return failAll(err, store.Curtailment5)
	}

	var rows []datasets.CurtailRow
	for _, name := range fresh {
		entries, err := c.feed.download(ctx, name)
		if err != nil {
			log.Printf("[next_day_dispatch] skip %s: %v", name, err)
			continue
		}
		for _, e := range entries {
			if t, err := mms.Parse(e.Data, "DISPATCH.UNIT_SOLUTION"); err == nil {
				rows = append(rows, datasets.Curtailment(t)...)
			}
		}
	}

	return []DatasetResult{mergeInto(c.env, store.Curtailment5, rows)}
}
