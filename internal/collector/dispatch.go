package collector

import (
	"context"
	"log"

	"nemscan/internal/datasets"
	"nemscan/internal/mms"
	"nemscan/internal/nemweb"
	"nemscan/internal/store"
)

// DispatchCollector consumes DispatchIS_Reports: 5-minute prices and
// interconnector flows, plus the REGIONSUM block that feeds regional
// curtailment. One download serves three datasets.
type DispatchCollector struct {
	env  *Env
	feed *feed
}

func NewDispatchCollector(env *Env) *DispatchCollector {
	return &DispatchCollector{
		env:  env,
		feed: newFeed(env.Client, nemweb.DispatchIS, env.Cfg.MaxFilesPerCycle),
	}
}

func (c *DispatchCollector) Name() string { return "dispatch" }

func (c *DispatchCollector) Collect(ctx context.Context) []DatasetResult {
	fresh, err := c.feed.poll(ctx)
	if err != nil {
		log.Printf("[dispatch] list failed: %v", err)
		return failAll(err, store.Prices5, store.Transmission5, store.CurtailmentRegional)
	}

	var prices []datasets.PriceRow
	var trans []datasets.TransRow
	var regional []datasets.RegionCurtailRow

	for _, name := range fresh {
		entries, err := c.feed.download(ctx, name)
		if err != nil {
			log.Printf("[dispatch] skip %s: %v", name, err)
			continue
		}
		for _, e := range entries {
			if t, err := mms.Parse(e.Data, "DISPATCH.PRICE"); err == nil {
				prices = append(prices, datasets.Prices(t)...)
			}
			if t, err := mms.Parse(e.Data, "DISPATCH.INTERCONNECTORRES"); err == nil {
				trans = append(trans, datasets.Transmission(t)...)
			}
			if t, err := mms.Parse(e.Data, "DISPATCH.REGIONSUM"); err == nil {
				regional = append(regional, datasets.RegionalCurtailment(t)...)
			}
		}
	}

	return []DatasetResult{
		mergeInto(c.env, store.Prices5, prices),
		mergeInto(c.env, store.Transmission5, trans),
		mergeInto(c.env, store.CurtailmentRegional, regional),
	}
}

func failAll(err error, names ...string) []DatasetResult {
	out := make([]DatasetResult, len(names))
	for i, n := range names {
		out[i] = DatasetResult{Dataset: n, Error: err.Error()}
	}
	return out
}
