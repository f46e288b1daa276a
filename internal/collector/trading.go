package collector

import (
	"context"
	"log"

	"nemscan/internal/datasets"
	"nemscan/internal/mms"
	"nemscan/internal/nemweb"
	"nemscan/internal/store"
)

// TradingCollector consumes TradingIS_Reports: the 30-minute trading
// family (prices and interconnector flows).
type TradingCollector struct {
	env  *Env
	feed *feed
}

func NewTradingCollector(env *Env) *TradingCollector {
	return &TradingCollector{
		env:  env,
		feed: newFeed(env.Client, nemweb.TradingIS, env.Cfg.MaxFilesPerCycle),
	}
}

func (c *TradingCollector) Name() string { return "trading" }

func (c *TradingCollector) Collect(ctx context.Context) []DatasetResult {
	fresh, err := c.feed.poll(ctx)
	if err != nil {
		log.Printf("[trading] list failed: %v", err)
		return failAll(err, store.Prices30, store.Transmission30)
	}

	var prices []datasets.PriceRow
	var trans []datasets.TransRow

	for _, name := range fresh {
		entries, err := c.feed.download(ctx, name)
		if err != nil {
			log.Printf("[trading] skip %s: %v", name, err)
			continue
		}
		for _, e := range entries {
			if t, err := mms.Parse(e.Data, "TRADING.PRICE"); err == nil {
				prices = append(prices, datasets.Prices(t)...)
			}
			if t, err := mms.Parse(e.Data, "TRADING.INTERCONNECTORRES"); err == nil {
				trans = append(trans, datasets.Transmission(t)...)
			}
		}
	}

	return []DatasetResult{
		mergeInto(c.env, store.Prices30, prices),
		mergeInto(c.env, store.Transmission30, trans),
	}
}
