package collector

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"nemscan/internal/alerting"
	"nemscan/internal/datasets"
	"nemscan/internal/eventbus"
	"nemscan/internal/mms"
	"nemscan/internal/nemweb"
	"nemscan/internal/store"
)

// ScadaCollector consumes Dispatch_SCADA: per-DUID 5-minute metered MW.
// After each batch it diffs observed DUIDs against the known registry
// and raises one alert per cycle for any new units.
type ScadaCollector struct {
	env  *Env
	feed *feed
}

func NewScadaCollector(env *Env) *ScadaCollector {
	return &ScadaCollector{
		env:  env,
		feed: newFeed(env.Client, nemweb.DispatchSCADA, env.Cfg.MaxFilesPerCycle),
	}
}

func (c *ScadaCollector) Name() string { return "scada" }

func (c *ScadaCollector) Collect(ctx context.Context) []DatasetResult {
	fresh, err := c.feed.poll(ctx)
	if err != nil {
		log.Printf("[scada] list failed: %v", err)
		return failAll(err, store.Scada5)
	}

	var rows []datasets.ScadaRow
	observed := make(map[string]bool)

	for _, name := range fresh {
		entries, err := c.feed.download(ctx, name)
		if err != nil {
			log.Printf("[scada] skip %s: %v", name, err)
			continue
		}
		for _, e := range entries {
			t, err := mms.Parse(e.Data, "DISPATCH.UNIT_SCADA")
			if err != nil {
				continue
			}
			batch, seen := datasets.Scada(t)
			rows = append(rows, batch...)
			for duid := range seen {
				observed[duid] = true
			}
		}
	}

	res := mergeInto(c.env, store.Scada5, rows)
	if res.OK && len(observed) > 0 {
		c.notifyNewDUIDs(observed)
	}
	return []DatasetResult{res}
}

func (c *ScadaCollector) notifyNewDUIDs(observed map[string]bool) {
	fresh, err := c.env.Registry.Observe(observed)
	if err != nil {
		log.Printf("[scada] duid registry: %v", err)
	}
	if len(fresh) == 0 {
		return
	}
	log.Printf("[scada] %d new DUIDs: %s", len(fresh), strings.Join(fresh, ", "))
	if c.env.Bus != nil {
		c.env.Bus.Publish(eventbus.Event{
			Type:      eventbus.TypeNewDUIDs,
			Dataset:   store.Scada5,
			Timestamp: time.Now(),
			Data:      fresh,
		})
	}
	c.env.Alerts.Notify(alerting.Alert{
		Source:  "scada",
		Title:   "new DUIDs detected",
		Message: fmt.Sprintf("%d new unit(s): %s", len(fresh), strings.Join(fresh, ", ")),
		Time:    time.Now(),
	})
}
