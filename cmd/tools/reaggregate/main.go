// Rebuilds derived datasets from their 5- or 30-minute sources. Removing
// the derived file resets the aggregation watermark, so the next derive
// pass recomputes the full history.
package main

import (
	"flag"
	"log"
	"os"
	"time"

	"nemscan/internal/config"
	"nemscan/internal/derive"
	"nemscan/internal/store"
)

func main() {
	var (
		configPath string
		dataset    string
	)

	flag.StringVar(&configPath, "config", "", "path to config.yaml (defaults apply if omitted)")
	flag.StringVar(&dataset, "dataset", "all", "derived dataset to rebuild: scada30|rooftop5|all")
	flag.Parse()

	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			log.Fatalf("failed to load config %s: %v", configPath, err)
		}
		cfg = loaded
	}

	rebuildScada := dataset == "scada30" || dataset == "all"
	rebuildRooftop := dataset == "rooftop5" || dataset == "all"
	if !rebuildScada && !rebuildRooftop {
		log.Fatalf("unknown dataset %q", dataset)
	}

	started := time.Now()
	failed := false

	if rebuildScada {
		if err := rebuild(cfg.DataPath, store.Scada30, func() error {
			_, err := derive.RunScadaThirtyMin(cfg.DataPath)
			return err
		}); err != nil {
			log.Printf("[reaggregate] scada30: %v", err)
			failed = true
		}
	}
	if rebuildRooftop {
		if err := rebuild(cfg.DataPath, store.Rooftop5, func() error {
			_, err := derive.RunRooftopFiveMin(cfg.DataPath)
			return err
		}); err != nil {
			log.Printf("[reaggregate] rooftop5: %v", err)
			failed = true
		}
	}

	if failed {
		os.Exit(1)
	}
	log.Printf("[reaggregate] complete in %s", time.Since(started).Round(time.Second))
}

func rebuild(dataDir, dataset string, run func() error) error {
	path := store.Path(dataDir, dataset)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	log.Printf("[reaggregate] rebuilding %s", dataset)
	return run()
}
