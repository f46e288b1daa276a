package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nemscan/internal/backfill"
	"nemscan/internal/config"
	"nemscan/internal/nemweb"
)

func main() {
	var (
		configPath string
		dataset    string
		startStr   string
		endStr     string
		testOnly   bool
	)

	flag.StringVar(&configPath, "config", "", "path to config.yaml (defaults apply if omitted)")
	flag.StringVar(&dataset, "dataset", "all", "dataset to backfill: prices|scada|transmission|rooftop|curtailment|demand|all")
	flag.StringVar(&startStr, "start", "", "start date (YYYY-MM-DD, inclusive)")
	flag.StringVar(&endStr, "end", "", "end date (YYYY-MM-DD, inclusive)")
	flag.BoolVar(&testOnly, "test", false, "probe one archive and validate, no download or merge")
	flag.Parse()

	if startStr == "" || endStr == "" {
		log.Fatal("--start and --end are required")
	}
	start, err := time.Parse("2006-01-02", startStr)
	if err != nil {
		log.Fatalf("invalid --start: %v", err)
	}
	end, err := time.Parse("2006-01-02", endStr)
	if err != nil {
		log.Fatalf("invalid --end: %v", err)
	}
	if end.Before(start) {
		log.Fatalf("invalid range: end %s before start %s", endStr, startStr)
	}

	cfg := config.Default()
	if configPath != "" {
		if cfg, err = config.Load(configPath); err != nil {
			log.Fatalf("failed to load config %s: %v", configPath, err)
		}
	}

	client := nemweb.NewClient(nemweb.Config{
		BaseURL:     cfg.BaseURL,
		MaxRetries:  cfg.MaxRetries,
		RetryDelay:  time.Duration(cfg.RetryDelaySeconds) * time.Second,
		BodyTimeout: time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
	})

	driver := backfill.New(client, backfill.Config{
		Dataset:  dataset,
		Start:    start,
		End:      end,
		DataDir:  cfg.DataPath,
		TestOnly: testOnly,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("[backfill] interrupted, stopping after current day")
		cancel()
	}()

	started := time.Now()
	if err := driver.Run(ctx); err != nil {
		log.Printf("[backfill] failed after %s: %v", time.Since(started).Round(time.Second), err)
		os.Exit(1)
	}
	log.Printf("[backfill] complete in %s", time.Since(started).Round(time.Second))
}
