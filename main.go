package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"nemscan/internal/alerting"
	"nemscan/internal/api"
	"nemscan/internal/collector"
	"nemscan/internal/config"
	"nemscan/internal/duids"
	"nemscan/internal/eventbus"
	"nemscan/internal/nemweb"
)

// BuildCommit is set at build time via -ldflags.
var BuildCommit = "dev"

func main() {
	configPath := flag.String("config", "", "path to config.yaml (defaults apply if omitted)")
	flag.Parse()

	// 1. Config
	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config %s: %v", *configPath, err)
		}
		cfg = loaded
	}
	applyEnvOverrides(cfg)

	log.Printf("Starting nemscan (commit %s)", BuildCommit)
	log.Printf("Data dir: %s", cfg.DataPath)
	log.Printf("NEMWEB: %s", baseOrDefault(cfg.BaseURL))
	log.Printf("Cycle interval: %s", cfg.UpdateInterval())

	if err := os.MkdirAll(cfg.DataPath, 0o755); err != nil {
		log.Fatalf("Failed to create data dir: %v", err)
	}

	// 2. Dependencies
	client := nemweb.NewClient(nemweb.Config{
		BaseURL:     cfg.BaseURL,
		MaxRetries:  cfg.MaxRetries,
		RetryDelay:  time.Duration(cfg.RetryDelaySeconds) * time.Second,
		BodyTimeout: time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
	})

	registry, err := duids.Load(cfg.KnownDUIDsPath)
	if err != nil {
		log.Fatalf("Failed to load DUID registry: %v", err)
	}
	log.Printf("DUID registry: %d known units", registry.Len())

	throttle, err := alerting.OpenThrottle(cfg.AlertDBPath, time.Duration(cfg.AlertThrottleMinutes)*time.Minute)
	if err != nil {
		log.Fatalf("Failed to open alert throttle DB: %v", err)
	}
	defer throttle.Close()

	var senders []alerting.Sender
	if cfg.EnableEmailAlerts {
		if s, ok := emailSenderFromEnv(); ok {
			senders = append(senders, s)
			log.Println("Email alerts enabled")
		} else {
			log.Println("Email alerts requested but SMTP_HOST/SMTP_FROM/SMTP_TO are not set; using log alerts only")
		}
	}
	alerts := alerting.NewDispatcher(throttle, senders...)

	bus := eventbus.New()
	defer bus.Close()

	// 3. Services
	env := &collector.Env{
		Client:   client,
		Cfg:      cfg,
		Registry: registry,
		Alerts:   alerts,
		Bus:      bus,
	}
	svc := collector.NewService(env)
	apiServer := api.NewServer(cfg, svc, bus)

	// 4. Run
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		svc.Start(ctx)
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		apiServer.Start(ctx)
	}()

	<-sigChan
	log.Println("Shutting down...")
	cancel()
	wg.Wait()
}

func applyEnvOverrides(cfg *config.Config) {
	if v := os.Getenv("DATA_PATH"); v != "" {
		cfg.DataPath = v
	}
	if v := os.Getenv("NEMWEB_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.APIPort = port
		}
	}
	if v := os.Getenv("UPDATE_INTERVAL_SEC"); v != "" {
		if sec, err := strconv.Atoi(v); err == nil && sec > 0 {
			cfg.UpdateIntervalSeconds = sec
		}
	}
}

func emailSenderFromEnv() (alerting.EmailSender, bool) {
	host := os.Getenv("SMTP_HOST")
	from := os.Getenv("SMTP_FROM")
	to := os.Getenv("SMTP_TO")
	if host == "" || from == "" || to == "" {
		return alerting.EmailSender{}, false
	}

	port := 587
	if v := os.Getenv("SMTP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			port = p
		}
	}
	return alerting.EmailSender{
		Host:     host,
		Port:     port,
		Username: os.Getenv("SMTP_USER"),
		Password: os.Getenv("SMTP_PASSWORD"),
		From:     from,
		To:       strings.Split(to, ","),
	}, true
}

func baseOrDefault(base string) string {
	if base == "" {
		return nemweb.DefaultBaseURL
	}
	return base
}
