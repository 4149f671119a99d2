package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/alorle/tuner-proxy/config"
	"github.com/alorle/tuner-proxy/handlers"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML configuration file")
	flag.Parse()

	path := *configPath
	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path == "" {
		path = "config.yaml"
	}

	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	deps, err := handlers.InitDependencies(cfg)
	if err != nil {
		log.Fatalf("Initialization error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initial directory build and guide merge before serving
	deps.Directory.Reload(ctx)
	deps.Merger.Merge(ctx, deps.Directory.Channels())

	// refreshMu keeps scheduled runs from overlapping
	var refreshMu sync.Mutex
	scheduler := cron.New()

	if cfg.EPG.RefreshCron != "" {
		if _, err := scheduler.AddFunc(cfg.EPG.RefreshCron, func() {
			refreshMu.Lock()
			defer refreshMu.Unlock()
			deps.Merger.Merge(ctx, deps.Directory.Channels())
		}); err != nil {
			log.Fatalf("Invalid EPG refresh schedule %q: %v", cfg.EPG.RefreshCron, err)
		}
	}

	if cfg.ReloadCron != "" {
		if _, err := scheduler.AddFunc(cfg.ReloadCron, func() {
			refreshMu.Lock()
			defer refreshMu.Unlock()
			deps.Directory.Reload(ctx)
			deps.Merger.Merge(ctx, deps.Directory.Channels())
		}); err != nil {
			log.Fatalf("Invalid reload schedule %q: %v", cfg.ReloadCron, err)
		}
	}

	scheduler.Start()
	defer scheduler.Stop()

	// Prune idle usage sessions in the background
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if pruned := deps.Sessions.Prune(cfg.Relay.SessionGrace); pruned > 0 {
					log.Printf("Pruned %d idle usage sessions", pruned)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	addr := net.JoinHostPort(cfg.HTTP.Address, cfg.HTTP.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: handlers.SetupRoutes(cfg, deps),
	}

	go func() {
		log.Printf("tuner-proxy listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
