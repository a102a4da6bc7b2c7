package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/EV9H/renter-x-backend/config"
	"github.com/EV9H/renter-x-backend/httputil"
	"github.com/EV9H/renter-x-backend/logging"
	"github.com/EV9H/renter-x-backend/monitor"
	"github.com/EV9H/renter-x-backend/scheduler"
	"github.com/EV9H/renter-x-backend/scraper"
	"github.com/EV9H/renter-x-backend/services"
	"github.com/EV9H/renter-x-backend/storage"
	"github.com/EV9H/renter-x-backend/workers"
)

var (
	scrapeNow  = flag.Bool("scrape", false, "Run scrape once and exit")
	sourceOnly = flag.String("source", "", "Limit -scrape to one source name")
)

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logFile, err := logging.Setup(cfg.LogPath, cfg.LogMaxSize)
	if err != nil {
		log.Printf("Warning: could not set up file logging: %v", err)
	} else {
		defer logFile.Close()
	}

	log.Println("Starting renter-x scraper...")

	log.Printf("Loaded %d source configs", len(cfg.Sources))
	for id, src := range cfg.Sources {
		log.Printf("  - %s (%s, %s)", id, src.ParserType, src.URL)
	}

	clients := httputil.NewClients(&cfg.Proxy)

	ctx := context.Background()

	store, err := storage.NewPostgresStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer store.Close()
	log.Printf("Connected to Postgres: %s", maskConnectionString(cfg.DatabaseURL))

	ops, err := storage.NewOpsStore(cfg.OpsDBPath)
	if err != nil {
		log.Fatalf("Failed to open ops database: %v", err)
	}
	defer ops.Close()
	log.Printf("Ops database: %s", cfg.OpsDBPath)

	reconciler := services.NewReconciler(store)
	mon := monitor.New(ops, cfg.Alerts)

	orchestrator := scraper.NewOrchestrator(cfg, store, reconciler, mon, clients)

	// Snapshot archiving is optional; without a bucket the pipeline runs
	// without page archives.
	var snapshotWorker *workers.SnapshotWorker
	if cfg.Snapshots.Enabled {
		uploader, err := storage.NewS3Uploader(ctx, storage.S3Config{
			Bucket:          cfg.Snapshots.Bucket,
			Region:          cfg.Snapshots.Region,
			Endpoint:        cfg.Snapshots.Endpoint,
			AccessKeyID:     cfg.Snapshots.AccessKeyID,
			SecretAccessKey: cfg.Snapshots.SecretAccessKey,
		})
		if err != nil {
			log.Fatalf("Failed to set up snapshot uploader: %v", err)
		}

		snapshotWorker = workers.NewSnapshotWorker(ops, uploader)
		orchestrator.SetArchiverFactory(func(runID int64) scraper.Archiver {
			return workers.NewQueueArchiver(ops, runID, snapshotWorker.Trigger)
		})
		log.Printf("Snapshot archiving enabled: bucket %s", cfg.Snapshots.Bucket)
	}

	if *scrapeNow {
		log.Println("Running scrape...")
		if *sourceOnly != "" {
			if err := orchestrator.RunSource(ctx, *sourceOnly); err != nil {
				log.Fatalf("Scrape failed: %v", err)
			}
		} else {
			orchestrator.RunAll(ctx)
		}
		if snapshotWorker != nil {
			flushCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			snapshotWorker.FlushOnce(flushCtx, 20)
			cancel()
		}
		log.Println("Scrape complete!")
		return
	}

	// Daemon mode
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sched := scheduler.New(cfg, orchestrator)
	if snapshotWorker != nil {
		sched.SetSnapshotWorker(snapshotWorker)
		go snapshotWorker.Run(ctx, 20, 2*time.Minute)
		log.Println("Snapshot worker started")
	}

	if err := sched.Start(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	log.Println("Daemon running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")
	sched.Stop()
	log.Println("Goodbye!")
}

// maskConnectionString masks password in connection string for logging
func maskConnectionString(connStr string) string {
	start := 0
	for i := 0; i < len(connStr)-3; i++ {
		if connStr[i:i+3] == "://" {
			start = i + 3
			break
		}
	}
	if start == 0 {
		return connStr
	}

	colonIdx := -1
	atIdx := -1
	for i := start; i < len(connStr); i++ {
		if connStr[i] == ':' && colonIdx == -1 {
			colonIdx = i
		}
		if connStr[i] == '@' {
			atIdx = i
			break
		}
	}

	if colonIdx > 0 && atIdx > colonIdx {
		return connStr[:colonIdx+1] + "****" + connStr[atIdx:]
	}
	return connStr
}
