package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/horizontego/job-ingest/internal/browser"
	"github.com/horizontego/job-ingest/internal/common/dedup"
	"github.com/horizontego/job-ingest/internal/common/store"
	"github.com/horizontego/job-ingest/internal/config"
	"github.com/horizontego/job-ingest/internal/module"
	"github.com/horizontego/job-ingest/internal/module/ingest"
	"github.com/horizontego/job-ingest/internal/queue"
)

func main() {
	maxJobs := flag.Int("max", 50, "maximum postings to collect per source")
	sourceFlag := flag.String("source", "", "comma-separated sources to run (default: all)")
	schedule := flag.String("schedule", "", `cron spec for repeated runs, e.g. "@every 24h" (default: run once)`)
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting Job Crawler")

	cfg := config.Load()

	sources, err := selectSources(*sourceFlag)
	if err != nil {
		log.Fatalf("Invalid -source: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	jobStore, err := store.NewPostgresStore(ctx, cfg.Postgres.ConnectionString, cfg.Postgres.TableName)
	if err != nil {
		log.Fatalf("PostgreSQL connection failed: %v", err)
	}
	defer jobStore.Close()
	log.Println("PostgreSQL connected")

	// Redis only speeds up the gate and feeds the index worker; without it
	// postings are still stored
	var (
		seen      dedup.SeenCache
		publisher dedup.Publisher
	)
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis unavailable, running without seen-cache and queue: %v", err)
	} else {
		log.Println("Redis connected")
		seen = dedup.NewDeduplicator(rdb, cfg.Redis.SeenPrefix, cfg.Redis.SeenTTL)
		publisher = queue.NewPublisher(rdb, cfg.Redis.JobQueue)
	}

	renderer := browser.NewPlaywrightRenderer(browser.Config{
		UserAgent: cfg.Crawler.UserAgent,
		Headless:  cfg.Browser.Headless,
		Install:   cfg.Browser.Install,
	})
	defer renderer.Close()

	adapters, err := buildAdapters(ctx, cfg, jobStore, renderer, sources)
	if err != nil {
		log.Fatalf("Build adapters failed: %v", err)
	}

	orch := ingest.NewOrchestrator(dedup.NewGate(jobStore, seen, publisher), ingest.Config{
		MaxPages:    cfg.Crawler.MaxPages,
		PageDelay:   cfg.Crawler.PageDelay,
		DetailDelay: cfg.Crawler.DetailDelay,
	})

	if *schedule == "" {
		runOnce(ctx, orch, adapters, *maxJobs)
		return
	}

	c, job, err := newScheduler(*schedule, func() {
		runOnce(ctx, orch, adapters, *maxJobs)
	})
	if err != nil {
		log.Fatalf("Invalid -schedule: %v", err)
	}
	c.Start()
	log.Printf("[Scheduler] Cron started, spec: %s", *schedule)

	// Run immediately so the first batch does not wait for the first tick;
	// ticks arriving while it runs are skipped
	go job.Run()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Println("Shutdown signal received, stopping...")
	cancel()

	// Waits for a running scrape to notice the cancellation
	<-c.Stop().Done()
	log.Println("Graceful shutdown complete")
}

// runOnce runs every adapter concurrently and logs one line per source
func runOnce(ctx context.Context, orch *ingest.Orchestrator, adapters []module.Adapter, maxJobs int) {
	reports := orch.RunAll(ctx, adapters, maxJobs)

	var attempted, succeeded, skipped int
	for _, r := range reports {
		log.Printf("[Crawler] %s: attempted=%d succeeded=%d skipped=%d failed=%d errors=%d",
			r.Source, r.Attempted, r.Succeeded, r.Skipped, r.Failed, r.Errors)
		attempted += r.Attempted
		succeeded += r.Succeeded
		skipped += r.Skipped
	}
	log.Printf("[Crawler] Run complete: attempted=%d succeeded=%d skipped=%d", attempted, succeeded, skipped)
}
