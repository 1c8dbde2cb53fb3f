package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/horizontego/job-ingest/internal/common/cleaner"
	"github.com/horizontego/job-ingest/internal/common/indexer"
	"github.com/horizontego/job-ingest/internal/common/normalizer"
	"github.com/horizontego/job-ingest/internal/common/store"
	"github.com/horizontego/job-ingest/internal/config"
	"github.com/horizontego/job-ingest/internal/module/worker"
	"github.com/horizontego/job-ingest/internal/queue"
)

func main() {
	reindex := flag.Int("reindex", 0, "re-queue this many stored postings before consuming")
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting Index Worker")

	cfg := config.Load()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("Redis connection failed: %v", err)
	}
	log.Println("Redis connected")

	esIndexer, err := indexer.NewElasticsearchIndexer(cfg.Elasticsearch.Addresses, cfg.Elasticsearch.Index)
	if err != nil {
		log.Fatalf("Elasticsearch connection failed: %v", err)
	}
	log.Printf("Elasticsearch connected, index: %s", cfg.Elasticsearch.Index)

	if err := esIndexer.EnsureIndex(ctx); err != nil {
		log.Printf("Warning: Failed to ensure index: %v", err)
	}

	norm := normalizer.NewNormalizer(cleaner.NewCleaner())
	consumer := queue.NewConsumer(rdb, cfg.Redis.JobQueue, 5*time.Second)

	publisher := queue.NewPublisher(rdb, cfg.Redis.JobQueue)

	if *reindex > 0 {
		jobStore, err := store.NewPostgresStore(ctx, cfg.Postgres.ConnectionString, cfg.Postgres.TableName)
		if err != nil {
			log.Fatalf("PostgreSQL connection failed: %v", err)
		}
		n, err := requeue(ctx, jobStore, publisher, *reindex)
		jobStore.Close()
		if err != nil {
			log.Fatalf("Reindex failed: %v", err)
		}
		log.Printf("Re-queued %d stored postings", n)
	}

	if n, err := publisher.QueueLength(ctx); err == nil {
		log.Printf("Queue %s has %d postings waiting", cfg.Redis.JobQueue, n)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var wg sync.WaitGroup

	// queue -> normalize -> Elasticsearch
	wg.Add(1)
	go func() {
		defer wg.Done()
		w := worker.NewWorker(consumer, norm, esIndexer, worker.Config{
			Concurrency: cfg.Worker.Concurrency,
			BatchSize:   cfg.Worker.BatchSize,
		})
		if err := w.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("Worker error: %v", err)
		}
	}()

	<-sigChan
	log.Println("Shutdown signal received, stopping...")
	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("Graceful shutdown complete")
	case <-time.After(30 * time.Second):
		log.Println("Shutdown timeout, forcing exit")
	}
}
