package worker

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/horizontego/job-ingest/internal/common/indexer"
	"github.com/horizontego/job-ingest/internal/common/normalizer"
	"github.com/horizontego/job-ingest/internal/domain"
)

// Consumer yields batches of postings; an empty batch means the wait timed out
type Consumer interface {
	ConsumeBatch(ctx context.Context, maxBatch int) ([]*domain.Posting, error)
}

// Worker drains the new-posting queue into the search index
type Worker struct {
	consumer   Consumer
	normalizer *normalizer.Normalizer
	indexer    indexer.Indexer

	batchSize   int
	concurrency int
}

// Config holds worker configuration
type Config struct {
	Concurrency int
	BatchSize   int
}

// NewWorker creates a new worker
func NewWorker(
	consumer Consumer,
	norm *normalizer.Normalizer,
	idx indexer.Indexer,
	cfg Config,
) *Worker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if norm == nil {
		norm = normalizer.NewNormalizer(nil)
	}

	return &Worker{
		consumer:    consumer,
		normalizer:  norm,
		indexer:     idx,
		batchSize:   cfg.BatchSize,
		concurrency: cfg.Concurrency,
	}
}

// Run starts the worker pool and blocks until ctx is cancelled
func (w *Worker) Run(ctx context.Context) error {
	log.Printf("[Worker] Starting pool with %d workers", w.concurrency)

	var wg sync.WaitGroup
	errChan := make(chan error, w.concurrency)

	for i := 0; i < w.concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			if err := w.runSingle(ctx, workerID); err != nil {
				errChan <- fmt.Errorf("worker %d: %w", workerID, err)
			}
		}(i)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		<-done
		return ctx.Err()
	case err := <-errChan:
		return err
	case <-done:
		return ctx.Err()
	}
}

func (w *Worker) runSingle(ctx context.Context, workerID int) error {
	log.Printf("[Worker %d] Started", workerID)

	for {
		select {
		case <-ctx.Done():
			log.Printf("[Worker %d] Stopping", workerID)
			return nil
		default:
		}

		// Postings popped before a consume error are already off the queue
		batch, err := w.consumer.ConsumeBatch(ctx, w.batchSize)
		if err != nil && ctx.Err() == nil {
			log.Printf("[Worker %d] Consume error after %d postings: %v", workerID, len(batch), err)
		}

		if len(batch) == 0 {
			continue
		}

		if err := w.indexBatch(ctx, batch); err != nil {
			log.Printf("[Worker %d] Index error: %v", workerID, err)
		} else {
			log.Printf("[Worker %d] Indexed %d postings", workerID, len(batch))
		}
	}
}

func (w *Worker) indexBatch(ctx context.Context, batch []*domain.Posting) error {
	postings := w.processPostings(batch)
	if len(postings) == 0 {
		return nil
	}
	return w.indexer.BulkIndex(ctx, postings)
}

// processPostings drops postings that were never stored and re-normalizes
// the rest, so producers other than the crawler get the same cleaning
func (w *Worker) processPostings(batch []*domain.Posting) []*domain.Posting {
	postings := make([]*domain.Posting, 0, len(batch))

	for _, p := range batch {
		if p == nil || p.ID == 0 || p.ExternalURL == "" {
			log.Printf("[Worker] Dropping posting without id or url")
			continue
		}
		w.normalizer.Normalize(p)
		postings = append(postings, p)
	}

	return postings
}
