package main

import (
	"context"
	"fmt"

	"github.com/horizontego/job-ingest/internal/common/store"
	"github.com/horizontego/job-ingest/internal/domain"
)

type postingSearcher interface {
	Search(ctx context.Context, f store.Filter) ([]*domain.Posting, error)
}

type batchPublisher interface {
	PublishBatch(ctx context.Context, postings []*domain.Posting) error
}

// requeue pushes up to limit stored postings back onto the index queue
func requeue(ctx context.Context, jobs postingSearcher, pub batchPublisher, limit int) (int, error) {
	postings, err := jobs.Search(ctx, store.Filter{Limit: limit})
	if err != nil {
		return 0, fmt.Errorf("search jobs: %w", err)
	}
	if err := pub.PublishBatch(ctx, postings); err != nil {
		return 0, fmt.Errorf("publish batch: %w", err)
	}
	return len(postings), nil
}
