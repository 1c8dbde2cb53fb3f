package indexer

import (
	"context"

	"github.com/horizontego/job-ingest/internal/domain"
)

// Indexer defines the interface for posting search backends
type Indexer interface {
	// BulkIndex indexes multiple postings at once
	BulkIndex(ctx context.Context, postings []*domain.Posting) error
}
