package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/horizontego/job-ingest/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sliceConsumer struct {
	mu      sync.Mutex
	batches [][]*domain.Posting
}

func (c *sliceConsumer) ConsumeBatch(ctx context.Context, _ int) ([]*domain.Posting, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.batches) == 0 {
		select {
		case <-ctx.Done():
		case <-time.After(5 * time.Millisecond):
		}
		return nil, nil
	}
	b := c.batches[0]
	c.batches = c.batches[1:]
	return b, nil
}

// brokenConsumer hands out one batch together with a mid-batch error, then
// behaves like an empty queue
type brokenConsumer struct {
	sliceConsumer
	err error
}

func (c *brokenConsumer) ConsumeBatch(ctx context.Context, n int) ([]*domain.Posting, error) {
	c.mu.Lock()
	err := c.err
	c.err = nil
	c.mu.Unlock()

	batch, _ := c.sliceConsumer.ConsumeBatch(ctx, n)
	return batch, err
}

type recordingIndexer struct {
	mu      sync.Mutex
	indexed []*domain.Posting
}

func (r *recordingIndexer) BulkIndex(_ context.Context, postings []*domain.Posting) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.indexed = append(r.indexed, postings...)
	return nil
}

func (r *recordingIndexer) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.indexed)
}

func TestProcessPostings(t *testing.T) {
	w := NewWorker(&sliceConsumer{}, nil, &recordingIndexer{}, Config{})

	got := w.processPostings([]*domain.Posting{
		{ID: 1, ExternalURL: "https://example.no/1", Title: " Plukker  &amp; pakker ", SourceName: domain.NameNavNo},
		{ExternalURL: "https://example.no/unsaved"},
		nil,
		{ID: 2},
	})

	require.Len(t, got, 1)
	assert.Equal(t, "Plukker & pakker", got[0].Title)
}

func TestWorker_RunIndexesUntilCancelled(t *testing.T) {
	consumer := &sliceConsumer{batches: [][]*domain.Posting{
		{{ID: 1, ExternalURL: "https://example.no/1"}, {ID: 2, ExternalURL: "https://example.no/2"}},
		{{ID: 3, ExternalURL: "https://example.no/3"}},
	}}
	idx := &recordingIndexer{}
	w := NewWorker(consumer, nil, idx, Config{Concurrency: 2, BatchSize: 10})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	assert.Eventually(t, func() bool { return idx.count() == 3 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestWorker_IndexesBatchReturnedWithError(t *testing.T) {
	consumer := &brokenConsumer{
		sliceConsumer: sliceConsumer{batches: [][]*domain.Posting{
			{{ID: 1, ExternalURL: "https://example.no/1"}, {ID: 2, ExternalURL: "https://example.no/2"}},
		}},
		err: errors.New("rpop: connection reset"),
	}
	idx := &recordingIndexer{}
	w := NewWorker(consumer, nil, idx, Config{Concurrency: 1, BatchSize: 10})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	assert.Eventually(t, func() bool { return idx.count() == 2 }, time.Second, 5*time.Millisecond)
}
