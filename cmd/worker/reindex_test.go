package main

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/horizontego/job-ingest/internal/common/store"
	"github.com/horizontego/job-ingest/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	batches [][]*domain.Posting
	err     error
}

func (p *recordingPublisher) PublishBatch(_ context.Context, postings []*domain.Posting) error {
	if p.err != nil {
		return p.err
	}
	p.batches = append(p.batches, postings)
	return nil
}

func TestRequeue(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	for i := 0; i < 3; i++ {
		require.NoError(t, s.Insert(ctx, &domain.Posting{
			ExternalURL: fmt.Sprintf("https://arbeidsplassen.nav.no/stillinger/stilling/%d", i),
			Title:       "Plukker",
			SourceName:  domain.NameArbeidsplassen,
		}))
	}

	pub := &recordingPublisher{}
	n, err := requeue(ctx, s, pub, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, pub.batches, 1)
	assert.Len(t, pub.batches[0], 2)
}

func TestRequeue_PublishError(t *testing.T) {
	boom := errors.New("redis down")
	_, err := requeue(context.Background(), store.NewMemoryStore(), &recordingPublisher{err: boom}, 10)
	assert.ErrorIs(t, err, boom)
}
