package dedup

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/horizontego/job-ingest/internal/common/store"
	"github.com/horizontego/job-ingest/internal/domain"
)

// Outcome is the result of passing one posting through the gate
type Outcome int

const (
	Inserted Outcome = iota
	Duplicate
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case Duplicate:
		return "duplicate"
	default:
		return "failed"
	}
}

// Publisher announces newly inserted postings
type Publisher interface {
	Publish(ctx context.Context, p *domain.Posting) error
}

// Gate inserts a posting only when no posting with the same source and URL
// is stored. Check and insert are separate calls, so concurrent processes may
// race; the store's unique key turns the loser into a Duplicate.
type Gate struct {
	store     store.JobStore
	cache     SeenCache
	publisher Publisher
}

// NewGate creates a gate. cache and publisher may be nil.
func NewGate(s store.JobStore, cache SeenCache, publisher Publisher) *Gate {
	return &Gate{
		store:     s,
		cache:     cache,
		publisher: publisher,
	}
}

// Admit stores p unless it is already known. Failed is returned together with
// the store error; cache and publish errors are only logged.
func (g *Gate) Admit(ctx context.Context, p *domain.Posting) (Outcome, error) {
	if g.cache != nil {
		seen, err := g.cache.IsSeen(ctx, p.SourceName, p.ExternalURL)
		if err != nil {
			log.Printf("[Gate] Seen-cache lookup failed, checking store: %v", err)
		} else if seen {
			return Duplicate, nil
		}
	}

	_, err := g.store.FindByExternalURL(ctx, p.SourceName, p.ExternalURL)
	switch {
	case err == nil:
		g.markSeen(ctx, p)
		return Duplicate, nil
	case !errors.Is(err, store.ErrNotFound):
		return Failed, fmt.Errorf("check existing: %w", err)
	}

	if err := g.store.Insert(ctx, p); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			g.markSeen(ctx, p)
			return Duplicate, nil
		}
		return Failed, fmt.Errorf("insert posting: %w", err)
	}

	g.markSeen(ctx, p)

	if g.publisher != nil {
		if err := g.publisher.Publish(ctx, p); err != nil {
			log.Printf("[Gate] Failed to publish posting %d: %v", p.ID, err)
		}
	}

	return Inserted, nil
}

func (g *Gate) markSeen(ctx context.Context, p *domain.Posting) {
	if g.cache == nil {
		return
	}
	if err := g.cache.MarkSeen(ctx, p.SourceName, p.ExternalURL); err != nil {
		log.Printf("[Gate] Failed to mark %s as seen: %v", p.ExternalURL, err)
	}
}
