package store

import (
	"context"
	"errors"

	"github.com/horizontego/job-ingest/internal/domain"
)

var (
	// ErrNotFound is returned when a posting or country does not exist
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned by Insert when (source, url) is already stored
	ErrDuplicate = errors.New("duplicate posting")
)

// JobStore persists postings. Postings are written once and never updated.
type JobStore interface {
	// FindByExternalURL returns ErrNotFound when no posting of source has url
	FindByExternalURL(ctx context.Context, source, url string) (*domain.Posting, error)
	// Insert stores p and sets p.ID
	Insert(ctx context.Context, p *domain.Posting) error
	Get(ctx context.Context, id int64) (*domain.Posting, error)
	Search(ctx context.Context, f Filter) ([]*domain.Posting, error)
}

// CountryResolver maps a 3-letter country code to its numeric id
type CountryResolver interface {
	ResolveCountry(ctx context.Context, code string) (int, error)
}

// Filter narrows Search results. Zero values match everything.
type Filter struct {
	CountryID  int
	SourceName string
	Location   string
	Keyword    string // Case-insensitive match on title, company or description
	Limit      int
}

// DefaultSearchLimit applies when Filter.Limit is not set
const DefaultSearchLimit = 50

func (f Filter) limit() int {
	if f.Limit <= 0 {
		return DefaultSearchLimit
	}
	return f.Limit
}
