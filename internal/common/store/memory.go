package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/horizontego/job-ingest/internal/domain"
)

// MemoryStore keeps postings in process memory. It backs tests and dry runs.
type MemoryStore struct {
	mu        sync.RWMutex
	nextID    int64
	postings  map[int64]*domain.Posting
	byURL     map[string]int64
	countries map[string]int
}

// NewMemoryStore creates an empty store that knows DefaultCountries
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		postings:  make(map[int64]*domain.Posting),
		byURL:     make(map[string]int64),
		countries: make(map[string]int),
	}
	for i, c := range DefaultCountries {
		s.countries[c.Code] = i + 1
	}
	return s
}

func urlKey(source, url string) string {
	return source + "\x00" + url
}

// FindByExternalURL implements JobStore
func (s *MemoryStore) FindByExternalURL(_ context.Context, source, url string) (*domain.Posting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byURL[urlKey(source, url)]
	if !ok {
		return nil, ErrNotFound
	}
	return clonePosting(s.postings[id]), nil
}

// Insert implements JobStore
func (s *MemoryStore) Insert(_ context.Context, p *domain.Posting) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := urlKey(p.SourceName, p.ExternalURL)
	if _, ok := s.byURL[key]; ok {
		return fmt.Errorf("insert %s: %w", p.ExternalURL, ErrDuplicate)
	}

	s.nextID++
	p.ID = s.nextID
	s.postings[p.ID] = clonePosting(p)
	s.byURL[key] = p.ID
	return nil
}

// Get implements JobStore
func (s *MemoryStore) Get(_ context.Context, id int64) (*domain.Posting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.postings[id]
	if !ok {
		return nil, fmt.Errorf("get posting %d: %w", id, ErrNotFound)
	}
	return clonePosting(p), nil
}

// Search implements JobStore
func (s *MemoryStore) Search(_ context.Context, f Filter) ([]*domain.Posting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keyword := strings.ToLower(f.Keyword)

	var out []*domain.Posting
	for _, p := range s.postings {
		if f.CountryID != 0 && p.CountryID != f.CountryID {
			continue
		}
		if f.SourceName != "" && p.SourceName != f.SourceName {
			continue
		}
		if f.Location != "" && p.Location != f.Location {
			continue
		}
		if keyword != "" &&
			!strings.Contains(strings.ToLower(p.Title), keyword) &&
			!strings.Contains(strings.ToLower(p.Company), keyword) &&
			!strings.Contains(strings.ToLower(p.Description), keyword) {
			continue
		}
		out = append(out, clonePosting(p))
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScrapedAt.Equal(out[j].ScrapedAt) {
			return out[i].ScrapedAt.After(out[j].ScrapedAt)
		}
		return out[i].ID > out[j].ID
	})

	if len(out) > f.limit() {
		out = out[:f.limit()]
	}
	return out, nil
}

// ResolveCountry implements CountryResolver
func (s *MemoryStore) ResolveCountry(_ context.Context, code string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.countries[code]
	if !ok {
		return 0, fmt.Errorf("country %s: %w", code, ErrNotFound)
	}
	return id, nil
}

// Len returns the number of stored postings
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.postings)
}

func clonePosting(p *domain.Posting) *domain.Posting {
	c := *p
	c.Requirements = append([]string(nil), p.Requirements...)
	c.Tasks = append([]string(nil), p.Tasks...)
	c.Benefits = append([]string(nil), p.Benefits...)
	if p.Details != nil {
		c.Details = make(map[string]string, len(p.Details))
		for k, v := range p.Details {
			c.Details[k] = v
		}
	}
	return &c
}
