package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/horizontego/job-ingest/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPosting(url, title string, scraped time.Time) *domain.Posting {
	return &domain.Posting{
		ExternalURL: url,
		Title:       title,
		SourceName:  domain.NameArbeidsplassen,
		CountryID:   1,
		IsVerified:  true,
		ScrapedAt:   scraped,
	}
}

func TestMemoryStore_InsertAndFind(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	p := newPosting("https://example.no/1", "Plukker", time.Now())
	p.Requirements = []string{"Førerkort"}
	require.NoError(t, s.Insert(ctx, p))
	assert.Equal(t, int64(1), p.ID)

	found, err := s.FindByExternalURL(ctx, domain.NameArbeidsplassen, "https://example.no/1")
	require.NoError(t, err)
	assert.Equal(t, "Plukker", found.Title)

	// Returned copies don't alias stored state
	found.Requirements[0] = "changed"
	again, err := s.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Førerkort"}, again.Requirements)

	_, err = s.FindByExternalURL(ctx, domain.NamePickingJobs, "https://example.no/1")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Get(ctx, 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_InsertDuplicate(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Insert(ctx, newPosting("https://example.no/1", "a", time.Now())))
	err := s.Insert(ctx, newPosting("https://example.no/1", "b", time.Now()))

	assert.ErrorIs(t, err, ErrDuplicate)
	assert.Equal(t, 1, s.Len())
}

func TestMemoryStore_Search(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	base := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	older := newPosting("https://example.no/1", "Jordbærplukker", base)
	newer := newPosting("https://example.no/2", "Fiskeindustri", base.Add(time.Hour))
	other := newPosting("https://pickingjobs.com/apples", "Apple picker", base.Add(2*time.Hour))
	other.SourceName = domain.NamePickingJobs
	other.CountryID = 2

	for _, p := range []*domain.Posting{older, newer, other} {
		require.NoError(t, s.Insert(ctx, p))
	}

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"all newest first", Filter{}, []string{"Apple picker", "Fiskeindustri", "Jordbærplukker"}},
		{"by country", Filter{CountryID: 1}, []string{"Fiskeindustri", "Jordbærplukker"}},
		{"by source", Filter{SourceName: domain.NamePickingJobs}, []string{"Apple picker"}},
		{"keyword case-insensitive", Filter{Keyword: "PLUKKER"}, []string{"Jordbærplukker"}},
		{"limit", Filter{Limit: 1}, []string{"Apple picker"}},
		{"no match", Filter{Keyword: "astronaut"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Search(ctx, tt.filter)
			require.NoError(t, err)

			var titles []string
			for _, p := range got {
				titles = append(titles, p.Title)
			}
			assert.Equal(t, tt.want, titles)
		})
	}
}

func TestMemoryStore_ResolveCountry(t *testing.T) {
	s := NewMemoryStore()

	id, err := s.ResolveCountry(context.Background(), "NOR")
	require.NoError(t, err)
	assert.Equal(t, 1, id)

	_, err = s.ResolveCountry(context.Background(), "XXX")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListColumns(t *testing.T) {
	assert.Equal(t, sql.NullString{}, joinList(nil))
	assert.Equal(t, sql.NullString{String: "a\nb", Valid: true}, joinList([]string{"a", "b"}))

	assert.Nil(t, splitList(sql.NullString{}))
	assert.Equal(t, []string{"a", "b"}, splitList(sql.NullString{String: "a\nb", Valid: true}))

	details, err := encodeDetails(nil)
	require.NoError(t, err)
	assert.False(t, details.Valid)

	details, err = encodeDetails(map[string]string{domain.DetailSector: "Privat"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"sector":"Privat"}`, details.String)
}
