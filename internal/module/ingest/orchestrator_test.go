package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/horizontego/job-ingest/internal/common/dedup"
	"github.com/horizontego/job-ingest/internal/common/store"
	"github.com/horizontego/job-ingest/internal/domain"
	"github.com/horizontego/job-ingest/internal/module"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAdapter struct {
	source    domain.JobSource
	pages     map[int][]string
	listErr   map[int]error
	failing   map[string]bool
	endless   bool
	listCalls []int
	fetched   []string
}

func (s *stubAdapter) Source() domain.JobSource { return s.source }

func (s *stubAdapter) ListPage(_ context.Context, page int) ([]string, error) {
	s.listCalls = append(s.listCalls, page)
	if err := s.listErr[page]; err != nil {
		return nil, err
	}
	if s.endless {
		return []string{
			fmt.Sprintf("https://stub.test/%d/a", page),
			fmt.Sprintf("https://stub.test/%d/b", page),
			fmt.Sprintf("https://stub.test/%d/c", page),
		}, nil
	}
	return s.pages[page], nil
}

func (s *stubAdapter) FetchDetail(_ context.Context, url string) (*domain.Posting, error) {
	s.fetched = append(s.fetched, url)
	if s.failing[url] {
		return nil, errors.New("connection reset")
	}
	return &domain.Posting{ExternalURL: url, SourceName: string(s.source), Title: "Picker"}, nil
}

// nilAdapter reports success without a posting
type nilAdapter struct{ stubAdapter }

func (*nilAdapter) FetchDetail(context.Context, string) (*domain.Posting, error) {
	return nil, nil
}

// hostAdapter tracks how many fetches run at once against its host
type hostAdapter struct {
	source domain.JobSource
	host   string
	urls   []string
	active *atomic.Int32
	peak   *atomic.Int32
	mu     *sync.Mutex
}

func (h *hostAdapter) Source() domain.JobSource { return h.source }
func (h *hostAdapter) Host() string             { return h.host }

func (h *hostAdapter) ListPage(_ context.Context, page int) ([]string, error) {
	if page > 1 {
		return nil, nil
	}
	return h.urls, nil
}

func (h *hostAdapter) FetchDetail(_ context.Context, url string) (*domain.Posting, error) {
	n := h.active.Add(1)
	defer h.active.Add(-1)

	h.mu.Lock()
	if n > h.peak.Load() {
		h.peak.Store(n)
	}
	h.mu.Unlock()

	time.Sleep(20 * time.Millisecond)
	return &domain.Posting{ExternalURL: url, SourceName: string(h.source), Title: "Picker"}, nil
}

func toAdapters(in []*stubAdapter) []module.Adapter {
	out := make([]module.Adapter, len(in))
	for i, a := range in {
		out[i] = a
	}
	return out
}

type countingGate struct {
	gate  Gate
	calls int
}

func (g *countingGate) Admit(ctx context.Context, p *domain.Posting) (dedup.Outcome, error) {
	g.calls++
	return g.gate.Admit(ctx, p)
}

type failingGate struct{}

func (failingGate) Admit(context.Context, *domain.Posting) (dedup.Outcome, error) {
	return dedup.Failed, errors.New("database is down")
}

var testConfig = Config{MaxPages: 5, PageDelay: time.Second, DetailDelay: 2 * time.Second}

func newTestOrchestrator(g Gate) (*Orchestrator, *[]time.Duration) {
	o := NewOrchestrator(g, testConfig)
	var sleeps []time.Duration
	o.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return ctx.Err()
	}
	return o, &sleeps
}

func newCountingGate() *countingGate {
	return &countingGate{gate: dedup.NewGate(store.NewMemoryStore(), nil, nil)}
}

func TestRun_CountsFailuresAndSuccesses(t *testing.T) {
	a := &stubAdapter{
		source: "stub",
		pages: map[int][]string{
			1: {"https://stub.test/1", "https://stub.test/2", "https://stub.test/3"},
		},
		failing: map[string]bool{"https://stub.test/2": true},
	}
	g := newCountingGate()
	o, sleeps := newTestOrchestrator(g)

	r := o.Run(context.Background(), a, 10)

	assert.Equal(t, domain.JobSource("stub"), r.Source)
	assert.Equal(t, 3, r.Attempted)
	assert.Equal(t, 2, r.Succeeded)
	assert.Equal(t, 1, r.Failed)
	assert.Equal(t, 0, r.Skipped)
	assert.Equal(t, 0, r.Errors)
	assert.Equal(t, 2, r.PagesVisited)
	assert.Equal(t, 2, g.calls)
	assert.Equal(t, []int{1, 2}, a.listCalls)
	// one page delay, then delays between the three detail fetches only
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 2 * time.Second}, *sleeps)
}

func TestRun_PaginationIsBounded(t *testing.T) {
	a := &stubAdapter{source: "stub", endless: true}
	o, _ := newTestOrchestrator(newCountingGate())

	r := o.Run(context.Background(), a, 1000)

	assert.Equal(t, DefaultMaxPages, r.PagesVisited)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, a.listCalls)
	assert.Equal(t, 15, r.Attempted)
	assert.Equal(t, 15, r.Succeeded)
}

func TestRun_TruncatesToTarget(t *testing.T) {
	a := &stubAdapter{
		source: "stub",
		pages: map[int][]string{
			1: {"https://stub.test/1", "https://stub.test/2", "https://stub.test/3"},
		},
	}
	o, sleeps := newTestOrchestrator(newCountingGate())

	r := o.Run(context.Background(), a, 2)

	assert.Equal(t, []int{1}, a.listCalls)
	assert.Equal(t, []string{"https://stub.test/1", "https://stub.test/2"}, a.fetched)
	assert.Equal(t, 2, r.Attempted)
	assert.Equal(t, []time.Duration{2 * time.Second}, *sleeps)
}

func TestRun_ListingErrorKeepsCollectedURLs(t *testing.T) {
	a := &stubAdapter{
		source:  "stub",
		pages:   map[int][]string{1: {"https://stub.test/1"}},
		listErr: map[int]error{2: errors.New("timeout")},
	}
	g := newCountingGate()
	o, _ := newTestOrchestrator(g)

	r := o.Run(context.Background(), a, 10)

	assert.Equal(t, []int{1, 2}, a.listCalls)
	assert.Equal(t, 1, r.Attempted)
	assert.Equal(t, 1, r.Succeeded)
	assert.Equal(t, 1, g.calls)
}

func TestRun_DeduplicatesAcrossPages(t *testing.T) {
	a := &stubAdapter{
		source: "stub",
		pages: map[int][]string{
			1: {"https://stub.test/a", "https://stub.test/b"},
			2: {"https://stub.test/b", "https://stub.test/c"},
		},
	}
	o, _ := newTestOrchestrator(newCountingGate())

	r := o.Run(context.Background(), a, 10)

	assert.Equal(t, []string{"https://stub.test/a", "https://stub.test/b", "https://stub.test/c"}, a.fetched)
	assert.Equal(t, 3, r.Succeeded)
}

func TestRun_SecondRunSkipsDuplicates(t *testing.T) {
	pages := map[int][]string{1: {"https://stub.test/1", "https://stub.test/2"}}
	g := newCountingGate()
	o, _ := newTestOrchestrator(g)

	first := o.Run(context.Background(), &stubAdapter{source: "stub", pages: pages}, 10)
	second := o.Run(context.Background(), &stubAdapter{source: "stub", pages: pages}, 10)

	assert.Equal(t, 2, first.Succeeded)
	assert.Equal(t, 0, second.Succeeded)
	assert.Equal(t, 2, second.Skipped)
	assert.Equal(t, 0, second.Errors)
}

func TestRun_GateFailuresAreErrors(t *testing.T) {
	a := &stubAdapter{source: "stub", pages: map[int][]string{1: {"https://stub.test/1", "https://stub.test/2"}}}
	o, _ := newTestOrchestrator(failingGate{})

	r := o.Run(context.Background(), a, 10)

	assert.Equal(t, 2, r.Attempted)
	assert.Equal(t, 0, r.Succeeded)
	assert.Equal(t, 0, r.Skipped)
	assert.Equal(t, 2, r.Errors)
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a := &stubAdapter{source: "stub", pages: map[int][]string{1: {"https://stub.test/1"}}}
	o, _ := newTestOrchestrator(newCountingGate())

	r := o.Run(ctx, a, 10)

	assert.Empty(t, a.listCalls)
	assert.Equal(t, 0, r.Attempted)
	assert.False(t, r.Finished.IsZero())
}

func TestRun_ZeroTarget(t *testing.T) {
	a := &stubAdapter{source: "stub", endless: true}
	o, _ := newTestOrchestrator(newCountingGate())

	r := o.Run(context.Background(), a, 0)

	assert.Empty(t, a.listCalls)
	assert.Equal(t, 0, r.Attempted)
}

func TestRunAll_ReportsInAdapterOrder(t *testing.T) {
	s := store.NewMemoryStore()
	o := NewOrchestrator(dedup.NewGate(s, nil, nil), Config{})

	adapters := []*stubAdapter{
		{source: "first", pages: map[int][]string{1: {"https://one.test/1", "https://one.test/2"}}},
		{source: "second", pages: map[int][]string{1: {"https://two.test/1"}}},
	}
	reports := o.RunAll(context.Background(), toAdapters(adapters), 10)

	require.Len(t, reports, 2)
	assert.Equal(t, domain.JobSource("first"), reports[0].Source)
	assert.Equal(t, 2, reports[0].Succeeded)
	assert.Equal(t, domain.JobSource("second"), reports[1].Source)
	assert.Equal(t, 1, reports[1].Succeeded)
	assert.Equal(t, 3, s.Len())
}

func TestNewOrchestrator_Defaults(t *testing.T) {
	o := NewOrchestrator(failingGate{}, Config{PageDelay: -1, DetailDelay: -1})
	assert.Equal(t, DefaultMaxPages, o.config.MaxPages)
	assert.Equal(t, DefaultPageDelay, o.config.PageDelay)
	assert.Equal(t, DefaultDetailDelay, o.config.DetailDelay)
}

func TestSleepContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
	assert.NoError(t, sleepContext(context.Background(), 0))
}

func TestRun_NilPostingCountsAsFailure(t *testing.T) {
	a := &nilAdapter{stubAdapter{source: "stub", pages: map[int][]string{1: {"https://stub.test/1"}}}}
	g := newCountingGate()
	o, _ := newTestOrchestrator(g)

	r := o.Run(context.Background(), a, 10)

	assert.Equal(t, 1, r.Attempted)
	assert.Equal(t, 1, r.Failed)
	assert.Equal(t, 0, r.Succeeded)
	assert.Equal(t, 0, g.calls)
}

func TestRunAll_SerializesAdaptersSharingAHost(t *testing.T) {
	s := store.NewMemoryStore()
	o := NewOrchestrator(dedup.NewGate(s, nil, nil), Config{})

	var sharedActive, sharedPeak, otherActive, otherPeak atomic.Int32
	var mu sync.Mutex
	adapters := []module.Adapter{
		&hostAdapter{source: "arbeidsplassen", host: "nav.test", urls: []string{"https://nav.test/a/1", "https://nav.test/a/2"},
			active: &sharedActive, peak: &sharedPeak, mu: &mu},
		&hostAdapter{source: "picking", host: "picking.test", urls: []string{"https://picking.test/1"},
			active: &otherActive, peak: &otherPeak, mu: &mu},
		&hostAdapter{source: "navno", host: "nav.test", urls: []string{"https://nav.test/b/1", "https://nav.test/b/2"},
			active: &sharedActive, peak: &sharedPeak, mu: &mu},
	}

	reports := o.RunAll(context.Background(), adapters, 10)

	require.Len(t, reports, 3)
	assert.Equal(t, domain.JobSource("arbeidsplassen"), reports[0].Source)
	assert.Equal(t, domain.JobSource("picking"), reports[1].Source)
	assert.Equal(t, domain.JobSource("navno"), reports[2].Source)
	assert.Equal(t, int32(1), sharedPeak.Load())
	assert.Equal(t, 5, s.Len())
}

func TestHostKey(t *testing.T) {
	assert.Equal(t, "nav.test", hostKey(&hostAdapter{source: "x", host: "nav.test"}))
	assert.Equal(t, "source:x", hostKey(&hostAdapter{source: "x"}))
	assert.Equal(t, "source:stub", hostKey(&stubAdapter{source: "stub"}))
}
