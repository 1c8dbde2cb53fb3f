package ingest

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/horizontego/job-ingest/internal/common/dedup"
	"github.com/horizontego/job-ingest/internal/domain"
	"github.com/horizontego/job-ingest/internal/module"
)

const (
	DefaultMaxPages    = 5
	DefaultPageDelay   = 1 * time.Second
	DefaultDetailDelay = 2 * time.Second
)

// Gate decides whether a parsed posting is stored
type Gate interface {
	Admit(ctx context.Context, p *domain.Posting) (dedup.Outcome, error)
}

// Config holds orchestrator settings
type Config struct {
	MaxPages    int
	PageDelay   time.Duration
	DetailDelay time.Duration
}

// RunReport summarizes one adapter run
type RunReport struct {
	Source       domain.JobSource
	Attempted    int
	Succeeded    int
	Skipped      int
	Failed       int
	Errors       int
	PagesVisited int
	Started      time.Time
	Finished     time.Time
}

func (r RunReport) String() string {
	return fmt.Sprintf("%s: attempted=%d succeeded=%d skipped=%d failed=%d errors=%d pages=%d in %s",
		r.Source, r.Attempted, r.Succeeded, r.Skipped, r.Failed, r.Errors, r.PagesVisited,
		r.Finished.Sub(r.Started).Round(time.Millisecond))
}

// Orchestrator drives adapters through collect, fetch and persist
type Orchestrator struct {
	gate   Gate
	config Config
	sleep  func(ctx context.Context, d time.Duration) error
	now    func() time.Time
}

// NewOrchestrator creates an orchestrator. MaxPages <= 0 and negative delays
// take the defaults; a zero delay disables waiting.
func NewOrchestrator(gate Gate, cfg Config) *Orchestrator {
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultMaxPages
	}
	if cfg.PageDelay < 0 {
		cfg.PageDelay = DefaultPageDelay
	}
	if cfg.DetailDelay < 0 {
		cfg.DetailDelay = DefaultDetailDelay
	}
	return &Orchestrator{
		gate:   gate,
		config: cfg,
		sleep:  sleepContext,
		now:    time.Now,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Run collects up to target postings from a and passes them through the
// gate. It always returns a report; failures are counted, not returned.
func (o *Orchestrator) Run(ctx context.Context, a module.Adapter, target int) RunReport {
	report := RunReport{Source: a.Source(), Started: o.now()}

	if target <= 0 {
		report.Finished = o.now()
		return report
	}

	log.Printf("[Ingest] %s: collecting up to %d postings", a.Source(), target)

	urls := o.collect(ctx, a, target, &report)
	if len(urls) > target {
		urls = urls[:target]
	}
	log.Printf("[Ingest] %s: %d urls from %d pages", a.Source(), len(urls), report.PagesVisited)

	postings := o.fetch(ctx, a, urls, &report)
	o.persist(ctx, postings, &report)

	report.Finished = o.now()
	log.Printf("[Ingest] %s", report)
	return report
}

// collect pages through the listing until enough unique URLs are found, a
// page is empty or fails, or MaxPages is reached
func (o *Orchestrator) collect(ctx context.Context, l module.Lister, target int, report *RunReport) []string {
	seen := make(map[string]bool)
	var urls []string

	for page := 1; page <= o.config.MaxPages && len(urls) < target; page++ {
		if page > 1 {
			if err := o.sleep(ctx, o.config.PageDelay); err != nil {
				break
			}
		}
		if ctx.Err() != nil {
			break
		}

		links, err := l.ListPage(ctx, page)
		report.PagesVisited++
		if err != nil {
			log.Printf("[Ingest] %s: listing page %d failed, stopping collection: %v", report.Source, page, err)
			break
		}
		if len(links) == 0 {
			break
		}

		for _, u := range links {
			if seen[u] {
				continue
			}
			seen[u] = true
			urls = append(urls, u)
		}
	}

	return urls
}

// fetch downloads each detail page in order, one at a time
func (o *Orchestrator) fetch(ctx context.Context, a module.Adapter, urls []string, report *RunReport) []*domain.Posting {
	postings := make([]*domain.Posting, 0, len(urls))

	for i, u := range urls {
		if ctx.Err() != nil {
			break
		}

		report.Attempted++
		p, err := a.FetchDetail(ctx, u)
		switch {
		case err != nil:
			report.Failed++
			log.Printf("[Ingest] %s: detail %s failed: %v", report.Source, u, err)
		case p == nil:
			report.Failed++
			log.Printf("[Ingest] %s: detail %s returned no posting", report.Source, u)
		default:
			postings = append(postings, p)
		}

		if i < len(urls)-1 {
			if err := o.sleep(ctx, o.config.DetailDelay); err != nil {
				break
			}
		}
	}

	return postings
}

func (o *Orchestrator) persist(ctx context.Context, postings []*domain.Posting, report *RunReport) {
	for _, p := range postings {
		if ctx.Err() != nil {
			return
		}

		outcome, err := o.gate.Admit(ctx, p)
		switch outcome {
		case dedup.Inserted:
			report.Succeeded++
		case dedup.Duplicate:
			report.Skipped++
		default:
			report.Errors++
			log.Printf("[Ingest] %s: store %s failed: %v", report.Source, p.ExternalURL, err)
		}
	}
}

// RunAll runs adapters concurrently and returns the reports in adapter order.
// Adapters that share a host run one after another in the same goroutine.
func (o *Orchestrator) RunAll(ctx context.Context, adapters []module.Adapter, target int) []RunReport {
	reports := make([]RunReport, len(adapters))

	var hosts []string
	byHost := make(map[string][]int)
	for i, a := range adapters {
		key := hostKey(a)
		if _, ok := byHost[key]; !ok {
			hosts = append(hosts, key)
		}
		byHost[key] = append(byHost[key], i)
	}

	var g errgroup.Group
	for _, key := range hosts {
		indexes := byHost[key]
		g.Go(func() error {
			for _, i := range indexes {
				reports[i] = o.Run(ctx, adapters[i], target)
			}
			return nil
		})
	}
	_ = g.Wait()

	return reports
}

func hostKey(a module.Adapter) string {
	if h, ok := a.(module.HostAdapter); ok {
		if host := h.Host(); host != "" {
			return host
		}
	}
	return "source:" + string(a.Source())
}
