package navno

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/horizontego/job-ingest/internal/browser"
	"github.com/horizontego/job-ingest/internal/common/extractor"
	"github.com/horizontego/job-ingest/internal/common/normalizer"
	"github.com/horizontego/job-ingest/internal/domain"
	"github.com/horizontego/job-ingest/internal/module"
	"github.com/horizontego/job-ingest/internal/module/arbeidsplassen"
)

const (
	// DefaultBaseURL serves the client-rendered search of NAV
	DefaultBaseURL = "https://arbeidsplassen.nav.no"

	cardSelector     = `[data-testid="job-posting-card"]`
	cardLinkSelector = `[data-testid="job-posting-card"] h2 a`

	listingTimeout = 60 * time.Second
	detailTimeout  = 30 * time.Second
)

// Rules reads the stable data-testid attributes first and falls back to the
// Norwegian label table
var Rules = append([]extractor.Rule{
	{Relation: extractor.RelSelector, Selector: "h1", Field: extractor.FieldTitle},
	{Relation: extractor.RelSelector, Selector: `[data-testid="company-name"]`, Field: extractor.FieldCompany},
	{Relation: extractor.RelSelector, Selector: `[data-testid="location"]`, Field: extractor.FieldLocation},
	{Relation: extractor.RelSelector, Selector: `[data-testid="job-description"]`, Field: extractor.FieldDescription},
	{Relation: extractor.RelSelectorList, Selector: `[data-testid="job-requirements"]`, Field: extractor.FieldRequirements},
	{Relation: extractor.RelSelector, Selector: `[data-testid="salary"]`, Field: extractor.FieldSalary},
	{Relation: extractor.RelSelector, Selector: `[data-testid="deadline"]`, Field: extractor.FieldDetail, Key: domain.DetailDeadline},
}, arbeidsplassen.Rules...)

// Crawler implements module.Adapter for NAV pages that need a browser
type Crawler struct {
	renderer   browser.Renderer
	base       *url.URL
	normalizer *normalizer.Normalizer
	config     module.Config
	now        func() time.Time
}

// NewCrawler creates a new NAV crawler rendering pages with r
func NewCrawler(r browser.Renderer, cfg module.Config) (*Crawler, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	return &Crawler{
		renderer:   r,
		base:       base,
		normalizer: normalizer.NewNormalizer(nil),
		config:     cfg,
		now:        time.Now,
	}, nil
}

// Host returns the host every request of this crawler goes to
func (c *Crawler) Host() string {
	return module.HostOf(c.config.BaseURL)
}

// Source returns the source identifier
func (c *Crawler) Source() domain.JobSource {
	return domain.SourceNavNo
}

func (c *Crawler) listingURL(page int) string {
	if page <= 1 {
		return c.config.BaseURL + "/stillinger"
	}
	return fmt.Sprintf("%s/stillinger?page=%d", c.config.BaseURL, page)
}

// ListPage renders one search page and collects the posting card links
func (c *Crawler) ListPage(ctx context.Context, page int) ([]string, error) {
	html, err := c.renderer.Render(ctx, browser.Request{
		URL:     c.listingURL(page),
		WaitFor: cardSelector,
		Timeout: listingTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("render listing page %d: %w", page, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse listing page %d: %w", page, err)
	}

	seen := make(map[string]bool)
	var links []string
	doc.Find(cardLinkSelector).Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		abs, ok := extractor.ResolveURL(c.base, href)
		if !ok || seen[abs] {
			return
		}
		seen[abs] = true
		links = append(links, abs)
	})

	return links, nil
}

// FetchDetail renders one posting page and maps it with Rules
func (c *Crawler) FetchDetail(ctx context.Context, pageURL string) (*domain.Posting, error) {
	html, err := c.renderer.Render(ctx, browser.Request{
		URL:     pageURL,
		WaitFor: `[data-testid="job-description"]`,
		Timeout: detailTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", pageURL, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", pageURL, err)
	}

	p := &domain.Posting{
		ExternalURL: pageURL,
		SourceName:  domain.NameNavNo,
		IsVerified:  true,
		CountryID:   c.config.CountryID,
		ScrapedAt:   c.now(),
	}
	extractor.Apply(doc, html, Rules).Fill(p)
	c.normalizer.Normalize(p)

	return p, nil
}
