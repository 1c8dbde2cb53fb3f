package pickingjobs

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/horizontego/job-ingest/internal/common/extractor"
	"github.com/horizontego/job-ingest/internal/common/normalizer"
	"github.com/horizontego/job-ingest/internal/domain"
	"github.com/horizontego/job-ingest/internal/module"
)

const (
	DefaultBaseURL = "https://www.pickingjobs.com"

	listingLinkSelector = ".farm-listing a, .job-listing a"
)

// Rules maps a farm or job page onto Posting fields
var Rules = []extractor.Rule{
	{Relation: extractor.RelSelector, Selector: ".farm-name, .job-title", Field: extractor.FieldTitle},
	{Relation: extractor.RelSelector, Selector: "h1", Field: extractor.FieldTitle},
	{Relation: extractor.RelSelector, Selector: ".company-name", Field: extractor.FieldCompany},
	{Relation: extractor.RelSelector, Selector: ".location", Field: extractor.FieldLocation},
	{Relation: extractor.RelSelector, Selector: ".description", Field: extractor.FieldDescription},
	{Relation: extractor.RelSelector, Selector: ".salary", Field: extractor.FieldSalary},
	{Labels: []string{"Pay", "Wage"}, Relation: extractor.RelNextSibling, Field: extractor.FieldSalary},
	{Relation: extractor.RelJSONLD, Property: extractor.LDOrganization, Field: extractor.FieldCompany},
	{Relation: extractor.RelJSONLD, Property: extractor.LDLocation, Field: extractor.FieldLocation},
	{Relation: extractor.RelJSONLD, Property: extractor.LDDescription, Field: extractor.FieldDescription},
	{Relation: extractor.RelJSONLD, Property: extractor.LDSalary, Field: extractor.FieldSalary},
	{Labels: []string{"Requirements"}, Relation: extractor.RelListAfterHeading, Field: extractor.FieldRequirements},
	{Labels: []string{"Duties"}, Relation: extractor.RelListAfterHeading, Field: extractor.FieldTasks},
	{Labels: []string{"Benefits", "We offer"}, Relation: extractor.RelListAfterHeading, Field: extractor.FieldBenefits},
	{Labels: []string{"Start date"}, Relation: extractor.RelNextSibling, Field: extractor.FieldDetail, Key: domain.DetailStartDate},
	{Labels: []string{"Positions"}, Relation: extractor.RelNextSibling, Field: extractor.FieldDetail, Key: domain.DetailPositions},
}

// Crawler implements module.Adapter for pickingjobs.com
type Crawler struct {
	extractor  *extractor.CollyExtractor
	normalizer *normalizer.Normalizer
	config     module.Config
	now        func() time.Time
}

// NewCrawler creates a new PickingJobs crawler
func NewCrawler(cfg module.Config) (*Crawler, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	// Listing pages link to ads and partner sites too; keep same-host pages
	pattern := regexp.MustCompile(`^https?://` + regexp.QuoteMeta(base.Host) + `/.+`)

	ext := extractor.NewCollyExtractor(listingLinkSelector, listingURL(cfg.BaseURL), pattern, extractor.ExtractorConfig{
		UserAgent: cfg.UserAgent,
		ProxyURL:  cfg.ProxyURL,
		Timeout:   cfg.Timeout,
	})

	return &Crawler{
		extractor:  ext,
		normalizer: normalizer.NewNormalizer(nil),
		config:     cfg,
		now:        time.Now,
	}, nil
}

func listingURL(baseURL string) extractor.PageURLFunc {
	return func(page int) string {
		if page <= 1 {
			return baseURL + "/"
		}
		return fmt.Sprintf("%s/?page=%d", baseURL, page)
	}
}

// Host returns the host every request of this crawler goes to
func (c *Crawler) Host() string {
	return module.HostOf(c.config.BaseURL)
}

// Source returns the source identifier
func (c *Crawler) Source() domain.JobSource {
	return domain.SourcePickingJobs
}

// ListPage returns the farm and job links of one listing page
func (c *Crawler) ListPage(ctx context.Context, page int) ([]string, error) {
	links, err := c.extractor.ListPage(ctx, page)
	if err != nil {
		return nil, fmt.Errorf("list page %d: %w", page, err)
	}
	return links, nil
}

// FetchDetail downloads one farm or job page and maps it with Rules
func (c *Crawler) FetchDetail(ctx context.Context, pageURL string) (*domain.Posting, error) {
	doc, body, err := c.extractor.FetchDocument(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", pageURL, err)
	}

	p := &domain.Posting{
		ExternalURL: pageURL,
		SourceName:  domain.NamePickingJobs,
		IsVerified:  true,
		CountryID:   c.config.CountryID,
		ScrapedAt:   c.now(),
	}
	extractor.Apply(doc, body, Rules).Fill(p)
	c.normalizer.Normalize(p)

	return p, nil
}
