package arbeidsplassen

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/horizontego/job-ingest/internal/common/extractor"
	"github.com/horizontego/job-ingest/internal/common/normalizer"
	"github.com/horizontego/job-ingest/internal/domain"
	"github.com/horizontego/job-ingest/internal/module"
)

// DefaultBaseURL is the public job board of the Norwegian labour agency
const DefaultBaseURL = "https://arbeidsplassen.nav.no"

var (
	linkPattern  = regexp.MustCompile(`/stillinger/stilling/[^/?#]+$`)
	emailPattern = regexp.MustCompile(`[\w.-]+@[\w.-]+\.\w+`)
	phonePattern = regexp.MustCompile(`\b\d{8}\b`)
)

// Rules maps the Norwegian detail page onto Posting fields
var Rules = []extractor.Rule{
	{Relation: extractor.RelSelector, Selector: "h1", Field: extractor.FieldTitle},
	{Labels: []string{"Arbeidsgiver"}, Relation: extractor.RelNextSibling, Field: extractor.FieldCompany},
	{Labels: []string{"Sted"}, Relation: extractor.RelNextSibling, Field: extractor.FieldLocation},
	{Labels: []string{"Lønn"}, Relation: extractor.RelNextSibling, Field: extractor.FieldSalary},
	{
		Labels:   []string{"Om stillinga", "Om jobben"},
		Relation: extractor.RelParagraphsAfterHeading,
		Field:    extractor.FieldDescription,
		Skip:     []string{"Stillingstittel", "Oppstart"},
	},
	{Labels: []string{"Kvalifikasjonskrav"}, Relation: extractor.RelListAfterHeading, Field: extractor.FieldRequirements},
	{Labels: []string{"Arbeidsoppgåver", "Arbeidsoppgaver"}, Relation: extractor.RelListAfterHeading, Field: extractor.FieldTasks},
	{Labels: []string{"Vi tilbyr"}, Relation: extractor.RelListAfterHeading, Field: extractor.FieldBenefits},

	// Structured data embedded for search engines, used when the markup moved
	{Relation: extractor.RelJSONLD, Property: extractor.LDTitle, Field: extractor.FieldTitle},
	{Relation: extractor.RelJSONLD, Property: extractor.LDOrganization, Field: extractor.FieldCompany},
	{Relation: extractor.RelJSONLD, Property: extractor.LDLocation, Field: extractor.FieldLocation},
	{Relation: extractor.RelJSONLD, Property: extractor.LDDescription, Field: extractor.FieldDescription},
	{Relation: extractor.RelJSONLD, Property: extractor.LDSalary, Field: extractor.FieldSalary},

	{Labels: []string{"Stillingstittel"}, Relation: extractor.RelNextSibling, Field: extractor.FieldDetail, Key: domain.DetailJobTitle},
	{Labels: []string{"Oppstart"}, Relation: extractor.RelNextSibling, Field: extractor.FieldDetail, Key: domain.DetailStartDate},
	{Labels: []string{"Type ansettelse"}, Relation: extractor.RelNextSibling, Field: extractor.FieldDetail, Key: domain.DetailEmploymentType},
	{Labels: []string{"Arbeidstid"}, Relation: extractor.RelNextSibling, Field: extractor.FieldDetail, Key: domain.DetailWorkHours},
	{Labels: []string{"Arbeidsspråk"}, Relation: extractor.RelNextSibling, Field: extractor.FieldDetail, Key: domain.DetailLanguage},
	{Labels: []string{"Antall stillinger"}, Relation: extractor.RelNextSibling, Field: extractor.FieldDetail, Key: domain.DetailPositions},
	{Labels: []string{"Hjemmekontor"}, Relation: extractor.RelNextSibling, Field: extractor.FieldDetail, Key: domain.DetailRemoteWork},
	{Labels: []string{"Søk senest"}, Relation: extractor.RelNextSibling, Field: extractor.FieldDetail, Key: domain.DetailDeadline},
	{Labels: []string{"Send søknad til"}, Relation: extractor.RelNextSibling, Field: extractor.FieldDetail, Key: domain.DetailApplyTo},
	{Labels: []string{"Sektor"}, Relation: extractor.RelNextSibling, Field: extractor.FieldDetail, Key: domain.DetailSector},
	{Relation: extractor.RelJSONLD, Property: extractor.LDValidThrough, Field: extractor.FieldDetail, Key: domain.DetailDeadline},
	{Relation: extractor.RelJSONLD, Property: extractor.LDEmploymentType, Field: extractor.FieldDetail, Key: domain.DetailEmploymentType},

	{Relation: extractor.RelRegexInBody, Pattern: emailPattern, Field: extractor.FieldDetail, Key: domain.DetailContactEmail},
	{Relation: extractor.RelRegexInBody, Pattern: phonePattern, Field: extractor.FieldDetail, Key: domain.DetailContactPhone},
}

// Crawler implements module.Adapter for arbeidsplassen.nav.no
type Crawler struct {
	lister     *extractor.HTTPLister
	fetcher    *extractor.HTTPFetcher
	normalizer *normalizer.Normalizer
	config     module.Config
	now        func() time.Time
}

// NewCrawler creates a new arbeidsplassen crawler
func NewCrawler(cfg module.Config) (*Crawler, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	fetcher := extractor.NewHTTPFetcher(extractor.ExtractorConfig{
		UserAgent: cfg.UserAgent,
		ProxyURL:  cfg.ProxyURL,
		Timeout:   cfg.Timeout,
	})

	lister, err := extractor.NewHTTPLister(fetcher, cfg.BaseURL, listingURL(cfg.BaseURL), linkPattern)
	if err != nil {
		return nil, fmt.Errorf("arbeidsplassen lister: %w", err)
	}

	return &Crawler{
		lister:     lister,
		fetcher:    fetcher,
		normalizer: normalizer.NewNormalizer(nil),
		config:     cfg,
		now:        time.Now,
	}, nil
}

func listingURL(baseURL string) extractor.PageURLFunc {
	return func(page int) string {
		if page <= 1 {
			return baseURL + "/stillinger"
		}
		return fmt.Sprintf("%s/stillinger?page=%d", baseURL, page)
	}
}

// Host returns the host every request of this crawler goes to
func (c *Crawler) Host() string {
	return module.HostOf(c.config.BaseURL)
}

// Source returns the source identifier
func (c *Crawler) Source() domain.JobSource {
	return domain.SourceArbeidsplassen
}

// ListPage returns the posting URLs of one search result page
func (c *Crawler) ListPage(ctx context.Context, page int) ([]string, error) {
	return c.lister.ListPage(ctx, page)
}

// FetchDetail downloads one posting page and maps it with Rules
func (c *Crawler) FetchDetail(ctx context.Context, url string) (*domain.Posting, error) {
	doc, body, err := c.fetcher.FetchDocument(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}

	p := &domain.Posting{
		ExternalURL: url,
		SourceName:  domain.NameArbeidsplassen,
		IsVerified:  true,
		CountryID:   c.config.CountryID,
		ScrapedAt:   c.now(),
	}
	extractor.Apply(doc, body, Rules).Fill(p)
	c.normalizer.Normalize(p)

	return p, nil
}
