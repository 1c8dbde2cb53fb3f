package normalizer

import (
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/horizontego/job-ingest/internal/common/cleaner"
	"github.com/horizontego/job-ingest/internal/domain"
)

var stillingIDPattern = regexp.MustCompile(`/stilling/([a-f0-9-]+)`)

// Normalizer brings adapter output into the canonical Posting shape
type Normalizer struct {
	cleaner *cleaner.Cleaner
}

// NewNormalizer creates a new normalizer
func NewNormalizer(c *cleaner.Cleaner) *Normalizer {
	if c == nil {
		c = cleaner.NewCleaner()
	}
	return &Normalizer{cleaner: c}
}

// Normalize cleans text fields in place and derives the external id.
// It never fills a field the adapter left empty.
func (n *Normalizer) Normalize(p *domain.Posting) {
	p.ExternalURL = strings.TrimSpace(p.ExternalURL)

	p.Title = n.cleaner.CleanToText(p.Title)
	p.Company = n.cleaner.CleanToText(p.Company)
	p.Location = n.cleaner.CleanToText(p.Location)
	p.Description = n.cleaner.CleanToText(p.Description)
	p.Salary = n.cleaner.CleanToText(p.Salary)

	p.Requirements = n.cleaner.CleanList(p.Requirements)
	p.Tasks = n.cleaner.CleanList(p.Tasks)
	p.Benefits = n.cleaner.CleanList(p.Benefits)

	for k, v := range p.Details {
		if t := n.cleaner.CleanToText(v); t != "" {
			p.Details[k] = t
		} else {
			delete(p.Details, k)
		}
	}
	if len(p.Details) == 0 {
		p.Details = nil
	}

	if p.ExternalID == "" {
		p.ExternalID = ExternalID(p.SourceName, p.ExternalURL)
	}
}

// ExternalID extracts the site-specific posting id from its URL
func ExternalID(sourceName, rawURL string) string {
	switch sourceName {
	case domain.NameArbeidsplassen, domain.NameNavNo:
		if m := stillingIDPattern.FindStringSubmatch(rawURL); len(m) > 1 {
			return m[1]
		}
		return ""
	default:
		u, err := url.Parse(rawURL)
		if err != nil {
			return ""
		}
		last := path.Base(strings.TrimRight(u.Path, "/"))
		if last == "." || last == "/" {
			return ""
		}
		return strings.TrimSuffix(last, path.Ext(last))
	}
}
