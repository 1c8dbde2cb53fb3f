package module

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/horizontego/job-ingest/internal/domain"
)

// ErrUnknownSource is returned for a source name no adapter handles
var ErrUnknownSource = errors.New("unknown source")

// Lister returns the detail URLs of one listing page
type Lister interface {
	// ListPage returns distinct absolute URLs in first-seen order.
	// An empty result means there are no more pages.
	ListPage(ctx context.Context, page int) ([]string, error)
}

// Adapter turns one job site into canonical postings
type Adapter interface {
	Lister
	// FetchDetail downloads and parses one posting. Missing fields are left
	// empty; only transport and parse failures are errors.
	FetchDetail(ctx context.Context, url string) (*domain.Posting, error)
	// Source returns the source identifier
	Source() domain.JobSource
}

// HostAdapter is implemented by adapters that can name the host they crawl.
// Adapters reporting the same host are never run at the same time.
type HostAdapter interface {
	Host() string
}

// HostOf returns the lowercased host (with port) of baseURL, or "" when it
// does not parse
func HostOf(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}

// Config holds the settings every adapter takes
type Config struct {
	BaseURL   string
	CountryID int
	UserAgent string
	ProxyURL  string
	Timeout   time.Duration
}

// ParseSource validates a source name given on the command line
func ParseSource(name string) (domain.JobSource, error) {
	for _, s := range domain.Sources {
		if string(s) == name {
			return s, nil
		}
	}
	return "", fmt.Errorf("%q: %w", name, ErrUnknownSource)
}
