package extractor

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExtractLinks returns the distinct absolute URLs of every anchor whose
// resolved URL matches pattern, in first-seen order
func ExtractLinks(doc *goquery.Document, base *url.URL, pattern *regexp.Regexp) []string {
	seen := make(map[string]bool)
	var links []string

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		abs, ok := ResolveURL(base, href)
		if !ok || !pattern.MatchString(abs) || seen[abs] {
			return
		}
		seen[abs] = true
		links = append(links, abs)
	})

	return links
}

// ResolveURL makes href absolute against base and drops the fragment
func ResolveURL(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	abs := base.ResolveReference(ref)
	abs.Fragment = ""
	return abs.String(), true
}

// PageURLFunc builds the listing URL for a 1-based page number
type PageURLFunc func(page int) string

// HTTPLister lists detail URLs from server-rendered listing pages
type HTTPLister struct {
	fetcher *HTTPFetcher
	base    *url.URL
	pageURL PageURLFunc
	pattern *regexp.Regexp
}

// NewHTTPLister creates a lister that fetches pageURL(n) over plain HTTP and
// keeps links matching pattern
func NewHTTPLister(fetcher *HTTPFetcher, baseURL string, pageURL PageURLFunc, pattern *regexp.Regexp) (*HTTPLister, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	return &HTTPLister{
		fetcher: fetcher,
		base:    base,
		pageURL: pageURL,
		pattern: pattern,
	}, nil
}

// ListPage fetches one listing page and returns its detail URLs
func (l *HTTPLister) ListPage(ctx context.Context, page int) ([]string, error) {
	doc, _, err := l.fetcher.FetchDocument(ctx, l.pageURL(page))
	if err != nil {
		return nil, fmt.Errorf("fetch listing page %d: %w", page, err)
	}
	return ExtractLinks(doc, l.base, l.pattern), nil
}
