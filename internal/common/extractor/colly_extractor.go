package extractor

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
)

// CollyExtractor lists and downloads pages with Colly
type CollyExtractor struct {
	collector *colly.Collector
	config    ExtractorConfig
	linkSel   string
	pageURL   PageURLFunc
	pattern   *regexp.Regexp
}

// NewCollyExtractor creates a Colly-backed lister. linkSelector picks the
// anchors on a listing page; pattern filters their absolute URLs.
func NewCollyExtractor(linkSelector string, pageURL PageURLFunc, pattern *regexp.Regexp, config ExtractorConfig) *CollyExtractor {
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	c := colly.NewCollector(
		colly.UserAgent(config.UserAgent),
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(config.Timeout)

	if config.ProxyURL != "" {
		c.SetProxy(config.ProxyURL)
	}

	return &CollyExtractor{
		collector: c,
		config:    config,
		linkSel:   linkSelector,
		pageURL:   pageURL,
		pattern:   pattern,
	}
}

// ListPage visits one listing page and returns its distinct detail URLs
func (e *CollyExtractor) ListPage(ctx context.Context, page int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var links []string
	var extractErr error
	seen := make(map[string]bool)

	collector := e.collector.Clone()

	collector.OnHTML(e.linkSel, func(el *colly.HTMLElement) {
		link := el.Request.AbsoluteURL(el.Attr("href"))
		if link == "" || seen[link] {
			return
		}
		if e.pattern != nil && !e.pattern.MatchString(link) {
			return
		}
		seen[link] = true
		links = append(links, link)
	})

	collector.OnError(func(r *colly.Response, err error) {
		extractErr = fmt.Errorf("colly error: %w (status: %d)", err, r.StatusCode)
	})

	if err := collector.Visit(e.pageURL(page)); err != nil {
		return nil, fmt.Errorf("visit list url: %w", err)
	}

	if extractErr != nil {
		return nil, extractErr
	}

	return links, nil
}

// FetchDocument visits a detail page and parses the response body
func (e *CollyExtractor) FetchDocument(ctx context.Context, pageURL string) (*goquery.Document, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	var body []byte
	var extractErr error

	collector := e.collector.Clone()

	collector.OnResponse(func(r *colly.Response) {
		body = r.Body
	})

	collector.OnError(func(r *colly.Response, err error) {
		extractErr = fmt.Errorf("colly error: %w (status: %d)", err, r.StatusCode)
	})

	if err := collector.Visit(pageURL); err != nil {
		return nil, "", fmt.Errorf("visit url: %w", err)
	}

	if extractErr != nil {
		return nil, "", extractErr
	}

	if body == nil {
		return nil, "", fmt.Errorf("no data extracted from %s", pageURL)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, "", fmt.Errorf("parse html: %w", err)
	}

	return doc, string(body), nil
}
