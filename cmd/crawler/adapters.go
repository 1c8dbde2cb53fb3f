package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/horizontego/job-ingest/internal/browser"
	"github.com/horizontego/job-ingest/internal/common/store"
	"github.com/horizontego/job-ingest/internal/config"
	"github.com/horizontego/job-ingest/internal/domain"
	"github.com/horizontego/job-ingest/internal/module"
	"github.com/horizontego/job-ingest/internal/module/arbeidsplassen"
	"github.com/horizontego/job-ingest/internal/module/navno"
	"github.com/horizontego/job-ingest/internal/module/pickingjobs"
)

// selectSources parses the -source flag; empty means every source
func selectSources(flag string) ([]domain.JobSource, error) {
	if strings.TrimSpace(flag) == "" {
		return domain.Sources, nil
	}

	var sources []domain.JobSource
	seen := make(map[domain.JobSource]bool)
	for _, name := range strings.Split(flag, ",") {
		s, err := module.ParseSource(strings.TrimSpace(name))
		if err != nil {
			return nil, err
		}
		if !seen[s] {
			seen[s] = true
			sources = append(sources, s)
		}
	}
	return sources, nil
}

// buildAdapters creates one adapter per source, resolving each country once
func buildAdapters(
	ctx context.Context,
	cfg *config.Config,
	countries store.CountryResolver,
	renderer browser.Renderer,
	sources []domain.JobSource,
) ([]module.Adapter, error) {
	adapters := make([]module.Adapter, 0, len(sources))

	for _, s := range sources {
		sc, ok := cfg.Sources[s]
		if !ok {
			return nil, fmt.Errorf("%s: %w", s, module.ErrUnknownSource)
		}

		countryID, err := countries.ResolveCountry(ctx, sc.CountryCode)
		if err != nil {
			return nil, fmt.Errorf("resolve country %s for %s: %w", sc.CountryCode, s, err)
		}

		mc := module.Config{
			BaseURL:   sc.BaseURL,
			CountryID: countryID,
			UserAgent: cfg.Crawler.UserAgent,
			ProxyURL:  cfg.Crawler.ProxyURL,
			Timeout:   cfg.Crawler.Timeout,
		}

		var a module.Adapter
		switch s {
		case domain.SourceArbeidsplassen:
			a, err = arbeidsplassen.NewCrawler(mc)
		case domain.SourceNavNo:
			a, err = navno.NewCrawler(renderer, mc)
		case domain.SourcePickingJobs:
			a, err = pickingjobs.NewCrawler(mc)
		default:
			err = module.ErrUnknownSource
		}
		if err != nil {
			return nil, fmt.Errorf("build %s: %w", s, err)
		}
		adapters = append(adapters, a)
	}

	return adapters, nil
}
