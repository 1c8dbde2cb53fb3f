package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/horizontego/job-ingest/internal/domain"
)

// ElasticsearchIndexer indexes postings to Elasticsearch
type ElasticsearchIndexer struct {
	client    *elasticsearch.Client
	indexName string
}

// NewElasticsearchIndexer creates a new Elasticsearch indexer
func NewElasticsearchIndexer(addresses []string, indexName string) (*ElasticsearchIndexer, error) {
	cfg := elasticsearch.Config{
		Addresses: addresses,
	}

	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create es client: %w", err)
	}

	// Check connection
	res, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("es info: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("es error: %s", res.Status())
	}

	return &ElasticsearchIndexer{
		client:    client,
		indexName: indexName,
	}, nil
}

// document is the indexed shape of a posting
type document struct {
	ID           int64             `json:"id"`
	Title        string            `json:"title,omitempty"`
	Company      string            `json:"company,omitempty"`
	Location     string            `json:"location,omitempty"`
	Description  string            `json:"description,omitempty"`
	Requirements []string          `json:"requirements,omitempty"`
	Tasks        []string          `json:"tasks,omitempty"`
	Benefits     []string          `json:"benefits,omitempty"`
	Salary       string            `json:"salary,omitempty"`
	SourceName   string            `json:"source_name"`
	ExternalURL  string            `json:"external_url"`
	ExternalID   string            `json:"external_id,omitempty"`
	CountryID    int               `json:"country_id"`
	IsVerified   bool              `json:"is_verified"`
	Details      map[string]string `json:"details,omitempty"`
	ScrapedAt    *time.Time        `json:"scraped_at,omitempty"`
}

func newDocument(p *domain.Posting) document {
	d := document{
		ID:           p.ID,
		Title:        p.Title,
		Company:      p.Company,
		Location:     p.Location,
		Description:  p.Description,
		Requirements: p.Requirements,
		Tasks:        p.Tasks,
		Benefits:     p.Benefits,
		Salary:       p.Salary,
		SourceName:   p.SourceName,
		ExternalURL:  p.ExternalURL,
		ExternalID:   p.ExternalID,
		CountryID:    p.CountryID,
		IsVerified:   p.IsVerified,
		Details:      p.Details,
	}
	if !p.ScrapedAt.IsZero() {
		t := p.ScrapedAt
		d.ScrapedAt = &t
	}
	return d
}

// buildBulkBody renders the NDJSON body of a bulk request.
// Postings without a store id are skipped.
func buildBulkBody(indexName string, postings []*domain.Posting) ([]byte, int) {
	var buf bytes.Buffer
	count := 0

	for _, p := range postings {
		if p.ID == 0 {
			log.Printf("[Indexer] Skipping unsaved posting %s", p.ExternalURL)
			continue
		}

		meta := map[string]any{
			"index": map[string]any{
				"_index": indexName,
				"_id":    strconv.FormatInt(p.ID, 10),
			},
		}
		metaBytes, _ := json.Marshal(meta)

		docBytes, err := json.Marshal(newDocument(p))
		if err != nil {
			log.Printf("[Indexer] Marshal posting %d: %v", p.ID, err)
			continue
		}

		buf.Write(metaBytes)
		buf.WriteByte('\n')
		buf.Write(docBytes)
		buf.WriteByte('\n')
		count++
	}

	return buf.Bytes(), count
}

// BulkIndex indexes multiple postings at once
func (i *ElasticsearchIndexer) BulkIndex(ctx context.Context, postings []*domain.Posting) error {
	body, count := buildBulkBody(i.indexName, postings)
	if count == 0 {
		return nil
	}

	res, err := i.client.Bulk(bytes.NewReader(body), i.client.Bulk.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("bulk request: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("bulk error: %s", res.Status())
	}

	// Parse response to check for individual errors
	var bulkRes struct {
		Errors bool `json:"errors"`
		Items  []struct {
			Index struct {
				ID     string `json:"_id"`
				Status int    `json:"status"`
				Error  struct {
					Type   string `json:"type"`
					Reason string `json:"reason"`
				} `json:"error"`
			} `json:"index"`
		} `json:"items"`
	}

	if err := json.NewDecoder(res.Body).Decode(&bulkRes); err != nil {
		return fmt.Errorf("parse bulk response: %w", err)
	}

	if bulkRes.Errors {
		for _, item := range bulkRes.Items {
			if item.Index.Status >= 400 {
				log.Printf("[Indexer] Bulk index error for %s: %s - %s",
					item.Index.ID, item.Index.Error.Type, item.Index.Error.Reason)
			}
		}
	}

	return nil
}

// EnsureIndex creates the index with accent-folding analysis if it doesn't exist
func (i *ElasticsearchIndexer) EnsureIndex(ctx context.Context) error {
	res, err := i.client.Indices.Exists([]string{i.indexName}, i.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	res.Body.Close()

	if res.StatusCode == 200 {
		return nil
	}

	// asciifolding lets "baer" match "bær" and "acai" match "açaí"
	mapping := `{
		"settings": {
			"analysis": {
				"analyzer": {
					"folding_analyzer": {
						"type": "custom",
						"tokenizer": "standard",
						"filter": ["lowercase", "asciifolding"]
					}
				}
			}
		},
		"mappings": {
			"properties": {
				"id": {"type": "long"},
				"title": {
					"type": "text",
					"analyzer": "folding_analyzer",
					"fields": {"keyword": {"type": "keyword"}}
				},
				"company": {"type": "text", "analyzer": "folding_analyzer"},
				"location": {
					"type": "text",
					"analyzer": "folding_analyzer",
					"fields": {"keyword": {"type": "keyword"}}
				},
				"description": {"type": "text", "analyzer": "folding_analyzer"},
				"requirements": {"type": "text", "analyzer": "folding_analyzer"},
				"tasks": {"type": "text", "analyzer": "folding_analyzer"},
				"benefits": {"type": "text", "analyzer": "folding_analyzer"},
				"salary": {"type": "text", "fields": {"keyword": {"type": "keyword"}}},
				"source_name": {"type": "keyword"},
				"external_url": {"type": "keyword"},
				"external_id": {"type": "keyword"},
				"country_id": {"type": "integer"},
				"is_verified": {"type": "boolean"},
				"details": {"type": "flattened"},
				"scraped_at": {"type": "date"}
			}
		}
	}`

	res, err = i.client.Indices.Create(
		i.indexName,
		i.client.Indices.Create.WithBody(bytes.NewReader([]byte(mapping))),
		i.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("create index error: %s", res.Status())
	}

	return nil
}
