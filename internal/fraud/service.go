package fraud

import (
	"context"
	"fmt"

	"github.com/horizontego/job-ingest/internal/common/store"
	"github.com/horizontego/job-ingest/internal/domain"
)

// JobReader loads stored postings
type JobReader interface {
	Get(ctx context.Context, id int64) (*domain.Posting, error)
	Search(ctx context.Context, f store.Filter) ([]*domain.Posting, error)
}

// Report is the answer to a fraud check query
type Report struct {
	JobID int64  `json:"jobId"`
	Title string `json:"title"`
	Result
	Summary string `json:"summary"`
}

// Service scores stored postings on demand. Nothing is cached or persisted.
type Service struct {
	jobs   JobReader
	engine *Engine
}

// NewService creates a service; a nil engine uses the default rules
func NewService(jobs JobReader, engine *Engine) *Service {
	if engine == nil {
		engine = defaultEngine
	}
	return &Service{jobs: jobs, engine: engine}
}

// Check loads posting id and scores it. Store errors, including
// store.ErrNotFound, are returned wrapped.
func (s *Service) Check(ctx context.Context, id int64) (Report, error) {
	p, err := s.jobs.Get(ctx, id)
	if err != nil {
		return Report{}, fmt.Errorf("load job %d: %w", id, err)
	}

	return s.report(p), nil
}

// CheckMatching scores every stored posting matching f, in store order
func (s *Service) CheckMatching(ctx context.Context, f store.Filter) ([]Report, error) {
	postings, err := s.jobs.Search(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("search jobs: %w", err)
	}

	reports := make([]Report, 0, len(postings))
	for _, p := range postings {
		reports = append(reports, s.report(p))
	}
	return reports, nil
}

func (s *Service) report(p *domain.Posting) Report {
	result := s.engine.Score(p)
	return Report{
		JobID:   p.ID,
		Title:   p.Title,
		Result:  result,
		Summary: Summary(result),
	}
}
