package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/horizontego/job-ingest/internal/domain"
	"github.com/redis/go-redis/v9"
)

// DefaultQueue carries postings newly admitted to the store
const DefaultQueue = "jobs:new"

// Publisher pushes postings to a Redis list
type Publisher struct {
	client    *redis.Client
	queueName string
}

// NewPublisher creates a new queue publisher
func NewPublisher(client *redis.Client, queueName string) *Publisher {
	if queueName == "" {
		queueName = DefaultQueue
	}
	return &Publisher{
		client:    client,
		queueName: queueName,
	}
}

// Publish pushes a single posting to the queue
func (p *Publisher) Publish(ctx context.Context, posting *domain.Posting) error {
	data, err := json.Marshal(posting)
	if err != nil {
		return fmt.Errorf("marshal posting: %w", err)
	}

	if err := p.client.LPush(ctx, p.queueName, data).Err(); err != nil {
		return fmt.Errorf("lpush: %w", err)
	}

	return nil
}

// PublishBatch pushes multiple postings in one pipeline
func (p *Publisher) PublishBatch(ctx context.Context, postings []*domain.Posting) error {
	if len(postings) == 0 {
		return nil
	}

	pipe := p.client.Pipeline()
	for _, posting := range postings {
		data, err := json.Marshal(posting)
		if err != nil {
			return fmt.Errorf("marshal posting: %w", err)
		}
		pipe.LPush(ctx, p.queueName, data)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("pipeline exec: %w", err)
	}

	return nil
}

// QueueLength returns the current queue length
func (p *Publisher) QueueLength(ctx context.Context) (int64, error) {
	return p.client.LLen(ctx, p.queueName).Result()
}
