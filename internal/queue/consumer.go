package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/horizontego/job-ingest/internal/domain"
	"github.com/redis/go-redis/v9"
)

// Consumer pops postings from a Redis list
type Consumer struct {
	client    *redis.Client
	queueName string
	timeout   time.Duration
}

// NewConsumer creates a new queue consumer
func NewConsumer(client *redis.Client, queueName string, timeout time.Duration) *Consumer {
	if queueName == "" {
		queueName = DefaultQueue
	}
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &Consumer{
		client:    client,
		queueName: queueName,
		timeout:   timeout,
	}
}

// ConsumeBatch returns up to maxBatch postings.
// BRPOP blocks for the first item, RPOP drains the rest without waiting.
func (c *Consumer) ConsumeBatch(ctx context.Context, maxBatch int) ([]*domain.Posting, error) {
	raw := make([]string, 0, maxBatch)

	result, err := c.client.BRPop(ctx, c.timeout, c.queueName).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("brpop: %w", err)
	}
	if len(result) >= 2 {
		raw = append(raw, result[1])
	}

	for len(raw) < maxBatch {
		item, err := c.client.RPop(ctx, c.queueName).Result()
		if errors.Is(err, redis.Nil) {
			break
		}
		if err != nil {
			return decodePostings(raw), fmt.Errorf("rpop: %w", err)
		}
		raw = append(raw, item)
	}

	return decodePostings(raw), nil
}

// decodePostings unmarshals queue items, skipping malformed ones
func decodePostings(raw []string) []*domain.Posting {
	postings := make([]*domain.Posting, 0, len(raw))
	for _, item := range raw {
		var p domain.Posting
		if err := json.Unmarshal([]byte(item), &p); err != nil {
			log.Printf("[Queue] Skipping malformed item: %v", err)
			continue
		}
		postings = append(postings, &p)
	}
	return postings
}
