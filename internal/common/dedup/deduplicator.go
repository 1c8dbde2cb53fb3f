package dedup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SeenCache remembers which posting URLs were already admitted
type SeenCache interface {
	IsSeen(ctx context.Context, source, url string) (bool, error)
	MarkSeen(ctx context.Context, source, url string) error
}

// Deduplicator is a Redis-backed SeenCache
type Deduplicator struct {
	client     *redis.Client
	prefix     string
	defaultTTL time.Duration
}

// NewDeduplicator creates a new Redis-based deduplicator
func NewDeduplicator(client *redis.Client, prefix string, defaultTTL time.Duration) *Deduplicator {
	if prefix == "" {
		prefix = "dedup"
	}
	if defaultTTL == 0 {
		defaultTTL = 24 * time.Hour * 30 // 30 days default
	}
	return &Deduplicator{
		client:     client,
		prefix:     prefix,
		defaultTTL: defaultTTL,
	}
}

// IsSeen checks if a posting URL has been admitted before
func (d *Deduplicator) IsSeen(ctx context.Context, source, url string) (bool, error) {
	exists, err := d.client.Exists(ctx, d.makeKey(source, url)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return exists > 0, nil
}

// MarkSeen records a posting URL with the default TTL
func (d *Deduplicator) MarkSeen(ctx context.Context, source, url string) error {
	err := d.client.Set(ctx, d.makeKey(source, url), time.Now().Unix(), d.defaultTTL).Err()
	if err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (d *Deduplicator) makeKey(source, url string) string {
	return fmt.Sprintf("%s:%s:%s", d.prefix, source, hashURL(url))
}

func hashURL(url string) string {
	h := sha256.Sum256([]byte(url))
	return hex.EncodeToString(h[:16]) // First 16 bytes (32 hex chars)
}
