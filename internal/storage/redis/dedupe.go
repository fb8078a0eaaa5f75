package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sandevgo/replydesk/internal/config"
)

const keyPrefix = "replydesk:webhook:"

// Deduper remembers webhook delivery ids in Redis so retried deliveries are
// answered once.
type Deduper struct {
	client *redis.Client
	ttl    time.Duration
}

func NewDeduper(ctx context.Context, cfg *config.RedisConfig) (*Deduper, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	opts.ReadTimeout = 2 * time.Second
	opts.WriteTimeout = 2 * time.Second
	opts.DialTimeout = 3 * time.Second

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return NewDeduperWithClient(client, cfg.DedupeTTL), nil
}

func NewDeduperWithClient(client *redis.Client, ttl time.Duration) *Deduper {
	return &Deduper{client: client, ttl: ttl}
}

// Seen records key and reports whether it had been recorded before.
func (d *Deduper) Seen(ctx context.Context, key string) (bool, error) {
	created, err := d.client.SetNX(ctx, keyPrefix+key, 1, d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return !created, nil
}

func (d *Deduper) Close() error {
	return d.client.Close()
}

// Nop never reports a duplicate. It stands in when Redis is not configured.
type Nop struct{}

func (Nop) Seen(context.Context, string) (bool, error) { return false, nil }
