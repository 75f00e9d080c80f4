package service

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// EventDeduper remembers provider event ids that were fully processed so a
// redelivered webhook can be answered without touching the database.  Mark
// is only called after the event's writes committed.
type EventDeduper interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Mark(ctx context.Context, eventID string) error
}

// RedisDeduper implements EventDeduper with plain keys and a TTL.
type RedisDeduper struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisDeduper returns nil when rdb is nil, which disables
// de-duplication; the status guards still keep settlement idempotent.
func NewRedisDeduper(rdb *redis.Client, prefix string, ttl time.Duration) *RedisDeduper {
	if rdb == nil {
		return nil
	}
	if prefix == "" {
		prefix = "whevt"
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisDeduper{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (d *RedisDeduper) key(eventID string) string { return d.prefix + ":" + eventID }

// Seen reports whether eventID was marked.  A nil deduper has seen nothing.
func (d *RedisDeduper) Seen(ctx context.Context, eventID string) (bool, error) {
	if d == nil {
		return false, nil
	}
	n, err := d.rdb.Exists(ctx, d.key(eventID)).Result()
	return n > 0, err
}

// Mark records eventID as processed.
func (d *RedisDeduper) Mark(ctx context.Context, eventID string) error {
	if d == nil {
		return nil
	}
	return d.rdb.Set(ctx, d.key(eventID), time.Now().UTC().Unix(), d.ttl).Err()
}
