// Package cache stores computed availability views in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL bounds how long a computed view may be served.
const DefaultTTL = 2 * time.Minute

const (
	defaultPrefix           = "gencare:availability"
	defaultGenerationPrefix = "gencare:availability-gen"
	scanBatch               = 100
)

// AvailabilityCache keeps JSON encoded views under
// <prefix>:<consultant>:<generation>:<view>:<date>.
//
// Every consultant owns a generation counter stored outside the view
// keyspace. Readers learn the current generation on Load and hand it back to
// Store, and InvalidateConsultant bumps it before deleting, so a view computed
// from data read before a write lands under a generation nobody reads again.
type AvailabilityCache struct {
	client    *redis.Client
	ttl       time.Duration
	prefix    string
	genPrefix string
}

// NewAvailabilityCache wraps client. A non-positive ttl falls back to DefaultTTL.
func NewAvailabilityCache(client *redis.Client, ttl time.Duration) *AvailabilityCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &AvailabilityCache{client: client, ttl: ttl, prefix: defaultPrefix, genPrefix: defaultGenerationPrefix}
}

func (c *AvailabilityCache) key(consultantID string, generation int64, view, date string) string {
	return fmt.Sprintf("%s:%s:%d:%s:%s", c.prefix, consultantID, generation, view, date)
}

func (c *AvailabilityCache) generationKey(consultantID string) string {
	return fmt.Sprintf("%s:%s", c.genPrefix, consultantID)
}

func (c *AvailabilityCache) generation(ctx context.Context, consultantID string) (int64, error) {
	gen, err := c.client.Get(ctx, c.generationKey(consultantID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("cache generation: %w", err)
	}
	return gen, nil
}

// Load decodes the view cached under the consultant's current generation into
// dest. The generation is returned on a miss too so the caller can Store
// under it; a miss reports false with a nil error.
func (c *AvailabilityCache) Load(ctx context.Context, consultantID, view, date string, dest any) (int64, bool, error) {
	if c == nil || c.client == nil {
		return 0, false, nil
	}
	gen, err := c.generation(ctx, consultantID)
	if err != nil {
		return 0, false, err
	}
	raw, err := c.client.Get(ctx, c.key(consultantID, gen, view, date)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return gen, false, nil
		}
		return gen, false, fmt.Errorf("cache get: %w", err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return gen, false, fmt.Errorf("cache decode: %w", err)
	}
	return gen, true, nil
}

// Store encodes value and writes it under generation with the configured TTL.
func (c *AvailabilityCache) Store(ctx context.Context, consultantID, view, date string, generation int64, value any) error {
	if c == nil || c.client == nil {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	if err := c.client.Set(ctx, c.key(consultantID, generation, view, date), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// InvalidateConsultant advances the consultant's generation and then deletes
// every view stored under an earlier one.
func (c *AvailabilityCache) InvalidateConsultant(ctx context.Context, consultantID string) error {
	if c == nil || c.client == nil {
		return nil
	}
	if err := c.client.Incr(ctx, c.generationKey(consultantID)).Err(); err != nil {
		return fmt.Errorf("cache generation bump: %w", err)
	}

	// Deleting while the cursor is live lets SCAN skip keys, so the whole
	// keyspace walk finishes first.
	pattern := fmt.Sprintf("%s:%s:*", c.prefix, consultantID)
	var keys []string
	iter := c.client.Scan(ctx, 0, pattern, scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache scan: %w", err)
	}

	for start := 0; start < len(keys); start += scanBatch {
		end := min(start+scanBatch, len(keys))
		if err := c.client.Del(ctx, keys[start:end]...).Err(); err != nil {
			return fmt.Errorf("cache delete: %w", err)
		}
	}
	return nil
}

// Ping reports whether Redis is reachable.
func (c *AvailabilityCache) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Ping(ctx).Err()
}
