// Package cache provides a Redis-backed cache for the public trip
// listing, the only read-heavy anonymous endpoint. Entries are keyed by
// the filter combination and invalidated whenever a mutation can change
// which trips are open for booking.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/amodallal/fishing-backend/internal/model"
)

const keyPrefix = "trips:open:"

// TripCache caches open-trip listings. A nil Redis client disables the
// cache entirely; every lookup is then a miss and every store a no-op,
// so the server keeps working without Redis.
type TripCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewTripCache(rdb *redis.Client, ttl time.Duration) *TripCache {
	return &TripCache{rdb: rdb, ttl: ttl}
}

// Key derives the cache key for a filter combination.
func Key(location string, date *time.Time) string {
	d := ""
	if date != nil {
		d = date.UTC().Format("2006-01-02")
	}
	return fmt.Sprintf("%s%s|%s", keyPrefix, strings.ToLower(strings.TrimSpace(location)), d)
}

// GetOpenTrips returns the cached listing for key, or (nil, nil) on a
// miss. Redis errors are reported as misses too; the listing query is
// cheap enough to fall through.
func (c *TripCache) GetOpenTrips(ctx context.Context, key string) ([]model.TripView, error) {
	if c == nil || c.rdb == nil {
		return nil, nil
	}
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		log.Printf("trip-cache: get %s failed: %v", key, err)
		return nil, nil
	}
	var trips []model.TripView
	if err := json.Unmarshal(raw, &trips); err != nil {
		return nil, nil
	}
	return trips, nil
}

// SetOpenTrips stores a listing under key with the configured TTL.
func (c *TripCache) SetOpenTrips(ctx context.Context, key string, trips []model.TripView) {
	if c == nil || c.rdb == nil {
		return
	}
	raw, err := json.Marshal(trips)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		log.Printf("trip-cache: set %s failed: %v", key, err)
	}
}

// Invalidate drops every cached listing. Called after any mutation
// that changes trip openness: create, update, cancel, book.
func (c *TripCache) Invalidate(ctx context.Context) {
	if c == nil || c.rdb == nil {
		return
	}
	iter := c.rdb.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		log.Printf("trip-cache: scan failed: %v", err)
		return
	}
	if len(keys) > 0 {
		if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
			log.Printf("trip-cache: del failed: %v", err)
		}
	}
}
