// Package cache provides a Redis read-through cache in front of a
// localizedcontent.TranslationStore. Overlay reads issue one lookup per
// post, language and key, which makes them the hottest store path.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	lc "github.com/tendant/localized-content/pkg/localizedcontent"
)

// missMarker is cached for lookups the store answered with not-found.
const missMarker = "-"

// Options configures a TranslationCache.
type Options struct {
	// Prefix is prepended to all keys
	Prefix string

	// TTL bounds how long an entry or a cached miss is served
	TTL time.Duration

	Logger *slog.Logger
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		Prefix: "lc:",
		TTL:    10 * time.Minute,
	}
}

// TranslationCache implements localizedcontent.TranslationStore by reading
// through Redis to an underlying store. Writes go to the store first and
// then invalidate the affected keys. A failing Redis is logged and bypassed.
type TranslationCache struct {
	store  lc.TranslationStore
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	logger *slog.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

var _ lc.TranslationStore = (*TranslationCache)(nil)

// New wraps store with a cache held in client.
func New(store lc.TranslationStore, client redis.UniversalClient, opts Options) *TranslationCache {
	defaults := DefaultOptions()
	if opts.TTL <= 0 {
		opts.TTL = defaults.TTL
	}
	if opts.Prefix == "" {
		opts.Prefix = defaults.Prefix
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &TranslationCache{
		store:  store,
		client: client,
		prefix: opts.Prefix,
		ttl:    opts.TTL,
		logger: opts.Logger,
	}
}

// Dial parses a redis:// URL and verifies the server answers.
func Dial(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, errors.New("redis URL is required")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return client, nil
}

// Stats returns the number of cache hits and misses.
func (c *TranslationCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *TranslationCache) lookupKey(key lc.TranslationKey) string {
	return c.prefix + "tr:" + key.Module + ":" + strconv.FormatInt(key.ModuleID, 10) + ":" +
		strconv.Itoa(int(key.Language)) + ":" + key.Key
}

func (c *TranslationCache) idKey(id int64) string {
	return c.prefix + "tr:id:" + strconv.FormatInt(id, 10)
}

// FindTranslation serves the lookup from Redis, filling it from the store
// on a miss. Not-found answers are cached too.
func (c *TranslationCache) FindTranslation(ctx context.Context, key lc.TranslationKey) (*lc.TranslationEntry, error) {
	cacheKey := c.lookupKey(key)

	val, err := c.client.Get(ctx, cacheKey).Result()
	switch {
	case err == nil:
		c.hits.Add(1)
		if val == missMarker {
			return nil, lc.ErrTranslationNotFound
		}
		var entry lc.TranslationEntry
		if err := json.Unmarshal([]byte(val), &entry); err == nil {
			return &entry, nil
		}
		c.logger.Warn("Discarding undecodable cache entry", "key", cacheKey)
	case errors.Is(err, redis.Nil):
		c.misses.Add(1)
	default:
		c.logger.Warn("Translation cache read failed", "key", cacheKey, "error", err)
		return c.store.FindTranslation(ctx, key)
	}

	entry, err := c.store.FindTranslation(ctx, key)
	if errors.Is(err, lc.ErrTranslationNotFound) {
		if err := c.client.Set(ctx, cacheKey, missMarker, c.ttl).Err(); err != nil {
			c.logger.Warn("Translation cache write failed", "key", cacheKey, "error", err)
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	c.fill(ctx, entry)
	return entry, nil
}

func (c *TranslationCache) fill(ctx context.Context, entry *lc.TranslationEntry) {
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	cacheKey := c.lookupKey(entry.LookupKey())
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, cacheKey, data, c.ttl)
		pipe.Set(ctx, c.idKey(entry.ID), cacheKey, c.ttl)
		return nil
	})
	if err != nil {
		c.logger.Warn("Translation cache write failed", "key", cacheKey, "error", err)
	}
}

// CreateTranslation writes through and drops a cached miss for the key.
func (c *TranslationCache) CreateTranslation(ctx context.Context, entry *lc.TranslationEntry) error {
	if err := c.store.CreateTranslation(ctx, entry); err != nil {
		return err
	}
	c.invalidate(ctx, c.lookupKey(entry.LookupKey()))
	return nil
}

// UpdateTranslation writes through and drops the cached entry.
func (c *TranslationCache) UpdateTranslation(ctx context.Context, id int64, value string) (*lc.TranslationEntry, error) {
	entry, err := c.store.UpdateTranslation(ctx, id, value)
	if err != nil {
		return nil, err
	}
	c.invalidate(ctx, c.lookupKey(entry.LookupKey()), c.idKey(id))
	return entry, nil
}

// DeleteTranslation writes through and drops the cached entry, found via
// the id index written alongside it.
func (c *TranslationCache) DeleteTranslation(ctx context.Context, id int64) error {
	cacheKey, err := c.client.Get(ctx, c.idKey(id)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		c.logger.Warn("Translation cache read failed", "key", c.idKey(id), "error", err)
	}

	if err := c.store.DeleteTranslation(ctx, id); err != nil {
		return err
	}

	keys := []string{c.idKey(id)}
	if cacheKey != "" {
		keys = append(keys, cacheKey)
	}
	c.invalidate(ctx, keys...)
	return nil
}

func (c *TranslationCache) invalidate(ctx context.Context, keys ...string) {
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("Translation cache invalidation failed", "keys", keys, "error", err)
	}
}
