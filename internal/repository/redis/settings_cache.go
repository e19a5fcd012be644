package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"bannedemails/internal/domain"
)

const defaultSettingsCachePrefix = "bannedemails"

// SettingsCache is a read-through Redis cache in front of a SettingsStore.
// Writes go to the underlying store first and then replace the cached entry.
// Reads only fill an empty entry, so a read that loaded an older value can
// never overwrite a newer one written by SetStrings. Redis failures degrade
// to the underlying store.
type SettingsCache struct {
	next   domain.SettingsStore
	client *red.Client
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

// NewSettingsCache wraps next with a Redis cache.
func NewSettingsCache(next domain.SettingsStore, client *red.Client, prefix string, ttl time.Duration, logger *slog.Logger) *SettingsCache {
	trimmed := strings.TrimSpace(prefix)
	if trimmed == "" {
		trimmed = defaultSettingsCachePrefix
	}
	return &SettingsCache{next: next, client: client, prefix: trimmed, ttl: ttl, logger: logger}
}

func (c *SettingsCache) key(key string) string {
	return c.prefix + ":settings:" + key
}

// GetStrings returns the cached value or loads it from the underlying store.
// Unset keys are not cached.
func (c *SettingsCache) GetStrings(ctx context.Context, key string) ([]string, error) {
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	switch {
	case err == nil:
		var values []string
		if err := json.Unmarshal(data, &values); err == nil {
			return values, nil
		}
		c.logger.WarnContext(ctx, "discarding undecodable settings cache entry", "key", key)
		if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
			c.logger.WarnContext(ctx, "settings cache delete failed", "key", key, "err", err)
		}
	case !errors.Is(err, red.Nil):
		c.logger.WarnContext(ctx, "settings cache read failed", "key", key, "err", err)
	}

	values, err := c.next.GetStrings(ctx, key)
	if err != nil {
		return nil, err
	}
	c.fill(ctx, key, values)
	return values, nil
}

// SetStrings writes through to the underlying store and then caches the new
// value. If the cache cannot be updated the entry is dropped instead.
func (c *SettingsCache) SetStrings(ctx context.Context, key string, values []string) error {
	if err := c.next.SetStrings(ctx, key, values); err != nil {
		return err
	}
	data, err := json.Marshal(values)
	if err == nil {
		err = c.client.Set(ctx, c.key(key), data, c.expiration()).Err()
		if err == nil {
			return nil
		}
	}
	c.logger.WarnContext(ctx, "settings cache update failed, dropping entry", "key", key, "err", err)
	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del settings %q: %w", key, err)
	}
	return nil
}

// fill caches values loaded from the store unless an entry already exists.
func (c *SettingsCache) fill(ctx context.Context, key string, values []string) {
	data, err := json.Marshal(values)
	if err != nil {
		return
	}
	if err := c.client.SetNX(ctx, c.key(key), data, c.expiration()).Err(); err != nil {
		c.logger.WarnContext(ctx, "settings cache write failed", "key", key, "err", err)
	}
}

func (c *SettingsCache) expiration() time.Duration {
	if c.ttl < 0 {
		return 0
	}
	return c.ttl
}

// NewClient parses a redis:// URL and returns a connected client.
func NewClient(ctx context.Context, url string) (*red.Client, error) {
	opts, err := red.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := red.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

var _ domain.SettingsStore = (*SettingsCache)(nil)
