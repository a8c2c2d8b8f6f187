// Package denylist records revoked access-token identifiers (jti) until the
// tokens would have expired anyway.
package denylist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/demoauth/internal/common"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "demoauth:denied:"

// RedisDenylist stores one key per denied jti with a TTL matching the
// remaining token lifetime, so entries vanish without a sweep.
type RedisDenylist struct {
	client *redis.Client
	now    func() time.Time
}

// New wraps an existing client.
func New(client *redis.Client) *RedisDenylist {
	return &RedisDenylist{client: client, now: time.Now}
}

// Connect parses redisURL (redis://host:port/db), pings the server and
// returns a ready denylist.
func Connect(ctx context.Context, redisURL string) (*RedisDenylist, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%w: redis url: %w", common.ErrConfiguration, err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: redis ping: %w", common.ErrStorage, err)
	}
	return New(client), nil
}

// Add denies jti until the given instant. Past instants are ignored.
func (d *RedisDenylist) Add(ctx context.Context, jti string, until time.Time) error {
	if jti == "" {
		return fmt.Errorf("%w: empty jti", common.ErrValidation)
	}
	ttl := until.Sub(d.now())
	if ttl <= 0 {
		return nil
	}
	if err := d.client.Set(ctx, keyPrefix+jti, 1, ttl).Err(); err != nil {
		return fmt.Errorf("%w: redis set: %w", common.ErrStorage, err)
	}
	return nil
}

// Contains reports whether jti is currently denied.
func (d *RedisDenylist) Contains(ctx context.Context, jti string) (bool, error) {
	err := d.client.Get(ctx, keyPrefix+jti).Err()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, redis.Nil):
		return false, nil
	default:
		return false, fmt.Errorf("%w: redis get: %w", common.ErrStorage, err)
	}
}

func (d *RedisDenylist) Close() error {
	return d.client.Close()
}
