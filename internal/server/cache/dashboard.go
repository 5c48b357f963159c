// Package cache keeps rendered dashboards per identity so repeated loads
// skip the database and the URL signing round trips.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/playlistdash/internal/common"
	"github.com/dmitrijs2005/playlistdash/internal/server/models"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "playlistdash:dashboard:"
	genPrefix = "playlistdash:dashboard:gen:"
)

// MaxTTL bounds how long a dashboard stays cached. Cached dashboards carry
// presigned URLs, so an entry must expire well before they do.
const MaxTTL = common.SignedURLValidity / 2

// Dashboard caches a user's dashboard until the TTL passes or the user
// changes something.
//
// Every Invalidate advances the user's generation. A loader reads the
// generation before it reads the database and passes it to Set, which
// drops the write when an invalidation happened in between.
type Dashboard interface {
	Get(ctx context.Context, username string) (*models.Dashboard, bool, error)
	Generation(ctx context.Context, username string) (int64, error)
	Set(ctx context.Context, username string, gen int64, d *models.Dashboard) error
	Invalidate(ctx context.Context, username string) error
}

type RedisDashboard struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisDashboard caches for ttl, clamped to (0, MaxTTL].
func NewRedisDashboard(rdb *redis.Client, ttl time.Duration) *RedisDashboard {
	return &RedisDashboard{rdb: rdb, ttl: ClampTTL(ttl)}
}

// ClampTTL returns ttl, or MaxTTL when ttl is not positive or exceeds it.
func ClampTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 || ttl > MaxTTL {
		return MaxTTL
	}
	return ttl
}

// TTL is the effective lifetime of a cached dashboard.
func (c *RedisDashboard) TTL() time.Duration { return c.ttl }

func key(username string) string    { return keyPrefix + username }
func genKey(username string) string { return genPrefix + username }

func (c *RedisDashboard) Get(ctx context.Context, username string) (*models.Dashboard, bool, error) {
	raw, err := c.rdb.Get(ctx, key(username)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var d models.Dashboard
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, false, fmt.Errorf("decode cached dashboard: %w", err)
	}
	return &d, true, nil
}

func (c *RedisDashboard) Generation(ctx context.Context, username string) (int64, error) {
	return generation(ctx, c.rdb, username)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func generation(ctx context.Context, r getter, username string) (int64, error) {
	gen, err := r.Get(ctx, genKey(username)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("redis get generation: %w", err)
	}
	return gen, nil
}

// Set stores d unless the generation moved past gen. A dropped write is
// not an error.
func (c *RedisDashboard) Set(ctx context.Context, username string, gen int64, d *models.Dashboard) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode dashboard: %w", err)
	}

	err = c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := generation(ctx, tx, username)
		if err != nil {
			return err
		}
		if cur != gen {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key(username), raw, c.ttl)
			return nil
		})
		return err
	}, genKey(username))
	if errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *RedisDashboard) Invalidate(ctx context.Context, username string) error {
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey(username))
		pipe.Del(ctx, key(username))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis invalidate: %w", err)
	}
	return nil
}

// Nop never holds anything. It stands in when no Redis is configured.
type Nop struct{}

func (Nop) Get(context.Context, string) (*models.Dashboard, bool, error) { return nil, false, nil }
func (Nop) Generation(context.Context, string) (int64, error)            { return 0, nil }
func (Nop) Set(context.Context, string, int64, *models.Dashboard) error  { return nil }
func (Nop) Invalidate(context.Context, string) error                     { return nil }
