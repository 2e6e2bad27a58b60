// Package cache holds short-lived values such as upload tickets.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/garlicdoggoe/astrosynergy/internal/config"
)

type Store interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Take returns the value and removes it in one step, so a key can only
	// be consumed once.
	Take(ctx context.Context, key string) (value []byte, found bool, err error)
}

// New builds the store selected by cfg.Driver. The redis store is pinged
// so a bad address fails at startup.
func New(ctx context.Context, cfg config.CacheConfig) (Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemoryStore(), nil
	case "redis":
		s := NewRedisStore(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
		if err := s.Client.Ping(ctx).Err(); err != nil {
			_ = s.Client.Close()
			return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown cache driver %q", cfg.Driver)
}
