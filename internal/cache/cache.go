// Package cache holds the response cache used by the research service.
package cache

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/kitbuilder587/valyu-go/internal/cache/memory"
	"github.com/kitbuilder587/valyu-go/internal/cache/rediscache"
	"github.com/kitbuilder587/valyu-go/internal/config"
)

// Cache stores opaque values with a TTL. A miss is (nil, false, nil).
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

var (
	_ Cache = (*memory.Cache)(nil)
	_ Cache = (*rediscache.Cache)(nil)
	_ Cache = Nop{}
)

// Nop never stores anything.
type Nop struct{}

func (Nop) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (Nop) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (Nop) Delete(context.Context, string) error { return nil }

func (Nop) Close() error { return nil }

// New builds the backend selected by cfg.Type. The returned closer releases
// background goroutines or connections.
func New(ctx context.Context, cfg config.CacheConfig) (Cache, io.Closer, error) {
	switch cfg.Type {
	case "memory", "":
		c := memory.NewWithContext(ctx)
		return c, c, nil
	case "redis":
		c := rediscache.New(rediscache.Config{Addr: cfg.RedisAddr})
		if err := c.Ping(ctx); err != nil {
			c.Close()
			return nil, nil, err
		}
		return c, c, nil
	case "none":
		return Nop{}, Nop{}, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache type %q", cfg.Type)
	}
}
