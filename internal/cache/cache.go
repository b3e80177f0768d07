// Package cache layers an in-process LRU and an optional shared Redis tier in
// front of GetFeature requests. Only successful JSON responses are cached.
package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/mohammed-shakir/wfs-draw-query/internal/cache/keys"
	"github.com/mohammed-shakir/wfs-draw-query/internal/core/executor"
	"github.com/mohammed-shakir/wfs-draw-query/internal/core/observability"
)

type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
}

type Fetcher struct {
	next      executor.Interface
	logger    *slog.Logger
	lru       *expirable.LRU[string, []byte]
	shared    Store
	ttl       time.Duration
	opTimeout time.Duration
}

type Option func(*Fetcher)

// WithLRU keeps up to size responses in memory for ttl.
func WithLRU(size int, ttl time.Duration) Option {
	return func(f *Fetcher) {
		if size > 0 {
			f.lru = expirable.NewLRU[string, []byte](size, nil, ttl)
		}
	}
}

// WithShared adds a shared tier consulted after the LRU. opTimeout bounds every store call.
func WithShared(s Store, opTimeout time.Duration) Option {
	return func(f *Fetcher) {
		f.shared = s
		if opTimeout > 0 {
			f.opTimeout = opTimeout
		}
	}
}

func New(next executor.Interface, logger *slog.Logger, ttl time.Duration, opts ...Option) *Fetcher {
	f := &Fetcher{
		next:      next,
		logger:    logger,
		ttl:       ttl,
		opTimeout: 250 * time.Millisecond,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	key, err := keys.Key(rawURL)
	if err != nil {
		return f.next.Fetch(ctx, rawURL)
	}

	// revalidating fetches skip reads but refill both tiers
	fresh := executor.Revalidate(ctx)
	if f.lru != nil && !fresh {
		if b, ok := f.lru.Get(key); ok {
			observability.IncCacheHit("lru")
			return b, nil
		}
		observability.IncCacheMiss("lru")
	}

	if f.shared != nil && !fresh {
		if b, ok := f.sharedGet(ctx, key); ok {
			if f.lru != nil {
				f.lru.Add(key, b)
			}
			return b, nil
		}
	}

	b, err := f.next.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if !cacheable(b) {
		// GeoServer reports many errors as a 200 ServiceExceptionReport
		f.logger.DebugContext(ctx, "response not cached", "key", key, "bytes", len(b))
		return b, nil
	}
	if f.lru != nil {
		f.lru.Add(key, b)
	}
	if f.shared != nil {
		f.sharedSet(ctx, key, b)
	}
	return b, nil
}

func (f *Fetcher) sharedGet(ctx context.Context, key string) ([]byte, bool) {
	cctx, cancel := context.WithTimeout(ctx, f.opTimeout)
	defer cancel()
	b, ok, err := f.shared.Get(cctx, key)
	switch {
	case err != nil:
		observability.IncCacheError("redis")
		f.logger.WarnContext(ctx, "shared cache get failed", "key", key, "err", err)
		return nil, false
	case !ok:
		observability.IncCacheMiss("redis")
		return nil, false
	default:
		observability.IncCacheHit("redis")
		return b, true
	}
}

func (f *Fetcher) sharedSet(ctx context.Context, key string, b []byte) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.opTimeout)
	defer cancel()
	if err := f.shared.Set(cctx, key, b, f.ttl); err != nil {
		observability.IncCacheError("redis")
		f.logger.WarnContext(ctx, "shared cache set failed", "key", key, "err", err)
	}
}

func cacheable(b []byte) bool {
	t := bytes.TrimSpace(b)
	return len(t) > 0 && t[0] == '{' && json.Valid(t)
}
