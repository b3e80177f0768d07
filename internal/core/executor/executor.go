// Package executor performs the outbound GET requests issued by feature sources
// and the capabilities client.
package executor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/mohammed-shakir/wfs-draw-query/internal/core/observability"
)

// Interface fetches the full body of a GET request.
type Interface interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

type Executor struct {
	logger   *slog.Logger
	client   *http.Client
	accept   string
	upstream string
	startNow func() time.Time // for tests
}

type Option func(*Executor)

type revalidateKey struct{}

// WithRevalidate marks a fetch that must not be answered from any cache.
func WithRevalidate(ctx context.Context) context.Context {
	return context.WithValue(ctx, revalidateKey{}, true)
}

func Revalidate(ctx context.Context) bool {
	v, _ := ctx.Value(revalidateKey{}).(bool)
	return v
}

func WithAccept(accept string) Option {
	return func(e *Executor) { e.accept = accept }
}

// WithUpstream sets the label used for upstream latency metrics.
func WithUpstream(name string) Option {
	return func(e *Executor) { e.upstream = name }
}

func New(logger *slog.Logger, client *http.Client, opts ...Option) *Executor {
	if client == nil {
		client = http.DefaultClient
	}
	e := &Executor{
		logger:   logger,
		client:   client,
		accept:   "application/json",
		upstream: "geoserver",
		startNow: time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *Executor) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", e.accept)
	if Revalidate(ctx) {
		req.Header.Set("Cache-Control", "no-cache")
	}

	start := e.startNow()
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	dur := time.Since(start)
	observability.ObserveUpstreamLatency(e.upstream, dur.Seconds())
	e.logger.DebugContext(ctx, "upstream fetch done",
		"host", u.Host,
		"status", resp.StatusCode,
		"duration", dur.String())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		return nil, fmt.Errorf("upstream status %d: %s", resp.StatusCode, string(b))
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return b, nil
}
