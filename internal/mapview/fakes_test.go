package mapview

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/mohammed-shakir/wfs-draw-query/internal/core/executor"
)

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// queuePoster collects posted callbacks so tests decide when the loop runs.
type queuePoster struct {
	mu     sync.Mutex
	queue  []func()
	closed bool
	posted chan struct{}
}

func newQueuePoster() *queuePoster {
	return &queuePoster{posted: make(chan struct{}, 256)}
}

func (p *queuePoster) Post(fn func()) bool {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return false
	}
	p.queue = append(p.queue, fn)
	p.mu.Unlock()
	p.posted <- struct{}{}
	return true
}

// await blocks until n more callbacks have been posted.
func (p *queuePoster) await(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-p.posted:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for posted callback %d/%d", i+1, n)
		}
	}
}

func (p *queuePoster) drain() int {
	p.mu.Lock()
	batch := p.queue
	p.queue = nil
	p.mu.Unlock()
	for _, fn := range batch {
		fn()
	}
	return len(batch)
}

// fakeFetcher answers every URL through respond. URLs containing a gated
// substring block until the gate is closed or the request is canceled.
type fakeFetcher struct {
	mu      sync.Mutex
	urls    []string
	fresh   []bool
	gates   map[string]chan struct{}
	respond func(rawURL string) ([]byte, error)
}

func newFakeFetcher(respond func(string) ([]byte, error)) *fakeFetcher {
	return &fakeFetcher{gates: map[string]chan struct{}{}, respond: respond}
}

func (f *fakeFetcher) gate(substr string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[substr] = ch
	return ch
}

func (f *fakeFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	f.mu.Lock()
	f.urls = append(f.urls, rawURL)
	f.fresh = append(f.fresh, executor.Revalidate(ctx))
	var wait chan struct{}
	for sub, ch := range f.gates {
		if strings.Contains(rawURL, sub) {
			wait = ch
		}
	}
	f.mu.Unlock()

	if wait != nil {
		select {
		case <-wait:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.respond(rawURL)
}

func (f *fakeFetcher) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.urls...)
}

func (f *fakeFetcher) revalidated() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]bool(nil), f.fresh...)
}

func collection(t *testing.T, geoms ...orb.Geometry) []byte {
	t.Helper()
	fc := geojson.NewFeatureCollection()
	for _, g := range geoms {
		fc.Append(geojson.NewFeature(g))
	}
	b, err := fc.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal collection: %v", err)
	}
	return b
}

func points(n int) []orb.Geometry {
	out := make([]orb.Geometry, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, orb.Point{float64(i), float64(i)})
	}
	return out
}
