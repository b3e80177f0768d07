package mapview

import (
	"errors"
	"strings"
	"testing"

	"github.com/paulmach/orb"

	"github.com/mohammed-shakir/wfs-draw-query/internal/core/model"
)

func bboxURL(e model.Extent) string { return "http://gs/wfs?bbox=" + e.Coords() }

var (
	small = model.Extent{MinX: 0, MinY: 0, MaxX: 10, MaxY: 10, SRS: "EPSG:3857"}
	large = model.Extent{MinX: 0, MinY: 0, MaxX: 20, MaxY: 20, SRS: "EPSG:3857"}
)

func newTestSource(f *fakeFetcher, p *queuePoster) *FeatureSource {
	return NewBBoxSource("demo:roads", bboxURL, SourceDeps{Fetcher: f, Poster: p, Logger: discardLogger()})
}

func TestBBoxSource_LoadIsIdempotentPerExtent(t *testing.T) {
	f := newFakeFetcher(func(string) ([]byte, error) { return collection(t, points(2)...), nil })
	p := newQueuePoster()
	s := newTestSource(f, p)

	if !s.Load(small) {
		t.Fatal("first load should issue a request")
	}
	if s.Load(small) {
		t.Fatal("same extent should not issue a second request")
	}
	p.await(t, 1)
	p.drain()
	if s.Load(small) {
		t.Fatal("same extent after completion should not issue a request")
	}
	if !s.Load(large) {
		t.Fatal("changed extent should issue a request")
	}
	p.await(t, 1)
	p.drain()

	if got := len(f.calls()); got != 2 {
		t.Fatalf("requests=%d want 2", got)
	}
	if !strings.HasSuffix(f.calls()[1], "bbox=0,0,20,20") {
		t.Fatalf("second url %q", f.calls()[1])
	}
}

func TestBBoxSource_ReplacesFeatureSet(t *testing.T) {
	n := 2
	f := newFakeFetcher(func(string) ([]byte, error) { return collection(t, points(n)...), nil })
	p := newQueuePoster()
	s := newTestSource(f, p)

	loads := 0
	s.OnLoad(func(*FeatureSource) { loads++ })

	s.Load(small)
	if !s.Status().Loading {
		t.Fatal("status should report loading while a fetch is in flight")
	}
	p.await(t, 1)
	p.drain()
	if len(s.Features()) != 2 || s.Status().Count != 2 || s.Status().Loading {
		t.Fatalf("after first load: features=%d status=%+v", len(s.Features()), s.Status())
	}

	n = 5
	s.Load(large)
	p.await(t, 1)
	p.drain()
	if len(s.Features()) != 5 {
		t.Fatalf("features=%d want 5", len(s.Features()))
	}
	if loads != 2 {
		t.Fatalf("OnLoad ran %d times, want 2", loads)
	}
	if s.Status().LastLoaded.IsZero() {
		t.Fatal("LastLoaded not recorded")
	}
}

func TestBBoxSource_OutOfOrderCompletionNewestWins(t *testing.T) {
	f := newFakeFetcher(func(u string) ([]byte, error) {
		if strings.Contains(u, "0,0,10,10") {
			return collection(t, points(1)...), nil
		}
		return collection(t, points(3)...), nil
	})
	release := f.gate("0,0,10,10")
	p := newQueuePoster()
	s := newTestSource(f, p)

	s.Load(small) // held at the gate
	s.Load(large)
	p.await(t, 1)
	p.drain()
	if len(s.Features()) != 3 {
		t.Fatalf("newest load not applied: %d features", len(s.Features()))
	}

	close(release)
	p.await(t, 1)
	p.drain()
	if len(s.Features()) != 3 {
		t.Fatalf("older completion overwrote newer result: %d features", len(s.Features()))
	}
	if s.Status().Loading {
		t.Fatal("no fetch should be in flight")
	}

	// a newer load that fails still supersedes an older one finishing later
	f2 := newFakeFetcher(func(u string) ([]byte, error) {
		if strings.Contains(u, "0,0,10,10") {
			return collection(t, points(5)...), nil
		}
		return nil, errors.New("connection reset")
	})
	release2 := f2.gate("0,0,10,10")
	p2 := newQueuePoster()
	s2 := newTestSource(f2, p2)

	s2.Load(small) // held at the gate
	s2.Load(large) // fails first
	p2.await(t, 1)
	p2.drain()
	close(release2)
	p2.await(t, 1)
	p2.drain()
	if len(s2.Features()) != 0 {
		t.Fatalf("superseded load applied after newer failure: %d features", len(s2.Features()))
	}
	if !errors.Is(s2.Status().LastErr, ErrNetwork) {
		t.Fatalf("LastErr=%v, failure of the newest load must stay visible", s2.Status().LastErr)
	}
}

func TestBBoxSource_FailedExtentLoadsAgain(t *testing.T) {
	fail := true
	f := newFakeFetcher(func(string) ([]byte, error) {
		if fail {
			return nil, errors.New("connection refused")
		}
		return collection(t, points(2)...), nil
	})
	p := newQueuePoster()
	s := newTestSource(f, p)

	s.Load(small)
	p.await(t, 1)
	p.drain()

	fail = false
	if !s.Load(small) {
		t.Fatal("extent whose load failed should be requested again")
	}
	p.await(t, 1)
	p.drain()
	if len(f.calls()) != 2 || len(s.Features()) != 2 || s.Status().LastErr != nil {
		t.Fatalf("calls=%d features=%d err=%v", len(f.calls()), len(s.Features()), s.Status().LastErr)
	}
	if s.Load(small) {
		t.Fatal("loaded extent should not be requested again")
	}
}

func TestBBoxSource_NetworkErrorKeepsPreviousFeatures(t *testing.T) {
	fail := false
	f := newFakeFetcher(func(string) ([]byte, error) {
		if fail {
			return nil, errors.New("connection reset")
		}
		return collection(t, points(4)...), nil
	})
	p := newQueuePoster()
	s := newTestSource(f, p)

	s.Load(small)
	p.await(t, 1)
	p.drain()

	fail = true
	s.Load(large)
	p.await(t, 1)
	p.drain()

	if len(s.Features()) != 4 {
		t.Fatalf("features=%d want the previous 4", len(s.Features()))
	}
	st := s.Status()
	if !errors.Is(st.LastErr, ErrNetwork) {
		t.Fatalf("LastErr=%v want ErrNetwork", st.LastErr)
	}
	if st.Count != 4 {
		t.Fatalf("Count=%d", st.Count)
	}

	fail = false
	s.Refresh()
	p.await(t, 1)
	p.drain()
	if s.Status().LastErr != nil {
		t.Fatalf("successful refresh should clear LastErr, got %v", s.Status().LastErr)
	}
	if got := f.calls(); !strings.HasSuffix(got[len(got)-1], "bbox=0,0,20,20") {
		t.Fatalf("refresh url %q should reuse the last extent", got[len(got)-1])
	}
}

func TestBBoxSource_MalformedBodyIsParseErrorKeepingFeatures(t *testing.T) {
	body := []byte(`{"type":"FeatureCollection","features":[]}`)
	f := newFakeFetcher(func(string) ([]byte, error) { return body, nil })
	p := newQueuePoster()
	s := newTestSource(f, p)

	body = collection(t, points(2)...)
	s.Load(small)
	p.await(t, 1)
	p.drain()

	body = []byte("<html>502 Bad Gateway</html>")
	s.Load(large)
	p.await(t, 1)
	p.drain()

	if len(s.Features()) != 2 {
		t.Fatalf("features=%d want 2", len(s.Features()))
	}
	if !errors.Is(s.Status().LastErr, ErrParse) {
		t.Fatalf("LastErr=%v want ErrParse", s.Status().LastErr)
	}
}

func TestFilterSource_LoadsOnceAndIgnoresExtent(t *testing.T) {
	f := newFakeFetcher(func(string) ([]byte, error) { return collection(t, points(3)...), nil })
	p := newQueuePoster()
	s := NewFilterSource("demo:roads", "http://gs/wfs?CQL_FILTER=x", SourceDeps{Fetcher: f, Poster: p, Logger: discardLogger()})

	if s.Mode() != ModeFilter {
		t.Fatalf("mode=%v", s.Mode())
	}
	p.await(t, 1)
	p.drain()
	if s.Load(small) || s.Load(large) {
		t.Fatal("filter source must not refetch on extent change")
	}
	if got := len(f.calls()); got != 1 {
		t.Fatalf("requests=%d want 1", got)
	}
	if len(s.Features()) != 3 {
		t.Fatalf("features=%d", len(s.Features()))
	}
}

func TestSource_RefreshBypassesCaches(t *testing.T) {
	f := newFakeFetcher(func(string) ([]byte, error) { return collection(t, points(1)...), nil })
	p := newQueuePoster()
	s := NewFilterSource("demo:roads", "http://gs/wfs?CQL_FILTER=x", SourceDeps{Fetcher: f, Poster: p, Logger: discardLogger()})
	p.await(t, 1)
	p.drain()

	if !s.Refresh() {
		t.Fatal("filter source should refresh")
	}
	p.await(t, 1)
	p.drain()
	got := f.revalidated()
	if len(got) != 2 || got[0] || !got[1] {
		t.Fatalf("revalidate flags=%v want [false true]", got)
	}
}

func TestFilterSource_FailureShowsEmpty(t *testing.T) {
	f := newFakeFetcher(func(string) ([]byte, error) { return []byte("not json"), nil })
	p := newQueuePoster()
	s := NewFilterSource("demo:roads", "http://gs/wfs", SourceDeps{Fetcher: f, Poster: p, Logger: discardLogger()})
	p.await(t, 1)
	p.drain()
	if len(s.Features()) != 0 {
		t.Fatalf("features=%d want 0", len(s.Features()))
	}
	if !errors.Is(s.Status().LastErr, ErrParse) {
		t.Fatalf("LastErr=%v", s.Status().LastErr)
	}
}

func TestSource_CompletionAfterDisposeIsDropped(t *testing.T) {
	f := newFakeFetcher(func(string) ([]byte, error) { return collection(t, points(2)...), nil })
	f.gate("0,0,10,10")
	p := newQueuePoster()
	s := newTestSource(f, p)
	s.OnLoad(func(*FeatureSource) { t.Error("OnLoad ran after Dispose") })

	s.Load(small)
	s.Dispose()
	s.Dispose()
	// the canceled fetch still posts its completion
	p.await(t, 1)
	p.drain()

	if s.Features() != nil {
		t.Fatal("disposed source applied a result")
	}
	if s.Load(large) || s.Refresh() {
		t.Fatal("disposed source issued a request")
	}
}

func TestSource_FeaturesInUsesIndex(t *testing.T) {
	square := orb.Polygon{{{100, 100}, {110, 100}, {110, 110}, {100, 110}, {100, 100}}}
	f := newFakeFetcher(func(string) ([]byte, error) {
		return collection(t, orb.Point{5, 5}, square, orb.LineString{{8, 8}, {50, 50}}), nil
	})
	p := newQueuePoster()
	s := newTestSource(f, p)
	s.Load(large)
	p.await(t, 1)
	p.drain()

	got := s.FeaturesIn(small)
	if len(got) != 2 {
		t.Fatalf("FeaturesIn(small)=%d want point and line", len(got))
	}
	for _, ft := range got {
		if _, ok := ft.Geometry.(orb.Polygon); ok {
			t.Fatal("distant polygon returned")
		}
	}
	if n := len(s.FeaturesIn(model.Extent{MinX: 99, MinY: 99, MaxX: 120, MaxY: 120})); n != 1 {
		t.Fatalf("FeaturesIn(square)=%d want 1", n)
	}
	if s.FeatureCollection().Features[0] != s.Features()[0] {
		t.Fatal("FeatureCollection should carry the loaded features")
	}
}
