package mapview

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/paulmach/orb"

	"github.com/mohammed-shakir/wfs-draw-query/internal/core/config"
	"github.com/mohammed-shakir/wfs-draw-query/internal/core/proj"
)

func testConfig() config.Config {
	return config.Config{
		GeoServerURL: "http://gs/geoserver",
		FeatureType:  "demo:roads",
		RasterLayer:  "demo:relief",
		WorkingSRS:   proj.WebMercator,
		FilterSRS:    proj.WebMercator,
		GeomColumn:   "geom",
		CenterLon:    -70.673676,
		CenterLat:    -33.448993,
		Zoom:         9,
		ViewWidth:    1024,
		ViewHeight:   768,
	}
}

func openSession(t *testing.T, respond func(string) ([]byte, error)) (*Session, *fakeFetcher, *queuePoster) {
	t.Helper()
	f := newFakeFetcher(respond)
	p := newQueuePoster()
	s, err := Open(context.Background(), testConfig(), Deps{Fetcher: f, Poster: p, Logger: discardLogger()})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(s.Dispose)
	return s, f, p
}

func TestOpen_SeedsLayersAndLoadsInitialExtent(t *testing.T) {
	s, f, p := openSession(t, func(string) ([]byte, error) { return collection(t, points(3)...), nil })

	want := []string{BaseLayerID, RasterLayerID, InitialQueryID, ScratchLayerID}
	if got := ids(s.Registry().Layers()); !equalIDs(got, want) {
		t.Fatalf("layers=%v want %v", got, want)
	}
	raster, _ := s.Registry().Get(RasterLayerID)
	if raster.Tiles == nil || raster.Tiles.Layer != "demo:relief" {
		t.Fatalf("raster layer tiles %+v", raster.Tiles)
	}
	if s.QueryLayer().Style != DefaultStyle {
		t.Fatalf("query style %+v", s.QueryLayer().Style)
	}
	if s.Draw() == nil || s.Draw().State() != DrawActive {
		t.Fatal("draw interaction not armed")
	}

	calls := f.calls()
	if len(calls) != 1 {
		t.Fatalf("initial requests=%d want 1", len(calls))
	}
	u, _ := url.Parse(calls[0])
	q := u.Query()
	if q.Get("srsname") != proj.WebMercator || !strings.HasSuffix(q.Get("bbox"), ","+proj.WebMercator) {
		t.Fatalf("bbox request %q", calls[0])
	}
	if q.Get("bbox") != s.Viewport().Extent().String() {
		t.Fatalf("bbox=%q want %q", q.Get("bbox"), s.Viewport().Extent().String())
	}

	p.await(t, 1)
	p.drain()
	if n := len(s.QueryLayer().Source.Features()); n != 3 {
		t.Fatalf("features=%d", n)
	}
}

func TestSession_SettleDrivesBBoxLoads(t *testing.T) {
	s, f, p := openSession(t, func(string) ([]byte, error) { return collection(t), nil })
	p.await(t, 1)
	p.drain()

	s.Viewport().Settle()
	if len(f.calls()) != 1 {
		t.Fatal("settle without motion refetched")
	}
	s.Viewport().Pan(40, 0)
	s.Viewport().Pan(40, 0)
	s.Viewport().Settle()
	if len(f.calls()) != 2 {
		t.Fatalf("requests=%d want 2 after one settled drag", len(f.calls()))
	}
	p.await(t, 1)
	p.drain()
}

func TestSession_DrawSwapsQueryLayer(t *testing.T) {
	s, f, p := openSession(t, func(u string) ([]byte, error) {
		if strings.Contains(u, "CQL_FILTER") {
			return collection(t, points(1)...), nil
		}
		return collection(t, points(6)...), nil
	})
	p.await(t, 1)
	p.drain()

	for _, pt := range []orb.Point{{10, 20}, {10, 30}, {20, 30}} {
		if err := s.Dispatch(PointerEvent{Kind: PointerClick, Point: pt}); err != nil {
			t.Fatalf("Dispatch: %v", err)
		}
	}
	if err := s.Dispatch(PointerEvent{Kind: KeyFinish}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	q := s.QueryLayer()
	if q.ID == InitialQueryID || q.Source.Mode() != ModeFilter {
		t.Fatalf("query layer %s mode %v", q.ID, q.Source.Mode())
	}
	if s.Registry().Count(KindVectorOverlay) != 1 {
		t.Fatalf("vector overlays=%d", s.Registry().Count(KindVectorOverlay))
	}
	if s.Draw().State() != DrawCompleted || s.Surface().Captured() {
		t.Fatal("draw interaction not consumed")
	}
	if len(s.Sketches().Rings()) != 1 {
		t.Fatal("scratch layer missing the drawn ring")
	}
	p.await(t, 1)
	p.drain()
	if n := len(q.Source.Features()); n != 1 {
		t.Fatalf("filtered features=%d", n)
	}

	before := len(f.calls())
	s.Viewport().Pan(100, 100)
	s.Viewport().Settle()
	if len(f.calls()) != before {
		t.Fatal("filter layer refetched on view change")
	}

	if err := s.StartDraw(); err != nil {
		t.Fatalf("StartDraw: %v", err)
	}
	if s.Draw().State() != DrawActive || !s.Surface().Captured() {
		t.Fatal("StartDraw did not re-arm")
	}
}

func TestSession_DisposeDetachesEverything(t *testing.T) {
	f := newFakeFetcher(func(string) ([]byte, error) { return collection(t, points(2)...), nil })
	release := f.gate("bbox=")
	p := newQueuePoster()
	s, err := Open(context.Background(), testConfig(), Deps{Fetcher: f, Poster: p, Logger: discardLogger()})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	src := s.QueryLayer().Source

	s.Dispose()
	s.Dispose()
	close(release)
	p.await(t, 1)
	p.drain()

	if src.Features() != nil || !src.Disposed() {
		t.Fatal("completion after dispose was applied")
	}
	if s.QueryLayer() != nil || s.Registry().Len() != 0 {
		t.Fatal("registry survived dispose")
	}
	if s.Surface().Captured() {
		t.Fatal("draw interaction still captures input")
	}
	if err := s.Dispatch(PointerEvent{Kind: PointerClick}); !errors.Is(err, ErrDisposed) {
		t.Fatalf("Dispatch after dispose: %v", err)
	}
	if err := s.StartDraw(); !errors.Is(err, ErrDisposed) {
		t.Fatalf("StartDraw after dispose: %v", err)
	}
	if err := s.Refresh(); !errors.Is(err, ErrDisposed) {
		t.Fatalf("Refresh after dispose: %v", err)
	}

	calls := len(f.calls())
	s.Viewport().Pan(10, 10)
	s.Viewport().Settle()
	if len(f.calls()) != calls {
		t.Fatal("settle after dispose issued a request")
	}
}

func TestOpen_RejectsUnknownProjection(t *testing.T) {
	cfg := testConfig()
	cfg.WorkingSRS = "EPSG:999999"
	_, err := Open(context.Background(), cfg, Deps{Fetcher: newFakeFetcher(nil), Poster: newQueuePoster(), Logger: discardLogger()})
	if err == nil {
		t.Fatal("unknown working projection accepted")
	}
}

func TestSession_RunsOnRealLoop(t *testing.T) {
	loop := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = loop.Run(ctx) }()

	f := newFakeFetcher(func(string) ([]byte, error) { return collection(t, points(2)...), nil })
	loaded := make(chan int, 1)
	var s *Session
	err := loop.Do(ctx, func() {
		var err error
		s, err = Open(ctx, testConfig(), Deps{Fetcher: f, Poster: loop, Logger: discardLogger()})
		if err != nil {
			t.Errorf("Open: %v", err)
			return
		}
		s.QueryLayer().Source.OnLoad(func(src *FeatureSource) { loaded <- len(src.Features()) })
	})
	if err != nil || s == nil {
		t.Fatalf("Do: %v", err)
	}
	if n := <-loaded; n != 2 {
		t.Fatalf("features=%d", n)
	}
	_ = loop.Do(ctx, s.Dispose)
}
