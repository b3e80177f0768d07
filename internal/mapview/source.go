package mapview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/mohammed-shakir/wfs-draw-query/internal/core/executor"
	"github.com/mohammed-shakir/wfs-draw-query/internal/core/model"
	"github.com/mohammed-shakir/wfs-draw-query/internal/core/observability"
	"github.com/mohammed-shakir/wfs-draw-query/internal/logger"
)

var (
	ErrNetwork = errors.New("network error")
	ErrParse   = errors.New("parse error")
)

type Mode int

const (
	ModeBBox Mode = iota
	ModeFilter
)

func (m Mode) String() string {
	if m == ModeFilter {
		return "filter"
	}
	return "bbox"
}

// Status exposes what the map itself never shows: whether a load is in
// flight, and the last failure that left the feature set stale.
type Status struct {
	Loading    bool
	LastErr    error
	LastLoaded time.Time
	Count      int
}

type SourceDeps struct {
	Fetcher executor.Interface
	Poster  Poster
	Logger  *slog.Logger
	Now     func() time.Time
	// Label names the source in metrics and logs; defaults to the type name.
	Label   string
	// Context parents every fetch; cancellation comes from Dispose only.
	Context context.Context
}

// FeatureSource loads one feature type. Its query semantics are fixed at
// construction: a bbox source derives a URL per extent, a filter source
// holds one URL and loads it once.
type FeatureSource struct {
	typeName string
	mode     Mode
	urlFn    func(model.Extent) string
	url      string
	deps     SourceDeps
	label    string

	ctx    context.Context
	cancel context.CancelFunc

	features []*geojson.Feature
	index    *rtreego.Rtree

	issued    model.Extent
	hasIssued bool
	seq       uint64
	completed uint64 // newest seq that completed, success or failure
	retry     bool   // newest load failed; its extent may be loaded again
	pending   int
	status    Status
	disposed  bool
	changed   listeners[*FeatureSource]
}

func NewBBoxSource(typeName string, urlFn func(model.Extent) string, deps SourceDeps) *FeatureSource {
	return newSource(typeName, ModeBBox, urlFn, "", deps)
}

// NewFilterSource issues its single load immediately.
func NewFilterSource(typeName, rawURL string, deps SourceDeps) *FeatureSource {
	s := newSource(typeName, ModeFilter, nil, rawURL, deps)
	s.issue(s.ctx, rawURL)
	return s
}

func newSource(typeName string, mode Mode, urlFn func(model.Extent) string, rawURL string, deps SourceDeps) *FeatureSource {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	parent := context.Background()
	if deps.Context != nil {
		parent = context.WithoutCancel(deps.Context)
	}
	label := deps.Label
	if label == "" {
		label = typeName
	}
	ctx, cancel := context.WithCancel(logger.WithLayer(parent, label))
	return &FeatureSource{
		typeName: typeName,
		mode:     mode,
		urlFn:    urlFn,
		url:      rawURL,
		deps:     deps,
		label:    label,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (s *FeatureSource) TypeName() string { return s.typeName }
func (s *FeatureSource) Mode() Mode       { return s.mode }
func (s *FeatureSource) URL() string      { return s.url }
func (s *FeatureSource) Status() Status   { return s.status }
func (s *FeatureSource) Disposed() bool   { return s.disposed }

// Features is the current feature set. Callers must not modify it.
func (s *FeatureSource) Features() []*geojson.Feature { return s.features }

// FeatureCollection copies the current feature set into a collection.
func (s *FeatureSource) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	fc.Features = append(fc.Features, s.features...)
	return fc
}

// Load fetches features for e unless the last load was for the same extent
// and has not failed. Filter sources ignore extents. Reports whether a
// request was issued.
func (s *FeatureSource) Load(e model.Extent) bool {
	if s.disposed || s.mode != ModeBBox || s.urlFn == nil {
		return false
	}
	if s.hasIssued && !s.retry && s.issued.Equal(e) {
		return false
	}
	s.issued, s.hasIssued = e, true
	s.issue(s.ctx, s.urlFn(e))
	return true
}

// Refresh reissues the last request regardless of extent, bypassing caches.
func (s *FeatureSource) Refresh() bool {
	if s.disposed {
		return false
	}
	ctx := executor.WithRevalidate(s.ctx)
	switch s.mode {
	case ModeFilter:
		s.issue(ctx, s.url)
		return true
	default:
		if !s.hasIssued {
			return false
		}
		s.issue(ctx, s.urlFn(s.issued))
		return true
	}
}

// OnLoad runs fn after every load that completes without being superseded,
// successful or not. Status tells the two apart.
func (s *FeatureSource) OnLoad(fn func(*FeatureSource)) *Subscription {
	return s.changed.add(fn)
}

// Dispose cancels in-flight requests. Completions arriving afterwards are dropped.
func (s *FeatureSource) Dispose() {
	if s.disposed {
		return
	}
	s.disposed = true
	s.cancel()
	s.changed.clear()
}

type loadResult struct {
	seq      uint64
	features []*geojson.Feature
	err      error
	took     time.Duration
}

func (s *FeatureSource) issue(ctx context.Context, rawURL string) {
	s.seq++
	seq := s.seq
	s.retry = false
	s.pending++
	s.status.Loading = true

	go func() {
		start := time.Now()
		res := loadResult{seq: seq}
		body, err := s.deps.Fetcher.Fetch(ctx, rawURL)
		if err != nil {
			res.err = fmt.Errorf("%w: %v", ErrNetwork, err)
		} else {
			fc, perr := geojson.UnmarshalFeatureCollection(body)
			if perr != nil {
				res.err = fmt.Errorf("%w: %v", ErrParse, perr)
			} else {
				res.features = fc.Features
			}
		}
		res.took = time.Since(start)
		s.deps.Poster.Post(func() { s.complete(res) })
	}()
}

func (s *FeatureSource) complete(res loadResult) {
	if s.disposed {
		return
	}
	s.pending--
	s.status.Loading = s.pending > 0

	if res.seq <= s.completed {
		observability.ObserveFeatureLoad(s.mode.String(), "stale")
		return
	}
	s.completed = res.seq
	if res.err != nil {
		s.status.LastErr = res.err
		if res.seq == s.seq {
			s.retry = true
		}
		outcome := "network_error"
		if errors.Is(res.err, ErrParse) {
			outcome = "parse_error"
		}
		observability.ObserveFeatureLoad(s.mode.String(), outcome)
		s.deps.Logger.Warn("feature load failed, keeping previous features",
			"layer", s.label, "mode", s.mode.String(), "err", res.err, "kept", len(s.features))
		s.changed.emit(s)
		return
	}

	s.features = res.features
	s.index = buildIndex(res.features)
	s.status.LastErr = nil
	s.status.LastLoaded = s.deps.Now()
	s.status.Count = len(res.features)
	observability.ObserveFeatureLoad(s.mode.String(), "ok")
	observability.SetFeaturesLoaded(s.label, len(res.features))
	s.deps.Logger.Debug("features loaded",
		"layer", s.label, "mode", s.mode.String(), "count", len(res.features), "took", res.took)
	s.changed.emit(s)
}

// FeaturesIn returns the loaded features whose bounds intersect e.
func (s *FeatureSource) FeaturesIn(e model.Extent) []*geojson.Feature {
	if s.index == nil || !e.Valid() {
		return nil
	}
	spatials := s.index.SearchIntersect(rect(e.Bound()))
	out := make([]*geojson.Feature, 0, len(spatials))
	for _, sp := range spatials {
		out = append(out, sp.(*indexedFeature).feature)
	}
	return out
}

type indexedFeature struct {
	feature *geojson.Feature
	bounds  orb.Bound
}

func (f *indexedFeature) Bounds() rtreego.Rect { return rect(f.bounds) }

// R-tree rects need non-zero sides, so points get a small square.
const minRectSide = 1e-6

func rect(b orb.Bound) rtreego.Rect {
	w := max(b.Max.X()-b.Min.X(), minRectSide)
	h := max(b.Max.Y()-b.Min.Y(), minRectSide)
	r, _ := rtreego.NewRect(rtreego.Point{b.Min.X(), b.Min.Y()}, []float64{w, h})
	return r
}

func buildIndex(features []*geojson.Feature) *rtreego.Rtree {
	tree := rtreego.NewTree(2, 25, 50)
	for _, f := range features {
		if f == nil || f.Geometry == nil {
			continue
		}
		tree.Insert(&indexedFeature{feature: f, bounds: f.Geometry.Bound()})
	}
	return tree
}
