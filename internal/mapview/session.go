package mapview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/paulmach/orb"

	"github.com/mohammed-shakir/wfs-draw-query/internal/core/config"
	"github.com/mohammed-shakir/wfs-draw-query/internal/core/executor"
	"github.com/mohammed-shakir/wfs-draw-query/internal/core/model"
	"github.com/mohammed-shakir/wfs-draw-query/internal/core/observability"
	"github.com/mohammed-shakir/wfs-draw-query/internal/core/ogc"
	"github.com/mohammed-shakir/wfs-draw-query/internal/core/proj"
	"github.com/mohammed-shakir/wfs-draw-query/internal/logger"
)

// ErrDisposed is returned by session operations after Dispose.
var ErrDisposed = errors.New("map session disposed")

const (
	BaseLayerID    = "base"
	RasterLayerID  = "raster"
	InitialQueryID = "query-0"
	ScratchLayerID = "scratch"
)

type Deps struct {
	Fetcher executor.Interface
	Poster  Poster
	Logger  *slog.Logger
}

// Session is the controller for one open map. It owns the viewport, the
// registry and the query layer reference; everything it exposes must be
// used from the goroutine behind deps.Poster.
type Session struct {
	id       string
	logger   *slog.Logger
	viewport *Viewport
	registry *Registry
	surface  *Surface
	sketches *Sketches
	manager  *QueryLayerManager
	draw     *DrawInteraction
	drawSub  *Subscription
	subs     []*Subscription
	disposed bool
}

// Open builds the initial layer stack, arms a draw interaction and issues
// the first bbox load for the configured view.
func Open(ctx context.Context, cfg config.Config, deps Deps) (*Session, error) {
	if deps.Fetcher == nil || deps.Poster == nil {
		return nil, errors.New("session needs a fetcher and a poster")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	proj.Init()
	if _, ok := proj.Get(cfg.WorkingSRS); !ok {
		return nil, fmt.Errorf("working projection %q not registered", cfg.WorkingSRS)
	}
	if cfg.FilterSRS != "" {
		if _, ok := proj.Get(cfg.FilterSRS); !ok {
			return nil, fmt.Errorf("filter projection %q not registered", cfg.FilterSRS)
		}
	}
	center, err := proj.Transform(orb.Point{cfg.CenterLon, cfg.CenterLat}, proj.WGS84, cfg.WorkingSRS)
	if err != nil {
		return nil, err
	}

	id := logger.NewID()
	log := deps.Logger.With("session_id", id, "component", "mapview")
	srcDeps := SourceDeps{
		Fetcher: deps.Fetcher,
		Poster:  deps.Poster,
		Logger:  log,
		Label:   InitialQueryID,
		Context: logger.WithSession(ctx, id),
	}

	s := &Session{
		id:       id,
		logger:   log,
		viewport: NewViewport(center, cfg.Zoom, cfg.ViewWidth, cfg.ViewHeight, cfg.WorkingSRS),
		registry: NewRegistry(),
		surface:  NewSurface(),
		sketches: &Sketches{},
	}

	query := &Layer{
		ID:     InitialQueryID,
		Kind:   KindVectorOverlay,
		Title:  cfg.FeatureType,
		Style:  DefaultStyle,
		Source: NewBBoxSource(cfg.FeatureType, ogc.BBoxURLFunc(cfg.GeoServerURL, cfg.FeatureType), srcDeps),
	}

	layers := []*Layer{{ID: BaseLayerID, Kind: KindBase, Title: "OpenStreetMap"}}
	if cfg.RasterLayer != "" {
		tiles := ogc.NewTileWMS(cfg.GeoServerURL, cfg.RasterLayer)
		layers = append(layers, &Layer{ID: RasterLayerID, Kind: KindRasterOverlay, Title: cfg.RasterLayer, Tiles: &tiles})
	}
	layers = append(layers, query, &Layer{ID: ScratchLayerID, Kind: KindScratch, Title: "sketch", Style: DefaultStyle, Scratch: s.sketches})
	for _, l := range layers {
		if err := s.registry.Add(l); err != nil {
			return nil, err
		}
	}

	s.manager = NewQueryLayerManager(s.registry, query, ManagerConfig{
		GeoServerURL: cfg.GeoServerURL,
		GeomColumn:   cfg.GeomColumn,
		WorkingSRS:   cfg.WorkingSRS,
		FilterSRS:    cfg.FilterSRS,
	}, srcDeps)

	s.subs = append(s.subs, s.viewport.OnSettle(s.onSettle))
	if err := s.StartDraw(); err != nil {
		return nil, err
	}

	log.InfoContext(ctx, "map session opened",
		"typename", cfg.FeatureType, "srs", cfg.WorkingSRS, "zoom", s.viewport.Zoom())
	s.viewport.Settle()
	return s, nil
}

func (s *Session) ID() string                  { return s.id }
func (s *Session) Viewport() *Viewport         { return s.viewport }
func (s *Session) Registry() *Registry         { return s.registry }
func (s *Session) Surface() *Surface           { return s.surface }
func (s *Session) Sketches() *Sketches         { return s.sketches }
func (s *Session) Manager() *QueryLayerManager { return s.manager }
func (s *Session) Draw() *DrawInteraction      { return s.draw }
func (s *Session) Disposed() bool              { return s.disposed }

// QueryLayer is the layer currently answering the query, nil after Dispose.
func (s *Session) QueryLayer() *Layer {
	if s.disposed {
		return nil
	}
	return s.manager.Current()
}

func (s *Session) onSettle(e model.Extent) {
	if s.disposed {
		return
	}
	if gb, err := ToGeographic(e); err == nil {
		s.logger.Info("view settled", "bounds", gb, "zoom", s.viewport.Zoom())
	}
	if q := s.manager.Current(); q != nil && q.Source != nil {
		q.Source.Load(e)
	}
}

// StartDraw arms a new draw interaction unless one is already active.
func (s *Session) StartDraw() error {
	if s.disposed {
		return ErrDisposed
	}
	if s.draw != nil && s.draw.State() == DrawActive {
		return nil
	}
	s.drawSub.Unsubscribe()
	d := NewDrawInteraction(s.surface, s.sketches, s.logger)
	s.drawSub = d.OnFinished(s.onDrawFinished)
	if err := d.Activate(); err != nil {
		return err
	}
	s.draw = d
	return nil
}

func (s *Session) onDrawFinished(ring model.Ring) {
	if s.disposed {
		return
	}
	s.drawSub = nil
	if err := s.manager.OnDrawFinished(ring); err != nil {
		s.logger.Error("query layer swap failed", "err", err)
	}
}

// Dispatch feeds an input gesture to the map surface.
func (s *Session) Dispatch(ev PointerEvent) error {
	if s.disposed {
		return ErrDisposed
	}
	s.surface.Dispatch(ev)
	return nil
}

// Refresh reloads the query layer.
func (s *Session) Refresh() error {
	if s.disposed {
		return ErrDisposed
	}
	if q := s.manager.Current(); q != nil && q.Source != nil {
		q.Source.Refresh()
	}
	return nil
}

// Dispose detaches every listener and disposes every source. Fetches that
// complete afterwards are dropped. Safe to call more than once.
func (s *Session) Dispose() {
	if s.disposed {
		return
	}
	s.disposed = true
	for _, sub := range s.subs {
		sub.Unsubscribe()
	}
	s.subs = nil
	s.drawSub.Unsubscribe()
	if s.draw != nil {
		s.draw.Dispose()
	}
	for _, l := range s.registry.Layers() {
		if l.Source != nil {
			l.Source.Dispose()
			observability.ForgetLayer(l.ID)
		}
	}
	s.manager.dispose()
	s.registry.clear()
	s.viewport.detach()
	s.logger.Info("map session disposed")
}
