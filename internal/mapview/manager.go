package mapview

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/mohammed-shakir/wfs-draw-query/internal/core/model"
	"github.com/mohammed-shakir/wfs-draw-query/internal/core/observability"
	"github.com/mohammed-shakir/wfs-draw-query/internal/core/ogc"
	"github.com/mohammed-shakir/wfs-draw-query/internal/core/proj"
)

var ErrNoQueryLayer = errors.New("no query layer")

type ManagerConfig struct {
	GeoServerURL string
	GeomColumn   string
	WorkingSRS   string
	// FilterSRS is the CRS the predicate is written in. Empty means WorkingSRS.
	FilterSRS    string
}

// QueryLayerManager owns the reference to the one active query layer and
// replaces it after each completed draw.
type QueryLayerManager struct {
	registry *Registry
	current  *Layer
	cfg      ManagerConfig
	deps     SourceDeps
	logger   *slog.Logger
	gen      int
	swapped  listeners[*Layer]
}

func NewQueryLayerManager(reg *Registry, current *Layer, cfg ManagerConfig, deps SourceDeps) *QueryLayerManager {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &QueryLayerManager{
		registry: reg,
		current:  current,
		cfg:      cfg,
		deps:     deps,
		logger:   logger.With("component", "query_layer_manager"),
	}
}

func (m *QueryLayerManager) Current() *Layer { return m.current }

// OnSwap runs fn with the new query layer right after each swap.
func (m *QueryLayerManager) OnSwap(fn func(*Layer)) *Subscription {
	return m.swapped.add(fn)
}

// OnDrawFinished filters the query layer's feature type to ring.
//
// The replacement layer goes into the registry directly above the old one
// before the old one is removed, so the feature type is never without a
// layer. A failing filter load still leaves the new layer in place, showing
// no features.
func (m *QueryLayerManager) OnDrawFinished(ring model.Ring) error {
	old := m.current
	if old == nil || old.Source == nil {
		return ErrNoQueryLayer
	}

	filterRing, err := m.filterRing(ring)
	if err != nil {
		return err
	}
	cql, err := ogc.WithinFilter(m.cfg.GeomColumn, filterRing)
	if err != nil {
		if errors.Is(err, ogc.ErrDegenerateRing) {
			return fmt.Errorf("%w: %v", ErrTooFewVertices, err)
		}
		return err
	}

	typeName := old.Source.TypeName()
	m.gen++
	id := fmt.Sprintf("query-%d", m.gen)

	deps := m.deps
	deps.Label = id
	src := NewFilterSource(typeName, ogc.FilterURL(m.cfg.GeoServerURL, typeName, cql), deps)
	next := &Layer{
		ID:     id,
		Kind:   KindVectorOverlay,
		Title:  old.Title,
		Style:  old.Style,
		Source: src,
	}

	if err := m.registry.InsertAfter(old.ID, next); err != nil {
		src.Dispose()
		return fmt.Errorf("insert query layer: %w", err)
	}
	if _, err := m.registry.Remove(old.ID); err != nil {
		m.logger.Warn("old query layer already gone", "layer", old.ID, "err", err)
	}
	old.Source.Dispose()
	observability.ForgetLayer(old.ID)
	m.current = next

	observability.IncLayerSwap()
	m.logger.Info("query layer swapped",
		"from", old.ID, "to", next.ID, "typename", typeName, "filter", cql)
	m.swapped.emit(next)
	return nil
}

func (m *QueryLayerManager) filterRing(ring model.Ring) (model.Ring, error) {
	to := m.cfg.FilterSRS
	if to == "" || to == m.cfg.WorkingSRS {
		return ring, nil
	}
	out := make(model.Ring, 0, len(ring))
	for _, p := range ring {
		q, err := proj.Transform(p, m.cfg.WorkingSRS, to)
		if err != nil {
			return nil, fmt.Errorf("reproject ring: %w", err)
		}
		out = append(out, q)
	}
	return out, nil
}

func (m *QueryLayerManager) dispose() {
	m.swapped.clear()
	m.current = nil
}
