package mapview

import (
	"errors"
	"fmt"

	"github.com/mohammed-shakir/wfs-draw-query/internal/core/ogc"
)

type Kind int

const (
	KindBase Kind = iota
	KindRasterOverlay
	KindVectorOverlay
	KindScratch
)

func (k Kind) String() string {
	switch k {
	case KindBase:
		return "base"
	case KindRasterOverlay:
		return "raster-overlay"
	case KindVectorOverlay:
		return "vector-overlay"
	case KindScratch:
		return "scratch"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

type Style struct {
	Stroke      string
	StrokeWidth float64
	Fill        string
}

// DefaultStyle is the query layer style: opaque blue outline, no fill.
var DefaultStyle = Style{Stroke: "rgba(0, 0, 255, 1.0)", StrokeWidth: 2}

// Layer is owned by the Registry. Source is set for vector overlays, Tiles
// for raster overlays and Scratch for the sketch layer.
type Layer struct {
	ID      string
	Kind    Kind
	Title   string
	Style   Style
	Source  *FeatureSource
	Tiles   *ogc.TileWMS
	Scratch *Sketches
}

var (
	ErrDuplicateLayer = errors.New("duplicate layer id")
	ErrUnknownLayer   = errors.New("unknown layer")
)

type ChangeOp int

const (
	OpAdded ChangeOp = iota
	OpRemoved
)

func (o ChangeOp) String() string {
	if o == OpRemoved {
		return "removed"
	}
	return "added"
}

type Change struct {
	Op    ChangeOp
	Layer *Layer
	Index int
}

// Registry is the ordered layer stack, bottom first.
type Registry struct {
	layers []*Layer
	watch  listeners[Change]
}

func NewRegistry() *Registry { return &Registry{} }

func (r *Registry) Add(l *Layer) error {
	return r.insertAt(len(r.layers), l)
}

// InsertAfter places l directly above the layer with id ref.
func (r *Registry) InsertAfter(ref string, l *Layer) error {
	i := r.indexOf(ref)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownLayer, ref)
	}
	return r.insertAt(i+1, l)
}

func (r *Registry) insertAt(i int, l *Layer) error {
	if l == nil || l.ID == "" {
		return errors.New("layer needs an id")
	}
	if r.indexOf(l.ID) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateLayer, l.ID)
	}
	r.layers = append(r.layers, nil)
	copy(r.layers[i+1:], r.layers[i:])
	r.layers[i] = l
	r.watch.emit(Change{Op: OpAdded, Layer: l, Index: i})
	return nil
}

// Remove drops the layer from the stack. It does not dispose its source.
func (r *Registry) Remove(id string) (*Layer, error) {
	i := r.indexOf(id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLayer, id)
	}
	l := r.layers[i]
	r.layers = append(r.layers[:i], r.layers[i+1:]...)
	r.watch.emit(Change{Op: OpRemoved, Layer: l, Index: i})
	return l, nil
}

func (r *Registry) Get(id string) (*Layer, bool) {
	i := r.indexOf(id)
	if i < 0 {
		return nil, false
	}
	return r.layers[i], true
}

// Layers returns the stack bottom first. The slice is a copy.
func (r *Registry) Layers() []*Layer {
	return append([]*Layer(nil), r.layers...)
}

func (r *Registry) Count(k Kind) int {
	n := 0
	for _, l := range r.layers {
		if l.Kind == k {
			n++
		}
	}
	return n
}

func (r *Registry) Len() int { return len(r.layers) }

// Watch observes every add and remove as it happens.
func (r *Registry) Watch(fn func(Change)) *Subscription {
	return r.watch.add(fn)
}

func (r *Registry) indexOf(id string) int {
	for i, l := range r.layers {
		if l.ID == id {
			return i
		}
	}
	return -1
}

func (r *Registry) clear() {
	r.watch.clear()
	r.layers = nil
}
