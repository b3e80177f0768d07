package mapview

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"github.com/mohammed-shakir/wfs-draw-query/internal/core/model"
	"github.com/mohammed-shakir/wfs-draw-query/internal/core/proj"
)

const (
	// resolution at zoom 0 of the 256px web mercator tile pyramid, in metres per pixel
	maxResolution = 156543.03392804097

	MinZoom = 0
	MaxZoom = 28
)

// Viewport tracks center, zoom and surface size. The extent is always derived
// from those three, never stored.
type Viewport struct {
	center        orb.Point
	zoom          float64
	width, height int
	srs           string

	dirty  bool
	settle listeners[model.Extent]
}

// NewViewport starts dirty so the first Settle reports the initial view.
func NewViewport(center orb.Point, zoom float64, width, height int, srs string) *Viewport {
	v := &Viewport{center: center, srs: srs, dirty: true}
	v.zoom = clampZoom(zoom)
	v.width, v.height = max(1, width), max(1, height)
	return v
}

func clampZoom(z float64) float64 {
	if math.IsNaN(z) {
		return MinZoom
	}
	return math.Min(MaxZoom, math.Max(MinZoom, z))
}

func (v *Viewport) Center() orb.Point   { return v.center }
func (v *Viewport) Zoom() float64       { return v.zoom }
func (v *Viewport) Size() (int, int)    { return v.width, v.height }
func (v *Viewport) SRS() string         { return v.srs }
func (v *Viewport) Resolution() float64 { return maxResolution / math.Pow(2, v.zoom) }

func (v *Viewport) Extent() model.Extent {
	res := v.Resolution()
	hw := float64(v.width) * res / 2
	hh := float64(v.height) * res / 2
	return model.Extent{
		MinX: v.center.X() - hw,
		MinY: v.center.Y() - hh,
		MaxX: v.center.X() + hw,
		MaxY: v.center.Y() + hh,
		SRS:  v.srs,
	}
}

// Pan moves the view by a surface delta in pixels; positive dy moves down.
func (v *Viewport) Pan(dx, dy float64) {
	if dx == 0 && dy == 0 {
		return
	}
	res := v.Resolution()
	v.center = orb.Point{v.center.X() + dx*res, v.center.Y() - dy*res}
	v.dirty = true
}

func (v *Viewport) SetCenter(c orb.Point) {
	if c.Equal(v.center) {
		return
	}
	v.center = c
	v.dirty = true
}

func (v *Viewport) SetZoom(z float64) {
	z = clampZoom(z)
	if z == v.zoom {
		return
	}
	v.zoom = z
	v.dirty = true
}

func (v *Viewport) ZoomBy(delta float64) { v.SetZoom(v.zoom + delta) }

func (v *Viewport) Resize(width, height int) {
	width, height = max(1, width), max(1, height)
	if width == v.width && height == v.height {
		return
	}
	v.width, v.height = width, height
	v.dirty = true
}

// PixelToCoord maps a surface pixel (origin top-left) to working coordinates.
func (v *Viewport) PixelToCoord(px, py float64) orb.Point {
	e := v.Extent()
	res := v.Resolution()
	return orb.Point{e.MinX + px*res, e.MaxY - py*res}
}

// CoordToPixel is the inverse of PixelToCoord.
func (v *Viewport) CoordToPixel(p orb.Point) (float64, float64) {
	e := v.Extent()
	res := v.Resolution()
	return (p.X() - e.MinX) / res, (e.MaxY - p.Y()) / res
}

// OnSettle registers fn to run once per view change that has come to rest.
func (v *Viewport) OnSettle(fn func(model.Extent)) *Subscription {
	return v.settle.add(fn)
}

// Settle reports the current extent to listeners if the view changed since
// the last settle. Intermediate motion between settles is never reported.
func (v *Viewport) Settle() bool {
	if !v.dirty {
		return false
	}
	v.dirty = false
	v.settle.emit(v.Extent())
	return true
}

func (v *Viewport) Dirty() bool { return v.dirty }

func (v *Viewport) detach() { v.settle.clear() }

// ToGeographic converts an extent to lat/lng corners.
func ToGeographic(e model.Extent) (model.GeoBounds, error) {
	sw, err := proj.Transform(e.BottomLeft(), e.SRS, proj.WGS84)
	if err != nil {
		return model.GeoBounds{}, fmt.Errorf("to geographic: %w", err)
	}
	ne, err := proj.Transform(e.TopRight(), e.SRS, proj.WGS84)
	if err != nil {
		return model.GeoBounds{}, fmt.Errorf("to geographic: %w", err)
	}
	return model.GeoBounds{
		SouthWest: model.LatLng{Lat: sw.Lat(), Lng: sw.Lon()},
		NorthEast: model.LatLng{Lat: ne.Lat(), Lng: ne.Lon()},
	}, nil
}

func (v *Viewport) ToGeographic(e model.Extent) (model.GeoBounds, error) {
	return ToGeographic(e)
}
