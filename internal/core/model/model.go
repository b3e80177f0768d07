// Package model defines core domain types shared across the service.
package model

import (
	"fmt"
	"math"
	"strconv"

	"github.com/paulmach/orb"
)

// Extent is an axis-aligned rectangle in a given projection.
type Extent struct {
	MinX, MinY float64
	MaxX, MaxY float64
	SRS        string
}

// String representation matching the wfs bbox format
func (e Extent) String() string {
	return e.Coords() + "," + e.SRS
}

// Coords joins the corners as minx,miny,maxx,maxy without the srs suffix.
func (e Extent) Coords() string {
	return fmt.Sprintf("%s,%s,%s,%s", FormatCoord(e.MinX), FormatCoord(e.MinY), FormatCoord(e.MaxX), FormatCoord(e.MaxY))
}

func (e Extent) Width() float64  { return e.MaxX - e.MinX }
func (e Extent) Height() float64 { return e.MaxY - e.MinY }

func (e Extent) Center() orb.Point {
	return orb.Point{(e.MinX + e.MaxX) / 2, (e.MinY + e.MaxY) / 2}
}

func (e Extent) Bound() orb.Bound {
	return orb.Bound{Min: orb.Point{e.MinX, e.MinY}, Max: orb.Point{e.MaxX, e.MaxY}}
}

func (e Extent) BottomLeft() orb.Point { return orb.Point{e.MinX, e.MinY} }
func (e Extent) TopRight() orb.Point   { return orb.Point{e.MaxX, e.MaxY} }

// Equal compares extents exactly; two settles at the same view produce identical values.
func (e Extent) Equal(o Extent) bool {
	return e.MinX == o.MinX && e.MinY == o.MinY && e.MaxX == o.MaxX && e.MaxY == o.MaxY && e.SRS == o.SRS
}

func (e Extent) Valid() bool {
	return e.MaxX > e.MinX && e.MaxY > e.MinY &&
		!math.IsNaN(e.MinX) && !math.IsNaN(e.MinY) && !math.IsInf(e.MaxX, 0) && !math.IsInf(e.MaxY, 0)
}

type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// GeoBounds is an extent converted to geographic coordinates for display and logging.
type GeoBounds struct {
	SouthWest LatLng `json:"southWest"`
	NorthEast LatLng `json:"northEast"`
}

// Ring is the exterior ring of a drawn polygon in the working projection, in drawing order.
type Ring []orb.Point

// Closed returns the ring with its first vertex repeated at the end when it isn't already.
func (r Ring) Closed() Ring {
	if len(r) == 0 {
		return nil
	}
	out := make(Ring, len(r), len(r)+1)
	copy(out, r)
	if !r[0].Equal(r[len(r)-1]) {
		out = append(out, r[0])
	}
	return out
}

// Distinct counts vertices ignoring a trailing closing vertex and consecutive repeats.
func (r Ring) Distinct() int {
	n := 0
	for i, p := range r {
		if i > 0 && p.Equal(r[i-1]) {
			continue
		}
		if i == len(r)-1 && i > 0 && p.Equal(r[0]) {
			continue
		}
		n++
	}
	return n
}

func (r Ring) Polygon() orb.Polygon {
	return orb.Polygon{orb.Ring(r.Closed())}
}

// FormatCoord renders a coordinate in its shortest round-trip decimal form.
func FormatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
