package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/paulmach/orb"

	"github.com/mohammed-shakir/wfs-draw-query/internal/core/model"
	"github.com/mohammed-shakir/wfs-draw-query/internal/mapview"
)

// canvas projects working coordinates onto the braille micro grid. The
// viewport is sized so one viewport pixel is one dot.
type canvas struct {
	vp  *mapview.Viewport
	buf *brailleBuf
}

// dot clamps far off-screen points so a huge polygon edge stays a short line walk.
func (c canvas) dot(p orb.Point) (int, int) {
	px, py := c.vp.CoordToPixel(p)
	wm, hm := float64(c.buf.w*2), float64(c.buf.h*4)
	return int(clamp(px, -wm, 2*wm)), int(clamp(py, -hm, 2*hm))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (c canvas) path(pts []orb.Point, closed bool) {
	if len(pts) == 0 {
		return
	}
	x0, y0 := c.dot(pts[0])
	if len(pts) == 1 {
		c.buf.set(x0, y0)
		return
	}
	px, py := x0, y0
	for _, p := range pts[1:] {
		x, y := c.dot(p)
		c.buf.line(px, py, x, y)
		px, py = x, y
	}
	if closed {
		c.buf.line(px, py, x0, y0)
	}
}

func (c canvas) geometry(g orb.Geometry) {
	switch g := g.(type) {
	case orb.Point:
		c.buf.set(c.dot(g))
	case orb.MultiPoint:
		for _, p := range g {
			c.buf.set(c.dot(p))
		}
	case orb.LineString:
		c.path(g, false)
	case orb.MultiLineString:
		for _, ls := range g {
			c.path(ls, false)
		}
	case orb.Ring:
		c.path(g, true)
	case orb.Polygon:
		for _, r := range g {
			c.path(r, true)
		}
	case orb.MultiPolygon:
		for _, poly := range g {
			for _, r := range poly {
				c.path(r, true)
			}
		}
	case orb.Collection:
		for _, sub := range g {
			c.geometry(sub)
		}
	}
}

// renderMap draws the query layer features and the sketch layer into a
// w by h block of cells. Sketch dots are drawn over features.
func renderMap(s *mapview.Session, w, h int) string {
	vp := s.Viewport()
	extent := vp.Extent()
	features := canvas{vp: vp, buf: newBrailleBuf(w, h)}
	sketch := canvas{vp: vp, buf: newBrailleBuf(w, h)}

	fstyle := queryStyle
	for _, l := range s.Registry().Layers() {
		switch {
		case l.Source != nil:
			fstyle = strokeStyle(l.Style)
			for _, f := range l.Source.FeaturesIn(extent) {
				features.geometry(f.Geometry)
			}
		case l.Scratch != nil:
			for _, r := range l.Scratch.Rings() {
				sketch.path(r, true)
			}
			sketch.path(l.Scratch.Pending(), false)
		}
	}

	var b strings.Builder
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			switch {
			case sketch.buf.lit(x, y):
				b.WriteString(sketchStyle.Render(string(sketch.buf.glyph(x, y))))
			case features.buf.lit(x, y):
				b.WriteString(fstyle.Render(string(features.buf.glyph(x, y))))
			default:
				b.WriteByte(' ')
			}
		}
		if y < h-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// strokeStyle turns an rgba(r, g, b, a) stroke into a foreground color.
func strokeStyle(st mapview.Style) lipgloss.Style {
	var r, g, bl int
	var a float64
	if _, err := fmt.Sscanf(st.Stroke, "rgba(%d, %d, %d, %g)", &r, &g, &bl, &a); err != nil {
		return queryStyle
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fmt.Sprintf("#%02X%02X%02X", r, g, bl)))
}

func describeBounds(gb model.GeoBounds) string {
	return fmt.Sprintf("sw %.5f,%.5f  ne %.5f,%.5f",
		gb.SouthWest.Lat, gb.SouthWest.Lng, gb.NorthEast.Lat, gb.NorthEast.Lng)
}
