package ogc

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mohammed-shakir/wfs-draw-query/internal/core/model"
)

const DefaultGeomColumn = "geom"

var ErrDegenerateRing = errors.New("polygon ring has <3 distinct vertices")

// WithinFilter builds WITHIN(<column>, POLYGON((y x, ...))) from a drawn ring.
// Each vertex is written with its axes swapped because the service reads
// coordinates in the reverse order of the map's storage. The ring is closed
// before writing so the output is always a valid WKT polygon.
func WithinFilter(column string, ring model.Ring) (string, error) {
	if ring.Distinct() < 3 {
		return "", ErrDegenerateRing
	}
	if strings.TrimSpace(column) == "" {
		column = DefaultGeomColumn
	}
	closed := ring.Closed()
	pts := make([]string, 0, len(closed))
	for _, p := range closed {
		pts = append(pts, model.FormatCoord(p.Y())+" "+model.FormatCoord(p.X()))
	}
	return fmt.Sprintf("WITHIN(%s, POLYGON((%s)))", column, strings.Join(pts, ", ")), nil
}
