package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"

	"github.com/mohammed-shakir/wfs-draw-query/internal/core/model"
	"github.com/mohammed-shakir/wfs-draw-query/internal/core/proj"
)

// parseRing reads "x y, x y, ..." pairs in srs and returns them in the working projection.
func parseRing(s, srs, working string) (model.Ring, error) {
	var ring model.Ring
	for i, pair := range strings.Split(s, ",") {
		fields := strings.Fields(pair)
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 2 {
			return nil, fmt.Errorf("vertex %d: want \"x y\", got %q", i+1, strings.TrimSpace(pair))
		}
		x, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, fmt.Errorf("vertex %d: %w", i+1, err)
		}
		y, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("vertex %d: %w", i+1, err)
		}
		p, err := proj.Transform(orb.Point{x, y}, srs, working)
		if err != nil {
			return nil, err
		}
		ring = append(ring, p)
	}
	return ring, nil
}
