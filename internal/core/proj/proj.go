// Package proj holds the process-wide projection registry used to move
// coordinates between the working projection and geographic lat/lon.
package proj

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

const (
	WGS84       = "EPSG:4326"
	WebMercator = "EPSG:3857"
	UTM19South  = "EPSG:32719"
)

type Projection interface {
	Code() string
	ToWGS84(p orb.Point) orb.Point
	FromWGS84(p orb.Point) orb.Point
}

type funcProjection struct {
	code    string
	toWGS   orb.Projection
	fromWGS orb.Projection
}

func (f funcProjection) Code() string                    { return f.code }
func (f funcProjection) ToWGS84(p orb.Point) orb.Point   { return f.toWGS(p) }
func (f funcProjection) FromWGS84(p orb.Point) orb.Point { return f.fromWGS(p) }

var (
	mu       sync.RWMutex
	registry = map[string]Projection{
		WGS84: funcProjection{
			code:    WGS84,
			toWGS:   func(p orb.Point) orb.Point { return p },
			fromWGS: func(p orb.Point) orb.Point { return p },
		},
		WebMercator: funcProjection{
			code:    WebMercator,
			toWGS:   project.Mercator.ToWGS84,
			fromWGS: project.WGS84.ToMercator,
		},
	}

	initOnce  sync.Once
	initCalls int
)

// Init registers the custom projections. Safe to call from every session;
// registration runs once per process.
func Init() {
	initOnce.Do(func() {
		Register(NewUTM(UTM19South, 19, true))
		mu.Lock()
		initCalls++
		mu.Unlock()
	})
}

func Register(p Projection) {
	mu.Lock()
	defer mu.Unlock()
	registry[normalize(p.Code())] = p
}

func Get(code string) (Projection, bool) {
	mu.RLock()
	defer mu.RUnlock()
	p, ok := registry[normalize(code)]
	return p, ok
}

// Codes lists registered codes in sorted order.
func Codes() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func Transform(p orb.Point, from, to string) (orb.Point, error) {
	if normalize(from) == normalize(to) {
		return p, nil
	}
	src, ok := Get(from)
	if !ok {
		return orb.Point{}, fmt.Errorf("unknown projection %q", from)
	}
	dst, ok := Get(to)
	if !ok {
		return orb.Point{}, fmt.Errorf("unknown projection %q", to)
	}
	return dst.FromWGS84(src.ToWGS84(p)), nil
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func initCount() int {
	mu.RLock()
	defer mu.RUnlock()
	return initCalls
}
