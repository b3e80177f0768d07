package tui

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mohammed-shakir/wfs-draw-query/internal/core/config"
	"github.com/mohammed-shakir/wfs-draw-query/internal/mapview"
)

type fetcherFunc func(ctx context.Context, rawURL string) ([]byte, error)

func (f fetcherFunc) Fetch(ctx context.Context, rawURL string) ([]byte, error) { return f(ctx, rawURL) }

// heldPoster keeps completions until the test runs them.
type heldPoster struct {
	mu     sync.Mutex
	fns    []func()
	closed bool
}

func (p *heldPoster) Post(fn func()) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	p.fns = append(p.fns, fn)
	return true
}

func (p *heldPoster) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}

func TestBraille_DotsAndLines(t *testing.T) {
	b := newBrailleBuf(3, 1)
	b.set(0, 0)
	if g := b.glyph(0, 0); g != '⠁' {
		t.Fatalf("glyph=%U want U+2801", g)
	}
	b.line(0, 3, 5, 3)
	for x := 0; x < 3; x++ {
		if !b.lit(x, 0) {
			t.Fatalf("cell %d not lit by horizontal line", x)
		}
	}
	b.set(100, 100)
	b.set(-1, 0)
}

func newTestModel(t *testing.T) (Model, *heldPoster) {
	t.Helper()
	cfg := config.Config{
		GeoServerURL: "http://gs/geoserver",
		FeatureType:  "demo:roads",
		WorkingSRS:   "EPSG:3857",
		GeomColumn:   "geom",
		CenterLon:    -70.673676,
		CenterLat:    -33.448993,
		Zoom:         9,
	}
	fetch := fetcherFunc(func(context.Context, string) ([]byte, error) {
		return []byte(`{"type":"FeatureCollection","features":[]}`), nil
	})
	p := &heldPoster{}
	m := New(cfg, fetch, p, slog.New(slog.NewTextHandler(io.Discard, nil)))

	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	next, _ = next.(Model).Update(openMsg{})
	m = next.(Model)
	if m.Session() == nil {
		t.Fatalf("session not opened: %v", m.err)
	}
	return m, p
}

func TestModel_OpensWithTerminalSizedViewport(t *testing.T) {
	m, _ := newTestModel(t)
	w, h := m.Session().Viewport().Size()
	if w != 160 || h != (24-headerHeight-footerHeight)*4 {
		t.Fatalf("viewport size %dx%d", w, h)
	}
	if !strings.Contains(m.View(), "demo:roads") {
		t.Fatal("header missing feature type")
	}
}

func TestModel_PanSchedulesSettle(t *testing.T) {
	m, _ := newTestModel(t)
	before := m.Session().Viewport().Center()

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRight})
	m = next.(Model)
	if cmd == nil {
		t.Fatal("pan should schedule a settle")
	}
	if m.Session().Viewport().Center().X() <= before.X() {
		t.Fatal("right arrow did not pan east")
	}
	if !m.Session().Viewport().Dirty() {
		t.Fatal("pan should leave the view unsettled until the tick")
	}

	// a stale tick does nothing
	next, _ = m.Update(settleMsg{gen: m.motionGen - 1})
	m = next.(Model)
	if !m.Session().Viewport().Dirty() {
		t.Fatal("stale settle tick settled the view")
	}
	next, _ = m.Update(settleMsg{gen: m.motionGen})
	m = next.(Model)
	if m.Session().Viewport().Dirty() {
		t.Fatal("latest settle tick did not settle the view")
	}
}

func TestModel_MouseDrawSwapsQueryLayer(t *testing.T) {
	m, _ := newTestModel(t)
	press := func(x, y int) {
		next, _ := m.Update(tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
		m = next.(Model)
	}
	press(10, 5)
	press(30, 5)
	press(30, 15)
	press(30, 15) // second quick press on the same cell is a double click

	q := m.Session().QueryLayer()
	if q.ID == mapview.InitialQueryID || q.Source.Mode() != mapview.ModeFilter {
		t.Fatalf("query layer %s not swapped", q.ID)
	}
	if !strings.Contains(m.inspect(), "CQL_FILTER") {
		t.Fatal("inspect popup should show the filter url")
	}
}

func TestModel_QuitDisposesSession(t *testing.T) {
	m, p := newTestModel(t)
	s := m.Session()
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("quit should return tea.Quit")
	}
	if !s.Disposed() {
		t.Fatal("session not disposed on quit")
	}
	if p.Post(func() {}) {
		t.Fatal("poster accepted work after quit")
	}
}
