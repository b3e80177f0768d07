// Package tui is an interactive terminal map. It renders the session's
// layers with braille dots and feeds keyboard and mouse input to the map
// surface.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mohammed-shakir/wfs-draw-query/internal/core/config"
	"github.com/mohammed-shakir/wfs-draw-query/internal/core/executor"
	"github.com/mohammed-shakir/wfs-draw-query/internal/mapview"
)

const (
	headerHeight = 1
	footerHeight = 2
	doubleClick  = 400 * time.Millisecond
)

type openMsg struct{}

type settleMsg struct{ gen int }

type Model struct {
	cfg    config.Config
	deps   mapview.Deps
	logger *slog.Logger

	session *mapview.Session
	err     error

	width, height int
	helpVisible   bool
	popup         string
	status        string
	spin          spinner.Model

	// each motion bumps gen; only the settle tick carrying the latest gen settles
	motionGen int

	lastClickAt   time.Time
	lastClickCell [2]int

	hoverCell [2]int
	hovering  bool
}

// New prepares a model; the session opens once the program starts.
func New(cfg config.Config, fetcher executor.Interface, poster mapview.Poster, logger *slog.Logger) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = dimStyle
	return Model{
		cfg:         cfg,
		deps:        mapview.Deps{Fetcher: fetcher, Poster: poster, Logger: logger},
		logger:      logger,
		helpVisible: true,
		status:      "opening map",
		spin:        sp,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(func() tea.Msg { return openMsg{} }, m.spin.Tick)
}

// Session is nil until the program has processed its first message.
func (m Model) Session() *mapview.Session { return m.session }

func (m Model) mapSize() (int, int) {
	return max(10, m.width), max(4, m.height-headerHeight-footerHeight)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case openMsg:
		cfg := m.cfg
		if m.width > 0 {
			w, h := m.mapSize()
			cfg.ViewWidth, cfg.ViewHeight = w*2, h*4
		}
		s, err := mapview.Open(context.Background(), cfg, m.deps)
		if err != nil {
			m.err = err
			m.status = "open failed: " + err.Error()
			return m, nil
		}
		m.session = s
		m.status = "map ready  d to draw"
		return m, nil

	case applyMsg:
		msg()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case settleMsg:
		if m.session != nil && msg.gen == m.motionGen {
			m.session.Viewport().Settle()
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resizeViewport()
		cmd := m.settleLater()
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)
	}
	return m, nil
}

func (m *Model) resizeViewport() {
	if m.session == nil || m.width == 0 {
		return
	}
	w, h := m.mapSize()
	// one viewport pixel per braille dot
	m.session.Viewport().Resize(w*2, h*4)
}

func (m *Model) settleLater() tea.Cmd {
	m.motionGen++
	gen := m.motionGen
	delay := m.cfg.SettleDelay
	if delay <= 0 {
		return func() tea.Msg { return settleMsg{gen: gen} }
	}
	return tea.Tick(delay, func(time.Time) tea.Msg { return settleMsg{gen: gen} })
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	if m.session != nil {
		m.session.Dispose()
	}
	if c, ok := m.deps.Poster.(interface{ Close() }); ok {
		c.Close()
	}
	return m, tea.Quit
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" || key == "q" {
		return m.quit()
	}
	if m.session == nil {
		return m, nil
	}
	if m.popup != "" && key == "esc" {
		m.popup = ""
		return m, nil
	}

	vp := m.session.Viewport()
	w, h := vp.Size()
	switch key {
	case "up":
		vp.Pan(0, -float64(h)/8)
	case "down":
		vp.Pan(0, float64(h)/8)
	case "left":
		vp.Pan(-float64(w)/8, 0)
	case "right":
		vp.Pan(float64(w)/8, 0)
	case "+", "=":
		vp.ZoomBy(1)
		m.status = fmt.Sprintf("zoom %.0f", vp.Zoom())
	case "-", "_":
		vp.ZoomBy(-1)
		m.status = fmt.Sprintf("zoom %.0f", vp.Zoom())
	case "d":
		if err := m.session.StartDraw(); err != nil {
			m.status = "draw: " + err.Error()
		} else {
			m.status = "drawing  click vertices, Enter or double-click to finish, Esc to cancel"
		}
		return m, nil
	case "enter":
		m.finishDraw()
		return m, nil
	case "esc":
		_ = m.session.Dispatch(mapview.PointerEvent{Kind: mapview.KeyCancel})
		m.status = "draw canceled"
		return m, nil
	case "r":
		_ = m.session.Refresh()
		m.status = "refreshing"
		return m, nil
	case "i":
		m.popup = m.inspect()
		return m, nil
	case "h":
		m.helpVisible = !m.helpVisible
		return m, nil
	default:
		return m, nil
	}
	cmd := m.settleLater()
	return m, cmd
}

func (m *Model) finishDraw() {
	d := m.session.Draw()
	if d == nil || d.State() != mapview.DrawActive {
		return
	}
	before := m.session.QueryLayer()
	_ = m.session.Dispatch(mapview.PointerEvent{Kind: mapview.KeyFinish})
	m.reportDraw(before)
}

func (m *Model) reportDraw(before *mapview.Layer) {
	if m.session.QueryLayer() != before {
		m.status = "querying features inside polygon"
		return
	}
	if d := m.session.Draw(); d != nil && d.State() == mapview.DrawActive && len(d.Vertices()) > 0 && len(d.Vertices()) < 3 {
		m.status = "need at least 3 vertices"
	}
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if m.session == nil {
		return m, nil
	}
	w, h := m.mapSize()
	cx, cy := msg.X, msg.Y-headerHeight
	if cx < 0 || cy < 0 || cx >= w || cy >= h {
		m.hovering = false
		return m, nil
	}
	m.hovering = true
	m.hoverCell = [2]int{cx, cy}
	pt := m.session.Viewport().PixelToCoord(float64(cx*2)+1, float64(cy*4)+2)

	switch {
	case msg.Action == tea.MouseActionMotion:
		_ = m.session.Dispatch(mapview.PointerEvent{Kind: mapview.PointerMove, Point: pt})
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		now := time.Now()
		kind := mapview.PointerClick
		if now.Sub(m.lastClickAt) < doubleClick && m.lastClickCell == m.hoverCell {
			kind = mapview.PointerDoubleClick
		}
		m.lastClickAt, m.lastClickCell = now, m.hoverCell
		before := m.session.QueryLayer()
		_ = m.session.Dispatch(mapview.PointerEvent{Kind: kind, Point: pt})
		m.reportDraw(before)
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonWheelUp:
		m.session.Viewport().ZoomBy(1)
		cmd := m.settleLater()
		return m, cmd
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonWheelDown:
		m.session.Viewport().ZoomBy(-1)
		cmd := m.settleLater()
		return m, cmd
	}
	return m, nil
}
