package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mohammed-shakir/wfs-draw-query/internal/mapview"
)

func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	w, h := m.mapSize()

	header := titleStyle.Render(" wfsmap ─ " + m.cfg.FeatureType + " ")
	header = lipgloss.NewStyle().Width(w).Render(header)

	var body string
	switch {
	case m.session == nil && m.err != nil:
		body = lipgloss.Place(w, h, lipgloss.Center, lipgloss.Center, errorStyle.Render(m.err.Error()))
	case m.session == nil:
		body = lipgloss.Place(w, h, lipgloss.Center, lipgloss.Center, m.spin.View()+" opening map")
	default:
		body = renderMap(m.session, w, h)
		if m.popup != "" {
			box := popupStyle.MaxWidth(min(60, w)).Render(m.popup)
			body = lipgloss.Place(w, h, lipgloss.Left, lipgloss.Center, box)
		}
	}
	body = lipgloss.NewStyle().Width(w).Height(h).Render(body)

	ui := lipgloss.JoinVertical(lipgloss.Left, header, body, m.footer(w))
	return appStyle.Width(w).Height(m.height).Render(ui)
}

func (m Model) footer(w int) string {
	status := " " + m.status + " "
	if m.session != nil {
		if q := m.session.QueryLayer(); q != nil && q.Source != nil {
			st := q.Source.Status()
			load := fmt.Sprintf("%s %d features", q.Source.Mode(), st.Count)
			if st.Loading {
				load = m.spin.View() + " " + load
			}
			status += dimStyle.Render(" │ " + load)
			if st.LastErr != nil {
				// the map keeps stale features; say so here
				status += errorStyle.Render("  stale: " + st.LastErr.Error())
			}
		}
	}
	coords := ""
	if m.session != nil && m.hovering {
		p := m.session.Viewport().PixelToCoord(float64(m.hoverCell[0]*2)+1, float64(m.hoverCell[1]*4)+2)
		coords = dimStyle.Render(fmt.Sprintf("  x=%.1f y=%.1f  ", p.X(), p.Y()))
	}
	left := dimStyle.Render(status)
	spacer := max(0, w-lipgloss.Width(left)-lipgloss.Width(coords))
	line1 := left + strings.Repeat(" ", spacer) + coords
	return lipgloss.JoinVertical(lipgloss.Left, line1, m.renderHelp())
}

func (m Model) renderHelp() string {
	if !m.helpVisible {
		return ""
	}
	keys := []string{
		"↑↓←→ pan",
		"+/- zoom",
		"d draw",
		"Enter finish",
		"Esc cancel",
		"r refresh",
		"i inspect",
		"h help",
		"q quit",
	}
	return dimStyle.Render("  " + strings.Join(keys, "  "))
}

func (m Model) inspect() string {
	s := m.session
	vp := s.Viewport()
	lines := []string{fmt.Sprintf("session: %s", s.ID())}
	if gb, err := vp.ToGeographic(vp.Extent()); err == nil {
		lines = append(lines, "view: "+describeBounds(gb))
	}
	lines = append(lines, fmt.Sprintf("zoom: %.0f  srs: %s", vp.Zoom(), vp.SRS()))
	for _, l := range s.Registry().Layers() {
		line := fmt.Sprintf("%-8s %-15s %s", l.ID, l.Kind, l.Title)
		switch {
		case l.Source != nil:
			st := l.Source.Status()
			line += fmt.Sprintf("  [%s, %d]", l.Source.Mode(), st.Count)
		case l.Tiles != nil:
			line += "  [tiled wms]"
		}
		lines = append(lines, line)
	}
	if d := s.Draw(); d != nil {
		lines = append(lines, fmt.Sprintf("draw: %s  vertices=%d", d.State(), len(d.Vertices())))
	}
	if q := s.QueryLayer(); q != nil && q.Source != nil && q.Source.Mode() == mapview.ModeFilter {
		lines = append(lines, "filter url:", q.Source.URL())
	}
	lines = append(lines, "", dimStyle.Render("Esc to close"))
	return strings.Join(lines, "\n")
}
