package mapview

import (
	"errors"
	"log/slog"

	"github.com/paulmach/orb"

	"github.com/mohammed-shakir/wfs-draw-query/internal/core/model"
	"github.com/mohammed-shakir/wfs-draw-query/internal/core/observability"
)

var (
	ErrTooFewVertices = errors.New("polygon needs at least 3 distinct vertices")
	ErrDrawConsumed   = errors.New("draw interaction already completed")
)

type PointerKind int

const (
	PointerMove PointerKind = iota
	PointerClick
	PointerDoubleClick
	KeyFinish
	KeyCancel
)

// PointerEvent is an input gesture in working coordinates.
type PointerEvent struct {
	Kind  PointerKind
	Point orb.Point
}

// Surface is the map's input surface. At most the interactions that
// captured it see its events.
type Surface struct {
	capture listeners[PointerEvent]
}

func NewSurface() *Surface { return &Surface{} }

func (s *Surface) Capture(fn func(PointerEvent)) *Subscription {
	return s.capture.add(fn)
}

// Dispatch delivers ev to every capturing handler and reports whether any did.
func (s *Surface) Dispatch(ev PointerEvent) bool {
	if s.capture.len() == 0 {
		return false
	}
	s.capture.emit(ev)
	return true
}

func (s *Surface) Captured() bool { return s.capture.len() > 0 }

// Sketches is the content of the scratch layer: finished rings plus the
// ring being drawn.
type Sketches struct {
	rings   []model.Ring
	pending model.Ring
	cursor  *orb.Point
}

func (s *Sketches) Rings() []model.Ring { return s.rings }

// Pending is the in-progress ring followed by the cursor when it is on the map.
func (s *Sketches) Pending() model.Ring {
	if s.cursor == nil || len(s.pending) == 0 {
		return s.pending
	}
	return append(append(model.Ring(nil), s.pending...), *s.cursor)
}

type DrawState int

const (
	DrawIdle DrawState = iota
	DrawActive
	DrawCompleted
)

func (s DrawState) String() string {
	switch s {
	case DrawActive:
		return "active"
	case DrawCompleted:
		return "completed"
	default:
		return "idle"
	}
}

// DrawInteraction captures one polygon. It goes Idle -> Active -> Completed
// and never back; drawing again needs a new interaction.
type DrawInteraction struct {
	state    DrawState
	surface  *Surface
	capture  *Subscription
	sketches *Sketches
	logger   *slog.Logger

	vertices model.Ring
	finished listeners[model.Ring]
}

func NewDrawInteraction(surface *Surface, sketches *Sketches, logger *slog.Logger) *DrawInteraction {
	if sketches == nil {
		sketches = &Sketches{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DrawInteraction{surface: surface, sketches: sketches, logger: logger}
}

func (d *DrawInteraction) State() DrawState { return d.state }

// Vertices returns a copy of the ring captured so far.
func (d *DrawInteraction) Vertices() model.Ring {
	return append(model.Ring(nil), d.vertices...)
}

// Activate attaches the interaction to its surface.
func (d *DrawInteraction) Activate() error {
	switch d.state {
	case DrawActive:
		return nil
	case DrawCompleted:
		return ErrDrawConsumed
	}
	d.state = DrawActive
	d.capture = d.surface.Capture(d.handle)
	return nil
}

// OnFinished registers fn for the single finished event.
func (d *DrawInteraction) OnFinished(fn func(model.Ring)) *Subscription {
	return d.finished.add(fn)
}

func (d *DrawInteraction) handle(ev PointerEvent) {
	if d.state != DrawActive {
		return
	}
	switch ev.Kind {
	case PointerMove:
		p := ev.Point
		d.sketches.cursor = &p
	case PointerClick:
		d.addVertex(ev.Point)
	case PointerDoubleClick:
		d.addVertex(ev.Point)
		_ = d.Finish()
	case KeyFinish:
		_ = d.Finish()
	case KeyCancel:
		d.Cancel()
	}
}

func (d *DrawInteraction) addVertex(p orb.Point) {
	if n := len(d.vertices); n > 0 && d.vertices[n-1].Equal(p) {
		return
	}
	d.vertices = append(d.vertices, p)
	d.sketches.pending = d.Vertices()
}

// Cancel discards the ring in progress. The interaction stays attached.
func (d *DrawInteraction) Cancel() {
	if d.state != DrawActive || len(d.vertices) == 0 {
		return
	}
	d.vertices = nil
	d.sketches.pending = nil
	observability.IncDraw("canceled")
	d.logger.Info("draw canceled")
}

// Finish completes the draw if at least 3 distinct vertices were captured.
// On success it emits finished once and detaches from the surface.
func (d *DrawInteraction) Finish() error {
	switch d.state {
	case DrawIdle:
		return errors.New("draw interaction not active")
	case DrawCompleted:
		return ErrDrawConsumed
	}
	if d.vertices.Distinct() < 3 {
		observability.IncDraw("rejected")
		d.logger.Info("draw finish rejected", "vertices", d.vertices.Distinct())
		return ErrTooFewVertices
	}

	ring := d.Vertices()
	d.state = DrawCompleted
	d.detachSurface()
	d.sketches.rings = append(d.sketches.rings, ring)
	d.sketches.pending = nil
	d.sketches.cursor = nil
	observability.IncDraw("finished")
	d.logger.Info("draw finished", "vertices", len(ring))

	fns := d.finished
	d.finished.clear()
	fns.emit(ring)
	return nil
}

func (d *DrawInteraction) detachSurface() {
	d.capture.Unsubscribe()
	d.capture = nil
}

// Dispose detaches input capture and drops finished listeners without emitting.
func (d *DrawInteraction) Dispose() {
	d.detachSurface()
	d.finished.clear()
	d.sketches.pending = nil
	d.sketches.cursor = nil
}
