package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// applyMsg carries a posted callback into Update, where it runs on the
// program goroutine alongside every other map mutation.
type applyMsg func()

// Poster routes fetch completions through the bubbletea message pump.
type Poster struct {
	mu     sync.Mutex
	prog   *tea.Program
	closed bool
}

func NewPoster() *Poster { return &Poster{} }

func (p *Poster) Bind(prog *tea.Program) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prog = prog
}

func (p *Poster) Post(fn func()) bool {
	p.mu.Lock()
	prog, closed := p.prog, p.closed
	p.mu.Unlock()
	if closed || prog == nil {
		return false
	}
	prog.Send(applyMsg(fn))
	return true
}

func (p *Poster) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}
