package tui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/muesli/termenv"
)

const barWidth = 30

// Progress draws a single-line progress bar. On a terminal the line is
// redrawn in place; elsewhere one line is written per update.
type Progress struct {
	mu      sync.Mutex
	out     *termenv.Output
	inPlace bool
	drawn   bool
}

// NewProgress creates a progress bar writing to w.
func NewProgress(w io.Writer) *Progress {
	return &Progress{
		out:     termenv.NewOutput(w),
		inPlace: IsTerminal(w),
	}
}

// Update draws completed/total. Its signature matches domain.ProgressFunc.
func (p *Progress) Update(completed, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	filled := 0
	if total > 0 {
		filled = min(barWidth, barWidth*completed/total)
	}
	bar := p.out.String(strings.Repeat("█", filled)).Foreground(p.out.Color("#38bdf8")).String() +
		strings.Repeat("░", barWidth-filled)

	if p.inPlace {
		p.out.ClearLine()
		fmt.Fprintf(p.out, "\r%s %d/%d", bar, completed, total)
	} else {
		fmt.Fprintf(p.out, "%s %d/%d\n", bar, completed, total)
	}
	p.drawn = true
}

// Done terminates the in-place line.
func (p *Progress) Done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inPlace && p.drawn {
		fmt.Fprintln(p.out)
	}
	p.drawn = false
}
