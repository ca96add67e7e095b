// Package progressbar implements a progress bar which is redrawn in
// place on a terminal
package progressbar

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Bar is a progress bar that must be manually managed. Display must be
// called whenever an updated progress bar should be printed.
//
// Bar does not use concurrency.
type Bar struct {
	out       io.Writer
	width     float64
	max       float64
	current   float64
	bar       strings.Builder
	startTime time.Time
}

// New returns a new Bar of the given width in characters which is full
// after max increments
func New(out io.Writer, width, max int) *Bar {
	if max < 1 {
		max = 1
	}
	return &Bar{
		out:       out,
		width:     float64(width),
		max:       float64(max),
		startTime: time.Now(),
	}
}

// Increment increments the internal progress counter. Each time an
// iteration is performed, Increment should be called.
func (p *Bar) Increment() {
	if p.current < p.max {
		p.current++
	}
}

// Progress returns the fraction of iterations completed
func (p *Bar) Progress() float64 {
	return p.current / p.max
}

// Display redraws the progress bar followed by status
func (p *Bar) Display(status string) {
	p.bar.Reset()
	p.bar.WriteString("|")

	filled := p.Progress() * p.width
	for i := 0.0; i < filled; i++ {
		p.bar.WriteString("█")
	}
	for i := filled; i < p.width; i++ {
		p.bar.WriteString(" ")
	}
	p.bar.WriteString(fmt.Sprintf("| [%.2f%% | elapsed: %v]",
		p.Progress()*100, time.Since(p.startTime).Truncate(time.Second)))
	if status != "" {
		p.bar.WriteString(" ")
		p.bar.WriteString(status)
	}

	fmt.Fprintf(p.out, "\n\033[1A\033[K%v", p.bar.String())
}

// Finish moves the cursor past the progress bar
func (p *Bar) Finish() {
	fmt.Fprintln(p.out)
}
