package tracker

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Curve plots a learning curve of returns and their moving average
// against environment steps. The plot is written as an image when the
// Tracker is saved; the format is taken from the file extension.
type Curve struct {
	title    string
	filename string
	returns  plotter.XYs
	ewma     plotter.XYs
}

// NewCurve returns a new Curve which saves its plot to filename
func NewCurve(title, filename string) *Curve {
	return &Curve{title: title, filename: filename}
}

// Track adds the return and moving average of an Event to the curve
func (c *Curve) Track(e Event) {
	x := float64(e.Step)
	c.returns = append(c.returns, plotter.XY{X: x, Y: e.Return})
	c.ewma = append(c.ewma, plotter.XY{X: x, Y: e.EWMA})
}

// Save plots the tracked data and saves the plot
func (c *Curve) Save() error {
	p := plot.New()

	p.Title.Text = c.title
	p.X.Label.Text = "Steps"
	p.Y.Label.Text = "Return"

	if len(c.returns) > 0 {
		returns, err := plotter.NewLine(c.returns)
		if err != nil {
			return fmt.Errorf("save: could not create line plotter: %w", err)
		}
		returns.Width = vg.Points(0.5)

		ewma, err := plotter.NewLine(c.ewma)
		if err != nil {
			return fmt.Errorf("save: could not create line plotter: %w", err)
		}
		ewma.Color = color.RGBA{R: 200, G: 30, B: 30, A: 255}
		ewma.Width = vg.Points(1.5)

		p.Add(returns, ewma)
		p.Legend.Add("return", returns)
		p.Legend.Add("moving average", ewma)
	}

	if err := p.Save(8*vg.Inch, 5*vg.Inch, c.filename); err != nil {
		return fmt.Errorf("save: could not save plot: %w", err)
	}
	return nil
}
