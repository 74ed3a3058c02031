// Package charts renders dashboard views to PNG with gonum/plot.
package charts

import (
	"errors"
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
)

// ErrUnsupportedChart is returned for views without a chart.
var ErrUnsupportedChart = errors.New("view has no chart")

// Default canvas size
const (
	DefaultWidth  = 10 * vg.Inch
	DefaultHeight = 6 * vg.Inch
)

var (
	colorPrimary   = color.RGBA{R: 70, G: 130, B: 180, A: 255}
	colorSecondary = color.RGBA{R: 255, G: 140, B: 0, A: 255}
	colorNaN       = color.RGBA{R: 200, G: 200, B: 200, A: 255}
)

// Renderer writes plots as PNG images.
type Renderer struct {
	Width  vg.Length
	Height vg.Length
}

// NewRenderer returns a renderer with the default canvas size.
func NewRenderer() Renderer {
	return Renderer{Width: DefaultWidth, Height: DefaultHeight}
}

// Render encodes p as PNG to w.
func (r Renderer) Render(w io.Writer, p *plot.Plot) error {
	width, height := r.Width, r.Height
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}

	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return fmt.Errorf("failed to create png canvas: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}

func newPlot(title, xLabel, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(16)
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	p.Legend.Top = true
	return p
}
