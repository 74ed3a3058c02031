package charts

import (
	"math"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"

	"bikedash/internal/analytics"
)

// correlationGrid adapts a correlation matrix to plotter.GridXYZ. Row 0 is
// drawn at the top so the layout matches the table.
type correlationGrid struct {
	values [][]float64
}

func (g correlationGrid) Dims() (c, r int) { return len(g.values), len(g.values) }
func (g correlationGrid) Z(c, r int) float64 { return g.values[len(g.values)-1-r][c] }
func (g correlationGrid) X(c int) float64  { return float64(c) }
func (g correlationGrid) Y(r int) float64  { return float64(r) }

// Correlation draws the matrix as a heatmap with the coefficient in each
// cell. Undefined cells are grey.
func Correlation(c analytics.Correlation) (*plot.Plot, error) {
	p := newPlot("Correlation matrix", "", "")
	n := len(c.Fields)
	if n == 0 {
		return p, nil
	}

	cm := moreland.SmoothBlueRed()
	cm.SetMin(-1)
	cm.SetMax(1)

	grid := correlationGrid{values: c.Values}
	heat := plotter.NewHeatMap(grid, cm.Palette(255))
	heat.Min, heat.Max = -1, 1
	heat.NaN = colorNaN
	p.Add(heat)

	names := make([]string, n)
	for i, f := range c.Fields {
		names[i] = string(f)
	}

	var labels plotter.XYLabels
	for r := 0; r < n; r++ {
		for col := 0; col < n; col++ {
			v := grid.Z(col, r)
			text := "n/a"
			if !math.IsNaN(v) {
				text = strconv.FormatFloat(v, 'f', 2, 64)
			}
			labels.XYs = append(labels.XYs, plotter.XY{X: float64(col), Y: float64(r)})
			labels.Labels = append(labels.Labels, text)
		}
	}
	cells, err := plotter.NewLabels(labels)
	if err != nil {
		return nil, err
	}
	for i := range cells.TextStyle {
		cells.TextStyle[i].XAlign = -0.5
		cells.TextStyle[i].YAlign = -0.5
	}
	p.Add(cells)

	p.NominalX(names...)
	yTicks := make([]plot.Tick, n)
	for r := 0; r < n; r++ {
		yTicks[r] = plot.Tick{Value: float64(r), Label: names[n-1-r]}
	}
	p.Y.Tick.Marker = plot.ConstantTicks(yTicks)
	return p, nil
}
