package charts

import (
	"fmt"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"bikedash/internal/analytics"
)

// HourlyWorkday draws one line per day type across the hours of the day.
func HourlyWorkday(rows []analytics.HourlyWorkdayRow) (*plot.Plot, error) {
	p := newPlot("Rentals by hour: working day vs weekend", "Hour", "Rentals")
	p.Add(plotter.NewGrid())

	workday, weekend := analytics.SplitByWorkday(rows)
	for _, s := range []struct {
		name   string
		points []analytics.HourlyTotal
		style  func(*plotter.Line)
	}{
		{"Working day", workday, func(l *plotter.Line) { l.Color = colorPrimary }},
		{"Weekend / holiday", weekend, func(l *plotter.Line) {
			l.Color = colorSecondary
			l.Dashes = []vg.Length{vg.Points(5), vg.Points(3)}
		}},
	} {
		if len(s.points) == 0 {
			continue
		}
		xys := make(plotter.XYs, len(s.points))
		for i, h := range s.points {
			xys[i].X = float64(h.Hour)
			xys[i].Y = float64(h.Total)
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			return nil, fmt.Errorf("failed to build %s line: %w", s.name, err)
		}
		line.Width = vg.Points(2)
		s.style(line)
		p.Add(line)
		p.Legend.Add(s.name, line)
	}
	return p, nil
}

// Seasons draws one bar per season.
func Seasons(rows []analytics.SeasonTotal) (*plot.Plot, error) {
	p := newPlot("Rentals by season", "Season", "Rentals")
	if len(rows) == 0 {
		return p, nil
	}

	values := make(plotter.Values, len(rows))
	names := make([]string, len(rows))
	for i, r := range rows {
		values[i] = float64(r.Total)
		names[i] = r.Season
	}
	bars, err := plotter.NewBarChart(values, vg.Points(40))
	if err != nil {
		return nil, fmt.Errorf("failed to build season bars: %w", err)
	}
	bars.Color = colorPrimary
	bars.LineStyle.Width = vg.Length(0)

	p.Add(plotter.NewGrid(), bars)
	p.NominalX(names...)
	return p, nil
}

// Daily draws the daily totals over time.
func Daily(rows []analytics.DailyTotal) (*plot.Plot, error) {
	p := newPlot("Daily rentals", "Date", "Rentals")
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02"}
	if len(rows) == 0 {
		return p, nil
	}

	xys := make(plotter.XYs, len(rows))
	for i, r := range rows {
		xys[i].X = float64(r.Date.Unix())
		xys[i].Y = float64(r.Total)
	}
	line, points, err := plotter.NewLinePoints(xys)
	if err != nil {
		return nil, fmt.Errorf("failed to build daily line: %w", err)
	}
	line.Color = colorPrimary
	points.Shape = draw.CircleGlyph{}
	points.Radius = vg.Points(1.5)
	points.Color = colorPrimary

	p.Add(plotter.NewGrid(), line, points)
	return p, nil
}

// Monthly draws the monthly totals with one nominal tick per month.
func Monthly(rows []analytics.MonthlyTotal) (*plot.Plot, error) {
	p := newPlot("Monthly rentals", "Month", "Rentals")
	if len(rows) == 0 {
		return p, nil
	}

	xys := make(plotter.XYs, len(rows))
	names := make([]string, len(rows))
	for i, r := range rows {
		xys[i].X = float64(i)
		xys[i].Y = float64(r.Total)
		names[i] = r.Month
	}
	line, points, err := plotter.NewLinePoints(xys)
	if err != nil {
		return nil, fmt.Errorf("failed to build monthly line: %w", err)
	}
	line.Color = colorPrimary
	line.Width = vg.Points(2)
	points.Shape = draw.CircleGlyph{}
	points.Color = colorPrimary

	p.Add(plotter.NewGrid(), line, points)
	p.NominalX(names...)
	p.X.Tick.Label.Rotation = 0.8
	p.X.Tick.Label.XAlign = draw.XRight
	return p, nil
}

// UserTypes stacks registered on top of casual rentals per hour.
func UserTypes(rows []analytics.UserTypeRow) (*plot.Plot, error) {
	p := newPlot("Casual vs registered rentals by hour", "Hour", "Rentals")
	if len(rows) == 0 {
		return p, nil
	}

	casual := make(plotter.Values, len(rows))
	registered := make(plotter.Values, len(rows))
	names := make([]string, len(rows))
	for i, r := range rows {
		casual[i] = float64(r.Casual)
		registered[i] = float64(r.Registered)
		names[i] = strconv.Itoa(r.Hour)
	}

	casualBars, err := plotter.NewBarChart(casual, vg.Points(12))
	if err != nil {
		return nil, fmt.Errorf("failed to build casual bars: %w", err)
	}
	casualBars.Color = colorSecondary
	casualBars.LineStyle.Width = vg.Length(0)

	registeredBars, err := plotter.NewBarChart(registered, vg.Points(12))
	if err != nil {
		return nil, fmt.Errorf("failed to build registered bars: %w", err)
	}
	registeredBars.Color = colorPrimary
	registeredBars.LineStyle.Width = vg.Length(0)
	registeredBars.StackOn(casualBars)

	p.Add(plotter.NewGrid(), casualBars, registeredBars)
	p.Legend.Add("Casual", casualBars)
	p.Legend.Add("Registered", registeredBars)
	p.NominalX(names...)
	return p, nil
}

// Hourly draws total rentals per hour as bars.
func Hourly(rows []analytics.HourlyTotal) (*plot.Plot, error) {
	p := newPlot("Rentals by hour", "Hour", "Rentals")
	if len(rows) == 0 {
		return p, nil
	}

	values := make(plotter.Values, len(rows))
	names := make([]string, len(rows))
	for i, r := range rows {
		values[i] = float64(r.Total)
		names[i] = strconv.Itoa(r.Hour)
	}
	bars, err := plotter.NewBarChart(values, vg.Points(14))
	if err != nil {
		return nil, fmt.Errorf("failed to build hourly bars: %w", err)
	}
	bars.Color = colorPrimary
	bars.LineStyle.Width = vg.Length(0)

	p.Add(plotter.NewGrid(), bars)
	p.NominalX(names...)
	return p, nil
}

// WeatherImpact draws one box per weather condition.
func WeatherImpact(samples []analytics.WeatherSample) (*plot.Plot, error) {
	p := newPlot("Rentals by weather condition", "Weather", "Rentals per hour")
	if len(samples) == 0 {
		return p, nil
	}

	names := make([]string, 0, len(samples))
	for i, s := range samples {
		box, err := plotter.NewBoxPlot(vg.Points(40), float64(i), plotter.Values(s.Values))
		if err != nil {
			return nil, fmt.Errorf("failed to build box for %s: %w", s.Label, err)
		}
		box.FillColor = colorPrimary
		p.Add(box)
		names = append(names, s.Label)
	}
	p.NominalX(names...)
	return p, nil
}
