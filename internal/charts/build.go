package charts

import (
	"fmt"

	"gonum.org/v1/plot"

	"bikedash/internal/analytics"
)

// Data carries the inputs of every chart. Only the field a view needs is read.
type Data struct {
	HourlyWorkday  []analytics.HourlyWorkdayRow
	Seasons        []analytics.SeasonTotal
	Daily          []analytics.DailyTotal
	Monthly        []analytics.MonthlyTotal
	UserTypes      []analytics.UserTypeRow
	Hourly         []analytics.HourlyTotal
	WeatherSamples []analytics.WeatherSample
	Correlation    analytics.Correlation
}

var chartViews = []analytics.View{
	analytics.ViewHourlyWorkday, analytics.ViewSeasons, analytics.ViewDaily, analytics.ViewMonthly,
	analytics.ViewWeatherImpact, analytics.ViewUserTypes, analytics.ViewHourly, analytics.ViewCorrelation,
}

// Views lists the views that have a chart.
func Views() []analytics.View {
	out := make([]analytics.View, len(chartViews))
	copy(out, chartViews)
	return out
}

// Supported reports whether v can be rendered.
func Supported(v analytics.View) bool {
	for _, c := range chartViews {
		if c == v {
			return true
		}
	}
	return false
}

// Build creates the plot for v.
func Build(v analytics.View, d Data) (*plot.Plot, error) {
	switch v {
	case analytics.ViewHourlyWorkday:
		return HourlyWorkday(d.HourlyWorkday)
	case analytics.ViewSeasons:
		return Seasons(d.Seasons)
	case analytics.ViewDaily:
		return Daily(d.Daily)
	case analytics.ViewMonthly:
		return Monthly(d.Monthly)
	case analytics.ViewUserTypes:
		return UserTypes(d.UserTypes)
	case analytics.ViewHourly:
		return Hourly(d.Hourly)
	case analytics.ViewWeatherImpact:
		return WeatherImpact(d.WeatherSamples)
	case analytics.ViewCorrelation:
		return Correlation(d.Correlation)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedChart, v)
}
