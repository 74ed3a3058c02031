package analytics

import "fmt"

// View names a dashboard table. The same names address exports and charts.
type View string

const (
	ViewHourlyWorkday View = "hourly-workday"
	ViewSeasons       View = "seasons"
	ViewDaily         View = "daily"
	ViewMonthly       View = "monthly"
	ViewUserTypes     View = "user-types"
	ViewHourly        View = "hourly"
	ViewSummary       View = "summary"
	ViewWeatherImpact View = "weather-impact"
	ViewCorrelation   View = "correlation"
)

// ViewAll selects every view at once.
const ViewAll View = "all"

var views = []View{
	ViewHourlyWorkday, ViewSeasons, ViewDaily, ViewMonthly, ViewUserTypes,
	ViewHourly, ViewSummary, ViewWeatherImpact, ViewCorrelation,
}

// Views returns every view in display order.
func Views() []View {
	out := make([]View, len(views))
	copy(out, views)
	return out
}

// ParseView validates a view name. ViewAll is accepted.
func ParseView(name string) (View, error) {
	v := View(name)
	if v == ViewAll {
		return v, nil
	}
	for _, known := range views {
		if v == known {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown view %q", name)
}
