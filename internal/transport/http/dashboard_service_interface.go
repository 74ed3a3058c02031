package http

import (
	"context"
	"io"

	"bikedash/internal/analytics"
	"bikedash/internal/exporter"
	"bikedash/internal/rentals"
	"bikedash/internal/services"
)

// DashboardServiceInterface defines the dashboard operations the handlers use
type DashboardServiceInterface interface {
	Meta(ctx context.Context) (*services.DatasetMeta, error)
	Dashboard(ctx context.Context, q services.Query) (*services.Dashboard, error)

	HourlyByWorkday(ctx context.Context, q services.Query) ([]analytics.HourlyWorkdayRow, error)
	SeasonTotals(ctx context.Context, q services.Query) ([]analytics.SeasonTotal, error)
	Daily(ctx context.Context, q services.Query) ([]analytics.DailyTotal, error)
	Monthly(ctx context.Context, q services.Query) ([]analytics.MonthlyTotal, error)
	UserTypes(ctx context.Context, q services.Query) ([]analytics.UserTypeRow, error)
	Hourly(ctx context.Context, q services.Query) ([]analytics.HourlyTotal, error)
	Summary(ctx context.Context, q services.Query) (analytics.DailyMetrics, error)
	WeatherImpact(ctx context.Context, q services.Query) ([]analytics.BoxStats, error)
	Correlation(ctx context.Context, q services.Query) (analytics.Correlation, error)

	Export(ctx context.Context, w io.Writer, name string, format exporter.Format, q services.Query) error
	Chart(ctx context.Context, w io.Writer, name string, q services.Query) error
	Reload(ctx context.Context) (*rentals.LoadReport, error)
}

// HealthServiceInterface defines the health operations the handlers use
type HealthServiceInterface interface {
	HealthCheck(ctx context.Context) services.HealthStatus
	ReadinessCheck(ctx context.Context) services.HealthStatus
	LivenessCheck(ctx context.Context) services.HealthStatus
	Version() map[string]interface{}
	SystemStats(ctx context.Context) services.SystemStats
}
