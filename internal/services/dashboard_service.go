package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"gonum.org/v1/plot"

	"bikedash/internal/analytics"
	"bikedash/internal/charts"
	"bikedash/internal/exporter"
	"bikedash/internal/infrastructure"
	"bikedash/internal/rentals"
)

// Query selects the rows a view aggregates. Nil bounds default to the
// dataset's date range and an empty Season means all seasons.
type Query struct {
	Season string
	Start  *time.Time
	End    *time.Time
}

// Selection is a Query resolved against the active dataset.
type Selection struct {
	Season string    `json:"season"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Rows   int       `json:"rows"`
}

// DatasetMeta describes the active dataset.
type DatasetMeta struct {
	Path              string           `json:"path"`
	Profile           string           `json:"profile"`
	Rows              int              `json:"rows"`
	MinDate           time.Time        `json:"min_date"`
	MaxDate           time.Time        `json:"max_date"`
	SeasonOptions     []string         `json:"season_options"`
	UnknownSeasonRows int              `json:"unknown_season_rows"`
	MissingOptional   []string         `json:"missing_optional,omitempty"`
	Views             []analytics.View `json:"views"`
	LoadedAt          time.Time        `json:"loaded_at"`
}

// Dashboard bundles every view computed over one selection. Views whose
// columns the dataset lacks are left empty and listed in Unavailable.
type Dashboard struct {
	Selection     Selection                          `json:"selection"`
	HourlyWorkday []analytics.HourlyWorkdayRow       `json:"hourly_workday"`
	Seasons       []analytics.SeasonTotal            `json:"seasons"`
	Daily         []analytics.DailyTotal             `json:"daily"`
	Monthly       []analytics.MonthlyTotal           `json:"monthly"`
	UserTypes     []analytics.UserTypeRow            `json:"user_types,omitempty"`
	Hourly        []analytics.HourlyTotal            `json:"hourly"`
	Summary       analytics.DailyMetrics             `json:"summary"`
	WeatherImpact []analytics.BoxStats               `json:"weather_impact,omitempty"`
	Correlation   *analytics.Correlation             `json:"correlation,omitempty"`
	Unavailable   map[analytics.View][]rentals.Field `json:"unavailable,omitempty"`
}

// ReloadNotifier is told about every reload outcome.
type ReloadNotifier interface {
	DatasetReloaded(ctx context.Context, meta DatasetMeta)
	DatasetReloadFailed(ctx context.Context, err error)
}

// viewColumns lists the optional columns each view reads.
var viewColumns = map[analytics.View][]rentals.Field{
	analytics.ViewUserTypes:     {rentals.FieldCasual, rentals.FieldRegistered},
	analytics.ViewWeatherImpact: {rentals.FieldWeather},
	analytics.ViewCorrelation:   {rentals.FieldTemp, rentals.FieldHumidity, rentals.FieldWindSpeed},
}

func checkColumns(ds *rentals.Dataset, view analytics.View) error {
	var missing []rentals.Field
	for _, f := range viewColumns[view] {
		if !ds.Has(f) {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return &ColumnError{View: view, Missing: missing}
	}
	return nil
}

// DashboardOptions configures a DashboardService.
type DashboardOptions struct {
	Path     string
	Loader   *rentals.Loader
	Exporter *exporter.Exporter
	Renderer charts.Renderer
	Tracer   trace.Tracer
	Metrics  *infrastructure.DashboardMetrics
	Logger   *slog.Logger
}

// DashboardService owns the active dataset and answers every dashboard query
// against an immutable snapshot of it.
type DashboardService struct {
	path     string
	loader   *rentals.Loader
	exporter *exporter.Exporter
	renderer charts.Renderer
	tracer   trace.Tracer
	metrics  *infrastructure.DashboardMetrics
	logger   *slog.Logger

	dataset atomic.Pointer[rentals.Dataset]
	reloads singleflight.Group

	mu        sync.RWMutex
	notifiers []ReloadNotifier
}

// NewDashboardService creates the service. Nothing is loaded until Load.
func NewDashboardService(opts DashboardOptions) *DashboardService {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Loader == nil {
		opts.Loader = rentals.NewLoader(rentals.Options{Logger: opts.Logger})
	}
	if opts.Exporter == nil {
		opts.Exporter = exporter.New(opts.Logger)
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer(infrastructure.InstrumentationName)
	}

	return &DashboardService{
		path:     opts.Path,
		loader:   opts.Loader,
		exporter: opts.Exporter,
		renderer: opts.Renderer,
		tracer:   opts.Tracer,
		metrics:  opts.Metrics,
		logger:   opts.Logger.With(slog.String("component", "dashboard_service")),
	}
}

// Subscribe registers n for reload notifications.
func (s *DashboardService) Subscribe(n ReloadNotifier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifiers = append(s.notifiers, n)
}

func (s *DashboardService) notify(fn func(ReloadNotifier)) {
	s.mu.RLock()
	notifiers := s.notifiers
	s.mu.RUnlock()
	for _, n := range notifiers {
		fn(n)
	}
}

// Path returns the dataset file the service reads.
func (s *DashboardService) Path() string {
	return s.path
}

// Load reads the dataset file and makes it active. On failure the active
// dataset, if any, is left untouched.
func (s *DashboardService) Load(ctx context.Context) (*rentals.LoadReport, error) {
	ctx, span := s.tracer.Start(ctx, "dataset.load",
		trace.WithAttributes(attribute.String("dataset.path", s.path)))
	defer span.End()

	start := time.Now()
	ds, err := s.loader.Load(ctx, s.path)
	if err != nil {
		s.metrics.RecordDatasetLoad(ctx, time.Since(start), 0, 0, err)
		infrastructure.RecordError(ctx, err)
		return nil, err
	}

	s.dataset.Store(ds)
	report := ds.Report()
	s.metrics.RecordDatasetLoad(ctx, time.Since(start), report.Rows, report.UnknownSeasonRows, nil)
	span.SetAttributes(
		attribute.String("dataset.profile", report.Profile),
		attribute.Int("dataset.rows", report.Rows),
	)
	return &report, nil
}

// Reload re-reads the dataset file and notifies subscribers. Concurrent
// calls share one load, which outlives the cancellation of the caller that
// started it. A failed reload keeps serving the previous dataset.
func (s *DashboardService) Reload(ctx context.Context) (*rentals.LoadReport, error) {
	v, err, _ := s.reloads.Do("reload", func() (interface{}, error) {
		ctx := context.WithoutCancel(ctx)
		report, err := s.Load(ctx)
		if err != nil {
			attrs := []any{slog.String("path", s.path), slog.String("error", err.Error())}
			if prev := s.dataset.Load(); prev != nil {
				attrs = append(attrs, slog.Int("previous_rows", prev.Len()))
			}
			s.logger.ErrorContext(ctx, "dataset reload failed, keeping previous dataset", attrs...)
			s.notify(func(n ReloadNotifier) { n.DatasetReloadFailed(ctx, err) })
			return nil, err
		}

		meta := metaOf(s.dataset.Load())
		s.logger.InfoContext(ctx, "dataset reloaded",
			slog.String("path", s.path),
			slog.Int("rows", meta.Rows),
			slog.Int("unknown_season_rows", meta.UnknownSeasonRows))
		s.notify(func(n ReloadNotifier) { n.DatasetReloaded(ctx, meta) })
		return report, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*rentals.LoadReport), nil
}

// Dataset returns the active dataset snapshot.
func (s *DashboardService) Dataset() (*rentals.Dataset, error) {
	ds := s.dataset.Load()
	if ds == nil {
		return nil, ErrDatasetNotLoaded
	}
	return ds, nil
}

// Ready reports whether a dataset is active.
func (s *DashboardService) Ready() bool {
	return s.dataset.Load() != nil
}

// Meta describes the active dataset.
func (s *DashboardService) Meta(ctx context.Context) (*DatasetMeta, error) {
	ds, err := s.Dataset()
	if err != nil {
		return nil, err
	}
	meta := metaOf(ds)
	return &meta, nil
}

func metaOf(ds *rentals.Dataset) DatasetMeta {
	report := ds.Report()
	meta := DatasetMeta{
		Path:              report.Path,
		Profile:           report.Profile,
		Rows:              ds.Len(),
		MinDate:           ds.MinDate(),
		MaxDate:           ds.MaxDate(),
		SeasonOptions:     analytics.SeasonOptions(ds.Records()),
		UnknownSeasonRows: report.UnknownSeasonRows,
		MissingOptional:   report.MissingOptional,
		LoadedAt:          report.LoadedAt,
	}
	for _, v := range analytics.Views() {
		if checkColumns(ds, v) == nil {
			meta.Views = append(meta.Views, v)
		}
	}
	return meta
}

// selectRows applies the date filter and then the season filter.
func selectRows(ds *rentals.Dataset, q Query) (Selection, []rentals.Record) {
	sel := Selection{
		Season: q.Season,
		Start:  ds.MinDate(),
		End:    ds.MaxDate(),
	}
	if sel.Season == "" {
		sel.Season = rentals.AllSeasons
	}
	if q.Start != nil {
		sel.Start = *q.Start
	}
	if q.End != nil {
		sel.End = *q.End
	}

	records := analytics.FilterBySeason(analytics.FilterByDate(ds.Records(), sel.Start, sel.End), sel.Season)
	sel.Rows = len(records)
	return sel, records
}

// runQuery resolves q against one dataset snapshot and applies fn inside a
// span, recording the query metrics.
func runQuery[T any](ctx context.Context, s *DashboardService, view analytics.View, q Query,
	fn func(*rentals.Dataset, Selection, []rentals.Record) (T, error)) (T, error) {
	ctx, span := s.tracer.Start(ctx, "dashboard."+string(view))
	defer span.End()
	start := time.Now()

	out, sel, err := func() (T, Selection, error) {
		var zero T
		ds, err := s.Dataset()
		if err != nil {
			return zero, Selection{}, err
		}
		if err := checkColumns(ds, view); err != nil {
			return zero, Selection{}, err
		}
		if err := ctx.Err(); err != nil {
			return zero, Selection{}, err
		}
		sel, records := selectRows(ds, q)
		out, err := fn(ds, sel, records)
		return out, sel, err
	}()

	s.metrics.RecordQuery(ctx, string(view), time.Since(start), err)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return out, err
	}
	span.SetAttributes(
		attribute.String("dashboard.season", sel.Season),
		attribute.Int("dashboard.rows", sel.Rows),
	)
	return out, nil
}

func pure[T any](fn func([]rentals.Record) T) func(*rentals.Dataset, Selection, []rentals.Record) (T, error) {
	return func(_ *rentals.Dataset, _ Selection, records []rentals.Record) (T, error) {
		return fn(records), nil
	}
}

func correlation(records []rentals.Record) analytics.Correlation {
	return analytics.CorrelationMatrix(records, analytics.DefaultCorrelationFields...)
}

// HourlyByWorkday sums rentals per hour, split by working day.
func (s *DashboardService) HourlyByWorkday(ctx context.Context, q Query) ([]analytics.HourlyWorkdayRow, error) {
	return runQuery(ctx, s, analytics.ViewHourlyWorkday, q, pure(analytics.AggregateHourlyByWorkday))
}

// SeasonTotals sums rentals per season label.
func (s *DashboardService) SeasonTotals(ctx context.Context, q Query) ([]analytics.SeasonTotal, error) {
	return runQuery(ctx, s, analytics.ViewSeasons, q, pure(analytics.AggregateBySeason))
}

// Daily sums rentals per calendar day.
func (s *DashboardService) Daily(ctx context.Context, q Query) ([]analytics.DailyTotal, error) {
	return runQuery(ctx, s, analytics.ViewDaily, q, pure(analytics.AggregateDaily))
}

// Monthly sums rentals per month.
func (s *DashboardService) Monthly(ctx context.Context, q Query) ([]analytics.MonthlyTotal, error) {
	return runQuery(ctx, s, analytics.ViewMonthly, q, pure(analytics.AggregateMonthly))
}

// UserTypes sums casual and registered rentals per hour.
func (s *DashboardService) UserTypes(ctx context.Context, q Query) ([]analytics.UserTypeRow, error) {
	return runQuery(ctx, s, analytics.ViewUserTypes, q, pure(analytics.AggregateUserTypeByHour))
}

// Hourly sums rentals per hour of day.
func (s *DashboardService) Hourly(ctx context.Context, q Query) ([]analytics.HourlyTotal, error) {
	return runQuery(ctx, s, analytics.ViewHourly, q, pure(analytics.AggregateHourly))
}

// Summary returns the headline daily metrics.
func (s *DashboardService) Summary(ctx context.Context, q Query) (analytics.DailyMetrics, error) {
	return runQuery(ctx, s, analytics.ViewSummary, q, pure(analytics.ComputeDailyMetrics))
}

// WeatherImpact summarises rentals per weather situation.
func (s *DashboardService) WeatherImpact(ctx context.Context, q Query) ([]analytics.BoxStats, error) {
	return runQuery(ctx, s, analytics.ViewWeatherImpact, q, pure(analytics.WeatherImpact))
}

// Correlation computes the weather/rental correlation matrix.
func (s *DashboardService) Correlation(ctx context.Context, q Query) (analytics.Correlation, error) {
	return runQuery(ctx, s, analytics.ViewCorrelation, q, pure(correlation))
}

// Dashboard computes every view of one selection concurrently.
func (s *DashboardService) Dashboard(ctx context.Context, q Query) (*Dashboard, error) {
	return runQuery(ctx, s, "bundle", q, func(ds *rentals.Dataset, sel Selection, records []rentals.Record) (*Dashboard, error) {
		out := &Dashboard{
			Selection:   sel,
			Unavailable: make(map[analytics.View][]rentals.Field),
		}
		for _, v := range analytics.Views() {
			var colErr *ColumnError
			if errors.As(checkColumns(ds, v), &colErr) {
				out.Unavailable[v] = colErr.Missing
			}
		}
		if len(out.Unavailable) == 0 {
			out.Unavailable = nil
		}

		g, gctx := errgroup.WithContext(ctx)
		compute := func(view analytics.View, fn func()) {
			if _, skip := out.Unavailable[view]; skip {
				return
			}
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				fn()
				return nil
			})
		}

		compute(analytics.ViewHourlyWorkday, func() { out.HourlyWorkday = analytics.AggregateHourlyByWorkday(records) })
		compute(analytics.ViewSeasons, func() { out.Seasons = analytics.AggregateBySeason(records) })
		compute(analytics.ViewDaily, func() { out.Daily = analytics.AggregateDaily(records) })
		compute(analytics.ViewMonthly, func() { out.Monthly = analytics.AggregateMonthly(records) })
		compute(analytics.ViewUserTypes, func() { out.UserTypes = analytics.AggregateUserTypeByHour(records) })
		compute(analytics.ViewHourly, func() { out.Hourly = analytics.AggregateHourly(records) })
		compute(analytics.ViewSummary, func() { out.Summary = analytics.ComputeDailyMetrics(records) })
		compute(analytics.ViewWeatherImpact, func() { out.WeatherImpact = analytics.WeatherImpact(records) })
		compute(analytics.ViewCorrelation, func() {
			c := correlation(records)
			out.Correlation = &c
		})

		if err := g.Wait(); err != nil {
			return nil, err
		}
		return out, nil
	})
}

// Selection resolves q against the active dataset without aggregating.
func (s *DashboardService) Selection(ctx context.Context, q Query) (Selection, error) {
	ds, err := s.Dataset()
	if err != nil {
		return Selection{}, err
	}
	sel, _ := selectRows(ds, q)
	return sel, nil
}

func tableFor(view analytics.View, records []rentals.Record) exporter.Table {
	switch view {
	case analytics.ViewHourlyWorkday:
		return exporter.HourlyWorkdayTable(analytics.AggregateHourlyByWorkday(records))
	case analytics.ViewSeasons:
		return exporter.SeasonTable(analytics.AggregateBySeason(records))
	case analytics.ViewDaily:
		return exporter.DailyTable(analytics.AggregateDaily(records))
	case analytics.ViewMonthly:
		return exporter.MonthlyTable(analytics.AggregateMonthly(records))
	case analytics.ViewUserTypes:
		return exporter.UserTypeTable(analytics.AggregateUserTypeByHour(records))
	case analytics.ViewHourly:
		return exporter.HourlyTable(analytics.AggregateHourly(records))
	case analytics.ViewSummary:
		return exporter.SummaryTable(analytics.ComputeDailyMetrics(records))
	case analytics.ViewWeatherImpact:
		return exporter.WeatherImpactTable(analytics.WeatherImpact(records))
	case analytics.ViewCorrelation:
		return exporter.CorrelationTable(correlation(records))
	}
	panic(fmt.Sprintf("no table for view %q", view))
}

// Tables builds the export tables of name, a view or "all". "all" skips
// views the dataset cannot serve; withRecords appends the filtered rows.
func (s *DashboardService) Tables(ctx context.Context, name string, q Query, withRecords bool) ([]exporter.Table, error) {
	view, err := analytics.ParseView(name)
	if err != nil {
		return nil, unknownTable(name)
	}

	return runQuery(ctx, s, "export", q, func(ds *rentals.Dataset, _ Selection, records []rentals.Record) ([]exporter.Table, error) {
		var tables []exporter.Table
		if view == analytics.ViewAll {
			for _, v := range analytics.Views() {
				if checkColumns(ds, v) != nil {
					continue
				}
				tables = append(tables, tableFor(v, records))
			}
		} else {
			if err := checkColumns(ds, view); err != nil {
				return nil, err
			}
			tables = append(tables, tableFor(view, records))
		}

		if withRecords {
			tables = append(tables, exporter.RecordsTable(records))
		}
		return tables, nil
	})
}

// Export writes the tables of name in format to w.
func (s *DashboardService) Export(ctx context.Context, w io.Writer, name string, format exporter.Format, q Query) error {
	if analytics.View(name) == analytics.ViewAll && format != exporter.FormatXLSX {
		return fmt.Errorf("%w: %s exports need xlsx, got %s", ErrUnsupportedFormat, name, format)
	}

	tables, err := s.Tables(ctx, name, q, false)
	if err != nil {
		return err
	}
	if err := s.exporter.Write(w, format, tables...); err != nil {
		return err
	}
	s.metrics.RecordExport(ctx, string(format))
	return nil
}

// ExportDir writes every available table into dir and returns the file paths.
func (s *DashboardService) ExportDir(ctx context.Context, dir string, format exporter.Format, q Query, withRecords bool) ([]string, error) {
	tables, err := s.Tables(ctx, string(analytics.ViewAll), q, withRecords)
	if err != nil {
		return nil, err
	}

	paths, err := s.exporter.WriteDir(dir, format, tables...)
	if err != nil {
		return paths, err
	}
	s.metrics.RecordExport(ctx, string(format))
	return paths, nil
}

func chartData(view analytics.View, records []rentals.Record) charts.Data {
	var d charts.Data
	switch view {
	case analytics.ViewHourlyWorkday:
		d.HourlyWorkday = analytics.AggregateHourlyByWorkday(records)
	case analytics.ViewSeasons:
		d.Seasons = analytics.AggregateBySeason(records)
	case analytics.ViewDaily:
		d.Daily = analytics.AggregateDaily(records)
	case analytics.ViewMonthly:
		d.Monthly = analytics.AggregateMonthly(records)
	case analytics.ViewUserTypes:
		d.UserTypes = analytics.AggregateUserTypeByHour(records)
	case analytics.ViewHourly:
		d.Hourly = analytics.AggregateHourly(records)
	case analytics.ViewWeatherImpact:
		d.WeatherSamples = analytics.WeatherSamples(records)
	case analytics.ViewCorrelation:
		d.Correlation = correlation(records)
	}
	return d
}

// Chart renders the chart of name as PNG to w.
func (s *DashboardService) Chart(ctx context.Context, w io.Writer, name string, q Query) error {
	view := analytics.View(name)
	if !charts.Supported(view) {
		return unknownChart(name)
	}

	p, err := runQuery(ctx, s, view, q, func(_ *rentals.Dataset, _ Selection, records []rentals.Record) (*plot.Plot, error) {
		return charts.Build(view, chartData(view, records))
	})
	if err != nil {
		return err
	}
	return s.renderer.Render(w, p)
}

// RenderDir writes a PNG per available chart into dir and returns the paths.
func (s *DashboardService) RenderDir(ctx context.Context, dir string, q Query) ([]string, error) {
	ds, err := s.Dataset()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create chart directory: %w", err)
	}

	var paths []string
	for _, view := range charts.Views() {
		if err := checkColumns(ds, view); err != nil {
			s.logger.WarnContext(ctx, "skipping chart", slog.String("chart", string(view)), slog.String("reason", err.Error()))
			continue
		}

		path := filepath.Join(dir, string(view)+".png")
		if err := s.renderFile(ctx, path, view, q); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func (s *DashboardService) renderFile(ctx context.Context, path string, view analytics.View, q Query) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := s.Chart(ctx, file, string(view), q); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}
