package services

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"bikedash/internal/analytics"
	"bikedash/internal/exporter"
	"bikedash/internal/rentals"
	"bikedash/internal/shared/testutil"
)

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) DatasetReloaded(ctx context.Context, meta DatasetMeta) {
	m.Called(meta.Rows)
}

func (m *mockNotifier) DatasetReloadFailed(ctx context.Context, err error) {
	m.Called(err)
}

var fixtureRows = []testutil.RentalRow{
	{Date: "2011-01-01", Season: "1", Hour: "0", WorkingDay: "0", Count: "10", Casual: "3", Registered: "7"},
	{Date: "2011-01-01", Season: "1", Hour: "1", WorkingDay: "0", Count: "20", Casual: "5", Registered: "15"},
	{Date: "2011-01-02", Season: "2", Hour: "0", WorkingDay: "1", Count: "30", Casual: "10", Registered: "20", Weather: "2"},
	{Date: "2011-01-03", Season: "1", Hour: "5", WorkingDay: "1", Count: "40", Casual: "8", Registered: "32", Weather: "3"},
}

func day(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func newLoadedService(t *testing.T, path string) *DashboardService {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	svc := NewDashboardService(DashboardOptions{Path: path, Logger: logger})
	_, err := svc.Load(context.Background())
	require.NoError(t, err)
	return svc
}

// writeWithout writes the fixture rows with col removed from header and rows.
func writeWithout(t *testing.T, col string) string {
	t.Helper()
	idx := slices.Index(testutil.RentalHeaderX, col)
	require.GreaterOrEqual(t, idx, 0)

	records := make([][]string, 0, len(fixtureRows))
	for i, r := range fixtureRows {
		values := r.Values(i + 1)
		records = append(records, slices.Delete(values, idx, idx+1))
	}
	return testutil.WriteCSV(t, "all_data.csv", testutil.WithoutColumn(testutil.RentalHeaderX, col), records)
}

func TestDashboardService_NotLoaded(t *testing.T) {
	svc := NewDashboardService(DashboardOptions{Path: "missing.csv"})

	assert.False(t, svc.Ready())
	_, err := svc.SeasonTotals(context.Background(), Query{})
	assert.ErrorIs(t, err, ErrDatasetNotLoaded)
	_, err = svc.Meta(context.Background())
	assert.ErrorIs(t, err, ErrDatasetNotLoaded)
}

func TestDashboardService_LoadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		svc := NewDashboardService(DashboardOptions{Path: filepath.Join(t.TempDir(), "nope.csv")})
		_, err := svc.Load(context.Background())
		assert.ErrorIs(t, err, rentals.ErrDatasetNotFound)
		assert.False(t, svc.Ready())
	})

	t.Run("schema mismatch", func(t *testing.T) {
		path := testutil.WriteCSV(t, "all_data.csv", []string{"a", "b"}, [][]string{{"1", "2"}})
		svc := NewDashboardService(DashboardOptions{Path: path})
		_, err := svc.Load(context.Background())
		assert.ErrorIs(t, err, rentals.ErrSchemaMismatch)
	})
}

func TestDashboardService_Meta(t *testing.T) {
	svc := newLoadedService(t, testutil.WriteRentalCSV(t, fixtureRows...))

	meta, err := svc.Meta(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, meta.Rows)
	assert.Equal(t, *day("2011-01-01"), meta.MinDate)
	assert.Equal(t, *day("2011-01-03"), meta.MaxDate)
	assert.Equal(t, []string{rentals.AllSeasons, rentals.SeasonSpring, rentals.SeasonSummer}, meta.SeasonOptions)
	assert.Equal(t, analytics.Views(), meta.Views)
}

func TestDashboardService_Queries(t *testing.T) {
	svc := newLoadedService(t, testutil.WriteRentalCSV(t, fixtureRows...))
	ctx := context.Background()

	tests := []struct {
		name  string
		query Query
		want  []analytics.SeasonTotal
	}{
		{
			name:  "all seasons",
			query: Query{},
			want: []analytics.SeasonTotal{
				{Season: rentals.SeasonSpring, Total: 70},
				{Season: rentals.SeasonSummer, Total: 30},
			},
		},
		{
			name:  "explicit all selector",
			query: Query{Season: rentals.AllSeasons},
			want: []analytics.SeasonTotal{
				{Season: rentals.SeasonSpring, Total: 70},
				{Season: rentals.SeasonSummer, Total: 30},
			},
		},
		{
			name:  "single season",
			query: Query{Season: rentals.SeasonSummer},
			want:  []analytics.SeasonTotal{{Season: rentals.SeasonSummer, Total: 30}},
		},
		{
			name:  "date range",
			query: Query{Start: day("2011-01-02"), End: day("2011-01-03")},
			want: []analytics.SeasonTotal{
				{Season: rentals.SeasonSpring, Total: 40},
				{Season: rentals.SeasonSummer, Total: 30},
			},
		},
		{
			name:  "unknown season selects nothing",
			query: Query{Season: "Monsoon"},
			want:  []analytics.SeasonTotal{},
		},
		{
			name:  "inverted range selects nothing",
			query: Query{Start: day("2011-01-03"), End: day("2011-01-01")},
			want:  []analytics.SeasonTotal{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.SeasonTotals(ctx, tt.query)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("SeasonTotals() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDashboardService_Summary(t *testing.T) {
	svc := newLoadedService(t, testutil.WriteRentalCSV(t, fixtureRows...))

	got, err := svc.Summary(context.Background(), Query{Season: rentals.SeasonSpring})
	require.NoError(t, err)
	assert.Equal(t, analytics.DailyMetrics{TotalRentals: 70, Days: 2, AverageDaily: 35}, got)

	empty, err := svc.Summary(context.Background(), Query{Season: "Monsoon"})
	require.NoError(t, err)
	assert.Equal(t, analytics.DailyMetrics{}, empty)
}

func TestDashboardService_Selection(t *testing.T) {
	svc := newLoadedService(t, testutil.WriteRentalCSV(t, fixtureRows...))

	sel, err := svc.Selection(context.Background(), Query{End: day("2011-01-01")})
	require.NoError(t, err)
	assert.Equal(t, Selection{
		Season: rentals.AllSeasons,
		Start:  *day("2011-01-01"),
		End:    *day("2011-01-01"),
		Rows:   2,
	}, sel)
}

func TestDashboardService_MissingOptionalColumns(t *testing.T) {
	svc := newLoadedService(t, writeWithout(t, "casual_x"))
	ctx := context.Background()

	_, err := svc.UserTypes(ctx, Query{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrColumnUnavailable)

	var colErr *ColumnError
	require.True(t, errors.As(err, &colErr))
	assert.Equal(t, analytics.ViewUserTypes, colErr.View)
	assert.Equal(t, []rentals.Field{rentals.FieldCasual}, colErr.Missing)

	dash, err := svc.Dashboard(ctx, Query{})
	require.NoError(t, err)
	assert.Contains(t, dash.Unavailable, analytics.ViewUserTypes)
	assert.Nil(t, dash.UserTypes)
	assert.NotEmpty(t, dash.Hourly)

	meta, err := svc.Meta(ctx)
	require.NoError(t, err)
	assert.NotContains(t, meta.Views, analytics.ViewUserTypes)
}

func TestDashboardService_Dashboard(t *testing.T) {
	svc := newLoadedService(t, testutil.WriteRentalCSV(t, fixtureRows...))
	ctx := context.Background()
	q := Query{Season: rentals.SeasonSpring}

	dash, err := svc.Dashboard(ctx, q)
	require.NoError(t, err)
	assert.Nil(t, dash.Unavailable)
	require.NotNil(t, dash.Correlation)
	assert.Equal(t, Selection{
		Season: rentals.SeasonSpring,
		Start:  *day("2011-01-01"),
		End:    *day("2011-01-03"),
		Rows:   3,
	}, dash.Selection)

	hourly, err := svc.Hourly(ctx, q)
	require.NoError(t, err)
	daily, err := svc.Daily(ctx, q)
	require.NoError(t, err)
	monthly, err := svc.Monthly(ctx, q)
	require.NoError(t, err)
	users, err := svc.UserTypes(ctx, q)
	require.NoError(t, err)
	weather, err := svc.WeatherImpact(ctx, q)
	require.NoError(t, err)
	byWorkday, err := svc.HourlyByWorkday(ctx, q)
	require.NoError(t, err)

	assert.Equal(t, hourly, dash.Hourly)
	assert.Equal(t, daily, dash.Daily)
	assert.Equal(t, monthly, dash.Monthly)
	assert.Equal(t, users, dash.UserTypes)
	assert.Equal(t, weather, dash.WeatherImpact)
	assert.Equal(t, byWorkday, dash.HourlyWorkday)
	assert.Equal(t, 70, dash.Summary.TotalRentals)
}

func TestDashboardService_Reload(t *testing.T) {
	path := testutil.WriteRentalCSV(t, fixtureRows...)
	svc := newLoadedService(t, path)
	ctx := context.Background()

	notifier := &mockNotifier{}
	svc.Subscribe(notifier)

	t.Run("success replaces dataset", func(t *testing.T) {
		more := testutil.WriteRentalCSV(t, append(slices.Clone(fixtureRows),
			testutil.RentalRow{Date: "2011-01-04", Season: "3", Count: "5"})...)
		data, err := os.ReadFile(more)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(path, data, 0o644))

		notifier.On("DatasetReloaded", 5).Once()
		report, err := svc.Reload(ctx)
		require.NoError(t, err)
		assert.Equal(t, 5, report.Rows)
		notifier.AssertExpectations(t)
	})

	t.Run("failure keeps previous dataset", func(t *testing.T) {
		require.NoError(t, os.WriteFile(path, []byte("a,b\n1,2\n"), 0o644))

		notifier.On("DatasetReloadFailed", mock.MatchedBy(func(err error) bool {
			return errors.Is(err, rentals.ErrSchemaMismatch)
		})).Once()
		_, err := svc.Reload(ctx)
		assert.ErrorIs(t, err, rentals.ErrSchemaMismatch)
		notifier.AssertExpectations(t)

		ds, err := svc.Dataset()
		require.NoError(t, err)
		assert.Equal(t, 5, ds.Len())
	})
}

func TestDashboardService_ReloadOutlivesCancelledCaller(t *testing.T) {
	path := testutil.WriteRentalCSV(t, fixtureRows...)
	svc := newLoadedService(t, path)

	// enough rows for the loader to check the context while reading
	rows := make([]testutil.RentalRow, 2048)
	for i := range rows {
		rows[i] = testutil.RentalRow{Date: "2011-02-01", Hour: "3", Count: "1"}
	}
	data, err := os.ReadFile(testutil.WriteRentalCSV(t, rows...))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := svc.Reload(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2048, report.Rows)
}

func TestDashboardService_Tables(t *testing.T) {
	svc := newLoadedService(t, testutil.WriteRentalCSV(t, fixtureRows...))
	ctx := context.Background()

	_, err := svc.Tables(ctx, "bogus", Query{}, false)
	assert.ErrorIs(t, err, ErrUnknownTable)

	tables, err := svc.Tables(ctx, string(analytics.ViewAll), Query{}, true)
	require.NoError(t, err)
	require.Len(t, tables, len(analytics.Views())+1)
	assert.Equal(t, "records", tables[len(tables)-1].Name)
	assert.Equal(t, 4, tables[len(tables)-1].Len())

	single, err := svc.Tables(ctx, string(analytics.ViewSeasons), Query{Season: rentals.SeasonSummer}, false)
	require.NoError(t, err)
	require.Len(t, single, 1)
	assert.Equal(t, 1, single[0].Len())
}

func TestDashboardService_Export(t *testing.T) {
	svc := newLoadedService(t, testutil.WriteRentalCSV(t, fixtureRows...))
	ctx := context.Background()

	var buf bytes.Buffer
	require.NoError(t, svc.Export(ctx, &buf, string(analytics.ViewSeasons), exporter.FormatCSV, Query{}))
	assert.Contains(t, buf.String(), rentals.SeasonSpring)
	assert.Contains(t, buf.String(), "70")

	err := svc.Export(ctx, &bytes.Buffer{}, string(analytics.ViewAll), exporter.FormatCSV, Query{})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	buf.Reset()
	require.NoError(t, svc.Export(ctx, &buf, string(analytics.ViewAll), exporter.FormatXLSX, Query{}))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("PK")), "xlsx is a zip archive")
}

func TestDashboardService_ExportDir(t *testing.T) {
	svc := newLoadedService(t, testutil.WriteRentalCSV(t, fixtureRows...))

	dir := t.TempDir()
	paths, err := svc.ExportDir(context.Background(), dir, exporter.FormatCSV, Query{}, true)
	require.NoError(t, err)
	assert.Len(t, paths, len(analytics.Views())+1)
	for _, p := range paths {
		assert.FileExists(t, p)
		assert.True(t, strings.HasSuffix(p, ".csv"))
	}
}

func TestDashboardService_Chart(t *testing.T) {
	svc := newLoadedService(t, testutil.WriteRentalCSV(t, fixtureRows...))
	ctx := context.Background()

	err := svc.Chart(ctx, &bytes.Buffer{}, string(analytics.ViewSummary), Query{})
	assert.ErrorIs(t, err, ErrUnknownChart)

	var buf bytes.Buffer
	require.NoError(t, svc.Chart(ctx, &buf, string(analytics.ViewHourly), Query{}))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))
}

func TestDashboardService_RenderDir(t *testing.T) {
	svc := newLoadedService(t, writeWithout(t, "weathersit_x"))

	paths, err := svc.RenderDir(context.Background(), t.TempDir(), Query{})
	require.NoError(t, err)
	for _, p := range paths {
		assert.FileExists(t, p)
		assert.NotEqual(t, "weather-impact.png", filepath.Base(p))
	}
	assert.NotEmpty(t, paths)
}
