package exporter

import (
	"bytes"
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"bikedash/internal/analytics"
	"bikedash/internal/rentals"
	"bikedash/internal/shared/testutil"
)

func seasonTable() Table {
	return SeasonTable([]analytics.SeasonTotal{
		{Season: rentals.SeasonSpring, Total: 120},
		{Season: rentals.SeasonFall, Total: 75},
	})
}

func TestTableBuilders(t *testing.T) {
	t.Run("hourly workday", func(t *testing.T) {
		tbl := HourlyWorkdayTable([]analytics.HourlyWorkdayRow{{Hour: 7, WorkingDay: true, Total: 42}})
		assert.Equal(t, "hourly-workday", tbl.Name)
		assert.Equal(t, []string{"hour", "working_day", "total"}, tbl.Headers)
		assert.Equal(t, [][]string{{"7", "true", "42"}}, tbl.Rows)
	})

	t.Run("daily", func(t *testing.T) {
		tbl := DailyTable([]analytics.DailyTotal{{Date: time.Date(2011, 3, 4, 0, 0, 0, 0, time.UTC), Total: 9}})
		assert.Equal(t, [][]string{{"2011-03-04", "9"}}, tbl.Rows)
	})

	t.Run("summary", func(t *testing.T) {
		tbl := SummaryTable(analytics.DailyMetrics{TotalRentals: 10, Days: 3, AverageDaily: 10.0 / 3})
		assert.Equal(t, [][]string{{"10", "3", "3.33"}}, tbl.Rows)
	})

	t.Run("correlation leaves undefined cells empty", func(t *testing.T) {
		tbl := CorrelationTable(analytics.Correlation{
			Fields: []rentals.Field{rentals.FieldTemp, rentals.FieldWindSpeed},
			Values: [][]float64{{1, math.NaN()}, {math.NaN(), math.NaN()}},
		})
		assert.Equal(t, []string{"field", "temp", "windspeed"}, tbl.Headers)
		assert.Equal(t, []string{"temp", "1.0000", ""}, tbl.Rows[0])
		assert.Len(t, tbl.parquet.rows, 4)
	})

	t.Run("weather impact counts outliers", func(t *testing.T) {
		b := analytics.Summarize([]float64{1, 2, 3, 4, 100})
		b.Weather, b.Label = 1, "Clear"
		tbl := WeatherImpactTable([]analytics.BoxStats{b})
		require.Len(t, tbl.Rows, 1)
		assert.Equal(t, "Clear", tbl.Rows[0][1])
		assert.Equal(t, "1", tbl.Rows[0][len(tbl.Headers)-1])
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Zero(t, MonthlyTable(nil).Len())
		assert.Zero(t, UserTypeTable(nil).Len())
		assert.Zero(t, HourlyTable(nil).Len())
	})
}

func TestWriteTableCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTableCSV(&buf, seasonTable(), true))

	data := buf.Bytes()
	require.True(t, bytes.HasPrefix(data, utf8BOM))

	rows, err := csv.NewReader(bytes.NewReader(data[len(utf8BOM):])).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"season", "total"}, {"Semi", "120"}, {"Gugur", "75"}}, rows)
}

func TestCSVWriter(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	dir := t.TempDir()
	w := NewCSVWriter(dir, logger)

	path, err := w.WriteTable(seasonTable())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "seasons.csv"), path)

	require.NoError(t, w.WriteCSV("seasons.csv", WriteOptions{
		Records: [][]string{{"Dingin", "5"}},
		Append:  true,
	}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	rows, err := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM))).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 4)
	assert.Equal(t, []string{"Dingin", "5"}, rows[3])
	assert.True(t, logs.ContainsMessage("Writing CSV file"))
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	hourly := HourlyTable([]analytics.HourlyTotal{{Hour: 8, Total: 300}})
	require.NoError(t, WriteXLSX(&buf, seasonTable(), hourly))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"seasons", "hourly"}, f.GetSheetList())

	rows, err := f.GetRows("seasons")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"season", "total"}, {"Semi", "120"}, {"Gugur", "75"}}, rows)

	v, err := f.GetCellValue("hourly", "B2")
	require.NoError(t, err)
	assert.Equal(t, "300", v)

	assert.Error(t, WriteXLSX(&buf))
}

func TestWriteParquet(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteParquet(&buf, seasonTable()))

	data := buf.Bytes()
	require.Greater(t, len(data), 8)
	assert.Equal(t, "PAR1", string(data[:4]))
	assert.Equal(t, "PAR1", string(data[len(data)-4:]))

	var empty bytes.Buffer
	assert.ErrorIs(t, WriteParquet(&empty, Table{Name: "adhoc"}), ErrNoParquetSchema)
}

func TestExporter(t *testing.T) {
	e := New(nil)

	t.Run("parse format", func(t *testing.T) {
		f, err := ParseFormat("XLSX")
		require.NoError(t, err)
		assert.Equal(t, FormatXLSX, f)

		f, err = ParseFormat("")
		require.NoError(t, err)
		assert.Equal(t, FormatCSV, f)

		_, err = ParseFormat("pdf")
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
	})

	t.Run("multiple tables need xlsx", func(t *testing.T) {
		var buf bytes.Buffer
		err := e.Write(&buf, FormatCSV, seasonTable(), seasonTable())
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
	})

	t.Run("write dir", func(t *testing.T) {
		dir := t.TempDir()
		tables := []Table{seasonTable(), MonthlyTable([]analytics.MonthlyTotal{{Month: "2011-01", Total: 4}})}

		paths, err := e.WriteDir(dir, FormatParquet, tables...)
		require.NoError(t, err)
		assert.Equal(t, []string{
			filepath.Join(dir, "seasons.parquet"),
			filepath.Join(dir, "monthly.parquet"),
		}, paths)

		paths, err = e.WriteDir(dir, FormatXLSX, tables...)
		require.NoError(t, err)
		assert.Equal(t, []string{filepath.Join(dir, "dashboard.xlsx")}, paths)
		assert.FileExists(t, paths[0])
	})

	t.Run("content types", func(t *testing.T) {
		assert.Equal(t, "text/csv; charset=utf-8", FormatCSV.ContentType())
		assert.Equal(t, ".parquet", FormatParquet.Extension())
	})
}
