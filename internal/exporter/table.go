package exporter

import (
	"math"

	"bikedash/internal/analytics"
	"bikedash/internal/rentals"
)

// Table is a rendered view: a header row and string cells, plus the typed
// rows used by columnar formats.
type Table struct {
	Name    string
	Headers []string
	Rows    [][]string

	parquet *parquetRows
}

// Len returns the number of data rows.
func (t Table) Len() int {
	return len(t.Rows)
}

// HourlyWorkdayTable renders the hourly totals split by working day.
func HourlyWorkdayTable(rows []analytics.HourlyWorkdayRow) Table {
	t := Table{
		Name:    string(analytics.ViewHourlyWorkday),
		Headers: []string{"hour", "working_day", "total"},
		Rows:    make([][]string, 0, len(rows)),
		parquet: newParquetRows(new(hourlyWorkdayRow)),
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{formatInt(int64(r.Hour)), formatBool(r.WorkingDay), formatInt(int64(r.Total))})
		t.parquet.add(hourlyWorkdayRow{Hour: int32(r.Hour), WorkingDay: r.WorkingDay, Total: int64(r.Total)})
	}
	return t
}

// SeasonTable renders season totals.
func SeasonTable(rows []analytics.SeasonTotal) Table {
	t := Table{
		Name:    string(analytics.ViewSeasons),
		Headers: []string{"season", "total"},
		Rows:    make([][]string, 0, len(rows)),
		parquet: newParquetRows(new(seasonRow)),
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{r.Season, formatInt(int64(r.Total))})
		t.parquet.add(seasonRow{Season: r.Season, Total: int64(r.Total)})
	}
	return t
}

// DailyTable renders daily totals.
func DailyTable(rows []analytics.DailyTotal) Table {
	t := Table{
		Name:    string(analytics.ViewDaily),
		Headers: []string{"date", "total"},
		Rows:    make([][]string, 0, len(rows)),
		parquet: newParquetRows(new(dailyRow)),
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{formatDate(r.Date), formatInt(int64(r.Total))})
		t.parquet.add(dailyRow{Date: epochDays(r.Date), Total: int64(r.Total)})
	}
	return t
}

// MonthlyTable renders monthly totals.
func MonthlyTable(rows []analytics.MonthlyTotal) Table {
	t := Table{
		Name:    string(analytics.ViewMonthly),
		Headers: []string{"month", "total"},
		Rows:    make([][]string, 0, len(rows)),
		parquet: newParquetRows(new(monthlyRow)),
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{r.Month, formatInt(int64(r.Total))})
		t.parquet.add(monthlyRow{Month: r.Month, Total: int64(r.Total)})
	}
	return t
}

// UserTypeTable renders casual and registered totals per hour.
func UserTypeTable(rows []analytics.UserTypeRow) Table {
	t := Table{
		Name:    string(analytics.ViewUserTypes),
		Headers: []string{"hour", "casual", "registered"},
		Rows:    make([][]string, 0, len(rows)),
		parquet: newParquetRows(new(userTypeRow)),
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{formatInt(int64(r.Hour)), formatInt(int64(r.Casual)), formatInt(int64(r.Registered))})
		t.parquet.add(userTypeRow{Hour: int32(r.Hour), Casual: int64(r.Casual), Registered: int64(r.Registered)})
	}
	return t
}

// HourlyTable renders hourly totals.
func HourlyTable(rows []analytics.HourlyTotal) Table {
	t := Table{
		Name:    string(analytics.ViewHourly),
		Headers: []string{"hour", "total"},
		Rows:    make([][]string, 0, len(rows)),
		parquet: newParquetRows(new(hourlyRow)),
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{formatInt(int64(r.Hour)), formatInt(int64(r.Total))})
		t.parquet.add(hourlyRow{Hour: int32(r.Hour), Total: int64(r.Total)})
	}
	return t
}

// SummaryTable renders the daily metrics as a single row.
func SummaryTable(m analytics.DailyMetrics) Table {
	t := Table{
		Name:    string(analytics.ViewSummary),
		Headers: []string{"total_rentals", "days", "average_daily"},
		Rows: [][]string{{
			formatInt(int64(m.TotalRentals)), formatInt(int64(m.Days)), formatFloat(m.AverageDaily),
		}},
		parquet: newParquetRows(new(summaryRow)),
	}
	t.parquet.add(summaryRow{TotalRentals: int64(m.TotalRentals), Days: int32(m.Days), AverageDaily: m.AverageDaily})
	return t
}

// WeatherImpactTable renders box statistics per weather code. Outliers are
// reported as a count.
func WeatherImpactTable(rows []analytics.BoxStats) Table {
	t := Table{
		Name: string(analytics.ViewWeatherImpact),
		Headers: []string{"weather", "label", "n", "min", "q1", "median", "q3", "max", "mean",
			"lower_whisker", "upper_whisker", "outliers"},
		Rows:    make([][]string, 0, len(rows)),
		parquet: newParquetRows(new(weatherRow)),
	}
	for _, b := range rows {
		t.Rows = append(t.Rows, []string{
			formatInt(int64(b.Weather)), b.Label, formatInt(int64(b.N)),
			formatFloat(b.Min), formatFloat(b.Q1), formatFloat(b.Median), formatFloat(b.Q3),
			formatFloat(b.Max), formatFloat(b.Mean), formatFloat(b.LowerWhisker),
			formatFloat(b.UpperWhisker), formatInt(int64(len(b.Outliers))),
		})
		t.parquet.add(weatherRow{
			Weather: int32(b.Weather), Label: b.Label, N: int64(b.N),
			Min: b.Min, Q1: b.Q1, Median: b.Median, Q3: b.Q3, Max: b.Max, Mean: b.Mean,
			LowerWhisker: b.LowerWhisker, UpperWhisker: b.UpperWhisker, Outliers: int64(len(b.Outliers)),
		})
	}
	return t
}

// CorrelationTable renders the matrix with one row per field. Undefined
// cells are left empty.
func CorrelationTable(c analytics.Correlation) Table {
	t := Table{
		Name:    string(analytics.ViewCorrelation),
		Headers: make([]string, 0, len(c.Fields)+1),
		Rows:    make([][]string, 0, len(c.Fields)),
		parquet: newParquetRows(new(correlationRow)),
	}
	t.Headers = append(t.Headers, "field")
	for _, f := range c.Fields {
		t.Headers = append(t.Headers, string(f))
	}

	for i, f := range c.Fields {
		row := make([]string, 0, len(c.Fields)+1)
		row = append(row, string(f))
		for j, v := range c.Values[i] {
			if math.IsNaN(v) {
				row = append(row, "")
			} else {
				row = append(row, formatCoefficient(v))
			}
			t.parquet.add(correlationRow{Field: string(f), Other: string(c.Fields[j]), Value: optionalFloat(v)})
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// RecordsTable renders raw records, for exporting the filtered dataset.
func RecordsTable(records []rentals.Record) Table {
	t := Table{
		Name: "records",
		Headers: []string{"date", "hour", "working_day", "season_code", "season", "weather",
			"temp", "hum", "windspeed", "casual", "registered", "cnt"},
		Rows:    make([][]string, 0, len(records)),
		parquet: newParquetRows(new(recordRow)),
	}
	for _, r := range records {
		t.Rows = append(t.Rows, []string{
			formatDate(r.Date), formatInt(int64(r.Hour)), formatBool(r.WorkingDay),
			formatInt(int64(r.SeasonCode)), r.Season, formatInt(int64(r.Weather)),
			formatCoefficient(r.Temp), formatCoefficient(r.Humidity), formatCoefficient(r.WindSpeed),
			formatInt(int64(r.Casual)), formatInt(int64(r.Registered)), formatInt(int64(r.Count)),
		})
		t.parquet.add(recordRow{
			Date: epochDays(r.Date), Hour: int32(r.Hour), WorkingDay: r.WorkingDay,
			SeasonCode: int32(r.SeasonCode), Season: r.Season, Weather: int32(r.Weather),
			Temp: r.Temp, Humidity: r.Humidity, WindSpeed: r.WindSpeed,
			Casual: int64(r.Casual), Registered: int64(r.Registered), Count: int64(r.Count),
		})
	}
	return t
}

func optionalFloat(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}
