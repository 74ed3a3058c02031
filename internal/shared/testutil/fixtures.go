package testutil

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// RentalHeaderX is the header of the merged hour/day export with _x columns.
var RentalHeaderX = []string{
	"instant", "dteday", "season_x", "yr_x", "mnth_x", "hr", "holiday_x", "weekday_x",
	"workingday_x", "weathersit_x", "temp_x", "atemp_x", "hum_x", "windspeed_x",
	"casual_x", "registered_x", "cnt_x",
}

// RentalRow builds one _x row. Unset covariates are filled with plausible constants.
type RentalRow struct {
	Date       string
	Season     string
	Hour       string
	WorkingDay string
	Weather    string
	Temp       string
	Humidity   string
	WindSpeed  string
	Casual     string
	Registered string
	Count      string
}

// Values renders the row in RentalHeaderX order.
func (r RentalRow) Values(instant int) []string {
	def := func(v, d string) string {
		if v == "" {
			return d
		}
		return v
	}
	return []string{
		strconv.Itoa(instant), r.Date, def(r.Season, "1"), "0", "1", def(r.Hour, "0"), "0", "1",
		def(r.WorkingDay, "1"), def(r.Weather, "1"), def(r.Temp, "0.24"), "0.28",
		def(r.Humidity, "0.81"), def(r.WindSpeed, "0.0"), def(r.Casual, "0"),
		def(r.Registered, "0"), def(r.Count, "0"),
	}
}

// WriteRentalCSV writes rows under RentalHeaderX into a temp file and returns its path.
func WriteRentalCSV(t *testing.T, rows ...RentalRow) string {
	t.Helper()
	records := make([][]string, 0, len(rows))
	for i, r := range rows {
		records = append(records, r.Values(i+1))
	}
	return WriteCSV(t, "all_data.csv", RentalHeaderX, records)
}

// WriteCSV writes header and records to name inside t.TempDir().
func WriteCSV(t *testing.T, name string, header []string, records [][]string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create fixture: %v", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if header != nil {
		if err := w.Write(header); err != nil {
			t.Fatalf("write fixture header: %v", err)
		}
	}
	if err := w.WriteAll(records); err != nil {
		t.Fatalf("write fixture rows: %v", err)
	}
	return path
}

// WithoutColumn returns header with every column named col removed.
func WithoutColumn(header []string, col string) []string {
	out := make([]string, 0, len(header))
	for _, h := range header {
		if !strings.EqualFold(h, col) {
			out = append(out, h)
		}
	}
	return out
}
