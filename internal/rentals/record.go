package rentals

import (
	"sort"
	"time"
)

// Season labels as shown on the dashboard
const (
	SeasonSpring = "Semi"
	SeasonSummer = "Panas"
	SeasonFall   = "Gugur"
	SeasonWinter = "Dingin"
)

// AllSeasons is the selector value that disables season filtering
const AllSeasons = "All Season"

// seasonLabels is the closed season code domain.
var seasonLabels = map[int]string{
	1: SeasonSpring,
	2: SeasonSummer,
	3: SeasonFall,
	4: SeasonWinter,
}

// SeasonLabel maps a season code to its label. ok is false for codes outside 1-4.
func SeasonLabel(code int) (label string, ok bool) {
	label, ok = seasonLabels[code]
	return label, ok
}

// SeasonCode is the inverse of SeasonLabel.
func SeasonCode(label string) (int, bool) {
	for code, l := range seasonLabels {
		if l == label {
			return code, true
		}
	}
	return 0, false
}

// SeasonLabels returns all labels ordered by season code.
func SeasonLabels() []string {
	return []string{SeasonSpring, SeasonSummer, SeasonFall, SeasonWinter}
}

// Record is one hourly observation of the rental dataset.
type Record struct {
	Date       time.Time `json:"date"`
	Hour       int       `json:"hour"`
	WorkingDay bool      `json:"working_day"`
	SeasonCode int       `json:"season_code"`
	Season     string    `json:"season,omitempty"` // empty when SeasonCode is unknown
	Weather    int       `json:"weather"`
	Temp       float64   `json:"temp"`
	Humidity   float64   `json:"humidity"`
	WindSpeed  float64   `json:"windspeed"`
	Casual     int       `json:"casual"`
	Registered int       `json:"registered"`
	Count      int       `json:"count"`
}

// HasSeason reports whether the record carries a known season label.
func (r Record) HasSeason() bool {
	return r.Season != ""
}

// LoadReport summarises a dataset load.
type LoadReport struct {
	Path              string        `json:"path"`
	Profile           string        `json:"profile"`
	Rows              int           `json:"rows"`
	UnknownSeasonRows int           `json:"unknown_season_rows"`
	UnknownSeasons    map[int]int   `json:"unknown_seasons,omitempty"`
	MissingOptional   []string      `json:"missing_optional,omitempty"`
	Duration          time.Duration `json:"duration"`
	LoadedAt          time.Time     `json:"loaded_at"`
}

// Dataset is an immutable, date-sorted set of records.
type Dataset struct {
	records []Record
	fields  map[Field]bool
	minDate time.Time
	maxDate time.Time
	report  LoadReport
}

// NewDataset builds a dataset from already parsed records. The slice is copied
// and sorted by date; present lists the optional fields that carry data.
func NewDataset(records []Record, present []Field, report LoadReport) *Dataset {
	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	fields := make(map[Field]bool, len(requiredFields)+len(present))
	for _, f := range requiredFields {
		fields[f] = true
	}
	for _, f := range present {
		fields[f] = true
	}

	ds := &Dataset{
		records: sorted,
		fields:  fields,
		report:  report,
	}
	if len(sorted) > 0 {
		ds.minDate = sorted[0].Date
		ds.maxDate = sorted[len(sorted)-1].Date
	}
	ds.report.Rows = len(sorted)
	return ds
}

// Records returns the dataset rows. Callers must not modify the returned slice.
func (d *Dataset) Records() []Record {
	return d.records
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	return len(d.records)
}

// MinDate returns the earliest date present, zero for an empty dataset.
func (d *Dataset) MinDate() time.Time {
	return d.minDate
}

// MaxDate returns the latest date present, zero for an empty dataset.
func (d *Dataset) MaxDate() time.Time {
	return d.maxDate
}

// Has reports whether the source file carried the given column.
func (d *Dataset) Has(f Field) bool {
	return d.fields[f]
}

// Report returns the load summary.
func (d *Dataset) Report() LoadReport {
	return d.report
}
