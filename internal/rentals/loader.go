package rentals

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
)

// DefaultMaxRowErrors caps how many row errors a failed load carries.
const DefaultMaxRowErrors = 20

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006/01/02",
}

// Options configures a Loader.
type Options struct {
	// Profile is a profile name or ProfileAuto.
	Profile      string
	MaxRowErrors int
	Logger       *slog.Logger
}

// Loader reads rental datasets from delimited text files.
type Loader struct {
	profile      string
	maxRowErrors int
	logger       *slog.Logger
}

// NewLoader creates a loader, filling unset options with defaults.
func NewLoader(opts Options) *Loader {
	if opts.Profile == "" {
		opts.Profile = ProfileAuto
	}
	if opts.MaxRowErrors <= 0 {
		opts.MaxRowErrors = DefaultMaxRowErrors
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Loader{
		profile:      opts.Profile,
		maxRowErrors: opts.MaxRowErrors,
		logger:       opts.Logger.With(slog.String("component", "dataset_loader")),
	}
}

// LoadDataset is a shorthand for NewLoader(opts).Load(ctx, path).
func LoadDataset(ctx context.Context, path string, opts Options) (*Dataset, error) {
	return NewLoader(opts).Load(ctx, path)
}

// Load reads path, validates its header and parses every row. Any missing
// required column or unparseable row fails the whole load.
func (l *Loader) Load(ctx context.Context, path string) (*Dataset, error) {
	start := time.Now()

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, path)
		}
		return nil, fmt.Errorf("failed to open dataset %s: %w", path, err)
	}
	defer file.Close()

	ds, err := l.read(ctx, file, path)
	if err != nil {
		l.logger.ErrorContext(ctx, "dataset load failed",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return nil, err
	}

	ds.report.Duration = time.Since(start)
	ds.report.LoadedAt = time.Now()

	l.logger.InfoContext(ctx, "dataset loaded",
		slog.String("path", path),
		slog.String("profile", ds.report.Profile),
		slog.Int("rows", ds.Len()),
		slog.Time("min_date", ds.MinDate()),
		slog.Time("max_date", ds.MaxDate()),
		slog.Duration("duration", ds.report.Duration))

	if ds.report.UnknownSeasonRows > 0 {
		l.logger.WarnContext(ctx, "rows with unknown season codes excluded from season views",
			slog.String("path", path),
			slog.Int("rows", ds.report.UnknownSeasonRows),
			slog.Any("codes", ds.report.UnknownSeasons))
	}

	return ds, nil
}

// Read parses a dataset from r. name is only used for reporting.
func (l *Loader) Read(ctx context.Context, r io.Reader, name string) (*Dataset, error) {
	return l.read(ctx, r, name)
}

func (l *Loader) read(ctx context.Context, r io.Reader, name string) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.ReuseRecord = true

	headerRow, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: %s", ErrEmptyFile, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", name, err)
	}

	header := make(map[string]int, len(headerRow))
	for i, col := range headerRow {
		col = strings.TrimSpace(col)
		if i == 0 {
			col = strings.TrimPrefix(col, "\ufeff")
		}
		header[col] = i
	}

	profile, missing, err := resolveProfile(l.profile, header)
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Profile: profile.Name, Missing: missing}
	}

	cols := make(map[Field]int, len(profile.Columns))
	var present, absent []Field
	for f, col := range profile.Columns {
		idx, ok := header[col]
		if !ok {
			continue
		}
		cols[f] = idx
	}
	for _, f := range optionalFields {
		if _, ok := cols[f]; ok {
			present = append(present, f)
		} else {
			absent = append(absent, f)
		}
	}

	p := rowParser{profile: profile, cols: cols}
	report := LoadReport{
		Path:           name,
		Profile:        profile.Name,
		UnknownSeasons: make(map[int]int),
	}

	var (
		records []Record
		rowErrs *multierror.Error
		failed  int
		line    = 1
	)
	for {
		line++
		if line%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			failed++
			if failed <= l.maxRowErrors {
				rowErrs = multierror.Append(rowErrs, fmt.Errorf("line %d: %w", line, err))
			}
			continue
		}

		rec, err := p.parse(row, line)
		if err != nil {
			failed++
			if failed <= l.maxRowErrors {
				rowErrs = multierror.Append(rowErrs, err)
			}
			continue
		}

		if label, ok := SeasonLabel(rec.SeasonCode); ok {
			rec.Season = label
		} else {
			report.UnknownSeasonRows++
			report.UnknownSeasons[rec.SeasonCode]++
		}
		records = append(records, rec)
	}

	if failed > 0 {
		return nil, fmt.Errorf("%w: %d of %d rows in %s failed to parse: %w",
			ErrMalformedRows, failed, line-2, name, rowErrs.ErrorOrNil())
	}

	if len(report.UnknownSeasons) == 0 {
		report.UnknownSeasons = nil
	}
	for _, f := range absent {
		report.MissingOptional = append(report.MissingOptional, profile.Columns[f])
	}
	sort.Strings(report.MissingOptional)

	return NewDataset(records, present, report), nil
}

type rowParser struct {
	profile Profile
	cols    map[Field]int
}

func (p rowParser) value(row []string, f Field) (string, bool) {
	idx, ok := p.cols[f]
	if !ok || idx >= len(row) {
		return "", false
	}
	return strings.TrimSpace(row[idx]), true
}

func (p rowParser) rowErr(line int, f Field, value, reason string) error {
	return &RowError{Line: line, Column: p.profile.Columns[f], Value: value, Reason: reason}
}

func (p rowParser) parse(row []string, line int) (Record, error) {
	var rec Record

	raw, _ := p.value(row, FieldDate)
	date, err := parseDate(raw)
	if err != nil {
		return rec, p.rowErr(line, FieldDate, raw, "unrecognised date")
	}
	rec.Date = date

	raw, _ = p.value(row, FieldHour)
	hour, err := parseInt(raw)
	if err != nil || hour < 0 || hour > 23 {
		return rec, p.rowErr(line, FieldHour, raw, "hour must be an integer in 0-23")
	}
	rec.Hour = hour

	raw, _ = p.value(row, FieldWorkingDay)
	flag, err := parseInt(raw)
	if err != nil || (flag != 0 && flag != 1) {
		return rec, p.rowErr(line, FieldWorkingDay, raw, "workday flag must be 0 or 1")
	}
	rec.WorkingDay = flag == 1

	raw, _ = p.value(row, FieldSeason)
	if rec.SeasonCode, err = parseInt(raw); err != nil {
		return rec, p.rowErr(line, FieldSeason, raw, "season code must be an integer")
	}

	raw, _ = p.value(row, FieldCount)
	if rec.Count, err = parseCount(raw); err != nil {
		return rec, p.rowErr(line, FieldCount, raw, err.Error())
	}

	for _, f := range []Field{FieldCasual, FieldRegistered} {
		raw, ok := p.value(row, f)
		if !ok {
			continue
		}
		n, err := parseCount(raw)
		if err != nil {
			return rec, p.rowErr(line, f, raw, err.Error())
		}
		if f == FieldCasual {
			rec.Casual = n
		} else {
			rec.Registered = n
		}
	}

	if raw, ok := p.value(row, FieldWeather); ok {
		if rec.Weather, err = parseInt(raw); err != nil {
			return rec, p.rowErr(line, FieldWeather, raw, "weather code must be an integer")
		}
	}

	for _, f := range []Field{FieldTemp, FieldHumidity, FieldWindSpeed} {
		raw, ok := p.value(row, f)
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return rec, p.rowErr(line, f, raw, "expected a finite number")
		}
		switch f {
		case FieldTemp:
			rec.Temp = v
		case FieldHumidity:
			rec.Humidity = v
		case FieldWindSpeed:
			rec.WindSpeed = v
		}
	}

	return rec, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// parseInt accepts integers written as floats ("3.0"). Values outside the
// int32 range are rejected so that summed counts cannot overflow.
func parseInt(s string) (int, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%q is not an integer", s)
	}
	if math.Abs(f) > math.MaxInt32 {
		return 0, fmt.Errorf("%q is out of range", s)
	}
	return int(f), nil
}

func parseCount(s string) (int, error) {
	n, err := parseInt(s)
	if err != nil {
		return 0, errors.New("count must be an integer")
	}
	if n < 0 {
		return 0, errors.New("count must not be negative")
	}
	return n, nil
}
