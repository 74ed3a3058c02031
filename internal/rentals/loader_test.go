package rentals

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bikedash/internal/shared/testutil"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestLoadDataset_Success(t *testing.T) {
	path := testutil.WriteRentalCSV(t,
		testutil.RentalRow{Date: "2011-01-03", Season: "1", Hour: "5", Count: "10", Casual: "2", Registered: "8"},
		testutil.RentalRow{Date: "2011-01-01", Season: "2", Hour: "0", Count: "16"},
		testutil.RentalRow{Date: "2011-01-02 00:00:00", Season: "4", Hour: "23", WorkingDay: "0", Count: "12.0"},
	)
	logger, logs := testutil.NewTestLogger(t)

	ds, err := LoadDataset(context.Background(), path, Options{Logger: logger})
	require.NoError(t, err)

	assert.Equal(t, 3, ds.Len())
	assert.Equal(t, day("2011-01-01"), ds.MinDate())
	assert.Equal(t, day("2011-01-03"), ds.MaxDate())

	recs := ds.Records()
	assert.Equal(t, SeasonSummer, recs[0].Season)
	assert.Equal(t, SeasonWinter, recs[1].Season)
	assert.False(t, recs[1].WorkingDay)
	assert.Equal(t, 12, recs[1].Count)
	assert.Equal(t, SeasonSpring, recs[2].Season)
	assert.Equal(t, 2, recs[2].Casual)
	assert.Equal(t, 8, recs[2].Registered)

	report := ds.Report()
	assert.Equal(t, ProfileX, report.Profile)
	assert.Equal(t, 3, report.Rows)
	assert.Zero(t, report.UnknownSeasonRows)
	assert.Empty(t, report.MissingOptional)
	assert.False(t, report.LoadedAt.IsZero())

	assert.True(t, ds.Has(FieldWeather))
	assert.True(t, ds.Has(FieldCasual))
	testutil.AssertLogContains(t, logs, slog.LevelInfo, "dataset loaded")
	testutil.AssertNoErrors(t, logs)
}

func TestLoadDataset_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.csv")

	_, err := LoadDataset(context.Background(), path, Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDatasetNotFound)
	assert.Contains(t, err.Error(), path)
}

func TestLoadDataset_SchemaMismatch(t *testing.T) {
	tests := []struct {
		name    string
		header  []string
		profile string
		want    []string
	}{
		{
			name:   "missing hour column",
			header: testutil.WithoutColumn(testutil.RentalHeaderX, "hr"),
			want:   []string{"hr"},
		},
		{
			name:   "missing two columns sorted",
			header: testutil.WithoutColumn(testutil.WithoutColumn(testutil.RentalHeaderX, "workingday_x"), "cnt_x"),
			want:   []string{"cnt_x", "workingday_x"},
		},
		{
			name:    "explicit profile against x header",
			header:  testutil.RentalHeaderX,
			profile: ProfileY,
			want:    []string{"cnt_y", "season_y", "workingday_y"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := testutil.WriteCSV(t, "all_data.csv", tt.header, nil)

			_, err := LoadDataset(context.Background(), path, Options{Profile: tt.profile})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrSchemaMismatch)

			var schemaErr *SchemaError
			require.True(t, errors.As(err, &schemaErr))
			assert.Equal(t, tt.want, schemaErr.Missing)
			for _, col := range tt.want {
				assert.Contains(t, err.Error(), col)
			}
		})
	}
}

func TestLoadDataset_UnknownSeason(t *testing.T) {
	path := testutil.WriteRentalCSV(t,
		testutil.RentalRow{Date: "2011-01-01", Season: "1", Count: "5"},
		testutil.RentalRow{Date: "2011-01-01", Season: "7", Hour: "1", Count: "6"},
		testutil.RentalRow{Date: "2011-01-02", Season: "7", Hour: "2", Count: "7"},
		testutil.RentalRow{Date: "2011-01-02", Season: "0", Hour: "3", Count: "8"},
	)
	logger, logs := testutil.NewTestLogger(t)

	ds, err := LoadDataset(context.Background(), path, Options{Logger: logger})
	require.NoError(t, err)

	assert.Equal(t, 4, ds.Len())
	report := ds.Report()
	assert.Equal(t, 3, report.UnknownSeasonRows)
	assert.Equal(t, map[int]int{7: 2, 0: 1}, report.UnknownSeasons)

	for _, rec := range ds.Records()[1:] {
		assert.False(t, rec.HasSeason())
	}
	assert.Len(t, logs.GetRecordsByLevel(slog.LevelWarn), 1)
}

func TestLoadDataset_MalformedRows(t *testing.T) {
	path := testutil.WriteRentalCSV(t,
		testutil.RentalRow{Date: "2011-01-01", Hour: "24", Count: "5"},
		testutil.RentalRow{Date: "2011-01-01", Hour: "1", Count: "5"},
		testutil.RentalRow{Date: "2011-01-01", Hour: "2", Count: "-1"},
		testutil.RentalRow{Date: "yesterday", Hour: "3", Count: "1"},
		testutil.RentalRow{Date: "2011-01-01", Hour: "4", WorkingDay: "2", Count: "1"},
	)

	ds, err := LoadDataset(context.Background(), path, Options{})
	require.Error(t, err)
	assert.Nil(t, ds)
	assert.ErrorIs(t, err, ErrMalformedRows)

	msg := err.Error()
	assert.Contains(t, msg, "4 of 5 rows")
	assert.Contains(t, msg, "line 2: column hr")
	assert.Contains(t, msg, "line 4: column cnt_x")
	assert.Contains(t, msg, "line 5: column dteday")
	assert.Contains(t, msg, "line 6: column workingday_x")

	var rowErr *RowError
	require.True(t, errors.As(err, &rowErr))
	assert.Equal(t, 2, rowErr.Line)
}

func TestLoadDataset_OutOfRangeIntegers(t *testing.T) {
	path := testutil.WriteRentalCSV(t,
		testutil.RentalRow{Date: "2011-01-01", Season: "1e19", Count: "5"},
		testutil.RentalRow{Date: "2011-01-01", Hour: "1", Count: "9e18"},
		testutil.RentalRow{Date: "2011-01-01", Hour: "2", Count: "7"},
	)

	_, err := LoadDataset(context.Background(), path, Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedRows)
	assert.Contains(t, err.Error(), "2 of 3 rows")
	assert.Contains(t, err.Error(), "season code must be an integer")
	assert.Contains(t, err.Error(), "count must be an integer")
}

func TestParseInt(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "42", want: 42},
		{in: "3.0", want: 3},
		{in: "-7", want: -7},
		{in: "2147483647", want: 2147483647},
		{in: "2.5", wantErr: true},
		{in: "2147483648", wantErr: true},
		{in: "1e19", wantErr: true},
		{in: "-9e18", wantErr: true},
		{in: "Inf", wantErr: true},
		{in: "x", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseInt(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadDataset_RowErrorCap(t *testing.T) {
	rows := make([]testutil.RentalRow, 25)
	for i := range rows {
		rows[i] = testutil.RentalRow{Date: "2011-01-01", Hour: "99", Count: "1"}
	}
	path := testutil.WriteRentalCSV(t, rows...)

	_, err := LoadDataset(context.Background(), path, Options{MaxRowErrors: 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "25 of 25 rows")
	assert.Equal(t, 3, strings.Count(err.Error(), "hour must be an integer"))
}

func TestLoadDataset_ProfileDetection(t *testing.T) {
	tests := []struct {
		name   string
		header []string
		row    []string
		want   string
	}{
		{
			name:   "plain columns",
			header: []string{"dteday", "season", "hr", "workingday", "weathersit", "cnt"},
			row:    []string{"2012-06-01", "2", "8", "1", "1", "310"},
			want:   ProfilePlain,
		},
		{
			name:   "y suffix",
			header: []string{"dteday", "season_y", "hr", "workingday_y", "cnt_y"},
			row:    []string{"2012-06-01", "2", "8", "1", "310"},
			want:   ProfileY,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := testutil.WriteCSV(t, "data.csv", tt.header, [][]string{tt.row})

			ds, err := LoadDataset(context.Background(), path, Options{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, ds.Report().Profile)
			assert.Equal(t, 310, ds.Records()[0].Count)
			assert.Equal(t, SeasonSummer, ds.Records()[0].Season)
			assert.False(t, ds.Has(FieldCasual))
			assert.NotEmpty(t, ds.Report().MissingOptional)
		})
	}
}

func TestLoader_Read(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		_, err := NewLoader(Options{}).Read(context.Background(), strings.NewReader(""), "empty.csv")
		assert.ErrorIs(t, err, ErrEmptyFile)
	})

	t.Run("header with BOM", func(t *testing.T) {
		in := "\ufeffdteday,season,hr,workingday,cnt\n2011-02-01,1,3,1,4\n"
		ds, err := NewLoader(Options{}).Read(context.Background(), strings.NewReader(in), "bom.csv")
		require.NoError(t, err)
		assert.Equal(t, 1, ds.Len())
	})

	t.Run("header only", func(t *testing.T) {
		in := "dteday,season,hr,workingday,cnt\n"
		ds, err := NewLoader(Options{}).Read(context.Background(), strings.NewReader(in), "header.csv")
		require.NoError(t, err)
		assert.Zero(t, ds.Len())
		assert.True(t, ds.MinDate().IsZero())
	})

	t.Run("cancelled context", func(t *testing.T) {
		var b strings.Builder
		b.WriteString("dteday,season,hr,workingday,cnt\n")
		for i := 0; i < 2048; i++ {
			fmt.Fprintf(&b, "2011-02-01,1,%d,1,4\n", i%24)
		}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := NewLoader(Options{}).Read(ctx, strings.NewReader(b.String()), "big.csv")
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("unknown profile", func(t *testing.T) {
		in := "dteday,season,hr,workingday,cnt\n"
		_, err := NewLoader(Options{Profile: "z"}).Read(context.Background(), strings.NewReader(in), "x.csv")
		assert.ErrorContains(t, err, "unknown column profile")
	})
}

func TestSeasonLabels(t *testing.T) {
	for code, want := range map[int]string{1: "Semi", 2: "Panas", 3: "Gugur", 4: "Dingin"} {
		label, ok := SeasonLabel(code)
		assert.True(t, ok)
		assert.Equal(t, want, label)

		back, ok := SeasonCode(label)
		assert.True(t, ok)
		assert.Equal(t, code, back)
	}

	_, ok := SeasonLabel(5)
	assert.False(t, ok)
	_, ok = SeasonCode(AllSeasons)
	assert.False(t, ok)
	assert.Equal(t, []string{"Semi", "Panas", "Gugur", "Dingin"}, SeasonLabels())
}

func TestNewDataset_StableSort(t *testing.T) {
	recs := []Record{
		{Date: day("2011-01-02"), Hour: 1},
		{Date: day("2011-01-01"), Hour: 5},
		{Date: day("2011-01-02"), Hour: 0},
	}
	ds := NewDataset(recs, nil, LoadReport{})

	got := ds.Records()
	assert.Equal(t, 5, got[0].Hour)
	assert.Equal(t, 1, got[1].Hour)
	assert.Equal(t, 0, got[2].Hour)
	assert.Equal(t, day("2011-01-02"), recs[0].Date, "input must not be reordered")
	assert.True(t, ds.Has(FieldCount))
	assert.False(t, ds.Has(FieldTemp))
}
