package exporter

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/hashicorp/go-multierror"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
)

// ErrNoParquetSchema is returned for tables built without typed rows.
var ErrNoParquetSchema = errors.New("table has no parquet schema")

type parquetRows struct {
	proto any
	rows  []any
}

func newParquetRows(proto any) *parquetRows {
	return &parquetRows{proto: proto}
}

func (p *parquetRows) add(row any) {
	p.rows = append(p.rows, row)
}

type hourlyWorkdayRow struct {
	Hour       int32 `parquet:"name=hour, type=INT32"`
	WorkingDay bool  `parquet:"name=working_day, type=BOOLEAN"`
	Total      int64 `parquet:"name=total, type=INT64"`
}

type seasonRow struct {
	Season string `parquet:"name=season, type=BYTE_ARRAY, convertedtype=UTF8"`
	Total  int64  `parquet:"name=total, type=INT64"`
}

type dailyRow struct {
	Date  int32 `parquet:"name=date, type=INT32, convertedtype=DATE"`
	Total int64 `parquet:"name=total, type=INT64"`
}

type monthlyRow struct {
	Month string `parquet:"name=month, type=BYTE_ARRAY, convertedtype=UTF8"`
	Total int64  `parquet:"name=total, type=INT64"`
}

type userTypeRow struct {
	Hour       int32 `parquet:"name=hour, type=INT32"`
	Casual     int64 `parquet:"name=casual, type=INT64"`
	Registered int64 `parquet:"name=registered, type=INT64"`
}

type hourlyRow struct {
	Hour  int32 `parquet:"name=hour, type=INT32"`
	Total int64 `parquet:"name=total, type=INT64"`
}

type summaryRow struct {
	TotalRentals int64   `parquet:"name=total_rentals, type=INT64"`
	Days         int32   `parquet:"name=days, type=INT32"`
	AverageDaily float64 `parquet:"name=average_daily, type=DOUBLE"`
}

type weatherRow struct {
	Weather      int32   `parquet:"name=weather, type=INT32"`
	Label        string  `parquet:"name=label, type=BYTE_ARRAY, convertedtype=UTF8"`
	N            int64   `parquet:"name=n, type=INT64"`
	Min          float64 `parquet:"name=min, type=DOUBLE"`
	Q1           float64 `parquet:"name=q1, type=DOUBLE"`
	Median       float64 `parquet:"name=median, type=DOUBLE"`
	Q3           float64 `parquet:"name=q3, type=DOUBLE"`
	Max          float64 `parquet:"name=max, type=DOUBLE"`
	Mean         float64 `parquet:"name=mean, type=DOUBLE"`
	LowerWhisker float64 `parquet:"name=lower_whisker, type=DOUBLE"`
	UpperWhisker float64 `parquet:"name=upper_whisker, type=DOUBLE"`
	Outliers     int64   `parquet:"name=outliers, type=INT64"`
}

// correlationRow is the long form of the matrix; undefined cells are null.
type correlationRow struct {
	Field string   `parquet:"name=field, type=BYTE_ARRAY, convertedtype=UTF8"`
	Other string   `parquet:"name=other, type=BYTE_ARRAY, convertedtype=UTF8"`
	Value *float64 `parquet:"name=value, type=DOUBLE, repetitiontype=OPTIONAL"`
}

type recordRow struct {
	Date       int32   `parquet:"name=date, type=INT32, convertedtype=DATE"`
	Hour       int32   `parquet:"name=hour, type=INT32"`
	WorkingDay bool    `parquet:"name=working_day, type=BOOLEAN"`
	SeasonCode int32   `parquet:"name=season_code, type=INT32"`
	Season     string  `parquet:"name=season, type=BYTE_ARRAY, convertedtype=UTF8"`
	Weather    int32   `parquet:"name=weather, type=INT32"`
	Temp       float64 `parquet:"name=temp, type=DOUBLE"`
	Humidity   float64 `parquet:"name=hum, type=DOUBLE"`
	WindSpeed  float64 `parquet:"name=windspeed, type=DOUBLE"`
	Casual     int64   `parquet:"name=casual, type=INT64"`
	Registered int64   `parquet:"name=registered, type=INT64"`
	Count      int64   `parquet:"name=cnt, type=INT64"`
}

// WriteParquet encodes t as a single SNAPPY-compressed parquet file. The file
// is assembled in memory and copied to w only when complete.
func WriteParquet(w io.Writer, t Table) error {
	if t.parquet == nil {
		return fmt.Errorf("%w: %s", ErrNoParquetSchema, t.Name)
	}

	buf := new(bytes.Buffer)
	rowGroup := int64(len(t.parquet.rows))
	if rowGroup == 0 {
		rowGroup = 1
	}
	pw, err := writer.NewParquetWriterFromWriter(buf, t.parquet.proto, rowGroup)
	if err != nil {
		return fmt.Errorf("failed to create parquet writer for %s: %w", t.Name, err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	var errs *multierror.Error
	for i, row := range t.parquet.rows {
		if werr := pw.Write(row); werr != nil {
			errs = multierror.Append(errs, fmt.Errorf("row %d: %w", i, werr))
			break
		}
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				errs = multierror.Append(errs, fmt.Errorf("parquet writer panicked during WriteStop: %v", r))
			}
		}()
		if serr := pw.WriteStop(); serr != nil {
			errs = multierror.Append(errs, fmt.Errorf("failed to finalise parquet file: %w", serr))
		}
	}()

	if err := errs.ErrorOrNil(); err != nil {
		return fmt.Errorf("parquet export of %s failed: %w", t.Name, err)
	}

	_, err = io.Copy(w, buf)
	return err
}
