package exporter

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Format is an export file format.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatXLSX    Format = "xlsx"
	FormatParquet Format = "parquet"
)

// ErrUnsupportedFormat is returned for unknown formats and for multi-table
// exports in a single-table format.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// ParseFormat validates a format name, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatXLSX, FormatParquet:
		return f, nil
	case "":
		return FormatCSV, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// ContentType returns the MIME type served for f.
func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatParquet:
		return "application/vnd.apache.parquet"
	default:
		return "text/csv; charset=utf-8"
	}
}

// Extension returns the file extension for f, including the dot.
func (f Format) Extension() string {
	return "." + string(f)
}

// Exporter writes tables in any supported format.
type Exporter struct {
	// BOM prefixes CSV output with a UTF-8 byte order mark.
	BOM    bool
	logger *slog.Logger
}

// New creates an exporter.
func New(logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{BOM: true, logger: logger.With(slog.String("component", "exporter"))}
}

// Write encodes tables to w. CSV and parquet take exactly one table.
func (e *Exporter) Write(w io.Writer, format Format, tables ...Table) error {
	if len(tables) == 0 {
		return fmt.Errorf("nothing to export")
	}
	if len(tables) > 1 && format != FormatXLSX {
		return fmt.Errorf("%w: %s holds a single table, use xlsx for %d tables",
			ErrUnsupportedFormat, format, len(tables))
	}

	switch format {
	case FormatCSV:
		return WriteTableCSV(w, tables[0], e.BOM)
	case FormatXLSX:
		return WriteXLSX(w, tables...)
	case FormatParquet:
		return WriteParquet(w, tables[0])
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

// WriteDir writes every table to its own file in dir and returns the paths.
// For xlsx a single workbook named dashboard.xlsx holds all tables.
func (e *Exporter) WriteDir(dir string, format Format, tables ...Table) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}

	if format == FormatXLSX {
		path := filepath.Join(dir, "dashboard.xlsx")
		if err := e.writeFile(path, format, tables...); err != nil {
			return nil, err
		}
		return []string{path}, nil
	}

	paths := make([]string, 0, len(tables))
	for _, t := range tables {
		path := filepath.Join(dir, t.Name+format.Extension())
		if err := e.writeFile(path, format, t); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func (e *Exporter) writeFile(path string, format Format, tables ...Table) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if err := e.Write(file, format, tables...); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}

	e.logger.Info("export written",
		slog.String("path", path),
		slog.String("format", string(format)),
		slog.Int("tables", len(tables)))
	return nil
}
