package services

import (
	"errors"
	"fmt"
	"strings"

	"bikedash/internal/analytics"
	"bikedash/internal/charts"
	"bikedash/internal/exporter"
	"bikedash/internal/rentals"
)

// Dashboard service errors
var (
	ErrDatasetNotLoaded  = errors.New("dataset not loaded")
	ErrUnknownTable      = errors.New("unknown table")
	ErrUnknownChart      = errors.New("unknown chart")
	ErrColumnUnavailable = errors.New("column unavailable")

	ErrUnsupportedFormat = exporter.ErrUnsupportedFormat
)

// ColumnError reports the optional columns a view needs but the dataset lacks.
type ColumnError struct {
	View    analytics.View
	Missing []rentals.Field
}

func (e *ColumnError) Error() string {
	names := make([]string, len(e.Missing))
	for i, f := range e.Missing {
		names[i] = string(f)
	}
	return fmt.Sprintf("view %s needs columns missing from the dataset: %s", e.View, strings.Join(names, ", "))
}

// Is lets errors.Is match ErrColumnUnavailable.
func (e *ColumnError) Is(target error) bool {
	return target == ErrColumnUnavailable
}

func unknownChart(name string) error {
	return fmt.Errorf("%w: %q (want one of %s)", ErrUnknownChart, name, joinViews(charts.Views()))
}

func unknownTable(name string) error {
	return fmt.Errorf("%w: %q (want one of %s or all)", ErrUnknownTable, name, joinViews(analytics.Views()))
}

func joinViews(views []analytics.View) string {
	names := make([]string, len(views))
	for i, v := range views {
		names[i] = string(v)
	}
	return strings.Join(names, ", ")
}
