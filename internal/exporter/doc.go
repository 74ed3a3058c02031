// Package exporter renders dashboard views as tables and writes them as CSV,
// XLSX or parquet.
//
// Table builders convert each analytics result into string cells for CSV and
// XLSX and into typed rows for parquet:
//
//	t := exporter.SeasonTable(analytics.AggregateBySeason(records))
//	err := exporter.New(logger).Write(w, exporter.FormatXLSX, t)
//
// CSVWriter keeps the file-oriented API used for reports written to disk.
package exporter
