package exporter

import (
	"strconv"
	"time"
)

// formatFloat formats a value with exactly 2 decimal places
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

// formatCoefficient keeps 4 decimals, enough for normalised covariates
func formatCoefficient(f float64) string {
	return strconv.FormatFloat(f, 'f', 4, 64)
}

func formatInt(i int64) string {
	return strconv.FormatInt(i, 10)
}

func formatBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func formatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// epochDays converts a calendar day to the parquet DATE representation.
func epochDays(t time.Time) int32 {
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return int32(day.Unix() / 86400)
}
