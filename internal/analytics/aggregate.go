package analytics

import (
	"sort"
	"time"

	"bikedash/internal/rentals"
)

// HourlyWorkdayRow is the rental total for one hour on working or non-working days.
type HourlyWorkdayRow struct {
	Hour       int  `json:"hour"`
	WorkingDay bool `json:"working_day"`
	Total      int  `json:"total"`
}

// SeasonTotal is the rental total of one season.
type SeasonTotal struct {
	Season string `json:"season"`
	Total  int    `json:"total"`
}

// DailyTotal is the rental total of one calendar day.
type DailyTotal struct {
	Date  time.Time `json:"date"`
	Total int       `json:"total"`
}

// MonthlyTotal is the rental total of one month, keyed YYYY-MM.
type MonthlyTotal struct {
	Month string `json:"month"`
	Total int    `json:"total"`
}

// UserTypeRow splits an hour's rentals by user type.
type UserTypeRow struct {
	Hour       int `json:"hour"`
	Casual     int `json:"casual"`
	Registered int `json:"registered"`
}

// HourlyTotal is the rental total of one hour of day.
type HourlyTotal struct {
	Hour  int `json:"hour"`
	Total int `json:"total"`
}

// DailyMetrics summarises rentals over the selected days.
type DailyMetrics struct {
	TotalRentals int     `json:"total_rentals"`
	Days         int     `json:"days"`
	AverageDaily float64 `json:"average_daily"`
}

// AggregateHourlyByWorkday sums Count per (hour, working day), ordered by hour
// and then non-working before working.
func AggregateHourlyByWorkday(records []rentals.Record) []HourlyWorkdayRow {
	var totals [24][2]int
	var seen [24][2]bool
	for _, r := range records {
		if r.Hour < 0 || r.Hour > 23 {
			continue
		}
		w := 0
		if r.WorkingDay {
			w = 1
		}
		totals[r.Hour][w] += r.Count
		seen[r.Hour][w] = true
	}

	out := make([]HourlyWorkdayRow, 0, 48)
	for h := 0; h < 24; h++ {
		for w := 0; w < 2; w++ {
			if !seen[h][w] {
				continue
			}
			out = append(out, HourlyWorkdayRow{Hour: h, WorkingDay: w == 1, Total: totals[h][w]})
		}
	}
	return out
}

// SplitByWorkday separates rows into the working-day and non-working-day series.
func SplitByWorkday(rows []HourlyWorkdayRow) (workday, weekend []HourlyTotal) {
	workday = make([]HourlyTotal, 0, 24)
	weekend = make([]HourlyTotal, 0, 24)
	for _, r := range rows {
		t := HourlyTotal{Hour: r.Hour, Total: r.Total}
		if r.WorkingDay {
			workday = append(workday, t)
		} else {
			weekend = append(weekend, t)
		}
	}
	return workday, weekend
}

// AggregateBySeason sums Count per known season, ordered by season code.
// Seasons without records are omitted.
func AggregateBySeason(records []rentals.Record) []SeasonTotal {
	totals := make(map[string]int, 4)
	for _, r := range records {
		if !r.HasSeason() {
			continue
		}
		totals[r.Season] += r.Count
	}

	out := make([]SeasonTotal, 0, len(totals))
	for _, label := range rentals.SeasonLabels() {
		if total, ok := totals[label]; ok {
			out = append(out, SeasonTotal{Season: label, Total: total})
		}
	}
	return out
}

// AggregateDaily sums Count per calendar day, sorted by date.
func AggregateDaily(records []rentals.Record) []DailyTotal {
	totals := make(map[time.Time]int)
	for _, r := range records {
		totals[calendarDay(r.Date)] += r.Count
	}

	out := make([]DailyTotal, 0, len(totals))
	for d, total := range totals {
		out = append(out, DailyTotal{Date: d, Total: total})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// AggregateMonthly sums Count per month, sorted chronologically.
func AggregateMonthly(records []rentals.Record) []MonthlyTotal {
	totals := make(map[string]int)
	for _, r := range records {
		totals[r.Date.Format("2006-01")] += r.Count
	}

	out := make([]MonthlyTotal, 0, len(totals))
	for m, total := range totals {
		out = append(out, MonthlyTotal{Month: m, Total: total})
	}
	// YYYY-MM sorts lexically in chronological order
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// AggregateUserTypeByHour sums casual and registered rentals per hour.
func AggregateUserTypeByHour(records []rentals.Record) []UserTypeRow {
	var rows [24]UserTypeRow
	var seen [24]bool
	for _, r := range records {
		if r.Hour < 0 || r.Hour > 23 {
			continue
		}
		rows[r.Hour].Casual += r.Casual
		rows[r.Hour].Registered += r.Registered
		seen[r.Hour] = true
	}

	out := make([]UserTypeRow, 0, 24)
	for h := range rows {
		if seen[h] {
			row := rows[h]
			row.Hour = h
			out = append(out, row)
		}
	}
	return out
}

// AggregateHourly sums Count per hour of day.
func AggregateHourly(records []rentals.Record) []HourlyTotal {
	var totals [24]int
	var seen [24]bool
	for _, r := range records {
		if r.Hour < 0 || r.Hour > 23 {
			continue
		}
		totals[r.Hour] += r.Count
		seen[r.Hour] = true
	}

	out := make([]HourlyTotal, 0, 24)
	for h, total := range totals {
		if seen[h] {
			out = append(out, HourlyTotal{Hour: h, Total: total})
		}
	}
	return out
}

// ComputeDailyMetrics returns the total rentals and the mean of the daily totals.
func ComputeDailyMetrics(records []rentals.Record) DailyMetrics {
	daily := AggregateDaily(records)

	var m DailyMetrics
	for _, d := range daily {
		m.TotalRentals += d.Total
	}
	m.Days = len(daily)
	if m.Days > 0 {
		m.AverageDaily = float64(m.TotalRentals) / float64(m.Days)
	}
	return m
}

// SeasonOptions lists the selector values for records: all seasons first,
// then every observed label in code order.
func SeasonOptions(records []rentals.Record) []string {
	present := make(map[string]bool, 4)
	for _, r := range records {
		if r.HasSeason() {
			present[r.Season] = true
		}
	}

	out := []string{rentals.AllSeasons}
	for _, label := range rentals.SeasonLabels() {
		if present[label] {
			out = append(out, label)
		}
	}
	return out
}
