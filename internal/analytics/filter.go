package analytics

import (
	"time"

	"bikedash/internal/rentals"
)

// AllSelector is accepted as a shorthand for rentals.AllSeasons.
const AllSelector = "All"

// IsAllSeasons reports whether selector disables season filtering.
func IsAllSeasons(selector string) bool {
	return selector == "" || selector == rentals.AllSeasons || selector == AllSelector
}

// FilterByDate keeps records whose calendar day lies in [start, end].
// Both bounds are inclusive; start after end yields nothing.
func FilterByDate(records []rentals.Record, start, end time.Time) []rentals.Record {
	from, to := calendarDay(start), calendarDay(end)
	if from.After(to) {
		return []rentals.Record{}
	}

	out := make([]rentals.Record, 0, len(records))
	for _, r := range records {
		d := calendarDay(r.Date)
		if d.Before(from) || d.After(to) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// FilterBySeason keeps records labelled selector. The all-seasons selector
// returns records unchanged. Records with an unknown season never match.
func FilterBySeason(records []rentals.Record, selector string) []rentals.Record {
	if IsAllSeasons(selector) {
		return records
	}

	out := make([]rentals.Record, 0, len(records)/4)
	for _, r := range records {
		if r.HasSeason() && r.Season == selector {
			out = append(out, r)
		}
	}
	return out
}

func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
