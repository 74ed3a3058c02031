package analytics

import (
	"math"
	"sort"

	"bikedash/internal/rentals"
)

var weatherLabels = map[int]string{
	1: "Clear",
	2: "Mist",
	3: "Light Snow/Rain",
	4: "Heavy Rain",
}

// WeatherLabel names a weathersit code.
func WeatherLabel(code int) string {
	if l, ok := weatherLabels[code]; ok {
		return l
	}
	return "Unknown"
}

// BoxStats is the five-number summary of rental counts under one weather code.
type BoxStats struct {
	Weather      int       `json:"weather"`
	Label        string    `json:"label"`
	N            int       `json:"n"`
	Min          float64   `json:"min"`
	Q1           float64   `json:"q1"`
	Median       float64   `json:"median"`
	Q3           float64   `json:"q3"`
	Max          float64   `json:"max"`
	Mean         float64   `json:"mean"`
	LowerWhisker float64   `json:"lower_whisker"`
	UpperWhisker float64   `json:"upper_whisker"`
	Outliers     []float64 `json:"outliers"`
}

// WeatherSample holds the raw counts observed under one weather code.
type WeatherSample struct {
	Weather int       `json:"weather"`
	Label   string    `json:"label"`
	Values  []float64 `json:"values"`
}

// WeatherSamples groups Count by weather code, sorted by code.
func WeatherSamples(records []rentals.Record) []WeatherSample {
	groups := make(map[int][]float64)
	for _, r := range records {
		groups[r.Weather] = append(groups[r.Weather], float64(r.Count))
	}

	codes := make([]int, 0, len(groups))
	for code := range groups {
		codes = append(codes, code)
	}
	sort.Ints(codes)

	out := make([]WeatherSample, 0, len(codes))
	for _, code := range codes {
		out = append(out, WeatherSample{Weather: code, Label: WeatherLabel(code), Values: groups[code]})
	}
	return out
}

// WeatherImpact summarises the distribution of Count per weather code.
func WeatherImpact(records []rentals.Record) []BoxStats {
	samples := WeatherSamples(records)
	out := make([]BoxStats, 0, len(samples))
	for _, s := range samples {
		b := Summarize(s.Values)
		b.Weather = s.Weather
		b.Label = s.Label
		out = append(out, b)
	}
	return out
}

// Summarize computes box statistics for values. Quartiles interpolate linearly
// between order statistics; whiskers reach the furthest values within 1.5 IQR.
func Summarize(values []float64) BoxStats {
	b := BoxStats{N: len(values), Outliers: []float64{}}
	if len(values) == 0 {
		return b
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	b.Mean = sum / float64(len(sorted))
	b.Min = sorted[0]
	b.Max = sorted[len(sorted)-1]
	b.Q1 = quantile(sorted, 0.25)
	b.Median = quantile(sorted, 0.5)
	b.Q3 = quantile(sorted, 0.75)

	iqr := b.Q3 - b.Q1
	lo, hi := b.Q1-1.5*iqr, b.Q3+1.5*iqr
	b.LowerWhisker, b.UpperWhisker = b.Max, b.Min
	for _, v := range sorted {
		if v < lo || v > hi {
			b.Outliers = append(b.Outliers, v)
			continue
		}
		b.LowerWhisker = math.Min(b.LowerWhisker, v)
		b.UpperWhisker = math.Max(b.UpperWhisker, v)
	}
	return b
}

// quantile expects sorted input.
func quantile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	h := p * float64(len(sorted)-1)
	lo := int(math.Floor(h))
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	return sorted[lo] + (h-float64(lo))*(sorted[lo+1]-sorted[lo])
}
