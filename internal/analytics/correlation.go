package analytics

import (
	"encoding/json"
	"math"

	"bikedash/internal/rentals"
)

// DefaultCorrelationFields are the columns of the dashboard heatmap.
var DefaultCorrelationFields = []rentals.Field{
	rentals.FieldTemp, rentals.FieldHumidity, rentals.FieldWindSpeed, rentals.FieldCount,
}

// Correlation is a symmetric Pearson correlation matrix. Rows and columns of
// fields listed in Undefined are NaN.
type Correlation struct {
	Fields    []rentals.Field `json:"fields"`
	Values    [][]float64     `json:"-"`
	Undefined []rentals.Field `json:"undefined,omitempty"`
}

// At returns the coefficient for the pair (a, b) and whether both are present.
func (c Correlation) At(a, b rentals.Field) (float64, bool) {
	i, j := c.index(a), c.index(b)
	if i < 0 || j < 0 {
		return math.NaN(), false
	}
	return c.Values[i][j], true
}

func (c Correlation) index(f rentals.Field) int {
	for i, name := range c.Fields {
		if name == f {
			return i
		}
	}
	return -1
}

// MarshalJSON encodes NaN cells as null.
func (c Correlation) MarshalJSON() ([]byte, error) {
	values := make([][]*float64, len(c.Values))
	for i, row := range c.Values {
		values[i] = make([]*float64, len(row))
		for j, v := range row {
			if math.IsNaN(v) {
				continue
			}
			v := v
			values[i][j] = &v
		}
	}

	type alias Correlation
	return json.Marshal(struct {
		alias
		Values [][]*float64 `json:"values"`
	}{alias: alias(c), Values: values})
}

// fieldValue extracts a numeric column. ok is false for non-numeric fields.
func fieldValue(r rentals.Record, f rentals.Field) (float64, bool) {
	switch f {
	case rentals.FieldTemp:
		return r.Temp, true
	case rentals.FieldHumidity:
		return r.Humidity, true
	case rentals.FieldWindSpeed:
		return r.WindSpeed, true
	case rentals.FieldCount:
		return float64(r.Count), true
	case rentals.FieldCasual:
		return float64(r.Casual), true
	case rentals.FieldRegistered:
		return float64(r.Registered), true
	case rentals.FieldHour:
		return float64(r.Hour), true
	case rentals.FieldWeather:
		return float64(r.Weather), true
	case rentals.FieldSeason:
		return float64(r.SeasonCode), true
	}
	return 0, false
}

// CorrelationMatrix computes pairwise Pearson coefficients over fields, or
// DefaultCorrelationFields when none are given. A field that is constant, not
// numeric or backed by fewer than two records is reported in Undefined.
func CorrelationMatrix(records []rentals.Record, fields ...rentals.Field) Correlation {
	if len(records) == 0 {
		return Correlation{Fields: []rentals.Field{}, Values: [][]float64{}}
	}
	if len(fields) == 0 {
		fields = DefaultCorrelationFields
	}

	n := len(fields)
	cols := make([][]float64, n)
	defined := make([]bool, n)
	result := Correlation{
		Fields: append([]rentals.Field(nil), fields...),
		Values: make([][]float64, n),
	}

	for i, f := range fields {
		col := make([]float64, 0, len(records))
		numeric := true
		for _, r := range records {
			v, ok := fieldValue(r, f)
			if !ok {
				numeric = false
				break
			}
			col = append(col, v)
		}
		cols[i] = col
		defined[i] = numeric && len(col) >= 2 && !constant(col)
		if !defined[i] {
			result.Undefined = append(result.Undefined, f)
		}
	}

	for i := range fields {
		result.Values[i] = make([]float64, n)
		for j := range fields {
			switch {
			case !defined[i] || !defined[j]:
				result.Values[i][j] = math.NaN()
			case i == j:
				result.Values[i][j] = 1
			case j < i:
				result.Values[i][j] = result.Values[j][i]
			default:
				result.Values[i][j] = pearson(cols[i], cols[j])
			}
		}
	}
	return result
}

func constant(xs []float64) bool {
	for _, x := range xs[1:] {
		if x != xs[0] {
			return false
		}
	}
	return true
}

func pearson(xs, ys []float64) float64 {
	n := float64(len(xs))
	var mx, my float64
	for i := range xs {
		mx += xs[i]
		my += ys[i]
	}
	mx /= n
	my /= n

	var cov, vx, vy float64
	for i := range xs {
		dx, dy := xs[i]-mx, ys[i]-my
		cov += dx * dy
		vx += dx * dx
		vy += dy * dy
	}
	if vx == 0 || vy == 0 {
		return math.NaN()
	}

	r := cov / math.Sqrt(vx*vy)
	return math.Max(-1, math.Min(1, r))
}
