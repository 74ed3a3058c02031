package rentals

import (
	"fmt"
	"sort"
)

// Field is a logical column of the rental dataset.
type Field string

const (
	FieldDate       Field = "date"
	FieldSeason     Field = "season"
	FieldHour       Field = "hour"
	FieldWorkingDay Field = "workingday"
	FieldCount      Field = "cnt"
	FieldWeather    Field = "weathersit"
	FieldTemp       Field = "temp"
	FieldHumidity   Field = "hum"
	FieldWindSpeed  Field = "windspeed"
	FieldCasual     Field = "casual"
	FieldRegistered Field = "registered"
)

var requiredFields = []Field{FieldSeason, FieldHour, FieldWorkingDay, FieldCount, FieldDate}

var optionalFields = []Field{
	FieldWeather, FieldTemp, FieldHumidity, FieldWindSpeed, FieldCasual, FieldRegistered,
}

// Profile names
const (
	ProfileAuto  = "auto"
	ProfileX     = "x"
	ProfileY     = "y"
	ProfilePlain = "plain"
)

// Profile maps logical fields to header names of one dataset variant.
type Profile struct {
	Name    string
	Columns map[Field]string
}

// suffixed builds the profile used by the merged day/hour exports, where
// every column except dteday and hr carries a suffix.
func suffixed(name, suffix string) Profile {
	cols := map[Field]string{
		FieldDate: "dteday",
		FieldHour: "hr",
	}
	for _, f := range []Field{FieldSeason, FieldWorkingDay, FieldCount, FieldWeather,
		FieldTemp, FieldHumidity, FieldWindSpeed, FieldCasual, FieldRegistered} {
		cols[f] = string(f) + suffix
	}
	return Profile{Name: name, Columns: cols}
}

var profiles = []Profile{
	suffixed(ProfileX, "_x"),
	suffixed(ProfileY, "_y"),
	{
		Name: ProfilePlain,
		Columns: map[Field]string{
			FieldDate:       "dteday",
			FieldSeason:     "season",
			FieldHour:       "hr",
			FieldWorkingDay: "workingday",
			FieldCount:      "cnt",
			FieldWeather:    "weathersit",
			FieldTemp:       "temp",
			FieldHumidity:   "hum",
			FieldWindSpeed:  "windspeed",
			FieldCasual:     "casual",
			FieldRegistered: "registered",
		},
	},
}

// LookupProfile returns the named profile.
func LookupProfile(name string) (Profile, error) {
	for _, p := range profiles {
		if p.Name == name {
			return p, nil
		}
	}
	return Profile{}, fmt.Errorf("unknown column profile %q", name)
}

// ValidProfile reports whether name is a known profile or auto.
func ValidProfile(name string) bool {
	if name == ProfileAuto {
		return true
	}
	_, err := LookupProfile(name)
	return err == nil
}

// missing returns the sorted header names of required fields absent from header.
func (p Profile) missing(header map[string]int) []string {
	var out []string
	for _, f := range requiredFields {
		col := p.Columns[f]
		if _, ok := header[col]; !ok {
			out = append(out, col)
		}
	}
	sort.Strings(out)
	return out
}

// resolveProfile picks the profile for header. For auto it takes the first
// complete profile; when none is complete it reports the closest one.
func resolveProfile(name string, header map[string]int) (Profile, []string, error) {
	if name != "" && name != ProfileAuto {
		p, err := LookupProfile(name)
		if err != nil {
			return Profile{}, nil, err
		}
		return p, p.missing(header), nil
	}

	best := profiles[0]
	bestMissing := best.missing(header)
	for _, p := range profiles {
		m := p.missing(header)
		if len(m) == 0 {
			return p, nil, nil
		}
		if len(m) < len(bestMissing) {
			best, bestMissing = p, m
		}
	}
	return best, bestMissing, nil
}
