package normalize

import "strings"

// Canonical names a field of the unified measurement schema.
type Canonical string

const (
	FieldTimestamp   Canonical = "timestamp"
	FieldTemperature Canonical = "temperature"
	FieldDischarge   Canonical = "discharge"
	FieldWaterLevel  Canonical = "water_level"
	FieldWaterBody   Canonical = "water_body"
	FieldStation     Canonical = "station"
	FieldCanton      Canonical = "canton"
)

// Synonyms lists the lowercase key fragments accepted for each canonical field,
// covering the German and English column names used by Swiss open-data portals.
var Synonyms = map[Canonical][]string{
	FieldTimestamp:   {"zeit", "timestamp", "datum", "time"},
	FieldTemperature: {"temperatur", "temperature", "temp"},
	FieldDischarge:   {"abfluss", "durchfluss", "discharge", "fluss"},
	FieldWaterLevel:  {"wasserstand", "pegel", "level"},
	FieldWaterBody:   {"gewässer", "gewaesser", "fluss", "river"},
	FieldStation:     {"station", "standort", "messstelle", "site"},
	FieldCanton:      {"kanton", "canton"},
}

// Lookup resolves a canonical field against a record using its synonym list.
func Lookup(fields Fields, name Canonical) (any, bool) {
	keywords, ok := Synonyms[name]
	if !ok {
		return nil, false
	}
	return FieldByKeywords(fields, keywords...)
}

// LookupText is Lookup narrowed to non-blank scalar values.
func LookupText(fields Fields, name Canonical) (string, bool) {
	v, ok := Lookup(fields, name)
	if !ok {
		return "", false
	}
	return NonEmptyText(v)
}

// LookupNumber is Lookup followed by ValueToNumber.
func LookupNumber(fields Fields, name Canonical) *float64 {
	v, ok := Lookup(fields, name)
	if !ok {
		return nil
	}
	return ValueToNumber(v)
}

// LookupName returns the first synonym match holding a non-blank string. Only non-string
// values are skipped: a string "Abfluss" column still matches the "fluss" synonym.
func LookupName(fields Fields, name Canonical) (string, bool) {
	keywords, ok := Synonyms[name]
	if !ok {
		return "", false
	}
	for _, field := range fields {
		s, isString := field.Value.(string)
		if !isString || strings.TrimSpace(s) == "" {
			continue
		}
		if keyMatches(field.Key, keywords) {
			return s, true
		}
	}
	return "", false
}
