package models

import "github.com/bbernstein/waterlab/backend-go/internal/normalize"

// Provenance labels surfaced to API consumers.
const (
	SourceDefault  = "default"
	SourceFOEN     = "foen"
	SourceSocrata  = "opendata.bs.ch"
	SourceSnapshot = "local-snapshot"
)

// StationSummary is one entry of the station picker.
type StationSummary struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Source string `json:"source"`
}

type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// StationInfo describes the physical station a payload belongs to.
type StationInfo struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	WaterBody   *string      `json:"waterBody"`
	Canton      *string      `json:"canton"`
	Coordinates *Coordinates `json:"coordinates"`
}

// StationData is what a single provider produces before it is tagged.
type StationData struct {
	Station      StationInfo      `json:"station"`
	Measurements []Measurement    `json:"measurements"`
	Raw          normalize.Fields `json:"raw,omitempty"`
}

// HasMeasurements reports whether d carries at least one usable reading.
func (d *StationData) HasMeasurements() bool {
	return d != nil && len(d.Measurements) > 0
}

// StationDataResponse is a StationData tagged with the provider that supplied it.
type StationDataResponse struct {
	StationData
	Source string `json:"source,omitempty"`
}

// WithSource tags a payload with its provenance.
func WithSource(data *StationData, source string) *StationDataResponse {
	if data == nil {
		return nil
	}
	return &StationDataResponse{StationData: *data, Source: source}
}

// StringPtr returns nil for an empty string so optional fields serialize as null.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
