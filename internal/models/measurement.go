package models

type MeasurementKind struct {
	Suffix    string
	Label     string
	ShortName string
	Unit      string
}

var (
	KindTemperature = MeasurementKind{Suffix: "temperature", Label: "Water Temperature", ShortName: "temperature", Unit: "°C"}
	KindDischarge   = MeasurementKind{Suffix: "discharge", Label: "Discharge", ShortName: "discharge", Unit: "m³/s"}
	KindWaterLevel  = MeasurementKind{Suffix: "water-level", Label: "Water Level", ShortName: "water_level", Unit: "cm"}
)

// Measurement is one timestamped, unit-tagged reading.
type Measurement struct {
	ID        string   `json:"id"`
	Label     string   `json:"label"`
	ShortName string   `json:"shortName"`
	Unit      string   `json:"unit"`
	Value     *float64 `json:"value"`
	Timestamp *string  `json:"timestamp"`
}

// Readings are the raw values a provider extracted for a station.
type Readings struct {
	Temperature *float64
	Discharge   *float64
	WaterLevel  *float64
	Timestamp   *string
}

// BuildMeasurements turns readings into measurements, dropping every reading without a value.
func BuildMeasurements(stationID string, r Readings) []Measurement {
	candidates := []struct {
		kind  MeasurementKind
		value *float64
	}{
		{KindTemperature, r.Temperature},
		{KindDischarge, r.Discharge},
		{KindWaterLevel, r.WaterLevel},
	}

	measurements := make([]Measurement, 0, len(candidates))
	for _, c := range candidates {
		if c.value == nil {
			continue
		}
		measurements = append(measurements, Measurement{
			ID:        stationID + "-" + c.kind.Suffix,
			Label:     c.kind.Label,
			ShortName: c.kind.ShortName,
			Unit:      c.kind.Unit,
			Value:     c.value,
			Timestamp: r.Timestamp,
		})
	}
	return measurements
}
