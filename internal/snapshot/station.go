package snapshot

import (
	"github.com/bbernstein/waterlab/backend-go/internal/models"
)

// StationData converts a row into a provider payload. The timestamp is passed through as written.
func (r *Record) StationData() *models.StationData {
	name := r.StationName
	if name == "" {
		name = r.StationID
	}

	return &models.StationData{
		Station: models.StationInfo{
			ID:        r.StationID,
			Name:      name,
			WaterBody: models.StringPtr(r.WaterBody),
			Canton:    models.StringPtr(r.Canton),
		},
		Measurements: models.BuildMeasurements(r.StationID, models.Readings{
			Temperature: r.Temperature,
			Discharge:   r.Discharge,
			WaterLevel:  r.WaterLevel,
			Timestamp:   models.StringPtr(r.Timestamp),
		}),
		Raw: r.Raw,
	}
}
