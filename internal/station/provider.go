package station

import (
	"context"

	"github.com/bbernstein/waterlab/backend-go/internal/metrics"
	"github.com/bbernstein/waterlab/backend-go/internal/models"
	"github.com/rs/zerolog/log"
)

type Outcome int

const (
	OutcomeEmpty Outcome = iota
	OutcomeFound
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFound:
		return "found"
	case OutcomeFailed:
		return "failed"
	default:
		return "empty"
	}
}

// FetchFunc returns a provider's payload for a station, or nil when it has none.
type FetchFunc func(ctx context.Context, stationID string) (*models.StationData, error)

// Provider is one data source in the fallback chain.
type Provider struct {
	Source string
	Fetch  FetchFunc
	// Terminal providers answer with any matched payload, even one without measurements.
	Terminal bool
}

// Result is the outcome of asking a single provider.
type Result struct {
	Source  string
	Outcome Outcome
	Data    *models.StationData
	Err     error
}

func (p Provider) fetch(ctx context.Context, stationID string) Result {
	data, err := p.Fetch(ctx, stationID)
	switch {
	case err != nil:
		return Result{Source: p.Source, Outcome: OutcomeFailed, Err: err}
	case data == nil:
		return Result{Source: p.Source, Outcome: OutcomeEmpty}
	case data.HasMeasurements() || p.Terminal:
		return Result{Source: p.Source, Outcome: OutcomeFound, Data: data}
	default:
		return Result{Source: p.Source, Outcome: OutcomeEmpty, Data: data}
	}
}

// FirstNonEmpty asks each provider in order and returns the first payload found, tagged
// with that provider's source. A failing provider is logged and treated as empty.
func FirstNonEmpty(ctx context.Context, providers []Provider, stationID string, m *metrics.Metrics) (*models.StationDataResponse, bool) {
	for _, provider := range providers {
		result := provider.fetch(ctx, stationID)
		m.ProviderOutcome(result.Source, result.Outcome.String())

		switch result.Outcome {
		case OutcomeFailed:
			log.Warn().
				Err(result.Err).
				Str("station_id", stationID).
				Str("source", result.Source).
				Msg("Station source unavailable")
		case OutcomeFound:
			log.Info().
				Str("station_id", stationID).
				Str("source", result.Source).
				Msg("Responding with station data")
			return models.WithSource(result.Data, result.Source), true
		}
	}
	return nil, false
}
