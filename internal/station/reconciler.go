// Package station merges live and snapshot sources into station payloads and the station list.
package station

import (
	"context"
	"errors"

	"github.com/bbernstein/waterlab/backend-go/internal/config"
	"github.com/bbernstein/waterlab/backend-go/internal/metrics"
	"github.com/bbernstein/waterlab/backend-go/internal/models"
	"github.com/bbernstein/waterlab/backend-go/internal/snapshot"
	"github.com/rs/zerolog/log"
)

var ErrStationNotFound = errors.New("station not found in any data source")

type LiveSource interface {
	StationData(ctx context.Context, stationID string) (*models.StationData, error)
	Sources() []config.SocrataSource
}

type SnapshotSource interface {
	Load(ctx context.Context) []snapshot.Record
	Find(ctx context.Context, stationID string) (*snapshot.Record, bool)
}

type Reconciler struct {
	defaults  []config.StationDefault
	live      LiveSource
	snapshot  SnapshotSource
	providers []Provider
	metrics   *metrics.Metrics
}

var _ models.StationResolver = (*Reconciler)(nil)

// NewReconciler wires the providers in the given source order. An empty order uses the
// default chain: foen, opendata.bs.ch, local-snapshot.
func NewReconciler(defaults []config.StationDefault, live LiveSource, snap SnapshotSource, order []string, m *metrics.Metrics) *Reconciler {
	r := &Reconciler{
		defaults: defaults,
		live:     live,
		snapshot: snap,
		metrics:  m,
	}
	r.providers = orderProviders(r.allProviders(), order)
	return r
}

func (r *Reconciler) allProviders() []Provider {
	return []Provider{
		{Source: models.SourceFOEN, Fetch: fetchFOEN},
		{Source: models.SourceSocrata, Fetch: r.live.StationData},
		{Source: models.SourceSnapshot, Fetch: r.fetchSnapshot, Terminal: true},
	}
}

// fetchFOEN is the federal hydrology integration, currently switched off.
func fetchFOEN(_ context.Context, _ string) (*models.StationData, error) {
	return nil, nil
}

func (r *Reconciler) fetchSnapshot(ctx context.Context, stationID string) (*models.StationData, error) {
	record, ok := r.snapshot.Find(ctx, stationID)
	if !ok {
		return nil, nil
	}
	return record.StationData(), nil
}

func orderProviders(all []Provider, order []string) []Provider {
	if len(order) == 0 {
		return all
	}

	bySource := make(map[string]Provider, len(all))
	for _, p := range all {
		bySource[p.Source] = p
	}

	ordered := make([]Provider, 0, len(order))
	seen := make(map[string]bool, len(order))
	for _, source := range order {
		p, ok := bySource[source]
		if !ok {
			log.Warn().Str("source", source).Msg("Ignoring unknown station source in order")
			continue
		}
		if seen[source] {
			continue
		}
		seen[source] = true
		ordered = append(ordered, p)
	}

	if len(ordered) == 0 {
		log.Warn().Strs("order", order).Msg("No known station sources in order, using defaults")
		return all
	}
	return ordered
}

// Sources returns the provider labels in the order they are consulted.
func (r *Reconciler) Sources() []string {
	sources := make([]string, len(r.providers))
	for i, p := range r.providers {
		sources[i] = p.Source
	}
	return sources
}

// Resolve returns the first non-empty payload for stationID, or ErrStationNotFound.
func (r *Reconciler) Resolve(ctx context.Context, stationID string) (*models.StationDataResponse, error) {
	if resp, ok := FirstNonEmpty(ctx, r.providers, stationID, r.metrics); ok {
		return resp, nil
	}
	log.Debug().Str("station_id", stationID).Msg("Station not found in any data source")
	return nil, ErrStationNotFound
}
