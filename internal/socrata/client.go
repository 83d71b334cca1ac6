// Package socrata reads live station measurements from Socrata/Opendatasoft record endpoints.
package socrata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bbernstein/waterlab/backend-go/internal/cache"
	"github.com/bbernstein/waterlab/backend-go/internal/config"
	"github.com/bbernstein/waterlab/backend-go/internal/metrics"
	"github.com/bbernstein/waterlab/backend-go/internal/models"
	"github.com/bbernstein/waterlab/backend-go/internal/normalize"
	"github.com/bbernstein/waterlab/backend-go/pkg/http/client"
	"github.com/rs/zerolog/log"
)

const UserAgent = "WaterLab Demo / ntsuisse (contact: demo@example.com)"

type Client struct {
	httpClient client.Interface
	sources    []config.SocrataSource
	byID       map[string]config.SocrataSource
	cache      *cache.TTLCache[*models.StationData]
	metrics    *metrics.Metrics
}

// NewHTTPClient returns an HTTP client that sends the headers Socrata endpoints expect.
func NewHTTPClient(timeout time.Duration) *client.Client {
	return client.New(client.Options{
		Timeout:   timeout,
		UserAgent: UserAgent,
		Accept:    "application/json",
	})
}

// NewPayloadCache creates the per-station payload cache.
func NewPayloadCache(cfg *config.CacheConfig, opts ...cache.Option[*models.StationData]) (*cache.TTLCache[*models.StationData], error) {
	return cache.NewTTLCache[*models.StationData]("socrata", cfg.LRUSize, cfg.GetSocrataTTL(), opts...)
}

func NewClient(httpClient client.Interface, sources []config.SocrataSource, payloadCache *cache.TTLCache[*models.StationData], m *metrics.Metrics) *Client {
	byID := make(map[string]config.SocrataSource, len(sources))
	for _, source := range sources {
		byID[source.StationID] = source
	}
	return &Client{
		httpClient: httpClient,
		sources:    sources,
		byID:       byID,
		cache:      payloadCache,
		metrics:    m,
	}
}

// Sources returns the configured datasets in configuration order.
func (c *Client) Sources() []config.SocrataSource {
	return c.sources
}

// StationData returns the latest measurements for stationID, or nil without any request
// when the station has no configured dataset.
func (c *Client) StationData(ctx context.Context, stationID string) (*models.StationData, error) {
	source, ok := c.byID[stationID]
	if !ok {
		return nil, nil
	}

	return c.cache.GetOrLoad(ctx, stationID, func(ctx context.Context) (*models.StationData, error) {
		return c.fetch(ctx, source)
	})
}

type recordEnvelope struct {
	Record *struct {
		Fields normalize.Fields `json:"fields"`
	} `json:"record"`
}

func (c *Client) fetch(ctx context.Context, source config.SocrataSource) (*models.StationData, error) {
	start := time.Now()
	resp, err := c.httpClient.Get(ctx, source.URL)
	c.metrics.ObserveUpstream("socrata", time.Since(start).Seconds())
	if err != nil {
		return nil, NewFetchError(source.StationID, "request failed", err)
	}
	if !resp.OK() {
		fetchErr := NewFetchError(source.StationID, fmt.Sprintf("endpoint responded with %d", resp.StatusCode), nil)
		fetchErr.StatusCode = resp.StatusCode
		return nil, fetchErr
	}

	records, err := decodeRecords(resp.Body)
	if err != nil {
		return nil, NewFetchError(source.StationID, "unexpected JSON format", err)
	}
	if len(records) == 0 {
		return nil, NewFetchError(source.StationID, "dataset returned no records", nil)
	}

	latest, ts, err := SelectLatest(records)
	if err != nil {
		return nil, fmt.Errorf("station %s: %w", source.StationID, err)
	}

	log.Debug().
		Str("station_id", source.StationID).
		Int("records", len(records)).
		Time("latest", ts).
		Msg("Fetched Socrata dataset")

	return buildStationData(source, latest, ts), nil
}

func decodeRecords(body []byte) ([]normalize.Fields, error) {
	var envelope struct {
		Records json.RawMessage `json:"records"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, err
	}
	raw := bytes.TrimSpace(envelope.Records)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, fmt.Errorf("records is not an array")
	}

	var items []recordEnvelope
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}

	records := make([]normalize.Fields, 0, len(items))
	for _, item := range items {
		if item.Record == nil {
			records = append(records, normalize.Fields{})
			continue
		}
		records = append(records, item.Record.Fields)
	}
	return records, nil
}

// SelectLatest returns the record with the greatest parsable timestamp. Records whose
// timestamp does not parse are skipped; ties keep the earlier record.
func SelectLatest(records []normalize.Fields) (normalize.Fields, time.Time, error) {
	var (
		latest   normalize.Fields
		latestTS time.Time
		found    bool
	)

	for _, fields := range records {
		raw, ok := normalize.LookupText(fields, normalize.FieldTimestamp)
		if !ok {
			continue
		}
		ts, ok := normalize.ParseTimestamp(raw)
		if !ok {
			continue
		}
		if !found || ts.After(latestTS) {
			latest, latestTS, found = fields, ts, true
		}
	}

	if !found {
		return nil, time.Time{}, ErrNoParsableTimestamp
	}
	return latest, latestTS, nil
}

func buildStationData(source config.SocrataSource, fields normalize.Fields, ts time.Time) *models.StationData {
	timestamp := normalize.FormatTimestamp(ts)

	return &models.StationData{
		Station: models.StationInfo{
			ID:        source.StationID,
			Name:      textOr(fields, normalize.FieldStation, source.Name),
			WaterBody: models.StringPtr(textOr(fields, normalize.FieldWaterBody, source.WaterBody)),
			Canton:    models.StringPtr(textOr(fields, normalize.FieldCanton, source.Canton)),
		},
		Measurements: models.BuildMeasurements(source.StationID, models.Readings{
			Temperature: normalize.LookupNumber(fields, normalize.FieldTemperature),
			Discharge:   normalize.LookupNumber(fields, normalize.FieldDischarge),
			WaterLevel:  normalize.LookupNumber(fields, normalize.FieldWaterLevel),
			Timestamp:   &timestamp,
		}),
		Raw: fields,
	}
}

func textOr(fields normalize.Fields, name normalize.Canonical, fallback string) string {
	if value, ok := normalize.LookupName(fields, name); ok {
		return value
	}
	return fallback
}
