// Package snapshot loads the static CSV dataset used when live sources have nothing to offer.
package snapshot

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bbernstein/waterlab/backend-go/internal/cache"
	"github.com/bbernstein/waterlab/backend-go/internal/normalize"
	"github.com/rs/zerolog/log"
)

const (
	ColumnStationID   = "station_id"
	ColumnStationName = "station_name"
	ColumnTemperature = "temperature_c"
	ColumnDischarge   = "discharge_m3s"
	ColumnWaterLevel  = "water_level_cm"
	ColumnTimestamp   = "timestamp"
	ColumnWaterBody   = "water_body"
	ColumnCanton      = "canton"

	cacheKey = "snapshot"
)

var numericColumns = []string{ColumnTemperature, ColumnDischarge, ColumnWaterLevel}

// Record is one snapshot row. Raw keeps every column in header order, with the numeric
// columns replaced by their parsed value.
type Record struct {
	StationID   string
	StationName string
	WaterBody   string
	Canton      string
	Timestamp   string
	Temperature *float64
	Discharge   *float64
	WaterLevel  *float64
	Raw         normalize.Fields
}

// Loader reads the snapshot at most once per freshness window.
type Loader struct {
	source Source
	cache  *cache.TTLCache[[]Record]
}

// NewLoader creates a loader over source. An empty dataset is never served from cache.
func NewLoader(source Source, ttl time.Duration, opts ...cache.Option[[]Record]) (*Loader, error) {
	opts = append(opts, cache.WithColdCheck(func(records []Record) bool {
		return len(records) == 0
	}))
	c, err := cache.NewTTLCache[[]Record]("snapshot", 1, ttl, opts...)
	if err != nil {
		return nil, err
	}
	return &Loader{source: source, cache: c}, nil
}

// Load returns every snapshot row. Read and parse failures are logged and yield an empty slice.
func (l *Loader) Load(ctx context.Context) []Record {
	records, _ := l.cache.GetOrLoad(ctx, cacheKey, func(ctx context.Context) ([]Record, error) {
		return l.read(ctx), nil
	})
	return records
}

// Find returns the first row for stationID.
func (l *Loader) Find(ctx context.Context, stationID string) (*Record, bool) {
	for _, record := range l.Load(ctx) {
		if record.StationID == stationID {
			r := record
			return &r, true
		}
	}
	return nil, false
}

func (l *Loader) read(ctx context.Context) []Record {
	body, err := l.source.Open(ctx)
	if errors.Is(err, ErrSourceMissing) {
		log.Warn().Str("source", l.source.String()).Msg("Local water dataset not found")
		return []Record{}
	}
	if err != nil {
		log.Warn().Err(err).Str("source", l.source.String()).Msg("Failed to load local water dataset")
		return []Record{}
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing snapshot body")
		}
	}(body)

	records, err := Parse(body)
	if err != nil {
		log.Warn().Err(err).Str("source", l.source.String()).Msg("Failed to parse local water dataset")
		return []Record{}
	}

	log.Debug().Int("records", len(records)).Str("source", l.source.String()).Msg("Loaded local water dataset")
	return records
}

// Parse reads a CSV document whose first row is the header. Blank lines are skipped,
// every value is trimmed, and short rows leave their missing columns empty.
func Parse(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return []Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	records := []Record{}
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row: %w", err)
		}
		if isBlank(row) {
			continue
		}
		records = append(records, newRecord(header, row))
	}
	return records, nil
}

func newRecord(header, row []string) Record {
	raw := make(normalize.Fields, 0, len(header))
	for i, column := range header {
		value := ""
		if i < len(row) {
			value = strings.TrimSpace(row[i])
		}
		raw = append(raw, normalize.Field{Key: column, Value: value})
	}

	record := Record{
		StationID:   raw.String(ColumnStationID),
		StationName: raw.String(ColumnStationName),
		WaterBody:   raw.String(ColumnWaterBody),
		Canton:      raw.String(ColumnCanton),
		Timestamp:   raw.String(ColumnTimestamp),
		Temperature: normalize.ToNumber(raw.String(ColumnTemperature)),
		Discharge:   normalize.ToNumber(raw.String(ColumnDischarge)),
		WaterLevel:  normalize.ToNumber(raw.String(ColumnWaterLevel)),
	}

	for _, column := range numericColumns {
		if _, ok := raw.Get(column); ok {
			raw.Set(column, normalize.ToNumber(raw.String(column)))
		}
	}
	record.Raw = raw
	return record
}

func isBlank(row []string) bool {
	for _, value := range row {
		if strings.TrimSpace(value) != "" {
			return false
		}
	}
	return true
}
