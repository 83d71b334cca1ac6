package station

import (
	"context"

	"github.com/bbernstein/waterlab/backend-go/internal/models"
)

// stationList is an insertion-ordered set of summaries keyed by id.
type stationList struct {
	entries []models.StationSummary
	index   map[string]int
}

func newStationList(capacity int) *stationList {
	return &stationList{
		entries: make([]models.StationSummary, 0, capacity),
		index:   make(map[string]int, capacity),
	}
}

func (l *stationList) get(id string) (models.StationSummary, bool) {
	i, ok := l.index[id]
	if !ok {
		return models.StationSummary{}, false
	}
	return l.entries[i], true
}

// put replaces an existing entry in place or appends a new one.
func (l *stationList) put(s models.StationSummary) {
	if i, ok := l.index[s.ID]; ok {
		l.entries[i] = s
		return
	}
	l.index[s.ID] = len(l.entries)
	l.entries = append(l.entries, s)
}

// ListStations merges the default stations, the live datasets and the snapshot rows.
// Live datasets replace defaults with the same id; snapshot rows only add unknown ids.
func (r *Reconciler) ListStations(ctx context.Context) ([]models.StationSummary, error) {
	list := newStationList(len(r.defaults))

	for _, d := range r.defaults {
		list.put(models.StationSummary{ID: d.ID, Name: d.Name, Source: models.SourceDefault})
	}

	for _, source := range r.live.Sources() {
		list.put(models.StationSummary{ID: source.StationID, Name: source.Name, Source: models.SourceSocrata})
	}

	for _, record := range r.snapshot.Load(ctx) {
		if record.StationID == "" {
			continue
		}
		if _, known := list.get(record.StationID); known {
			continue
		}
		name := record.StationName
		if name == "" {
			name = record.StationID
		}
		list.put(models.StationSummary{ID: record.StationID, Name: name, Source: models.SourceSnapshot})
	}

	return list.entries, nil
}
