package models

import "context"

type StationResolver interface {
	Resolve(ctx context.Context, stationID string) (*StationDataResponse, error)
	ListStations(ctx context.Context) ([]StationSummary, error)
}

type NewsProvider interface {
	Latest(ctx context.Context) ([]WaterNewsArticle, error)
}

type ItemStore interface {
	List(ctx context.Context) ([]Item, error)
	Get(ctx context.Context, id int64) (*Item, error)
	Create(ctx context.Context, name, description string) (*Item, error)
	Update(ctx context.Context, id int64, name, description string) (*Item, error)
	Delete(ctx context.Context, id int64) error
}
