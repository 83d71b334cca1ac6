// Package app assembles the service from configuration; both the HTTP server and the
// Lambda entry point start from here.
package app

import (
	"context"
	"database/sql"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/bbernstein/waterlab/backend-go/internal/api"
	"github.com/bbernstein/waterlab/backend-go/internal/cache"
	"github.com/bbernstein/waterlab/backend-go/internal/config"
	"github.com/bbernstein/waterlab/backend-go/internal/db"
	"github.com/bbernstein/waterlab/backend-go/internal/items"
	"github.com/bbernstein/waterlab/backend-go/internal/metrics"
	"github.com/bbernstein/waterlab/backend-go/internal/models"
	"github.com/bbernstein/waterlab/backend-go/internal/news"
	"github.com/bbernstein/waterlab/backend-go/internal/snapshot"
	"github.com/bbernstein/waterlab/backend-go/internal/socrata"
	"github.com/bbernstein/waterlab/backend-go/internal/station"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// App is a fully wired service.
type App struct {
	Router     *gin.Engine
	Reconciler *station.Reconciler
	db         *sql.DB
}

// Dependencies lets callers and tests replace the AWS clients; nil fields are built from
// the default AWS configuration when the feature that needs them is enabled.
type Dependencies struct {
	Metrics      *metrics.Metrics
	S3Client     snapshot.S3Client
	DynamoClient cache.DynamoDBClient
	ServeMetrics bool
}

func New(ctx context.Context, cfg *config.Config, cacheCfg *config.CacheConfig, deps Dependencies) (*App, error) {
	sources, err := config.LoadSources(cfg.SourcesFile)
	if err != nil {
		return nil, fmt.Errorf("loading sources: %w", err)
	}

	snapshotSource, err := newSnapshotSource(ctx, cfg, deps.S3Client)
	if err != nil {
		return nil, err
	}
	loader, err := snapshot.NewLoader(snapshotSource, cacheCfg.GetSnapshotTTL(), cache.WithMetrics[[]snapshot.Record](deps.Metrics))
	if err != nil {
		return nil, fmt.Errorf("creating snapshot loader: %w", err)
	}

	socrataOpts := []cache.Option[*models.StationData]{cache.WithMetrics[*models.StationData](deps.Metrics)}
	if cacheCfg.EnableDynamoCache {
		dynamoClient := deps.DynamoClient
		if dynamoClient == nil {
			if dynamoClient, err = cache.NewDynamoClient(ctx); err != nil {
				return nil, fmt.Errorf("creating dynamodb client: %w", err)
			}
		}
		store := cache.NewDynamoPayloadStore[*models.StationData](dynamoClient, cacheCfg.DynamoTableName, "socrata", nil)
		socrataOpts = append(socrataOpts, cache.WithSecondLevel[*models.StationData](store))
		log.Info().Str("table", cacheCfg.DynamoTableName).Msg("DynamoDB second-level cache enabled")
	}
	payloadCache, err := socrata.NewPayloadCache(cacheCfg, socrataOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating socrata cache: %w", err)
	}
	socrataClient := socrata.NewClient(socrata.NewHTTPClient(cfg.HTTPTimeout), sources.Socrata, payloadCache, deps.Metrics)

	aggregator, err := news.NewAggregator(news.NewHTTPClient(cfg.HTTPTimeout), sources.NewsFeeds, cacheCfg, deps.Metrics)
	if err != nil {
		return nil, fmt.Errorf("creating news aggregator: %w", err)
	}

	reconciler := station.NewReconciler(sources.DefaultStations, socrataClient, loader, cfg.SourceOrder, deps.Metrics)
	log.Info().Strs("order", reconciler.Sources()).Msg("Station sources configured")

	conn, err := db.Open(ctx, cfg.DBPath)
	if err != nil {
		return nil, err
	}

	handler := api.NewHandler(reconciler, aggregator, items.NewRepository(conn))
	routerOpts := api.RouterOptions{
		CORSOrigins: cfg.CORSOrigins,
		Metrics:     deps.Metrics,
	}
	if deps.ServeMetrics {
		routerOpts.MetricsHandler = api.DefaultMetricsHandler()
	}

	return &App{
		Router:     api.NewRouter(handler, routerOpts),
		Reconciler: reconciler,
		db:         conn,
	}, nil
}

func newSnapshotSource(ctx context.Context, cfg *config.Config, client snapshot.S3Client) (snapshot.Source, error) {
	if !cfg.UseS3Snapshot() {
		return snapshot.FileSource{Path: cfg.WaterDataPath}, nil
	}

	if client == nil {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("loading aws config: %w", err)
		}
		client = s3.NewFromConfig(awsCfg)
	}
	log.Info().Str("bucket", cfg.WaterDataS3Bucket).Str("key", cfg.WaterDataS3Key).Msg("Reading water snapshot from S3")
	return snapshot.S3Source{Client: client, Bucket: cfg.WaterDataS3Bucket, Key: cfg.WaterDataS3Key}, nil
}

func (a *App) Close() error {
	return db.Close(a.db)
}
