package main

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/bbernstein/waterlab/backend-go/internal/api"
	"github.com/bbernstein/waterlab/backend-go/internal/app"
	"github.com/bbernstein/waterlab/backend-go/internal/config"
	"github.com/bbernstein/waterlab/backend-go/internal/metrics"
	"github.com/rs/zerolog/log"
)

var (
	lambdaStart = lambda.Start
	handler     *api.LambdaHandler
	setupOnce   sync.Once
	initHandler = defaultInitHandler
)

func defaultInitHandler(ctx context.Context) (*api.LambdaHandler, error) {
	cfg := config.LoadFromEnv()
	cfg.InitializeLogging()

	a, err := app.New(ctx, cfg, config.GetCacheConfig(), app.Dependencies{
		Metrics: metrics.NewMetrics(),
	})
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return api.NewLambdaHandler(a.Router), nil
}

func handleRequest(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if handler == nil {
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusInternalServerError,
			Headers:    map[string]string{"Content-Type": "application/json"},
			Body:       `{"error":"Handler not initialized"}`,
		}, fmt.Errorf("handler not initialized")
	}
	return handler.HandleRequest(ctx, event)
}

func InitializeService() error {
	var initError error
	setupOnce.Do(func() {
		log.Debug().Msg("Initializing WaterLab service...")
		var err error
		handler, err = initHandler(context.Background())
		if err != nil {
			initError = fmt.Errorf("failed to initialize handler: %w", err)
			log.Error().Err(err).Msg("Failed to initialize handler")
			return
		}
		log.Debug().Msg("WaterLab service initialized successfully")
	})
	return initError
}

func main() {
	if err := InitializeService(); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize service")
	}
	lambdaStart(handleRequest)
}
