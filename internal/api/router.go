package api

import (
	"net/http"
	"time"

	"github.com/bbernstein/waterlab/backend-go/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterOptions struct {
	CORSOrigins []string
	Metrics     *metrics.Metrics
	// MetricsHandler serves /metrics when set.
	MetricsHandler http.Handler
}

// DefaultMetricsHandler exposes the default Prometheus registry.
func DefaultMetricsHandler() http.Handler {
	return promhttp.Handler()
}

// NewRouter wires every route onto a gin engine.
func NewRouter(h *Handler, opts RouterOptions) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(
		gin.Recovery(),
		requestID(),
		requestLogger(),
		requestMetrics(opts.Metrics),
		corsMiddleware(opts.CORSOrigins),
		errorHandlingMiddleware(),
	)

	router.GET("/healthz", h.Health)
	if opts.MetricsHandler != nil {
		router.GET("/metrics", gin.WrapH(opts.MetricsHandler))
	}

	api := router.Group("/api")
	{
		api.GET("/news", h.News)

		water := api.Group("/water")
		water.GET("/stations", h.ListStations)
		water.GET("/stations/:id", h.GetStation)

		data := api.Group("/data")
		data.GET("", h.ListItems)
		data.GET("/:id", h.GetItem)
		data.POST("", h.CreateItem)
		data.PUT("/:id", h.UpdateItem)
		data.DELETE("/:id", h.DeleteItem)
	}

	return router
}

func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
}
