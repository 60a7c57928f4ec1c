package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/aniket-work/autonomous-agri-nexus/internal/config"
	"github.com/aniket-work/autonomous-agri-nexus/internal/crops"
	"github.com/aniket-work/autonomous-agri-nexus/internal/logging"
)

type Dependencies struct {
	Cycles   CycleRunner
	Crops    *crops.Table
	Logger   *zap.Logger
	Gatherer prometheus.Gatherer
}

func NewRouter(cfg config.Config, deps Dependencies) http.Handler {
	logger := logging.OrNop(deps.Logger)
	h := NewHandler(deps.Cycles, deps.Crops, logger)

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger(logger.Named("http")))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/healthz", h.Healthz)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1", func(v1 chi.Router) {
		v1.Get("/crops", h.ListCrops)
		v1.Post("/cycles", h.RunCycle)
		v1.Post("/cycles/stream", h.StreamCycle)
	})

	return r
}
