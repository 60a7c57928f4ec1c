package app

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/aniket-work/autonomous-agri-nexus/internal/anomaly"
	"github.com/aniket-work/autonomous-agri-nexus/internal/brave"
	"github.com/aniket-work/autonomous-agri-nexus/internal/config"
	"github.com/aniket-work/autonomous-agri-nexus/internal/crops"
	"github.com/aniket-work/autonomous-agri-nexus/internal/db"
	"github.com/aniket-work/autonomous-agri-nexus/internal/knowledge"
	"github.com/aniket-work/autonomous-agri-nexus/internal/logging"
	"github.com/aniket-work/autonomous-agri-nexus/internal/metrics"
	"github.com/aniket-work/autonomous-agri-nexus/internal/research"
	"github.com/aniket-work/autonomous-agri-nexus/internal/sensors"
)

// App holds the wired pipeline. Close releases the knowledge database, if one was opened.
type App struct {
	Config       config.Config
	Crops        *crops.Table
	Orchestrator research.Orchestrator
	Metrics      *metrics.Metrics

	logger   *zap.Logger
	database *sql.DB
}

// Build wires crop profiles, simulated sensors, the search provider chain and the
// orchestrator from cfg. A nil registerer disables metrics.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger, reg prometheus.Registerer) (*App, error) {
	logger = logging.OrNop(logger)

	table, err := loadCrops(cfg)
	if err != nil {
		return nil, err
	}

	boundary, err := anomaly.ParseBoundaryPolicy(cfg.BoundaryPolicy)
	if err != nil {
		return nil, err
	}

	var m *metrics.Metrics
	if reg != nil {
		m = metrics.New(reg)
	}

	a := &App{Config: cfg, Crops: table, Metrics: m, logger: logger}

	provider, err := a.buildProvider(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.Orchestrator = research.NewOrchestrator(research.Dependencies{
		Table:       table,
		Sources:     simulatedSources(table, cfg.SensorSeed),
		Detector:    anomaly.NewDetector(boundary),
		Planner:     research.NewPlanner(nil),
		Provider:    provider,
		Synthesizer: research.NewSynthesizer(nil),
		Logger:      logger.Named("cycle"),
		Metrics:     m,
	}, research.CycleConfig{
		ZoneCount:              cfg.ZoneCount,
		MaxResultsPerQuery:     cfg.MaxResultsPerQuery,
		QueryTimeout:           cfg.QueryTimeout,
		Concurrency:            cfg.SearchConcurrency,
		CycleTimeout:           cfg.CycleTimeout,
		DegradeOnSearchFailure: cfg.DegradeOnSearchFailure,
	})

	logger.Info("pipeline ready",
		zap.String("search_backend", string(cfg.SearchBackend)),
		zap.String("boundary_policy", string(boundary)),
		zap.String("default_crop", table.Fallback()),
		zap.Strings("crops", table.Crops()),
	)
	return a, nil
}

func (a *App) Close() error {
	if a == nil || a.database == nil {
		return nil
	}
	err := a.database.Close()
	a.database = nil
	return err
}

func loadCrops(cfg config.Config) (*crops.Table, error) {
	table, err := crops.LoadTable(cfg.CropProfilesFile)
	if err != nil {
		return nil, err
	}
	fallback := crops.NormalizeCrop(cfg.DefaultCrop)
	if fallback == "" || fallback == table.Fallback() {
		return table, nil
	}
	table, err = crops.NewTable(table.Profiles(), fallback)
	if err != nil {
		return nil, fmt.Errorf("default crop: %w", err)
	}
	return table, nil
}

// simulatedSources keeps one simulator per crop so successive cycles advance the same stream.
func simulatedSources(table *crops.Table, seed uint64) research.SourceFactory {
	simulators := make(map[string]*sensors.Simulator)
	for _, profile := range table.Profiles() {
		simulators[profile.Crop] = sensors.NewSimulator(profile, seed)
	}
	return func(profile crops.Profile) sensors.Source {
		if simulator, ok := simulators[profile.Crop]; ok {
			return simulator
		}
		return sensors.NewSimulator(profile, seed)
	}
}

func (a *App) buildProvider(ctx context.Context) (research.SearchProvider, error) {
	var fixture research.SearchProvider
	if a.Config.UsesFixtureIndex() {
		var err error
		if fixture, err = a.fixtureProvider(ctx); err != nil {
			return nil, err
		}
	}

	switch a.Config.SearchBackend {
	case config.SearchBackendFixture:
		return fixture, nil
	case config.SearchBackendBrave:
		return a.braveProvider(), nil
	case config.SearchBackendBraveWithFallback:
		return research.NewFallbackProvider(a.braveProvider(), fixture, a.logger.Named("search"), a.Metrics), nil
	default:
		return nil, fmt.Errorf("unknown search backend %q", a.Config.SearchBackend)
	}
}

func (a *App) braveProvider() research.SearchProvider {
	client := brave.NewClient(a.Config, &http.Client{Timeout: a.Config.QueryTimeout})
	return research.NewRateLimitedProvider(research.NewBraveProvider(client), a.Config.MinSearchInterval)
}

func (a *App) fixtureProvider(ctx context.Context) (research.SearchProvider, error) {
	database, err := db.Open(ctx, a.Config)
	if err != nil {
		return nil, fmt.Errorf("open knowledge index: %w", err)
	}
	a.database = database

	index := knowledge.NewIndex(database)
	if err := index.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrate knowledge index: %w", err)
	}
	if err := index.SeedDefaults(ctx); err != nil {
		return nil, fmt.Errorf("seed knowledge index: %w", err)
	}
	return research.NewFixtureProvider(index), nil
}
