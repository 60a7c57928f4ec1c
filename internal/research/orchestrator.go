package research

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aniket-work/autonomous-agri-nexus/internal/anomaly"
	"github.com/aniket-work/autonomous-agri-nexus/internal/crops"
	"github.com/aniket-work/autonomous-agri-nexus/internal/logging"
	"github.com/aniket-work/autonomous-agri-nexus/internal/metrics"
	"github.com/aniket-work/autonomous-agri-nexus/internal/sensors"
)

const (
	cycleOutcomeOK       = "ok"
	cycleOutcomeDegraded = "degraded"
	cycleOutcomeError    = "error"
	cycleOutcomeTimeout  = "timeout"
)

var ErrInvalidRequest = errors.New("invalid cycle request")

// SourceFactory returns the sensor source for a resolved crop profile.
type SourceFactory func(profile crops.Profile) sensors.Source

type Dependencies struct {
	Table       *crops.Table
	Sources     SourceFactory
	Detector    anomaly.Detector
	Planner     Planner
	Provider    SearchProvider
	Synthesizer Synthesizer
	Logger      *zap.Logger
	Metrics     *metrics.Metrics
}

type CycleRequest struct {
	CropType  string                `json:"cropType"`
	ZoneCount int                   `json:"zoneCount"`
	Readings  []sensors.ZoneReading `json:"readings"`
}

type ZoneReport struct {
	ZoneID    int                `json:"zoneId"`
	Status    anomaly.ZoneStatus `json:"status"`
	Anomalies []anomaly.Kind     `json:"anomalies"`
}

type CycleResult struct {
	ID            string                     `json:"id"`
	CropType      string                     `json:"cropType"`
	ProfileCrop   string                     `json:"profileCrop"`
	Readings      []sensors.ZoneReading      `json:"readings"`
	FieldAverages map[crops.Nutrient]float64 `json:"fieldAverages"`
	Zones         []ZoneReport               `json:"zones"`
	Anomalies     []anomaly.Label            `json:"anomalies"`
	Queries       []Query                    `json:"queries"`
	Findings      []Finding                  `json:"findings"`
	Outcomes      []QueryOutcome             `json:"outcomes"`
	Advisory      Advisory                   `json:"advisory"`
	Warnings      []string                   `json:"warnings"`
	StartedAt     time.Time                  `json:"startedAt"`
	Duration      time.Duration              `json:"-"`
	DurationMS    int64                      `json:"durationMs"`
}

type Orchestrator struct {
	table       *crops.Table
	sources     SourceFactory
	detector    anomaly.Detector
	planner     Planner
	executor    Executor
	synthesizer Synthesizer
	cfg         CycleConfig
	logger      *zap.Logger
	metrics     *metrics.Metrics
}

func NewOrchestrator(deps Dependencies, cfg CycleConfig) Orchestrator {
	table := deps.Table
	if table == nil {
		table = crops.DefaultTable()
	}
	synthesizer := deps.Synthesizer
	if synthesizer.Now == nil {
		synthesizer = NewSynthesizer(nil)
	}
	planner := deps.Planner
	if planner.rules == nil {
		planner = NewPlanner(nil)
	}
	cfg = ResolveCycleConfig(cfg)
	logger := logging.OrNop(deps.Logger)

	return Orchestrator{
		table:       table,
		sources:     deps.Sources,
		detector:    deps.Detector,
		planner:     planner,
		executor:    NewExecutor(deps.Provider, cfg.executorConfig(), logger, deps.Metrics),
		synthesizer: synthesizer,
		cfg:         cfg,
		logger:      logger,
		metrics:     deps.Metrics,
	}
}

// RunCycle executes sensing, detection, planning, research and synthesis once.
// Research is skipped when no anomaly is detected.
func (o Orchestrator) RunCycle(ctx context.Context, req CycleRequest, onProgress func(Progress)) (result CycleResult, err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	started := time.Now()
	result = CycleResult{
		ID:            uuid.NewString(),
		Readings:      []sensors.ZoneReading{},
		FieldAverages: map[crops.Nutrient]float64{},
		Zones:         []ZoneReport{},
		Anomalies:     []anomaly.Label{},
		Queries:       []Query{},
		Findings:      []Finding{},
		Outcomes:      []QueryOutcome{},
		Warnings:      []string{},
		StartedAt:     started.UTC(),
	}

	runCtx := ctx
	cancel := func() {}
	if o.cfg.CycleTimeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, o.cfg.CycleTimeout)
	}
	defer cancel()

	degraded := false
	defer func() {
		result.Duration = time.Since(started)
		result.DurationMS = result.Duration.Milliseconds()
		outcome := cycleOutcomeOK
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			outcome = cycleOutcomeTimeout
		case err != nil:
			outcome = cycleOutcomeError
		case degraded:
			outcome = cycleOutcomeDegraded
		}
		o.metrics.ObserveCycle(outcome, result.Duration)
		fields := []zap.Field{
			zap.String("cycle_id", result.ID),
			zap.String("crop", result.ProfileCrop),
			zap.String("outcome", outcome),
			zap.Int("anomalies", len(result.Anomalies)),
			zap.Int("queries", len(result.Queries)),
			zap.Int("findings", len(result.Findings)),
			zap.Duration("duration", result.Duration),
		}
		if err != nil {
			o.logger.Warn("cycle failed", append(fields, zap.Error(err))...)
			return
		}
		o.logger.Info("cycle completed", fields...)
	}()

	requested := crops.NormalizeCrop(req.CropType)
	if requested == "" {
		requested = o.table.Fallback()
	}
	profile, known := o.table.Lookup(requested)
	if !known {
		result.Warnings = appendUniqueWarning(result.Warnings,
			fmt.Sprintf("Unknown crop type %q; using the %s profile.", requested, profile.Crop))
	}
	result.CropType = requested
	result.ProfileCrop = profile.Crop

	emitProgress(onProgress, Progress{Phase: PhaseSensing, Message: fmt.Sprintf("Reading sensors for %s", requested)})
	readings, err := o.readings(runCtx, req, profile)
	if err != nil {
		return result, err
	}
	result.Readings = readings
	result.FieldAverages = sensors.FieldAverages(readings)

	emitProgress(onProgress, Progress{
		Phase:   PhaseDetecting,
		Message: fmt.Sprintf("Checking %d zones against the %s profile", len(readings), profile.Crop),
		Zones:   len(readings),
	})
	set := o.detector.Detect(readings, profile)
	result.Anomalies = set.Ranked()
	result.Zones = zoneReports(readings, set)
	for _, label := range result.Anomalies {
		o.metrics.ObserveAnomaly(string(label.Kind))
	}

	emitProgress(onProgress, Progress{
		Phase:     PhasePlanning,
		Message:   fmt.Sprintf("Planning research for %d anomalies", set.Len()),
		Anomalies: set.Len(),
	})
	queries := o.planner.Plan(set, requested)
	if len(queries) > 0 {
		result.Queries = queries
	}

	research := ResearchResult{}
	if len(queries) > 0 {
		emitProgress(onProgress, Progress{
			Phase:   PhaseSearching,
			Message: fmt.Sprintf("Searching %d queries", len(queries)),
			Queries: len(queries),
		})
		var researchErr error
		research, researchErr = o.executor.Research(runCtx, queries)
		result.Outcomes = research.Outcomes
		switch {
		case researchErr == nil:
		case errors.Is(researchErr, ErrProviderUnavailable) && o.cfg.DegradeOnSearchFailure:
			degraded = true
			research.Findings = nil
			result.Warnings = appendUniqueWarning(result.Warnings,
				"Search provider unavailable; advisory uses standard remediation only.")
		default:
			return result, fmt.Errorf("research: %w", researchErr)
		}
		if research.Failed > 0 && research.Failed < len(queries) {
			result.Warnings = appendUniqueWarning(result.Warnings,
				fmt.Sprintf("%d of %d research queries failed; continuing with available findings.", research.Failed, len(queries)))
		}
		if len(research.Findings) > 0 {
			result.Findings = research.Findings
		}
	}

	emitProgress(onProgress, Progress{
		Phase:     PhaseSynthesizing,
		Message:   "Synthesizing advisory",
		Anomalies: set.Len(),
		Queries:   len(queries),
		Findings:  len(result.Findings),
	})
	result.Advisory = o.synthesizer.Synthesize(set, research)
	return result, nil
}

func (o Orchestrator) readings(ctx context.Context, req CycleRequest, profile crops.Profile) ([]sensors.ZoneReading, error) {
	if len(req.Readings) > 0 {
		readings := slices.Clone(req.Readings)
		seen := make(map[int]struct{}, len(readings))
		for i := range readings {
			if readings[i].ZoneID == 0 {
				readings[i].ZoneID = i + 1
			}
			if err := readings[i].Validate(); err != nil {
				return nil, fmt.Errorf("%w: reading %d: %w", ErrInvalidRequest, i, err)
			}
			if _, dup := seen[readings[i].ZoneID]; dup {
				return nil, fmt.Errorf("%w: duplicate zone id %d", ErrInvalidRequest, readings[i].ZoneID)
			}
			seen[readings[i].ZoneID] = struct{}{}
		}
		return readings, nil
	}

	if req.ZoneCount < 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, sensors.ErrInvalidZoneCount)
	}
	if o.sources == nil {
		return nil, fmt.Errorf("%w: no readings supplied and no sensor source configured", ErrInvalidRequest)
	}
	zoneCount := req.ZoneCount
	if zoneCount == 0 {
		zoneCount = o.cfg.ZoneCount
	}
	readings, err := o.sources(profile).Read(ctx, zoneCount)
	if err != nil {
		return nil, fmt.Errorf("read sensors: %w", err)
	}
	return readings, nil
}

func zoneReports(readings []sensors.ZoneReading, set anomaly.Set) []ZoneReport {
	byZone := make(map[int][]anomaly.Kind)
	for _, label := range set.Labels() {
		for _, zone := range label.ZoneIDs {
			byZone[zone] = append(byZone[zone], label.Kind)
		}
	}
	reports := make([]ZoneReport, 0, len(readings))
	for _, reading := range readings {
		kinds := byZone[reading.ZoneID]
		if kinds == nil {
			kinds = []anomaly.Kind{}
		}
		reports = append(reports, ZoneReport{
			ZoneID:    reading.ZoneID,
			Status:    set.ZoneStatus(reading.ZoneID),
			Anomalies: kinds,
		})
	}
	return reports
}
