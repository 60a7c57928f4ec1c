package httpapi

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/aniket-work/autonomous-agri-nexus/internal/app"
	"github.com/aniket-work/autonomous-agri-nexus/internal/config"
	"github.com/aniket-work/autonomous-agri-nexus/internal/crops"
	"github.com/aniket-work/autonomous-agri-nexus/internal/research"
)

type stubCycles struct {
	result   research.CycleResult
	err      error
	progress []research.Progress
	got      research.CycleRequest
}

func (s *stubCycles) RunCycle(_ context.Context, req research.CycleRequest, onProgress func(research.Progress)) (research.CycleResult, error) {
	s.got = req
	for _, p := range s.progress {
		if onProgress != nil {
			onProgress(p)
		}
	}
	return s.result, s.err
}

func newTestRouter(cycles CycleRunner, logger *zap.Logger) http.Handler {
	cfg := config.Defaults()
	cfg.AllowedOrigins = []string{"http://localhost:5173"}
	return NewRouter(cfg, Dependencies{
		Cycles:   cycles,
		Crops:    crops.DefaultTable(),
		Logger:   logger,
		Gatherer: prometheus.NewRegistry(),
	})
}

func TestHealthz(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(&stubCycles{}, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestListCrops(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(&stubCycles{}, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/crops", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body cropsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "corn", body.DefaultCrop)
	require.Len(t, body.Crops, 3)
	assert.Equal(t, crops.Range{Min: 140, Max: 200}, body.Crops[0].Ranges[crops.Nitrogen])
}

func TestRunCycleReturnsResult(t *testing.T) {
	cycles := &stubCycles{result: research.CycleResult{ID: "cycle-1", CropType: "corn"}}
	body := `{"cropType":"corn","readings":[{"zoneId":1,"nitrogen":110,"moisture":82.5}]}`

	rec := httptest.NewRecorder()
	newTestRouter(cycles, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/cycles", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"cycle-1"`)
	require.Len(t, cycles.got.Readings, 1)
	assert.Equal(t, 110.0, *cycles.got.Readings[0].Nitrogen)
}

func TestRunCycleAcceptsEmptyBody(t *testing.T) {
	cycles := &stubCycles{}
	rec := httptest.NewRecorder()
	newTestRouter(cycles, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/cycles", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRunCycleRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"unknown field":  `{"crop":"corn"}`,
		"negative zones": `{"zoneCount":-1}`,
		"too many zones": `{"zoneCount":1000}`,
		"malformed":      `{"cropType":`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			newTestRouter(&stubCycles{}, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/cycles", strings.NewReader(body)))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "invalid_request")
		})
	}
}

func TestRunCycleMapsErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("research: %w", research.ErrProviderUnavailable), http.StatusBadGateway, "provider_unavailable"},
		{fmt.Errorf("research: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, "cycle_timeout"},
		{fmt.Errorf("%w: duplicate zone id 1", research.ErrInvalidRequest), http.StatusBadRequest, "invalid_request"},
		{errors.New("boom"), http.StatusInternalServerError, "cycle_failed"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		newTestRouter(&stubCycles{err: tc.err}, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/cycles", strings.NewReader(`{}`)))

		assert.Equal(t, tc.status, rec.Code, tc.err.Error())
		assert.Contains(t, rec.Body.String(), tc.code)
	}
}

type sseEvent struct {
	name string
	data string
}

func readSSE(t *testing.T, body string) []sseEvent {
	t.Helper()
	var events []sseEvent
	var current sseEvent
	scanner := bufio.NewScanner(strings.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			current.name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			current.data = strings.TrimPrefix(line, "data: ")
		case line == "":
			if current.name != "" {
				events = append(events, current)
			}
			current = sseEvent{}
		}
	}
	require.NoError(t, scanner.Err())
	return events
}

func TestStreamCycleEmitsProgressResultDone(t *testing.T) {
	cycles := &stubCycles{
		result: research.CycleResult{ID: "cycle-2"},
		progress: []research.Progress{
			{Phase: research.PhaseSensing},
			{Phase: research.PhaseDetecting, Zones: 4},
		},
	}
	rec := httptest.NewRecorder()
	newTestRouter(cycles, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/cycles/stream", strings.NewReader(`{"cropType":"corn"}`)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	events := readSSE(t, rec.Body.String())
	require.Len(t, events, 4)
	assert.Equal(t, "progress", events[0].name)
	assert.JSONEq(t, `{"phase":"sensing"}`, events[0].data)
	assert.JSONEq(t, `{"phase":"detecting","zones":4}`, events[1].data)
	assert.Equal(t, "result", events[2].name)
	assert.Contains(t, events[2].data, `"id":"cycle-2"`)
	assert.Equal(t, "done", events[3].name)
}

func TestStreamCycleReportsErrorEvent(t *testing.T) {
	cycles := &stubCycles{err: fmt.Errorf("research: %w", research.ErrProviderUnavailable)}
	rec := httptest.NewRecorder()
	newTestRouter(cycles, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/cycles/stream", nil))

	events := readSSE(t, rec.Body.String())
	require.Len(t, events, 2)
	assert.Equal(t, "error", events[0].name)
	assert.Contains(t, events[0].data, "provider_unavailable")
	assert.Equal(t, "done", events[1].name)
}

func TestRequestsAreLogged(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	rec := httptest.NewRecorder()
	newTestRouter(&stubCycles{}, zap.New(core)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	entries := logs.FilterMessage("request served").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/healthz", fields["path"])
	assert.EqualValues(t, http.StatusOK, fields["status"])
	assert.NotEmpty(t, fields["request_id"])
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/v1/cycles", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()

	newTestRouter(&stubCycles{}, nil).ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	cfg := config.Defaults()
	cfg.SensorSeed = 11
	a, err := app.Build(context.Background(), cfg, nil, reg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	router := NewRouter(cfg, Dependencies{Cycles: a.Orchestrator, Crops: a.Crops, Gatherer: reg})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/cycles", strings.NewReader(`{"cropType":"soybean","zoneCount":5}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	var result research.CycleResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "soybean", result.ProfileCrop)
	assert.Len(t, result.Zones, 5)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `agrinexus_cycle_runs_total{outcome="ok"} 1`)
}
