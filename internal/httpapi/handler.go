package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/aniket-work/autonomous-agri-nexus/internal/crops"
	"github.com/aniket-work/autonomous-agri-nexus/internal/logging"
	"github.com/aniket-work/autonomous-agri-nexus/internal/research"
	"github.com/aniket-work/autonomous-agri-nexus/internal/sensors"
)

const maxZonesPerCycle = 256

type CycleRunner interface {
	RunCycle(ctx context.Context, req research.CycleRequest, onProgress func(research.Progress)) (research.CycleResult, error)
}

type Handler struct {
	cycles CycleRunner
	crops  *crops.Table
	logger *zap.Logger
}

func NewHandler(cycles CycleRunner, table *crops.Table, logger *zap.Logger) Handler {
	if table == nil {
		table = crops.DefaultTable()
	}
	return Handler{cycles: cycles, crops: table, logger: logging.OrNop(logger)}
}

func (h Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type cropsResponse struct {
	DefaultCrop string          `json:"defaultCrop"`
	Crops       []crops.Profile `json:"crops"`
}

func (h Handler) ListCrops(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, cropsResponse{
		DefaultCrop: h.crops.Fallback(),
		Crops:       h.crops.Profiles(),
	})
}

type cycleRequest struct {
	CropType  string                `json:"cropType"`
	ZoneCount int                   `json:"zoneCount"`
	Readings  []sensors.ZoneReading `json:"readings"`
}

func (req cycleRequest) validate() error {
	if req.ZoneCount < 0 || req.ZoneCount > maxZonesPerCycle {
		return fmt.Errorf("zoneCount must be between 0 and %d", maxZonesPerCycle)
	}
	if len(req.Readings) > maxZonesPerCycle {
		return fmt.Errorf("at most %d readings are accepted", maxZonesPerCycle)
	}
	return nil
}

func (req cycleRequest) toCycleRequest() research.CycleRequest {
	return research.CycleRequest{
		CropType:  req.CropType,
		ZoneCount: req.ZoneCount,
		Readings:  req.Readings,
	}
}

func (h Handler) RunCycle(w http.ResponseWriter, r *http.Request) {
	req, ok := h.readCycleRequest(w, r)
	if !ok {
		return
	}

	result, err := h.cycles.RunCycle(r.Context(), req.toCycleRequest(), nil)
	if err != nil {
		status, code := classifyCycleError(err)
		writeError(w, status, code, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// StreamCycle emits progress events while the cycle runs, then one result (or error)
// event, then done.
func (h Handler) StreamCycle(w http.ResponseWriter, r *http.Request) {
	req, ok := h.readCycleRequest(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming_unsupported", "server does not support streaming")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	result, err := h.cycles.RunCycle(r.Context(), req.toCycleRequest(), func(progress research.Progress) {
		_ = writeSSEEvent(w, "progress", progress)
		flusher.Flush()
	})
	if err != nil {
		_, code := classifyCycleError(err)
		_ = writeSSEEvent(w, "error", errorBody{Code: code, Message: err.Error()})
	} else if writeErr := writeSSEEvent(w, "result", result); writeErr != nil {
		h.logger.Warn("write cycle result event", zap.Error(writeErr))
	}
	_ = writeSSEEvent(w, "done", map[string]string{"type": "done"})
	flusher.Flush()
}

func (h Handler) readCycleRequest(w http.ResponseWriter, r *http.Request) (cycleRequest, bool) {
	var req cycleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return req, false
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return req, false
	}
	if h.cycles == nil {
		writeError(w, http.StatusServiceUnavailable, "pipeline_unavailable", "evaluation pipeline is not configured")
		return req, false
	}
	return req, true
}

func classifyCycleError(err error) (int, string) {
	switch {
	case errors.Is(err, research.ErrInvalidRequest), errors.Is(err, sensors.ErrInvalidZoneCount):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, research.ErrProviderUnavailable):
		return http.StatusBadGateway, "provider_unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "cycle_timeout"
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "cycle_canceled"
	default:
		return http.StatusInternalServerError, "cycle_failed"
	}
}
