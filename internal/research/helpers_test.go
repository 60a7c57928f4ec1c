package research

import (
	"context"
	"sync"
	"time"

	"github.com/aniket-work/autonomous-agri-nexus/internal/anomaly"
	"github.com/aniket-work/autonomous-agri-nexus/internal/crops"
	"github.com/aniket-work/autonomous-agri-nexus/internal/sensors"
)

func cornProfile() crops.Profile {
	return crops.Profile{Crop: "corn", Ranges: map[crops.Nutrient]crops.Range{
		crops.Nitrogen:   {Min: 140, Max: 200},
		crops.Phosphorus: {Min: 30, Max: 70},
		crops.Potassium:  {Min: 100, Max: 200},
		crops.PH:         {Min: 5.8, Max: 7.0},
		crops.Moisture:   {Min: 60, Max: 80},
	}}
}

func scenarioReadings() []sensors.ZoneReading {
	return []sensors.ZoneReading{
		sensors.NewReading(1, 145, 65),
		sensors.NewReading(2, 138, 62),
		sensors.NewReading(3, 110, 82.5),
		sensors.NewReading(4, 143, 64),
	}
}

func healthyReadings() []sensors.ZoneReading {
	return []sensors.ZoneReading{
		sensors.NewReading(1, 145, 65),
		sensors.NewReading(2, 150, 70),
		sensors.NewReading(3, 170, 75),
		sensors.NewReading(4, 190, 61),
	}
}

func detect(readings ...sensors.ZoneReading) anomaly.Set {
	return anomaly.NewDetector(anomaly.BoundaryStrict).Detect(readings, cornProfile())
}

type stubProvider struct {
	mu      sync.Mutex
	calls   []string
	results map[string][]Finding
	errs    map[string]error
	delays  map[string]time.Duration
	failAll error
}

func (s *stubProvider) Search(ctx context.Context, query string, maxResults int) ([]Finding, error) {
	s.mu.Lock()
	s.calls = append(s.calls, query)
	delay := s.delays[query]
	err := s.errs[query]
	if s.failAll != nil {
		err = s.failAll
	}
	results := append([]Finding(nil), s.results[query]...)
	s.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (s *stubProvider) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func finding(url, title string) Finding {
	return Finding{SourceURL: url, Title: title, Snippet: title + " snippet", Provider: "stub"}
}
