package sensors

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/aniket-work/autonomous-agri-nexus/internal/crops"
)

const (
	defaultProblemZoneRate = 0.3
	problemNitrogenFactor  = 0.6
	problemMoistureFactor  = 1.4
)

// Simulator stands in for a field of IoT probes. Each zone draws values inside the
// crop's optimal ranges; a share of zones is pushed into nitrogen loss and waterlogging.
type Simulator struct {
	profile         crops.Profile
	problemZoneRate float64
	now             func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

type SimulatorOption func(*Simulator)

func WithProblemZoneRate(rate float64) SimulatorOption {
	return func(s *Simulator) {
		if rate >= 0 && rate <= 1 {
			s.problemZoneRate = rate
		}
	}
}

func WithClock(now func() time.Time) SimulatorOption {
	return func(s *Simulator) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSimulator seeds its generator with seed; seed 0 picks a time-based seed.
func NewSimulator(profile crops.Profile, seed uint64, opts ...SimulatorOption) *Simulator {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	s := &Simulator{
		profile:         profile,
		problemZoneRate: defaultProblemZoneRate,
		now:             time.Now,
		rng:             rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Simulator) Read(ctx context.Context, zoneCount int) ([]ZoneReading, error) {
	if zoneCount <= 0 {
		return nil, ErrInvalidZoneCount
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	readAt := s.now().UTC()
	readings := make([]ZoneReading, 0, zoneCount)
	for i := 0; i < zoneCount; i++ {
		problem := s.rng.Float64() < s.problemZoneRate

		n := s.uniform(crops.Nitrogen)
		p := s.uniform(crops.Phosphorus)
		k := s.uniform(crops.Potassium)
		ph := s.uniform(crops.PH)
		m := s.uniform(crops.Moisture)
		if problem {
			n *= problemNitrogenFactor
			m *= problemMoistureFactor
		}

		readings = append(readings, ZoneReading{
			ZoneID:     i + 1,
			Nitrogen:   Float(round2(n)),
			Phosphorus: Float(round2(p)),
			Potassium:  Float(round2(k)),
			PH:         Float(round2(ph)),
			Moisture:   Float(round2(m)),
			ReadAt:     readAt,
		})
	}
	return readings, nil
}

func (s *Simulator) uniform(n crops.Nutrient) float64 {
	r, ok := s.profile.Range(n)
	if !ok {
		return 0
	}
	return r.Min + s.rng.Float64()*r.Width()
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
