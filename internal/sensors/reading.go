package sensors

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aniket-work/autonomous-agri-nexus/internal/crops"
)

// ZoneReading is one zone's soil sample. A nil field means the sensor did not report it.
type ZoneReading struct {
	ZoneID     int       `json:"zoneId"`
	Nitrogen   *float64  `json:"nitrogen,omitempty"`
	Phosphorus *float64  `json:"phosphorus,omitempty"`
	Potassium  *float64  `json:"potassium,omitempty"`
	PH         *float64  `json:"ph,omitempty"`
	Moisture   *float64  `json:"moisture,omitempty"`
	ReadAt     time.Time `json:"readAt,omitempty"`
}

type Source interface {
	Read(ctx context.Context, zoneCount int) ([]ZoneReading, error)
}

func Float(v float64) *float64 {
	return &v
}

func NewReading(zoneID int, nitrogen, moisture float64) ZoneReading {
	return ZoneReading{ZoneID: zoneID, Nitrogen: Float(nitrogen), Moisture: Float(moisture)}
}

func (r ZoneReading) Value(n crops.Nutrient) (float64, bool) {
	var v *float64
	switch n {
	case crops.Nitrogen:
		v = r.Nitrogen
	case crops.Phosphorus:
		v = r.Phosphorus
	case crops.Potassium:
		v = r.Potassium
	case crops.PH:
		v = r.PH
	case crops.Moisture:
		v = r.Moisture
	}
	if v == nil {
		return 0, false
	}
	return *v, true
}

// FieldAverages is the mean of each tracked nutrient over the zones that reported it,
// rounded to two decimals. Nutrients no zone reported are absent.
func FieldAverages(readings []ZoneReading) map[crops.Nutrient]float64 {
	averages := make(map[crops.Nutrient]float64)
	for _, nutrient := range crops.TrackedNutrients {
		var sum float64
		var n int
		for _, reading := range readings {
			if v, ok := reading.Value(nutrient); ok {
				sum += v
				n++
			}
		}
		if n > 0 {
			averages[nutrient] = round2(sum / float64(n))
		}
	}
	return averages
}

func (r ZoneReading) Validate() error {
	if r.ZoneID <= 0 {
		return fmt.Errorf("zone id must be positive, got %d", r.ZoneID)
	}
	return nil
}

var ErrInvalidZoneCount = errors.New("zone count must be positive")

// Static replays a fixed batch. Readings without a zone id are numbered by position.
type Static struct {
	readings []ZoneReading
}

func NewStatic(readings []ZoneReading) Static {
	out := make([]ZoneReading, len(readings))
	copy(out, readings)
	for i := range out {
		if out[i].ZoneID == 0 {
			out[i].ZoneID = i + 1
		}
	}
	return Static{readings: out}
}

func (s Static) Read(_ context.Context, zoneCount int) ([]ZoneReading, error) {
	if zoneCount <= 0 || zoneCount > len(s.readings) {
		zoneCount = len(s.readings)
	}
	out := make([]ZoneReading, zoneCount)
	copy(out, s.readings[:zoneCount])
	return out, nil
}
