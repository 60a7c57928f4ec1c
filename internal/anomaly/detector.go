package anomaly

import (
	"fmt"
	"strings"

	"github.com/aniket-work/autonomous-agri-nexus/internal/crops"
	"github.com/aniket-work/autonomous-agri-nexus/internal/sensors"
)

// MaxSeverity caps the normalized distance outside a range.
const MaxSeverity = 1.0

// BoundaryPolicy decides whether a value sitting exactly on a range bound is anomalous.
// It applies to both bounds alike.
type BoundaryPolicy string

const (
	// BoundaryStrict flags only values strictly below min or strictly above max.
	BoundaryStrict BoundaryPolicy = "strict"
	// BoundaryInclusive also flags values equal to min or max.
	BoundaryInclusive BoundaryPolicy = "inclusive"
)

func ParseBoundaryPolicy(raw string) (BoundaryPolicy, error) {
	switch BoundaryPolicy(strings.ToLower(strings.TrimSpace(raw))) {
	case "", BoundaryStrict:
		return BoundaryStrict, nil
	case BoundaryInclusive:
		return BoundaryInclusive, nil
	default:
		return "", fmt.Errorf("unknown boundary policy %q", raw)
	}
}

type Detector struct {
	Boundary BoundaryPolicy
}

func NewDetector(boundary BoundaryPolicy) Detector {
	if boundary == "" {
		boundary = BoundaryStrict
	}
	return Detector{Boundary: boundary}
}

// Detect compares every reading against the profile. Nutrients missing from a reading
// or from the profile are skipped for that zone.
func (d Detector) Detect(readings []sensors.ZoneReading, profile crops.Profile) Set {
	var set Set
	for _, reading := range readings {
		for _, nutrient := range crops.TrackedNutrients {
			value, ok := reading.Value(nutrient)
			if !ok {
				continue
			}
			r, ok := profile.Range(nutrient)
			if !ok {
				continue
			}
			direction, violated := d.evaluate(value, r)
			if !violated {
				continue
			}
			kind, ok := KindFor(nutrient, direction)
			if !ok {
				continue
			}
			set.add(kind, reading.ZoneID, severity(value, r, direction))
		}
	}
	return set
}

func (d Detector) evaluate(value float64, r crops.Range) (Direction, bool) {
	if d.Boundary == BoundaryInclusive {
		switch {
		case value <= r.Min:
			return Below, true
		case value >= r.Max:
			return Above, true
		}
		return "", false
	}
	switch {
	case value < r.Min:
		return Below, true
	case value > r.Max:
		return Above, true
	}
	return "", false
}

func severity(value float64, r crops.Range, direction Direction) float64 {
	width := r.Width()
	if width <= 0 {
		return MaxSeverity
	}
	var distance float64
	if direction == Below {
		distance = r.Min - value
	} else {
		distance = value - r.Max
	}
	s := distance / width
	if s < 0 {
		return 0
	}
	if s > MaxSeverity {
		return MaxSeverity
	}
	return s
}
