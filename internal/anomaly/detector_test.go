package anomaly

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aniket-work/autonomous-agri-nexus/internal/crops"
	"github.com/aniket-work/autonomous-agri-nexus/internal/sensors"
)

func cornNM() crops.Profile {
	return crops.Profile{Crop: "corn", Ranges: map[crops.Nutrient]crops.Range{
		crops.Nitrogen: {Min: 140, Max: 200},
		crops.Moisture: {Min: 60, Max: 80},
	}}
}

func TestDetectCornScenario(t *testing.T) {
	readings := []sensors.ZoneReading{
		sensors.NewReading(1, 145, 65),
		sensors.NewReading(2, 138, 62),
		sensors.NewReading(3, 110, 82.5),
		sensors.NewReading(4, 143, 64),
	}
	// n=138 in zone 2 is also under the 140 floor.
	set := NewDetector(BoundaryStrict).Detect(readings, cornNM())

	require.Equal(t, []Kind{NitrogenDeficiency, MoistureExcess}, set.Kinds())

	n, ok := set.Label(NitrogenDeficiency)
	require.True(t, ok)
	assert.Equal(t, []int{2, 3}, n.ZoneIDs)
	assert.InDelta(t, 0.5, n.Severity, 1e-9)

	m, ok := set.Label(MoistureExcess)
	require.True(t, ok)
	assert.Equal(t, []int{3}, m.ZoneIDs)
	assert.InDelta(t, 0.125, m.Severity, 1e-9)

	assert.Equal(t, StatusOptimal, set.ZoneStatus(1))
	assert.Equal(t, StatusCheckRequired, set.ZoneStatus(3))
	assert.Equal(t, StatusOptimal, set.ZoneStatus(4))
}

func TestDetectInsideRangeIsEmpty(t *testing.T) {
	readings := []sensors.ZoneReading{
		sensors.NewReading(1, 145, 65),
		sensors.NewReading(2, 199.9, 79.9),
		sensors.NewReading(3, 140.1, 60.1),
	}
	for _, policy := range []BoundaryPolicy{BoundaryStrict, BoundaryInclusive} {
		set := NewDetector(policy).Detect(readings, cornNM())
		assert.True(t, set.Empty(), "policy %s", policy)
	}
}

func TestDetectEmptyReadings(t *testing.T) {
	set := NewDetector("").Detect(nil, cornNM())
	assert.True(t, set.Empty())
	assert.Empty(t, set.Ranked())
}

func TestDetectBoundaryPolicy(t *testing.T) {
	readings := []sensors.ZoneReading{
		sensors.NewReading(1, 140, 80),
		sensors.NewReading(2, 200, 60),
	}

	strict := NewDetector(BoundaryStrict).Detect(readings, cornNM())
	assert.True(t, strict.Empty())

	inclusive := NewDetector(BoundaryInclusive).Detect(readings, cornNM())
	assert.Equal(t, []Kind{NitrogenDeficiency, MoistureExcess, NitrogenExcess, MoistureDeficit}, inclusive.Kinds())
	for _, label := range inclusive.Labels() {
		assert.Zero(t, label.Severity)
	}
}

func TestDetectSkipsMissingNutrients(t *testing.T) {
	readings := []sensors.ZoneReading{
		{ZoneID: 1, Moisture: sensors.Float(90)},
		{ZoneID: 2},
	}
	set := NewDetector(BoundaryStrict).Detect(readings, cornNM())
	assert.Equal(t, []Kind{MoistureExcess}, set.Kinds())
}

func TestDetectSkipsNutrientsWithoutProfileRange(t *testing.T) {
	readings := []sensors.ZoneReading{{ZoneID: 1, PH: sensors.Float(9.5)}}
	assert.True(t, NewDetector(BoundaryStrict).Detect(readings, cornNM()).Empty())

	full, _ := crops.DefaultTable().Lookup("corn")
	set := NewDetector(BoundaryStrict).Detect(readings, full)
	assert.Equal(t, []Kind{AlkalineSoil}, set.Kinds())
}

func TestSeverityClampedAndMaxAcrossZones(t *testing.T) {
	readings := []sensors.ZoneReading{
		sensors.NewReading(1, 130, 70),
		sensors.NewReading(2, -500, 70),
	}
	set := NewDetector(BoundaryStrict).Detect(readings, cornNM())
	label, ok := set.Label(NitrogenDeficiency)
	require.True(t, ok)
	assert.Equal(t, MaxSeverity, label.Severity)
	assert.Equal(t, []int{1, 2}, label.ZoneIDs)
}

func TestDegenerateRangeGetsMaxSeverity(t *testing.T) {
	profile := crops.Profile{Ranges: map[crops.Nutrient]crops.Range{crops.Nitrogen: {Min: 100, Max: 100}}}
	set := NewDetector(BoundaryStrict).Detect([]sensors.ZoneReading{{ZoneID: 1, Nitrogen: sensors.Float(101)}}, profile)
	label, ok := set.Label(NitrogenExcess)
	require.True(t, ok)
	assert.Equal(t, MaxSeverity, label.Severity)
}

func TestRankedBreaksTiesByDetectionOrder(t *testing.T) {
	var set Set
	set.add(MoistureExcess, 1, 0.2)
	set.add(NitrogenDeficiency, 1, 0.4)
	set.add(PotassiumDeficiency, 2, 0.2)

	ranked := set.Ranked()
	require.Len(t, ranked, 3)
	assert.Equal(t, NitrogenDeficiency, ranked[0].Kind)
	assert.Equal(t, MoistureExcess, ranked[1].Kind)
	assert.Equal(t, PotassiumDeficiency, ranked[2].Kind)

	assert.Equal(t, []Kind{MoistureExcess, NitrogenDeficiency, PotassiumDeficiency}, set.Kinds())
}

func TestLabelsAreCopies(t *testing.T) {
	var set Set
	set.add(NitrogenDeficiency, 1, 0.4)
	labels := set.Labels()
	labels[0].ZoneIDs[0] = 99

	label, _ := set.Label(NitrogenDeficiency)
	assert.Equal(t, []int{1}, label.ZoneIDs)
}

func TestParseBoundaryPolicy(t *testing.T) {
	p, err := ParseBoundaryPolicy("")
	require.NoError(t, err)
	assert.Equal(t, BoundaryStrict, p)

	p, err = ParseBoundaryPolicy(" Inclusive ")
	require.NoError(t, err)
	assert.Equal(t, BoundaryInclusive, p)

	_, err = ParseBoundaryPolicy("fuzzy")
	assert.Error(t, err)
}

func TestKindForCoversEveryNutrientDirection(t *testing.T) {
	for _, n := range crops.TrackedNutrients {
		for _, d := range []Direction{Below, Above} {
			kind, ok := KindFor(n, d)
			require.True(t, ok, "%s %s", n, d)
			assert.Equal(t, n, kind.Nutrient())
			assert.Equal(t, d, kind.Direction())
		}
	}
}
