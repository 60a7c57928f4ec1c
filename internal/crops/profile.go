package crops

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
)

type Nutrient string

const (
	Nitrogen   Nutrient = "n"
	Phosphorus Nutrient = "p"
	Potassium  Nutrient = "k"
	PH         Nutrient = "ph"
	Moisture   Nutrient = "moisture"
)

// TrackedNutrients is the order in which a reading is evaluated.
var TrackedNutrients = []Nutrient{Nitrogen, Phosphorus, Potassium, PH, Moisture}

const DefaultCrop = "corn"

var ErrInvalidRange = errors.New("invalid optimal range")

var ErrUnknownNutrient = errors.New("unknown nutrient")

type Range struct {
	Min float64 `json:"min" koanf:"min"`
	Max float64 `json:"max" koanf:"max"`
}

func (n Nutrient) Tracked() bool {
	return slices.Contains(TrackedNutrients, n)
}

func (r Range) Validate() error {
	if r.Min > r.Max {
		return fmt.Errorf("%w: min %.2f is greater than max %.2f", ErrInvalidRange, r.Min, r.Max)
	}
	return nil
}

func (r Range) Width() float64 {
	return r.Max - r.Min
}

type Profile struct {
	Crop   string             `json:"crop"`
	Ranges map[Nutrient]Range `json:"ranges"`
}

func (p Profile) Range(n Nutrient) (Range, bool) {
	r, ok := p.Ranges[n]
	return r, ok
}

func (p Profile) clone() Profile {
	ranges := make(map[Nutrient]Range, len(p.Ranges))
	for n, r := range p.Ranges {
		ranges[n] = r
	}
	return Profile{Crop: p.Crop, Ranges: ranges}
}

// Table is built once and only read afterwards; Lookup hands out copies.
type Table struct {
	profiles map[string]Profile
	fallback string
}

func NewTable(profiles []Profile, fallback string) (*Table, error) {
	t := &Table{profiles: make(map[string]Profile, len(profiles)), fallback: NormalizeCrop(fallback)}
	for _, profile := range profiles {
		key := NormalizeCrop(profile.Crop)
		if key == "" {
			return nil, errors.New("crop profile name is required")
		}
		for nutrient, r := range profile.Ranges {
			if !nutrient.Tracked() {
				return nil, fmt.Errorf("crop %s: %w %q (want one of %v)", key, ErrUnknownNutrient, nutrient, TrackedNutrients)
			}
			if err := r.Validate(); err != nil {
				return nil, fmt.Errorf("crop %s nutrient %s: %w", key, nutrient, err)
			}
		}
		profile.Crop = key
		t.profiles[key] = profile.clone()
	}
	if t.fallback == "" {
		t.fallback = DefaultCrop
	}
	if _, ok := t.profiles[t.fallback]; !ok {
		return nil, fmt.Errorf("fallback crop %q has no profile", t.fallback)
	}
	return t, nil
}

func DefaultProfiles() []Profile {
	return []Profile{
		{Crop: "corn", Ranges: map[Nutrient]Range{
			Nitrogen:   {Min: 140, Max: 200},
			Phosphorus: {Min: 30, Max: 70},
			Potassium:  {Min: 100, Max: 200},
			PH:         {Min: 5.8, Max: 7.0},
			Moisture:   {Min: 60, Max: 80},
		}},
		{Crop: "soybean", Ranges: map[Nutrient]Range{
			Nitrogen:   {Min: 20, Max: 40},
			Phosphorus: {Min: 30, Max: 60},
			Potassium:  {Min: 100, Max: 150},
			PH:         {Min: 6.0, Max: 7.0},
			Moisture:   {Min: 50, Max: 70},
		}},
		{Crop: "wheat", Ranges: map[Nutrient]Range{
			Nitrogen:   {Min: 100, Max: 150},
			Phosphorus: {Min: 40, Max: 60},
			Potassium:  {Min: 80, Max: 120},
			PH:         {Min: 6.0, Max: 7.5},
			Moisture:   {Min: 40, Max: 60},
		}},
	}
}

func DefaultTable() *Table {
	t, err := NewTable(DefaultProfiles(), DefaultCrop)
	if err != nil {
		panic(err)
	}
	return t
}

// Lookup never fails: unknown crops resolve to the fallback profile and ok is false.
func (t *Table) Lookup(crop string) (Profile, bool) {
	key := NormalizeCrop(crop)
	if profile, ok := t.profiles[key]; ok {
		return profile.clone(), true
	}
	return t.profiles[t.fallback].clone(), false
}

func (t *Table) Fallback() string {
	return t.fallback
}

func (t *Table) Crops() []string {
	out := make([]string, 0, len(t.profiles))
	for crop := range t.profiles {
		out = append(out, crop)
	}
	sort.Strings(out)
	return out
}

func (t *Table) Profiles() []Profile {
	crops := t.Crops()
	out := make([]Profile, 0, len(crops))
	for _, crop := range crops {
		out = append(out, t.profiles[crop].clone())
	}
	return out
}

func NormalizeCrop(crop string) string {
	return strings.ToLower(strings.Join(strings.Fields(crop), " "))
}
