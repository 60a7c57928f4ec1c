package anomaly

import "github.com/aniket-work/autonomous-agri-nexus/internal/crops"

type Direction string

const (
	Below Direction = "below"
	Above Direction = "above"
)

type Kind string

const (
	NitrogenDeficiency   Kind = "NitrogenDeficiency"
	NitrogenExcess       Kind = "NitrogenExcess"
	PhosphorusDeficiency Kind = "PhosphorusDeficiency"
	PhosphorusExcess     Kind = "PhosphorusExcess"
	PotassiumDeficiency  Kind = "PotassiumDeficiency"
	PotassiumExcess      Kind = "PotassiumExcess"
	AcidicSoil           Kind = "AcidicSoil"
	AlkalineSoil         Kind = "AlkalineSoil"
	MoistureDeficit      Kind = "MoistureDeficit"
	MoistureExcess       Kind = "MoistureExcess"
)

type kindInfo struct {
	nutrient    crops.Nutrient
	direction   Direction
	description string
}

var kinds = map[Kind]kindInfo{
	NitrogenDeficiency:   {crops.Nitrogen, Below, "nitrogen deficiency"},
	NitrogenExcess:       {crops.Nitrogen, Above, "nitrogen excess"},
	PhosphorusDeficiency: {crops.Phosphorus, Below, "phosphorus deficiency"},
	PhosphorusExcess:     {crops.Phosphorus, Above, "phosphorus excess"},
	PotassiumDeficiency:  {crops.Potassium, Below, "potassium deficiency"},
	PotassiumExcess:      {crops.Potassium, Above, "potassium excess"},
	AcidicSoil:           {crops.PH, Below, "acidic soil low ph"},
	AlkalineSoil:         {crops.PH, Above, "alkaline soil high ph"},
	MoistureDeficit:      {crops.Moisture, Below, "moisture deficit"},
	MoistureExcess:       {crops.Moisture, Above, "excessive soil moisture"},
}

func KindFor(n crops.Nutrient, d Direction) (Kind, bool) {
	for kind, info := range kinds {
		if info.nutrient == n && info.direction == d {
			return kind, true
		}
	}
	return "", false
}

func (k Kind) Nutrient() crops.Nutrient {
	return kinds[k].nutrient
}

func (k Kind) Direction() Direction {
	return kinds[k].direction
}

// Description is the lower-case phrase used in queries and advisories.
func (k Kind) Description() string {
	if info, ok := kinds[k]; ok {
		return info.description
	}
	return string(k)
}
