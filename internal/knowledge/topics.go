package knowledge

const fixtureBaseURL = "https://bulletins.agrinexus.local/"

func DefaultTopics() []Topic {
	return []Topic{
		{Key: "corn nitrogen deficiency treatments", Bulletins: []Bulletin{
			{
				Title:     "Management of Nitrogen Deficiency in Corn",
				Body:      "Apply side-dress nitrogen immediately at V4-V8 stages. Sources like UAN or Urea are effective. Rate: 40-60 lbs/acre. Delayed application can recover up to 90% of yield potential.",
				SourceURL: fixtureBaseURL + "corn/nitrogen-deficiency-management",
			},
			{
				Title:     "Identifying Nutrient Deficiencies in Corn",
				Body:      "Yellowing in V-shape starting at leaf tip indicates N deficiency. Wet soils can exacerbate leaching, requiring supplemental N.",
				SourceURL: fixtureBaseURL + "corn/identifying-nutrient-deficiencies",
			},
			{
				Title:     "Wet Season Corn Nitrogen Management",
				Body:      "In years with excessive rainfall, additional N applications (30-50 lbs N/acre) are profitable. Rescue applications must occur before silking.",
				SourceURL: fixtureBaseURL + "corn/wet-season-nitrogen",
			},
		}},
		{Key: "corn nitrogen deficiency heavy rainfall", Bulletins: []Bulletin{
			{
				Title:     "Nitrogen Loss from Heavy Rains",
				Body:      "Heavy rainfall causes denitrification and leaching. For every inch of rain above soil saturation, expect 2-4% nitrate loss. Supplemental N is critical.",
				SourceURL: fixtureBaseURL + "corn/nitrogen-loss-heavy-rain",
			},
		}},
		{Key: "soybean moisture requirements", Bulletins: []Bulletin{
			{
				Title:     "Soybean Water Requirements",
				Body:      "Soybeans require 15-25 inches of water per season. Critical period is pod filling (R3-R6).",
				SourceURL: fixtureBaseURL + "soybean/water-requirements",
			},
		}},
		{Key: "excessive soil moisture treatments", Bulletins: []Bulletin{
			{
				Title:     "Managing Waterlogged Fields",
				Body:      "Keep equipment off saturated soil until it drains to field capacity to avoid compaction. Tile outlets and surface drains should be cleared after storms.",
				SourceURL: fixtureBaseURL + "soil/waterlogged-fields",
			},
		}},
		{Key: "acidic soil low ph treatments", Bulletins: []Bulletin{
			{
				Title:     "Liming Acidic Soils",
				Body:      "Agricultural lime raises soil pH over several months. Base rates on a buffer pH test; typical corrections are 1-3 tons per acre.",
				SourceURL: fixtureBaseURL + "soil/liming-acidic-soils",
			},
		}},
		{Key: "alkaline soil high ph treatments", Bulletins: []Bulletin{
			{
				Title:     "Lowering pH in Alkaline Soils",
				Body:      "Elemental sulfur and acidifying fertilizers such as ammonium sulfate lower pH gradually. Banded phosphorus improves availability at high pH.",
				SourceURL: fixtureBaseURL + "soil/alkaline-soils",
			},
		}},
		{Key: "moisture deficit treatments", Bulletins: []Bulletin{
			{
				Title:     "Irrigation Scheduling Under Drought Stress",
				Body:      "Schedule irrigation by soil water depletion; refill the root zone when 50% of available water is used. Residue cover reduces evaporation.",
				SourceURL: fixtureBaseURL + "water/irrigation-scheduling",
			},
		}},
	}
}
