package research

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/aniket-work/autonomous-agri-nexus/internal/anomaly"
)

const (
	MaxSourcesPerAction = 3

	maxExcerptRunes   = 160
	optimalDiagnosis  = "Optimal Conditions"
	fallbackActionFmt = "insufficient external data; apply standard remediation for %s"
)

var standardRemediation = map[anomaly.Kind]string{
	anomaly.NitrogenDeficiency:   "side-dress nitrogen at the next workable window and retest leaf tissue",
	anomaly.NitrogenExcess:       "withhold further nitrogen this season and plant a scavenging cover crop after harvest",
	anomaly.PhosphorusDeficiency: "band phosphate fertilizer near the row and confirm with a soil test",
	anomaly.PhosphorusExcess:     "suspend manure and phosphate applications and keep buffer strips in place",
	anomaly.PotassiumDeficiency:  "broadcast potash and incorporate it before the next planting",
	anomaly.PotassiumExcess:      "withhold potash and monitor magnesium availability",
	anomaly.AcidicSoil:           "apply agricultural lime at the soil-test rate",
	anomaly.AlkalineSoil:         "apply elemental sulfur or acidifying fertilizer",
	anomaly.MoistureDeficit:      "schedule irrigation to restore root-zone moisture",
	anomaly.MoistureExcess:       "improve drainage and keep equipment off the field until it drains",
}

type Synthesizer struct {
	MaxSources int
	Now        func() time.Time
}

func NewSynthesizer(now func() time.Time) Synthesizer {
	if now == nil {
		now = time.Now
	}
	return Synthesizer{MaxSources: MaxSourcesPerAction, Now: now}
}

// Synthesize builds one action per label, most severe first. Findings are matched to
// labels through the labels of the query that produced them.
func (s Synthesizer) Synthesize(set anomaly.Set, research ResearchResult) Advisory {
	maxSources := s.MaxSources
	if maxSources < 1 {
		maxSources = MaxSourcesPerAction
	}

	byKind := make(map[anomaly.Kind][]Finding)
	for _, finding := range research.Findings {
		for _, kind := range finding.Labels {
			byKind[kind] = append(byKind[kind], finding)
		}
	}

	ranked := set.Ranked()
	advisory := Advisory{
		Actions:    make([]Action, 0, len(ranked)),
		AlertLevel: alertLevelFor(len(ranked)),
		Diagnosis:  diagnosis(ranked),
	}
	if s.Now != nil {
		advisory.GeneratedAt = s.Now().UTC()
	}

	covered := 0
	cited := make(map[string]struct{})
	for _, label := range ranked {
		findings := byKind[label.Kind]
		if len(findings) == 0 {
			advisory.Actions = append(advisory.Actions, fallbackAction(label))
			continue
		}
		covered++
		action := coveredAction(label, findings, maxSources)
		for _, source := range action.Sources {
			if key := canonicalOrRawURL(source); key != "" {
				cited[key] = struct{}{}
			}
		}
		advisory.Actions = append(advisory.Actions, action)
	}

	advisory.SourceCount = len(cited)
	advisory.Confidence = confidenceFor(len(ranked), covered, research.RefinementFired())
	return advisory
}

func coveredAction(label anomaly.Label, findings []Finding, maxSources int) Action {
	sources := make([]string, 0, maxSources)
	for _, finding := range findings {
		if len(sources) >= maxSources {
			break
		}
		source := strings.TrimSpace(finding.SourceURL)
		if source == "" || slices.Contains(sources, source) {
			continue
		}
		sources = append(sources, source)
	}

	lead := findings[0]
	description := fmt.Sprintf("Address %s in %s: %s", label.Description(), zonePhrase(label.ZoneIDs), lead.Title)
	if excerpt := excerptOf(lead.Snippet); excerpt != "" {
		description += ". " + excerpt
	}

	return Action{
		Kind:        label.Kind,
		Zones:       slices.Clone(label.ZoneIDs),
		Description: description,
		Sources:     sources,
	}
}

func fallbackAction(label anomaly.Label) Action {
	description := fmt.Sprintf(fallbackActionFmt, label.Description())
	if hint, ok := standardRemediation[label.Kind]; ok {
		description += " in " + zonePhrase(label.ZoneIDs) + ": " + hint
	}
	return Action{
		Kind:        label.Kind,
		Zones:       slices.Clone(label.ZoneIDs),
		Description: description,
		Sources:     []string{},
		Fallback:    true,
	}
}

// confidenceFor: high needs every label covered plus a refined query, medium needs a
// strict majority covered.
func confidenceFor(labels, covered int, refined bool) Confidence {
	switch {
	case labels == 0:
		return ConfidenceLow
	case covered == labels && refined:
		return ConfidenceHigh
	case covered*2 > labels:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

func alertLevelFor(labels int) AlertLevel {
	switch {
	case labels == 0:
		return AlertGreen
	case labels == 1:
		return AlertYellow
	default:
		return AlertRed
	}
}

func diagnosis(ranked []anomaly.Label) string {
	if len(ranked) == 0 {
		return optimalDiagnosis
	}
	parts := make([]string, 0, len(ranked))
	for _, label := range ranked {
		parts = append(parts, label.Description())
	}
	return strings.Join(parts, ", ")
}

func zonePhrase(zones []int) string {
	if len(zones) == 1 {
		return "zone " + strconv.Itoa(zones[0])
	}
	ids := make([]string, 0, len(zones))
	for _, zone := range zones {
		ids = append(ids, strconv.Itoa(zone))
	}
	return "zones " + strings.Join(ids, ", ")
}

func excerptOf(snippet string) string {
	trimmed := collapseSpaces(snippet)
	if trimmed == "" {
		return ""
	}
	excerpt := trimToRunes(trimmed, maxExcerptRunes)
	if excerpt != trimmed {
		excerpt = strings.TrimSpace(excerpt) + "..."
	}
	return excerpt
}
