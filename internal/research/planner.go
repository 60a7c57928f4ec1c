package research

import (
	"slices"
	"strings"

	"github.com/aniket-work/autonomous-agri-nexus/internal/anomaly"
	"github.com/aniket-work/autonomous-agri-nexus/internal/crops"
)

const cropPlaceholder = "{crop}"

// RefinementRule adds one query when a combination of labels co-occurs.
// Trigger returns the labels it fired on; Template receives the normalized crop.
type RefinementRule struct {
	Name     string
	Trigger  func(set anomaly.Set) ([]anomaly.Kind, bool)
	Template func(crop string) string
}

// PairRule fires when both kinds are present. "{crop}" in template is replaced by the crop type.
func PairRule(name string, a, b anomaly.Kind, template string) RefinementRule {
	return RefinementRule{
		Name: name,
		Trigger: func(set anomaly.Set) ([]anomaly.Kind, bool) {
			if set.Has(a) && set.Has(b) {
				return []anomaly.Kind{a, b}, true
			}
			return nil, false
		},
		Template: func(crop string) string {
			return strings.ReplaceAll(template, cropPlaceholder, crop)
		},
	}
}

func DefaultRules() []RefinementRule {
	return []RefinementRule{
		PairRule("nitrogen_leaching", anomaly.NitrogenDeficiency, anomaly.MoistureExcess,
			"{crop} nitrogen deficiency heavy rainfall leaching"),
		PairRule("phosphorus_lockup", anomaly.PhosphorusExcess, anomaly.AlkalineSoil,
			"{crop} phosphorus excess high ph availability"),
		PairRule("nitrate_runoff", anomaly.NitrogenExcess, anomaly.MoistureExcess,
			"{crop} nitrate runoff waterlogged soil"),
		PairRule("potassium_drought", anomaly.PotassiumDeficiency, anomaly.MoistureDeficit,
			"{crop} potassium deficiency drought uptake"),
	}
}

type Planner struct {
	rules []RefinementRule
}

// NewPlanner uses DefaultRules when rules is nil. An empty, non-nil slice disables refinement.
func NewPlanner(rules []RefinementRule) Planner {
	if rules == nil {
		rules = DefaultRules()
	}
	return Planner{rules: slices.Clone(rules)}
}

// Plan emits one initial query per label in ranked order. Each fired rule's refined query
// follows the last initial query of its triggering labels.
func (p Planner) Plan(set anomaly.Set, cropType string) []Query {
	if set.Empty() {
		return nil
	}

	crop := crops.NormalizeCrop(cropType)
	if crop == "" {
		crop = crops.DefaultCrop
	}

	ranked := set.Ranked()
	initial := make([]Query, 0, len(ranked))
	position := make(map[anomaly.Kind]int, len(ranked))
	seen := make(map[string]struct{}, len(ranked))
	for i, label := range ranked {
		text := collapseSpaces(crop + " " + label.Description() + " treatments")
		initial = append(initial, Query{
			Text:   text,
			Origin: QueryOriginInitial,
			Labels: []anomaly.Kind{label.Kind},
		})
		position[label.Kind] = i
		seen[strings.ToLower(text)] = struct{}{}
	}

	refinedAfter := make(map[int][]Query)
	fired := 0
	for _, rule := range p.rules {
		if rule.Trigger == nil || rule.Template == nil {
			continue
		}
		kinds, ok := rule.Trigger(set)
		if !ok || len(kinds) == 0 {
			continue
		}
		last, ok := lastPosition(position, kinds)
		if !ok {
			continue
		}

		text := collapseSpaces(rule.Template(crop))
		key := strings.ToLower(text)
		if text == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		refinedAfter[last] = append(refinedAfter[last], Query{
			Text:   text,
			Origin: QueryOriginRefined,
			Labels: slices.Clone(kinds),
			Rule:   rule.Name,
		})
		fired++
	}

	plan := make([]Query, 0, len(initial)+fired)
	for i, query := range initial {
		plan = append(plan, query)
		plan = append(plan, refinedAfter[i]...)
	}
	return plan
}

// lastPosition fails when a rule names a kind that is not in the set.
func lastPosition(position map[anomaly.Kind]int, kinds []anomaly.Kind) (int, bool) {
	last := -1
	for _, kind := range kinds {
		pos, ok := position[kind]
		if !ok {
			return 0, false
		}
		if pos > last {
			last = pos
		}
	}
	return last, true
}
