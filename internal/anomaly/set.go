package anomaly

import (
	"slices"
	"sort"
)

type ZoneStatus string

const (
	StatusOptimal       ZoneStatus = "Optimal"
	StatusCheckRequired ZoneStatus = "Check Required"
)

type Label struct {
	Kind     Kind    `json:"kind"`
	Severity float64 `json:"severity"`
	ZoneIDs  []int   `json:"zoneIds"`
}

func (l Label) Description() string {
	return l.Kind.Description()
}

// Set holds one cycle's labels in detection order.
type Set struct {
	labels []Label
	index  map[Kind]int
}

func (s *Set) add(kind Kind, zoneID int, severity float64) {
	if s.index == nil {
		s.index = make(map[Kind]int)
	}
	i, ok := s.index[kind]
	if !ok {
		s.index[kind] = len(s.labels)
		s.labels = append(s.labels, Label{Kind: kind, Severity: severity, ZoneIDs: []int{zoneID}})
		return
	}
	label := &s.labels[i]
	if severity > label.Severity {
		label.Severity = severity
	}
	if !slices.Contains(label.ZoneIDs, zoneID) {
		label.ZoneIDs = append(label.ZoneIDs, zoneID)
	}
}

func (s Set) Len() int {
	return len(s.labels)
}

func (s Set) Empty() bool {
	return len(s.labels) == 0
}

func (s Set) Has(kind Kind) bool {
	_, ok := s.index[kind]
	return ok
}

func (s Set) Label(kind Kind) (Label, bool) {
	i, ok := s.index[kind]
	if !ok {
		return Label{}, false
	}
	return cloneLabel(s.labels[i]), true
}

// Labels returns the labels in detection order.
func (s Set) Labels() []Label {
	out := make([]Label, 0, len(s.labels))
	for _, label := range s.labels {
		out = append(out, cloneLabel(label))
	}
	return out
}

// Ranked orders labels by severity, highest first; equal severities keep detection order.
func (s Set) Ranked() []Label {
	out := s.Labels()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Severity > out[j].Severity
	})
	return out
}

func (s Set) Kinds() []Kind {
	out := make([]Kind, 0, len(s.labels))
	for _, label := range s.labels {
		out = append(out, label.Kind)
	}
	return out
}

func (s Set) ZoneStatus(zoneID int) ZoneStatus {
	for _, label := range s.labels {
		if slices.Contains(label.ZoneIDs, zoneID) {
			return StatusCheckRequired
		}
	}
	return StatusOptimal
}

func cloneLabel(l Label) Label {
	l.ZoneIDs = slices.Clone(l.ZoneIDs)
	return l
}
