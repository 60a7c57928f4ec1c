package research

import (
	"context"
	"time"

	"github.com/aniket-work/autonomous-agri-nexus/internal/anomaly"
)

type QueryOrigin string

const (
	QueryOriginInitial QueryOrigin = "initial"
	QueryOriginRefined QueryOrigin = "refined"
)

// Query is one planned search. Labels are the anomaly kinds that caused it.
type Query struct {
	Text   string         `json:"text"`
	Origin QueryOrigin    `json:"origin"`
	Labels []anomaly.Kind `json:"labels"`
	Rule   string         `json:"rule,omitempty"`
}

// Finding is one search result with the provenance of the query that produced it.
type Finding struct {
	Title         string         `json:"title"`
	Snippet       string         `json:"snippet"`
	SourceURL     string         `json:"sourceUrl"`
	RelevanceRank int            `json:"relevanceRank"`
	Query         string         `json:"query"`
	QueryIndex    int            `json:"queryIndex"`
	Origin        QueryOrigin    `json:"origin"`
	Labels        []anomaly.Kind `json:"labels"`
	Provider      string         `json:"provider,omitempty"`
}

type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

type AlertLevel string

const (
	AlertGreen  AlertLevel = "green"
	AlertYellow AlertLevel = "yellow"
	AlertRed    AlertLevel = "red"
)

type Action struct {
	Kind        anomaly.Kind `json:"kind"`
	Zones       []int        `json:"zones"`
	Description string       `json:"description"`
	Sources     []string     `json:"sources"`
	Fallback    bool         `json:"fallback"`
}

type Advisory struct {
	Actions     []Action   `json:"actions"`
	Confidence  Confidence `json:"confidence"`
	SourceCount int        `json:"sourceCount"`
	AlertLevel  AlertLevel `json:"alertLevel"`
	Diagnosis   string     `json:"diagnosis"`
	GeneratedAt time.Time  `json:"generatedAt"`
}

// SearchProvider fills Title, Snippet, SourceURL and Provider; rank and provenance are
// stamped by the Executor.
type SearchProvider interface {
	Search(ctx context.Context, query string, maxResults int) ([]Finding, error)
}

type Phase string

const (
	PhaseSensing      Phase = "sensing"
	PhaseDetecting    Phase = "detecting"
	PhasePlanning     Phase = "planning"
	PhaseSearching    Phase = "searching"
	PhaseSynthesizing Phase = "synthesizing"
)

type Progress struct {
	Phase     Phase  `json:"phase"`
	Message   string `json:"message,omitempty"`
	Zones     int    `json:"zones,omitempty"`
	Anomalies int    `json:"anomalies,omitempty"`
	Queries   int    `json:"queries,omitempty"`
	Findings  int    `json:"findings,omitempty"`
}

type ExecutorConfig struct {
	MaxResultsPerQuery int
	QueryTimeout       time.Duration
	Concurrency        int
}

type CycleConfig struct {
	ZoneCount              int
	MaxResultsPerQuery     int
	QueryTimeout           time.Duration
	Concurrency            int
	CycleTimeout           time.Duration
	DegradeOnSearchFailure bool
}

func (c CycleConfig) executorConfig() ExecutorConfig {
	return ExecutorConfig{
		MaxResultsPerQuery: c.MaxResultsPerQuery,
		QueryTimeout:       c.QueryTimeout,
		Concurrency:        c.Concurrency,
	}
}
