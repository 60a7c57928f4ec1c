package research

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aniket-work/autonomous-agri-nexus/internal/logging"
	"github.com/aniket-work/autonomous-agri-nexus/internal/metrics"
)

const (
	defaultMaxResultsPerQuery = 3
	defaultQueryTimeout       = 10 * time.Second
	defaultConcurrency        = 4
)

// ErrProviderUnavailable means no query in a batch got an answer from the provider.
var ErrProviderUnavailable = errors.New("search provider unavailable")

var ErrQueryTimeout = errors.New("research query timed out")

const (
	queryOutcomeOK      = "ok"
	queryOutcomeError   = "error"
	queryOutcomeTimeout = "timeout"
)

type QueryOutcome struct {
	Query    Query         `json:"query"`
	Findings int           `json:"findings"`
	Elapsed  time.Duration `json:"-"`
	Error    string        `json:"error,omitempty"`
	Err      error         `json:"-"`
}

func (o QueryOutcome) Failed() bool {
	return o.Err != nil
}

type ResearchResult struct {
	Queries  []Query        `json:"queries"`
	Findings []Finding      `json:"findings"`
	Outcomes []QueryOutcome `json:"outcomes"`
	Failed   int            `json:"failed"`
}

func (r ResearchResult) RefinementFired() bool {
	for _, query := range r.Queries {
		if query.Origin == QueryOriginRefined {
			return true
		}
	}
	return false
}

type Executor struct {
	provider SearchProvider
	cfg      ExecutorConfig
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

func NewExecutor(provider SearchProvider, cfg ExecutorConfig, logger *zap.Logger, m *metrics.Metrics) Executor {
	if cfg.MaxResultsPerQuery < 1 {
		cfg.MaxResultsPerQuery = defaultMaxResultsPerQuery
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = defaultQueryTimeout
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = defaultConcurrency
	}
	return Executor{
		provider: provider,
		cfg:      cfg,
		logger:   logging.OrNop(logger),
		metrics:  m,
	}
}

// Research runs every query once, concurrently, and flattens findings in plan order
// then provider order. A finding whose source URL was already seen is dropped.
// Individual query failures are recorded in Outcomes; only a batch in which every
// query failed returns ErrProviderUnavailable.
func (e Executor) Research(ctx context.Context, queries []Query) (ResearchResult, error) {
	result := ResearchResult{
		Queries:  slices.Clone(queries),
		Findings: []Finding{},
		Outcomes: make([]QueryOutcome, len(queries)),
	}
	if len(queries) == 0 {
		return result, nil
	}
	if e.provider == nil {
		return result, fmt.Errorf("%w: no provider configured", ErrProviderUnavailable)
	}

	batches := make([][]Finding, len(queries))
	var g errgroup.Group
	g.SetLimit(e.cfg.Concurrency)
	for i, query := range queries {
		g.Go(func() error {
			started := time.Now()
			findings, err := e.search(ctx, i, query)
			outcome := QueryOutcome{
				Query:    query,
				Findings: len(findings),
				Elapsed:  time.Since(started),
				Err:      err,
			}
			if err != nil {
				outcome.Error = err.Error()
			}
			batches[i] = findings
			result.Outcomes[i] = outcome
			e.observe(outcome)
			return nil
		})
	}
	_ = g.Wait()

	seen := make(map[string]struct{})
	var lastErr error
	for i, batch := range batches {
		if err := result.Outcomes[i].Err; err != nil {
			result.Failed++
			lastErr = err
			continue
		}
		for _, finding := range batch {
			key := canonicalOrRawURL(finding.SourceURL)
			if key == "" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			result.Findings = append(result.Findings, finding)
		}
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}
	if result.Failed == len(queries) {
		return result, fmt.Errorf("%w: %w", ErrProviderUnavailable, lastErr)
	}
	return result, nil
}

func (e Executor) search(ctx context.Context, index int, query Query) ([]Finding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	queryCtx, cancel := context.WithTimeout(ctx, e.cfg.QueryTimeout)
	defer cancel()

	found, err := e.provider.Search(queryCtx, query.Text, e.cfg.MaxResultsPerQuery)
	if err != nil {
		timedOut := errors.Is(queryCtx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded)
		if timedOut && ctx.Err() == nil {
			return nil, fmt.Errorf("%w after %s: %w", ErrQueryTimeout, e.cfg.QueryTimeout, err)
		}
		return nil, err
	}
	if len(found) > e.cfg.MaxResultsPerQuery {
		found = found[:e.cfg.MaxResultsPerQuery]
	}

	findings := make([]Finding, 0, len(found))
	for rank, finding := range found {
		finding.RelevanceRank = rank + 1
		finding.Query = query.Text
		finding.QueryIndex = index
		finding.Origin = query.Origin
		finding.Labels = slices.Clone(query.Labels)
		findings = append(findings, finding)
	}
	return findings, nil
}

func (e Executor) observe(outcome QueryOutcome) {
	label := queryOutcomeOK
	if outcome.Err != nil {
		label = queryOutcomeError
		if errors.Is(outcome.Err, ErrQueryTimeout) {
			label = queryOutcomeTimeout
		}
		e.logger.Warn("research query failed",
			zap.String("query", outcome.Query.Text),
			zap.String("origin", string(outcome.Query.Origin)),
			zap.String("outcome", label),
			zap.Duration("elapsed", outcome.Elapsed),
			zap.Error(outcome.Err),
		)
	} else {
		e.logger.Debug("research query completed",
			zap.String("query", outcome.Query.Text),
			zap.Int("findings", outcome.Findings),
			zap.Duration("elapsed", outcome.Elapsed),
		)
	}
	e.metrics.ObserveQuery(string(outcome.Query.Origin), label, outcome.Elapsed)
}
