package research

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/aniket-work/autonomous-agri-nexus/internal/anomaly"
	"github.com/aniket-work/autonomous-agri-nexus/internal/metrics"
)

func testQueries(texts ...string) []Query {
	queries := make([]Query, 0, len(texts))
	for _, text := range texts {
		queries = append(queries, Query{Text: text, Origin: QueryOriginInitial, Labels: []anomaly.Kind{anomaly.NitrogenDeficiency}})
	}
	return queries
}

func TestResearchDeduplicatesSourceURLAtEarliestPosition(t *testing.T) {
	defer goleak.VerifyNone(t)

	provider := &stubProvider{results: map[string][]Finding{
		"a": {finding("https://extension.example.edu/n", "first"), finding("https://a.example/2", "a2")},
		"b": {finding("https://EXTENSION.example.edu/n/#top", "dup"), finding("https://b.example/1", "b1")},
	}}
	executor := NewExecutor(provider, ExecutorConfig{MaxResultsPerQuery: 3, Concurrency: 2}, nil, nil)

	result, err := executor.Research(context.Background(), testQueries("a", "b"))
	require.NoError(t, err)

	urls := make([]string, 0, len(result.Findings))
	for _, f := range result.Findings {
		urls = append(urls, f.SourceURL)
	}
	assert.Equal(t, []string{
		"https://extension.example.edu/n",
		"https://a.example/2",
		"https://b.example/1",
	}, urls)
	assert.Equal(t, "first", result.Findings[0].Title)
}

func TestResearchRestoresPlanOrderUnderConcurrency(t *testing.T) {
	defer goleak.VerifyNone(t)

	provider := &stubProvider{
		results: map[string][]Finding{
			"slow": {finding("https://slow.example/1", "slow")},
			"fast": {finding("https://fast.example/1", "fast")},
		},
		delays: map[string]time.Duration{"slow": 40 * time.Millisecond},
	}
	executor := NewExecutor(provider, ExecutorConfig{Concurrency: 2}, nil, nil)

	result, err := executor.Research(context.Background(), testQueries("slow", "fast"))
	require.NoError(t, err)
	require.Len(t, result.Findings, 2)
	assert.Equal(t, "slow", result.Findings[0].Query)
	assert.Equal(t, 0, result.Findings[0].QueryIndex)
	assert.Equal(t, "fast", result.Findings[1].Query)
	assert.Equal(t, 1, result.Findings[1].QueryIndex)
}

func TestResearchTruncatesAndStampsProvenance(t *testing.T) {
	provider := &stubProvider{results: map[string][]Finding{
		"q": {
			finding("https://a.example/1", "1"),
			finding("https://a.example/2", "2"),
			finding("https://a.example/3", "3"),
			finding("https://a.example/4", "4"),
		},
	}}
	executor := NewExecutor(provider, ExecutorConfig{MaxResultsPerQuery: 2}, nil, nil)
	query := Query{
		Text:   "q",
		Origin: QueryOriginRefined,
		Labels: []anomaly.Kind{anomaly.NitrogenDeficiency, anomaly.MoistureExcess},
	}

	result, err := executor.Research(context.Background(), []Query{query})
	require.NoError(t, err)
	require.Len(t, result.Findings, 2)
	for i, f := range result.Findings {
		assert.Equal(t, i+1, f.RelevanceRank)
		assert.Equal(t, QueryOriginRefined, f.Origin)
		assert.Equal(t, query.Labels, f.Labels)
	}
	assert.Equal(t, 2, result.Outcomes[0].Findings)
	assert.True(t, result.RefinementFired())
}

func TestResearchDropsFindingsWithoutURL(t *testing.T) {
	provider := &stubProvider{results: map[string][]Finding{
		"q": {{Title: "no url"}, finding("https://a.example/1", "ok")},
	}}
	executor := NewExecutor(provider, ExecutorConfig{}, nil, nil)

	result, err := executor.Research(context.Background(), testQueries("q"))
	require.NoError(t, err)
	require.Len(t, result.Findings, 1)
	assert.Equal(t, 2, result.Findings[0].RelevanceRank)
}

func TestResearchPartialFailureIsNotFatal(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	provider := &stubProvider{
		results: map[string][]Finding{"good": {finding("https://good.example", "good")}},
		errs:    map[string]error{"bad": errors.New("upstream 500")},
	}
	executor := NewExecutor(provider, ExecutorConfig{}, zap.New(core), nil)

	result, err := executor.Research(context.Background(), testQueries("bad", "good"))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.True(t, result.Outcomes[0].Failed())
	assert.Equal(t, "upstream 500", result.Outcomes[0].Error)
	assert.Equal(t, 0, result.Outcomes[0].Findings)
	require.Len(t, result.Findings, 1)
	assert.Equal(t, 1, logs.FilterMessage("research query failed").Len())
}

func TestResearchTotalFailureReturnsProviderUnavailable(t *testing.T) {
	upstream := errors.New("connection refused")
	provider := &stubProvider{failAll: upstream}
	executor := NewExecutor(provider, ExecutorConfig{}, nil, nil)

	result, err := executor.Research(context.Background(), testQueries("a", "b"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.ErrorIs(t, err, upstream)
	assert.Equal(t, 2, result.Failed)
	assert.Empty(t, result.Findings)
}

func TestResearchTimeoutCountsAsZeroFindings(t *testing.T) {
	defer goleak.VerifyNone(t)

	provider := &stubProvider{
		results: map[string][]Finding{
			"hang": {finding("https://hang.example", "never")},
			"ok":   {finding("https://ok.example", "ok")},
		},
		delays: map[string]time.Duration{"hang": time.Second},
	}
	executor := NewExecutor(provider, ExecutorConfig{QueryTimeout: 20 * time.Millisecond}, nil, nil)

	result, err := executor.Research(context.Background(), testQueries("hang", "ok"))
	require.NoError(t, err)
	assert.ErrorIs(t, result.Outcomes[0].Err, ErrQueryTimeout)
	assert.Equal(t, 0, result.Outcomes[0].Findings)
	require.Len(t, result.Findings, 1)
	assert.Equal(t, "https://ok.example", result.Findings[0].SourceURL)
}

func TestResearchLabelsLimiterDeadlineAsTimeout(t *testing.T) {
	defer goleak.VerifyNone(t)

	core, logs := observer.New(zap.WarnLevel)
	reg := prometheus.NewRegistry()
	provider := &stubProvider{results: map[string][]Finding{
		"a": {finding("https://a.example/1", "a")},
		"b": {finding("https://b.example/1", "b")},
	}}
	limited := NewRateLimitedProvider(provider, time.Hour)
	executor := NewExecutor(limited, ExecutorConfig{QueryTimeout: 50 * time.Millisecond, Concurrency: 1}, zap.New(core), metrics.New(reg))

	result, err := executor.Research(context.Background(), testQueries("a", "b"))
	require.NoError(t, err)
	require.NoError(t, result.Outcomes[0].Err)
	assert.ErrorIs(t, result.Outcomes[1].Err, ErrQueryTimeout)
	assert.Equal(t, 1, provider.callCount())

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, queryOutcomeTimeout, logs.All()[0].ContextMap()["outcome"])

	expected := `
# HELP agrinexus_research_queries_total Search queries issued by origin and outcome
# TYPE agrinexus_research_queries_total counter
agrinexus_research_queries_total{origin="initial",outcome="ok"} 1
agrinexus_research_queries_total{origin="initial",outcome="timeout"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "agrinexus_research_queries_total"))
}

func TestResearchReturnsParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	provider := &stubProvider{}
	executor := NewExecutor(provider, ExecutorConfig{}, nil, nil)

	_, err := executor.Research(ctx, testQueries("a"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrProviderUnavailable)
	assert.Equal(t, 0, provider.callCount())
}

func TestResearchWithoutQueriesSkipsProvider(t *testing.T) {
	provider := &stubProvider{}
	executor := NewExecutor(provider, ExecutorConfig{}, nil, nil)

	result, err := executor.Research(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, result.Findings)
	assert.Equal(t, 0, provider.callCount())
}

func TestCanonicalURL(t *testing.T) {
	cases := map[string]string{
		"https://Example.COM/path/":     "https://example.com/path",
		"HTTPS://example.com/path#frag": "https://example.com/path",
		" https://example.com/a?id=7 ":  "https://example.com/a?id=7",
		"not a url":                     "",
		"https://example.com/a%20b/":    "https://example.com/a%20b",
	}
	for raw, want := range cases {
		assert.Equal(t, want, canonicalURL(raw), raw)
	}
}
