package research

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/aniket-work/autonomous-agri-nexus/internal/brave"
	"github.com/aniket-work/autonomous-agri-nexus/internal/knowledge"
	"github.com/aniket-work/autonomous-agri-nexus/internal/logging"
	"github.com/aniket-work/autonomous-agri-nexus/internal/metrics"
)

const (
	ProviderBrave   = "brave"
	ProviderFixture = "fixture"

	maxTitleRunes   = 240
	maxSnippetRunes = 800

	fallbackReasonRateLimited = "rate_limited"
	fallbackReasonError       = "error"
)

type BraveSearcher interface {
	Search(ctx context.Context, query string, count int) ([]brave.SearchResult, error)
}

type BraveProvider struct {
	client BraveSearcher
}

func NewBraveProvider(client BraveSearcher) BraveProvider {
	return BraveProvider{client: client}
}

func (p BraveProvider) Search(ctx context.Context, query string, maxResults int) ([]Finding, error) {
	if p.client == nil {
		return nil, brave.ErrMissingAPIKey
	}
	results, err := p.client.Search(ctx, query, maxResults)
	if err != nil {
		return nil, err
	}
	findings := make([]Finding, 0, len(results))
	for _, result := range results {
		rawURL := strings.TrimSpace(result.URL)
		if rawURL == "" {
			continue
		}
		findings = append(findings, Finding{
			Title:     trimToRunes(strings.TrimSpace(result.Title), maxTitleRunes),
			Snippet:   trimToRunes(strings.TrimSpace(result.Snippet), maxSnippetRunes),
			SourceURL: rawURL,
			Provider:  ProviderBrave,
		})
	}
	return findings, nil
}

type BulletinIndex interface {
	Search(ctx context.Context, query string, limit int) ([]knowledge.Bulletin, error)
}

// FixtureProvider answers from the local bulletin index. It never returns an empty batch
// for a non-empty query because the index falls back to a generic bulletin.
type FixtureProvider struct {
	index BulletinIndex
}

func NewFixtureProvider(index BulletinIndex) FixtureProvider {
	return FixtureProvider{index: index}
}

func (p FixtureProvider) Search(ctx context.Context, query string, maxResults int) ([]Finding, error) {
	if p.index == nil {
		return nil, errors.New("bulletin index is not configured")
	}
	bulletins, err := p.index.Search(ctx, query, maxResults)
	if err != nil {
		return nil, err
	}
	findings := make([]Finding, 0, len(bulletins))
	for _, bulletin := range bulletins {
		findings = append(findings, Finding{
			Title:     trimToRunes(bulletin.Title, maxTitleRunes),
			Snippet:   trimToRunes(bulletin.Body, maxSnippetRunes),
			SourceURL: bulletin.SourceURL,
			Provider:  ProviderFixture,
		})
	}
	return findings, nil
}

// FallbackProvider asks secondary when primary fails. Cancellation of the caller's
// context is returned as is.
type FallbackProvider struct {
	primary   SearchProvider
	secondary SearchProvider
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

func NewFallbackProvider(primary, secondary SearchProvider, logger *zap.Logger, m *metrics.Metrics) FallbackProvider {
	return FallbackProvider{
		primary:   primary,
		secondary: secondary,
		logger:    logging.OrNop(logger),
		metrics:   m,
	}
}

func (p FallbackProvider) Search(ctx context.Context, query string, maxResults int) ([]Finding, error) {
	findings, err := p.primary.Search(ctx, query, maxResults)
	if err == nil {
		return findings, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	reason := fallbackReason(err)
	p.metrics.ObserveFallback(reason)
	p.logger.Warn("primary search provider failed, using fallback",
		zap.String("query", query),
		zap.String("reason", reason),
		zap.Error(err),
	)
	return p.secondary.Search(ctx, query, maxResults)
}

func fallbackReason(err error) string {
	var apiErr brave.APIError
	if errors.As(err, &apiErr) && apiErr.RateLimited() {
		return fallbackReasonRateLimited
	}
	return fallbackReasonError
}

// RateLimitedProvider spaces calls to next by at least interval.
type RateLimitedProvider struct {
	next    SearchProvider
	limiter *rate.Limiter
}

func NewRateLimitedProvider(next SearchProvider, interval time.Duration) *RateLimitedProvider {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &RateLimitedProvider{
		next:    next,
		limiter: rate.NewLimiter(limit, 1),
	}
}

func (p *RateLimitedProvider) Search(ctx context.Context, query string, maxResults int) ([]Finding, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		if _, ok := ctx.Deadline(); ok && ctx.Err() == nil {
			// The limiter refuses up front when the next slot is past the deadline.
			return nil, fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
		}
		return nil, err
	}
	return p.next.Search(ctx, query, maxResults)
}
