package research

import "time"

const (
	defaultZoneCount    = 4
	defaultCycleTimeout = 60 * time.Second
)

func DefaultCycleConfig() CycleConfig {
	return CycleConfig{
		ZoneCount:              defaultZoneCount,
		MaxResultsPerQuery:     defaultMaxResultsPerQuery,
		QueryTimeout:           defaultQueryTimeout,
		Concurrency:            defaultConcurrency,
		CycleTimeout:           defaultCycleTimeout,
		DegradeOnSearchFailure: true,
	}
}

// ResolveCycleConfig applies positive overrides over the defaults. DegradeOnSearchFailure
// is taken from overrides as given.
func ResolveCycleConfig(overrides CycleConfig) CycleConfig {
	resolved := DefaultCycleConfig()

	if overrides.ZoneCount > 0 {
		resolved.ZoneCount = overrides.ZoneCount
	}
	if overrides.MaxResultsPerQuery > 0 {
		resolved.MaxResultsPerQuery = overrides.MaxResultsPerQuery
	}
	if overrides.QueryTimeout > 0 {
		resolved.QueryTimeout = overrides.QueryTimeout
	}
	if overrides.Concurrency > 0 {
		resolved.Concurrency = overrides.Concurrency
	}
	if overrides.CycleTimeout > 0 {
		resolved.CycleTimeout = overrides.CycleTimeout
	}
	resolved.DegradeOnSearchFailure = overrides.DegradeOnSearchFailure

	return resolved
}
