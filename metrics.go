package compact

import "sync/atomic"

// Metrics collects counters for Compactor and PersistingFetcher activity.
type Metrics struct {
	compactions            atomic.Int64
	emptyInputs            atomic.Int64
	cacheHits              atomic.Int64
	cacheMisses            atomic.Int64
	modelSummaries         atomic.Int64
	deterministicFallbacks atomic.Int64
	recoveredPanics        atomic.Int64
	persistedFacts         atomic.Int64
	persistFailures        atomic.Int64
}

// Stats is a point-in-time view of Metrics.
type Stats struct {
	Compactions            int64
	EmptyInputs            int64
	CacheHits              int64
	CacheMisses            int64
	ModelSummaries         int64
	DeterministicFallbacks int64
	RecoveredPanics        int64
	PersistedFacts         int64
	PersistFailures        int64
}

// Snapshot returns a copy of the current counter values.
func (m *Metrics) Snapshot() Stats {
	if m == nil {
		return Stats{}
	}
	return Stats{
		Compactions:            m.compactions.Load(),
		EmptyInputs:            m.emptyInputs.Load(),
		CacheHits:              m.cacheHits.Load(),
		CacheMisses:            m.cacheMisses.Load(),
		ModelSummaries:         m.modelSummaries.Load(),
		DeterministicFallbacks: m.deterministicFallbacks.Load(),
		RecoveredPanics:        m.recoveredPanics.Load(),
		PersistedFacts:         m.persistedFacts.Load(),
		PersistFailures:        m.persistFailures.Load(),
	}
}
