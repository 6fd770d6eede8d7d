package statestore

// TransitionMetrics aggregates performance counters across all tenants of
// one manager.
type TransitionMetrics struct {
	// AvgTransitionTimeNs is the running average transition latency in
	// nanoseconds. Batched applications record the batch average for each
	// step, not true per-step timing.
	AvgTransitionTimeNs uint64 `json:"avg_transition_time_ns"`

	// TransitionCount is the total number of applied transitions.
	TransitionCount uint64 `json:"transition_count"`

	// MemoryOverheadPercent estimates the overhead of immutable state
	// versus an equivalent mutable store.
	MemoryOverheadPercent float64 `json:"memory_overhead_percent"`

	// PeakMemoryUsage is the estimated peak usage in bytes.
	PeakMemoryUsage uint64 `json:"peak_memory_usage"`
}

// CostEstimator approximates the memory cost of retained immutable state.
// The default implementation returns fixed documented estimates rather
// than sampling live allocation; replace it via WithCostEstimator to plug
// in real accounting.
type CostEstimator interface {
	// OverheadPercent estimates structural-sharing overhead versus a
	// mutable store.
	OverheadPercent() float64

	// PeakUsageBytes estimates current peak memory usage.
	PeakUsageBytes() uint64
}

// FixedEstimator returns constant estimates. It is the default estimator:
// sampling live allocation on every transition is not worth the cost for
// a heuristic limit check.
type FixedEstimator struct {
	Overhead float64
	Peak     uint64
}

func (e FixedEstimator) OverheadPercent() float64 { return e.Overhead }

func (e FixedEstimator) PeakUsageBytes() uint64 { return e.Peak }

// defaultEstimator mirrors the documented baseline: 15% structural
// overhead and a 1 MiB peak floor.
var defaultEstimator CostEstimator = FixedEstimator{Overhead: 15.0, Peak: 1 << 20}
