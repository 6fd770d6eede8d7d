package telemetry

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/tenantstate/pkg/statestore"
)

type staticSource struct {
	metrics statestore.TransitionMetrics
}

func (s staticSource) Metrics() statestore.TransitionMetrics { return s.metrics }

func TestCollector(t *testing.T) {
	source := staticSource{metrics: statestore.TransitionMetrics{
		AvgTransitionTimeNs:   1500,
		TransitionCount:       42,
		MemoryOverheadPercent: 15.0,
		PeakMemoryUsage:       1 << 20,
	}}

	expected := `
# HELP tenantstate_memory_overhead_percent Estimated memory overhead of structural sharing in percent
# TYPE tenantstate_memory_overhead_percent gauge
tenantstate_memory_overhead_percent 15
# HELP tenantstate_memory_peak_bytes Estimated peak memory usage in bytes
# TYPE tenantstate_memory_peak_bytes gauge
tenantstate_memory_peak_bytes 1.048576e+06
# HELP tenantstate_transition_duration_avg_ns Running average of transition application time in nanoseconds
# TYPE tenantstate_transition_duration_avg_ns gauge
tenantstate_transition_duration_avg_ns 1500
# HELP tenantstate_transitions_total Total number of state transitions applied
# TYPE tenantstate_transitions_total counter
tenantstate_transitions_total 42
`
	err := testutil.CollectAndCompare(NewCollector(source), strings.NewReader(expected))
	require.NoError(t, err)
}

func TestCollectorRegisters(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(NewCollector(staticSource{})))
}

func TestHandler(t *testing.T) {
	m := statestore.NewManager(100)
	require.NoError(t, m.InitializeTenant(statestore.TenantMetadata{ID: "tenant-1"}))

	handler, err := Handler(m)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "tenantstate_transitions_total")
	assert.Contains(t, body, "tenantstate_memory_peak_bytes")
}
