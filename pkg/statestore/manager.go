package statestore

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Default snapshot retention limits per tenant.
const (
	DefaultMaxAutoSnapshots  = 10
	DefaultMaxNamedSnapshots = 50
)

// Manager is the process-wide registry of tenant states and snapshot
// histories. Construct one at process start and share it across
// request-handling goroutines; all methods are safe for concurrent use.
//
// Two independent reader/writer locks guard the state map and the history
// map. Every state mutation holds the state write lock for the whole
// load-compute-swap sequence, so transitions must be fast, pure, and
// panic-free: the locks are manager-wide, not per-tenant, and a slow
// transition stalls every other mutator. Locks are released via defer, so
// a transition that does panic propagates to the caller with no state
// change and no poisoned map, but such a transition is a contract
// violation, not a supported path.
type Manager struct {
	mu     sync.RWMutex
	states map[string]*TenantState

	// Lock order: when both locks are needed, the state lock is taken
	// before the history lock.
	histMu    sync.RWMutex
	histories map[string]*SnapshotHistory

	metricsMu sync.Mutex
	metrics   TransitionMetrics

	maxMemoryMB int
	maxAuto     int
	maxNamed    int
	estimator   CostEstimator
	logger      *zap.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithSnapshotLimits overrides the per-tenant snapshot retention limits.
func WithSnapshotLimits(maxAuto, maxNamed int) ManagerOption {
	return func(m *Manager) {
		m.maxAuto = maxAuto
		m.maxNamed = maxNamed
	}
}

// WithLogger sets the logger; zap.NewNop() is used when unset.
func WithLogger(logger *zap.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithCostEstimator replaces the default fixed-estimate cost model.
func WithCostEstimator(estimator CostEstimator) ManagerOption {
	return func(m *Manager) {
		m.estimator = estimator
	}
}

// NewManager creates a manager with the given memory-limit hint in
// megabytes. The limit drives CheckMemoryLimits via the configured
// CostEstimator; it is a heuristic, not real memory accounting.
func NewManager(maxMemoryMB int, opts ...ManagerOption) *Manager {
	m := &Manager{
		states:      make(map[string]*TenantState),
		histories:   make(map[string]*SnapshotHistory),
		maxMemoryMB: maxMemoryMB,
		maxAuto:     DefaultMaxAutoSnapshots,
		maxNamed:    DefaultMaxNamedSnapshots,
		estimator:   defaultEstimator,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// InitializeTenant creates empty state and an empty snapshot history for
// the tenant. Both entries appear under a single write-locked section, so
// a tenant is never visible with state but no history or vice versa.
// A duplicate id fails with ErrTenantExists.
func (m *Manager) InitializeTenant(meta TenantMetadata) error {
	if strings.TrimSpace(meta.ID) == "" {
		return fmt.Errorf("%w: tenant id cannot be empty", ErrInvalidParameters)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.histMu.Lock()
	defer m.histMu.Unlock()

	if _, ok := m.states[meta.ID]; ok {
		return fmt.Errorf("%w: %q", ErrTenantExists, meta.ID)
	}

	m.states[meta.ID] = newTenantState(meta)
	m.histories[meta.ID] = NewSnapshotHistory(m.maxAuto, m.maxNamed)

	m.logger.Debug("tenant initialized", zap.String("tenant_id", meta.ID))
	return nil
}

// RemoveTenant removes the tenant's state and snapshot history. Removing
// an unknown tenant is a no-op.
func (m *Manager) RemoveTenant(tenantID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.histMu.Lock()
	defer m.histMu.Unlock()

	delete(m.states, tenantID)
	delete(m.histories, tenantID)

	m.logger.Debug("tenant removed", zap.String("tenant_id", tenantID))
	return nil
}

// TenantExists reports whether state exists for the tenant id.
func (m *Manager) TenantExists(tenantID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.states[tenantID]
	return ok
}

// GetTenantState returns the tenant's current state. The returned pointer
// is an owned shared reference: later transitions replace the manager's
// slot but never mutate previously returned states. Callers must not
// modify the pointed-to value.
func (m *Manager) GetTenantState(tenantID string) (*TenantState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.states[tenantID]
	return state, ok
}

// ApplyTransition atomically replaces the tenant's state with the result
// of fn. The transition runs under the state write lock; an error from fn
// aborts with no state change. After a successful swap the manager stamps
// LastUpdated, records metrics, and runs the memory-limit check. When
// that check fails the swap stays committed and ErrMemoryLimitExceeded is
// returned as a warning condition, not a rollback.
func (m *Manager) ApplyTransition(tenantID string, fn FallibleTransition) error {
	start := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.states[tenantID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrTenantNotFound, tenantID)
	}

	next, err := fn(current)
	if err != nil {
		return fmt.Errorf("transition failed: %w", err)
	}
	if next == nil {
		return fmt.Errorf("%w: transition returned nil state", ErrInvalidParameters)
	}

	m.publish(tenantID, next)
	m.recordTransition(time.Since(start))

	if !m.CheckMemoryLimits() {
		return fmt.Errorf("%w: %d MB limit configured", ErrMemoryLimitExceeded, m.maxMemoryMB)
	}
	return nil
}

// ApplyTransitions applies the whole batch to a private chain of states
// and performs a single atomic swap at the end, so intermediate states are
// never visible to readers. An empty batch returns nil with no state
// change and no metrics update. Metrics record len(fns) observations at
// the batch-average latency, an approximation rather than per-step
// timing.
func (m *Manager) ApplyTransitions(tenantID string, fns []Transition) error {
	start := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.states[tenantID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrTenantNotFound, tenantID)
	}
	if len(fns) == 0 {
		return nil
	}

	for _, fn := range fns {
		state = fn(state)
		if state == nil {
			return fmt.Errorf("%w: transition returned nil state", ErrInvalidParameters)
		}
	}

	m.publish(tenantID, state)

	avg := time.Since(start) / time.Duration(len(fns))
	for range fns {
		m.recordTransition(avg)
	}
	return nil
}

// publish stores a fresh copy of next with LastUpdated stamped, so the
// manager's stamp never mutates a state that a snapshot or reader may
// already share. Callers hold the state write lock.
func (m *Manager) publish(tenantID string, next *TenantState) {
	committed := next.Clone()
	committed.LastUpdated = time.Now().UTC()
	m.states[tenantID] = committed
}

// SnapshotOptions describes a snapshot to create. Name is optional; a
// named snapshot counts against the named retention limit, an unnamed one
// against the automatic limit.
type SnapshotOptions struct {
	Name        string
	CreatedBy   string
	Description string
	Tags        []string
}

// CreateSnapshot captures the tenant's current state into its history and
// returns the generated snapshot id. The capture is O(1): the snapshot
// shares the state value with the manager's current slot.
func (m *Manager) CreateSnapshot(tenantID string, opts SnapshotOptions) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	m.histMu.Lock()
	defer m.histMu.Unlock()

	state, ok := m.states[tenantID]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrTenantNotFound, tenantID)
	}
	history, ok := m.histories[tenantID]
	if !ok {
		return "", fmt.Errorf("%w: tenant %q", ErrHistoryNotFound, tenantID)
	}

	now := time.Now().UTC()
	snapshotID := fmt.Sprintf("snapshot_%s_%d_%s", tenantID, now.UnixMilli(), shortID())

	history.Add(Snapshot{
		ID:          snapshotID,
		Name:        opts.Name,
		CreatedAt:   now,
		CreatedBy:   opts.CreatedBy,
		Description: opts.Description,
		Tags:        opts.Tags,
		State:       state,
	})

	m.logger.Debug("snapshot created",
		zap.String("tenant_id", tenantID),
		zap.String("snapshot_id", snapshotID),
		zap.String("name", opts.Name))
	return snapshotID, nil
}

// RollbackToNamedSnapshot restores the tenant's current state from the
// named snapshot. Rollback replaces the current-state pointer with the
// snapshot's captured state; it neither creates a new snapshot nor
// removes snapshots taken after the rollback point, so rolling forward
// again by name or index remains possible.
func (m *Manager) RollbackToNamedSnapshot(tenantID, name string) error {
	return m.rollback(tenantID, func(h *SnapshotHistory) (Snapshot, error) {
		snap, ok := h.Named(name)
		if !ok {
			return Snapshot{}, fmt.Errorf("%w: named snapshot %q", ErrSnapshotNotFound, name)
		}
		return snap, nil
	})
}

// RollbackToLatestSnapshot restores from the most recent snapshot.
func (m *Manager) RollbackToLatestSnapshot(tenantID string) error {
	return m.rollback(tenantID, func(h *SnapshotHistory) (Snapshot, error) {
		snap, ok := h.Latest()
		if !ok {
			return Snapshot{}, fmt.Errorf("%w: no snapshots for tenant %q", ErrSnapshotNotFound, tenantID)
		}
		return snap, nil
	})
}

// RollbackToSnapshotIndex restores from the snapshot at index (0 =
// oldest).
func (m *Manager) RollbackToSnapshotIndex(tenantID string, index int) error {
	return m.rollback(tenantID, func(h *SnapshotHistory) (Snapshot, error) {
		snap, ok := h.ByIndex(index)
		if !ok {
			return Snapshot{}, fmt.Errorf("%w: index %d", ErrSnapshotNotFound, index)
		}
		return snap, nil
	})
}

// RollbackToTime restores from the most recent snapshot not after ts.
func (m *Manager) RollbackToTime(tenantID string, ts time.Time) error {
	return m.rollback(tenantID, func(h *SnapshotHistory) (Snapshot, error) {
		snap, ok := h.AtTime(ts)
		if !ok {
			return Snapshot{}, fmt.Errorf("%w: no snapshot at or before %s", ErrSnapshotNotFound, ts.Format(time.RFC3339))
		}
		return snap, nil
	})
}

// rollback resolves a snapshot under the history read lock, releases it,
// then swaps the current state under the state write lock. The history
// lock is dropped first to respect the state-before-history lock order.
func (m *Manager) rollback(tenantID string, pick func(*SnapshotHistory) (Snapshot, error)) error {
	m.histMu.RLock()
	history, ok := m.histories[tenantID]
	if !ok {
		m.histMu.RUnlock()
		return fmt.Errorf("%w: tenant %q", ErrHistoryNotFound, tenantID)
	}
	snap, err := pick(history)
	m.histMu.RUnlock()
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[tenantID] = snap.State

	m.logger.Debug("state rolled back",
		zap.String("tenant_id", tenantID),
		zap.String("snapshot_id", snap.ID))
	return nil
}

// ListSnapshots returns metadata for every retained snapshot of the
// tenant, oldest first, without state payloads.
func (m *Manager) ListSnapshots(tenantID string) ([]SnapshotMetadata, error) {
	m.histMu.RLock()
	defer m.histMu.RUnlock()

	history, ok := m.histories[tenantID]
	if !ok {
		return nil, fmt.Errorf("%w: tenant %q", ErrHistoryNotFound, tenantID)
	}
	return history.List(), nil
}

// SnapshotCount returns the number of retained snapshots for the tenant.
func (m *Manager) SnapshotCount(tenantID string) (int, error) {
	m.histMu.RLock()
	defer m.histMu.RUnlock()

	history, ok := m.histories[tenantID]
	if !ok {
		return 0, fmt.Errorf("%w: tenant %q", ErrHistoryNotFound, tenantID)
	}
	return history.Count(), nil
}

// ApplyTransitionWithSnapshot snapshots the pre-transition state, then
// applies fn. The snapshot id is returned even when the transition fails:
// the snapshot was taken first and still exists, so callers wanting
// transactional semantics can roll back to it explicitly.
func (m *Manager) ApplyTransitionWithSnapshot(tenantID string, fn FallibleTransition, snapshotName string) (string, error) {
	snapshotID, err := m.CreateSnapshot(tenantID, SnapshotOptions{
		Name:        snapshotName,
		CreatedBy:   "system",
		Description: "auto snapshot before transition",
		Tags:        []string{"auto"},
	})
	if err != nil {
		return "", err
	}

	if err := m.ApplyTransition(tenantID, fn); err != nil {
		return snapshotID, err
	}
	return snapshotID, nil
}

// Metrics returns a point-in-time copy of the aggregate counters.
func (m *Manager) Metrics() TransitionMetrics {
	m.metricsMu.Lock()
	defer m.metricsMu.Unlock()
	return m.metrics
}

// CheckMemoryLimits reports whether the estimated peak usage fits inside
// the configured limit.
func (m *Manager) CheckMemoryLimits() bool {
	m.metricsMu.Lock()
	defer m.metricsMu.Unlock()
	return m.metrics.PeakMemoryUsage/(1024*1024) <= uint64(m.maxMemoryMB)
}

// recordTransition folds one observation into the running average and
// refreshes the estimator-backed memory figures.
func (m *Manager) recordTransition(d time.Duration) {
	m.metricsMu.Lock()
	defer m.metricsMu.Unlock()

	m.metrics.TransitionCount++
	n := float64(m.metrics.TransitionCount)
	old := float64(m.metrics.AvgTransitionTimeNs)
	m.metrics.AvgTransitionTimeNs = uint64((old*(n-1) + float64(d.Nanoseconds())) / n)

	m.metrics.MemoryOverheadPercent = m.estimator.OverheadPercent()
	if peak := m.estimator.PeakUsageBytes(); peak > m.metrics.PeakMemoryUsage {
		m.metrics.PeakMemoryUsage = peak
	}
}

// shortID returns the first segment of a fresh UUID, enough entropy to
// disambiguate snapshots created in the same millisecond.
func shortID() string {
	id := uuid.New().String()
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}
