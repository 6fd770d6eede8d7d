package statestore

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, opts ...ManagerOption) *Manager {
	t.Helper()
	m := NewManager(100, opts...)
	require.NoError(t, m.InitializeTenant(TenantMetadata{ID: "tenant-1", Name: "Tenant One"}))
	return m
}

func TestManagerInitializeTenant(t *testing.T) {
	m := NewManager(100)

	require.NoError(t, m.InitializeTenant(TenantMetadata{ID: "tenant-1"}))
	assert.True(t, m.TenantExists("tenant-1"))

	state, ok := m.GetTenantState("tenant-1")
	require.True(t, ok)
	assert.Equal(t, "tenant-1", state.Tenant.ID)
	assert.Equal(t, 0, state.Sessions.Len())

	err := m.InitializeTenant(TenantMetadata{ID: "tenant-1"})
	assert.ErrorIs(t, err, ErrTenantExists)

	err = m.InitializeTenant(TenantMetadata{ID: "  "})
	assert.ErrorIs(t, err, ErrInvalidParameters)
}

func TestManagerRemoveTenant(t *testing.T) {
	m := newTestManager(t)

	require.NoError(t, m.RemoveTenant("tenant-1"))
	assert.False(t, m.TenantExists("tenant-1"))
	_, err := m.ListSnapshots("tenant-1")
	assert.ErrorIs(t, err, ErrHistoryNotFound)

	// Removing an unknown tenant is a no-op.
	assert.NoError(t, m.RemoveTenant("ghost"))
}

func TestManagerApplyTransition(t *testing.T) {
	m := newTestManager(t)

	err := m.ApplyTransition("tenant-1", CreateUserSession("sess-1", "alice", time.Hour).Fallible())
	require.NoError(t, err)

	state, ok := m.GetTenantState("tenant-1")
	require.True(t, ok)
	assert.Equal(t, 1, state.Sessions.Len())
	assert.False(t, state.LastUpdated.IsZero())

	t.Run("unknown tenant", func(t *testing.T) {
		err := m.ApplyTransition("ghost", CleanExpiredCache().Fallible())
		assert.ErrorIs(t, err, ErrTenantNotFound)
	})

	t.Run("transition error aborts", func(t *testing.T) {
		before, _ := m.GetTenantState("tenant-1")
		err := m.ApplyTransition("tenant-1", func(*TenantState) (*TenantState, error) {
			return nil, fmt.Errorf("%w: stale read", ErrConcurrencyConflict)
		})
		assert.ErrorIs(t, err, ErrConcurrencyConflict)

		after, _ := m.GetTenantState("tenant-1")
		assert.Same(t, before, after)
	})
}

func TestManagerApplyTransitionIsolation(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.InitializeTenant(TenantMetadata{ID: "tenant-2"}))

	err := m.ApplyTransition("tenant-1", CreateUserSession("sess-1", "alice", time.Hour).Fallible())
	require.NoError(t, err)

	other, _ := m.GetTenantState("tenant-2")
	assert.Equal(t, 0, other.Sessions.Len(), "tenants must be isolated")
}

func TestManagerApplyTransitions(t *testing.T) {
	m := newTestManager(t)

	t.Run("empty batch is a no-op", func(t *testing.T) {
		before, _ := m.GetTenantState("tenant-1")
		require.NoError(t, m.ApplyTransitions("tenant-1", nil))
		after, _ := m.GetTenantState("tenant-1")
		assert.Same(t, before, after)
		assert.Equal(t, uint64(0), m.Metrics().TransitionCount)
	})

	t.Run("batch applies atomically", func(t *testing.T) {
		fns, err := BuildLoginTransitions("alice", "session-data", time.Hour)
		require.NoError(t, err)

		require.NoError(t, m.ApplyTransitions("tenant-1", fns))

		state, _ := m.GetTenantState("tenant-1")
		assert.Equal(t, 1, state.Sessions.Len())
		assert.True(t, state.AppData.Contains("user_alice_last_login"))
		assert.Equal(t, uint64(len(fns)), m.Metrics().TransitionCount)
	})

	t.Run("unknown tenant", func(t *testing.T) {
		err := m.ApplyTransitions("ghost", []Transition{CleanExpiredCache()})
		assert.ErrorIs(t, err, ErrTenantNotFound)
	})
}

func TestManagerMetrics(t *testing.T) {
	m := newTestManager(t)

	for i := 0; i < 100; i++ {
		fn, err := SetAppConfig(fmt.Sprintf("key_%d", i), i, nil)
		require.NoError(t, err)
		require.NoError(t, m.ApplyTransition("tenant-1", fn.Fallible()))
	}

	metrics := m.Metrics()
	assert.Equal(t, uint64(100), metrics.TransitionCount)
	assert.Greater(t, metrics.AvgTransitionTimeNs, uint64(0))
	assert.Equal(t, 15.0, metrics.MemoryOverheadPercent)
	assert.Equal(t, uint64(1<<20), metrics.PeakMemoryUsage)
	assert.True(t, m.CheckMemoryLimits())
}

func TestManagerMemoryLimitWarns(t *testing.T) {
	m := NewManager(0)
	require.NoError(t, m.InitializeTenant(TenantMetadata{ID: "tenant-1"}))

	err := m.ApplyTransition("tenant-1", CreateUserSession("sess-1", "alice", time.Hour).Fallible())
	assert.ErrorIs(t, err, ErrMemoryLimitExceeded)

	// The transition committed despite the warning.
	state, _ := m.GetTenantState("tenant-1")
	assert.Equal(t, 1, state.Sessions.Len())
	assert.False(t, m.CheckMemoryLimits())
}

func TestManagerSnapshotRoundTrip(t *testing.T) {
	m := newTestManager(t)

	require.NoError(t, m.ApplyTransition("tenant-1", CreateUserSession("sess-1", "alice", time.Hour).Fallible()))

	id, err := m.CreateSnapshot("tenant-1", SnapshotOptions{
		Name:        "before-cleanup",
		CreatedBy:   "test",
		Description: "one live session",
		Tags:        []string{"test"},
	})
	require.NoError(t, err)
	assert.Contains(t, id, "snapshot_tenant-1_")

	require.NoError(t, m.ApplyTransition("tenant-1", RemoveUserSession("sess-1").Fallible()))
	state, _ := m.GetTenantState("tenant-1")
	require.Equal(t, 0, state.Sessions.Len())

	require.NoError(t, m.RollbackToNamedSnapshot("tenant-1", "before-cleanup"))
	state, _ = m.GetTenantState("tenant-1")
	assert.Equal(t, 1, state.Sessions.Len())
}

func TestManagerSnapshotImmutability(t *testing.T) {
	m := newTestManager(t)

	require.NoError(t, m.ApplyTransition("tenant-1", CreateUserSession("sess-1", "alice", time.Hour).Fallible()))
	_, err := m.CreateSnapshot("tenant-1", SnapshotOptions{Name: "checkpoint"})
	require.NoError(t, err)

	// Mutate heavily after the snapshot.
	for i := 0; i < 20; i++ {
		require.NoError(t, m.ApplyTransition("tenant-1",
			CreateUserSession(fmt.Sprintf("s%d", i), "u", time.Hour).Fallible()))
	}

	require.NoError(t, m.RollbackToNamedSnapshot("tenant-1", "checkpoint"))
	state, _ := m.GetTenantState("tenant-1")
	assert.Equal(t, 1, state.Sessions.Len(), "snapshot state unaffected by later transitions")
}

func TestManagerRollbackVariants(t *testing.T) {
	m := newTestManager(t)

	mark := func(key string) {
		fn, err := SetAppConfig(key, true, nil)
		require.NoError(t, err)
		require.NoError(t, m.ApplyTransition("tenant-1", fn.Fallible()))
	}

	mark("step1")
	_, err := m.CreateSnapshot("tenant-1", SnapshotOptions{})
	require.NoError(t, err)
	firstTime := time.Now().UTC()

	time.Sleep(10 * time.Millisecond)
	mark("step2")
	_, err = m.CreateSnapshot("tenant-1", SnapshotOptions{})
	require.NoError(t, err)

	t.Run("latest", func(t *testing.T) {
		mark("step3")
		require.NoError(t, m.RollbackToLatestSnapshot("tenant-1"))
		state, _ := m.GetTenantState("tenant-1")
		assert.True(t, state.AppData.Contains("step2"))
		assert.False(t, state.AppData.Contains("step3"))
	})

	t.Run("by index", func(t *testing.T) {
		require.NoError(t, m.RollbackToSnapshotIndex("tenant-1", 0))
		state, _ := m.GetTenantState("tenant-1")
		assert.True(t, state.AppData.Contains("step1"))
		assert.False(t, state.AppData.Contains("step2"))

		err := m.RollbackToSnapshotIndex("tenant-1", 42)
		assert.ErrorIs(t, err, ErrSnapshotNotFound)
	})

	t.Run("to time", func(t *testing.T) {
		require.NoError(t, m.RollbackToTime("tenant-1", firstTime))
		state, _ := m.GetTenantState("tenant-1")
		assert.True(t, state.AppData.Contains("step1"))
		assert.False(t, state.AppData.Contains("step2"))

		err := m.RollbackToTime("tenant-1", firstTime.Add(-time.Hour))
		assert.ErrorIs(t, err, ErrSnapshotNotFound)
	})

	t.Run("unknown name", func(t *testing.T) {
		err := m.RollbackToNamedSnapshot("tenant-1", "missing")
		assert.ErrorIs(t, err, ErrSnapshotNotFound)
	})

	t.Run("unknown tenant", func(t *testing.T) {
		err := m.RollbackToLatestSnapshot("ghost")
		assert.ErrorIs(t, err, ErrHistoryNotFound)
	})
}

func TestManagerListSnapshots(t *testing.T) {
	m := newTestManager(t)

	_, err := m.CreateSnapshot("tenant-1", SnapshotOptions{Name: "a", CreatedBy: "test"})
	require.NoError(t, err)
	_, err = m.CreateSnapshot("tenant-1", SnapshotOptions{})
	require.NoError(t, err)

	list, err := m.ListSnapshots("tenant-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].Name)
	assert.Equal(t, 1, list[1].Index)

	count, err := m.SnapshotCount("tenant-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	_, err = m.CreateSnapshot("ghost", SnapshotOptions{})
	assert.ErrorIs(t, err, ErrTenantNotFound)
}

func TestManagerSnapshotRetentionLimits(t *testing.T) {
	m := NewManager(100, WithSnapshotLimits(2, 3))
	require.NoError(t, m.InitializeTenant(TenantMetadata{ID: "tenant-1"}))

	for i := 0; i < 5; i++ {
		_, err := m.CreateSnapshot("tenant-1", SnapshotOptions{})
		require.NoError(t, err)
	}
	for i := 0; i < 5; i++ {
		_, err := m.CreateSnapshot("tenant-1", SnapshotOptions{Name: fmt.Sprintf("n%d", i)})
		require.NoError(t, err)
	}

	count, err := m.SnapshotCount("tenant-1")
	require.NoError(t, err)
	assert.Equal(t, 5, count, "2 automatic + 3 named retained")
}

func TestApplyTransitionWithSnapshot(t *testing.T) {
	m := newTestManager(t)

	t.Run("success returns snapshot id", func(t *testing.T) {
		id, err := m.ApplyTransitionWithSnapshot("tenant-1",
			CreateUserSession("sess-1", "alice", time.Hour).Fallible(), "pre-login")
		require.NoError(t, err)
		assert.NotEmpty(t, id)

		snap, err := m.ListSnapshots("tenant-1")
		require.NoError(t, err)
		require.Len(t, snap, 1)
		assert.Equal(t, "pre-login", snap[0].Name)
		assert.Equal(t, "system", snap[0].CreatedBy)
	})

	t.Run("failure still returns the id for manual rollback", func(t *testing.T) {
		id, err := m.ApplyTransitionWithSnapshot("tenant-1",
			func(*TenantState) (*TenantState, error) {
				return nil, fmt.Errorf("%w: bad payload", ErrSerialization)
			}, "pre-fail")
		assert.ErrorIs(t, err, ErrSerialization)
		assert.NotEmpty(t, id)

		require.NoError(t, m.RollbackToNamedSnapshot("tenant-1", "pre-fail"))
	})

	t.Run("unknown tenant", func(t *testing.T) {
		_, err := m.ApplyTransitionWithSnapshot("ghost", CleanExpiredCache().Fallible(), "x")
		assert.ErrorIs(t, err, ErrTenantNotFound)
	})
}

func TestManagerConcurrentAccess(t *testing.T) {
	m := NewManager(100)
	const tenants = 4
	const perTenant = 50

	for i := 0; i < tenants; i++ {
		require.NoError(t, m.InitializeTenant(TenantMetadata{ID: fmt.Sprintf("tenant-%d", i)}))
	}

	var wg sync.WaitGroup
	for i := 0; i < tenants; i++ {
		tenantID := fmt.Sprintf("tenant-%d", i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perTenant; j++ {
				fn, err := SetAppConfig(fmt.Sprintf("key_%d", j), j, nil)
				assert.NoError(t, err)
				assert.NoError(t, m.ApplyTransition(tenantID, fn.Fallible()))
				if j%10 == 0 {
					_, err := m.CreateSnapshot(tenantID, SnapshotOptions{})
					assert.NoError(t, err)
				}
				_, ok := m.GetTenantState(tenantID)
				assert.True(t, ok)
			}
		}()
	}
	wg.Wait()

	for i := 0; i < tenants; i++ {
		state, ok := m.GetTenantState(fmt.Sprintf("tenant-%d", i))
		require.True(t, ok)
		assert.Equal(t, perTenant, state.AppData.Len())
	}
	assert.Equal(t, uint64(tenants*perTenant), m.Metrics().TransitionCount)
}
