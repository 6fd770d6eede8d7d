package statestore

import "errors"

// Transition construction and application errors. Transition constructors
// validate their arguments eagerly, before any manager lock is taken, and
// wrap one of these sentinels. Caller-supplied transitions are encouraged
// to do the same so errors classify uniformly.
var (
	// ErrInvalidParameters marks a blank or malformed argument rejected
	// before any state was touched.
	ErrInvalidParameters = errors.New("invalid transition parameters")

	// ErrValidationFailed marks a value rejected by a caller-supplied
	// validator.
	ErrValidationFailed = errors.New("transition validation failed")

	// ErrNotFound marks a missing resource referenced by a transition.
	ErrNotFound = errors.New("resource not found")

	// ErrConcurrencyConflict marks a conflicting concurrent modification
	// detected by a transition.
	ErrConcurrencyConflict = errors.New("concurrency conflict")

	// ErrSerialization marks a failure encoding or decoding stored values.
	ErrSerialization = errors.New("serialization error")
)

// Manager lifecycle and snapshot errors.
var (
	// ErrTenantExists is returned by InitializeTenant for a duplicate id.
	ErrTenantExists = errors.New("tenant already exists")

	// ErrTenantNotFound is returned when no state exists for a tenant id.
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrHistoryNotFound is returned when no snapshot history exists for a
	// tenant id.
	ErrHistoryNotFound = errors.New("snapshot history not found")

	// ErrSnapshotNotFound is returned when a named, indexed, or timed
	// snapshot lookup misses.
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrMemoryLimitExceeded is reported after a transition has already
	// been committed when the post-hoc memory check fails. The state swap
	// is NOT rolled back; callers must treat this as succeeded with a
	// warning condition.
	ErrMemoryLimitExceeded = errors.New("memory limit exceeded")
)
