// Package statestore provides a thread-safe, versioned, multi-tenant
// in-memory state store built on persistent data structures.
//
// Each tenant owns an immutable TenantState. Mutations are expressed as
// transitions, pure functions from one state to its successor, applied
// atomically by a Manager shared across request-handling goroutines.
// Because states are immutable and structurally shared, point-in-time
// snapshots are O(1) captures of the current state pointer; snapshot
// histories support named and automatic retention plus rollback by name,
// index, or timestamp.
//
// State is memory-resident only. Durability across process restarts and
// cross-process replication are out of scope.
package statestore
