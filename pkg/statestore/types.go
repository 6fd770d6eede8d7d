package statestore

import (
	"time"

	"github.com/fyrsmithlabs/tenantstate/pkg/persistent"
)

// TenantMetadata identifies a tenant. Only ID is interpreted by the store;
// Name and Labels are carried through opaquely for the caller's benefit.
type TenantMetadata struct {
	// ID is the unique tenant identifier and partition key.
	ID string `json:"id"`

	// Name is a human-readable tenant name.
	Name string `json:"name"`

	// Labels carries opaque caller-defined metadata.
	Labels map[string]string `json:"labels,omitempty"`
}

// SessionData is one user session. Sessions are value-replaced by update
// transitions, never mutated in place.
type SessionData struct {
	// UserData typically holds the user id and serialized session claims.
	UserData string `json:"user_data"`

	// ExpiresAt is the session expiration timestamp.
	ExpiresAt time.Time `json:"expires_at"`
}

// QueryResult is one cached query entry.
type QueryResult struct {
	// QueryID uniquely identifies the cached query.
	QueryID string `json:"query_id"`

	// Data is the serialized query result.
	Data []byte `json:"data"`

	// ExpiresAt is the cache expiration timestamp.
	ExpiresAt time.Time `json:"expires_at"`
}

// TenantState is the complete immutable state of one tenant.
//
// A *TenantState is shared between the manager's current-state slot and
// any snapshots that captured it; this sharing is what makes snapshot
// creation O(1). Callers receiving a *TenantState must treat it as
// read-only. New versions are produced by transitions via Clone.
type TenantState struct {
	// Tenant is the metadata supplied at initialization.
	Tenant TenantMetadata

	// Sessions maps session id to session data.
	Sessions persistent.Map[string, SessionData]

	// AppData maps configuration key to a JSON-compatible value.
	AppData persistent.Map[string, any]

	// QueryCache holds cached query results, oldest first.
	QueryCache persistent.Vector[QueryResult]

	// LastUpdated is stamped by the manager after every applied
	// transition.
	LastUpdated time.Time
}

// Clone returns a shallow copy suitable for building the successor state.
// The persistent fields share structure with the receiver, so a clone is
// cheap regardless of state size.
func (s *TenantState) Clone() *TenantState {
	next := *s
	return &next
}

// newTenantState builds the empty initial state for a tenant.
func newTenantState(meta TenantMetadata) *TenantState {
	return &TenantState{
		Tenant:      meta,
		Sessions:    persistent.NewMap[string, SessionData](),
		AppData:     persistent.NewMap[string, any](),
		QueryCache:  persistent.NewVector[QueryResult](),
		LastUpdated: time.Now().UTC(),
	}
}

// Transition maps one immutable tenant state to its successor. Transitions
// must be pure, fast, in-memory computations: they run while the manager
// holds its state write lock and must not panic or block on I/O.
type Transition func(*TenantState) *TenantState

// FallibleTransition is a transition whose application can fail. A nil
// error commits the returned state; a non-nil error aborts with no state
// change and the error surfaced to the caller.
type FallibleTransition func(*TenantState) (*TenantState, error)

// Fallible adapts a Transition to the FallibleTransition contract.
func (t Transition) Fallible() FallibleTransition {
	return func(state *TenantState) (*TenantState, error) {
		return t(state), nil
	}
}
