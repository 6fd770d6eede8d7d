package statestore

import (
	"fmt"
	"strings"
	"time"

	"github.com/fyrsmithlabs/tenantstate/pkg/persistent"
)

// CreateUserSession returns a transition that inserts or overwrites the
// session unconditionally. The expiry is computed when the transition is
// applied: ExpiresAt = now + ttl.
func CreateUserSession(sessionID, userData string, ttl time.Duration) Transition {
	return func(state *TenantState) *TenantState {
		now := time.Now().UTC()
		next := state.Clone()
		next.Sessions = state.Sessions.Set(sessionID, SessionData{
			UserData:  userData,
			ExpiresAt: now.Add(ttl),
		})
		next.LastUpdated = now
		return next
	}
}

// UpdateUserSession returns a transition that replaces an existing
// session's user data. When the session id is absent the transition is a
// silent no-op returning the state unchanged; callers needing existence
// checks must verify first. When extendTTL is positive the expiry is
// recomputed as now + extendTTL, otherwise the existing expiry is
// preserved.
func UpdateUserSession(sessionID, newUserData string, extendTTL time.Duration) (Transition, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("%w: session id cannot be empty", ErrInvalidParameters)
	}

	return func(state *TenantState) *TenantState {
		existing, ok := state.Sessions.Get(sessionID)
		if !ok {
			return state
		}

		updated := SessionData{
			UserData:  newUserData,
			ExpiresAt: existing.ExpiresAt,
		}
		if extendTTL > 0 {
			updated.ExpiresAt = time.Now().UTC().Add(extendTTL)
		}

		next := state.Clone()
		next.Sessions = state.Sessions.Set(sessionID, updated)
		next.LastUpdated = time.Now().UTC()
		return next
	}, nil
}

// RemoveUserSession returns a transition that removes the session.
// Removal is idempotent: an absent session id yields an equivalent state.
func RemoveUserSession(sessionID string) Transition {
	return func(state *TenantState) *TenantState {
		next := state.Clone()
		next.Sessions = state.Sessions.Delete(sessionID)
		next.LastUpdated = time.Now().UTC()
		return next
	}
}

// SetAppConfig returns a transition that inserts or overwrites the config
// entry. A blank key fails construction with ErrInvalidParameters; a
// non-nil validate that rejects value fails with ErrValidationFailed. Both
// checks run here, before any manager lock is taken.
func SetAppConfig(key string, value any, validate func(any) bool) (Transition, error) {
	if strings.TrimSpace(key) == "" {
		return nil, fmt.Errorf("%w: configuration key cannot be empty", ErrInvalidParameters)
	}
	if validate != nil && !validate(value) {
		return nil, fmt.Errorf("%w: %s: configuration value rejected by validator", ErrValidationFailed, key)
	}

	return func(state *TenantState) *TenantState {
		next := state.Clone()
		next.AppData = state.AppData.Set(key, value)
		next.LastUpdated = time.Now().UTC()
		return next
	}, nil
}

// RemoveAppConfig returns a transition that removes the config entry, a
// no-op for absent keys.
func RemoveAppConfig(key string) Transition {
	return func(state *TenantState) *TenantState {
		next := state.Clone()
		next.AppData = state.AppData.Delete(key)
		next.LastUpdated = time.Now().UTC()
		return next
	}
}

// TransformAppData returns a transition that reads the current value under
// key (or defaultValue when absent), applies transform, and stores the
// result. A transform error returns the original state unchanged; the
// error is swallowed at this layer so transitions stay total functions
// over state.
func TransformAppData(key string, transform func(any) (any, error), defaultValue any) (Transition, error) {
	if strings.TrimSpace(key) == "" {
		return nil, fmt.Errorf("%w: data key cannot be empty", ErrInvalidParameters)
	}

	return func(state *TenantState) *TenantState {
		current, ok := state.AppData.Get(key)
		if !ok {
			current = defaultValue
		}

		value, err := transform(current)
		if err != nil {
			return state
		}

		next := state.Clone()
		next.AppData = state.AppData.Set(key, value)
		next.LastUpdated = time.Now().UTC()
		return next
	}, nil
}

// CacheQueryResult returns a transition that appends a cache entry. The
// expiry is fixed at construction time. An empty query id or empty data
// fails construction with ErrInvalidParameters.
func CacheQueryResult(queryID string, data []byte, ttl time.Duration) (Transition, error) {
	if strings.TrimSpace(queryID) == "" {
		return nil, fmt.Errorf("%w: query id cannot be empty", ErrInvalidParameters)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: query data cannot be empty", ErrInvalidParameters)
	}

	entry := QueryResult{
		QueryID:   queryID,
		Data:      data,
		ExpiresAt: time.Now().UTC().Add(ttl),
	}

	return func(state *TenantState) *TenantState {
		next := state.Clone()
		next.QueryCache = state.QueryCache.Append(entry)
		next.LastUpdated = time.Now().UTC()
		return next
	}, nil
}

// CleanExpiredCache returns a transition that rebuilds the query cache
// keeping only entries with ExpiresAt after now.
func CleanExpiredCache() Transition {
	return func(state *TenantState) *TenantState {
		now := time.Now().UTC()

		cache := persistent.NewVector[QueryResult]()
		for entry := range state.QueryCache.Values() {
			if entry.ExpiresAt.After(now) {
				cache = cache.Append(entry)
			}
		}

		next := state.Clone()
		next.QueryCache = cache
		next.LastUpdated = now
		return next
	}
}

// CleanupExpiredSessions returns a maintenance transition that removes all
// sessions whose expiry is before now.
func CleanupExpiredSessions() Transition {
	return func(state *TenantState) *TenantState {
		now := time.Now().UTC()

		sessions := state.Sessions
		for id, session := range state.Sessions.All() {
			if session.ExpiresAt.Before(now) {
				sessions = sessions.Delete(id)
			}
		}

		next := state.Clone()
		next.Sessions = sessions
		next.LastUpdated = now
		return next
	}
}

// PruneCache returns a transition that caps the query cache at maxEntries,
// keeping the most recently appended rows.
func PruneCache(maxEntries int) Transition {
	return func(state *TenantState) *TenantState {
		next := state.Clone()

		if n := state.QueryCache.Len(); n > maxEntries {
			skip := n - maxEntries
			cache := persistent.NewVector[QueryResult]()
			for i, entry := range state.QueryCache.All() {
				if i >= skip {
					cache = cache.Append(entry)
				}
			}
			next.QueryCache = cache
		}

		next.LastUpdated = time.Now().UTC()
		return next
	}
}

// BuildLoginTransitions returns the ordered login sequence: clean the
// expired cache, create a session with a generated id, and stamp the
// user's last-login key in app data. Ordering is significant and must be
// preserved when applying.
func BuildLoginTransitions(userID, sessionData string, sessionTTL time.Duration) ([]Transition, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id cannot be empty", ErrInvalidParameters)
	}

	sessionID := fmt.Sprintf("session_%s_%d", userID, time.Now().Unix())

	lastLogin, err := TransformAppData(
		fmt.Sprintf("user_%s_last_login", userID),
		func(any) (any, error) { return time.Now().UTC().Format(time.RFC3339), nil },
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("building last-login update: %w", err)
	}

	return []Transition{
		CleanExpiredCache(),
		CreateUserSession(sessionID, sessionData, sessionTTL),
		lastLogin,
	}, nil
}

// BuildLogoutTransitions returns the ordered logout sequence: remove the
// session, then clean the expired cache.
func BuildLogoutTransitions(sessionID string) ([]Transition, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("%w: session id cannot be empty", ErrInvalidParameters)
	}

	return []Transition{
		RemoveUserSession(sessionID),
		CleanExpiredCache(),
	}, nil
}

// BuildConfigUpdates returns one transition per entry, suitable for
// applying as a single atomic batch. Any blank key fails the whole build.
func BuildConfigUpdates(updates map[string]any) ([]Transition, error) {
	transitions := make([]Transition, 0, len(updates))
	for key, value := range updates {
		t, err := SetAppConfig(key, value, nil)
		if err != nil {
			return nil, err
		}
		transitions = append(transitions, t)
	}
	return transitions, nil
}
