package statestore

import (
	"fmt"
	"time"
)

// TransitionContext carries audit metadata through multi-step transition
// chains. It is informational only; the store does not interpret it.
type TransitionContext struct {
	// UserID is the initiating user, if any.
	UserID string

	// Timestamp is when the chain was assembled.
	Timestamp time.Time

	// Metadata holds additional caller-defined values.
	Metadata map[string]any
}

// NewTransitionContext returns a context stamped with the current time.
func NewTransitionContext(userID string) TransitionContext {
	return TransitionContext{
		UserID:    userID,
		Timestamp: time.Now().UTC(),
		Metadata:  make(map[string]any),
	}
}

// TransactionBuilder assembles an ordered batch of transitions, each with
// an optional checkpoint name for snapshot correlation. Building records
// the intended checkpoint names alongside each step; it never creates
// snapshots itself. Snapshot creation stays with the caller.
type TransactionBuilder struct {
	transitions []Transition
	checkpoints []string
}

// NewTransactionBuilder returns an empty builder.
func NewTransactionBuilder() *TransactionBuilder {
	return &TransactionBuilder{}
}

// Add appends a transition with no checkpoint.
func (b *TransactionBuilder) Add(t Transition) *TransactionBuilder {
	b.transitions = append(b.transitions, t)
	b.checkpoints = append(b.checkpoints, "")
	return b
}

// AddCheckpoint appends a transition tagged with a checkpoint name.
func (b *TransactionBuilder) AddCheckpoint(name string, t Transition) *TransactionBuilder {
	b.transitions = append(b.transitions, t)
	b.checkpoints = append(b.checkpoints, name)
	return b
}

// Build returns the ordered transitions and their parallel checkpoint
// names ("" marks a step without one).
func (b *TransactionBuilder) Build() ([]Transition, []string) {
	return b.transitions, b.checkpoints
}

// BuildUserOnboardingTransaction assembles the multi-step onboarding flow:
// create the user's session, apply each initial config entry, then mark
// onboarding complete. Every step carries a checkpoint name so callers can
// correlate snapshots for fine-grained rollback.
func BuildUserOnboardingTransaction(userID string, sessionTTL time.Duration, initialConfig map[string]any) *TransactionBuilder {
	builder := NewTransactionBuilder()

	sessionID := fmt.Sprintf("session_%s", userID)
	builder.AddCheckpoint("session_created", CreateUserSession(sessionID, userID, sessionTTL))

	for key, value := range initialConfig {
		builder.AddCheckpoint(fmt.Sprintf("config_%s", key), func(state *TenantState) *TenantState {
			next := state.Clone()
			next.AppData = state.AppData.Set(key, value)
			next.LastUpdated = time.Now().UTC()
			return next
		})
	}

	onboardedKey := fmt.Sprintf("user_%s_onboarded", userID)
	builder.AddCheckpoint("onboarding_complete", func(state *TenantState) *TenantState {
		next := state.Clone()
		next.AppData = state.AppData.Set(onboardedKey, true)
		next.LastUpdated = time.Now().UTC()
		return next
	})

	return builder
}
