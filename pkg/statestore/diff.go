package statestore

import (
	"fmt"
	"sort"
	"strings"
)

// StateDiffSummary compares two states and reports what changed between
// them as human-readable entries. Useful when inspecting what a transition
// or a rollback did between snapshots.
//
// Keys present in the result: "sessions" and "cache_entries" when the
// counts differ (formatted "old -> new"), and "added_keys"/"removed_keys"
// listing app-data keys sorted alphabetically.
func StateDiffSummary(oldState, newState *TenantState) map[string]string {
	diff := make(map[string]string)

	if o, n := oldState.Sessions.Len(), newState.Sessions.Len(); o != n {
		diff["sessions"] = fmt.Sprintf("%d -> %d", o, n)
	}

	oldKeys := make(map[string]bool)
	for k := range oldState.AppData.Keys() {
		oldKeys[k] = true
	}
	newKeys := make(map[string]bool)
	for k := range newState.AppData.Keys() {
		newKeys[k] = true
	}

	var added, removed []string
	for k := range newKeys {
		if !oldKeys[k] {
			added = append(added, k)
		}
	}
	for k := range oldKeys {
		if !newKeys[k] {
			removed = append(removed, k)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)

	if len(added) > 0 {
		diff["added_keys"] = strings.Join(added, ", ")
	}
	if len(removed) > 0 {
		diff["removed_keys"] = strings.Join(removed, ", ")
	}

	if o, n := oldState.QueryCache.Len(), newState.QueryCache.Len(); o != n {
		diff["cache_entries"] = fmt.Sprintf("%d -> %d", o, n)
	}

	return diff
}
