package statestore

import "time"

// Snapshot is an immutable capture of a tenant's state at one instant.
// Name is empty for automatic snapshots. Snapshots are created only by
// Manager.CreateSnapshot and destroyed only by retention pruning.
type Snapshot struct {
	// ID is the unique snapshot identifier.
	ID string

	// Name is the optional human-readable name; "" marks an automatic
	// snapshot.
	Name string

	// CreatedAt is the capture timestamp.
	CreatedAt time.Time

	// CreatedBy is the user id or system identifier that took the
	// snapshot.
	CreatedBy string

	// Description records why the snapshot was taken.
	Description string

	// Tags categorize the snapshot for filtering.
	Tags []string

	// State is the captured immutable state, shared with whatever the
	// tenant's current state was at capture time.
	State *TenantState
}

// SnapshotMetadata is a lightweight view of a snapshot without the state
// payload, tagged with its position in the history.
type SnapshotMetadata struct {
	Index       int       `json:"index"`
	ID          string    `json:"snapshot_id"`
	Name        string    `json:"name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	CreatedBy   string    `json:"created_by"`
	Description string    `json:"description,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
}

// SnapshotHistory is the append-only, ordered snapshot log of one tenant,
// oldest first. Automatic and named snapshots are retained under
// independent limits, each pruned oldest-first without disturbing the
// other class. SnapshotHistory is not safe for concurrent use; the
// Manager serializes access behind its history lock.
type SnapshotHistory struct {
	snapshots []Snapshot
	named     map[string]int
	maxAuto   int
	maxNamed  int
}

// NewSnapshotHistory returns an empty history with the given retention
// limits for automatic and named snapshots.
func NewSnapshotHistory(maxAuto, maxNamed int) *SnapshotHistory {
	return &SnapshotHistory{
		named:    make(map[string]int),
		maxAuto:  maxAuto,
		maxNamed: maxNamed,
	}
}

// Add appends a snapshot, indexes its name when present, then prunes the
// just-added snapshot's retention class.
func (h *SnapshotHistory) Add(s Snapshot) {
	if s.Name != "" {
		h.named[s.Name] = len(h.snapshots)
	}
	h.snapshots = append(h.snapshots, s)
	h.prune(s.Name != "")
}

// prune removes the oldest snapshots of the given class while that class
// exceeds its limit. Survivors keep their relative order and the other
// class is never touched. Any removal can shift positions of later
// snapshots, so the name index is rebuilt whenever something was pruned.
func (h *SnapshotHistory) prune(named bool) {
	var count int
	for _, s := range h.snapshots {
		if (s.Name != "") == named {
			count++
		}
	}

	limit := h.maxAuto
	if named {
		limit = h.maxNamed
	}
	if count <= limit {
		return
	}

	toRemove := count - limit
	kept := h.snapshots[:0]
	for _, s := range h.snapshots {
		if toRemove > 0 && (s.Name != "") == named {
			toRemove--
			continue
		}
		kept = append(kept, s)
	}
	h.snapshots = kept
	h.rebuildNamedIndex()
}

// rebuildNamedIndex recomputes the name-to-position map from scratch.
func (h *SnapshotHistory) rebuildNamedIndex() {
	clear(h.named)
	for i, s := range h.snapshots {
		if s.Name != "" {
			h.named[s.Name] = i
		}
	}
}

// Named returns the snapshot with the given name.
func (h *SnapshotHistory) Named(name string) (Snapshot, bool) {
	i, ok := h.named[name]
	if !ok || i >= len(h.snapshots) {
		return Snapshot{}, false
	}
	return h.snapshots[i], true
}

// Latest returns the most recently added snapshot.
func (h *SnapshotHistory) Latest() (Snapshot, bool) {
	if len(h.snapshots) == 0 {
		return Snapshot{}, false
	}
	return h.snapshots[len(h.snapshots)-1], true
}

// ByIndex returns the snapshot at position i, where 0 is the oldest.
func (h *SnapshotHistory) ByIndex(i int) (Snapshot, bool) {
	if i < 0 || i >= len(h.snapshots) {
		return Snapshot{}, false
	}
	return h.snapshots[i], true
}

// AtTime returns the most recent snapshot whose CreatedAt is not after ts,
// scanning newest to oldest.
func (h *SnapshotHistory) AtTime(ts time.Time) (Snapshot, bool) {
	for i := len(h.snapshots) - 1; i >= 0; i-- {
		if !h.snapshots[i].CreatedAt.After(ts) {
			return h.snapshots[i], true
		}
	}
	return Snapshot{}, false
}

// Count returns the total number of retained snapshots, both classes.
func (h *SnapshotHistory) Count() int {
	return len(h.snapshots)
}

// List returns metadata for every snapshot in order, each tagged with its
// current index.
func (h *SnapshotHistory) List() []SnapshotMetadata {
	out := make([]SnapshotMetadata, len(h.snapshots))
	for i, s := range h.snapshots {
		out[i] = SnapshotMetadata{
			Index:       i,
			ID:          s.ID,
			Name:        s.Name,
			CreatedAt:   s.CreatedAt,
			CreatedBy:   s.CreatedBy,
			Description: s.Description,
			Tags:        s.Tags,
		}
	}
	return out
}
