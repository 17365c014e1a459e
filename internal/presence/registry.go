package presence

import (
	"sort"
	"sync"
)

// Registry is the process-wide set of currently connected users. A user
// is online while at least one session holds a slot. State is rebuilt
// from scratch on restart: everyone starts offline.
type Registry struct {
	mu       sync.RWMutex
	sessions map[int]int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[int]int)}
}

// MarkOnline records one live session for the user. It reports whether
// the user just came online, together with the resulting snapshot.
func (r *Registry) MarkOnline(userID int) (bool, []int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[userID]++
	return r.sessions[userID] == 1, r.snapshotLocked()
}

// MarkOffline releases one session slot. It reports whether the user
// just went offline, together with the resulting snapshot. Unknown users
// are a no-op.
func (r *Registry) MarkOffline(userID int) (bool, []int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count, ok := r.sessions[userID]
	if !ok {
		return false, r.snapshotLocked()
	}
	if count <= 1 {
		delete(r.sessions, userID)
		return true, r.snapshotLocked()
	}
	r.sessions[userID] = count - 1
	return false, r.snapshotLocked()
}

// IsOnline is a point-in-time membership check. Callers must tolerate
// staleness against concurrent disconnects.
func (r *Registry) IsOnline(userID int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[userID] > 0
}

// Snapshot returns the online user ids, sorted ascending.
func (r *Registry) Snapshot() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked()
}

func (r *Registry) snapshotLocked() []int {
	ids := make([]int, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
