package multiplayer

import (
	"sort"
	"sync"
)

// Registry owns the live rooms of one kind, keyed by id.
// Thread-safe for concurrent access.
type Registry[R any] struct {
	mu     sync.Mutex
	rooms  map[string]R
	create func(id string) R
}

// NewRegistry creates a registry that builds missing rooms with create.
func NewRegistry[R any](create func(id string) R) *Registry[R] {
	return &Registry[R]{
		rooms:  make(map[string]R),
		create: create,
	}
}

// GetOrCreate returns the room with id, creating it if needed.
func (r *Registry[R]) GetOrCreate(id string) (R, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if room, ok := r.rooms[id]; ok {
		return room, false
	}
	room := r.create(id)
	r.rooms[id] = room
	return room, true
}

// Get retrieves a room by id.
func (r *Registry[R]) Get(id string) (R, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[id]
	return room, ok
}

// RemoveIf deletes the room with id when pred reports true for it.
// pred runs under the registry lock and must not call back into the registry.
func (r *Registry[R]) RemoveIf(id string, pred func(R) bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[id]
	if !ok || (pred != nil && !pred(room)) {
		return false
	}
	delete(r.rooms, id)
	return true
}

// Len returns the number of rooms.
func (r *Registry[R]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}

// Snapshot returns all rooms ordered by id.
func (r *Registry[R]) Snapshot() []R {
	r.mu.Lock()
	ids := make([]string, 0, len(r.rooms))
	for id := range r.rooms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]R, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.rooms[id])
	}
	r.mu.Unlock()
	return out
}
