package core

import "sort"

// Registry is the in-memory presence map from room name to the set of
// currently-joined identities. It has no locking: all access is confined to
// the hub goroutine, which runs handlers to completion between suspension
// points.
type Registry struct {
	rooms map[string]map[string]struct{}
}

// NewRegistry creates an empty presence registry.
func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]map[string]struct{})}
}

// Join adds identity to room's member set, creating the room entry lazily.
// Reports whether the set changed; rejoining is a no-op on the set.
func (r *Registry) Join(room, identity string) bool {
	members, ok := r.rooms[room]
	if !ok {
		members = make(map[string]struct{})
		r.rooms[room] = members
	}
	if _, ok := members[identity]; ok {
		return false
	}
	members[identity] = struct{}{}
	return true
}

// Leave removes identity from room's member set, pruning the room entry when
// it empties. Unknown room or identity is a no-op.
func (r *Registry) Leave(room, identity string) bool {
	members, ok := r.rooms[room]
	if !ok {
		return false
	}
	if _, ok := members[identity]; !ok {
		return false
	}
	delete(members, identity)
	if len(members) == 0 {
		delete(r.rooms, room)
	}
	return true
}

// Members returns a snapshot of room's member set, sorted ascending so the
// serialized list is deterministic.
func (r *Registry) Members(room string) []string {
	members := make([]string, 0, len(r.rooms[room]))
	for id := range r.rooms[room] {
		members = append(members, id)
	}
	sort.Strings(members)
	return members
}

// Contains reports whether identity is currently a member of room.
func (r *Registry) Contains(room, identity string) bool {
	_, ok := r.rooms[room][identity]
	return ok
}

// RoomCount returns the number of rooms with at least one member.
func (r *Registry) RoomCount() int {
	return len(r.rooms)
}
