// Package presence tracks which identities are connected to each room and
// evicts those whose heartbeats stop.
package presence

import (
	"sort"
	"sync"

	"diagramsync/application/ports"
	"diagramsync/domain/config"
	"diagramsync/domain/core/entities"
	"diagramsync/domain/core/valueobjects"
	"diagramsync/pkg/errors"

	"go.uber.org/zap"
)

// Tracker holds the presence set of every room. It is safe for concurrent use.
type Tracker struct {
	mu    sync.Mutex
	rooms map[string]map[string]*entities.PresenceEntry

	cfg    *config.SyncConfig
	clock  ports.Clock
	logger *zap.Logger
}

// NewTracker creates an empty tracker
func NewTracker(cfg *config.SyncConfig, clock ports.Clock, logger *zap.Logger) *Tracker {
	return &Tracker{
		rooms:  make(map[string]map[string]*entities.PresenceEntry),
		cfg:    cfg,
		clock:  clock,
		logger: logger,
	}
}

// Join inserts or replaces identity's entry in room and returns the room's list.
// A reconnecting identity replaces its previous entry rather than adding a second one.
func (t *Tracker) Join(room, identity, displayName string, role valueobjects.Role, connectionID string) ([]entities.PresenceEntry, error) {
	var missing []string
	if room == "" {
		missing = append(missing, "room")
	}
	if identity == "" {
		missing = append(missing, "identity")
	}
	if len(missing) > 0 {
		return nil, errors.NewMissingFields(missing...)
	}

	now := t.clock.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	members, ok := t.rooms[room]
	if !ok {
		members = make(map[string]*entities.PresenceEntry)
		t.rooms[room] = members
	}
	if displayName == "" {
		displayName = identity
	}
	members[identity] = &entities.PresenceEntry{
		Identity:      identity,
		DisplayName:   displayName,
		Role:          role,
		ConnectionID:  connectionID,
		JoinedAt:      now,
		LastHeartbeat: now,
	}

	return snapshot(members), nil
}

// Heartbeat refreshes identity's liveness. It reports false, without error,
// when the identity is not present (for example after eviction).
func (t *Tracker) Heartbeat(room, identity string) bool {
	now := t.clock.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.lookup(room, identity)
	if !ok {
		return false
	}
	entry.LastHeartbeat = now
	return true
}

// SetRole updates the role of a present identity. changed is false when the
// identity is absent or already holds role.
func (t *Tracker) SetRole(room, identity string, role valueobjects.Role) ([]entities.PresenceEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.lookup(room, identity)
	if !ok || entry.Role == role {
		return nil, false
	}
	entry.Role = role
	return snapshot(t.rooms[room]), true
}

// Leave removes identity from room and returns the updated list.
// Leaving a room one is not part of is a no-op with removed=false.
func (t *Tracker) Leave(room, identity string) (list []entities.PresenceEntry, removed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.remove(room, identity, "")
}

// LeaveConnection removes identity only if its entry still belongs to
// connectionID, so a stale socket closing cannot evict a newer reconnection.
func (t *Tracker) LeaveConnection(room, identity, connectionID string) (list []entities.PresenceEntry, removed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.remove(room, identity, connectionID)
}

// List returns the room's presence entries ordered by join time
func (t *Tracker) List(room string) []entities.PresenceEntry {
	t.mu.Lock()
	defer t.mu.Unlock()

	members, ok := t.rooms[room]
	if !ok {
		return []entities.PresenceEntry{}
	}
	return snapshot(members)
}

// Sweep evicts entries whose last heartbeat is at least the presence TTL old.
// The result maps each room that lost at least one entry to its pruned list;
// rooms with no evictions are absent. evicted counts removed entries.
func (t *Tracker) Sweep() (changed map[string][]entities.PresenceEntry, evicted int) {
	now := t.clock.Now()
	changed = make(map[string][]entities.PresenceEntry)

	t.mu.Lock()
	defer t.mu.Unlock()

	for room, members := range t.rooms {
		roomEvicted := 0
		for identity, entry := range members {
			if t.cfg.IsStale(entry.LastHeartbeat, now) {
				delete(members, identity)
				roomEvicted++
			}
		}
		if roomEvicted == 0 {
			continue
		}
		evicted += roomEvicted
		t.logger.Debug("Evicted stale presence entries",
			zap.String("room", room),
			zap.Int("evicted", roomEvicted),
		)
		changed[room] = snapshot(members)
		if len(members) == 0 {
			delete(t.rooms, room)
		}
	}

	return changed, evicted
}

// Member returns a copy of identity's entry in room
func (t *Tracker) Member(room, identity string) (entities.PresenceEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.lookup(room, identity)
	if !ok {
		return entities.PresenceEntry{}, false
	}
	return *entry, true
}

// RoomCount returns the number of rooms with at least one entry
func (t *Tracker) RoomCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.rooms)
}

func (t *Tracker) lookup(room, identity string) (*entities.PresenceEntry, bool) {
	members, ok := t.rooms[room]
	if !ok {
		return nil, false
	}
	entry, ok := members[identity]
	return entry, ok
}

func (t *Tracker) remove(room, identity, connectionID string) ([]entities.PresenceEntry, bool) {
	members, ok := t.rooms[room]
	if !ok {
		return []entities.PresenceEntry{}, false
	}
	entry, ok := members[identity]
	if !ok || (connectionID != "" && entry.ConnectionID != connectionID) {
		return snapshot(members), false
	}
	delete(members, identity)
	list := snapshot(members)
	if len(members) == 0 {
		delete(t.rooms, room)
	}
	return list, true
}

// snapshot copies the entries so callers never observe later mutations
func snapshot(members map[string]*entities.PresenceEntry) []entities.PresenceEntry {
	list := make([]entities.PresenceEntry, 0, len(members))
	for _, entry := range members {
		list = append(list, *entry)
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].JoinedAt.Equal(list[j].JoinedAt) {
			return list[i].JoinedAt.Before(list[j].JoinedAt)
		}
		return list[i].Identity < list[j].Identity
	})
	return list
}
