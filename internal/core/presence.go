package core

import "github.com/samber/lo"

// StatusOnline is the only presence status currently emitted.
const StatusOnline = "online"

// PresenceEntry is the live fact that a connection is authenticated as a
// user and located in a room. Room is "" only transiently, before the
// first room assignment.
type PresenceEntry struct {
	ConnID   string
	UserID   int64
	Username string
	Room     string
	RoomID   int64
	Status   string
}

// PresenceTable is the authoritative in-memory mapping of live connections
// to user identity and current room. At most one entry exists per ConnID
// and per UserID. It is not safe for concurrent use: the hub goroutine is
// the only permitted caller.
type PresenceTable struct {
	entries []*PresenceEntry
}

// NewPresenceTable returns an empty table.
func NewPresenceTable() *PresenceTable {
	return &PresenceTable{}
}

// Add registers a connection as a user and returns the new entry. Any
// existing entry for the same connection or the same user is superseded,
// so lookups by user stay unambiguous. The superseded connection is not
// closed; it simply stops being tracked.
func (p *PresenceTable) Add(connID string, userID int64, username string) *PresenceEntry {
	p.entries = lo.Filter(p.entries, func(e *PresenceEntry, _ int) bool {
		return e.ConnID != connID && e.UserID != userID
	})

	entry := &PresenceEntry{
		ConnID:   connID,
		UserID:   userID,
		Username: username,
		Status:   StatusOnline,
	}
	p.entries = append(p.entries, entry)
	return entry
}

// Remove deletes the entry for the connection, if any.
func (p *PresenceTable) Remove(connID string) {
	p.entries = lo.Filter(p.entries, func(e *PresenceEntry, _ int) bool {
		return e.ConnID != connID
	})
}

// SetRoom updates the connection's current room. No-op for unknown connections.
func (p *PresenceTable) SetRoom(connID, room string, roomID int64) *PresenceEntry {
	entry, ok := p.ByConnection(connID)
	if !ok {
		return nil
	}
	entry.Room = room
	entry.RoomID = roomID
	return entry
}

// ByConnection looks up the entry for a connection.
func (p *PresenceTable) ByConnection(connID string) (*PresenceEntry, bool) {
	return lo.Find(p.entries, func(e *PresenceEntry) bool {
		return e.ConnID == connID
	})
}

// ByUserID looks up the entry for a user.
func (p *PresenceTable) ByUserID(userID int64) (*PresenceEntry, bool) {
	return lo.Find(p.entries, func(e *PresenceEntry) bool {
		return e.UserID == userID
	})
}

// ByUsername looks up the entry for a username.
func (p *PresenceTable) ByUsername(username string) (*PresenceEntry, bool) {
	return lo.Find(p.entries, func(e *PresenceEntry) bool {
		return e.Username == username
	})
}

// UsersInRoom returns the live entries located in the room, in insertion order.
func (p *PresenceTable) UsersInRoom(room string) []*PresenceEntry {
	return lo.Filter(p.entries, func(e *PresenceEntry, _ int) bool {
		return e.Room == room
	})
}

// ActiveRoomNames returns the distinct rooms that currently have at least
// one live connection.
func (p *PresenceTable) ActiveRoomNames() []string {
	return lo.Uniq(lo.FilterMap(p.entries, func(e *PresenceEntry, _ int) (string, bool) {
		return e.Room, e.Room != ""
	}))
}

// Len returns the number of live entries.
func (p *PresenceTable) Len() int {
	return len(p.entries)
}
