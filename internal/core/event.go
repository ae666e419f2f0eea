package core

import "github.com/salon-chat/salon-server/internal/store"

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventSessionValid confirms a verified session and carries the
	// assigned room.
	EventSessionValid EventKind = iota
	// EventSessionInvalid rejects an unknown username.
	EventSessionInvalid
	// EventMessage carries one chat message or event notice.
	EventMessage
	// EventHistory delivers room message history to a client upon joining.
	EventHistory
	// EventRoomChanged tells the caller which room it now occupies.
	EventRoomChanged
	// EventUserList carries the live occupants of a room.
	EventUserList
	// EventRoomList carries the room catalog with live member counts.
	EventRoomList
	// EventCreateRoomSuccess confirms an explicit room creation.
	EventCreateRoomSuccess
	// EventCreateRoomFailed reports why an explicit creation was refused.
	EventCreateRoomFailed
	// EventError notifies the caller about a domain error.
	EventError
)

// SessionInfo is the session-valid payload.
type SessionInfo struct {
	Username string
	UserID   int64
	RoomName string
}

// UserInfo is one occupant in a user list broadcast.
type UserInfo struct {
	UserID   int64
	Username string
	Status   string
}

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind     EventKind
	Room     string
	Session  *SessionInfo
	Message  *store.Message
	Messages []*store.Message
	Users    []UserInfo
	Rooms    []RoomSummary
	Error    *CoreError
}
