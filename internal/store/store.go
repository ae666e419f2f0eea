package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned on unique constraint violations (username, room name).
	ErrDuplicate = errors.New("already exists")
)

// User represents a registered account.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	IsSystem     bool
	CreatedAt    time.Time
}

// Room represents a chat room. Names are stored normalized (trimmed,
// first rune upper, remainder lower) and are unique.
type Room struct {
	ID          int64
	Name        string
	IsPermanent bool
	CreatedAt   time.Time
}

// Membership is the durable (room, user) relation. A user belongs to at
// most one room; joining a new room replaces the previous row. It is the
// source of truth for restoring a user's room on reconnect.
type Membership struct {
	RoomID   int64
	UserID   int64
	JoinedAt time.Time
}

// MessageType classifies a persisted message. Everything except
// TypeUserMessage is an event notice attributed to the system user.
type MessageType string

const (
	TypeUserMessage    MessageType = "USER_MESSAGE"
	TypeUserJoin       MessageType = "USER_JOIN"
	TypeUserLeave      MessageType = "USER_LEAVE"
	TypeUserDisconnect MessageType = "USER_DISCONNECT"
	TypeRoomCreated    MessageType = "ROOM_CREATED"
	TypeSystemInfo     MessageType = "SYSTEM_INFO"
	TypeSystemAlert    MessageType = "SYSTEM_ALERT"
	TypeSystemError    MessageType = "SYSTEM_ERROR"
)

// Attachment is upload metadata stored one-to-one with a message.
type Attachment struct {
	FilePath     string
	FileType     string
	FileSize     int64
	OriginalName string
}

// Message is a persisted chat message or event notice. Immutable once written.
type Message struct {
	ID         int64
	UserID     int64
	Username   string
	RoomID     int64
	Content    string
	Type       MessageType
	CreatedAt  time.Time
	Attachment *Attachment
}

// CredentialStore persists accounts.
type CredentialStore interface {
	// CreateUser inserts a new account. Returns ErrDuplicate if the
	// username is taken.
	CreateUser(ctx context.Context, username, passwordHash string) (*User, error)

	// GetUserByUsername retrieves an account by username. The system
	// account is excluded. Returns ErrNotFound if absent.
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// GetUserByID retrieves an account by ID.
	GetUserByID(ctx context.Context, id int64) (*User, error)

	// SystemUserID returns the ID of the reserved system account that
	// event messages are attributed to.
	SystemUserID() int64
}

// RoomStore persists the room catalog and memberships.
type RoomStore interface {
	// CreateRoom inserts a room. The name must already be normalized.
	// Returns ErrDuplicate on a name collision.
	CreateRoom(ctx context.Context, name string, permanent bool) (*Room, error)

	// CreateRoomWithMember atomically creates a room and the creator's
	// membership. If the membership insert fails the room row is rolled
	// back, so the catalog never exposes a brand-new room with zero members.
	CreateRoomWithMember(ctx context.Context, name string, permanent bool, userID int64) (*Room, error)

	// GetRoomByName retrieves a room by its normalized name.
	GetRoomByName(ctx context.Context, name string) (*Room, error)

	// GetAllRooms lists the full room catalog.
	GetAllRooms(ctx context.Context) ([]*Room, error)

	// JoinRoomByName moves the user into the named room, creating the room
	// if absent and replacing any previous membership row.
	JoinRoomByName(ctx context.Context, userID int64, name string) (*Room, error)

	// JoinRoomByID moves the user into an existing room by ID.
	JoinRoomByID(ctx context.Context, userID, roomID int64) error

	// LeaveRoom deletes the user's membership row, if any.
	LeaveRoom(ctx context.Context, userID int64) error

	// GetMembershipRoom returns the room the user is durably a member of,
	// or ErrNotFound.
	GetMembershipRoom(ctx context.Context, userID int64) (*Room, error)

	// GetUsersInRoom lists the users holding a membership row for the room.
	GetUsersInRoom(ctx context.Context, roomID int64) ([]*User, error)

	// DeleteEmptyRooms deletes every non-permanent room with zero
	// membership rows and reports how many were removed. Permanent rooms
	// survive regardless of member count.
	DeleteEmptyRooms(ctx context.Context) (int64, error)

	// DeleteRoom removes a room and its memberships. Refuses permanent rooms.
	DeleteRoom(ctx context.Context, roomID int64) error
}

// MessageStore persists the per-room message log.
type MessageStore interface {
	// SaveMessage appends a message, with optional attachment metadata.
	// The stored ID and timestamp are written back into msg.
	SaveMessage(ctx context.Context, msg *Message) error

	// ListMessagesByRoom returns up to limit most recent messages for the
	// room, oldest first.
	ListMessagesByRoom(ctx context.Context, roomID int64, limit int) ([]*Message, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	CredentialStore
	RoomStore
	MessageStore

	// Close closes the underlying database connection.
	Close() error
}
