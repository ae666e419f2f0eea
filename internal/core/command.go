package core

import "github.com/salon-chat/salon-server/internal/store"

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandVerifySession binds the connection to a known user and
	// restores (or assigns) their room.
	CommandVerifySession CommandKind = iota
	// CommandSendMessage delivers a chat message to the sender's room.
	CommandSendMessage
	// CommandEnterRoom switches the client to another room, creating it
	// if absent.
	CommandEnterRoom
	// CommandTryCreateRoom explicitly creates a room, failing on collision.
	CommandTryCreateRoom
	// CommandPostAttachment forwards an already-persisted upload message
	// to the owner's current room.
	CommandPostAttachment

	// commandRegister and commandDisconnect are internal control commands
	// enqueued by RegisterClient/UnregisterClient.
	commandRegister
	commandDisconnect
)

// Command represents an action requested by a client. The origin client is
// stamped by the hub's per-client forwarder before processing.
type Command struct {
	Kind     CommandKind
	Username string
	Room     string
	Text     string
	Message  *store.Message
	// UserID addresses commands submitted out-of-band (attachment upload),
	// where the originating HTTP request is not a live ws client.
	UserID int64

	client *Client
}
