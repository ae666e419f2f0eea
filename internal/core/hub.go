package core

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/salon-chat/salon-server/internal/store"
)

// DefaultRoomName is the permanent room users are assigned to when they
// have no durable membership.
const DefaultRoomName = "General"

const systemUsername = "system"

// presenceQuery is a synchronous read of the presence table from outside
// the hub goroutine (attachment upload path).
type presenceQuery struct {
	userID int64
	reply  chan *PresenceEntry
}

// Hub is the room coordinator: the single writer of presence state and of
// room/membership rows in response to live traffic. All mutations are
// serialized through one goroutine draining the command queue, so event
// ordering is deterministic and the presence table needs no locking.
type Hub struct {
	store        store.Store
	presence     *PresenceTable
	gateway      *Gateway
	commands     chan *Command
	queries      chan presenceQuery
	historyLimit int
	log          *zerolog.Logger
}

// NewHub constructs a hub over the given store. historyLimit caps the
// message history page served on room entry.
func NewHub(st store.Store, historyLimit int, logger *zerolog.Logger) *Hub {
	presence := NewPresenceTable()
	return &Hub{
		store:        st,
		presence:     presence,
		gateway:      NewGateway(presence, logger),
		commands:     make(chan *Command, 256),
		queries:      make(chan presenceQuery),
		historyLimit: historyLimit,
		log:          logger,
	}
}

// Run processes commands until the context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-h.commands:
			h.dispatch(ctx, cmd)
		case q := <-h.queries:
			if entry, ok := h.presence.ByUserID(q.userID); ok {
				copied := *entry
				q.reply <- &copied
			} else {
				q.reply <- nil
			}
		}
	}
}

// RegisterClient adds the client to the delivery table and starts
// forwarding its commands into the hub queue. Per-client command order is
// preserved.
func (h *Hub) RegisterClient(c *Client) {
	h.commands <- &Command{Kind: commandRegister, client: c}

	go func() {
		for cmd := range c.Commands {
			cmd.client = c
			h.commands <- cmd
		}
		h.commands <- &Command{Kind: commandDisconnect, client: c}
	}()
}

// UnregisterClient runs the disconnect path for the client after any
// commands it already queued. Must be called exactly once, by the
// connection handler that owns the client.
func (h *Hub) UnregisterClient(c *Client) {
	close(c.Commands)
}

// PostAttachment forwards an already-persisted upload message to the
// owner's current room.
func (h *Hub) PostAttachment(userID int64, msg *store.Message) {
	h.commands <- &Command{Kind: CommandPostAttachment, UserID: userID, Message: msg}
}

// CurrentPresence returns a snapshot of the user's presence entry, or
// false if the user has no live connection.
func (h *Hub) CurrentPresence(userID int64) (*PresenceEntry, bool) {
	q := presenceQuery{userID: userID, reply: make(chan *PresenceEntry, 1)}
	h.queries <- q
	entry := <-q.reply
	return entry, entry != nil
}

func (h *Hub) dispatch(ctx context.Context, cmd *Command) {
	switch cmd.Kind {
	case commandRegister:
		h.gateway.addClient(cmd.client)
	case commandDisconnect:
		h.handleDisconnect(ctx, cmd.client)
	case CommandVerifySession:
		h.handleVerifySession(ctx, cmd.client, cmd.Username)
	case CommandSendMessage:
		h.handleSendMessage(ctx, cmd.client, cmd.Text)
	case CommandEnterRoom:
		h.handleEnterRoom(ctx, cmd.client, cmd.Room)
	case CommandTryCreateRoom:
		h.handleTryCreateRoom(ctx, cmd.client, cmd.Room)
	case CommandPostAttachment:
		h.handlePostAttachment(cmd.UserID, cmd.Message)
	}
}

// handleVerifySession binds the connection to a known user, restores the
// durable room (or assigns the default one) and announces the arrival.
func (h *Hub) handleVerifySession(ctx context.Context, c *Client, username string) {
	user, err := h.store.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.gateway.Deliver(ToConn(c.ConnID), &Event{Kind: EventSessionInvalid})
			return
		}
		h.storeFailure(c, "verify session", err)
		return
	}

	room, err := h.store.GetMembershipRoom(ctx, user.ID)
	if errors.Is(err, store.ErrNotFound) {
		room, err = h.store.JoinRoomByName(ctx, user.ID, DefaultRoomName)
	}
	if err != nil {
		h.storeFailure(c, "restore room", err)
		return
	}

	h.presence.Add(c.ConnID, user.ID, user.Username)
	h.presence.SetRoom(c.ConnID, room.Name, room.ID)

	h.log.Info().Str("conn_id", c.ConnID).Str("username", user.Username).Str("room", room.Name).Msg("session verified")

	h.gateway.Deliver(ToConn(c.ConnID), &Event{
		Kind: EventSessionValid,
		Room: room.Name,
		Session: &SessionInfo{
			Username: user.Username,
			UserID:   user.ID,
			RoomName: room.Name,
		},
	})
	h.sendHistory(ctx, c, room)

	if notice, err := h.systemNotice(ctx, room.ID, store.TypeUserJoin, user.Username+" joined the room"); err != nil {
		h.log.Error().Err(err).Msg("persist join notice")
	} else {
		h.gateway.Deliver(ToRoomExcept(room.Name, c.ConnID), &Event{Kind: EventMessage, Room: room.Name, Message: notice})
	}

	h.gateway.Deliver(ToRoom(room.Name), h.userList(room.Name))
	h.broadcastRoomList(ctx)
}

// handleSendMessage persists a user message and fans it out to the
// sender's room, sender included.
func (h *Hub) handleSendMessage(ctx context.Context, c *Client, text string) {
	entry, ok := h.presence.ByConnection(c.ConnID)
	if !ok || entry.Room == "" {
		h.errorTo(c, ErrCodeNotAuthenticated, "you must be connected to send messages")
		return
	}

	msg := &store.Message{
		UserID:   entry.UserID,
		Username: entry.Username,
		RoomID:   entry.RoomID,
		Content:  text,
		Type:     store.TypeUserMessage,
	}
	if err := h.store.SaveMessage(ctx, msg); err != nil {
		h.storeFailure(c, "save message", err)
		return
	}

	h.gateway.Deliver(ToRoom(entry.Room), &Event{Kind: EventMessage, Room: entry.Room, Message: msg})
}

// handleEnterRoom is the room-switch state machine entry point.
func (h *Hub) handleEnterRoom(ctx context.Context, c *Client, rawName string) {
	entry, ok := h.presence.ByConnection(c.ConnID)
	if !ok {
		h.errorTo(c, ErrCodeNotAuthenticated, "you must be connected")
		return
	}
	if !validRoomName(rawName) {
		h.errorTo(c, ErrCodeInvalidName, "invalid room name: "+rawName)
		return
	}

	name := NormalizeRoomName(rawName)
	if entry.Room == name {
		// No membership or broadcast side effects, an alert to the caller only.
		h.gateway.Deliver(ToConn(c.ConnID), systemEvent(store.TypeSystemAlert, "You are already in this room."))
		return
	}

	room, err := h.getOrCreateRoom(ctx, name)
	if err != nil {
		h.storeFailure(c, "get or create room", err)
		return
	}

	h.switchRoom(ctx, c, entry, room, false)
}

// handleTryCreateRoom explicitly creates a room. The room row and the
// creator's membership are written in one transaction; a collision under
// normalization is refused.
func (h *Hub) handleTryCreateRoom(ctx context.Context, c *Client, rawName string) {
	entry, ok := h.presence.ByConnection(c.ConnID)
	if !ok {
		h.createRoomFailed(c, ErrCodeNotAuthenticated, "you must be connected")
		return
	}
	if !validRoomName(rawName) {
		h.createRoomFailed(c, ErrCodeInvalidName, "invalid room name: "+rawName)
		return
	}

	name := NormalizeRoomName(rawName)
	room, err := h.store.CreateRoomWithMember(ctx, name, false, entry.UserID)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			h.createRoomFailed(c, ErrCodeRoomExists, "a room with this name already exists")
			return
		}
		h.log.Error().Err(err).Str("room", name).Msg("create room")
		h.createRoomFailed(c, ErrCodeStoreFailure, "could not create the room")
		return
	}

	h.switchRoom(ctx, c, entry, room, true)
}

// switchRoom performs the shared leave/join side effects of a completed
// room transition. When created is true the membership row was already
// written by the creation transaction.
func (h *Hub) switchRoom(ctx context.Context, c *Client, entry *PresenceEntry, room *store.Room, created bool) {
	prevRoom, prevRoomID := entry.Room, entry.RoomID

	if !created {
		if err := h.store.JoinRoomByID(ctx, entry.UserID, room.ID); err != nil {
			h.storeFailure(c, "move membership", err)
			return
		}
	}

	// Presence moves with the durable membership; user lists computed from
	// here on exclude the mover from the old room.
	h.presence.SetRoom(c.ConnID, room.Name, room.ID)

	if prevRoom != "" {
		if notice, err := h.systemNotice(ctx, prevRoomID, store.TypeUserLeave, entry.Username+" left the room"); err != nil {
			h.log.Error().Err(err).Msg("persist leave notice")
		} else {
			h.gateway.Deliver(ToRoom(prevRoom), &Event{Kind: EventMessage, Room: prevRoom, Message: notice})
		}
		h.gateway.Deliver(ToRoom(prevRoom), h.userList(prevRoom))
		h.pruneEmptyRooms(ctx)
	}

	if created {
		if notice, err := h.systemNotice(ctx, room.ID, store.TypeRoomCreated, entry.Username+" created the room "+room.Name); err != nil {
			h.log.Error().Err(err).Msg("persist room-created notice")
		} else {
			h.gateway.Deliver(ToRoomExcept(room.Name, c.ConnID), &Event{Kind: EventMessage, Room: room.Name, Message: notice})
		}
		h.gateway.Deliver(ToConn(c.ConnID), &Event{Kind: EventCreateRoomSuccess, Room: room.Name})
	} else {
		if notice, err := h.systemNotice(ctx, room.ID, store.TypeUserJoin, entry.Username+" joined the room"); err != nil {
			h.log.Error().Err(err).Msg("persist join notice")
		} else {
			h.gateway.Deliver(ToRoomExcept(room.Name, c.ConnID), &Event{Kind: EventMessage, Room: room.Name, Message: notice})
		}
	}

	h.gateway.Deliver(ToConn(c.ConnID), systemEvent(store.TypeSystemInfo, "You have joined the room "+room.Name))
	h.gateway.Deliver(ToConn(c.ConnID), &Event{Kind: EventRoomChanged, Room: room.Name})
	h.sendHistory(ctx, c, room)

	h.gateway.Deliver(ToRoom(room.Name), h.userList(room.Name))
	h.broadcastRoomList(ctx)

	h.log.Info().Str("username", entry.Username).Str("from", prevRoom).Str("to", room.Name).Bool("created", created).Msg("room switch")
}

// handleDisconnect tears a connection down: durable membership deleted,
// the room notified, presence removed, empty rooms pruned. Unknown
// connections are logged only.
func (h *Hub) handleDisconnect(ctx context.Context, c *Client) {
	entry, ok := h.presence.ByConnection(c.ConnID)
	if !ok {
		h.log.Debug().Str("conn_id", c.ConnID).Msg("unknown connection disconnected")
		h.gateway.removeClient(c.ConnID)
		return
	}

	if err := h.store.LeaveRoom(ctx, entry.UserID); err != nil {
		h.log.Error().Err(err).Int64("user_id", entry.UserID).Msg("delete membership on disconnect")
	}

	if entry.Room != "" {
		if notice, err := h.systemNotice(ctx, entry.RoomID, store.TypeUserDisconnect, entry.Username+" disconnected"); err != nil {
			h.log.Error().Err(err).Msg("persist disconnect notice")
		} else {
			h.gateway.Deliver(ToRoomExcept(entry.Room, c.ConnID), &Event{Kind: EventMessage, Room: entry.Room, Message: notice})
		}
	}

	room := entry.Room
	h.presence.Remove(c.ConnID)
	h.gateway.removeClient(c.ConnID)

	if room != "" {
		h.gateway.Deliver(ToRoom(room), h.userList(room))
	}
	h.pruneEmptyRooms(ctx)
	h.broadcastRoomList(ctx)

	h.log.Info().Str("conn_id", c.ConnID).Str("username", entry.Username).Msg("user disconnected")
}

func (h *Hub) handlePostAttachment(userID int64, msg *store.Message) {
	entry, ok := h.presence.ByUserID(userID)
	if !ok {
		h.log.Warn().Int64("user_id", userID).Msg("attachment for offline user dropped")
		return
	}
	h.gateway.Deliver(ToRoom(entry.Room), &Event{Kind: EventMessage, Room: entry.Room, Message: msg})
}

// getOrCreateRoom is the single path behind both implicit (join-by-name)
// and restore room resolution. The name must already be normalized.
func (h *Hub) getOrCreateRoom(ctx context.Context, name string) (*store.Room, error) {
	room, err := h.store.GetRoomByName(ctx, name)
	if err == nil {
		return room, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	room, err = h.store.CreateRoom(ctx, name, false)
	if errors.Is(err, store.ErrDuplicate) {
		return h.store.GetRoomByName(ctx, name)
	}
	return room, err
}

func (h *Hub) pruneEmptyRooms(ctx context.Context) {
	deleted, err := h.store.DeleteEmptyRooms(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("prune empty rooms")
		return
	}
	if deleted > 0 {
		h.log.Info().Int64("count", deleted).Msg("empty rooms pruned")
	}
}

func (h *Hub) sendHistory(ctx context.Context, c *Client, room *store.Room) {
	history, err := h.store.ListMessagesByRoom(ctx, room.ID, h.historyLimit)
	if err != nil {
		h.log.Error().Err(err).Str("room", room.Name).Msg("load history")
		return
	}
	h.gateway.Deliver(ToConn(c.ConnID), &Event{Kind: EventHistory, Room: room.Name, Messages: history})
}

// userList builds the live occupant list of a room.
func (h *Hub) userList(room string) *Event {
	users := lo.Map(h.presence.UsersInRoom(room), func(e *PresenceEntry, _ int) UserInfo {
		return UserInfo{UserID: e.UserID, Username: e.Username, Status: e.Status}
	})
	return &Event{Kind: EventUserList, Room: room, Users: users}
}

// broadcastRoomList publishes the room catalog with live member counts to
// every connection.
func (h *Hub) broadcastRoomList(ctx context.Context) {
	rooms, err := h.store.GetAllRooms(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("list rooms")
		return
	}

	summaries := lo.Map(rooms, func(r *store.Room, _ int) RoomSummary {
		return RoomSummary{
			ID:          r.ID,
			Name:        r.Name,
			IsPermanent: r.IsPermanent,
			UserCount:   len(h.presence.UsersInRoom(r.Name)),
		}
	})
	h.gateway.DeliverAll(&Event{Kind: EventRoomList, Rooms: summaries})
}

// systemNotice persists an event message attributed to the system user.
func (h *Hub) systemNotice(ctx context.Context, roomID int64, mt store.MessageType, content string) (*store.Message, error) {
	msg := &store.Message{
		UserID:   h.store.SystemUserID(),
		Username: systemUsername,
		RoomID:   roomID,
		Content:  content,
		Type:     mt,
	}
	if err := h.store.SaveMessage(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// systemEvent builds an ephemeral, caller-only system message.
func systemEvent(mt store.MessageType, content string) *Event {
	return &Event{
		Kind: EventMessage,
		Message: &store.Message{
			Username:  systemUsername,
			Content:   content,
			Type:      mt,
			CreatedAt: time.Now(),
		},
	}
}

func (h *Hub) errorTo(c *Client, code, msg string) {
	h.gateway.Deliver(ToConn(c.ConnID), &Event{Kind: EventError, Error: coreError(code, msg)})
}

func (h *Hub) createRoomFailed(c *Client, code, msg string) {
	h.gateway.Deliver(ToConn(c.ConnID), &Event{Kind: EventCreateRoomFailed, Error: coreError(code, msg)})
}

func (h *Hub) storeFailure(c *Client, op string, err error) {
	h.log.Error().Err(err).Str("op", op).Msg("store failure")
	h.errorTo(c, ErrCodeStoreFailure, "internal server error")
}
