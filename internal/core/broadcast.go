package core

import "github.com/rs/zerolog"

// audienceKind selects the delivery target set.
type audienceKind int

const (
	audienceRoom audienceKind = iota
	audienceConn
	audienceRoomExcept
)

// Audience names the set of connections an event is delivered to: a whole
// room, a single connection, or a room minus one sender.
type Audience struct {
	kind   audienceKind
	room   string
	connID string
}

// ToRoom addresses every live connection in the room.
func ToRoom(room string) Audience {
	return Audience{kind: audienceRoom, room: room}
}

// ToConn addresses a single connection.
func ToConn(connID string) Audience {
	return Audience{kind: audienceConn, connID: connID}
}

// ToRoomExcept addresses the room minus the given connection.
func ToRoomExcept(room, connID string) Audience {
	return Audience{kind: audienceRoomExcept, room: room, connID: connID}
}

// Gateway is the sole writer of outbound events. Delivery is best-effort:
// unknown rooms or connections are logged, never raised, since the target
// set may have just changed. Per-room ordering holds because the hub
// goroutine is the only caller and each client channel is FIFO.
type Gateway struct {
	presence *PresenceTable
	clients  map[string]*Client
	log      *zerolog.Logger
}

// NewGateway builds a gateway over the given presence table.
func NewGateway(presence *PresenceTable, logger *zerolog.Logger) *Gateway {
	return &Gateway{
		presence: presence,
		clients:  make(map[string]*Client),
		log:      logger,
	}
}

func (g *Gateway) addClient(c *Client) {
	g.clients[c.ConnID] = c
}

func (g *Gateway) removeClient(connID string) {
	delete(g.clients, connID)
}

// Deliver sends the event to every connection in the audience.
func (g *Gateway) Deliver(audience Audience, event *Event) {
	switch audience.kind {
	case audienceConn:
		g.send(audience.connID, event)
	case audienceRoom, audienceRoomExcept:
		entries := g.presence.UsersInRoom(audience.room)
		if len(entries) == 0 {
			g.log.Debug().Str("room", audience.room).Msg("broadcast to empty room")
			return
		}
		for _, entry := range entries {
			if audience.kind == audienceRoomExcept && entry.ConnID == audience.connID {
				continue
			}
			g.send(entry.ConnID, event)
		}
	}
}

// DeliverAll sends the event to every registered connection.
func (g *Gateway) DeliverAll(event *Event) {
	for _, c := range g.clients {
		g.queue(c, event)
	}
}

func (g *Gateway) send(connID string, event *Event) {
	c, ok := g.clients[connID]
	if !ok {
		g.log.Debug().Str("conn_id", connID).Msg("broadcast to unknown connection")
		return
	}
	g.queue(c, event)
}

// queue writes without blocking; a slow consumer drops rather than stall
// the hub.
func (g *Gateway) queue(c *Client, event *Event) {
	select {
	case c.Events <- event:
	default:
		g.log.Warn().Str("conn_id", c.ConnID).Int("event_kind", int(event.Kind)).Msg("event dropped, slow consumer")
	}
}
