package core

// Client is one live transport session as seen by the core layer. The
// connection handler owns the underlying socket; the hub only ever writes
// to Events and reads from Commands.
type Client struct {
	ConnID   string
	Commands chan *Command
	Events   chan *Event
}

// NewClient constructs a client with initialized channels.
func NewClient(connID string) *Client {
	return &Client{
		ConnID:   connID,
		Commands: make(chan *Command, 8),
		Events:   make(chan *Event, 32),
	}
}
