package core

// Client is one connection as seen by the core layer. The identity is set
// exactly once, at the first join; the hub owns all fields except the
// channels after registration.
type Client struct {
	ID       string
	Commands chan *Command
	Events   chan *Event

	identity string
	rooms    map[string]struct{}
	quit     chan struct{} // closed by the hub when the connection is dropped
}

// NewClient constructs a client connection with initialized channels.
func NewClient(id string) *Client {
	return &Client{
		ID:       id,
		Commands: make(chan *Command, 8),
		Events:   make(chan *Event, 32),
		rooms:    make(map[string]struct{}),
		quit:     make(chan struct{}),
	}
}

// send queues an event for the connection's write loop, dropping it if the
// consumer is too slow to keep the hub from ever blocking.
func (c *Client) send(ev *Event) {
	select {
	case c.Events <- ev:
	default:
		// Drop if slow consumer.
	}
}

func (c *Client) inRoom(room string) bool {
	_, ok := c.rooms[room]
	return ok
}
