package core

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/roomchat/roomchat-server/internal/keys"
	"github.com/roomchat/roomchat-server/internal/metrics"
	"github.com/roomchat/roomchat-server/internal/store"
)

// HubConfig configures a Hub. Zero values get sensible defaults; a nil Store
// runs the hub without persistence (messages broadcast with an in-process
// timestamp and history replays come back empty).
type HubConfig struct {
	Store         store.MessageStore
	Log           *zerolog.Logger
	Metrics       *metrics.Metrics
	DefaultRoom   string
	TypingTimeout time.Duration
	HistoryLimit  int
}

// commandEnvelope pairs an inbound command with its originating connection.
type commandEnvelope struct {
	client *Client
	cmd    *Command
}

// historyResult re-enters the hub loop once a join's history query finishes.
type historyResult struct {
	client *Client
	room   string
	msgs   []*store.Message
}

// Hub routes inbound client events to handlers and fans outbound events out
// to room subscribers. All state mutation happens on the single Run
// goroutine; log appends and history queries are the only suspension points
// and re-enter the loop through channels, so membership is always re-read
// after an I/O wait.
type Hub struct {
	log      *zerolog.Logger
	store    store.MessageStore
	metrics  *metrics.Metrics
	registry *Registry
	typing   *typingCoordinator

	defaultRoom  string
	historyLimit int

	clients   map[*Client]struct{}
	identity  map[string]map[*Client]struct{} // identity -> connections
	roomConns map[string]map[*Client]struct{} // room -> subscribed connections

	commands   chan commandEnvelope
	register   chan *Client
	unregister chan *Client
	stored     chan *store.Message
	loaded     chan historyResult
	done       chan struct{}

	runCtx context.Context
}

// NewHub creates a hub with its own presence registry.
func NewHub(cfg HubConfig) *Hub {
	logger := cfg.Log
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	done := make(chan struct{})
	return &Hub{
		log:          logger,
		store:        cfg.Store,
		metrics:      cfg.Metrics,
		registry:     NewRegistry(),
		typing:       newTypingCoordinator(cfg.TypingTimeout, done),
		defaultRoom:  cfg.DefaultRoom,
		historyLimit: cfg.HistoryLimit,
		clients:      make(map[*Client]struct{}),
		identity:     make(map[string]map[*Client]struct{}),
		roomConns:    make(map[string]map[*Client]struct{}),
		commands:     make(chan commandEnvelope, 64),
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		stored:       make(chan *store.Message, 64),
		loaded:       make(chan historyResult, 16),
		done:         done,
	}
}

// Run processes events until ctx is cancelled. Handlers run to completion;
// no two connections ever interleave their registry mutations.
func (h *Hub) Run(ctx context.Context) {
	h.runCtx = ctx
	defer close(h.done)

	for {
		select {
		case env := <-h.commands:
			h.dispatch(env.client, env.cmd)
		case msg := <-h.stored:
			h.fanoutStored(msg)
		case res := <-h.loaded:
			h.deliverHistory(res)
		case exp := <-h.typing.expired:
			h.expireTyping(exp)
		case c := <-h.register:
			h.addClient(c)
		case c := <-h.unregister:
			h.dropClient(c)
		case <-ctx.Done():
			return
		}
	}
}

// RegisterClient adds a connection to the hub and starts pumping its
// commands into the dispatch loop.
func (h *Hub) RegisterClient(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		return
	}
	go h.pump(c)
}

// UnregisterClient removes a connection. The hub synthesizes a leave for
// every room the connection was in, so an abrupt disconnect never leaves a
// phantom member behind.
func (h *Hub) UnregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) pump(c *Client) {
	for {
		select {
		case cmd, ok := <-c.Commands:
			if !ok {
				return
			}
			select {
			case h.commands <- commandEnvelope{client: c, cmd: cmd}:
			case <-h.done:
				return
			}
		case <-c.quit:
			return
		case <-h.done:
			return
		}
	}
}

func (h *Hub) addClient(c *Client) {
	h.clients[c] = struct{}{}
	h.metrics.ConnOpened()
	h.log.Debug().Str("conn_id", c.ID).Msg("connection registered")
}

func (h *Hub) dropClient(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.quit) // releases the connection's pump goroutine
	h.metrics.ConnClosed()

	for room := range c.rooms {
		h.removeFromRoom(c, room)
	}

	if c.identity != "" {
		if conns := h.identity[c.identity]; conns != nil {
			delete(conns, c)
			if len(conns) == 0 {
				delete(h.identity, c.identity)
			}
		}
	}

	h.log.Debug().Str("conn_id", c.ID).Str("user", c.identity).Msg("connection dropped")
}

func (h *Hub) dispatch(c *Client, cmd *Command) {
	if _, ok := h.clients[c]; !ok {
		return
	}

	switch cmd.Kind {
	case CommandJoinRoom:
		h.handleJoin(c, cmd)
	case CommandLeaveRoom:
		h.handleLeave(c, cmd)
	case CommandSendMessage:
		h.handleSend(c, cmd)
	case CommandSendPrivate:
		h.handleSendPrivate(c, cmd)
	case CommandTyping:
		h.handleTyping(c, cmd)
	case CommandStopTyping:
		h.handleStopTyping(c, cmd)
	}
}

// handleJoin establishes the session identity on first join, registers
// membership, broadcasts the updated member list to the room and kicks off
// the history replay for the joining connection only.
func (h *Hub) handleJoin(c *Client, cmd *Command) {
	user := h.sessionIdentity(c, cmd.User)
	if user == "" {
		h.log.Debug().Str("conn_id", c.ID).Msg("join without user dropped")
		return
	}

	room := cmd.Room
	if room == "" {
		room = h.defaultRoom
	}
	if room == "" {
		h.log.Debug().Str("conn_id", c.ID).Msg("join without room dropped")
		return
	}

	c.rooms[room] = struct{}{}
	conns := h.roomConns[room]
	if conns == nil {
		conns = make(map[*Client]struct{})
		h.roomConns[room] = conns
	}
	conns[c] = struct{}{}

	// Rejoining is a no-op on the set but still triggers a broadcast.
	h.registry.Join(room, user)
	h.metrics.SetRooms(h.registry.RoomCount())
	h.broadcastMembers(room)

	h.log.Info().Str("user", user).Str("room", room).Msg("user joined room")

	h.loadHistory(c, room, user)
}

func (h *Hub) handleLeave(c *Client, cmd *Command) {
	if cmd.Room == "" || !c.inRoom(cmd.Room) {
		// Unknown room or identity on leave is a silent no-op.
		return
	}
	h.removeFromRoom(c, cmd.Room)
	h.log.Info().Str("user", c.identity).Str("room", cmd.Room).Msg("user left room")
}

// removeFromRoom unsubscribes the connection and, when it was the identity's
// last connection in the room, removes the membership and broadcasts the
// updated member list to the remaining subscribers.
func (h *Hub) removeFromRoom(c *Client, room string) {
	delete(c.rooms, room)

	if conns := h.roomConns[room]; conns != nil {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.roomConns, room)
		}
	}

	user := c.identity
	if user == "" || h.identityInRoom(user, room) {
		return
	}

	if h.typing.clear(room, user) {
		h.broadcast(room, &Event{Kind: EventStopTyping, Room: room}, nil)
	}

	if h.registry.Leave(room, user) {
		h.metrics.SetRooms(h.registry.RoomCount())
		h.broadcastMembers(room)
	}
}

// handleSend appends a public message to the log and, once the append
// completes, fans it out to every subscriber including the sender. Append
// failures broadcast nothing.
func (h *Hub) handleSend(c *Client, cmd *Command) {
	user := h.sessionIdentity(c, cmd.User)
	if user == "" || cmd.Room == "" || cmd.Body == "" {
		return
	}

	// Sending clears the sender's typing indicator immediately.
	if h.typing.clear(cmd.Room, user) {
		h.broadcast(cmd.Room, &Event{Kind: EventStopTyping, Room: cmd.Room}, nil)
	}

	h.append(&store.Message{Room: cmd.Room, Sender: user, Body: cmd.Body})
}

// handleSendPrivate appends a private message addressed to both the identity
// pair and the derived room key, then delivers it to every connection of the
// sender and the recipient. The recipient may have none; the message is
// still durable and replays on their next join of the shared private room.
func (h *Hub) handleSendPrivate(c *Client, cmd *Command) {
	from := h.sessionIdentity(c, cmd.User)
	to := strings.TrimSpace(cmd.To)
	if from == "" || to == "" || cmd.Body == "" {
		return
	}

	room := keys.Direct(from, to)
	if h.typing.clear(room, from) {
		h.broadcast(room, &Event{Kind: EventStopTyping, Room: room}, nil)
	}

	h.append(&store.Message{Room: room, Sender: from, Recipient: to, Body: cmd.Body})
}

func (h *Hub) handleTyping(c *Client, cmd *Command) {
	user := h.sessionIdentity(c, cmd.User)
	if user == "" || cmd.Room == "" || !c.inRoom(cmd.Room) {
		return
	}

	started, replaced := h.typing.keystroke(cmd.Room, user)
	if replaced != "" {
		h.broadcast(cmd.Room, &Event{Kind: EventStopTyping, Room: cmd.Room}, nil)
	}
	if started {
		h.metrics.TypingStarted()
		h.broadcast(cmd.Room, &Event{Kind: EventTyping, Room: cmd.Room, User: user}, c)
	}
}

func (h *Hub) handleStopTyping(c *Client, cmd *Command) {
	if cmd.Room == "" {
		return
	}
	if h.typing.clear(cmd.Room, "") {
		h.broadcast(cmd.Room, &Event{Kind: EventStopTyping, Room: cmd.Room}, c)
	}
}

func (h *Hub) expireTyping(e typingExpiry) {
	if h.typing.expire(e) {
		h.broadcast(e.room, &Event{Kind: EventStopTyping, Room: e.room}, nil)
	}
}

// append persists msg off the dispatch loop. Delivery re-enters the loop via
// the stored channel so membership is re-read after the I/O wait.
func (h *Hub) append(msg *store.Message) {
	if h.store == nil {
		msg.SentAt = time.Now().UTC()
		h.fanoutStored(msg)
		return
	}

	ctx := h.runCtx
	go func() {
		stored, err := h.store.AppendMessage(ctx, msg)
		if err != nil {
			// Fail closed: never broadcast an unpersisted message.
			h.log.Error().Err(err).Str("room", msg.Room).Msg("append message failed")
			return
		}
		select {
		case h.stored <- stored:
		case <-h.done:
		}
	}()
}

func (h *Hub) fanoutStored(m *store.Message) {
	ev := &Event{
		Kind: EventMessage,
		Room: m.Room,
		Message: Message{
			ID:     m.ID,
			Room:   m.Room,
			From:   m.Sender,
			To:     m.Recipient,
			Body:   m.Body,
			SentAt: m.SentAt,
		},
	}

	if m.Private() {
		ev.Kind = EventPrivateMessage
		h.metrics.MessageStored(metrics.KindPrivate)
		for conn := range h.recipients(m.Sender, m.Recipient) {
			conn.send(ev)
		}
		return
	}

	h.metrics.MessageStored(metrics.KindPublic)
	h.broadcast(m.Room, ev, nil)
}

// recipients collects every connection of the two identities, deduplicated.
func (h *Hub) recipients(a, b string) map[*Client]struct{} {
	out := make(map[*Client]struct{})
	for conn := range h.identity[a] {
		out[conn] = struct{}{}
	}
	for conn := range h.identity[b] {
		out[conn] = struct{}{}
	}
	return out
}

func (h *Hub) loadHistory(c *Client, room, user string) {
	if h.store == nil {
		c.send(&Event{Kind: EventHistory, Room: room})
		return
	}

	ctx := h.runCtx
	limit := h.historyLimit
	go func() {
		msgs, err := h.store.RoomHistory(ctx, room, user, limit)
		if err != nil {
			// Non-fatal: an empty history surfaces and the connection stays usable.
			h.log.Warn().Err(err).Str("room", room).Msg("history query failed")
			msgs = nil
		}
		select {
		case h.loaded <- historyResult{client: c, room: room, msgs: msgs}:
		case <-h.done:
		}
	}()
}

// deliverHistory hands the replay to the joining connection only, skipping
// it when the connection left the room or disconnected while the query was
// in flight.
func (h *Hub) deliverHistory(res historyResult) {
	if _, ok := h.clients[res.client]; !ok {
		return
	}
	if !res.client.inRoom(res.room) {
		return
	}

	messages := make([]Message, 0, len(res.msgs))
	for _, m := range res.msgs {
		messages = append(messages, Message{
			ID:     m.ID,
			Room:   m.Room,
			From:   m.Sender,
			To:     m.Recipient,
			Body:   m.Body,
			SentAt: m.SentAt,
		})
	}

	h.metrics.HistoryLoaded()
	res.client.send(&Event{Kind: EventHistory, Room: res.room, Messages: messages})
}

func (h *Hub) broadcastMembers(room string) {
	h.broadcast(room, &Event{
		Kind:    EventMembers,
		Room:    room,
		Members: h.registry.Members(room),
	}, nil)
}

func (h *Hub) broadcast(room string, ev *Event, skip *Client) {
	for conn := range h.roomConns[room] {
		if conn == skip {
			continue
		}
		conn.send(ev)
	}
}

// sessionIdentity returns the connection's identity, establishing it from
// the client-declared value on first use. Once set it never changes.
func (h *Hub) sessionIdentity(c *Client, declared string) string {
	if c.identity != "" {
		return c.identity
	}

	declared = strings.TrimSpace(declared)
	if declared == "" {
		return ""
	}

	c.identity = declared
	conns := h.identity[declared]
	if conns == nil {
		conns = make(map[*Client]struct{})
		h.identity[declared] = conns
	}
	conns[c] = struct{}{}
	return declared
}

// identityInRoom reports whether any registered connection of user is still
// subscribed to room.
func (h *Hub) identityInRoom(user, room string) bool {
	for conn := range h.identity[user] {
		if conn.inRoom(room) {
			return true
		}
	}
	return false
}
