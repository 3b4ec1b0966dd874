package core

// EventKind is a notification the core emits to client connections.
type EventKind int

const (
	// EventMembers carries a room's updated member list.
	EventMembers EventKind = iota
	// EventHistory delivers message history to a client upon joining a room.
	EventHistory
	// EventMessage notifies subscribers about a public room message.
	EventMessage
	// EventPrivateMessage notifies sender and recipient about a private message.
	EventPrivateMessage
	// EventTyping notifies a room that a user started typing.
	EventTyping
	// EventStopTyping notifies a room that its typing indicator should clear.
	EventStopTyping
)

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind     EventKind
	Room     string
	User     string   // member list subject or typing user
	Members  []string // EventMembers, sorted ascending
	Message  Message  // EventMessage, EventPrivateMessage
	Messages []Message // EventHistory, ordered by sent-at ascending
}
