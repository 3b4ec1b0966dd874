package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandJoinRoom subscribes the connection to a room.
	CommandJoinRoom CommandKind = iota
	// CommandLeaveRoom unsubscribes the connection from a room.
	CommandLeaveRoom
	// CommandSendMessage delivers a chat message to room subscribers.
	CommandSendMessage
	// CommandSendPrivate delivers a message to a specific identity.
	CommandSendPrivate
	// CommandTyping reports a raw keystroke in a room.
	CommandTyping
	// CommandStopTyping forces the room's typing indicator off.
	CommandStopTyping
)

// Command represents an action requested by a client connection.
type Command struct {
	Kind CommandKind
	Room string
	User string // client-declared identity, trusted as-is
	To   string // recipient identity for CommandSendPrivate
	Body string // message text
}
