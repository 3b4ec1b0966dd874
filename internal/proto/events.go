// Package proto defines the named-event contract spoken over the persistent
// connection. Wire field names are snake_case (from_user, to_user,
// date_sent) to stay compatible with existing clients.
package proto

import (
	"encoding/json"
	"time"
)

// Inbound is the envelope for events coming from the client.
type Inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Client-to-server event names.
const (
	EventJoinRoom       = "joinRoom"
	EventLeaveRoom      = "leaveRoom"
	EventSendMessage    = "sendMessage"
	EventPrivateMessage = "privateMessage"
	EventTyping         = "typing"
	EventStopTyping     = "stopTyping"
)

// Server-to-client event names.
const (
	EventUpdateMembers         = "updateMembers"
	EventLoadMessages          = "loadMessages"
	EventReceiveMessage        = "receiveMessage"
	EventReceivePrivateMessage = "receivePrivateMessage"
	EventUserTyping            = "userTyping"
)

// JoinRoomData requests to join a room under a declared identity.
type JoinRoomData struct {
	Room string `json:"room"`
	User string `json:"user"`
}

// LeaveRoomData requests to leave a room.
type LeaveRoomData struct {
	Room string `json:"room"`
	User string `json:"user"`
}

// SendMessageData is a public chat message.
type SendMessageData struct {
	Room    string `json:"room"`
	Message string `json:"message"`
	User    string `json:"user"`
}

// PrivateMessageData is a message addressed to a single identity.
type PrivateMessageData struct {
	FromUser string `json:"from_user"`
	ToUser   string `json:"to_user"`
	Message  string `json:"message"`
}

// TypingData reports a raw keystroke in a room.
type TypingData struct {
	Room string `json:"room"`
	User string `json:"user"`
}

// StopTypingData forces the room's typing indicator off.
type StopTypingData struct {
	Room string `json:"room"`
}

// Outbound is the envelope for events sent to the client.
type Outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// MessagePayload is one history entry in loadMessages.
type MessagePayload struct {
	FromUser string    `json:"from_user"`
	ToUser   string    `json:"to_user,omitempty"`
	Room     string    `json:"room,omitempty"`
	Message  string    `json:"message"`
	DateSent time.Time `json:"date_sent"`
}

// ReceiveMessageData carries a public message to room subscribers.
type ReceiveMessageData struct {
	User     string    `json:"user"`
	Message  string    `json:"message"`
	DateSent time.Time `json:"date_sent"`
}

// ReceivePrivateMessageData carries a private message to both participants.
type ReceivePrivateMessageData struct {
	FromUser string    `json:"from_user"`
	Message  string    `json:"message"`
	DateSent time.Time `json:"date_sent"`
}

// UserTypingData names the identity currently typing in the room.
type UserTypingData struct {
	User string `json:"user"`
}
