package store

import (
	"context"
	"time"
)

// Message is a persisted chat message. Exactly one of Room/Recipient is
// meaningful for the public/private distinction, but private messages carry
// both: the identity pair for addressing and the derived room key so history
// queries by room and by pair select the same rows.
type Message struct {
	ID        int64
	Room      string
	Sender    string
	Recipient string
	Body      string
	SentAt    time.Time
}

// Private reports whether the message was privately addressed.
func (m *Message) Private() bool {
	return m.Recipient != ""
}

// User represents a registered or guest user.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	IsGuest      bool
	CreatedAt    time.Time
}

// MessageStore is the append-only message log collaborator.
type MessageStore interface {
	// AppendMessage persists a message, assigning its id and, when unset,
	// its sent-at timestamp. Returns the stored message.
	AppendMessage(ctx context.Context, msg *Message) (*Message, error)

	// RoomHistory returns messages visible to identity when joining room,
	// ordered by sent-at ascending: messages posted to the room plus, when
	// room is a private pair key involving identity, the private messages
	// exchanged with the reconstructed peer. limit <= 0 means no limit.
	RoomHistory(ctx context.Context, room, identity string, limit int) ([]*Message, error)
}

// UserStore handles user persistence for the upstream auth collaborator.
type UserStore interface {
	CreateUser(ctx context.Context, username, passwordHash string) (*User, error)
	CreateGuestUser(ctx context.Context, username string) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	MessageStore
	UserStore

	// Close closes the underlying database connection.
	Close() error
}
