package core

import "time"

// Message is the domain model for a chat message. Room is set for public
// messages; To (plus the derived pair key in Room) for private ones.
type Message struct {
	ID     int64
	Room   string
	From   string
	To     string
	Body   string
	SentAt time.Time
}
