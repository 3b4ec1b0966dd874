// Package memory provides an in-memory store.Store used by tests.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/roomchat/roomchat-server/internal/keys"
	"github.com/roomchat/roomchat-server/internal/store"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Store is an in-memory implementation of store.Store.
type Store struct {
	mu     sync.Mutex
	nextID int64
	msgs   []store.Message
	users  map[string]store.User

	// AppendErr, when set, is returned by AppendMessage. Lets tests
	// exercise the fail-closed path.
	AppendErr error
	// HistoryErr, when set, is returned by RoomHistory.
	HistoryErr error
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{users: make(map[string]store.User)}
}

// AppendMessage persists a message in memory.
func (s *Store) AppendMessage(_ context.Context, msg *store.Message) (*store.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.AppendErr != nil {
		return nil, s.AppendErr
	}

	stored := *msg
	if stored.SentAt.IsZero() {
		stored.SentAt = time.Now().UTC()
	}
	s.nextID++
	stored.ID = s.nextID
	s.msgs = append(s.msgs, stored)

	out := stored
	return &out, nil
}

// RoomHistory mirrors the SQLite dual-clause query: room match plus the
// reconstructed identity pair in both directions.
func (s *Store) RoomHistory(_ context.Context, room, identity string, limit int) ([]*store.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.HistoryErr != nil {
		return nil, s.HistoryErr
	}

	peer := keys.Peer(room, identity)

	var out []*store.Message
	for i := range s.msgs {
		m := s.msgs[i]
		match := m.Room == room
		if !match && peer != "" {
			match = (m.Sender == identity && m.Recipient == peer) ||
				(m.Sender == peer && m.Recipient == identity)
		}
		if match {
			cp := m
			out = append(out, &cp)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SentAt.Equal(out[j].SentAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].SentAt.Before(out[j].SentAt)
	})

	// Keep the newest entries when over the limit.
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// CreateUser stores a new user.
func (s *Store) CreateUser(_ context.Context, username, passwordHash string) (*store.User, error) {
	return s.addUser(username, passwordHash, false)
}

// CreateGuestUser stores a new guest user.
func (s *Store) CreateGuestUser(_ context.Context, username string) (*store.User, error) {
	return s.addUser(username, "", true)
}

// GetUserByUsername retrieves a user by username.
func (s *Store) GetUserByUsername(_ context.Context, username string) (*store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[username]
	if !ok {
		return nil, ErrNotFound
	}
	out := u
	return &out, nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

func (s *Store) addUser(username, passwordHash string, guest bool) (*store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[username]; ok {
		return nil, errors.New("username taken")
	}

	s.nextID++
	u := store.User{
		ID:           s.nextID,
		Username:     username,
		PasswordHash: passwordHash,
		IsGuest:      guest,
		CreatedAt:    time.Now().UTC(),
	}
	s.users[username] = u

	out := u
	return &out, nil
}
