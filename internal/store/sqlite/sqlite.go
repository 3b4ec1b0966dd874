package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roomchat/roomchat-server/internal/keys"
	"github.com/roomchat/roomchat-server/internal/store"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

const schema = `
CREATE TABLE IF NOT EXISTS messages (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	room      TEXT NOT NULL DEFAULT '',
	from_user TEXT NOT NULL,
	to_user   TEXT NOT NULL DEFAULT '',
	body      TEXT NOT NULL,
	date_sent TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_room ON messages(room, date_sent);
CREATE INDEX IF NOT EXISTS idx_messages_pair ON messages(from_user, to_user, date_sent);

CREATE TABLE IF NOT EXISTS users (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	username      TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL DEFAULT '',
	is_guest      INTEGER NOT NULL DEFAULT 0,
	created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New opens (and if needed bootstraps) a SQLite store at dbPath.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== MessageStore implementation ====

// AppendMessage persists a message and assigns its id and timestamp.
func (s *SQLiteStore) AppendMessage(ctx context.Context, msg *store.Message) (*store.Message, error) {
	stored := *msg
	if stored.SentAt.IsZero() {
		stored.SentAt = time.Now().UTC()
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (room, from_user, to_user, body, date_sent) VALUES (?, ?, ?, ?, ?)`,
		stored.Room, stored.Sender, stored.Recipient, stored.Body, stored.SentAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}
	stored.ID = id

	return &stored, nil
}

// RoomHistory returns messages for a room join, ordered by sent-at ascending.
// The query matches the room key directly and, for private rooms, the
// identity pair in both directions. When the room holds more than limit
// messages the newest ones win: the inner query selects descending, the
// outer restores ascending order for the replay.
func (s *SQLiteStore) RoomHistory(ctx context.Context, room, identity string, limit int) ([]*store.Message, error) {
	peer := keys.Peer(room, identity)
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, room, from_user, to_user, body, date_sent FROM (
			SELECT id, room, from_user, to_user, body, date_sent
			FROM messages
			WHERE room = ?
			   OR (from_user = ? AND to_user = ? AND ? != '')
			   OR (from_user = ? AND to_user = ? AND ? != '')
			ORDER BY date_sent DESC, id DESC
			LIMIT ?
		)
		ORDER BY date_sent ASC, id ASC`,
		room,
		identity, peer, peer,
		peer, identity, peer,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var msgs []*store.Message
	for rows.Next() {
		var m store.Message
		if err := rows.Scan(&m.ID, &m.Room, &m.Sender, &m.Recipient, &m.Body, &m.SentAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}

	return msgs, nil
}

// ==== UserStore implementation ====

// CreateUser creates a new user with hashed password.
func (s *SQLiteStore) CreateUser(ctx context.Context, username, passwordHash string) (*store.User, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, is_guest) VALUES (?, ?, 0)`,
		username, passwordHash,
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	return s.GetUserByUsername(ctx, username)
}

// CreateGuestUser creates a temporary guest user.
func (s *SQLiteStore) CreateGuestUser(ctx context.Context, username string) (*store.User, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, is_guest) VALUES (?, '', 1)`,
		username,
	)
	if err != nil {
		return nil, fmt.Errorf("insert guest user: %w", err)
	}

	return s.GetUserByUsername(ctx, username)
}

// GetUserByUsername retrieves a user by username.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	var u store.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, is_guest, created_at FROM users WHERE username = ?`,
		username,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.IsGuest, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}

	return &u, nil
}
