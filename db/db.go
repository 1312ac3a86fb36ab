package db

import (
	"database/sql"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"pgpchat/models"
)

var ErrNoRows = errors.New("no rows found")

type DB struct {
	conn *sql.DB
}

func New(path string) (*DB, error) {
	conn, err := sql.Open("sqlite3", path+"?_foreign_keys=1&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		conn.Close()
		return nil, err
	}

	return db, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping verifies the database is reachable. Used by the health endpoint.
func (db *DB) Ping() error {
	return db.conn.Ping()
}

func (db *DB) init() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS profiles (
			user_id TEXT PRIMARY KEY,
			public_key TEXT,
			private_key_loaded INTEGER NOT NULL DEFAULT 0,
			public_key_loaded INTEGER NOT NULL DEFAULT 0,
			last_seen TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS friendships (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			owner TEXT NOT NULL,
			friend TEXT NOT NULL,
			created_at TEXT NOT NULL,
			UNIQUE(owner, friend)
		)`,
		`CREATE TABLE IF NOT EXISTS friend_requests (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			recipient TEXT NOT NULL,
			sender TEXT NOT NULL,
			created_at TEXT NOT NULL,
			UNIQUE(recipient, sender)
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			conversation_id TEXT NOT NULL,
			message_id TEXT NOT NULL,
			sender TEXT NOT NULL,
			target TEXT NOT NULL,
			encrypted_payload TEXT NOT NULL,
			timestamp TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id)`,
	}

	for _, query := range queries {
		if _, err := db.conn.Exec(query); err != nil {
			return err
		}
	}

	return nil
}

// ConversationID derives the storage key for a pair of users. Both
// orderings of the pair resolve to the same key; the separator is outside
// the identifier alphabet.
func ConversationID(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "_" + b
}

// Profile methods

// ResetProfile creates or wipes the durable profile for an identifier. A
// reissued identifier must never expose the previous holder's key state.
func (db *DB) ResetProfile(userID string, t time.Time) error {
	_, err := db.conn.Exec(
		`INSERT INTO profiles (user_id, public_key, private_key_loaded, public_key_loaded, last_seen)
		 VALUES (?, NULL, 0, 0, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
			public_key = NULL,
			private_key_loaded = 0,
			public_key_loaded = 0,
			last_seen = excluded.last_seen`,
		userID, t.Format(time.RFC3339Nano),
	)
	return err
}

func (db *DB) GetProfile(userID string) (*models.Profile, error) {
	var p models.Profile
	var publicKey sql.NullString
	var lastSeenStr string
	err := db.conn.QueryRow(
		"SELECT user_id, public_key, private_key_loaded, public_key_loaded, last_seen FROM profiles WHERE user_id = ?",
		userID,
	).Scan(&p.UserID, &publicKey, &p.PrivateKeyLoaded, &p.PublicKeyLoaded, &lastSeenStr)
	if err == sql.ErrNoRows {
		return nil, ErrNoRows
	}
	if err != nil {
		return nil, err
	}

	if publicKey.Valid {
		p.PublicKey = &publicKey.String
	}
	p.LastSeen, err = time.Parse(time.RFC3339Nano, lastSeenStr)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (db *DB) SetPublicKey(userID, key string) error {
	result, err := db.conn.Exec(
		"UPDATE profiles SET public_key = ?, public_key_loaded = 1 WHERE user_id = ?",
		key, userID,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNoRows
	}

	return nil
}

// SetKeyFlags updates the client-reported key state. The public flag only
// ever goes from false to true; the private flag tracks the client.
func (db *DB) SetKeyFlags(userID string, private, public bool) error {
	result, err := db.conn.Exec(
		"UPDATE profiles SET private_key_loaded = ?, public_key_loaded = MAX(public_key_loaded, ?) WHERE user_id = ?",
		private, public, userID,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNoRows
	}

	return nil
}

func (db *DB) UpdateLastSeen(userID string, t time.Time) error {
	_, err := db.conn.Exec(
		"UPDATE profiles SET last_seen = ? WHERE user_id = ?",
		t.Format(time.RFC3339Nano), userID,
	)
	return err
}

// Friend request methods

func (db *DB) HasFriendRequest(recipient, sender string) (bool, error) {
	var count int
	err := db.conn.QueryRow(
		"SELECT COUNT(*) FROM friend_requests WHERE recipient = ? AND sender = ?",
		recipient, sender,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (db *DB) AddFriendRequest(recipient, sender string, t time.Time) error {
	_, err := db.conn.Exec(
		"INSERT INTO friend_requests (recipient, sender, created_at) VALUES (?, ?, ?)",
		recipient, sender, t.Format(time.RFC3339Nano),
	)
	return err
}

func (db *DB) DeleteFriendRequest(recipient, sender string) error {
	result, err := db.conn.Exec(
		"DELETE FROM friend_requests WHERE recipient = ? AND sender = ?",
		recipient, sender,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNoRows
	}

	return nil
}

// AcceptFriendRequest removes the pending request and writes both
// directions of the friendship in one transaction, so no reader can observe
// a half-formed relation. ErrNoRows means there was nothing pending.
func (db *DB) AcceptFriendRequest(recipient, sender string, t time.Time) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		"DELETE FROM friend_requests WHERE recipient = ? AND sender = ?",
		recipient, sender,
	)
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNoRows
	}

	// OR IGNORE keeps crossed requests idempotent: if both sides had a
	// request pending, the second acceptance finds the rows already there.
	ts := t.Format(time.RFC3339Nano)
	_, err = tx.Exec(
		"INSERT OR IGNORE INTO friendships (owner, friend, created_at) VALUES (?, ?, ?), (?, ?, ?)",
		recipient, sender, ts, sender, recipient, ts,
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// Friendship methods

func (db *DB) AreFriends(owner, friend string) (bool, error) {
	var count int
	err := db.conn.QueryRow(
		"SELECT COUNT(*) FROM friendships WHERE owner = ? AND friend = ?",
		owner, friend,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetFriendProfiles returns the durable profile of every friend of owner,
// in friendship insertion order.
func (db *DB) GetFriendProfiles(owner string) ([]models.Profile, error) {
	rows, err := db.conn.Query(
		`SELECT p.user_id, p.public_key, p.private_key_loaded, p.public_key_loaded, p.last_seen
		 FROM friendships f
		 JOIN profiles p ON p.user_id = f.friend
		 WHERE f.owner = ?
		 ORDER BY f.id ASC`,
		owner,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []models.Profile
	for rows.Next() {
		var p models.Profile
		var publicKey sql.NullString
		var lastSeenStr string
		if err := rows.Scan(&p.UserID, &publicKey, &p.PrivateKeyLoaded, &p.PublicKeyLoaded, &lastSeenStr); err != nil {
			return nil, err
		}
		if publicKey.Valid {
			p.PublicKey = &publicKey.String
		}
		p.LastSeen, err = time.Parse(time.RFC3339Nano, lastSeenStr)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}

	return profiles, rows.Err()
}

// Message methods

func (db *DB) SaveMessage(m *models.Message) error {
	result, err := db.conn.Exec(
		"INSERT INTO messages (conversation_id, message_id, sender, target, encrypted_payload, timestamp) VALUES (?, ?, ?, ?, ?, ?)",
		m.ConversationID, m.MessageID, m.Sender, m.Target, m.EncryptedPayload, m.Timestamp.Format(time.RFC3339Nano),
	)
	if err != nil {
		return err
	}
	m.ID, _ = result.LastInsertId()
	return nil
}

// GetConversation returns a pair's full log, oldest first. Order is
// insertion order, not timestamp order.
func (db *DB) GetConversation(conversationID string) ([]models.Message, error) {
	rows, err := db.conn.Query(
		`SELECT id, conversation_id, message_id, sender, target, encrypted_payload, timestamp
		 FROM messages
		 WHERE conversation_id = ?
		 ORDER BY id ASC`,
		conversationID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var m models.Message
		var timestampStr string
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.MessageID, &m.Sender, &m.Target, &m.EncryptedPayload, &timestampStr); err != nil {
			return nil, err
		}

		timestamp, err := time.Parse(time.RFC3339Nano, timestampStr)
		if err != nil {
			return nil, err
		}
		m.Timestamp = timestamp

		messages = append(messages, m)
	}

	return messages, rows.Err()
}
