package models

import "time"

// KeyStatus tracks which client-side keys a user has reported as loaded.
// The public flag is write-once-true; the private flag follows the client.
type KeyStatus struct {
	PrivateKeyLoaded bool `json:"private_key_loaded"`
	PublicKeyLoaded  bool `json:"public_key_loaded"`
}

// Profile is the durable per-user record. It outlives the connection so
// friends can read key material and presence while the user is offline.
type Profile struct {
	UserID    string
	PublicKey *string // nil until the client uploads one
	KeyStatus
	LastSeen time.Time
}

// FriendRequest is one pending entry in the recipient's request list.
type FriendRequest struct {
	ID        int64
	Recipient string
	Sender    string
	CreatedAt time.Time
}

// Friend is one row of a friends listing, joined against live presence.
type Friend struct {
	UserID    string  `json:"user_id"`
	PublicKey *string `json:"public_key"`
	LastSeen  float64 `json:"last_seen"`
	Online    bool    `json:"online"`
}

// Message is one stored entry of a pair's conversation log. The payload is
// an opaque encrypted blob; the server never inspects it.
type Message struct {
	ID               int64
	ConversationID   string
	MessageID        string
	Sender           string
	Target           string
	EncryptedPayload string
	Timestamp        time.Time
}
