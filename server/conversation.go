package server

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/op/go-logging.v1"

	"pgpchat/db"
	"pgpchat/log"
	"pgpchat/models"
)

// ConversationStore owns the append-only per-pair message logs. Both
// orderings of a pair resolve to the same log; order within a log is
// insertion order. Payloads are opaque blobs, never inspected.
type ConversationStore struct {
	db  *db.DB
	log *logging.Logger

	mu sync.Mutex
}

func NewConversationStore(database *db.DB, logBackend *log.Backend) *ConversationStore {
	return &ConversationStore{
		db:  database,
		log: logBackend.GetLogger("conversation"),
	}
}

// Append records one message in the pair's log. The target must be a
// friend of the sender; presence does not matter, the log keeps the
// message for an offline target until it explicitly asks. Each message
// gets a server-assigned id so clients can de-duplicate echoes.
func (c *ConversationStore) Append(sender, rawTarget, payload string) (*models.Message, error) {
	target := normalizeID(rawTarget)
	if target == "" {
		return nil, errMissingTarget
	}
	if payload == "" {
		return nil, errMissingMessage
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	friends, err := c.db.AreFriends(sender, target)
	if err != nil {
		return nil, err
	}
	if !friends {
		return nil, errNotFriends
	}

	msg := &models.Message{
		ConversationID:   db.ConversationID(sender, target),
		MessageID:        uuid.New().String(),
		Sender:           sender,
		Target:           target,
		EncryptedPayload: payload,
		Timestamp:        time.Now().UTC(),
	}
	if err := c.db.SaveMessage(msg); err != nil {
		return nil, err
	}

	relayedMessages.Inc()
	c.log.Debugf("message %s appended to %s", msg.MessageID, msg.ConversationID)
	return msg, nil
}

// Conversation returns the pair's full log, oldest first. The requester
// must be a friend of the peer; either ordering of the pair reads the same
// log.
func (c *ConversationStore) Conversation(requester, rawPeer string) ([]models.Message, error) {
	peer := normalizeID(rawPeer)
	if peer == "" {
		return nil, errMissingTarget
	}

	friends, err := c.db.AreFriends(requester, peer)
	if err != nil {
		return nil, err
	}
	if !friends {
		return nil, errNotFriends
	}

	return c.db.GetConversation(db.ConversationID(requester, peer))
}
