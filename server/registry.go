package server

import (
	"errors"
	"sync"
	"time"

	"gopkg.in/op/go-logging.v1"

	"pgpchat/db"
	"pgpchat/log"
	"pgpchat/models"
)

// Registry maps live identifiers to their sessions and owns the durable
// profile behind each identifier. It is the only component that touches a
// session's outbound channel, so a handle can never be used after
// disconnect.
type Registry struct {
	db  *db.DB
	log *logging.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry(database *db.DB, logBackend *log.Backend) *Registry {
	return &Registry{
		db:       database,
		log:      logBackend.GetLogger("registry"),
		sessions: make(map[string]*Session),
	}
}

// RegisterNew allocates a fresh identifier and binds the session to it.
// Identifiers are unique among live sessions only; one that went offline
// may be reissued, which is why registration resets the durable profile.
func (r *Registry) RegisterNew(sess *Session) (string, error) {
	for {
		id, err := generateID()
		if err != nil {
			return "", err
		}
		err = r.Register(id, sess)
		if errors.Is(err, errDuplicateSession) {
			continue
		}
		if err != nil {
			return "", err
		}
		return id, nil
	}
}

// Register binds a session to an explicit identifier, refusing one that is
// already live, and resets the profile row for the new holder.
func (r *Registry) Register(id string, sess *Session) error {
	r.mu.Lock()
	if _, ok := r.sessions[id]; ok {
		r.mu.Unlock()
		return errDuplicateSession
	}
	sess.id = id
	r.sessions[id] = sess
	r.mu.Unlock()

	if err := r.db.ResetProfile(id, time.Now().UTC()); err != nil {
		r.mu.Lock()
		delete(r.sessions, id)
		r.mu.Unlock()
		return err
	}

	activeSessions.Inc()
	r.log.Debugf("session %s registered", id)
	return nil
}

// Disconnect removes the live binding, but only while it still belongs to
// this session: a reissued identifier must not be evicted by a stale
// connection's deferred cleanup. Repeated calls are no-ops. The profile
// row stays behind with a fresh last_seen so friends can keep reading it.
func (r *Registry) Disconnect(id string, sess *Session) {
	r.mu.Lock()
	cur, ok := r.sessions[id]
	if !ok || cur != sess {
		r.mu.Unlock()
		return
	}
	delete(r.sessions, id)
	r.mu.Unlock()
	sess.close()

	if err := r.db.UpdateLastSeen(id, time.Now().UTC()); err != nil {
		r.log.Errorf("failed to update last_seen for %s: %v", id, err)
	}

	activeSessions.Dec()
	r.log.Debugf("session %s disconnected", id)
}

// DisconnectAll drops every live session. Used at shutdown.
func (r *Registry) DisconnectAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	now := time.Now().UTC()
	for id, sess := range sessions {
		sess.close()
		if err := r.db.UpdateLastSeen(id, now); err != nil {
			r.log.Errorf("failed to update last_seen for %s: %v", id, err)
		}
		activeSessions.Dec()
	}
}

// Deliver enqueues one frame for the identifier's write loop. Best-effort:
// false when the id is not live or its queue is full, never blocking. The
// read lock is held across the enqueue so a concurrent disconnect cannot
// close the channel mid-send.
func (r *Registry) Deliver(id string, data []byte) bool {
	r.mu.RLock()
	sess, ok := r.sessions[id]
	if !ok {
		r.mu.RUnlock()
		droppedDeliveries.Inc()
		return false
	}
	ok = sess.enqueue(data)
	r.mu.RUnlock()

	if !ok {
		droppedDeliveries.Inc()
		r.log.Warningf("send queue full for %s, dropping frame", id)
	}
	return ok
}

func (r *Registry) IsOnline(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sessions[id]
	return ok
}

func (r *Registry) OnlineCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// LiveIDs returns the identifiers of all live sessions, unordered.
func (r *Registry) LiveIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Profile returns the durable record behind an identifier, live or not.
func (r *Registry) Profile(id string) (*models.Profile, error) {
	return r.db.GetProfile(id)
}

// SetPublicKey stores the caller's key blob and marks the public flag,
// which persists across disconnects.
func (r *Registry) SetPublicKey(id, key string) (models.KeyStatus, error) {
	if key == "" {
		return models.KeyStatus{}, errMissingKey
	}
	if err := r.db.SetPublicKey(id, key); err != nil {
		return models.KeyStatus{}, err
	}
	return r.KeyStatus(id)
}

// SetKeyStatus records the client-reported flags. The public flag is
// write-once-true; the private flag is always overwritten.
func (r *Registry) SetKeyStatus(id string, private, public bool) (models.KeyStatus, error) {
	if err := r.db.SetKeyFlags(id, private, public); err != nil {
		return models.KeyStatus{}, err
	}
	return r.KeyStatus(id)
}

func (r *Registry) KeyStatus(id string) (models.KeyStatus, error) {
	p, err := r.db.GetProfile(id)
	if err != nil {
		return models.KeyStatus{}, err
	}
	return p.KeyStatus, nil
}
