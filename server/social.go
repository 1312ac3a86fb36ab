package server

import (
	"sync"
	"time"

	"gopkg.in/op/go-logging.v1"

	"pgpchat/db"
	"pgpchat/log"
	"pgpchat/models"
)

// SocialGraph owns the pending friend requests and the symmetric
// friendship relation. Requests point at a live target; friendships are
// written in both directions at once and never removed.
type SocialGraph struct {
	db       *db.DB
	registry *Registry
	log      *logging.Logger

	// mu serializes check-then-mutate sequences so two concurrent requests
	// for the same pair cannot both pass the duplicate check.
	mu sync.Mutex
}

func NewSocialGraph(database *db.DB, registry *Registry, logBackend *log.Backend) *SocialGraph {
	return &SocialGraph{
		db:       database,
		registry: registry,
		log:      logBackend.GetLogger("social"),
	}
}

// SendRequest validates and records a pending request from sender to
// target. The target identifier is normalized (trimmed, uppercased) before
// validation. Validation order: target well-formed and online, target is
// not the sender, not already friends, no request already pending.
func (g *SocialGraph) SendRequest(sender, rawTarget string) (*models.FriendRequest, error) {
	target := normalizeID(rawTarget)
	if !validID(target) || !g.registry.IsOnline(target) {
		return nil, errTargetNotFound
	}
	if target == sender {
		return nil, errSelfFriend
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	friends, err := g.db.AreFriends(sender, target)
	if err != nil {
		return nil, err
	}
	if friends {
		return nil, errAlreadyFriends
	}

	pending, err := g.db.HasFriendRequest(target, sender)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, errDuplicateRequest
	}

	now := time.Now().UTC()
	if err := g.db.AddFriendRequest(target, sender, now); err != nil {
		return nil, err
	}

	g.log.Debugf("friend request %s -> %s", sender, target)
	return &models.FriendRequest{Recipient: target, Sender: sender, CreatedAt: now}, nil
}

// RespondResult is what the dispatcher needs to notify both parties after
// a request has been resolved. The key fields are nil when the party never
// uploaded a public key.
type RespondResult struct {
	Responder    string
	Sender       string
	Accepted     bool
	ResponderKey *string
	SenderKey    *string
}

// RespondRequest removes the pending request from sender to responder. On
// acceptance both friendship directions are written in the same
// transaction as the removal, so no reader observes a half-formed
// relation. On rejection nothing is persisted; the returned result only
// signals a best-effort notice for the original sender.
func (g *SocialGraph) RespondRequest(responder, rawSender string, accept bool) (*RespondResult, error) {
	sender := normalizeID(rawSender)

	g.mu.Lock()
	defer g.mu.Unlock()

	if accept {
		err := g.db.AcceptFriendRequest(responder, sender, time.Now().UTC())
		if err == db.ErrNoRows {
			return nil, errRequestNotFound
		}
		if err != nil {
			return nil, err
		}
		g.log.Debugf("friendship %s <-> %s", responder, sender)
	} else {
		err := g.db.DeleteFriendRequest(responder, sender)
		if err == db.ErrNoRows {
			return nil, errRequestNotFound
		}
		if err != nil {
			return nil, err
		}
		g.log.Debugf("friend request %s -> %s rejected", sender, responder)
	}

	return &RespondResult{
		Responder:    responder,
		Sender:       sender,
		Accepted:     accept,
		ResponderKey: g.publicKey(responder),
		SenderKey:    g.publicKey(sender),
	}, nil
}

// ListFriends joins the friendship rows against durable profiles and live
// presence.
func (g *SocialGraph) ListFriends(user string) ([]models.Friend, error) {
	profiles, err := g.db.GetFriendProfiles(user)
	if err != nil {
		return nil, err
	}

	friends := make([]models.Friend, 0, len(profiles))
	for i := range profiles {
		p := &profiles[i]
		friends = append(friends, models.Friend{
			UserID:    p.UserID,
			PublicKey: p.PublicKey,
			LastSeen:  float64(p.LastSeen.UnixNano()) / float64(time.Second),
			Online:    g.registry.IsOnline(p.UserID),
		})
	}
	return friends, nil
}

// AreFriends reports whether the relation holds; it is symmetric by
// construction.
func (g *SocialGraph) AreFriends(a, b string) (bool, error) {
	return g.db.AreFriends(a, b)
}

// publicKey reads a profile's key blob, nil when the profile is missing or
// no key was uploaded.
func (g *SocialGraph) publicKey(id string) *string {
	p, err := g.db.GetProfile(id)
	if err != nil {
		return nil
	}
	return p.PublicKey
}
