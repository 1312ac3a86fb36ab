package server

import (
	"pgpchat/protocol"
)

// handlePing answers the keepalive echo.
func (s *Server) handlePing(sess *Session) error {
	s.notify(sess.ID(), protocol.NewPong())
	return nil
}

func (s *Server) handleSetPublicKey(sess *Session, req *protocol.Request) error {
	status, err := s.registry.SetPublicKey(sess.ID(), req.PublicKey)
	if err != nil {
		return err
	}
	s.notify(sess.ID(), protocol.NewPublicKeySet(status))
	return nil
}

func (s *Server) handleSetKeyStatus(sess *Session, req *protocol.Request) error {
	if req.PrivateKeyLoaded == nil || req.PublicKeyLoaded == nil {
		return errMissingFlags
	}
	status, err := s.registry.SetKeyStatus(sess.ID(), *req.PrivateKeyLoaded, *req.PublicKeyLoaded)
	if err != nil {
		return err
	}
	s.notify(sess.ID(), protocol.NewKeyStatusUpdated(status))
	return nil
}

func (s *Server) handleGetKeyStatus(sess *Session) error {
	status, err := s.registry.KeyStatus(sess.ID())
	if err != nil {
		return err
	}
	s.notify(sess.ID(), protocol.NewKeyStatusReport(status))
	return nil
}

// handleSendFriendRequest records the pending request, notifies the
// target, then confirms to the sender. The target must be online to be
// requested at all, so the notification only misses on a full queue.
func (s *Server) handleSendFriendRequest(sess *Session, req *protocol.Request) error {
	fr, err := s.social.SendRequest(sess.ID(), req.TargetID)
	if err != nil {
		return err
	}
	s.notify(fr.Recipient, protocol.NewFriendRequestReceived(fr.Sender, fr.CreatedAt))
	s.notify(sess.ID(), protocol.NewFriendRequestSent(fr.Recipient))
	return nil
}

// handleRespondFriendRequest resolves a pending request. Acceptance fans
// out friend_added to both parties, each carrying the other's public key.
// Rejection notifies the original sender best-effort and is dropped if
// they are offline; the responder gets no confirmation either way.
func (s *Server) handleRespondFriendRequest(sess *Session, req *protocol.Request) error {
	res, err := s.social.RespondRequest(sess.ID(), req.SenderID, req.Accepted)
	if err != nil {
		return err
	}
	if res.Accepted {
		s.notify(res.Responder, protocol.NewFriendAdded(res.Sender, res.SenderKey))
		s.notify(res.Sender, protocol.NewFriendAdded(res.Responder, res.ResponderKey))
	} else {
		s.notify(res.Sender, protocol.NewFriendRequestRejected(res.Responder))
	}
	return nil
}

// handleSendMessage appends to the pair's log and relays the record: to
// the target only while it is online, to the sender always, as the
// delivery echo.
func (s *Server) handleSendMessage(sess *Session, req *protocol.Request) error {
	msg, err := s.conversations.Append(sess.ID(), req.TargetID, req.EncryptedMessage)
	if err != nil {
		return err
	}
	note := protocol.NewMessageReceived(msg)
	s.notify(msg.Target, note)
	s.notify(sess.ID(), note)
	return nil
}

func (s *Server) handleGetFriends(sess *Session) error {
	friends, err := s.social.ListFriends(sess.ID())
	if err != nil {
		return err
	}
	s.notify(sess.ID(), protocol.NewFriendsList(friends))
	return nil
}

func (s *Server) handleGetMessages(sess *Session, req *protocol.Request) error {
	peer := normalizeID(req.TargetID)
	msgs, err := s.conversations.Conversation(sess.ID(), peer)
	if err != nil {
		return err
	}
	s.notify(sess.ID(), protocol.NewConversationMessages(peer, msgs))
	return nil
}
