package server

import (
	"errors"
	"net"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/op/go-logging.v1"

	"pgpchat/db"
	"pgpchat/log"
	"pgpchat/protocol"
)

// maxFrameBytes bounds a single inbound frame. A violation closes the
// connection at the transport layer.
const maxFrameBytes = 64 * 1024

// ServerConfig carries the transport knobs the dispatcher needs.
type ServerConfig struct {
	Address      string
	WriteTimeout time.Duration
}

// Server is the session dispatcher. It accepts WebSocket connections,
// assigns each one an identifier, and routes every request to exactly one
// of the registry, the social graph, or the conversation store. All
// outbound delivery goes through the registry.
type Server struct {
	cfg           *ServerConfig
	log           *logging.Logger
	db            *db.DB
	registry      *Registry
	social        *SocialGraph
	conversations *ConversationStore

	upgrader  websocket.Upgrader
	httpSrv   *http.Server
	closeOnce sync.Once
}

// New wires a dispatcher around the shared components. The managers are
// constructed by the caller so tests can run isolated instances.
func New(cfg *ServerConfig, database *db.DB, registry *Registry, social *SocialGraph, conversations *ConversationStore, logBackend *log.Backend) *Server {
	s := &Server{
		cfg:           cfg,
		log:           logBackend.GetLogger("server"),
		db:            database,
		registry:      registry,
		social:        social,
		conversations: conversations,
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool {
			return true
		}},
	}
	s.httpSrv = &http.Server{Handler: s.Handler()}
	return s
}

// Handler returns the HTTP surface: the WebSocket endpoint plus health and
// metrics.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// Start listens on the configured address and serves until Shutdown.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return err
	}

	s.log.Noticef("listening on %s", listener.Addr())
	return s.httpSrv.Serve(listener)
}

// Shutdown drops every live session and stops the listener. Safe to call
// more than once; Start returns http.ErrServerClosed afterwards.
func (s *Server) Shutdown() {
	s.closeOnce.Do(func() {
		s.log.Noticef("shutting down")
		s.registry.DisconnectAll()
		s.httpSrv.Close()
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(); err != nil {
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Write([]byte("OK"))
}

// handleWS runs one connection's lifecycle: register, announce the
// assigned identifier, then dispatch one request at a time until the
// transport closes. Disconnect runs exactly once on the way out.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debugf("upgrade failed for %s: %v", r.RemoteAddr, err)
		return
	}

	sess := NewSession(conn)
	id, err := s.registry.RegisterNew(sess)
	if err != nil {
		s.log.Errorf("failed to register session from %s: %v", r.RemoteAddr, err)
		conn.Close()
		return
	}
	go sess.writeLoop(s.cfg.WriteTimeout)
	defer s.registry.Disconnect(id, sess)

	s.log.Infof("session %s connected from %s", id, r.RemoteAddr)
	s.notify(id, protocol.NewUserIDAssigned(id))

	conn.SetReadLimit(maxFrameBytes)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		s.dispatch(sess, data)
	}

	s.log.Infof("session %s disconnected", id)
}

// dispatch handles exactly one request. A malformed or failing request is
// answered with an error notification on the caller's own connection and
// never terminates the loop; a panic in a handler is contained the same
// way.
func (s *Server) dispatch(sess *Session, data []byte) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Errorf("session %s: panic handling request: %v", sess.ID(), r)
			s.replyError(sess, errInternal)
		}
	}()

	req, err := protocol.ParseRequest(data)
	if err != nil {
		s.replyError(sess, errInvalidEnvelope)
		return
	}

	s.log.Debugf("session %s: %s", sess.ID(), req.Action)

	herr := s.route(sess, req)
	if !errors.Is(herr, errUnknownAction) {
		handledRequests.WithLabelValues(string(req.Action)).Inc()
	}
	if herr != nil {
		var uerr *userError
		if !errors.As(herr, &uerr) {
			s.log.Errorf("session %s: %s failed: %v", sess.ID(), req.Action, herr)
			uerr = errInternal
		}
		s.replyError(sess, uerr)
	}
}

// route invokes exactly one handler for the request's action kind.
func (s *Server) route(sess *Session, req *protocol.Request) error {
	switch req.Action {
	case protocol.ActionPing:
		return s.handlePing(sess)
	case protocol.ActionSetPublicKey:
		return s.handleSetPublicKey(sess, req)
	case protocol.ActionSetKeyStatus:
		return s.handleSetKeyStatus(sess, req)
	case protocol.ActionGetKeyStatus:
		return s.handleGetKeyStatus(sess)
	case protocol.ActionSendFriendRequest:
		return s.handleSendFriendRequest(sess, req)
	case protocol.ActionRespondFriendRequest:
		return s.handleRespondFriendRequest(sess, req)
	case protocol.ActionSendMessage:
		return s.handleSendMessage(sess, req)
	case protocol.ActionGetFriends:
		return s.handleGetFriends(sess)
	case protocol.ActionGetMessages:
		return s.handleGetMessages(sess, req)
	default:
		return errUnknownAction
	}
}

// notify marshals a notification and enqueues it for the identifier.
// Best-effort: false when the session is offline or its queue is full.
func (s *Server) notify(id string, v any) bool {
	data, err := protocol.Marshal(v)
	if err != nil {
		s.log.Errorf("failed to marshal notification for %s: %v", id, err)
		return false
	}
	return s.registry.Deliver(id, data)
}

// replyError sends the failure to the requester's own connection only.
func (s *Server) replyError(sess *Session, uerr *userError) {
	requestErrors.WithLabelValues(uerr.reason).Inc()
	s.notify(sess.ID(), protocol.NewError(uerr.msg))
}

// GetStats reports the live-session summary for the control socket.
func (s *Server) GetStats() string {
	ids := s.registry.LiveIDs()
	sort.Strings(ids)
	return "sessions=" + strconv.Itoa(len(ids)) + ",ids=" + strings.Join(ids, ";")
}
