package server

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const sendQueueSize = 16

// Session is one live connection's delivery handle. The registry owns the
// map entry; the write loop is the only consumer of out.
type Session struct {
	id   string
	conn *websocket.Conn
	out  chan []byte
	once sync.Once
}

func NewSession(conn *websocket.Conn) *Session {
	return &Session{
		conn: conn,
		out:  make(chan []byte, sendQueueSize),
	}
}

// ID returns the identifier assigned at registration.
func (s *Session) ID() string { return s.id }

// enqueue hands one frame to the write loop without blocking. A full queue
// counts as a failed delivery.
func (s *Session) enqueue(data []byte) bool {
	select {
	case s.out <- data:
		return true
	default:
		return false
	}
}

// close releases the write loop. Safe to call more than once.
func (s *Session) close() {
	s.once.Do(func() { close(s.out) })
}

// writeLoop drains the outbound queue to the socket. It exits when the
// queue closes or a write fails, closing the connection either way, which
// in turn unblocks the read loop.
func (s *Session) writeLoop(timeout time.Duration) {
	defer s.conn.Close()
	for data := range s.out {
		s.conn.SetWriteDeadline(time.Now().Add(timeout))
		if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
	// Queue closed: the registry dropped this session, say goodbye.
	s.conn.SetWriteDeadline(time.Now().Add(timeout))
	s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
