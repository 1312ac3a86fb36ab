package protocol

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Notification types pushed by the server. TypeDisconnected is synthetic:
// it is emitted locally when the link drops.
const (
	TypeUserIDAssigned        = "user_id_assigned"
	TypePong                  = "pong"
	TypePublicKeySet          = "public_key_set"
	TypeKeyStatusUpdated      = "key_status_updated"
	TypeKeyStatus             = "key_status"
	TypeFriendRequestSent     = "friend_request_sent"
	TypeFriendRequestReceived = "friend_request_received"
	TypeFriendAdded           = "friend_added"
	TypeFriendRequestRejected = "friend_request_rejected"
	TypeMessageReceived       = "message_received"
	TypeFriendsList           = "friends_list"
	TypeConversationMessages  = "conversation_messages"
	TypeError                 = "error"
	TypeDisconnected          = "disconnected"
)

// Actions the client may send.
const (
	ActionPing                 = "ping"
	ActionSetPublicKey         = "set_public_key"
	ActionSetKeyStatus         = "set_key_status"
	ActionGetKeyStatus         = "get_key_status"
	ActionSendFriendRequest    = "send_friend_request"
	ActionRespondFriendRequest = "respond_friend_request"
	ActionSendMessage          = "send_message"
	ActionGetFriends           = "get_friends"
	ActionGetMessages          = "get_messages"
)

// request is the outbound envelope. Only the fields the action needs are
// set; omitempty keeps the frames minimal.
type request struct {
	Action           string `json:"action"`
	PublicKey        string `json:"public_key,omitempty"`
	PrivateKeyLoaded *bool  `json:"private_key_loaded,omitempty"`
	PublicKeyLoaded  *bool  `json:"public_key_loaded,omitempty"`
	TargetID         string `json:"target_id,omitempty"`
	SenderID         string `json:"sender_id,omitempty"`
	Accepted         bool   `json:"accepted,omitempty"`
	EncryptedMessage string `json:"encrypted_message,omitempty"`
}

// KeyStatus mirrors the server's view of which keys this client reported.
type KeyStatus struct {
	PrivateKeyLoaded bool `json:"private_key_loaded"`
	PublicKeyLoaded  bool `json:"public_key_loaded"`
}

// UserIDAssigned is pushed once right after connecting.
type UserIDAssigned struct {
	UserID string `json:"user_id"`
}

// KeyStatusNotice covers public_key_set, key_status_updated and key_status
// frames; they share the key_status body.
type KeyStatusNotice struct {
	Success   bool      `json:"success"`
	KeyStatus KeyStatus `json:"key_status"`
}

type FriendRequestReceived struct {
	SenderID  string  `json:"sender_id"`
	Timestamp float64 `json:"timestamp"`
}

type FriendRequestSent struct {
	TargetID string `json:"target_id"`
}

type FriendAdded struct {
	FriendID  string  `json:"friend_id"`
	PublicKey *string `json:"public_key"`
}

type FriendRequestRejected struct {
	UserID string `json:"user_id"`
}

// Friend is one row of the friends listing. LastSeen is fractional unix
// seconds.
type Friend struct {
	UserID    string  `json:"user_id"`
	PublicKey *string `json:"public_key"`
	LastSeen  float64 `json:"last_seen"`
	Online    bool    `json:"online"`
}

type FriendsList struct {
	Friends []Friend `json:"friends"`
}

// Message is one relayed or stored message. The payload is the encrypted
// blob as the sender produced it.
type Message struct {
	MessageID        string  `json:"message_id"`
	SenderID         string  `json:"sender_id"`
	TargetID         string  `json:"target_id"`
	EncryptedMessage string  `json:"encrypted_message"`
	Timestamp        float64 `json:"timestamp"`
}

type ConversationMessages struct {
	TargetID     string    `json:"target_id"`
	Messages     []Message `json:"messages"`
	MessageCount int       `json:"message_count"`
}

type ErrorNotification struct {
	Message string `json:"message"`
}

// Handler receives the raw frame of one notification type.
type Handler func(data []byte)

// Client speaks the pgpchat WebSocket protocol: JSON frames out, typed
// notifications in, dispatched to registered handlers.
type Client struct {
	conn       *websocket.Conn
	mu         sync.Mutex
	sendMu     sync.Mutex
	handlers   map[string][]Handler
	pingTicker *time.Ticker
	done       chan struct{}
	connected  bool
	lastPong   time.Time
	pongMu     sync.RWMutex
}

// NewClient creates a disconnected client. Register handlers before
// calling Connect: the server pushes user_id_assigned immediately.
func NewClient() *Client {
	return &Client{
		handlers: make(map[string][]Handler),
		done:     make(chan struct{}),
	}
}

// Connect dials the server and starts the read and ping loops.
func (c *Client) Connect(url string) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		return err
	}
	c.conn = conn
	c.connected = true
	c.lastPong = time.Now()

	// Track last response time via pong frames.
	c.OnNotification(TypePong, func([]byte) {
		c.pongMu.Lock()
		c.lastPong = time.Now()
		c.pongMu.Unlock()
	})

	c.pingTicker = time.NewTicker(30 * time.Second)
	go c.pingLoop()
	go c.readLoop()

	return nil
}

// Disconnect closes the link gracefully.
func (c *Client) Disconnect() error {
	if !c.connected {
		return nil
	}
	c.connected = false
	close(c.done)
	if c.pingTicker != nil {
		c.pingTicker.Stop()
	}
	c.sendMu.Lock()
	c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.sendMu.Unlock()
	return c.conn.Close()
}

// IsConnected returns connection status.
func (c *Client) IsConnected() bool {
	return c.connected
}

// LastPongTime returns time since the last pong response.
func (c *Client) LastPongTime() time.Duration {
	c.pongMu.RLock()
	defer c.pongMu.RUnlock()
	return time.Since(c.lastPong)
}

// pingLoop keeps the connection alive.
func (c *Client) pingLoop() {
	for {
		select {
		case <-c.done:
			return
		case <-c.pingTicker.C:
			if c.connected {
				c.Ping()
			}
		}
	}
}

// readLoop reads frames and dispatches them by type.
func (c *Client) readLoop() {
	for c.connected {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if c.connected {
				c.connected = false
				c.notifyHandlers(TypeDisconnected, nil)
			}
			return
		}

		var head struct {
			Type string `json:"type"`
		}
		if json.Unmarshal(data, &head) != nil || head.Type == "" {
			continue
		}
		c.notifyHandlers(head.Type, data)
	}
}

// notifyHandlers fans a frame out to every handler of its type.
func (c *Client) notifyHandlers(typ string, data []byte) {
	c.mu.Lock()
	handlers := c.handlers[typ]
	c.mu.Unlock()

	for _, h := range handlers {
		go h(data)
	}
}

// OnNotification registers a handler for a notification type.
func (c *Client) OnNotification(typ string, handler Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[typ] = append(c.handlers[typ], handler)
}

// send writes one request frame. Writes are serialized; gorilla allows
// only one concurrent writer.
func (c *Client) send(req *request) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if !c.connected {
		return fmt.Errorf("not connected")
	}
	return c.conn.WriteJSON(req)
}

// Ping sends a keepalive probe.
func (c *Client) Ping() error {
	return c.send(&request{Action: ActionPing})
}

// SetPublicKey uploads the armored public key for friends to fetch.
func (c *Client) SetPublicKey(armored string) error {
	return c.send(&request{Action: ActionSetPublicKey, PublicKey: armored})
}

// SetKeyStatus reports which keys are loaded locally.
func (c *Client) SetKeyStatus(private, public bool) error {
	return c.send(&request{
		Action:           ActionSetKeyStatus,
		PrivateKeyLoaded: &private,
		PublicKeyLoaded:  &public,
	})
}

// GetKeyStatus asks for the server's view of our key flags.
func (c *Client) GetKeyStatus() error {
	return c.send(&request{Action: ActionGetKeyStatus})
}

// SendFriendRequest asks the holder of target to become a friend.
func (c *Client) SendFriendRequest(target string) error {
	return c.send(&request{Action: ActionSendFriendRequest, TargetID: target})
}

// RespondFriendRequest accepts or rejects a pending request from sender.
func (c *Client) RespondFriendRequest(sender string, accepted bool) error {
	return c.send(&request{Action: ActionRespondFriendRequest, SenderID: sender, Accepted: accepted})
}

// SendMessage relays an encrypted payload to a friend.
func (c *Client) SendMessage(target, encrypted string) error {
	return c.send(&request{Action: ActionSendMessage, TargetID: target, EncryptedMessage: encrypted})
}

// GetFriends requests the friends listing.
func (c *Client) GetFriends() error {
	return c.send(&request{Action: ActionGetFriends})
}

// GetMessages requests the conversation log with a friend.
func (c *Client) GetMessages(target string) error {
	return c.send(&request{Action: ActionGetMessages, TargetID: target})
}
