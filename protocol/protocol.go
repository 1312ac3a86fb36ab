// Package protocol defines the JSON envelopes exchanged with clients: one
// action request per inbound frame, one typed notification per outbound
// frame. Payloads stay opaque; the server only frames and routes them.
package protocol

import (
	"encoding/json"
	"errors"
	"time"

	"pgpchat/models"
)

var ErrInvalidRequest = errors.New("invalid request envelope")

// Action is the request kind carried in the envelope's action field.
type Action string

const (
	ActionPing                 Action = "ping"
	ActionSetPublicKey         Action = "set_public_key"
	ActionSetKeyStatus         Action = "set_key_status"
	ActionGetKeyStatus         Action = "get_key_status"
	ActionSendFriendRequest    Action = "send_friend_request"
	ActionRespondFriendRequest Action = "respond_friend_request"
	ActionSendMessage          Action = "send_message"
	ActionGetFriends           Action = "get_friends"
	ActionGetMessages          Action = "get_messages"
)

// Notification type tags.
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
)

// Request is the inbound envelope. Fields beyond Action are optional and
// validated per action by the dispatcher. The key-status flags are pointers
// so a missing field can be told apart from an explicit false.
type Request struct {
	Action           Action `json:"action"`
	PublicKey        string `json:"public_key,omitempty"`
	PrivateKeyLoaded *bool  `json:"private_key_loaded,omitempty"`
	PublicKeyLoaded  *bool  `json:"public_key_loaded,omitempty"`
	TargetID         string `json:"target_id,omitempty"`
	SenderID         string `json:"sender_id,omitempty"`
	Accepted         bool   `json:"accepted,omitempty"`
	EncryptedMessage string `json:"encrypted_message,omitempty"`
}

// ParseRequest decodes one inbound frame.
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, ErrInvalidRequest
	}
	return &req, nil
}

// Header is the minimal outbound envelope, enough to route by type.
type Header struct {
	Type string `json:"type"`
}

// Marshal encodes one outbound frame.
func Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// UnixSeconds renders a timestamp the way clients expect: fractional unix
// seconds.
func UnixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

type UserIDAssigned struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
}

func NewUserIDAssigned(id string) *UserIDAssigned {
	return &UserIDAssigned{Type: TypeUserIDAssigned, UserID: id}
}

type Pong struct {
	Type string `json:"type"`
}

func NewPong() *Pong {
	return &Pong{Type: TypePong}
}

type PublicKeySet struct {
	Type      string           `json:"type"`
	Success   bool             `json:"success"`
	KeyStatus models.KeyStatus `json:"key_status"`
}

func NewPublicKeySet(status models.KeyStatus) *PublicKeySet {
	return &PublicKeySet{Type: TypePublicKeySet, Success: true, KeyStatus: status}
}

type KeyStatusUpdated struct {
	Type      string           `json:"type"`
	KeyStatus models.KeyStatus `json:"key_status"`
}

func NewKeyStatusUpdated(status models.KeyStatus) *KeyStatusUpdated {
	return &KeyStatusUpdated{Type: TypeKeyStatusUpdated, KeyStatus: status}
}

type KeyStatusReport struct {
	Type      string           `json:"type"`
	KeyStatus models.KeyStatus `json:"key_status"`
}

func NewKeyStatusReport(status models.KeyStatus) *KeyStatusReport {
	return &KeyStatusReport{Type: TypeKeyStatus, KeyStatus: status}
}

type FriendRequestSent struct {
	Type     string `json:"type"`
	TargetID string `json:"target_id"`
}

func NewFriendRequestSent(target string) *FriendRequestSent {
	return &FriendRequestSent{Type: TypeFriendRequestSent, TargetID: target}
}

type FriendRequestReceived struct {
	Type      string  `json:"type"`
	SenderID  string  `json:"sender_id"`
	Timestamp float64 `json:"timestamp"`
}

func NewFriendRequestReceived(sender string, at time.Time) *FriendRequestReceived {
	return &FriendRequestReceived{
		Type:      TypeFriendRequestReceived,
		SenderID:  sender,
		Timestamp: UnixSeconds(at),
	}
}

type FriendAdded struct {
	Type      string  `json:"type"`
	FriendID  string  `json:"friend_id"`
	PublicKey *string `json:"public_key"`
}

func NewFriendAdded(friend string, publicKey *string) *FriendAdded {
	return &FriendAdded{Type: TypeFriendAdded, FriendID: friend, PublicKey: publicKey}
}

type FriendRequestRejected struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
}

func NewFriendRequestRejected(responder string) *FriendRequestRejected {
	return &FriendRequestRejected{Type: TypeFriendRequestRejected, UserID: responder}
}

// MessageItem is the wire form of one stored message.
type MessageItem struct {
	MessageID        string  `json:"message_id"`
	SenderID         string  `json:"sender_id"`
	TargetID         string  `json:"target_id"`
	EncryptedMessage string  `json:"encrypted_message"`
	Timestamp        float64 `json:"timestamp"`
}

func newMessageItem(m *models.Message) MessageItem {
	return MessageItem{
		MessageID:        m.MessageID,
		SenderID:         m.Sender,
		TargetID:         m.Target,
		EncryptedMessage: m.EncryptedPayload,
		Timestamp:        UnixSeconds(m.Timestamp),
	}
}

type MessageReceived struct {
	Type string `json:"type"`
	MessageItem
}

func NewMessageReceived(m *models.Message) *MessageReceived {
	return &MessageReceived{Type: TypeMessageReceived, MessageItem: newMessageItem(m)}
}

type FriendsList struct {
	Type    string          `json:"type"`
	Friends []models.Friend `json:"friends"`
}

func NewFriendsList(friends []models.Friend) *FriendsList {
	if friends == nil {
		friends = []models.Friend{}
	}
	return &FriendsList{Type: TypeFriendsList, Friends: friends}
}

type ConversationMessages struct {
	Type         string        `json:"type"`
	TargetID     string        `json:"target_id"`
	Messages     []MessageItem `json:"messages"`
	MessageCount int           `json:"message_count"`
}

func NewConversationMessages(target string, msgs []models.Message) *ConversationMessages {
	items := make([]MessageItem, 0, len(msgs))
	for i := range msgs {
		items = append(items, newMessageItem(&msgs[i]))
	}
	return &ConversationMessages{
		Type:         TypeConversationMessages,
		TargetID:     target,
		Messages:     items,
		MessageCount: len(items),
	}
}

type ErrorNotification struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewError(message string) *ErrorNotification {
	return &ErrorNotification{Type: TypeError, Message: message}
}
