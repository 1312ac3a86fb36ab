package protocol

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pgpchat/models"
)

func TestParseRequest(t *testing.T) {
	require := require.New(t)

	req, err := ParseRequest([]byte(`{"action":"send_message","target_id":"ABC123","encrypted_message":"blob"}`))
	require.NoError(err)
	require.Equal(ActionSendMessage, req.Action)
	require.Equal("ABC123", req.TargetID)
	require.Equal("blob", req.EncryptedMessage)

	_, err = ParseRequest([]byte("not json"))
	require.ErrorIs(err, ErrInvalidRequest)
}

func TestParseRequestKeyFlags(t *testing.T) {
	require := require.New(t)

	req, err := ParseRequest([]byte(`{"action":"set_key_status","private_key_loaded":true,"public_key_loaded":false}`))
	require.NoError(err)
	require.NotNil(req.PrivateKeyLoaded)
	require.NotNil(req.PublicKeyLoaded)
	require.True(*req.PrivateKeyLoaded)
	require.False(*req.PublicKeyLoaded)

	// Absent flags must be distinguishable from explicit false.
	req, err = ParseRequest([]byte(`{"action":"set_key_status"}`))
	require.NoError(err)
	require.Nil(req.PrivateKeyLoaded)
	require.Nil(req.PublicKeyLoaded)
}

func TestFriendAddedNullKey(t *testing.T) {
	require := require.New(t)

	data, err := Marshal(NewFriendAdded("ABC123", nil))
	require.NoError(err)
	require.JSONEq(`{"type":"friend_added","friend_id":"ABC123","public_key":null}`, string(data))

	key := "armored key"
	data, err = Marshal(NewFriendAdded("ABC123", &key))
	require.NoError(err)
	require.JSONEq(`{"type":"friend_added","friend_id":"ABC123","public_key":"armored key"}`, string(data))
}

func TestFriendsListNeverNull(t *testing.T) {
	require := require.New(t)

	data, err := Marshal(NewFriendsList(nil))
	require.NoError(err)
	require.JSONEq(`{"type":"friends_list","friends":[]}`, string(data))
}

func TestMessageReceivedShape(t *testing.T) {
	require := require.New(t)

	at := time.Date(2024, 6, 1, 12, 0, 0, 500000000, time.UTC)
	msg := &models.Message{
		MessageID:        "id-1",
		Sender:           "AAAAAA",
		Target:           "BBBBBB",
		EncryptedPayload: "blob",
		Timestamp:        at,
	}
	data, err := Marshal(NewMessageReceived(msg))
	require.NoError(err)
	require.JSONEq(`{"type":"message_received","message_id":"id-1","sender_id":"AAAAAA","target_id":"BBBBBB","encrypted_message":"blob","timestamp":1717243200.5}`, string(data))
}

func TestConversationMessagesCount(t *testing.T) {
	require := require.New(t)

	msgs := []models.Message{
		{MessageID: "a", Sender: "AAAAAA", Target: "BBBBBB", EncryptedPayload: "one", Timestamp: time.Unix(1, 0)},
		{MessageID: "b", Sender: "BBBBBB", Target: "AAAAAA", EncryptedPayload: "two", Timestamp: time.Unix(2, 0)},
	}
	cm := NewConversationMessages("BBBBBB", msgs)
	require.Equal(2, cm.MessageCount)
	require.Len(cm.Messages, 2)
	require.Equal("one", cm.Messages[0].EncryptedMessage)

	empty := NewConversationMessages("BBBBBB", nil)
	require.Equal(0, empty.MessageCount)
	data, err := Marshal(empty)
	require.NoError(err)
	require.JSONEq(`{"type":"conversation_messages","target_id":"BBBBBB","messages":[],"message_count":0}`, string(data))
}

func TestUnixSeconds(t *testing.T) {
	require := require.New(t)

	at := time.Unix(1700000000, 250000000)
	require.InDelta(1700000000.25, UnixSeconds(at), 1e-6)
}
