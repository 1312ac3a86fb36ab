package db

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pgpchat/models"
)

func setupTestDB(t *testing.T) *DB {
	database, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}

func TestConversationID(t *testing.T) {
	require := require.New(t)

	require.Equal("AAAAAA_BBBBBB", ConversationID("AAAAAA", "BBBBBB"))
	require.Equal("AAAAAA_BBBBBB", ConversationID("BBBBBB", "AAAAAA"))
	require.Equal("AAAAAA_AAAAAA", ConversationID("AAAAAA", "AAAAAA"))
}

func TestResetProfileWipesKeyState(t *testing.T) {
	require := require.New(t)
	database := setupTestDB(t)

	first := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(database.ResetProfile("ABC123", first))

	require.NoError(database.SetPublicKey("ABC123", "armored key"))
	require.NoError(database.SetKeyFlags("ABC123", true, true))

	p, err := database.GetProfile("ABC123")
	require.NoError(err)
	require.NotNil(p.PublicKey)
	require.Equal("armored key", *p.PublicKey)
	require.True(p.PrivateKeyLoaded)
	require.True(p.PublicKeyLoaded)
	require.True(p.LastSeen.Equal(first))

	// A reissued identifier starts clean.
	second := first.Add(time.Hour)
	require.NoError(database.ResetProfile("ABC123", second))

	p, err = database.GetProfile("ABC123")
	require.NoError(err)
	require.Nil(p.PublicKey)
	require.False(p.PrivateKeyLoaded)
	require.False(p.PublicKeyLoaded)
	require.True(p.LastSeen.Equal(second))
}

func TestGetProfileMissing(t *testing.T) {
	require := require.New(t)
	database := setupTestDB(t)

	_, err := database.GetProfile("NOBODY")
	require.ErrorIs(err, ErrNoRows)
}

func TestSetPublicKeyUnknownUser(t *testing.T) {
	require := require.New(t)
	database := setupTestDB(t)

	require.ErrorIs(database.SetPublicKey("NOBODY", "key"), ErrNoRows)
	require.ErrorIs(database.SetKeyFlags("NOBODY", true, true), ErrNoRows)
}

func TestSetKeyFlagsWriteOncePublic(t *testing.T) {
	require := require.New(t)
	database := setupTestDB(t)

	require.NoError(database.ResetProfile("ABC123", time.Now().UTC()))
	require.NoError(database.SetKeyFlags("ABC123", false, true))

	p, err := database.GetProfile("ABC123")
	require.NoError(err)
	require.False(p.PrivateKeyLoaded)
	require.True(p.PublicKeyLoaded)

	// A later false must not downgrade the public flag; the private flag
	// follows the client.
	require.NoError(database.SetKeyFlags("ABC123", true, false))

	p, err = database.GetProfile("ABC123")
	require.NoError(err)
	require.True(p.PrivateKeyLoaded)
	require.True(p.PublicKeyLoaded)
}

func TestAcceptFriendRequest(t *testing.T) {
	require := require.New(t)
	database := setupTestDB(t)

	now := time.Now().UTC()
	require.NoError(database.ResetProfile("AAAAAA", now))
	require.NoError(database.ResetProfile("BBBBBB", now))
	require.NoError(database.AddFriendRequest("BBBBBB", "AAAAAA", now))

	pending, err := database.HasFriendRequest("BBBBBB", "AAAAAA")
	require.NoError(err)
	require.True(pending)

	require.NoError(database.AcceptFriendRequest("BBBBBB", "AAAAAA", now))

	for _, pair := range [][2]string{{"AAAAAA", "BBBBBB"}, {"BBBBBB", "AAAAAA"}} {
		friends, err := database.AreFriends(pair[0], pair[1])
		require.NoError(err)
		require.True(friends)
	}

	pending, err = database.HasFriendRequest("BBBBBB", "AAAAAA")
	require.NoError(err)
	require.False(pending)

	// Nothing pending anymore, so a second acceptance fails cleanly.
	require.ErrorIs(database.AcceptFriendRequest("BBBBBB", "AAAAAA", now), ErrNoRows)
}

func TestAcceptCrossedRequests(t *testing.T) {
	require := require.New(t)
	database := setupTestDB(t)

	now := time.Now().UTC()
	require.NoError(database.AddFriendRequest("BBBBBB", "AAAAAA", now))
	require.NoError(database.AddFriendRequest("AAAAAA", "BBBBBB", now))

	// Both sides accept; the second acceptance finds the friendship rows
	// already present and must still succeed.
	require.NoError(database.AcceptFriendRequest("BBBBBB", "AAAAAA", now))
	require.NoError(database.AcceptFriendRequest("AAAAAA", "BBBBBB", now))

	friends, err := database.AreFriends("AAAAAA", "BBBBBB")
	require.NoError(err)
	require.True(friends)
}

func TestDeleteFriendRequest(t *testing.T) {
	require := require.New(t)
	database := setupTestDB(t)

	require.ErrorIs(database.DeleteFriendRequest("BBBBBB", "AAAAAA"), ErrNoRows)

	now := time.Now().UTC()
	require.NoError(database.AddFriendRequest("BBBBBB", "AAAAAA", now))
	require.NoError(database.DeleteFriendRequest("BBBBBB", "AAAAAA"))

	pending, err := database.HasFriendRequest("BBBBBB", "AAAAAA")
	require.NoError(err)
	require.False(pending)
}

func TestGetFriendProfilesJoin(t *testing.T) {
	require := require.New(t)
	database := setupTestDB(t)

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(database.ResetProfile("AAAAAA", now))
	require.NoError(database.ResetProfile("BBBBBB", now))
	require.NoError(database.ResetProfile("CCCCCC", now))
	require.NoError(database.SetPublicKey("BBBBBB", "b-key"))

	require.NoError(database.AddFriendRequest("AAAAAA", "BBBBBB", now))
	require.NoError(database.AcceptFriendRequest("AAAAAA", "BBBBBB", now))
	require.NoError(database.AddFriendRequest("AAAAAA", "CCCCCC", now))
	require.NoError(database.AcceptFriendRequest("AAAAAA", "CCCCCC", now))

	profiles, err := database.GetFriendProfiles("AAAAAA")
	require.NoError(err)
	require.Len(profiles, 2)
	require.Equal("BBBBBB", profiles[0].UserID)
	require.NotNil(profiles[0].PublicKey)
	require.Equal("b-key", *profiles[0].PublicKey)
	require.Equal("CCCCCC", profiles[1].UserID)
	require.Nil(profiles[1].PublicKey)
}

func TestConversationInsertionOrder(t *testing.T) {
	require := require.New(t)
	database := setupTestDB(t)

	// Identical timestamps on purpose: order must come from insertion, not
	// the clock.
	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	conv := ConversationID("AAAAAA", "BBBBBB")
	payloads := []struct {
		sender, target, blob string
	}{
		{"AAAAAA", "BBBBBB", "first"},
		{"BBBBBB", "AAAAAA", "second"},
		{"AAAAAA", "BBBBBB", "third"},
	}
	for i, p := range payloads {
		msg := &models.Message{
			ConversationID:   conv,
			MessageID:        "m" + string(rune('0'+i)),
			Sender:           p.sender,
			Target:           p.target,
			EncryptedPayload: p.blob,
			Timestamp:        at,
		}
		require.NoError(database.SaveMessage(msg))
		require.NotZero(msg.ID)
	}

	messages, err := database.GetConversation(conv)
	require.NoError(err)
	require.Len(messages, 3)
	require.Equal("first", messages[0].EncryptedPayload)
	require.Equal("second", messages[1].EncryptedPayload)
	require.Equal("third", messages[2].EncryptedPayload)

	// Same log from the reversed pair ordering.
	messages, err = database.GetConversation(ConversationID("BBBBBB", "AAAAAA"))
	require.NoError(err)
	require.Len(messages, 3)

	// Other pairs see nothing.
	messages, err = database.GetConversation(ConversationID("AAAAAA", "CCCCCC"))
	require.NoError(err)
	require.Empty(messages)
}
