package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// makeFriends runs the request/accept handshake so a can message b.
func makeFriends(t *testing.T, env *testEnv, a, b string) {
	t.Helper()
	_, err := env.social.SendRequest(a, b)
	require.NoError(t, err)
	_, err = env.social.RespondRequest(b, a, true)
	require.NoError(t, err)
}

func TestAppendRequiresFriendship(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)
	registerLive(t, env, "AAA111")
	registerLive(t, env, "BBB222")

	_, err := env.conversations.Append("AAA111", "BBB222", "cipher")
	require.ErrorIs(err, errNotFriends)

	makeFriends(t, env, "AAA111", "BBB222")

	msg, err := env.conversations.Append("AAA111", " bbb222 ", "cipher")
	require.NoError(err)
	require.Equal("AAA111_BBB222", msg.ConversationID)
	require.NotEmpty(msg.MessageID)
	require.Equal("AAA111", msg.Sender)
	require.Equal("BBB222", msg.Target)
	require.Equal("cipher", msg.EncryptedPayload)
	require.WithinDuration(time.Now().UTC(), msg.Timestamp, 5*time.Second)
}

func TestAppendValidation(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)
	registerLive(t, env, "AAA111")
	registerLive(t, env, "BBB222")

	_, err := env.conversations.Append("AAA111", "   ", "cipher")
	require.ErrorIs(err, errMissingTarget)

	_, err = env.conversations.Append("AAA111", "BBB222", "")
	require.ErrorIs(err, errMissingMessage)
}

func TestConversationSharedBothDirections(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)
	registerLive(t, env, "AAA111")
	registerLive(t, env, "BBB222")
	makeFriends(t, env, "AAA111", "BBB222")

	m1, err := env.conversations.Append("AAA111", "BBB222", "c1")
	require.NoError(err)
	m2, err := env.conversations.Append("BBB222", "AAA111", "c2")
	require.NoError(err)
	m3, err := env.conversations.Append("AAA111", "BBB222", "c3")
	require.NoError(err)

	// Both orderings of the pair resolve to one shared log.
	require.Equal(m1.ConversationID, m2.ConversationID)
	require.NotEqual(m1.MessageID, m2.MessageID)
	require.NotEqual(m2.MessageID, m3.MessageID)

	fromA, err := env.conversations.Conversation("AAA111", "bbb222")
	require.NoError(err)
	fromB, err := env.conversations.Conversation("BBB222", "AAA111")
	require.NoError(err)
	require.Equal(fromA, fromB)

	require.Len(fromA, 3)
	for i, want := range []string{"c1", "c2", "c3"} {
		require.Equal(want, fromA[i].EncryptedPayload, "log must keep insertion order")
	}
	require.Equal("AAA111", fromA[0].Sender)
	require.Equal("BBB222", fromA[1].Sender)
}

func TestConversationRequiresFriendship(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)
	registerLive(t, env, "AAA111")
	registerLive(t, env, "BBB222")

	_, err := env.conversations.Conversation("AAA111", "BBB222")
	require.ErrorIs(err, errNotFriends)

	_, err = env.conversations.Conversation("AAA111", "")
	require.ErrorIs(err, errMissingTarget)
}

func TestConversationEmptyLog(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)
	registerLive(t, env, "AAA111")
	registerLive(t, env, "BBB222")
	makeFriends(t, env, "AAA111", "BBB222")

	msgs, err := env.conversations.Conversation("AAA111", "BBB222")
	require.NoError(err)
	require.Empty(msgs)
}

func TestConversationReadableAfterReconnect(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)
	registerLive(t, env, "AAA111")
	sessB := registerLive(t, env, "BBB222")
	makeFriends(t, env, "AAA111", "BBB222")

	env.registry.Disconnect("BBB222", sessB)

	// The target being offline does not block the append.
	_, err := env.conversations.Append("AAA111", "BBB222", "for later")
	require.NoError(err)

	// The identifier comes back online and finds the message waiting.
	registerLive(t, env, "BBB222")
	msgs, err := env.conversations.Conversation("BBB222", "AAA111")
	require.NoError(err)
	require.Len(msgs, 1)
	require.Equal("for later", msgs[0].EncryptedPayload)
}
