package server

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSendRequestValidation(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)
	registerLive(t, env, "AAA111")
	registerLive(t, env, "BBB222")

	// Well-formed but not online.
	_, err := env.social.SendRequest("AAA111", "CCC333")
	require.ErrorIs(err, errTargetNotFound)

	// Malformed identifiers never resolve.
	_, err = env.social.SendRequest("AAA111", "nope")
	require.ErrorIs(err, errTargetNotFound)
	_, err = env.social.SendRequest("AAA111", "")
	require.ErrorIs(err, errTargetNotFound)

	_, err = env.social.SendRequest("AAA111", "aaa111")
	require.ErrorIs(err, errSelfFriend)

	// Sloppy input is normalized before validation.
	fr, err := env.social.SendRequest("AAA111", "  bbb222 ")
	require.NoError(err)
	require.Equal("BBB222", fr.Recipient)
	require.Equal("AAA111", fr.Sender)
	require.False(fr.CreatedAt.IsZero())

	_, err = env.social.SendRequest("AAA111", "BBB222")
	require.ErrorIs(err, errDuplicateRequest)
}

func TestAcceptCreatesSymmetricFriendship(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)
	registerLive(t, env, "AAA111")
	registerLive(t, env, "BBB222")

	_, err := env.social.SendRequest("AAA111", "BBB222")
	require.NoError(err)

	res, err := env.social.RespondRequest("BBB222", " aaa111 ", true)
	require.NoError(err)
	require.True(res.Accepted)
	require.Equal("BBB222", res.Responder)
	require.Equal("AAA111", res.Sender)
	require.Nil(res.ResponderKey)
	require.Nil(res.SenderKey)

	for _, pair := range [][2]string{{"AAA111", "BBB222"}, {"BBB222", "AAA111"}} {
		friends, err := env.social.AreFriends(pair[0], pair[1])
		require.NoError(err)
		require.True(friends, "%s -> %s must hold", pair[0], pair[1])
	}

	// Friends cannot request each other again, in either direction.
	_, err = env.social.SendRequest("AAA111", "BBB222")
	require.ErrorIs(err, errAlreadyFriends)
	_, err = env.social.SendRequest("BBB222", "AAA111")
	require.ErrorIs(err, errAlreadyFriends)

	// The pending entry was consumed by the acceptance.
	_, err = env.social.RespondRequest("BBB222", "AAA111", true)
	require.ErrorIs(err, errRequestNotFound)
}

func TestRespondWithoutPendingRequest(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)
	registerLive(t, env, "AAA111")
	registerLive(t, env, "BBB222")

	_, err := env.social.RespondRequest("BBB222", "AAA111", true)
	require.ErrorIs(err, errRequestNotFound)
	_, err = env.social.RespondRequest("BBB222", "AAA111", false)
	require.ErrorIs(err, errRequestNotFound)
}

func TestRejectLeavesNoState(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)
	registerLive(t, env, "AAA111")
	registerLive(t, env, "BBB222")

	_, err := env.social.SendRequest("AAA111", "BBB222")
	require.NoError(err)

	res, err := env.social.RespondRequest("BBB222", "AAA111", false)
	require.NoError(err)
	require.False(res.Accepted)

	friends, err := env.social.AreFriends("AAA111", "BBB222")
	require.NoError(err)
	require.False(friends)

	// A rejected sender may try again.
	_, err = env.social.SendRequest("AAA111", "BBB222")
	require.NoError(err)
}

func TestCrossedRequestsResolveOnce(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)
	registerLive(t, env, "AAA111")
	registerLive(t, env, "BBB222")

	_, err := env.social.SendRequest("AAA111", "BBB222")
	require.NoError(err)
	_, err = env.social.SendRequest("BBB222", "AAA111")
	require.NoError(err)

	// Both sides accept; the second acceptance finds the friendship rows
	// already in place and must not fail.
	_, err = env.social.RespondRequest("BBB222", "AAA111", true)
	require.NoError(err)
	_, err = env.social.RespondRequest("AAA111", "BBB222", true)
	require.NoError(err)

	friends, err := env.social.AreFriends("AAA111", "BBB222")
	require.NoError(err)
	require.True(friends)

	list, err := env.social.ListFriends("AAA111")
	require.NoError(err)
	require.Len(list, 1)
}

func TestRespondResultCarriesKeys(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)
	registerLive(t, env, "AAA111")
	registerLive(t, env, "BBB222")

	_, err := env.registry.SetPublicKey("AAA111", "key of AAA111")
	require.NoError(err)

	_, err = env.social.SendRequest("AAA111", "BBB222")
	require.NoError(err)
	res, err := env.social.RespondRequest("BBB222", "AAA111", true)
	require.NoError(err)

	require.Nil(res.ResponderKey)
	require.NotNil(res.SenderKey)
	require.Equal("key of AAA111", *res.SenderKey)
}

func TestListFriendsPresence(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)
	registerLive(t, env, "AAA111")
	sessB := registerLive(t, env, "BBB222")

	list, err := env.social.ListFriends("AAA111")
	require.NoError(err)
	require.Empty(list)

	_, err = env.social.SendRequest("AAA111", "BBB222")
	require.NoError(err)
	_, err = env.social.RespondRequest("BBB222", "AAA111", true)
	require.NoError(err)

	list, err = env.social.ListFriends("AAA111")
	require.NoError(err)
	require.Len(list, 1)
	require.Equal("BBB222", list[0].UserID)
	require.True(list[0].Online)
	require.Nil(list[0].PublicKey)
	require.Greater(list[0].LastSeen, 0.0)

	env.registry.Disconnect("BBB222", sessB)
	list, err = env.social.ListFriends("AAA111")
	require.NoError(err)
	require.Len(list, 1)
	require.False(list[0].Online, "a disconnected friend must show as offline")
}
