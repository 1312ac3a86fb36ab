package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRegisterNewAssignsDistinctIDs(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		id, err := env.registry.RegisterNew(NewSession(nil))
		require.NoError(err)
		require.True(validID(id), "assigned id %q is malformed", id)
		require.False(seen[id], "identifier %s issued twice", id)
		seen[id] = true
	}
	require.Equal(50, env.registry.OnlineCount())
}

func TestRegisterRejectsLiveID(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)

	require.NoError(env.registry.Register("AAA111", NewSession(nil)))
	require.ErrorIs(env.registry.Register("AAA111", NewSession(nil)), errDuplicateSession)
	require.True(env.registry.IsOnline("AAA111"))
}

func TestDisconnectKeepsProfile(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)

	sess := registerLive(t, env, "AAA111")
	_, err := env.registry.SetPublicKey("AAA111", "-----BEGIN PGP PUBLIC KEY BLOCK-----")
	require.NoError(err)

	before, err := env.registry.Profile("AAA111")
	require.NoError(err)

	time.Sleep(10 * time.Millisecond)
	env.registry.Disconnect("AAA111", sess)
	require.False(env.registry.IsOnline("AAA111"))

	after, err := env.registry.Profile("AAA111")
	require.NoError(err)
	require.NotNil(after.PublicKey)
	require.True(after.PublicKeyLoaded)
	require.True(after.LastSeen.After(before.LastSeen))
}

func TestDisconnectIgnoresStaleSession(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)

	current := registerLive(t, env, "AAA111")

	stale := NewSession(nil)
	stale.id = "AAA111"
	env.registry.Disconnect("AAA111", stale)
	require.True(env.registry.IsOnline("AAA111"), "stale handle must not evict the live session")

	env.registry.Disconnect("AAA111", current)
	require.False(env.registry.IsOnline("AAA111"))

	// Repeated disconnects are no-ops.
	env.registry.Disconnect("AAA111", current)
}

func TestRegisterResetsProfile(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)

	first := registerLive(t, env, "AAA111")
	_, err := env.registry.SetPublicKey("AAA111", "old key")
	require.NoError(err)
	_, err = env.registry.SetKeyStatus("AAA111", true, true)
	require.NoError(err)
	env.registry.Disconnect("AAA111", first)

	// The identifier goes to a new holder, who must not inherit key state.
	registerLive(t, env, "AAA111")
	p, err := env.registry.Profile("AAA111")
	require.NoError(err)
	require.Nil(p.PublicKey)
	require.False(p.PrivateKeyLoaded)
	require.False(p.PublicKeyLoaded)
}

func TestDeliverOfflineAndQueueFull(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)

	require.False(env.registry.Deliver("ZZZ999", []byte("{}")))

	registerLive(t, env, "AAA111")
	for i := 0; i < sendQueueSize; i++ {
		require.True(env.registry.Deliver("AAA111", []byte("{}")))
	}
	// No write loop is draining the queue, so the next frame is dropped.
	require.False(env.registry.Deliver("AAA111", []byte("{}")))
}

func TestKeyStatusPublicFlagIsSticky(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)

	registerLive(t, env, "AAA111")

	status, err := env.registry.SetKeyStatus("AAA111", true, true)
	require.NoError(err)
	require.True(status.PrivateKeyLoaded)
	require.True(status.PublicKeyLoaded)

	status, err = env.registry.SetKeyStatus("AAA111", false, false)
	require.NoError(err)
	require.False(status.PrivateKeyLoaded)
	require.True(status.PublicKeyLoaded, "public flag must never drop back to false")
}

func TestSetPublicKeyRequiresKey(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)

	registerLive(t, env, "AAA111")
	_, err := env.registry.SetPublicKey("AAA111", "")
	require.ErrorIs(err, errMissingKey)
}

func TestDisconnectAll(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)

	registerLive(t, env, "AAA111")
	registerLive(t, env, "BBB222")
	require.Equal(2, env.registry.OnlineCount())

	env.registry.DisconnectAll()
	require.Equal(0, env.registry.OnlineCount())
	require.Empty(env.registry.LiveIDs())
}
