package relay_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/walletsync/internal/relay"
	"github.com/roach88/walletsync/internal/transport"
)

func startRelay(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(relay.NewServer().Handler))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func acceptOne(t *testing.T, ln transport.Listener) transport.Conn {
	t.Helper()
	type result struct {
		conn transport.Conn
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		conn, err := ln.Accept()
		ch <- result{conn, err}
	}()
	select {
	case r := <-ch:
		require.NoError(t, r.err)
		return r.conn
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for inbound connection")
		return nil
	}
}

func TestRelayRoundtrip(t *testing.T) {
	url := startRelay(t)
	ctx := context.Background()

	chA := relay.NewChannel(url)
	lnA, err := chA.Listen(ctx, "dev-a")
	require.NoError(t, err)
	defer chA.Close()

	chB := relay.NewChannel(url)
	_, err = chB.Listen(ctx, "dev-b")
	require.NoError(t, err)
	defer chB.Close()

	dialed, err := chB.Dial(ctx, "dev-a")
	require.NoError(t, err)
	accepted := acceptOne(t, lnA)

	require.NoError(t, dialed.Send([]byte("hello from b")))
	payload, err := accepted.Receive()
	require.NoError(t, err)
	assert.Equal(t, "hello from b", string(payload))

	require.NoError(t, accepted.Send([]byte("hello from a")))
	payload, err = dialed.Receive()
	require.NoError(t, err)
	assert.Equal(t, "hello from a", string(payload))
}

func TestRelayDuplicateIdentityRejected(t *testing.T) {
	url := startRelay(t)
	ctx := context.Background()

	chA := relay.NewChannel(url)
	_, err := chA.Listen(ctx, "dev-a")
	require.NoError(t, err)
	defer chA.Close()

	chDup := relay.NewChannel(url)
	_, err = chDup.Listen(ctx, "dev-a")
	require.Error(t, err)
	assert.ErrorIs(t, err, transport.ErrIdentityInUse)
}

func TestRelayDialUnregisteredPeer(t *testing.T) {
	url := startRelay(t)
	ctx := context.Background()

	ch := relay.NewChannel(url)
	_, err := ch.Listen(ctx, "dev-a")
	require.NoError(t, err)
	defer ch.Close()

	_, err = ch.Dial(ctx, "dev-ghost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not registered")
}

func TestRelayDialBeforeListen(t *testing.T) {
	ch := relay.NewChannel("ws://127.0.0.1:1/ws")
	_, err := ch.Dial(context.Background(), "dev-a")
	assert.Error(t, err)
}

func TestRelayConnCloseReachesPeer(t *testing.T) {
	url := startRelay(t)
	ctx := context.Background()

	chA := relay.NewChannel(url)
	lnA, err := chA.Listen(ctx, "dev-a")
	require.NoError(t, err)
	defer chA.Close()

	chB := relay.NewChannel(url)
	_, err = chB.Listen(ctx, "dev-b")
	require.NoError(t, err)
	defer chB.Close()

	dialed, err := chB.Dial(ctx, "dev-a")
	require.NoError(t, err)
	accepted := acceptOne(t, lnA)

	require.NoError(t, dialed.Close())

	_, err = accepted.Receive()
	assert.Error(t, err, "peer close must unblock a pending receive")
}

func TestRelaySocketDropClosesLinks(t *testing.T) {
	url := startRelay(t)
	ctx := context.Background()

	chA := relay.NewChannel(url)
	lnA, err := chA.Listen(ctx, "dev-a")
	require.NoError(t, err)
	defer chA.Close()

	chB := relay.NewChannel(url)
	_, err = chB.Listen(ctx, "dev-b")
	require.NoError(t, err)

	_, err = chB.Dial(ctx, "dev-a")
	require.NoError(t, err)
	accepted := acceptOne(t, lnA)

	// The whole partner device goes away; the surviving side's virtual
	// connection must die with it.
	require.NoError(t, chB.Close())

	_, err = accepted.Receive()
	assert.Error(t, err)

	// The identity is free again.
	chB2 := relay.NewChannel(url)
	_, err = chB2.Listen(ctx, "dev-b")
	require.NoError(t, err)
	chB2.Close()
}

func TestRelayCloseIdempotent(t *testing.T) {
	url := startRelay(t)

	ch := relay.NewChannel(url)
	ln, err := ch.Listen(context.Background(), "dev-a")
	require.NoError(t, err)

	require.NoError(t, ln.Close())
	require.NoError(t, ln.Close())
	require.NoError(t, ch.Close())
}
