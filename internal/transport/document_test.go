package transport_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/walletsync/internal/domain"
	"github.com/roach88/walletsync/internal/testutil"
	"github.com/roach88/walletsync/internal/transport"
)

func TestDocumentBootstrapsNewWallet(t *testing.T) {
	docs := testutil.NewMemDocs()
	rec := newRecorder()
	local := walletDoc(t, "device-one")

	d := transport.NewDocument(docs, "fam-1", func() domain.GlobalData { return local }, rec.handlers())
	require.NoError(t, d.Start(context.Background()))
	defer d.Stop()

	rec.waitStatus(t, transport.StatusConnected)

	// First writer establishes truth.
	stored, ok := docs.Get("fam-1")
	require.True(t, ok)
	assert.Equal(t, "device-one", stored.DeviceID)

	// Our own bootstrap echo is an ordinary remote delivery, not adoption.
	got := rec.waitRemote(t)
	assert.Equal(t, "device-one", got.DeviceID)
}

func TestDocumentAdoptFallsBackToRemoteHandler(t *testing.T) {
	docs := testutil.NewMemDocs()
	require.NoError(t, docs.Push(context.Background(), "fam-1", walletDoc(t, "device-two")))

	rec := newRecorder()
	h := rec.handlers()
	h.OnAdopt = nil
	local := walletDoc(t, "device-one")
	d := transport.NewDocument(docs, "fam-1", func() domain.GlobalData { return local }, h)
	require.NoError(t, d.Start(context.Background()))
	defer d.Stop()

	got := rec.waitRemote(t)
	assert.Equal(t, "device-two", got.DeviceID)
}

func TestDocumentAdoptsExistingWallet(t *testing.T) {
	docs := testutil.NewMemDocs()
	existing := walletDoc(t, "device-two")
	require.NoError(t, docs.Push(context.Background(), "fam-1", existing))

	rec := newRecorder()
	local := walletDoc(t, "device-one")
	d := transport.NewDocument(docs, "fam-1", func() domain.GlobalData { return local }, rec.handlers())
	require.NoError(t, d.Start(context.Background()))
	defer d.Stop()

	// The established ledger is authoritative: delivered through the adopt
	// callback, never pre-empted by a bootstrap push.
	got := rec.waitAdopt(t)
	assert.Equal(t, "device-two", got.DeviceID)
	stored, _ := docs.Get("fam-1")
	assert.Equal(t, "device-two", stored.DeviceID)

	// Only the first snapshot is adoption; later writes merge as usual.
	require.NoError(t, docs.Push(context.Background(), "fam-1", walletDoc(t, "device-three")))
	next := rec.waitRemote(t)
	assert.Equal(t, "device-three", next.DeviceID)
}

func TestDocumentBroadcastPushes(t *testing.T) {
	docs := testutil.NewMemDocs()
	local := walletDoc(t, "device-one")
	d := transport.NewDocument(docs, "fam-1", func() domain.GlobalData { return local }, transport.Handlers{})
	require.NoError(t, d.Start(context.Background()))
	defer d.Stop()

	updated := local.Clone()
	updated.ActiveBookID = "b-new"
	require.NoError(t, d.Broadcast(updated))

	stored, ok := docs.Get("fam-1")
	require.True(t, ok)
	assert.Equal(t, "b-new", stored.ActiveBookID)
}

func TestDocumentPushFailureSwallowed(t *testing.T) {
	docs := testutil.NewMemDocs()
	local := walletDoc(t, "device-one")
	d := transport.NewDocument(docs, "fam-1", func() domain.GlobalData { return local }, transport.Handlers{})
	require.NoError(t, d.Start(context.Background()))
	defer d.Stop()

	docs.PushErr = errors.New("offline")
	assert.NoError(t, d.Broadcast(local), "storage failures degrade, never surface")
}

func TestDocumentExistsFailureAssumesPresent(t *testing.T) {
	docs := testutil.NewMemDocs()
	docs.ExistsErr = errors.New("offline")
	local := walletDoc(t, "device-one")
	d := transport.NewDocument(docs, "fam-1", func() domain.GlobalData { return local }, transport.Handlers{})
	require.NoError(t, d.Start(context.Background()))
	defer d.Stop()

	// No bootstrap push when presence is unknown: pushing blind could
	// clobber an established ledger.
	_, ok := docs.Get("fam-1")
	assert.False(t, ok)
}

func TestDocumentStopSilencesCallbacks(t *testing.T) {
	docs := testutil.NewMemDocs()
	rec := newRecorder()
	local := walletDoc(t, "device-one")
	d := transport.NewDocument(docs, "fam-1", func() domain.GlobalData { return local }, rec.handlers())
	require.NoError(t, d.Start(context.Background()))
	rec.waitStatus(t, transport.StatusConnected)

	// Subscribing after the bootstrap push echoes our own snapshot; drain
	// it so the post-stop check sees an empty channel.
	got := rec.waitRemote(t)
	require.Equal(t, "device-one", got.DeviceID)

	d.Stop()
	d.Stop()
	rec.waitStatus(t, transport.StatusDisconnected)

	// A late remote write must not reach the handler.
	require.NoError(t, docs.Push(context.Background(), "fam-1", walletDoc(t, "device-two")))
	select {
	case got := <-rec.remotes:
		t.Fatalf("unexpected remote delivery after stop: %s", got.DeviceID)
	default:
	}

	require.NoError(t, d.Broadcast(local), "broadcast after stop is a no-op")
}

func TestDocumentRejectsEmptyWalletID(t *testing.T) {
	docs := testutil.NewMemDocs()
	d := transport.NewDocument(docs, "!!!", func() domain.GlobalData { return domain.GlobalData{} }, transport.Handlers{})
	assert.Error(t, d.Start(context.Background()), "wallet id sanitizes to empty")
}

func TestSanitizeIdentity(t *testing.T) {
	assert.Equal(t, "smithfamily", transport.SanitizeIdentity("Smith Family!"))
	assert.Equal(t, "", transport.SanitizeIdentity("  ***  "))
	assert.Equal(t, "fam-1", transport.SanitizeWalletID("fam-1 ?"))
}
