package transport

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/walletsync/internal/domain"
)

// DocumentStore is the cloud document collaborator: a key-value document
// store keyed by a sanitized wallet identifier, with real-time subscription
// and full-document upsert. Implemented by store.Store (SQLite-backed) and
// testutil.MemDocs (tests).
type DocumentStore interface {
	Exists(ctx context.Context, walletID string) (bool, error)

	// Push performs a full-document upsert. The document's JSON encoding
	// omits empty optional fields, which is how absent values are stripped
	// before transmission.
	Push(ctx context.Context, walletID string, d domain.GlobalData) error

	// Subscribe delivers every remote document change as a full snapshot
	// until the returned cancel function is called.
	Subscribe(ctx context.Context, walletID string, onUpdate func(domain.GlobalData)) (func(), error)
}

// Document is the shared-mutable-document transport variant.
//
// Bootstrap rule: joining a wallet id for the first time, a device that
// finds no remote document pushes its local snapshot (first writer
// establishes truth). When a remote document already exists it is
// authoritative: its first delivered snapshot goes through OnAdopt so a
// fresh device joining an established family takes the shared ledger
// wholesale instead of merging its own defaults into it. Later updates
// flow through OnRemote as usual.
type Document struct {
	docs     DocumentStore
	walletID string
	local    func() domain.GlobalData
	handlers Handlers

	mu          sync.Mutex
	unsubscribe func()
	stopped     bool
	adoptFirst  bool
}

// NewDocument creates the document transport. local supplies the current
// local snapshot for the bootstrap push.
func NewDocument(docs DocumentStore, walletID string, local func() domain.GlobalData, handlers Handlers) *Document {
	return &Document{
		docs:     docs,
		walletID: SanitizeWalletID(walletID),
		local:    local,
		handlers: handlers,
	}
}

// Start checks for an existing remote document, bootstraps if absent, and
// subscribes. Subscribe failures surface as status, not termination: the
// transport stays startable and pushes still queue through the store's own
// retry behavior.
func (t *Document) Start(ctx context.Context) error {
	if t.walletID == "" {
		return fmt.Errorf("document transport: empty wallet id")
	}

	t.handlers.status(StatusConnecting)

	exists, err := t.docs.Exists(ctx, t.walletID)
	if err != nil {
		slog.Warn("wallet existence check failed, assuming present", "wallet", t.walletID, "error", err)
		exists = true
	}
	if !exists {
		slog.Info("new wallet, pushing local snapshot", "wallet", t.walletID)
		if err := t.docs.Push(ctx, t.walletID, t.local()); err != nil {
			// Swallowed: the storage layer owns offline queueing/retry.
			slog.Warn("bootstrap push failed", "wallet", t.walletID, "error", err)
		}
	}
	t.mu.Lock()
	t.adoptFirst = exists
	t.mu.Unlock()

	unsubscribe, err := t.docs.Subscribe(ctx, t.walletID, func(d domain.GlobalData) {
		t.mu.Lock()
		stopped := t.stopped
		adopt := t.adoptFirst
		t.adoptFirst = false
		t.mu.Unlock()
		if stopped {
			return
		}
		if adopt {
			t.handlers.adopt(d)
			return
		}
		t.handlers.remote(d)
	})
	if err != nil {
		t.handlers.status(StatusDisconnected)
		return fmt.Errorf("subscribe %s: %w", t.walletID, err)
	}

	t.mu.Lock()
	t.unsubscribe = unsubscribe
	t.mu.Unlock()

	t.handlers.status(StatusConnected)
	return nil
}

// Broadcast upserts the full document. Write failures are logged and
// swallowed; the storage layer retries offline writes itself.
func (t *Document) Broadcast(d domain.GlobalData) error {
	t.mu.Lock()
	stopped := t.stopped
	t.mu.Unlock()
	if stopped {
		return nil
	}
	if err := t.docs.Push(context.Background(), t.walletID, d); err != nil {
		slog.Warn("wallet push failed", "wallet", t.walletID, "error", err)
	}
	return nil
}

// Stop cancels the subscription. Idempotent.
func (t *Document) Stop() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.stopped = true
	unsubscribe := t.unsubscribe
	t.unsubscribe = nil
	t.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	t.handlers.status(StatusDisconnected)
}
