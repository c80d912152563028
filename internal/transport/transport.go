// Package transport carries wallet document snapshots between devices.
//
// Two variants implement one capability interface: Peer (direct two-party
// channel with rendezvous identities) and Document (shared mutable document
// keyed by a wallet id). Both deliver every remote update as a full-state
// snapshot through a single callback - there is no partial-update protocol -
// and both leave merging to the caller, so the one merge engine serves both.
//
// Delivery is serial per transport: callbacks fire from one goroutine at a
// time, which is what lets the engine stay a single-writer loop.
package transport

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"github.com/roach88/walletsync/internal/domain"
)

// Status is the sync state surfaced to the user. It is the only transport
// error surface: connection failures degrade to StatusDisconnected and the
// reconnection machinery keeps working; they are never thrown to callers.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
)

// ErrIdentityInUse reports that another device already claimed this
// rendezvous identity (both devices configured with the same slot, or a
// zombie session). A configuration error surfaced to the user, not
// something the transport resolves automatically.
var ErrIdentityInUse = errors.New("transport: identity already in use")

// Handlers are the transport's upward callbacks. OnRemote receives every
// remote full-state snapshot; OnAdopt receives the bootstrap snapshot of
// a document that already existed when this device joined, which the
// receiver treats as authoritative rather than merging (falls back to
// OnRemote when nil); OnStatus receives status transitions. Any of the
// three may be nil. Callbacks are never invoked after Stop returns.
type Handlers struct {
	OnRemote func(domain.GlobalData)
	OnAdopt  func(domain.GlobalData)
	OnStatus func(Status)
}

func (h Handlers) remote(d domain.GlobalData) {
	if h.OnRemote != nil {
		h.OnRemote(d)
	}
}

func (h Handlers) adopt(d domain.GlobalData) {
	if h.OnAdopt != nil {
		h.OnAdopt(d)
		return
	}
	h.remote(d)
}

func (h Handlers) status(s Status) {
	if h.OnStatus != nil {
		h.OnStatus(s)
	}
}

// Transport is the sync capability: start the lifecycle, broadcast (or
// push) full-state snapshots, stop and release everything. Stop is
// idempotent and safe to call during Start.
type Transport interface {
	// Start binds identities/subscriptions and begins delivering remote
	// snapshots. Returns only configuration-class errors (bad identity,
	// identity collision); transient connectivity is handled internally.
	Start(ctx context.Context) error

	// Broadcast sends the full document to the remote side. Best-effort:
	// with no open connection the snapshot is dropped (the next exchange
	// after reconnect converges) and storage-layer write failures are
	// logged and swallowed.
	Broadcast(d domain.GlobalData) error

	// Stop closes connections, stops timers and releases the channel.
	// In-flight I/O completing after Stop is discarded.
	Stop()
}

// SanitizeIdentity reduces a user-supplied name to the alphanumeric
// lowercase form used in rendezvous identities.
func SanitizeIdentity(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// SanitizeWalletID strips a shared wallet identifier to the characters the
// document store accepts (alphanumerics and dashes).
func SanitizeWalletID(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
