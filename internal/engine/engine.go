package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/walletsync/internal/domain"
	"github.com/roach88/walletsync/internal/merge"
	"github.com/roach88/walletsync/internal/recur"
	"github.com/roach88/walletsync/internal/store"
	"github.com/roach88/walletsync/internal/transport"
)

// DefaultMaterializeInterval is how often the loop checks recurring
// rules for due occurrences while running.
const DefaultMaterializeInterval = time.Minute

// Engine is the single-writer sync loop that owns the wallet document.
//
// All document mutations happen in the Run goroutine. External callers
// use Apply and ReceiveRemote to submit work; both are safe from any
// goroutine.
type Engine struct {
	store *store.Store
	recur *recur.Engine
	clock domain.Clock
	ids   domain.IDSource
	queue *eventQueue
	tick  time.Duration

	// Guarded by mu: read from Snapshot/Status, written in Run and
	// the transport status callback.
	mu       sync.RWMutex
	current  domain.GlobalData
	lastHash string
	status   transport.Status

	// Set before Run via SetTransport. Nil means offline.
	transport transport.Transport
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the wall clock, used by tests.
func WithClock(c domain.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithIDSource overrides transaction id generation, used by tests.
func WithIDSource(ids domain.IDSource) Option {
	return func(e *Engine) { e.ids = ids }
}

// WithMaterializeInterval sets how often recurring rules are checked.
func WithMaterializeInterval(d time.Duration) Option {
	return func(e *Engine) { e.tick = d }
}

// New creates an Engine backed by the given store.
func New(s *store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:  s,
		clock:  domain.SystemClock{},
		ids:    domain.UUIDSource{},
		queue:  newEventQueue(),
		tick:   DefaultMaterializeInterval,
		status: transport.StatusDisconnected,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.recur = recur.New(e.clock)
	return e
}

// SetTransport attaches a transport whose broadcasts the engine will
// drive. Must be called before Run.
func (e *Engine) SetTransport(t transport.Transport) {
	e.transport = t
}

// Handlers returns the callbacks a transport needs to feed this engine.
func (e *Engine) Handlers() transport.Handlers {
	return transport.Handlers{
		OnRemote: e.ReceiveRemote,
		OnAdopt:  e.ReceiveAuthoritative,
		OnStatus: func(s transport.Status) {
			e.mu.Lock()
			e.status = s
			e.mu.Unlock()
		},
	}
}

// Apply submits a local edit for processing by the Run loop.
// Thread-safe. Returns false if the engine has been stopped.
func (e *Engine) Apply(m Mutator) bool {
	return e.queue.Enqueue(Event{Type: EventTypeLocal, Mutate: m})
}

// ReceiveRemote submits a snapshot received from a peer or shared
// document. Thread-safe. The snapshot is merged, never adopted
// wholesale.
func (e *Engine) ReceiveRemote(d domain.GlobalData) {
	e.queue.Enqueue(Event{Type: EventTypeRemote, Remote: &d})
}

// ReceiveAuthoritative submits the bootstrap snapshot of a shared
// document that already existed when this device joined. Thread-safe.
// A pristine local document adopts it wholesale; a document with local
// history falls back to the ordinary merge.
func (e *Engine) ReceiveAuthoritative(d domain.GlobalData) {
	e.queue.Enqueue(Event{Type: EventTypeAdopt, Remote: &d})
}

// Snapshot returns a deep copy of the current document.
// Thread-safe; safe to read and mutate freely.
func (e *Engine) Snapshot() domain.GlobalData {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.current.Clone()
}

// Status reports the most recent transport status.
func (e *Engine) Status() transport.Status {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.status
}

// QueueLen returns the number of pending events. Useful for tests.
func (e *Engine) QueueLen() int {
	return e.queue.Len()
}

// Run loads the document, catches up recurring rules, then drains the
// event queue until the context is cancelled or Stop is called.
//
// Must be called from exactly one goroutine. Event processing errors
// are logged and the loop continues; a single bad edit or malformed
// snapshot must not take the device offline.
func (e *Engine) Run(ctx context.Context) error {
	d, err := e.store.LoadLocal(ctx, e.ids)
	if err != nil {
		return fmt.Errorf("load local document: %w", err)
	}

	if out, changed := e.recur.Materialize(d, e.clock.Now()); changed {
		d = out
		if err := e.store.SaveLocal(ctx, d); err != nil {
			return fmt.Errorf("persist catch-up: %w", err)
		}
	}
	e.setCurrent(d)

	slog.Info("engine starting", "books", len(d.Books), "device", d.DeviceID)

	// Announce our state so an already-connected peer converges
	// without waiting for the next local edit.
	e.broadcast(d)

	ticker := time.NewTicker(e.tick)
	defer ticker.Stop()

	for {
		event, ok := e.queue.TryDequeue()
		if ok {
			if err := e.processEvent(ctx, event); err != nil {
				slog.Error("event processing failed", "type", event.Type, "error", err)
			}
			continue
		}

		select {
		case <-ctx.Done():
			slog.Info("engine stopping: context cancelled")
			e.queue.Close()
			return ctx.Err()

		case <-ticker.C:
			if err := e.materialize(ctx); err != nil {
				slog.Error("materialize failed", "error", err)
			}

		case <-e.queue.Wait():
			// Signal channel closes when the queue is closed, so an
			// empty queue here means Stop was called.
			if e.queue.Len() == 0 {
				slog.Info("engine stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop gracefully shuts down the engine. Run returns after draining
// events already queued. Safe to call more than once.
func (e *Engine) Stop() {
	e.queue.Close()
}

func (e *Engine) processEvent(ctx context.Context, event Event) error {
	switch event.Type {
	case EventTypeLocal:
		if event.Mutate == nil {
			return fmt.Errorf("local event missing mutator")
		}
		return e.processLocal(ctx, event.Mutate)

	case EventTypeRemote:
		if event.Remote == nil {
			return fmt.Errorf("remote event missing snapshot")
		}
		return e.processRemote(ctx, *event.Remote)

	case EventTypeAdopt:
		if event.Remote == nil {
			return fmt.Errorf("adopt event missing snapshot")
		}
		return e.processAdopt(ctx, *event.Remote)

	case EventTypeMaterialize:
		return e.materialize(ctx)

	default:
		return fmt.Errorf("unknown event type: %d", event.Type)
	}
}

// processLocal applies an edit, persists the result, and broadcasts it.
func (e *Engine) processLocal(ctx context.Context, m Mutator) error {
	e.mu.RLock()
	cur := e.current
	e.mu.RUnlock()

	next, err := m(cur)
	if err != nil {
		return fmt.Errorf("apply edit: %w", err)
	}

	changed, err := e.commit(ctx, next)
	if err != nil {
		return err
	}
	if changed {
		e.broadcast(next)
	}
	return nil
}

// processRemote merges a snapshot into the local document.
func (e *Engine) processRemote(ctx context.Context, remote domain.GlobalData) error {
	e.mu.RLock()
	cur := e.current
	e.mu.RUnlock()

	return e.ingest(ctx, merge.Merge(cur, remote), remote)
}

// processAdopt takes an existing shared document wholesale when the local
// document is still pristine. Once local history exists, wholesale
// adoption would drop offline edits, so the snapshot merges instead.
func (e *Engine) processAdopt(ctx context.Context, remote domain.GlobalData) error {
	e.mu.RLock()
	cur := e.current
	e.mu.RUnlock()

	if !domain.IsPristine(cur) {
		return e.ingest(ctx, merge.Merge(cur, remote), remote)
	}

	slog.Info("adopting existing shared document", "books", len(remote.Books))
	return e.ingest(ctx, domain.Adopt(cur, remote), remote)
}

// ingest materializes, persists and conditionally rebroadcasts a document
// derived from a remote snapshot.
//
// The result is rebroadcast only when its ledger content differs from what
// the remote sent: if their copy already contains everything we have, a
// rebroadcast would just echo back and forth between two devices. Content
// hashes ignore device-local fields, so two devices holding the same
// ledger go quiet instead of ping-ponging over their differing device ids.
func (e *Engine) ingest(ctx context.Context, merged, remote domain.GlobalData) error {
	if out, changed := e.recur.Materialize(merged, e.clock.Now()); changed {
		merged = out
	}

	if _, err := e.commit(ctx, merged); err != nil {
		return err
	}

	mergedHash, err := domain.ContentHash(merged)
	if err != nil {
		return fmt.Errorf("hash merged document: %w", err)
	}
	remoteHash, err := domain.ContentHash(remote)
	if err != nil {
		slog.Warn("hash remote snapshot failed", "error", err)
		remoteHash = ""
	}
	if mergedHash != remoteHash {
		e.broadcast(merged)
	}

	slog.Debug("remote snapshot merged",
		"content_hash", mergedHash[:12],
		"rebroadcast", mergedHash != remoteHash,
	)
	return nil
}

// materialize runs recurrence catch-up against the current document.
func (e *Engine) materialize(ctx context.Context) error {
	e.mu.RLock()
	cur := e.current
	e.mu.RUnlock()

	next, changed := e.recur.Materialize(cur, e.clock.Now())
	if !changed {
		return nil
	}
	if _, err := e.commit(ctx, next); err != nil {
		return err
	}
	e.broadcast(next)
	return nil
}

// commit persists the document if its canonical hash changed and
// updates the in-memory copy. Returns whether a change was stored.
func (e *Engine) commit(ctx context.Context, d domain.GlobalData) (bool, error) {
	hash, err := domain.StateHash(d)
	if err != nil {
		return false, fmt.Errorf("hash document: %w", err)
	}

	e.mu.RLock()
	unchanged := hash == e.lastHash
	e.mu.RUnlock()
	if unchanged {
		return false, nil
	}

	if err := e.store.SaveLocal(ctx, d); err != nil {
		return false, fmt.Errorf("persist document: %w", err)
	}

	e.mu.Lock()
	e.current = d
	e.lastHash = hash
	e.mu.Unlock()
	return true, nil
}

func (e *Engine) setCurrent(d domain.GlobalData) {
	hash, err := domain.StateHash(d)
	if err != nil {
		slog.Warn("hash document failed", "error", err)
	}
	e.mu.Lock()
	e.current = d
	e.lastHash = hash
	e.mu.Unlock()
}

func (e *Engine) broadcast(d domain.GlobalData) {
	if e.transport == nil {
		return
	}
	if err := e.transport.Broadcast(d); err != nil {
		slog.Warn("broadcast failed", "error", err)
	}
}
