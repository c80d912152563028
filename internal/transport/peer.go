package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/walletsync/internal/domain"
)

// identityPrefix versions the rendezvous namespace; bumping it isolates
// incompatible document generations from each other.
const identityPrefix = "walletsync-v2"

// DefaultRetryInterval is the partner reconnection cadence.
const DefaultRetryInterval = 5 * time.Second

// Conn is one open peer connection. Receive blocks until a payload arrives
// or the connection dies. Implementations must make Close unblock a pending
// Receive.
type Conn interface {
	Send(payload []byte) error
	Receive() ([]byte, error)
	Close() error
}

// Listener accepts inbound peer connections bound to one identity.
type Listener interface {
	Accept() (Conn, error)
	Close() error
}

// PeerChannel is the rendezvous-by-name channel collaborator. Listen binds
// an identity (returning ErrIdentityInUse on collision); Dial opens a
// connection to a bound identity. Implemented by relay.Channel (production)
// and testutil.Loopback (tests).
type PeerChannel interface {
	Listen(ctx context.Context, selfID string) (Listener, error)
	Dial(ctx context.Context, peerID string) (Conn, error)
}

// Peer is the two-party direct-sync transport.
//
// Identity is derived from a shared family name plus a fixed slot (1 or 2);
// the partner is the same formula with the other slot. This pins the
// topology to exactly two parties. On start it binds the listener, dials
// the partner immediately, then retries on a fixed interval until a
// connection opens. A newly accepted inbound connection replaces any
// existing one (single-connection invariant): the older channel is closed
// before the new one is adopted, so two simultaneously active channels
// never split-brain.
type Peer struct {
	channel  PeerChannel
	family   string
	slot     int
	handlers Handlers
	interval time.Duration

	mu       sync.Mutex
	conn     Conn
	listener Listener
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// PeerOption configures a Peer.
type PeerOption func(*Peer)

// WithRetryInterval overrides the reconnection cadence (tests).
func WithRetryInterval(d time.Duration) PeerOption {
	return func(p *Peer) {
		p.interval = d
	}
}

// NewPeer creates the peer transport. family is the shared secret the
// rendezvous identity derives from; slot must be 1 or 2.
func NewPeer(channel PeerChannel, family string, slot int, handlers Handlers, opts ...PeerOption) *Peer {
	p := &Peer{
		channel:  channel,
		family:   SanitizeIdentity(family),
		slot:     slot,
		handlers: handlers,
		interval: DefaultRetryInterval,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SelfID returns this device's rendezvous identity.
func (p *Peer) SelfID() string {
	return fmt.Sprintf("%s-%s-%d", identityPrefix, p.family, p.slot)
}

// TargetID returns the partner's rendezvous identity.
func (p *Peer) TargetID() string {
	other := 2
	if p.slot == 2 {
		other = 1
	}
	return fmt.Sprintf("%s-%s-%d", identityPrefix, p.family, other)
}

// Start binds the listener and launches the accept and reconnection loops.
// An identity collision is returned to the caller (configuration error);
// everything else degrades to status transitions.
func (p *Peer) Start(ctx context.Context) error {
	if p.family == "" {
		return fmt.Errorf("peer transport: empty family name")
	}
	if p.slot != 1 && p.slot != 2 {
		return fmt.Errorf("peer transport: slot must be 1 or 2, got %d", p.slot)
	}

	p.handlers.status(StatusConnecting)

	listener, err := p.channel.Listen(ctx, p.SelfID())
	if err != nil {
		p.handlers.status(StatusDisconnected)
		return fmt.Errorf("bind %s: %w", p.SelfID(), err)
	}
	p.mu.Lock()
	p.listener = listener
	p.mu.Unlock()

	slog.Info("peer transport listening", "self", p.SelfID(), "target", p.TargetID())

	p.wg.Add(2)
	go p.acceptLoop()
	go p.reconnectLoop(ctx)
	return nil
}

// Stop tears everything down: active connection, reconnection timer,
// listener. Idempotent; late I/O results are discarded by the liveness
// checks in the loops.
func (p *Peer) Stop() {
	p.stopOnce.Do(func() {
		close(p.done)
		p.mu.Lock()
		if p.conn != nil {
			_ = p.conn.Close()
			p.conn = nil
		}
		if p.listener != nil {
			_ = p.listener.Close()
			p.listener = nil
		}
		p.mu.Unlock()
		p.wg.Wait()
		p.handlers.status(StatusDisconnected)
	})
}

// Broadcast sends the full document snapshot to the partner. With no open
// connection the snapshot is dropped; the snapshot exchange after the next
// connect converges the two sides.
func (p *Peer) Broadcast(d domain.GlobalData) error {
	p.mu.Lock()
	conn := p.conn
	p.mu.Unlock()
	if conn == nil {
		return nil
	}
	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := conn.Send(payload); err != nil {
		// Non-fatal: the read loop notices the dead connection and the
		// reconnection loop takes over.
		slog.Warn("peer send failed", "error", err)
	}
	return nil
}

func (p *Peer) acceptLoop() {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		listener := p.listener
		p.mu.Unlock()
		if listener == nil {
			return
		}
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-p.done:
				return
			default:
			}
			slog.Warn("peer accept failed", "error", err)
			return
		}
		slog.Info("inbound peer connection", "self", p.SelfID())
		p.adopt(conn)
	}
}

func (p *Peer) reconnectLoop(ctx context.Context) {
	defer p.wg.Done()

	// Dial immediately, then on the fixed interval while unconnected.
	p.dialPartner(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-p.done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.mu.Lock()
			connected := p.conn != nil
			p.mu.Unlock()
			if !connected {
				p.dialPartner(ctx)
			}
		}
	}
}

func (p *Peer) dialPartner(ctx context.Context) {
	conn, err := p.channel.Dial(ctx, p.TargetID())
	if err != nil {
		slog.Debug("partner not reachable yet", "target", p.TargetID(), "error", err)
		return
	}
	select {
	case <-p.done:
		_ = conn.Close()
		return
	default:
	}
	slog.Info("connected to partner", "target", p.TargetID())
	p.adopt(conn)
}

// adopt installs a connection as the single active one, closing any
// predecessor first, and starts its read loop.
func (p *Peer) adopt(conn Conn) {
	p.mu.Lock()
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.conn = conn
	p.mu.Unlock()

	p.handlers.status(StatusConnected)

	p.wg.Add(1)
	go p.readLoop(conn)
}

func (p *Peer) readLoop(conn Conn) {
	defer p.wg.Done()
	for {
		payload, err := conn.Receive()
		if err != nil {
			p.dropConn(conn)
			return
		}

		select {
		case <-p.done:
			return
		default:
		}
		p.mu.Lock()
		live := p.conn == conn
		p.mu.Unlock()
		if !live {
			// Replaced connection draining late data; discard.
			return
		}

		snapshot, err := domain.Decode(payload, domain.UUIDSource{})
		if err != nil {
			// One malformed payload never kills the channel.
			slog.Warn("discarding malformed peer snapshot", "error", err)
			continue
		}
		p.handlers.remote(snapshot)
	}
}

// dropConn clears the active connection if it is still the given one and
// reports disconnection. Replaced connections fall out silently.
func (p *Peer) dropConn(conn Conn) {
	p.mu.Lock()
	current := p.conn == conn
	if current {
		p.conn = nil
	}
	p.mu.Unlock()
	if !current {
		return
	}
	select {
	case <-p.done:
	default:
		slog.Info("peer connection closed", "self", p.SelfID())
		p.handlers.status(StatusDisconnected)
	}
}
