package testutil

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/roach88/walletsync/internal/transport"
)

// Loopback is an in-process PeerChannel. Identities rendezvous inside
// one shared Loopback value, so two Peer transports in the same test
// binary can connect without a relay.
//
// Thread-safety: all methods are safe for concurrent use.
type Loopback struct {
	mu        sync.Mutex
	listeners map[string]*loopListener
}

// NewLoopback creates an empty rendezvous namespace.
func NewLoopback() *Loopback {
	return &Loopback{listeners: make(map[string]*loopListener)}
}

// Listen implements transport.PeerChannel.
func (l *Loopback) Listen(_ context.Context, selfID string) (transport.Listener, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, taken := l.listeners[selfID]; taken {
		return nil, transport.ErrIdentityInUse
	}
	ln := &loopListener{
		id:     selfID,
		owner:  l,
		accept: make(chan transport.Conn),
		done:   make(chan struct{}),
	}
	l.listeners[selfID] = ln
	return ln, nil
}

// Dial implements transport.PeerChannel.
func (l *Loopback) Dial(_ context.Context, peerID string) (transport.Conn, error) {
	l.mu.Lock()
	ln, ok := l.listeners[peerID]
	l.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("loopback: %s not listening", peerID)
	}

	a, b := newPipe()
	select {
	case ln.accept <- b:
		return a, nil
	case <-ln.done:
		return nil, fmt.Errorf("loopback: %s closed", peerID)
	}
}

func (l *Loopback) remove(id string) {
	l.mu.Lock()
	delete(l.listeners, id)
	l.mu.Unlock()
}

type loopListener struct {
	id     string
	owner  *Loopback
	accept chan transport.Conn
	done   chan struct{}
	once   sync.Once
}

func (ln *loopListener) Accept() (transport.Conn, error) {
	select {
	case c := <-ln.accept:
		return c, nil
	case <-ln.done:
		return nil, io.EOF
	}
}

func (ln *loopListener) Close() error {
	ln.once.Do(func() {
		ln.owner.remove(ln.id)
		close(ln.done)
	})
	return nil
}

// pipeConn is one end of a bidirectional in-memory connection.
type pipeConn struct {
	recv chan []byte
	peer *pipeConn
	done chan struct{}
	once sync.Once
}

func newPipe() (*pipeConn, *pipeConn) {
	a := &pipeConn{recv: make(chan []byte, 16), done: make(chan struct{})}
	b := &pipeConn{recv: make(chan []byte, 16), done: make(chan struct{})}
	a.peer = b
	b.peer = a
	return a, b
}

func (c *pipeConn) Send(payload []byte) error {
	buf := make([]byte, len(payload))
	copy(buf, payload)
	select {
	case c.peer.recv <- buf:
		return nil
	case <-c.done:
		return io.ErrClosedPipe
	case <-c.peer.done:
		return io.ErrClosedPipe
	}
}

func (c *pipeConn) Receive() ([]byte, error) {
	select {
	case payload := <-c.recv:
		return payload, nil
	case <-c.done:
		return nil, io.EOF
	case <-c.peer.done:
		return nil, io.EOF
	}
}

func (c *pipeConn) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}
