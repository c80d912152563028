package relay

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/roach88/walletsync/internal/transport"
)

// Channel is the device-side relay client. It implements
// transport.PeerChannel over a single registered websocket: Listen
// registers the identity and opens the socket, Dial multiplexes a
// virtual connection over it. Listen must succeed before Dial is used.
type Channel struct {
	url string

	mu      sync.Mutex
	ws      *websocket.Conn
	conns   map[string]*vconn
	pending map[string]chan envelope
	accept  chan transport.Conn
	done    chan struct{}
	closed  bool

	// gorilla permits one concurrent writer per connection.
	writeMu sync.Mutex
}

// NewChannel creates a client for the relay at url (ws:// or wss://,
// including the endpoint path, e.g. ws://relay.local:9100/ws).
func NewChannel(url string) *Channel {
	return &Channel{
		url:     url,
		conns:   make(map[string]*vconn),
		pending: make(map[string]chan envelope),
		accept:  make(chan transport.Conn, 8),
		done:    make(chan struct{}),
	}
}

// Listen registers selfID with the relay and starts demultiplexing.
// A duplicate registration surfaces as transport.ErrIdentityInUse.
func (c *Channel) Listen(ctx context.Context, selfID string) (transport.Listener, error) {
	sep := "?"
	if strings.Contains(c.url, "?") {
		sep = "&"
	}
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, c.url+sep+"id="+selfID, nil)
	if err != nil {
		return nil, fmt.Errorf("dial relay: %w", err)
	}

	var env envelope
	if err := ws.ReadJSON(&env); err != nil {
		_ = ws.Close()
		return nil, fmt.Errorf("relay handshake: %w", err)
	}
	switch env.Type {
	case typeReady:
	case typeError:
		_ = ws.Close()
		if env.Error == errIdentityInUse {
			return nil, transport.ErrIdentityInUse
		}
		return nil, fmt.Errorf("relay rejected registration: %s", env.Error)
	default:
		_ = ws.Close()
		return nil, fmt.Errorf("unexpected handshake envelope %q", env.Type)
	}

	c.mu.Lock()
	c.ws = ws
	c.mu.Unlock()

	go c.readLoop(ws)
	return &channelListener{ch: c}, nil
}

// Dial opens a virtual connection to peerID through the relay. Fails
// when the peer is not currently registered.
func (c *Channel) Dial(ctx context.Context, peerID string) (transport.Conn, error) {
	c.mu.Lock()
	if c.ws == nil || c.closed {
		c.mu.Unlock()
		return nil, fmt.Errorf("relay channel not listening")
	}
	connID := uuid.NewString()
	reply := make(chan envelope, 1)
	c.pending[connID] = reply
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, connID)
		c.mu.Unlock()
	}()

	if err := c.send(envelope{Type: typeOpen, Conn: connID, To: peerID}); err != nil {
		return nil, fmt.Errorf("open %s: %w", peerID, err)
	}

	select {
	case env := <-reply:
		if env.Type == typeReject {
			return nil, fmt.Errorf("peer %s: %s", peerID, env.Error)
		}
		return c.adoptConn(connID), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done:
		return nil, io.EOF
	}
}

// Close tears down the socket and every virtual connection.
// Idempotent.
func (c *Channel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	ws := c.ws
	conns := make([]*vconn, 0, len(c.conns))
	for _, vc := range c.conns {
		conns = append(conns, vc)
	}
	c.conns = make(map[string]*vconn)
	c.mu.Unlock()

	for _, vc := range conns {
		vc.drop()
	}
	if ws != nil {
		return ws.Close()
	}
	return nil
}

func (c *Channel) send(env envelope) error {
	c.mu.Lock()
	ws := c.ws
	c.mu.Unlock()
	if ws == nil {
		return io.ErrClosedPipe
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return ws.WriteJSON(env)
}

func (c *Channel) adoptConn(connID string) *vconn {
	vc := &vconn{
		id:   connID,
		ch:   c,
		recv: make(chan []byte, 16),
		done: make(chan struct{}),
	}
	c.mu.Lock()
	c.conns[connID] = vc
	c.mu.Unlock()
	return vc
}

func (c *Channel) readLoop(ws *websocket.Conn) {
	defer func() { _ = c.Close() }()

	for {
		var env envelope
		if err := ws.ReadJSON(&env); err != nil {
			return
		}

		switch env.Type {
		case typeOpen:
			// Inbound virtual connection from the partner.
			vc := c.adoptConn(env.Conn)
			select {
			case c.accept <- vc:
			case <-c.done:
				return
			}

		case typeOpened, typeReject:
			c.mu.Lock()
			reply := c.pending[env.Conn]
			c.mu.Unlock()
			if reply != nil {
				reply <- env
			}

		case typeData:
			c.mu.Lock()
			vc := c.conns[env.Conn]
			c.mu.Unlock()
			if vc == nil {
				continue
			}
			select {
			case vc.recv <- []byte(env.Payload):
			case <-vc.done:
			case <-c.done:
				return
			}

		case typeClose:
			c.mu.Lock()
			vc := c.conns[env.Conn]
			delete(c.conns, env.Conn)
			c.mu.Unlock()
			if vc != nil {
				vc.drop()
			}

		default:
			slog.Debug("ignoring relay envelope", "type", env.Type)
		}
	}
}

func (c *Channel) removeConn(connID string) {
	c.mu.Lock()
	delete(c.conns, connID)
	c.mu.Unlock()
}

// channelListener surfaces inbound virtual connections. Closing it
// closes the whole channel: the listener's lifetime is the
// registration's lifetime.
type channelListener struct {
	ch *Channel
}

func (l *channelListener) Accept() (transport.Conn, error) {
	select {
	case conn := <-l.ch.accept:
		return conn, nil
	case <-l.ch.done:
		return nil, io.EOF
	}
}

func (l *channelListener) Close() error {
	return l.ch.Close()
}

// vconn is one virtual peer connection multiplexed over the relay
// socket.
type vconn struct {
	id   string
	ch   *Channel
	recv chan []byte
	done chan struct{}
	once sync.Once
}

func (v *vconn) Send(payload []byte) error {
	select {
	case <-v.done:
		return io.ErrClosedPipe
	default:
	}
	return v.ch.send(envelope{Type: typeData, Conn: v.id, Payload: payload})
}

func (v *vconn) Receive() ([]byte, error) {
	select {
	case payload := <-v.recv:
		return payload, nil
	case <-v.done:
		return nil, io.EOF
	}
}

func (v *vconn) Close() error {
	v.once.Do(func() {
		_ = v.ch.send(envelope{Type: typeClose, Conn: v.id})
		v.ch.removeConn(v.id)
		close(v.done)
	})
	return nil
}

// drop closes the local side without notifying the relay, used when the
// far side or the socket already went away.
func (v *vconn) drop() {
	v.once.Do(func() { close(v.done) })
}
