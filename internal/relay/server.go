package relay

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Server is the rendezvous relay. It exposes one websocket endpoint;
// mount Handler on the path the devices are configured with
// (conventionally /ws).
type Server struct {
	upgrader websocket.Upgrader

	mu       sync.Mutex
	sessions map[string]*session
	links    map[string]*link
}

// session is one registered device socket.
type session struct {
	id string
	ws *websocket.Conn

	// gorilla permits one concurrent writer per connection.
	writeMu sync.Mutex
}

func (s *session) write(env envelope) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.ws.WriteJSON(env)
}

// link is one virtual connection between two sessions.
type link struct {
	id   string
	a, b *session
}

func (l *link) other(s *session) *session {
	if l.a == s {
		return l.b
	}
	return l.a
}

// NewServer creates a relay with an empty registry.
func NewServer() *Server {
	return &Server{
		upgrader: websocket.Upgrader{
			// Devices connect from arbitrary local networks; the shared
			// family name is the access control, not the Origin header.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		sessions: make(map[string]*session),
		links:    make(map[string]*link),
	}
}

// Handler upgrades the request and serves the registered socket until
// it drops. The identity comes from the id query parameter.
func (s *Server) Handler(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "missing id", http.StatusBadRequest)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}

	sess := &session{id: id, ws: ws}

	s.mu.Lock()
	if _, taken := s.sessions[id]; taken {
		s.mu.Unlock()
		_ = sess.write(envelope{Type: typeError, Error: errIdentityInUse})
		_ = ws.Close()
		slog.Info("rejected duplicate identity", "id", id)
		return
	}
	s.sessions[id] = sess
	s.mu.Unlock()

	slog.Info("device registered", "id", id)
	if err := sess.write(envelope{Type: typeReady}); err != nil {
		s.unregister(sess)
		_ = ws.Close()
		return
	}

	s.serve(sess)
}

// serve reads envelopes from one socket until it dies.
func (s *Server) serve(sess *session) {
	defer func() {
		s.unregister(sess)
		_ = sess.ws.Close()
		slog.Info("device disconnected", "id", sess.id)
	}()

	for {
		var env envelope
		if err := sess.ws.ReadJSON(&env); err != nil {
			return
		}

		switch env.Type {
		case typeOpen:
			s.handleOpen(sess, env)
		case typeData:
			s.forward(sess, env)
		case typeClose:
			s.handleClose(sess, env)
		default:
			slog.Debug("ignoring envelope", "type", env.Type, "from", sess.id)
		}
	}
}

// handleOpen creates a virtual connection to the target identity. The
// dialer gets opened or reject; the target gets the open forwarded.
func (s *Server) handleOpen(from *session, env envelope) {
	s.mu.Lock()
	target, ok := s.sessions[env.To]
	if ok {
		s.links[env.Conn] = &link{id: env.Conn, a: from, b: target}
	}
	s.mu.Unlock()

	if !ok {
		_ = from.write(envelope{Type: typeReject, Conn: env.Conn, Error: "peer not registered"})
		return
	}

	if err := target.write(envelope{Type: typeOpen, Conn: env.Conn, From: from.id}); err != nil {
		s.dropLink(env.Conn, nil)
		_ = from.write(envelope{Type: typeReject, Conn: env.Conn, Error: "peer unreachable"})
		return
	}
	_ = from.write(envelope{Type: typeOpened, Conn: env.Conn})
}

// forward relays a data envelope to the link's other side.
func (s *Server) forward(from *session, env envelope) {
	s.mu.Lock()
	l, ok := s.links[env.Conn]
	s.mu.Unlock()
	if !ok {
		return
	}
	if err := l.other(from).write(envelope{Type: typeData, Conn: env.Conn, Payload: env.Payload}); err != nil {
		s.dropLink(env.Conn, from)
	}
}

// handleClose tears down a link, notifying the other side.
func (s *Server) handleClose(from *session, env envelope) {
	s.mu.Lock()
	l, ok := s.links[env.Conn]
	if ok {
		delete(s.links, env.Conn)
	}
	s.mu.Unlock()
	if !ok {
		return
	}
	_ = l.other(from).write(envelope{Type: typeClose, Conn: env.Conn})
}

// dropLink removes a link and, when notify is non-nil, tells that side.
func (s *Server) dropLink(connID string, notify *session) {
	s.mu.Lock()
	delete(s.links, connID)
	s.mu.Unlock()
	if notify != nil {
		_ = notify.write(envelope{Type: typeClose, Conn: connID})
	}
}

// unregister removes a session and closes every link it participates in
// toward the surviving side.
func (s *Server) unregister(sess *session) {
	s.mu.Lock()
	if s.sessions[sess.id] == sess {
		delete(s.sessions, sess.id)
	}
	var orphaned []*link
	for id, l := range s.links {
		if l.a == sess || l.b == sess {
			delete(s.links, id)
			orphaned = append(orphaned, l)
		}
	}
	s.mu.Unlock()

	for _, l := range orphaned {
		_ = l.other(sess).write(envelope{Type: typeClose, Conn: l.id})
	}
}
