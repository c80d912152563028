package relay

import "encoding/json"

// Envelope types. The register handshake answers with ready or error;
// everything after that is virtual-connection traffic.
const (
	typeReady  = "ready"
	typeError  = "error"
	typeOpen   = "open"
	typeOpened = "opened"
	typeReject = "reject"
	typeData   = "data"
	typeClose  = "close"
)

// errIdentityInUse is the error string sent when an identity is already
// registered. The client maps it back to transport.ErrIdentityInUse.
const errIdentityInUse = "identity already in use"

// envelope is one relay frame. Conn identifies the virtual connection;
// To/From carry rendezvous identities during the open handshake.
// Payload holds the snapshot JSON verbatim, so nothing is re-encoded in
// transit.
type envelope struct {
	Type    string          `json:"type"`
	Conn    string          `json:"conn,omitempty"`
	To      string          `json:"to,omitempty"`
	From    string          `json:"from,omitempty"`
	Error   string          `json:"error,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}
