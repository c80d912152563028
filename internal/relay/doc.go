// Package relay implements the rendezvous service the peer transport
// meets through, plus the client side of its wire protocol.
//
// Each device holds one websocket to the relay, registered under its
// rendezvous identity. Virtual peer connections are multiplexed over
// that socket with a small envelope protocol (open/opened/reject, data,
// close). The relay itself never interprets snapshot payloads; it only
// forwards envelopes between the two registered identities, so wallet
// data passes through opaquely.
//
// INVARIANTS:
//   - An identity is held by at most one live socket; a second
//     registration is rejected, not adopted.
//   - Envelopes within one virtual connection are forwarded in order.
//   - When a socket drops, every virtual connection it participates in
//     is closed toward the surviving side.
package relay
