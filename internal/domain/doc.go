// Package domain defines the wallet document model and the pure operations
// over it.
//
// GlobalData is treated as a value everywhere: operations take a document
// and return a new one, cloning only the slices they touch. Nothing in this
// package reads ambient state, performs I/O, or can fail on well-typed
// input; malformed fields are handled by defaulting, not by errors.
//
// INVARIANTS:
//   - Every document holds at least one Book and ActiveBookID resolves.
//   - Transaction.UpdatedAt is advanced on every mutation. It is the sole
//     field the merge engine compares, so an operation that forgets to stamp
//     it produces edits that lose every sync conflict.
//   - Account balances are derived (balance.go), never stored.
//
// Timestamps are kept as ISO 8601 strings on the wire, exactly as older
// devices wrote them. ParseInstant degrades missing/unparseable values to
// epoch zero instead of failing the whole document.
package domain
