// Package engine runs the single-writer sync loop that owns the wallet
// document.
//
// All mutations of the in-memory document happen in the Run loop
// goroutine. External callers submit work through Apply (local edits)
// and ReceiveRemote (snapshots arriving from a transport); both enqueue
// onto a FIFO queue drained by Run. Readers take consistent copies via
// Snapshot.
//
// INVARIANTS:
//   - The document is mutated only inside the Run goroutine.
//   - Every observable change is persisted before it is broadcast.
//   - A remote snapshot is rebroadcast only when merging changed it;
//     an echo of our own state is absorbed silently.
//   - Recurring transactions are materialized on a timer and after
//     every merge, so both devices converge on the same occurrences.
package engine
