// Package merge reconciles two wallet document snapshots into one.
//
// The algorithm is additive: books, transactions, users, accounts,
// categories and recurring rules are unioned by id, and a remote snapshot
// can never remove anything the local side holds. That is a deliberate
// data-loss guard against stale peers, at the cost of deletions resurrecting
// after a round-trip.
//
// Conflict resolution:
//   - Transactions: last-write-wins at record granularity on UpdatedAt.
//     A missing or unparseable UpdatedAt compares as epoch zero, so it never
//     incorrectly wins. Equal timestamps resolve to local; the choice is
//     arbitrary but pinned by tests in both orderings.
//   - Accounts, categories, recurring rules carry no UpdatedAt, so known
//     ids keep the local version and only unknown remote ids are appended.
//     Concurrent edits to the same entity on two devices therefore lose the
//     remote edit; a register-per-field merge would fix this and is out of
//     scope.
//   - Users: union by id, local version kept for known ids, and the
//     IsCurrentUser flag on remote entries is cleared on ingestion (it is a
//     local-device concept).
//   - ActiveBookID, SyncConfig, BackupConfig, DeviceID: always local.
//
// Merge(A,B) and Merge(B,A) converge to the same transaction set, but NOT
// to byte-identical documents: slice order, the local-preference fields
// above and tie-breaks are asymmetric by design.
//
// Correctness across devices assumes reasonably synchronized wall clocks.
// No hybrid logical clock or vector clock is used; UpdatedAt is trusted.
package merge
