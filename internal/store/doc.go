// Package store provides SQLite-backed persistence for wallet documents.
//
// Two roles share one database file:
//
//   - The local snapshot: this device's authoritative copy of the wallet
//     document, loaded on startup (with first-run defaulting and schema
//     migration) and replaced wholesale on every save. There are no
//     partial writes; every persistence write is a full-document replace.
//
//   - The shared wallet table backing the document-sync transport: one
//     JSON document per wallet id with a revision counter bumped on every
//     push. Subscribers poll the revision, which makes change detection a
//     single integer comparison.
//
// Database configuration:
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON
//
// A single connection is kept open (SQLite allows one writer), and the
// schema is applied idempotently on Open with version tracking in
// schema_migrations.
package store
