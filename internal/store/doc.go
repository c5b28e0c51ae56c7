// Package store provides the SQLite-backed transactional host.
//
// One database holds three tables:
//   - records: live records keyed by derived address, with payer and deposit
//   - balances: native lamport balances per identity
//   - events: the append-only event log, ordered by seq
//
// Every transition runs in one sql.Tx, so a failed transition leaves records,
// balances and deposits exactly as they were.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - foreign_keys=ON
//   - a single open connection, so SQLite's single writer is never contended
package store
