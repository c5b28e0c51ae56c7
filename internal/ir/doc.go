// Package ir provides the canonical domain types shared by every layer of the
// ledger: record shapes, event payloads, error kinds and the canonical JSON
// used for content-addressed event IDs.
//
// All other internal packages import ir; ir imports only internal/address.
//
// Key design constraints:
//   - NO float types anywhere - amounts and ids are uint64, times are unix seconds
//   - Records are fixed-shape; Size() is the maximum encoded size, not the current one
//   - All JSON tags use snake_case
//   - Event ordering uses the logical seq, never wall-clock time
package ir
