// Package engine executes the ledger's transitions.
//
// Each entry point runs validate, derive, preflight reads, then writes, inside
// one host transaction:
//
//  1. Validate every argument. Nothing touches the store on a validation
//     failure.
//  2. Derive every address the transition touches.
//  3. Read whatever must exist (or must not) before writing anything. On a
//     host without rollback this keeps the documented failure paths free of
//     partial effects.
//  4. Write, commit, and only then emit the event.
//
// Transitions are serialized by a single-writer mutex. Emission failures are
// logged and counted but never undo a committed transition.
//
// Event seq numbers come from a logical Clock resumed from the event log.
// Record timestamps (created_at, updated_at) come from a TimeSource and
// play no part in ordering.
package engine
