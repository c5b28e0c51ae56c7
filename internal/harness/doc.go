// Package harness runs ledger scenarios against the transition engine.
//
// A scenario is a YAML file that funds some identities, drives a sequence
// of transitions through a real engine over a fresh host, and then asserts
// on the committed events and the final ledger state. The same scenario
// runs once per host kind so the SQLite and goleveldb hosts are held to the
// same behavior.
//
// # Scenario Format
//
//	name: follow_unfollow
//	description: "A follow edge can be closed and re-opened"
//	hosts: [sqlite, leveldb]      # optional, defaults to every host kind
//	rent:                         # optional, defaults to free rent
//	  lamports_per_byte: 1
//	strict: false                 # optional
//	fail_writes: [tip]            # optional, Create fails in these namespaces
//	setup:
//	  - airdrop: alice
//	    amount: 1000
//	steps:
//	  - action: follow
//	    as: alice
//	    args: { following: bob }
//	  - action: follow
//	    as: alice
//	    args: { following: bob }
//	    expect: { error: AddressOccupied }
//	assertions:
//	  - type: record_exists
//	    namespace: follow
//	    key: [alice, bob]
//	  - type: event_count
//	    kind: Followed
//	    count: 1
//
// Identities are written either as one of the well-known names alice, bob,
// carol, dave and erin, or in base58.
//
// # Assertion Types
//
//   - record_exists: a live record sits at the derived address
//   - record_absent: no live record sits at the derived address
//   - record: the live record's fields match (subset match)
//   - balance: an identity holds exactly the given lamports
//   - event_count: exactly N events of a kind were committed
//   - event_order: events of the given kinds were committed in this order
//
// # Deterministic Testing
//
// Every run uses a fixed transition token, a deterministic record clock and
// an in-memory host, so the committed event stream is byte-for-byte stable
// and can be compared against a golden file with RunWithGolden.
package harness
