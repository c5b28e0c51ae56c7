// Package host defines the record-store contract the transition engine runs
// against.
//
// A Host hands out transactions. Every transition runs inside exactly one Tx:
// the engine reads, writes and moves native value through it, then commits
// or rolls back. Hosts that cannot roll back report Atomic() == false; on
// those each Tx operation is applied as soon as it returns and Rollback only
// releases resources.
package host

import (
	"context"

	"github.com/xuxxeth/sx/internal/address"
	"github.com/xuxxeth/sx/internal/ir"
)

// Mutator edits a record in place during Update.
type Mutator func(ir.Record) error

// Tx is one unit of work against the record store.
//
// Errors carrying an ir.ErrorCode are surfaced as-is (possibly wrapped):
// AddressOccupied from Create, AddressNotFound from Update and Close,
// Unauthorized from Update, InsufficientFunds from Create and Transfer.
type Tx interface {
	// Create writes rec at addr, charging its storage deposit to payer.
	Create(ctx context.Context, addr address.Address, rec ir.Record, payer address.Address) error

	// Read returns the live record at addr. ok is false if none exists.
	Read(ctx context.Context, addr address.Address) (rec ir.Record, ok bool, err error)

	// Update applies mutate to the record at addr. authorizer must equal the
	// record's owning identity.
	Update(ctx context.Context, addr, authorizer address.Address, mutate Mutator) error

	// Close deletes the record at addr and credits its deposit to beneficiary.
	Close(ctx context.Context, addr, beneficiary address.Address) error

	Balance(ctx context.Context, id address.Address) (uint64, error)
	Transfer(ctx context.Context, from, to address.Address, amount uint64) error

	// Airdrop mints lamports to an identity. Used by local tooling and tests.
	Airdrop(ctx context.Context, to address.Address, amount uint64) error

	Commit() error
	Rollback() error
}

// Host opens transactions against a record store.
type Host interface {
	Begin(ctx context.Context) (Tx, error)

	// Atomic reports whether Rollback undoes the writes of a Tx.
	Atomic() bool

	// Rent is the deposit schedule Create charges by.
	Rent() Rent
}

// View runs fn in a transaction that is always rolled back.
func View(ctx context.Context, h Host, fn func(Tx) error) error {
	tx, err := h.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	return fn(tx)
}

// Update runs fn in a transaction and commits it if fn succeeds.
func Update(ctx context.Context, h Host, fn func(Tx) error) error {
	tx, err := h.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
