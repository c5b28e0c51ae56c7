package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"github.com/xuxxeth/sx/internal/address"
	"github.com/xuxxeth/sx/internal/host"
	"github.com/xuxxeth/sx/internal/ir"
)

// Tx runs host operations inside one sql.Tx.
type Tx struct {
	tx   *sql.Tx
	rent host.Rent
}

var _ host.Tx = (*Tx)(nil)

// Create inserts rec at addr and moves its deposit from payer into the record.
// The occupancy and funds checks both run before anything is written.
func (t *Tx) Create(ctx context.Context, addr address.Address, rec ir.Record, payer address.Address) error {
	exists, err := t.exists(ctx, addr)
	if err != nil {
		return fmt.Errorf("create %s: %w", rec.Namespace(), err)
	}
	if exists {
		return ir.NewOccupiedError(addr)
	}

	data, err := marshalRecord(rec)
	if err != nil {
		return fmt.Errorf("create %s: %w", rec.Namespace(), err)
	}

	deposit := t.rent.Deposit(rec.Size())
	stored, err := toLamports(deposit)
	if err != nil {
		return fmt.Errorf("create %s: %w", rec.Namespace(), err)
	}
	if err := t.debit(ctx, payer, deposit); err != nil {
		return err
	}

	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO records
		(address, namespace, owner, payer, deposit, data)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		addr.String(),
		string(rec.Namespace()),
		rec.Owner().String(),
		payer.String(),
		stored,
		data,
	)
	if err != nil {
		return fmt.Errorf("create %s: %w", rec.Namespace(), err)
	}
	return nil
}

// Update loads the record, checks the authorizer against its owner, applies
// mutate and writes it back. The owning identity cannot be changed.
func (t *Tx) Update(ctx context.Context, addr, authorizer address.Address, mutate host.Mutator) error {
	rec, ok, err := t.Read(ctx, addr)
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}
	if !ok {
		return ir.NewNotFoundError(addr)
	}

	owner := rec.Owner()
	if owner != authorizer {
		return ir.NewUnauthorizedError(addr, authorizer)
	}
	if err := mutate(rec); err != nil {
		return err
	}
	if rec.Owner() != owner {
		return fmt.Errorf("update %s: owner of %s is immutable", rec.Namespace(), addr)
	}

	data, err := marshalRecord(rec)
	if err != nil {
		return fmt.Errorf("update %s: %w", rec.Namespace(), err)
	}
	if _, err := t.tx.ExecContext(ctx, `UPDATE records SET data = ? WHERE address = ?`, data, addr.String()); err != nil {
		return fmt.Errorf("update %s: %w", rec.Namespace(), err)
	}
	return nil
}

// Close deletes the record and credits its deposit to beneficiary.
func (t *Tx) Close(ctx context.Context, addr, beneficiary address.Address) error {
	var deposit int64
	err := t.tx.QueryRowContext(ctx, `SELECT deposit FROM records WHERE address = ?`, addr.String()).Scan(&deposit)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.NewNotFoundError(addr)
	}
	if err != nil {
		return fmt.Errorf("close: %w", err)
	}

	if _, err := t.tx.ExecContext(ctx, `DELETE FROM records WHERE address = ?`, addr.String()); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	if err := t.credit(ctx, beneficiary, uint64(deposit)); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	return nil
}

// Transfer moves lamports between identities.
func (t *Tx) Transfer(ctx context.Context, from, to address.Address, amount uint64) error {
	if err := t.debit(ctx, from, amount); err != nil {
		return err
	}
	if err := t.credit(ctx, to, amount); err != nil {
		return fmt.Errorf("transfer: %w", err)
	}
	return nil
}

// Airdrop credits lamports out of thin air.
func (t *Tx) Airdrop(ctx context.Context, to address.Address, amount uint64) error {
	if err := t.credit(ctx, to, amount); err != nil {
		return fmt.Errorf("airdrop: %w", err)
	}
	return nil
}

// Commit commits the underlying sql.Tx.
func (t *Tx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Rollback is a no-op after Commit.
func (t *Tx) Rollback() error {
	err := t.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

func (t *Tx) debit(ctx context.Context, id address.Address, amount uint64) error {
	if amount == 0 {
		return nil
	}
	have, err := t.Balance(ctx, id)
	if err != nil {
		return err
	}
	if have < amount {
		return ir.NewInsufficientFundsError(id, have, amount)
	}
	return t.setBalance(ctx, id, have-amount)
}

func (t *Tx) credit(ctx context.Context, id address.Address, amount uint64) error {
	if amount == 0 {
		return nil
	}
	have, err := t.Balance(ctx, id)
	if err != nil {
		return err
	}
	if have > math.MaxInt64-amount {
		return fmt.Errorf("balance of %s overflows", id)
	}
	return t.setBalance(ctx, id, have+amount)
}

func (t *Tx) setBalance(ctx context.Context, id address.Address, lamports uint64) error {
	stored, err := toLamports(lamports)
	if err != nil {
		return err
	}
	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO balances (identity, lamports) VALUES (?, ?)
		ON CONFLICT(identity) DO UPDATE SET lamports = excluded.lamports
	`, id.String(), stored)
	if err != nil {
		return fmt.Errorf("set balance: %w", err)
	}
	return nil
}

// AppendEvent writes one event to the log.
// Uses ON CONFLICT(seq) DO NOTHING so re-appending the same event is a no-op;
// a different event at an existing seq is an error.
func (s *Store) AppendEvent(ctx context.Context, ev ir.Event) error {
	payload, err := marshalPayload(ev.Payload)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append event: begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO events
		(seq, id, transition, kind, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(seq) DO NOTHING
	`,
		ev.Seq,
		ev.ID,
		ev.Transition,
		string(ev.Kind),
		payload,
	)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("append event: rows affected: %w", err)
	}
	if n == 0 {
		var existing string
		if err := tx.QueryRowContext(ctx, `SELECT id FROM events WHERE seq = ?`, ev.Seq).Scan(&existing); err != nil {
			return fmt.Errorf("append event: select existing: %w", err)
		}
		if existing != ev.ID {
			return fmt.Errorf("append event: seq %d already holds %s", ev.Seq, existing)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("append event: commit: %w", err)
	}
	return nil
}
