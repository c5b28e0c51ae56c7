package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/xuxxeth/sx/internal/address"
	"github.com/xuxxeth/sx/internal/ir"
)

// Read returns the live record at addr.
func (t *Tx) Read(ctx context.Context, addr address.Address) (ir.Record, bool, error) {
	var ns, data string
	err := t.tx.QueryRowContext(ctx, `
		SELECT namespace, data FROM records WHERE address = ?
	`, addr.String()).Scan(&ns, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", addr, err)
	}

	rec, err := unmarshalRecord(ns, data)
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", addr, err)
	}
	return rec, true, nil
}

// Balance returns the lamports held by id. Unknown identities hold zero.
func (t *Tx) Balance(ctx context.Context, id address.Address) (uint64, error) {
	var lamports int64
	err := t.tx.QueryRowContext(ctx, `
		SELECT lamports FROM balances WHERE identity = ?
	`, id.String()).Scan(&lamports)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("balance %s: %w", id, err)
	}
	return uint64(lamports), nil
}

func (t *Tx) exists(ctx context.Context, addr address.Address) (bool, error) {
	var one int
	err := t.tx.QueryRowContext(ctx, `SELECT 1 FROM records WHERE address = ?`, addr.String()).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("exists %s: %w", addr, err)
	}
	return true, nil
}

// Deposit returns the deposit held by the record at addr.
func (s *Store) Deposit(ctx context.Context, addr address.Address) (uint64, bool, error) {
	var deposit int64
	err := s.db.QueryRowContext(ctx, `SELECT deposit FROM records WHERE address = ?`, addr.String()).Scan(&deposit)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("deposit %s: %w", addr, err)
	}
	return uint64(deposit), true, nil
}

// ReadEvents returns up to limit events with seq > after, in seq order.
// A limit <= 0 returns every remaining event.
//
// Returns an empty slice (not nil) when there is nothing to read.
func (s *Store) ReadEvents(ctx context.Context, after int64, limit int) ([]ir.Event, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, id, transition, kind, payload
		FROM events
		WHERE seq > ?
		ORDER BY seq ASC
		LIMIT ?
	`, after, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	return scanEvents(rows)
}

// ReadTransition returns the events produced by one transition.
func (s *Store) ReadTransition(ctx context.Context, transition string) ([]ir.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, id, transition, kind, payload
		FROM events
		WHERE transition = ?
		ORDER BY seq ASC
	`, transition)
	if err != nil {
		return nil, fmt.Errorf("query transition events: %w", err)
	}
	return scanEvents(rows)
}

// LastSeq returns the highest seq in the log, or 0 for an empty log.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq int64
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM events`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq, nil
}

func scanEvents(rows *sql.Rows) ([]ir.Event, error) {
	defer rows.Close()

	events := []ir.Event{}
	for rows.Next() {
		var ev ir.Event
		var kind, payload string
		if err := rows.Scan(&ev.Seq, &ev.ID, &ev.Transition, &kind, &payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		p, err := unmarshalPayload(kind, payload)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", ev.Seq, err)
		}
		ev.Kind = ir.EventKind(kind)
		ev.Payload = p
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}
