// Package events delivers committed transition events to their consumers.
//
// The engine calls Emit once per committed transition. Sinks are combined
// with Fanout; the durable sinks are the host event logs (SQLite events table
// and the goleveldb E prefix) wrapped by Log, and Bus hands events to
// in-process subscribers.
package events

import (
	"context"
	"errors"

	"github.com/xuxxeth/sx/internal/ir"
)

// Emitter receives committed events.
type Emitter interface {
	Emit(ctx context.Context, ev ir.Event) error
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(ctx context.Context, ev ir.Event) error

func (f EmitterFunc) Emit(ctx context.Context, ev ir.Event) error { return f(ctx, ev) }

// Discard drops every event.
var Discard Emitter = EmitterFunc(func(context.Context, ir.Event) error { return nil })

// Fanout emits to every sink in order. A failing sink does not stop the
// others; all failures are joined.
type Fanout []Emitter

func (f Fanout) Emit(ctx context.Context, ev ir.Event) error {
	var errs []error
	for _, e := range f {
		if err := e.Emit(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Store is a durable, seq-ordered event log.
type Store interface {
	AppendEvent(ctx context.Context, ev ir.Event) error
	ReadEvents(ctx context.Context, after int64, limit int) ([]ir.Event, error)
	LastSeq(ctx context.Context) (int64, error)
}

// Log appends events to a Store.
type Log struct {
	store Store
}

// NewLog wraps store as an Emitter.
func NewLog(store Store) *Log {
	return &Log{store: store}
}

func (l *Log) Emit(ctx context.Context, ev ir.Event) error {
	return l.store.AppendEvent(ctx, ev)
}

// Replay calls fn for every event after seq, in order, reading in pages of
// size batch.
func Replay(ctx context.Context, store Store, after int64, batch int, fn func(ir.Event) error) error {
	if batch <= 0 {
		batch = 256
	}
	for {
		page, err := store.ReadEvents(ctx, after, batch)
		if err != nil {
			return err
		}
		for _, ev := range page {
			if err := fn(ev); err != nil {
				return err
			}
			after = ev.Seq
		}
		if len(page) < batch {
			return nil
		}
	}
}
