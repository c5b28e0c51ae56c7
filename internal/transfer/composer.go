// Package transfer composes the writes of a transition that touches more
// than one thing: a native value transfer with the record that receipts it,
// or several record writes that must land together.
//
// On an atomic host the caller's transaction already makes the writes
// all-or-nothing, so the composer just runs them in order. On a host that
// cannot roll back, the composer runs a small two-phase plan: prepare checks
// the sender can pay, apply runs each step, and a failure reverts the
// applied steps in reverse order.
package transfer

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/xuxxeth/sx/internal/address"
	"github.com/xuxxeth/sx/internal/host"
	"github.com/xuxxeth/sx/internal/ir"
)

// ErrRevertFailed marks a composite failure: a step failed and undoing the
// steps before it failed too. Value may have moved without a receipt.
var ErrRevertFailed = errors.New("transfer: revert failed")

// WriteFunc writes the receipt record inside tx.
type WriteFunc func(ctx context.Context, tx host.Tx) error

// Step is one write of a composite transition. Revert undoes Apply; a nil
// Revert means the step needs no undo.
type Step struct {
	Name   string
	Apply  func(context.Context) error
	Revert func(context.Context) error
}

// Composer runs transfer-then-record pairs and multi-write sequences.
type Composer struct {
	logger *zap.Logger
}

// NewComposer returns a composer logging to logger. A nil logger discards.
func NewComposer(logger *zap.Logger) *Composer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Composer{logger: logger}
}

// TransferThenRecord moves amount from one identity to another and then runs
// write. Either both take effect or, as far as the host allows, neither does.
func (c *Composer) TransferThenRecord(ctx context.Context, tx host.Tx, atomic bool, from, to address.Address, amount uint64, write WriteFunc) error {
	if atomic {
		if err := tx.Transfer(ctx, from, to, amount); err != nil {
			return err
		}
		return write(ctx, tx)
	}

	p := newPlan(c.logger.With(
		zap.Stringer("from", from),
		zap.Stringer("to", to),
		zap.Uint64("amount", amount),
	))
	p.prepare = func(ctx context.Context) error {
		have, err := tx.Balance(ctx, from)
		if err != nil {
			return err
		}
		if have < amount {
			return ir.NewInsufficientFundsError(from, have, amount)
		}
		return nil
	}
	p.add("transfer",
		func(ctx context.Context) error { return tx.Transfer(ctx, from, to, amount) },
		func(ctx context.Context) error { return tx.Transfer(ctx, to, from, amount) },
	)
	p.add("receipt",
		func(ctx context.Context) error { return write(ctx, tx) },
		nil,
	)
	return p.run(ctx)
}

// Sequence applies steps in order. On a host that cannot roll back, a failed
// step reverts the steps applied before it, last first.
func (c *Composer) Sequence(ctx context.Context, atomic bool, steps ...Step) error {
	if atomic {
		for _, s := range steps {
			if err := s.Apply(ctx); err != nil {
				return err
			}
		}
		return nil
	}

	p := newPlan(c.logger)
	p.steps = steps
	return p.run(ctx)
}

// plan is a prepare check followed by an ordered list of revertible steps.
type plan struct {
	logger  *zap.Logger
	prepare func(context.Context) error
	steps   []Step
}

func newPlan(logger *zap.Logger) *plan {
	return &plan{logger: logger}
}

func (p *plan) add(name string, apply, revert func(context.Context) error) {
	p.steps = append(p.steps, Step{Name: name, Apply: apply, Revert: revert})
}

func (p *plan) run(ctx context.Context) error {
	if p.prepare != nil {
		if err := p.prepare(ctx); err != nil {
			return err
		}
	}

	for i, s := range p.steps {
		err := s.Apply(ctx)
		if err == nil {
			continue
		}
		p.logger.Warn("step failed, reverting",
			zap.String("step", s.Name),
			zap.Int("applied", i),
			zap.Error(err),
		)
		if rerr := p.revert(ctx, i); rerr != nil {
			p.logger.Error("revert failed",
				zap.String("step", s.Name),
				zap.NamedError("cause", err),
				zap.Error(rerr),
			)
			return fmt.Errorf("%w: %w (step %s: %w)", ErrRevertFailed, rerr, s.Name, err)
		}
		return err
	}
	return nil
}

// revert undoes steps [0, n) in reverse order. A revert that fails stops the
// unwind since later undos may depend on it.
func (p *plan) revert(ctx context.Context, n int) error {
	for i := n - 1; i >= 0; i-- {
		s := p.steps[i]
		if s.Revert == nil {
			continue
		}
		// The caller's context may be the reason the step failed.
		if err := s.Revert(context.WithoutCancel(ctx)); err != nil {
			return fmt.Errorf("revert %s: %w", s.Name, err)
		}
	}
	return nil
}
