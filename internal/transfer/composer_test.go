package transfer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xuxxeth/sx/internal/address"
	"github.com/xuxxeth/sx/internal/host"
	"github.com/xuxxeth/sx/internal/ir"
	"github.com/xuxxeth/sx/internal/kvstore"
)

var (
	alice   = address.MustParse("4vJ9JU1bJJE96FWSJKvHsmmFADCg4gpZQff4P3bkLKi")
	bob     = address.MustParse("8qbHbw2BbbTHBW1sbeqakYXVKRQM8Ne7pLK7m6CVfeR")
	tipAddr = address.MustParse("CktRuQ2mttgRGkXJtyksdKHjUdc2C4TgDzyB98oEzy8")
)

var errReceipt = errors.New("receipt write failed")

func receipt(ctx context.Context, tx host.Tx) error {
	return tx.Create(ctx, tipAddr, &ir.TipRecord{From: alice, To: bob, TipID: 1, Amount: 10}, alice)
}

func failingReceipt(context.Context, host.Tx) error { return errReceipt }

func funded(t *testing.T, mode kvstore.Mode) (*kvstore.Store, host.Tx) {
	t.Helper()
	s, err := kvstore.OpenMem(host.FreeRent(), mode)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	tx, err := s.Begin(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { tx.Rollback() })
	require.NoError(t, tx.Airdrop(context.Background(), alice, 100))
	return s, tx
}

func balances(t *testing.T, tx host.Tx) (uint64, uint64) {
	t.Helper()
	a, err := tx.Balance(context.Background(), alice)
	require.NoError(t, err)
	b, err := tx.Balance(context.Background(), bob)
	require.NoError(t, err)
	return a, b
}

func TestTransferThenRecord_Success(t *testing.T) {
	for _, mode := range []kvstore.Mode{kvstore.Batch, kvstore.Direct} {
		t.Run(mode.String(), func(t *testing.T) {
			s, tx := funded(t, mode)
			c := NewComposer(nil)

			err := c.TransferThenRecord(context.Background(), tx, s.Atomic(), alice, bob, 10, receipt)
			require.NoError(t, err)

			a, b := balances(t, tx)
			assert.Equal(t, uint64(90), a)
			assert.Equal(t, uint64(10), b)

			_, ok, err := tx.Read(context.Background(), tipAddr)
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestTransferThenRecord_NonAtomicRevertsTransfer(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	s, tx := funded(t, kvstore.Direct)
	c := NewComposer(zap.New(core))

	err := c.TransferThenRecord(context.Background(), tx, s.Atomic(), alice, bob, 10, failingReceipt)
	assert.ErrorIs(t, err, errReceipt)
	assert.NotErrorIs(t, err, ErrRevertFailed)

	a, b := balances(t, tx)
	assert.Equal(t, uint64(100), a)
	assert.Equal(t, uint64(0), b)

	_, ok, err := tx.Read(context.Background(), tipAddr)
	require.NoError(t, err)
	assert.False(t, ok)

	require.Equal(t, 1, logs.FilterMessage("step failed, reverting").Len())
	assert.Equal(t, "receipt", logs.All()[0].ContextMap()["step"])
}

func TestTransferThenRecord_AtomicLeavesRollbackToCaller(t *testing.T) {
	ctx := context.Background()
	s, tx := funded(t, kvstore.Batch)
	require.NoError(t, tx.Commit())

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	err = NewComposer(nil).TransferThenRecord(ctx, tx, true, alice, bob, 10, failingReceipt)
	assert.ErrorIs(t, err, errReceipt)
	require.NoError(t, tx.Rollback())

	check, err := s.Begin(ctx)
	require.NoError(t, err)
	defer check.Rollback()
	a, b := balances(t, check)
	assert.Equal(t, uint64(100), a)
	assert.Equal(t, uint64(0), b)
}

func TestTransferThenRecord_PrepareRejectsOverdraft(t *testing.T) {
	s, tx := funded(t, kvstore.Direct)
	called := false
	write := func(context.Context, host.Tx) error { called = true; return nil }

	err := NewComposer(nil).TransferThenRecord(context.Background(), tx, s.Atomic(), alice, bob, 101, write)
	assert.True(t, ir.IsCode(err, ir.CodeInsufficientFunds), "got %v", err)
	assert.False(t, called)

	a, _ := balances(t, tx)
	assert.Equal(t, uint64(100), a)
}

// stuckTx accepts the first transfer and refuses every one after it, so the
// reverse transfer cannot happen.
type stuckTx struct {
	host.Tx
	transfers int
}

func (s *stuckTx) Transfer(ctx context.Context, from, to address.Address, amount uint64) error {
	s.transfers++
	if s.transfers > 1 {
		return errors.New("host unavailable")
	}
	return s.Tx.Transfer(ctx, from, to, amount)
}

func TestTransferThenRecord_RevertFailureIsFatal(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	_, tx := funded(t, kvstore.Direct)
	stuck := &stuckTx{Tx: tx}

	err := NewComposer(zap.New(core)).TransferThenRecord(context.Background(), stuck, false, alice, bob, 10, failingReceipt)
	assert.ErrorIs(t, err, ErrRevertFailed)
	assert.ErrorIs(t, err, errReceipt)
	assert.Equal(t, 1, logs.FilterMessage("revert failed").Len())
}

func TestPlanRevertsInReverseOrder(t *testing.T) {
	var order []string
	p := newPlan(zap.NewNop())
	for _, name := range []string{"a", "b", "c"} {
		name := name
		p.add(name,
			func(context.Context) error { return nil },
			func(context.Context) error { order = append(order, name); return nil },
		)
	}
	p.add("boom", func(context.Context) error { return errors.New("boom") }, nil)

	require.Error(t, p.run(context.Background()))
	assert.Equal(t, []string{"c", "b", "a"}, order)
}

func TestSequence(t *testing.T) {
	var applied, reverted []string
	step := func(name string, err error) Step {
		return Step{
			Name:   name,
			Apply:  func(context.Context) error { applied = append(applied, name); return err },
			Revert: func(context.Context) error { reverted = append(reverted, name); return nil },
		}
	}
	errLast := errors.New("last write failed")

	tests := []struct {
		name     string
		atomic   bool
		last     error
		applied  []string
		reverted []string
	}{
		{name: "all succeed", atomic: false, applied: []string{"a", "b", "c"}},
		{name: "non-atomic failure reverts", atomic: false, last: errLast, applied: []string{"a", "b", "c"}, reverted: []string{"b", "a"}},
		{name: "atomic failure leaves rollback to caller", atomic: true, last: errLast, applied: []string{"a", "b", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			applied, reverted = nil, nil
			err := NewComposer(nil).Sequence(context.Background(), tt.atomic,
				step("a", nil), step("b", nil), step("c", tt.last))
			if tt.last != nil {
				assert.ErrorIs(t, err, tt.last)
				assert.NotErrorIs(t, err, ErrRevertFailed)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.applied, applied)
			assert.Equal(t, tt.reverted, reverted)
		})
	}
}

func TestSequence_RevertFailureIsFatal(t *testing.T) {
	errStuck := errors.New("host unavailable")
	err := NewComposer(nil).Sequence(context.Background(), false,
		Step{
			Name:   "create",
			Apply:  func(context.Context) error { return nil },
			Revert: func(context.Context) error { return errStuck },
		},
		Step{Name: "update", Apply: func(context.Context) error { return errReceipt }},
	)
	assert.ErrorIs(t, err, ErrRevertFailed)
	assert.ErrorIs(t, err, errStuck)
	assert.ErrorIs(t, err, errReceipt)
}
