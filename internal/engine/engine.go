package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xuxxeth/sx/internal/address"
	"github.com/xuxxeth/sx/internal/events"
	"github.com/xuxxeth/sx/internal/host"
	"github.com/xuxxeth/sx/internal/ir"
	"github.com/xuxxeth/sx/internal/transfer"
)

// Signer carries the identities a transition acts for. Authority must
// authorize the transition; Payer funds new records' deposits and
// Beneficiary receives deposits of closed records. Both default to
// Authority.
type Signer struct {
	Authority   address.Address
	Payer       address.Address
	Beneficiary address.Address
}

// As returns a Signer that pays and is refunded by the authority itself.
func As(authority address.Address) Signer {
	return Signer{Authority: authority}
}

func (s Signer) payer() address.Address {
	if s.Payer.IsZero() {
		return s.Authority
	}
	return s.Payer
}

func (s Signer) beneficiary() address.Address {
	if s.Beneficiary.IsZero() {
		return s.Authority
	}
	return s.Beneficiary
}

// Engine executes transitions against a host.
//
// Thread-safety: every entry point is safe for concurrent use. Transitions
// are serialized; at most one host transaction is open at a time.
type Engine struct {
	mu sync.Mutex

	host     host.Host
	deriver  *address.Deriver
	composer *transfer.Composer
	emitter  events.Emitter
	clock    *Clock
	ids      TransitionIDGenerator
	now      TimeSource
	strict   bool
	logger   *zap.Logger
	metrics  *Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithDeriver sets the address deriver. Default: address.DefaultProgram.
func WithDeriver(d *address.Deriver) Option {
	return func(e *Engine) { e.deriver = d }
}

// WithEmitter sets where committed events go. Default: events.Discard.
func WithEmitter(em events.Emitter) Option {
	return func(e *Engine) { e.emitter = em }
}

// WithClock sets the seq clock, typically from ResumeClock.
func WithClock(c *Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithIDGenerator sets the transition token generator. Default: UUIDv7.
func WithIDGenerator(g TransitionIDGenerator) Option {
	return func(e *Engine) { e.ids = g }
}

// WithTimeSource sets the record timestamp source. Default: SystemTime.
func WithTimeSource(ts TimeSource) Option {
	return func(e *Engine) { e.now = ts }
}

// WithStrict rejects self-follows, zero tips and unknown visibility values
// instead of logging them.
func WithStrict(strict bool) Option {
	return func(e *Engine) { e.strict = strict }
}

// WithLogger sets the logger. Default: zap.NewNop().
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMetrics sets the collectors. Default: unregistered collectors.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// New creates an Engine over h.
func New(h host.Host, opts ...Option) *Engine {
	e := &Engine{
		host:    h,
		emitter: events.Discard,
		clock:   NewClock(),
		ids:     UUIDv7Generator{},
		now:     SystemTime{},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.deriver == nil {
		e.deriver = address.NewDeriver(address.DefaultProgram)
	}
	if e.metrics == nil {
		e.metrics = NewMetrics(nil)
	}
	if e.composer == nil {
		e.composer = transfer.NewComposer(e.logger)
	}
	return e
}

// Deriver returns the deriver addresses are computed with.
func (e *Engine) Deriver() *address.Deriver {
	return e.deriver
}

// Clock returns the seq clock.
func (e *Engine) Clock() *Clock {
	return e.clock
}

// body is one transition's work inside its transaction. It returns the
// payload of the event to emit on commit.
type body func(ctx context.Context, tx host.Tx, now int64) (ir.Payload, error)

// run executes fn as one transition named action.
func (e *Engine) run(ctx context.Context, action string, fn body) (ir.Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	started := time.Now()
	transition := e.ids.Generate()
	logger := e.logger.With(zap.String("action", action), zap.String("transition", transition))

	ev, err := e.execute(ctx, transition, fn)
	e.metrics.observe(action, started, err)
	if errors.Is(err, transfer.ErrRevertFailed) {
		e.metrics.revertFailure.Inc()
	}
	if err != nil {
		logger.Debug("transition rejected", zap.Error(err))
		return ir.Event{}, &TransitionError{Action: action, Transition: transition, Err: err}
	}

	logger.Debug("transition committed", zap.Int64("seq", ev.Seq), zap.String("kind", string(ev.Kind)))
	if err := e.emitter.Emit(ctx, ev); err != nil {
		e.metrics.emitFailures.Inc()
		logger.Error("emit failed", zap.Int64("seq", ev.Seq), zap.Error(err))
	}
	return ev, nil
}

func (e *Engine) execute(ctx context.Context, transition string, fn body) (ir.Event, error) {
	tx, err := e.host.Begin(ctx)
	if err != nil {
		return ir.Event{}, err
	}
	defer tx.Rollback()

	payload, err := fn(ctx, tx, e.now.Now())
	if err != nil {
		return ir.Event{}, err
	}

	// Build the event before committing so nothing can fail after the
	// commit except delivery.
	ev, err := ir.NewEvent(e.clock.Peek(), transition, payload)
	if err != nil {
		return ir.Event{}, fmt.Errorf("build event: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return ir.Event{}, err
	}
	e.clock.Next()
	return ev, nil
}

// Airdrop mints lamports to an identity. It is local tooling, not a ledger
// transition, so it emits no event.
func (e *Engine) Airdrop(ctx context.Context, to address.Address, amount uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return host.Update(ctx, e.host, func(tx host.Tx) error {
		return tx.Airdrop(ctx, to, amount)
	})
}

// Balance returns an identity's lamports.
func (e *Engine) Balance(ctx context.Context, id address.Address) (uint64, error) {
	var balance uint64
	err := host.View(ctx, e.host, func(tx host.Tx) error {
		var err error
		balance, err = tx.Balance(ctx, id)
		return err
	})
	return balance, err
}

// Lookup returns the live record at addr.
func (e *Engine) Lookup(ctx context.Context, addr address.Address) (ir.Record, bool, error) {
	var (
		rec ir.Record
		ok  bool
	)
	err := host.View(ctx, e.host, func(tx host.Tx) error {
		var err error
		rec, ok, err = tx.Read(ctx, addr)
		return err
	})
	return rec, ok, err
}

// lenient handles a strict-mode check: in strict mode its error rejects the
// transition, otherwise it is logged and the input is accepted.
func (e *Engine) lenient(action string, err error) error {
	if err == nil {
		return nil
	}
	if e.strict {
		return err
	}
	e.logger.Warn("accepting questionable input", zap.String("action", action), zap.Error(err))
	return nil
}
