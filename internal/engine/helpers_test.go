package engine

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xuxxeth/sx/internal/address"
	"github.com/xuxxeth/sx/internal/events"
	"github.com/xuxxeth/sx/internal/host"
	"github.com/xuxxeth/sx/internal/ir"
	"github.com/xuxxeth/sx/internal/kvstore"
	"github.com/xuxxeth/sx/internal/store"
	"github.com/xuxxeth/sx/internal/testutil"
)

var (
	alice = testutil.Alice
	bob   = testutil.Bob
	carol = testutil.Carol
)

// testHost is a host that also keeps an event log.
type testHost interface {
	host.Host
	events.Store
}

var hostKinds = []string{"sqlite", "leveldb-batch", "leveldb-direct"}

func openHost(t *testing.T, kind string, rent host.Rent) testHost {
	t.Helper()
	switch kind {
	case "sqlite":
		s, err := store.Open(filepath.Join(t.TempDir(), "sx.db"), rent)
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	case "leveldb-batch", "leveldb-direct":
		mode := kvstore.Batch
		if kind == "leveldb-direct" {
			mode = kvstore.Direct
		}
		s, err := kvstore.OpenMem(rent, mode)
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	default:
		t.Fatalf("unknown host kind %q", kind)
		return nil
	}
}

// forEachHost runs fn once per host kind, each with a fresh free-rent host.
func forEachHost(t *testing.T, fn func(t *testing.T, h testHost)) {
	for _, kind := range hostKinds {
		t.Run(kind, func(t *testing.T) {
			fn(t, openHost(t, kind, host.FreeRent()))
		})
	}
}

// recorder collects emitted events.
type recorder struct {
	mu     sync.Mutex
	events []ir.Event
}

func (r *recorder) Emit(_ context.Context, ev ir.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) kinds() []ir.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ir.EventKind, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Kind
	}
	return out
}

func (r *recorder) last() ir.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

func newEngine(t *testing.T, h host.Host, opts ...Option) (*Engine, *recorder) {
	t.Helper()
	rec := &recorder{}
	base := []Option{
		WithEmitter(rec),
		WithTimeSource(testutil.NewDeterministicClock(testutil.DefaultEpoch)),
	}
	return New(h, append(base, opts...)...), rec
}

func lookup(t *testing.T, e *Engine, addr address.Address) (ir.Record, bool) {
	t.Helper()
	rec, ok, err := e.Lookup(context.Background(), addr)
	require.NoError(t, err)
	return rec, ok
}

func balance(t *testing.T, e *Engine, id address.Address) uint64 {
	t.Helper()
	b, err := e.Balance(context.Background(), id)
	require.NoError(t, err)
	return b
}

// mustAddr unwraps a derivation. Derivation of fixture inputs never fails.
func mustAddr(d address.Derived, err error) address.Address {
	if err != nil {
		panic(err)
	}
	return d.Address
}

func errAddress(t *testing.T, err error) string {
	t.Helper()
	var e *ir.Error
	require.True(t, errors.As(err, &e), "not an *ir.Error: %v", err)
	return e.Address
}

var errInjected = errors.New("injected write failure")

// faultHost injects write failures. Zero fields inject nothing.
type faultHost struct {
	testHost
	fail       address.Namespace // Create of records in this namespace
	failUpdate bool              // every Update
	failClose  address.Address   // Close of this address
}

func (f faultHost) Begin(ctx context.Context) (host.Tx, error) {
	tx, err := f.testHost.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &faultTx{Tx: tx, faults: f}, nil
}

type faultTx struct {
	host.Tx
	faults faultHost
}

func (f *faultTx) Create(ctx context.Context, addr address.Address, rec ir.Record, payer address.Address) error {
	if rec.Namespace() == f.faults.fail {
		return errInjected
	}
	return f.Tx.Create(ctx, addr, rec, payer)
}

func (f *faultTx) Update(ctx context.Context, addr, authorizer address.Address, mutate host.Mutator) error {
	if f.faults.failUpdate {
		return errInjected
	}
	return f.Tx.Update(ctx, addr, authorizer, mutate)
}

func (f *faultTx) Close(ctx context.Context, addr, beneficiary address.Address) error {
	if !f.faults.failClose.IsZero() && addr == f.faults.failClose {
		return errInjected
	}
	return f.Tx.Close(ctx, addr, beneficiary)
}

// fixedTime reads the same instant every time.
type fixedTime int64

func (t fixedTime) Now() int64 { return int64(t) }
