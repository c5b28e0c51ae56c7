package harness

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/xuxxeth/sx/internal/address"
	"github.com/xuxxeth/sx/internal/engine"
	"github.com/xuxxeth/sx/internal/events"
	"github.com/xuxxeth/sx/internal/host"
	"github.com/xuxxeth/sx/internal/ir"
	"github.com/xuxxeth/sx/internal/kvstore"
	"github.com/xuxxeth/sx/internal/store"
	"github.com/xuxxeth/sx/internal/testutil"
)

// identities are the well-known names scenarios may use for identities.
var identities = map[string]address.Address{
	"alice": testutil.Alice,
	"bob":   testutil.Bob,
	"carol": testutil.Carol,
	"dave":  testutil.Dave,
	"erin":  testutil.Erin,
}

// ResolveIdentity turns a well-known name or a base58 string into an
// identity.
func ResolveIdentity(s string) (address.Address, error) {
	if a, ok := identities[s]; ok {
		return a, nil
	}
	a, err := address.Parse(s)
	if err != nil {
		return address.Address{}, fmt.Errorf("identity %q is neither a known name nor base58: %w", s, err)
	}
	return a, nil
}

// ledgerHost is a host that also keeps the event log.
type ledgerHost interface {
	host.Host
	events.Store
	Close() error
}

func openHost(kind HostKind, rent host.Rent) (ledgerHost, error) {
	switch kind {
	case HostSQLite:
		return store.Open(":memory:", rent)
	case HostLevelDB:
		return kvstore.OpenMem(rent, kvstore.Batch)
	case HostLevelDBDirect:
		return kvstore.OpenMem(rent, kvstore.Direct)
	default:
		return nil, fmt.Errorf("unknown host kind %q", kind)
	}
}

// Option configures a run.
type Option func(*Harness)

// WithLogger sets the logger. The engine logs through it too.
// Default: zap.NewNop().
func WithLogger(l *zap.Logger) Option {
	return func(h *Harness) { h.logger = l }
}

// Harness is the scenario execution engine.
// It drives a real engine with a deterministic record clock and a fixed
// transition token.
type Harness struct {
	host   ledgerHost
	engine *engine.Engine
	clock  *testutil.DeterministicClock
	ids    *testutil.FixedTransitionGenerator
	logger *zap.Logger
}

// Run executes a scenario on one host kind and returns the result.
//
// Each run uses a fresh in-memory host. Step outcomes that miss their
// expectation and failed assertions are reported in the result; malformed
// steps (unknown identities, bad arguments) abort the run with an error.
//
// Execution flow:
// 1. Open a fresh host, wrapped for fail_writes if needed
// 2. Airdrop the setup funding
// 3. Run every step and check its expectation
// 4. Read back the durable event log and check the in-process bus saw the
//    same events
// 5. Evaluate assertions against events and final state
func Run(scenario *Scenario, kind HostKind, opts ...Option) (*Result, error) {
	rent := host.FreeRent()
	if scenario.Rent != nil {
		rent = *scenario.Rent
	}
	lh, err := openHost(kind, rent)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s host: %w", kind, err)
	}
	defer lh.Close()

	h := &Harness{
		host:   lh,
		clock:  testutil.NewDeterministicClock(testutil.DefaultEpoch),
		ids:    testutil.NewFixedTransitionGenerator(scenario.TransitionToken),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With(zap.String("scenario", scenario.Name), zap.String("host", string(kind)))

	var base host.Host = lh
	if len(scenario.FailWrites) > 0 {
		base = faultHost{Host: lh, fail: scenario.FailWrites}
	}
	// Every step commits at most one event, so the subscription never drops.
	bus := events.NewBus(h.logger)
	sub := bus.Subscribe(len(scenario.Steps))
	defer sub.Close()

	h.engine = engine.New(base,
		engine.WithEmitter(events.Fanout{events.NewLog(lh), bus}),
		engine.WithIDGenerator(h.ids),
		engine.WithTimeSource(h.clock),
		engine.WithStrict(scenario.Strict),
		engine.WithLogger(h.logger),
	)

	ctx := context.Background()
	result := NewResult(kind)

	if err := h.executeSetup(ctx, scenario.Setup); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}
	if err := h.executeSteps(ctx, scenario.Steps, result); err != nil {
		return nil, fmt.Errorf("failed to execute steps: %w", err)
	}

	evs, err := lh.ReadEvents(ctx, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to read event log: %w", err)
	}
	result.Events = evs
	if msg := compareDeliveries(evs, drain(sub)); msg != "" {
		result.AddError(msg)
	}

	actx := &AssertionContext{Engine: h.engine, Ctx: ctx}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

// drain returns the events waiting on sub without blocking.
func drain(sub *events.Subscription) []ir.Event {
	var out []ir.Event
	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				return out
			}
			out = append(out, ev)
		default:
			return out
		}
	}
}

// compareDeliveries checks that the bus delivered exactly the logged events,
// in order. It returns "" when they agree.
func compareDeliveries(logged, delivered []ir.Event) string {
	if len(delivered) != len(logged) {
		return fmt.Sprintf("bus delivered %d event(s), log holds %d", len(delivered), len(logged))
	}
	for i := range logged {
		l, d := logged[i], delivered[i]
		if l.Seq != d.Seq || l.Kind != d.Kind || l.ID != d.ID {
			return fmt.Sprintf("bus delivery %d is %s at seq %d, log has %s at seq %d", i, d.Kind, d.Seq, l.Kind, l.Seq)
		}
	}
	return ""
}

func (h *Harness) executeSetup(ctx context.Context, setup []Funding) error {
	for i, f := range setup {
		to, err := ResolveIdentity(f.Identity)
		if err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
		if err := h.engine.Airdrop(ctx, to, f.Amount); err != nil {
			return fmt.Errorf("setup[%d]: airdrop: %w", i, err)
		}
		h.logger.Debug("setup funded", zap.Int("step", i), zap.Stringer("identity", to), zap.Uint64("amount", f.Amount))
	}
	return nil
}

// executeSteps runs every step and checks it against its expect clause.
func (h *Harness) executeSteps(ctx context.Context, steps []Step, result *Result) error {
	for i, step := range steps {
		signer, err := stepSigner(step)
		if err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
		call, err := h.bind(step.Action, signer, step.Args)
		if err != nil {
			return fmt.Errorf("steps[%d] %s: %w", i, step.Action, err)
		}

		ev, err := call(ctx)
		outcome := StepOutcome{Step: i, Action: step.Action}
		if err != nil {
			outcome.Code = errorCode(err)
		} else {
			outcome.Seq = ev.Seq
		}
		result.Steps = append(result.Steps, outcome)

		if msg := checkExpect(step.Expect, ev, err); msg != "" {
			result.AddError(fmt.Sprintf("steps[%d] %s: %s", i, step.Action, msg))
		}

		h.logger.Debug("step completed",
			zap.Int("step", i),
			zap.String("action", step.Action),
			zap.Int64("seq", outcome.Seq),
			zap.String("code", outcome.Code),
		)
	}
	return nil
}

// errorCode reports the ledger code of err, or "error" if it has none.
func errorCode(err error) string {
	if code := ir.CodeOf(err); code != "" {
		return string(code)
	}
	return "error"
}

func checkExpect(want *Expect, ev ir.Event, err error) string {
	if want == nil || want.Error == "" {
		if err != nil {
			return fmt.Sprintf("expected commit, got %v", err)
		}
		if want != nil && want.Event != "" && string(ev.Kind) != want.Event {
			return fmt.Sprintf("expected %s event, got %s", want.Event, ev.Kind)
		}
		return ""
	}
	if err == nil {
		return fmt.Sprintf("expected %s, got commit of %s at seq %d", want.Error, ev.Kind, ev.Seq)
	}
	if want.Error != ExpectAnyError && errorCode(err) != want.Error {
		return fmt.Sprintf("expected %s, got %v", want.Error, err)
	}
	return ""
}

func stepSigner(step Step) (engine.Signer, error) {
	var s engine.Signer
	var err error
	if s.Authority, err = ResolveIdentity(step.As); err != nil {
		return s, fmt.Errorf("as: %w", err)
	}
	if step.Payer != "" {
		if s.Payer, err = ResolveIdentity(step.Payer); err != nil {
			return s, fmt.Errorf("payer: %w", err)
		}
	}
	if step.Beneficiary != "" {
		if s.Beneficiary, err = ResolveIdentity(step.Beneficiary); err != nil {
			return s, fmt.Errorf("beneficiary: %w", err)
		}
	}
	return s, nil
}

// transitionCall is a bound transition ready to run.
type transitionCall func(ctx context.Context) (ir.Event, error)

// bind parses a step's arguments and binds them to the engine entry point
// for action. Every argument must be consumed.
func (h *Harness) bind(action string, s engine.Signer, raw map[string]any) (transitionCall, error) {
	a := &stepArgs{raw: raw, used: make(map[string]bool)}
	e := h.engine

	var call transitionCall
	switch action {
	case engine.ActionCreateProfile:
		username, display, bio, avatar := a.str("username"), a.str("display_name"), a.str("bio_cid"), a.str("avatar_cid")
		call = func(ctx context.Context) (ir.Event, error) {
			return e.CreateProfile(ctx, s, username, display, bio, avatar)
		}
	case engine.ActionUpdateProfile:
		display, bio, avatar := a.str("display_name"), a.str("bio_cid"), a.str("avatar_cid")
		call = func(ctx context.Context) (ir.Event, error) {
			return e.UpdateProfile(ctx, s, display, bio, avatar)
		}
	case engine.ActionUpdateUsername:
		username := a.str("username")
		call = func(ctx context.Context) (ir.Event, error) {
			return e.UpdateUsername(ctx, s, username)
		}
	case engine.ActionFollow:
		to := a.identity("following")
		call = func(ctx context.Context) (ir.Event, error) {
			return e.Follow(ctx, s, to)
		}
	case engine.ActionUnfollow:
		to := a.identity("following")
		call = func(ctx context.Context) (ir.Event, error) {
			return e.Unfollow(ctx, s, to)
		}
	case engine.ActionCreatePostIndex:
		postID, cid, vis := a.u64("post_id"), a.str("content_cid"), a.u8("visibility")
		call = func(ctx context.Context) (ir.Event, error) {
			return e.CreatePostIndex(ctx, s, postID, cid, vis)
		}
	case engine.ActionTip:
		to, tipID, amount := a.identity("to"), a.u64("tip_id"), a.u64("amount")
		call = func(ctx context.Context) (ir.Event, error) {
			return e.Tip(ctx, s, to, tipID, amount)
		}
	case engine.ActionLikePost:
		author, postID := a.identity("post_author"), a.u64("post_id")
		call = func(ctx context.Context) (ir.Event, error) {
			return e.LikePost(ctx, s, author, postID)
		}
	case engine.ActionUnlikePost:
		// liker picks whose like record to close; it defaults to the signer.
		author, postID := a.identity("post_author"), a.u64("post_id")
		liker := s.Authority
		if a.has("liker") {
			liker = a.identity("liker")
		}
		if a.err != nil {
			break
		}
		like, err := e.Deriver().Like(liker, author, postID)
		if err != nil {
			return nil, err
		}
		call = func(ctx context.Context) (ir.Event, error) {
			return e.UnlikePost(ctx, s, author, like.Address)
		}
	case engine.ActionCreateComment:
		author, postID, commentID, cid := a.identity("post_author"), a.u64("post_id"), a.u64("comment_id"), a.str("content_cid")
		call = func(ctx context.Context) (ir.Event, error) {
			return e.CreateComment(ctx, s, author, postID, commentID, cid)
		}
	case engine.ActionIndexTopic:
		postID, topic := a.u64("post_id"), a.str("topic")
		call = func(ctx context.Context) (ir.Event, error) {
			return e.IndexTopic(ctx, s, postID, topic)
		}
	default:
		return nil, fmt.Errorf("unknown action %q", action)
	}

	if a.err != nil {
		return nil, a.err
	}
	if extra := a.unused(); len(extra) > 0 {
		return nil, fmt.Errorf("unknown argument(s) %s", strings.Join(extra, ", "))
	}
	return call, nil
}

// stepArgs reads typed arguments from YAML values and keeps the first
// failure. Missing strings read as "" so validation of empty fields can be
// exercised; missing identities and numbers are errors.
type stepArgs struct {
	raw  map[string]any
	used map[string]bool
	err  error
}

func (a *stepArgs) fail(err error) {
	if a.err == nil {
		a.err = err
	}
}

func (a *stepArgs) has(key string) bool {
	_, ok := a.raw[key]
	return ok
}

func (a *stepArgs) get(key string) (any, bool) {
	a.used[key] = true
	v, ok := a.raw[key]
	return v, ok
}

func (a *stepArgs) str(key string) string {
	v, ok := a.get(key)
	if !ok {
		return ""
	}
	s, isString := v.(string)
	if !isString {
		a.fail(fmt.Errorf("argument %s: want string, got %T", key, v))
	}
	return s
}

func (a *stepArgs) identity(key string) address.Address {
	v, ok := a.get(key)
	if !ok {
		a.fail(fmt.Errorf("argument %s is required", key))
		return address.Address{}
	}
	s, isString := v.(string)
	if !isString {
		a.fail(fmt.Errorf("argument %s: want identity, got %T", key, v))
		return address.Address{}
	}
	id, err := ResolveIdentity(s)
	if err != nil {
		a.fail(fmt.Errorf("argument %s: %w", key, err))
	}
	return id
}

func (a *stepArgs) u64(key string) uint64 {
	v, ok := a.get(key)
	if !ok {
		a.fail(fmt.Errorf("argument %s is required", key))
		return 0
	}
	switch n := v.(type) {
	case int:
		if n >= 0 {
			return uint64(n)
		}
	case uint64:
		return n
	}
	a.fail(fmt.Errorf("argument %s: want non-negative integer, got %v", key, v))
	return 0
}

func (a *stepArgs) u8(key string) uint8 {
	if !a.has(key) {
		a.used[key] = true
		return 0
	}
	n := a.u64(key)
	if n > 255 {
		a.fail(fmt.Errorf("argument %s: %d does not fit in a byte", key, n))
		return 0
	}
	return uint8(n)
}

func (a *stepArgs) unused() []string {
	var extra []string
	for k := range a.raw {
		if !a.used[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	return extra
}

// errInjected is returned by Create in a fail_writes namespace.
var errInjected = errors.New("injected write failure")

// faultHost fails every Create of records in the listed namespaces.
type faultHost struct {
	host.Host
	fail []address.Namespace
}

func (f faultHost) Begin(ctx context.Context) (host.Tx, error) {
	tx, err := f.Host.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &faultTx{Tx: tx, fail: f.fail}, nil
}

type faultTx struct {
	host.Tx
	fail []address.Namespace
}

func (f *faultTx) Create(ctx context.Context, addr address.Address, rec ir.Record, payer address.Address) error {
	if slices.Contains(f.fail, rec.Namespace()) {
		return fmt.Errorf("create %s: %w", addr, errInjected)
	}
	return f.Tx.Create(ctx, addr, rec, payer)
}
