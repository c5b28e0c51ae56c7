package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/xuxxeth/sx/internal/address"
	"github.com/xuxxeth/sx/internal/engine"
	"github.com/xuxxeth/sx/internal/ir"
)

// identityParts lists, per namespace, the key positions that hold
// identities. Only those positions accept well-known names.
var identityParts = map[address.Namespace][]int{
	address.NamespaceProfile: {0},
	address.NamespaceFollow:  {0, 1},
	address.NamespacePost:    {0},
	address.NamespaceTip:     {0},
	address.NamespaceLike:    {0, 1},
	address.NamespaceComment: {0},
	address.NamespaceTopic:   {1},
}

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string     // Assertion type for categorization
	Expected string     // Human-readable expected outcome
	Actual   string     // Human-readable actual outcome
	Events   []ir.Event // Committed events for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nEvents:\n")
	for _, ev := range e.Events {
		fmt.Fprintf(&buf, "  [%d] %s\n", ev.Seq, ev.Kind)
	}

	return buf.String()
}

// AssertionContext provides what state assertions read from.
type AssertionContext struct {
	Engine *engine.Engine
	Ctx    context.Context
}

// EvaluateAssertions checks every assertion and returns one message per
// failure.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(result, a, actx); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluate(result *Result, a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertEventCount:
		return assertEventCount(result.Events, a)
	case AssertEventOrder:
		return assertEventOrder(result.Events, a)
	case AssertRecordExists, AssertRecordAbsent, AssertRecord:
		if actx == nil || actx.Engine == nil {
			return fmt.Errorf("%s needs an engine to read state", a.Type)
		}
		return assertRecord(actx, result.Events, a)
	case AssertBalance:
		if actx == nil || actx.Engine == nil {
			return fmt.Errorf("balance needs an engine to read state")
		}
		return assertBalance(actx, result.Events, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertEventCount checks that exactly Count events of Kind were committed.
func assertEventCount(evs []ir.Event, a Assertion) error {
	count := 0
	for _, ev := range evs {
		if string(ev.Kind) == a.Kind {
			count++
		}
	}

	if count != a.Count {
		return &AssertionError{
			Type:     AssertEventCount,
			Expected: fmt.Sprintf("%d %s event(s)", a.Count, a.Kind),
			Actual:   fmt.Sprintf("%d", count),
			Events:   evs,
		}
	}
	return nil
}

// assertEventOrder checks that events of the listed kinds appear in order.
// Other events may come in between, and the n-th occurrence of a kind in the
// list matches the n-th such event.
func assertEventOrder(evs []ir.Event, a Assertion) error {
	pos := 0
	for _, want := range a.Kinds {
		found := false
		for pos < len(evs) {
			ev := evs[pos]
			pos++
			if string(ev.Kind) == want {
				found = true
				break
			}
		}
		if !found {
			return &AssertionError{
				Type:     AssertEventOrder,
				Expected: fmt.Sprintf("events in order: %v", a.Kinds),
				Actual:   fmt.Sprintf("no %s after the previous match", want),
				Events:   evs,
			}
		}
	}
	return nil
}

// recordAddress derives the address an assertion points at.
func recordAddress(d *address.Deriver, a Assertion) (address.Derived, error) {
	parts := slices.Clone(a.Key)
	for _, i := range identityParts[a.Namespace] {
		if i >= len(parts) {
			continue
		}
		if id, ok := identities[parts[i]]; ok {
			parts[i] = id.String()
		}
	}
	return d.Key(a.Namespace, parts...)
}

func assertRecord(actx *AssertionContext, evs []ir.Event, a Assertion) error {
	derived, err := recordAddress(actx.Engine.Deriver(), a)
	if err != nil {
		return err
	}
	rec, ok, err := actx.Engine.Lookup(actx.Ctx, derived.Address)
	if err != nil {
		return fmt.Errorf("lookup %s: %w", derived, err)
	}

	where := fmt.Sprintf("%s %v", a.Namespace, a.Key)
	switch {
	case a.Type == AssertRecordAbsent && ok:
		return &AssertionError{Type: a.Type, Expected: "no record at " + where, Actual: "live record at " + derived.String(), Events: evs}
	case a.Type == AssertRecordAbsent:
		return nil
	case !ok:
		return &AssertionError{Type: a.Type, Expected: "record at " + where, Actual: "nothing at " + derived.String(), Events: evs}
	case a.Type == AssertRecordExists:
		return nil
	}

	actual, err := ir.ToCanonicalMap(rec)
	if err != nil {
		return err
	}
	if mismatches := matchFields(actual, a.Fields); len(mismatches) > 0 {
		return &AssertionError{
			Type:     AssertRecord,
			Expected: fmt.Sprintf("%s fields %v", where, a.Fields),
			Actual:   strings.Join(mismatches, "; "),
			Events:   evs,
		}
	}
	return nil
}

// matchFields compares expected fields against a record's canonical map and
// returns one message per mismatch. Numbers compare by their decimal form;
// a well-known identity name matches its base58 address.
func matchFields(actual map[string]any, expected map[string]any) []string {
	keys := make([]string, 0, len(expected))
	for k := range expected {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []string
	for _, k := range keys {
		got, ok := actual[k]
		if !ok {
			out = append(out, fmt.Sprintf("%s: missing", k))
			continue
		}
		if !fieldEqual(got, expected[k]) {
			out = append(out, fmt.Sprintf("%s: got %v, want %v", k, got, expected[k]))
		}
	}
	return out
}

func fieldEqual(got, want any) bool {
	switch g := got.(type) {
	case json.Number:
		return g.String() == fmt.Sprint(want)
	case string:
		w, ok := want.(string)
		if !ok {
			return false
		}
		if g == w {
			return true
		}
		id, known := identities[w]
		return known && id.String() == g
	default:
		return fmt.Sprint(got) == fmt.Sprint(want)
	}
}

func assertBalance(actx *AssertionContext, evs []ir.Event, a Assertion) error {
	id, err := ResolveIdentity(a.Identity)
	if err != nil {
		return err
	}
	got, err := actx.Engine.Balance(actx.Ctx, id)
	if err != nil {
		return fmt.Errorf("balance of %s: %w", a.Identity, err)
	}
	if got != a.Lamports {
		return &AssertionError{
			Type:     AssertBalance,
			Expected: fmt.Sprintf("%s holds %d lamports", a.Identity, a.Lamports),
			Actual:   fmt.Sprintf("%d lamports", got),
			Events:   evs,
		}
	}
	return nil
}
