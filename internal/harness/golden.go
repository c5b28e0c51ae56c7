package harness

import (
	"bytes"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/xuxxeth/sx/internal/ir"
)

// Snapshot renders committed events as canonical JSON, one event per line.
// Event ids and transition tokens are left out: ids follow from kind,
// payload and seq, and tokens are fixed by the harness.
func Snapshot(evs []ir.Event) ([]byte, error) {
	var buf bytes.Buffer
	for _, ev := range evs {
		payload, err := ir.ToCanonicalMap(ev.Payload)
		if err != nil {
			return nil, err
		}
		line, err := ir.MarshalCanonical(map[string]any{
			"kind":    string(ev.Kind),
			"payload": payload,
			"seq":     ev.Seq,
		})
		if err != nil {
			return nil, err
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// RunWithGolden runs a scenario on each of its host kinds, fails the test if
// the scenario does not pass, and compares every host's event stream against
// the golden file testdata/golden/{scenario.Name}.golden. All hosts must
// produce the same stream.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...Option) {
	t.Helper()

	for _, kind := range scenario.HostKinds() {
		t.Run(string(kind), func(t *testing.T) {
			result, err := Run(scenario, kind, opts...)
			if err != nil {
				t.Fatalf("run %s: %v", scenario.Name, err)
			}
			for _, msg := range result.Errors {
				t.Error(msg)
			}
			AssertGolden(t, scenario.Name, result)
		})
	}
}

// AssertGolden compares a result's event stream against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, name string, result *Result) {
	t.Helper()

	snapshot, err := Snapshot(result.Events)
	if err != nil {
		t.Fatalf("snapshot %s: %v", name, err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, snapshot)
}
