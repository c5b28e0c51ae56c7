package harness

import "github.com/xuxxeth/sx/internal/ir"

// StepOutcome records what one scenario step did.
type StepOutcome struct {
	Step   int    `json:"step"`
	Action string `json:"action"`

	// Seq is the committed event's seq, zero if the step was rejected.
	Seq int64 `json:"seq,omitempty"`

	// Code is the ledger error code of a rejected step. Rejections that
	// carry no code are reported as "error".
	Code string `json:"code,omitempty"`
}

// Result is the outcome of a scenario run on one host.
type Result struct {
	// Host is the host kind the scenario ran on.
	Host HostKind `json:"host"`

	// Pass is true if every step met its expectation and every assertion
	// held.
	Pass bool `json:"pass"`

	// Events holds the committed events in seq order.
	Events []ir.Event `json:"events"`

	Steps []StepOutcome `json:"steps"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a passing result for a host.
func NewResult(kind HostKind) *Result {
	return &Result{
		Host:   kind,
		Pass:   true,
		Events: []ir.Event{},
		Steps:  []StepOutcome{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Kinds returns the kinds of the committed events in order.
func (r *Result) Kinds() []ir.EventKind {
	out := make([]ir.EventKind, len(r.Events))
	for i, ev := range r.Events {
		out[i] = ev.Kind
	}
	return out
}
