package harness

import (
	"bytes"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/xuxxeth/sx/internal/address"
	"github.com/xuxxeth/sx/internal/engine"
	"github.com/xuxxeth/sx/internal/host"
)

// HostKind names a host implementation a scenario can run on.
type HostKind string

const (
	HostSQLite        HostKind = "sqlite"
	HostLevelDB       HostKind = "leveldb"
	HostLevelDBDirect HostKind = "leveldb-direct"
)

// HostKinds lists every host kind in the order scenarios run on them.
var HostKinds = []HostKind{HostSQLite, HostLevelDB, HostLevelDBDirect}

// Scenario defines a ledger scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Hosts restricts the host kinds the scenario runs on. Empty means all.
	Hosts []HostKind `yaml:"hosts,omitempty"`

	// Rent is the deposit schedule. Nil means free rent.
	Rent *host.Rent `yaml:"rent,omitempty"`

	// Strict turns questionable-input warnings into rejections.
	Strict bool `yaml:"strict,omitempty"`

	// FailWrites lists namespaces whose record creation always fails, for
	// exercising rollback and compensation.
	FailWrites []address.Namespace `yaml:"fail_writes,omitempty"`

	// Setup funds identities before the first step.
	Setup []Funding `yaml:"setup,omitempty"`

	// Steps are the transitions to drive, in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the committed events and final state.
	Assertions []Assertion `yaml:"assertions,omitempty"`

	// TransitionToken is the fixed transition id stamped on every event.
	// Defaults to "test-transition".
	TransitionToken string `yaml:"transition_token,omitempty"`
}

// Funding airdrops lamports to an identity.
type Funding struct {
	Identity string `yaml:"airdrop"`
	Amount   uint64 `yaml:"amount"`
}

// Step invokes one transition.
type Step struct {
	// Action is the transition's action name, e.g. "create_profile".
	Action string `yaml:"action"`

	// As is the signing authority. Payer and Beneficiary default to it.
	As          string `yaml:"as"`
	Payer       string `yaml:"payer,omitempty"`
	Beneficiary string `yaml:"beneficiary,omitempty"`

	// Args holds the transition's arguments by name.
	Args map[string]any `yaml:"args,omitempty"`

	// Expect describes the expected outcome. Nil means the step must commit.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect specifies the expected outcome of a step.
type Expect struct {
	// Error is the expected ledger error code, or "any" for a rejection of
	// any kind. Empty means the step must commit.
	Error string `yaml:"error,omitempty"`

	// Event is the expected kind of the committed event.
	Event string `yaml:"event,omitempty"`
}

// ExpectAnyError matches every rejection.
const ExpectAnyError = "any"

// Assertion validates events or final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Namespace and Key locate a record (record_exists, record_absent,
	// record). Key parts follow address.Deriver.Key.
	Namespace address.Namespace `yaml:"namespace,omitempty"`
	Key       []string          `yaml:"key,omitempty"`

	// Fields are the expected record fields (record). Subset match.
	Fields map[string]any `yaml:"fields,omitempty"`

	// Identity and Lamports are used by balance.
	Identity string `yaml:"identity,omitempty"`
	Lamports uint64 `yaml:"lamports,omitempty"`

	// Kind and Count are used by event_count.
	Kind  string `yaml:"kind,omitempty"`
	Count int    `yaml:"count,omitempty"`

	// Kinds is the expected event order (event_order).
	Kinds []string `yaml:"kinds,omitempty"`
}

// Assertion type constants.
const (
	AssertRecordExists = "record_exists"
	AssertRecordAbsent = "record_absent"
	AssertRecord       = "record"
	AssertBalance      = "balance"
	AssertEventCount   = "event_count"
	AssertEventOrder   = "event_order"
)

var actions = []string{
	engine.ActionCreateProfile,
	engine.ActionUpdateProfile,
	engine.ActionUpdateUsername,
	engine.ActionFollow,
	engine.ActionUnfollow,
	engine.ActionCreatePostIndex,
	engine.ActionTip,
	engine.ActionLikePost,
	engine.ActionUnlikePost,
	engine.ActionCreateComment,
	engine.ActionIndexTopic,
}

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected so typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// HostKinds returns the host kinds the scenario runs on.
func (s *Scenario) HostKinds() []HostKind {
	if len(s.Hosts) == 0 {
		return HostKinds
	}
	return s.Hosts
}

// validateScenario checks that required fields are present and valid.
// Identities and arguments are checked when the scenario runs.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, kind := range s.Hosts {
		if !slices.Contains(HostKinds, kind) {
			return fmt.Errorf("hosts[%d]: unknown host kind %q", i, kind)
		}
	}

	for i, ns := range s.FailWrites {
		if !slices.Contains(address.Namespaces, ns) {
			return fmt.Errorf("fail_writes[%d]: unknown namespace %q", i, ns)
		}
	}

	for i, f := range s.Setup {
		if f.Identity == "" {
			return fmt.Errorf("setup[%d]: airdrop identity is required", i)
		}
	}

	for i, step := range s.Steps {
		if step.Action == "" {
			return fmt.Errorf("steps[%d]: action is required", i)
		}
		if !slices.Contains(actions, step.Action) {
			return fmt.Errorf("steps[%d]: unknown action %q", i, step.Action)
		}
		if step.As == "" {
			return fmt.Errorf("steps[%d]: as is required", i)
		}
		if step.Expect != nil && step.Expect.Error != "" && step.Expect.Event != "" {
			return fmt.Errorf("steps[%d].expect: error and event are mutually exclusive", i)
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertRecordExists, AssertRecordAbsent, AssertRecord:
		want, ok := address.KeyArity(a.Namespace)
		if !ok {
			return fmt.Errorf("assertions[%d]: unknown namespace %q for %s", index, a.Namespace, a.Type)
		}
		if len(a.Key) != want {
			return fmt.Errorf("assertions[%d]: %s key takes %d part(s), got %d", index, a.Namespace, want, len(a.Key))
		}
		if a.Type == AssertRecord && len(a.Fields) == 0 {
			return fmt.Errorf("assertions[%d]: fields are required for record", index)
		}
	case AssertBalance:
		if a.Identity == "" {
			return fmt.Errorf("assertions[%d]: identity is required for balance", index)
		}
	case AssertEventCount:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for event_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for event_count", index)
		}
	case AssertEventOrder:
		if len(a.Kinds) == 0 {
			return fmt.Errorf("assertions[%d]: kinds list is required for event_order", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
