package testutil

// FixedTransitionGenerator stamps every transition with the same token.
//
// Scenario runs use it so the event log does not depend on the random part
// of a UUIDv7.
type FixedTransitionGenerator struct {
	token string
}

// NewFixedTransitionGenerator returns a generator for token. An empty token
// becomes "test-transition".
func NewFixedTransitionGenerator(token string) *FixedTransitionGenerator {
	if token == "" {
		token = "test-transition"
	}
	return &FixedTransitionGenerator{token: token}
}

// Generate returns the fixed token.
func (g *FixedTransitionGenerator) Generate() string {
	return g.token
}
