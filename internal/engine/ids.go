package engine

import (
	"sync"

	"github.com/google/uuid"
)

// TransitionIDGenerator produces the correlation token stamped on every event
// a transition emits. Implemented by UUIDv7Generator (production) and
// FixedGenerator (tests).
type TransitionIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 tokens, hyphenated.
type UUIDv7Generator struct{}

// Generate panics if the system random source fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined tokens in order and panics once they
// run out, so a test that runs more transitions than it planned fails loudly.
type FixedGenerator struct {
	mu     sync.Mutex
	tokens []string
	idx    int
}

// NewFixedGenerator creates a generator that returns tokens in order.
//
//	gen := NewFixedGenerator("tr-1", "tr-2")
//	gen.Generate() // "tr-1"
//	gen.Generate() // "tr-2"
//	gen.Generate() // panic
func NewFixedGenerator(tokens ...string) *FixedGenerator {
	return &FixedGenerator{tokens: tokens}
}

func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.tokens) {
		panic("FixedGenerator: all tokens exhausted")
	}
	token := g.tokens[g.idx]
	g.idx++
	return token
}
