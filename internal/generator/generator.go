package generator

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Candidate is one generated identifier/secret pair under test.
type Candidate struct {
	Identifier string
	Secret     string
}

// String renders the candidate in the sink line format.
func (c Candidate) String() string {
	return c.Identifier + ":" + c.Secret
}

// Generator produces batches of candidates.
type Generator interface {
	// Name identifies the generator in logs and run history.
	Name() string
	// GenerateBatch returns at most n candidates in generation order.
	GenerateBatch(ctx context.Context, n int) ([]Candidate, error)
}

// SampleHinter is implemented by generators that know how often their
// output should be sampled for display. Faster generators return larger
// values so the reporting channel is not flooded.
type SampleHinter interface {
	SampleEvery() int
}

// Func adapts a function into a Generator.
type Func struct {
	Label string
	Fn    func(ctx context.Context, n int) ([]Candidate, error)
}

// Name implements Generator.
func (f Func) Name() string {
	if f.Label == "" {
		return "func"
	}
	return f.Label
}

// GenerateBatch implements Generator.
func (f Func) GenerateBatch(ctx context.Context, n int) ([]Candidate, error) {
	return f.Fn(ctx, n)
}

// DefaultKind is the generator used when none is configured.
const DefaultKind = "p2pkh"

var registry = map[string]func() Generator{
	"p2pkh": func() Generator { return NewP2PKH() },
	// sha256 is a fast digest-only kind for benchmarks and tests; its
	// identifiers are not addresses.
	"sha256": func() Generator { return NewSHA256() },
}

// New returns the generator registered under kind.
func New(kind string) (Generator, error) {
	factory, ok := registry[strings.ToLower(strings.TrimSpace(kind))]
	if !ok {
		return nil, fmt.Errorf("unknown generator %q (available: %s)", kind, strings.Join(Kinds(), ", "))
	}
	return factory(), nil
}

// Kinds lists the registered generator names.
func Kinds() []string {
	kinds := make([]string, 0, len(registry))
	for kind := range registry {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}
