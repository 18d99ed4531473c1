// Package problem defines the evaluation contracts and the built-in
// benchmark problems used by the control CLI and the test suite.
package problem

import (
	"fmt"
	"sort"
	"sync"

	"evoforge/internal/genome"
	"evoforge/internal/rng"
)

// Simple evaluates one individual at a time. Implementations set the
// individual's fitness and evaluated flag.
type Simple interface {
	Name() string
	Evaluate(ind *genome.Individual, subpop, thread int, rnd *rng.MT) error
}

// Grouped evaluates a batch together, as coevolutionary problems require.
// Fitness is only assigned where updateFitness is set; with
// countVictoriesOnly the problem records wins instead of raw scores.
type Grouped interface {
	Name() string
	EvaluateGroup(inds []*genome.Individual, updateFitness []bool, countVictoriesOnly bool, thread int, rnd *rng.MT) error
}

var registry = struct {
	mu sync.RWMutex
	m  map[string]func() Simple
}{m: map[string]func() Simple{}}

// Register installs a problem constructor under a tag. Duplicate tags are
// a setup error.
func Register(name string, build func() Simple) error {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	if _, exists := registry.m[name]; exists {
		return fmt.Errorf("problem already registered: %s", name)
	}
	registry.m[name] = build
	return nil
}

// New builds the problem registered under name.
func New(name string) (Simple, error) {
	registry.mu.RLock()
	build, ok := registry.m[name]
	registry.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown problem: %s", name)
	}
	return build(), nil
}

// Names lists the registered problem tags, sorted.
func Names() []string {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	names := make([]string, 0, len(registry.m))
	for name := range registry.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	// Registration of the built-ins cannot collide at package init.
	_ = Register("sphere", func() Simple { return Sphere{} })
	_ = Register("zdt1", func() Simple { return ZDT1{} })
}
