// Package fitness defines the fitness variants understood by the selection
// machinery: a totally ordered scalar, a Pareto-dominated multi-objective
// vector with shared per-objective bounds, and the SPEA2 extension carrying
// an archive-ranking scalar.
package fitness

import (
	"fmt"
	"math"
	"strings"

	"k8s.io/klog/v2"

	"evoforge/internal/code"
)

// Fitness is one of Scalar, MultiObjective or SPEA2.
//
// BetterThan and EquivalentTo panic when a scalar is compared against a
// multi-objective variant, or when two multi-objective sides disagree on
// objective count or optimization direction; such a comparison is a
// programming error, never a data condition. MultiObjective and SPEA2
// compare with each other on their objectives.
type Fitness interface {
	// BetterThan reports strict superiority: strict Pareto dominance for
	// multi-objective variants, plain ordering for scalars.
	BetterThan(other Fitness) bool
	// EquivalentTo reports that neither side dominates the other.
	EquivalentTo(other Fitness) bool
	// Value is a scalar fallback for consumers that cannot rank vectors.
	// Selection must not rely on it.
	Value() float64
	// Clone deep-copies objective storage; bounds handles stay shared.
	Clone() Fitness
}

// Scalar is a single real fitness; higher is better.
type Scalar struct {
	Fitness float64
}

func (f *Scalar) BetterThan(other Fitness) bool {
	return f.Fitness > mustScalar(other).Fitness
}

func (f *Scalar) EquivalentTo(other Fitness) bool {
	return f.Fitness == mustScalar(other).Fitness
}

func (f *Scalar) Value() float64 { return f.Fitness }

func (f *Scalar) Clone() Fitness {
	c := *f
	return &c
}

func mustScalar(other Fitness) *Scalar {
	o, ok := other.(*Scalar)
	if !ok {
		panic(fmt.Sprintf("fitness: comparing scalar fitness against %T", other))
	}
	return o
}

// Bounds holds per-objective minimum and maximum values. One instance is
// shared read-only by every fitness of a species; cloning a fitness never
// copies it.
type Bounds struct {
	Min []float64
	Max []float64
}

// NewBounds validates that min[i] < max[i] for every objective.
func NewBounds(min, max []float64) (*Bounds, error) {
	if len(min) != len(max) {
		return nil, fmt.Errorf("fitness: %d min bounds but %d max bounds", len(min), len(max))
	}
	if len(min) == 0 {
		return nil, fmt.Errorf("fitness: the number of objectives must be >= 1")
	}
	for i := range min {
		if min[i] >= max[i] {
			return nil, fmt.Errorf("fitness: objective %d: min bound must be strictly less than the max bound", i)
		}
	}
	return &Bounds{Min: min, Max: max}, nil
}

// UniformBounds builds n objectives all sharing the same [min, max) range.
func UniformBounds(n int, min, max float64) (*Bounds, error) {
	mins := make([]float64, n)
	maxs := make([]float64, n)
	for i := 0; i < n; i++ {
		mins[i] = min
		maxs[i] = max
	}
	return NewBounds(mins, maxs)
}

// MultiObjective is an ordered vector of objectives with a shared direction
// flag. With Maximize set, dominance means >= everywhere and > somewhere.
type MultiObjective struct {
	Objectives []float64
	Maximize   bool
	Bounds     *Bounds
}

// NewMultiObjective returns a zeroed fitness over bounds.
func NewMultiObjective(bounds *Bounds, maximize bool) *MultiObjective {
	return &MultiObjective{
		Objectives: make([]float64, len(bounds.Min)),
		Maximize:   maximize,
		Bounds:     bounds,
	}
}

func (f *MultiObjective) Value() float64 {
	v := f.Objectives[0]
	for _, o := range f.Objectives[1:] {
		if o > v {
			v = o
		}
	}
	return v
}

func (f *MultiObjective) Clone() Fitness {
	c := *f
	c.Objectives = append([]float64(nil), f.Objectives...)
	return &c
}

// SetObjectives replaces the objective vector. A non-finite entry is
// replaced by the worst bound for that objective and a warning is emitted.
func (f *MultiObjective) SetObjectives(objectives []float64) error {
	if objectives == nil {
		return fmt.Errorf("fitness: nil objective vector")
	}
	if len(objectives) != len(f.Objectives) {
		return fmt.Errorf("fitness: objective vector length %d does not match the expected %d", len(objectives), len(f.Objectives))
	}
	for i, v := range objectives {
		if isFinite(v) {
			continue
		}
		worst := f.Bounds.Max[i]
		if f.Maximize {
			worst = f.Bounds.Min[i]
		}
		klog.Warningf("bad objective #%d: %v, setting to worst value %v for that objective", i, v, worst)
		objectives[i] = worst
	}
	copy(f.Objectives, objectives)
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func (f *MultiObjective) checkComparable(other Fitness) *MultiObjective {
	o := multiObjectiveOf(other)
	if o == nil {
		panic(fmt.Sprintf("fitness: comparing multi-objective fitness against %T", other))
	}
	if f.Maximize != o.Maximize {
		panic("fitness: comparing multi-objective fitnesses with opposite optimization directions")
	}
	if len(f.Objectives) != len(o.Objectives) {
		panic("fitness: comparing multi-objective fitnesses with different numbers of objectives")
	}
	return o
}

func multiObjectiveOf(f Fitness) *MultiObjective {
	switch v := f.(type) {
	case *MultiObjective:
		return v
	case *SPEA2:
		return &v.MultiObjective
	default:
		return nil
	}
}

// BetterThan implements strict Pareto dominance.
func (f *MultiObjective) BetterThan(other Fitness) bool {
	o := f.checkComparable(other)
	dominates := false
	for i := range f.Objectives {
		a, b := f.Objectives[i], o.Objectives[i]
		if !f.Maximize {
			a, b = b, a
		}
		if a > b {
			dominates = true
		}
		if a < b {
			return false
		}
	}
	return dominates
}

// EquivalentTo reports mutual non-domination: each side is better somewhere,
// or the two are equal on every objective.
func (f *MultiObjective) EquivalentTo(other Fitness) bool {
	o := f.checkComparable(other)
	aBeatsB := false
	bBeatsA := false
	for i := range f.Objectives {
		a, b := f.Objectives[i], o.Objectives[i]
		if !f.Maximize {
			a, b = b, a
		}
		if a > b {
			aBeatsB = true
		}
		if a < b {
			bBeatsA = true
		}
		if aBeatsB && bBeatsA {
			return true
		}
	}
	return !(aBeatsB || bBeatsA)
}

// String renders the fitness in the human-readable population format.
func (f *MultiObjective) String() string {
	var sb strings.Builder
	sb.WriteString("[")
	for i, o := range f.Objectives {
		if i > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(code.EncodeFloat64(o))
	}
	sb.WriteString(" ")
	sb.WriteString(code.EncodeBool(f.Maximize))
	sb.WriteString("]")
	return sb.String()
}
