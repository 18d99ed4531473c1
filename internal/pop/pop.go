// Package pop holds population containers. The evolution state owns the
// population exclusively; breeders produce a new one by cloning the empty
// shell and refilling it.
package pop

import (
	"fmt"

	"evoforge/internal/genome"
)

// Subpopulation is an ordered array of individuals of one species.
// ArchiveSize is used by the SPEA2 machinery only: after archive loading
// the archive occupies the last ArchiveSize slots.
type Subpopulation struct {
	Species     *genome.Species
	Individuals []*genome.Individual
	ArchiveSize int
}

// EmptyClone keeps the species handle and archive size but leaves every
// individual slot nil.
func (s *Subpopulation) EmptyClone() *Subpopulation {
	return &Subpopulation{
		Species:     s.Species,
		Individuals: make([]*genome.Individual, len(s.Individuals)),
		ArchiveSize: s.ArchiveSize,
	}
}

// Resize grows or shrinks the individual array to exactly n slots,
// retaining the existing prefix.
func (s *Subpopulation) Resize(n int) {
	if len(s.Individuals) == n {
		return
	}
	next := make([]*genome.Individual, n)
	copy(next, s.Individuals)
	s.Individuals = next
}

// Population is an ordered array of subpopulations.
type Population struct {
	Subpops []*Subpopulation
}

// EmptyClone clones the population shell without any individuals.
func (p *Population) EmptyClone() *Population {
	next := &Population{Subpops: make([]*Subpopulation, len(p.Subpops))}
	for i, s := range p.Subpops {
		next.Subpops[i] = s.EmptyClone()
	}
	return next
}

// Validate checks that every slot of every subpopulation is filled.
func (p *Population) Validate() error {
	for x, s := range p.Subpops {
		for i, ind := range s.Individuals {
			if ind == nil {
				return fmt.Errorf("subpopulation %d: slot %d is empty", x, i)
			}
		}
	}
	return nil
}
