// Package breed implements the selection and breeding kernel: breeding
// pipelines, evolution-strategies selection with its once-per-child
// counter discipline, the (mu,lambda) and (mu+lambda) breeders, and the
// SPEA2 archive machinery.
package breed

import (
	"fmt"

	"evoforge/internal/genome"
	"evoforge/internal/rng"
	"evoforge/internal/state"
)

// Counter tracks how many times a selector fired for the current child.
// The ES breeders assert a delta of exactly one after every produce call;
// a pipeline topology that selects zero or multiple times is caught at the
// call site.
type Counter struct {
	n int
}

// Next returns the pre-increment count.
func (c *Counter) Next() int {
	v := c.n
	c.n++
	return v
}

// Count returns the calls so far.
func (c *Counter) Count() int {
	return c.n
}

// Context carries the per-thread breeding environment through a pipeline
// graph. Each worker thread owns its own Context; nothing in it is shared.
type Context struct {
	State  *state.EvolutionState
	Subpop int
	Thread int
	Random *rng.MT

	// Counter and Mu are set by the ES breeders; ESSelection requires
	// both.
	Counter *Counter
	Mu      []int
}

// species returns the subpopulation's species handle.
func (ctx *Context) species() *genome.Species {
	return ctx.State.Population.Subpops[ctx.Subpop].Species
}

// Pipeline is a user-composable graph of operators that emits individuals
// on demand into population slots.
type Pipeline interface {
	// Clone deep-copies the pipeline; breeders clone the prototype once
	// per thread before use.
	Clone() Pipeline
	// Produces reports whether the pipeline emits individuals of the
	// given species.
	Produces(sp *genome.Species) bool
	PrepareToProduce(ctx *Context) error
	// Produce writes between min and max individuals into
	// inds[start...] and returns how many it wrote.
	Produce(min, max, start int, inds []*genome.Individual, ctx *Context) (int, error)
	FinishProducing(ctx *Context) error
}

// MutationPipeline draws one individual from its source and destructively
// mutates the copy.
type MutationPipeline struct {
	Source Pipeline
}

func (p *MutationPipeline) Clone() Pipeline {
	return &MutationPipeline{Source: p.Source.Clone()}
}

func (p *MutationPipeline) Produces(sp *genome.Species) bool {
	return p.Source.Produces(sp)
}

func (p *MutationPipeline) PrepareToProduce(ctx *Context) error {
	return p.Source.PrepareToProduce(ctx)
}

func (p *MutationPipeline) Produce(min, max, start int, inds []*genome.Individual, ctx *Context) (int, error) {
	n, err := p.Source.Produce(min, max, start, inds, ctx)
	if err != nil {
		return 0, err
	}
	sp := ctx.species()
	for i := start; i < start+n; i++ {
		inds[i].Genome.Mutate(sp, ctx.Random)
		inds[i].Evaluated = false
	}
	return n, nil
}

func (p *MutationPipeline) FinishProducing(ctx *Context) error {
	return p.Source.FinishProducing(ctx)
}

// CrossoverPipeline selects one parent from each source, recombines them,
// and emits one child (two when the caller allows it).
type CrossoverPipeline struct {
	First  Pipeline
	Second Pipeline
}

func (p *CrossoverPipeline) Clone() Pipeline {
	return &CrossoverPipeline{First: p.First.Clone(), Second: p.Second.Clone()}
}

func (p *CrossoverPipeline) Produces(sp *genome.Species) bool {
	return p.First.Produces(sp) && p.Second.Produces(sp)
}

func (p *CrossoverPipeline) PrepareToProduce(ctx *Context) error {
	if err := p.First.PrepareToProduce(ctx); err != nil {
		return err
	}
	return p.Second.PrepareToProduce(ctx)
}

func (p *CrossoverPipeline) Produce(min, max, start int, inds []*genome.Individual, ctx *Context) (int, error) {
	if _, err := p.First.Produce(1, 1, start, inds, ctx); err != nil {
		return 0, err
	}
	scratch := make([]*genome.Individual, 1)
	if _, err := p.Second.Produce(1, 1, 0, scratch, ctx); err != nil {
		return 0, err
	}
	sp := ctx.species()
	if err := inds[start].Genome.Crossover(sp, ctx.Random, scratch[0].Genome); err != nil {
		return 0, err
	}
	inds[start].Evaluated = false
	if max >= 2 && start+1 < len(inds) {
		scratch[0].Evaluated = false
		inds[start+1] = scratch[0]
		return 2, nil
	}
	return 1, nil
}

func (p *CrossoverPipeline) FinishProducing(ctx *Context) error {
	if err := p.First.FinishProducing(ctx); err != nil {
		return err
	}
	return p.Second.FinishProducing(ctx)
}

// checkPipeline verifies a pipeline against the subpopulation it will fill.
func checkPipeline(bp Pipeline, sp *genome.Species, subpop int) error {
	if !bp.Produces(sp) {
		return fmt.Errorf("the breeding pipeline of subpopulation %d does not produce individuals of the expected species %s", subpop, sp.Name)
	}
	return nil
}
