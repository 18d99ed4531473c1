package breed

import (
	"errors"

	"evoforge/internal/genome"
)

// ESSelection draws the parent for the child being produced: sorted index
// prevCount % mu of the current subpopulation, where prevCount is the
// per-thread counter the owning ES breeder verifies after every child.
// Stateless; the counter lives in the Context, so each thread advances its
// own stream.
type ESSelection struct{}

func (ESSelection) Clone() Pipeline { return ESSelection{} }

func (ESSelection) Produces(sp *genome.Species) bool { return true }

func (ESSelection) PrepareToProduce(ctx *Context) error { return nil }

func (ESSelection) Produce(min, max, start int, inds []*genome.Individual, ctx *Context) (int, error) {
	if ctx.Counter == nil || ctx.Mu == nil {
		return 0, errors.New("ES selection may only be used under an evolution-strategies breeder")
	}
	prev := ctx.Counter.Next()
	mu := ctx.Mu[ctx.Subpop]
	parents := ctx.State.Population.Subpops[ctx.Subpop].Individuals
	inds[start] = parents[prev%mu].Clone()
	return 1, nil
}

func (ESSelection) FinishProducing(ctx *Context) error { return nil }
