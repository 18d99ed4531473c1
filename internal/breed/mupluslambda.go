package breed

import (
	"evoforge/internal/pop"
)

// NewMuPlusLambda builds a breeder for the (mu+lambda) strategy: identical
// to (mu,lambda) except that the mu parents survive into the next
// generation alongside their lambda children.
func NewMuPlusLambda(cfg Config) (*MuCommaLambdaBreeder, error) {
	b, err := NewMuCommaLambda(cfg)
	if err != nil {
		return nil, err
	}
	b.post = muPlusLambdaPostProcessor{mu: b.Mu}
	return b, nil
}

// muPlusLambdaPostProcessor appends clones of the top mu parents of the
// sorted old population after the lambda children.
type muPlusLambdaPostProcessor struct {
	mu []int
}

func (p muPlusLambdaPostProcessor) PostProcess(newpop, oldpop *pop.Population) (*pop.Population, error) {
	for x, sub := range newpop.Subpops {
		lambda := len(sub.Individuals)
		sub.Resize(lambda + p.mu[x])
		for i := 0; i < p.mu[x]; i++ {
			sub.Individuals[lambda+i] = oldpop.Subpops[x].Individuals[i].Clone()
		}
	}
	return newpop, nil
}
