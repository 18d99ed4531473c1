package breed

import (
	"sort"

	"evoforge/internal/genome"
)

// RankSort orders individuals best-first: a precedes b when a's fitness
// strictly beats b's. Under Pareto dominance the order between mutually
// non-dominated individuals is unspecified.
func RankSort(inds []*genome.Individual) {
	sort.SliceStable(inds, func(i, j int) bool {
		return inds[i].Fitness.BetterThan(inds[j].Fitness)
	})
}
