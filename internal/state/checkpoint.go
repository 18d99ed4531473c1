package state

import (
	"bytes"
	"fmt"

	"evoforge/internal/wire"
)

// Checkpoint layout: generation, evaluation count, the per-thread RNG
// states, then every subpopulation's individuals in binary. The RNG states
// come first so a restored master resumes its pseudo-random stream exactly
// where the checkpoint cut it.

// MarshalCheckpoint serializes the resumable state.
func (st *EvolutionState) MarshalCheckpoint() ([]byte, error) {
	var buf bytes.Buffer
	w := wire.NewWriter(&buf)

	if err := w.WriteInt32(int32(st.Generation)); err != nil {
		return nil, err
	}
	if err := w.WriteInt64(st.Evaluations); err != nil {
		return nil, err
	}
	if err := w.WriteInt32(int32(len(st.Random))); err != nil {
		return nil, err
	}
	for _, r := range st.Random {
		if err := r.WriteState(w); err != nil {
			return nil, err
		}
	}
	if err := w.WriteInt32(int32(len(st.Population.Subpops))); err != nil {
		return nil, err
	}
	for _, sub := range st.Population.Subpops {
		if err := w.WriteInt32(int32(len(sub.Individuals))); err != nil {
			return nil, err
		}
		for _, ind := range sub.Individuals {
			if err := ind.Write(w); err != nil {
				return nil, err
			}
		}
	}
	if err := w.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalCheckpoint restores a checkpoint into a state configured with
// the same species and thread layout.
func (st *EvolutionState) UnmarshalCheckpoint(data []byte) error {
	r := wire.NewReader(bytes.NewReader(data))

	generation, err := r.ReadInt32()
	if err != nil {
		return fmt.Errorf("checkpoint generation: %w", err)
	}
	evaluations, err := r.ReadInt64()
	if err != nil {
		return fmt.Errorf("checkpoint evaluations: %w", err)
	}
	numRandom, err := r.ReadInt32()
	if err != nil {
		return fmt.Errorf("checkpoint rng count: %w", err)
	}
	if int(numRandom) != len(st.Random) {
		return fmt.Errorf("checkpoint has %d rng streams, state has %d", numRandom, len(st.Random))
	}
	for i, rnd := range st.Random {
		if err := rnd.ReadState(r); err != nil {
			return fmt.Errorf("checkpoint rng %d: %w", i, err)
		}
	}
	numSubpops, err := r.ReadInt32()
	if err != nil {
		return fmt.Errorf("checkpoint subpop count: %w", err)
	}
	if int(numSubpops) != len(st.Population.Subpops) {
		return fmt.Errorf("checkpoint has %d subpopulations, state has %d", numSubpops, len(st.Population.Subpops))
	}
	for x, sub := range st.Population.Subpops {
		n, err := r.ReadInt32()
		if err != nil {
			return fmt.Errorf("checkpoint subpop %d size: %w", x, err)
		}
		sub.Resize(int(n))
		for i := range sub.Individuals {
			ind, err := sub.Species.ReadIndividual(r)
			if err != nil {
				return fmt.Errorf("checkpoint subpop %d individual %d: %w", x, i, err)
			}
			sub.Individuals[i] = ind
		}
	}
	st.Generation = int(generation)
	st.Evaluations = evaluations
	return nil
}
