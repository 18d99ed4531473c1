package eval

import (
	"fmt"
	"io"
	"net"

	"evoforge/internal/genome"
	"evoforge/internal/rng"
	"evoforge/internal/wire"
)

// SpeciesTable resolves the species for a subpopulation number, so the
// master can decode individuals coming back from a slave.
type SpeciesTable func(subpop int) (*genome.Species, error)

// MasterConnection is the master's view of one connected slave. It owns
// the handshake (read the slave name, hand over the pseudo-random stream)
// and the request framing.
type MasterConnection struct {
	conn    net.Conn
	r       *wire.Reader
	w       *wire.Writer
	species SpeciesTable

	// SlaveName is the identifier the slave sent on handshake.
	SlaveName string
}

// NewMasterConnection wraps an accepted socket. Compression must match
// the slave's eval.compression setting; rnd is the master's generator,
// whose state seeds the slave.
func NewMasterConnection(conn net.Conn, compression bool, rnd *rng.MT, species SpeciesTable) (*MasterConnection, error) {
	var (
		in  io.Reader = conn
		out io.Writer = conn
	)
	if compression {
		in = wire.NewCompressingReader(in)
		cw, err := wire.NewCompressingWriter(out)
		if err != nil {
			return nil, fmt.Errorf("unable to open a compressed stream to the slave: %w", err)
		}
		out = cw
	}
	m := &MasterConnection{
		conn:    conn,
		r:       wire.NewReader(in),
		w:       wire.NewWriter(out),
		species: species,
	}

	name, err := m.r.ReadUTF()
	if err != nil {
		return nil, fmt.Errorf("unable to read the slave name: %w", err)
	}
	m.SlaveName = name

	if err := rnd.WriteState(m.w); err != nil {
		return nil, fmt.Errorf("unable to send the random state to the slave: %w", err)
	}
	if err := m.w.Flush(); err != nil {
		return nil, fmt.Errorf("unable to send the random state to the slave: %w", err)
	}
	return m, nil
}

// EvaluateSimple dispatches a single-subpopulation batch and applies the
// results in place: full replacements when the slave returns individuals,
// fitness updates otherwise.
func (m *MasterConnection) EvaluateSimple(subpop int, inds []*genome.Individual, updateFitness []bool) error {
	if len(inds) != len(updateFitness) {
		return fmt.Errorf("batch of %d individuals but %d update flags", len(inds), len(updateFitness))
	}
	if err := m.w.WriteByte(wire.OpEvaluateSimple); err != nil {
		return err
	}
	if err := m.w.WriteInt32(int32(len(inds))); err != nil {
		return err
	}
	if err := m.w.WriteInt32(int32(subpop)); err != nil {
		return err
	}
	for i, ind := range inds {
		if err := ind.Write(m.w); err != nil {
			return err
		}
		if err := m.w.WriteBool(updateFitness[i]); err != nil {
			return err
		}
	}
	if err := m.w.Flush(); err != nil {
		return err
	}
	return m.readResults(func(int) (int, error) { return subpop, nil }, inds)
}

// EvaluateGrouped dispatches a coevolutionary batch with per-individual
// subpopulation numbers.
func (m *MasterConnection) EvaluateGrouped(subpops []int, inds []*genome.Individual, updateFitness []bool, countVictoriesOnly bool) error {
	if len(inds) != len(updateFitness) || len(inds) != len(subpops) {
		return fmt.Errorf("grouped batch arrays disagree: %d individuals, %d subpops, %d update flags", len(inds), len(subpops), len(updateFitness))
	}
	if err := m.w.WriteByte(wire.OpEvaluateGrouped); err != nil {
		return err
	}
	if err := m.w.WriteInt32(int32(len(inds))); err != nil {
		return err
	}
	for i, ind := range inds {
		if err := m.w.WriteInt32(int32(subpops[i])); err != nil {
			return err
		}
		if err := ind.Write(m.w); err != nil {
			return err
		}
		if err := m.w.WriteBool(updateFitness[i]); err != nil {
			return err
		}
	}
	if err := m.w.WriteBool(countVictoriesOnly); err != nil {
		return err
	}
	if err := m.w.Flush(); err != nil {
		return err
	}
	return m.readResults(func(i int) (int, error) { return subpops[i], nil }, inds)
}

// readResults consumes one result byte plus body per individual.
func (m *MasterConnection) readResults(subpopFor func(i int) (int, error), inds []*genome.Individual) error {
	for i := range inds {
		result, err := m.r.ReadByte()
		if err != nil {
			return fmt.Errorf("unable to read the result for individual %d: %w", i, err)
		}
		switch result {
		case wire.ResultNothing:
		case wire.ResultIndividual:
			subpop, err := subpopFor(i)
			if err != nil {
				return err
			}
			sp, err := m.species(subpop)
			if err != nil {
				return err
			}
			ind, err := sp.ReadIndividual(m.r)
			if err != nil {
				return fmt.Errorf("unable to read individual %d from the slave: %w", i, err)
			}
			*inds[i] = *ind
		case wire.ResultFitness:
			evaluated, err := m.r.ReadBool()
			if err != nil {
				return fmt.Errorf("unable to read the evaluated flag for individual %d: %w", i, err)
			}
			codec, ok := inds[i].Fitness.(interface{ Read(*wire.Reader) error })
			if !ok {
				return fmt.Errorf("fitness %T has no binary codec", inds[i].Fitness)
			}
			if err := codec.Read(m.r); err != nil {
				return fmt.Errorf("unable to read the fitness for individual %d: %w", i, err)
			}
			inds[i].Evaluated = evaluated
		default:
			return fmt.Errorf("unknown result byte %d for individual %d", result, i)
		}
	}
	return nil
}

// Checkpoint asks the slave to write its random state into rnd.
func (m *MasterConnection) Checkpoint(rnd *rng.MT) error {
	if err := m.w.WriteByte(wire.OpCheckpoint); err != nil {
		return err
	}
	if err := m.w.Flush(); err != nil {
		return err
	}
	return rnd.ReadState(m.r)
}

// Shutdown sends the shutdown opcode and closes the socket.
func (m *MasterConnection) Shutdown() error {
	if err := m.w.WriteByte(wire.OpShutdown); err != nil {
		return err
	}
	if err := m.w.Flush(); err != nil {
		return err
	}
	return m.conn.Close()
}
