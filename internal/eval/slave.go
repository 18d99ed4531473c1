package eval

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"evoforge/internal/genome"
	"evoforge/internal/output"
	"evoforge/internal/params"
	"evoforge/internal/problem"
	"evoforge/internal/rng"
	"evoforge/internal/state"
	"evoforge/internal/wire"
)

// sleepTime is how long the slave waits between attempts to connect to
// the master. No backoff, no cap.
const sleepTime = 100 * time.Millisecond

// SlaveConfig is resolved from the parameter database; see NewSlave.
type SlaveConfig struct {
	Name              string
	MasterHost        string
	MasterPort        int
	Compression       bool
	ReturnIndividuals bool
	RunEvolve         bool
	RunTime           time.Duration

	// MaxSessions bounds how many master connections the slave serves
	// before giving up; 0 means serve forever. Tests use 1.
	MaxSessions int
}

// Slave connects to a master, evaluates the individuals it is handed, and
// streams the results back. A connection that breaks while the slave waits
// for the next opcode after a successful handshake is survivable: the
// slave logs a warning and reconnects. A read or write failure in the
// middle of a batch is not retried; it ends Run with an error.
type Slave struct {
	cfg    SlaveConfig
	db     *params.Database
	out    *output.Output
	random *rng.MT

	simple  problem.Simple
	grouped problem.Grouped

	species map[int]*genome.Species
}

// NewSlave resolves the slave parameters:
//
//	eval.slave-name   handshake identifier (auto-generated if absent)
//	eval.master.host  master endpoint
//	eval.master.port
//	eval.compression  deflate-frame the streams
//	eval.return-inds  return full individuals instead of fitnesses
//	run-evolve        re-evolve received individuals locally
//	runtime           wall-clock bound on one re-evolve, in milliseconds
func NewSlave(db *params.Database, out *output.Output) (*Slave, error) {
	host, ok := db.String("eval.master.host")
	if !ok || host == "" {
		return nil, errors.New("eval.master.host: the master host is required")
	}
	port, err := db.Int("eval.master.port")
	if err != nil {
		return nil, fmt.Errorf("eval.master.port: %w", err)
	}

	prob, err := problem.New(db.StringDefault("eval.problem", "sphere"))
	if err != nil {
		return nil, err
	}
	grouped, _ := prob.(problem.Grouped)

	s := &Slave{
		cfg: SlaveConfig{
			Name:              db.StringDefault("eval.slave-name", ""),
			MasterHost:        host,
			MasterPort:        port,
			Compression:       db.BoolDefault("eval.compression", false),
			ReturnIndividuals: db.BoolDefault("eval.return-inds", false),
			RunEvolve:         db.BoolDefault("run-evolve", false),
			RunTime:           time.Duration(db.IntDefault("runtime", 0)) * time.Millisecond,
		},
		db:      db,
		out:     out,
		random:  rng.New(seedFromParams(db)),
		simple:  prob,
		grouped: grouped,
		species: map[int]*genome.Species{},
	}
	return s, nil
}

// SetMaxSessions bounds the outer serve loop; see SlaveConfig.
func (s *Slave) SetMaxSessions(n int) {
	s.cfg.MaxSessions = n
}

// RestoreRandomFromCheckpoint re-seeds the slave's generator from a
// checkpoint blob written by the engine, so a restarted slave resumes the
// stream it had at checkpoint time. The master overwrites it again on the
// next handshake.
func (s *Slave) RestoreRandomFromCheckpoint(data []byte) error {
	r := wire.NewReader(bytes.NewReader(data))
	if _, err := r.ReadInt32(); err != nil { // generation
		return fmt.Errorf("checkpoint header: %w", err)
	}
	if _, err := r.ReadInt64(); err != nil { // evaluations
		return fmt.Errorf("checkpoint header: %w", err)
	}
	n, err := r.ReadInt32()
	if err != nil || n < 1 {
		return fmt.Errorf("checkpoint carries no random streams")
	}
	return s.random.ReadState(r)
}

// errReconnect marks a failed read of the next opcode after a successful
// handshake: the master may simply have closed its socket and exited, so
// the slave re-enters the connect loop instead of dying.
var errReconnect = errors.New("master connection lost")

// Run serves masters until a SHUTDOWN opcode arrives. The returned error
// is nil on orderly shutdown.
func (s *Slave) Run() error {
	sessions := 0
	for {
		conn, err := s.connect()
		if err != nil {
			return err
		}
		shutdown, err := s.serve(conn)
		_ = conn.Close()
		if shutdown {
			return nil
		}
		if err != nil {
			if !errors.Is(err, errReconnect) {
				return err
			}
			s.out.Warning("unable to read the next request from the master; maybe it closed its socket and exited: %v", err)
		}
		sessions++
		if s.cfg.MaxSessions > 0 && sessions >= s.cfg.MaxSessions {
			return errReconnect
		}
	}
}

// connect dials the master, retrying every 100 ms until it is up. When
// MaxSessions bounds the slave, it gives up after 100 failed retries.
func (s *Slave) connect() (net.Conn, error) {
	addr := net.JoinHostPort(s.cfg.MasterHost, strconv.Itoa(s.cfg.MasterPort))
	s.out.Message("connecting to master at %s", addr)
	attempts := 0
	for {
		conn, err := net.Dial("tcp", addr)
		if err == nil {
			s.out.Message("connected to master after %v", time.Duration(attempts)*sleepTime)
			return conn, nil
		}
		attempts++
		if s.cfg.MaxSessions > 0 && attempts > 100 {
			return nil, fmt.Errorf("unable to connect to master: %w", err)
		}
		time.Sleep(sleepTime)
	}
}

// serve performs the handshake and runs the request loop on one
// connection. The bool result reports an orderly SHUTDOWN.
func (s *Slave) serve(conn net.Conn) (bool, error) {
	var (
		in  io.Reader = conn
		out io.Writer = conn
	)
	if s.cfg.Compression {
		in = wire.NewCompressingReader(in)
		cw, err := wire.NewCompressingWriter(out)
		if err != nil {
			return false, fmt.Errorf("unable to open a compressed stream to the master: %w", err)
		}
		out = cw
	}
	r := wire.NewReader(in)
	w := wire.NewWriter(out)

	name := s.cfg.Name
	if name == "" {
		name = conn.LocalAddr().String() + "/" + strconv.FormatInt(time.Now().UnixMilli(), 10)
		s.out.Message("no slave name specified, using: %s", name)
	}
	if err := w.WriteUTF(name); err != nil {
		return false, fmt.Errorf("unable to send the slave name: %w", err)
	}
	if err := w.Flush(); err != nil {
		return false, fmt.Errorf("unable to send the slave name: %w", err)
	}

	// The master seeds us with its pseudo-random stream.
	if err := s.random.ReadState(r); err != nil {
		return false, fmt.Errorf("unable to read the random state from the master: %w", err)
	}

	for {
		opcode, err := r.ReadByte()
		if err != nil {
			return false, fmt.Errorf("%w: %v", errReconnect, err)
		}
		switch opcode {
		case wire.OpShutdown:
			return true, nil
		case wire.OpEvaluateSimple:
			err = s.evaluateSimple(r, w)
		case wire.OpEvaluateGrouped:
			err = s.evaluateGrouped(r, w)
		case wire.OpCheckpoint:
			s.out.Message("checkpointing")
			if err = s.random.WriteState(w); err == nil {
				err = w.Flush()
			}
		default:
			return false, fmt.Errorf("unknown problem form specified: %d", opcode)
		}
		if err != nil {
			return false, err
		}
	}
}

// speciesFor lazily builds the species table, indexed by the requested
// subpopulation number.
func (s *Slave) speciesFor(subpop int) (*genome.Species, error) {
	if sp, ok := s.species[subpop]; ok {
		return sp, nil
	}
	fit, err := BuildFitnessPrototype(s.db, s.out)
	if err != nil {
		return nil, err
	}
	sp, err := BuildSpecies(s.db, subpop, fit)
	if err != nil {
		return nil, err
	}
	s.species[subpop] = sp
	return sp, nil
}

// evaluateSimple handles one EVALUATE_SIMPLE batch: n individuals of a
// single subpopulation, each followed by its updateFitness flag.
func (s *Slave) evaluateSimple(r *wire.Reader, w *wire.Writer) error {
	n, err := r.ReadInt32()
	if err != nil {
		return fmt.Errorf("unable to read the batch size from the master: %w", err)
	}
	subpop, err := r.ReadInt32()
	if err != nil {
		return fmt.Errorf("unable to read the subpopulation number from the master: %w", err)
	}
	sp, err := s.speciesFor(int(subpop))
	if err != nil {
		return err
	}

	inds := make([]*genome.Individual, n)
	updateFitness := make([]bool, n)
	for i := range inds {
		if inds[i], err = sp.ReadIndividual(r); err != nil {
			return fmt.Errorf("unable to read individual %d from the master: %w", i, err)
		}
		if !s.cfg.RunEvolve {
			if err := s.simple.Evaluate(inds[i], int(subpop), 0, s.random); err != nil {
				return err
			}
		}
		if updateFitness[i], err = r.ReadBool(); err != nil {
			return fmt.Errorf("unable to read the update flag for individual %d: %w", i, err)
		}
	}

	if s.cfg.RunEvolve {
		if inds, err = s.reEvolve(int(subpop), inds); err != nil {
			return err
		}
	}
	return s.returnIndividuals(w, inds, updateFitness)
}

// reEvolve spins up a temporary evolution state seeded with the received
// individuals as its subpopulation 0 and evolves until the state signals
// completion or the wall-clock budget runs out, returning the final
// subpopulation.
func (s *Slave) reEvolve(subpop int, inds []*genome.Individual) ([]*genome.Individual, error) {
	tempState, err := BuildState(s.db, s.out)
	if err != nil {
		return nil, err
	}
	if err := tempState.StartFresh(); err != nil {
		return nil, err
	}
	if err := tempState.InjectSubpopulation(0, inds); err != nil {
		return nil, err
	}

	start := time.Now()
	result := state.NotDone
	for result == state.NotDone {
		if result, err = tempState.Evolve(); err != nil {
			return nil, err
		}
		if s.cfg.RunTime > 0 && time.Since(start) > s.cfg.RunTime {
			break
		}
	}
	tempState.Finish(result)
	return tempState.Population.Subpops[0].Individuals, nil
}

// evaluateGrouped handles one EVALUATE_GROUPED batch: n individuals with
// per-individual subpopulation numbers, then the countVictoriesOnly flag.
func (s *Slave) evaluateGrouped(r *wire.Reader, w *wire.Writer) error {
	if s.grouped == nil {
		return fmt.Errorf("problem %s has no grouped form", s.simple.Name())
	}
	n, err := r.ReadInt32()
	if err != nil {
		return fmt.Errorf("unable to read the batch size from the master: %w", err)
	}

	inds := make([]*genome.Individual, n)
	updateFitness := make([]bool, n)
	for i := range inds {
		subpop, err := r.ReadInt32()
		if err != nil {
			return fmt.Errorf("unable to read the subpopulation number for individual %d: %w", i, err)
		}
		sp, err := s.speciesFor(int(subpop))
		if err != nil {
			return err
		}
		if inds[i], err = sp.ReadIndividual(r); err != nil {
			return fmt.Errorf("unable to read individual %d from the master: %w", i, err)
		}
		if updateFitness[i], err = r.ReadBool(); err != nil {
			return fmt.Errorf("unable to read the update flag for individual %d: %w", i, err)
		}
	}
	countVictoriesOnly, err := r.ReadBool()
	if err != nil {
		return fmt.Errorf("unable to read the victories flag from the master: %w", err)
	}

	if err := s.grouped.EvaluateGroup(inds, updateFitness, countVictoriesOnly, 0, s.random); err != nil {
		return err
	}
	return s.returnIndividuals(w, inds, updateFitness)
}

// returnIndividuals streams the batch results: per individual a result
// byte, then the full individual (return-inds), the evaluated flag plus
// fitness (updateFitness), or nothing. One flush for the whole batch.
func (s *Slave) returnIndividuals(w *wire.Writer, inds []*genome.Individual, updateFitness []bool) error {
	for i, ind := range inds {
		// Re-evolution can hand back more individuals than arrived.
		update := i < len(updateFitness) && updateFitness[i]
		switch {
		case s.cfg.ReturnIndividuals:
			if err := w.WriteByte(wire.ResultIndividual); err != nil {
				return err
			}
			if err := ind.Write(w); err != nil {
				return err
			}
		case update:
			if err := w.WriteByte(wire.ResultFitness); err != nil {
				return err
			}
			if err := w.WriteBool(ind.Evaluated); err != nil {
				return err
			}
			codec, ok := ind.Fitness.(interface{ Write(*wire.Writer) error })
			if !ok {
				return fmt.Errorf("fitness %T has no binary codec", ind.Fitness)
			}
			if err := codec.Write(w); err != nil {
				return err
			}
		default:
			if err := w.WriteByte(wire.ResultNothing); err != nil {
				return err
			}
		}
	}
	return w.Flush()
}
