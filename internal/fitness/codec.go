package fitness

import (
	"fmt"
	"strings"

	"evoforge/internal/code"
	"evoforge/internal/wire"
)

// Binary layout for multi-objective fitnesses: int32 objective count, that
// many float32 objectives, then the maximize flag. The SPEA2 variant
// appends its ranking scalar as a float64. Scalars are a single float64.
//
// Objectives travel as float32; in-memory values that are not exactly
// representable in 32 bits lose precision on the wire.

// Write encodes the fitness.
func (f *Scalar) Write(w *wire.Writer) error {
	return w.WriteFloat64(f.Fitness)
}

// Read decodes into the receiver.
func (f *Scalar) Read(r *wire.Reader) error {
	v, err := r.ReadFloat64()
	if err != nil {
		return fmt.Errorf("read scalar fitness: %w", err)
	}
	f.Fitness = v
	return nil
}

func (f *MultiObjective) Write(w *wire.Writer) error {
	if err := w.WriteInt32(int32(len(f.Objectives))); err != nil {
		return err
	}
	for _, o := range f.Objectives {
		if err := w.WriteFloat32(float32(o)); err != nil {
			return err
		}
	}
	return w.WriteBool(f.Maximize)
}

// Read decodes into the receiver, resizing the objective vector if the
// stream carries a different count. Bounds are left untouched; they belong
// to the species, not the stream.
func (f *MultiObjective) Read(r *wire.Reader) error {
	n, err := r.ReadInt32()
	if err != nil {
		return fmt.Errorf("read objective count: %w", err)
	}
	if n < 1 {
		return fmt.Errorf("bad objective count on stream: %d", n)
	}
	if len(f.Objectives) != int(n) {
		f.Objectives = make([]float64, n)
	}
	for i := range f.Objectives {
		v, err := r.ReadFloat32()
		if err != nil {
			return fmt.Errorf("read objective %d: %w", i, err)
		}
		f.Objectives[i] = float64(v)
	}
	maximize, err := r.ReadBool()
	if err != nil {
		return fmt.Errorf("read maximize flag: %w", err)
	}
	f.Maximize = maximize
	return nil
}

func (f *SPEA2) Write(w *wire.Writer) error {
	if err := f.MultiObjective.Write(w); err != nil {
		return err
	}
	return w.WriteFloat64(f.SPEA2Fitness)
}

func (f *SPEA2) Read(r *wire.Reader) error {
	if err := f.MultiObjective.Read(r); err != nil {
		return err
	}
	v, err := r.ReadFloat64()
	if err != nil {
		return fmt.Errorf("read spea2 ranking: %w", err)
	}
	f.SPEA2Fitness = v
	return nil
}

// Codec unifies the per-variant Write/Read pairs so individuals can carry
// any fitness variant through one code path.
type Codec interface {
	Write(w *wire.Writer) error
	Read(r *wire.Reader) error
}

// ParseString reads back the format produced by String.
func (f *MultiObjective) ParseString(s string) error {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return fmt.Errorf("bad fitness text %q", s)
	}
	d := code.NewDecoder(s[1 : len(s)-1])
	for i := range f.Objectives {
		v, err := d.Float64()
		if err != nil {
			return fmt.Errorf("fitness text objective %d: %w", i, err)
		}
		f.Objectives[i] = v
	}
	maximize, err := d.Bool()
	if err != nil {
		return fmt.Errorf("fitness text maximize flag: %w", err)
	}
	f.Maximize = maximize
	return nil
}
