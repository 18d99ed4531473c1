package genome

import (
	"fmt"
	"strings"

	"evoforge/internal/code"
	"evoforge/internal/rng"
	"evoforge/internal/wire"
)

// Genome is an evolvable representation. Mutating operations are
// destructive; Clone first when the original must survive.
type Genome interface {
	Kind() Kind
	Length() int
	Clone() Genome
	// Reset randomizes every gene uniformly over the species' range.
	Reset(sp *Species, rnd *rng.MT)
	// Mutate perturbs genes independently with the species' probability.
	Mutate(sp *Species, rnd *rng.MT)
	// Crossover destructively recombines the receiver with other, which
	// must be the same kind and length.
	Crossover(sp *Species, rnd *rng.MT, other Genome) error
	// SetLength resizes the genome, copying the shorter prefix into the
	// front of a fresh array.
	SetLength(n int)
	// Equal is false whenever the kinds differ, regardless of content.
	Equal(other Genome) bool

	Write(w *wire.Writer) error
	Read(r *wire.Reader) error
	EncodeText() string
	ParseText(d *code.Decoder) error
}

// randomLongFromClosedInterval draws uniformly from [min, max] inclusive,
// handling ranges whose width overflows int64.
func randomLongFromClosedInterval(min, max int64, rnd *rng.MT) int64 {
	if max-min < 0 {
		for {
			l := int64(rnd.Uint64())
			if l >= min && l <= max {
				return l
			}
		}
	}
	return min + rnd.Int63n(max-min+1)
}

// LongVectorGenome is an ordered sequence of int64 genes.
type LongVectorGenome struct {
	Genes []int64
}

func (g *LongVectorGenome) Kind() Kind  { return LongVector }
func (g *LongVectorGenome) Length() int { return len(g.Genes) }

func (g *LongVectorGenome) Clone() Genome {
	return &LongVectorGenome{Genes: append([]int64(nil), g.Genes...)}
}

func (g *LongVectorGenome) Reset(sp *Species, rnd *rng.MT) {
	for i := range g.Genes {
		g.Genes[i] = randomLongFromClosedInterval(sp.MinGene, sp.MaxGene, rnd)
	}
}

func (g *LongVectorGenome) Mutate(sp *Species, rnd *rng.MT) {
	if sp.MutationProbability <= 0 {
		return
	}
	for i := range g.Genes {
		if rnd.Bool(sp.MutationProbability) {
			g.Genes[i] = randomLongFromClosedInterval(sp.MinGene, sp.MaxGene, rnd)
		}
	}
}

func (g *LongVectorGenome) Crossover(sp *Species, rnd *rng.MT, other Genome) error {
	o, ok := other.(*LongVectorGenome)
	if !ok {
		return fmt.Errorf("crossover between %s and %s genomes", g.Kind(), other.Kind())
	}
	if len(g.Genes) != len(o.Genes) {
		return fmt.Errorf("genome lengths are not the same for fixed-length vector crossover")
	}
	crossSpans(sp, rnd, len(g.Genes), func(x int) {
		g.Genes[x], o.Genes[x] = o.Genes[x], g.Genes[x]
	})
	return nil
}

func (g *LongVectorGenome) SetLength(n int) {
	next := make([]int64, n)
	copy(next, g.Genes)
	g.Genes = next
}

// Clamp clips each gene into the species' [MinGene, MaxGene] range.
func (g *LongVectorGenome) Clamp(sp *Species) {
	for i, v := range g.Genes {
		if v < sp.MinGene {
			g.Genes[i] = sp.MinGene
		} else if v > sp.MaxGene {
			g.Genes[i] = sp.MaxGene
		}
	}
}

// IsInRange reports whether every gene lies inside the species' range.
func (g *LongVectorGenome) IsInRange(sp *Species) bool {
	for _, v := range g.Genes {
		if v < sp.MinGene || v > sp.MaxGene {
			return false
		}
	}
	return true
}

func (g *LongVectorGenome) Equal(other Genome) bool {
	o, ok := other.(*LongVectorGenome)
	if !ok || len(g.Genes) != len(o.Genes) {
		return false
	}
	for i := range g.Genes {
		if g.Genes[i] != o.Genes[i] {
			return false
		}
	}
	return true
}

func (g *LongVectorGenome) Write(w *wire.Writer) error {
	if err := w.WriteInt32(int32(len(g.Genes))); err != nil {
		return err
	}
	for _, v := range g.Genes {
		if err := w.WriteInt64(v); err != nil {
			return err
		}
	}
	return nil
}

func (g *LongVectorGenome) Read(r *wire.Reader) error {
	n, err := r.ReadInt32()
	if err != nil {
		return fmt.Errorf("read genome length: %w", err)
	}
	if n < 0 {
		return fmt.Errorf("bad genome length on stream: %d", n)
	}
	if len(g.Genes) != int(n) {
		g.Genes = make([]int64, n)
	}
	for i := range g.Genes {
		if g.Genes[i], err = r.ReadInt64(); err != nil {
			return fmt.Errorf("read gene %d: %w", i, err)
		}
	}
	return nil
}

func (g *LongVectorGenome) EncodeText() string {
	var sb strings.Builder
	sb.WriteString(code.EncodeInt(int32(len(g.Genes))))
	for _, v := range g.Genes {
		sb.WriteString(code.EncodeLong(v))
	}
	return sb.String()
}

func (g *LongVectorGenome) ParseText(d *code.Decoder) error {
	n, err := d.Int()
	if err != nil {
		return fmt.Errorf("genome length token: %w", err)
	}
	g.Genes = make([]int64, n)
	for i := range g.Genes {
		if g.Genes[i], err = d.Long(); err != nil {
			return fmt.Errorf("gene %d token: %w", i, err)
		}
	}
	return nil
}

// FloatVectorGenome is an ordered sequence of float64 genes.
type FloatVectorGenome struct {
	Genes []float64
}

func (g *FloatVectorGenome) Kind() Kind  { return FloatVector }
func (g *FloatVectorGenome) Length() int { return len(g.Genes) }

func (g *FloatVectorGenome) Clone() Genome {
	return &FloatVectorGenome{Genes: append([]float64(nil), g.Genes...)}
}

func (g *FloatVectorGenome) Reset(sp *Species, rnd *rng.MT) {
	for i := range g.Genes {
		g.Genes[i] = sp.MinValue + rnd.Float64()*(sp.MaxValue-sp.MinValue)
	}
}

func (g *FloatVectorGenome) Mutate(sp *Species, rnd *rng.MT) {
	if sp.MutationProbability <= 0 {
		return
	}
	for i := range g.Genes {
		if rnd.Bool(sp.MutationProbability) {
			g.Genes[i] = sp.MinValue + rnd.Float64()*(sp.MaxValue-sp.MinValue)
		}
	}
}

func (g *FloatVectorGenome) Crossover(sp *Species, rnd *rng.MT, other Genome) error {
	o, ok := other.(*FloatVectorGenome)
	if !ok {
		return fmt.Errorf("crossover between %s and %s genomes", g.Kind(), other.Kind())
	}
	if len(g.Genes) != len(o.Genes) {
		return fmt.Errorf("genome lengths are not the same for fixed-length vector crossover")
	}
	crossSpans(sp, rnd, len(g.Genes), func(x int) {
		g.Genes[x], o.Genes[x] = o.Genes[x], g.Genes[x]
	})
	return nil
}

func (g *FloatVectorGenome) SetLength(n int) {
	next := make([]float64, n)
	copy(next, g.Genes)
	g.Genes = next
}

func (g *FloatVectorGenome) Equal(other Genome) bool {
	o, ok := other.(*FloatVectorGenome)
	if !ok || len(g.Genes) != len(o.Genes) {
		return false
	}
	for i := range g.Genes {
		if g.Genes[i] != o.Genes[i] {
			return false
		}
	}
	return true
}

func (g *FloatVectorGenome) Write(w *wire.Writer) error {
	if err := w.WriteInt32(int32(len(g.Genes))); err != nil {
		return err
	}
	for _, v := range g.Genes {
		if err := w.WriteFloat64(v); err != nil {
			return err
		}
	}
	return nil
}

func (g *FloatVectorGenome) Read(r *wire.Reader) error {
	n, err := r.ReadInt32()
	if err != nil {
		return fmt.Errorf("read genome length: %w", err)
	}
	if n < 0 {
		return fmt.Errorf("bad genome length on stream: %d", n)
	}
	if len(g.Genes) != int(n) {
		g.Genes = make([]float64, n)
	}
	for i := range g.Genes {
		if g.Genes[i], err = r.ReadFloat64(); err != nil {
			return fmt.Errorf("read gene %d: %w", i, err)
		}
	}
	return nil
}

func (g *FloatVectorGenome) EncodeText() string {
	var sb strings.Builder
	sb.WriteString(code.EncodeInt(int32(len(g.Genes))))
	for _, v := range g.Genes {
		sb.WriteString(code.EncodeFloat64(v))
	}
	return sb.String()
}

func (g *FloatVectorGenome) ParseText(d *code.Decoder) error {
	n, err := d.Int()
	if err != nil {
		return fmt.Errorf("genome length token: %w", err)
	}
	g.Genes = make([]float64, n)
	for i := range g.Genes {
		if g.Genes[i], err = d.Float64(); err != nil {
			return fmt.Errorf("gene %d token: %w", i, err)
		}
	}
	return nil
}

// BitVectorGenome is an ordered sequence of bits.
type BitVectorGenome struct {
	Genes []bool
}

func (g *BitVectorGenome) Kind() Kind  { return BitVector }
func (g *BitVectorGenome) Length() int { return len(g.Genes) }

func (g *BitVectorGenome) Clone() Genome {
	return &BitVectorGenome{Genes: append([]bool(nil), g.Genes...)}
}

func (g *BitVectorGenome) Reset(sp *Species, rnd *rng.MT) {
	for i := range g.Genes {
		g.Genes[i] = rnd.Bool(0.5)
	}
}

func (g *BitVectorGenome) Mutate(sp *Species, rnd *rng.MT) {
	if sp.MutationProbability <= 0 {
		return
	}
	for i := range g.Genes {
		if rnd.Bool(sp.MutationProbability) {
			g.Genes[i] = !g.Genes[i]
		}
	}
}

func (g *BitVectorGenome) Crossover(sp *Species, rnd *rng.MT, other Genome) error {
	o, ok := other.(*BitVectorGenome)
	if !ok {
		return fmt.Errorf("crossover between %s and %s genomes", g.Kind(), other.Kind())
	}
	if len(g.Genes) != len(o.Genes) {
		return fmt.Errorf("genome lengths are not the same for fixed-length vector crossover")
	}
	crossSpans(sp, rnd, len(g.Genes), func(x int) {
		g.Genes[x], o.Genes[x] = o.Genes[x], g.Genes[x]
	})
	return nil
}

func (g *BitVectorGenome) SetLength(n int) {
	next := make([]bool, n)
	copy(next, g.Genes)
	g.Genes = next
}

func (g *BitVectorGenome) Equal(other Genome) bool {
	o, ok := other.(*BitVectorGenome)
	if !ok || len(g.Genes) != len(o.Genes) {
		return false
	}
	for i := range g.Genes {
		if g.Genes[i] != o.Genes[i] {
			return false
		}
	}
	return true
}

func (g *BitVectorGenome) Write(w *wire.Writer) error {
	if err := w.WriteInt32(int32(len(g.Genes))); err != nil {
		return err
	}
	for _, v := range g.Genes {
		if err := w.WriteBool(v); err != nil {
			return err
		}
	}
	return nil
}

func (g *BitVectorGenome) Read(r *wire.Reader) error {
	n, err := r.ReadInt32()
	if err != nil {
		return fmt.Errorf("read genome length: %w", err)
	}
	if n < 0 {
		return fmt.Errorf("bad genome length on stream: %d", n)
	}
	if len(g.Genes) != int(n) {
		g.Genes = make([]bool, n)
	}
	for i := range g.Genes {
		if g.Genes[i], err = r.ReadBool(); err != nil {
			return fmt.Errorf("read gene %d: %w", i, err)
		}
	}
	return nil
}

func (g *BitVectorGenome) EncodeText() string {
	var sb strings.Builder
	sb.WriteString(code.EncodeInt(int32(len(g.Genes))))
	for _, v := range g.Genes {
		sb.WriteString(code.EncodeBool(v))
	}
	return sb.String()
}

func (g *BitVectorGenome) ParseText(d *code.Decoder) error {
	n, err := d.Int()
	if err != nil {
		return fmt.Errorf("genome length token: %w", err)
	}
	g.Genes = make([]bool, n)
	for i := range g.Genes {
		if g.Genes[i], err = d.Bool(); err != nil {
			return fmt.Errorf("gene %d token: %w", i, err)
		}
	}
	return nil
}

// crossSpans applies swap over the gene indices selected by the species'
// crossover type: the prefix up to one cut point, the span between two cut
// points, or independently per gene.
func crossSpans(sp *Species, rnd *rng.MT, length int, swap func(int)) {
	switch sp.Crossover {
	case TwoPoint:
		p0 := rnd.Intn(length + 1)
		p1 := rnd.Intn(length + 1)
		if p0 > p1 {
			p0, p1 = p1, p0
		}
		for x := p0; x < p1; x++ {
			swap(x)
		}
	case AnyPoint:
		p := sp.CrossoverProbability
		if p <= 0 {
			p = 0.5
		}
		for x := 0; x < length; x++ {
			if rnd.Bool(p) {
				swap(x)
			}
		}
	default: // one-point
		point := rnd.Intn(length + 1)
		for x := 0; x < point; x++ {
			swap(x)
		}
	}
}
