package stimulus

import (
	"math/rand/v2"

	"github.com/ethereum-optimism/mbox/mboxgo/codec"
	"github.com/ethereum-optimism/mbox/mboxgo/riscv"
)

// SeenSet holds the packed keys of every stimulus issued in a run. It only grows.
type SeenSet map[codec.Word]struct{}

// Add inserts the key and reports whether it was new.
func (s SeenSet) Add(k codec.Word) bool {
	if _, ok := s[k]; ok {
		return false
	}
	s[k] = struct{}{}
	return true
}

func (s SeenSet) Has(k codec.Word) bool {
	_, ok := s[k]
	return ok
}

// Generator yields unique stimuli: first the exhaustive corner-case product, in
// wordop, opcode, operand 1, operand 2 order, then uniformly random operations.
type Generator struct {
	corners []uint64
	legal   func(riscv.Opcode, riscv.Width) bool
	seed    uint64
	rng     *rand.Rand

	seen SeenSet
	// every exhaustive index below cursor is in seen
	cursor int
}

type Option func(*Generator)

// WithSeed fixes the random fallback sequence.
func WithSeed(seed uint64) Option {
	return func(g *Generator) {
		g.seed = seed
	}
}

// WithLegal skips operations the model rejects, in both phases.
func WithLegal(legal func(riscv.Opcode, riscv.Width) bool) Option {
	return func(g *Generator) {
		g.legal = legal
	}
}

func New(corners []uint64, opts ...Option) *Generator {
	g := &Generator{
		corners: append([]uint64(nil), corners...),
		seen:    make(SeenSet),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.rng = rand.New(rand.NewPCG(g.seed, g.seed^0x6d626f78))
	return g
}

// Space is the size of the exhaustive product, including illegal combinations.
func (g *Generator) Space() int {
	n := len(g.corners)
	return riscv.WidthCount * riscv.OpcodeCount * n * n
}

// at decodes an exhaustive index into its stimulus.
func (g *Generator) at(i int) codec.Stimulus {
	n := len(g.corners)
	op2 := i % n
	i /= n
	op1 := i % n
	i /= n
	return codec.Stimulus{
		Width:  riscv.Width(i / riscv.OpcodeCount),
		Opcode: riscv.Opcode(i % riscv.OpcodeCount),
		Op1:    g.corners[op1],
		Op2:    g.corners[op2],
	}
}

func (g *Generator) isLegal(s codec.Stimulus) bool {
	return g.legal == nil || g.legal(s.Opcode, s.Width)
}

// Next returns the next stimulus never issued before in this run.
func (g *Generator) Next() codec.Stimulus {
	for ; g.cursor < g.Space(); g.cursor++ {
		s := g.at(g.cursor)
		if !g.isLegal(s) {
			continue
		}
		if g.seen.Add(s.Key()) {
			g.cursor++
			return s
		}
	}
	for {
		s := g.random()
		if !g.isLegal(s) {
			continue
		}
		if g.seen.Add(s.Key()) {
			return s
		}
	}
}

func (g *Generator) random() codec.Stimulus {
	s := codec.Stimulus{
		Width:  riscv.Width(g.rng.IntN(riscv.WidthCount)),
		Opcode: riscv.Opcode(g.rng.IntN(riscv.OpcodeCount)),
	}
	if s.Width == riscv.Word {
		s.Op1, s.Op2 = uint64(g.rng.Uint32()), uint64(g.rng.Uint32())
	} else {
		s.Op1, s.Op2 = g.rng.Uint64(), g.rng.Uint64()
	}
	return s
}

// Mark records an externally issued stimulus, so the generator will not repeat it.
func (g *Generator) Mark(s codec.Stimulus) bool {
	k, err := codec.Pack(s)
	if err != nil {
		return false
	}
	return g.seen.Add(k)
}

// Exhausted reports whether the corner-case product is used up.
func (g *Generator) Exhausted() bool {
	for ; g.cursor < g.Space(); g.cursor++ {
		s := g.at(g.cursor)
		if g.isLegal(s) && !g.seen.Has(s.Key()) {
			return false
		}
	}
	return true
}

// Seen is the number of distinct stimuli issued or marked.
func (g *Generator) Seen() int {
	return len(g.seen)
}

func (g *Generator) Seed() uint64 {
	return g.seed
}

// Reset empties the SeenSet and restarts both phases from the beginning.
func (g *Generator) Reset() {
	g.seen = make(SeenSet)
	g.cursor = 0
	g.rng = rand.New(rand.NewPCG(g.seed, g.seed^0x6d626f78))
}
