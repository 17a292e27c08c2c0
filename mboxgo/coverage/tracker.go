package coverage

import (
	"fmt"

	"github.com/ethereum-optimism/mbox/mboxgo/riscv"
)

// Coverpoint names, matching the hierarchy of the exported report.
const (
	Root        = "top"
	PointFunct3 = "top.funct3"
	PointWordop = "top.wordop"
	PointIn1    = "top.in1"
	PointIn2    = "top.in2"
	PointCross  = "top.cross"
)

// Points lists the coverpoints in report order.
var Points = []string{PointFunct3, PointWordop, PointIn1, PointIn2, PointCross}

type point struct {
	name string
	bins []string
	hits []uint64
	// covered counts bins whose hits reached the at-least threshold.
	covered int
}

func newPoint(name string, bins []string) *point {
	return &point{name: name, bins: bins, hits: make([]uint64, len(bins))}
}

func (p *point) hit(idx int, atLeast uint64) {
	p.hits[idx]++
	if p.hits[idx] == atLeast {
		p.covered++
	}
}

// Tracker accumulates functional coverage of one run. It is not safe for concurrent use.
type Tracker struct {
	atLeast uint64
	legal   func(riscv.Opcode, riscv.Width) bool

	corners   map[uint64]int
	funct3    *point
	wordop    *point
	in1       *point
	in2       *point
	cross     *point
	crossBins map[crossKey]int

	samples uint64
}

type crossKey struct {
	op riscv.Opcode
	w  riscv.Width
}

type Option func(*Tracker)

// WithAtLeast sets how many hits a bin needs before it counts as covered.
func WithAtLeast(n uint64) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.atLeast = n
		}
	}
}

// WithLegal restricts the funct3 x wordop cross to the combinations legal is true for.
func WithLegal(legal func(riscv.Opcode, riscv.Width) bool) Option {
	return func(t *Tracker) {
		t.legal = legal
	}
}

// NewTracker declares the bins: every funct3, both widths, each corner value for either
// operand, and the funct3 x wordop cross. Duplicate corners collapse into one bin.
func NewTracker(corners []uint64, opts ...Option) *Tracker {
	t := &Tracker{
		atLeast:   1,
		corners:   make(map[uint64]int, len(corners)),
		crossBins: make(map[crossKey]int),
	}
	for _, opt := range opts {
		opt(t)
	}

	opBins := make([]string, riscv.OpcodeCount)
	for op := riscv.Opcode(0); op < riscv.OpcodeCount; op++ {
		opBins[op] = op.String()
	}
	t.funct3 = newPoint(PointFunct3, opBins)
	t.wordop = newPoint(PointWordop, []string{riscv.Double.String(), riscv.Word.String()})

	var cornerBins []string
	for _, c := range corners {
		if _, ok := t.corners[c]; ok {
			continue
		}
		t.corners[c] = len(cornerBins)
		cornerBins = append(cornerBins, fmt.Sprintf("0x%X", c))
	}
	t.in1 = newPoint(PointIn1, cornerBins)
	t.in2 = newPoint(PointIn2, append([]string(nil), cornerBins...))

	var crossBins []string
	for op := riscv.Opcode(0); op < riscv.OpcodeCount; op++ {
		for w := riscv.Width(0); w < riscv.WidthCount; w++ {
			if t.legal != nil && !t.legal(op, w) {
				continue
			}
			t.crossBins[crossKey{op, w}] = len(crossBins)
			crossBins = append(crossBins, crossBinName(op, w))
		}
	}
	t.cross = newPoint(PointCross, crossBins)
	return t
}

func crossBinName(op riscv.Opcode, w riscv.Width) string {
	return fmt.Sprintf("%s/%s", op, w)
}

func (t *Tracker) points() []*point {
	return []*point{t.funct3, t.wordop, t.in1, t.in2, t.cross}
}

// Record samples one verified stimulus. Values outside every bin are counted as samples only.
func (t *Tracker) Record(op riscv.Opcode, w riscv.Width, op1, op2 uint64) {
	t.samples++
	if op.Valid() {
		t.funct3.hit(int(op), t.atLeast)
	}
	if w.Valid() {
		t.wordop.hit(int(w), t.atLeast)
	}
	if idx, ok := t.corners[op1]; ok {
		t.in1.hit(idx, t.atLeast)
	}
	if idx, ok := t.corners[op2]; ok {
		t.in2.hit(idx, t.atLeast)
	}
	if idx, ok := t.crossBins[crossKey{op, w}]; ok {
		t.cross.hit(idx, t.atLeast)
	}
}

// Size is the number of declared bins across all coverpoints.
func (t *Tracker) Size() int {
	n := 0
	for _, p := range t.points() {
		n += len(p.bins)
	}
	return n
}

// Covered is the number of bins that reached the at-least threshold.
func (t *Tracker) Covered() int {
	n := 0
	for _, p := range t.points() {
		n += p.covered
	}
	return n
}

// Coverage returns the covered share of all declared bins, in percent.
func (t *Tracker) Coverage() float64 {
	size := t.Size()
	if size == 0 {
		return 100
	}
	return float64(t.Covered()) * 100 / float64(size)
}

// Complete reports whether every declared bin is covered.
func (t *Tracker) Complete() bool {
	return t.Covered() == t.Size()
}

func (t *Tracker) Samples() uint64 {
	return t.samples
}

// Hits returns the hit count of one bin, by coverpoint and bin name.
func (t *Tracker) Hits(pointName, bin string) (uint64, bool) {
	for _, p := range t.points() {
		if p.name != pointName {
			continue
		}
		for i, b := range p.bins {
			if b == bin {
				return p.hits[i], true
			}
		}
	}
	return 0, false
}

// Missing lists the uncovered bins as "point:bin".
func (t *Tracker) Missing() []string {
	var out []string
	for _, p := range t.points() {
		for i, b := range p.bins {
			if p.hits[i] < t.atLeast {
				out = append(out, p.name+":"+b)
			}
		}
	}
	return out
}
