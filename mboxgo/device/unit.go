package device

import (
	"context"
	"fmt"

	"github.com/ethereum-optimism/mbox/mboxgo/codec"
	"github.com/ethereum-optimism/mbox/mboxgo/riscv"
	"github.com/ethereum-optimism/mbox/mboxgo/slow"
	"github.com/ethereum-optimism/mbox/mboxgo/verify"
)

const (
	DefaultMulLatency = 2
	DefaultDivLatency = 16
	// DefaultTimeout is the number of cycles a caller waits for ready after enable.
	DefaultTimeout = 20
)

// Fault corrupts the result of one opcode in one width by xor-ing it with Xor.
type Fault struct {
	Opcode riscv.Opcode
	Width  riscv.Width
	Xor    uint64
}

func (f Fault) String() string {
	return fmt.Sprintf("%s:%s:%#x", f.Opcode, f.Width, f.Xor)
}

type Option func(*Unit)

// WithLatency sets the cycles from enable to ready for the multiply and divide families.
func WithLatency(mul, div uint64) Option {
	return func(u *Unit) {
		u.mulLatency = mul
		u.divLatency = div
	}
}

func WithTimeout(cycles uint64) Option {
	return func(u *Unit) {
		u.timeout = cycles
	}
}

func WithFault(f Fault) Option {
	return func(u *Unit) {
		u.faults = append(u.faults, f)
	}
}

// Unit is a cycle-counting emulation of the mul/div unit.
// Inputs are latched on the enable cycle; the result lane is valid once ready is asserted.
type Unit struct {
	mulLatency uint64
	divLatency uint64
	timeout    uint64
	faults     []Fault

	cycle uint64
	ready bool
	lane  uint64
}

var _ verify.Device = (*Unit)(nil)

func New(opts ...Option) *Unit {
	u := &Unit{
		mulLatency: DefaultMulLatency,
		divLatency: DefaultDivLatency,
		timeout:    DefaultTimeout,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Cycles is the number of clock cycles elapsed since the unit was created.
func (u *Unit) Cycles() uint64 {
	return u.cycle
}

// Faults lists the injected faults.
func (u *Unit) Faults() []Fault {
	return append([]Fault(nil), u.faults...)
}

// Execute drives one stimulus through the enable/ready handshake.
func (u *Unit) Execute(ctx context.Context, word codec.Word) (uint64, error) {
	s, err := codec.Unpack(word)
	if err != nil {
		return 0, fmt.Errorf("failed to latch inputs: %w", err)
	}
	latency := u.mulLatency
	if s.Opcode.IsDiv() {
		latency = u.divLatency
	}

	// enable is held for a single cycle
	u.ready = false
	u.tick()
	for elapsed := uint64(0); elapsed < u.timeout; elapsed++ {
		if elapsed >= latency {
			u.ready = true
			u.lane = u.compute(s)
			break
		}
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		u.tick()
	}
	if !u.ready {
		return 0, &verify.DeviceTimeout{Stimulus: s, Cycles: u.timeout}
	}
	return u.lane, nil
}

func (u *Unit) tick() {
	u.cycle++
}

func (u *Unit) compute(s codec.Stimulus) uint64 {
	rd := slow.Execute(uint8(s.Opcode), s.Width == riscv.Word, s.Op1, s.Op2)
	for _, f := range u.faults {
		if f.Opcode == s.Opcode && f.Width == s.Width {
			rd ^= f.Xor
		}
	}
	return rd
}
