package fast

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum-optimism/mbox/mboxgo/codec"
	"github.com/ethereum-optimism/mbox/mboxgo/riscv"
)

// ErrIllegalOperation is returned for operations the configured model rejects.
var ErrIllegalOperation = errors.New("illegal operation")

// DivZeroPolicy selects the result of DIV, DIVU, REM and REMU by a zero divisor.
type DivZeroPolicy uint8

const (
	// DivZeroMasked returns all-ones of the operative width for all four opcodes.
	DivZeroMasked DivZeroPolicy = iota
	// DivZeroRaw returns the raw 64-bit all-ones pattern regardless of width.
	DivZeroRaw
	// DivZeroISA follows the ratified M extension: quotient all-ones, remainder the dividend.
	DivZeroISA
)

// MulWordPolicy selects how the 32-bit MUL result is placed in the 64-bit lane.
type MulWordPolicy uint8

const (
	MulWordSignExtend MulWordPolicy = iota
	MulWordMask
)

// WordHighPolicy selects the meaning of MULH, MULHSU and MULHU with wordop set.
type WordHighPolicy uint8

const (
	// WordHighDouble ignores wordop and returns the upper half of the 128-bit product.
	WordHighDouble WordHighPolicy = iota
	// WordHighUpper32 returns bits [63:32] of the product of the 32-bit operands, sign-extended.
	WordHighUpper32
	// WordHighIllegal rejects the combination with ErrIllegalOperation.
	WordHighIllegal
)

var (
	divZeroNames  = []string{"masked", "raw", "isa"}
	mulWordNames  = []string{"sext", "mask"}
	wordHighNames = []string{"double", "upper32", "illegal"}
)

func policyName(names []string, v uint8) string {
	if int(v) < len(names) {
		return names[v]
	}
	return fmt.Sprintf("policy(%d)", v)
}

func parsePolicy(kind string, names []string, s string) (uint8, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range names {
		if n == s {
			return uint8(i), nil
		}
	}
	return 0, fmt.Errorf("unknown %s policy %q, expected one of %s", kind, s, strings.Join(names, ", "))
}

func (p DivZeroPolicy) String() string  { return policyName(divZeroNames, uint8(p)) }
func (p MulWordPolicy) String() string  { return policyName(mulWordNames, uint8(p)) }
func (p WordHighPolicy) String() string { return policyName(wordHighNames, uint8(p)) }

func ParseDivZeroPolicy(s string) (DivZeroPolicy, error) {
	v, err := parsePolicy("divide-by-zero", divZeroNames, s)
	return DivZeroPolicy(v), err
}

func ParseMulWordPolicy(s string) (MulWordPolicy, error) {
	v, err := parsePolicy("MULW", mulWordNames, s)
	return MulWordPolicy(v), err
}

func ParseWordHighPolicy(s string) (WordHighPolicy, error) {
	v, err := parsePolicy("word-mode MULH", wordHighNames, s)
	return WordHighPolicy(v), err
}

// Config pins down the behaviors the reference testbenches disagree on.
// The zero value is the masked divide-by-zero, sign-extended MULW, 64-bit MULH variant.
type Config struct {
	DivZero  DivZeroPolicy  `json:"divZero"`
	MulWord  MulWordPolicy  `json:"mulWord"`
	WordHigh WordHighPolicy `json:"wordHigh"`
}

// Legal reports whether the model accepts opcode op in width w.
func (c Config) Legal(op riscv.Opcode, w riscv.Width) bool {
	if !op.Valid() || !w.Valid() {
		return false
	}
	if w == riscv.Word && op.IsMul() && op != riscv.MUL {
		return c.WordHigh != WordHighIllegal
	}
	return true
}

// Model is the arithmetic reference model. It is a pure function of its inputs.
type Model struct {
	cfg Config
}

func NewModel(cfg Config) *Model {
	return &Model{cfg: cfg}
}

func (m *Model) Config() Config {
	return m.cfg
}

// Expected evaluates a decoded stimulus.
func (m *Model) Expected(s codec.Stimulus) (uint64, error) {
	return m.Evaluate(s.Op1, s.Op2, s.Opcode, s.Width)
}

// Evaluate computes the expected device result for raw 64-bit operands.
func (m *Model) Evaluate(op1, op2 uint64, opcode riscv.Opcode, width riscv.Width) (uint64, error) {
	if !width.Valid() {
		return 0, fmt.Errorf("invalid width %d", uint8(width))
	}
	if !m.cfg.Legal(opcode, width) {
		return 0, fmt.Errorf("%w: %s in %s mode", ErrIllegalOperation, opcode, width)
	}
	switch {
	case opcode.IsMul():
		return m.multiply(op1, op2, opcode, width), nil
	case opcode.IsDiv():
		return m.divide(op1, op2, opcode, width), nil
	default:
		return 0, fmt.Errorf("%w: unknown funct3 %d", ErrIllegalOperation, uint8(opcode))
	}
}

func (m *Model) multiply(rs1Value, rs2Value U64, opcode riscv.Opcode, width riscv.Width) U64 {
	if width == riscv.Word {
		switch opcode {
		case riscv.MUL: // MULW
			rdValue := mul64(and64(rs1Value, u32Mask()), and64(rs2Value, u32Mask()))
			if m.cfg.MulWord == MulWordMask {
				return and64(rdValue, u32Mask())
			}
			return mask32Signed64(rdValue)
		default:
			if m.cfg.WordHigh == WordHighUpper32 {
				return mulHighWord(rs1Value, rs2Value, opcode)
			}
		}
	}
	switch opcode {
	case riscv.MUL: // signed x signed, low bits are sign-agnostic
		return mul64(rs1Value, rs2Value)
	case riscv.MULH: // upper bits of signed x signed
		return u256ToU64(shr(toU256(64), mul(signExtend64To256(rs1Value), signExtend64To256(rs2Value))))
	case riscv.MULHSU: // upper bits of signed x unsigned
		return u256ToU64(shr(toU256(64), mul(signExtend64To256(rs1Value), u64ToU256(rs2Value))))
	default: // MULHU: upper bits of unsigned x unsigned
		return u256ToU64(shr(toU256(64), mul(u64ToU256(rs1Value), u64ToU256(rs2Value))))
	}
}

// mulHighWord computes the upper word of a 32x32 product, which always fits in 64 bits.
func mulHighWord(rs1Value, rs2Value U64, opcode riscv.Opcode) U64 {
	var product U64
	switch opcode {
	case riscv.MULH:
		product = mul64(mask32Signed64(rs1Value), mask32Signed64(rs2Value))
	case riscv.MULHSU:
		product = mul64(mask32Signed64(rs1Value), and64(rs2Value, u32Mask()))
	default:
		product = mul64(and64(rs1Value, u32Mask()), and64(rs2Value, u32Mask()))
	}
	return mask32Signed64(sar64(toU64(32), product))
}

func (m *Model) divide(rs1Value, rs2Value U64, opcode riscv.Opcode, width riscv.Width) U64 {
	mask := width.Mask()
	if and64(rs2Value, mask) == 0 {
		return m.divideByZero(rs1Value, opcode, width)
	}
	if width == riscv.Word {
		switch opcode {
		case riscv.DIV: // DIVW
			return and64(sdiv64(mask32Signed64(rs1Value), mask32Signed64(rs2Value)), mask)
		case riscv.DIVU: // DIVUW
			return div64(and64(rs1Value, mask), and64(rs2Value, mask))
		case riscv.REM: // REMW
			return and64(smod64(mask32Signed64(rs1Value), mask32Signed64(rs2Value)), mask)
		default: // REMUW
			return mod64(and64(rs1Value, mask), and64(rs2Value, mask))
		}
	}
	switch opcode {
	case riscv.DIV:
		return sdiv64(rs1Value, rs2Value)
	case riscv.DIVU:
		return div64(rs1Value, rs2Value)
	case riscv.REM:
		return smod64(rs1Value, rs2Value)
	default: // REMU
		return mod64(rs1Value, rs2Value)
	}
}

func (m *Model) divideByZero(rs1Value U64, opcode riscv.Opcode, width riscv.Width) U64 {
	switch m.cfg.DivZero {
	case DivZeroRaw:
		return u64Mask()
	case DivZeroISA:
		switch opcode {
		case riscv.REM, riscv.REMU:
			if width == riscv.Word {
				return mask32Signed64(rs1Value)
			}
			return rs1Value
		default:
			return u64Mask()
		}
	default:
		return width.Mask()
	}
}
