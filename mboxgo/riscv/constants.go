package riscv

import (
	"fmt"
	"strings"
)

// Opcode is the funct3 field of an RV64M instruction (funct7 = 0000001).
type Opcode uint8

const (
	MUL    Opcode = 0 // 000 = MUL: signed x signed, low bits
	MULH   Opcode = 1 // 001 = MULH: upper bits of signed x signed
	MULHSU Opcode = 2 // 010 = MULHSU: upper bits of signed x unsigned
	MULHU  Opcode = 3 // 011 = MULHU: upper bits of unsigned x unsigned
	DIV    Opcode = 4 // 100 = DIV
	DIVU   Opcode = 5 // 101 = DIVU
	REM    Opcode = 6 // 110 = REM
	REMU   Opcode = 7 // 111 = REMU

	OpcodeCount = 8
	OpcodeBits  = 3
)

var opcodeNames = [OpcodeCount]string{"MUL", "MULH", "MULHSU", "MULHU", "DIV", "DIVU", "REM", "REMU"}

func (op Opcode) String() string {
	if op >= OpcodeCount {
		return fmt.Sprintf("Opcode(%d)", uint8(op))
	}
	return opcodeNames[op]
}

func (op Opcode) Valid() bool {
	return op < OpcodeCount
}

// IsMul reports whether op belongs to the multiply family (funct3 0-3).
func (op Opcode) IsMul() bool {
	return op < DIV
}

// IsDiv reports whether op belongs to the divide family (funct3 4-7).
func (op Opcode) IsDiv() bool {
	return op >= DIV && op < OpcodeCount
}

// ParseOpcode accepts a mnemonic (case-insensitive, with or without the W suffix
// of the 32-bit variants) or a funct3 number.
func ParseOpcode(s string) (Opcode, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for i, n := range opcodeNames {
		if name == n || name == n+"W" {
			return Opcode(i), nil
		}
	}
	var v uint8
	if _, err := fmt.Sscanf(name, "%d", &v); err == nil && v < OpcodeCount {
		return Opcode(v), nil
	}
	return 0, fmt.Errorf("unknown opcode %q", s)
}

// Width selects the operand interpretation. It is the wordop bit of the stimulus.
type Width uint8

const (
	Double Width = 0 // 64-bit operands and result
	Word   Width = 1 // 32-bit operands, result in the low word

	WidthCount = 2
)

const (
	Mask32 = uint64(0xFFFF_FFFF)
	Mask64 = uint64(0xFFFF_FFFF_FFFF_FFFF)
)

func (w Width) String() string {
	switch w {
	case Double:
		return "double"
	case Word:
		return "word"
	default:
		return fmt.Sprintf("Width(%d)", uint8(w))
	}
}

func (w Width) Valid() bool {
	return w < WidthCount
}

// Mask returns the operative-width mask results are compared under.
func (w Width) Mask() uint64 {
	if w == Word {
		return Mask32
	}
	return Mask64
}

func (w Width) Bits() uint {
	if w == Word {
		return 32
	}
	return 64
}

func ParseWidth(s string) (Width, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "double", "d", "64", "0":
		return Double, nil
	case "word", "w", "32", "1":
		return Word, nil
	default:
		return 0, fmt.Errorf("unknown width %q", s)
	}
}

// SignExtend32 sign-extends the low word of v into 64 bits.
func SignExtend32(v uint64) uint64 {
	return uint64(int64(int32(uint32(v))))
}
