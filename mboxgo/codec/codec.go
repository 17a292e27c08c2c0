package codec

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"

	"github.com/ethereum-optimism/mbox/mboxgo/riscv"
)

// Word is the 132-bit packed stimulus, as driven onto the device input lane:
//
//	bit 131       wordop
//	bits 130..67  operand 1
//	bits 66..3    operand 2
//	bits 2..0     opcode (funct3)
//
// The packing is a bijection, so a Word doubles as the dedup and replay key.
type Word = uint256.Int

const (
	WordBits = 132
	KeySize  = (WordBits + 7) / 8 // 17 bytes, big-endian

	opcodeShift = 0
	op2Shift    = riscv.OpcodeBits
	op1Shift    = op2Shift + 64
	wordopShift = op1Shift + 64
)

// Stimulus is one decoded operation.
type Stimulus struct {
	Width  riscv.Width  `json:"wordop"`
	Opcode riscv.Opcode `json:"funct3"`
	Op1    uint64       `json:"in1"`
	Op2    uint64       `json:"in2"`
}

func (s Stimulus) String() string {
	return fmt.Sprintf("funct3=%d(%s) wordop=%d in1=0x%X in2=0x%X", uint8(s.Opcode), s.Opcode, uint8(s.Width), s.Op1, s.Op2)
}

// Key packs a stimulus that is known to be valid. Invalid fields are a programming error.
func (s Stimulus) Key() Word {
	w, err := Pack(s)
	if err != nil {
		panic(err)
	}
	return w
}

// EncodingError reports a field that does not fit its declared bit width.
type EncodingError struct {
	Field string
	Value uint64
	Bits  uint
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encoding error: %s value 0x%X exceeds %d bits", e.Field, e.Value, e.Bits)
}

// Pack applies the stimulus bit layout. Operands are stored unmodified in both widths.
func Pack(s Stimulus) (out Word, err error) {
	if !s.Width.Valid() {
		return out, &EncodingError{Field: "wordop", Value: uint64(s.Width), Bits: 1}
	}
	if !s.Opcode.Valid() {
		return out, &EncodingError{Field: "opcode", Value: uint64(s.Opcode), Bits: riscv.OpcodeBits}
	}
	var field Word
	out.SetUint64(uint64(s.Width))
	out.Lsh(&out, wordopShift)
	field.SetUint64(s.Op1)
	field.Lsh(&field, op1Shift)
	out.Or(&out, &field)
	field.SetUint64(s.Op2)
	field.Lsh(&field, op2Shift)
	out.Or(&out, &field)
	field.SetUint64(uint64(s.Opcode))
	out.Or(&out, &field)
	return out, nil
}

// Unpack is the exact inverse of Pack.
func Unpack(w Word) (Stimulus, error) {
	if n := w.BitLen(); n > WordBits {
		var top Word
		top.Rsh(&w, WordBits)
		return Stimulus{}, &EncodingError{Field: "word", Value: top.Uint64(), Bits: WordBits}
	}
	var field Word
	s := Stimulus{}
	s.Opcode = riscv.Opcode(w.Uint64() & (1<<riscv.OpcodeBits - 1))
	field.Rsh(&w, op2Shift)
	s.Op2 = field.Uint64()
	field.Rsh(&w, op1Shift)
	s.Op1 = field.Uint64()
	field.Rsh(&w, wordopShift)
	s.Width = riscv.Width(field.Uint64())
	return s, nil
}

// KeyBytes returns the fixed-size big-endian encoding of w.
func KeyBytes(w Word) []byte {
	b := w.Bytes32()
	out := make([]byte, KeySize)
	copy(out, b[32-KeySize:])
	return out
}

// FromKeyBytes decodes a KeyBytes encoding into a validated stimulus.
func FromKeyBytes(b []byte) (Stimulus, error) {
	if len(b) != KeySize {
		return Stimulus{}, fmt.Errorf("invalid key length %d, expected %d", len(b), KeySize)
	}
	var w Word
	w.SetBytes(b)
	return Unpack(w)
}

// KeyHex renders w as a 0x-prefixed, fixed-width hex key.
func KeyHex(w Word) string {
	return hexutil.Encode(KeyBytes(w))
}

// ParseKey parses a hex key, with or without 0x prefix and leading zeros.
func ParseKey(s string) (Stimulus, error) {
	digits := strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	if digits == "" {
		return Stimulus{}, fmt.Errorf("empty stimulus key")
	}
	v, ok := new(big.Int).SetString(digits, 16)
	if !ok {
		return Stimulus{}, fmt.Errorf("invalid stimulus key %q", s)
	}
	w, overflow := uint256.FromBig(v)
	if overflow {
		return Stimulus{}, &EncodingError{Field: "word", Value: 0, Bits: WordBits}
	}
	return Unpack(*w)
}
