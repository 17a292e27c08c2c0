package fast

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/mbox/mboxgo/codec"
	"github.com/ethereum-optimism/mbox/mboxgo/riscv"
)

func i64(v int64) uint64 { return uint64(v) }

type evalCase struct {
	desc   string
	op     riscv.Opcode
	width  riscv.Width
	a, b   uint64
	want   uint64
	config Config
}

func runEvalCases(t *testing.T, cases []evalCase) {
	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			got, err := NewModel(tc.config).Evaluate(tc.a, tc.b, tc.op, tc.width)
			require.NoError(t, err)
			require.Equalf(t, tc.want, got, "%s(%#x, %#x) %s: got %#x want %#x", tc.op, tc.a, tc.b, tc.width, got, tc.want)
		})
	}
}

func TestEvaluateScenarios(t *testing.T) {
	runEvalCases(t, []evalCase{
		{desc: "mulw sign extends", op: riscv.MUL, width: riscv.Word, a: 0x7FFFFFFF, b: 2, want: 0xFFFFFFFFFFFFFFFE},
		{desc: "mulhu max", op: riscv.MULHU, width: riscv.Double, a: ^uint64(0), b: ^uint64(0), want: 0xFFFFFFFFFFFFFFFE},
		{desc: "rem", op: riscv.REM, width: riscv.Double, a: 10, b: 3, want: 1},
		{desc: "rem follows dividend sign", op: riscv.REM, width: riscv.Double, a: i64(-10), b: 3, want: i64(-1)},
		{desc: "rem negative divisor", op: riscv.REM, width: riscv.Double, a: 10, b: i64(-3), want: 1},
		{desc: "div truncates toward zero", op: riscv.DIV, width: riscv.Double, a: i64(-7), b: 2, want: i64(-3)},
		{desc: "div zero dividend", op: riscv.DIV, width: riscv.Double, a: 0, b: 5, want: 0},
		{desc: "rem zero dividend", op: riscv.REM, width: riscv.Double, a: 0, b: i64(-5), want: 0},
	})
}

// Vectors shared with other RV64M emulators.
func TestEvaluateMultiply(t *testing.T) {
	runEvalCases(t, []evalCase{
		{desc: "mul", op: riscv.MUL, a: 6, b: 7, want: 42},
		{desc: "mul wraps", op: riscv.MUL, a: 0x8000000000000000, b: 2, want: 0},
		{desc: "mulh small", op: riscv.MULH, a: 2, b: 3, want: 0},
		{desc: "mulh", op: riscv.MULH, a: 3, b: 0x7fffffffffffffff, want: 1},
		{desc: "mulh 2", op: riscv.MULH, a: i64(-3), b: 0x7fffffffffffffff, want: i64(-2)},
		{desc: "mulh overflow", op: riscv.MULH, a: 0x57acca70cafebabe, b: 0x57edfa57f005ba11, want: 0x1e1d39809b0765be},
		{desc: "mulh overflow neg", op: riscv.MULH, a: i64(-0x57acca70cafebabe), b: 0x57edfa57f005ba11, want: i64(-0x1e1d39809b0765bf)},
		{desc: "mulh overflow neg neg", op: riscv.MULH, a: i64(-0x57acca70cafebabe), b: i64(-0x57edfa57f005ba11), want: 0x1e1d39809b0765be},
		{desc: "mulh max", op: riscv.MULH, a: ^uint64(0), b: ^uint64(0), want: 0},
		{desc: "mulh neg max", op: riscv.MULH, a: ^uint64(0), b: 0x7fffffffffffffff, want: ^uint64(0)},
		{desc: "mulh min min", op: riscv.MULH, a: 0x8000000000000000, b: 0x8000000000000000, want: 0x4000000000000000},
		{desc: "mulhsu small", op: riscv.MULHSU, a: 2, b: 3, want: 0},
		{desc: "mulhsu", op: riscv.MULHSU, a: 3, b: 0x7fffffffffffffff, want: 1},
		{desc: "mulhsu neg by max unsigned", op: riscv.MULHSU, a: ^uint64(0), b: ^uint64(0), want: ^uint64(0)},
		{desc: "mulhsu neg by one", op: riscv.MULHSU, a: ^uint64(0), b: 1, want: ^uint64(0)},
		{desc: "mulhu", op: riscv.MULHU, a: 2, b: 3, want: 0},
		{desc: "mulhu overflow", op: riscv.MULHU, a: 0x57acca70cafebabe, b: 0x57edfa57f005ba11, want: 0x1e1d39809b0765be},
		{desc: "mulhu overflow 2", op: riscv.MULHU, a: 0xa853358f35014542, b: 0xa81205a80ffa45ef, want: 0x6e8274b7e002f0ef},
	})
}

func TestAllOnesDivergesBySignedness(t *testing.T) {
	m := NewModel(Config{})
	ones := ^uint64(0)
	mulh, err := m.Evaluate(ones, ones, riscv.MULH, riscv.Double)
	require.NoError(t, err)
	mulhsu, err := m.Evaluate(ones, ones, riscv.MULHSU, riscv.Double)
	require.NoError(t, err)
	mulhu, err := m.Evaluate(ones, ones, riscv.MULHU, riscv.Double)
	require.NoError(t, err)
	require.Equal(t, uint64(0), mulh, "(-1)*(-1) = 1")
	require.Equal(t, ones, mulhsu, "(-1)*(2^64-1) is negative")
	require.Equal(t, ones-1, mulhu)
}

func TestEvaluateWordMultiply(t *testing.T) {
	runEvalCases(t, []evalCase{
		{desc: "mulw ignores high bits", op: riscv.MUL, width: riscv.Word, a: 0xFFFFFFFF_00000003, b: 0x12345678_00000005, want: 15},
		{desc: "mulw negative", op: riscv.MUL, width: riscv.Word, a: 0xFFFFFFFF, b: 3, want: i64(-3)},
		{desc: "mulw masked", op: riscv.MUL, width: riscv.Word, a: 0x7FFFFFFF, b: 2, want: 0xFFFFFFFE, config: Config{MulWord: MulWordMask}},
		{desc: "word mulh as double", op: riscv.MULH, width: riscv.Word, a: 3, b: 0x7fffffffffffffff, want: 1},
		{desc: "word mulhu as double", op: riscv.MULHU, width: riscv.Word, a: ^uint64(0), b: ^uint64(0), want: 0xFFFFFFFFFFFFFFFE},
		{desc: "word mulh upper32", op: riscv.MULH, width: riscv.Word, a: 0x80000000, b: 0x80000000, want: 0x40000000, config: Config{WordHigh: WordHighUpper32}},
		{desc: "word mulh upper32 negative", op: riscv.MULH, width: riscv.Word, a: 0xFFFFFFFF, b: 1, want: ^uint64(0), config: Config{WordHigh: WordHighUpper32}},
		{desc: "word mulhsu upper32", op: riscv.MULHSU, width: riscv.Word, a: 0xFFFFFFFF, b: 0xFFFFFFFF, want: ^uint64(0), config: Config{WordHigh: WordHighUpper32}},
		{desc: "word mulhu upper32", op: riscv.MULHU, width: riscv.Word, a: 0xFFFFFFFF, b: 0xFFFFFFFF, want: 0xFFFFFFFFFFFFFFFE, config: Config{WordHigh: WordHighUpper32}},
	})
}

func TestEvaluateWordDivide(t *testing.T) {
	runEvalCases(t, []evalCase{
		{desc: "divw", op: riscv.DIV, width: riscv.Word, a: 0xFFFFFFF6, b: 3, want: 0xFFFFFFFD},
		{desc: "divw ignores high bits", op: riscv.DIV, width: riscv.Word, a: 0xAAAAAAAA_00000064, b: 0x55555555_0000000A, want: 10},
		{desc: "divuw", op: riscv.DIVU, width: riscv.Word, a: 0xFFFFFFF6, b: 3, want: 0x55555552},
		{desc: "remw", op: riscv.REM, width: riscv.Word, a: 0xFFFFFFF6, b: 3, want: 0xFFFFFFFF},
		{desc: "remuw", op: riscv.REMU, width: riscv.Word, a: 0xFFFFFFF6, b: 3, want: 0},
		{desc: "remw zero dividend", op: riscv.REM, width: riscv.Word, a: 0, b: 7, want: 0},
	})
}

func TestSignedOverflow(t *testing.T) {
	runEvalCases(t, []evalCase{
		{desc: "div double", op: riscv.DIV, width: riscv.Double, a: 0x8000000000000000, b: ^uint64(0), want: 0x8000000000000000},
		{desc: "rem double", op: riscv.REM, width: riscv.Double, a: 0x8000000000000000, b: ^uint64(0), want: 0},
		{desc: "div word", op: riscv.DIV, width: riscv.Word, a: 0x80000000, b: 0xFFFFFFFF, want: 0x80000000},
		{desc: "rem word", op: riscv.REM, width: riscv.Word, a: 0x80000000, b: 0xFFFFFFFF, want: 0},
		{desc: "divu is not overflow", op: riscv.DIVU, width: riscv.Double, a: 0x8000000000000000, b: ^uint64(0), want: 0},
	})
}

func TestDivideByZero(t *testing.T) {
	dividends := []uint64{0, 1, 10, ^uint64(0), 0x8000000000000000, 0xDEADBEEF_CAFEBABE}
	divOps := []riscv.Opcode{riscv.DIV, riscv.DIVU, riscv.REM, riscv.REMU}
	for _, width := range []riscv.Width{riscv.Double, riscv.Word} {
		for _, op := range divOps {
			for _, a := range dividends {
				name := fmt.Sprintf("%s/%s/%#x", op, width, a)
				t.Run(name, func(t *testing.T) {
					masked, err := NewModel(Config{DivZero: DivZeroMasked}).Evaluate(a, 0, op, width)
					require.NoError(t, err)
					require.Equal(t, width.Mask(), masked)

					raw, err := NewModel(Config{DivZero: DivZeroRaw}).Evaluate(a, 0, op, width)
					require.NoError(t, err)
					require.Equal(t, ^uint64(0), raw)
					require.Equal(t, masked&width.Mask(), raw&width.Mask(), "variants agree under the comparison mask")

					isa, err := NewModel(Config{DivZero: DivZeroISA}).Evaluate(a, 0, op, width)
					require.NoError(t, err)
					switch op {
					case riscv.REM, riscv.REMU:
						require.Equal(t, a&width.Mask(), isa&width.Mask())
					default:
						require.Equal(t, ^uint64(0), isa)
					}
				})
			}
		}
	}
}

func TestWordDivisorZeroInLowWord(t *testing.T) {
	m := NewModel(Config{})
	got, err := m.Evaluate(1234, 0x8000000000000000, riscv.DIVU, riscv.Word)
	require.NoError(t, err)
	require.Equal(t, uint64(0xFFFFFFFF), got)

	got, err = m.Evaluate(1234, 0x8000000000000000, riscv.DIVU, riscv.Double)
	require.NoError(t, err)
	require.Equal(t, uint64(0), got)
}

func TestWordHighIllegal(t *testing.T) {
	cfg := Config{WordHigh: WordHighIllegal}
	m := NewModel(cfg)
	for _, op := range []riscv.Opcode{riscv.MULH, riscv.MULHSU, riscv.MULHU} {
		require.False(t, cfg.Legal(op, riscv.Word))
		require.True(t, cfg.Legal(op, riscv.Double))
		_, err := m.Evaluate(1, 1, op, riscv.Word)
		require.ErrorIs(t, err, ErrIllegalOperation)
	}
	require.True(t, cfg.Legal(riscv.MUL, riscv.Word))
	require.False(t, cfg.Legal(riscv.Opcode(8), riscv.Double))

	_, err := NewModel(Config{}).Evaluate(1, 1, riscv.Opcode(9), riscv.Double)
	require.ErrorIs(t, err, ErrIllegalOperation)
	_, err = NewModel(Config{}).Evaluate(1, 1, riscv.MUL, riscv.Width(3))
	require.ErrorContains(t, err, "invalid width")
}

func TestExpectedUsesStimulus(t *testing.T) {
	m := NewModel(Config{})
	got, err := m.Expected(codec.Stimulus{Width: riscv.Word, Opcode: riscv.MUL, Op1: 0x7FFFFFFF, Op2: 2})
	require.NoError(t, err)
	require.Equal(t, uint64(0xFFFFFFFFFFFFFFFE), got)
}

func TestParsePolicies(t *testing.T) {
	dz, err := ParseDivZeroPolicy("ISA")
	require.NoError(t, err)
	require.Equal(t, DivZeroISA, dz)
	require.Equal(t, "isa", dz.String())

	mw, err := ParseMulWordPolicy("mask")
	require.NoError(t, err)
	require.Equal(t, MulWordMask, mw)

	wh, err := ParseWordHighPolicy(" upper32 ")
	require.NoError(t, err)
	require.Equal(t, WordHighUpper32, wh)

	_, err = ParseWordHighPolicy("bogus")
	require.ErrorContains(t, err, "expected one of double, upper32, illegal")
	require.Equal(t, "policy(9)", DivZeroPolicy(9).String())
}
