package fast

import "github.com/holiman/uint256"

// 256-bit helpers, wide enough for any 64x64 product regardless of operand signedness.

type U256 = uint256.Int

func toU256(v uint8) U256 {
	return *uint256.NewInt(uint64(v))
}

func mul(x, y U256) (out U256) {
	out.Mul(&x, &y)
	return
}

func not(x U256) (out U256) {
	out.Not(&x)
	return
}

func or(x, y U256) (out U256) {
	out.Or(&x, &y)
	return
}

// returns y << x
func shl(x, y U256) (out U256) {
	if !x.IsUint64() || x.Uint64() >= 256 {
		return
	}
	out.Lsh(&y, uint(x.Uint64()))
	return
}

// returns y >> x
func shr(x, y U256) (out U256) {
	if !x.IsUint64() || x.Uint64() >= 256 {
		return
	}
	out.Rsh(&y, uint(x.Uint64()))
	return
}
