package slow

import "github.com/holiman/uint256"

// EVM-style 256-bit word functions. Everything in this package is built from these.

type U256 = uint256.Int

func sub(x, y U256) (out U256) {
	out.Sub(&x, &y)
	return
}

func mul(x, y U256) (out U256) {
	out.Mul(&x, &y)
	return
}

func div(x, y U256) (out U256) {
	out.Div(&x, &y)
	return
}

func sdiv(x, y U256) (out U256) { // note: signed overflow semantics are the same between Go and EVM assembly
	out.SDiv(&x, &y)
	return
}

func mod(x, y U256) (out U256) {
	out.Mod(&x, &y)
	return
}

func smod(x, y U256) (out U256) {
	out.SMod(&x, &y)
	return
}

func not(x U256) (out U256) {
	out.Not(&x)
	return
}

func iszero(x U256) bool {
	return x.IsZero()
}

func and(x, y U256) (out U256) {
	out.And(&x, &y)
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
