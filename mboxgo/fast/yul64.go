package fast

import "github.com/holiman/uint256"

// Native 64-bit helpers, named after the slow-mode functions they mirror.

type U64 = uint64

func toU64(v uint8) U64 { return uint64(v) }

func u256ToU64(v U256) U64 {
	return v.Uint64()
}

func u64ToU256(v U64) U256 {
	return *uint256.NewInt(v)
}

func u64Mask() uint64 { // max uint64
	return 0xFFFF_FFFF_FFFF_FFFF
}

func u32Mask() uint64 {
	return 0xFFFF_FFFF
}

func mask32Signed64(v U64) U64 {
	return signExtend64(and64(v, u32Mask()), toU64(31))
}

func signExtend64(v uint64, bit uint64) uint64 {
	switch and64(v, shl64(bit, 1)) {
	case 0:
		// fill with zeroes, by masking
		return and64(v, shr64(sub64(63, bit), u64Mask()))
	default:
		// fill with ones, by or-ing
		return or64(v, shl64(bit, shr64(bit, u64Mask())))
	}
}

func signExtend64To256(v U64) U256 {
	switch v & (1 << 63) {
	case 0:
		return *new(uint256.Int).SetUint64(v)
	default:
		return or(shl(toU256(64), not(U256{})), *new(uint256.Int).SetUint64(v))
	}
}

func sub64(x, y uint64) uint64 {
	return x - y
}

func mul64(x, y uint64) uint64 {
	return x * y
}

func div64(x, y uint64) uint64 {
	if y == 0 {
		return 0
	}
	return x / y
}

func sdiv64(x, y uint64) uint64 {
	if y == 0 {
		return 0
	}
	if x == uint64(1<<63) && y == ^uint64(0) {
		return 1 << 63
	}
	return uint64(int64(x) / int64(y))
}

func mod64(x, y uint64) uint64 {
	if y == 0 {
		return 0
	}
	return x % y
}

func smod64(x, y uint64) uint64 {
	if y == 0 {
		return 0
	}
	if x == uint64(1<<63) && y == ^uint64(0) {
		return 0
	}
	return uint64(int64(x) % int64(y))
}

func and64(x, y uint64) uint64 {
	return x & y
}

func or64(x, y uint64) uint64 {
	return x | y
}

// returns y << x
func shl64(x, y uint64) uint64 {
	return y << x
}

// returns y >> x
func shr64(x, y uint64) uint64 {
	return y >> x
}

// returns y >> x (signed)
func sar64(x, y uint64) uint64 {
	return uint64(int64(y) >> x)
}
