package stimulus

import (
	"fmt"
	"strings"
)

// BasicCorners is the minimal boundary set: zero, one, -1 and the 32-bit sign boundaries.
var BasicCorners = []uint64{
	0x0000_0000,
	0x0000_0001,
	0xFFFF_FFFF_FFFF_FFFF, // -1
	0xFFFF_FFFF,
	0x7FFF_FFFF,
	0x8000_0000,
}

// ExtendedCorners adds half-word boundaries, recognizable patterns and the 64-bit sign boundaries.
var ExtendedCorners = []uint64{
	0x0000_0000, 0xFFFF_FFFF, 0x7FFF_FFFF, 0x8000_0000,
	0x0000_0001, 0xFFFF_FFFE, 0x0000_FFFF, 0xFFFF_0000,
	0x0001_0000, 0xDEAD_BEEF, 0x1234_5678, 0xCAFE_BABE,
	0xFFFF_FFFF_FFFF_FFFF, 0x8000_0000_0000_0000, 0x7FFF_FFFF_FFFF_FFFF,
}

// CornerSet resolves a named corner-case set.
func CornerSet(name string) ([]uint64, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "basic":
		return append([]uint64(nil), BasicCorners...), nil
	case "extended", "":
		return append([]uint64(nil), ExtendedCorners...), nil
	default:
		return nil, fmt.Errorf("unknown corner set %q, expected basic or extended", name)
	}
}
