package device

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum-optimism/mbox/mboxgo/riscv"
)

// ParseFault parses opcode:width:xor, e.g. "DIV:double:0x1" or "mulw:word:ff".
// A W-suffixed mnemonic implies word width, so "REMUW:0x10" is accepted as well.
func ParseFault(s string) (Fault, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	var f Fault
	switch len(parts) {
	case 2, 3:
	default:
		return Fault{}, fmt.Errorf("invalid fault %q, expected opcode:width:xor", s)
	}
	op, err := riscv.ParseOpcode(parts[0])
	if err != nil {
		return Fault{}, err
	}
	f.Opcode = op
	// no base mnemonic ends in W
	word := strings.HasSuffix(strings.ToUpper(strings.TrimSpace(parts[0])), "W")
	if len(parts) == 3 {
		w, err := riscv.ParseWidth(parts[1])
		if err != nil {
			return Fault{}, err
		}
		f.Width = w
	} else if word {
		f.Width = riscv.Word
	} else {
		return Fault{}, fmt.Errorf("invalid fault %q, width is required for %s", s, op)
	}
	xor, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(parts[len(parts)-1]), "0x"), 16, 64)
	if err != nil {
		return Fault{}, fmt.Errorf("invalid fault mask in %q: %w", s, err)
	}
	if xor == 0 {
		return Fault{}, fmt.Errorf("invalid fault %q, zero mask corrupts nothing", s)
	}
	f.Xor = xor
	return f, nil
}
