package verify

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/ethereum-optimism/mbox/mboxgo/codec"
	"github.com/ethereum-optimism/mbox/mboxgo/riscv"
)

// ErrDeviceTimeout matches any *DeviceTimeout with errors.Is.
var ErrDeviceTimeout = errors.New("device timeout")

// VerificationMismatch is raised when the device result diverges from the reference model.
// A single mismatch invalidates the device under test; it is never retried.
type VerificationMismatch struct {
	Stimulus codec.Stimulus
	Observed uint64
	Expected uint64
}

func (e *VerificationMismatch) Error() string {
	mask := e.Stimulus.Width.Mask()
	return fmt.Sprintf("[FAIL] %s => DUT=0x%X != expected=0x%X (replay key %s)",
		e.Stimulus, e.Observed&mask, e.Expected&mask, codec.KeyHex(e.Stimulus.Key()))
}

// Report converts the mismatch into its JSON artifact form.
func (e *VerificationMismatch) Report() *MismatchReport {
	return &MismatchReport{
		Opcode:   e.Stimulus.Opcode.String(),
		Funct3:   uint8(e.Stimulus.Opcode),
		Wordop:   uint8(e.Stimulus.Width),
		In1:      hexutil.Uint64(e.Stimulus.Op1),
		In2:      hexutil.Uint64(e.Stimulus.Op2),
		Observed: hexutil.Uint64(e.Observed),
		Expected: hexutil.Uint64(e.Expected),
		Key:      codec.KeyBytes(e.Stimulus.Key()),
	}
}

// MismatchReport carries everything needed to reproduce a failure. Key alone suffices.
type MismatchReport struct {
	Opcode   string         `json:"opcode"`
	Funct3   uint8          `json:"funct3"`
	Wordop   uint8          `json:"wordop"`
	In1      hexutil.Uint64 `json:"in1"`
	In2      hexutil.Uint64 `json:"in2"`
	Observed hexutil.Uint64 `json:"observed"`
	Expected hexutil.Uint64 `json:"expected"`
	Key      hexutil.Bytes  `json:"key"`
}

// Stimulus decodes the replay key of the report.
func (r *MismatchReport) Stimulus() (codec.Stimulus, error) {
	s, err := codec.FromKeyBytes(r.Key)
	if err != nil {
		return codec.Stimulus{}, fmt.Errorf("invalid mismatch report key: %w", err)
	}
	if s.Op1 != uint64(r.In1) || s.Op2 != uint64(r.In2) || uint8(s.Opcode) != r.Funct3 || uint8(s.Width) != r.Wordop {
		return codec.Stimulus{}, fmt.Errorf("mismatch report key %s does not match its fields", r.Key)
	}
	return s, nil
}

// DeviceTimeout is raised when the device never signals result availability.
type DeviceTimeout struct {
	Stimulus codec.Stimulus
	Cycles   uint64
}

func (e *DeviceTimeout) Error() string {
	return fmt.Sprintf("device did not signal ready within %d cycles for %s", e.Cycles, e.Stimulus)
}

func (e *DeviceTimeout) Is(target error) bool {
	return target == ErrDeviceTimeout
}

func widthName(w riscv.Width) string {
	if w == riscv.Word {
		return "W"
	}
	return ""
}
