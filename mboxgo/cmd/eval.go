package cmd

import (
	"fmt"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/ethereum-optimism/mbox/mboxgo/codec"
	"github.com/ethereum-optimism/mbox/mboxgo/fast"
	"github.com/ethereum-optimism/mbox/mboxgo/riscv"
)

var (
	EvalOpFlag = &cli.StringFlag{
		Name:  "op",
		Usage: "Operation mnemonic or funct3 number; a W suffix selects word mode",
		Value: "MUL",
	}
	EvalWidthFlag = &cli.StringFlag{
		Name:  "width",
		Usage: "Operand width: double or word. Overrides the W suffix of --op",
	}
	EvalIn1Flag = &cli.StringFlag{
		Name:  "in1",
		Usage: "First operand, decimal or 0x-prefixed hex",
		Value: "0",
	}
	EvalIn2Flag = &cli.StringFlag{
		Name:  "in2",
		Usage: "Second operand, decimal or 0x-prefixed hex",
		Value: "0",
	}
)

func parseOperand(s string) (uint64, error) {
	if v, err := strconv.ParseUint(s, 0, 64); err == nil {
		return v, nil
	}
	v, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid operand %q", s)
	}
	return uint64(v), nil
}

func evalStimulus(ctx *cli.Context) (codec.Stimulus, error) {
	op := ctx.String(EvalOpFlag.Name)
	opcode, err := riscv.ParseOpcode(op)
	if err != nil {
		return codec.Stimulus{}, err
	}
	s := codec.Stimulus{Opcode: opcode}
	if w := ctx.String(EvalWidthFlag.Name); w != "" {
		if s.Width, err = riscv.ParseWidth(w); err != nil {
			return codec.Stimulus{}, err
		}
	} else if len(op) > 0 && (op[len(op)-1] == 'w' || op[len(op)-1] == 'W') {
		s.Width = riscv.Word
	}
	if s.Op1, err = parseOperand(ctx.String(EvalIn1Flag.Name)); err != nil {
		return codec.Stimulus{}, err
	}
	if s.Op2, err = parseOperand(ctx.String(EvalIn2Flag.Name)); err != nil {
		return codec.Stimulus{}, err
	}
	return s, nil
}

func Eval(ctx *cli.Context) error {
	l, err := loggerFromFlags(ctx)
	if err != nil {
		return err
	}
	s, err := evalStimulus(ctx)
	if err != nil {
		return err
	}
	cfg, err := modelConfigFromFlags(ctx)
	if err != nil {
		return err
	}
	result, err := fast.NewModel(cfg).Expected(s)
	if err != nil {
		return err
	}
	l.Debug("evaluated", "stimulus", s.String(), "result", HexU64(result), "key", codec.KeyHex(s.Key()))
	_, err = fmt.Fprintf(ctx.App.Writer, "0x%016x\n", result&s.Width.Mask())
	return err
}

var EvalCommand = &cli.Command{
	Name:        "eval",
	Usage:       "Evaluate one operation with the reference model",
	Description: "Evaluate one operation with the reference model and print the result under the operative-width mask.",
	Action:      Eval,
	Flags: append(append([]cli.Flag{
		EvalOpFlag,
		EvalWidthFlag,
		EvalIn1Flag,
		EvalIn2Flag,
	}, modelFlags...), logFlags...),
}
