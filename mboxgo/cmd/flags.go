package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/ethereum-optimism/mbox/mboxgo/device"
	"github.com/ethereum-optimism/mbox/mboxgo/fast"
	"github.com/ethereum-optimism/mbox/mboxgo/stimulus"
)

const envVarPrefix = "MBOX_"

func prefixEnvVars(name string) []string {
	return []string{envVarPrefix + strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(name))}
}

var OutFilePerm = os.FileMode(0o644)

var (
	LogLevelFlag = &cli.StringFlag{
		Name:    "log.level",
		Usage:   "The lowest log level that will be output: trace, debug, info, warn, error or crit",
		Value:   "info",
		EnvVars: prefixEnvVars("log.level"),
	}
	LogFormatFlag = &cli.StringFlag{
		Name:    "log.format",
		Usage:   "Format the log output: logfmt, terminal or json",
		Value:   "logfmt",
		EnvVars: prefixEnvVars("log.format"),
	}
	PProfCPUFlag = &cli.BoolFlag{
		Name:    "pprof.cpu",
		Usage:   "Enable pprof cpu profiling, written to the working directory",
		EnvVars: prefixEnvVars("pprof.cpu"),
	}

	DivZeroFlag = &cli.StringFlag{
		Name:    "divzero",
		Usage:   "Expected divide-by-zero results: masked (all-ones of the width), raw (64-bit all-ones) or isa (remainder returns the dividend)",
		Value:   fast.DivZeroISA.String(),
		EnvVars: prefixEnvVars("divzero"),
	}
	MulWordFlag = &cli.StringFlag{
		Name:    "mulw",
		Usage:   "Expected placement of the MULW result in the 64-bit lane: sext or mask",
		Value:   fast.MulWordSignExtend.String(),
		EnvVars: prefixEnvVars("mulw"),
	}
	WordHighFlag = &cli.StringFlag{
		Name:    "word-high",
		Usage:   "Meaning of MULH, MULHSU and MULHU with wordop set: double, upper32 or illegal",
		Value:   fast.WordHighDouble.String(),
		EnvVars: prefixEnvVars("word-high"),
	}
	StrictSignExtFlag = &cli.BoolFlag{
		Name:    "strict-sext",
		Usage:   "Also require word-mode results to be sign-extended into the full 64-bit lane",
		EnvVars: prefixEnvVars("strict-sext"),
	}

	DeviceMulLatencyFlag = &cli.Uint64Flag{
		Name:    "device.latency-mul",
		Usage:   "Cycles from enable to ready for the multiply family of the emulated device",
		Value:   device.DefaultMulLatency,
		EnvVars: prefixEnvVars("device.latency-mul"),
	}
	DeviceDivLatencyFlag = &cli.Uint64Flag{
		Name:    "device.latency-div",
		Usage:   "Cycles from enable to ready for the divide family of the emulated device",
		Value:   device.DefaultDivLatency,
		EnvVars: prefixEnvVars("device.latency-div"),
	}
	DeviceTimeoutFlag = &cli.Uint64Flag{
		Name:    "device.timeout",
		Usage:   "Cycles to wait for ready before failing with a device timeout",
		Value:   device.DefaultTimeout,
		EnvVars: prefixEnvVars("device.timeout"),
	}
	InjectFaultFlag = &cli.StringSliceFlag{
		Name:    "inject-fault",
		Usage:   "Corrupt emulated device results, as opcode:width:xorhex (e.g. DIV:word:0x1)",
		EnvVars: prefixEnvVars("inject-fault"),
	}

	CorpusFlag = &cli.PathFlag{
		Name:    "corpus",
		Usage:   "Directory of the failure corpus; mismatches are stored here and can be replayed",
		EnvVars: prefixEnvVars("corpus"),
	}
)

var logFlags = []cli.Flag{LogLevelFlag, LogFormatFlag}

var modelFlags = []cli.Flag{DivZeroFlag, MulWordFlag, WordHighFlag, StrictSignExtFlag}

var deviceFlags = []cli.Flag{DeviceMulLatencyFlag, DeviceDivLatencyFlag, DeviceTimeoutFlag, InjectFaultFlag}

func loggerFromFlags(ctx *cli.Context) (log.Logger, error) {
	lvl, err := ParseLevel(ctx.String(LogLevelFlag.Name))
	if err != nil {
		return nil, err
	}
	return Logger(ctx.App.ErrWriter, lvl, ctx.String(LogFormatFlag.Name))
}

func modelConfigFromFlags(ctx *cli.Context) (fast.Config, error) {
	var cfg fast.Config
	var err error
	if cfg.DivZero, err = fast.ParseDivZeroPolicy(ctx.String(DivZeroFlag.Name)); err != nil {
		return fast.Config{}, err
	}
	if cfg.MulWord, err = fast.ParseMulWordPolicy(ctx.String(MulWordFlag.Name)); err != nil {
		return fast.Config{}, err
	}
	if cfg.WordHigh, err = fast.ParseWordHighPolicy(ctx.String(WordHighFlag.Name)); err != nil {
		return fast.Config{}, err
	}
	return cfg, nil
}

func deviceFromFlags(ctx *cli.Context) (*device.Unit, error) {
	opts := []device.Option{
		device.WithLatency(ctx.Uint64(DeviceMulLatencyFlag.Name), ctx.Uint64(DeviceDivLatencyFlag.Name)),
		device.WithTimeout(ctx.Uint64(DeviceTimeoutFlag.Name)),
	}
	for _, s := range ctx.StringSlice(InjectFaultFlag.Name) {
		f, err := device.ParseFault(s)
		if err != nil {
			return nil, fmt.Errorf("invalid --%s: %w", InjectFaultFlag.Name, err)
		}
		opts = append(opts, device.WithFault(f))
	}
	return device.New(opts...), nil
}

func cornersFromFlags(ctx *cli.Context, name string) ([]uint64, error) {
	corners, err := stimulus.CornerSet(ctx.String(name))
	if err != nil {
		return nil, fmt.Errorf("invalid --%s: %w", name, err)
	}
	return corners, nil
}
