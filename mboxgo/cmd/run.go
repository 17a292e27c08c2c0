package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/pkg/profile"
	"github.com/urfave/cli/v2"

	"github.com/ethereum-optimism/optimism/op-service/jsonutil"

	"github.com/ethereum-optimism/mbox/mboxgo/corpus"
	"github.com/ethereum-optimism/mbox/mboxgo/fast"
	"github.com/ethereum-optimism/mbox/mboxgo/verify"
)

var (
	RunIterationsFlag = &cli.Uint64Flag{
		Name:    "iterations",
		Usage:   "Maximum number of verified stimuli before the run stops, 0 for no limit",
		Value:   10000,
		EnvVars: prefixEnvVars("iterations"),
	}
	RunCornersFlag = &cli.StringFlag{
		Name:    "corners",
		Usage:   "Corner-case operand set for the exhaustive phase: basic or extended",
		Value:   "extended",
		EnvVars: prefixEnvVars("corners"),
	}
	RunSeedFlag = &cli.Uint64Flag{
		Name:    "seed",
		Usage:   "Seed of the random fallback phase, defaults to a time-based seed",
		EnvVars: prefixEnvVars("seed"),
	}
	RunAtLeastFlag = &cli.Uint64Flag{
		Name:    "at-least",
		Usage:   "Hits a coverage bin needs to count as covered",
		Value:   1,
		EnvVars: prefixEnvVars("at-least"),
	}
	RunCoverageOutFlag = &cli.PathFlag{
		Name:    "coverage-out",
		Usage:   "Write the coverage database as YAML to this path",
		EnvVars: prefixEnvVars("coverage-out"),
	}
	RunSummaryOutFlag = &cli.PathFlag{
		Name:    "summary-out",
		Usage:   "Write the run summary as JSON to this path, - for stdout",
		EnvVars: prefixEnvVars("summary-out"),
	}
	RunReportOutFlag = &cli.PathFlag{
		Name:    "report-out",
		Usage:   "Write the mismatch report as JSON to this path when the run fails on a mismatch",
		EnvVars: prefixEnvVars("report-out"),
	}
)

// RunOutput is the JSON summary of a run.
type RunOutput struct {
	*verify.Summary
	Corners  string                 `json:"corners"`
	Model    fast.Config            `json:"model"`
	Cycles   uint64                 `json:"cycles"`
	Mismatch *verify.MismatchReport `json:"mismatch,omitempty"`
}

func Run(ctx *cli.Context) error {
	if ctx.Bool(PProfCPUFlag.Name) {
		defer profile.Start(profile.NoShutdownHook, profile.ProfilePath("."), profile.CPUProfile).Stop()
	}

	l, err := loggerFromFlags(ctx)
	if err != nil {
		return err
	}
	corners, err := cornersFromFlags(ctx, RunCornersFlag.Name)
	if err != nil {
		return err
	}
	model, err := modelConfigFromFlags(ctx)
	if err != nil {
		return err
	}
	dev, err := deviceFromFlags(ctx)
	if err != nil {
		return err
	}
	seed := ctx.Uint64(RunSeedFlag.Name)
	if !ctx.IsSet(RunSeedFlag.Name) {
		seed = uint64(time.Now().UnixNano())
	}

	var opts []verify.Option
	if dir := ctx.Path(CorpusFlag.Name); dir != "" {
		store, err := corpus.Open(dir)
		if err != nil {
			return err
		}
		defer func() {
			if err := store.Close(); err != nil {
				l.Error("failed to close failure corpus", "err", err)
			}
		}()
		opts = append(opts, verify.WithFailureSink(store))
	}
	for _, f := range dev.Faults() {
		l.Warn("injecting device fault", "fault", f.String())
	}

	runner := verify.NewRunner(verify.Config{
		MaxIterations:       ctx.Uint64(RunIterationsFlag.Name),
		Corners:             corners,
		Seed:                seed,
		Model:               model,
		AtLeast:             ctx.Uint64(RunAtLeastFlag.Name),
		StrictSignExtension: ctx.Bool(StrictSignExtFlag.Name),
	}, dev, l, opts...)

	start := time.Now()
	summary, runErr := runner.Run(ctx.Context)
	delta := time.Since(start)
	l.Info("run ended",
		"iterations", summary.Iterations,
		"cycles", dev.Cycles(),
		"ips", float64(summary.Iterations)/(float64(delta)/float64(time.Second)),
		"seed", summary.Seed,
	)

	report := runner.Coverage().Report()
	if _, err := fmt.Fprint(ctx.App.Writer, report.String()); err != nil {
		return err
	}
	if path := ctx.Path(RunCoverageOutFlag.Name); path != "" {
		if err := report.WriteYAML(path, OutFilePerm); err != nil {
			return fmt.Errorf("failed to write coverage: %w", err)
		}
	}

	out := &RunOutput{
		Summary: summary,
		Corners: ctx.String(RunCornersFlag.Name),
		Model:   model,
		Cycles:  dev.Cycles(),
	}
	var mismatch *verify.VerificationMismatch
	if errors.As(runErr, &mismatch) {
		out.Mismatch = mismatch.Report()
		if path := ctx.Path(RunReportOutFlag.Name); path != "" {
			if err := jsonutil.WriteJSON(path, out.Mismatch, OutFilePerm); err != nil {
				return errors.Join(runErr, fmt.Errorf("failed to write mismatch report: %w", err))
			}
		}
	}
	if path := ctx.Path(RunSummaryOutFlag.Name); path != "" {
		if err := jsonutil.WriteJSON(path, out, OutFilePerm); err != nil {
			return errors.Join(runErr, fmt.Errorf("failed to write summary: %w", err))
		}
	}
	return runErr
}

var RunCommand = &cli.Command{
	Name:        "run",
	Usage:       "Verify the mul/div unit until full coverage or the iteration limit",
	Description: "Drive unique stimuli through the emulated mul/div unit, compare every result against the reference model and track functional coverage. The run stops on the first mismatch.",
	Action:      Run,
	Flags: append(append(append([]cli.Flag{
		RunIterationsFlag,
		RunCornersFlag,
		RunSeedFlag,
		RunAtLeastFlag,
		RunCoverageOutFlag,
		RunSummaryOutFlag,
		RunReportOutFlag,
		CorpusFlag,
		PProfCPUFlag,
	}, modelFlags...), deviceFlags...), logFlags...),
}
