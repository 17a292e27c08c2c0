package cmd

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/ethereum-optimism/optimism/op-service/jsonutil"

	"github.com/ethereum-optimism/mbox/mboxgo/codec"
	"github.com/ethereum-optimism/mbox/mboxgo/corpus"
	"github.com/ethereum-optimism/mbox/mboxgo/verify"
)

var (
	ReplayKeyFlag = &cli.StringSliceFlag{
		Name:    "key",
		Usage:   "Packed stimulus key to replay, as printed in a mismatch (hex)",
		EnvVars: prefixEnvVars("replay.key"),
	}
	ReplayReportFlag = &cli.PathFlag{
		Name:    "report",
		Usage:   "Mismatch report JSON written by run --report-out",
		EnvVars: prefixEnvVars("replay.report"),
	}
)

func replayStimuli(ctx *cli.Context) ([]codec.Stimulus, error) {
	var stimuli []codec.Stimulus
	for _, k := range ctx.StringSlice(ReplayKeyFlag.Name) {
		s, err := codec.ParseKey(k)
		if err != nil {
			return nil, fmt.Errorf("invalid --%s %q: %w", ReplayKeyFlag.Name, k, err)
		}
		stimuli = append(stimuli, s)
	}
	if path := ctx.Path(ReplayReportFlag.Name); path != "" {
		report, err := jsonutil.LoadJSON[verify.MismatchReport](path)
		if err != nil {
			return nil, fmt.Errorf("failed to load mismatch report: %w", err)
		}
		s, err := report.Stimulus()
		if err != nil {
			return nil, err
		}
		stimuli = append(stimuli, s)
	}
	if dir := ctx.Path(CorpusFlag.Name); dir != "" {
		store, err := corpus.Open(dir)
		if err != nil {
			return nil, err
		}
		stored, err := store.Stimuli()
		if cerr := store.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read failure corpus: %w", err)
		}
		stimuli = append(stimuli, stored...)
	}
	return stimuli, nil
}

func Replay(ctx *cli.Context) error {
	l, err := loggerFromFlags(ctx)
	if err != nil {
		return err
	}
	stimuli, err := replayStimuli(ctx)
	if err != nil {
		return err
	}
	if len(stimuli) == 0 {
		return fmt.Errorf("nothing to replay, set --%s, --%s or --%s", ReplayKeyFlag.Name, ReplayReportFlag.Name, CorpusFlag.Name)
	}
	model, err := modelConfigFromFlags(ctx)
	if err != nil {
		return err
	}
	dev, err := deviceFromFlags(ctx)
	if err != nil {
		return err
	}

	runner := verify.NewRunner(verify.Config{
		Model:               model,
		StrictSignExtension: ctx.Bool(StrictSignExtFlag.Name),
	}, dev, l)
	summary, err := runner.Replay(ctx.Context, stimuli)
	if err != nil {
		return err
	}
	l.Info("replay passed", "stimuli", len(stimuli), "verified", summary.Iterations, "cycles", dev.Cycles())
	return nil
}

var ReplayCommand = &cli.Command{
	Name:        "replay",
	Usage:       "Re-run recorded stimuli against the device and the reference model",
	Description: "Replay stimuli from packed keys, a mismatch report or a failure corpus. Fails on the first mismatch.",
	Action:      Replay,
	Flags: append(append(append([]cli.Flag{
		ReplayKeyFlag,
		ReplayReportFlag,
		CorpusFlag,
	}, modelFlags...), deviceFlags...), logFlags...),
}
