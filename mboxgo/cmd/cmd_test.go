package cmd

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/ethereum-optimism/optimism/op-service/jsonutil"

	"github.com/ethereum-optimism/mbox/mboxgo/codec"
	"github.com/ethereum-optimism/mbox/mboxgo/corpus"
	"github.com/ethereum-optimism/mbox/mboxgo/coverage"
	"github.com/ethereum-optimism/mbox/mboxgo/riscv"
	"github.com/ethereum-optimism/mbox/mboxgo/verify"
)

func runApp(t *testing.T, args ...string) (string, error) {
	var out bytes.Buffer
	app := &cli.App{
		Name:      "mbox",
		Writer:    &out,
		ErrWriter: io.Discard,
		Commands:  []*cli.Command{RunCommand, ReplayCommand, EvalCommand},
	}
	err := app.RunContext(context.Background(), append([]string{"mbox"}, args...))
	return out.String(), err
}

func TestEval(t *testing.T) {
	cases := []struct {
		args []string
		want string
	}{
		{[]string{"--op", "MUL", "--in1", "6", "--in2", "7"}, "0x000000000000002a\n"},
		{[]string{"--op", "DIVW", "--in1", "-10", "--in2", "3"}, "0x00000000fffffffd\n"},
		{[]string{"--op", "rem", "--in1", "5", "--in2", "0"}, "0x0000000000000005\n"},
		{[]string{"--op", "rem", "--in1", "5", "--in2", "0", "--divzero", "masked"}, "0xffffffffffffffff\n"},
		{[]string{"--op", "4", "--width", "word", "--in1", "0x80000000", "--in2", "0xFFFFFFFF"}, "0x0000000080000000\n"},
		{[]string{"--op", "MULHU", "--in1", "0xFFFFFFFFFFFFFFFF", "--in2", "0xFFFFFFFFFFFFFFFF"}, "0xfffffffffffffffe\n"},
	}
	for _, c := range cases {
		t.Run(c.args[1], func(t *testing.T) {
			out, err := runApp(t, append([]string{"eval"}, c.args...)...)
			require.NoError(t, err)
			require.Equal(t, c.want, out)
		})
	}

	_, err := runApp(t, "eval", "--op", "MULHW", "--word-high", "illegal")
	require.ErrorContains(t, err, "illegal operation")
	_, err = runApp(t, "eval", "--op", "FOO")
	require.Error(t, err)
	_, err = runApp(t, "eval", "--in1", "nope")
	require.Error(t, err)
}

func TestRunFullCoverage(t *testing.T) {
	dir := t.TempDir()
	covPath := filepath.Join(dir, "coverage.yaml")
	summaryPath := filepath.Join(dir, "summary.json")
	out, err := runApp(t, "run",
		"--corners", "basic",
		"--seed", "5",
		"--coverage-out", covPath,
		"--summary-out", summaryPath,
		"--log.level", "error",
	)
	require.NoError(t, err)
	require.Contains(t, out, "top: ")
	require.Contains(t, out, "(100.00%)")

	report, err := coverage.ReadYAML(covPath)
	require.NoError(t, err)
	require.Equal(t, 100.0, report.Root.Percentage)

	summary, err := jsonutil.LoadJSON[RunOutput](summaryPath)
	require.NoError(t, err)
	require.True(t, summary.Complete)
	require.Equal(t, uint64(5), summary.Seed)
	require.Equal(t, "basic", summary.Corners)
	require.NotZero(t, summary.Cycles)
	require.Nil(t, summary.Mismatch)
}

func TestRunMismatchAndReplay(t *testing.T) {
	dir := t.TempDir()
	corpusDir := filepath.Join(dir, "corpus")
	reportPath := filepath.Join(dir, "report.json")
	_, err := runApp(t, "run",
		"--corners", "basic",
		"--seed", "5",
		"--inject-fault", "REMU:word:0x1",
		"--corpus", corpusDir,
		"--report-out", reportPath,
		"--log.level", "crit",
	)
	var mismatch *verify.VerificationMismatch
	require.ErrorAs(t, err, &mismatch)
	require.Equal(t, riscv.REMU, mismatch.Stimulus.Opcode)
	require.Equal(t, riscv.Word, mismatch.Stimulus.Width)

	report, err := jsonutil.LoadJSON[verify.MismatchReport](reportPath)
	require.NoError(t, err)
	s, err := report.Stimulus()
	require.NoError(t, err)
	require.Equal(t, mismatch.Stimulus, s)

	store, err := corpus.Open(corpusDir)
	require.NoError(t, err)
	stimuli, err := store.Stimuli()
	require.NoError(t, err)
	require.Equal(t, []codec.Stimulus{mismatch.Stimulus}, stimuli)
	require.NoError(t, store.Close())

	// the recorded failure reproduces with the fault and passes without it
	_, err = runApp(t, "replay", "--report", reportPath, "--inject-fault", "REMU:word:0x1", "--log.level", "crit")
	require.ErrorAs(t, err, &mismatch)
	_, err = runApp(t, "replay", "--corpus", corpusDir, "--log.level", "crit")
	require.NoError(t, err)
	_, err = runApp(t, "replay", "--key", codec.KeyHex(mismatch.Stimulus.Key()), "--log.level", "crit")
	require.NoError(t, err)
}

func TestRunIterationCap(t *testing.T) {
	summaryPath := filepath.Join(t.TempDir(), "summary.json")
	_, err := runApp(t, "run", "--iterations", "50", "--seed", "1", "--summary-out", summaryPath, "--log.level", "crit")
	require.NoError(t, err)
	summary, err := jsonutil.LoadJSON[RunOutput](summaryPath)
	require.NoError(t, err)
	require.False(t, summary.Complete)
	require.Equal(t, uint64(50), summary.Iterations)
	require.NotEmpty(t, summary.Missing)
}

func TestRunInvalidFlags(t *testing.T) {
	_, err := runApp(t, "run", "--corners", "huge")
	require.ErrorContains(t, err, "unknown corner set")
	_, err = runApp(t, "run", "--divzero", "never")
	require.ErrorContains(t, err, "unknown divide-by-zero policy")
	_, err = runApp(t, "run", "--inject-fault", "DIV")
	require.ErrorContains(t, err, "inject-fault")
	_, err = runApp(t, "run", "--log.format", "xml")
	require.ErrorContains(t, err, "unknown log format")
	_, err = runApp(t, "replay")
	require.ErrorContains(t, err, "nothing to replay")
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]int{"trace": int(log.LevelTrace), "DEBUG": int(log.LevelDebug), "": int(log.LevelInfo), "warn": int(log.LevelWarn), "crit": int(log.LevelCrit)} {
		lvl, err := ParseLevel(in)
		require.NoError(t, err)
		require.Equal(t, want, int(lvl), in)
	}
	_, err := ParseLevel("loud")
	require.Error(t, err)
}

func TestLoggerFormats(t *testing.T) {
	for _, format := range []string{"logfmt", "terminal", "json"} {
		var buf bytes.Buffer
		l, err := Logger(&buf, log.LevelInfo, format)
		require.NoError(t, err)
		l.Info("hello", "v", HexU64(0xBEEF))
		require.Contains(t, buf.String(), "000000000000beef", format)
	}
}

func TestPrefixEnvVars(t *testing.T) {
	require.Equal(t, []string{"MBOX_DEVICE_LATENCY_MUL"}, prefixEnvVars("device.latency-mul"))
}
