package verify

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/mbox/mboxgo/codec"
	"github.com/ethereum-optimism/mbox/mboxgo/coverage"
	"github.com/ethereum-optimism/mbox/mboxgo/fast"
	"github.com/ethereum-optimism/mbox/mboxgo/riscv"
	"github.com/ethereum-optimism/mbox/mboxgo/stimulus"
)

// Device is the unit under test: one packed stimulus in, the 64-bit result lane out.
// Execute blocks until the device signals ready, and fails with *DeviceTimeout if it never does.
type Device interface {
	Execute(ctx context.Context, word codec.Word) (uint64, error)
}

// FailureSink is notified of every mismatch before the run aborts.
type FailureSink interface {
	Record(m *VerificationMismatch) error
}

type Config struct {
	// MaxIterations caps the number of verified stimuli; zero means no cap.
	MaxIterations uint64
	Corners       []uint64
	Seed          uint64
	Model         fast.Config
	// AtLeast is the number of hits a coverage bin needs; zero means one.
	AtLeast uint64
	// StrictSignExtension also requires word-mode results to be sign-extended into the full lane.
	StrictSignExtension bool
}

// Summary describes how a run ended.
type Summary struct {
	Iterations uint64   `json:"iterations"`
	Coverage   float64  `json:"coverage"`
	Complete   bool     `json:"complete"`
	Exhausted  bool     `json:"exhausted"`
	Seed       uint64   `json:"seed"`
	Missing    []string `json:"missing,omitempty"`
}

type Option func(*Runner)

func WithFailureSink(sink FailureSink) Option {
	return func(r *Runner) {
		r.sink = sink
	}
}

// Runner owns the generator, its SeenSet and the coverage tracker for one run.
type Runner struct {
	cfg   Config
	log   log.Logger
	dev   Device
	model *fast.Model
	gen   *stimulus.Generator
	cov   *coverage.Tracker
	sink  FailureSink

	iterations   uint64
	lastProgress int
}

func NewRunner(cfg Config, dev Device, logger log.Logger, opts ...Option) *Runner {
	legal := cfg.Model.Legal
	r := &Runner{
		cfg:          cfg,
		log:          logger,
		dev:          dev,
		model:        fast.NewModel(cfg.Model),
		gen:          stimulus.New(cfg.Corners, stimulus.WithSeed(cfg.Seed), stimulus.WithLegal(legal)),
		cov:          coverage.NewTracker(cfg.Corners, coverage.WithAtLeast(cfg.AtLeast), coverage.WithLegal(legal)),
		lastProgress: -10,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runner) Coverage() *coverage.Tracker {
	return r.cov
}

func (r *Runner) Model() *fast.Model {
	return r.model
}

// Run verifies generated stimuli until coverage is complete or the iteration cap is hit.
// Reaching the cap is a soft completion: the error is nil and Summary.Complete is false.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	r.log.Info("starting verification run",
		"corners", len(r.cfg.Corners), "space", r.gen.Space(), "bins", r.cov.Size(),
		"max_iterations", r.cfg.MaxIterations, "seed", r.cfg.Seed,
		"divzero", r.cfg.Model.DivZero, "mulw", r.cfg.Model.MulWord, "word_high", r.cfg.Model.WordHigh)
	for !r.cov.Complete() {
		if r.cfg.MaxIterations != 0 && r.iterations >= r.cfg.MaxIterations {
			r.log.Warn("iteration cap reached before full coverage", "iterations", r.iterations, "coverage", r.cov.Coverage())
			break
		}
		if err := ctx.Err(); err != nil {
			return r.summary(), err
		}
		if err := r.Verify(ctx, r.gen.Next()); err != nil {
			return r.summary(), err
		}
	}
	s := r.summary()
	r.log.Info("verification run finished", "iterations", s.Iterations, "coverage", s.Coverage, "complete", s.Complete)
	return s, nil
}

// Replay verifies the given stimuli in order, e.g. keys taken from earlier failure reports.
func (r *Runner) Replay(ctx context.Context, stimuli []codec.Stimulus) (*Summary, error) {
	for i, s := range stimuli {
		if err := ctx.Err(); err != nil {
			return r.summary(), err
		}
		if !r.gen.Mark(s) {
			r.log.Debug("skipping repeated stimulus", "index", i, "key", codec.KeyHex(s.Key()))
			continue
		}
		if err := r.Verify(ctx, s); err != nil {
			return r.summary(), fmt.Errorf("replay of stimulus %d failed: %w", i, err)
		}
	}
	return r.summary(), nil
}

// Verify runs one stimulus through the device and the model, and records coverage on a match.
func (r *Runner) Verify(ctx context.Context, s codec.Stimulus) error {
	word, err := codec.Pack(s)
	if err != nil {
		return err
	}
	observed, err := r.dev.Execute(ctx, word)
	if err != nil {
		var timeout *DeviceTimeout
		if errors.As(err, &timeout) {
			r.log.Error("device timeout", "stimulus", s.String(), "cycles", timeout.Cycles)
		}
		return fmt.Errorf("device failed on %s: %w", s, err)
	}
	if err := r.Check(s, observed); err != nil {
		var mismatch *VerificationMismatch
		if errors.As(err, &mismatch) {
			r.log.Error("result mismatch", "op", s.Opcode.String()+widthName(s.Width),
				"in1", hexutil.Uint64(s.Op1), "in2", hexutil.Uint64(s.Op2),
				"observed", hexutil.Uint64(mismatch.Observed), "expected", hexutil.Uint64(mismatch.Expected),
				"key", codec.KeyHex(word))
			if r.sink != nil {
				if serr := r.sink.Record(mismatch); serr != nil {
					return errors.Join(err, fmt.Errorf("failed to record mismatch: %w", serr))
				}
			}
		}
		return err
	}
	r.iterations++
	r.cov.Record(s.Opcode, s.Width, s.Op1, s.Op2)
	r.log.Debug("pass", "op", s.Opcode.String()+widthName(s.Width),
		"in1", hexutil.Uint64(s.Op1), "in2", hexutil.Uint64(s.Op2), "result", hexutil.Uint64(observed&s.Width.Mask()))
	r.progress()
	return nil
}

// Check compares an observed result against the model under the operative-width mask.
func (r *Runner) Check(s codec.Stimulus, observed uint64) error {
	expected, err := r.model.Expected(s)
	if err != nil {
		return fmt.Errorf("reference model rejected %s: %w", s, err)
	}
	mask := s.Width.Mask()
	if observed&mask != expected&mask {
		return &VerificationMismatch{Stimulus: s, Observed: observed, Expected: expected}
	}
	if r.strictWord(s) && observed != riscv.SignExtend32(observed) {
		return &VerificationMismatch{Stimulus: s, Observed: observed, Expected: riscv.SignExtend32(expected)}
	}
	return nil
}

// strictWord reports whether the full lane of s must hold a sign-extended 32-bit result.
func (r *Runner) strictWord(s codec.Stimulus) bool {
	if !r.cfg.StrictSignExtension || s.Width != riscv.Word {
		return false
	}
	if s.Opcode.IsMul() && s.Opcode != riscv.MUL {
		return r.cfg.Model.WordHigh == fast.WordHighUpper32
	}
	return true
}

func (r *Runner) progress() {
	current := int(r.cov.Coverage())
	if current >= r.lastProgress+10 {
		r.log.Info("coverage reached", "coverage", fmt.Sprintf("%.1f%%", r.cov.Coverage()), "iterations", r.iterations)
		r.lastProgress = current
	}
}

func (r *Runner) summary() *Summary {
	return &Summary{
		Iterations: r.iterations,
		Coverage:   r.cov.Coverage(),
		Complete:   r.cov.Complete(),
		Exhausted:  r.gen.Exhausted(),
		Seed:       r.gen.Seed(),
		Missing:    r.cov.Missing(),
	}
}
