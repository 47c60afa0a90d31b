// Package driver implements the per-bar execution loop of spec.md §5:
// seed the well-known source series, run the registration bar, bind
// host-supplied input values, then re-execute the checked program once
// per bar, committing on success and rolling back on a runtime error.
//
// Grounded on the teacher's internal/concurrency worker-loop shape
// (prepare once, iterate, tear down) adapted from goroutine-per-job to
// bar-per-iteration script re-execution.
package driver

import (
	"pine/internal/pine/check"
	"pine/internal/pine/ctx"
	"pine/internal/pine/eval"
	"pine/internal/pine/value"
)

// Bar is one host-supplied OHLCV sample, ordered and timestamped by the
// feed.
type Bar struct {
	Timestamp int64
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Script is one running instance of a checked program: the context
// graph that outlives every bar, and the evaluator that walks the AST
// against it.
type Script struct {
	Prog *check.Program
	G    *ctx.Graph
	Eval *eval.Evaluator

	seeded bool
}

// New creates a script instance sized from the checker's root counts.
func New(prog *check.Program) *Script {
	g := ctx.NewGraph(prog.RootVarCount, prog.RootSubCount, prog.RootFunCount)
	return &Script{Prog: prog, G: g, Eval: eval.New(prog, g)}
}

// seedWellKnown installs the predeclared source series/bar_index slots
// the first time a script runs (spec.md §3.3).
func (s *Script) seedWellKnown() {
	if s.seeded {
		return
	}
	root := s.G.Root()
	for _, name := range []string{"open", "high", "low", "close", "volume"} {
		idx := s.Prog.WellKnown[name]
		s.G.CreateVar(root, idx.Slot, value.NewSeries(value.PFloat))
	}
	barIdx := s.Prog.WellKnown["bar_index"]
	s.G.CreateVar(root, barIdx.Slot, int64(0))
	timeIdx := s.Prog.WellKnown["_time"]
	s.G.CreateVar(root, timeIdx.Slot, int64(0))
	s.seeded = true
}

// feedBar writes the current bar's OHLCV into the well-known series'
// current slot and updates bar_index, ahead of evaluating the block.
func (s *Script) feedBar(i int, b Bar) {
	root := s.G.Root()
	set := func(name string, v float64) {
		idx := s.Prog.WellKnown[name]
		if ser, ok := s.G.GetVar(root, idx).(*value.Series); ok {
			ser.Update(v)
		}
	}
	set("open", b.Open)
	set("high", b.High)
	set("low", b.Low)
	set("close", b.Close)
	set("volume", b.Volume)
	barIdx := s.Prog.WellKnown["bar_index"]
	s.G.UpdateVar(root, barIdx, int64(i))
	s.G.UpdateVar(root, s.Prog.WellKnown["_time"], b.Timestamp)
}

// SetSecuritySource installs the synthetic, time-aligned data a
// security(symbol, resolution, ...) call re-evaluates its expression
// against (spec.md §4.8): time must be non-decreasing, and fields are
// keyed by the free variable names the expression references (e.g.
// "close" for `security("MSFT", "1D", close + 1)`).
func (s *Script) SetSecuritySource(symbol, resolution string, time []int64, fields map[string][]float64) {
	s.G.IO.RegisterSecuritySource(symbol+"-"+resolution, time, fields)
}

// Descriptors returns the IO descriptor set registered during the
// registration bar (only meaningful after Evaluate has run at least
// once).
func (s *Script) Descriptors() []ctx.Descriptor { return s.G.IO.Descriptors }

// SetInputs installs the host's chosen input values and marks input info
// ready, per spec.md §3.3/§5.
func (s *Script) SetInputs(vals []value.Value) {
	s.G.IO.SetUserInputs(vals)
	s.G.IO.IsInputInfoReady = true
}

// Outputs returns the accumulated plot/line output buffers.
func (s *Script) Outputs() map[string]*ctx.OutputData { return s.G.IO.Outputs }

// Evaluate re-executes the program for bar index i without committing or
// rolling back, so the caller can inspect Descriptors()/Outputs() (the
// registration bar) before deciding to keep or discard the bar.
func (s *Script) Evaluate(i int, b Bar) error {
	s.seedWellKnown()
	s.feedBar(i, b)
	return s.Eval.RunBar(i)
}

// Commit persists the bar's series/output state (spec.md §5 ordering
// point: commit on success).
func (s *Script) Commit() { s.G.Commit(s.G.Root()) }

// RollBack discards the bar's tentative state (spec.md §5: "errors
// during a bar" roll back rather than leave partial history).
func (s *Script) RollBack() { s.G.RollBack(s.G.Root()) }

// Run drives a whole series through a fresh script instance: bar 0 is
// evaluated once as the registration bar (descriptors populated, but not
// committed), inputs are bound, then every bar including bar 0 runs for
// real with commit-on-success / roll-back-on-error.
func Run(prog *check.Program, bars []Bar, inputs []value.Value) (*Script, error) {
	s := New(prog)
	if len(bars) == 0 {
		return s, nil
	}

	if err := s.Evaluate(0, bars[0]); err != nil {
		return s, err
	}
	if inputs != nil {
		s.SetInputs(inputs)
	}
	s.G.IO.IsOutputInfoReady = true

	for i, b := range bars {
		if err := s.Evaluate(i, b); err != nil {
			s.RollBack()
			return s, err
		}
		s.Commit()
	}
	return s, nil
}
