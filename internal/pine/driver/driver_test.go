package driver

import (
	"testing"

	"pine/internal/pine/check"
	"pine/internal/pine/ctx"
	"pine/internal/pine/lang"
)

func compile(t *testing.T, src string) *check.Program {
	t.Helper()
	scanner := lang.NewScanner(src)
	toks := scanner.ScanTokens()
	p := lang.NewParser(toks, scanner.Version)
	block := p.Parse()
	if len(p.Errors) > 0 {
		t.Fatalf("parse errors: %v", p.Errors)
	}
	prog := check.Check(block)
	if prog.Diags.HasErrors() {
		t.Fatalf("check errors: %v", prog.Diags.Errors)
	}
	return prog
}

func closeBars(closes ...float64) []Bar {
	bars := make([]Bar, len(closes))
	for i, c := range closes {
		bars[i] = Bar{Timestamp: int64(i), Open: c, High: c, Low: c, Close: c, Volume: 1}
	}
	return bars
}

func TestRunPlotsLowestOverWindow(t *testing.T) {
	prog := compile(t, "plot(lowest(close, 2))\n")
	bars := closeBars(5, 3, 4, 1, 2)

	s, err := Run(prog, bars, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	outs := s.Outputs()
	if len(outs) != 1 {
		t.Fatalf("expected 1 output, got %d", len(outs))
	}
	for _, o := range outs {
		if len(o.Values) != len(bars) {
			t.Fatalf("expected %d plotted values, got %d", len(bars), len(o.Values))
		}
		// lowest(close,2) over [5,3,4,1,2] is [5,3,3,1,1]
		want := []float64{5, 3, 3, 1, 1}
		for i, w := range want {
			if o.Values[i] == nil {
				t.Fatalf("value %d is nil", i)
			}
			if *o.Values[i] != w {
				t.Errorf("value %d = %v, want %v", i, *o.Values[i], w)
			}
		}
	}
}

func TestRunPlotsPreviousBarViaSeriesRef(t *testing.T) {
	prog := compile(t, "plot(close[1])\n")
	bars := closeBars(10, 20, 30)

	s, err := Run(prog, bars, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, o := range s.Outputs() {
		if o.Values[0] != nil {
			t.Errorf("bar 0's close[1] should be na, got %v", *o.Values[0])
		}
		if o.Values[1] == nil || *o.Values[1] != 10 {
			t.Errorf("bar 1's close[1] = %v, want 10", o.Values[1])
		}
		if o.Values[2] == nil || *o.Values[2] != 20 {
			t.Errorf("bar 2's close[1] = %v, want 20", o.Values[2])
		}
	}
}

func TestSecurityReplaysExpressionAgainstForeignTimeAlignedSeries(t *testing.T) {
	prog := compile(t, "m = security('MSFT', '1D', close + (close + 1))\nplot(m)\n")
	bars := []Bar{
		{Timestamp: 10, Open: 1, High: 1, Low: 1, Close: 1, Volume: 1},
		{Timestamp: 20, Open: 2, High: 2, Low: 2, Close: 2, Volume: 1},
	}

	s := New(prog)
	if err := s.Evaluate(0, bars[0]); err != nil {
		t.Fatalf("registration bar: %v", err)
	}
	s.SetInputs(nil)
	s.G.IO.IsOutputInfoReady = true
	s.SetSecuritySource("MSFT", "1D", []int64{15}, map[string][]float64{"close": {15}})

	for i, b := range bars {
		if err := s.Evaluate(i, b); err != nil {
			t.Fatalf("bar %d: %v", i, err)
		}
		s.Commit()
	}

	var out *ctx.OutputData
	for _, o := range s.Outputs() {
		out = o
	}
	if out == nil {
		t.Fatalf("expected a plot output")
	}
	if out.Values[0] != nil {
		t.Errorf("bar 0 (t=10, before the only foreign bar at t=15) should be na, got %v", *out.Values[0])
	}
	if out.Values[1] == nil || *out.Values[1] != 31 {
		t.Errorf("bar 1 (t=20) = %v, want 31", out.Values[1])
	}
}

func TestRunWithNoBarsProducesNoOutputs(t *testing.T) {
	prog := compile(t, "plot(close)\n")
	s, err := Run(prog, nil, nil)
	if err != nil {
		t.Fatalf("Run with no bars should not error: %v", err)
	}
	if len(s.Outputs()) != 0 {
		t.Errorf("expected no outputs with no bars evaluated, got %d", len(s.Outputs()))
	}
}
