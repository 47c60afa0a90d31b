package builtin

import (
	"testing"

	"pine/internal/pine/ctx"
	"pine/internal/pine/value"
)

func TestInvokeAbsMaxMin(t *testing.T) {
	g := ctx.NewGraph(0, 0, 0)
	root := g.Root()

	cases := []struct {
		name string
		args Args
		want float64
	}{
		{"abs", Args{Positional: []value.Value{-3.5}}, 3.5},
		{"max", Args{Positional: []value.Value{2.0, 5.0}}, 5.0},
		{"min", Args{Positional: []value.Value{2.0, 5.0}}, 2.0},
	}
	for _, c := range cases {
		got, err := Invoke(g, root, c.name, 0, c.args, 0)
		if err != nil {
			t.Fatalf("%s: %v", c.name, err)
		}
		f, ok := got.(float64)
		if !ok || f != c.want {
			t.Errorf("%s = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestWindowExtremeSkipsNA(t *testing.T) {
	s := value.NewSeries(value.PFloat)
	s.Update(1.0)
	s.Commit() // history[0] = 1.0
	s.Update(value.NA{})
	s.Commit() // history[1] = na
	s.Update(2.0)
	s.Commit() // history[2] = 2.0
	s.Update(0.5) // current, not committed

	got, err := windowExtreme(s, int64(4), min)
	if err != nil {
		t.Fatalf("windowExtreme: %v", err)
	}
	if f, ok := got.(float64); !ok || f != 0.5 {
		t.Errorf("windowExtreme over [0.5(current), na, 2.0, 1.0] = %v, want 0.5", got)
	}
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func TestInvokeUnknownNameReturnsError(t *testing.T) {
	g := ctx.NewGraph(0, 0, 0)
	_, err := Invoke(g, g.Root(), "no.such.builtin", 0, Args{}, 0)
	if err == nil {
		t.Fatalf("expected an error for an unknown builtin name")
	}
}
