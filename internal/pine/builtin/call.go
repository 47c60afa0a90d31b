package builtin

import (
	"math"

	"pine/internal/pine/ctx"
	"pine/internal/pine/langerr"
	"pine/internal/pine/value"
)

// Args is the evaluator's fully-resolved argument bundle for one call:
// positional values in declaration order plus named values by name, the
// shape check.checkBuiltinCall already validated against an Overload.
type Args struct {
	Positional []value.Value
	Named      map[string]value.Value
}

func (a Args) pos(i int) value.Value {
	if i < len(a.Positional) {
		return a.Positional[i]
	}
	return value.NA{}
}

func (a Args) named(name string, def value.Value) value.Value {
	if v, ok := a.Named[name]; ok {
		return v
	}
	return def
}

// Invoke dispatches a resolved built-in call by name. slot is the
// function-instance slot check.Checker.reserveCallSlot assigned this call
// site (ignored by stateless built-ins like abs/max/min/lowest/highest).
// bar is the current bar index (0-based), used by input() to recognise
// the registration bar and by plot/line to place output.
func Invoke(g *ctx.Graph, ctxID int, name string, slot int, args Args, bar int) (value.Value, error) {
	switch name {
	case "abs":
		return mapNumeric(args.pos(0), math.Abs)
	case "max":
		return combineNumeric(args.pos(0), args.pos(1), math.Max)
	case "min":
		return combineNumeric(args.pos(0), args.pos(1), math.Min)
	case "lowest":
		return windowExtreme(args.pos(0), args.pos(1), math.Min)
	case "highest":
		return windowExtreme(args.pos(0), args.pos(1), math.Max)
	case "input.bool":
		return inputCall(g, ctxID, slot, value.PBool, args, bar)
	case "input.int":
		return inputCall(g, ctxID, slot, value.PInt, args, bar)
	case "input.float":
		return inputCall(g, ctxID, slot, value.PFloat, args, bar)
	case "input.string":
		return inputCall(g, ctxID, slot, value.PString, args, bar)
	case "input.source":
		return inputCall(g, ctxID, slot, value.PFloat, args, bar)
	case "plot":
		return outputCall(g, ctxID, slot, "plot", args, bar)
	case "line.new":
		return lineCall(g, ctxID, slot, args, bar)
	default:
		return nil, langerr.New(langerr.NotImplement, langerr.Range{}, "built-in %q is not implemented", name)
	}
}

func toFloat(v value.Value) (float64, bool) {
	switch t := v.(type) {
	case int64:
		return float64(t), true
	case float64:
		return t, true
	case *value.Series:
		return toFloat(t.Current)
	default:
		return 0, false
	}
}

func mapNumeric(v value.Value, f func(float64) float64) (value.Value, error) {
	x, ok := toFloat(v)
	if !ok {
		return nil, langerr.New(langerr.NotValidParam, langerr.Range{}, "expected a number")
	}
	return f(x), nil
}

func combineNumeric(a, b value.Value, f func(float64, float64) float64) (value.Value, error) {
	x, ok1 := toFloat(a)
	y, ok2 := toFloat(b)
	if !ok1 || !ok2 {
		return nil, langerr.New(langerr.NotValidParam, langerr.Range{}, "expected two numbers")
	}
	return f(x, y), nil
}

// windowExtreme is the shared helper behind lowest()/highest() (SPEC_FULL
// §12): scan the source series' current value and its length-1 previous
// bars (index 0 through length-1) and reduce with f. A source that isn't
// a series, or a length that isn't a positive int, is an error. A length
// that reaches past the available history reads na for the missing
// indices, and na entries are skipped — early bars of a script
// legitimately have a short history.
func windowExtreme(source, length value.Value, f func(float64, float64) float64) (value.Value, error) {
	s, ok := source.(*value.Series)
	if !ok {
		return nil, langerr.New(langerr.VarNotSeriesInRef, langerr.Range{}, "lowest/highest source must be series")
	}
	n, ok := length.(int64)
	if !ok || n <= 0 {
		return nil, langerr.New(langerr.NotValidParam, langerr.Range{}, "lowest/highest length must be a positive int")
	}
	var result float64
	found := false
	for k := int64(0); k < n; k++ {
		v := s.Index(int(k))
		if value.IsNA(v) {
			continue
		}
		x, ok := toFloat(v)
		if !ok {
			continue
		}
		if !found {
			result, found = x, true
			continue
		}
		result = f(result, x)
	}
	if !found {
		return value.NA{}, nil
	}
	return result, nil
}

// inputInstance is the per-call-site Callable created for an input()
// call: it registers a descriptor on the registration bar and thereafter
// has nothing to commit/roll back (inputs are supplied by the host, not
// computed), but still occupies a ctx.Callable slot so the call site
// keeps stable identity across bars the way every memoised built-in does.
type inputInstance struct {
	descriptorID string
}

func (i *inputInstance) Run(g *ctx.Graph, ctxID int)  {}
func (i *inputInstance) Back(g *ctx.Graph, ctxID int) {}

func inputCall(g *ctx.Graph, ctxID, slot int, prim value.Primary, args Args, bar int) (value.Value, error) {
	io := g.IO
	inst, _ := g.FunInstance(ctxID, slot).(*inputInstance)
	if inst == nil && bar == 0 {
		kind := ctx.InputBool
		switch prim {
		case value.PInt:
			kind = ctx.InputInt
		case value.PFloat:
			kind = ctx.InputFloat
		case value.PString:
			kind = ctx.InputString
		}
		d := ctx.Descriptor{
			Kind:    kind,
			Title:   stringOf(args.named("title", value.NA{})),
			Defval:  args.pos(0),
			Minval:  args.named("minval", value.NA{}),
			Maxval:  args.named("maxval", value.NA{}),
			Step:    args.named("step", value.NA{}),
			Confirm: boolOf(args.named("confirm", false)),
		}
		id := io.RegisterDescriptor(d)
		inst = &inputInstance{descriptorID: id}
		g.CreateFunInstance(ctxID, slot, inst)
	}
	if v, ok := io.NextInput(); ok {
		return v, nil
	}
	return args.pos(0), nil
}

func stringOf(v value.Value) string {
	s, _ := v.(string)
	return s
}

func boolOf(v value.Value) bool {
	b, _ := v.(bool)
	return b
}

// outputInstance backs plot(): registers an output descriptor on the
// registration bar, then writes one value per bar.
type outputInstance struct {
	name string
}

func (o *outputInstance) Run(g *ctx.Graph, ctxID int)  {}
func (o *outputInstance) Back(g *ctx.Graph, ctxID int) {}

func outputCall(g *ctx.Graph, ctxID, slot int, kind string, args Args, bar int) (value.Value, error) {
	io := g.IO
	inst, _ := g.FunInstance(ctxID, slot).(*outputInstance)
	if inst == nil {
		title := stringOf(args.named("title", value.NA{}))
		if title == "" {
			title = kind
		}
		io.RegisterDescriptor(ctx.Descriptor{Kind: ctx.OutputPlot, Title: title})
		inst = &outputInstance{name: title}
		g.CreateFunInstance(ctxID, slot, inst)
	}
	x, ok := toFloat(args.pos(0))
	if !ok {
		io.WriteOutput(inst.name, bar, nil)
		return value.NA{}, nil
	}
	io.WriteOutput(inst.name, bar, &x)
	return value.NA{}, nil
}

func lineCall(g *ctx.Graph, ctxID, slot int, args Args, bar int) (value.Value, error) {
	io := g.IO
	inst, _ := g.FunInstance(ctxID, slot).(*outputInstance)
	if inst == nil {
		io.RegisterDescriptor(ctx.Descriptor{Kind: ctx.OutputLine, Title: "line"})
		inst = &outputInstance{name: "line"}
		g.CreateFunInstance(ctxID, slot, inst)
	}
	return &value.Line{}, nil
}

// security() is not part of this call protocol: unlike every other
// built-in, its expression argument must be re-evaluated against a
// private sub-context bound to another symbol's time-aligned history
// instead of the caller's own series (spec.md §4.8), which needs the
// checker's per-call free-variable resolution and the evaluator's
// re-entrant evalExpr. Both live above builtin in the import graph
// (builtin cannot import check without a cycle), so security's real
// implementation is check.checkSecurityCall + eval.evalSecurityCall
// instead of a Callable registered here.
