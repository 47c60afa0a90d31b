// Package builtin is the call protocol of spec.md §4.4/§4.6: the
// signature registry the checker resolves calls against, and Invoke,
// which the evaluator calls to run a built-in by name (abs/max/min,
// lowest/highest, input, plot, line.new), keeping per-call-site state in
// ctx.Callable instances. security's signature is listed here, but its
// implementation lives in check and eval (see call.go).
//
// This file holds the pure signature registry — no ctx/runtime
// dependency — so the checker can resolve overloads without importing
// the runtime half of the package.
package builtin

import (
	"pine/internal/pine/types"
	"pine/internal/pine/value"
)

func p(name string, t types.Type, optional bool) types.Param {
	return types.Param{Name: name, Type: t, Optional: optional}
}

func series(prim value.Primary) types.Type { return types.SeriesT(prim) }
func simple(prim value.Primary) types.Type { return types.Simple(prim) }

// Signatures is the closed table of built-in overload sets, keyed by the
// (possibly dotted) call name a CallExpr's callee resolves to.
var Signatures = map[string][]types.Overload{
	"input.bool": {{
		Name: "input.bool",
		Positional: []types.Param{p("defval", simple(value.PBool), false)},
		Named: []types.Param{
			p("title", simple(value.PString), true),
			p("confirm", simple(value.PBool), true),
		},
		Return: simple(value.PBool),
	}},
	"input.int": {{
		Name: "input.int",
		Positional: []types.Param{p("defval", simple(value.PInt), false)},
		Named: []types.Param{
			p("title", simple(value.PString), true),
			p("minval", simple(value.PInt), true),
			p("maxval", simple(value.PInt), true),
			p("step", simple(value.PInt), true),
			p("confirm", simple(value.PBool), true),
		},
		Return: simple(value.PInt),
	}},
	"input.float": {{
		Name: "input.float",
		Positional: []types.Param{p("defval", simple(value.PFloat), false)},
		Named: []types.Param{
			p("title", simple(value.PString), true),
			p("minval", simple(value.PFloat), true),
			p("maxval", simple(value.PFloat), true),
			p("step", simple(value.PFloat), true),
			p("confirm", simple(value.PBool), true),
		},
		Return: simple(value.PFloat),
	}},
	"input.string": {{
		Name: "input.string",
		Positional: []types.Param{p("defval", simple(value.PString), false)},
		Named: []types.Param{
			p("title", simple(value.PString), true),
			p("options", types.ListT(value.PString), true),
			p("confirm", simple(value.PBool), true),
		},
		Return: simple(value.PString),
	}},
	"input.source": {{
		Name: "input.source",
		Positional: []types.Param{p("defval", series(value.PFloat), false)},
		Named: []types.Param{
			p("title", simple(value.PString), true),
		},
		Return: series(value.PFloat),
	}},
	"lowest": {{
		Name:       "lowest",
		Positional: []types.Param{p("source", series(value.PFloat), false), p("length", simple(value.PInt), false)},
		Return:     series(value.PFloat),
	}},
	"highest": {{
		Name:       "highest",
		Positional: []types.Param{p("source", series(value.PFloat), false), p("length", simple(value.PInt), false)},
		Return:     series(value.PFloat),
	}},
	"plot": {{
		Name:       "plot",
		Positional: []types.Param{p("series", series(value.PFloat), false)},
		Named: []types.Param{
			p("title", simple(value.PString), true),
			p("color", simple(value.PColor), true),
			p("linewidth", simple(value.PInt), true),
		},
		Return: types.Void(),
	}},
	"line.new": {{
		Name: "line.new",
		Positional: []types.Param{
			p("x1", simple(value.PInt), false),
			p("y1", series(value.PFloat), false),
			p("x2", simple(value.PInt), false),
			p("y2", series(value.PFloat), false),
		},
		Named: []types.Param{
			p("color", simple(value.PColor), true),
			p("width", simple(value.PInt), true),
		},
		Return: simple(value.PLine),
	}},
	// security's expression parameter is a types.DynamicExpr rather than an
	// ordinary series: spec.md §4.8 re-evaluates it against a private
	// sub-context bound to another symbol's time-aligned history, instead
	// of evaluating it once against the caller's own series the way every
	// other overload's arguments are. check/security.go's dedicated
	// checkSecurityCall path is what actually consults this shape (general
	// overload matching never runs for "security"); this entry exists so
	// a bare reference to the name still resolves to a sensible function
	// type (spec.md §3.1's syntax-type list).
	"security": {{
		Name: "security",
		Positional: []types.Param{
			p("symbol", simple(value.PString), false),
			p("resolution", simple(value.PString), false),
			p("expression", types.DynamicExpr(value.PFloat), false),
		},
		Named: []types.Param{
			p("gaps", simple(value.PBool), true),
			p("lookahead", simple(value.PBool), true),
		},
		Return: series(value.PFloat),
	}},
	"abs": {{
		Name:       "abs",
		Positional: []types.Param{p("value", series(value.PFloat), false)},
		Return:     series(value.PFloat),
	}},
	"max": {{
		Name:       "max",
		Positional: []types.Param{p("a", series(value.PFloat), false), p("b", series(value.PFloat), false)},
		Return:     series(value.PFloat),
	}},
	"min": {{
		Name:       "min",
		Positional: []types.Param{p("a", series(value.PFloat), false), p("b", series(value.PFloat), false)},
		Return:     series(value.PFloat),
	}},
}

// WellKnownSeries is the root-bound, always-declared series identifiers a
// script may reference without an explicit assignment (spec.md §3.3's
// well-known source variables: open/high/low/close/volume, and bar_index
// as a simple int counter).
var WellKnownSeries = map[string]types.Type{
	"open":      series(value.PFloat),
	"high":      series(value.PFloat),
	"low":       series(value.PFloat),
	"close":     series(value.PFloat),
	"volume":    series(value.PFloat),
	"bar_index": simple(value.PInt),
	"_time":     simple(value.PInt),
}
