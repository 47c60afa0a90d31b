// Package eval implements the tree-walking evaluator of spec.md §4.1/§5:
// given a check.Program and a ctx.Graph, it re-executes the checked AST
// once per bar, reading/writing variable slots through the context
// graph and dispatching built-in and user-function calls through the
// builtin package's call protocol.
//
// Grounded on the teacher's internal/compiler+vm execution loop, adapted
// from bytecode dispatch to direct AST walking (the evaluator does not use
// lang's Accept/Visitor double-dispatch; ordinary Go type switches over
// lang.Expr/lang.Stmt drive every node kind, the way a tree-walking
// interpreter built on that AST naturally would).
package eval

import (
	"pine/internal/pine/check"
	"pine/internal/pine/ctx"
	"pine/internal/pine/lang"
	"pine/internal/pine/value"
)

// signal is the control-flow result of running a statement.
type signal int

const (
	sigNone signal = iota
	sigBreak
	sigContinue
)

// Evaluator re-executes a checked program's AST against a context graph,
// one bar at a time.
type Evaluator struct {
	Prog *check.Program
	G    *ctx.Graph
	Bar  int
	err  error
}

// New builds an Evaluator over a graph sized to the program's root
// counts (the caller — driver — owns graph lifetime across bars).
func New(prog *check.Program, g *ctx.Graph) *Evaluator {
	return &Evaluator{Prog: prog, G: g}
}

// RunBar re-executes the whole program once, at context ctxID==Root, for
// bar index bar. Returns the first runtime error encountered, if any
// (spec.md §5: a runtime error aborts the rest of the bar).
func (e *Evaluator) RunBar(bar int) error {
	e.Bar = bar
	e.err = nil
	e.G.IO.ResetInputCursor()
	e.G.ClearIsRun(e.G.Root())
	e.G.SetIsRun(e.G.Root(), true)
	e.runBlock(e.G.Root(), e.Prog.Block)
	return e.err
}

// fail records the first runtime error and short-circuits subsequent
// statement/expression evaluation within the bar.
func (e *Evaluator) fail(err error) {
	if e.err == nil {
		e.err = err
	}
}

func (e *Evaluator) failed() bool { return e.err != nil }

// runBlock executes a block's statements in order, short-circuiting on
// the first error, break or continue; then evaluates the trailing Ret
// expression if the block is used for its value.
func (e *Evaluator) runBlock(ctxID int, b *lang.Block) (value.Value, signal) {
	for _, s := range b.Stmts {
		if e.failed() {
			return value.NA{}, sigNone
		}
		if sig := e.runStmt(ctxID, s); sig != sigNone {
			return value.NA{}, sig
		}
	}
	if e.failed() || b.Ret == nil {
		return value.NA{}, sigNone
	}
	return e.evalExpr(ctxID, b.Ret), sigNone
}
