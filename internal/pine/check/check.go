// Package check implements the static type checker of spec.md §4.2/§4.3:
// a single top-to-bottom pass over the AST spec.md §6 fixes, producing a
// Program artifact (resolved variable slots, sub-context sizes and
// function-call-instance slots) the evaluator runs bar-by-bar without
// re-deriving any of it.
//
// Grounded on the teacher's internal/parser (recursive-descent, error
// accumulation) and internal/compiler/compiler.go's symbol-table pattern,
// adapted from a bytecode-slot allocator to a context-graph slot
// allocator.
package check

import (
	"pine/internal/pine/builtin"
	"pine/internal/pine/ctx"
	"pine/internal/pine/lang"
	"pine/internal/pine/langerr"
	"pine/internal/pine/types"
)

// SubCtxInfo records the pre-sizing the checker computed for one
// block-owning node (if/for/user-function-call-site): its reservation
// index in the parent scope's sub-context vector, its kind, and the
// var/sub/fun-instance counts ctx.NewGraph-style allocation needs.
type SubCtxInfo struct {
	Index              int
	Kind               ctx.ContextType
	VarCount, SubCount int
	FunCount           int
}

// UserFuncInfo is a checked (but not yet instantiated) function
// definition: spec.md §4.6 re-checks the body once per call site, since
// parameters carry no declared type.
type UserFuncInfo struct {
	Name   string
	Params []string
	Body   *lang.Block
}

// Program is the checker's output: everything the evaluator needs to
// walk the same AST against a ctx.Graph without re-resolving names.
type Program struct {
	Block *lang.Block

	RootVarCount, RootSubCount, RootFunCount int

	FuncDefs map[string]*UserFuncInfo

	// VarRef resolves a VarExpr (or a VarAssignStmt's target) to the slot
	// it was declared at, relative to the scope the expression appears in.
	VarRef map[interface{}]ctx.VarIndex

	// DeclSlot gives the absolute slots (one per name, in order) an
	// AssignStmt's declaration occupies in its own scope.
	DeclSlot map[*lang.AssignStmt][]int

	// SubCtx gives the pre-sizing for every if/for/call-site node.
	SubCtx map[interface{}]*SubCtxInfo

	// CallSlot gives the function-instance slot a built-in call that
	// needs memoised state (input/plot/line/security) occupies in the
	// scope it's called from.
	CallSlot map[*lang.CallExpr]int

	// SecurityCalls records, for every security() call site, the free
	// variables its expression argument captures (in the order its
	// private sub-context declares them) and the expression node itself,
	// so eval.evalSecurityCall can re-enter it without re-deriving either
	// (spec.md §4.8).
	SecurityCalls map[*lang.CallExpr]*SecurityCallInfo

	// ExprType records the resolved syntax type of every expression node
	// that produces a value, for the evaluator's widening decisions.
	ExprType map[lang.Expr]types.Type

	// WellKnown gives the root-scope slot assigned to each predeclared
	// source identifier (open/high/low/close/volume/bar_index), so the
	// driver can feed bar data into the right slot without depending on
	// the builtin.WellKnownSeries map's iteration order.
	WellKnown map[string]ctx.VarIndex

	Diags *langerr.Diagnostics
}

// symbol is one declared name in a scope.
type symbol struct {
	slot int
	typ  types.Type
}

// scope is one lexical level of the checker's symbol table, mirroring
// one ctx.Context node one-to-one.
type scope struct {
	parent *scope
	kind   ctx.ContextType
	names  map[string]*symbol

	nextSlot int
	subCount int
	funCount int
}

func newScope(parent *scope, kind ctx.ContextType) *scope {
	return &scope{parent: parent, kind: kind, names: make(map[string]*symbol)}
}

func (s *scope) declare(name string, typ types.Type) *symbol {
	sym := &symbol{slot: s.nextSlot, typ: typ}
	s.nextSlot++
	s.names[name] = sym
	return sym
}

// lookup walks parents, returning the symbol and the depth (hop count)
// at which it was found.
func (s *scope) lookup(name string) (*symbol, int, bool) {
	depth := 0
	for cur := s; cur != nil; cur = cur.parent {
		if sym, ok := cur.names[name]; ok {
			return sym, depth, true
		}
		depth++
	}
	return nil, 0, false
}

// Checker walks the AST once, accumulating diagnostics and filling in a
// Program.
type Checker struct {
	prog      *Program
	cur       *scope
	loopDepth int
	funcs     map[string]*UserFuncInfo
}

// Check type-checks a parsed program, returning the resolved Program and
// its diagnostics. Errors are accumulated (spec.md §4.2's "many
// mismatches, not abort-at-first"); callers should inspect
// Program.Diags.HasErrors() before driving evaluation.
func Check(block *lang.Block) *Program {
	prog := &Program{
		Block:    block,
		FuncDefs: make(map[string]*UserFuncInfo),
		VarRef:   make(map[interface{}]ctx.VarIndex),
		DeclSlot: make(map[*lang.AssignStmt][]int),
		SubCtx:        make(map[interface{}]*SubCtxInfo),
		CallSlot:      make(map[*lang.CallExpr]int),
		SecurityCalls: make(map[*lang.CallExpr]*SecurityCallInfo),
		ExprType:      make(map[lang.Expr]types.Type),
		WellKnown:     make(map[string]ctx.VarIndex),
		Diags:         &langerr.Diagnostics{},
	}
	c := &Checker{prog: prog, funcs: prog.FuncDefs}
	root := newScope(nil, ctx.Normal)
	for _, name := range []string{"open", "high", "low", "close", "volume", "bar_index", "_time"} {
		sym := root.declare(name, builtin.WellKnownSeries[name])
		prog.WellKnown[name] = ctx.VarIndex{Slot: sym.slot, Depth: 0}
	}
	c.cur = root
	c.checkBlockStmts(block)
	prog.RootVarCount = root.nextSlot
	prog.RootSubCount = root.subCount
	prog.RootFunCount = root.funCount
	return prog
}

func (c *Checker) errf(kind langerr.Kind, r lang.Range, format string, args ...interface{}) {
	c.prog.Diags.Add(langerr.New(kind, r, format, args...))
}

// checkBlockStmts type-checks a block's statements and, if present, its
// trailing Ret expression, within the current scope (the caller has
// already pushed whatever scope the block belongs to).
func (c *Checker) checkBlockStmts(b *lang.Block) types.Type {
	for _, s := range b.Stmts {
		c.checkStmt(s)
	}
	if b.Ret != nil {
		return c.checkExpr(b.Ret)
	}
	return types.Void()
}

// pushChildScope opens a new scope of kind for node, reserving its slot
// in the parent's sub-context vector, checks body within it via fn, and
// records the resulting SubCtxInfo. Returns the scope after fn ran so the
// caller can read nextSlot/subCount/funCount.
func (c *Checker) pushChildScope(node interface{}, kind ctx.ContextType, fn func()) *scope {
	parent := c.cur
	index := parent.subCount
	parent.subCount++

	child := newScope(parent, kind)
	c.cur = child
	fn()
	c.cur = parent

	c.prog.SubCtx[node] = &SubCtxInfo{
		Index:     index,
		Kind:      kind,
		VarCount:  child.nextSlot,
		SubCount:  child.subCount,
		FunCount:  child.funCount,
	}
	return child
}

// reserveCallSlot allocates a function-instance slot in the current
// scope for a builtin call that needs memoised per-call-site state.
func (c *Checker) reserveCallSlot(call *lang.CallExpr) int {
	idx := c.cur.funCount
	c.cur.funCount++
	c.prog.CallSlot[call] = idx
	return idx
}

func calleeName(e lang.Expr) (string, bool) {
	switch t := e.(type) {
	case *lang.VarExpr:
		return t.Name, true
	case *lang.PrefixExpr:
		base, ok := calleeName(t.Object)
		if !ok {
			return "", false
		}
		return base + "." + t.Field, true
	default:
		return "", false
	}
}

