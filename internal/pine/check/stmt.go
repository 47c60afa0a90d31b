package check

import (
	"pine/internal/pine/ctx"
	"pine/internal/pine/lang"
	"pine/internal/pine/langerr"
	"pine/internal/pine/types"
	"pine/internal/pine/value"
)

// checkStmt dispatches one statement by concrete type. Statement and
// expression node kinds share names (If/For/Call appear as both a
// statement and an expression), which rules out a single Go method set
// implementing both lang.StmtVisitor and lang.ExprVisitor on *Checker;
// a type switch here plays the same dispatching role the Accept/Visitor
// convention does in lang itself.
func (c *Checker) checkStmt(s lang.Stmt) {
	switch st := s.(type) {
	case *lang.BreakStmt:
		c.checkBreakStmt(st)
	case *lang.ContinueStmt:
		c.checkContinueStmt(st)
	case *lang.NoneStmt:
	case *lang.AssignStmt:
		c.checkAssignStmt(st)
	case *lang.VarAssignStmt:
		c.checkVarAssignStmt(st)
	case *lang.IfStmt:
		c.checkIfStmt(st)
	case *lang.ForStmt:
		c.checkForStmt(st)
	case *lang.CallStmt:
		c.checkExpr(st.Call)
	case *lang.FuncDefStmt:
		c.checkFuncDefStmt(st)
	default:
		c.errf(langerr.NotImplement, s.Rng(), "unhandled statement %T", s)
	}
}

func (c *Checker) checkBreakStmt(s *lang.BreakStmt) {
	if c.loopDepth == 0 {
		c.errf(langerr.BreakNotInForStmt, s.Range, "break outside of a for loop")
	}
}

func (c *Checker) checkContinueStmt(s *lang.ContinueStmt) {
	if c.loopDepth == 0 {
		c.errf(langerr.ContinueNotInForStmt, s.Range, "continue outside of a for loop")
	}
}

// checkAssignStmt handles `x = expr` and `[a, b] = tupleExpr`
// declarations. Declaring an already-declared name in the same scope is
// an error (spec.md §4.3's VarHasDeclared); an explicit cast type
// narrows the declared type, checked for Castable against the value's
// resolved type.
func (c *Checker) checkAssignStmt(s *lang.AssignStmt) {
	valType := c.checkExpr(s.Value)

	var valTypes []types.Type
	if len(s.Names) > 1 {
		if valType.Kind != types.KTuple || len(valType.Elems) != len(s.Names) {
			c.errf(langerr.TypeMismatch, s.Range, "destructuring assignment expects a %d-tuple, got %s", len(s.Names), valType.String())
			for range s.Names {
				valTypes = append(valTypes, types.Any())
			}
		} else {
			valTypes = valType.Elems
		}
	} else {
		valTypes = []types.Type{valType}
	}

	slots := make([]int, len(s.Names))
	for i, nb := range s.Names {
		if _, exists := c.cur.names[nb.Name]; exists {
			c.errf(langerr.VarHasDeclared, s.Range, "%q is already declared in this scope", nb.Name)
		}
		declType := valTypes[i]
		if nb.HasType {
			want := types.Simple(nb.Type)
			if types.ResultShape(declType, types.Void()) == types.KSeries {
				want = types.SeriesT(nb.Type)
			}
			if !types.Castable(declType, want) && !types.Convertible(declType, want) {
				c.errf(langerr.InvalidTypeCast, s.Range, "cannot assign %s to declared type %s", declType.String(), want.String())
			}
			declType = want
		}
		sym := c.cur.declare(nb.Name, declType)
		slots[i] = sym.slot
	}
	c.prog.DeclSlot[s] = slots
}

// checkVarAssignStmt handles `x := expr` reassignment: the target must
// already be declared, and its declared type is widened to the LUB with
// the new value's type, with a simple declared type upgraded to series
// the first time a reassignment (or, elsewhere, a ref) demands it
// (spec.md §3.2 / §4.3).
func (c *Checker) checkVarAssignStmt(s *lang.VarAssignStmt) {
	valType := c.checkExpr(s.Value)
	sym, depth, ok := c.cur.lookup(s.Name)
	if !ok {
		c.errf(langerr.VarNotDeclared, s.Range, "%q is not declared", s.Name)
		return
	}
	lub, ok := types.LUB(sym.typ, valType)
	if !ok {
		c.errf(langerr.TypeMismatch, s.Range, "cannot reassign %q of type %s with %s", s.Name, sym.typ.String(), valType.String())
		lub = sym.typ
	}
	sym.typ = types.Lift(lub)
	c.prog.VarRef[s] = ctx.VarIndex{Slot: sym.slot, Depth: depth}
}

// checkIfStmt handles the statement-position `if`: Void result, its own
// sub-context, and both branches checked within it (only one runs per
// bar, but both occupy static slots in the same child scope).
func (c *Checker) checkIfStmt(s *lang.IfStmt) {
	condType := c.checkExpr(s.Cond)
	if !types.ConditionBool(condType) {
		c.errf(langerr.CondNotBool, s.Range, "if condition must be bool-like, got %s", condType.String())
	}
	c.pushChildScope(s, ctx.IfElseBlock, func() {
		c.checkBlockStmts(s.Then)
		if s.Else != nil {
			c.checkBlockStmts(s.Else)
		}
	})
}

// checkForStmt handles the statement-position `for`: Void result, loop
// variable bound int in its own sub-context.
func (c *Checker) checkForStmt(s *lang.ForStmt) {
	c.checkForRangeBounds(s.Start, s.End, s.Step, s.Range)
	c.loopDepth++
	c.pushChildScope(s, ctx.ForRangeBlock, func() {
		c.cur.declare(s.Var, types.Simple(value.PInt))
		c.checkBlockStmts(s.Body)
	})
	c.loopDepth--
}

// checkForRangeBounds validates a for loop's start/end/step expressions
// are all plain (non-series) ints (spec.md §4.3's ForRangeIndexNotInt).
func (c *Checker) checkForRangeBounds(start, end, step lang.Expr, r lang.Range) {
	for _, e := range []lang.Expr{start, end, step} {
		if e == nil {
			continue
		}
		t := c.checkExpr(e)
		if t.Kind != types.KSimple || t.Elem != value.PInt {
			c.errf(langerr.ForRangeIndexNotInt, r, "for loop bounds must be simple int, got %s", t.String())
		}
	}
}

// checkFuncDefStmt records the function for later per-call-site checking
// (spec.md §4.6: parameters carry no declared type, so the body is
// re-checked once per call with the call's argument types bound).
func (c *Checker) checkFuncDefStmt(s *lang.FuncDefStmt) {
	if _, exists := c.funcs[s.Name]; exists {
		c.errf(langerr.VarHasDeclared, s.Range, "function %q is already declared", s.Name)
		return
	}
	c.funcs[s.Name] = &UserFuncInfo{Name: s.Name, Params: s.Params, Body: s.Body}
}
