package check

import (
	"pine/internal/pine/ctx"
	"pine/internal/pine/lang"
	"pine/internal/pine/langerr"
	"pine/internal/pine/types"
	"pine/internal/pine/value"
)

// SecurityCallInfo is the checker's resolution of one security() call
// site: the free variables its expression argument captures, in the
// order its private sub-context declares them, and the expression node
// itself.
type SecurityCallInfo struct {
	Fields []string
	Expr   lang.Expr
}

// checkSecurityCall type-checks a security(symbol, resolution,
// expression, gaps, lookahead) call (spec.md §4.8). Unlike every other
// built-in, the expression argument is never checked against the
// caller's own scope as an ordinary series: it is instead checked inside
// a fresh child scope that declares exactly its free variables (as
// float series) plus "_time", matching the private sub-context the
// expression will actually run against at eval time — re-using it as an
// ordinary caller-scope expression is precisely the §4.8 gap this
// special case exists to avoid.
func (c *Checker) checkSecurityCall(e *lang.CallExpr) types.Type {
	var positional []lang.Expr
	named := map[string]lang.Expr{}
	for _, a := range e.Args {
		if a.Name == "" {
			positional = append(positional, a.Value)
		} else {
			named[a.Name] = a.Value
		}
	}
	if len(positional) < 3 {
		c.errf(langerr.FuncCallSignatureNotMatch, e.Range, "security expects at least 3 arguments (symbol, resolution, expression)")
		return types.Any()
	}

	if st := c.checkExpr(positional[0]); !types.Convertible(st, types.Simple(value.PString)) {
		c.errf(langerr.TypeMismatch, e.Range, "security symbol must be string, got %s", st.String())
	}
	if rt := c.checkExpr(positional[1]); !types.Convertible(rt, types.Simple(value.PString)) {
		c.errf(langerr.TypeMismatch, e.Range, "security resolution must be string, got %s", rt.String())
	}
	if ge, ok := namedOrPositional(named, "gaps", positional, 3); ok {
		if t := c.checkExpr(ge); !types.ConditionBool(t) {
			c.errf(langerr.BoolExpTypeNotBool, e.Range, "security gaps must be bool-like, got %s", t.String())
		}
	}
	if le, ok := namedOrPositional(named, "lookahead", positional, 4); ok {
		if t := c.checkExpr(le); !types.ConditionBool(t) {
			c.errf(langerr.BoolExpTypeNotBool, e.Range, "security lookahead must be bool-like, got %s", t.String())
		}
	}

	exprNode := positional[2]
	fields := collectFreeVars(exprNode)

	var bodyType types.Type
	c.pushChildScope(e, ctx.SecurityBlock, func() {
		for _, name := range fields {
			c.cur.declare(name, types.SeriesT(value.PFloat))
		}
		c.cur.declare("_time", types.Simple(value.PInt))
		bodyType = c.checkExpr(exprNode)
	})
	if !bodyType.IsNumeric() {
		c.errf(langerr.TypeMismatch, e.Range, "security expression must be numeric, got %s", bodyType.String())
	}

	c.prog.SecurityCalls[e] = &SecurityCallInfo{Fields: fields, Expr: exprNode}
	c.reserveCallSlot(e)
	return types.SeriesT(value.PFloat)
}

func namedOrPositional(named map[string]lang.Expr, name string, positional []lang.Expr, idx int) (lang.Expr, bool) {
	if e, ok := named[name]; ok {
		return e, true
	}
	if idx < len(positional) {
		return positional[idx], true
	}
	return nil, false
}

// collectFreeVars walks an expression and returns the distinct
// identifiers it reads, in first-appearance order, excluding call
// callees (those name built-ins/user functions, not data) and names
// bound by an enclosing for-loop variable or a prior assignment within
// the same expression tree. This is deliberately conservative about
// shadowing (an inner AssignStmt's name is treated as bound from that
// assignment to the end of the whole walk, even past the end of the
// block it appears in; only for-loop variables are unbound again) since
// security() bodies are expected to be the arithmetic/conditional
// expressions spec.md §4.8 illustrates, not full nested scripts.
func collectFreeVars(e lang.Expr) []string {
	seen := map[string]bool{}
	bound := map[string]bool{}
	var order []string

	add := func(name string) {
		if bound[name] || seen[name] {
			return
		}
		seen[name] = true
		order = append(order, name)
	}

	var walkExpr func(e lang.Expr)
	var walkBlock func(b *lang.Block)
	var walkStmt func(s lang.Stmt)

	walkExpr = func(e lang.Expr) {
		if e == nil {
			return
		}
		switch n := e.(type) {
		case *lang.VarExpr:
			add(n.Name)
		case *lang.TupleExpr:
			for _, el := range n.Elems {
				walkExpr(el)
			}
		case *lang.TypeCastExpr:
			walkExpr(n.Value)
		case *lang.CallExpr:
			if _, ok := calleeName(n.Callee); !ok {
				walkExpr(n.Callee)
			}
			for _, a := range n.Args {
				walkExpr(a.Value)
			}
		case *lang.RefCallExpr:
			walkExpr(n.Target)
			walkExpr(n.Index)
		case *lang.PrefixExpr:
			walkExpr(n.Object)
		case *lang.ConditionExpr:
			walkExpr(n.Cond)
			walkExpr(n.Then)
			walkExpr(n.Else)
		case *lang.IfExpr:
			walkExpr(n.Cond)
			walkBlock(n.Then)
			walkBlock(n.Else)
		case *lang.ForExpr:
			walkExpr(n.Start)
			walkExpr(n.End)
			walkExpr(n.Step)
			was := bound[n.Var]
			bound[n.Var] = true
			walkBlock(n.Body)
			bound[n.Var] = was
		case *lang.UnaryExpr:
			walkExpr(n.Operand)
		case *lang.BinaryExpr:
			walkExpr(n.Left)
			walkExpr(n.Right)
		}
	}

	walkBlock = func(b *lang.Block) {
		if b == nil {
			return
		}
		for _, s := range b.Stmts {
			walkStmt(s)
		}
		walkExpr(b.Ret)
	}

	walkStmt = func(s lang.Stmt) {
		switch n := s.(type) {
		case *lang.AssignStmt:
			walkExpr(n.Value)
			for _, nb := range n.Names {
				bound[nb.Name] = true
			}
		case *lang.VarAssignStmt:
			walkExpr(n.Value)
		case *lang.IfStmt:
			walkExpr(n.Cond)
			walkBlock(n.Then)
			walkBlock(n.Else)
		case *lang.ForStmt:
			walkExpr(n.Start)
			walkExpr(n.End)
			walkExpr(n.Step)
			was := bound[n.Var]
			bound[n.Var] = true
			walkBlock(n.Body)
			bound[n.Var] = was
		case *lang.CallStmt:
			walkExpr(n.Call)
		}
	}

	walkExpr(e)
	return order
}
