package check

import (
	"pine/internal/pine/builtin"
	"pine/internal/pine/ctx"
	"pine/internal/pine/lang"
	"pine/internal/pine/langerr"
	"pine/internal/pine/types"
	"pine/internal/pine/value"
)

// checkExpr dispatches one expression by concrete type (see checkStmt's
// comment for why a type switch stands in for Accept/Visitor here), and
// records its resolved syntax type.
func (c *Checker) checkExpr(e lang.Expr) types.Type {
	var t types.Type
	switch n := e.(type) {
	case *lang.NaExpr:
		t = c.checkNaExpr(n)
	case *lang.BoolExpr:
		t = c.checkBoolExpr(n)
	case *lang.IntExpr:
		t = c.checkIntExpr(n)
	case *lang.FloatExpr:
		t = c.checkFloatExpr(n)
	case *lang.StringExpr:
		t = c.checkStringExpr(n)
	case *lang.ColorExpr:
		t = c.checkColorExpr(n)
	case *lang.VarExpr:
		t = c.checkVarExpr(n)
	case *lang.TupleExpr:
		t = c.checkTupleExpr(n)
	case *lang.TypeCastExpr:
		t = c.checkTypeCastExpr(n)
	case *lang.RefCallExpr:
		t = c.checkRefCallExpr(n)
	case *lang.PrefixExpr:
		t = c.checkPrefixExpr(n)
	case *lang.ConditionExpr:
		t = c.checkConditionExpr(n)
	case *lang.IfExpr:
		t = c.checkIfExpr(n)
	case *lang.ForExpr:
		t = c.checkForExpr(n)
	case *lang.UnaryExpr:
		t = c.checkUnaryExpr(n)
	case *lang.BinaryExpr:
		t = c.checkBinaryExpr(n)
	case *lang.CallExpr:
		t = c.checkCallExpr(n)
	default:
		c.errf(langerr.NotImplement, e.Rng(), "unhandled expression %T", e)
		t = types.Any()
	}
	c.prog.ExprType[e] = t
	return t
}

func (c *Checker) checkNaExpr(e *lang.NaExpr) types.Type { return types.Simple(value.PNA) }

func (c *Checker) checkBoolExpr(e *lang.BoolExpr) types.Type { return types.Simple(value.PBool) }

func (c *Checker) checkIntExpr(e *lang.IntExpr) types.Type { return types.Simple(value.PInt) }

func (c *Checker) checkFloatExpr(e *lang.FloatExpr) types.Type { return types.Simple(value.PFloat) }

func (c *Checker) checkStringExpr(e *lang.StringExpr) types.Type { return types.Simple(value.PString) }

func (c *Checker) checkColorExpr(e *lang.ColorExpr) types.Type { return types.Simple(value.PColor) }

// checkVarExpr resolves an identifier reference: a declared variable (simple
// or series — rvalue reads never themselves upgrade the type), or a
// built-in/user function name used bare (e.g. as a CallExpr callee,
// resolved again there; here it surfaces as a function-typed value in
// case it's ever referenced without a call).
func (c *Checker) checkVarExpr(e *lang.VarExpr) types.Type {
	if sym, depth, ok := c.cur.lookup(e.Name); ok {
		c.prog.VarRef[e] = ctx.VarIndex{Slot: sym.slot, Depth: depth}
		return sym.typ
	}
	if _, ok := builtin.Signatures[e.Name]; ok {
		return types.FunctionT(builtin.Signatures[e.Name]...)
	}
	if fn, ok := c.funcs[e.Name]; ok {
		return types.UserFunctionT(fn.Params)
	}
	c.errf(langerr.VarNotDeclared, e.Range, "%q is not declared", e.Name)
	return types.Any()
}

func (c *Checker) checkTupleExpr(e *lang.TupleExpr) types.Type {
	elems := make([]types.Type, len(e.Elems))
	for i, el := range e.Elems {
		elems[i] = c.checkExpr(el)
	}
	return types.TupleT(elems...)
}

// checkTypeCastExpr handles an explicit cast `int(x)`, permitted only among
// the scalar primaries (spec.md §3.1's Castable table).
func (c *Checker) checkTypeCastExpr(e *lang.TypeCastExpr) types.Type {
	from := c.checkExpr(e.Value)
	to := types.Simple(e.Target)
	if from.Kind == types.KSeries {
		to = types.SeriesT(e.Target)
	}
	if !types.Castable(from, to) {
		c.errf(langerr.InvalidTypeCast, e.Range, "cannot cast %s to %s", from.String(), to.String())
	}
	return to
}

// checkRefCallExpr handles a series index `expr[idx]` (spec.md §4.3): the
// target is upgraded from simple to series if it wasn't already (the
// upgrade is visible to subsequent reads, not prior ones, since this is
// a single forward pass), the index must be a plain int, and the result
// is the (simple, element) type — indexing collapses the series shape.
func (c *Checker) checkRefCallExpr(e *lang.RefCallExpr) types.Type {
	idxType := c.checkExpr(e.Index)
	if idxType.Kind != types.KSimple || idxType.Elem != value.PInt {
		c.errf(langerr.RefIndexNotInt, e.Range, "series index must be simple int, got %s", idxType.String())
	}

	varExpr, ok := e.Target.(*lang.VarExpr)
	if !ok {
		targetType := c.checkExpr(e.Target)
		if !targetType.IsSeries() {
			c.errf(langerr.VarNotSeriesInRef, e.Range, "indexed expression must be series, got %s", targetType.String())
			return types.Any()
		}
		return types.Simple(targetType.Elem)
	}

	sym, depth, ok := c.cur.lookup(varExpr.Name)
	if !ok {
		c.errf(langerr.VarNotDeclared, e.Range, "%q is not declared", varExpr.Name)
		return types.Any()
	}
	if sym.typ.Kind != types.KSimple && sym.typ.Kind != types.KSeries {
		c.errf(langerr.VarNotSeriesInRef, e.Range, "%q is not a numeric/bool series", varExpr.Name)
		return types.Any()
	}
	sym.typ = types.Lift(sym.typ)
	c.prog.VarRef[e] = ctx.VarIndex{Slot: sym.slot, Depth: depth}
	c.prog.VarRef[varExpr] = ctx.VarIndex{Slot: sym.slot, Depth: depth}
	return types.Simple(sym.typ.Elem)
}

// checkPrefixExpr handles a field chain `a.b`: either an object field lookup
// or (when the whole chain resolves to a known built-in name like
// `input.bool`) the left half of a dotted call target, resolved by
// checkCallExpr instead — here we only handle the object-field case.
func (c *Checker) checkPrefixExpr(e *lang.PrefixExpr) types.Type {
	if _, ok := calleeName(e); ok {
		if _, isBuiltin := builtin.Signatures[mustName(e)]; isBuiltin {
			return types.FunctionT(builtin.Signatures[mustName(e)]...)
		}
	}
	objType := c.checkExpr(e.Object)
	if objType.Kind != types.KObject && objType.Kind != types.KObjectFunction {
		c.errf(langerr.RefObjTypeNotObj, e.Range, "cannot access field %q of non-object type %s", e.Field, objType.String())
		return types.Any()
	}
	ft, ok := objType.Fields[e.Field]
	if !ok {
		c.errf(langerr.RefKeyNotExist, e.Range, "object has no field %q", e.Field)
		return types.Any()
	}
	return ft
}

func mustName(e lang.Expr) string {
	n, _ := calleeName(e)
	return n
}

// checkConditionExpr handles the ternary `c ? t : e`: condition must be
// bool-like, both branches must share a LUB (spec.md §4.3's
// CondExpTypesNotSame).
func (c *Checker) checkConditionExpr(e *lang.ConditionExpr) types.Type {
	condType := c.checkExpr(e.Cond)
	if !types.ConditionBool(condType) {
		c.errf(langerr.CondNotBool, e.Range, "condition must be bool-like, got %s", condType.String())
	}
	thenType := c.checkExpr(e.Then)
	elseType := c.checkExpr(e.Else)
	lub, ok := types.LUB(thenType, elseType)
	if !ok {
		c.errf(langerr.CondExpTypesNotSame, e.Range, "branches have incompatible types %s and %s", thenType.String(), elseType.String())
		return types.Any()
	}
	return lub
}

// checkIfExpr handles the expression-position `if`: both branches must
// produce a value, neither void nor na (spec.md §4.3's ExpNoReturn /
// ExpReturnNa), unified by LUB.
func (c *Checker) checkIfExpr(e *lang.IfExpr) types.Type {
	condType := c.checkExpr(e.Cond)
	if !types.ConditionBool(condType) {
		c.errf(langerr.CondNotBool, e.Range, "if condition must be bool-like, got %s", condType.String())
	}
	var thenType, elseType types.Type
	c.pushChildScope(e, ctx.IfElseBlock, func() {
		thenType = c.checkBlockStmts(e.Then)
		if e.Else != nil {
			elseType = c.checkBlockStmts(e.Else)
		}
	})
	if e.Then.Ret == nil {
		c.errf(langerr.ExpNoReturn, e.Range, "if-expression's then branch has no trailing value")
	}
	if e.Else == nil || e.Else.Ret == nil {
		c.errf(langerr.ExpNoReturn, e.Range, "if-expression's else branch has no trailing value")
	}
	if thenType.IsVoidOrNA() || elseType.IsVoidOrNA() {
		c.errf(langerr.ExpReturnNa, e.Range, "if-expression branches must not resolve to void or na")
	}
	lub, ok := types.LUB(thenType, elseType)
	if !ok {
		c.errf(langerr.CondExpTypesNotSame, e.Range, "if-expression branches have incompatible types %s and %s", thenType.String(), elseType.String())
		return types.Any()
	}
	return lub
}

// checkForExpr handles the expression-position `for`: the body's trailing
// value on the last iteration is the loop's result.
func (c *Checker) checkForExpr(e *lang.ForExpr) types.Type {
	c.checkForRangeBounds(e.Start, e.End, e.Step, e.Range)
	c.loopDepth++
	var bodyType types.Type
	c.pushChildScope(e, ctx.ForRangeBlock, func() {
		c.cur.declare(e.Var, types.Simple(value.PInt))
		bodyType = c.checkBlockStmts(e.Body)
	})
	c.loopDepth--
	if bodyType.IsVoidOrNA() {
		c.errf(langerr.ExpReturnNa, e.Range, "for-expression body must not resolve to void or na")
	}
	return bodyType
}

// checkUnaryExpr handles `+x`/`-x` (numeric) and `!x` (bool), preserving
// shape (simple stays simple, series stays series).
func (c *Checker) checkUnaryExpr(e *lang.UnaryExpr) types.Type {
	t := c.checkExpr(e.Operand)
	if e.Operator == "!" || e.Operator == "not" {
		if !types.ConditionBool(t) {
			c.errf(langerr.BoolExpTypeNotBool, e.Range, "operand of %s must be bool-like, got %s", e.Operator, t.String())
			return types.Any()
		}
		return t
	}
	if !t.IsNumeric() {
		c.errf(langerr.UnaryTypeNotNum, e.Range, "operand of unary %s must be numeric, got %s", e.Operator, t.String())
		return types.Any()
	}
	return t
}

// checkBinaryExpr handles arithmetic, comparison and boolean operators,
// widening via LUB and lifting the result to series if either side is.
func (c *Checker) checkBinaryExpr(e *lang.BinaryExpr) types.Type {
	lt := c.checkExpr(e.Left)
	rt := c.checkExpr(e.Right)
	switch e.Operator {
	case "and", "or":
		if !types.ConditionBool(lt) || !types.ConditionBool(rt) {
			c.errf(langerr.BoolExpTypeNotBool, e.Range, "operands of %s must be bool-like", e.Operator)
			return types.Any()
		}
		shape := types.ResultShape(lt, rt)
		if shape == types.KSeries {
			return types.SeriesT(value.PBool)
		}
		return types.Simple(value.PBool)
	case "==", "!=", "<", ">", "<=", ">=":
		if _, ok := types.LUB(lt, rt); !ok {
			c.errf(langerr.TypeMismatch, e.Range, "cannot compare %s and %s", lt.String(), rt.String())
			return types.Any()
		}
		shape := types.ResultShape(lt, rt)
		if shape == types.KSeries {
			return types.SeriesT(value.PBool)
		}
		return types.Simple(value.PBool)
	default: // + - * / %
		if !lt.IsNumeric() || !rt.IsNumeric() {
			c.errf(langerr.BinaryTypeNotNum, e.Range, "operands of %s must be numeric, got %s and %s", e.Operator, lt.String(), rt.String())
			return types.Any()
		}
		lub, ok := types.LUB(lt, rt)
		if !ok {
			c.errf(langerr.BinaryTypeNotNum, e.Range, "incompatible numeric operands %s and %s", lt.String(), rt.String())
			return types.Any()
		}
		return lub
	}
}

// checkCallExpr handles a function call: resolves the callee to a built-in
// overload set, a user function, or a variable holding a callable-object
// (series() of an object-function), and checks arguments accordingly.
func (c *Checker) checkCallExpr(e *lang.CallExpr) types.Type {
	if name, ok := calleeName(e.Callee); ok {
		if name == "security" {
			return c.checkSecurityCall(e)
		}
		if overloads, isBuiltin := builtin.Signatures[name]; isBuiltin {
			return c.checkBuiltinCall(e, name, overloads)
		}
		if fn, isUser := c.funcs[name]; isUser {
			return c.checkUserCall(e, fn)
		}
	}
	// Fall back to a callable-object value (object-function field, or a
	// variable of function type).
	calleeType := c.checkExpr(e.Callee)
	if calleeType.Kind == types.KObjectFunction {
		return c.checkBuiltinCall(e, "(object)", calleeType.Overloads)
	}
	if calleeType.Kind != types.KFunction {
		c.errf(langerr.VarNotCallable, e.Range, "cannot call a value of type %s", calleeType.String())
		return types.Any()
	}
	return c.checkBuiltinCall(e, "(value)", calleeType.Overloads)
}

// checkBuiltinCall resolves argument positions against the first
// matching overload, in the teacher's "error-accumulate, keep going"
// spirit: a mismatch is reported but checking continues with Any().
func (c *Checker) checkBuiltinCall(e *lang.CallExpr, name string, overloads []types.Overload) types.Type {
	argTypes := make([]types.Type, len(e.Args))
	for i, a := range e.Args {
		argTypes[i] = c.checkExpr(a.Value)
	}

	for _, ov := range overloads {
		if ret, ok := c.matchOverload(ov, e.Args, argTypes); ok {
			if needsMemoisedSlot(name) {
				c.reserveCallSlot(e)
			}
			return ret
		}
	}
	c.errf(langerr.FuncCallSignatureNotMatch, e.Range, "no overload of %q matches the given arguments", name)
	return types.Any()
}

// needsMemoisedSlot reports whether a built-in call needs a per-call-site
// function-instance slot (input/plot/line carry state across bars; pure
// math functions like abs/max/min don't). security also needs one, but
// it is reserved directly by checkSecurityCall since that call never
// reaches this generic overload-matching path.
func needsMemoisedSlot(name string) bool {
	switch name {
	case "input.bool", "input.int", "input.float", "input.string", "input.source",
		"plot", "line.new":
		return true
	default:
		return false
	}
}

func (c *Checker) matchOverload(ov types.Overload, args []lang.Arg, argTypes []types.Type) (types.Type, bool) {
	bound := make(map[string]types.Type)
	posIdx := 0
	for i, a := range args {
		if a.Name == "" {
			if posIdx >= len(ov.Positional) {
				return types.Type{}, false
			}
			param := ov.Positional[posIdx]
			if !types.Convertible(argTypes[i], param.Type) {
				return types.Type{}, false
			}
			bound[param.Name] = argTypes[i]
			posIdx++
			continue
		}
		param, ok := findParam(ov, a.Name)
		if !ok || !types.Convertible(argTypes[i], param.Type) {
			return types.Type{}, false
		}
		bound[a.Name] = argTypes[i]
	}
	for _, param := range ov.Positional {
		if _, ok := bound[param.Name]; !ok && !param.Optional {
			return types.Type{}, false
		}
	}
	for _, param := range ov.Named {
		if _, ok := bound[param.Name]; !ok && !param.Optional {
			return types.Type{}, false
		}
	}
	return ov.Return, true
}

func findParam(ov types.Overload, name string) (types.Param, bool) {
	for _, p := range ov.Positional {
		if p.Name == name {
			return p, true
		}
	}
	for _, p := range ov.Named {
		if p.Name == name {
			return p, true
		}
	}
	return types.Param{}, false
}

// checkUserCall re-checks a user function's body once for this call
// site, binding parameters to the call's argument types (spec.md §4.6:
// parameters carry no declared type, so each call site is its own
// instantiation with its own pre-sized sub-context).
func (c *Checker) checkUserCall(e *lang.CallExpr, fn *UserFuncInfo) types.Type {
	if len(e.Args) != len(fn.Params) {
		c.errf(langerr.FuncCallSignatureNotMatch, e.Range, "%q expects %d argument(s), got %d", fn.Name, len(fn.Params), len(e.Args))
		return types.Any()
	}
	for _, a := range e.Args {
		if a.Name != "" {
			c.errf(langerr.ForbiddenDictArgsForUserFunc, e.Range, "user function %q does not accept named arguments", fn.Name)
		}
	}
	argTypes := make([]types.Type, len(e.Args))
	for i, a := range e.Args {
		argTypes[i] = c.checkExpr(a.Value)
	}

	var bodyType types.Type
	c.pushChildScope(e, ctx.FuncDefBlock, func() {
		for i, name := range fn.Params {
			c.cur.declare(name, argTypes[i])
		}
		bodyType = c.checkBlockStmts(fn.Body)
	})
	return bodyType
}
