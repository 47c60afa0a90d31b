package eval

import (
	"pine/internal/pine/builtin"
	"pine/internal/pine/check"
	"pine/internal/pine/lang"
	"pine/internal/pine/langerr"
	"pine/internal/pine/value"
)

// evalExpr evaluates one expression, returning value.NA{} and recording
// the error if evaluation has already failed this bar or fails now.
func (e *Evaluator) evalExpr(ctxID int, ex lang.Expr) value.Value {
	if e.failed() {
		return value.NA{}
	}
	switch n := ex.(type) {
	case *lang.NaExpr:
		return value.NA{}
	case *lang.BoolExpr:
		return n.Value
	case *lang.IntExpr:
		return n.Value
	case *lang.FloatExpr:
		return n.Value
	case *lang.StringExpr:
		return n.Value
	case *lang.ColorExpr:
		return n.Value
	case *lang.VarExpr:
		return e.evalVar(ctxID, n)
	case *lang.TupleExpr:
		elems := make(value.Tuple, len(n.Elems))
		for i, el := range n.Elems {
			elems[i] = e.evalExpr(ctxID, el)
		}
		return elems
	case *lang.TypeCastExpr:
		v := e.evalExpr(ctxID, n.Value)
		cast, err := value.Cast(v, n.Target)
		if err != nil {
			e.fail(langerr.New(langerr.InvalidTypeCast, n.Range, "%v", err))
			return value.NA{}
		}
		return cast
	case *lang.RefCallExpr:
		return e.evalRefCall(ctxID, n)
	case *lang.PrefixExpr:
		return e.evalPrefix(ctxID, n)
	case *lang.ConditionExpr:
		if truthy(e.evalExpr(ctxID, n.Cond)) {
			return e.evalExpr(ctxID, n.Then)
		}
		return e.evalExpr(ctxID, n.Else)
	case *lang.IfExpr:
		return e.evalIfExpr(ctxID, n)
	case *lang.ForExpr:
		return e.evalForExpr(ctxID, n)
	case *lang.UnaryExpr:
		return e.evalUnary(ctxID, n)
	case *lang.BinaryExpr:
		return e.evalBinary(ctxID, n)
	case *lang.CallExpr:
		return e.evalCall(ctxID, n)
	default:
		e.fail(langerr.New(langerr.NotImplement, ex.Rng(), "unhandled expression %T", ex))
		return value.NA{}
	}
}

// evalVar reads a variable slot. A bare name read is an rvalue copy
// (spec.md §4.1): for a series slot, the caller gets the series handle
// itself (series identity matters for e.g. lowest(close, 5)); for
// everything else Copy() clones compound values so mutation through one
// binding can't alias another.
func (e *Evaluator) evalVar(ctxID int, n *lang.VarExpr) value.Value {
	idx, ok := e.Prog.VarRef[n]
	if !ok {
		e.fail(langerr.New(langerr.VarNotFound, n.Range, "%q has no resolved slot", n.Name))
		return value.NA{}
	}
	v := e.G.GetVar(ctxID, idx)
	if _, isSeries := v.(*value.Series); isSeries {
		return v
	}
	return value.Copy(v)
}

// evalRefCall resolves `expr[idx]`: looks up the variable's series slot
// (the checker already guaranteed it is series-shaped by the time
// evaluation runs) and indexes into its history.
func (e *Evaluator) evalRefCall(ctxID int, n *lang.RefCallExpr) value.Value {
	idxVal := e.evalExpr(ctxID, n.Index)
	k := asInt(idxVal)

	var series *value.Series
	if varExpr, ok := n.Target.(*lang.VarExpr); ok {
		idx, ok := e.Prog.VarRef[varExpr]
		if !ok {
			e.fail(langerr.New(langerr.VarNotFound, n.Range, "%q has no resolved slot", varExpr.Name))
			return value.NA{}
		}
		s, ok := e.G.GetVar(ctxID, idx).(*value.Series)
		if !ok {
			e.fail(langerr.New(langerr.VarNotSeriesInRef, n.Range, "%q is not a series", varExpr.Name))
			return value.NA{}
		}
		series = s
	} else {
		v := e.evalExpr(ctxID, n.Target)
		s, ok := v.(*value.Series)
		if !ok {
			e.fail(langerr.New(langerr.VarNotSeriesInRef, n.Range, "indexed expression is not a series"))
			return value.NA{}
		}
		series = s
	}
	return series.Index(int(k))
}

// evalPrefix reads an object field `a.b` (a dotted built-in call target
// like `input.bool` is resolved by evalCall, never reaching here).
func (e *Evaluator) evalPrefix(ctxID int, n *lang.PrefixExpr) value.Value {
	v := e.evalExpr(ctxID, n.Object)
	obj, ok := v.(*value.Object)
	if !ok {
		e.fail(langerr.New(langerr.RefObjTypeNotObj, n.Range, "cannot access field %q of non-object", n.Field))
		return value.NA{}
	}
	field, ok := obj.Get(n.Field)
	if !ok {
		e.fail(langerr.New(langerr.RefKeyNotExist, n.Range, "object has no field %q", n.Field))
		return value.NA{}
	}
	return field
}

func (e *Evaluator) evalIfExpr(ctxID int, n *lang.IfExpr) value.Value {
	info := e.Prog.SubCtx[n]
	childID := e.G.GetOrCreateSubContext(ctxID, info.Index, info.Kind, info.VarCount, info.SubCount, info.FunCount)
	cond := e.evalExpr(ctxID, n.Cond)
	if e.failed() {
		return value.NA{}
	}
	if truthy(cond) {
		v, _ := e.runBlock(childID, n.Then)
		return v
	}
	if n.Else != nil {
		v, _ := e.runBlock(childID, n.Else)
		return v
	}
	return value.NA{}
}

func (e *Evaluator) evalForExpr(ctxID int, n *lang.ForExpr) value.Value {
	info := e.Prog.SubCtx[n]
	childID := e.G.GetOrCreateSubContext(ctxID, info.Index, info.Kind, info.VarCount, info.SubCount, info.FunCount)

	start := asInt(e.evalExpr(ctxID, n.Start))
	end := asInt(e.evalExpr(ctxID, n.End))
	step := int64(1)
	if n.Step != nil {
		step = asInt(e.evalExpr(ctxID, n.Step))
	} else if end < start {
		step = -1
	}
	if e.failed() || step == 0 {
		return value.NA{}
	}

	var last value.Value = value.NA{}
	for i := start; (step > 0 && i <= end) || (step < 0 && i >= end); i += step {
		e.G.CreateVar(childID, loopVarSlot, i)
		v, sig := e.runBlock(childID, n.Body)
		if e.failed() {
			return value.NA{}
		}
		last = v
		if sig == sigBreak {
			break
		}
	}
	return last
}

func (e *Evaluator) evalUnary(ctxID int, n *lang.UnaryExpr) value.Value {
	v := e.evalExpr(ctxID, n.Operand)
	if e.failed() {
		return value.NA{}
	}
	switch n.Operator {
	case "!", "not":
		return !truthy(v)
	case "-":
		switch t := unwrap(v).(type) {
		case int64:
			return -t
		case float64:
			return -t
		}
	case "+":
		return unwrap(v)
	}
	e.fail(langerr.New(langerr.UnaryTypeNotNum, n.Range, "bad operand for unary %s", n.Operator))
	return value.NA{}
}

func unwrap(v value.Value) value.Value {
	if s, ok := v.(*value.Series); ok {
		return s.Current
	}
	return v
}

func (e *Evaluator) evalBinary(ctxID int, n *lang.BinaryExpr) value.Value {
	l := e.evalExpr(ctxID, n.Left)
	if n.Operator == "and" && !truthy(l) {
		return false
	}
	if n.Operator == "or" && truthy(l) {
		return true
	}
	r := e.evalExpr(ctxID, n.Right)
	if e.failed() {
		return value.NA{}
	}
	switch n.Operator {
	case "and":
		return truthy(l) && truthy(r)
	case "or":
		return truthy(l) || truthy(r)
	case "==":
		return equalValues(unwrap(l), unwrap(r))
	case "!=":
		return !equalValues(unwrap(l), unwrap(r))
	}
	lf, lok := asFloatOK(unwrap(l))
	rf, rok := asFloatOK(unwrap(r))
	if !lok || !rok {
		e.fail(langerr.New(langerr.BinaryTypeNotNum, n.Range, "operands of %s must be numeric", n.Operator))
		return value.NA{}
	}
	li, liok := unwrap(l).(int64)
	ri, riok := unwrap(r).(int64)
	bothInt := liok && riok
	switch n.Operator {
	case "+":
		if bothInt {
			return li + ri
		}
		return lf + rf
	case "-":
		if bothInt {
			return li - ri
		}
		return lf - rf
	case "*":
		if bothInt {
			return li * ri
		}
		return lf * rf
	case "/":
		if rf == 0 {
			return value.NA{}
		}
		return lf / rf
	case "%":
		if bothInt {
			if ri == 0 {
				return value.NA{}
			}
			return li % ri
		}
		if rf == 0 {
			return value.NA{}
		}
		mod := lf - rf*float64(int64(lf/rf))
		return mod
	case "<":
		return lf < rf
	case ">":
		return lf > rf
	case "<=":
		return lf <= rf
	case ">=":
		return lf >= rf
	}
	e.fail(langerr.New(langerr.NotSupportOperator, n.Range, "unsupported operator %s", n.Operator))
	return value.NA{}
}

func asFloatOK(v value.Value) (float64, bool) {
	switch t := v.(type) {
	case int64:
		return float64(t), true
	case float64:
		return t, true
	default:
		return 0, false
	}
}

func equalValues(a, b value.Value) bool {
	af, aok := asFloatOK(a)
	bf, bok := asFloatOK(b)
	if aok && bok {
		return af == bf
	}
	return a == b
}

// evalCall dispatches a call expression to a built-in, a user function,
// or (not yet supported) a runtime callable-object value.
func (e *Evaluator) evalCall(ctxID int, n *lang.CallExpr) value.Value {
	if name, ok := calleeName(n); ok {
		if name == "security" {
			return e.evalSecurityCall(ctxID, n)
		}
		if _, isBuiltin := builtin.Signatures[name]; isBuiltin {
			return e.evalBuiltinCall(ctxID, n, name)
		}
		if fn, isUser := e.Prog.FuncDefs[name]; isUser {
			return e.evalUserCall(ctxID, n, fn)
		}
	}
	e.fail(langerr.New(langerr.VarNotCallable, n.Range, "unresolved call target"))
	return value.NA{}
}

func calleeName(e *lang.CallExpr) (string, bool) {
	switch t := e.Callee.(type) {
	case *lang.VarExpr:
		return t.Name, true
	case *lang.PrefixExpr:
		if base, ok := calleeName(&lang.CallExpr{Callee: t.Object}); ok {
			return base + "." + t.Field, true
		}
		if v, ok := t.Object.(*lang.VarExpr); ok {
			return v.Name + "." + t.Field, true
		}
	}
	return "", false
}

func (e *Evaluator) evalBuiltinCall(ctxID int, n *lang.CallExpr, name string) value.Value {
	args := builtin.Args{Named: make(map[string]value.Value)}
	for _, a := range n.Args {
		v := e.evalExpr(ctxID, a.Value)
		if a.Name == "" {
			args.Positional = append(args.Positional, v)
		} else {
			args.Named[a.Name] = v
		}
	}
	if e.failed() {
		return value.NA{}
	}
	slot := e.Prog.CallSlot[n]
	result, err := builtin.Invoke(e.G, ctxID, name, slot, args, e.Bar)
	if err != nil {
		e.fail(err)
		return value.NA{}
	}
	return result
}

// evalUserCall re-enters a user function's body in its own (per-call-
// site, pre-sized) sub-context, binding parameters as fresh slots.
func (e *Evaluator) evalUserCall(ctxID int, n *lang.CallExpr, fn *check.UserFuncInfo) value.Value {
	info := e.Prog.SubCtx[n]
	childID := e.G.GetOrCreateSubContext(ctxID, info.Index, info.Kind, info.VarCount, info.SubCount, info.FunCount)
	for i, a := range n.Args {
		v := e.evalExpr(ctxID, a.Value)
		e.G.CreateVar(childID, i, v)
	}
	if e.failed() {
		return value.NA{}
	}
	v, _ := e.runBlock(childID, fn.Body)
	return v
}
