package eval

import (
	"pine/internal/pine/ctx"
	"pine/internal/pine/lang"
	"pine/internal/pine/langerr"
	"pine/internal/pine/value"
)

// runStmt executes one statement, returning sigBreak/sigContinue if it
// (or something it contains) requested loop control.
func (e *Evaluator) runStmt(ctxID int, s lang.Stmt) signal {
	switch st := s.(type) {
	case *lang.BreakStmt:
		return sigBreak
	case *lang.ContinueStmt:
		return sigContinue
	case *lang.NoneStmt:
		return sigNone
	case *lang.AssignStmt:
		e.runAssign(ctxID, st)
		return sigNone
	case *lang.VarAssignStmt:
		e.runVarAssign(ctxID, st)
		return sigNone
	case *lang.IfStmt:
		return e.runIfStmt(ctxID, st)
	case *lang.ForStmt:
		return e.runForStmt(ctxID, st)
	case *lang.CallStmt:
		e.evalExpr(ctxID, st.Call)
		return sigNone
	case *lang.FuncDefStmt:
		return sigNone // bound once at check time; nothing to do per bar
	default:
		e.fail(langerr.New(langerr.NotImplement, st.Rng(), "unhandled statement %T", s))
		return sigNone
	}
}

// runAssign evaluates the right-hand side and creates (or re-creates)
// the declared slot(s). A declared series type backs the slot with a
// *value.Series so history accumulates across bars; re-running the same
// AssignStmt on a later bar re-enters this same slot, so a series value
// already stored there is updated in place rather than replaced, the way
// spec.md §3.2 requires (a fresh *Series every bar would lose history).
func (e *Evaluator) runAssign(ctxID int, s *lang.AssignStmt) {
	v := e.evalExpr(ctxID, s.Value)
	if e.failed() {
		return
	}
	slots := e.Prog.DeclSlot[s]
	if len(s.Names) > 1 {
		tup, ok := v.(value.Tuple)
		if !ok || len(tup) != len(slots) {
			e.fail(langerr.New(langerr.TupleMismatch, s.Range, "destructuring assignment value is not a matching tuple"))
			return
		}
		for i, slot := range slots {
			e.storeDecl(ctxID, slot, s.Names[i], tup[i])
		}
		return
	}
	e.storeDecl(ctxID, slots[0], s.Names[0], v)
}

func (e *Evaluator) storeDecl(ctxID, slot int, nb lang.NameBinding, v value.Value) {
	existing := e.G.GetVar(ctxID, ctx.VarIndex{Slot: slot, Depth: 0})
	if s, ok := existing.(*value.Series); ok {
		s.Update(v)
		return
	}
	e.G.CreateVar(ctxID, slot, v)
}

// runVarAssign reassigns an existing variable; the checker already
// upgraded its declared shape to series if this or any later reference
// demanded it, so by evaluation time the slot is always the final shape.
func (e *Evaluator) runVarAssign(ctxID int, s *lang.VarAssignStmt) {
	v := e.evalExpr(ctxID, s.Value)
	if e.failed() {
		return
	}
	idx, ok := e.Prog.VarRef[s]
	if !ok {
		e.fail(langerr.New(langerr.VarNotFound, s.Range, "%q has no resolved slot", s.Name))
		return
	}
	existing := e.G.GetVar(ctxID, idx)
	if ser, ok := existing.(*value.Series); ok {
		ser.Update(v)
		return
	}
	if ser, ok := v.(*value.Series); ok {
		e.G.UpdateVar(ctxID, idx, ser)
		return
	}
	e.G.UpdateVar(ctxID, idx, v)
}

func (e *Evaluator) runIfStmt(ctxID int, s *lang.IfStmt) signal {
	cond := e.evalExpr(ctxID, s.Cond)
	if e.failed() {
		return sigNone
	}
	info := e.Prog.SubCtx[s]
	childID := e.G.GetOrCreateSubContext(ctxID, info.Index, info.Kind, info.VarCount, info.SubCount, info.FunCount)
	if truthy(cond) {
		_, sig := e.runBlock(childID, s.Then)
		return sig
	}
	if s.Else != nil {
		_, sig := e.runBlock(childID, s.Else)
		return sig
	}
	return sigNone
}

func (e *Evaluator) runForStmt(ctxID int, s *lang.ForStmt) signal {
	info := e.Prog.SubCtx[s]
	childID := e.G.GetOrCreateSubContext(ctxID, info.Index, info.Kind, info.VarCount, info.SubCount, info.FunCount)

	start := asInt(e.evalExpr(ctxID, s.Start))
	end := asInt(e.evalExpr(ctxID, s.End))
	step := int64(1)
	if s.Step != nil {
		step = asInt(e.evalExpr(ctxID, s.Step))
	} else if end < start {
		step = -1
	}
	if e.failed() || step == 0 {
		return sigNone
	}

	for i := start; (step > 0 && i <= end) || (step < 0 && i >= end); i += step {
		e.G.CreateVar(childID, loopVarSlot, i)
		_, sig := e.runBlock(childID, s.Body)
		if e.failed() {
			return sigNone
		}
		if sig == sigBreak {
			break
		}
	}
	return sigNone
}

// loopVarSlot is always slot 0 of a for loop's child scope: the checker
// declares the loop variable first, before checking the body.
const loopVarSlot = 0

func truthy(v value.Value) bool {
	switch t := v.(type) {
	case bool:
		return t
	case *value.Series:
		return truthy(t.Current)
	default:
		return false
	}
}

func asInt(v value.Value) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case float64:
		return int64(t)
	default:
		return 0
	}
}
