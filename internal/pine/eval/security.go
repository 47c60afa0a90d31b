package eval

import (
	"pine/internal/pine/ctx"
	"pine/internal/pine/lang"
	"pine/internal/pine/langerr"
	"pine/internal/pine/value"
)

// securityInstance is the per-call-site state behind security() (spec.md
// §4.8): a private, detached sub-context holding the re-evaluated
// expression's captured-variable series, a cursor into the synthetic
// source's time series, and the last result produced — carried forward
// on a host bar that reaches no new foreign bar.
type securityInstance struct {
	ctxID      int
	timeSlot   int
	nextIndex  int
	lastResult value.Value
	haveResult bool
	lastField  map[string]float64
}

func (s *securityInstance) Run(g *ctx.Graph, ctxID int)  {}
func (s *securityInstance) Back(g *ctx.Graph, ctxID int) {}

// findNearestIndex binary-searches times (assumed non-decreasing) for
// cur: with lookahead false, the largest index with times[i] <= cur;
// with lookahead true, the smallest index with times[i] >= cur. ok is
// false when no such index exists yet. Returning ok=false instead of an
// out-of-range index is a deliberate departure from the source
// implementation, which spec.md §9 flags as indexing past the end of
// short input vectors in this situation.
func findNearestIndex(times []int64, cur int64, lookahead bool) (int, bool) {
	lo, hi := 0, len(times)
	for lo < hi {
		mid := (lo + hi) / 2
		if times[mid] < cur {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(times) && times[lo] == cur {
		for !lookahead && lo+1 < len(times) && times[lo+1] == cur {
			lo++
		}
		return lo, true
	}
	if lookahead {
		if lo < len(times) {
			return lo, true
		}
		return 0, false
	}
	if lo == 0 {
		return 0, false
	}
	return lo - 1, true
}

func secBoolArg(v value.Value) bool {
	b, _ := v.(bool)
	return b
}

func secStringArg(v value.Value) string {
	s, _ := v.(string)
	return s
}

func secNamedOrPositional(named map[string]lang.Expr, name string, positional []lang.Expr, idx int) (lang.Expr, bool) {
	if e, ok := named[name]; ok {
		return e, true
	}
	if idx < len(positional) {
		return positional[idx], true
	}
	return nil, false
}

// evalSecurityCall implements security(symbol, resolution, expression,
// gaps, lookahead) (spec.md §4.8): on first use it allocates a private
// detached sub-context sized to the expression's captured free
// variables, then on every bar binary-searches the synthetic
// "{symbol}-{resolution}" source's time series and replays the
// expression over every foreign bar newly reached since the last host
// bar, committing the sub-context after each one. A host bar that
// reaches no new foreign bar re-returns the last result produced (or na
// if none has been produced yet).
func (e *Evaluator) evalSecurityCall(ctxID int, n *lang.CallExpr) value.Value {
	info, ok := e.Prog.SecurityCalls[n]
	if !ok {
		e.fail(langerr.New(langerr.NotImplement, n.Range, "security call was not resolved by the checker"))
		return value.NA{}
	}

	var positional []lang.Expr
	named := map[string]lang.Expr{}
	for _, a := range n.Args {
		if a.Name == "" {
			positional = append(positional, a.Value)
		} else {
			named[a.Name] = a.Value
		}
	}

	symbol := secStringArg(e.evalExpr(ctxID, positional[0]))
	resolution := secStringArg(e.evalExpr(ctxID, positional[1]))
	gaps := false
	if ge, ok := secNamedOrPositional(named, "gaps", positional, 3); ok {
		gaps = secBoolArg(e.evalExpr(ctxID, ge))
	}
	lookahead := false
	if le, ok := secNamedOrPositional(named, "lookahead", positional, 4); ok {
		lookahead = secBoolArg(e.evalExpr(ctxID, le))
	}
	if e.failed() {
		return value.NA{}
	}

	slot := e.Prog.CallSlot[n]
	inst, _ := e.G.FunInstance(ctxID, slot).(*securityInstance)
	if inst == nil {
		sub := e.Prog.SubCtx[n]
		childID := e.G.NewDetachedContext(ctxID, sub.Kind, sub.VarCount, sub.SubCount, sub.FunCount)
		for i := range info.Fields {
			e.G.CreateVar(childID, i, value.NewSeries(value.PFloat))
		}
		timeSlot := len(info.Fields)
		e.G.CreateVar(childID, timeSlot, int64(0))
		inst = &securityInstance{ctxID: childID, timeSlot: timeSlot, lastField: make(map[string]float64)}
		e.G.CreateFunInstance(ctxID, slot, inst)
	}

	source, ok := e.G.IO.SecuritySourceFor(symbol + "-" + resolution)
	if !ok {
		return value.NA{}
	}

	curTime, _ := e.G.GetVar(e.G.Root(), e.Prog.WellKnown["_time"]).(int64)
	idx, found := findNearestIndex(source.Time, curTime, lookahead)
	if !found {
		return securityCachedResult(inst)
	}
	end := idx + 1
	if end <= inst.nextIndex {
		return securityCachedResult(inst)
	}

	var first, last value.Value = value.NA{}, value.NA{}
	for j := inst.nextIndex; j < end; j++ {
		for i, name := range info.Fields {
			data := source.Fields[name]
			fv, present := 0.0, false
			if j < len(data) {
				fv, present = data[j], true
				inst.lastField[name] = fv
			} else if !gaps {
				fv, present = inst.lastField[name]
			}
			seriesVar := e.G.GetVar(inst.ctxID, ctx.VarIndex{Slot: i}).(*value.Series)
			if present {
				seriesVar.Update(fv)
			} else {
				seriesVar.Update(value.NA{})
			}
		}
		e.G.UpdateVar(inst.ctxID, ctx.VarIndex{Slot: inst.timeSlot}, source.Time[j])

		result := e.evalExpr(inst.ctxID, info.Expr)
		if e.failed() {
			return value.NA{}
		}
		if j == inst.nextIndex {
			first = result
		}
		last = result
		e.G.Commit(inst.ctxID)
	}
	inst.nextIndex = end
	inst.lastResult = last
	inst.haveResult = true

	if lookahead {
		return last
	}
	return first
}

func securityCachedResult(inst *securityInstance) value.Value {
	if inst.haveResult {
		return inst.lastResult
	}
	return value.NA{}
}
