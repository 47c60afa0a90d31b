// Package ctx implements the context graph of spec.md §3.3 and §4.4: a
// tree of scopes holding variable slots, function instances, sub-scopes,
// and — at the root only — the IO descriptor set, host input values,
// output buffers and data-range cursor.
//
// Per spec.md §9's design note, the tree is represented as an arena
// (Graph.nodes) addressed by integer id rather than as self-referential
// pointers, with parent links stored as indices.
package ctx

import (
	"pine/internal/pine/value"

	"github.com/google/uuid"
)

// ContextType is a scope kind: the four spec.md §3.3 names, plus
// SecurityBlock for a security() call's private sub-context.
type ContextType int

const (
	Normal ContextType = iota
	IfElseBlock
	ForRangeBlock
	FuncDefBlock
	SecurityBlock
)

// VarIndex identifies a variable slot: Slot within a scope, and Depth,
// the number of parent hops from "this scope" (0) to the owning scope.
type VarIndex struct {
	Slot  int
	Depth int
}

// subSlot is one entry of a context's dense sub-context vector: a
// reservation that is lazily turned into an actual node the first time
// the corresponding if/for/func block executes.
type subSlot struct {
	created bool
	ctxID   int
	isRun   bool
}

// Context is one scope node.
type Context struct {
	id     int
	parent int // -1 for the root
	kind   ContextType

	vars []value.Value
	subs []subSlot

	funInstances []Callable
	callables    []Callable

	isRun bool
}

// Callable is the capability interface a library or user-function
// instance registers with a context so commit/roll-back can drive its
// post-commit and post-rollback hooks (spec.md §4.4, §4.6). builtin and
// eval implement this; ctx only stores and invokes it.
type Callable interface {
	Run(g *Graph, ctxID int)
	Back(g *Graph, ctxID int)
}

// Graph is the arena owning every Context created during a script's
// lifetime (it outlives every bar; only individual sub-contexts are
// reset between runs).
type Graph struct {
	nodes []*Context
	root  int
	IO    *IORoot
}

// NewGraph creates a graph with a freshly allocated root context sized
// for varCount variable slots, subCount sub-context reservations and
// libfunCount function-instance slots (the checker's pre-sizing pass
// computes these counts — spec.md §4.4).
func NewGraph(varCount, subCount, libfunCount int) *Graph {
	g := &Graph{}
	root := &Context{
		id:           0,
		parent:       -1,
		kind:         Normal,
		vars:         make([]value.Value, varCount),
		subs:         make([]subSlot, subCount),
		funInstances: make([]Callable, libfunCount),
	}
	g.nodes = append(g.nodes, root)
	g.root = 0
	g.IO = newIORoot()
	return g
}

// Root returns the root context's id.
func (g *Graph) Root() int { return g.root }

func (g *Graph) ctx(id int) *Context { return g.nodes[id] }

// newContext allocates a fresh node, parented at parent.
func (g *Graph) newContext(parent int, kind ContextType, varCount, subCount, libfunCount int) int {
	c := &Context{
		id:           len(g.nodes),
		parent:       parent,
		kind:         kind,
		vars:         make([]value.Value, varCount),
		subs:         make([]subSlot, subCount),
		funInstances: make([]Callable, libfunCount),
	}
	g.nodes = append(g.nodes, c)
	return c.id
}

// NewDetachedContext allocates a fresh node the way newContext does, but
// without registering it into any parent's sub-context vector: spec.md
// §4.8's security() wrapper needs a private sub-context whose commits run
// on the cadence of foreign-symbol bars arriving, not on the host's own
// per-bar Commit/RollBack walk, so it must stay invisible to that walk
// (ClearIsRun/Commit/RollBack never descend into it on their own).
func (g *Graph) NewDetachedContext(parent int, kind ContextType, varCount, subCount, libfunCount int) int {
	return g.newContext(parent, kind, varCount, subCount, libfunCount)
}

// GetOrCreateSubContext implements spec.md §4.4's lazy sub-context
// creation: the first time slot `index` of ctxID's sub-context vector is
// needed, a node is allocated and cached there; every subsequent bar
// reuses the same node. The returned context is marked as having run
// this bar.
func (g *Graph) GetOrCreateSubContext(ctxID, index int, kind ContextType, varCount, subCount, libfunCount int) int {
	parent := g.ctx(ctxID)
	slot := &parent.subs[index]
	if !slot.created {
		slot.ctxID = g.newContext(ctxID, kind, varCount, subCount, libfunCount)
		slot.created = true
	}
	slot.isRun = true
	g.ctx(slot.ctxID).isRun = true
	return slot.ctxID
}

// SubContextIsRun reports whether the sub-context at `index` executed
// this bar (only created, run sub-contexts participate in commit).
func (g *Graph) SubContextIsRun(ctxID, index int) bool {
	return g.ctx(ctxID).subs[index].created && g.ctx(ctxID).subs[index].isRun
}

// Type returns a context's kind.
func (g *Graph) Type(ctxID int) ContextType { return g.ctx(ctxID).kind }

// ---- VarOperate (spec.md §4.4's operation table) ----

// CreateVar replaces slot i in this scope, returning the previous value.
func (g *Graph) CreateVar(ctxID, slot int, v value.Value) value.Value {
	c := g.ctx(ctxID)
	old := c.vars[slot]
	c.vars[slot] = v
	return old
}

// walkTo returns the context id reached by hopping `depth` parents from
// ctxID.
func (g *Graph) walkTo(ctxID int, depth int) int {
	id := ctxID
	for i := 0; i < depth; i++ {
		id = g.ctx(id).parent
	}
	return id
}

// UpdateVar walks idx.Depth parents from ctxID and writes the slot.
func (g *Graph) UpdateVar(ctxID int, idx VarIndex, v value.Value) {
	target := g.walkTo(ctxID, idx.Depth)
	g.ctx(target).vars[idx.Slot] = v
}

// MoveVar takes ownership of a slot's contents, leaving it empty, for a
// caller that needs to mutate the value in place without aliasing it
// against the slot.
func (g *Graph) MoveVar(ctxID int, idx VarIndex) value.Value {
	target := g.walkTo(ctxID, idx.Depth)
	c := g.ctx(target)
	v := c.vars[idx.Slot]
	c.vars[idx.Slot] = nil
	return v
}

// GetVar borrows a slot's contents without moving it.
func (g *Graph) GetVar(ctxID int, idx VarIndex) value.Value {
	target := g.walkTo(ctxID, idx.Depth)
	return g.ctx(target).vars[idx.Slot]
}

// VarLen returns the number of variable slots in ctxID's own scope.
func (g *Graph) VarLen(ctxID int) int { return len(g.ctx(ctxID).vars) }

// ---- Function instances ----

func (g *Graph) CreateFunInstance(ctxID, slot int, inst Callable) {
	c := g.ctx(ctxID)
	c.funInstances[slot] = inst
	c.callables = append(c.callables, inst)
}

func (g *Graph) FunInstance(ctxID, slot int) Callable {
	return g.ctx(ctxID).funInstances[slot]
}

// ---- run state ----

func (g *Graph) SetIsRun(ctxID int, run bool) { g.ctx(ctxID).isRun = run }
func (g *Graph) IsRun(ctxID int) bool         { return g.ctx(ctxID).isRun }

// ClearIsRun resets the run flag across the whole tree of already-created
// contexts reachable from ctxID (spec.md §5 ordering point 2: "is_run
// flags cleared" at the start of every bar).
func (g *Graph) ClearIsRun(ctxID int) {
	c := g.ctx(ctxID)
	c.isRun = false
	for i := range c.subs {
		if c.subs[i].created {
			c.subs[i].isRun = false
			g.ClearIsRun(c.subs[i].ctxID)
		}
	}
}

// ---- Commit / roll-back ----

// Commit walks post-order (children before parent), committing every
// series-holding slot in every sub-context that actually ran this bar,
// then this context's own slots, then invokes Run() on every callable
// registered in this scope. A per-bar identity set prevents a series
// aliased into two slots (e.g. a well-known source variable) from being
// committed twice.
func (g *Graph) Commit(ctxID int) {
	seen := make(map[*value.Series]bool)
	g.commit(ctxID, seen)
}

func (g *Graph) commit(ctxID int, seen map[*value.Series]bool) {
	c := g.ctx(ctxID)
	for i := range c.subs {
		if c.subs[i].created && c.subs[i].isRun {
			g.commit(c.subs[i].ctxID, seen)
		}
	}
	for _, v := range c.vars {
		if s, ok := v.(*value.Series); ok {
			if !seen[s] {
				seen[s] = true
				s.Commit()
			}
		}
	}
	for _, cb := range c.callables {
		cb.Run(g, ctxID)
	}
}

// RollBack walks post-order, popping the last history entry from every
// series slot before invoking Back() on this scope's callables (spec.md
// §4.4's ordering rule: "within a scope, series slots are rolled back
// before callables' back hooks").
func (g *Graph) RollBack(ctxID int) {
	seen := make(map[*value.Series]bool)
	g.rollBack(ctxID, seen)
}

func (g *Graph) rollBack(ctxID int, seen map[*value.Series]bool) {
	c := g.ctx(ctxID)
	for i := range c.subs {
		if c.subs[i].created && c.subs[i].isRun {
			g.rollBack(c.subs[i].ctxID, seen)
		}
	}
	for _, v := range c.vars {
		if s, ok := v.(*value.Series); ok {
			if !seen[s] {
				seen[s] = true
				s.RollBack()
			}
		}
	}
	for _, cb := range c.callables {
		cb.Back(g, ctxID)
	}
}

// NewSessionID mints a fresh identifier for a script run or a descriptor,
// using google/uuid the way a long-lived record elsewhere in the pack
// would (SPEC_FULL §11).
func NewSessionID() string { return uuid.NewString() }
