// Package lang fixes the AST contract spec.md §6 requires an external
// parser to produce, plus (for testing and the CLI) a minimal lexer and
// recursive-descent parser that emits it. The node shapes and the
// Accept/Visitor dispatch convention are grounded on the teacher's
// internal/parser/ast.go and stmt.go.
package lang

import (
	"pine/internal/pine/langerr"
	"pine/internal/pine/value"
)

// Range is the source range every node carries (spec.md §6).
type Range = langerr.Range

// Expr is any expression node.
type Expr interface {
	Accept(v ExprVisitor) interface{}
	Rng() Range
}

// Stmt is any statement node.
type Stmt interface {
	Accept(v StmtVisitor) interface{}
	Rng() Range
}

// Block is `Block = { stmts, ret }` from spec.md §6: a list of statements
// followed by an optional trailing expression that is the block's value
// when the block is used in expression position.
type Block struct {
	Stmts []Stmt
	Ret   Expr
	Range Range
}

func (b *Block) Rng() Range { return b.Range }

// ---- Expressions ----

type NaExpr struct{ Range Range }

func (e *NaExpr) Rng() Range                        { return e.Range }
func (e *NaExpr) Accept(v ExprVisitor) interface{} { return v.VisitNa(e) }

type BoolExpr struct {
	Value bool
	Range Range
}

func (e *BoolExpr) Rng() Range                        { return e.Range }
func (e *BoolExpr) Accept(v ExprVisitor) interface{} { return v.VisitBool(e) }

type IntExpr struct {
	Value int64
	Range Range
}

func (e *IntExpr) Rng() Range                        { return e.Range }
func (e *IntExpr) Accept(v ExprVisitor) interface{} { return v.VisitInt(e) }

type FloatExpr struct {
	Value float64
	Range Range
}

func (e *FloatExpr) Rng() Range                        { return e.Range }
func (e *FloatExpr) Accept(v ExprVisitor) interface{} { return v.VisitFloat(e) }

type StringExpr struct {
	Value string
	Range Range
}

func (e *StringExpr) Rng() Range                        { return e.Range }
func (e *StringExpr) Accept(v ExprVisitor) interface{} { return v.VisitString(e) }

type ColorExpr struct {
	Value value.Color
	Range Range
}

func (e *ColorExpr) Rng() Range                        { return e.Range }
func (e *ColorExpr) Accept(v ExprVisitor) interface{} { return v.VisitColor(e) }

// VarExpr references an identifier.
type VarExpr struct {
	Name  string
	Range Range
}

func (e *VarExpr) Rng() Range                        { return e.Range }
func (e *VarExpr) Accept(v ExprVisitor) interface{} { return v.VisitVar(e) }

// TupleExpr is a literal group `[a, b, c]` used by tuple-returning
// functions and destructuring assignment.
type TupleExpr struct {
	Elems []Expr
	Range Range
}

func (e *TupleExpr) Rng() Range                        { return e.Range }
func (e *TupleExpr) Accept(v ExprVisitor) interface{} { return v.VisitTuple(e) }

// TypeCastExpr is an explicit cast `int(x)`.
type TypeCastExpr struct {
	Target value.Primary
	Value  Expr
	Range  Range
}

func (e *TypeCastExpr) Rng() Range                        { return e.Range }
func (e *TypeCastExpr) Accept(v ExprVisitor) interface{} { return v.VisitTypeCast(e) }

// Arg is one call argument, named if Name is non-empty.
type Arg struct {
	Name  string
	Value Expr
}

// CallExpr is a function call `callee(args...)`.
type CallExpr struct {
	Callee Expr
	Args   []Arg
	Range  Range
}

func (e *CallExpr) Rng() Range                        { return e.Range }
func (e *CallExpr) Accept(v ExprVisitor) interface{} { return v.VisitCall(e) }

// RefCallExpr is a series index `expr[idx]`.
type RefCallExpr struct {
	Target Expr
	Index  Expr
	Range  Range
}

func (e *RefCallExpr) Rng() Range                        { return e.Range }
func (e *RefCallExpr) Accept(v ExprVisitor) interface{} { return v.VisitRefCall(e) }

// PrefixExpr is a field chain `a.b`.
type PrefixExpr struct {
	Object Expr
	Field  string
	Range  Range
}

func (e *PrefixExpr) Rng() Range                        { return e.Range }
func (e *PrefixExpr) Accept(v ExprVisitor) interface{} { return v.VisitPrefix(e) }

// ConditionExpr is the ternary `c ? t : e`.
type ConditionExpr struct {
	Cond, Then, Else Expr
	Range            Range
}

func (e *ConditionExpr) Rng() Range                        { return e.Range }
func (e *ConditionExpr) Accept(v ExprVisitor) interface{} { return v.VisitCondition(e) }

// IfExpr is `if cond { then } else { else }` used in expression position.
type IfExpr struct {
	Cond  Expr
	Then  *Block
	Else  *Block
	Range Range
}

func (e *IfExpr) Rng() Range                        { return e.Range }
func (e *IfExpr) Accept(v ExprVisitor) interface{} { return v.VisitIf(e) }

// ForExpr is `for i = start to end [by step] { body }` used in
// expression position (the block's Ret is the loop's final value).
type ForExpr struct {
	Var              string
	Start, End, Step Expr // Step may be nil (defaults to sign(end-start))
	Body             *Block
	Range            Range
}

func (e *ForExpr) Rng() Range                        { return e.Range }
func (e *ForExpr) Accept(v ExprVisitor) interface{} { return v.VisitFor(e) }

// UnaryExpr is `+x`, `-x` or `!x`.
type UnaryExpr struct {
	Operator string
	Operand  Expr
	Range    Range
}

func (e *UnaryExpr) Rng() Range                        { return e.Range }
func (e *UnaryExpr) Accept(v ExprVisitor) interface{} { return v.VisitUnary(e) }

// BinaryExpr is any binary operator, including comparisons and boolean
// `and`/`or` (kept as one node kind, matching the teacher's ast.go
// collapsing `&&`/`||` into the same Binary-shaped node family rather
// than a separate Logical node, since Pine has no short-circuit-specific
// syntax distinct from other binary operators).
type BinaryExpr struct {
	Left     Expr
	Operator string
	Right    Expr
	Range    Range
}

func (e *BinaryExpr) Rng() Range                        { return e.Range }
func (e *BinaryExpr) Accept(v ExprVisitor) interface{} { return v.VisitBinary(e) }

// ExprVisitor dispatches over every Exp kind named in spec.md §6.
type ExprVisitor interface {
	VisitNa(e *NaExpr) interface{}
	VisitBool(e *BoolExpr) interface{}
	VisitInt(e *IntExpr) interface{}
	VisitFloat(e *FloatExpr) interface{}
	VisitString(e *StringExpr) interface{}
	VisitColor(e *ColorExpr) interface{}
	VisitVar(e *VarExpr) interface{}
	VisitTuple(e *TupleExpr) interface{}
	VisitTypeCast(e *TypeCastExpr) interface{}
	VisitCall(e *CallExpr) interface{}
	VisitRefCall(e *RefCallExpr) interface{}
	VisitPrefix(e *PrefixExpr) interface{}
	VisitCondition(e *ConditionExpr) interface{}
	VisitIf(e *IfExpr) interface{}
	VisitFor(e *ForExpr) interface{}
	VisitUnary(e *UnaryExpr) interface{}
	VisitBinary(e *BinaryExpr) interface{}
}

// ---- Statements ----

type BreakStmt struct{ Range Range }

func (s *BreakStmt) Rng() Range                        { return s.Range }
func (s *BreakStmt) Accept(v StmtVisitor) interface{} { return v.VisitBreak(s) }

type ContinueStmt struct{ Range Range }

func (s *ContinueStmt) Rng() Range                        { return s.Range }
func (s *ContinueStmt) Accept(v StmtVisitor) interface{} { return v.VisitContinue(s) }

// NoneStmt is an empty statement (blank line / no-op).
type NoneStmt struct{ Range Range }

func (s *NoneStmt) Rng() Range                        { return s.Range }
func (s *NoneStmt) Accept(v StmtVisitor) interface{} { return v.VisitNone(s) }

// NameBinding is one name on the left of an Assign, with an optional
// explicit cast type (`int x = expr`) and destructuring arity handled by
// AssignStmt.Names having more than one entry.
type NameBinding struct {
	Name    string
	HasType bool
	Type    value.Primary
}

// AssignStmt declares one or more names (`x = expr`, or
// `[a, b] = tupleExpr` for destructuring). Declaring an already-declared
// name is a checker error (VarHasDeclared).
type AssignStmt struct {
	Names []NameBinding
	Value Expr
	Range Range
}

func (s *AssignStmt) Rng() Range                        { return s.Range }
func (s *AssignStmt) Accept(v StmtVisitor) interface{} { return v.VisitAssign(s) }

// VarAssignStmt reassigns an existing name (`x := expr`), upgrading its
// declared type to series per spec.md §4.3.
type VarAssignStmt struct {
	Name  string
	Value Expr
	Range Range
}

func (s *VarAssignStmt) Rng() Range                        { return s.Range }
func (s *VarAssignStmt) Accept(v StmtVisitor) interface{} { return v.VisitVarAssign(s) }

// IfStmt is `if`/`else` used for side effects only (Void result).
type IfStmt struct {
	Cond  Expr
	Then  *Block
	Else  *Block
	Range Range
}

func (s *IfStmt) Rng() Range                        { return s.Range }
func (s *IfStmt) Accept(v StmtVisitor) interface{} { return v.VisitIf(s) }

// ForStmt is a `for` loop used for side effects only (Void result).
type ForStmt struct {
	Var              string
	Start, End, Step Expr
	Body             *Block
	Range            Range
}

func (s *ForStmt) Rng() Range                        { return s.Range }
func (s *ForStmt) Accept(v StmtVisitor) interface{} { return v.VisitFor(s) }

// CallStmt is a bare call expression used as a statement (its result, if
// any, is discarded).
type CallStmt struct {
	Call  *CallExpr
	Range Range
}

func (s *CallStmt) Rng() Range                        { return s.Range }
func (s *CallStmt) Accept(v StmtVisitor) interface{} { return v.VisitCall(s) }

// FuncDefStmt binds Name to a UserFunction in the enclosing scope.
type FuncDefStmt struct {
	Name   string
	Params []string
	Body   *Block
	Range  Range
}

func (s *FuncDefStmt) Rng() Range                        { return s.Range }
func (s *FuncDefStmt) Accept(v StmtVisitor) interface{} { return v.VisitFuncDef(s) }

// StmtVisitor dispatches over every Statement kind named in spec.md §6.
type StmtVisitor interface {
	VisitBreak(s *BreakStmt) interface{}
	VisitContinue(s *ContinueStmt) interface{}
	VisitNone(s *NoneStmt) interface{}
	VisitAssign(s *AssignStmt) interface{}
	VisitVarAssign(s *VarAssignStmt) interface{}
	VisitIf(s *IfStmt) interface{}
	VisitFor(s *ForStmt) interface{}
	VisitCall(s *CallStmt) interface{}
	VisitFuncDef(s *FuncDefStmt) interface{}
}
