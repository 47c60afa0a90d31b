// Package types implements the syntax type algebra of spec.md §3.1 and
// §4.2: the compile-time type every expression resolves to, and the pure
// queries (similar, convertible, the simple->series lift) the checker
// needs to unify and widen them.
package types

import (
	"fmt"
	"strings"

	"pine/internal/pine/value"
)

// Kind distinguishes the syntax-type constructors.
type Kind int

const (
	KVoid Kind = iota
	KAny
	KSimple
	KSeries
	KTuple
	KFunction
	KUserFunction
	KObject
	KObjectFunction
	KDynamicExpr
	KList
)

// Type is a syntax type: the (Kind, payload) pair spec.md §3.1 names.
// Only the fields relevant to Kind are populated.
type Type struct {
	Kind Kind

	// KSimple / KSeries / KList / KDynamicExpr element primary.
	Elem value.Primary

	// KTuple element types.
	Elems []Type

	// KFunction overload set (name kept for error messages only).
	Overloads []Overload

	// KUserFunction parameter names, in declaration order.
	Params []string

	// KObject / KObjectFunction field map.
	Fields map[string]Type
	// FieldOrder records first-seen order for deterministic error text.
	FieldOrder []string
}

// Overload is one (parameter list -> return type) signature of a
// polymorphic built-in (spec.md GLOSSARY).
type Overload struct {
	Name       string
	Positional []Param
	Named      []Param
	Return     Type
}

// Param is one formal parameter of an overload.
type Param struct {
	Name     string
	Type     Type
	Optional bool
}

// Constructors.

func Void() Type { return Type{Kind: KVoid} }
func Any() Type  { return Type{Kind: KAny} }

func Simple(p value.Primary) Type { return Type{Kind: KSimple, Elem: p} }
func SeriesT(p value.Primary) Type { return Type{Kind: KSeries, Elem: p} }

func TupleT(elems ...Type) Type { return Type{Kind: KTuple, Elems: elems} }

func FunctionT(overloads ...Overload) Type { return Type{Kind: KFunction, Overloads: overloads} }

func UserFunctionT(params []string) Type { return Type{Kind: KUserFunction, Params: params} }

func ObjectT(fields map[string]Type, order []string) Type {
	return Type{Kind: KObject, Fields: fields, FieldOrder: order}
}

func ObjectFunctionT(fields map[string]Type, order []string, overloads []Overload) Type {
	return Type{Kind: KObjectFunction, Fields: fields, FieldOrder: order, Overloads: overloads}
}

func DynamicExpr(p value.Primary) Type { return Type{Kind: KDynamicExpr, Elem: p} }

func ListT(p value.Primary) Type { return Type{Kind: KList, Elem: p} }

// IsSeries reports whether t is a series (of any element).
func (t Type) IsSeries() bool { return t.Kind == KSeries }

// IsSimple reports whether t is a bare scalar syntax type.
func (t Type) IsSimple() bool { return t.Kind == KSimple }

// IsNumeric reports whether t's element is int or float, simple or series.
func (t Type) IsNumeric() bool {
	if t.Kind != KSimple && t.Kind != KSeries {
		return false
	}
	return t.Elem == value.PInt || t.Elem == value.PFloat
}

// IsVoidOrNA reports the two "cannot be an expression result" syntax
// types named by §4.3's If-then-else expression rule.
func (t Type) IsVoidOrNA() bool {
	return t.Kind == KVoid || (t.Kind == KSimple && t.Elem == value.PNA) || (t.Kind == KSeries && t.Elem == value.PNA)
}

func (t Type) String() string {
	switch t.Kind {
	case KVoid:
		return "void"
	case KAny:
		return "any"
	case KSimple:
		return t.Elem.String()
	case KSeries:
		return "series " + t.Elem.String()
	case KTuple:
		parts := make([]string, len(t.Elems))
		for i, e := range t.Elems {
			parts[i] = e.String()
		}
		return "tuple(" + strings.Join(parts, ", ") + ")"
	case KFunction:
		return "function"
	case KUserFunction:
		return "user-function(" + strings.Join(t.Params, ", ") + ")"
	case KObject:
		return "object"
	case KObjectFunction:
		return "callable-object"
	case KDynamicExpr:
		return "dynamic-expr(" + t.Elem.String() + ")"
	case KList:
		return "list(" + t.Elem.String() + ")"
	default:
		return fmt.Sprintf("type(%d)", t.Kind)
	}
}

// Similar reports whether a and b have a least upper bound under the
// widening lattice (spec.md §4.2's `similar`).
func Similar(a, b Type) bool {
	_, ok := LUB(a, b)
	return ok
}

// LUB returns the least upper bound of two syntax types under implicit
// widening, or ok=false if none exists. Numeric types unify to float if
// either side is float; na unifies with anything; a series on either
// side lifts the result to series.
func LUB(a, b Type) (Type, bool) {
	if a.Kind == KAny {
		return b, true
	}
	if b.Kind == KAny {
		return a, true
	}
	aIsScalar := a.Kind == KSimple || a.Kind == KSeries
	bIsScalar := b.Kind == KSimple || b.Kind == KSeries
	if !aIsScalar || !bIsScalar {
		if a.Kind == b.Kind && a.Kind == KTuple && len(a.Elems) == len(b.Elems) {
			elems := make([]Type, len(a.Elems))
			for i := range a.Elems {
				lub, ok := LUB(a.Elems[i], b.Elems[i])
				if !ok {
					return Type{}, false
				}
				elems[i] = lub
			}
			return TupleT(elems...), true
		}
		return Type{}, false
	}

	series := a.Kind == KSeries || b.Kind == KSeries

	elem, ok := lubPrimary(a.Elem, b.Elem)
	if !ok {
		return Type{}, false
	}
	if series {
		return SeriesT(elem), true
	}
	return Simple(elem), true
}

func lubPrimary(a, b value.Primary) (value.Primary, bool) {
	if a == b {
		return a, true
	}
	if a == value.PNA {
		return b, true
	}
	if b == value.PNA {
		return a, true
	}
	numeric := func(p value.Primary) bool { return p == value.PInt || p == value.PFloat }
	if numeric(a) && numeric(b) {
		return value.PFloat, true
	}
	return 0, false
}

// Convertible reports whether from widens to to under the implicit
// coercion lattice of spec.md §3.1 (not the explicit cast table, which is
// Castable below).
func Convertible(from, to Type) bool {
	if to.Kind == KAny {
		return true
	}
	if from.Kind == KAny {
		return true
	}
	if from.Kind != KSimple && from.Kind != KSeries {
		return EqualShape(from, to)
	}
	if to.Kind != KSimple && to.Kind != KSeries {
		return false
	}
	if from.Kind == KSeries && to.Kind == KSimple {
		return false // series never narrows back to simple implicitly
	}
	return convertiblePrimary(from.Elem, to.Elem)
}

func convertiblePrimary(from, to value.Primary) bool {
	if from == to {
		return true
	}
	if from == value.PNA {
		return true
	}
	if from == value.PInt && to == value.PFloat {
		return true
	}
	return false
}

// EqualShape reports structural equality for the non-scalar kinds
// (tuple/object/function), used by Convertible for those.
func EqualShape(a, b Type) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KVoid:
		return true
	case KTuple:
		if len(a.Elems) != len(b.Elems) {
			return false
		}
		for i := range a.Elems {
			if !Convertible(a.Elems[i], b.Elems[i]) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// Lift returns the series version of a simple syntax type (the §3.2
// simple->series upgrade), unchanged if t is already series or is not a
// scalar kind.
func Lift(t Type) Type {
	if t.Kind == KSimple {
		return SeriesT(t.Elem)
	}
	return t
}

// ConditionBool reports whether t can serve as an `if`/ternary condition:
// bool, int, float or na, simple or series (spec.md §3.1's bool-widening
// rule, "for conditions only").
func ConditionBool(t Type) bool {
	if t.Kind != KSimple && t.Kind != KSeries {
		return false
	}
	switch t.Elem {
	case value.PBool, value.PInt, value.PFloat, value.PNA:
		return true
	default:
		return false
	}
}

// Castable reports whether an explicit type-cast expression from `from`
// to `to` is permitted: among {bool, int, float, string, color} and their
// series lifts (spec.md §3.1).
func Castable(from, to Type) bool {
	scalar := func(p value.Primary) bool {
		switch p {
		case value.PBool, value.PInt, value.PFloat, value.PString, value.PColor, value.PNA:
			return true
		default:
			return false
		}
	}
	if (from.Kind != KSimple && from.Kind != KSeries) || (to.Kind != KSimple && to.Kind != KSeries) {
		return false
	}
	if !scalar(from.Elem) || !scalar(to.Elem) {
		return false
	}
	if from.Kind == KSeries && to.Kind == KSimple {
		return false
	}
	return true
}

// ResultShape returns Series if either side of a binary/cast is series,
// else Simple.
func ResultShape(a, b Type) Kind {
	if a.Kind == KSeries || b.Kind == KSeries {
		return KSeries
	}
	return KSimple
}
