// Package value implements the runtime value model of spec.md §3.1 and §4.1:
// tagged values with a primary type and a shape (simple or series), series
// histories, and the copy semantics the evaluator relies on for rvalue
// reads.
//
// Values are represented the way the teacher's own vm.Value is (a bare
// interface{} that callers type-switch on) rather than as a boxed struct
// with unused fields: bool, int64, float64, string and Color are stored
// inline; Series, *Object, Tuple, *Function, *UserFunction and *Callable
// are the complex kinds.
package value

import "fmt"

// Value is any runtime value: NA, bool, int64, float64, string, Color,
// Tuple, *Object, *Function, *UserFunction, *Callable, *Line, *Label, or
// *Series wrapping one of the scalar kinds.
type Value interface{}

// NA is the na value; every primary type admits it.
type NA struct{}

func (NA) String() string { return "na" }

// Color is a primary type distinct from string (hex or named color).
type Color string

// Primary is the runtime primary type tag.
type Primary int

const (
	PNA Primary = iota
	PBool
	PInt
	PFloat
	PString
	PColor
	PTuple
	PObject
	PFunction
	PUserFunction
	PCallableObject
	PLine
	PLabel
)

func (p Primary) String() string {
	switch p {
	case PNA:
		return "na"
	case PBool:
		return "bool"
	case PInt:
		return "int"
	case PFloat:
		return "float"
	case PString:
		return "string"
	case PColor:
		return "color"
	case PTuple:
		return "tuple"
	case PObject:
		return "object"
	case PFunction:
		return "function"
	case PUserFunction:
		return "user-function"
	case PCallableObject:
		return "callable-object"
	case PLine:
		return "line"
	case PLabel:
		return "label"
	default:
		return "?"
	}
}

// Shape is simple (scalar) or series (history-carrying).
type Shape int

const (
	Simple Shape = iota
	SeriesShape
)

func (s Shape) String() string {
	if s == SeriesShape {
		return "series"
	}
	return "simple"
}

// Type is the runtime (primary, shape) pair.
type Type struct {
	Primary Primary
	Shape   Shape
}

func (t Type) String() string {
	if t.Shape == SeriesShape {
		return "series " + t.Primary.String()
	}
	return t.Primary.String()
}

// TypeOf returns a value's runtime (primary, shape) pair.
func TypeOf(v Value) Type {
	switch t := v.(type) {
	case nil:
		return Type{PNA, Simple}
	case NA:
		return Type{PNA, Simple}
	case bool:
		return Type{PBool, Simple}
	case int64:
		return Type{PInt, Simple}
	case float64:
		return Type{PFloat, Simple}
	case string:
		return Type{PString, Simple}
	case Color:
		return Type{PColor, Simple}
	case Tuple:
		return Type{PTuple, Simple}
	case *Object:
		return Type{PObject, Simple}
	case *Function:
		return Type{PFunction, Simple}
	case *UserFunction:
		return Type{PUserFunction, Simple}
	case *Callable:
		return Type{PCallableObject, Simple}
	case *Line:
		return Type{PLine, Simple}
	case *Label:
		return Type{PLabel, Simple}
	case *Series:
		return Type{t.Elem, SeriesShape}
	default:
		panic(fmt.Sprintf("value: unhandled runtime value %T", v))
	}
}

// Tuple is a fixed-arity group of values produced by multi-value
// expressions (spec.md §3.1 constructed kind `tuple`).
type Tuple []Value

// Object is a named-field record (constructed kind `object`).
type Object struct {
	Fields map[string]Value
	Order  []string
}

// NewObject creates an empty object.
func NewObject() *Object {
	return &Object{Fields: make(map[string]Value)}
}

// Set assigns a field, preserving first-seen insertion order.
func (o *Object) Set(name string, v Value) {
	if _, ok := o.Fields[name]; !ok {
		o.Order = append(o.Order, name)
	}
	o.Fields[name] = v
}

// Get reads a field; ok is false if the field does not exist.
func (o *Object) Get(name string) (Value, bool) {
	v, ok := o.Fields[name]
	return v, ok
}

// Clone returns a new object handle with shallow-copied field values,
// matching §4.1's "copy yields a new handle carrying the same tagged
// content".
func (o *Object) Clone() *Object {
	n := &Object{Fields: make(map[string]Value, len(o.Fields)), Order: append([]string(nil), o.Order...)}
	for k, v := range o.Fields {
		n.Fields[k] = Copy(v)
	}
	return n
}

// Line and Label are opaque drawing handles (spec.md §3.1); the engine
// never inspects their contents, only creates, mutates and compares them
// by identity.
type Line struct {
	ID         int64
	X1, Y1     Value
	X2, Y2     Value
	Attributes map[string]Value
}

type Label struct {
	ID         int64
	X, Y       Value
	Text       string
	Attributes map[string]Value
}

// Function is a built-in callable value: a named set of overloads.
// Overload resolution itself lives in the check and builtin packages;
// Function only carries the identity a value can hold and pass around.
type Function struct {
	Name string
}

// UserFunction is a script-defined function value. Body is an
// interface{} holding a *lang.Block to avoid an import cycle between
// value and lang (lang imports value, so value cannot import lang back;
// Body is type-asserted by eval).
type UserFunction struct {
	Name   string
	Params []string
	Body   interface{}
}

// Callable is a callable-object value: simultaneously indexable (its
// Const fields) and invocable (its underlying Function). Used for
// constant-bearing built-ins such as `session` or `dayofweek`.
type Callable struct {
	Fn     *Function
	Fields map[string]Value
}

// ZeroOf returns the default "current slot" value for a series element
// primary, used when a series is first created and after each commit.
// Pine's own runtime resets the current slot to na rather than a typed
// zero; spec.md §3.2 permits either, and matching the original's actual
// behavior (confirmed by original_source/src/types/series.rs resetting
// via D::default(), which for Pine's wrapped types is na) keeps `close[0]`
// on an unset bar read as na instead of 0.
func ZeroOf(p Primary) Value {
	return NA{}
}

// Copy returns an independent value with the same tagged content: for
// series and objects, a new handle whose history/fields are themselves
// copied; for everything else, Go's value semantics already made a copy
// on assignment. This is the runtime counterpart of §4.1's "copy"
// operation, used by rvalue-evaluation of a bare variable name so the
// original binding is left untouched.
func Copy(v Value) Value {
	switch t := v.(type) {
	case *Series:
		return t.Clone()
	case *Object:
		return t.Clone()
	case Tuple:
		n := make(Tuple, len(t))
		for i, e := range t {
			n[i] = Copy(e)
		}
		return n
	default:
		return v
	}
}

// IsNA reports whether v is the na value (bare NA{} or a nil interface).
func IsNA(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(NA)
	return ok
}
