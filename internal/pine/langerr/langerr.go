// Package langerr implements the closed error taxonomy of spec.md §7,
// grounded on the teacher's internal/errors package: a typed error kind,
// a source range, and a formatted Error() that prints the kind, message
// and location the way SentraError does.
package langerr

import (
	"fmt"
)

// Kind is one entry of the closed type-time or runtime error taxonomy.
type Kind string

const (
	// Type-time
	VarNotDeclared              Kind = "VarNotDeclared"
	VarHasDeclared              Kind = "VarHasDeclared"
	FuncCallSignatureNotMatch   Kind = "FuncCallSignatureNotMatch"
	ForbiddenDictArgsForUserFunc Kind = "ForbiddenDictArgsForUserFunc"
	InvalidTypeCast              Kind = "InvalidTypeCast"
	TypeMismatch                 Kind = "TypeMismatch"
	CondNotBool                  Kind = "CondNotBool"
	CondExpTypesNotSame          Kind = "CondExpTypesNotSame"
	ExpNoReturn                  Kind = "ExpNoReturn"
	ExpReturnNa                  Kind = "ExpReturnNa"
	UnaryTypeNotNum              Kind = "UnaryTypeNotNum"
	BinaryTypeNotNum             Kind = "BinaryTypeNotNum"
	BoolExpTypeNotBool           Kind = "BoolExpTypeNotBool"
	RefIndexNotInt               Kind = "RefIndexNotInt"
	RefKeyNotExist               Kind = "RefKeyNotExist"
	RefObjTypeNotObj             Kind = "RefObjTypeNotObj"
	VarNotSeriesInRef            Kind = "VarNotSeriesInRef"
	VarNotCallable               Kind = "VarNotCallable"
	BreakNotInForStmt            Kind = "BreakNotInForStmt"
	ContinueNotInForStmt         Kind = "ContinueNotInForStmt"
	ForRangeIndexNotInt          Kind = "ForRangeIndexNotInt"

	// Runtime
	NotCompatible        Kind = "NotCompatible"
	NotValidParam        Kind = "NotValidParam"
	NotSupportOperator   Kind = "NotSupportOperator"
	NotImplement         Kind = "NotImplement"
	OutBound             Kind = "OutBound"
	InvalidNADeclarer    Kind = "InvalidNADeclarer"
	VarNotFound          Kind = "VarNotFound"
	InvalidVarType       Kind = "InvalidVarType"
	FuncCallParamNotValid Kind = "FuncCallParamNotValid"
	InvalidParameters    Kind = "InvalidParameters"
	TupleMismatch        Kind = "TupleMismatch"
	ForRangeIndexIsNA    Kind = "ForRangeIndexIsNA"
)

// Range is a source range: a start and end (line, column) pair, matching
// the AST contract of spec.md §6.
type Range struct {
	StartLine, StartCol int
	EndLine, EndCol     int
}

func (r Range) String() string {
	if r.StartLine == 0 && r.StartCol == 0 {
		return ""
	}
	return fmt.Sprintf("%d:%d", r.StartLine, r.StartCol)
}

// Err is one error of the closed taxonomy, carrying the source range the
// caller attached it at.
type Err struct {
	Kind    Kind
	Message string
	Range   Range
	Cause   error
}

func New(kind Kind, rng Range, format string, args ...interface{}) *Err {
	return &Err{Kind: kind, Message: fmt.Sprintf(format, args...), Range: rng}
}

func (e *Err) Error() string {
	if loc := e.Range.String(); loc != "" {
		return fmt.Sprintf("%s: %s (at %s)", e.Kind, e.Message, loc)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Err) Unwrap() error { return e.Cause }

// Wrap attaches a cause, used when a runtime error is the proximate
// result of another (e.g. a series index failure surfacing from a
// built-in call).
func (e *Err) Wrap(cause error) *Err {
	e.Cause = cause
	return e
}

// IsRuntime reports whether k is one of the runtime (rather than
// type-time) kinds of spec.md §7.
func IsRuntime(k Kind) bool {
	switch k {
	case NotCompatible, NotValidParam, NotSupportOperator, NotImplement, OutBound,
		InvalidTypeCast, InvalidNADeclarer, VarNotFound, InvalidVarType,
		FuncCallParamNotValid, InvalidParameters, TupleMismatch, ForRangeIndexIsNA:
		return true
	default:
		return false
	}
}

// Diagnostics accumulates non-fatal type-time errors the way the
// teacher's parser.Parser.Errors slice does, so a single checking pass
// can report many mismatches instead of aborting at the first one.
type Diagnostics struct {
	Errors   []*Err
	Warnings []*Err
}

func (d *Diagnostics) Add(e *Err) {
	d.Errors = append(d.Errors, e)
}

func (d *Diagnostics) Warn(e *Err) {
	d.Warnings = append(d.Warnings, e)
}

func (d *Diagnostics) HasErrors() bool {
	return len(d.Errors) > 0
}

func (d *Diagnostics) Error() string {
	if len(d.Errors) == 0 {
		return ""
	}
	s := fmt.Sprintf("%d type error(s):\n", len(d.Errors))
	for _, e := range d.Errors {
		s += "  " + e.Error() + "\n"
	}
	return s
}
