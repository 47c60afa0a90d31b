package value

import (
	"fmt"
	"strconv"

	"golang.org/x/exp/constraints"
)

// CastErr reports an incompatible explicit or implicit cast, one of the
// runtime failure modes spec.md §4.1 names.
type CastErr struct {
	From, To Primary
}

func (e *CastErr) Error() string {
	return fmt.Sprintf("cannot cast %s to %s", e.From, e.To)
}

// numeric is the generic bound over the two numeric primaries the
// coercion lattice widens between; golang.org/x/exp/constraints supplies
// the bound so the widening table below is written once instead of once
// per concrete numeric type.
type numeric interface {
	constraints.Integer | constraints.Float
}

// widen converts a numeric scalar to float64 without loss of the int
// case, used by the int->float widening rule of §3.1's coercion lattice.
func widen[T numeric](v T) float64 {
	return float64(v)
}

// Cast performs the dispatch-table conversion named in §4.1: a single
// table keyed on (source, target) primary that never allocates when the
// pair is unchanged. NA widens to any target. Implicit int->float and
// simple->series lifts are handled by the caller (the types package and
// eval respectively); Cast only knows about the explicit
// {bool,int,float,string,color} conversions and the int<->float numeric
// widening.
func Cast(v Value, to Primary) (Value, error) {
	from := TypeOf(v).Primary
	if from == to {
		return v, nil
	}
	if _, ok := v.(NA); ok {
		return NA{}, nil
	}
	switch to {
	case PBool:
		return castToBool(v)
	case PInt:
		return castToInt(v)
	case PFloat:
		return castToFloat(v)
	case PString:
		return castToString(v)
	case PColor:
		return castToColor(v)
	default:
		return nil, &CastErr{from, to}
	}
}

func castToBool(v Value) (Value, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case int64:
		return t != 0, nil
	case float64:
		return t != 0, nil
	default:
		return nil, &CastErr{TypeOf(v).Primary, PBool}
	}
}

func castToInt(v Value) (Value, error) {
	switch t := v.(type) {
	case int64:
		return t, nil
	case float64:
		return int64(t), nil
	case bool:
		if t {
			return int64(1), nil
		}
		return int64(0), nil
	case string:
		n, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			return nil, &CastErr{PString, PInt}
		}
		return n, nil
	default:
		return nil, &CastErr{TypeOf(v).Primary, PInt}
	}
}

func castToFloat(v Value) (Value, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case int64:
		return widen(t), nil
	case bool:
		if t {
			return 1.0, nil
		}
		return 0.0, nil
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return nil, &CastErr{PString, PFloat}
		}
		return f, nil
	default:
		return nil, &CastErr{TypeOf(v).Primary, PFloat}
	}
}

func castToString(v Value) (Value, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case Color:
		return string(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64), nil
	case bool:
		return strconv.FormatBool(t), nil
	default:
		return nil, &CastErr{TypeOf(v).Primary, PString}
	}
}

func castToColor(v Value) (Value, error) {
	switch t := v.(type) {
	case Color:
		return t, nil
	case string:
		return Color(t), nil
	default:
		return nil, &CastErr{TypeOf(v).Primary, PColor}
	}
}
