package ctx

import (
	"pine/internal/pine/value"

	"github.com/google/uuid"
)

// DescriptorKind distinguishes the registerable IO descriptors of
// spec.md §4.7: inputs the host must prompt for, and outputs (plots,
// lines) the host renders.
type DescriptorKind int

const (
	InputBool DescriptorKind = iota
	InputInt
	InputFloat
	InputString
	InputSource
	OutputPlot
	OutputLine
)

// Descriptor is one registered IO descriptor, constant after the first
// (registration) bar.
type Descriptor struct {
	ID       string
	Kind     DescriptorKind
	Title    string
	Defval   value.Value
	Minval   value.Value
	Maxval   value.Value
	Step     value.Value
	Options  []value.Value
	Confirm  bool
}

// IORoot holds the fields spec.md §3.3 says belong "only at the root":
// the IO descriptor set, user-supplied input values, output buffers, and
// the data-range cursor.
type IORoot struct {
	Descriptors        []Descriptor
	IsInputInfoReady    bool
	IsOutputInfoReady   bool

	Inputs      []value.Value
	inputCursor int

	Outputs map[string]*OutputData

	DataStart, DataEnd int

	FirstCommit bool

	Sources map[string]*SecuritySource
}

func newIORoot() *IORoot {
	return &IORoot{Outputs: make(map[string]*OutputData), Sources: make(map[string]*SecuritySource)}
}

// SecuritySource is a host-installed synthetic input source (spec.md
// §4.8): another symbol's own time-aligned bar history, keyed by the
// field names a security() expression's free variables name.
type SecuritySource struct {
	Time   []int64
	Fields map[string][]float64
}

// RegisterSecuritySource installs (or replaces) the synthetic data a
// security() call keyed by "{symbol}-{resolution}" re-evaluates its
// expression against.
func (io *IORoot) RegisterSecuritySource(key string, time []int64, fields map[string][]float64) {
	io.Sources[key] = &SecuritySource{Time: time, Fields: fields}
}

// SecuritySourceFor looks up a previously registered synthetic source.
func (io *IORoot) SecuritySourceFor(key string) (*SecuritySource, bool) {
	s, ok := io.Sources[key]
	return s, ok
}

// OutputData is the per-output record the host reads after each bar
// (spec.md §6's "Host outputs"): the bar range and a vector of optional
// floats, one per bar in range.
type OutputData struct {
	Start, End int
	Values     []*float64
}

// RegisterDescriptor pushes a descriptor into the root's IO set during
// the registration bar and returns its id. It does not check for
// duplicates: the builtin input/plot/line calls register only when their
// call site's function-instance slot is still empty, so each call site
// registers once.
func (io *IORoot) RegisterDescriptor(d Descriptor) string {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	io.Descriptors = append(io.Descriptors, d)
	return d.ID
}

// SetUserInputs installs the host's chosen input values between the
// registration bar and the first data bar; length and order must match
// the descriptor set (the driver enforces this before calling in).
func (io *IORoot) SetUserInputs(vals []value.Value) {
	io.Inputs = vals
}

// ResetInputCursor is called once per bar (spec.md §5 ordering point 1).
func (io *IORoot) ResetInputCursor() { io.inputCursor = 0 }

// NextInput consumes the next user input value in order, implementing
// the "input cursor discipline" testable property of spec.md §8: the
// i-th input() call within a bar consumes the i-th value.
func (io *IORoot) NextInput() (value.Value, bool) {
	if io.inputCursor >= len(io.Inputs) {
		return nil, false
	}
	v := io.Inputs[io.inputCursor]
	io.inputCursor++
	return v, true
}

// WriteOutput appends (or extends) the named output's data for the
// current bar index.
func (io *IORoot) WriteOutput(name string, barIndex int, v *float64) {
	out, ok := io.Outputs[name]
	if !ok {
		out = &OutputData{Start: barIndex, End: barIndex, Values: []*float64{nil}}
		io.Outputs[name] = out
	}
	if barIndex < out.Start {
		// Shouldn't happen in a forward-only driver; guard anyway.
		pad := make([]*float64, out.Start-barIndex)
		out.Values = append(pad, out.Values...)
		out.Start = barIndex
	}
	if barIndex > out.End {
		for out.End < barIndex {
			out.End++
			out.Values = append(out.Values, nil)
		}
	}
	out.Values[barIndex-out.Start] = v
}
