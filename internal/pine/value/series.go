package value

// Series is an ordered, per-bar log of a value of one element primary
// (spec.md §3.2): a current (in-flight) slot and a history of committed
// past bars, indexed so that s[0] is current, s[1] is the previous bar,
// and s[k] for k beyond the recorded history reads as na rather than
// failing.
//
// Series is held by pointer everywhere (a Go pointer gives the identity
// equality spec.md §4.7 needs to recognize "the predefined close series"
// without any manual reference counting — the teacher's Rc<RefCell<T>>
// handles become an ordinary Go pointer under garbage collection).
type Series struct {
	Elem    Primary
	Current Value
	History []Value
}

// NewSeries creates an empty series of the given element primary.
func NewSeries(elem Primary) *Series {
	return &Series{Elem: elem, Current: ZeroOf(elem)}
}

// FromHistory seeds a series with committed history (used by the driver
// to expose host-supplied bar arrays such as `close`).
func FromHistory(elem Primary, history []Value) *Series {
	return &Series{Elem: elem, Current: ZeroOf(elem), History: append([]Value(nil), history...)}
}

// Update assigns the current slot.
func (s *Series) Update(v Value) {
	s.Current = v
}

// Commit pushes the current slot onto history and resets current to its
// zero/na default.
func (s *Series) Commit() {
	s.History = append(s.History, s.Current)
	s.Current = ZeroOf(s.Elem)
}

// RollBack pops the last committed bar, undoing a Commit performed during
// a transient re-entry (spec.md §4.8's security re-evaluation, or error
// recovery per §5).
func (s *Series) RollBack() {
	if len(s.History) == 0 {
		return
	}
	s.History = s.History[:len(s.History)-1]
}

// Index reads the value k bars ago: 0 is current, 1 is the previous
// committed bar, and so on; out-of-range k returns na rather than
// failing.
func (s *Series) Index(k int) Value {
	if k == 0 {
		return s.Current
	}
	if k < 0 {
		return NA{}
	}
	n := len(s.History)
	if k <= n {
		return s.History[n-k]
	}
	return NA{}
}

// Len returns the number of committed bars.
func (s *Series) Len() int {
	return len(s.History)
}

// Clone returns a new series handle with an independently-owned history
// slice, matching §4.1's deep-copy-on-series-copy rule.
func (s *Series) Clone() *Series {
	n := &Series{Elem: s.Elem, Current: s.Current, History: append([]Value(nil), s.History...)}
	return n
}
