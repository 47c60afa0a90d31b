package value

import "testing"

func TestSeriesIndexCurrentAndHistory(t *testing.T) {
	s := NewSeries(PFloat)
	s.Update(1.0)
	s.Commit() // bar 0 -> history[0]=1.0, current reset

	s.Update(2.0)
	s.Commit() // bar 1 -> history[1]=2.0

	s.Update(3.0) // bar 2, not yet committed

	if got := s.Index(0); got != 3.0 {
		t.Errorf("Index(0) = %v, want 3.0", got)
	}
	if got := s.Index(1); got != 2.0 {
		t.Errorf("Index(1) = %v, want 2.0", got)
	}
	if got := s.Index(2); got != 1.0 {
		t.Errorf("Index(2) = %v, want 1.0", got)
	}
	if _, ok := s.Index(3).(NA); !ok {
		t.Errorf("Index(3) = %v, want NA (out of recorded history)", s.Index(3))
	}
	if _, ok := s.Index(-1).(NA); !ok {
		t.Errorf("Index(-1) = %v, want NA", s.Index(-1))
	}
}

func TestSeriesRollBackUndoesCommit(t *testing.T) {
	s := NewSeries(PInt)
	s.Update(int64(10))
	s.Commit()
	if s.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", s.Len())
	}

	s.Update(int64(20))
	s.Commit()
	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", s.Len())
	}

	s.RollBack()
	if s.Len() != 1 {
		t.Fatalf("after RollBack, Len() = %d, want 1", s.Len())
	}
	if got := s.Index(1); got != int64(10) {
		t.Errorf("after RollBack, Index(1) = %v, want 10", got)
	}
}

func TestSeriesCloneIsIndependent(t *testing.T) {
	s := NewSeries(PFloat)
	s.Update(1.0)
	s.Commit()

	c := s.Clone()
	c.Update(99.0)
	c.Commit()

	if s.Len() != 1 {
		t.Errorf("original series mutated by clone: Len() = %d, want 1", s.Len())
	}
	if c.Len() != 2 {
		t.Errorf("clone Len() = %d, want 2", c.Len())
	}
}

func TestFromHistorySeedsWithoutMutatingInput(t *testing.T) {
	seed := []Value{1.0, 2.0, 3.0}
	s := FromHistory(PFloat, seed)
	s.Commit() // pushes current (ZeroOf) onto history, seed slice untouched

	if seed[0] != 1.0 || seed[1] != 2.0 || seed[2] != 3.0 {
		t.Errorf("FromHistory mutated caller's slice: %v", seed)
	}
	if got := s.Index(4); got != 1.0 {
		t.Errorf("Index(4) = %v, want 1.0 (oldest seeded bar)", got)
	}
}
