package scheduler

import (
	"testing"
	"time"

	nkerrors "github.com/nodalcore/numakv/internal/errors"
)

type countingStrategy struct {
	calls int
	fail  bool
}

func (c *countingStrategy) Execute() error {
	c.calls++
	if c.fail {
		return nkerrors.Invalid("forced failure", nil)
	}
	return nil
}

func countingFactory(name string, fail bool) Factory {
	return Factory{
		Name: name, Description: "test strategy", Type: TypePeriodic,
		DefaultPriority: PriorityNormal, DefaultInterval: time.Millisecond,
		Create: func() (Strategy, error) { return &countingStrategy{fail: fail}, nil },
	}
}

func TestInsertAndRunSlot(t *testing.T) {
	s := New()
	s.Register(countingFactory("inc", false))

	if err := s.Insert(2, "inc"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.RunSlot(2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	status, err := s.Status(2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.ExecCount != 1 {
		t.Errorf("expected exec count 1, got %d", status.ExecCount)
	}
}

func TestInsertUnregisteredFactoryNotFound(t *testing.T) {
	s := New()
	err := s.Insert(0, "bogus")
	if nkerrors.AsCode(err) != nkerrors.CodeNotFound {
		t.Errorf("expected not-found, got %v", err)
	}
}

func TestDoubleInsertFailsExists(t *testing.T) {
	s := New()
	s.Register(countingFactory("inc", false))
	if err := s.Insert(0, "inc"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := s.Insert(0, "inc")
	if nkerrors.AsCode(err) != nkerrors.CodeExists {
		t.Errorf("expected exists, got %v", err)
	}
}

func TestRunSlotCountsFailures(t *testing.T) {
	s := New()
	s.Register(countingFactory("fail", true))
	s.Insert(0, "fail")

	s.RunSlot(0)
	s.RunSlot(0)

	status, _ := s.Status(0)
	if status.FailureCount != 2 {
		t.Errorf("expected 2 failures, got %d", status.FailureCount)
	}
}

func TestDisableSkipsRunAll(t *testing.T) {
	s := New()
	s.Register(countingFactory("inc", false))
	s.Insert(0, "inc")
	s.Disable(0)

	s.RunAll()

	status, _ := s.Status(0)
	if status.ExecCount != 0 {
		t.Errorf("expected disabled slot to not run, got %d executions", status.ExecCount)
	}
}

func TestRunAllRunsSlotsOfEveryPriority(t *testing.T) {
	s := New()
	highFactory := countingFactory("high", false)
	highFactory.DefaultPriority = PriorityHigh
	lowFactory := countingFactory("low", false)
	lowFactory.DefaultPriority = PriorityLow

	s.Register(highFactory)
	s.Register(lowFactory)
	s.Insert(5, "low")
	s.Insert(3, "high")

	s.RunAll()

	hi, _ := s.Status(3)
	lo, _ := s.Status(5)
	if hi.ExecCount != 1 || lo.ExecCount != 1 {
		t.Errorf("expected both slots to run once: high=%d low=%d", hi.ExecCount, lo.ExecCount)
	}
}

func TestRunAllSkipsBeforeIntervalElapses(t *testing.T) {
	s := New()
	f := countingFactory("slow", false)
	f.DefaultInterval = time.Hour
	s.Register(f)
	s.Insert(0, "slow")

	s.RunAll()
	s.RunAll()

	status, _ := s.Status(0)
	if status.ExecCount != 1 {
		t.Errorf("expected exactly 1 execution before interval elapses, got %d", status.ExecCount)
	}
}

func TestRemoveClearsSlot(t *testing.T) {
	s := New()
	s.Register(countingFactory("inc", false))
	s.Insert(0, "inc")

	if err := s.Remove(0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Remove(0); nkerrors.AsCode(err) != nkerrors.CodeNotFound {
		t.Errorf("expected not-found removing empty slot, got %v", err)
	}
}

func TestListReturnsOnlyOccupiedSlots(t *testing.T) {
	s := New()
	s.Register(countingFactory("inc", false))
	s.Insert(3, "inc")

	list := s.List()
	if len(list) != 1 || list[0].Slot != 3 {
		t.Errorf("expected exactly one occupied slot (3), got %+v", list)
	}
}
