package nodeset

import "testing"

func TestNewSetDefaults(t *testing.T) {
	s := NewSet(4)

	t.Run("NodeCount", func(t *testing.T) {
		if s.Len() != 4 {
			t.Fatalf("expected 4 nodes, got %d", s.Len())
		}
	})

	t.Run("DefaultWeight", func(t *testing.T) {
		for _, n := range s.Nodes() {
			if n.Weight != DefaultWeight {
				t.Errorf("node %d: expected default weight %d, got %d", n.ID, DefaultWeight, n.Weight)
			}
		}
	})

	t.Run("OutOfRange", func(t *testing.T) {
		if s.Node(99) != nil {
			t.Error("expected nil for out-of-range node id")
		}
	})
}

func TestRecordAllocation(t *testing.T) {
	s := NewSet(2)
	n := s.Node(0)

	n.RecordAllocation(128)
	n.RecordAllocation(256)

	if got := n.Allocations(); got != 2 {
		t.Errorf("expected 2 allocations, got %d", got)
	}
	if got := n.BytesAllocated(); got != 384 {
		t.Errorf("expected 384 bytes allocated, got %d", got)
	}
}

func TestSetWeightClamps(t *testing.T) {
	s := NewSet(2)

	if !s.SetWeight(0, 2000) {
		t.Fatal("SetWeight on valid node should succeed")
	}
	if s.Node(0).Weight != 1000 {
		t.Errorf("expected weight clamped to 1000, got %d", s.Node(0).Weight)
	}

	if !s.SetWeight(0, -5) {
		t.Fatal("SetWeight on valid node should succeed")
	}
	if s.Node(0).Weight != 0 {
		t.Errorf("expected weight clamped to 0, got %d", s.Node(0).Weight)
	}

	if s.SetWeight(5, 50) {
		t.Error("SetWeight on out-of-range node should fail")
	}
}

func TestMinMaxUtilisation(t *testing.T) {
	s := NewSet(3)
	for _, n := range s.Nodes() {
		n.ReservedBytes = 1000
	}
	s.Node(0).RecordAllocation(100) // 10%
	s.Node(1).RecordAllocation(900) // 90%
	s.Node(2).RecordAllocation(500) // 50%

	minID, minU, maxID, maxU := s.MinMaxUtilisation()
	if minID != 0 || maxID != 1 {
		t.Errorf("expected min node 0 and max node 1, got min=%d max=%d", minID, maxID)
	}
	if minU != 0.1 || maxU != 0.9 {
		t.Errorf("expected minU=0.1 maxU=0.9, got minU=%v maxU=%v", minU, maxU)
	}
}

func TestCurrentNodeWithinRange(t *testing.T) {
	s := NewSet(2)
	n := s.CurrentNode()
	if n < 0 || n >= 2 {
		t.Errorf("CurrentNode out of range: %d", n)
	}
}
