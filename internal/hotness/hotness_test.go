package hotness

import "testing"

func TestRecordAccessLocalIncrementsHotness(t *testing.T) {
	tr := New(DefaultConfig())
	tr.RecordAccess("k1", 0, 100)
	tr.RecordAccess("k1", 0, 101)

	rec, ok := tr.Lookup("k1")
	if !ok {
		t.Fatal("expected record to exist")
	}
	if rec.Hotness != 2 {
		t.Errorf("expected hotness 2 after two local accesses, got %d", rec.Hotness)
	}
	if rec.AccessCount != 2 {
		t.Errorf("expected access count 2, got %d", rec.AccessCount)
	}
}

func TestRecordAccessRemoteQueuesMigrationAboveThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MigrateThreshold = 2
	tr := New(cfg)

	tr.RecordAccess("k1", 0, 1)
	tr.RecordAccess("k1", 0, 2) // hotness now 2

	tr.RecordAccess("k1", 1, 3) // remote access, hotness >= threshold -> pending

	rec, _ := tr.Lookup("k1")
	if rec.Pending == nil {
		t.Fatal("expected pending migration to be queued")
	}
	if rec.Pending.TargetNode != 1 {
		t.Errorf("expected pending target node 1, got %d", rec.Pending.TargetNode)
	}
	if rec.PreferredNode != 1 {
		t.Errorf("expected preferred node updated to 1, got %d", rec.PreferredNode)
	}
}

func TestRecordAccessRemoteBelowThresholdDoesNotQueue(t *testing.T) {
	tr := New(DefaultConfig()) // default migrate threshold 5
	tr.RecordAccess("k1", 0, 1)
	tr.RecordAccess("k1", 1, 2)

	rec, _ := tr.Lookup("k1")
	if rec.Pending != nil {
		t.Error("expected no pending migration below threshold")
	}
}

func TestDecayStabilityGate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DecayThreshold = 10
	cfg.StabilityCount = 2
	tr := New(cfg)

	tr.RecordAccess("k1", 0, 0)
	tr.RecordAccess("k1", 0, 0) // hotness 2

	// Three decay passes, each seeing staleness (delta > threshold).
	tr.Decay(20) // stability 1
	rec, _ := tr.Lookup("k1")
	if rec.Hotness != 2 {
		t.Fatalf("expected hotness unchanged after first stale decay, got %d", rec.Hotness)
	}

	tr.Decay(20) // stability 2
	tr.Decay(20) // stability 3 > stability_count(2) -> hotness decrements
	rec, _ = tr.Lookup("k1")
	if rec.Hotness != 1 {
		t.Errorf("expected hotness decremented to 1 after sustained coldness, got %d", rec.Hotness)
	}
}

func TestDecayResetsStabilityOnRecentAccess(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DecayThreshold = 1000
	tr := New(cfg)
	tr.RecordAccess("k1", 0, 0)

	tr.Decay(1) // delta well under threshold: stability stays 0
	rec, _ := tr.Lookup("k1")
	if rec.Stability != 0 {
		t.Errorf("expected stability reset to 0 on recent access, got %d", rec.Stability)
	}
}

func TestClockWraparound(t *testing.T) {
	if got := clockDelta(5, 0xFFF0); got != 21 {
		t.Errorf("expected wraparound delta 21, got %d", got)
	}
}

func TestSetCurrentNodeClearsPending(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MigrateThreshold = 1
	tr := New(cfg)
	tr.RecordAccess("k1", 0, 0)
	tr.RecordAccess("k1", 1, 1)

	rec, _ := tr.Lookup("k1")
	if rec.Pending == nil {
		t.Fatal("expected pending migration before SetCurrentNode")
	}

	tr.SetCurrentNode("k1", 1)
	rec, _ = tr.Lookup("k1")
	if rec.CurrentNode != 1 {
		t.Errorf("expected current node 1, got %d", rec.CurrentNode)
	}
	if rec.Pending != nil {
		t.Error("expected pending cleared after migration")
	}
}

func TestDrainPendingExpiresOldEntries(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MigrateThreshold = 1
	cfg.PendingTimeout = 5
	tr := New(cfg)
	tr.RecordAccess("k1", 0, 0)
	tr.RecordAccess("k1", 1, 0) // enqueued at time 0

	dispatch := tr.DrainPending(100, func(node int) bool { return true })
	if len(dispatch) != 0 {
		t.Errorf("expected expired entry to not dispatch, got %d", len(dispatch))
	}
	if tr.Snapshot().PendingExpired != 1 {
		t.Errorf("expected 1 expired pending entry, got %d", tr.Snapshot().PendingExpired)
	}
}

func TestDrainPendingDispatchesWhenNodeAvailable(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MigrateThreshold = 1
	tr := New(cfg)
	tr.RecordAccess("k1", 0, 0)
	tr.RecordAccess("k1", 1, 1)

	dispatch := tr.DrainPending(2, func(node int) bool { return true })
	if len(dispatch) != 1 || dispatch[0].Key != "k1" {
		t.Fatalf("expected k1 dispatched, got %+v", dispatch)
	}
}

func TestDrainPendingKeepsWhenNodeUnavailable(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MigrateThreshold = 1
	tr := New(cfg)
	tr.RecordAccess("k1", 0, 0)
	tr.RecordAccess("k1", 1, 1)

	dispatch := tr.DrainPending(2, func(node int) bool { return false })
	if len(dispatch) != 0 {
		t.Fatalf("expected nothing dispatched when node unavailable, got %d", len(dispatch))
	}

	rec, _ := tr.Lookup("k1")
	if rec.Pending == nil {
		t.Error("expected pending entry retained for retry")
	}
}

func TestConfigureUnknownKeyFails(t *testing.T) {
	tr := New(DefaultConfig())
	if tr.Configure("bogus", 1) {
		t.Error("expected Configure to fail for unknown key")
	}
	if !tr.Configure("migrate_threshold", 3) {
		t.Error("expected Configure to succeed for known key")
	}
}
