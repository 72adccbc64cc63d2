// Package hotness implements the composite-LRU hot-key tracker of spec
// §4.E: per-key access-driven hotness with a stability-gated decay, and
// the pending-migration queue that feeds the migration engine. Grounded
// on original_source/src/numa_composite_lru.c's record/decay/stability
// logic, and on spec §5's requirement that the hot-key map and
// pending-migration list share a single mutex.
package hotness

import (
	"sync"
)

// Config holds the tracker's tunables, per §4.F "Configuration keys
// (composite-LRU)".
type Config struct {
	DecayThreshold    uint16
	StabilityCount    uint8
	MigrateThreshold  uint8
	PendingTimeout    uint16 // coarse-clock ticks before a pending migration is dropped
	OverloadThreshold float64
	BandwidthThreshold float64
	PressureThreshold float64
}

// DefaultConfig returns the documented defaults (§4.E: "migrate_threshold
// (default 5)", "stability_count (default 3)", pending timeout "default
// 30s" expressed here in coarse-clock ticks by the caller's tick rate).
func DefaultConfig() Config {
	return Config{
		DecayThreshold:     100,
		StabilityCount:     3,
		MigrateThreshold:   5,
		PendingTimeout:     30,
		OverloadThreshold:  0.85,
		BandwidthThreshold: 0.7,
		PressureThreshold:  0.8,
	}
}

// Record is one key's hot-key bookkeeping, per §3 "Hot-key record".
type Record struct {
	Hotness       uint8
	Stability     uint8
	LastAccess    uint16
	AccessCount   uint64
	CurrentNode   int
	PreferredNode int
	Pending       *PendingMigration
}

// PendingMigration is one queued migration request, per §4.E "Pending
// migration queue".
type PendingMigration struct {
	Key        string
	TargetNode int
	EnqueuedAt uint16
	Priority   int
}

// Tracker owns the hot-key map and pending-migration queue behind one
// mutex, per §5's concurrency model.
type Tracker struct {
	mu      sync.Mutex
	cfg     Config
	records map[string]*Record
	pending []*PendingMigration

	heatUpdates      int64
	migrationsQueued int64
	decayOperations  int64
	pendingExpired   int64
}

// New builds an empty Tracker.
func New(cfg Config) *Tracker {
	return &Tracker{cfg: cfg, records: make(map[string]*Record)}
}

// RecordAccess implements §4.E's record_access: look up or create the
// key's record, bump its access counters, and either reinforce or flag
// its node affinity depending on whether cpuNode matches the record's
// current node.
func (t *Tracker) RecordAccess(key string, cpuNode int, now uint16) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[key]
	if !ok {
		rec = &Record{CurrentNode: cpuNode, PreferredNode: cpuNode}
		t.records[key] = rec
	}

	rec.AccessCount++
	rec.LastAccess = now
	t.heatUpdates++

	if rec.CurrentNode == cpuNode {
		if rec.Hotness < 7 {
			rec.Hotness++
		}
		rec.Stability = 0
		return
	}

	rec.PreferredNode = cpuNode
	if rec.Hotness >= t.cfg.MigrateThreshold && rec.Pending == nil {
		rec.Pending = &PendingMigration{Key: key, TargetNode: cpuNode, EnqueuedAt: now, Priority: int(rec.Hotness)}
		t.pending = append(t.pending, rec.Pending)
		t.migrationsQueued++
	}
}

// clockDelta computes elapsed ticks from last to current, handling the
// 16-bit coarse clock's wraparound per §4.E.
func clockDelta(current, last uint16) uint16 {
	if current >= last {
		return current - last
	}
	return (0xFFFF - last) + current + 1
}

// Decay implements §4.E's decay(): for every record, if it has gone
// stale beyond decay_threshold, bump its stability counter and only drop
// hotness once stability exceeds stability_count; a recent access resets
// stability to 0 instead.
func (t *Tracker) Decay(now uint16) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.decayOperations++
	for _, rec := range t.records {
		delta := clockDelta(now, rec.LastAccess)
		if delta > t.cfg.DecayThreshold {
			rec.Stability++
			if rec.Stability > t.cfg.StabilityCount && rec.Hotness > 0 {
				rec.Hotness--
				rec.Stability = 0
			}
		} else {
			rec.Stability = 0
		}
	}
}

// SetCurrentNode implements §4.D's migration-engine metadata update hook:
// on a successful migration, the hot-key record's current_node is set to
// the target node and its pending request (if any) is cleared.
func (t *Tracker) SetCurrentNode(key string, node int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[key]
	if !ok {
		return
	}
	rec.CurrentNode = node
	rec.Pending = nil
}

// DrainPending sorts the pending queue in one pass: entries older than
// the timeout are dropped and counted, per §4.E; younger entries whose
// target node nodeAvailable accepts (or every younger entry, when
// nodeAvailable is nil) are removed and returned for dispatch to the
// migration engine; the rest stay queued. now is a coarse-clock reading
// in the same units as Config's PendingTimeout.
func (t *Tracker) DrainPending(now uint16, nodeAvailable func(node int) bool) []*PendingMigration {
	t.mu.Lock()
	defer t.mu.Unlock()

	var dispatch []*PendingMigration
	var remaining []*PendingMigration
	for _, p := range t.pending {
		if clockDelta(now, p.EnqueuedAt) > t.cfg.PendingTimeout {
			t.pendingExpired++
			if rec, ok := t.records[p.Key]; ok && rec.Pending == p {
				rec.Pending = nil
			}
			continue
		}
		if nodeAvailable == nil || nodeAvailable(p.TargetNode) {
			dispatch = append(dispatch, p)
			if rec, ok := t.records[p.Key]; ok && rec.Pending == p {
				rec.Pending = nil
			}
			continue
		}
		remaining = append(remaining, p)
	}
	t.pending = remaining
	return dispatch
}

// Lookup returns a copy of key's record, or ok=false if unknown.
func (t *Tracker) Lookup(key string) (Record, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.records[key]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// Counters are the live counters §4.F's composite-LRU reads exposes
// ("heat_updates, migrations_triggered, decay_operations").
type Counters struct {
	HeatUpdates      int64
	MigrationsQueued int64
	DecayOperations  int64
	PendingExpired   int64
}

// Snapshot returns the tracker's running counters.
func (t *Tracker) Snapshot() Counters {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Counters{
		HeatUpdates:      t.heatUpdates,
		MigrationsQueued: t.migrationsQueued,
		DecayOperations:  t.decayOperations,
		PendingExpired:   t.pendingExpired,
	}
}

// Configure updates one named tunable, per §4.F's `configure(slot, key,
// value)` contract for the composite-LRU slot.
func (t *Tracker) Configure(key string, value int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch key {
	case "decay_threshold":
		t.cfg.DecayThreshold = uint16(value)
	case "stability_count":
		t.cfg.StabilityCount = uint8(value)
	case "migrate_threshold":
		t.cfg.MigrateThreshold = uint8(value)
	case "overload_threshold":
		t.cfg.OverloadThreshold = float64(value) / 100
	case "bandwidth_threshold":
		t.cfg.BandwidthThreshold = float64(value) / 100
	case "pressure_threshold":
		t.cfg.PressureThreshold = float64(value) / 100
	default:
		return false
	}
	return true
}
