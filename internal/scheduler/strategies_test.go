package scheduler

import (
	"testing"

	"github.com/nodalcore/numakv/internal/allocator"
	"github.com/nodalcore/numakv/internal/hotness"
	"github.com/nodalcore/numakv/internal/migrate"
	"github.com/nodalcore/numakv/internal/nodeset"
	"github.com/nodalcore/numakv/internal/placement"
	"github.com/nodalcore/numakv/internal/values"
)

type fakeStore struct {
	data map[string]values.Value
}

func (f *fakeStore) Get(key string) (values.Value, bool) { v, ok := f.data[key]; return v, ok }
func (f *fakeStore) Set(key string, v values.Value)      { f.data[key] = v }
func (f *fakeStore) Keys() []string {
	out := make([]string, 0, len(f.data))
	for k := range f.data {
		out = append(out, k)
	}
	return out
}

func TestNoopStrategyAlwaysSucceeds(t *testing.T) {
	n := &NoopStrategy{}
	for i := 0; i < 25; i++ {
		if err := n.Execute(); err != nil {
			t.Fatalf("noop strategy must never fail: %v", err)
		}
	}
}

func TestCompositeLRUDispatchesPendingMigration(t *testing.T) {
	nodes := nodeset.NewSet(2)
	tracker := hotness.New(hotness.Config{MigrateThreshold: 1, PendingTimeout: 1000, StabilityCount: 3, DecayThreshold: 1000})
	alloc := allocator.New(allocator.WithNodeCount(2))
	mig := migrate.New(alloc)
	placer := placement.New(nodes, placement.DefaultConfig())
	store := &fakeStore{data: map[string]values.Value{
		"k1": &values.String{Encoding: values.StringIntPacked, IntVal: 7},
	}}

	var tick uint16
	clock := func() uint16 { tick++; return tick }

	tracker.RecordAccess("k1", 0, 0)
	tracker.RecordAccess("k1", 1, 1) // remote access above threshold -> pending

	strategy := NewCompositeLRUStrategy(tracker, mig, placer, nodes, store, clock)
	if err := strategy.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec, _ := tracker.Lookup("k1")
	if rec.CurrentNode != 1 {
		t.Errorf("expected migration dispatched and current node updated to 1, got %d", rec.CurrentNode)
	}
}

func TestCompositeLRUConfigureDelegatesToTracker(t *testing.T) {
	tracker := hotness.New(hotness.DefaultConfig())
	strategy := &CompositeLRUStrategy{Tracker: tracker}

	if !strategy.Configure("migrate_threshold", 9) {
		t.Error("expected Configure to succeed for known key")
	}
	if strategy.Configure("bogus", 1) {
		t.Error("expected Configure to fail for unknown key")
	}
}
