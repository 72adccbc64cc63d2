// Package core wires the allocator, placement engine, hot-key tracker,
// migration engine, and strategy scheduler into the single root context a
// host store embeds, per spec §1's "single shared root context (the
// opaque handle)" and §6's programmatic API. Grounded on the teacher's
// own root-object wiring in internal/runtime/numa/optimizer.go, where one
// constructor builds and cross-registers a NUMATopology, an Allocator, and
// a LoadBalancer rather than leaving callers to assemble the pieces.
package core

import (
	"sync"
	"sync/atomic"

	"github.com/nodalcore/numakv/internal/allocator"
	nkerrors "github.com/nodalcore/numakv/internal/errors"
	"github.com/nodalcore/numakv/internal/hotness"
	"github.com/nodalcore/numakv/internal/migrate"
	"github.com/nodalcore/numakv/internal/nodeset"
	"github.com/nodalcore/numakv/internal/placement"
	"github.com/nodalcore/numakv/internal/prefix"
	"github.com/nodalcore/numakv/internal/scheduler"
	"github.com/nodalcore/numakv/internal/values"
)

// Reserved slot ids, per §4.F "reserved strategies are table occupants
// like any other, just pre-assigned slot ids."
const (
	SlotNoop         = 0
	SlotCompositeLRU = 1
)

// Config holds root-context construction parameters, built up via Option.
type Config struct {
	NodeCount int
	Store     migrate.Store
	Placement placement.Config
	Hotness   hotness.Config
}

// Option configures a Context at construction time.
type Option func(*Config)

// WithNodeCount fixes the node count instead of discovering it from the
// host platform. A value <= 0 leaves discovery in charge.
func WithNodeCount(n int) Option {
	return func(c *Config) { c.NodeCount = n }
}

// WithStore installs the host key-value store the migration engine and
// composite-LRU strategy operate against. Without one, Context builds a
// small in-memory store suitable for demos and tests.
func WithStore(s migrate.Store) Option {
	return func(c *Config) { c.Store = s }
}

// WithPlacementConfig overrides the placement engine's default tunables.
func WithPlacementConfig(cfg placement.Config) Option {
	return func(c *Config) { c.Placement = cfg }
}

// WithHotnessConfig overrides the hot-key tracker's default tunables.
func WithHotnessConfig(cfg hotness.Config) Option {
	return func(c *Config) { c.Hotness = cfg }
}

// Context is the opaque root handle of §1: it owns every subsystem and is
// the only object a host store needs to hold onto. All of its state is
// in-memory and volatile, per §1's "no persisted state" non-goal.
type Context struct {
	Nodes     *nodeset.Set
	Alloc     *allocator.Allocator
	Placement *placement.Engine
	Tracker   *hotness.Tracker
	Migrate   *migrate.Engine
	Scheduler *scheduler.Scheduler
	Store     migrate.Store

	tick uint64
}

// New builds a fully wired Context: node discovery (or a fixed count),
// an allocator sized to match, a placement engine, a hot-key tracker, a
// migration engine bridging the two, and a scheduler with the reserved
// no-op and composite-LRU strategies inserted into slots 0 and 1.
func New(opts ...Option) *Context {
	cfg := Config{Placement: placement.DefaultConfig(), Hotness: hotness.DefaultConfig()}
	for _, opt := range opts {
		opt(&cfg)
	}

	var nodes *nodeset.Set
	if cfg.NodeCount > 0 {
		nodes = nodeset.NewSet(cfg.NodeCount)
	} else {
		nodes = nodeset.Discover()
	}

	alloc := allocator.New(allocator.WithNodeCount(nodes.Len()))
	placer := placement.New(nodes, cfg.Placement)
	tracker := hotness.New(cfg.Hotness)
	mig := migrate.New(alloc)

	store := cfg.Store
	if store == nil {
		store = newMemStore()
	}

	ctx := &Context{
		Nodes: nodes, Alloc: alloc, Placement: placer, Tracker: tracker,
		Migrate: mig, Store: store,
	}

	sched := scheduler.New()
	sched.Register(scheduler.NoopFactory)
	sched.Register(scheduler.CompositeLRUFactory(tracker, mig, placer, nodes, store, ctx.clock))
	sched.Insert(SlotNoop, scheduler.NoopFactory.Name)
	sched.Insert(SlotCompositeLRU, "composite-lru")
	ctx.Scheduler = sched

	return ctx
}

// clock is the Context's coarse 16-bit tick source shared by RecordAccess
// and the composite-LRU strategy's decay/pending-timeout logic, per
// §4.E's requirement that every caller read the same monotonic source.
func (c *Context) clock() uint16 {
	return prefix.CoarseClockLow16(atomic.AddUint64(&c.tick, 1))
}

// RecordAccess implements §6's programmatic record_access: the caller's
// current CPU/NUMA node is looked up automatically, matching the
// migration/hotness model where "cpu node" always means the accessing
// thread's node, never a caller-supplied value.
func (c *Context) RecordAccess(key string) {
	c.Tracker.RecordAccess(key, c.Nodes.CurrentNode(), c.clock())
}

// memStore is the default in-memory Store a Context builds when the host
// doesn't supply one, useful for demos and for admin commands exercised
// without an external key-value engine attached.
type memStore struct {
	mu   sync.RWMutex
	data map[string]values.Value
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string]values.Value)}
}

func (m *memStore) Get(key string) (values.Value, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *memStore) Set(key string, v values.Value) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = v
}

func (m *memStore) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.data))
	for k := range m.data {
		out = append(out, k)
	}
	return out
}

// Put is a convenience wrapper over the embedded Store's Set, letting
// demos and tests populate values without reaching into Context.Store.
func (c *Context) Put(key string, v values.Value) {
	c.Store.Set(key, v)
}

// ensureNodeRange validates a caller-supplied node id against §7's
// invalid-target-node error.
func (c *Context) ensureNodeRange(node int) error {
	if node < 0 || node >= c.Nodes.Len() {
		return nkerrors.Invalid("invalid target node", map[string]interface{}{"node": node})
	}
	return nil
}
