package scheduler

import (
	"log"
	"time"

	"github.com/nodalcore/numakv/internal/hotness"
	"github.com/nodalcore/numakv/internal/migrate"
	"github.com/nodalcore/numakv/internal/nodeset"
	"github.com/nodalcore/numakv/internal/placement"
)

// NoopStrategy is the reserved slot 0 strategy (§4.F): it always
// succeeds and exists purely as a liveness signal for the scheduling
// framework, logging at coarse intervals rather than every tick.
type NoopStrategy struct {
	ticks int64
}

// Execute implements Strategy.
func (n *NoopStrategy) Execute() error {
	n.ticks++
	if n.ticks%20 == 0 {
		log.Printf("scheduler: noop strategy alive, tick %d", n.ticks)
	}
	return nil
}

// NoopFactory registers the reserved slot 0 strategy.
var NoopFactory = Factory{
	Name:            "noop",
	Description:     "liveness no-op",
	Type:            TypePeriodic,
	DefaultPriority: PriorityLow,
	DefaultInterval: 5 * time.Second,
	Create:          func() (Strategy, error) { return &NoopStrategy{}, nil },
}

// CompositeLRUStrategy is the reserved slot 1 strategy (§4.F): it owns
// decay, drains the pending-migration queue into the migration engine,
// and considers global load rebalancing via the placement engine.
type CompositeLRUStrategy struct {
	Tracker   *hotness.Tracker
	Migrate   *migrate.Engine
	Placement *placement.Engine
	Nodes     *nodeset.Set
	Store     migrate.Store
	Clock     func() uint16

	decayInterval time.Duration
	lastDecay     time.Time
}

// NewCompositeLRUStrategy wires the tracker, migration engine, placement
// engine, node set and a clock function together, with a default
// internal decay cadence.
func NewCompositeLRUStrategy(tracker *hotness.Tracker, mig *migrate.Engine, placer *placement.Engine, nodes *nodeset.Set, store migrate.Store, clock func() uint16) *CompositeLRUStrategy {
	mig.SetNodeUpdateHook(tracker.SetCurrentNode)
	return &CompositeLRUStrategy{
		Tracker: tracker, Migrate: mig, Placement: placer, Nodes: nodes, Store: store, Clock: clock,
		decayInterval: time.Second,
	}
}

// Execute implements Strategy: decay (if its own interval elapsed),
// drain pending migrations, then consider rebalancing, per §4.F.
func (c *CompositeLRUStrategy) Execute() error {
	now := c.Clock()

	if time.Since(c.lastDecay) >= c.decayInterval {
		c.Tracker.Decay(now)
		c.lastDecay = time.Now()
	}

	dispatch := c.Tracker.DrainPending(now, c.nodeAvailable)
	for _, p := range dispatch {
		c.Migrate.MigrateValue(c.Store, p.Key, p.TargetNode)
	}

	if c.Placement.ShouldRebalance() {
		// The lightest node is looked up but not stored or acted on: no
		// migration is dispatched and later placement is unchanged; the
		// only effect is ShouldRebalance resetting its interval clock.
		_ = c.Placement.PreferredLightNode()
	}
	return nil
}

func (c *CompositeLRUStrategy) nodeAvailable(node int) bool {
	n := c.Nodes.Node(node)
	if n == nil {
		return false
	}
	return n.Utilisation() < 0.95
}

// Configure implements ConfigurableStrategy by delegating entirely to the
// hot-key tracker's Configure, which owns every key §4.F names for the
// composite-LRU slot.
func (c *CompositeLRUStrategy) Configure(key string, value int64) bool {
	return c.Tracker.Configure(key, value)
}

// CompositeLRUFactory builds a Factory for the reserved slot 1 strategy.
// Unlike NoopFactory, its Create needs the tracker/migrate/placement
// instances it will operate on, so this returns a closure over them
// rather than a zero-argument constructor — callers build one Factory
// per root context rather than sharing a package-level value.
func CompositeLRUFactory(tracker *hotness.Tracker, mig *migrate.Engine, placer *placement.Engine, nodes *nodeset.Set, store migrate.Store, clock func() uint16) Factory {
	return Factory{
		Name:            "composite-lru",
		Description:     "hot-key tracking, decay, and migration dispatch",
		Type:            TypeHybrid,
		DefaultPriority: PriorityHigh,
		DefaultInterval: 500 * time.Millisecond,
		Create: func() (Strategy, error) {
			return NewCompositeLRUStrategy(tracker, mig, placer, nodes, store, clock), nil
		},
	}
}
