// Package placement selects a destination node for an allocation request,
// per spec §4.B. Grounded on the teacher's
// internal/runtime/numa/optimizer.go: Allocator.AllocateLocal/AllocateRemote
// for the local-first/cxl-optimised preference order, and
// LoadBalancer.balance's argmin/argmax-over-load shape for pressure-aware
// selection, generalized into an exhaustive named-strategy table.
package placement

import (
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	nkerrors "github.com/nodalcore/numakv/internal/errors"
	"github.com/nodalcore/numakv/internal/nodeset"
)

// Strategy names the six exhaustive, observable placement rules of §4.B.
type Strategy string

const (
	LocalFirst    Strategy = "local-first"
	Interleave    Strategy = "interleave"
	RoundRobin    Strategy = "round-robin"
	Weighted      Strategy = "weighted"
	PressureAware Strategy = "pressure-aware"
	CXLOptimised  Strategy = "cxl-optimised"
)

// Config holds the placement engine's tunables, per §4.B "Configuration
// fields: strategy, node weights, balance threshold, CXL optimisation
// flag, minimum allocation size, auto-rebalance flag, rebalance interval."
type Config struct {
	Strategy          Strategy
	BalanceThreshold  float64
	CXLOptimised      bool
	MinAllocationSize uint32
	AutoRebalance     bool
	RebalanceInterval time.Duration
}

// DefaultConfig returns the engine's out-of-the-box tunables.
func DefaultConfig() Config {
	return Config{
		Strategy:          LocalFirst,
		BalanceThreshold:  0.3,
		MinAllocationSize: 256,
		AutoRebalance:     true,
		RebalanceInterval: 10 * time.Second,
	}
}

// Engine selects node ids for allocation requests, per §4.B.
type Engine struct {
	mu     sync.Mutex
	cfg    Config
	nodes  *nodeset.Set
	rrCtr  uint64
	rng    *rand.Rand
	lastRB time.Time
}

// New builds a placement Engine over nodes, using cfg (DefaultConfig if
// the caller wants the stock tunables).
func New(nodes *nodeset.Set, cfg Config) *Engine {
	return &Engine{
		cfg:    cfg,
		nodes:  nodes,
		rng:    rand.New(rand.NewSource(1)),
		lastRB: time.Now(),
	}
}

// SetStrategy swaps the active strategy at runtime (the admin `config`
// command surface, §6).
func (e *Engine) SetStrategy(s Strategy) error {
	switch s {
	case LocalFirst, Interleave, RoundRobin, Weighted, PressureAware, CXLOptimised:
		e.mu.Lock()
		e.cfg.Strategy = s
		e.mu.Unlock()
		return nil
	default:
		return nkerrors.Invalid("unknown placement strategy", map[string]interface{}{"strategy": string(s)})
	}
}

// SetCXLOptimised toggles the CXL-optimisation flag, per the admin
// `config set cxl_optimization <on|off>` command surface (§6).
func (e *Engine) SetCXLOptimised(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg.CXLOptimised = enabled
}

// SetBalanceThreshold updates the utilisation-spread trigger used by
// ShouldRebalance, per the admin `config set balance_threshold <pct>`
// command surface (§6). threshold is a 0..1 fraction.
func (e *Engine) SetBalanceThreshold(threshold float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg.BalanceThreshold = threshold
}

// Select picks a destination node for a size-byte allocation and records
// the post-selection counters (§4.B "Post-selection").
func (e *Engine) Select(size uint32) int {
	e.mu.Lock()
	strategy := e.cfg.Strategy
	e.mu.Unlock()

	node := e.selectByStrategy(strategy, size)
	if n := e.nodes.Node(node); n != nil {
		n.RecordAllocation(int64(size))
	}
	return node
}

func (e *Engine) selectByStrategy(s Strategy, size uint32) int {
	switch s {
	case LocalFirst:
		return e.nodes.CurrentNode()
	case Interleave:
		e.mu.Lock()
		defer e.mu.Unlock()
		return e.rng.Intn(e.nodes.Len())
	case RoundRobin:
		count := uint64(e.nodes.Len())
		if count == 0 {
			return 0
		}
		i := atomic.AddUint64(&e.rrCtr, 1) - 1
		return int(i % count)
	case Weighted:
		return e.selectWeighted()
	case PressureAware:
		minID, _, _, _ := e.nodes.MinMaxUtilisation()
		if minID < 0 {
			return 0
		}
		return minID
	case CXLOptimised:
		return e.selectCXLOptimised(size)
	default:
		return e.nodes.CurrentNode()
	}
}

// selectWeighted samples a node proportional to weight; a node with
// weight 0 is excluded entirely, per §4.B.
func (e *Engine) selectWeighted() int {
	nodes := e.nodes.Nodes()
	var total int64
	for _, n := range nodes {
		w := atomic.LoadInt64(&n.Weight)
		if w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return e.nodes.CurrentNode()
	}

	e.mu.Lock()
	pick := e.rng.Int63n(total)
	e.mu.Unlock()

	var cum int64
	for _, n := range nodes {
		w := atomic.LoadInt64(&n.Weight)
		if w <= 0 {
			continue
		}
		cum += w
		if pick < cum {
			return n.ID
		}
	}
	return nodes[len(nodes)-1].ID
}

// selectCXLOptimised implements §4.B's "sizes < min_allocation_size ->
// node 0; otherwise -> node 1 if present, else 0".
func (e *Engine) selectCXLOptimised(size uint32) int {
	e.mu.Lock()
	minSize := e.cfg.MinAllocationSize
	e.mu.Unlock()

	if size < minSize {
		return 0
	}
	if e.nodes.Len() > 1 {
		return 1
	}
	return 0
}

// ShouldRebalance implements §4.B's rebalance trigger: the utilisation
// spread exceeds the configured threshold and the rebalance interval has
// elapsed since the last call that returned true (or since New). Calling
// it resets the interval clock only when it returns true, matching a scheduler slot that "considers
// global load rebalancing" once per tick.
func (e *Engine) ShouldRebalance() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.cfg.AutoRebalance {
		return false
	}
	if time.Since(e.lastRB) < e.cfg.RebalanceInterval {
		return false
	}
	_, minU, _, maxU := e.nodes.MinMaxUtilisation()
	if maxU-minU <= e.cfg.BalanceThreshold {
		return false
	}
	e.lastRB = time.Now()
	return true
}

// PreferredLightNode returns the least-utilised node, for a caller that
// has just confirmed ShouldRebalance and wants to steer future
// allocations there (§4.B: "a future allocation should prefer the
// lightest node").
func (e *Engine) PreferredLightNode() int {
	minID, _, _, _ := e.nodes.MinMaxUtilisation()
	if minID < 0 {
		return 0
	}
	return minID
}
