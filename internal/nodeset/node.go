// Package nodeset models the fixed, ordered collection of memory nodes
// (classical NUMA sockets or CXL-attached tiers) the core places payloads
// on. It owns per-node weight, reserved bytes, latency class, and the
// running allocation/utilisation counters every other component reads.
//
// Discovery is platform-specific: on linux, node-count discovery consults
// the scheduler affinity mask and CurrentNode the getcpu(2) syscall, the
// same way internal/runtime/asyncio's zero-copy helpers reach for
// golang.org/x/sys/unix behind a build tag; elsewhere, and whenever the
// platform reports no NUMA topology, the set degrades to a single node per
// spec §6.
package nodeset

import (
	"sync"
	"sync/atomic"
)

// DefaultWeight is the weight assigned to a node when none is configured.
const DefaultWeight = 100

// Node is one memory domain: a NUMA socket or a CXL-attached tier.
type Node struct {
	ID             int
	Weight         int64 // atomic
	ReservedBytes  uint64
	LatencyClass   int // lower is faster-local
	allocations    int64
	bytesAllocated int64
}

// Allocations returns the running allocation counter.
func (n *Node) Allocations() int64 { return atomic.LoadInt64(&n.allocations) }

// BytesAllocated returns the running bytes-allocated counter.
func (n *Node) BytesAllocated() int64 { return atomic.LoadInt64(&n.bytesAllocated) }

// RecordAllocation increments the node's allocation and bytes-allocated
// counters. Called by the allocator and, per §4.B, by the placement engine
// immediately after a destination node is selected.
func (n *Node) RecordAllocation(size int64) {
	atomic.AddInt64(&n.allocations, 1)
	atomic.AddInt64(&n.bytesAllocated, size)
}

// Utilisation reports bytes allocated as a fraction of reserved capacity,
// 0 if no capacity is reserved (treated as never under pressure).
func (n *Node) Utilisation() float64 {
	if n.ReservedBytes == 0 {
		return 0
	}
	used := atomic.LoadInt64(&n.bytesAllocated)
	if used < 0 {
		used = 0
	}
	return float64(used) / float64(n.ReservedBytes)
}

// Set is the fixed, ordered node collection discovered at init.
type Set struct {
	mu    sync.RWMutex
	nodes []*Node
}

// NewSet builds a Set with n nodes, ids 0..n-1, default weight, latency
// class equal to the node id, and no reserved-memory pressure tracking
// (callers set a Node's ReservedBytes field directly).
func NewSet(n int) *Set {
	if n < 1 {
		n = 1
	}
	nodes := make([]*Node, n)
	for i := range nodes {
		nodes[i] = &Node{ID: i, Weight: DefaultWeight, LatencyClass: i}
	}
	return &Set{nodes: nodes}
}

// Discover builds the Set for the running host: on linux, a node count
// estimated from the affinity mask's CPU count (see discoverNodeCount), or
// a single node everywhere else (§6 single-node degradation). Latency
// classes are NewSet's defaults; no per-node latency is measured.
func Discover() *Set {
	n := discoverNodeCount()
	return NewSet(n)
}

// Len returns the number of nodes.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// Node returns the node at id, or nil if id is out of range.
func (s *Set) Node(id int) *Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id < 0 || id >= len(s.nodes) {
		return nil
	}
	return s.nodes[id]
}

// Nodes returns a snapshot slice of all nodes in id order.
func (s *Set) Nodes() []*Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Node, len(s.nodes))
	copy(out, s.nodes)
	return out
}

// SetWeight sets the weight of node id. Weight is clamped to 0..1000 per
// the admin command surface's `weight <node> <value>` contract (§6).
func (s *Set) SetWeight(id int, weight int64) bool {
	n := s.Node(id)
	if n == nil {
		return false
	}
	if weight < 0 {
		weight = 0
	}
	if weight > 1000 {
		weight = 1000
	}
	atomic.StoreInt64(&n.Weight, weight)
	return true
}

// CurrentNode returns the node id the calling OS thread is currently
// running on, clamped into this Set's range. Used by the hotness tracker
// and cxl-optimised / local-first placement strategies as "the thread's
// current node".
func (s *Set) CurrentNode() int {
	n := currentCPUNode()
	count := s.Len()
	if count == 0 {
		return 0
	}
	if n < 0 || n >= count {
		return n % count
	}
	return n
}

// MinMaxUtilisation returns the lowest- and highest-utilised node ids and
// their utilisation, used by the placement engine's rebalance trigger and
// the pressure-aware strategy.
func (s *Set) MinMaxUtilisation() (minID int, minU float64, maxID int, maxU float64) {
	nodes := s.Nodes()
	if len(nodes) == 0 {
		return -1, 0, -1, 0
	}
	minU = nodes[0].Utilisation()
	maxU = minU
	minID, maxID = nodes[0].ID, nodes[0].ID
	for _, n := range nodes[1:] {
		u := n.Utilisation()
		if u < minU {
			minU, minID = u, n.ID
		}
		if u > maxU {
			maxU, maxID = u, n.ID
		}
	}
	return minID, minU, maxID, maxU
}
