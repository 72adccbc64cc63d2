package allocator

import (
	"sync"
	"sync/atomic"
	"unsafe"

	nkerrors "github.com/nodalcore/numakv/internal/errors"
	"github.com/nodalcore/numakv/internal/prefix"
)

// Config holds allocator construction parameters, built up via Option,
// matching the teacher's functional-options pattern in
// internal/allocator/allocator.go's AllocatorConfig/Option.
type Config struct {
	nodeCount int
}

// Option configures an Allocator at construction time.
type Option func(*Config)

// WithNodeCount sets how many nodes the allocator serves. Defaults to 1.
func WithNodeCount(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.nodeCount = n
		}
	}
}

// Allocator is the node-aware allocator described in §4.A: a slab path
// for size ≤ slabMaxSize, a pool path up to poolMaxSize, and a direct
// OS-backed path beyond that or for AllocOnNode.
type Allocator struct {
	nodeCount int

	slabClasses [][]*slabClass // [node][slab class index]
	poolClasses [][]*poolClass // [node][pool class index]
	registry    sync.Map       // slab-aligned base -> *Slab
	direct      *directRegistry

	stats Stats
}

// New builds an Allocator with the given options.
func New(opts ...Option) *Allocator {
	cfg := Config{nodeCount: 1}
	for _, opt := range opts {
		opt(&cfg)
	}

	a := &Allocator{
		nodeCount: cfg.nodeCount,
		direct:    newDirectRegistry(),
	}
	a.slabClasses = make([][]*slabClass, cfg.nodeCount)
	a.poolClasses = make([][]*poolClass, cfg.nodeCount)
	for node := 0; node < cfg.nodeCount; node++ {
		a.slabClasses[node] = make([]*slabClass, slabClassCount)
		for i := 0; i < slabClassCount; i++ {
			a.slabClasses[node][i] = &slabClass{objSize: SizeClasses[i], index: i}
		}
		poolCount := len(SizeClasses) - slabClassCount
		a.poolClasses[node] = make([]*poolClass, poolCount)
		for i := 0; i < poolCount; i++ {
			a.poolClasses[node][i] = &poolClass{objSize: SizeClasses[slabClassCount+i], index: slabClassCount + i}
		}
	}
	return a
}

func (a *Allocator) clampNode(node int) int {
	if node < 0 || node >= a.nodeCount {
		return 0
	}
	return node
}

// Alloc implements §4.A's public `alloc(size, node)`. Path selection is
// made on size+prefix.Size (the actual bytes a cell must hold), which is
// the only boundary consistent with the 16-byte header always riding
// alongside the payload — resolving the spec's otherwise-ambiguous
// boundary case where a request near the slab ceiling would not fit once
// the header is counted.
func (a *Allocator) Alloc(size uint32, node int) (unsafe.Pointer, error) {
	node = a.clampNode(node)
	total := size + uint32(prefix.Size)

	var ptr unsafe.Pointer
	switch {
	case total <= slabMaxSize:
		classIndex := classIndexFor(total)
		if classIndex >= 0 && classIndex < slabClassCount {
			ptr = a.slabAlloc(node, classIndex, size)
		}
	case total <= poolMaxSize:
		classIndex := classIndexFor(total)
		if classIndex >= slabClassCount {
			ptr = a.poolAlloc(node, classIndex, size)
		}
	}

	if ptr == nil {
		ptr = a.directAlloc(node, size)
	}
	if ptr == nil {
		atomic.AddInt64(&a.stats.Failures, 1)
		return nil, nkerrors.OutOfMemory("allocator: no path satisfied request", map[string]interface{}{
			"size": size, "node": node,
		})
	}

	atomic.AddInt64(&a.stats.Allocations, 1)
	atomic.AddInt64(&a.stats.BytesOutstanding, int64(size))
	return ptr, nil
}

// AllocOnNode forces the direct per-node OS allocation path, bypassing
// slab/pool, per §4.A.
func (a *Allocator) AllocOnNode(size uint32, node int) (unsafe.Pointer, error) {
	node = a.clampNode(node)
	ptr := a.directAlloc(node, size)
	if ptr == nil {
		atomic.AddInt64(&a.stats.Failures, 1)
		return nil, nkerrors.OutOfMemory("allocator: direct path exhausted", map[string]interface{}{
			"size": size, "node": node,
		})
	}
	atomic.AddInt64(&a.stats.Allocations, 1)
	atomic.AddInt64(&a.stats.BytesOutstanding, int64(size))
	return ptr, nil
}

// Calloc is Alloc with zero-fill.
func (a *Allocator) Calloc(size uint32, node int) (unsafe.Pointer, error) {
	ptr, err := a.Alloc(size, node)
	if err != nil {
		return nil, err
	}
	zero := unsafe.Slice((*byte)(ptr), size)
	for i := range zero {
		zero[i] = 0
	}
	return ptr, nil
}

// Free reads the prefix and dispatches by origin, per §4.A.
func (a *Allocator) Free(userPtr unsafe.Pointer) {
	if userPtr == nil {
		return
	}
	p := prefix.AtUserPointer(userPtr)
	size := p.SizeBytes()

	switch p.Origin() {
	case prefix.OriginSlab:
		a.slabFree(userPtr)
	case prefix.OriginPool:
		a.poolFree(userPtr)
	default:
		a.directFree(userPtr)
	}

	atomic.AddInt64(&a.stats.Frees, 1)
	atomic.AddInt64(&a.stats.BytesOutstanding, -int64(size))
}

// Realloc allocates a new region on the same node, copies
// min(old_size,new_size) bytes, and frees the old region, per §4.A.
func (a *Allocator) Realloc(userPtr unsafe.Pointer, newSize uint32) (unsafe.Pointer, error) {
	if userPtr == nil {
		return a.Alloc(newSize, 0)
	}
	p := prefix.AtUserPointer(userPtr)
	oldSize := p.SizeBytes()
	node := int(p.Node())

	newPtr, err := a.Alloc(newSize, node)
	if err != nil {
		return nil, err
	}

	n := oldSize
	if newSize < n {
		n = newSize
	}
	if n > 0 {
		src := unsafe.Slice((*byte)(userPtr), n)
		dst := unsafe.Slice((*byte)(newPtr), n)
		copy(dst, src)
	}

	a.Free(userPtr)
	return newPtr, nil
}

// Stats aggregates allocator-wide counters, exposed through the admin
// `config stats` command.
type Stats struct {
	Allocations      int64
	Frees            int64
	Failures         int64
	BytesOutstanding int64
}

// Snapshot returns a copy of the allocator's running statistics.
func (a *Allocator) Snapshot() Stats {
	return Stats{
		Allocations:      atomic.LoadInt64(&a.stats.Allocations),
		Frees:            atomic.LoadInt64(&a.stats.Frees),
		Failures:         atomic.LoadInt64(&a.stats.Failures),
		BytesOutstanding: atomic.LoadInt64(&a.stats.BytesOutstanding),
	}
}

// NodeCount returns how many nodes this allocator serves.
func (a *Allocator) NodeCount() int { return a.nodeCount }
