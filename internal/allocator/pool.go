package allocator

import (
	"sync"
	"unsafe"

	"github.com/nodalcore/numakv/internal/prefix"
)

// freeBlock is one released-block record on a pool class's free-list
// (§4.A "Pool free algorithm": "wrap the released block in a free-list
// record (pointer, size)").
type freeBlock struct {
	ptr  unsafe.Pointer
	size uintptr
	next *freeBlock
}

// poolChunk is a bump-pointer region for one (node, class) pair, per §3
// "Pool chunk".
type poolChunk struct {
	buf       []byte
	base      uintptr
	size      uintptr
	offset    uintptr
	usedBytes uintptr
	next      *poolChunk
}

// utilisation returns usedBytes/size for the compaction pass.
func (c *poolChunk) utilisation() float64 {
	if c.size == 0 {
		return 0
	}
	return float64(c.usedBytes) / float64(c.size)
}

// poolClass owns one size class's chunk list and free-list for one node.
type poolClass struct {
	mu       sync.Mutex
	objSize  uint32
	index    int
	chunks   *poolChunk
	freeList *freeBlock
	freeLen  int

	poolHits   int64
	usedBytes  int64
	chunkCount int64
}

func newPoolChunk(capacity int) *poolChunk {
	buf := make([]byte, capacity+16)
	rawBase := uintptr(unsafe.Pointer(&buf[0]))
	base := alignUp(rawBase, 16)
	return &poolChunk{buf: buf, base: base, size: uintptr(capacity)}
}

// poolAlloc services one pool-path request, per §4.A "Pool allocation
// algorithm": free-list head, then bump pointer, then a new chunk.
func (a *Allocator) poolAlloc(node int, classIndex int, size uint32) unsafe.Pointer {
	class := a.poolClasses[node][classIndex-slabClassCount]
	needed := alignUp(uintptr(size)+uintptr(prefix.Size), 16)

	// finish writes the prefix for a pool block, tagged OriginPool so Free
	// routes the pointer back to poolFree.
	finish := func(cell unsafe.Pointer) unsafe.Pointer {
		userPtr := unsafe.Pointer(uintptr(cell) + uintptr(prefix.Size))
		prefix.Init(prefix.AtUserPointer(userPtr), size, prefix.OriginPool, int16(node))
		return userPtr
	}

	class.mu.Lock()
	defer class.mu.Unlock()

	if class.freeList != nil && class.freeList.size >= needed {
		blk := class.freeList
		class.freeList = blk.next
		class.freeLen--
		class.poolHits++
		class.usedBytes += int64(needed)
		return finish(blk.ptr)
	}

	if class.chunks != nil && class.chunks.offset+needed <= class.chunks.size {
		c := class.chunks
		ptr := unsafe.Pointer(c.base + c.offset)
		c.offset += needed
		c.usedBytes += needed
		class.poolHits++
		class.usedBytes += int64(needed)
		return finish(ptr)
	}

	capacity := chunkSizeFor(class.objSize)
	c := newPoolChunk(capacity)
	c.next = class.chunks
	class.chunks = c
	class.chunkCount++

	ptr := unsafe.Pointer(c.base)
	c.offset = needed
	c.usedBytes = needed
	class.poolHits++
	class.usedBytes += int64(needed)
	return finish(ptr)
}

// poolFree pushes the released block onto its class's free-list; the
// backing chunk memory itself is reclaimed only by compaction (§4.A).
func (a *Allocator) poolFree(userPtr unsafe.Pointer) {
	p := prefix.AtUserPointer(userPtr)
	if p == nil {
		return
	}
	size := p.SizeBytes()
	node := int(p.Node())
	if node < 0 {
		node = 0
	}
	classIndex := classIndexFor(size + uint32(prefix.Size))
	if classIndex < slabClassCount || classIndex >= len(SizeClasses) {
		return
	}
	if node >= len(a.poolClasses) {
		return
	}

	class := a.poolClasses[node][classIndex-slabClassCount]
	blockPtr := unsafe.Pointer(uintptr(userPtr) - uintptr(prefix.Size))
	needed := alignUp(uintptr(size)+uintptr(prefix.Size), 16)

	class.mu.Lock()
	class.freeList = &freeBlock{ptr: blockPtr, size: needed, next: class.freeList}
	class.freeLen++
	class.mu.Unlock()
}

// compactClass implements the per-(node,class) half of §4.A "Compaction":
// discard an overlong free-list, then release chunks that are both
// under-utilised and mostly free.
func compactClass(class *poolClass) (freedListEntries, releasedChunks int) {
	class.mu.Lock()
	defer class.mu.Unlock()

	if class.freeLen > freeListLengthThreshold {
		freedListEntries = class.freeLen
		class.freeList = nil
		class.freeLen = 0
	}

	var kept *poolChunk
	for c := class.chunks; c != nil; {
		next := c.next
		freeRatio := 1 - c.utilisation()
		if c.utilisation() < compactUtilisationThreshold && freeRatio >= compactMinFreeRatio {
			releasedChunks++
			class.chunkCount--
		} else {
			c.next = kept
			kept = c
		}
		c = next
	}
	class.chunks = kept
	return
}
