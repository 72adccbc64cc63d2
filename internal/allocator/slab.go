package allocator

import (
	"encoding/binary"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/nodalcore/numakv/internal/prefix"
	"github.com/nodalcore/numakv/internal/runtime/concurrency"
)

// listKind identifies which of a slabClass's three lists currently holds a
// Slab, matching §3's invariant that a slab is in exactly one list.
type listKind int32

const (
	listPartial listKind = iota
	listFull
	listEmpty
)

// Slab is a page-aligned region serving one size class's objects via a
// 128-bit occupancy bitmap, per §3 "Slab". buf is the over-allocated Go
// backing array; base is the slabSize-aligned usable address within it.
// Keeping buf referenced from the struct is what keeps the backing array
// alive and at a fixed address for the lifetime of the slab, standing in
// for the teacher's raw mmap'd region in internal/allocator/pool.go.
type Slab struct {
	class       *slabClass
	node        int
	buf         []byte
	base        uintptr
	payloadBase uintptr
	objSize     uint32
	cellCount   int

	bitmap    [4]uint32
	freeCount int32 // atomic, counts remaining zero bits

	kind       listKind
	prev, next *Slab
}

func alignUp(v, align uintptr) uintptr {
	return (v + align - 1) &^ (align - 1)
}

// newSlab over-allocates 2*slabSize, aligns the usable base to slabSize,
// writes the slab header (magic, class index, original base), and zeroes
// the bitmap, per §4.A step 3.
func newSlab(node int, class *slabClass, classIndex int) *Slab {
	buf := make([]byte, 2*slabSize)
	rawBase := uintptr(unsafe.Pointer(&buf[0]))
	base := alignUp(rawBase, slabSize)

	s := &Slab{
		class:   class,
		node:    node,
		buf:     buf,
		base:    base,
		objSize: class.objSize,
	}
	s.payloadBase = base + slabHeaderSize
	capacity := int((slabSize - slabHeaderSize) / uintptr(class.objSize))
	if capacity > maxCellsPerSlab {
		capacity = maxCellsPerSlab
	}
	s.cellCount = capacity
	s.freeCount = int32(capacity)

	header := unsafe.Slice((*byte)(unsafe.Pointer(base)), slabHeaderSize)
	binary.LittleEndian.PutUint32(header[0:4], slabMagic)
	binary.LittleEndian.PutUint32(header[4:8], uint32(classIndex))
	binary.LittleEndian.PutUint64(header[8:16], uint64(rawBase))

	return s
}

// firstZeroBit returns the index (0..31) of the lowest zero bit in word,
// or -1 if word is all ones.
func firstZeroBit(word uint32) int {
	inv := ^word
	if inv == 0 {
		return -1
	}
	bit := 0
	for inv&1 == 0 {
		inv >>= 1
		bit++
	}
	return bit
}

// claim performs the lock-free find-and-CAS-set described in §4.A step 2:
// scan the bitmap words for a zero bit within cellCount, compare-exchange
// it set, and return the claimed cell's payload pointer.
func (s *Slab) claim() (unsafe.Pointer, bool) {
	for wordIdx := 0; wordIdx < 4; wordIdx++ {
		for {
			word := atomic.LoadUint32(&s.bitmap[wordIdx])
			bit := firstZeroBit(word)
			if bit < 0 {
				break
			}
			globalBit := wordIdx*32 + bit
			if globalBit >= s.cellCount {
				break
			}
			newWord := word | (uint32(1) << uint(bit))
			if concurrency.CASUint32(&s.bitmap[wordIdx], word, newWord) {
				atomic.AddInt32(&s.freeCount, -1)
				cellAddr := s.payloadBase + uintptr(globalBit)*uintptr(s.objSize)
				return unsafe.Pointer(cellAddr), true
			}
			// Lost the race on this word; retry it before moving on.
		}
	}
	return nil, false
}

// releaseBit clears the bitmap bit for ptr and returns the new free count.
func (s *Slab) releaseBit(ptr unsafe.Pointer) int32 {
	offset := uintptr(ptr) - s.payloadBase
	bit := int(offset / uintptr(s.objSize))
	wordIdx, bitInWord := bit/32, bit%32
	for {
		word := atomic.LoadUint32(&s.bitmap[wordIdx])
		newWord := word &^ (uint32(1) << uint(bitInWord))
		if concurrency.CASUint32(&s.bitmap[wordIdx], word, newWord) {
			return atomic.AddInt32(&s.freeCount, 1)
		}
	}
}

// slabClass owns one size class's three per-node-free doubly-linked slab
// lists (§3: "slab lives in one of three per-class lists").
type slabClass struct {
	mu      sync.Mutex
	objSize uint32
	index   int

	partial slabList
	full    slabList
	empty   slabList
}

// registryKey locates the owning Slab for a user pointer: the slab-aligned
// base address. The allocator keeps a side table from this key to *Slab so
// the free path never has to trust a raw pointer recovered from the
// header as a live Go pointer (storing a real *Slab inside the raw byte
// region would hide it from the garbage collector).
func registryKey(userPtr unsafe.Pointer) uintptr {
	return uintptr(userPtr) &^ (slabSize - 1)
}

// validateSlabHeader checks the magic at base and returns the encoded
// class index, or ok=false on a mismatch (treated as corruption, §4.A
// "Failure semantics": handled as a silent no-op, never a crash).
func validateSlabHeader(base uintptr) (classIndex int, ok bool) {
	header := unsafe.Slice((*byte)(unsafe.Pointer(base)), slabHeaderSize)
	magic := binary.LittleEndian.Uint32(header[0:4])
	if magic != slabMagic {
		return 0, false
	}
	return int(binary.LittleEndian.Uint32(header[4:8])), true
}

// alloc services one slab-path request for class, on node, registering the
// claimed cell's prefix in the side registry so free can find it back.
//
// The bitmap claim itself (Slab.claim) is lock-free CAS per §4.A step 2;
// the surrounding partial/full/empty list bookkeeping is kept under the
// class lock for the whole of one allocation rather than released and
// re-acquired mid-scan, trading the spec's fully lock-free list walk for
// a simpler, clearly-correct Go realization.
func (a *Allocator) slabAlloc(node int, classIndex int, size uint32) unsafe.Pointer {
	class := a.slabClasses[node][classIndex]

	class.mu.Lock()
	for s := class.partial.head; s != nil; s = s.next {
		ptr, ok := s.claim()
		if !ok {
			continue
		}
		if atomic.LoadInt32(&s.freeCount) == 0 {
			class.partial.remove(s)
			s.kind = listFull
			class.full.pushFront(s)
		}
		class.mu.Unlock()
		a.registry.Store(registryKey(ptr), s)
		return a.finishAlloc(ptr, size, node)
	}

	// No partial slab yielded a slot: take from the empty cache or build a
	// new slab, per §4.A step 3.
	var s *Slab
	if e := class.empty.popFront(); e != nil {
		s = e
	} else {
		s = newSlab(node, class, classIndex)
	}
	s.kind = listPartial
	class.partial.pushFront(s)
	ptr, ok := s.claim()
	class.mu.Unlock()

	if !ok {
		// A freshly built/emptied slab must always yield at least one slot.
		return nil
	}
	a.registry.Store(registryKey(ptr), s)
	return a.finishAlloc(ptr, size, node)
}

// slabFree dispatches a slab-origin pointer back to its slab, per §4.A
// "Slab free algorithm".
func (a *Allocator) slabFree(userPtr unsafe.Pointer) {
	key := registryKey(userPtr)
	v, ok := a.registry.Load(key)
	if !ok {
		return
	}
	s := v.(*Slab)
	if _, valid := validateSlabHeader(s.base); !valid {
		return
	}

	cellPtr := unsafe.Pointer(uintptr(userPtr) - uintptr(prefix.Size))
	newFree := s.releaseBit(cellPtr)
	class := s.class

	class.mu.Lock()
	defer class.mu.Unlock()

	// A concurrent slabAlloc may have claimed a cell from this slab between
	// releaseBit and acquiring class.mu; re-read the count under the lock
	// before trusting it to decide a list transition.
	newFree = atomic.LoadInt32(&s.freeCount)

	switch {
	case newFree == 1 && s.kind == listFull:
		class.full.remove(s)
		s.kind = listPartial
		class.partial.pushFront(s)
	case int(newFree) == s.cellCount:
		if s.kind == listPartial {
			class.partial.remove(s)
		} else if s.kind == listFull {
			class.full.remove(s)
		}
		if class.empty.count < emptySlabCacheBound {
			s.kind = listEmpty
			class.empty.pushFront(s)
		} else {
			a.registry.Delete(key)
			// Dropping the last reference to s.buf returns the 2*slabSize
			// region to the OS via the garbage collector.
		}
	}
}

// finishAlloc writes the prefix header (origin slab) for a newly claimed
// slab cell and returns the user payload pointer.
func (a *Allocator) finishAlloc(cellPtr unsafe.Pointer, size uint32, node int) unsafe.Pointer {
	userPtr := unsafe.Pointer(uintptr(cellPtr) + uintptr(prefix.Size))
	p := prefix.AtUserPointer(userPtr)
	prefix.Init(p, size, prefix.OriginSlab, int16(node))
	return userPtr
}
