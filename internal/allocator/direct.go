package allocator

import (
	"sync"
	"unsafe"

	"github.com/nodalcore/numakv/internal/prefix"
)

// directAllocation tracks one direct/OS-path allocation so Free can locate
// and release it, standing in for the teacher's tracked-map system
// allocator in internal/allocator/allocator.go's SystemAllocatorImpl.
type directAllocation struct {
	buf []byte
}

type directRegistry struct {
	mu    sync.Mutex
	byPtr map[uintptr]*directAllocation
}

func newDirectRegistry() *directRegistry {
	return &directRegistry{byPtr: make(map[uintptr]*directAllocation)}
}

// directAlloc serves size ≤ poolMaxSize bypasses, oversized requests, and
// every alloc_on_node call, per §4.A "otherwise direct per-node OS
// allocation with prefix".
func (a *Allocator) directAlloc(node int, size uint32) unsafe.Pointer {
	total := int(size) + prefix.Size
	// Over-allocate 16 bytes of alignment slack so the user pointer, which
	// sits prefix.Size past the first 16-byte-aligned offset, lands
	// 16-byte aligned regardless of the slice's own base alignment.
	buf := make([]byte, total+16)
	rawBase := uintptr(unsafe.Pointer(&buf[0]))
	base := alignUp(rawBase, 16)

	userPtr := unsafe.Pointer(base + uintptr(prefix.Size))
	p := prefix.AtUserPointer(userPtr)
	prefix.Init(p, size, prefix.OriginDirect, int16(node))

	a.direct.mu.Lock()
	a.direct.byPtr[uintptr(userPtr)] = &directAllocation{buf: buf}
	a.direct.mu.Unlock()

	return userPtr
}

// directFree releases a direct-origin allocation.
func (a *Allocator) directFree(userPtr unsafe.Pointer) {
	a.direct.mu.Lock()
	defer a.direct.mu.Unlock()
	delete(a.direct.byPtr, uintptr(userPtr))
}
