package allocator

import (
	"testing"
	"unsafe"

	nkerrors "github.com/nodalcore/numakv/internal/errors"
	"github.com/nodalcore/numakv/internal/prefix"
)

func TestAllocDispatchesByPath(t *testing.T) {
	a := New(WithNodeCount(2))

	t.Run("Slab", func(t *testing.T) {
		ptr, err := a.Alloc(32, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if prefix.AtUserPointer(ptr).Origin() != prefix.OriginSlab {
			t.Errorf("expected slab origin for small size")
		}
	})

	t.Run("Pool", func(t *testing.T) {
		ptr, err := a.Alloc(2000, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if prefix.AtUserPointer(ptr).Origin() != prefix.OriginPool {
			t.Errorf("expected pool origin for mid size")
		}
	})

	t.Run("Direct", func(t *testing.T) {
		ptr, err := a.Alloc(1<<20, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if prefix.AtUserPointer(ptr).Origin() != prefix.OriginDirect {
			t.Errorf("expected direct origin for large size")
		}
	})
}

func TestAllocWritableAndSized(t *testing.T) {
	a := New(WithNodeCount(1))
	ptr, err := a.Alloc(64, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	buf := unsafe.Slice((*byte)(ptr), 64)
	for i := range buf {
		buf[i] = byte(i)
	}
	for i := range buf {
		if buf[i] != byte(i) {
			t.Fatalf("payload corrupted at byte %d", i)
		}
	}

	p := prefix.AtUserPointer(ptr)
	if p.SizeBytes() != 64 {
		t.Errorf("expected prefix size 64, got %d", p.SizeBytes())
	}
}

func TestFreeAndReuseSlab(t *testing.T) {
	a := New(WithNodeCount(1))

	var ptrs []unsafe.Pointer
	for i := 0; i < 200; i++ {
		ptr, err := a.Alloc(16, 0)
		if err != nil {
			t.Fatalf("alloc %d failed: %v", i, err)
		}
		ptrs = append(ptrs, ptr)
	}
	for _, ptr := range ptrs {
		a.Free(ptr)
	}

	stats := a.Snapshot()
	if stats.Allocations != 200 || stats.Frees != 200 {
		t.Errorf("expected 200/200 alloc/free, got %d/%d", stats.Allocations, stats.Frees)
	}
	if stats.BytesOutstanding != 0 {
		t.Errorf("expected 0 bytes outstanding, got %d", stats.BytesOutstanding)
	}

	// The freed slab cells must be reusable.
	ptr, err := a.Alloc(16, 0)
	if err != nil {
		t.Fatalf("reuse alloc failed: %v", err)
	}
	if ptr == nil {
		t.Fatal("expected non-nil reuse allocation")
	}
}

func TestReallocCopiesAndFrees(t *testing.T) {
	a := New(WithNodeCount(1))
	ptr, err := a.Alloc(32, 0)
	if err != nil {
		t.Fatalf("alloc failed: %v", err)
	}
	src := unsafe.Slice((*byte)(ptr), 32)
	for i := range src {
		src[i] = byte(i + 1)
	}

	newPtr, err := a.Realloc(ptr, 64)
	if err != nil {
		t.Fatalf("realloc failed: %v", err)
	}
	dst := unsafe.Slice((*byte)(newPtr), 32)
	for i := range dst {
		if dst[i] != byte(i+1) {
			t.Fatalf("realloc lost byte %d: got %d", i, dst[i])
		}
	}
	if prefix.AtUserPointer(newPtr).SizeBytes() != 64 {
		t.Errorf("expected new size 64")
	}
}

func TestAllocOnNodeForcesDirect(t *testing.T) {
	a := New(WithNodeCount(2))
	ptr, err := a.AllocOnNode(8, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p := prefix.AtUserPointer(ptr)
	if p.Origin() != prefix.OriginDirect {
		t.Errorf("expected forced direct origin")
	}
	if p.Node() != 1 {
		t.Errorf("expected node 1, got %d", p.Node())
	}
}

func TestCallocZeroFills(t *testing.T) {
	a := New(WithNodeCount(1))
	ptr, err := a.Calloc(48, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	buf := unsafe.Slice((*byte)(ptr), 48)
	for _, b := range buf {
		if b != 0 {
			t.Fatal("expected zero-filled calloc buffer")
		}
	}
}

func TestNodeClamping(t *testing.T) {
	a := New(WithNodeCount(2))
	ptr, err := a.Alloc(16, 99)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if prefix.AtUserPointer(ptr).Node() != 0 {
		t.Errorf("expected out-of-range node clamped to 0")
	}
}

func TestCompactReportsNonNegativeCounts(t *testing.T) {
	a := New(WithNodeCount(1))

	// Eight 1000-byte blocks take half of one 16 KiB chunk; free them all
	// onto the free-list, then compact and check the report's counts.
	var ptrs []unsafe.Pointer
	for i := 0; i < 8; i++ {
		ptr, err := a.Alloc(1000, 0)
		if err != nil {
			t.Fatalf("alloc failed: %v", err)
		}
		ptrs = append(ptrs, ptr)
	}
	for _, ptr := range ptrs {
		a.Free(ptr)
	}

	report := a.Compact()
	if report.FreeListEntriesDiscarded < 0 || report.ChunksReleased < 0 {
		t.Fatalf("unexpected negative compaction counts: %+v", report)
	}
}

func TestOutOfMemoryErrorCode(t *testing.T) {
	// A zero-node allocator still clamps to node 0; this test just checks
	// the error taxonomy wiring rather than forcing an actual OOM, since
	// this allocator has no hard capacity ceiling to exhaust in-process.
	a := New(WithNodeCount(1))
	_, err := a.Alloc(16, 0)
	if err != nil {
		t.Fatalf("unexpected error on ordinary alloc: %v", err)
	}
	if nkerrors.AsCode(nkerrors.ErrOutOfMemory) != nkerrors.CodeOutOfMemory {
		t.Errorf("expected CodeOutOfMemory sentinel to round-trip")
	}
}
