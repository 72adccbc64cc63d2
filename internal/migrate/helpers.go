package migrate

import "unsafe"

// copyBytesOnNode allocates a scratch region on node via the engine's
// allocator, bytewise-copies data into it, and returns an independent Go
// copy of those bytes. This is the literal realization of §4.D's
// "allocate on target node; bytewise-copy; publish": the host value
// itself is modeled as an ordinary garbage-collected Go struct (§1 scopes
// the store's storage engine out of this module), so the scratch
// allocation both proves the target-node round trip and gives the
// allocator something real to do during a migration, and is freed the
// instant its bytes are copied out.
func (e *Engine) copyBytesOnNode(data []byte, node int) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	ptr, err := e.alloc.AllocOnNode(uint32(len(data)), node)
	if err != nil {
		return nil, err
	}
	defer e.alloc.Free(ptr)

	scratch := unsafe.Slice((*byte)(ptr), len(data))
	copy(scratch, data)

	out := make([]byte, len(data))
	copy(out, scratch)
	return out, nil
}
