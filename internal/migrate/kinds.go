package migrate

import (
	"fmt"

	nkerrors "github.com/nodalcore/numakv/internal/errors"
	"github.com/nodalcore/numakv/internal/values"
)

// migrateKind dispatches to the per-kind copy-and-swap algorithm, per
// §4.D. It returns the newly built value, the number of payload bytes
// copied (for statistics), and an error that is always either nil or an
// out-of-memory/unsupported-kind *errors.Error.
func (e *Engine) migrateKind(val values.Value, targetNode int) (values.Value, int, error) {
	switch v := val.(type) {
	case *values.String:
		return e.migrateString(v, targetNode)
	case *values.Hash:
		return e.migrateHash(v, targetNode)
	case *values.List:
		return e.migrateList(v, targetNode)
	case *values.Set:
		return e.migrateSet(v, targetNode)
	case *values.SortedSet:
		return e.migrateSortedSet(v, targetNode)
	default:
		return nil, 0, nkerrors.UnsupportedKind(fmt.Sprintf("%T", val))
	}
}

// migrateString implements §4.D step 1: integer-packed strings need no
// bytes moved; raw strings are bytewise-copied including any encoded
// header.
func (e *Engine) migrateString(v *values.String, targetNode int) (values.Value, int, error) {
	if v.Encoding == values.StringIntPacked {
		return &values.String{Encoding: values.StringIntPacked, IntVal: v.IntVal}, 0, nil
	}
	raw, err := e.copyBytesOnNode(v.Raw, targetNode)
	if err != nil {
		return nil, 0, err
	}
	return &values.String{Encoding: values.StringRaw, Raw: raw}, len(raw), nil
}

// migrateHash implements §4.D step 2: a packed-list hash is a single-blob
// copy; a hashtable hash is rebuilt entry by entry, unwinding (discarding
// the partial map for the collector) on the first allocation failure.
func (e *Engine) migrateHash(v *values.Hash, targetNode int) (values.Value, int, error) {
	if v.Encoding == values.HashPackedList {
		packed, err := e.copyBytesOnNode(v.Packed, targetNode)
		if err != nil {
			return nil, 0, err
		}
		return &values.Hash{Encoding: values.HashPackedList, Packed: packed}, len(packed), nil
	}

	table := make(map[string][]byte, len(v.Table))
	total := 0
	for field, fieldVal := range v.Table {
		newField, err := e.copyBytesOnNode([]byte(field), targetNode)
		if err != nil {
			return nil, 0, err // partial `table` is dropped for GC; source untouched.
		}
		newVal, err := e.copyBytesOnNode(fieldVal, targetNode)
		if err != nil {
			return nil, 0, err
		}
		table[string(newField)] = newVal
		total += len(newField) + len(newVal)
	}
	return &values.Hash{Encoding: values.HashTable, Table: table}, total, nil
}

// migrateList implements §4.D step 3: allocate a twin quicklist node for
// every source node, preserving the raw/compressed distinction and exact
// serialized size, then link the twins in order.
func (e *Engine) migrateList(v *values.List, targetNode int) (values.Value, int, error) {
	nodes := make([]*values.QuicklistNode, 0, len(v.Nodes))
	total := 0
	for _, n := range v.Nodes {
		raw, err := e.copyBytesOnNode(n.Raw, targetNode)
		if err != nil {
			return nil, 0, err
		}
		nodes = append(nodes, &values.QuicklistNode{
			Raw:            raw,
			Compressed:     n.Compressed,
			SerializedSize: n.SerializedSize,
		})
		total += len(raw)
	}
	return &values.List{Nodes: nodes}, total, nil
}

// migrateSet implements §4.D step 4: an intset is a single-blob copy; a
// hashtable set is rebuilt member by member with null values.
func (e *Engine) migrateSet(v *values.Set, targetNode int) (values.Value, int, error) {
	if v.Encoding == values.SetIntSet {
		blob, err := e.copyBytesOnNode(v.IntBlob, targetNode)
		if err != nil {
			return nil, 0, err
		}
		return &values.Set{Encoding: values.SetIntSet, IntBlob: blob}, len(blob), nil
	}

	table := make(map[string]struct{}, len(v.Table))
	total := 0
	for member := range v.Table {
		newMember, err := e.copyBytesOnNode([]byte(member), targetNode)
		if err != nil {
			return nil, 0, err
		}
		table[string(newMember)] = struct{}{}
		total += len(newMember)
	}
	return &values.Set{Encoding: values.SetHashTable, Table: table}, total, nil
}

// migrateSortedSet implements §4.D step 5: a packed-list zset is a
// single-blob copy; a skiplist zset is rebuilt by iterating the source
// tail to head, inserting into a fresh skiplist and mirroring every
// member's score into a parallel dict.
func (e *Engine) migrateSortedSet(v *values.SortedSet, targetNode int) (values.Value, int, error) {
	if v.Encoding == values.SortedSetPackedList {
		packed, err := e.copyBytesOnNode(v.Packed, targetNode)
		if err != nil {
			return nil, 0, err
		}
		return &values.SortedSet{Encoding: values.SortedSetPackedList, Packed: packed}, len(packed), nil
	}

	newSkiplist := values.NewSkiplist()
	newDict := make(map[string]float64, v.Skiplist.Len())
	total := 0
	v.Skiplist.DescendEach(func(member string, score float64) {
		newSkiplist.Insert(member, score)
		newDict[member] = score
		total += len(member)
	})
	return &values.SortedSet{Encoding: values.SortedSetSkiplist, Skiplist: newSkiplist, Dict: newDict}, total, nil
}
