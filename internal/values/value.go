// Package values models the five host-store value kinds the migration
// engine knows how to relocate (spec §4.D): string, hash, list, set, and
// sorted set. Every kind except list (always quicklist-encoded) has the
// two in-memory encodings a real key-value store keeps picking between for
// memory efficiency at small cardinalities versus lookup speed at large
// ones. Grounded on original_source's
// numa_key_migrate.c, which migrates exactly these Redis object kinds
// (robj wrapping sds/dict/quicklist/intset/skiplist), reimplemented here
// as plain Go structs standing in for the opaque host value object.
package values

// Kind identifies which of the five value shapes a Value holds.
type Kind int

const (
	KindString Kind = iota
	KindHash
	KindList
	KindSet
	KindSortedSet
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindHash:
		return "hash"
	case KindList:
		return "list"
	case KindSet:
		return "set"
	case KindSortedSet:
		return "sortedset"
	default:
		return "unknown"
	}
}

// Value is implemented by every migratable value shape.
type Value interface {
	Kind() Kind
}

// StringEncoding distinguishes an integer-packed string (no backing bytes
// to migrate) from a raw byte string.
type StringEncoding int

const (
	StringIntPacked StringEncoding = iota
	StringRaw
)

// String is the string value kind (§4.D step 1).
type String struct {
	Encoding StringEncoding
	IntVal   int64
	Raw      []byte
}

func (*String) Kind() Kind { return KindString }

// HashEncoding distinguishes a single packed-list blob from a real hash
// table keyed by field name.
type HashEncoding int

const (
	HashPackedList HashEncoding = iota
	HashTable
)

// Hash is the hash value kind (§4.D step 2).
type Hash struct {
	Encoding HashEncoding
	Packed   []byte
	Table    map[string][]byte
}

func (*Hash) Kind() Kind { return KindHash }

// QuicklistNode is one node of a List's ordered node sequence, holding
// either raw or LZF-style compressed inline data (§4.D step 3: "handling
// both raw and the compressed variant by copying the exact serialized
// size").
type QuicklistNode struct {
	Raw            []byte
	Compressed     bool
	SerializedSize int
}

// List is the list value kind, always quicklist-encoded per §4.D step 3.
type List struct {
	Nodes []*QuicklistNode
}

func (*List) Kind() Kind { return KindList }

// SetEncoding distinguishes a compact sorted-integer blob from a real hash
// table of members.
type SetEncoding int

const (
	SetIntSet SetEncoding = iota
	SetHashTable
)

// Set is the set value kind (§4.D step 4).
type Set struct {
	Encoding SetEncoding
	IntBlob  []byte
	Table    map[string]struct{}
}

func (*Set) Kind() Kind { return KindSet }

// SortedSetEncoding distinguishes a single packed-list blob from a real
// skiplist-plus-dict pair.
type SortedSetEncoding int

const (
	SortedSetPackedList SortedSetEncoding = iota
	SortedSetSkiplist
)

// SortedSet is the sorted-set value kind (§4.D step 5).
type SortedSet struct {
	Encoding SortedSetEncoding
	Packed   []byte
	Skiplist *Skiplist
	Dict     map[string]float64
}

func (*SortedSet) Kind() Kind { return KindSortedSet }
