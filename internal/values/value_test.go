package values

import "testing"

func TestKindAccessors(t *testing.T) {
	cases := []struct {
		v    Value
		want Kind
	}{
		{&String{Encoding: StringRaw, Raw: []byte("x")}, KindString},
		{&Hash{Encoding: HashTable, Table: map[string][]byte{}}, KindHash},
		{&List{}, KindList},
		{&Set{Encoding: SetIntSet}, KindSet},
		{&SortedSet{Encoding: SortedSetSkiplist}, KindSortedSet},
	}
	for _, c := range cases {
		if c.v.Kind() != c.want {
			t.Errorf("expected kind %v, got %v", c.want, c.v.Kind())
		}
	}
}

func TestSkiplistOrdersByScoreThenMember(t *testing.T) {
	sl := NewSkiplist()
	sl.Insert("b", 2)
	sl.Insert("a", 1)
	sl.Insert("c", 2)
	sl.Insert("d", 0)

	var order []string
	sl.DescendEach(func(member string, score float64) {
		order = append(order, member)
	})

	want := []string{"c", "b", "a", "d"}
	if len(order) != len(want) {
		t.Fatalf("expected %d members, got %d", len(want), len(order))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], order[i])
		}
	}
}

func TestSkiplistLen(t *testing.T) {
	sl := NewSkiplist()
	for i := 0; i < 50; i++ {
		sl.Insert(string(rune('a'+i%26)), float64(i))
	}
	if sl.Len() != 50 {
		t.Errorf("expected length 50, got %d", sl.Len())
	}
}
