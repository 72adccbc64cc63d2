package allocator

// slabList is a minimal intrusive doubly-linked list of *Slab, used for the
// per-class partial/full/empty lists (§3 "Slab"). Intrusive rather than
// container/list so removal never needs a second lookup: a Slab always
// knows its own prev/next and which list currently holds it.
type slabList struct {
	head, tail *Slab
	count      int
}

func (l *slabList) pushFront(s *Slab) {
	s.prev = nil
	s.next = l.head
	if l.head != nil {
		l.head.prev = s
	}
	l.head = s
	if l.tail == nil {
		l.tail = s
	}
	l.count++
}

func (l *slabList) remove(s *Slab) {
	if s.prev != nil {
		s.prev.next = s.next
	} else if l.head == s {
		l.head = s.next
	}
	if s.next != nil {
		s.next.prev = s.prev
	} else if l.tail == s {
		l.tail = s.prev
	}
	s.prev, s.next = nil, nil
	l.count--
}

func (l *slabList) popFront() *Slab {
	s := l.head
	if s == nil {
		return nil
	}
	l.remove(s)
	return s
}
