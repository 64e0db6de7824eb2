package nucleo

// Queue is an intrusive doubly-linked FIFO over *PCB, using each PCB's own
// prev/next fields as link nodes rather than a separate node allocation —
// the same trick the original's queue.c plays with pcb_t, and the one
// spec.md's design notes call out as translating directly since Go has
// real pointers. A PCB can be linked into at most one Queue (or the sleep
// DeltaList, which reuses the next field alone) at a time.
type Queue struct {
	head, tail *PCB
	size       int
}

func (q *Queue) Len() int { return q.size }

func (q *Queue) Empty() bool { return q.size == 0 }

// PushBack enqueues p at the tail. p must not already be linked anywhere.
func (q *Queue) PushBack(p *PCB) {
	p.prev, p.next = nil, nil
	if q.tail == nil {
		q.head, q.tail = p, p
	} else {
		p.prev = q.tail
		q.tail.next = p
		q.tail = p
	}
	q.size++
	p.blockedQueue = q
}

// PopFront dequeues and returns the head, or nil if empty.
func (q *Queue) PopFront() *PCB {
	p := q.head
	if p == nil {
		return nil
	}
	q.head = p.next
	if q.head != nil {
		q.head.prev = nil
	} else {
		q.tail = nil
	}
	p.prev, p.next = nil, nil
	p.blockedQueue = nil
	q.size--
	return p
}

// PeekTail returns the tail without removing it, e.g. to see the process
// most recently placed on a ready queue.
func (q *Queue) PeekTail() *PCB { return q.tail }

// Remove unlinks p from q in O(1), used when a specific blocked process
// (not necessarily the head) must be pulled off — e.g. a signal or kill
// waking a process out of the middle of the receive-any queue.
func (q *Queue) Remove(p *PCB) bool {
	if p.blockedQueue != q {
		return false
	}
	if p.prev != nil {
		p.prev.next = p.next
	} else {
		q.head = p.next
	}
	if p.next != nil {
		p.next.prev = p.prev
	} else {
		q.tail = p.prev
	}
	p.prev, p.next = nil, nil
	p.blockedQueue = nil
	q.size--
	return true
}
