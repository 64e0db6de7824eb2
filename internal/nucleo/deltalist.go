package nucleo

// DeltaList is a singly-linked list of sleeping processes, ordered by
// wakeup time. Each node's deltaKey holds only the delay relative to its
// predecessor (for the head, relative to now, i.e. its own absolute
// remaining delay), so the absolute remaining delay for any node is the sum of
// deltaKey from the head up to and including that node. It shares each
// PCB's next field with Queue — a process is never on both at once — but
// keeps its own head pointer and never touches prev.
type DeltaList struct {
	head *PCB
	size int
}

func (d *DeltaList) Empty() bool { return d.size == 0 }
func (d *DeltaList) Len() int    { return d.size }

// Insert places p so it wakes after delay ticks from now. It walks the list
// node by node, subtracting each visited node's own key from delay, and
// splices p in front of the first node whose key exceeds what's left; that
// node's key is then reduced by p's key, keeping every key relative to its
// predecessor.
func (d *DeltaList) Insert(p *PCB, delay int) {
	p.next = nil

	if d.head == nil {
		p.deltaKey = delay
		d.head = p
		d.size++
		return
	}

	var prev *PCB
	cur := d.head
	for cur != nil {
		if delay < cur.deltaKey {
			p.deltaKey = delay
			if prev != nil {
				prev.next = p
			} else {
				d.head = p
			}
			p.next = cur
			cur.deltaKey -= delay
			d.size++
			return
		}
		delay -= cur.deltaKey
		prev = cur
		cur = cur.next
	}

	p.deltaKey = delay
	prev.next = p
	d.size++
}

// Poll pops the head if its key has reached zero (a tick has already
// walked it down to due), folding its key into the new head's so the new
// head's key remains relative-to-now. Guards against the historical bug
// of dereferencing a nil next when the list holds exactly one node.
func (d *DeltaList) Poll() *PCB {
	if d.head == nil || d.head.deltaKey > 0 {
		return nil
	}
	p := d.head
	d.head = p.next
	if d.head != nil {
		d.head.deltaKey += p.deltaKey
	}
	p.next = nil
	d.size--
	return p
}

// Tick decrements the head's key by one and pops every node that becomes
// due, in order.
func (d *DeltaList) Tick() []*PCB {
	if d.head == nil {
		return nil
	}
	d.head.deltaKey--
	var woken []*PCB
	for p := d.Poll(); p != nil; p = d.Poll() {
		woken = append(woken, p)
	}
	return woken
}

// Remove pulls p out of the list wherever it sits, folding its key back
// into its successor's, and returns the absolute number of ticks that
// remained until it would have fired.
func (d *DeltaList) Remove(p *PCB) int {
	if d.head == nil {
		return 0
	}
	acc := 0
	if d.head == p {
		acc = p.deltaKey
		d.head = p.next
		if d.head != nil {
			d.head.deltaKey += p.deltaKey
		}
		p.next = nil
		d.size--
		return acc
	}
	prev := d.head
	acc = prev.deltaKey
	for prev.next != nil && prev.next != p {
		prev = prev.next
		acc += prev.deltaKey
	}
	if prev.next != p {
		return 0 // not found
	}
	acc += p.deltaKey
	prev.next = p.next
	if p.next != nil {
		p.next.deltaKey += p.deltaKey
	}
	p.next = nil
	d.size--
	return acc
}
