package nucleo

import "testing"

func TestDeltaListSingleElementPollGuard(t *testing.T) {
	var d DeltaList
	p := &PCB{pid: 1}
	d.Insert(p, 3)

	// Not due yet: Poll must not dereference a nil successor.
	if got := d.Poll(); got != nil {
		t.Fatalf("Poll() before due = %v, want nil", got)
	}

	d.head.deltaKey = 0
	got := d.Poll()
	if got != p {
		t.Fatalf("Poll() = %v, want the single queued PCB", got)
	}
	if d.head != nil {
		t.Fatalf("list should be empty after popping its only element")
	}
	// Second Poll on the now-empty list must also not panic.
	if got := d.Poll(); got != nil {
		t.Fatalf("Poll() on empty list = %v, want nil", got)
	}
}

func TestDeltaListOrdersByAbsoluteDelay(t *testing.T) {
	var d DeltaList
	late, early, mid := &PCB{pid: 1}, &PCB{pid: 2}, &PCB{pid: 3}

	d.Insert(late, 10)
	d.Insert(early, 2)
	d.Insert(mid, 5)

	var order []*PCB
	for i := 0; i < 30; i++ {
		order = append(order, d.Tick()...)
	}

	if len(order) != 3 {
		t.Fatalf("woke %d processes, want 3", len(order))
	}
	if order[0] != early || order[1] != mid || order[2] != late {
		got := []int32{order[0].pid, order[1].pid, order[2].pid}
		t.Fatalf("wakeup order = %v, want [2 3 1]", got)
	}
}

func TestDeltaListTickWakesEveryDueNode(t *testing.T) {
	var d DeltaList
	a, b := &PCB{pid: 1}, &PCB{pid: 2}
	d.Insert(a, 1)
	d.Insert(b, 1) // ties with a: both due on the very next tick

	woken := d.Tick()
	if len(woken) != 2 {
		t.Fatalf("Tick() woke %d, want 2 simultaneous wakeups", len(woken))
	}
	if !d.Empty() {
		t.Fatalf("list should be empty once every due node is popped")
	}
}

func TestDeltaListInsertKeysAreRelativeToPredecessor(t *testing.T) {
	var d DeltaList
	a, b, c := &PCB{pid: 1}, &PCB{pid: 2}, &PCB{pid: 3}
	d.Insert(a, 2)
	d.Insert(b, 5) // absolute delay 5, key relative to a is 3
	d.Insert(c, 9) // absolute delay 9, key relative to b is 4

	if a.deltaKey != 2 || b.deltaKey != 3 || c.deltaKey != 4 {
		t.Fatalf("deltaKeys = [%d %d %d], want [2 3 4]", a.deltaKey, b.deltaKey, c.deltaKey)
	}

	var woken []*PCB
	var tickOfWake []int
	for tick := 1; tick <= 9; tick++ {
		newlyWoken := d.Tick()
		woken = append(woken, newlyWoken...)
		for range newlyWoken {
			tickOfWake = append(tickOfWake, tick)
		}
	}
	if len(woken) != 3 || woken[0] != a || woken[1] != b || woken[2] != c {
		t.Fatalf("wakeup order = %v, want [a b c]", woken)
	}
	if tickOfWake[0] != 2 || tickOfWake[1] != 5 || tickOfWake[2] != 9 {
		t.Fatalf("wakeup ticks = %v, want [2 5 9]", tickOfWake)
	}
}

func TestDeltaListRemoveMidListFoldsKeyForward(t *testing.T) {
	var d DeltaList
	a, b, c := &PCB{pid: 1}, &PCB{pid: 2}, &PCB{pid: 3}
	d.Insert(a, 2)
	d.Insert(b, 5) // absolute delay 5, key relative to a is 3
	d.Insert(c, 9) // absolute delay 9, key relative to b is 4

	remaining := d.Remove(b)
	if remaining != 5 {
		t.Fatalf("Remove(b) reported %d ticks remaining, want 5", remaining)
	}
	if c.deltaKey != 7 {
		t.Fatalf("c.deltaKey after removing b = %d, want 7 (c's absolute 9 minus a's absolute 2)", c.deltaKey)
	}

	var order []*PCB
	for i := 0; i < 20; i++ {
		order = append(order, d.Tick()...)
	}
	if len(order) != 2 || order[0] != a || order[1] != c {
		t.Fatalf("post-removal wakeup order wrong: %v", order)
	}
}
