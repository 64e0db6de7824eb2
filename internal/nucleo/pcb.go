// Package nucleo is the kernel core: the PCB table, the intrusive queues,
// the dispatcher, IPC, sleep, signals, the device-independent interface,
// and the keyboard driver built on top of it. It never imports a concrete
// hal implementation, only the hal package's interfaces.
package nucleo

import (
	"github.com/sirupsen/logrus"

	"github.com/mlitov/nucleo/internal/hal"
)

// State is a process's dispatch state.
type State int

const (
	StateStopped State = iota
	StateReady
	StateRunning
	StateBlocked
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "STOPPED"
	case StateReady:
		return "READY"
	case StateRunning:
		return "RUNNING"
	case StateBlocked:
		return "BLOCKED"
	default:
		return "UNKNOWN"
	}
}

// Priority ranges 0 (highest) through NumPriorities-1 (lowest). It is
// unrelated to the signal subsystem's 32-level pending-signal mask (see
// signal.go), a separate axis from scheduling priority.
const NumPriorities = 4

// BlockReason records which sub-queue or list a blocked PCB sits on, so
// unblock_on_signal (see signal.go) knows how to compute its wakeup result.
type BlockReason int

const (
	BlockNone BlockReason = iota
	BlockSender
	BlockReceiver
	BlockReceiveAny
	BlockSleep
	BlockWait
	BlockRead
)

// FDTableSize is the number of open-file slots per process.
const FDTableSize = 4

// signalDeliveryFrame is what handle_pending_signals splices onto a
// process's saved execution context so that, on next resume, it runs the
// handler and then traps back into syssigreturn. Real xeroskernel does
// this by writing a signal_delivery_context_t below esp on the raw stack;
// here the "stack" is just a []byte scratch buffer and the frame is a Go
// value pushed/popped on a small slice, since there is no real esp to
// splice a return address into.
type signalDeliveryFrame struct {
	handler             hal.SignalHandler
	signalNumber        int
	savedResultCode     int32
	savedOut            any
	lastSignalDelivered int
}

// PCB is a process control block. Its fields are unexported; code outside
// the package reaches them through the accessor methods below.
type PCB struct {
	pid      int32
	state    State
	priority Priority
	entry    hal.ProcessEntry
	stack    []byte

	// intrusive queue links, shared between the ready/stopped/blocked
	// queues and the sleep delta list since a PCB is only ever on one of
	// them at a time.
	prev, next *PCB
	deltaKey   int // ticks relative to predecessor, valid only while on the sleep list

	resultCode int32
	lastOut    any

	blockReason  BlockReason
	blockedQueue *Queue // which Queue this PCB is currently linked into, if any
	waitingFor   int32  // pid a BlockReceiver process is waiting to hear from
	pendingWord  uint32 // payload a BlockSender process is waiting to deliver

	senders    Queue // processes blocked sending to this PCB
	receiversQ Queue // processes blocked wanting to receive specifically from this PCB
	waiters    Queue // processes blocked in wait() on this PCB's exit

	pendingSignals      uint32
	lastSignalDelivered int
	handlers            [32]hal.SignalHandler
	sigStack            []signalDeliveryFrame // simulated splice stack, LIFO

	fdTable [FDTableSize]*openFile

	cpuTicks uint64

	exited     bool
	exitStatus int32
}

// Priority is a scheduling priority: 0 is highest.
type Priority int

func (p *PCB) PID() int32         { return p.pid }
func (p *PCB) State() State       { return p.state }
func (p *PCB) Priority() Priority { return p.priority }
func (p *PCB) CPUTicks() uint64   { return p.cpuTicks }

// nextPID implements the PID-reuse rule: a freshly reused table slot's
// new PID is its old PID plus the table size, wrapping to old-PID-mod-size
// (never 0, since PID 0 is reserved for the idle process) once that sum
// would overflow a 32-bit signed value.
func nextPID(old int32, tableSize int) int32 {
	const maxInt32 = int32(1<<31 - 1)
	if old > maxInt32-int32(tableSize) {
		p := old % int32(tableSize)
		if p == 0 {
			p = int32(tableSize)
		}
		return p
	}
	return old + int32(tableSize)
}

// Table is the fixed-size process table: slot i initially holds the PCB
// for PID i+1.
type Table struct {
	log   *logrus.Entry
	slots []PCB
	size  int
}

func NewTable(log *logrus.Entry, size int) *Table {
	t := &Table{log: log, slots: make([]PCB, size), size: size}
	for i := range t.slots {
		t.slots[i] = PCB{pid: int32(i + 1), state: StateStopped}
	}
	return t
}

func (t *Table) Size() int { return t.size }

// slotFor returns the slot a pid maps to, independent of whether the slot
// currently holds that pid.
func (t *Table) slotFor(pid int32) *PCB {
	if pid <= 0 {
		return nil
	}
	idx := int(pid-1) % t.size
	return &t.slots[idx]
}

// Lookup returns the PCB for pid iff the slot it maps to currently holds
// that exact pid and is not Stopped, matching the original's is_pid_valid.
func (t *Table) Lookup(pid int32) *PCB {
	pcb := t.slotFor(pid)
	if pcb == nil || pcb.pid != pid || pcb.state == StateStopped {
		return nil
	}
	return pcb
}

// AllocSlot finds a stopped slot, already carrying the next PID in its
// reuse sequence from the last Cleanup, and returns it ready to be filled
// in by create() — including fixing signal 31's handler, the way
// get_unused_pcb does both in one pass.
func (t *Table) AllocSlot() *PCB {
	for i := range t.slots {
		if t.slots[i].state == StateStopped {
			pcb := &t.slots[i]
			return pcb
		}
	}
	return nil
}

// Cleanup resets a slot to Stopped and advances its PID for the next
// tenant, per the reuse policy above.
func (t *Table) Cleanup(pcb *PCB) {
	old := pcb.pid
	*pcb = PCB{pid: nextPID(old, t.size), state: StateStopped}
}

// Each returns every non-stopped slot, for getcputimes and diagnostics.
func (t *Table) Each(fn func(*PCB)) {
	for i := range t.slots {
		if t.slots[i].state != StateStopped {
			fn(&t.slots[i])
		}
	}
}
