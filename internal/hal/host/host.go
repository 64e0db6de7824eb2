// Package host is a goroutine-and-channel implementation of hal.Board good
// enough to drive the dispatcher end to end under `go test`: no real
// hardware exists under a test binary, so a "context switch" resumes a
// process's goroutine and blocks until it traps again or a hardware
// interrupt races it in, exactly mirroring the select a real CPU makes
// between "instruction retires" and "IRQ line asserts".
package host

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/mlitov/nucleo/internal/hal"
)

type resume struct {
	result int32
	out    any
}

type procIO struct {
	entry   hal.ProcessEntry
	trap    chan hal.Request
	resume  chan resume
	started bool
}

// Switcher implements hal.ContextSwitcher over goroutines. Each process is
// backed by one goroutine that blocks on procIO.resume between traps; a
// Switch either starts that goroutine (first call) or unblocks it by
// sending the previous trap's result, then waits for the next trap or for
// a hardware interrupt to arrive on the shared interrupts channel.
type Switcher struct {
	log         *logrus.Entry
	mu          sync.Mutex
	procs       map[int32]*procIO
	interrupts  chan hal.Request
}

func NewSwitcher(log *logrus.Entry) *Switcher {
	return &Switcher{
		log:        log,
		procs:      make(map[int32]*procIO),
		interrupts: make(chan hal.Request, 8),
	}
}

// InjectInterrupt is how Clock and the keyboard feeder deliver a hardware
// interrupt: it races against whatever the currently running process is
// doing and wins as soon as the running process next yields the CPU to a
// Switch call's select.
func (sw *Switcher) InjectInterrupt(req hal.Request) {
	sw.interrupts <- req
}

func (sw *Switcher) Start(pid int32, entry hal.ProcessEntry) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.procs[pid] = &procIO{
		entry:  entry,
		trap:   make(chan hal.Request),
		resume: make(chan resume),
	}
}

func (sw *Switcher) Discard(pid int32) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	delete(sw.procs, pid)
}

// idlePID is never assigned to a real process; switching to it means
// "run the idle loop", which has no user-mode code of its own and simply
// waits for the next hardware interrupt, exactly a real idle process
// spinning with interrupts enabled but nothing else to do.
const idlePID = 0

func (sw *Switcher) Switch(pid int32, result int32, out any) hal.Request {
	if pid == idlePID {
		return <-sw.interrupts
	}

	sw.mu.Lock()
	io, ok := sw.procs[pid]
	sw.mu.Unlock()
	if !ok {
		sw.log.WithField("pid", pid).Fatal("context switch to unknown process")
	}

	if !io.started {
		io.started = true
		go sw.run(pid, io)
	} else {
		io.resume <- resume{result: result, out: out}
	}

	select {
	case req := <-io.trap:
		return req
	case req := <-sw.interrupts:
		return req
	}
}

func (sw *Switcher) run(pid int32, io *procIO) {
	trap := func(req hal.Request) (int32, any) {
		io.trap <- req
		for {
			r := <-io.resume
			// A signal was spliced in ahead of this trap's real resume
			// value: run the handler on this same goroutine (so it can
			// itself trap freely), then let the kernel's implicit
			// sigreturn hand back the value this call actually blocked
			// for.
			if sd, ok := r.out.(hal.SignalDelivery); ok {
				sd.Handler(sd.Cntx)
				io.trap <- hal.Request{Kind: hal.ReqSigReturn, Payload: hal.SigReturnArgs{Cntx: sd.Cntx}}
				continue
			}
			return r.result, r.out
		}
	}
	sys := hal.NewSyscalls(trap)
	io.entry(sys)
	// Falling off the end of user code is the "return to sysstop trap":
	// the process never called Stop itself, so the kernel does it for them.
	io.trap <- hal.Request{Kind: hal.ReqStop}
}
