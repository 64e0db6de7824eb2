package nucleo

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/mlitov/nucleo/internal/config"
	"github.com/mlitov/nucleo/internal/hal"
)

// idlePID is reserved; it never appears in the process table.
const idlePID = 0

// InitPriority is the priority newly created processes default to absent
// an explicit request, matching the original's INIT_PRIORITY.
const InitPriority = 2

// Kernel owns every piece of dispatch state: the PCB table, the ready
// queues, the sleep list, the receive-any queue, the device-independent
// interface, and the board it drives. There is exactly one live Kernel
// value per running instance, held and passed by exclusive reference the
// way the original's global statics amount to a single implicit instance.
type Kernel struct {
	log *logrus.Entry
	cfg config.Config

	board hal.Board

	table        *Table
	readyQueues  [NumPriorities]Queue
	sleepList    DeltaList
	recvAnyQueue Queue

	dii      *DII
	keyboard *keyboard

	current *PCB

	timeSliceMillis int
	userProcCount   int
	idleTicks       uint64
}

// New wires a Kernel to a board and boots its device table, mirroring
// kdispinit's init order: priority ready queues (implicitly empty),
// process table, then device table. The idle process needs no setup: it
// is represented by a nil current PCB.
func New(log *logrus.Logger, cfg config.Config, board hal.Board) *Kernel {
	entry := log.WithField("component", "nucleo")
	k := &Kernel{
		log:             entry,
		cfg:             cfg,
		board:           board,
		table:           NewTable(entry, cfg.ProcessTableSize),
		timeSliceMillis: cfg.TimeSliceMillis,
	}

	k.dii = NewDII(entry)
	k.keyboard = newKeyboard(entry.WithField("component", "kbd"), board.Keyboard, cfg.KeyboardEchoDefault)
	k.dii.SetDevice(DevKeyboard0, k.keyboard.deviceFor(DevKeyboard0))
	k.dii.SetDevice(DevKeyboard1, k.keyboard.deviceFor(DevKeyboard1))

	entry.Info("nucleo initialized")
	return k
}

// assertf logs at Fatal and panics; recovered only by cmd/nucleo's top
// level, standing in for a real kernel halting with interrupts disabled.
func (k *Kernel) assertf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	// Log at Fatal level without logrus's Fatal, which would exit the
	// process before the panic below could be raised.
	k.log.Log(logrus.FatalLevel, msg)
	panic(msg)
}

// ready puts p on its priority's ready queue.
func (k *Kernel) ready(p *PCB) {
	p.state = StateReady
	k.readyQueues[p.priority].PushBack(p)
	k.log.WithFields(logrus.Fields{"pid": p.pid, "priority": p.priority}).Debug("## process ready")
}

// next picks the next process to run: highest non-empty priority queue,
// FIFO within it, falling back to idle when every ready queue is empty.
func (k *Kernel) next() *PCB {
	for prio := Priority(0); prio < NumPriorities; prio++ {
		if p := k.readyQueues[prio].PopFront(); p != nil {
			p.state = StateRunning
			return p
		}
	}
	return nil // caller substitutes the idle pid
}

// currentPID returns the pid Switch should be called with for p, mapping
// a nil (idle) PCB to idlePID.
func currentPID(p *PCB) int32 {
	if p == nil {
		return idlePID
	}
	return p.pid
}

// Run drives the dispatcher loop forever: handle any pending signal for
// the current process, context switch into it, then act on whatever
// request brought control back to the kernel. Mirrors disp.c's dispatch().
func (k *Kernel) Run() {
	k.current = k.next()

	for {
		if k.handlePendingSignals(k.current) {
			k.current = k.pickNext()
			continue
		}

		var result int32
		var out any
		if k.current != nil {
			result, out = k.current.resultCode, k.current.lastOut
		}
		req := k.board.Switcher.Switch(currentPID(k.current), result, out)

		blocked := false
		switch req.Kind {
		case hal.ReqCreate:
			k.current.resultCode = k.serviceCreate(k.current, req.Payload.(hal.CreateArgs))
			k.current.lastOut = nil
		case hal.ReqYield:
			k.ready(k.current)
			k.current = k.pickNext()
			continue
		case hal.ReqStop:
			finished := k.current
			k.current = k.pickNext()
			k.cleanup(finished, 0)
			continue
		case hal.ReqGetPID:
			k.current.resultCode = k.current.pid
			k.current.lastOut = nil
		case hal.ReqPuts:
			k.log.Info(req.Payload.(hal.PutsArgs).Str)
			k.current.resultCode, k.current.lastOut = 0, nil
		case hal.ReqKill:
			args := req.Payload.(hal.KillArgs)
			k.current.resultCode = k.sysKill(args.PID, args.Signal)
			k.current.lastOut = nil
		case hal.ReqSetPrio:
			args := req.Payload.(hal.SetPrioArgs)
			k.current.resultCode = k.sysSetPrio(k.current, args.Priority)
			k.current.lastOut = nil
		case hal.ReqSend:
			args := req.Payload.(hal.SendArgs)
			k.current.resultCode = k.sysSend(args)
			k.current.lastOut = nil
			blocked = k.current.resultCode == IPCBlocked
		case hal.ReqRecv:
			args := req.Payload.(hal.RecvArgs)
			code, recvOut := k.sysRecv(args)
			k.current.resultCode, k.current.lastOut = code, recvOut
			blocked = code == IPCBlocked
		case hal.ReqSleep:
			args := req.Payload.(hal.SleepArgs)
			if k.sysSleep(args) {
				blocked = true
			} else {
				k.current.resultCode, k.current.lastOut = 0, nil
			}
		case hal.ReqGetCPUTimes:
			args := req.Payload.(hal.GetCPUTimesArgs)
			code, cpuOut := k.sysGetCPUTimes(args)
			k.current.resultCode, k.current.lastOut = code, cpuOut
		case hal.ReqSigHandler:
			args := req.Payload.(hal.SigHandlerArgs)
			code, old := k.sigHandler(k.current, args.SignalNumber, args.NewHandler, args.NewHandlerAddr, args.OldHandlerAddr)
			k.current.resultCode = code
			k.current.lastOut = hal.SigHandlerResult{OldHandler: old}
		case hal.ReqSigReturn:
			args := req.Payload.(hal.SigReturnArgs)
			k.sigReturn(k.current, args.Cntx)
		case hal.ReqWait:
			args := req.Payload.(hal.WaitArgs)
			k.current.resultCode = k.sysWait(args)
			k.current.lastOut = nil
			// sysWait's -1 failure shares IPCBlocked's value, so the
			// caller's state, not the code, says whether it blocked.
			blocked = k.current.state == StateBlocked
		case hal.ReqOpen:
			args := req.Payload.(hal.OpenArgs)
			k.current.resultCode = k.dii.Open(k.current, args.DeviceNo)
			k.current.lastOut = nil
		case hal.ReqClose:
			args := req.Payload.(hal.CloseArgs)
			k.current.resultCode = k.dii.Close(k.current, args.FD)
			k.current.lastOut = nil
		case hal.ReqWrite:
			args := req.Payload.(hal.WriteArgs)
			k.current.resultCode = k.dii.Write(k.current, args.FD, args.Buf)
			k.current.lastOut = nil
		case hal.ReqRead:
			args := req.Payload.(hal.ReadArgs)
			code, data := k.dii.Read(k.current, args.FD, args.Buflen)
			if code == -2 {
				k.current.state = StateBlocked
				k.current.blockReason = BlockRead
				blocked = true
			} else {
				k.current.resultCode = code
				k.current.lastOut = hal.ReadResult{Data: data}
			}
		case hal.ReqIoctl:
			args := req.Payload.(hal.IoctlArgs)
			k.current.resultCode = k.dii.Ioctl(k.current, args.FD, args.Command, args.Args)
			k.current.lastOut = nil
		case hal.ReqTimerInterrupt:
			k.onTimerInterrupt()
			continue
		case hal.ReqKeyboardInterrupt:
			k.onKeyboardInterrupt()
			continue
		default:
			k.assertf("dispatch: invalid request kind %v", req.Kind)
		}

		if blocked {
			k.current = k.pickNext()
			continue
		}
		k.ready(k.current)
		k.current = k.pickNext()
	}
}

// pickNext wraps next(), running the idle process (represented by a nil
// PCB, mapped to idlePID by currentPID) when every ready queue is empty.
func (k *Kernel) pickNext() *PCB {
	return k.next()
}

// onTimerInterrupt runs on every clock tick, regardless of which process
// (or idle) was running: it accounts CPU time, ages the sleep list, and
// preempts the current process back onto its ready queue.
func (k *Kernel) onTimerInterrupt() {
	k.board.Interrupts.EndOfInterrupt(hal.ReqTimerInterrupt)
	if k.current != nil {
		k.current.cpuTicks++
	} else {
		k.idleTicks++
	}
	for _, p := range k.sleepList.Tick() {
		p.state = StateReady
		p.resultCode = 0
		k.ready(p)
	}
	if k.current != nil {
		k.ready(k.current)
	}
	k.current = k.pickNext()
}

// onKeyboardInterrupt runs the keyboard driver's lower half and, if it
// completed a pending read, wakes the reader.
func (k *Kernel) onKeyboardInterrupt() {
	k.board.Interrupts.EndOfInterrupt(hal.ReqKeyboardInterrupt)
	pid, result, data, finished := k.keyboard.isr()
	if finished {
		if reader := k.table.Lookup(pid); reader != nil {
			reader.blockReason = BlockNone
			reader.resultCode = result
			reader.lastOut = hal.ReadResult{Data: data}
			k.ready(reader)
		}
	}
	if k.current != nil {
		k.ready(k.current)
	}
	k.current = k.pickNext()
}
