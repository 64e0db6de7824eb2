package nucleo

import "github.com/mlitov/nucleo/internal/hal"

// Signal result codes, per spec.md §6.
const (
	SigOK                int32 = 0
	SigErrBadNumber      int32 = -583
	SigErrBadProcess     int32 = -514
	SigInterruptedResult int32 = -666
)

// NumSignals is the width of the pending-signal bitmask: 32 independently
// prioritized signals, numbered 0 (lowest) to 31 (highest), scanned from
// the top down on every delivery attempt.
const NumSignals = 32

// killSignal is signal 31: a hard-kill whose handler is fixed at process
// creation to the exit path and can never be reassigned (sigHandler's
// range check rejects any attempt to rebind it).
const killSignal = NumSignals - 1

// killExitStatus is the exit status recorded for a process torn down by a
// kill signal rather than its own call to stop().
const killExitStatus int32 = -1

// killHandler is the fixed sentinel every PCB carries in handlers[killSignal]
// so signal() never treats a kill as "no handler installed, ignore" the way
// it would any other unhandled signal number. It is installed once per PCB
// at create() time (see serviceCreate) and is never actually invoked:
// handlePendingSignals intercepts signal 31 before splicing a delivery frame,
// since a kill has no user-space trampoline to run it in — it just tears the
// process down. Mirrors get_unused_pcb's signal_table[31] = &sysstop.
var killHandler hal.SignalHandler = func(int32) {}

// signal marks signum pending against target and, if target is currently
// blocked in a way a signal can interrupt, unblocks it immediately so
// handle_pending_signals gets a chance to deliver it next time target is
// scheduled. Mirrors signal.c's signal().
func (k *Kernel) signal(target *PCB, signum int) int32 {
	if signum < 0 || signum >= NumSignals {
		return SigErrBadNumber
	}
	if target == nil {
		return SigErrBadProcess
	}
	if target.handlers[signum] == nil {
		return SigOK // no handler installed: silently ignored, not an error
	}

	target.pendingSignals |= 1 << uint(signum)

	if target.state == StateBlocked {
		k.unblockOnSignal(target)
		k.ready(target)
	}
	return SigOK
}

// unblockOnSignal computes the result code a signal-interrupted blocking
// call reports once resumed, per unblock_on_signal's switch over
// blocked_queue reason.
func (k *Kernel) unblockOnSignal(p *PCB) {
	switch p.blockReason {
	case BlockSender, BlockReceiver, BlockReceiveAny, BlockWait:
		if p.blockedQueue != nil {
			p.blockedQueue.Remove(p)
		}
		p.resultCode = SigInterruptedResult
	case BlockSleep:
		remaining := k.sleepList.Remove(p)
		p.resultCode = int32(remaining) * int32(k.timeSliceMillis)
	case BlockRead:
		if k.keyboard.transferred > 0 {
			p.resultCode = int32(k.keyboard.transferred)
		} else {
			p.resultCode = SigInterruptedResult
		}
		k.keyboard.readPending = false
	default:
		k.assertf("unblock_on_signal: process not in an interruptible block state (reason=%v)", p.blockReason)
	}
	p.blockReason = BlockNone
	p.waitingFor = 0
	p.lastOut = nil
}

// handlePendingSignals is called by the dispatcher before every context
// switch into p. If a pending signal above p.lastSignalDelivered exists,
// it saves p's current resultCode/lastOut into a delivery frame and
// replaces them with a hal.SignalDelivery so the ContextSwitcher runs the
// handler transparently on p's next resume, per the "may-interrupt-lower,
// must-wait-for-higher" rule from signal.c's handle_pending_signals().
//
// It reports true when delivering the pending signal tore p down instead
// (the kill signal), telling the caller p must not be switched into.
func (k *Kernel) handlePendingSignals(p *PCB) bool {
	if p == nil || p.pendingSignals == 0 {
		return false
	}
	for bit := NumSignals - 1; bit >= 0; bit-- {
		if p.pendingSignals&(1<<uint(bit)) == 0 {
			continue
		}
		if bit <= p.lastSignalDelivered {
			break
		}
		p.pendingSignals &^= 1 << uint(bit)
		if bit == killSignal {
			k.cleanup(p, killExitStatus)
			return true
		}
		p.sigStack = append(p.sigStack, signalDeliveryFrame{
			handler:             p.handlers[bit],
			signalNumber:        bit,
			savedResultCode:     p.resultCode,
			savedOut:            p.lastOut,
			lastSignalDelivered: p.lastSignalDelivered,
		})
		p.lastSignalDelivered = bit
		cntx := int32(len(p.sigStack) - 1)
		p.resultCode = 0
		p.lastOut = hal.SignalDelivery{Handler: p.handlers[bit], Cntx: cntx}
		return false
	}
	return false
}

// sigHandler implements syssighandler: installs a new handler for signum
// and reports the previous one. Signal 31 is reserved for kill and falls
// out of the same "invalid signal number" range as anything else ≥31, so
// it never gets its own error code.
func (k *Kernel) sigHandler(p *PCB, signum int, newHandler hal.SignalHandler, newHandlerAddr, oldHandlerAddr uintptr) (int32, hal.SignalHandler) {
	if signum < 0 || signum >= NumSignals-1 {
		return -1, nil
	}
	if newHandler != nil {
		if err := validateAddr(newHandlerAddr); err != nil {
			return -2, nil
		}
	}
	if err := validateAddr(oldHandlerAddr); err != nil {
		return -3, nil
	}
	old := p.handlers[signum]
	p.handlers[signum] = newHandler
	return 0, old
}

// sigReturn implements syssigreturn: pops the delivery frame named by
// cntx, restoring the interrupted call's saved result/output and the
// priority watermark so a lower-numbered pending signal may be delivered
// next.
func (k *Kernel) sigReturn(p *PCB, cntx int32) {
	idx := int(cntx)
	if idx < 0 || idx >= len(p.sigStack) || p.sigStack[idx].handler == nil {
		k.assertf("sysigreturn: invalid signal context %d", cntx)
	}
	frame := p.sigStack[idx]
	p.sigStack = p.sigStack[:idx]
	p.lastSignalDelivered = frame.lastSignalDelivered
	p.resultCode = frame.savedResultCode
	p.lastOut = frame.savedOut
}
