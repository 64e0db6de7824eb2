package nucleo

import "github.com/mlitov/nucleo/internal/hal"

// sysKill delivers a signal to another process, resolving its pid through
// the table first so signal() only ever sees a live PCB or nil.
func (k *Kernel) sysKill(pid int32, signum int) int32 {
	return k.signal(k.table.Lookup(pid), signum)
}

// sysSetPrio changes p's scheduling priority and reports the previous one.
func (k *Kernel) sysSetPrio(p *PCB, newPrio int) int32 {
	if newPrio < 0 || newPrio >= NumPriorities {
		return -1
	}
	old := p.priority
	p.priority = Priority(newPrio)
	return int32(old)
}

// sysSend resolves the destination and hands off to send(); sending to
// oneself and sending to a pid that does not exist are distinct failures,
// matching the dispatcher-level validation msg.c's send() assumes has
// already happened.
func (k *Kernel) sysSend(args hal.SendArgs) int32 {
	if args.Dest == k.current.pid {
		return IPCErrSelfTarget
	}
	dest := k.table.Lookup(args.Dest)
	if dest == nil {
		return IPCErrNoSuchTarget
	}
	return k.send(k.current, dest, args.Word)
}

// sysRecv resolves a specific-sender pid (0-as-a-real-pid confusion isn't
// possible since 0 already means recv-any) before handing off to recv();
// waiting on oneself and waiting on a pid that does not exist are distinct
// failures.
func (k *Kernel) sysRecv(args hal.RecvArgs) (int32, any) {
	if args.From != 0 && args.From == k.current.pid {
		return IPCErrSelfTarget, nil
	}
	code := k.recv(k.current, args.From)
	if code == IPCOk {
		return code, k.current.lastOut
	}
	return code, nil
}

// sysWait blocks the caller until pid exits, delivering its exit status as
// the eventual result code. Waiting on an invalid pid or oneself fails
// immediately; waiting on a pid that has already exited is not
// representable once its slot is reused, matching the original's
// "the wait is only good against a currently live pid" contract.
func (k *Kernel) sysWait(args hal.WaitArgs) int32 {
	target := k.table.Lookup(args.PID)
	if target == nil || target == k.current {
		return -1
	}
	k.current.state = StateBlocked
	k.current.blockReason = BlockWait
	target.waiters.PushBack(k.current)
	return IPCBlocked
}

// sysGetCPUTimes fills in one entry per live (non-stopped) process plus
// the idle process, in table order, capped at MaxEntries, and returns the
// count written — or a negative diagnostic if the caller's output
// pointer looks bad. Since there is no live idle *PCB (idle is represented
// by nil), its entry is synthesized directly.
func (k *Kernel) sysGetCPUTimes(args hal.GetCPUTimesArgs) (int32, any) {
	if err := validateAddr(args.Addr); err != nil {
		if err == ErrAddressInHole {
			return -1, nil
		}
		return -2, nil
	}

	var entries []hal.CPUTimeEntry
	k.table.Each(func(p *PCB) {
		if len(entries) >= args.MaxEntries && args.MaxEntries > 0 {
			return
		}
		entries = append(entries, hal.CPUTimeEntry{
			PID:      p.pid,
			Priority: int(p.priority),
			State:    p.state.String(),
			CPUTicks: p.cpuTicks,
		})
	})
	if args.MaxEntries <= 0 || len(entries) < args.MaxEntries {
		entries = append(entries, hal.CPUTimeEntry{
			PID:      idlePID,
			Priority: NumPriorities,
			State:    "IDLE",
			CPUTicks: k.idleTicks,
		})
	}
	return int32(len(entries)), hal.GetCPUTimesResult{Entries: entries}
}
