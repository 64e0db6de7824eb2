package nucleo

import "github.com/mlitov/nucleo/internal/hal"

// CreateErrNoSlot / CreateErrNoMemory are syscreate's failure results:
// every table slot occupied, or the stack allocator is exhausted. Mirrors
// create.c's two distinct failure paths.
const (
	CreateErrNoSlot   int32 = -1
	CreateErrNoMemory int32 = -2
)

// CreateInitial bootstraps the very first process directly, since it has
// no creator to trap in on its behalf — the moral equivalent of create.c
// being called once from kdispinit's boot sequence rather than serviced
// out of the dispatch loop. Must be called before Run.
func (k *Kernel) CreateInitial(entry hal.ProcessEntry, priority int, stackSize uint32) int32 {
	return k.serviceCreate(nil, hal.CreateArgs{Entry: entry, Priority: priority, StackSize: stackSize})
}

// serviceCreate implements the kernel side of syscreate: allocate a PCB
// slot (which assigns the next pid in that slot's reuse sequence), obtain
// a stack from the external allocator, register the entry point with the
// context switcher, and place the new process on its ready queue.
//
// Unlike create.c, there is no register frame to hand-splice here — the
// context switcher's Start merely remembers the entry point and a real Go
// goroutine (not a raw stack image) carries the process's execution state,
// so "stack size" is honored only insofar as it is charged against the
// allocator's budget, exercising the same allocation-failure path a real
// implementation would.
func (k *Kernel) serviceCreate(creator *PCB, args hal.CreateArgs) int32 {
	pcb := k.table.AllocSlot()
	if pcb == nil {
		return CreateErrNoSlot
	}

	// Any request below the configured minimum is silently promoted, not
	// just an omitted (zero) size.
	stackSize := args.StackSize
	if stackSize < k.cfg.StackSize {
		stackSize = k.cfg.StackSize
	}
	stack, err := k.board.Stacks.Alloc(stackSize)
	if err != nil {
		return CreateErrNoMemory
	}

	priority := Priority(args.Priority)
	if args.Priority < 0 || args.Priority >= NumPriorities {
		priority = InitPriority
	}

	pid := pcb.pid
	*pcb = PCB{pid: pid, state: StateReady, priority: priority, entry: args.Entry, stack: stack, lastSignalDelivered: -1}
	// Fix signal 31's handler on every (re)allocation, matching
	// get_unused_pcb's signal_table[31] = &sysstop: it can never be left
	// unset (signal() would otherwise treat an unhandled kill as a no-op)
	// and can never be reassigned (sigHandler rejects signum >= 31).
	pcb.handlers[killSignal] = killHandler

	k.board.Switcher.Start(pid, args.Entry)
	k.userProcCount++
	k.ready(pcb)

	k.log.WithFields(map[string]any{"pid": pid, "priority": priority}).Info("## process created")
	return pid
}

// cleanup releases everything a process held: its stack, its open file
// descriptors, and its table slot (advancing that slot's pid for reuse),
// then wakes anyone blocked in wait() on it and drains anyone blocked
// sending or receiving to/from it, matching the original's exit path
// through stop()/sysstop plus the message layer's peer-death handling.
func (k *Kernel) cleanup(p *PCB, exitStatus int32) {
	if p == nil {
		return
	}

	k.dii.CloseAll(p)
	k.board.Stacks.Free(p.stack)
	k.board.Switcher.Discard(p.pid)

	p.exited = true
	p.exitStatus = exitStatus

	for sender := p.senders.PopFront(); sender != nil; sender = p.senders.PopFront() {
		sender.blockReason = BlockNone
		sender.resultCode = -1
		k.ready(sender)
	}
	for receiver := p.receiversQ.PopFront(); receiver != nil; receiver = p.receiversQ.PopFront() {
		receiver.blockReason = BlockNone
		receiver.waitingFor = 0
		receiver.resultCode = -1
		k.ready(receiver)
	}
	for waiter := p.waiters.PopFront(); waiter != nil; waiter = p.waiters.PopFront() {
		waiter.blockReason = BlockNone
		waiter.resultCode = exitStatus
		k.ready(waiter)
	}

	k.userProcCount--
	k.log.WithField("pid", p.pid).Info("## process cleaned up")
	k.table.Cleanup(p)
}
