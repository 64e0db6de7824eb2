package nucleo

import "github.com/mlitov/nucleo/internal/hal"

// IPC result codes.
const (
	IPCOk              int32 = 0
	IPCBlocked         int32 = -1
	IPCErrSelfTarget   int32 = -101
	IPCErrNoSuchTarget int32 = -102

	// IPCErrOnlyProcess is recv-any's failure when the receiver is the only
	// live user process left: nothing else can ever send it a word, so
	// parking it on the recv-any queue would block forever.
	IPCErrOnlyProcess int32 = -10
)

func recvResult(from int32, word uint32) hal.RecvResult {
	return hal.RecvResult{From: from, Word: word}
}

// send implements the kernel side of syssend: it either hands the word
// straight to a receiver already waiting (on this sender specifically, or
// on a recv-any), or blocks the sender on the receiver's sender queue.
// Mirrors msg.c's send(), one machine word instead of a byte buffer since
// spec.md's IPC payload is a single word.
func (k *Kernel) send(sender, receiver *PCB, word uint32) int32 {
	if receiver.blockReason == BlockReceiver && receiver.waitingFor == sender.pid {
		sender.receivers().Remove(receiver)
		k.completeRecv(receiver, sender.pid, word)
		return IPCOk
	}
	if receiver.blockReason == BlockReceiveAny {
		k.recvAnyQueue.Remove(receiver)
		receiver.blockReason = BlockNone
		k.completeRecv(receiver, sender.pid, word)
		return IPCOk
	}

	sender.blockReason = BlockSender
	sender.pendingWord = word
	sender.state = StateBlocked
	receiver.senders.PushBack(sender)
	return IPCBlocked
}

// recv implements the kernel side of sysrecv. from == 0 means recv-any;
// the dispatcher has already validated a nonzero from as a live pid before
// calling this.
func (k *Kernel) recv(receiver *PCB, from int32) int32 {
	if from != 0 {
		sender := k.table.Lookup(from)
		if sender == nil {
			return IPCErrNoSuchTarget
		}
		if sender.blockReason == BlockSender && sender.blockedQueue == &receiver.senders {
			receiver.senders.Remove(sender)
			receiver.lastOut = recvResult(sender.pid, sender.pendingWord)
			k.completeSend(sender)
			return IPCOk
		}
		receiver.blockReason = BlockReceiver
		receiver.waitingFor = from
		receiver.state = StateBlocked
		sender.receivers().PushBack(receiver)
		return IPCBlocked
	}

	if sender := receiver.senders.PopFront(); sender != nil {
		receiver.lastOut = recvResult(sender.pid, sender.pendingWord)
		k.completeSend(sender)
		return IPCOk
	}
	if k.userProcCount <= 1 {
		return IPCErrOnlyProcess
	}
	receiver.blockReason = BlockReceiveAny
	receiver.state = StateBlocked
	k.recvAnyQueue.PushBack(receiver)
	return IPCBlocked
}

func (k *Kernel) completeSend(sender *PCB) {
	sender.blockReason = BlockNone
	sender.resultCode = IPCOk
	k.ready(sender)
}

func (k *Kernel) completeRecv(receiver *PCB, fromPID int32, word uint32) {
	receiver.blockReason = BlockNone
	receiver.waitingFor = 0
	receiver.resultCode = IPCOk
	receiver.lastOut = recvResult(fromPID, word)
	k.ready(receiver)
}

// receivers returns this PCB's queue of processes blocked waiting to
// receive specifically from it.
func (p *PCB) receivers() *Queue { return &p.receiversQ }
