package nucleo

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mlitov/nucleo/internal/config"
	"github.com/mlitov/nucleo/internal/hal"
	"github.com/mlitov/nucleo/internal/hal/host"
)

// bootTestKernel wires a Kernel to a real host.Board the same way
// cmd/nucleo does, for tests that need to drive Run() itself rather than
// poke kernel-internal methods directly.
func bootTestKernel(tableSize int) *Kernel {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	sw := host.NewSwitcher(log.WithField("test", "ctsw"))
	board := hal.Board{
		Switcher:   sw,
		Stacks:     host.NewAllocator(0),
		Interrupts: host.NewPIC(log.WithField("test", "pic")),
		Clock:      host.NewClock(sw),
		Keyboard:   host.NewKeyboard(sw),
	}
	cfg := config.Config{ProcessTableSize: tableSize, TimeSliceMillis: 10, StackSize: 4096}
	return New(log, cfg, board)
}

// waitOrTimeout blocks on done, failing the test if it never fires. Once it
// returns, everything the closing goroutine wrote before close(done) is
// safely visible: closing a channel happens-before a receive of that close.
func waitOrTimeout(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("scenario did not complete before the timeout")
	}
}

// TestRunDrivesRealSendRecvAndKillAcrossTwoProcesses boots an actual Kernel
// against a real host.Board and drives its dispatcher loop end to end: one
// process creates a second, exchanges a message with it over the real
// send/recv syscalls, kills it with the reserved hard-kill signal while it
// sits blocked in recv, and finally observes the kill through wait()
// reporting the pid as no longer valid — exercising ready/pickNext/blocked
// bookkeeping and the dispatch switch in kernel.go's Run(), not just the
// kernel-internal helpers those methods call.
func TestRunDrivesRealSendRecvAndKillAcrossTwoProcesses(t *testing.T) {
	k := bootTestKernel(8)

	var childPID int32
	var replyWord uint32
	var replyFrom, recvCode int32
	var waitAfterKill int32
	done := make(chan struct{})

	child := func(sys *hal.Syscalls) {
		word, from, code := sys.Recv(0)
		if code != IPCOk {
			return
		}
		sys.Send(from, word+1)
		sys.Recv(0) // parks here until the parent's kill tears it down
	}

	parent := func(sys *hal.Syscalls) {
		childPID = sys.Create(child, InitPriority, 4096)
		sys.Send(childPID, 41)
		replyWord, replyFrom, recvCode = sys.Recv(childPID)

		sys.Kill(childPID, killSignal)
		// One yield gives the dispatcher a chance to schedule the child
		// again and, per handlePendingSignals, tear it down instead of
		// resuming it.
		sys.Yield()

		waitAfterKill = sys.Wait(childPID)
		close(done)
		sys.Stop()
	}

	pid := k.CreateInitial(parent, InitPriority, 4096)
	if pid <= 0 {
		t.Fatalf("CreateInitial() = %d, want a positive pid", pid)
	}

	go k.Run()
	waitOrTimeout(t, done)

	if recvCode != IPCOk || replyFrom != childPID || replyWord != 42 {
		t.Fatalf("parent's recv from child = (word=%d from=%d code=%d), want (42, %d, IPCOk)", replyWord, replyFrom, recvCode, childPID)
	}
	if waitAfterKill != -1 {
		t.Fatalf("wait() on a killed pid = %d, want -1 (no longer a valid target)", waitAfterKill)
	}
}

// TestRunFailsRecvAnyFastWhenNoOtherProcessCanEverSend boots a Kernel with
// exactly one live process and drives it through the real ReqRecv dispatch
// path, checking that recv-any reports OnlyProcess immediately instead of
// blocking forever with no possible sender.
func TestRunFailsRecvAnyFastWhenNoOtherProcessCanEverSend(t *testing.T) {
	k := bootTestKernel(4)

	var code int32
	done := make(chan struct{})

	solo := func(sys *hal.Syscalls) {
		_, _, code = sys.Recv(0)
		close(done)
		sys.Stop()
	}

	k.CreateInitial(solo, InitPriority, 4096)

	go k.Run()
	waitOrTimeout(t, done)

	if code != IPCErrOnlyProcess {
		t.Fatalf("recv(0) as the only live process = %d, want IPCErrOnlyProcess", code)
	}
}
