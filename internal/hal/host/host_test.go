package host

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mlitov/nucleo/internal/hal"
)

func testLog() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l.WithField("test", "host")
}

func TestSwitchStartsAndResumesAGoroutine(t *testing.T) {
	sw := NewSwitcher(testLog())
	sw.Start(1, func(sys *hal.Syscalls) {
		sys.GetPID()
		sys.Yield()
		sys.Stop()
	})

	req := sw.Switch(1, 0, nil)
	if req.Kind != hal.ReqGetPID {
		t.Fatalf("first trap = %v, want ReqGetPID", req.Kind)
	}
	req = sw.Switch(1, 42, nil)
	if req.Kind != hal.ReqYield {
		t.Fatalf("second trap = %v, want ReqYield", req.Kind)
	}
	req = sw.Switch(1, 0, nil)
	if req.Kind != hal.ReqStop {
		t.Fatalf("third trap = %v, want ReqStop", req.Kind)
	}
}

func TestSwitchToIdleWaitsOnlyForInterrupts(t *testing.T) {
	sw := NewSwitcher(testLog())

	done := make(chan hal.Request, 1)
	go func() { done <- sw.Switch(0, 0, nil) }()

	select {
	case <-done:
		t.Fatalf("Switch(idlePID, ...) returned before any interrupt was injected")
	case <-time.After(20 * time.Millisecond):
	}

	sw.InjectInterrupt(hal.Request{Kind: hal.ReqTimerInterrupt})
	select {
	case req := <-done:
		if req.Kind != hal.ReqTimerInterrupt {
			t.Fatalf("idle Switch() returned %v, want ReqTimerInterrupt", req.Kind)
		}
	case <-time.After(time.Second):
		t.Fatalf("idle Switch() never returned after an interrupt was injected")
	}
}

func TestProcessFallingOffEntryImplicitlyStops(t *testing.T) {
	sw := NewSwitcher(testLog())
	sw.Start(2, func(sys *hal.Syscalls) {
		// returns without calling Stop()
	})

	req := sw.Switch(2, 0, nil)
	if req.Kind != hal.ReqStop {
		t.Fatalf("falling off entry produced %v, want an implicit ReqStop", req.Kind)
	}
}

func TestSignalDeliveryRunsHandlerTransparently(t *testing.T) {
	sw := NewSwitcher(testLog())

	var handlerRan bool
	var sigReturnCntx int32 = -1
	var sawOriginalResume int32

	sw.Start(3, func(sys *hal.Syscalls) {
		word, _, code := sys.Recv(0)
		sawOriginalResume = code
		_ = word
		sys.Stop()
	})

	// First trap: the process blocks in Recv.
	req := sw.Switch(3, 0, nil)
	if req.Kind != hal.ReqRecv {
		t.Fatalf("first trap = %v, want ReqRecv", req.Kind)
	}

	// Instead of the real recv result, the kernel splices in a signal
	// delivery. The goroutine must run the handler synchronously, trap an
	// implicit ReqSigReturn, and only then continue on to see the real
	// resume value on its next Switch.
	handler := func(cntx int32) {
		handlerRan = true
		sigReturnCntx = cntx
	}
	req = sw.Switch(3, 0, hal.SignalDelivery{Handler: handler, Cntx: 7})
	if req.Kind != hal.ReqSigReturn {
		t.Fatalf("post-signal trap = %v, want an implicit ReqSigReturn", req.Kind)
	}
	if !handlerRan {
		t.Fatalf("signal handler never ran")
	}
	if sigReturnCntx != 7 {
		t.Fatalf("sigreturn cntx = %d, want 7 (matching the delivery's Cntx)", sigReturnCntx)
	}
	args, ok := req.Payload.(hal.SigReturnArgs)
	if !ok || args.Cntx != 7 {
		t.Fatalf("implicit sigreturn payload = %#v, want Cntx 7", req.Payload)
	}

	// Now the kernel resumes it with the real value the original Recv
	// blocked for.
	req = sw.Switch(3, 5, hal.RecvResult{From: 9, Word: 123})
	if req.Kind != hal.ReqStop {
		t.Fatalf("final trap = %v, want ReqStop", req.Kind)
	}
	if sawOriginalResume != 5 {
		t.Fatalf("process saw resume code %d, want 5 (its actual recv result, not the signal)", sawOriginalResume)
	}
}

func TestDiscardForgetsProcess(t *testing.T) {
	sw := NewSwitcher(testLog())
	sw.Start(4, func(sys *hal.Syscalls) { sys.Stop() })
	sw.Switch(4, 0, nil)
	sw.Discard(4)

	sw.mu.Lock()
	_, ok := sw.procs[4]
	sw.mu.Unlock()
	if ok {
		t.Fatalf("Discard() left the process's procIO registered")
	}
}
