package nucleo

import (
	"testing"

	"github.com/mlitov/nucleo/internal/hal"
)

func TestSysSleepZeroIsNonBlocking(t *testing.T) {
	k := newTestKernel(4)
	k.current = spawnPCB(k)

	if blocked := k.sysSleep(hal.SleepArgs{Milliseconds: 0}); blocked {
		t.Fatalf("sysSleep(0) blocked, want an immediate non-blocking success")
	}
	if !k.sleepList.Empty() {
		t.Fatalf("sysSleep(0) inserted into the sleep list")
	}
}

func TestSysSleepRoundsUpPartialTicks(t *testing.T) {
	k := newTestKernel(4)
	k.timeSliceMillis = 10
	p := spawnPCB(k)
	k.current = p

	if blocked := k.sysSleep(hal.SleepArgs{Milliseconds: 15}); !blocked {
		t.Fatalf("sysSleep(15) with a 10ms slice did not block")
	}
	if p.deltaKey != 2 {
		t.Fatalf("deltaKey = %d, want 2 (15ms rounds up to 2 ticks of 10ms)", p.deltaKey)
	}
	if p.blockReason != BlockSleep || p.state != StateBlocked {
		t.Fatalf("process not marked blocked-on-sleep: reason=%v state=%v", p.blockReason, p.state)
	}
}

func TestSysSleepShortDurationStillGetsOneTick(t *testing.T) {
	k := newTestKernel(4)
	k.timeSliceMillis = 10
	p := spawnPCB(k)
	k.current = p

	if blocked := k.sysSleep(hal.SleepArgs{Milliseconds: 1}); !blocked {
		t.Fatalf("sysSleep(1) did not block")
	}
	if p.deltaKey != 1 {
		t.Fatalf("deltaKey = %d, want 1 (any positive duration is at least one tick)", p.deltaKey)
	}
}
