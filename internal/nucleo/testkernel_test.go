package nucleo

import (
	"github.com/sirupsen/logrus"

	"github.com/mlitov/nucleo/internal/config"
	"github.com/mlitov/nucleo/internal/hal"
	"github.com/mlitov/nucleo/internal/hal/host"
)

// newTestKernel builds a Kernel wired to a real host.Board, quiet enough for
// test output, for exercising kernel-internal methods (send/recv/signal/
// sleep) directly without driving the full Run() dispatch loop.
func newTestKernel(tableSize int) *Kernel {
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

// spawnPCB carves out a live table slot for direct manipulation in tests
// that exercise kernel-internal state machines rather than the full
// create()/Run() path.
func spawnPCB(k *Kernel) *PCB {
	p := k.table.AllocSlot()
	p.state = StateRunning
	k.userProcCount++
	return p
}
