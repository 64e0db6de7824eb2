// Command nucleo boots a nucleo.Kernel on the host board: it loads
// configuration, builds the hal.Board, constructs the kernel, creates an
// initial process, and runs the dispatch loop until interrupted.
//
// It reads config, stands up logging, initializes kernel structures,
// creates the first process, and hands off to the dispatch loop.
package main

import (
	"flag"
	"os"
	"time"

	"github.com/mlitov/nucleo/internal/config"
	"github.com/mlitov/nucleo/internal/hal"
	"github.com/mlitov/nucleo/internal/hal/host"
	"github.com/mlitov/nucleo/internal/logging"
	"github.com/mlitov/nucleo/internal/nucleo"
)

func main() {
	configPath := flag.String("config", "", "path to a JSON config file (optional)")
	flag.Parse()

	cfg := config.Load(*configPath)
	log := logging.New(cfg.LogLevel)

	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("nucleo halted")
			os.Exit(1)
		}
	}()

	switcher := host.NewSwitcher(log.WithField("component", "ctsw"))
	board := hal.Board{
		Switcher:   switcher,
		Stacks:     host.NewAllocator(cfg.StackBudget),
		Interrupts: host.NewPIC(log.WithField("component", "pic")),
		Clock:      host.NewClock(switcher),
		Keyboard:   host.NewKeyboard(switcher),
	}

	k := nucleo.New(log, cfg, board)

	pid := k.CreateInitial(initProcess, nucleo.InitPriority, cfg.StackSize)
	if pid <= 0 {
		log.WithField("code", pid).Fatal("could not create initial process")
	}
	log.WithField("pid", pid).Info("initial process created")

	board.Clock.ArmTick(time.Duration(cfg.TimeSliceMillis) * time.Millisecond)
	k.Run()
}

// initProcess is the demo binary's first process: it opens the echoing
// keyboard device and reads a line at a time, writing each back out via
// puts, until it sees EOF.
func initProcess(sys *hal.Syscalls) {
	fd32 := sys.Open(nucleo.DevKeyboard1)
	if fd32 < 0 {
		sys.Puts("nucleo: could not open keyboard")
		return
	}
	fd := int(fd32)
	defer sys.Close(fd)

	for {
		code, data := sys.Read(fd, 128)
		if code == 0 {
			sys.Puts("nucleo: eof, stopping")
			return
		}
		if code < 0 {
			continue
		}
		sys.Puts(string(data))
	}
}

