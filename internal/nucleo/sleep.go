package nucleo

import "github.com/mlitov/nucleo/internal/hal"

// sysSleep implements syssleep: converts a millisecond duration into
// ticks of the kernel's time slice (rounding up, and treating any
// positive duration as at least one tick so a caller asking to sleep
// briefly can't get zero ticks and never block), and inserts the current
// process into the sleep delta list. Returns whether the caller blocks;
// sleep(0) is a no-op success, matching syssleep's ms == 0 fast path.
func (k *Kernel) sysSleep(args hal.SleepArgs) bool {
	if args.Milliseconds == 0 {
		return false
	}
	ticks := int(args.Milliseconds) / k.timeSliceMillis
	if int(args.Milliseconds)%k.timeSliceMillis != 0 {
		ticks++
	}
	if ticks <= 0 {
		ticks = 1
	}

	k.current.state = StateBlocked
	k.current.blockReason = BlockSleep
	k.sleepList.Insert(k.current, ticks)
	return true
}
