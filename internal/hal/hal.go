// Package hal declares the external-collaborator contracts the kernel core
// drives but never implements directly: the context-switch primitive, the
// physical stack allocator, the interrupt controller, the clock, and the
// keyboard port. A concrete board (hal/host, or eventually real hardware)
// satisfies these; internal/nucleo only ever imports this package.
package hal

import "time"

// RequestKind identifies why control returned from a running process to the
// kernel: either a syscall trap or a hardware interrupt.
type RequestKind uint8

const (
	ReqCreate RequestKind = iota
	ReqYield
	ReqStop
	ReqGetPID
	ReqPuts
	ReqKill
	ReqSetPrio
	ReqSend
	ReqRecv
	ReqSleep
	ReqGetCPUTimes
	ReqSigHandler
	ReqSigReturn
	ReqWait
	ReqOpen
	ReqClose
	ReqWrite
	ReqRead
	ReqIoctl
	ReqTimerInterrupt
	ReqKeyboardInterrupt
)

func (k RequestKind) String() string {
	switch k {
	case ReqCreate:
		return "create"
	case ReqYield:
		return "yield"
	case ReqStop:
		return "stop"
	case ReqGetPID:
		return "getpid"
	case ReqPuts:
		return "puts"
	case ReqKill:
		return "kill"
	case ReqSetPrio:
		return "setprio"
	case ReqSend:
		return "send"
	case ReqRecv:
		return "recv"
	case ReqSleep:
		return "sleep"
	case ReqGetCPUTimes:
		return "getcputimes"
	case ReqSigHandler:
		return "sighandler"
	case ReqSigReturn:
		return "sigreturn"
	case ReqWait:
		return "wait"
	case ReqOpen:
		return "open"
	case ReqClose:
		return "close"
	case ReqWrite:
		return "write"
	case ReqRead:
		return "read"
	case ReqIoctl:
		return "ioctl"
	case ReqTimerInterrupt:
		return "timer_int"
	case ReqKeyboardInterrupt:
		return "keyboard_int"
	default:
		return "unknown"
	}
}

// Request is what a ContextSwitcher hands back to the dispatcher: the
// reason the CPU returned to kernel mode, plus a kind-specific payload. This
// stands in for the register file a real trap would leave behind.
type Request struct {
	Kind    RequestKind
	Payload any
}

// ProcessEntry is the signature a created process's user-mode code runs
// under. It is handed a *Syscalls, the only way user code reaches the
// kernel.
type ProcessEntry func(*Syscalls)

// TrapFunc performs one trap: it blocks the calling process until the
// kernel resumes it with a result code and an optional kind-specific
// result payload.
type TrapFunc func(Request) (result int32, out any)

// Syscalls is the trampoline user-mode code calls through; every method
// traps into the kernel and blocks until resumed.
type Syscalls struct {
	trap TrapFunc
}

func NewSyscalls(trap TrapFunc) *Syscalls {
	return &Syscalls{trap: trap}
}

// CreateArgs is the payload of a create trap; its result is the new pid.
type CreateArgs struct {
	Entry    ProcessEntry
	Priority int
	StackSize uint32
}

func (s *Syscalls) Create(entry ProcessEntry, priority int, stackSize uint32) int32 {
	r, _ := s.trap(Request{Kind: ReqCreate, Payload: CreateArgs{Entry: entry, Priority: priority, StackSize: stackSize}})
	return r
}

func (s *Syscalls) Yield() {
	s.trap(Request{Kind: ReqYield})
}

func (s *Syscalls) Stop() {
	s.trap(Request{Kind: ReqStop})
}

func (s *Syscalls) GetPID() int32 {
	r, _ := s.trap(Request{Kind: ReqGetPID})
	return r
}

type PutsArgs struct{ Str string }

func (s *Syscalls) Puts(str string) {
	s.trap(Request{Kind: ReqPuts, Payload: PutsArgs{Str: str}})
}

type KillArgs struct {
	PID    int32
	Signal int
}

func (s *Syscalls) Kill(pid int32, signal int) int32 {
	r, _ := s.trap(Request{Kind: ReqKill, Payload: KillArgs{PID: pid, Signal: signal}})
	return r
}

type SetPrioArgs struct{ Priority int }

func (s *Syscalls) SetPrio(priority int) int32 {
	r, _ := s.trap(Request{Kind: ReqSetPrio, Payload: SetPrioArgs{Priority: priority}})
	return r
}

type SendArgs struct {
	Dest int32
	Word uint32
}

func (s *Syscalls) Send(dest int32, word uint32) int32 {
	r, _ := s.trap(Request{Kind: ReqSend, Payload: SendArgs{Dest: dest, Word: word}})
	return r
}

type RecvArgs struct{ From int32 } // 0 means recv-any
type RecvResult struct {
	From int32
	Word uint32
}

func (s *Syscalls) Recv(from int32) (word uint32, sender int32, code int32) {
	r, out := s.trap(Request{Kind: ReqRecv, Payload: RecvArgs{From: from}})
	if res, ok := out.(RecvResult); ok {
		return res.Word, res.From, r
	}
	return 0, 0, r
}

type SleepArgs struct{ Milliseconds uint32 }

func (s *Syscalls) Sleep(ms uint32) int32 {
	r, _ := s.trap(Request{Kind: ReqSleep, Payload: SleepArgs{Milliseconds: ms}})
	return r
}

type CPUTimeEntry struct {
	PID      int32
	Priority int
	State    string
	CPUTicks uint64
}
type GetCPUTimesArgs struct {
	MaxEntries int
	Addr       uintptr // synthetic address of caller's output buffer, for argcheck
}
type GetCPUTimesResult struct {
	Entries []CPUTimeEntry
}

func (s *Syscalls) GetCPUTimes(addr uintptr, max int) (int32, []CPUTimeEntry) {
	r, out := s.trap(Request{Kind: ReqGetCPUTimes, Payload: GetCPUTimesArgs{MaxEntries: max, Addr: addr}})
	if res, ok := out.(GetCPUTimesResult); ok {
		return r, res.Entries
	}
	return r, nil
}

type SignalHandler func(cntx int32)

// SignalDelivery is a special resume payload: instead of the value the
// trapped call actually blocked for, the kernel hands the process this,
// asking its ContextSwitcher to run handler synchronously before looping
// back for the real resume value. This is what makes signal delivery
// transparent to whichever call was interrupted, the way a real CPU
// vectors to a handler without the interrupted instruction knowing.
type SignalDelivery struct {
	Handler SignalHandler
	Cntx    int32
}

type SigHandlerArgs struct {
	SignalNumber   int
	NewHandler     SignalHandler
	NewHandlerAddr uintptr // synthetic, for argcheck when non-zero
	OldHandlerAddr uintptr // synthetic, for argcheck when non-zero
}
type SigHandlerResult struct {
	OldHandler SignalHandler
}

func (s *Syscalls) SigHandler(signum int, newHandler SignalHandler, newHandlerAddr, oldHandlerAddr uintptr) (int32, SignalHandler) {
	r, out := s.trap(Request{Kind: ReqSigHandler, Payload: SigHandlerArgs{
		SignalNumber:   signum,
		NewHandler:     newHandler,
		NewHandlerAddr: newHandlerAddr,
		OldHandlerAddr: oldHandlerAddr,
	}})
	if res, ok := out.(SigHandlerResult); ok {
		return r, res.OldHandler
	}
	return r, nil
}

type SigReturnArgs struct{ Cntx int32 }

func (s *Syscalls) SigReturn(cntx int32) {
	s.trap(Request{Kind: ReqSigReturn, Payload: SigReturnArgs{Cntx: cntx}})
}

type WaitArgs struct{ PID int32 }

func (s *Syscalls) Wait(pid int32) int32 {
	r, _ := s.trap(Request{Kind: ReqWait, Payload: WaitArgs{PID: pid}})
	return r
}

type OpenArgs struct{ DeviceNo int }

func (s *Syscalls) Open(deviceNo int) int32 {
	r, _ := s.trap(Request{Kind: ReqOpen, Payload: OpenArgs{DeviceNo: deviceNo}})
	return r
}

type CloseArgs struct{ FD int }

func (s *Syscalls) Close(fd int) int32 {
	r, _ := s.trap(Request{Kind: ReqClose, Payload: CloseArgs{FD: fd}})
	return r
}

type WriteArgs struct {
	FD  int
	Buf []byte
}

func (s *Syscalls) Write(fd int, buf []byte) int32 {
	r, _ := s.trap(Request{Kind: ReqWrite, Payload: WriteArgs{FD: fd, Buf: buf}})
	return r
}

type ReadArgs struct {
	FD     int
	Buflen int
}
type ReadResult struct {
	Data []byte
}

func (s *Syscalls) Read(fd int, buflen int) (int32, []byte) {
	r, out := s.trap(Request{Kind: ReqRead, Payload: ReadArgs{FD: fd, Buflen: buflen}})
	if res, ok := out.(ReadResult); ok {
		return r, res.Data
	}
	return r, nil
}

type IoctlArgs struct {
	FD      int
	Command int
	Args    any
}

func (s *Syscalls) Ioctl(fd int, command int, args any) int32 {
	r, _ := s.trap(Request{Kind: ReqIoctl, Payload: IoctlArgs{FD: fd, Command: command, Args: args}})
	return r
}

// ContextSwitcher resumes the process owning pid's saved execution state
// until it re-enters the kernel, either because it trapped (a syscall) or
// because a hardware interrupt was injected while it ran. It stands in for
// ctsw.c's contextswitch().
type ContextSwitcher interface {
	// Start registers pid's entry point; it is not actually run until the
	// first Switch.
	Start(pid int32, entry ProcessEntry)
	// Switch resumes pid with the given result/out from its last trap (zero
	// values on first switch) and blocks until the kernel is re-entered.
	Switch(pid int32, result int32, out any) Request
	// Discard forgets a process's saved execution state, e.g. on exit.
	Discard(pid int32)
}

// StackAllocator stands in for the physical memory allocator create.c calls
// to obtain a new process's stack.
type StackAllocator interface {
	Alloc(size uint32) ([]byte, error)
	Free([]byte)
}

// InterruptController stands in for the 8259 end_of_intr() call the ISR
// epilogue makes before returning control to the dispatcher.
type InterruptController interface {
	EndOfInterrupt(kind RequestKind)
}

// Clock stands in for PIT programming: arms a periodic timer interrupt.
type Clock interface {
	ArmTick(period time.Duration)
	Stop()
}

// KeyboardPort stands in for the PS/2 status/data ports kbd.c's ISR polls.
type KeyboardPort interface {
	StatusReady() bool
	ReadScanCode() byte
}

// Board bundles every external collaborator the kernel needs at boot.
type Board struct {
	Switcher   ContextSwitcher
	Stacks     StackAllocator
	Interrupts InterruptController
	Clock      Clock
	Keyboard   KeyboardPort
}
