package nucleo

import (
	"github.com/sirupsen/logrus"

	"github.com/mlitov/nucleo/internal/hal"
)

// kbdBufferSize is the ring buffer's array size, one slot larger than its
// usable capacity of 4 under the classic "one empty slot" full/empty test.
const kbdBufferSize = 4 + 1

// ioctl commands the keyboard driver understands, numbered the way the
// original's IOCTL_CHANGE_EOF/IOCTL_ECHO_OFF/IOCTL_ECHO_ON constants are.
const (
	IoctlChangeEOF = 53
	IoctlEchoOff   = 55
	IoctlEchoOn    = 56
)

const defaultEOF = 0x04 // Ctrl-D, the classic EOT byte

// kbcode is the driver's own decoding copy of the classic PC scan-code
// table (index = scan code, value = unshifted ASCII); hal/host keeps an
// independent encoding copy, the way two real, separately-maintained
// hardware/software layers would.
var kbcode = [...]byte{0,
	27, '1', '2', '3', '4', '5', '6', '7', '8', '9',
	'0', '-', '=', '\b', '\t', 'q', 'w', 'e', 'r', 't',
	'y', 'u', 'i', 'o', 'p', '[', ']', '\n', 0, 'a',
	's', 'd', 'f', 'g', 'h', 'j', 'k', 'l', ';', '\'',
	'`', 0, '\\', 'z', 'x', 'c', 'v', 'b', 'n', 'm',
	',', '.', '/', 0, 0, 0, ' ',
}

// kbcodeShifted is the shifted layer of the same table, used when either
// shift key is held (and inverted by caps lock for letters).
var kbcodeShifted = [...]byte{0,
	27, '!', '@', '#', '$', '%', '^', '&', '*', '(',
	')', '_', '+', '\b', '\t', 'Q', 'W', 'E', 'R', 'T',
	'Y', 'U', 'I', 'O', 'P', '{', '}', '\n', 0, 'A',
	'S', 'D', 'F', 'G', 'H', 'J', 'K', 'L', ':', '"',
	'~', 0, '|', 'Z', 'X', 'C', 'V', 'B', 'N', 'M',
	'<', '>', '?', 0, 0, 0, ' ',
}

const (
	scLeftShift  = 42
	scRightShift = 54
	scLeftCtrl   = 29
	scCapsLock   = 58
	scReleaseBit = 0x80
)

// keyboard is the singleton keyboard controller behind both major device
// numbers: xeroskernel only ever allows one of KBD_0/KBD_1 to be open at a
// time because there is exactly one physical keyboard.
type keyboard struct {
	log  *logrus.Entry
	port hal.KeyboardPort

	openerPID int32 // 0 means not open
	deviceNo  int
	echoFlag  bool

	// echoDefault is the boot-configured floor for minor 0's echo policy:
	// minor 1 always echoes regardless, but minor 0 only echoes by default
	// when the configuration asks for it.
	echoDefault bool

	shift, ctrl, capsLock bool

	buf        [kbdBufferSize]byte
	head, tail int

	eofChar byte
	eofFlag bool

	readerPID   int32
	readBuflen  int
	transferred int
	readPending bool
	pendingOut  []byte
}

func newKeyboard(log *logrus.Entry, port hal.KeyboardPort, echoDefault bool) *keyboard {
	return &keyboard{log: log, port: port, eofChar: defaultEOF, echoDefault: echoDefault}
}

// deviceFor builds the DII vtable for one of the two keyboard major device
// numbers, both bound to this same physical keyboard singleton.
func (k *keyboard) deviceFor(deviceNo int) *device {
	return &device{
		name:  "keyboard",
		open:  func(p *PCB, no int) int32 { return k.open(p, no) },
		close: func(p *PCB) int32 { return k.close(p) },
		read:  func(p *PCB, buflen int) (int32, []byte) { return k.read(p, buflen) },
		write: func(p *PCB, buf []byte) int32 { return k.writeSyscall(p, buf) },
		ioctl: func(p *PCB, command int, args any) int32 { return k.ioctl(p, command, args) },
	}
}

func (k *keyboard) reset() {
	k.head, k.tail = 0, 0
	for i := range k.buf {
		k.buf[i] = 0
	}
	k.readerPID = 0
	k.readBuflen = 0
	k.transferred = 0
	k.readPending = false
	k.eofFlag = false
	k.eofChar = defaultEOF
	k.shift, k.ctrl, k.capsLock = false, false, false
}

func (k *keyboard) full() bool {
	return (k.head+1)%kbdBufferSize == k.tail
}

func (k *keyboard) empty() bool {
	return k.head == k.tail
}

// write appends c to the ring buffer, silently dropping it if full — the
// original's write_to_kbd_buf makes the same tradeoff rather than
// blocking the ISR.
func (k *keyboard) write(c byte) {
	if k.full() {
		k.log.Warn("keyboard buffer full, dropping input byte")
		return
	}
	k.buf[k.head] = c
	k.head = (k.head + 1) % kbdBufferSize
}

func (k *keyboard) pop() (byte, bool) {
	if k.empty() {
		return 0, false
	}
	c := k.buf[k.tail]
	k.tail = (k.tail + 1) % kbdBufferSize
	return c, true
}

// open enforces the single-open-system-wide rule and sets the per-device
// echo default: device 1 always echoes, device 0 only echoes when the
// boot configuration's keyboard_echo_default asks for it.
func (k *keyboard) open(p *PCB, deviceNo int) int32 {
	if k.openerPID != 0 {
		return -1
	}
	k.reset()
	k.openerPID = p.pid
	k.deviceNo = deviceNo
	k.echoFlag = deviceNo != DevKeyboard0 || k.echoDefault
	return 0
}

func (k *keyboard) close(p *PCB) int32 {
	if k.openerPID != p.pid {
		return -1
	}
	k.reset()
	k.openerPID = 0
	return 0
}

// write (syswrite to the keyboard) is nonsensical for an input device and
// always fails, matching kbdwrite.
func (k *keyboard) writeSyscall(p *PCB, buf []byte) int32 {
	return -1
}

// read implements the upper half: it drains whatever's already buffered
// into the caller's request, completing it synchronously when possible and
// otherwise leaving the request pending for the lower half to finish.
func (k *keyboard) read(p *PCB, buflen int) (int32, []byte) {
	if k.eofFlag {
		return 0, nil
	}
	k.readerPID = p.pid
	k.readBuflen = buflen
	k.transferred = 0
	k.readPending = true

	out := make([]byte, 0, buflen)
	done := k.drain(&out)
	if done {
		k.readPending = false
		return int32(len(out)), out
	}
	// Not enough buffered input to satisfy the request yet: the caller
	// blocks and the ISR will finish this read later.
	k.pendingOut = out
	return -2, nil
}

// drain copies buffered bytes into out until it hits buflen, a newline, or
// EOF, matching copy_char_to_read_buf / transfer_to_read_buf's stopping
// conditions.
func (k *keyboard) drain(out *[]byte) bool {
	for len(*out) < k.readBuflen {
		c, ok := k.pop()
		if !ok {
			return false
		}
		if c == k.eofChar {
			k.eofFlag = true
			disableKeyboardHardware(k)
			return true
		}
		*out = append(*out, c)
		k.transferred++
		if c == '\n' || len(*out) == k.readBuflen {
			return true
		}
	}
	return true
}

func disableKeyboardHardware(k *keyboard) {
	// Stands in for the original's outb(CONTROL_PORT, 0xAD) + IRQ mask;
	// with no real PIC line to mask, disabling just means "stop caring
	// about further scan codes for this open", enforced by eofFlag.
}

func (k *keyboard) ioctl(p *PCB, command int, args any) int32 {
	switch command {
	case IoctlChangeEOF:
		c, ok := args.(byte)
		if !ok || c == 0 || c > 127 {
			return -1
		}
		k.eofChar = c
		return 0
	case IoctlEchoOff:
		k.echoFlag = false
		return 0
	case IoctlEchoOn:
		k.echoFlag = true
		return 0
	default:
		return -1
	}
}

// isr is the lower half: called once per keyboard hardware interrupt. It
// drains every scan code currently ready, updates modifier state, and
// appends translated ASCII to the ring buffer, echoing and servicing a
// pending read as it goes. It returns the reader PCB's pid and its final
// result if a pending read was completed by this interrupt.
func (k *keyboard) isr() (finishedPID int32, result int32, data []byte, finished bool) {
	for k.port.StatusReady() {
		sc := k.port.ReadScanCode()
		release := sc&scReleaseBit != 0
		code := sc &^ scReleaseBit

		switch code {
		case scLeftShift, scRightShift:
			k.shift = !release
			continue
		case scLeftCtrl:
			k.ctrl = !release
			continue
		case scCapsLock:
			if !release {
				k.capsLock = !k.capsLock
			}
			continue
		}
		if release || int(code) >= len(kbcode) {
			continue
		}

		c := k.translate(code)
		if c == 0 {
			continue
		}
		k.write(c)
		if k.echoFlag {
			k.log.WithField("char", string(c)).Trace("keyboard echo")
		}

		if k.readPending {
			out := k.pendingOut
			if k.drain(&out) {
				k.readPending = false
				return k.readerPID, int32(len(out)), out, true
			}
			k.pendingOut = out
		}
	}
	return 0, 0, nil, false
}

func (k *keyboard) translate(code byte) byte {
	var c byte
	if k.shift {
		c = kbcodeShifted[code]
	} else {
		c = kbcode[code]
	}
	if k.capsLock && c >= 'a' && c <= 'z' {
		c -= 'a' - 'A'
	} else if k.capsLock && k.shift && c >= 'A' && c <= 'Z' {
		c += 'a' - 'A'
	}
	if k.ctrl && c >= 'a' && c <= 'z' {
		c = c - 'a' + 1
	} else if k.ctrl && c >= 'A' && c <= 'Z' {
		c = c - 'A' + 1
	}
	return c
}
