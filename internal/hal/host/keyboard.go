package host

import (
	"sync"

	"github.com/mlitov/nucleo/internal/hal"
)

// scanCodeOf is the host's own copy of the classic PC scan-code table (the
// keyboard controller's encoding side); internal/nucleo/kbd keeps an
// independent decoding copy, matching two real, separately-maintained
// hardware/software layers.
var scanCodeOf = map[rune]byte{
	27: 1, '1': 2, '2': 3, '3': 4, '4': 5, '5': 6, '6': 7, '7': 8, '8': 9, '9': 10,
	'0': 11, '-': 12, '=': 13, '\b': 14, '\t': 15,
	'q': 16, 'w': 17, 'e': 18, 'r': 19, 't': 20, 'y': 21, 'u': 22, 'i': 23, 'o': 24, 'p': 25,
	'[': 26, ']': 27, '\n': 28,
	'a': 30, 's': 31, 'd': 32, 'f': 33, 'g': 34, 'h': 35, 'j': 36, 'k': 37, 'l': 38, ';': 39, '\'': 40, '`': 41,
	'\\': 43, 'z': 44, 'x': 45, 'c': 46, 'v': 47, 'b': 48, 'n': 49, 'm': 50, ',': 51, '.': 52, '/': 53,
	' ': 57,
}

// Keyboard is a push-driven hal.KeyboardPort: scan codes (or runes, via
// PushString) fed in through Push are queued, with a keyboard interrupt
// injected per pending byte, exactly the way a real key-down asserts IRQ1.
// Nothing in this package reads stdin; input arrives only through Push.
type Keyboard struct {
	sw injector
	mu sync.Mutex
	q  []byte
}

func NewKeyboard(sw injector) *Keyboard {
	return &Keyboard{sw: sw}
}

func (k *Keyboard) StatusReady() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.q) > 0
}

func (k *Keyboard) ReadScanCode() byte {
	k.mu.Lock()
	defer k.mu.Unlock()
	if len(k.q) == 0 {
		return 0
	}
	c := k.q[0]
	k.q = k.q[1:]
	return c
}

// Push queues a raw scan code and injects the interrupt, for tests that
// want to drive exact hardware codes (including unmapped/garbage ones).
func (k *Keyboard) Push(scanCode byte) {
	k.mu.Lock()
	k.q = append(k.q, scanCode)
	k.mu.Unlock()
	k.sw.InjectInterrupt(hal.Request{Kind: hal.ReqKeyboardInterrupt})
}

// PushString is host convenience: translate each rune through the table
// above and push it, one interrupt per key, the way typing would.
func (k *Keyboard) PushString(s string) {
	for _, r := range s {
		if code, ok := scanCodeOf[r]; ok {
			k.Push(code)
		}
	}
}
