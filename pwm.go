package rpio

import (
	"time"

	"github.com/benbjohnson/clock"
)

// PWM registers (32 bit word offsets)
const (
	pwmCtl  = 0
	pwmSta  = 1
	pwmDmac = 2
	pwmRng1 = 4
	pwmDat1 = 5
	pwmFifo = 6
	pwmRng2 = 8
	pwmDat2 = 9
)

// PWM control bits of channel 1
const (
	pwmCtlClrf1 uint32 = 1 << 6
	pwmCtlUsef1 uint32 = 1 << 5
	pwmCtlMode1 uint32 = 1 << 1
	pwmCtlPwen1 uint32 = 1 << 0

	pwmStaClearAll uint32 = 0xFFFFFFFF
)

const (
	// TransferWords is the number of FIFO words pushed for every pulse, so
	// all pulses last equally long whatever their bit count.
	TransferWords = 8

	// WordBits is the serializer range: every FIFO word is shifted out whole.
	WordBits = 32

	// MaxBits is the longest run of high bits a pulse can hold.
	MaxBits = TransferWords * WordBits
)

// The PWM block is rumored to lock up when written without these pauses.
const (
	pwmSettle     = 10 * time.Microsecond
	pwmLongSettle = 20 * time.Microsecond
)

// Transfer is the bit pattern of one pulse, as written to the FIFO.
type Transfer [TransferWords]uint32

// NewTransfer returns a pattern of bits high bits, MSB first, followed by
// low bits up to MaxBits. bits is clamped to [1, MaxBits].
func NewTransfer(bits int) Transfer {
	if bits < 1 {
		bits = 1
	}
	if bits > MaxBits {
		bits = MaxBits
	}

	var t Transfer
	for i := range t {
		switch {
		case bits >= WordBits:
			t[i] = 0xFFFFFFFF
			bits -= WordBits
		case bits > 0:
			t[i] = ^uint32(0) << (WordBits - bits)
			bits = 0
		}
	}
	return t
}

// Ones counts the leading high bits of the pattern.
func (t Transfer) Ones() int {
	n := 0
	for _, w := range t {
		for b := WordBits - 1; b >= 0; b-- {
			if w&(1<<uint(b)) == 0 {
				return n
			}
			n++
		}
	}
	return n
}

// Serializer drives PWM channel 1 in FIFO serializer mode.
type Serializer struct {
	regs  Window
	clock clock.Clock
}

// EmitPulse resets the channel, fills the FIFO with NewTransfer(bits) and
// starts the serializer. It does not wait for the FIFO to drain; the caller
// spaces pulses.
func (s *Serializer) EmitPulse(bits int) {
	s.reset()

	for _, w := range NewTransfer(bits) {
		s.regs.Store(pwmFifo, w)
		s.clock.Sleep(pwmSettle)
	}

	s.clock.Sleep(pwmSettle)

	// enable channel 1 in serializer mode, fed from the fifo
	s.regs.Store(pwmCtl, pwmCtlUsef1|pwmCtlMode1|pwmCtlPwen1)
}

// reset disables the channel, clears its status and fifo and sets a
// 32 bit range.
func (s *Serializer) reset() {
	s.regs.Store(pwmCtl, 0)
	s.clock.Sleep(pwmSettle)

	s.regs.Store(pwmSta, pwmStaClearAll)
	s.clock.Sleep(pwmSettle)

	s.regs.Store(pwmRng1, WordBits)
	s.clock.Sleep(pwmLongSettle)

	s.regs.Store(pwmCtl, pwmCtlClrf1)
	s.clock.Sleep(pwmLongSettle)
}
