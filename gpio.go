package rpio

import (
	"time"

	"github.com/benbjohnson/clock"
)

type Mode uint8
type State uint8
type Pull uint8

// GPIO register offsets (32 bit words) and field masks
const (
	gpfsel0   = 0  // function select, 10 pins per register
	gpset0    = 7  // set, 7 / 8 depending on bank
	gpclr0    = 10 // clear, 10 / 11 depending on bank
	gplev0    = 13 // level, 13 / 14 depending on bank
	gppud     = 37 // pull up/down
	gppudclk0 = 38 // pull clock, 38 / 39 depending on bank

	modeMask uint32 = 7 // 0b111 - pinmode is 3 bits
	pullMask uint32 = 3

	pullSettle = time.Microsecond
)

// Pin function select values. Note that the alternate functions are not
// numbered in order.
const (
	Input  Mode = 0 // 0b000
	Output Mode = 1 // 0b001
	Alt0   Mode = 4 // 0b100
	Alt1   Mode = 5 // 0b101
	Alt2   Mode = 6 // 0b110
	Alt3   Mode = 7 // 0b111
	Alt4   Mode = 3 // 0b011
	Alt5   Mode = 2 // 0b010
)

// PWM is the function select value routing PWM0 to BCM 18.
const PWM = Alt5

// State of pin, High / Low
const (
	Low State = iota
	High
)

// Pull Up / Down / Off
const (
	PullOff Pull = iota
	PullDown
	PullUp
)

// GPIO controls pin functions and levels through the GPIO register window.
type GPIO struct {
	regs  Window
	clock clock.Clock
}

// SetMode sets the 3 bit function select field of pin, leaving every other
// pin's field untouched.
func (g *GPIO) SetMode(pin uint8, mode Mode) {
	fsel := gpfsel0 + int(pin)/10
	shift := (pin % 10) * 3

	g.regs.Store(fsel, g.regs.Load(fsel)&^(modeMask<<shift)|(uint32(mode)&modeMask)<<shift)
}

// Mode returns the function select field of pin.
func (g *GPIO) Mode(pin uint8) Mode {
	fsel := gpfsel0 + int(pin)/10
	shift := (pin % 10) * 3

	return Mode((g.regs.Load(fsel) >> shift) & modeMask)
}

// Write sets a given pin High or Low
// by setting the clear or set registers respectively
func (g *GPIO) Write(pin uint8, state State) {
	bank := int(pin) / 32
	bit := uint32(1) << (pin & 31)

	if state == Low {
		g.regs.Store(gpclr0+bank, bit)
	} else {
		g.regs.Store(gpset0+bank, bit)
	}
}

// Read the state of a pin
func (g *GPIO) Read(pin uint8) State {
	bank := int(pin) / 32

	if g.regs.Load(gplev0+bank)&(1<<(pin&31)) != 0 {
		return High
	}

	return Low
}

// Toggle a pin state (high -> low -> high)
func (g *GPIO) Toggle(pin uint8) {
	switch g.Read(pin) {
	case Low:
		g.Write(pin, High)
	case High:
		g.Write(pin, Low)
	}
}

// Pull sets the pull up/down/off state of pin.
func (g *GPIO) Pull(pin uint8, pull Pull) {
	clkReg := gppudclk0 + int(pin)/32
	shift := pin & 31

	switch pull {
	case PullDown, PullUp:
		g.regs.Store(gppud, g.regs.Load(gppud)&^pullMask|uint32(pull))
	case PullOff:
		g.regs.Store(gppud, g.regs.Load(gppud)&^pullMask)
	}

	// Wait for value to clock in
	g.clock.Sleep(pullSettle)

	g.regs.Store(clkReg, 1<<shift)

	g.clock.Sleep(pullSettle)

	g.regs.Store(gppud, g.regs.Load(gppud)&^pullMask)
	g.regs.Store(clkReg, 0)
}

// Pin binds a pin number to a controller.
func (g *GPIO) Pin(pin uint8) Pin {
	return Pin{num: pin, gpio: g}
}

// Pin is a single GPIO line.
type Pin struct {
	num  uint8
	gpio *GPIO
}

// Number returns the BCM number of the pin.
func (pin Pin) Number() uint8 {
	return pin.num
}

// Set pin as Input
func (pin Pin) Input() {
	pin.gpio.SetMode(pin.num, Input)
}

// Set pin as Output
func (pin Pin) Output() {
	pin.gpio.SetMode(pin.num, Output)
}

// Set pin function
func (pin Pin) Mode(mode Mode) {
	pin.gpio.SetMode(pin.num, mode)
}

// Get pin function
func (pin Pin) Function() Mode {
	return pin.gpio.Mode(pin.num)
}

// Set pin High
func (pin Pin) High() {
	pin.gpio.Write(pin.num, High)
}

// Set pin Low
func (pin Pin) Low() {
	pin.gpio.Write(pin.num, Low)
}

// Toggle pin state
func (pin Pin) Toggle() {
	pin.gpio.Toggle(pin.num)
}

// Set pin state (high/low)
func (pin Pin) Write(state State) {
	pin.gpio.Write(pin.num, state)
}

// Read pin state (high/low)
func (pin Pin) Read() State {
	return pin.gpio.Read(pin.num)
}

// Set a given pull up/down mode
func (pin Pin) Pull(pull Pull) {
	pin.gpio.Pull(pin.num, pull)
}

// Pull up pin
func (pin Pin) PullUp() {
	pin.gpio.Pull(pin.num, PullUp)
}

// Pull down pin
func (pin Pin) PullDown() {
	pin.gpio.Pull(pin.num, PullDown)
}

// Disable pullup/down on pin
func (pin Pin) PullOff() {
	pin.gpio.Pull(pin.num, PullOff)
}
