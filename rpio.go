/*

Package rpio drives the PWM peripheral of the BCM2835 family (Raspberry Pi)
as a serializer: instead of generating a duty cycle, the PWM FIFO is filled
with a bit pattern which the hardware shifts out onto a GPIO pin at a rate
set by the PWM clock. No external c libraries (ex: pigpio) are needed.

Three register blocks are memory mapped from /dev/mem:
- Clock manager (PWM clock source and divider)
- GPIO (pin function select, levels, pulls)
- PWM (control, status, range, FIFO)

Example of use:

	p, err := rpio.Open(rpio.MapConfig{})
	if err != nil {
		return err
	}

	d := rpio.NewDriver(p, rpio.DefaultConfig())
	d.Run()

The library uses the raw BCM2835 pin numbers, not the physical header pins.
The default output is BCM 18 (physical pin 12) in its PWM0 alternate function.

See the BCM2835 peripherals datasheet for register details:
http://www.raspberrypi.org/wp-content/uploads/2012/02/BCM2835-ARM-Peripherals.pdf

*/

package rpio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/stianeikeland/go-rpio-pulse/sim"
)

// Memory offsets of the peripheral blocks, see the datasheet for more details
const (
	bcm2835Base = 0x20000000

	clkOffset  = 0x101000
	gpioOffset = 0x200000
	pwmOffset  = 0x20C000

	clkLength  = 0xA8
	gpioLength = 0xB4
	pwmLength  = 0x28

	defaultMemDevice = "/dev/mem"
	socRangesPath    = "/proc/device-tree/soc/ranges"
)

// MapConfig selects where the register windows are mapped from.
type MapConfig struct {
	// Device is the physical memory device, /dev/mem when empty.
	Device string `yaml:"device"`

	// Base is the physical peripheral base address. Zero means detect it
	// from the device tree.
	Base int64 `yaml:"base"`
}

// Peripherals owns the clock, GPIO and PWM register windows. A single value
// is created at startup and handed to every controller; it is not safe for
// concurrent use.
type Peripherals struct {
	clk  Window
	gpio Window
	pwm  Window

	clock  clock.Clock
	logger *zap.Logger

	mapped []*mmapWindow
}

// Option configures a Peripherals.
type Option func(*Peripherals)

// WithClock sets the clock used for settle delays.
func WithClock(c clock.Clock) Option {
	return func(p *Peripherals) {
		p.clock = c
	}
}

// WithLogger sets the logger used by the controllers.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Peripherals) {
		p.logger = logger
	}
}

// NewPeripherals builds a set from already available register windows.
func NewPeripherals(clk, gpio, pwm Window, opts ...Option) *Peripherals {
	p := &Peripherals{
		clk:    clk,
		gpio:   gpio,
		pwm:    pwm,
		clock:  clock.New(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Open memory maps the clock, GPIO and PWM registers. Either all three
// windows are mapped or none are. Every returned error matches
// ErrPeripheralUnavailable.
func Open(cfg MapConfig, opts ...Option) (*Peripherals, error) {
	path := cfg.Device
	if path == "" {
		path = defaultMemDevice
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, &UnavailableError{Op: "open", Path: path, Err: err}
	}

	// FD can be closed after memory mapping
	defer file.Close()

	base := cfg.Base
	if base == 0 {
		base = getPeripheralBase(socRangesPath)
	}

	var mapped []*mmapWindow
	for _, r := range []struct {
		offset int64
		length int
	}{
		{clkOffset, clkLength},
		{gpioOffset, gpioLength},
		{pwmOffset, pwmLength},
	} {
		w, err := mapWindow(int(file.Fd()), base+r.offset, r.length)
		if err != nil {
			for _, m := range mapped {
				err = multierr.Append(err, m.unmap())
			}
			return nil, &UnavailableError{Op: "mmap", Path: path, Err: err}
		}
		mapped = append(mapped, w)
	}

	p := NewPeripherals(mapped[0], mapped[1], mapped[2], opts...)
	p.mapped = mapped
	p.logger.Debug("mapped peripherals",
		zap.String("device", path),
		zap.String("base", fmt.Sprintf("%#08x", base)))
	return p, nil
}

// Simulate returns peripherals backed by memory instead of /dev/mem. Every
// register store is recorded in j.
func Simulate(j *sim.Journal, opts ...Option) *Peripherals {
	return NewPeripherals(
		sim.NewWindow("clk", clkLength, j),
		sim.NewWindow("gpio", gpioLength, j),
		sim.NewWindow("pwm", pwmLength, j),
		opts...)
}

// Close unmaps the register windows created by Open. Process exit does the
// same, so short lived programs need not call it.
func (p *Peripherals) Close() error {
	var err error
	for _, m := range p.mapped {
		err = multierr.Append(err, m.unmap())
	}
	p.mapped = nil
	return err
}

// GPIO returns the controller for the GPIO block.
func (p *Peripherals) GPIO() *GPIO {
	return &GPIO{regs: p.gpio, clock: p.clock}
}

// Clock returns the configurator for the PWM clock.
func (p *Peripherals) Clock() *ClockManager {
	return &ClockManager{regs: p.clk, clock: p.clock, logger: p.logger}
}

// PWM returns the FIFO serializer of PWM channel 1.
func (p *Peripherals) PWM() *Serializer {
	return &Serializer{regs: p.pwm, clock: p.clock}
}

// Read the soc ranges node and determine the peripheral base address.
// Use the default Raspberry Pi 1 base address if this fails.
func getPeripheralBase(path string) (base int64) {
	base = bcm2835Base
	ranges, err := os.Open(path)
	if err != nil {
		return
	}
	defer ranges.Close()

	// The cpu address follows the child bus address; the BCM2711 layout
	// has a zero word first and the address one cell later.
	for _, offset := range []int64{4, 8} {
		b := make([]byte, 4)
		n, err := ranges.ReadAt(b, offset)
		if n != 4 || err != nil {
			return
		}
		var out uint32
		if err := binary.Read(bytes.NewReader(b), binary.BigEndian, &out); err != nil {
			return
		}
		if out != 0 {
			return int64(out)
		}
	}
	return
}
