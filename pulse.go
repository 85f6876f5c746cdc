package rpio

import (
	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

// Driver emits a pulse train on one pin.
type Driver struct {
	cfg Config

	gpio   *GPIO
	clk    *ClockManager
	pwm    *Serializer
	clock  clock.Clock
	logger *zap.Logger
}

// NewDriver wires the controllers of p for cfg.
func NewDriver(p *Peripherals, cfg Config) *Driver {
	return &Driver{
		cfg:    cfg,
		gpio:   p.GPIO(),
		clk:    p.Clock(),
		pwm:    p.PWM(),
		clock:  p.clock,
		logger: p.logger,
	}
}

// Run claims the pin, configures the PWM clock once and emits the
// configured number of pulses. It blocks until the last pulse has been
// started and cannot be interrupted part way.
func (d *Driver) Run() {
	d.gpio.SetMode(d.cfg.Pin, d.cfg.Mode)
	d.clk.Configure(d.cfg.Divider)

	d.logger.Info("emitting pulses",
		zap.Uint8("pin", d.cfg.Pin),
		zap.Int("bits", d.cfg.Bits),
		zap.Int("pulses", d.cfg.Pulses),
		zap.Stringer("rate", BitRate(d.cfg.Divider)))

	for i := 0; i < d.cfg.Pulses; i++ {
		d.pwm.EmitPulse(d.cfg.Bits)
		d.clock.Sleep(d.cfg.Interval)
	}
}

// Run maps the peripherals and emits the pulse train described by cfg. The
// only errors are configuration errors and ErrPeripheralUnavailable.
func Run(cfg Config, opts ...Option) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	p, err := Open(cfg.Map, opts...)
	if err != nil {
		return err
	}

	NewDriver(p, cfg).Run()
	return nil
}
