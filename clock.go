package rpio

import (
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
	"periph.io/x/conn/v3/physic"
)

// Clock manager registers of the PWM clock (32 bit word offsets)
const (
	cmPWMCtl = 40
	cmPWMDiv = 41
)

// Every write to a clock manager register must carry the password in its
// top byte, writes without it are silently ignored by the hardware.
const (
	cmPasswd uint32 = 0x5A << 24

	cmCtlBusy uint32 = 1 << 7
	cmCtlKill uint32 = 1 << 5
	cmCtlEnab uint32 = 1 << 4

	cmSrcOsc  uint32 = 1 //  19.2 MHz
	cmSrcPLLD uint32 = 6 // 500.0 MHz

	cmDivIMask uint32 = 0xfff // integer divider is 12 bits
)

// PLLDFrequency is the rate of the PLLD clock source feeding the PWM clock.
const PLLDFrequency = 500 * physic.MegaHertz

// Settle times of the clock generator. Control register changes take effect
// asynchronously and the generator misbehaves when written too early.
const (
	clockSettle = 10 * time.Microsecond
	clockEnable = 2000 * time.Microsecond

	// Bound on BUSY polls after killing the clock, in clockSettle steps.
	clockBusyPolls = 100
)

func cmCtlMash(x uint32) uint32 { return x << 9 }
func cmCtlSrc(x uint32) uint32  { return x }
func cmDivI(x uint32) uint32    { return (x & cmDivIMask) << 12 }
func cmDivF(x uint32) uint32    { return x & cmDivIMask }

// ClockManager programs the PWM clock generator.
type ClockManager struct {
	regs   Window
	clock  clock.Clock
	logger *zap.Logger
}

// Configure stops the PWM clock, programs the integer divider, selects PLLD
// without MASH filtering and enables the clock again. The divider only has
// 12 bits; higher bits are dropped.
func (c *ClockManager) Configure(divider uint32) {
	if divider == 0 || divider > cmDivIMask {
		c.logger.Warn("clock divider outside the 12 bit field",
			zap.Uint32("divider", divider),
			zap.Uint32("programmed", divider&cmDivIMask))
	}

	c.regs.Store(cmPWMCtl, cmPasswd|cmCtlKill)
	c.clock.Sleep(clockSettle)
	c.waitIdle()

	c.regs.Store(cmPWMDiv, cmPasswd|cmDivI(divider)|cmDivF(0))
	c.clock.Sleep(clockSettle)

	c.regs.Store(cmPWMCtl, cmPasswd|cmCtlMash(0)|cmCtlSrc(cmSrcPLLD))
	c.clock.Sleep(clockSettle)

	c.regs.Store(cmPWMCtl, c.regs.Load(cmPWMCtl)|cmPasswd|cmCtlEnab)
	c.clock.Sleep(clockEnable)

	c.logger.Debug("pwm clock enabled",
		zap.Uint32("divider", divider&cmDivIMask),
		zap.Stringer("rate", BitRate(divider)))
}

// waitIdle polls BUSY until the generator has stopped.
func (c *ClockManager) waitIdle() {
	for i := 0; i < clockBusyPolls; i++ {
		if c.regs.Load(cmPWMCtl)&cmCtlBusy == 0 {
			return
		}
		c.clock.Sleep(clockSettle)
	}
	c.logger.Warn("pwm clock still busy after kill")
}

// BitRate returns the serializer bit rate produced by divider.
func BitRate(divider uint32) physic.Frequency {
	divider &= cmDivIMask
	if divider == 0 {
		return 0
	}
	return PLLDFrequency / physic.Frequency(divider)
}
