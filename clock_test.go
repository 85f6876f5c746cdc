package rpio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"periph.io/x/conn/v3/physic"

	"github.com/stianeikeland/go-rpio-pulse/sim"
)

func TestConfigureSequence(t *testing.T) {
	p, j, clk := newSimulated(t)

	p.Clock().Configure(500)

	assert.Equal(t, []sim.Write{
		{Window: "clk", Reg: cmPWMCtl, Val: 0x5A000020},           // kill
		{Window: "clk", Reg: cmPWMDiv, Val: 0x5A000000 | 500<<12}, // divi 500, divf 0
		{Window: "clk", Reg: cmPWMCtl, Val: 0x5A000006},           // plld, no mash
		{Window: "clk", Reg: cmPWMCtl, Val: 0x5A000016},           // enable
	}, j.Writes)
	assert.Equal(t, []time.Duration{
		10 * time.Microsecond,
		10 * time.Microsecond,
		10 * time.Microsecond,
		2000 * time.Microsecond,
	}, clk.Sleeps)
}

func TestConfigureRepeatable(t *testing.T) {
	p, j, _ := newSimulated(t)
	c := p.Clock()

	c.Configure(123)
	first := append([]sim.Write(nil), j.Writes...)
	j.Reset()
	c.Configure(123)

	assert.Equal(t, first, j.Writes)
}

func TestConfigureKeepsPassword(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	j := sim.NewJournal(nil)
	p := Simulate(j, WithClock(sim.NewClock()), WithLogger(zap.New(core)))

	p.Clock().Configure(5000)

	div := j.Values("clk", cmPWMDiv)
	require.Len(t, div, 1)
	assert.Equal(t, cmPasswd, div[0]&0xFF000000)
	assert.Equal(t, uint32(5000&0xfff), div[0]>>12&0xfff)
	assert.Equal(t, 1, logs.FilterMessage("clock divider outside the 12 bit field").Len())
}

func TestConfigureWaitsForBusy(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	j := sim.NewJournal(nil)
	clk := sim.NewClock()
	p := Simulate(j, WithClock(clk), WithLogger(zap.New(core)))

	// the generator never reports idle
	p.clk.(*sim.Window).OnStore(func(reg int, val uint32) uint32 {
		if reg == cmPWMCtl {
			return val | cmCtlBusy
		}
		return val
	})

	p.Clock().Configure(500)

	assert.Len(t, clk.Sleeps, 4+clockBusyPolls)
	assert.Equal(t, 1, logs.FilterMessage("pwm clock still busy after kill").Len())
	assert.Len(t, j.Of("clk"), 4, "a busy clock must not change the write sequence")
}

func TestBitRate(t *testing.T) {
	assert.Equal(t, physic.MegaHertz, BitRate(500))
	assert.Equal(t, 250*physic.MegaHertz, BitRate(2))
	assert.Equal(t, physic.Frequency(0), BitRate(0))
	assert.Equal(t, physic.Frequency(0), BitRate(4096))
}
