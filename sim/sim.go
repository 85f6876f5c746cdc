// Package sim provides memory backed register windows that record every
// store, for running register sequences without hardware.
package sim

import (
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

// Write is one register store.
type Write struct {
	Window string
	Reg    int
	Val    uint32
}

func (w Write) String() string {
	return fmt.Sprintf("%s[%d] = %#08x", w.Window, w.Reg, w.Val)
}

// Journal records stores of all windows sharing it, in order.
type Journal struct {
	Writes []Write

	logger *zap.Logger
}

// NewJournal returns an empty journal. Every store is logged at debug level.
func NewJournal(logger *zap.Logger) *Journal {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Journal{logger: logger}
}

func (j *Journal) record(w Write) {
	j.Writes = append(j.Writes, w)
	j.logger.Debug("store",
		zap.String("window", w.Window),
		zap.Int("reg", w.Reg),
		zap.String("value", fmt.Sprintf("%#08x", w.Val)),
		zap.String("bits", fmt.Sprintf("0b%032b", w.Val)))
}

// Of returns the stores made to one window.
func (j *Journal) Of(window string) []Write {
	var out []Write
	for _, w := range j.Writes {
		if w.Window == window {
			out = append(out, w)
		}
	}
	return out
}

// Values returns the values stored to one register, in order.
func (j *Journal) Values(window string, reg int) []uint32 {
	var out []uint32
	for _, w := range j.Writes {
		if w.Window == window && w.Reg == reg {
			out = append(out, w.Val)
		}
	}
	return out
}

// Reset forgets all recorded stores.
func (j *Journal) Reset() {
	j.Writes = nil
}

// Window is a register window held in memory. Stores write through to the
// backing registers and are appended to the journal.
type Window struct {
	name    string
	regs    []uint32
	journal *Journal

	// hook, if set, transforms a stored value before it lands in the
	// register, modelling bits owned by hardware.
	hook func(reg int, val uint32) uint32
}

// NewWindow returns a zeroed window of length bytes.
func NewWindow(name string, length int, j *Journal) *Window {
	if j == nil {
		j = NewJournal(nil)
	}
	return &Window{name: name, regs: make([]uint32, length/4), journal: j}
}

func (w *Window) Load(reg int) uint32 {
	return w.regs[reg]
}

func (w *Window) Store(reg int, val uint32) {
	_ = w.regs[reg]
	w.journal.record(Write{Window: w.name, Reg: reg, Val: val})
	if w.hook != nil {
		val = w.hook(reg, val)
	}
	w.regs[reg] = val
}

func (w *Window) Len() int {
	return len(w.regs)
}

// Name returns the label used in the journal.
func (w *Window) Name() string {
	return w.name
}

// Poke sets a register without recording it, like the hardware changing
// its own state.
func (w *Window) Poke(reg int, val uint32) {
	w.regs[reg] = val
}

// Snapshot returns a copy of the registers.
func (w *Window) Snapshot() []uint32 {
	return append([]uint32(nil), w.regs...)
}

// OnStore installs a hook applied to every stored value.
func (w *Window) OnStore(hook func(reg int, val uint32) uint32) {
	w.hook = hook
}

// Clock is a clock.Clock whose Sleep returns at once, only recording the
// requested duration. Mock time does not move on Sleep.
type Clock struct {
	*clock.Mock

	Sleeps []time.Duration
}

// NewClock returns a Clock starting at the epoch.
func NewClock() *Clock {
	return &Clock{Mock: clock.NewMock()}
}

func (c *Clock) Sleep(d time.Duration) {
	c.Sleeps = append(c.Sleeps, d)
}

// Slept returns the total of all recorded sleeps.
func (c *Clock) Slept() time.Duration {
	var total time.Duration
	for _, d := range c.Sleeps {
		total += d
	}
	return total
}
