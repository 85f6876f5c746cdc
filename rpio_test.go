package rpio

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/stianeikeland/go-rpio-pulse/sim"
)

// newSimulated returns peripherals backed by sim windows, a journal of all
// stores and a clock recording settle waits.
func newSimulated(t *testing.T) (*Peripherals, *sim.Journal, *sim.Clock) {
	t.Helper()
	j := sim.NewJournal(zaptest.NewLogger(t))
	clk := sim.NewClock()
	p := Simulate(j, WithClock(clk), WithLogger(zaptest.NewLogger(t)))
	return p, j, clk
}

func TestSimulateWindowSizes(t *testing.T) {
	p, _, _ := newSimulated(t)

	assert.Equal(t, 0xA8/4, p.clk.Len())
	assert.Equal(t, 0xB4/4, p.gpio.Len())
	assert.Equal(t, 0x28/4, p.pwm.Len())
}

func TestOpenMissingDevice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mem")

	p, err := Open(MapConfig{Device: path})
	require.Error(t, err)
	assert.Nil(t, p)
	assert.True(t, errors.Is(err, ErrPeripheralUnavailable))
	assert.True(t, errors.Is(err, os.ErrNotExist))

	var uerr *UnavailableError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, "open", uerr.Op)
	assert.Equal(t, path, uerr.Path)
}

func TestOpenDirectory(t *testing.T) {
	_, err := Open(MapConfig{Device: t.TempDir()})
	assert.ErrorIs(t, err, ErrPeripheralUnavailable)
}

func TestCloseWithoutMapping(t *testing.T) {
	p, _, _ := newSimulated(t)
	assert.NoError(t, p.Close())
}

func writeRanges(t *testing.T, cells ...uint32) string {
	t.Helper()
	b := make([]byte, 4*len(cells))
	for i, c := range cells {
		binary.BigEndian.PutUint32(b[4*i:], c)
	}
	path := filepath.Join(t.TempDir(), "ranges")
	require.NoError(t, os.WriteFile(path, b, 0o644))
	return path
}

func TestPeripheralBase(t *testing.T) {
	t.Run("pi 2 and 3", func(t *testing.T) {
		path := writeRanges(t, 0x7e000000, 0x3f000000, 0x01000000)
		assert.Equal(t, int64(0x3f000000), getPeripheralBase(path))
	})

	t.Run("pi 4", func(t *testing.T) {
		path := writeRanges(t, 0x7e000000, 0x00000000, 0xfe000000, 0x01800000)
		assert.Equal(t, int64(0xfe000000), getPeripheralBase(path))
	})

	t.Run("missing", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ranges")
		assert.Equal(t, int64(bcm2835Base), getPeripheralBase(path))
	})

	t.Run("short", func(t *testing.T) {
		path := writeRanges(t, 0x7e000000)
		assert.Equal(t, int64(bcm2835Base), getPeripheralBase(path))
	})
}
