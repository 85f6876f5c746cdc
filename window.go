package rpio

import (
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Window is a fixed-length span of 32-bit peripheral registers addressed
// by register index (byte offset / 4).
//
// Implementations must not cache, merge or reorder accesses, and must panic
// on an index outside [0, Len()).
type Window interface {
	Load(reg int) uint32
	Store(reg int, val uint32)
	Len() int
}

// mmapWindow is a Window backed by a shared mapping of the memory device.
type mmapWindow struct {
	mem8 []byte
	mem  []uint32
}

// mapWindow memory maps length bytes of fd at the physical address base.
func mapWindow(fd int, base int64, length int) (*mmapWindow, error) {
	mem8, err := unix.Mmap(
		fd,
		base,
		length,
		unix.PROT_READ|unix.PROT_WRITE|unix.PROT_EXEC,
		unix.MAP_SHARED|unix.MAP_LOCKED)
	if err != nil {
		return nil, err
	}

	return newMmapWindow(mem8), nil
}

// newMmapWindow views mem8 as 32 bit registers (32 bit = 4 bytes).
func newMmapWindow(mem8 []byte) *mmapWindow {
	mem := unsafe.Slice((*uint32)(unsafe.Pointer(&mem8[0])), len(mem8)/4)
	return &mmapWindow{mem8: mem8, mem: mem}
}

// Atomic access keeps every load and store a single, ordered 32 bit bus access.
func (w *mmapWindow) Load(reg int) uint32 {
	return atomic.LoadUint32(&w.mem[reg])
}

func (w *mmapWindow) Store(reg int, val uint32) {
	atomic.StoreUint32(&w.mem[reg], val)
}

func (w *mmapWindow) Len() int {
	return len(w.mem)
}

func (w *mmapWindow) unmap() error {
	if w.mem8 == nil {
		return nil
	}
	err := unix.Munmap(w.mem8)
	w.mem8, w.mem = nil, nil
	return err
}
