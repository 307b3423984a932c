// Package mmtest provides fake physical memory and test doubles for code that
// manipulates page tables outside of a real machine.
package mmtest

import (
	"testing"
	"unsafe"

	"golang.org/x/sys/unix"

	"bos/kernel/mm"
	"bos/multiboot"
)

// PhysMemory emulates a block of physical memory starting at physical address
// 0. Physical address p is backed by the byte at Offset()+p, mirroring the
// way the kernel reaches physical memory through a fixed offset mapping.
//
// The memory comes from an anonymous mapping outside of the Go heap so page
// table code may convert computed addresses back into pointers.
type PhysMemory struct {
	mem  []byte
	base uintptr
}

// NewPhysMemory maps a zeroed block of fake physical memory that holds the
// requested number of frames. The block is unmapped when the test completes.
func NewPhysMemory(t testing.TB, frames int) *PhysMemory {
	t.Helper()

	size := frames << mm.PageShift
	mem, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		t.Fatalf("mapping %d frames of physical memory: %v", frames, err)
	}

	t.Cleanup(func() {
		if err := unix.Munmap(mem); err != nil {
			t.Errorf("unmapping physical memory: %v", err)
		}
	})

	return &PhysMemory{
		mem:  mem,
		base: uintptr(unsafe.Pointer(unsafe.SliceData(mem))),
	}
}

// Offset returns the value that must be added to a physical address in order
// to obtain the address of its backing byte.
func (p *PhysMemory) Offset() uintptr {
	return p.base
}

// Size returns the amount of emulated memory.
func (p *PhysMemory) Size() mm.Size {
	return mm.Size(len(p.mem))
}

// Frames returns the number of emulated frames.
func (p *PhysMemory) Frames() int {
	return len(p.mem) >> mm.PageShift
}

// FrameBytes returns the contents of the given frame.
func (p *PhysMemory) FrameBytes(frame mm.Frame) []byte {
	start := frame.Address()
	return p.mem[start : start+mm.PageSize]
}

// MemoryMap returns a memory map that reports the emulated memory as a
// single available region.
func (p *PhysMemory) MemoryMap() multiboot.MemoryMap {
	return multiboot.MemoryMap{
		{PhysAddress: 0, Length: uint64(len(p.mem)), Type: multiboot.MemAvailable},
	}
}
