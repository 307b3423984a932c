package vmm

import (
	"unsafe"

	"bos/kernel"
	"bos/kernel/mm"
)

// physicalMemory provides access to physical frames through the region where
// the boot loader mapped the complete physical address space at a fixed
// virtual offset. This is the only place where physical addresses are turned
// into pointers.
type physicalMemory struct {
	offset uintptr
}

// virtAddr returns the virtual address through which the start of the given
// frame can be accessed.
func (pm physicalMemory) virtAddr(frame mm.Frame) uintptr {
	return frame.Address() + pm.offset
}

// table returns the page table stored in the given frame.
func (pm physicalMemory) table(frame mm.Frame) *pageTable {
	addr := pm.virtAddr(frame)
	return (*pageTable)(unsafe.Pointer(addr))
}

// zeroTable clears all entries of the page table stored in frame.
func (pm physicalMemory) zeroTable(frame mm.Frame) {
	kernel.Memset(pm.virtAddr(frame), 0, mm.PageSize)
}
