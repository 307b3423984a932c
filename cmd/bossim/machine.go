package main

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"

	"bos/kernel/mm"
	"bos/kernel/mm/pmm"
	"bos/kernel/mm/vmm"
	"bos/multiboot"
)

// machine is the simulated hardware the kernel boots on. Physical address p
// is found at virtual address offset+p of the simulator process, the same
// layout a boot loader sets up when it maps the complete physical memory at a
// fixed offset.
type machine struct {
	mem    []byte
	memMap multiboot.MemoryMap
	alloc  *pmm.BootInfoAllocator
	mapper *vmm.Mapper
}

// newMachine maps size bytes of zeroed physical memory and builds the
// page table hierarchy that the kernel will extend. The first frame is
// reported as reserved like the real mode IVT on a PC.
func newMachine(size uint) (*machine, error) {
	if size < 2*uint(mm.PageSize) {
		return nil, fmt.Errorf("physical memory must be at least %d bytes", 2*mm.PageSize)
	}

	mem, err := unix.Mmap(-1, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("mapping physical memory: %w", err)
	}

	m := &machine{
		mem: mem,
		memMap: multiboot.MemoryMap{
			{PhysAddress: 0, Length: uint64(mm.PageSize), Type: multiboot.MemReserved},
			{PhysAddress: uint64(mm.PageSize), Length: uint64(size) - uint64(mm.PageSize), Type: multiboot.MemAvailable},
		},
	}
	m.alloc = pmm.NewBootInfoAllocator(m.memMap)

	// Anonymous mappings are zero-filled so the new top-level table is empty
	pdtFrame, kerr := m.alloc.AllocFrame()
	if kerr != nil {
		_ = m.close()
		return nil, kernelError(kerr)
	}

	// The simulated page tables are never loaded into CR3 so there is no
	// TLB to invalidate.
	m.mapper = vmm.NewMapper(pdtFrame, m.physMemOffset(), vmm.WithTLBFlusher(func(uintptr) {}))

	return m, nil
}

func (m *machine) physMemOffset() uintptr {
	return uintptr(unsafe.Pointer(&m.mem[0]))
}

func (m *machine) close() error {
	return unix.Munmap(m.mem)
}
