// Package heap reserves the virtual address range used by the kernel heap and
// backs it with physical memory.
package heap

import (
	"bos/kernel"
	"bos/kernel/mm"
	"bos/kernel/mm/vmm"
)

const (
	// HeapStart is the virtual address where the kernel heap begins.
	HeapStart = uintptr(0x_4444_4444_0000)

	// HeapSize is the size of the kernel heap.
	HeapSize = 100 * mm.Kb
)

var errEmptyRegion = &kernel.Error{Module: "heap", Message: "region size must be greater than zero"}

// PageMapper is implemented by types that can install page mappings.
type PageMapper interface {
	Map(page mm.Page, frame mm.Frame, flags vmm.PageTableEntryFlag, alloc mm.FrameAllocator) (vmm.Flush, *kernel.Error)
}

// Init maps the kernel heap range [HeapStart, HeapStart+HeapSize) as present
// and writable. The heap allocator may only be activated after Init returns
// without an error.
func Init(mapper PageMapper, alloc mm.FrameAllocator) *kernel.Error {
	return MapRegion(mapper, alloc, HeapStart, HeapSize, vmm.FlagPresent|vmm.FlagRW)
}

// MapRegion backs each page overlapping the virtual region [start,
// start+size) with a newly allocated frame using the supplied flags. Each new
// mapping is flushed from the TLB as soon as it is installed.
//
// If a frame allocation or a mapping fails, the pages mapped so far are left
// in place and the error is returned to the caller.
func MapRegion(mapper PageMapper, alloc mm.FrameAllocator, start uintptr, size mm.Size, flags vmm.PageTableEntryFlag) *kernel.Error {
	if size == 0 {
		return errEmptyRegion
	}

	startPage := mm.PageFromAddress(start)
	endPage := mm.PageFromAddress(start + uintptr(size) - 1)

	for page := startPage; page <= endPage; page++ {
		frame, err := alloc.AllocFrame()
		if err != nil {
			return err
		}

		flush, err := mapper.Map(page, frame, flags, alloc)
		if err != nil {
			return err
		}
		flush.Flush()
	}

	return nil
}
