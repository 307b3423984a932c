package vmm

import (
	"bos/kernel"
	"bos/kernel/cpu"
	"bos/kernel/mm"
)

var (
	// activePDTFn and flushTLBEntryFn are used by tests to override calls
	// to the cpu package which would cause a fault if called in user-mode.
	activePDTFn     = cpu.ActivePDT
	flushTLBEntryFn = cpu.FlushTLBEntry

	// ErrPageAlreadyMapped is returned by Map when the final page table
	// entry for the requested page is already in use.
	ErrPageAlreadyMapped = &kernel.Error{Module: "vmm", Message: "page already mapped"}

	// ErrFrameAllocationFailed is returned by Map when a frame for a
	// missing intermediate page table could not be allocated.
	ErrFrameAllocationFailed = &kernel.Error{Module: "vmm", Message: "could not allocate frame for page table"}

	// ErrParentEntryHugePage is returned when the walk towards a 4K page
	// reaches an entry that maps a huge page.
	ErrParentEntryHugePage = &kernel.Error{Module: "vmm", Message: "parent entry maps a huge page"}

	// ErrNonCanonicalAddress is returned when a virtual address does not
	// sign-extend bit 47 into its upper bits.
	ErrNonCanonicalAddress = &kernel.Error{Module: "vmm", Message: "virtual address is not canonical"}

	// ErrInvalidFlags is returned when the requested flags overlap the
	// physical address bits of a page table entry.
	ErrInvalidFlags = &kernel.Error{Module: "vmm", Message: "flags overlap the physical address bits"}

	// ErrInvalidFrame is returned when the frame to be mapped lies beyond
	// the physical address width.
	ErrInvalidFrame = &kernel.Error{Module: "vmm", Message: "frame exceeds the physical address width"}

	// ErrInvalidMapping is returned when trying to lookup, translate or
	// unmap a virtual address that is not mapped.
	ErrInvalidMapping = &kernel.Error{Module: "vmm", Message: "virtual address does not point to a mapped physical page"}
)

// Flush is returned by Map and Unmap to let the caller decide when the TLB
// entry for a modified page gets invalidated. Callers must either invoke
// Flush to make the change visible to the MMU or call Ignore when they know
// that no stale translation can be cached (e.g. for a table that is not
// active).
type Flush struct {
	page    mm.Page
	flushFn func(uintptr)
}

// Page returns the page whose translation changed.
func (f Flush) Page() mm.Page {
	return f.page
}

// Flush invalidates the TLB entry for the modified page.
func (f Flush) Flush() {
	if f.flushFn != nil {
		f.flushFn(f.page.Address())
	}
}

// Ignore discards the pending TLB invalidation.
func (f Flush) Ignore() {}

// Option configures a Mapper.
type Option func(*Mapper)

// WithTLBFlusher overrides the function used for invalidating TLB entries.
// It is used when the mapper manages page tables that are not loaded into
// the MMU.
func WithTLBFlusher(flushFn func(virtAddr uintptr)) Option {
	return func(m *Mapper) {
		m.flushFn = flushFn
	}
}

// Mapper manipulates a 4-level page table hierarchy whose frames are
// reachable through the physical memory offset mapping. A Mapper is not safe
// for concurrent use and must not be used from interrupt context.
type Mapper struct {
	pdtFrame mm.Frame
	mem      physicalMemory
	flushFn  func(uintptr)
}

// Init returns a Mapper for the page table hierarchy that is currently loaded
// into the CR3 register. physMemOffset is the virtual address where the boot
// loader mapped the complete physical memory.
func Init(physMemOffset uintptr) *Mapper {
	// CR3 also carries cache control bits in its lower 12 bits
	pdtFrame := mm.FrameFromAddress(activePDTFn() & ptePhysPageMask)
	return NewMapper(pdtFrame, physMemOffset)
}

// NewMapper returns a Mapper for the page table hierarchy whose top-level
// table is stored in pdtFrame.
func NewMapper(pdtFrame mm.Frame, physMemOffset uintptr, opts ...Option) *Mapper {
	m := &Mapper{
		pdtFrame: pdtFrame,
		mem:      physicalMemory{offset: physMemOffset},
		flushFn:  flushTLBEntry,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// PDTFrame returns the frame that holds the top-level page table.
func (m *Mapper) PDTFrame() mm.Frame {
	return m.pdtFrame
}

// PhysMemOffset returns the virtual address where physical memory is mapped.
func (m *Mapper) PhysMemOffset() uintptr {
	return m.mem.offset
}

// Map establishes a mapping between a virtual page and a physical memory
// frame. Missing page tables at each paging level are allocated from alloc
// and zeroed before being linked in with FlagPresent and FlagRW;
// FlagUserAccessible is also set on them if requested for the page. Existing
// parent entries only gain the FlagRW and FlagUserAccessible bits present in
// flags. The final entry receives the requested frame and flags as-is.
//
// Map never overwrites an existing mapping and leaves the existing page
// tables untouched when it fails. If a frame allocation fails, the page
// tables that were already linked in are kept so a later call can reuse them.
//
// The returned Flush must be used to invalidate the TLB entry for page.
func (m *Mapper) Map(page mm.Page, frame mm.Frame, flags PageTableEntryFlag, alloc mm.FrameAllocator) (Flush, *kernel.Error) {
	virtAddr := page.Address()
	switch {
	case !isCanonical(virtAddr):
		return Flush{}, ErrNonCanonicalAddress
	case uintptr(flags)&ptePhysPageMask != 0:
		return Flush{}, ErrInvalidFlags
	case !frame.Valid() || frame > mm.Frame(ptePhysPageMask>>mm.PageShift):
		return Flush{}, ErrInvalidFrame
	}

	if err := m.checkUnmapped(virtAddr); err != nil {
		return Flush{}, err
	}

	var (
		err             *kernel.Error
		newTableFlags   = FlagPresent | FlagRW | (flags & FlagUserAccessible)
		existingParents [pageLevels - 1]*pageTableEntry
		existingCount   int
	)

	m.walk(virtAddr, func(pteLevel uint8, pte *pageTableEntry) bool {
		// If we reached the last level all we need to do is to map the
		// frame in place
		if pteLevel == pageLevels-1 {
			pte.SetFrame(frame)
			pte.SetFlags(flags)
			return true
		}

		if pte.HasFlags(FlagPresent) {
			existingParents[existingCount] = pte
			existingCount++
			return true
		}

		// Next table does not yet exist; we need to allocate a
		// physical frame for it and clear its contents before
		// linking it in.
		tableFrame, allocErr := allocTableFrame(alloc)
		if allocErr != nil {
			err = ErrFrameAllocationFailed
			return false
		}

		m.mem.zeroTable(tableFrame)
		*pte = 0
		pte.SetFrame(tableFrame)
		pte.SetFlags(newTableFlags)
		return true
	})

	if err != nil {
		return Flush{}, err
	}

	// Parents are only widened once the leaf entry has been installed
	for _, pte := range existingParents[:existingCount] {
		pte.SetFlags(flags & (FlagRW | FlagUserAccessible))
	}

	return Flush{page: page, flushFn: m.flushFn}, nil
}

// checkUnmapped verifies that virtAddr can be mapped without modifying any
// page table entry.
func (m *Mapper) checkUnmapped(virtAddr uintptr) *kernel.Error {
	var err *kernel.Error
	m.walk(virtAddr, func(pteLevel uint8, pte *pageTableEntry) bool {
		switch {
		case pteLevel == pageLevels-1:
			if *pte != 0 {
				err = ErrPageAlreadyMapped
			}
			return false
		case !pte.HasFlags(FlagPresent):
			// The tables below are yet to be allocated
			return false
		case pte.HasFlags(FlagHugePage):
			err = ErrParentEntryHugePage
			return false
		}
		return true
	})
	return err
}

// Unmap removes the mapping for page and returns the frame it pointed to.
// Page tables that become empty are not released.
func (m *Mapper) Unmap(page mm.Page) (mm.Frame, Flush, *kernel.Error) {
	virtAddr := page.Address()
	if !isCanonical(virtAddr) {
		return mm.InvalidFrame, Flush{}, ErrNonCanonicalAddress
	}

	var (
		err   *kernel.Error
		frame = mm.InvalidFrame
	)

	m.walk(virtAddr, func(pteLevel uint8, pte *pageTableEntry) bool {
		if !pte.HasFlags(FlagPresent) {
			err = ErrInvalidMapping
			return false
		}

		if pteLevel == pageLevels-1 {
			frame = pte.Frame()
			*pte = 0
			return true
		}

		if pte.HasFlags(FlagHugePage) {
			err = ErrParentEntryHugePage
			return false
		}

		return true
	})

	if err != nil {
		return mm.InvalidFrame, Flush{}, err
	}

	return frame, Flush{page: page, flushFn: m.flushFn}, nil
}

// Lookup returns the frame and the flags of the final page table entry for
// page or ErrInvalidMapping if the page is not mapped.
func (m *Mapper) Lookup(page mm.Page) (mm.Frame, PageTableEntryFlag, *kernel.Error) {
	virtAddr := page.Address()
	if !isCanonical(virtAddr) {
		return mm.InvalidFrame, 0, ErrNonCanonicalAddress
	}

	var entry *pageTableEntry
	err := ErrInvalidMapping

	m.walk(virtAddr, func(pteLevel uint8, pte *pageTableEntry) bool {
		if !pte.HasFlags(FlagPresent) {
			return false
		}

		if pteLevel == pageLevels-1 {
			entry, err = pte, nil
			return true
		}

		if pte.HasFlags(FlagHugePage) {
			err = ErrParentEntryHugePage
			return false
		}

		return true
	})

	if err != nil {
		return mm.InvalidFrame, 0, err
	}

	return entry.Frame(), entry.Flags(), nil
}

// allocTableFrame reserves a frame for a new page table.
func allocTableFrame(alloc mm.FrameAllocator) (mm.Frame, *kernel.Error) {
	if alloc == nil {
		return mm.InvalidFrame, ErrFrameAllocationFailed
	}

	frame, err := alloc.AllocFrame()
	if err == nil && !frame.Valid() {
		err = ErrFrameAllocationFailed
	}

	return frame, err
}

// isCanonical returns true if bits 47-63 of virtAddr are either all zeroes or
// all ones.
func isCanonical(virtAddr uintptr) bool {
	upper := virtAddr >> canonicalAddrShift
	return upper == 0 || upper == (^uintptr(0))>>canonicalAddrShift
}

func flushTLBEntry(virtAddr uintptr) {
	flushTLBEntryFn(virtAddr)
}
