package vmm

import "bos/kernel"

// Translate returns the physical address that corresponds to the supplied
// virtual address or ErrInvalidMapping if the virtual address does not
// correspond to a mapped physical address. Addresses inside 1G and 2M huge
// pages are also resolved.
func (m *Mapper) Translate(virtAddr uintptr) (uintptr, *kernel.Error) {
	if !isCanonical(virtAddr) {
		return 0, ErrNonCanonicalAddress
	}

	var physAddr uintptr
	err := ErrInvalidMapping

	m.walk(virtAddr, func(pteLevel uint8, pte *pageTableEntry) bool {
		if !pte.HasFlags(FlagPresent) {
			return false
		}

		// The top-level table cannot map huge pages
		if pteLevel == 0 || (pteLevel < pageLevels-1 && !pte.HasFlags(FlagHugePage)) {
			return true
		}

		// Calculate the physical address by taking the physical frame
		// address and appending the offset inside the (possibly huge) page
		offsetMask := (uintptr(1) << pageLevelShifts[pteLevel]) - 1
		physAddr = ((uintptr(*pte) & ptePhysPageMask) &^ offsetMask) + (virtAddr & offsetMask)
		err = nil
		return false
	})

	if err != nil {
		return 0, err
	}

	return physAddr, nil
}

// PageOffset returns the offset within the page specified by a virtual
// address.
func PageOffset(virtAddr uintptr) uintptr {
	return (virtAddr & ((1 << pageLevelShifts[pageLevels-1]) - 1))
}
