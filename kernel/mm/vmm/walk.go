package vmm

// pageTableWalker is a function that can be passed to the walk method. The
// function receives the current page level and page table entry as its
// arguments.  If the function returns false, then the page walk is aborted.
type pageTableWalker func(pteLevel uint8, pte *pageTableEntry) bool

// walk performs a page table walk for the given virtual address starting at
// the mapper's top-level table. It calls the suppplied walkFn with the page
// table entry that corresponds to each page table level. The walk descends
// into the table referenced by the entry after walkFn returns, so walkFn may
// install a missing table before the walk continues. If walkFn returns false
// then the walk is aborted.
func (m *Mapper) walk(virtAddr uintptr, walkFn pageTableWalker) {
	var (
		level      uint8
		entryIndex uintptr
		pte        *pageTableEntry
		table      = m.mem.table(m.pdtFrame)
	)

	for level = 0; level < pageLevels; level++ {
		// Extract the bits from virtual address that correspond to the
		// index in this level's page table
		entryIndex = (virtAddr >> pageLevelShifts[level]) & ((1 << pageLevelBits[level]) - 1)
		pte = &table[entryIndex]

		if !walkFn(level, pte) {
			return
		}

		if level < pageLevels-1 {
			table = m.mem.table(pte.Frame())
		}
	}
}
