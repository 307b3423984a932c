// Package pmm contains code that manages physical memory frame allocations.
package pmm

import (
	"io"

	"bos/kernel"
	"bos/kernel/kfmt"
	"bos/kernel/mm"
	"bos/multiboot"
)

var (
	// ErrOutOfMemory is returned by AllocFrame once every usable frame
	// reported by the boot loader has been handed out.
	ErrOutOfMemory = &kernel.Error{Module: "pmm", Message: "out of physical memory"}
)

// MemoryMap is implemented by boot loader memory maps that can enumerate the
// system's physical memory regions.
type MemoryMap interface {
	VisitMemRegions(multiboot.MemRegionVisitor)
}

// BootInfoAllocator implements a rudimentary physical memory allocator on top
// of the memory map reported by the boot loader.
//
// The sequence of usable frames is derived from the regions flagged as
// available: each region is trimmed to page boundaries and split into 4K
// frames. Frame number i of the sequence is always the i-th lowest usable
// frame, so allocations are returned in strictly increasing address order.
// The allocator only tracks the last frame it handed out which makes it
// impossible to free frames; this allocator never reclaims memory.
type BootInfoAllocator struct {
	memMap MemoryMap

	// allocCount tracks the total number of allocated frames.
	allocCount uint64

	// lastAllocFrame tracks the last allocated frame number.
	lastAllocFrame mm.Frame
}

// NewBootInfoAllocator returns an allocator that hands out the usable frames
// described by memMap. The caller must guarantee that all regions flagged as
// available are unused by any other part of the system.
func NewBootInfoAllocator(memMap MemoryMap) *BootInfoAllocator {
	return &BootInfoAllocator{memMap: memMap}
}

// AllocFrame reserves the next usable frame. Once the usable frames are
// exhausted AllocFrame returns mm.InvalidFrame and ErrOutOfMemory on every
// subsequent call.
func (alloc *BootInfoAllocator) AllocFrame() (mm.Frame, *kernel.Error) {
	var (
		found     bool
		nextFrame = mm.InvalidFrame
	)

	alloc.visitUsableRanges(func(startFrame, endFrame mm.Frame) bool {
		// Skip frames that have already been handed out
		if alloc.allocCount != 0 && startFrame <= alloc.lastAllocFrame {
			startFrame = alloc.lastAllocFrame + 1
		}

		if startFrame <= endFrame && startFrame < nextFrame {
			nextFrame = startFrame
			found = true
		}
		return true
	})

	if !found {
		return mm.InvalidFrame, ErrOutOfMemory
	}

	alloc.allocCount++
	alloc.lastAllocFrame = nextFrame
	return nextFrame, nil
}

// AllocCount returns the number of frames handed out so far.
func (alloc *BootInfoAllocator) AllocCount() uint64 {
	return alloc.allocCount
}

// UsableFrames returns the number of distinct frames that the memory map
// flags as usable, which is the number of AllocFrame calls that can succeed.
// Frames covered by more than one region are counted once.
func (alloc *BootInfoAllocator) UsableFrames() uint64 {
	var (
		count uint64

		// next is the lowest frame that has not been counted yet
		next mm.Frame
	)

	for {
		runStart := mm.InvalidFrame
		alloc.visitUsableRanges(func(startFrame, endFrame mm.Frame) bool {
			if endFrame >= next {
				if startFrame < next {
					startFrame = next
				}
				if startFrame < runStart {
					runStart = startFrame
				}
			}
			return true
		})

		if runStart == mm.InvalidFrame {
			return count
		}

		// Grow the run while another range overlaps or touches its end
		runEnd := runStart
		for extended := true; extended; {
			extended = false
			alloc.visitUsableRanges(func(startFrame, endFrame mm.Frame) bool {
				if startFrame <= runEnd+1 && endFrame > runEnd {
					runEnd = endFrame
					extended = true
				}
				return true
			})
		}

		count += uint64(runEnd-runStart) + 1
		next = runEnd + 1
	}
}

// visitUsableRanges invokes visitor with the first and last (inclusive) frame
// of each available region that spans at least one full page.
func (alloc *BootInfoAllocator) visitUsableRanges(visitor func(startFrame, endFrame mm.Frame) bool) {
	if alloc.memMap == nil {
		return
	}

	pageSizeMinus1 := uint64(mm.PageSize - 1)
	alloc.memMap.VisitMemRegions(func(region *multiboot.MemoryMapEntry) bool {
		if region.Type != multiboot.MemAvailable || region.Length < uint64(mm.PageSize) {
			return true
		}

		// Reported addresses may not be page-aligned; round up to get
		// the start frame and round down to get the end frame
		regionStart := region.PhysAddress + pageSizeMinus1
		regionEnd := region.PhysAddress + region.Length
		if regionStart < region.PhysAddress || regionEnd < region.PhysAddress {
			// region wraps around the address space
			return true
		}

		startFrame := mm.Frame((regionStart & ^pageSizeMinus1) >> mm.PageShift)
		endFrame := mm.Frame((regionEnd & ^pageSizeMinus1) >> mm.PageShift)
		if endFrame <= startFrame {
			return true
		}

		return visitor(startFrame, endFrame-1)
	})
}

// PrintMemoryMap writes the system memory map and the number of usable frames
// to w.
func (alloc *BootInfoAllocator) PrintMemoryMap(w io.Writer) {
	if alloc.memMap == nil {
		return
	}

	kfmt.Fprintf(w, "system memory map:\n")
	var totalFree mm.Size
	alloc.memMap.VisitMemRegions(func(region *multiboot.MemoryMapEntry) bool {
		kfmt.Fprintf(w, "\t[0x%10x - 0x%10x], size: %10d, type: %s\n", region.PhysAddress, region.PhysAddress+region.Length, region.Length, region.Type.String())

		if region.Type == multiboot.MemAvailable {
			totalFree += mm.Size(region.Length)
		}
		return true
	})
	kfmt.Fprintf(w, "available memory: %dKb\n", uint64(totalFree/mm.Kb))
	kfmt.Fprintf(w, "usable frames: %d, allocated: %d\n", alloc.UsableFrames(), alloc.allocCount)
}
