package pmm

import (
	"bytes"
	"testing"

	"bos/kernel/mm"
	"bos/multiboot"
)

// qemuMemoryMap mirrors the memory map reported by qemu for a VM with 128M
// of RAM. It contains the following available memory regions:
// [     0 -   9fc00] length:    654336
// [100000 - 7fe0000] length: 133038080
var qemuMemoryMap = multiboot.MemoryMap{
	{PhysAddress: 0x0, Length: 0x9fc00, Type: multiboot.MemAvailable},
	{PhysAddress: 0x9fc00, Length: 0x400, Type: multiboot.MemReserved},
	{PhysAddress: 0xf0000, Length: 0x10000, Type: multiboot.MemReserved},
	{PhysAddress: 0x100000, Length: 0x7ee0000, Type: multiboot.MemAvailable},
	{PhysAddress: 0x7fe0000, Length: 0x20000, Type: multiboot.MemReserved},
	{PhysAddress: 0xfffc0000, Length: 0x40000, Type: multiboot.MemReserved},
}

func TestAllocFrameSingleRegion(t *testing.T) {
	alloc := NewBootInfoAllocator(multiboot.MemoryMap{
		{PhysAddress: 0, Length: uint64(16 * mm.Kb), Type: multiboot.MemAvailable},
	})

	for i, expAddr := range []uintptr{0x0, 0x1000, 0x2000, 0x3000} {
		frame, err := alloc.AllocFrame()
		if err != nil {
			t.Fatalf("[frame %d] unexpected error: %v", i, err)
		}

		if got := frame.Address(); got != expAddr {
			t.Errorf("[frame %d] expected frame address to be 0x%x; got 0x%x", i, expAddr, got)
		}
	}

	// Once exhausted, the allocator must keep failing
	for i := 0; i < 3; i++ {
		frame, err := alloc.AllocFrame()
		if err != ErrOutOfMemory {
			t.Fatalf("[attempt %d] expected to get ErrOutOfMemory; got %v", i, err)
		}

		if frame.Valid() {
			t.Errorf("[attempt %d] expected to get an invalid frame; got %d", i, frame)
		}
	}

	if exp, got := uint64(4), alloc.AllocCount(); got != exp {
		t.Errorf("expected alloc count to be %d; got %d", exp, got)
	}
}

func TestAllocFrameQemuMemoryMap(t *testing.T) {
	alloc := NewBootInfoAllocator(qemuMemoryMap)

	// region 1 extents get rounded to [0, 9f000] and provide 159 frames [0 to 158]
	// region 2 uses the original extents [100000 - 7fe0000] and provides 32480 frames [256-32735]
	expCount := uint64(159 + 32480)
	if got := alloc.UsableFrames(); got != expCount {
		t.Fatalf("expected usable frame count to be %d; got %d", expCount, got)
	}

	var (
		prevFrame mm.Frame
		seen      uint64
	)
	for {
		frame, err := alloc.AllocFrame()
		if err != nil {
			if err == ErrOutOfMemory {
				break
			}
			t.Fatalf("[frame %d] unexpected allocator error: %v", seen, err)
		}

		switch {
		case seen == 0 && frame != 0:
			t.Fatalf("expected first frame to be 0; got %d", frame)
		case seen == 159 && frame != 256:
			t.Fatalf("expected allocator to skip to frame 256 after exhausting region 1; got %d", frame)
		case seen != 0 && frame <= prevFrame:
			t.Fatalf("[frame %d] expected frame %d to be greater than previous frame %d", seen, frame, prevFrame)
		}

		if frame.Address() >= 0x9f000 && frame.Address() < 0x100000 {
			t.Fatalf("[frame %d] allocated frame 0x%x lies outside the usable regions", seen, frame.Address())
		}

		prevFrame = frame
		seen++
	}

	if seen != expCount {
		t.Errorf("expected allocator to allocate %d frames; allocated %d", expCount, seen)
	}

	if got := alloc.AllocCount(); got != expCount {
		t.Errorf("expected AllocCount to return %d; got %d", expCount, got)
	}
}

func TestAllocFrameRegionEdgeCases(t *testing.T) {
	specs := []struct {
		descr     string
		memMap    multiboot.MemoryMap
		expFrames []mm.Frame
	}{
		{
			"unaligned region is trimmed to page boundaries",
			multiboot.MemoryMap{
				{PhysAddress: 0x1800, Length: 0x3000, Type: multiboot.MemAvailable},
			},
			[]mm.Frame{2, 3},
		},
		{
			"unsorted regions",
			multiboot.MemoryMap{
				{PhysAddress: 0x10000, Length: 0x2000, Type: multiboot.MemAvailable},
				{PhysAddress: 0x0, Length: 0x2000, Type: multiboot.MemAvailable},
			},
			[]mm.Frame{0, 1, 16, 17},
		},
		{
			"overlapping regions",
			multiboot.MemoryMap{
				{PhysAddress: 0x0, Length: 0x3000, Type: multiboot.MemAvailable},
				{PhysAddress: 0x1000, Length: 0x3000, Type: multiboot.MemAvailable},
			},
			[]mm.Frame{0, 1, 2, 3},
		},
		{
			"nested and adjacent regions",
			multiboot.MemoryMap{
				{PhysAddress: 0x8000, Length: 0x2000, Type: multiboot.MemAvailable},
				{PhysAddress: 0x2000, Length: 0x6000, Type: multiboot.MemAvailable},
				{PhysAddress: 0x3000, Length: 0x1000, Type: multiboot.MemAvailable},
				{PhysAddress: 0x3000, Length: 0x1000, Type: multiboot.MemAvailable},
			},
			[]mm.Frame{2, 3, 4, 5, 6, 7, 8, 9},
		},
		{
			"non-available and sub-page regions are skipped",
			multiboot.MemoryMap{
				{PhysAddress: 0x0, Length: 0x4000, Type: multiboot.MemReserved},
				{PhysAddress: 0x4000, Length: 0x4000, Type: multiboot.MemAcpiReclaimable},
				{PhysAddress: 0x8000, Length: 0x800, Type: multiboot.MemAvailable},
				{PhysAddress: 0x9800, Length: 0x1000, Type: multiboot.MemAvailable},
				{PhysAddress: 0x20000, Length: 0x1000, Type: multiboot.MemAvailable},
			},
			[]mm.Frame{32},
		},
		{
			"empty memory map",
			multiboot.MemoryMap{},
			nil,
		},
	}

	for specIndex, spec := range specs {
		alloc := NewBootInfoAllocator(spec.memMap)

		// Frames shared by several regions are only counted once
		if exp, got := uint64(len(spec.expFrames)), alloc.UsableFrames(); got != exp {
			t.Errorf("[spec %d: %s] expected %d usable frames; got %d", specIndex, spec.descr, exp, got)
		}

		for frameIndex, expFrame := range spec.expFrames {
			frame, err := alloc.AllocFrame()
			if err != nil {
				t.Errorf("[spec %d: %s] [frame %d] unexpected error: %v", specIndex, spec.descr, frameIndex, err)
				break
			}

			if frame != expFrame {
				t.Errorf("[spec %d: %s] [frame %d] expected frame %d; got %d", specIndex, spec.descr, frameIndex, expFrame, frame)
			}
		}

		if _, err := alloc.AllocFrame(); err != ErrOutOfMemory {
			t.Errorf("[spec %d: %s] expected allocator to be exhausted; got error %v", specIndex, spec.descr, err)
		}
	}
}

func TestAllocFrameNilMemoryMap(t *testing.T) {
	alloc := NewBootInfoAllocator(nil)

	if frame, err := alloc.AllocFrame(); err != ErrOutOfMemory || frame != mm.InvalidFrame {
		t.Fatalf("expected (InvalidFrame, ErrOutOfMemory); got (%d, %v)", frame, err)
	}

	if got := alloc.UsableFrames(); got != 0 {
		t.Errorf("expected 0 usable frames; got %d", got)
	}

	var buf bytes.Buffer
	alloc.PrintMemoryMap(&buf)
	if buf.Len() != 0 {
		t.Errorf("expected no output; got %q", buf.String())
	}
}

func TestPrintMemoryMap(t *testing.T) {
	alloc := NewBootInfoAllocator(multiboot.MemoryMap{
		{PhysAddress: 0x0, Length: 0x4000, Type: multiboot.MemAvailable},
		{PhysAddress: 0x4000, Length: 0x1000, Type: multiboot.MemReserved},
	})

	if _, err := alloc.AllocFrame(); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	alloc.PrintMemoryMap(&buf)

	exp := "system memory map:\n" +
		"\t[0x0000000000 - 0x0000004000], size:      16384, type: available\n" +
		"\t[0x0000004000 - 0x0000005000], size:       4096, type: reserved\n" +
		"available memory: 16Kb\n" +
		"usable frames: 4, allocated: 1\n"

	if got := buf.String(); got != exp {
		t.Fatalf("expected output:\n%q\ngot:\n%q", exp, got)
	}
}

func TestBootMemoryMapAdapter(t *testing.T) {
	// BootMemoryMap must satisfy MemoryMap so the kernel can hand the boot
	// loader's tag straight to the allocator.
	var _ MemoryMap = multiboot.BootMemoryMap{}

	multiboot.SetInfoPtr(0)
	alloc := NewBootInfoAllocator(multiboot.BootMemoryMap{})
	if _, err := alloc.AllocFrame(); err != ErrOutOfMemory {
		t.Fatalf("expected ErrOutOfMemory when no multiboot info is available; got %v", err)
	}
}
