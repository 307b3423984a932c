package kmain

import (
	"io"

	"bos/kernel"
	"bos/kernel/kfmt"
	"bos/kernel/mm/heap"
	"bos/kernel/mm/pmm"
	"bos/kernel/mm/vmm"
	"bos/kernel/task"
	"bos/kernel/task/keyboard"
	"bos/multiboot"
)

var (
	errKmainReturned = &kernel.Error{Module: "kmain", Message: "Kmain returned"}

	// printKeypressesFn is mocked by tests so Boot can be invoked more than
	// once per process.
	printKeypressesFn = keyboard.PrintKeypresses
)

// Kmain is the only Go symbol that is visible (exported) from the rt0 initialization
// code. This function is invoked by the rt0 assembly code after setting up the GDT
// and setting up a a minimal g0 struct that allows Go code using the 4K stack
// allocated by the assembly code.
//
// The rt0 code passes the address of the multiboot info payload provided by the
// bootloader and the virtual address where the bootloader mapped the complete
// physical memory.
//
// Kmain is not expected to return. If it does, the rt0 code will halt the CPU.
//
//go:noinline
func Kmain(multibootInfoPtr, physMemOffset uintptr) {
	multiboot.SetInfoPtr(multibootInfoPtr)

	alloc := pmm.NewBootInfoAllocator(multiboot.BootMemoryMap{})
	mapper := vmm.Init(physMemOffset)

	// The heap range is reserved before anything else claims frames
	if err := heap.Init(mapper, alloc); err != nil {
		kfmt.Panic(err)
		return
	}

	cfg, err := ParseConfig(multiboot.GetBootCmdLine())
	if err != nil {
		kfmt.Panic(err)
		return
	}

	exec, err := Boot(cfg, alloc, task.CPUHalter{}, nil)
	if err != nil {
		kfmt.Panic(err)
		return
	}

	exec.Run()

	// Use kfmt.Panic instead of panic to prevent the compiler from
	// treating kfmt.Panic as dead-code and eliminating it.
	kfmt.Panic(errKmainReturned)
}

// Boot starts the kernel services that run on top of an initialized memory
// subsystem and returns an executor with the keyboard task spawned. Decoded
// keystrokes are printed to w, or to the active kfmt output sink if w is nil.
func Boot(cfg Config, alloc *pmm.BootInfoAllocator, halter task.Halter, w io.Writer) (*task.Executor, *kernel.Error) {
	if cfg.PrintMemMap {
		alloc.PrintMemoryMap(kfmt.NewPrefixWriter(nil, "[pmm] "))
	}

	exec := task.NewExecutor(halter)
	if _, err := exec.Spawn(printKeypressesFn(cfg.KbdQueueCapacity, w)); err != nil {
		return nil, err
	}

	kfmt.Printf("[kmain] keyboard task started (queue capacity: %d)\n", cfg.KbdQueueCapacity)
	return exec, nil
}
