package kmain

import (
	"strconv"

	"bos/kernel"
	"bos/kernel/task/keyboard"
)

const (
	kbdQueueKey = "kbdqueue"
	memMapKey   = "memmap"
)

var errInvalidKbdQueue = &kernel.Error{Module: "kmain", Message: "kbdqueue must be a positive integer"}

// Config holds the kernel options that can be set from the boot command line.
type Config struct {
	// KbdQueueCapacity is the number of scancodes that can be buffered
	// before keyboard input is dropped.
	KbdQueueCapacity int

	// PrintMemMap enables printing the system memory map during boot.
	PrintMemMap bool
}

// DefaultConfig returns the options used when the command line is empty.
func DefaultConfig() Config {
	return Config{KbdQueueCapacity: keyboard.DefaultQueueCapacity}
}

// ParseConfig builds a Config from the key-value pairs of the boot command
// line. The following keys are recognized; all other keys are ignored:
//
//	kbdqueue=<n>  scancode queue capacity
//	memmap        print the memory map at boot
func ParseConfig(cmdLine map[string]string) (Config, *kernel.Error) {
	cfg := DefaultConfig()

	if value, ok := cmdLine[kbdQueueKey]; ok {
		capacity, err := strconv.Atoi(value)
		if err != nil || capacity <= 0 {
			return cfg, errInvalidKbdQueue
		}
		cfg.KbdQueueCapacity = capacity
	}

	if _, ok := cmdLine[memMapKey]; ok {
		cfg.PrintMemMap = true
	}

	return cfg, nil
}
