// Package cpu exposes the privileged amd64 instructions used by the memory
// and interrupt subsystems. These functions fault when invoked in user mode;
// callers that need to run under test reference them through function
// variables that tests can override.
package cpu

// EnableInterrupts enables interrupt handling.
func EnableInterrupts()

// DisableInterrupts disables interrupt handling.
func DisableInterrupts()

// EnableInterruptsAndHalt atomically enables interrupts and halts the CPU
// until the next interrupt arrives. Since sti delays interrupt delivery by
// one instruction, an interrupt that becomes pending between the two
// instructions still wakes up the hlt.
func EnableInterruptsAndHalt()

// Halt stops instruction execution. Interrupts are disabled before halting so
// calls to Halt never return.
func Halt()

// FlushTLBEntry flushes a TLB entry for a particular virtual address.
func FlushTLBEntry(virtAddr uintptr)

// ActivePDT returns the value of the CR3 register which holds the physical
// address of the currently active top-level page table.
func ActivePDT() uintptr

// PortWriteByte writes a uint8 value to the requested port.
func PortWriteByte(port uint16, val uint8)

// PortReadByte reads a uint8 value from the requested port.
func PortReadByte(port uint16) uint8
