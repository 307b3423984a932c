package irq

import (
	"bos/kernel/cpu"
	"bos/kernel/task/keyboard"
)

// InterruptNum identifies an entry in the interrupt descriptor table.
type InterruptNum uint8

const (
	// PIC1Offset is the interrupt number that the master PIC maps IRQ 0 to.
	PIC1Offset = InterruptNum(32)

	// PIC2Offset is the interrupt number that the slave PIC maps IRQ 8 to.
	PIC2Offset = PIC1Offset + 8

	// TimerInterrupt is raised by the programmable interval timer.
	TimerInterrupt = PIC1Offset

	// KeyboardInterrupt is raised by the PS/2 controller when a scancode
	// can be read from its data port.
	KeyboardInterrupt = PIC1Offset + 1
)

const (
	ps2DataPort         = uint16(0x60)
	pic1CommandPort     = uint16(0x20)
	pic2CommandPort     = uint16(0xa0)
	picEndOfInterrupt   = uint8(0x20)
	picInterruptsPerPIC = 8
)

var (
	// the following functions are mocked by tests and are automatically
	// inlined by the compiler.
	portReadByteFn  = cpu.PortReadByte
	portWriteByteFn = cpu.PortWriteByte
	addScancodeFn   = keyboard.AddScancode
)

// KeyboardHandler reads the pending scancode from the PS/2 controller and
// queues it for the keyboard task. The data port must be read on every
// interrupt, otherwise the controller stops raising new ones.
func KeyboardHandler(_ *Frame, _ *Regs) {
	scancode := portReadByteFn(ps2DataPort)
	addScancodeFn(scancode)
	EndOfInterrupt(KeyboardInterrupt)
}

// TimerHandler acknowledges timer interrupts.
func TimerHandler(_ *Frame, _ *Regs) {
	EndOfInterrupt(TimerInterrupt)
}

// EndOfInterrupt notifies the PICs that the interrupt has been serviced.
// Interrupts raised by the slave PIC need to be acknowledged by both PICs.
func EndOfInterrupt(num InterruptNum) {
	if num < PIC1Offset || num >= PIC2Offset+picInterruptsPerPIC {
		return
	}

	if num >= PIC2Offset {
		portWriteByteFn(pic2CommandPort, picEndOfInterrupt)
	}
	portWriteByteFn(pic1CommandPort, picEndOfInterrupt)
}
